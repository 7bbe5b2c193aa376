// Package sse streams entry changes to browsers as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Event type names.
const (
	TypeEntriesParsed   = "entries.parsed"
	TypeEntriesRefined  = "entries.refined"
	TypeEntriesShipped  = "entries.shipped"
	TypeCalendarUpdated = "calendar.updated"
)

// Event is a single message broadcast to every client.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// EntriesData is the payload of the entries.* events.
type EntriesData struct {
	Date string   `json:"date"`
	IDs  []string `json:"ids"`
}

// CalendarData is the payload of calendar.updated.
type CalendarData struct {
	Month string `json:"month"`
}

type entryEventReq struct {
	kind string
	date string
	ids  []string
}

// Broker fans events out to subscribed clients.
//
// A single loop goroutine owns the client set and the per-month throttle
// state; public methods talk to it over channels.
type Broker struct {
	calendarMin time.Duration
	keepAlive   time.Duration
	logger      *slog.Logger

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	entryEventCh  chan entryEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// Option configures a Broker.
type Option func(*Broker)

// WithKeepAlive sets the interval of comment pings sent to idle streams.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broker) { b.keepAlive = d }
}

// WithLogger sets the broker logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Broker) { b.logger = l }
}

// NewBroker starts a broker. calendar.updated is sent at most once per
// calendarThrottle for each month.
func NewBroker(calendarThrottle time.Duration, opts ...Option) *Broker {
	if calendarThrottle <= 0 {
		calendarThrottle = 2 * time.Second
	}

	b := &Broker{
		calendarMin:   calendarThrottle,
		keepAlive:     15 * time.Second,
		logger:        slog.Default(),
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		entryEventCh:  make(chan entryEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	lastCalendar := make(map[string]time.Time)

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			b.logger.Error("sse: marshal event", slog.String("type", event.Type), slog.String("error", err.Error()))
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than stall the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.entryEventCh:
			typ, ok := entryEventType(req.kind)
			if !ok {
				continue
			}
			broadcast(Event{Type: typ, Data: EntriesData{Date: req.date, IDs: req.ids}})

			month := monthOf(req.date)
			now := time.Now()
			if now.Sub(lastCalendar[month]) >= b.calendarMin {
				lastCalendar[month] = now
				broadcast(Event{Type: TypeCalendarUpdated, Data: CalendarData{Month: month}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

func entryEventType(kind string) (string, bool) {
	switch kind {
	case "parsed":
		return TypeEntriesParsed, true
	case "refined":
		return TypeEntriesRefined, true
	case "shipped":
		return TypeEntriesShipped, true
	}
	return "", false
}

func monthOf(date string) string {
	if len(date) >= 7 {
		return date[:7]
	}
	return date
}

// Close stops the loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishEntryEvent broadcasts an entries.<kind> event for date followed by a
// throttled calendar.updated for its month. Unknown kinds are ignored.
func (b *Broker) PublishEntryEvent(kind, date string, ids []string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.entryEventCh <- entryEventReq{kind: kind, date: date, ids: ids}:
	case <-b.stopped:
	}
}

// ServeHTTP streams events to the client (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
