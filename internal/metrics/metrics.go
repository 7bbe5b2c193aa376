// Package metrics provides Prometheus metrics for the time-entry service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors of the service on a private registry.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	EntriesParsed       prometheus.Counter
	ParseConfidence     prometheus.Histogram
	Refinements         prometheus.Counter
	ShipResults         *prometheus.CounterVec
	InboxFiles          *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ticktock_http_requests_total",
				Help: "HTTP requests by route, method and status code.",
			},
			[]string{"route", "method", "code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ticktock_http_request_duration_seconds",
				Help:    "HTTP request latency by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		EntriesParsed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ticktock_entries_parsed_total",
				Help: "Draft entries produced by the message parser.",
			},
		),
		ParseConfidence: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ticktock_parse_confidence",
				Help:    "Confidence score of parsed messages.",
				Buckets: []float64{0, 50, 60, 70, 80, 90, 95},
			},
		),
		Refinements: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ticktock_refinements_total",
				Help: "Entries superseded by a refinement.",
			},
		),
		ShipResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ticktock_ship_entries_total",
				Help: "Entries handled by ship requests by result.",
			},
			[]string{"result"},
		),
		InboxFiles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ticktock_inbox_files_total",
				Help: "Inbox files processed by result.",
			},
			[]string{"result"},
		),
		registry: reg,
	}

	reg.MustRegister(m.HTTPRequestsTotal)
	reg.MustRegister(m.HTTPRequestDuration)
	reg.MustRegister(m.EntriesParsed)
	reg.MustRegister(m.ParseConfidence)
	reg.MustRegister(m.Refinements)
	reg.MustRegister(m.ShipResults)
	reg.MustRegister(m.InboxFiles)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveParse records one parsed message.
func (m *Metrics) ObserveParse(confidence, entries int) {
	m.ParseConfidence.Observe(float64(confidence))
	m.EntriesParsed.Add(float64(entries))
}

// ObserveRefine records one refinement.
func (m *Metrics) ObserveRefine() {
	m.Refinements.Inc()
}

// ObserveShip records the outcome of a ship request.
func (m *Metrics) ObserveShip(logged, failed int) {
	m.ShipResults.WithLabelValues("logged").Add(float64(logged))
	m.ShipResults.WithLabelValues("failed").Add(float64(failed))
}

// RecordInboxFile counts a processed inbox file; result is "ok" or "error".
func (m *Metrics) RecordInboxFile(result string) {
	m.InboxFiles.WithLabelValues(result).Inc()
}

// Middleware counts requests and their latency, labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
