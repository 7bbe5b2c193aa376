package entrystore

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/starford/ticktock/internal/models"
)

// Memory is an in-process Store. Each day has its own write lock; readers
// load an immutable snapshot without locking the day.
type Memory struct {
	opts options

	mu   sync.RWMutex
	days map[string]*dayRecord
}

type dayRecord struct {
	mu      sync.Mutex
	entries atomic.Pointer[[]models.TimeEntry]
}

func (r *dayRecord) load() []models.TimeEntry {
	if p := r.entries.Load(); p != nil {
		return *p
	}
	return nil
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...Option) *Memory {
	return &Memory{
		opts: newOptions(opts),
		days: make(map[string]*dayRecord),
	}
}

func (m *Memory) lookup(date string) *dayRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.days[date]
}

func (m *Memory) record(date string) *dayRecord {
	if r := m.lookup(date); r != nil {
		return r
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.days[date]
	if !ok {
		r = &dayRecord{}
		m.days[date] = r
	}
	return r
}

// Update implements Store.
func (m *Memory) Update(_ context.Context, date string, fn func([]models.TimeEntry) []models.TimeEntry) error {
	r := m.record(date)
	r.mu.Lock()
	defer r.mu.Unlock()
	next := slices.Clone(fn(slices.Clone(r.load())))
	r.entries.Store(&next)
	return nil
}

// UpsertEntries implements Store.
func (m *Memory) UpsertEntries(ctx context.Context, date string, entries []models.TimeEntry) error {
	return m.Update(ctx, date, func(existing []models.TimeEntry) []models.TimeEntry {
		return merge(existing, entries)
	})
}

// ReplaceEntries implements Store.
func (m *Memory) ReplaceEntries(ctx context.Context, date string, entries []models.TimeEntry) error {
	return m.Update(ctx, date, func([]models.TimeEntry) []models.TimeEntry {
		return entries
	})
}

// GetEntries implements Store.
func (m *Memory) GetEntries(_ context.Context, date string) ([]models.TimeEntry, error) {
	r := m.lookup(date)
	if r == nil {
		return []models.TimeEntry{}, nil
	}
	out := slices.Clone(r.load())
	if out == nil {
		out = []models.TimeEntry{}
	}
	return out, nil
}

func (m *Memory) sortedDates() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dates := make([]string, 0, len(m.days))
	for d := range m.days {
		dates = append(dates, d)
	}
	slices.Sort(dates)
	return dates
}

// Locate implements Store.
func (m *Memory) Locate(_ context.Context, entryID string) (string, models.TimeEntry, bool, error) {
	for _, date := range m.sortedDates() {
		r := m.lookup(date)
		if r == nil {
			continue
		}
		for _, e := range r.load() {
			if e.ID == entryID {
				return date, e, true, nil
			}
		}
	}
	return "", models.TimeEntry{}, false, nil
}

// MarkLogged implements Store.
func (m *Memory) MarkLogged(_ context.Context, entryID string, status models.Status) (bool, error) {
	for _, date := range m.sortedDates() {
		r := m.lookup(date)
		if r == nil {
			continue
		}
		if m.markInDay(r, entryID, status) {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) markInDay(r *dayRecord, entryID string, status models.Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.load()
	i := slices.IndexFunc(current, func(e models.TimeEntry) bool { return e.ID == entryID })
	if i < 0 {
		return false
	}
	next := slices.Clone(current)
	next[i] = setStatus(next[i], status, m.opts.now())
	r.entries.Store(&next)
	return true
}

// DayStatus implements Store.
func (m *Memory) DayStatus(ctx context.Context, date string) (models.DayStatus, error) {
	entries, _ := m.GetEntries(ctx, date)
	return dayStatus(entries, date, m.opts.policy), nil
}

// Reset implements Store.
func (m *Memory) Reset(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.days = make(map[string]*dayRecord)
	return nil
}

// Ping implements Store.
func (m *Memory) Ping(context.Context) error { return nil }

// Close implements Store.
func (m *Memory) Close() error { return nil }
