// Package entrystore persists time entries keyed by calendar day.
package entrystore

import (
	"context"
	"time"

	"github.com/starford/ticktock/internal/models"
)

// Store is a date-keyed container of time entries. Within one day entry ids
// are unique. Writes to the same day are serialized; reads return snapshots.
//
// Errors are reserved for backend failures. Absence is reported through
// empty slices and false results.
type Store interface {
	// UpsertEntries replaces entries sharing an id in place and appends the rest in input order.
	UpsertEntries(ctx context.Context, date string, entries []models.TimeEntry) error
	// ReplaceEntries sets the day's entries to exactly entries.
	ReplaceEntries(ctx context.Context, date string, entries []models.TimeEntry) error
	// Update atomically rewrites the day's entries with fn under the day's write lock.
	Update(ctx context.Context, date string, fn func([]models.TimeEntry) []models.TimeEntry) error
	// GetEntries returns the day's entries, never nil.
	GetEntries(ctx context.Context, date string) ([]models.TimeEntry, error)
	// Locate scans days in ascending order for the first entry with entryID.
	Locate(ctx context.Context, entryID string) (date string, entry models.TimeEntry, ok bool, err error)
	// MarkLogged sets the status of the first entry with entryID.
	MarkLogged(ctx context.Context, entryID string, status models.Status) (bool, error)
	// DayStatus aggregates the day's entries.
	DayStatus(ctx context.Context, date string) (models.DayStatus, error)
	// Reset removes every day record.
	Reset(ctx context.Context) error
	// Ping reports whether the backend is usable.
	Ping(ctx context.Context) error
	Close() error
}

// Option configures a Store implementation.
type Option func(*options)

type options struct {
	policy DemoDataPolicy
	now    func() time.Time
}

func newOptions(opts []Option) options {
	o := options{policy: NoDemoData{}, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithDemoData sets the policy consulted for empty days.
func WithDemoData(p DemoDataPolicy) Option {
	return func(o *options) {
		if p != nil {
			o.policy = p
		}
	}
}

// WithClock overrides the clock used for loggedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// merge applies upsert semantics: existing positions are kept for replaced
// ids and new ids are appended in input order.
func merge(existing, incoming []models.TimeEntry) []models.TimeEntry {
	out := make([]models.TimeEntry, len(existing), len(existing)+len(incoming))
	copy(out, existing)
	pos := make(map[string]int, len(out))
	for i, e := range out {
		pos[e.ID] = i
	}
	for _, e := range incoming {
		if i, ok := pos[e.ID]; ok {
			out[i] = e
			continue
		}
		pos[e.ID] = len(out)
		out = append(out, e)
	}
	return out
}

// setStatus applies a status change, stamping loggedAt only on the
// transition to logged.
func setStatus(e models.TimeEntry, status models.Status, now time.Time) models.TimeEntry {
	if status == models.StatusLogged && e.Status != models.StatusLogged {
		t := now.UTC()
		e.LoggedAt = &t
	}
	e.Status = status
	return e
}

func dayStatus(entries []models.TimeEntry, date string, policy DemoDataPolicy) models.DayStatus {
	if len(entries) == 0 {
		if day, err := time.Parse(models.DateLayout, date); err == nil {
			if st, ok := policy.Synthesize(day); ok {
				return st
			}
		}
	}
	return models.Summarize(entries)
}
