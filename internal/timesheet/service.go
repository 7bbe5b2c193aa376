// Package timesheet composes the message parser and the entry store into the
// parse, refine and ship operations exposed to clients.
package timesheet

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/starford/ticktock/internal/apperr"
	"github.com/starford/ticktock/internal/entrystore"
	"github.com/starford/ticktock/internal/models"
	"github.com/starford/ticktock/internal/parser"
)

// Event kinds passed to a Notifier.
const (
	EventParsed  = "parsed"
	EventRefined = "refined"
	EventShipped = "shipped"
)

// Refinement guidance returned with every refined result.
var refineSuggestions = []string{
	"Review the refined entries before shipping them.",
	"Ask for another refinement if the split still looks wrong.",
}

const refineConfidenceBoost = 15

// Notifier receives a notification after entries of a day change.
type Notifier interface {
	PublishEntryEvent(kind, date string, ids []string)
}

// Recorder observes service outcomes for metrics.
type Recorder interface {
	ObserveParse(confidence, entries int)
	ObserveRefine()
	ObserveShip(logged, failed int)
}

// Service coordinates parsing and storage.
type Service struct {
	store    entrystore.Store
	parser   *parser.Parser
	now      func() time.Time
	notifier Notifier
	recorder Recorder
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier publishes entry changes to n.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithRecorder reports outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithClock overrides the clock used for loggedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new timesheet service.
func NewService(store entrystore.Store, p *parser.Parser, opts ...Option) *Service {
	s := &Service{
		store:  store,
		parser: p,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RefineResult is the outcome of a refinement.
type RefineResult struct {
	Entries         []models.TimeEntry `json:"entries"`
	ConfidenceScore int                `json:"confidenceScore"`
	Suggestions     []string           `json:"suggestions"`
}

// ShipError reports one entry that could not be logged.
type ShipError struct {
	EntryID string `json:"entryId"`
	Error   string `json:"error"`
}

// ShipResult is the outcome of a ship operation.
type ShipResult struct {
	Success       bool               `json:"success"`
	LoggedEntries []models.TimeEntry `json:"loggedEntries"`
	Errors        []ShipError        `json:"errors,omitempty"`
}

// DayEntries lists one day's entries.
type DayEntries struct {
	Date         string             `json:"date"`
	Entries      []models.TimeEntry `json:"entries"`
	TotalMinutes int                `json:"totalMinutes"`
}

// CalendarDay is one cell of a month summary.
type CalendarDay struct {
	Date         string          `json:"date"`
	Status       models.DayState `json:"status"`
	EntryCount   int             `json:"entryCount"`
	TotalMinutes int             `json:"totalMinutes"`
	IsWorkingDay bool            `json:"isWorkingDay"`
}

// CalendarMonth summarizes every day of a month.
type CalendarMonth struct {
	Month string        `json:"month"`
	Days  []CalendarDay `json:"days"`
}

// ParseMessage parses message and, when date is given, stores the drafts
// under it. The parse result is returned unchanged.
func (s *Service) ParseMessage(ctx context.Context, message, date string) (models.ParseResult, error) {
	res := s.parser.Parse(message)
	if s.recorder != nil {
		s.recorder.ObserveParse(res.ConfidenceScore, len(res.Entries))
	}
	if len(res.Entries) == 0 || date == "" {
		return res, nil
	}
	if err := s.store.UpsertEntries(ctx, date, res.Entries); err != nil {
		return models.ParseResult{}, fmt.Errorf("store parsed entries: %w", err)
	}
	s.notify(EventParsed, date, res.Entries)
	return res, nil
}

// RefineEntry supersedes entryID with entries re-parsed from
// originalMessage. Without a date the entry is looked up across all days.
// It returns apperr.ErrNotFound when the entry does not exist.
func (s *Service) RefineEntry(ctx context.Context, entryID, request, originalMessage, date string) (RefineResult, error) {
	day, err := s.locate(ctx, entryID, date)
	if err != nil {
		return RefineResult{}, err
	}

	parsed := s.parser.Parse(originalMessage)
	if len(parsed.Entries) == 0 {
		// Nothing to replace the entry with; keep it.
		return RefineResult{
			Entries:         []models.TimeEntry{},
			ConfidenceScore: min(parsed.ConfidenceScore+refineConfidenceBoost, parser.MaxConfidence),
			Suggestions:     append(slices.Clone(refineSuggestions), parser.HintTaskID),
		}, nil
	}

	replacements := make([]models.TimeEntry, len(parsed.Entries))
	for i, e := range parsed.Entries {
		e.Description = fmt.Sprintf("%s (refined: %s)", e.Description, request)
		e.Status = models.StatusDraft
		e.LoggedAt = nil
		replacements[i] = e
	}

	found := false
	err = s.store.Update(ctx, day, func(entries []models.TimeEntry) []models.TimeEntry {
		kept := slices.DeleteFunc(entries, func(e models.TimeEntry) bool { return e.ID == entryID })
		found = len(kept) != len(entries)
		if !found {
			return kept
		}
		return append(kept, replacements...)
	})
	if err != nil {
		return RefineResult{}, fmt.Errorf("replace refined entry: %w", err)
	}
	if !found {
		return RefineResult{}, apperr.ErrNotFound
	}

	s.logger.Debug("entry refined",
		slog.String("entry_id", entryID),
		slog.String("date", day),
		slog.Int("replacements", len(replacements)))
	if s.recorder != nil {
		s.recorder.ObserveRefine()
	}
	s.notify(EventRefined, day, replacements)

	return RefineResult{
		Entries:         replacements,
		ConfidenceScore: min(parsed.ConfidenceScore+refineConfidenceBoost, parser.MaxConfidence),
		Suggestions:     slices.Clone(refineSuggestions),
	}, nil
}

func (s *Service) locate(ctx context.Context, entryID, date string) (string, error) {
	if date == "" {
		day, _, ok, err := s.store.Locate(ctx, entryID)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", apperr.ErrNotFound
		}
		return day, nil
	}
	entries, err := s.store.GetEntries(ctx, date)
	if err != nil {
		return "", err
	}
	if !slices.ContainsFunc(entries, func(e models.TimeEntry) bool { return e.ID == entryID }) {
		return "", apperr.ErrNotFound
	}
	return date, nil
}

// ShipEntries marks the named drafts of date as logged. Unknown and already
// logged ids are reported in Errors; other entries are left untouched.
func (s *Service) ShipEntries(ctx context.Context, entryIDs []string, date string) (ShipResult, error) {
	want := make(map[string]bool, len(entryIDs))
	for _, id := range entryIDs {
		want[id] = true
	}

	loggedAt := s.now().UTC()
	var (
		logged  []models.TimeEntry
		shipErr []ShipError
		seen    map[string]bool
	)
	err := s.store.Update(ctx, date, func(entries []models.TimeEntry) []models.TimeEntry {
		logged, shipErr = nil, nil
		seen = make(map[string]bool, len(want))
		for i, e := range entries {
			if !want[e.ID] || seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			if e.Status == models.StatusLogged {
				shipErr = append(shipErr, ShipError{EntryID: e.ID, Error: apperr.ErrAlreadyLogged.Error()})
				continue
			}
			e.Status = models.StatusLogged
			t := loggedAt
			e.LoggedAt = &t
			entries[i] = e
			logged = append(logged, e)
		}
		return entries
	})
	if err != nil {
		return ShipResult{}, fmt.Errorf("ship entries: %w", err)
	}

	reported := make(map[string]bool, len(entryIDs))
	for _, id := range entryIDs {
		if seen[id] || reported[id] {
			continue
		}
		reported[id] = true
		shipErr = append(shipErr, ShipError{EntryID: id, Error: apperr.ErrNotFound.Error()})
	}

	if logged == nil {
		logged = []models.TimeEntry{}
	}
	if s.recorder != nil {
		s.recorder.ObserveShip(len(logged), len(shipErr))
	}
	if len(logged) > 0 {
		s.notify(EventShipped, date, logged)
	}
	if len(shipErr) > 0 {
		s.logger.Warn("ship completed with errors",
			slog.String("date", date),
			slog.Int("logged", len(logged)),
			slog.Int("failed", len(shipErr)))
	}

	return ShipResult{
		Success:       len(shipErr) == 0,
		LoggedEntries: logged,
		Errors:        shipErr,
	}, nil
}

// DayEntries returns the entries stored under date.
func (s *Service) DayEntries(ctx context.Context, date string) (DayEntries, error) {
	entries, err := s.store.GetEntries(ctx, date)
	if err != nil {
		return DayEntries{}, err
	}
	return DayEntries{
		Date:         date,
		Entries:      entries,
		TotalMinutes: models.TotalMinutes(entries),
	}, nil
}

// CalendarMonth summarizes every day of month (YYYY-MM).
func (s *Service) CalendarMonth(ctx context.Context, month string) (CalendarMonth, error) {
	start, err := time.Parse(models.MonthLayout, month)
	if err != nil {
		return CalendarMonth{}, fmt.Errorf("%w: month %q", apperr.ErrInvalidInput, month)
	}
	var days []CalendarDay
	for d := start; d.Month() == start.Month(); d = d.AddDate(0, 0, 1) {
		date := d.Format(models.DateLayout)
		st, err := s.store.DayStatus(ctx, date)
		if err != nil {
			return CalendarMonth{}, err
		}
		days = append(days, CalendarDay{
			Date:         date,
			Status:       st.Status,
			EntryCount:   st.EntryCount,
			TotalMinutes: st.TotalMinutes,
			IsWorkingDay: entrystore.IsWorkingDay(d),
		})
	}
	return CalendarMonth{Month: month, Days: days}, nil
}

// Ping checks the underlying store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) notify(kind, date string, entries []models.TimeEntry) {
	if s.notifier == nil {
		return
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	s.notifier.PublishEntryEvent(kind, date, ids)
}
