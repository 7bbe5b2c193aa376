// Package parser turns natural-language work descriptions into draft time entries.
package parser

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/starford/ticktock/internal/models"
)

var (
	taskIDRe   = regexp.MustCompile(`[A-Z]+-\d+`)
	durationRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(hours?|hrs?|h|minutes?|mins?|m)\b`)
)

const (
	// DefaultDurationMinutes is assigned to every task when the message names no duration.
	DefaultDurationMinutes = 60
	// MaxConfidence keeps every parse reviewable.
	MaxConfidence = 95
	// MaxDurationMinutes caps a single mention and the sum of mentions.
	MaxDurationMinutes = math.MaxInt32
)

// Suggestion texts.
const (
	HintTaskID      = "Please include a task ID like XYZ-123 so the work can be attributed."
	HintDuration    = `Consider specifying time spent (e.g. "2 hours" or "30 minutes").`
	hintDistributed = "Time was distributed evenly across %d tasks. Refine the entries if the split was uneven."
)

// Parser extracts task identifiers and durations from free text.
type Parser struct {
	now        func() time.Time
	newID      func() string
	extractors []DescriptionExtractor
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock overrides the clock used for createdAt.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// WithIDGenerator overrides entry id generation.
func WithIDGenerator(gen func() string) Option {
	return func(p *Parser) { p.newID = gen }
}

// WithExtractors replaces the description extraction chain.
func WithExtractors(ex ...DescriptionExtractor) Option {
	return func(p *Parser) { p.extractors = ex }
}

// New creates a Parser with the default extraction chain.
func New(opts ...Option) *Parser {
	p := &Parser{
		now:        time.Now,
		newID:      uuid.NewString,
		extractors: DefaultExtractors(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse extracts draft entries from message. It never fails: a message
// without task identifiers yields an empty result with a single hint.
func (p *Parser) Parse(message string) models.ParseResult {
	ids := extractTaskIDs(message)
	if len(ids) == 0 {
		return models.ParseResult{
			Entries:     []models.TimeEntry{},
			Suggestions: []string{HintTaskID},
		}
	}

	durations := extractDurations(message)
	minutes, evenly := allocate(len(ids), durations)

	now := p.now().UTC()
	entries := make([]models.TimeEntry, len(ids))
	for i, id := range ids {
		entries[i] = models.TimeEntry{
			ID:              p.newID(),
			TaskID:          id,
			Description:     p.Describe(message, id),
			DurationMinutes: minutes[i],
			Status:          models.StatusDraft,
			OriginalMessage: message,
			CreatedAt:       now,
		}
	}

	suggestions := []string{}
	if len(durations) == 0 {
		suggestions = append(suggestions, HintDuration)
	}
	if evenly {
		suggestions = append(suggestions, fmt.Sprintf(hintDistributed, len(ids)))
	}

	return models.ParseResult{
		Entries:              entries,
		ConfidenceScore:      confidence(message, len(entries)),
		Suggestions:          suggestions,
		TotalDurationMinutes: models.TotalMinutes(entries),
	}
}

// Describe runs the extraction chain for taskID and falls back to FallbackDescription.
func (p *Parser) Describe(message, taskID string) string {
	for _, ex := range p.extractors {
		if d := ex.Extract(message, taskID); d != "" {
			return d
		}
	}
	return FallbackDescription
}

// extractTaskIDs returns unique identifiers in order of first appearance.
func extractTaskIDs(message string) []string {
	matches := taskIDRe.FindAllString(message, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// extractDurations converts every duration mention to whole minutes,
// clamped to MaxDurationMinutes.
func extractDurations(message string) []int {
	matches := durationRe.FindAllStringSubmatch(message, -1)
	out := make([]int, 0, len(matches))
	for _, m := range matches {
		// Out of range values come back as +Inf (or 0) with ErrRange.
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			continue
		}
		if strings.HasPrefix(strings.ToLower(m[2]), "h") {
			v *= 60
		}
		out = append(out, int(min(math.Round(v), MaxDurationMinutes)))
	}
	return out
}

// allocate assigns minutes to n tasks. evenly reports that a single mention
// was split across several tasks.
func allocate(n int, durations []int) (minutes []int, evenly bool) {
	minutes = make([]int, n)
	switch {
	case len(durations) == 0:
		for i := range minutes {
			minutes[i] = DefaultDurationMinutes
		}
	case len(durations) == n:
		copy(minutes, durations)
	default:
		sum := 0
		for _, d := range durations {
			sum = min(sum+d, MaxDurationMinutes)
		}
		// Rounded once per share; the total may drift from sum by up to n-1.
		share := int(math.Round(float64(sum) / float64(n)))
		for i := range minutes {
			minutes[i] = share
		}
		evenly = n > 1 && len(durations) == 1
	}
	return minutes, evenly
}

func confidence(message string, entries int) int {
	score := 50
	lower := strings.ToLower(message)
	if strings.Contains(lower, "worked on") || strings.Contains(lower, "working on") {
		score += 20
	}
	if strings.Contains(message, "hour") || strings.Contains(message, "minute") {
		score += 15
	}
	if entries > 0 {
		score += 10
	}
	if utf8.RuneCountInString(message) > 20 {
		score += 5
	}
	return min(score, MaxConfidence)
}
