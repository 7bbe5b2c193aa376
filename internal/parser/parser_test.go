package parser

import (
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/starford/ticktock/internal/models"
)

func testParser() *Parser {
	n := 0
	return New(
		WithClock(func() time.Time { return time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC) }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("e%d", n)
		}),
	)
}

func hasSuggestion(r models.ParseResult, substr string) bool {
	for _, s := range r.Suggestions {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

func TestParse_SingleTaskHours(t *testing.T) {
	r := testParser().Parse("Worked on XYZ-1111 for 3 hours implementing authentication")
	if len(r.Entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(r.Entries))
	}
	e := r.Entries[0]
	if e.TaskID != "XYZ-1111" {
		t.Errorf("taskId = %q", e.TaskID)
	}
	if e.DurationMinutes != 180 {
		t.Errorf("duration = %d, want 180", e.DurationMinutes)
	}
	if e.Status != models.StatusDraft {
		t.Errorf("status = %q, want draft", e.Status)
	}
	if e.LoggedAt != nil {
		t.Error("loggedAt must be unset on a new entry")
	}
	if e.Description != "for 3 hours implementing authentication" {
		t.Errorf("description = %q", e.Description)
	}
	if r.ConfidenceScore != MaxConfidence {
		t.Errorf("confidence = %d, want %d", r.ConfidenceScore, MaxConfidence)
	}
	if r.TotalDurationMinutes != 180 {
		t.Errorf("total = %d, want 180", r.TotalDurationMinutes)
	}
	if len(r.Suggestions) != 0 {
		t.Errorf("suggestions = %v, want none", r.Suggestions)
	}
}

func TestParse_NoDurations(t *testing.T) {
	r := testParser().Parse("Fixed ABC-1 and DEF-2")
	if len(r.Entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(r.Entries))
	}
	for _, e := range r.Entries {
		if e.DurationMinutes != DefaultDurationMinutes {
			t.Errorf("%s duration = %d, want %d", e.TaskID, e.DurationMinutes, DefaultDurationMinutes)
		}
	}
	if !hasSuggestion(r, "specifying time spent") {
		t.Errorf("suggestions = %v, want time hint", r.Suggestions)
	}
	if r.ConfidenceScore != 65 {
		t.Errorf("confidence = %d, want 65", r.ConfidenceScore)
	}
	if r.Entries[1].Description != "Fixed ABC-1 and" {
		t.Errorf("window description = %q", r.Entries[1].Description)
	}
}

func TestParse_NoTaskIDs(t *testing.T) {
	for _, msg := range []string{"no tickets here", "", "abc-123 for 2 hours", "worked on stuff for 3 hours"} {
		r := testParser().Parse(msg)
		if len(r.Entries) != 0 || r.Entries == nil {
			t.Errorf("%q: entries = %v, want empty non-nil", msg, r.Entries)
		}
		if r.ConfidenceScore != 0 || r.TotalDurationMinutes != 0 {
			t.Errorf("%q: confidence = %d total = %d", msg, r.ConfidenceScore, r.TotalDurationMinutes)
		}
		if !slices.Equal(r.Suggestions, []string{HintTaskID}) {
			t.Errorf("%q: suggestions = %v", msg, r.Suggestions)
		}
	}
}

func TestParse_TaskIDOrderAndDedup(t *testing.T) {
	r := testParser().Parse("QA-9 then DEV-12, back to QA-9 and OPS-3")
	var got []string
	for _, e := range r.Entries {
		got = append(got, e.TaskID)
	}
	want := []string{"QA-9", "DEV-12", "OPS-3"}
	if !slices.Equal(got, want) {
		t.Errorf("task ids = %v, want %v", got, want)
	}
}

func TestParse_DurationsMappedByIndex(t *testing.T) {
	r := testParser().Parse("ABC-1 2h, DEF-2 30m, GHI-3 1.5 hours")
	want := []int{120, 30, 90}
	for i, e := range r.Entries {
		if e.DurationMinutes != want[i] {
			t.Errorf("entry %d duration = %d, want %d", i, e.DurationMinutes, want[i])
		}
	}
	if r.TotalDurationMinutes != 240 {
		t.Errorf("total = %d, want 240", r.TotalDurationMinutes)
	}
}

func TestParse_SingleDurationDistributed(t *testing.T) {
	r := testParser().Parse("ABC-1, DEF-2 and GHI-3 took 100 minutes")
	if len(r.Entries) != 3 {
		t.Fatalf("len(entries) = %d", len(r.Entries))
	}
	for _, e := range r.Entries {
		if e.DurationMinutes != 33 {
			t.Errorf("%s duration = %d, want 33", e.TaskID, e.DurationMinutes)
		}
	}
	if r.TotalDurationMinutes != 99 {
		t.Errorf("total = %d, want 99 (rounded per share)", r.TotalDurationMinutes)
	}
	if !hasSuggestion(r, "distributed evenly") {
		t.Errorf("suggestions = %v, want distribution hint", r.Suggestions)
	}
}

func TestParse_MismatchedCountsShareSum(t *testing.T) {
	r := testParser().Parse("ABC-1 and DEF-2: 1h, 30m and 15m")
	for _, e := range r.Entries {
		if e.DurationMinutes != 53 {
			t.Errorf("%s duration = %d, want 53", e.TaskID, e.DurationMinutes)
		}
	}
	if hasSuggestion(r, "distributed evenly") {
		t.Error("distribution hint only applies to a single duration mention")
	}
}

func TestParse_OneTaskManyDurations(t *testing.T) {
	r := testParser().Parse("ABC-1 1h in the morning and 30 min after lunch")
	if len(r.Entries) != 1 || r.Entries[0].DurationMinutes != 90 {
		t.Fatalf("entries = %+v, want one entry of 90 minutes", r.Entries)
	}
}

func TestExtractDurations(t *testing.T) {
	tests := []struct {
		msg  string
		want []int
	}{
		{"2 hours", []int{120}},
		{"1 hour", []int{60}},
		{"3hrs and 1hr", []int{180, 60}},
		{"2H", []int{120}},
		{"45 minutes, 1 minute", []int{45, 1}},
		{"20min 5mins 7m", []int{20, 5, 7}},
		{"0.25 hours", []int{15}},
		{"1.5 min", []int{2}},
		{"2.5 m", []int{3}},
		{"ABC-12 meeting", []int{}},
		{"nothing", []int{}},
		{"99999999999999999999 hours", []int{MaxDurationMinutes}},
		{"3000000000 minutes", []int{MaxDurationMinutes}},
		{strings.Repeat("9", 400) + " hours and 5 minutes", []int{MaxDurationMinutes, 5}},
	}
	for _, tt := range tests {
		got := extractDurations(tt.msg)
		if !slices.Equal(got, tt.want) {
			t.Errorf("extractDurations(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}

func TestParse_HugeDurationsStayNonNegative(t *testing.T) {
	p := testParser()
	for _, msg := range []string{
		"ABC-1 for 99999999999999999999 hours",
		"ABC-1 ABC-2 ABC-3 for 100000000000000000 hours and 100000000000000000 hours",
		"ABC-1 ABC-2 for " + strings.Repeat("9", 400) + " hours",
	} {
		res := p.Parse(msg)
		if len(res.Entries) == 0 {
			t.Fatalf("Parse(%q) returned no entries", msg)
		}
		for _, e := range res.Entries {
			if e.DurationMinutes < 0 || e.DurationMinutes > MaxDurationMinutes {
				t.Errorf("Parse(%q) %s minutes = %d, want within [0, %d]", msg, e.TaskID, e.DurationMinutes, MaxDurationMinutes)
			}
		}
		if res.TotalDurationMinutes < 0 {
			t.Errorf("Parse(%q) total = %d, want >= 0", msg, res.TotalDurationMinutes)
		}
	}
}

func TestParse_OutOfRangeMentionStillCounts(t *testing.T) {
	// Two ids and two mentions map by index even when one overflows float64.
	res := testParser().Parse("ABC-1 " + strings.Repeat("9", 400) + " hours, ABC-2 30 minutes")
	if len(res.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(res.Entries))
	}
	if res.Entries[0].DurationMinutes != MaxDurationMinutes || res.Entries[1].DurationMinutes != 30 {
		t.Errorf("minutes = %d, %d, want %d, 30", res.Entries[0].DurationMinutes, res.Entries[1].DurationMinutes, MaxDurationMinutes)
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		msg     string
		entries int
		want    int
	}{
		{"ABC-1", 1, 60},
		{"working on ABC-1", 1, 80},
		{"ABC-1 took an hour", 1, 75},
		{"ABC-1 took an Hour of my life", 1, 65},
		{"Working on ABC-1 for an hour today", 1, 95},
	}
	for _, tt := range tests {
		if got := confidence(tt.msg, tt.entries); got != tt.want {
			t.Errorf("confidence(%q) = %d, want %d", tt.msg, got, tt.want)
		}
	}
}

func TestParse_ConfidenceBounds(t *testing.T) {
	msgs := []string{
		"",
		"x",
		"Worked on ABC-1 for 2 hours and 30 minutes working on things hour minute",
		"ABC-1 DEF-2 GHI-3 JKL-4 worked on working on hours minutes",
		strings.Repeat("Worked on ABC-1 for 1 hour. ", 50),
	}
	p := testParser()
	for _, msg := range msgs {
		c := p.Parse(msg).ConfidenceScore
		if c < 0 || c > MaxConfidence {
			t.Errorf("confidence(%q) = %d out of bounds", msg, c)
		}
	}
}

func TestParse_EntryIdentity(t *testing.T) {
	r := testParser().Parse("ABC-1 and DEF-2 for 2 hours")
	if r.Entries[0].ID == r.Entries[1].ID {
		t.Error("entries must get distinct ids")
	}
	for _, e := range r.Entries {
		if e.OriginalMessage != "ABC-1 and DEF-2 for 2 hours" {
			t.Errorf("original message = %q", e.OriginalMessage)
		}
		if e.CreatedAt.IsZero() {
			t.Error("createdAt not set")
		}
	}
}
