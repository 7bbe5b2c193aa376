// Package models defines the domain types for Tick-Tock.
package models

import "time"

// Status is the lifecycle state of a time entry.
type Status string

const (
	StatusDraft  Status = "draft"
	StatusLogged Status = "logged"
)

// DayState is the aggregated status of a calendar day.
type DayState string

const (
	DayNoLogs DayState = "no-logs"
	DayDraft  DayState = "draft"
	DayLogged DayState = "logged"
)

// DateLayout is the key format of a day record.
const DateLayout = "2006-01-02"

// MonthLayout is the key format of a calendar month.
const MonthLayout = "2006-01"

// TimeEntry is a parsed or shipped unit of work.
type TimeEntry struct {
	ID              string     `json:"id"`
	TaskID          string     `json:"taskId"`
	Description     string     `json:"description"`
	DurationMinutes int        `json:"durationMinutes"`
	Status          Status     `json:"status"`
	OriginalMessage string     `json:"originalMessage"`
	CreatedAt       time.Time  `json:"createdAt"`
	LoggedAt        *time.Time `json:"loggedAt,omitempty"`
}

// ParseResult is the output of a parse or refine operation.
type ParseResult struct {
	Entries              []TimeEntry `json:"entries"`
	ConfidenceScore      int         `json:"confidenceScore"`
	Suggestions          []string    `json:"suggestions"`
	TotalDurationMinutes int         `json:"totalDurationMinutes"`
}

// DayStatus is the derived summary of one day record.
type DayStatus struct {
	Status       DayState `json:"status"`
	EntryCount   int      `json:"entryCount"`
	TotalMinutes int      `json:"totalMinutes"`
}

// TotalMinutes sums the durations of entries.
func TotalMinutes(entries []TimeEntry) int {
	total := 0
	for _, e := range entries {
		total += e.DurationMinutes
	}
	return total
}

// Summarize derives the day status of entries: any logged entry makes the
// day logged, otherwise any draft makes it draft.
func Summarize(entries []TimeEntry) DayStatus {
	st := DayStatus{Status: DayNoLogs, EntryCount: len(entries), TotalMinutes: TotalMinutes(entries)}
	for _, e := range entries {
		switch e.Status {
		case StatusLogged:
			st.Status = DayLogged
			return st
		case StatusDraft:
			st.Status = DayDraft
		}
	}
	return st
}
