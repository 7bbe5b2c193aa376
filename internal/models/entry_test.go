package models

import "testing"

func TestSummarize(t *testing.T) {
	tests := []struct {
		name    string
		entries []TimeEntry
		want    DayState
	}{
		{"empty", nil, DayNoLogs},
		{"drafts only", []TimeEntry{{Status: StatusDraft}, {Status: StatusDraft}}, DayDraft},
		{"logged wins", []TimeEntry{{Status: StatusDraft}, {Status: StatusLogged}, {Status: StatusDraft}}, DayLogged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.entries)
			if got.Status != tt.want {
				t.Errorf("status = %q, want %q", got.Status, tt.want)
			}
			if got.EntryCount != len(tt.entries) {
				t.Errorf("count = %d, want %d", got.EntryCount, len(tt.entries))
			}
		})
	}
}

func TestTotalMinutes(t *testing.T) {
	got := TotalMinutes([]TimeEntry{{DurationMinutes: 30}, {DurationMinutes: 45}})
	if got != 75 {
		t.Errorf("total = %d, want 75", got)
	}
}
