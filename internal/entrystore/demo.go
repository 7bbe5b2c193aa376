package entrystore

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/starford/ticktock/internal/models"
)

// DemoDataPolicy may synthesize a status for a day that has no entries.
type DemoDataPolicy interface {
	Synthesize(day time.Time) (models.DayStatus, bool)
}

// NoDemoData never synthesizes; empty days are no-logs.
type NoDemoData struct{}

// Synthesize implements DemoDataPolicy.
func (NoDemoData) Synthesize(time.Time) (models.DayStatus, bool) {
	return models.DayStatus{}, false
}

// RandomDemoData fills past and current working days with plausible
// draft/logged summaries so a fresh calendar does not look empty.
type RandomDemoData struct {
	now func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomDemoData creates a demo policy seeded with seed.
func NewRandomDemoData(seed uint64, now func() time.Time) *RandomDemoData {
	if now == nil {
		now = time.Now
	}
	return &RandomDemoData{now: now, rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Synthesize implements DemoDataPolicy.
func (d *RandomDemoData) Synthesize(day time.Time) (models.DayStatus, bool) {
	today := d.now()
	y, m, dd := today.Date()
	if day.After(time.Date(y, m, dd, 0, 0, 0, 0, day.Location())) || !IsWorkingDay(day) {
		return models.DayStatus{}, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	roll := d.rnd.IntN(10)
	if roll < 2 {
		return models.DayStatus{Status: models.DayNoLogs}, true
	}
	count := 1 + d.rnd.IntN(4)
	minutes := 0
	for range count {
		minutes += 30 + 15*d.rnd.IntN(7)
	}
	state := models.DayLogged
	if roll < 4 {
		state = models.DayDraft
	}
	return models.DayStatus{Status: state, EntryCount: count, TotalMinutes: minutes}, true
}

// IsWorkingDay reports whether day falls Monday through Friday.
func IsWorkingDay(day time.Time) bool {
	wd := day.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}
