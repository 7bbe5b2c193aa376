// Package testutil provides shared test helpers for stores and inbox directories.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/ticktock/internal/entrystore"
	"github.com/starford/ticktock/internal/models"
)

// TestSQLite creates a temporary SQLite store that is automatically cleaned up.
func TestSQLite(t *testing.T, opts ...entrystore.Option) *entrystore.SQLite {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ticktock-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	store, err := entrystore.OpenSQLite(dbFile.Name(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestInbox creates a temporary inbox directory and returns its path.
func TestInbox(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "inbox")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

// Draft builds a draft entry for tests.
func Draft(id, taskID string, minutes int) models.TimeEntry {
	return models.TimeEntry{
		ID:              id,
		TaskID:          taskID,
		Description:     "test work",
		DurationMinutes: minutes,
		Status:          models.StatusDraft,
		OriginalMessage: taskID + " test work",
		CreatedAt:       time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC),
	}
}

// FixedClock returns a clock that always reports t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
