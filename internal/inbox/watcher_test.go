package inbox_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/ticktock/internal/entrystore"
	"github.com/starford/ticktock/internal/inbox"
	"github.com/starford/ticktock/internal/models"
	"github.com/starford/ticktock/internal/parser"
	"github.com/starford/ticktock/internal/testutil"
	"github.com/starford/ticktock/internal/timesheet"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type countingRecorder struct {
	mu      sync.Mutex
	results map[string]int
}

func (r *countingRecorder) RecordInboxFile(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		r.results = make(map[string]int)
	}
	r.results[result]++
}

func (r *countingRecorder) count(result string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[result]
}

type failingProcessor struct{}

func (failingProcessor) ParseMessage(context.Context, string, string) (models.ParseResult, error) {
	return models.ParseResult{}, errors.New("store unavailable")
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func setup(t *testing.T) (*inbox.Dir, *entrystore.Memory, *timesheet.Service) {
	t.Helper()
	dir, err := inbox.NewDir(testutil.TestInbox(t))
	if err != nil {
		t.Fatal(err)
	}
	store := entrystore.NewMemory()
	return dir, store, timesheet.NewService(store, parser.New())
}

func TestDrainIngestsExistingFiles(t *testing.T) {
	dir, store, svc := setup(t)
	rec := &countingRecorder{}

	_ = dir.Write("monday.txt", []byte("---\ndate: 2024-01-15\n---\nABC-1 2h, ABC-2 30m"))
	_ = dir.Write("notes.md", []byte("---\ndate: 2024-01-15\n---\nlunch"))
	_ = dir.Write("broken.txt", []byte("---\ndate: someday\n---\nABC-3 1h"))

	w := inbox.NewWatcher(dir, svc, inbox.WithLogger(quietLogger()), inbox.WithRecorder(rec))
	if n := w.Drain(context.Background()); n != 3 {
		t.Fatalf("drained %d files, want 3", n)
	}

	entries, _ := store.GetEntries(context.Background(), "2024-01-15")
	if len(entries) != 2 || entries[0].DurationMinutes != 120 || entries[1].DurationMinutes != 30 {
		t.Errorf("unexpected entries: %+v", entries)
	}

	root := dir.Root()
	if !exists(filepath.Join(root, inbox.ProcessedDir, "monday.txt")) {
		t.Error("monday.txt not moved to processed")
	}
	if !exists(filepath.Join(root, inbox.ProcessedDir, "notes.md")) {
		t.Error("notes.md not moved to processed")
	}
	if !exists(filepath.Join(root, inbox.FailedDir, "broken.txt")) {
		t.Error("broken.txt not moved to failed")
	}
	if rec.count("ok") != 1 || rec.count("empty") != 1 || rec.count("error") != 1 {
		t.Errorf("recorder = %+v", rec.results)
	}

	pending, _ := dir.Pending()
	if len(pending) != 0 {
		t.Errorf("inbox not empty: %+v", pending)
	}
}

func TestDrainProcessorFailure(t *testing.T) {
	dir, _, _ := setup(t)
	_ = dir.Write("m.txt", []byte("ABC-1 1h"))

	w := inbox.NewWatcher(dir, failingProcessor{}, inbox.WithLogger(quietLogger()))
	w.Drain(context.Background())

	if !exists(filepath.Join(dir.Root(), inbox.FailedDir, "m.txt")) {
		t.Error("file should be moved to failed")
	}
}

func TestWatcherPicksUpNewFiles(t *testing.T) {
	dir, store, svc := setup(t)

	_ = dir.Write("early.txt", []byte("---\ndate: 2024-01-15\n---\nABC-1 1h"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := inbox.NewWatcher(dir, svc, inbox.WithLogger(quietLogger()), inbox.WithDebounce(20*time.Millisecond))
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		entries, _ := store.GetEntries(ctx, "2024-01-15")
		return len(entries) == 1
	}, "file present at startup not drained")

	_ = dir.Write("late.txt", []byte("---\ndate: 2024-01-15\n---\nXYZ-9 45 minutes"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		entries, _ := store.GetEntries(ctx, "2024-01-15")
		return len(entries) == 2
	}, "new file not ingested by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		return exists(filepath.Join(dir.Root(), inbox.ProcessedDir, "late.txt"))
	}, "late.txt not archived")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
