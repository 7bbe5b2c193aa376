package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/ticktock/internal/models"
)

// Processor stores the entries parsed from a message.
type Processor interface {
	ParseMessage(ctx context.Context, message, date string) (models.ParseResult, error)
}

// Recorder counts processed files by result: "ok", "empty" or "error".
type Recorder interface {
	RecordInboxFile(result string)
}

// Watcher feeds inbox files to a Processor.
type Watcher struct {
	dir      *Dir
	proc     Processor
	logger   *slog.Logger
	recorder Recorder
	debounce time.Duration
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the watcher logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithRecorder reports processed files to r.
func WithRecorder(r Recorder) Option {
	return func(w *Watcher) { w.recorder = r }
}

// WithDebounce sets how long the watcher waits for writes to settle.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// NewWatcher creates a watcher for dir.
func NewWatcher(dir *Dir, proc Processor, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		proc:     proc,
		logger:   slog.Default(),
		debounce: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run drains files already present, then processes new files as they
// appear until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("inbox: new watcher: %w", err)
	}
	defer fw.Close()

	// Watch before draining so files dropped during the drain are not missed.
	if err := fw.Add(w.dir.Root()); err != nil {
		return fmt.Errorf("inbox: watch %s: %w", w.dir.Root(), err)
	}
	w.logger.Info("inbox: started", slog.String("path", w.dir.Root()))

	w.Drain(ctx)

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
			timerCh = timer.C
		} else {
			timer.Reset(w.debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.logger.Info("inbox: stopped")
			return nil

		case <-timerCh:
			w.Drain(ctx)

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if !eligible(filepath.Base(ev.Name)) {
				continue
			}
			schedule()

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("inbox: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// Drain processes every pending file and returns how many were handled.
func (w *Watcher) Drain(ctx context.Context) int {
	files, err := w.dir.Pending()
	if err != nil {
		w.logger.Warn("inbox: list failed", slog.String("error", err.Error()))
		return 0
	}
	n := 0
	for _, f := range files {
		if ctx.Err() != nil {
			break
		}
		w.process(ctx, f)
		n++
	}
	return n
}

func (w *Watcher) process(ctx context.Context, f File) {
	result, err := w.ingest(ctx, f)
	if err != nil {
		w.logger.Warn("inbox: file failed", slog.String("file", f.Name), slog.String("error", err.Error()))
		result = "error"
	}

	sub := ProcessedDir
	if result == "error" {
		sub = FailedDir
	}
	if _, archErr := w.dir.Archive(f.Name, sub); archErr != nil {
		w.logger.Error("inbox: archive failed", slog.String("file", f.Name), slog.String("error", archErr.Error()))
	}
	if w.recorder != nil {
		w.recorder.RecordInboxFile(result)
	}
}

func (w *Watcher) ingest(ctx context.Context, f File) (string, error) {
	data, err := w.dir.Read(f.Name)
	if err != nil {
		return "", err
	}
	msg, err := ParseMessage(data, f.ModTime)
	if err != nil {
		return "", err
	}
	res, err := w.proc.ParseMessage(ctx, msg.Body, msg.Date)
	if err != nil {
		return "", err
	}
	if len(res.Entries) == 0 {
		w.logger.Warn("inbox: no entries in file",
			slog.String("file", f.Name),
			slog.Any("suggestions", res.Suggestions))
		return "empty", nil
	}
	w.logger.Info("inbox: file ingested",
		slog.String("file", f.Name),
		slog.String("date", msg.Date),
		slog.Int("entries", len(res.Entries)),
		slog.Int("minutes", res.TotalDurationMinutes))
	return "ok", nil
}
