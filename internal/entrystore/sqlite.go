package entrystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/ticktock/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS entries (
	day              TEXT    NOT NULL,
	id               TEXT    NOT NULL,
	position         INTEGER NOT NULL,
	task_id          TEXT    NOT NULL,
	description      TEXT    NOT NULL DEFAULT '',
	duration_minutes INTEGER NOT NULL DEFAULT 0,
	status           TEXT    NOT NULL DEFAULT 'draft',
	original_message TEXT    NOT NULL DEFAULT '',
	created_at       TEXT    NOT NULL,
	logged_at        TEXT,
	PRIMARY KEY (day, id)
);

CREATE INDEX IF NOT EXISTS idx_entries_id ON entries(id);
`

const entryColumns = `id, task_id, description, duration_minutes, status, original_message, created_at, logged_at`

// SQLite is a Store backed by a SQLite database file.
type SQLite struct {
	conn *sql.DB
	opts options

	// wmu keeps a single writer per process; SQLite serializes across processes.
	wmu sync.Mutex
}

var _ Store = (*SQLite)(nil)

const dsnParams = "_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"

// withParams appends the store's connection parameters to dsn, which may
// already carry a query string.
func withParams(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + dsnParams
	}
	return dsn + "?" + dsnParams
}

// OpenSQLite opens (or creates) the database at dsn and applies the schema.
// dsn is a file path or a file: URI with its own query parameters.
func OpenSQLite(dsn string, opts ...Option) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", withParams(dsn))
	if err != nil {
		return nil, fmt.Errorf("entrystore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("entrystore: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("entrystore: apply schema: %w", err)
	}
	return &SQLite{conn: conn, opts: newOptions(opts)}, nil
}

type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (models.TimeEntry, error) {
	var (
		e         models.TimeEntry
		status    string
		createdAt string
		loggedAt  sql.NullString
	)
	if err := row.Scan(&e.ID, &e.TaskID, &e.Description, &e.DurationMinutes, &status, &e.OriginalMessage, &createdAt, &loggedAt); err != nil {
		return e, err
	}
	e.Status = models.Status(status)
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return e, fmt.Errorf("entrystore: created_at of %s: %w", e.ID, err)
	}
	e.CreatedAt = t
	if loggedAt.Valid {
		lt, err := time.Parse(time.RFC3339Nano, loggedAt.String)
		if err != nil {
			return e, fmt.Errorf("entrystore: logged_at of %s: %w", e.ID, err)
		}
		e.LoggedAt = &lt
	}
	return e, nil
}

func queryDay(ctx context.Context, q queryer, date string) ([]models.TimeEntry, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE day = ? ORDER BY position`, date)
	if err != nil {
		return nil, fmt.Errorf("entrystore: query day: %w", err)
	}
	defer rows.Close()

	out := []models.TimeEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

// Update implements Store. The read, fn and rewrite happen in one transaction.
func (s *SQLite) Update(ctx context.Context, date string, fn func([]models.TimeEntry) []models.TimeEntry) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("entrystore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	current, err := queryDay(ctx, tx, date)
	if err != nil {
		return err
	}
	next := fn(current)

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE day = ?`, date); err != nil {
		return fmt.Errorf("entrystore: clear day: %w", err)
	}
	if len(next) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO entries (day, id, position, task_id, description, duration_minutes, status, original_message, created_at, logged_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(day, id) DO UPDATE SET
				task_id          = excluded.task_id,
				description      = excluded.description,
				duration_minutes = excluded.duration_minutes,
				status           = excluded.status,
				original_message = excluded.original_message,
				created_at       = excluded.created_at,
				logged_at        = excluded.logged_at
		`)
		if err != nil {
			return fmt.Errorf("entrystore: prepare insert: %w", err)
		}
		defer stmt.Close()
		for i, e := range next {
			if _, err := stmt.ExecContext(ctx, date, e.ID, i, e.TaskID, e.Description, e.DurationMinutes,
				string(e.Status), e.OriginalMessage, formatTime(e.CreatedAt), nullTime(e.LoggedAt)); err != nil {
				return fmt.Errorf("entrystore: insert entry: %w", err)
			}
		}
	}

	return tx.Commit()
}

// UpsertEntries implements Store.
func (s *SQLite) UpsertEntries(ctx context.Context, date string, entries []models.TimeEntry) error {
	return s.Update(ctx, date, func(existing []models.TimeEntry) []models.TimeEntry {
		return merge(existing, entries)
	})
}

// ReplaceEntries implements Store.
func (s *SQLite) ReplaceEntries(ctx context.Context, date string, entries []models.TimeEntry) error {
	return s.Update(ctx, date, func([]models.TimeEntry) []models.TimeEntry {
		return entries
	})
}

// GetEntries implements Store.
func (s *SQLite) GetEntries(ctx context.Context, date string) ([]models.TimeEntry, error) {
	return queryDay(ctx, s.conn, date)
}

// Locate implements Store.
func (s *SQLite) Locate(ctx context.Context, entryID string) (string, models.TimeEntry, bool, error) {
	return locate(ctx, s.conn, entryID)
}

// locate finds the first entry with entryID, dates ascending.
func locate(ctx context.Context, q rowQueryer, entryID string) (string, models.TimeEntry, bool, error) {
	row := q.QueryRowContext(ctx, `SELECT day, `+entryColumns+` FROM entries WHERE id = ? ORDER BY day LIMIT 1`, entryID)
	var day string
	e, err := scanEntry(prefixScanner{row: row, first: &day})
	if errors.Is(err, sql.ErrNoRows) {
		return "", models.TimeEntry{}, false, nil
	}
	if err != nil {
		return "", models.TimeEntry{}, false, fmt.Errorf("entrystore: locate: %w", err)
	}
	return day, e, true, nil
}

// prefixScanner scans one leading column before the entry columns.
type prefixScanner struct {
	row   scanner
	first any
}

func (p prefixScanner) Scan(dest ...any) error {
	return p.row.Scan(append([]any{p.first}, dest...)...)
}

// MarkLogged implements Store. Lookup and status change share one transaction.
func (s *SQLite) MarkLogged(ctx context.Context, entryID string, status models.Status) (bool, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("entrystore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	day, e, ok, err := locate(ctx, tx, entryID)
	if err != nil || !ok {
		return false, err
	}
	e = setStatus(e, status, s.opts.now())
	if _, err := tx.ExecContext(ctx, `UPDATE entries SET status = ?, logged_at = ? WHERE day = ? AND id = ?`,
		string(e.Status), nullTime(e.LoggedAt), day, entryID); err != nil {
		return false, fmt.Errorf("entrystore: mark logged: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("entrystore: commit: %w", err)
	}
	return true, nil
}

// DayStatus implements Store.
func (s *SQLite) DayStatus(ctx context.Context, date string) (models.DayStatus, error) {
	entries, err := s.GetEntries(ctx, date)
	if err != nil {
		return models.DayStatus{}, err
	}
	return dayStatus(entries, date, s.opts.policy), nil
}

// Reset implements Store.
func (s *SQLite) Reset(ctx context.Context) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("entrystore: reset: %w", err)
	}
	return nil
}

// Ping implements Store.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}
