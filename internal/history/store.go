// Package history records every dispatched intent in a local SQLite
// database so past operations can be listed from the CLI and the HTTP API.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/dbpilot/internal/dispatch"
	"github.com/leapstack-labs/dbpilot/pkg/core"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// DefaultLimit is the number of entries List returns when no limit is given.
const DefaultLimit = 50

// timeLayout is fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one recorded dispatch.
type Entry struct {
	ID          string         `json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	Backend     string         `json:"backend"`
	Operation   core.Operation `json:"operation"`
	Target      string         `json:"target"`
	Parameters  core.Params    `json:"parameters"`
	Explanation string         `json:"explanation,omitempty"`
	OK          bool           `json:"ok"`
	Summary     string         `json:"summary"`
	Duration    time.Duration  `json:"duration_ns"`
}

// ListOptions filters List.
type ListOptions struct {
	Limit     int
	Operation core.Operation
	Failed    bool // only unsuccessful entries
}

// Store is a SQLite-backed history log. It implements dispatch.Recorder.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ dispatch.Recorder = (*Store)(nil)

var errNotOpened = errors.New("history database not opened")

// Open opens (creating if needed) the history database at path and applies
// pending migrations. Use ":memory:" for a throwaway log.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if path == "" {
		path = ":memory:"
	}

	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create history directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if path == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}
	if err := Migrate(context.Background(), db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Debug("history database opened", slog.String("path", path))
	return &Store{db: db, path: path, logger: logger}, nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Record implements dispatch.Recorder.
func (s *Store) Record(ctx context.Context, rec dispatch.Record) error {
	if s.db == nil {
		return errNotOpened
	}

	params := rec.Intent.Parameters
	if params == nil {
		params = core.Params{}
	}
	data, err := json.Marshal(params)
	if err != nil {
		// keep the entry even when a parameter cannot be encoded
		data = []byte("{}")
	}

	var backend string
	if info, ok := rec.Intent.Operation.Info(); ok {
		backend = info.Backend.String()
	}

	started := rec.Started
	if started.IsZero() {
		started = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO history (id, created_at, backend, operation, target, parameters, explanation, ok, summary, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(),
		started.UTC().Format(timeLayout),
		backend,
		string(rec.Intent.Operation),
		rec.Intent.Target,
		string(data),
		rec.Intent.Explanation,
		rec.Result.OK,
		rec.Result.Summary(),
		rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record history entry: %w", err)
	}
	return nil
}

// List returns entries newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `
		SELECT id, created_at, backend, operation, target, parameters, explanation, ok, summary, duration_ms
		FROM history
		WHERE (? = '' OR operation = ?) AND (? = 0 OR ok = 0)
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`
	failed := 0
	if opts.Failed {
		failed = 1
	}
	op := string(opts.Operation)

	rows, err := s.db.QueryContext(ctx, query, op, op, failed, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []Entry{}
	for rows.Next() {
		var (
			e          Entry
			created    string
			operation  string
			params     string
			durationMS int64
		)
		if err := rows.Scan(&e.ID, &created, &e.Backend, &operation, &e.Target, &params,
			&e.Explanation, &e.OK, &e.Summary, &durationMS); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		e.Operation = core.Operation(operation)
		e.Duration = time.Duration(durationMS) * time.Millisecond
		if e.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			s.logger.Warn("unparseable history timestamp", slog.String("id", e.ID), slog.String("value", created))
		}
		e.Parameters = decodeParams(params)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return entries, nil
}

// decodeParams restores stored parameters with nested key order intact.
func decodeParams(data string) core.Params {
	params := core.Params{}
	v, err := core.DecodeJSON([]byte(data))
	if err != nil {
		return params
	}
	doc, _ := v.(core.Document)
	for _, f := range doc {
		params[f.Key] = f.Value
	}
	return params
}

// Count returns the number of recorded entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, errNotOpened
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM history").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return n, nil
}

// Clear deletes every entry and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, errNotOpened
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM history")
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	n, _ := res.RowsAffected()
	s.logger.Info("history cleared", slog.Int64("entries", n))
	return n, nil
}
