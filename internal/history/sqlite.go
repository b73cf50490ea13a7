package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	mu   sync.RWMutex
	keep int
}

// NewSQLiteStore opens or creates the history database. Use ":memory:" for
// an in-memory database. keep bounds the number of retained entries; zero
// or less keeps everything.
func NewSQLiteStore(dbPath string, keep int) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDatabaseOpenFailed, err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseOpenFailed, err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, keep: keep}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("%w: %w", ErrInitializeSchemaFailed, err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL UNIQUE,
		finished_at INTEGER NOT NULL,
		state TEXT NOT NULL,
		force_full INTEGER NOT NULL,
		force_full_reason TEXT,
		total_pages INTEGER NOT NULL,
		pages_rendered INTEGER NOT NULL,
		pages_skipped INTEGER NOT NULL,
		cache_hits INTEGER NOT NULL,
		cache_misses INTEGER NOT NULL,
		collisions INTEGER NOT NULL,
		duration_ms REAL NOT NULL,
		failed TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_builds_finished_at ON builds(finished_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record inserts an entry and prunes entries beyond the retention limit.
func (s *SQLiteStore) Record(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var failedJSON []byte
	if len(e.Failed) > 0 {
		var err error
		failedJSON, err = json.Marshal(e.Failed)
		if err != nil {
			return fmt.Errorf("marshal failed pages: %w", err)
		}
	}
	if e.FinishedAt.IsZero() {
		e.FinishedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (build_id, finished_at, state, force_full, force_full_reason, total_pages,
			pages_rendered, pages_skipped, cache_hits, cache_misses, collisions, duration_ms, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.BuildID, e.FinishedAt.UnixMilli(), e.State, e.ForceFull, e.ForceFullReason, e.TotalPages,
		e.PagesRendered, e.PagesSkipped, e.CacheHits, e.CacheMisses, e.Collisions, e.DurationMS, failedJSON,
	)
	if err != nil {
		return fmt.Errorf("insert build: %w", err)
	}

	if s.keep > 0 {
		_, err = s.db.ExecContext(ctx,
			"DELETE FROM builds WHERE id NOT IN (SELECT id FROM builds ORDER BY id DESC LIMIT ?)",
			s.keep,
		)
		if err != nil {
			return fmt.Errorf("prune builds: %w", err)
		}
	}
	return nil
}

const selectColumns = `SELECT build_id, finished_at, state, force_full, force_full_reason, total_pages,
	pages_rendered, pages_skipped, cache_hits, cache_misses, collisions, duration_ms, failed FROM builds`

// Recent returns up to n entries, newest first. n <= 0 returns all.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 {
		n = -1
	}
	rows, err := s.db.QueryContext(ctx, selectColumns+" ORDER BY id DESC LIMIT ?", n)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return entries, nil
}

// Get returns the entry for buildID, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, buildID string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE build_id = ?", buildID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, buildID)
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e          Entry
		finishedMS int64
		reason     sql.NullString
		failedJSON []byte
	)
	err := row.Scan(&e.BuildID, &finishedMS, &e.State, &e.ForceFull, &reason, &e.TotalPages,
		&e.PagesRendered, &e.PagesSkipped, &e.CacheHits, &e.CacheMisses, &e.Collisions, &e.DurationMS, &failedJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan build: %w", err)
	}
	e.FinishedAt = time.UnixMilli(finishedMS)
	e.ForceFullReason = reason.String
	if len(failedJSON) > 0 {
		if err := json.Unmarshal(failedJSON, &e.Failed); err != nil {
			return Entry{}, fmt.Errorf("unmarshal failed pages: %w", err)
		}
	}
	return e, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
