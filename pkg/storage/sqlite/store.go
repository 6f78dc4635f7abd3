package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fadedpez/quantumtheater/internal/logging"
	"github.com/fadedpez/quantumtheater/pkg/db/migrations"
	"github.com/fadedpez/quantumtheater/pkg/storage"
)

// Store keeps keys in a single SQLite table. Each row carries a version
// that an update must match, so writers in other processes cannot be
// overwritten silently. Writers in this process also share a mutex.
type Store struct {
	db       *sql.DB
	mu       sync.Mutex
	attempts int
	backoff  time.Duration
	logger   *logging.Logger
}

// New opens (or creates) the database at options.Path and applies migrations
func New(ctx context.Context, options *storage.Options, logger *logging.Logger) (*Store, error) {
	options = options.Normalize()
	if logger == nil {
		logger = logging.Default
	}

	dsn := "file::memory:?_busy_timeout=5000"
	if options.Path != ":memory:" {
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(options.Path), 0755); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
		dsn = "file:" + options.Path + "?_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and writes ordered
	db.SetMaxOpenConns(1)

	if _, err := migrations.NewMigrator(db, migrations.Embedded(), logger).MigrateUp(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error migrating database: %w", err)
	}

	return &Store{
		db:       db,
		attempts: options.MaxUpdateAttempts,
		backoff:  options.RetryBackoff,
		logger:   logger,
	}, nil
}

// Get returns the value at key
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	value, _, err := s.read(ctx, key)
	return value, err
}

func (s *Store) read(ctx context.Context, key string) ([]byte, int64, error) {
	var value string
	var version int64
	err := s.db.QueryRowContext(ctx, `SELECT value, version FROM kv_store WHERE key = ?`, key).Scan(&value, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, storage.ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("error reading %s: %w", key, err)
	}
	return []byte(value), version, nil
}

// Update reads the row, applies fn and writes back only if the version is unchanged
func (s *Store) Update(ctx context.Context, key string, fn storage.UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 1; attempt <= s.attempts; attempt++ {
		current, version, err := s.read(ctx, key)
		exists := err == nil
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		next, err := fn(current, exists)
		if err != nil {
			return err
		}

		ok, err := s.write(ctx, key, next, version, exists)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		s.logger.Debug("[STORE] version conflict on %s (attempt %d/%d)", key, attempt, s.attempts)
		if err := sleep(ctx, s.backoff*time.Duration(attempt)); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: %s after %d attempts", storage.ErrConflict, key, s.attempts)
}

func (s *Store) write(ctx context.Context, key string, value []byte, version int64, exists bool) (bool, error) {
	now := time.Now().UTC().Format("2006-01-02 15:04:05")

	var res sql.Result
	var err error
	if exists {
		res, err = s.db.ExecContext(ctx,
			`UPDATE kv_store SET value = ?, version = version + 1, updated_at = ? WHERE key = ? AND version = ?`,
			string(value), now, key, version)
	} else {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO kv_store (key, value, version, updated_at) VALUES (?, ?, 1, ?) ON CONFLICT(key) DO NOTHING`,
			key, string(value), now)
	}
	if err != nil {
		return false, fmt.Errorf("error writing %s: %w", key, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error checking write of %s: %w", key, err)
	}
	return n == 1, nil
}

// Delete removes key
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key); err != nil {
		return fmt.Errorf("error deleting %s: %w", key, err)
	}
	return nil
}

// Keys lists keys with prefix
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv_store WHERE substr(key, 1, ?) = ? ORDER BY key`, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("error listing keys: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
