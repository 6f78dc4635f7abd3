package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/fadedpez/quantumtheater/internal/logging"
	"github.com/fadedpez/quantumtheater/pkg/storage"
)

// Entry is one key in the kv_entries table
type Entry struct {
	Key       string `gorm:"primaryKey;size:512"`
	Value     string `gorm:"type:jsonb;not null"`
	Version   int64  `gorm:"not null;default:1"`
	UpdatedAt time.Time
}

// TableName pins the table name
func (Entry) TableName() string {
	return "kv_entries"
}

// Store keeps keys in Postgres with optimistic versioning. Several
// service replicas may share one database; none of them holds a lock
// while an update function runs.
type Store struct {
	db       *gorm.DB
	attempts int
	backoff  time.Duration
	logger   *logging.Logger
}

// New connects to the database named by options.Path (a DSN) and migrates the table
func New(options *storage.Options, log *logging.Logger) (*Store, error) {
	options = options.Normalize()

	db, err := gorm.Open(postgres.Open(options.Path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return NewWithDB(db, options, log)
}

// NewWithDB wraps an existing connection
func NewWithDB(db *gorm.DB, options *storage.Options, log *logging.Logger) (*Store, error) {
	options = options.Normalize()
	if log == nil {
		log = logging.Default
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate kv_entries: %w", err)
	}

	return &Store{
		db:       db,
		attempts: options.MaxUpdateAttempts,
		backoff:  options.RetryBackoff,
		logger:   log,
	}, nil
}

// Get returns the value at key
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := s.read(ctx, key)
	if err != nil {
		return nil, err
	}
	return []byte(entry.Value), nil
}

func (s *Store) read(ctx context.Context, key string) (*Entry, error) {
	var entry Entry
	err := s.db.WithContext(ctx).Where("key = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", key, err)
	}
	return &entry, nil
}

// Update applies fn and writes the result only if nobody else wrote in between
func (s *Store) Update(ctx context.Context, key string, fn storage.UpdateFunc) error {
	for attempt := 1; attempt <= s.attempts; attempt++ {
		entry, err := s.read(ctx, key)
		exists := err == nil
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		var current []byte
		if exists {
			current = []byte(entry.Value)
		}
		next, err := fn(current, exists)
		if err != nil {
			return err
		}

		var written int64
		if exists {
			res := s.db.WithContext(ctx).Model(&Entry{}).
				Where("key = ? AND version = ?", key, entry.Version).
				Updates(map[string]interface{}{
					"value":      string(next),
					"version":    gorm.Expr("version + 1"),
					"updated_at": time.Now().UTC(),
				})
			if res.Error != nil {
				return fmt.Errorf("error writing %s: %w", key, res.Error)
			}
			written = res.RowsAffected
		} else {
			res := s.db.WithContext(ctx).
				Clauses(clause.OnConflict{DoNothing: true}).
				Create(&Entry{Key: key, Value: string(next), Version: 1, UpdatedAt: time.Now().UTC()})
			if res.Error != nil {
				return fmt.Errorf("error inserting %s: %w", key, res.Error)
			}
			written = res.RowsAffected
		}
		if written == 1 {
			return nil
		}

		s.logger.Debug("[STORE] version conflict on %s (attempt %d/%d)", key, attempt, s.attempts)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.backoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("%w: %s after %d attempts", storage.ErrConflict, key, s.attempts)
}

// Delete removes key
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("error deleting %s: %w", key, err)
	}
	return nil
}

// Keys lists keys with prefix
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	err := s.db.WithContext(ctx).Model(&Entry{}).
		Where("left(key, ?) = ?", len([]rune(prefix)), prefix).
		Order("key").
		Pluck("key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("error listing keys: %w", err)
	}
	return keys, nil
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
