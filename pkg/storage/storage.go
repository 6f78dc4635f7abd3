package storage

import (
	"context"
	"errors"
	"time"
)

// Common storage errors
var (
	ErrNotFound  = errors.New("key not found")
	ErrConflict  = errors.New("concurrent update conflict")
	ErrUnchanged = errors.New("value unchanged")
	ErrClosed    = errors.New("store is closed")
)

// UpdateFunc computes the next value of a key from its current one.
// exists is false when the key has never been written. Returning an error
// aborts the update without writing; ErrUnchanged aborts it silently.
type UpdateFunc func(current []byte, exists bool) ([]byte, error)

// Store is a last-write-wins key-value store with a per-key
// compare-and-set update. Nothing is transactional across keys.
//
//go:generate mockgen -source=$GOFILE -destination=mock/store.go -package=mock
type Store interface {
	// Get returns the value for key or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Update applies fn to the current value of key and stores the result.
	// fn may run more than once when a backend retries after a conflict.
	Update(ctx context.Context, key string, fn UpdateFunc) error

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Keys lists keys with the given prefix in lexical order
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases any resources held by the store
	Close() error
}

// DefaultMaxUpdateAttempts bounds compare-and-set retries for SQL backends
const DefaultMaxUpdateAttempts = 8

// Options represents storage configuration options
type Options struct {
	Path              string        // File path or DSN, depending on backend
	MaxUpdateAttempts int           // CAS retries before ErrConflict
	RetryBackoff      time.Duration // Base delay between CAS retries
}

// NewOptions creates a new Options with default values
func NewOptions() *Options {
	return &Options{
		Path:              "data/theater.json",
		MaxUpdateAttempts: DefaultMaxUpdateAttempts,
		RetryBackoff:      5 * time.Millisecond,
	}
}

// Normalize fills zero fields with defaults
func (o *Options) Normalize() *Options {
	if o == nil {
		return NewOptions()
	}
	def := NewOptions()
	if o.Path == "" {
		o.Path = def.Path
	}
	if o.MaxUpdateAttempts <= 0 {
		o.MaxUpdateAttempts = def.MaxUpdateAttempts
	}
	if o.RetryBackoff < 0 {
		o.RetryBackoff = 0
	}
	return o
}

// Put unconditionally overwrites key
func Put(ctx context.Context, s Store, key string, value []byte) error {
	return s.Update(ctx, key, func([]byte, bool) ([]byte, error) {
		return value, nil
	})
}
