package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fadedpez/quantumtheater/pkg/storage"
)

// Storage implements file-based key-value storage. The whole map is kept
// in memory and rewritten to disk after every change.
type Storage struct {
	path    string
	mu      sync.RWMutex
	data    map[string]json.RawMessage
	options *storage.Options
}

// New creates a new file storage instance
func New(options *storage.Options) (*Storage, error) {
	options = options.Normalize()

	s := &Storage{
		path:    options.Path,
		data:    make(map[string]json.RawMessage),
		options: options,
	}

	// Load existing keys from file
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load store: %w", err)
	}

	return s, nil
}

// Get returns the value at key
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}

	return append([]byte(nil), value...), nil
}

// Update applies fn under the store lock, then persists
func (s *Storage) Update(ctx context.Context, key string, fn storage.UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.data[key]
	next, err := fn(append([]byte(nil), current...), exists)
	if err != nil {
		return err
	}
	if !json.Valid(next) {
		return fmt.Errorf("value for %s is not valid JSON", key)
	}

	previous := current
	s.data[key] = append(json.RawMessage(nil), next...)

	if err := s.save(); err != nil {
		// Keep memory and disk in step
		if exists {
			s.data[key] = previous
		} else {
			delete(s.data, key)
		}
		return err
	}
	return nil
}

// Delete removes key
func (s *Storage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.save()
}

// Keys lists keys with prefix
func (s *Storage) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0)
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	return keys, nil
}

// Close is a no-op; every change is already on disk
func (s *Storage) Close() error {
	return nil
}

// Helper functions

func (s *Storage) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	return json.Unmarshal(data, &s.data)
}

func (s *Storage) save() error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Marshal and save
	data, err := json.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}

	return nil
}
