package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Load decodes the JSON value at key, or returns def when the key is missing
func Load[T any](ctx context.Context, s Store, key string, def T) (T, error) {
	data, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("load %s: %w", key, err)
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return def, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}

// Mutate applies fn to the decoded value at key (def when missing) and
// stores the result through the store's compare-and-set update. fn must be
// pure: it may be called again with a fresher value after a conflict.
// When fn returns an error nothing is written and the error is returned,
// except ErrUnchanged which yields the current value and a nil error.
func Mutate[T any](ctx context.Context, s Store, key string, def T, fn func(T) (T, error)) (T, error) {
	var result T
	err := s.Update(ctx, key, func(current []byte, exists bool) ([]byte, error) {
		var cur T
		if exists {
			if err := json.Unmarshal(current, &cur); err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
		} else {
			fresh, err := clone(def)
			if err != nil {
				return nil, err
			}
			cur = fresh
		}

		next, err := fn(cur)
		if errors.Is(err, ErrUnchanged) {
			result = cur
			return nil, ErrUnchanged
		}
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		result = next
		return data, nil
	})
	if errors.Is(err, ErrUnchanged) {
		return result, nil
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// clone deep-copies a default so retries never see a value mutated by a prior attempt
func clone[T any](v T) (T, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return v, fmt.Errorf("encode default: %w", err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return v, fmt.Errorf("decode default: %w", err)
	}
	return out, nil
}

// Save encodes v as JSON and overwrites key
func Save[T any](ctx context.Context, s Store, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return Put(ctx, s, key, data)
}
