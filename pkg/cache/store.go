package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidEntry indicates the cache entry is invalid or corrupted
var ErrInvalidEntry = errors.New("invalid cache entry")

// Store is the cache backend shared by all tenants.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Atomicity: Add and Incr are individually atomic; no multi-key transactions.
//   - Errors: backend failures are returned as *StoreError.
type Store interface {
	// Get returns (value, true, nil) on hit and (nil, false, nil) on miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Add stores value only if key is absent. Returns true if this call wrote it.
	// A ttl <= 0 stores nothing and returns false.
	Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// GetInt reads an integer counter. Returns (0, false, nil) if absent.
	GetInt(ctx context.Context, key string) (int64, bool, error)

	// Incr atomically increments the counter at key, treating an absent key as base,
	// and returns the new value. A ttl > 0 (re)sets the counter's expiry.
	Incr(ctx context.Context, key string, base int64, ttl time.Duration) (int64, error)
}

// Pinger is implemented by stores with a remote backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreError wraps a backend failure of the cache store itself.
type StoreError struct {
	Op  string
	Key string
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("cache %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("cache %s %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err is or wraps a *StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
