package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

const layerMemory = "memory"

// MemoryStore is an in-process Store. It is not shared between processes.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// lookupLocked returns the live entry for key, dropping it if expired.
// Caller must hold mu.
func (s *MemoryStore) lookupLocked(key string) (*memoryEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return nil, false
	}
	return e, true
}

// Get retrieves a value by key.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	e, ok := s.lookupLocked(key)
	s.mu.Unlock()

	if !ok {
		CacheMisses.WithLabelValues(layerMemory).Inc()
		return nil, false, nil
	}
	CacheHits.WithLabelValues(layerMemory).Inc()
	return e.value, true, nil
}

// Add stores value only if key is absent or expired.
func (s *MemoryStore) Add(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookupLocked(key); ok {
		CacheWrites.WithLabelValues(layerMemory, writeResult(false)).Inc()
		return false, nil
	}
	s.entries[key] = &memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: s.now().Add(ttl),
	}
	CacheWrites.WithLabelValues(layerMemory, writeResult(true)).Inc()
	return true, nil
}

// GetInt reads an integer counter.
func (s *MemoryStore) GetInt(_ context.Context, key string) (int64, bool, error) {
	s.mu.Lock()
	e, ok := s.lookupLocked(key)
	s.mu.Unlock()

	if !ok {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(string(e.value), 10, 64)
	if err != nil {
		CacheErrors.WithLabelValues("get_int").Inc()
		return 0, false, &StoreError{Op: "get_int", Key: key, Err: err}
	}
	return n, true, nil
}

// Incr increments the counter at key under the store lock.
func (s *MemoryStore) Incr(_ context.Context, key string, base int64, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := base
	e, ok := s.lookupLocked(key)
	if ok {
		n, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			CacheErrors.WithLabelValues("incr").Inc()
			return 0, &StoreError{Op: "incr", Key: key, Err: err}
		}
		current = n
	} else {
		e = &memoryEntry{}
		s.entries[key] = e
	}

	current++
	e.value = []byte(strconv.FormatInt(current, 10))
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	return current, nil
}

// Purge removes expired entries and returns how many were dropped.
func (s *MemoryStore) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored keys, including expired ones not yet purged.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RunJanitor purges expired entries every interval until ctx is done.
func (s *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Purge()
		}
	}
}

var _ Store = (*MemoryStore)(nil)
