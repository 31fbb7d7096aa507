package cache

import (
	"encoding/json"
	"fmt"
	"time"
)

// Entry is the envelope stored under a versioned key.
type Entry struct {
	// Data is the upstream document as received
	Data json.RawMessage `json:"data"`

	// Version is the tenant version the entry was written under
	Version int64 `json:"version"`

	// CachedAt is when we cached this document
	CachedAt time.Time `json:"cached_at"`

	// Expires is when the backend drops the entry
	Expires time.Time `json:"expires"`
}

// NewEntry creates an entry for data that lives for ttl from now.
func NewEntry(data []byte, version int64, ttl time.Duration) *Entry {
	now := time.Now()
	return &Entry{
		Data:     data,
		Version:  version,
		CachedAt: now,
		Expires:  now.Add(ttl),
	}
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Age returns how long ago the entry was cached.
func (e *Entry) Age() time.Duration {
	return time.Since(e.CachedAt)
}

// Marshal encodes the entry for storage.
func (e *Entry) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal cache entry: %w", err)
	}
	return data, nil
}

// UnmarshalEntry decodes a stored entry.
// Returns ErrInvalidEntry for corrupted data or an entry without a document.
func UnmarshalEntry(data []byte) (*Entry, error) {
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if len(entry.Data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidEntry)
	}
	return &entry, nil
}
