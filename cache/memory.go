package cache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memoryEntry holds a cached value with its expiry.
type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is a thread-safe in-memory store with per-entry TTL.
type MemoryStore struct {
	entries map[string]memoryEntry
	mu      sync.RWMutex
	now     func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now, letting tests move time forward.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get retrieves a value from the store.
// Returns the value and true if found and not expired, nil and false otherwise.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if expired(s.now(), entry.expiresAt) {
		s.mu.Lock()
		// Re-check: a concurrent Set may have refreshed the entry.
		if current, ok := s.entries[key]; ok && expired(s.now(), current.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false
	}

	return append([]byte(nil), entry.value...), true
}

// Set stores a copy of value, overwriting any previous entry for key.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: expiresAt(s.now(), ttl),
	}
	return nil
}

// Len returns the number of entries in the store (including expired ones).
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear removes all entries from the store.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]memoryEntry)
}

// Entries returns all non-expired entries sorted by key.
func (s *MemoryStore) Entries(_ context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	out := make([]Entry, 0, len(s.entries))
	for key, entry := range s.entries {
		if expired(now, entry.expiresAt) {
			continue
		}
		out = append(out, Entry{
			Key:       key,
			Value:     append([]byte(nil), entry.value...),
			ExpiresAt: entry.expiresAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Verify MemoryStore implements ExportableStore
var _ ExportableStore = (*MemoryStore)(nil)
