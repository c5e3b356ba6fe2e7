// Package cache provides the stores lookup results are kept in.
package cache

import (
	"context"
	"time"
)

// Store is the interface for lookup result caching.
type Store interface {
	// Get retrieves a cached value. Returns nil and false if not found or expired.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value that expires after ttl. A ttl <= 0 never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Entry is a stored value with its absolute expiry. A zero ExpiresAt never expires.
type Entry struct {
	Key       string
	Value     []byte
	ExpiresAt time.Time
}

// ExportableStore is implemented by stores that can enumerate their live entries.
type ExportableStore interface {
	Store
	Entries(ctx context.Context) ([]Entry, error)
}

// expiresAt converts a ttl into an absolute expiry relative to now.
func expiresAt(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

func expired(now, at time.Time) bool {
	return !at.IsZero() && !now.Before(at)
}
