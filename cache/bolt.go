package cache

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"
)

// BoltStore is a persistent file-backed store. Each value is stored behind an
// 8-byte big-endian Unix expiry in nanoseconds (0 = never), so entries
// survive restarts and expire on read.
type BoltStore struct {
	db        *bolt.DB
	bucket    []byte
	keyPrefix string
	now       func() time.Time
	logger    zerolog.Logger
}

// BoltConfig holds configuration for the Bolt store.
type BoltConfig struct {
	Path      string // Database file path
	Bucket    string // Bucket name (default: "transapi")
	KeyPrefix string // Prefix for all keys (default: none)
}

// OpenBoltStore opens or creates the database at cfg.Path.
func OpenBoltStore(cfg BoltConfig, logger zerolog.Logger) (*BoltStore, error) {
	db, err := bolt.Open(cfg.Path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt database: %w", err)
	}

	bucket := []byte("transapi")
	if cfg.Bucket != "" {
		bucket = []byte(cfg.Bucket)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltStore{
		db:        db,
		bucket:    bucket,
		keyPrefix: cfg.KeyPrefix,
		now:       time.Now,
		logger:    logger.With().Str("component", "BoltStore").Logger(),
	}, nil
}

// Get returns the value if present and not expired. Expired entries are left
// for the next Set or Purge to overwrite.
func (s *BoltStore) Get(_ context.Context, key string) ([]byte, bool) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(s.keyPrefix + key))
		if len(v) < 8 {
			return nil
		}
		if expired(s.now(), decodeExpiry(v)) {
			return nil
		}
		out = append([]byte(nil), v[8:]...)
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Bolt read failed.")
		return nil, false
	}
	return out, out != nil
}

// Set stores value with an absolute expiry of now+ttl.
func (s *BoltStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	return s.put(key, value, expiresAt(s.now(), ttl))
}

func (s *BoltStore) put(key string, value []byte, at time.Time) error {
	buf := make([]byte, 8+len(value))
	var nanos int64
	if !at.IsZero() {
		nanos = at.UnixNano()
	}
	binary.BigEndian.PutUint64(buf[:8], uint64(nanos))
	copy(buf[8:], value)

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(s.keyPrefix+key), buf)
	})
}

// Entries returns all non-expired entries in key order.
func (s *BoltStore) Entries(_ context.Context) ([]Entry, error) {
	var out []Entry
	now := s.now()
	err := s.db.View(func(tx *bolt.Tx) error {
		return s.forEachOwned(tx.Bucket(s.bucket), func(k, v []byte) error {
			if len(v) < 8 {
				return nil
			}
			at := decodeExpiry(v)
			if expired(now, at) {
				return nil
			}
			out = append(out, Entry{
				Key:       strings.TrimPrefix(string(k), s.keyPrefix),
				Value:     append([]byte(nil), v[8:]...),
				ExpiresAt: at,
			})
			return nil
		})
	})
	return out, err
}

// Purge deletes expired entries and returns how many were removed.
func (s *BoltStore) Purge(_ context.Context) (int64, error) {
	var removed int64
	now := s.now()
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		var stale [][]byte
		if err := s.forEachOwned(b, func(k, v []byte) error {
			if len(v) < 8 || expired(now, decodeExpiry(v)) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

// forEachOwned visits the keys under this store's prefix in key order.
func (s *BoltStore) forEachOwned(b *bolt.Bucket, fn func(k, v []byte) error) error {
	prefix := []byte(s.keyPrefix)
	c := b.Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func decodeExpiry(v []byte) time.Time {
	nanos := int64(binary.BigEndian.Uint64(v[:8]))
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

// Verify BoltStore implements ExportableStore and Purger
var (
	_ ExportableStore = (*BoltStore)(nil)
	_ Purger          = (*BoltStore)(nil)
)
