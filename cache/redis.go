package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultKeyPrefix namespaces keys in shared stores.
const DefaultKeyPrefix = "transapi:"

// RedisStore is a Redis-backed store. Expiry is delegated to Redis key TTLs.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	logger    zerolog.Logger
}

// RedisConfig holds configuration for the Redis store.
type RedisConfig struct {
	URL       string // Redis connection URL (e.g., "redis://localhost:6379/0")
	KeyPrefix string // Prefix for all keys (default: "transapi:")
}

// NewRedisStore connects to Redis and pings it before returning.
func NewRedisStore(ctx context.Context, cfg RedisConfig, logger zerolog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info().Str("redis_address", opts.Addr).Msg("Successfully connected to Redis.")
	return NewRedisStoreFromClient(client, cfg.KeyPrefix, logger), nil
}

// NewRedisStoreFromClient creates a RedisStore from an existing Redis client.
func NewRedisStoreFromClient(client *redis.Client, keyPrefix string, logger zerolog.Logger) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}

	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    logger.With().Str("component", "RedisStore").Logger(),
	}
}

// Get retrieves a value from Redis. Errors other than a missing key are
// logged and reported as a miss.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Unexpected Redis error during get.")
		return nil, false
	}
	return val, true
}

// Set stores a value in Redis with the given TTL.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

// Entries scans the prefixed keyspace and returns every live entry.
func (s *RedisStore) Entries(ctx context.Context) ([]Entry, error) {
	var out []Entry
	iter := s.client.Scan(ctx, 0, s.keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		fullKey := iter.Val()
		val, err := s.client.Get(ctx, fullKey).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", fullKey, err)
		}
		ttl, err := s.client.PTTL(ctx, fullKey).Result()
		if err != nil {
			return nil, fmt.Errorf("reading ttl of %s: %w", fullKey, err)
		}

		entry := Entry{Key: strings.TrimPrefix(fullKey, s.keyPrefix), Value: val}
		if ttl > 0 {
			entry.ExpiresAt = time.Now().Add(ttl)
		}
		out = append(out, entry)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning keys: %w", err)
	}
	return out, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping tests the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Verify RedisStore implements ExportableStore
var _ ExportableStore = (*RedisStore)(nil)
