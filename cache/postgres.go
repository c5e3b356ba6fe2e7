package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// pgPool is satisfied by *pgxpool.Pool.
type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore keeps entries in a transients table. Rows past expires_at are
// ignored on read and removed by Purge.
type PostgresStore struct {
	pool      pgPool
	closer    func()
	table     string
	keyPrefix string
	logger    zerolog.Logger
}

// PostgresConfig holds configuration for the Postgres store.
type PostgresConfig struct {
	DSN       string // Connection string
	Table     string // Table name (default: "transapi_transients")
	KeyPrefix string // Prefix for all keys (default: none)
}

// NewPostgresStore connects, pings and ensures the table exists.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig, logger zerolog.Logger) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := newPostgresStore(pool, cfg.Table, cfg.KeyPrefix, logger)
	s.closer = pool.Close
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func newPostgresStore(pool pgPool, table, keyPrefix string, logger zerolog.Logger) *PostgresStore {
	if table == "" {
		table = "transapi_transients"
	}
	return &PostgresStore{
		pool:      pool,
		table:     pgx.Identifier{table}.Sanitize(),
		keyPrefix: keyPrefix,
		logger:    logger.With().Str("component", "PostgresStore").Logger(),
	}
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key TEXT PRIMARY KEY,
		value BYTEA NOT NULL,
		expires_at TIMESTAMPTZ
	)`, s.table)
	if _, err := s.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Get returns the value if a row exists and has not expired.
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool) {
	var value []byte
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT value FROM %s WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())`, s.table),
		s.keyPrefix+key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Postgres read failed.")
		return nil, false
	}
	return value, true
}

// Set upserts the row with expires_at = now + ttl.
func (s *PostgresStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var at *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		at = &t
	}
	_, err := s.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (key, value, expires_at) VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`, s.table),
		s.keyPrefix+key, value, at,
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Entries returns every unexpired row.
func (s *PostgresStore) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT key, value, expires_at FROM %s
			WHERE starts_with(key, $1) AND (expires_at IS NULL OR expires_at > now()) ORDER BY key`, s.table),
		s.keyPrefix,
	)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			at *time.Time
		)
		if err := rows.Scan(&e.Key, &e.Value, &at); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Key = strings.TrimPrefix(e.Key, s.keyPrefix)
		if at != nil {
			e.ExpiresAt = *at
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Purge deletes expired rows under the key prefix and returns how many were removed.
func (s *PostgresStore) Purge(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE starts_with(key, $1) AND expires_at IS NOT NULL AND expires_at <= now()`, s.table),
		s.keyPrefix,
	)
	if err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.closer != nil {
		s.closer()
	}
	return nil
}

// Verify PostgresStore implements ExportableStore and Purger
var (
	_ ExportableStore = (*PostgresStore)(nil)
	_ Purger          = (*PostgresStore)(nil)
)
