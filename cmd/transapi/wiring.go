package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/ZaguanLabs/transapi"
	"github.com/ZaguanLabs/transapi/cache"
	"github.com/ZaguanLabs/transapi/internal/config"
	"github.com/ZaguanLabs/transapi/remote"
)

// loadConfig reads the configuration named by --config and applies flag overrides.
// full selects Validate over ValidateCache.
func loadConfig(c *cli.Context, full bool) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}

	validate := config.ValidateCache
	if full {
		validate = config.Validate
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := w
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// openStore opens the configured backend. The returned close func is never nil.
func openStore(ctx context.Context, cfg config.CacheConfig, logger zerolog.Logger) (cache.ExportableStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendMemory, "":
		return cache.NewMemoryStore(), noop, nil
	case config.BackendRedis:
		s, err := cache.NewRedisStore(ctx, cache.RedisConfig{URL: cfg.RedisURL, KeyPrefix: cfg.KeyPrefix}, logger)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case config.BackendBolt:
		s, err := cache.OpenBoltStore(cache.BoltConfig{Path: cfg.BoltPath, KeyPrefix: cfg.KeyPrefix}, logger)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case config.BackendPostgres:
		s, err := cache.NewPostgresStore(ctx, cache.PostgresConfig{DSN: cfg.PostgresDSN, Table: cfg.PostgresTable, KeyPrefix: cfg.KeyPrefix}, logger)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown cache backend %q", cfg.Backend)
}

func newFetcher(cfg config.RemoteConfig, logger zerolog.Logger) transapi.Fetcher {
	var f transapi.Fetcher = remote.New(remote.Config{
		Endpoint:    cfg.Endpoint,
		HostVersion: cfg.HostVersion,
		Logger:      logger,
	})
	if cfg.RateLimitRPM > 0 {
		f = transapi.NewRateLimitedFetcher(f, transapi.RateLimitConfig{RequestsPerMinute: cfg.RateLimitRPM})
	}
	return f
}

func newGateway(cfg *config.Config, store transapi.Store, logger zerolog.Logger, opts ...transapi.GatewayOption) *transapi.Gateway {
	opts = append(opts, transapi.WithLogger(logger))
	if cfg.Gateway.SingleFlight {
		opts = append(opts, transapi.WithSingleFlight())
	}
	if cfg.Gateway.NormalizeLocale {
		opts = append(opts, transapi.WithLocaleNormalization())
	}
	return transapi.NewGateway(store, newFetcher(cfg.Remote, logger), opts...)
}
