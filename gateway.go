package transapi

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/ZaguanLabs/transapi/cache"
)

// Gateway serves lookups from the store while fresh and refreshes them from
// the translation service otherwise.
type Gateway struct {
	store   Store
	fetcher Fetcher
	logger  zerolog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	flight  *singleflight.Group

	normalizeLocale bool
}

// Fetcher is the interface for the remote translation service.
type Fetcher interface {
	Fetch(ctx context.Context, req LookupRequest) (*TranslationResult, error)
}

// Store is the key-value store lookups are cached in. A value returned by Get
// is fresh; expiry is the store's responsibility.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// GatewayOption is a functional option for configuring the Gateway.
type GatewayOption func(*Gateway)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithMetrics records lookups and fetches in m.
func WithMetrics(m *Metrics) GatewayOption {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithTracerProvider sets the provider spans are created from.
// The global provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) GatewayOption {
	return func(g *Gateway) {
		g.tracer = tp.Tracer(tracerName)
	}
}

// WithSingleFlight makes concurrent misses for the same key share one fetch.
// Without it every missing lookup fetches independently and the last write wins.
func WithSingleFlight() GatewayOption {
	return func(g *Gateway) {
		g.flight = &singleflight.Group{}
	}
}

// WithLocaleNormalization rewrites request locales with NormalizeLocale before
// the key is derived and the service is called, so "fr-fr" and "fr_FR" share
// one entry and "fr_FR" is sent. Off by default.
func WithLocaleNormalization() GatewayOption {
	return func(g *Gateway) {
		g.normalizeLocale = true
	}
}

const tracerName = "github.com/ZaguanLabs/transapi"

// NewGateway creates a Gateway over store and fetcher. A nil store falls back
// to an in-memory store.
func NewGateway(store Store, fetcher Fetcher, opts ...GatewayOption) *Gateway {
	if store == nil {
		store = cache.NewMemoryStore()
	}
	g := &Gateway{
		store:   store,
		fetcher: fetcher,
		logger:  zerolog.Nop(),
		tracer:  otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With().Str("component", "Gateway").Logger()

	return g
}

// Lookup returns the translation document for req, from the store when a
// fresh entry exists and from the translation service otherwise. Failures are
// returned unchanged and never cached.
func (g *Gateway) Lookup(ctx context.Context, req LookupRequest) (*TranslationResult, error) {
	if err := req.Validate(); err != nil {
		g.metrics.observeLookup(req.Kind, outcomeInvalid)
		return nil, err
	}
	req = req.Normalized()
	if g.normalizeLocale {
		req.Locale = NormalizeLocale(req.Locale)
	}
	key := CacheKey(req)

	ctx, span := g.tracer.Start(ctx, "transapi.Lookup",
		trace.WithAttributes(
			attribute.String("transapi.kind", string(req.Kind)),
			attribute.String("transapi.slug", req.Slug),
			attribute.String("transapi.version", req.Version),
			attribute.String("transapi.locale", req.Locale),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	defer span.End()

	log := g.logger.With().
		Str("kind", string(req.Kind)).
		Str("slug", req.Slug).
		Str("version", req.Version).
		Str("locale", req.Locale).
		Logger()

	if result, ok := g.fromStore(ctx, key, log); ok {
		span.SetAttributes(attribute.Bool("transapi.cache_hit", true))
		g.metrics.observeLookup(req.Kind, outcomeHit)
		log.Debug().Msg("Cache hit.")
		return result, nil
	}
	span.SetAttributes(attribute.Bool("transapi.cache_hit", false))

	result, err := g.refresh(ctx, key, req, log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.metrics.observeLookup(req.Kind, outcomeError)
		return nil, err
	}

	g.metrics.observeLookup(req.Kind, outcomeMiss)
	span.SetStatus(codes.Ok, "")
	return result, nil
}

// fromStore reads key and decodes it. Entries that no longer decode are
// reported as misses so the next fetch overwrites them.
func (g *Gateway) fromStore(ctx context.Context, key string, log zerolog.Logger) (*TranslationResult, bool) {
	raw, ok := g.store.Get(ctx, key)
	if !ok {
		return nil, false
	}
	result, err := DecodeResult(raw)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Discarding undecodable cache entry.")
		return nil, false
	}
	return result, true
}

func (g *Gateway) refresh(ctx context.Context, key string, req LookupRequest, log zerolog.Logger) (*TranslationResult, error) {
	if g.flight == nil {
		return g.fetchAndStore(ctx, key, req, log)
	}

	v, err, shared := g.flight.Do(key, func() (any, error) {
		return g.fetchAndStore(ctx, key, req, log)
	})
	if shared {
		log.Debug().Msg("Shared in-flight fetch.")
	}
	if err != nil {
		return nil, err
	}
	return v.(*TranslationResult), nil
}

func (g *Gateway) fetchAndStore(ctx context.Context, key string, req LookupRequest, log zerolog.Logger) (*TranslationResult, error) {
	if g.fetcher == nil {
		return nil, &TransportError{Cause: errors.New("no fetcher configured")}
	}

	start := time.Now()
	result, err := g.fetcher.Fetch(ctx, req)
	if err == nil && result == nil {
		err = &InvalidPayloadError{Cause: errors.New("fetcher returned no document")}
	}
	g.metrics.observeFetch(req.Kind, time.Since(start), err)
	if err != nil {
		log.Warn().Err(err).Str("reason", ErrorReason(err)).Msg("Translation service fetch failed.")
		return nil, err
	}

	if err := g.store.Set(ctx, key, result.Raw(), DefaultTTL); err != nil {
		g.metrics.observeStoreWriteFailure()
		log.Error().Err(err).Str("key", key).Msg("Failed to write lookup result to store.")
	} else {
		log.Debug().Str("key", key).Dur("ttl", DefaultTTL).Msg("Stored lookup result.")
	}

	return result, nil
}
