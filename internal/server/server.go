// Package server exposes the gateway over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ZaguanLabs/transapi"
)

// MaxBatchSize caps the number of lookups accepted by one batch call.
const MaxBatchSize = 100

// Server serves translation lookups and operational endpoints.
type Server struct {
	echo        *echo.Echo
	lookuper    transapi.Lookuper
	gatherer    prometheus.Gatherer
	logger      zerolog.Logger
	concurrency int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGatherer exposes the registry on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithConcurrency bounds parallel lookups within one batch request.
func WithConcurrency(n int) Option {
	return func(s *Server) {
		s.concurrency = n
	}
}

// New builds the echo router around l.
func New(l transapi.Lookuper, opts ...Option) *Server {
	s := &Server{
		lookuper:    l,
		logger:      zerolog.Nop(),
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "Server").Logger()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("Request handled.")
			return nil
		},
	}))

	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/translations/:kind", s.handleLookup)
	e.POST("/v1/translations/batch", s.handleBatch)
	if s.gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	s.echo = e
	return s
}

// Handler returns the router for use with httptest or a custom http.Server.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("Listening.")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ErrorResponse is the JSON body returned for failed lookups.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": transapi.FullVersion(),
	})
}

func (s *Server) handleLookup(c echo.Context) error {
	kind, err := transapi.ParseKind(c.Param("kind"))
	if err != nil {
		return s.writeError(c, err)
	}

	req := transapi.LookupRequest{
		Kind:    kind,
		Slug:    c.QueryParam("slug"),
		Version: c.QueryParam("version"),
		Locale:  c.QueryParam("locale"),
	}
	result, err := s.lookuper.Lookup(c.Request().Context(), req)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSONBlob(http.StatusOK, result.Raw())
}

// BatchItem is one lookup in a batch request.
type BatchItem struct {
	Type    string `json:"type"`
	Slug    string `json:"slug"`
	Version string `json:"version"`
	Locale  string `json:"locale"`
}

// BatchRequest is the body accepted by POST /v1/translations/batch.
type BatchRequest struct {
	Requests []BatchItem `json:"requests"`
}

// BatchResult reports one lookup of a batch, in request order.
type BatchResult struct {
	Key    string                      `json:"key,omitempty"`
	Result *transapi.TranslationResult `json:"result,omitempty"`
	Error  string                      `json:"error,omitempty"`
}

func (s *Server) handleBatch(c echo.Context) error {
	var body BatchRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Malformed batch request."})
	}
	if len(body.Requests) > MaxBatchSize {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Too many lookups in one batch."})
	}

	reqs := make([]transapi.LookupRequest, len(body.Requests))
	for i, item := range body.Requests {
		// An unknown type is left for the gateway to reject per item.
		kind, _ := transapi.ParseKind(item.Type)
		reqs[i] = transapi.LookupRequest{
			Kind:    kind,
			Slug:    item.Slug,
			Version: item.Version,
			Locale:  item.Locale,
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), transapi.FetchTimeout+5*time.Second)
	defer cancel()

	out := make([]BatchResult, len(reqs))
	for i, r := range transapi.LookupAll(ctx, s.lookuper, reqs, s.concurrency) {
		if r.Err != nil {
			out[i] = BatchResult{Error: transapi.UserMessage(r.Err)}
			continue
		}
		out[i] = BatchResult{Key: transapi.CacheKey(r.Request), Result: r.Result}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) writeError(c echo.Context, err error) error {
	resp := ErrorResponse{Error: transapi.UserMessage(err)}

	var reqErr *transapi.InvalidRequestError
	if errors.As(err, &reqErr) {
		resp.Detail = reqErr.Message
		return c.JSON(http.StatusBadRequest, resp)
	}

	status := http.StatusBadGateway
	var transportErr *transapi.TransportError
	if errors.As(err, &transportErr) && transportErr.Timeout() {
		status = http.StatusGatewayTimeout
	}
	s.logger.Warn().Err(err).Str("reason", transapi.ErrorReason(err)).Msg("Lookup failed.")
	return c.JSON(status, resp)
}
