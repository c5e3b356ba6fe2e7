// Package remote implements the Fetcher that calls the translation service.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ZaguanLabs/transapi"
)

// MaxResponseSize caps how much of a response body is read.
const MaxResponseSize = 10 * 1024 * 1024 // 10MB

// HTTPFetcher implements transapi.Fetcher with one form-encoded POST per call.
type HTTPFetcher struct {
	client      *http.Client
	endpoint    string
	hostVersion string
	userAgent   string
	logger      zerolog.Logger
}

// Config holds configuration for the HTTP fetcher.
type Config struct {
	Endpoint    string         // Translation service URL (required)
	HostVersion string         // Version of the host runtime, sent as host_version
	UserAgent   string         // Default: transapi/<version>
	Client      *http.Client   // Custom client (optional); its Timeout is forced to transapi.FetchTimeout
	Logger      zerolog.Logger // Default: no logging
}

// New creates a new HTTP fetcher.
func New(cfg Config) *HTTPFetcher {
	client := &http.Client{}
	if cfg.Client != nil {
		c := *cfg.Client
		client = &c
	}
	client.Timeout = transapi.FetchTimeout

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = transapi.UserAgent()
	}

	return &HTTPFetcher{
		client:      client,
		endpoint:    cfg.Endpoint,
		hostVersion: cfg.HostVersion,
		userAgent:   userAgent,
		logger:      cfg.Logger.With().Str("component", "HTTPFetcher").Logger(),
	}
}

// Form builds the request body for req. The slug is only sent for plugin and
// theme lookups.
func (f *HTTPFetcher) Form(req transapi.LookupRequest) url.Values {
	form := url.Values{}
	form.Set("type", string(req.Kind))
	form.Set("host_version", f.hostVersion)
	form.Set("locale", req.Locale)
	form.Set("version", req.Version)
	if req.Kind != transapi.KindCore {
		form.Set("slug", req.Slug)
	}
	return form
}

// Fetch performs exactly one call to the translation service. Connection
// failures and timeouts return *transapi.TransportError; a body that is not a
// JSON object or array, or a non-2xx status, returns *transapi.InvalidPayloadError.
func (f *HTTPFetcher) Fetch(ctx context.Context, req transapi.LookupRequest) (*transapi.TranslationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if f.endpoint == "" {
		return nil, &transapi.TransportError{Cause: errors.New("no endpoint configured")}
	}

	requestID := uuid.NewString()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, strings.NewReader(f.Form(req).Encode()))
	if err != nil {
		return nil, &transapi.TransportError{Endpoint: f.endpoint, Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", f.userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)

	log := f.logger.With().Str("request_id", requestID).Str("kind", string(req.Kind)).Logger()
	log.Debug().Str("endpoint", f.endpoint).Msg("Requesting translations.")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, &transapi.TransportError{Endpoint: f.endpoint, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, &transapi.TransportError{Endpoint: f.endpoint, Cause: fmt.Errorf("reading body: %w", err)}
	}
	if len(body) > MaxResponseSize {
		return nil, &transapi.InvalidPayloadError{
			Body:       body[:1024],
			StatusCode: resp.StatusCode,
			Cause:      fmt.Errorf("response exceeds %d bytes", MaxResponseSize),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn().Int("status", resp.StatusCode).Msg("Translation service returned an error status.")
		return nil, &transapi.InvalidPayloadError{
			Body:       body,
			StatusCode: resp.StatusCode,
			Cause:      fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	result, err := transapi.DecodeResult(body)
	if err != nil {
		return nil, &transapi.InvalidPayloadError{Body: body, StatusCode: resp.StatusCode, Cause: err}
	}

	log.Debug().Int("bytes", len(body)).Msg("Received translations.")
	return result, nil
}

// Verify HTTPFetcher implements transapi.Fetcher
var _ transapi.Fetcher = (*HTTPFetcher)(nil)
