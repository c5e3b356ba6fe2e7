package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaguanLabs/transapi"
	"github.com/ZaguanLabs/transapi/cache"
	"github.com/ZaguanLabs/transapi/remote"
)

const akismetDoc = `{"translations":[{"language":"fr_FR","version":"5.0"}]}`

func newTestServer(t *testing.T, fetcher *remote.MockFetcher) (*Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	gw := transapi.NewGateway(cache.NewMemoryStore(), fetcher, transapi.WithMetrics(transapi.NewMetrics(reg)))
	return New(gw, WithGatherer(reg), WithConcurrency(2)), reg
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestLookup_OK(t *testing.T) {
	fetcher := remote.NewMockFetcher(akismetDoc)
	s, _ := newTestServer(t, fetcher)

	rec := do(t, s, http.MethodGet, "/v1/translations/plugins?slug=akismet&version=5.0&locale=fr_FR", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, akismetDoc, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	require.Len(t, fetcher.Requests, 1)
	assert.Equal(t, transapi.LookupRequest{Kind: transapi.KindPlugin, Slug: "akismet", Version: "5.0", Locale: "fr_FR"}, fetcher.Requests[0])
}

func TestLookup_SingularKindAndCache(t *testing.T) {
	fetcher := remote.NewMockFetcher(akismetDoc)
	s, _ := newTestServer(t, fetcher)

	for i := 0; i < 3; i++ {
		rec := do(t, s, http.MethodGet, "/v1/translations/plugin?slug=akismet&version=5.0&locale=fr_FR", "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 1, fetcher.CallCount())
}

func TestLookup_InvalidKind(t *testing.T) {
	fetcher := remote.NewMockFetcher(akismetDoc)
	s, _ := newTestServer(t, fetcher)

	rec := do(t, s, http.MethodGet, "/v1/translations/widgets?slug=x&version=1&locale=fr_FR", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid translation type.", resp.Error)
	assert.Zero(t, fetcher.CallCount())
}

func TestLookup_MissingSlug(t *testing.T) {
	fetcher := remote.NewMockFetcher(akismetDoc)
	s, _ := newTestServer(t, fetcher)

	rec := do(t, s, http.MethodGet, "/v1/translations/plugins?version=5.0&locale=fr_FR", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Slug is required.", resp.Error)
	assert.Zero(t, fetcher.CallCount())
}

func TestLookup_UpstreamFailure(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"payload", &transapi.InvalidPayloadError{Body: []byte("not json")}, http.StatusBadGateway},
		{"transport", &transapi.TransportError{Cause: context.Canceled}, http.StatusBadGateway},
		{"timeout", &transapi.TransportError{Cause: context.DeadlineExceeded}, http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := remote.NewMockFetcher("")
			fetcher.Err = tt.err
			s, _ := newTestServer(t, fetcher)

			rec := do(t, s, http.MethodGet, "/v1/translations/core?version=6.5&locale=fr_FR", "")

			require.Equal(t, tt.status, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Contains(t, resp.Error, "translation API")
			assert.Contains(t, resp.Error, transapi.SupportURL)
		})
	}
}

func TestBatch(t *testing.T) {
	fetcher := remote.NewMockFetcher(akismetDoc)
	s, _ := newTestServer(t, fetcher)

	body := `{"requests":[
		{"type":"plugins","slug":"akismet","version":"5.0","locale":"fr_FR"},
		{"type":"widgets","slug":"x","version":"1","locale":"fr_FR"},
		{"type":"core","version":"6.5","locale":"fr-fr"}
	]}`
	rec := do(t, s, http.MethodPost, "/v1/translations/batch", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var out []struct {
		Key    string          `json:"key"`
		Result json.RawMessage `json:"result"`
		Error  string          `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 3)

	assert.Equal(t, transapi.CacheKey(transapi.LookupRequest{Kind: transapi.KindPlugin, Slug: "akismet", Version: "5.0", Locale: "fr_FR"}), out[0].Key)
	assert.JSONEq(t, akismetDoc, string(out[0].Result))
	assert.Equal(t, "Invalid translation type.", out[1].Error)
	assert.Empty(t, out[2].Error)
	assert.Equal(t, 2, fetcher.CallCount())
}

func TestBatch_Rejected(t *testing.T) {
	s, _ := newTestServer(t, remote.NewMockFetcher(akismetDoc))

	rec := do(t, s, http.MethodPost, "/v1/translations/batch", `{"requests":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	items := make([]string, MaxBatchSize+1)
	for i := range items {
		items[i] = `{"type":"core","version":"6.5","locale":"fr_FR"}`
	}
	rec = do(t, s, http.MethodPost, "/v1/translations/batch", `{"requests":[`+strings.Join(items, ",")+`]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, remote.NewMockFetcher(akismetDoc))

	rec := do(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, remote.NewMockFetcher(akismetDoc))

	do(t, s, http.MethodGet, "/v1/translations/plugins?slug=akismet&version=5.0&locale=fr_FR", "")
	rec := do(t, s, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "transapi_lookups_total")
}

func TestMetricsEndpoint_DisabledWithoutGatherer(t *testing.T) {
	s := New(transapi.NewGateway(nil, remote.NewMockFetcher(akismetDoc)))

	rec := do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
