package remote

import (
	"context"
	"sync"

	"github.com/ZaguanLabs/transapi"
)

// MockFetcher is a mock translation service for testing.
type MockFetcher struct {
	mu       sync.Mutex
	Body     []byte                   // Document returned on success
	Err      error                    // Error returned instead of Body, if set
	Requests []transapi.LookupRequest // Requests received, in order
}

// NewMockFetcher creates a mock that answers every request with body.
func NewMockFetcher(body string) *MockFetcher {
	return &MockFetcher{Body: []byte(body)}
}

// Fetch records req and returns the configured document or error.
func (m *MockFetcher) Fetch(_ context.Context, req transapi.LookupRequest) (*transapi.TranslationResult, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	body, fail := m.Body, m.Err
	m.mu.Unlock()

	if fail != nil {
		return nil, fail
	}
	result, err := transapi.DecodeResult(body)
	if err != nil {
		return nil, &transapi.InvalidPayloadError{Body: body, Cause: err}
	}
	return result, nil
}

// CallCount returns the number of Fetch calls so far.
func (m *MockFetcher) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// Reset clears recorded requests.
func (m *MockFetcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = nil
}

// Verify MockFetcher implements transapi.Fetcher
var _ transapi.Fetcher = (*MockFetcher)(nil)
