package transapi

import (
	"context"
	"sync"
)

// LookupResult pairs one request of a batch with its outcome.
type LookupResult struct {
	Request LookupRequest
	Result  *TranslationResult
	Err     error
}

// Lookuper is satisfied by *Gateway.
type Lookuper interface {
	Lookup(ctx context.Context, req LookupRequest) (*TranslationResult, error)
}

// LookupAll runs the lookups with at most concurrency in flight and returns
// the results in request order. A failed lookup does not stop the others.
func LookupAll(ctx context.Context, l Lookuper, reqs []LookupRequest, concurrency int) []LookupResult {
	results := make([]LookupResult, len(reqs))
	if len(reqs) == 0 {
		return results
	}
	if concurrency <= 0 || concurrency > len(reqs) {
		concurrency = len(reqs)
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req LookupRequest) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[i] = LookupResult{Request: req, Err: &TransportError{Cause: ctx.Err()}}
				return
			}
			defer func() { <-sem }()

			res, err := l.Lookup(ctx, req)
			results[i] = LookupResult{Request: req, Result: res, Err: err}
		}(i, req)
	}

	wg.Wait()
	return results
}
