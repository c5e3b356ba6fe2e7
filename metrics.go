package transapi

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Lookup outcomes recorded by Metrics.
const (
	outcomeHit     = "hit"
	outcomeMiss    = "miss"
	outcomeError   = "error"
	outcomeInvalid = "invalid"
)

// Metrics holds the Prometheus collectors for a Gateway. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	lookupsTotal       *prometheus.CounterVec
	fetchErrorsTotal   *prometheus.CounterVec
	fetchDuration      *prometheus.HistogramVec
	storeWriteFailures prometheus.Counter
}

// NewMetrics creates the gateway collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		lookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "transapi",
				Name:      "lookups_total",
				Help:      "Total number of translation lookups by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		fetchErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "transapi",
				Name:      "fetch_errors_total",
				Help:      "Total number of failed calls to the translation service by reason",
			},
			[]string{"reason"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "transapi",
				Name:      "fetch_duration_seconds",
				Help:      "Duration of calls to the translation service",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"kind"},
		),
		storeWriteFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "transapi",
				Name:      "store_write_failures_total",
				Help:      "Total number of results that could not be written to the store",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.lookupsTotal, m.fetchErrorsTotal, m.fetchDuration, m.storeWriteFailures)
	}
	return m
}

func (m *Metrics) observeLookup(kind Kind, outcome string) {
	if m == nil {
		return
	}
	label := string(kind)
	if !kind.Valid() {
		label = "invalid"
	}
	m.lookupsTotal.WithLabelValues(label, outcome).Inc()
}

func (m *Metrics) observeFetch(kind Kind, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
	if err != nil {
		m.fetchErrorsTotal.WithLabelValues(ErrorReason(err)).Inc()
	}
}

func (m *Metrics) observeStoreWriteFailure() {
	if m == nil {
		return
	}
	m.storeWriteFailures.Inc()
}

// ErrorReason classifies err for logs and metrics: "invalid_request",
// "transport", "invalid_payload" or "other".
func ErrorReason(err error) string {
	var (
		reqErr       *InvalidRequestError
		transportErr *TransportError
		payloadErr   *InvalidPayloadError
	)
	switch {
	case errors.As(err, &reqErr):
		return "invalid_request"
	case errors.As(err, &transportErr):
		return "transport"
	case errors.As(err, &payloadErr):
		return "invalid_payload"
	}
	return "other"
}
