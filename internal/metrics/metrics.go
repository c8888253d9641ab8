// Package metrics exposes Prometheus instrumentation for verifications.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides observability for the verifiers. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	// Field verification outcomes by kind ("email", "url") and status
	Verifications *prometheus.CounterVec

	// Tier latency by kind and tier
	TierLatency *prometheus.HistogramVec

	// URL result cache lookups by result ("hit", "miss")
	CacheLookups *prometheus.CounterVec

	// Record verdicts by overall status
	RecordOutcomes *prometheus.CounterVec

	// Records currently being verified
	InFlight prometheus.Gauge
}

// New registers all metrics with reg. A nil reg returns nil. Collectors
// already registered by an earlier New on the same reg are reused, so
// several verifiers can share one registry. Any other registration
// conflict is returned as an error.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}
	m := &Metrics{}
	var err error
	if m.Verifications, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "contactkit_verifications_total",
		Help: "Total field verifications by kind and status",
	}, []string{"kind", "status"})); err != nil {
		return nil, err
	}
	if m.TierLatency, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "contactkit_tier_duration_seconds",
		Help:    "Duration of a single verification tier",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"kind", "tier"})); err != nil {
		return nil, err
	}
	if m.CacheLookups, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "contactkit_url_cache_lookups_total",
		Help: "URL result cache lookups by result",
	}, []string{"result"})); err != nil {
		return nil, err
	}
	if m.RecordOutcomes, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "contactkit_record_outcomes_total",
		Help: "Record verdicts by overall status",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if m.InFlight, err = register[prometheus.Gauge](reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "contactkit_records_in_flight",
		Help: "Records currently being verified",
	})); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg, or returns the equivalent collector that is
// already there.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("metrics: register: %w", err)
}

// IncrementVerification records a field outcome.
func (m *Metrics) IncrementVerification(kind, status string) {
	if m != nil {
		m.Verifications.WithLabelValues(kind, status).Inc()
	}
}

// ObserveTier records how long one tier took.
func (m *Metrics) ObserveTier(kind, tier string, d time.Duration) {
	if m != nil {
		m.TierLatency.WithLabelValues(kind, tier).Observe(d.Seconds())
	}
}

// IncrementCacheLookup records a URL cache hit or miss.
func (m *Metrics) IncrementCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// IncrementRecordOutcome records an aggregated verdict.
func (m *Metrics) IncrementRecordOutcome(status string) {
	if m != nil {
		m.RecordOutcomes.WithLabelValues(status).Inc()
	}
}

// RecordStarted and RecordFinished track in-flight records.
func (m *Metrics) RecordStarted() {
	if m != nil {
		m.InFlight.Inc()
	}
}

func (m *Metrics) RecordFinished() {
	if m != nil {
		m.InFlight.Dec()
	}
}
