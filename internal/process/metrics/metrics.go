package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Validation outcome labels.
const (
	OutcomeAdmitted          = "admitted"
	OutcomeNotFound          = "not_found"
	OutcomeDisabled          = "disabled"
	OutcomeRestrictionFailed = "restriction_failed"
	OutcomeStoreError        = "store_error"
)

// Metrics provides observability for the process module.
// All methods are nil-safe so components can run without metrics.
type Metrics struct {
	// Lifecycle
	ProcessesCreated  *prometheus.CounterVec
	ProcessesDisabled prometheus.Counter
	LifecycleFailures *prometheus.CounterVec

	// Validation path
	ValidationOutcomes *prometheus.CounterVec
	ValidateLatency    prometheus.Histogram

	// Read-through cache
	CacheLookups *prometheus.CounterVec
}

// New registers the process module metrics with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProcessesCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "processguard_processes_created_total",
			Help: "Total process versions created, split by whether the version was the first for its identifier",
		}, []string{"first_version"}),

		ProcessesDisabled: factory.NewCounter(prometheus.CounterOpts{
			Name: "processguard_processes_disabled_total",
			Help: "Total successful disable calls",
		}),

		LifecycleFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "processguard_lifecycle_failures_total",
			Help: "Failed lifecycle operations by operation and error code",
		}, []string{"operation", "code"}),

		ValidationOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "processguard_validation_outcomes_total",
			Help: "Transition validation outcomes by reason",
		}, []string{"outcome"}),

		ValidateLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "processguard_validate_duration_seconds",
			Help:    "Duration of a single transition validation including the process lookup",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "processguard_process_cache_lookups_total",
			Help: "Process cache lookups by result",
		}, []string{"result"}), // result: "hit", "miss", "error"
	}
}

func (m *Metrics) IncrementCreated(firstVersion bool) {
	if m != nil {
		label := "false"
		if firstVersion {
			label = "true"
		}
		m.ProcessesCreated.WithLabelValues(label).Inc()
	}
}

func (m *Metrics) IncrementDisabled() {
	if m != nil {
		m.ProcessesDisabled.Inc()
	}
}

// IncrementLifecycleFailure records a failed create or disable call.
func (m *Metrics) IncrementLifecycleFailure(operation, code string) {
	if m != nil {
		m.LifecycleFailures.WithLabelValues(operation, code).Inc()
	}
}

// IncrementOutcome records a validation outcome.
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.ValidationOutcomes.WithLabelValues(outcome).Inc()
	}
}

// ObserveValidate records the duration of a validation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveValidate(start time.Time) {
	if m != nil {
		m.ValidateLatency.Observe(time.Since(start).Seconds())
	}
}

// IncrementCacheLookup records a cache hit, miss or error.
func (m *Metrics) IncrementCacheLookup(result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(result).Inc()
	}
}
