package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the donor controller, the
// ledger and profile clients, and the profile-store server. All methods are
// safe on a nil receiver so components can run without metrics.
type Metrics struct {
	// Ledger submit/read latency by operation and outcome code
	LedgerOpDuration *prometheus.HistogramVec

	// Time from submission to confirmed inclusion
	ConfirmDuration prometheus.Histogram

	// Profile-store client latency by operation and outcome code
	ProfileOpDuration *prometheus.HistogramVec

	// Controller action outcomes: success, success_with_warning, failure, discarded
	ActionOutcomes *prometheus.CounterVec

	// Results dropped because the identity changed while in flight
	StaleDiscards *prometheus.CounterVec

	// Profile-store server request latency
	HTTPRequestDuration *prometheus.HistogramVec

	// Profile records created on the server
	ProfilesCreated prometheus.Counter
}

// New creates and registers all metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers on reg; tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LedgerOpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "organchain_ledger_op_duration_seconds",
			Help:    "Duration of ledger operations by operation and outcome",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"op", "outcome"}),

		ConfirmDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "organchain_ledger_confirm_duration_seconds",
			Help:    "Duration between transaction submission and confirmed inclusion",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		ProfileOpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "organchain_profile_op_duration_seconds",
			Help:    "Duration of profile-store client calls by operation and outcome",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"op", "outcome"}),

		ActionOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "organchain_donor_action_outcomes_total",
			Help: "Donor controller action outcomes by action and outcome kind",
		}, []string{"action", "outcome"}),

		StaleDiscards: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "organchain_donor_stale_results_total",
			Help: "Results discarded because the acting identity changed in flight",
		}, []string{"action"}),

		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "organchain_http_request_duration_seconds",
			Help:    "Profile-store HTTP request latency by method, route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),

		ProfilesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "organchain_profiles_created_total",
			Help: "Total number of donor profiles created in the profile store",
		}),
	}
}

func (m *Metrics) ObserveLedgerOp(op, outcome string, d time.Duration) {
	if m != nil {
		m.LedgerOpDuration.WithLabelValues(op, outcome).Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveConfirm(d time.Duration) {
	if m != nil {
		m.ConfirmDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveProfileOp(op, outcome string, d time.Duration) {
	if m != nil {
		m.ProfileOpDuration.WithLabelValues(op, outcome).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementActionOutcome(action, outcome string) {
	if m != nil {
		m.ActionOutcomes.WithLabelValues(action, outcome).Inc()
	}
}

func (m *Metrics) IncrementStaleDiscard(action string) {
	if m != nil {
		m.StaleDiscards.WithLabelValues(action).Inc()
	}
}

// ObserveHTTPRequest satisfies the request logging middleware's observer.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if m != nil {
		m.HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementProfilesCreated() {
	if m != nil {
		m.ProfilesCreated.Inc()
	}
}
