package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveLedgerOp("register", "ok", time.Second)
		m.ObserveConfirm(time.Second)
		m.IncrementActionOutcome("register", "success")
		m.IncrementStaleDiscard("load")
		m.ObserveHTTPRequest("GET", "/api/donors", 200, time.Millisecond)
		m.IncrementProfilesCreated()
	})
}

func TestCounters(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.IncrementActionOutcome("register", "success_with_warning")
	m.IncrementActionOutcome("register", "success_with_warning")
	m.IncrementStaleDiscard("refresh")
	m.IncrementProfilesCreated()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActionOutcomes.WithLabelValues("register", "success_with_warning")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleDiscards.WithLabelValues("refresh")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProfilesCreated))
}
