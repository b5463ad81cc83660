package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordPass("committed")
	m.RecordPass("committed")
	m.RecordPass("unchanged")
	m.RecordChange("input")
	m.RecordRejection("INVALID_FORMAT")
	m.RecordEvent()
	m.RecordCandidateLookup(true)
	m.RecordCandidateLookup(false)
	m.RecordCandidateLookup(false)
	m.RecordCommitDuration(50 * time.Microsecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PassesTotal.WithLabelValues("committed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PassesTotal.WithLabelValues("unchanged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChangesTotal.WithLabelValues("input")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RejectionsTotal.WithLabelValues("INVALID_FORMAT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CandidateLookup.WithLabelValues("miss")))

	expected := `
# HELP scopecfg_events_emitted_total Node reconfigured events delivered to listeners
# TYPE scopecfg_events_emitted_total counter
scopecfg_events_emitted_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "scopecfg_events_emitted_total"))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordPass("committed")
		m.RecordChange("param")
		m.RecordRejection("STALE_CANDIDATE")
		m.RecordEvent()
		m.RecordCommitDuration(time.Millisecond)
		m.RecordCandidateLookup(true)
	})
}

func TestMetrics_UnregisteredWithNilRegisterer(t *testing.T) {
	m := New(nil)
	m.RecordEvent()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsTotal))
}
