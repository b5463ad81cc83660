// Package metrics exposes Prometheus counters for reconfiguration passes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "scopecfg"

// Metrics holds the reconfiguration collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	PassesTotal     *prometheus.CounterVec
	ChangesTotal    *prometheus.CounterVec
	RejectionsTotal *prometheus.CounterVec
	EventsTotal     prometheus.Counter
	CommitDuration  prometheus.Histogram
	CandidateLookup *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PassesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pass",
				Name:      "total",
				Help:      "Reconfiguration passes by result (committed, unchanged, abandoned)",
			},
			[]string{"result"},
		),
		ChangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pass",
				Name:      "changes_total",
				Help:      "Committed field changes by kind (input, param, name)",
			},
			[]string{"kind"},
		),
		RejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pass",
				Name:      "rejections_total",
				Help:      "Rejected edits by error code",
			},
			[]string{"code"},
		),
		EventsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Node reconfigured events delivered to listeners",
			},
		),
		CommitDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pass",
				Name:      "commit_duration_seconds",
				Help:      "Time spent applying a pass",
				Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
			},
		),
		CandidateLookup: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "candidates",
				Name:      "lookups_total",
				Help:      "Candidate list lookups by cache result (hit, miss)",
			},
			[]string{"cache"},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.PassesTotal,
			m.ChangesTotal,
			m.RejectionsTotal,
			m.EventsTotal,
			m.CommitDuration,
			m.CandidateLookup,
		)
	}
	return m
}

// RecordPass counts a finished pass.
func (m *Metrics) RecordPass(result string) {
	if m == nil {
		return
	}
	m.PassesTotal.WithLabelValues(result).Inc()
}

// RecordChange counts one committed field change.
func (m *Metrics) RecordChange(kind string) {
	if m == nil {
		return
	}
	m.ChangesTotal.WithLabelValues(kind).Inc()
}

// RecordRejection counts one rejected edit.
func (m *Metrics) RecordRejection(code string) {
	if m == nil {
		return
	}
	m.RejectionsTotal.WithLabelValues(code).Inc()
}

// RecordEvent counts one delivered event.
func (m *Metrics) RecordEvent() {
	if m == nil {
		return
	}
	m.EventsTotal.Inc()
}

// RecordCommitDuration observes the time a commit took.
func (m *Metrics) RecordCommitDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.CommitDuration.Observe(d.Seconds())
}

// RecordCandidateLookup counts a candidate cache hit or miss.
func (m *Metrics) RecordCandidateLookup(hit bool) {
	if m == nil {
		return
	}
	label := "miss"
	if hit {
		label = "hit"
	}
	m.CandidateLookup.WithLabelValues(label).Inc()
}
