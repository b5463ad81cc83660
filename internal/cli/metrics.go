package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// MetricSample is one gathered series. Histograms report their sample count.
type MetricSample struct {
	Name   string  `json:"name"`
	Labels string  `json:"labels,omitempty"`
	Value  float64 `json:"value"`
}

// gatherMetrics flattens every counter and histogram series in g, sorted
// by name then labels.
func gatherMetrics(g prometheus.Gatherer) ([]MetricSample, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	var out []MetricSample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			s := MetricSample{Name: mf.GetName(), Labels: labelString(m.GetLabel())}
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				s.Value = m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				s.Value = m.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				s.Value = float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Labels < out[j].Labels
	})
	return out, nil
}

func labelString(pairs []*dto.LabelPair) string {
	parts := make([]string, len(pairs))
	for i, lp := range pairs {
		parts[i] = lp.GetName() + "=" + lp.GetValue()
	}
	return strings.Join(parts, ",")
}

// writeMetrics prints samples one per line.
func writeMetrics(w io.Writer, samples []MetricSample) {
	fmt.Fprintln(w, "=== Metrics ===")
	for _, s := range samples {
		if s.Labels != "" {
			fmt.Fprintf(w, "  %s{%s} %g\n", s.Name, s.Labels, s.Value)
			continue
		}
		fmt.Fprintf(w, "  %s %g\n", s.Name, s.Value)
	}
}
