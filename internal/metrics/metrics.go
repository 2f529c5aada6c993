// Package metrics holds the Prometheus instruments for chart generation and
// vault operations. Each Collector owns a private registry.
package metrics

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/KaramelBytes/sheetloom-cli/internal/chart"
)

// Collector holds all instruments. A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	ChartsProduced      *prometheus.CounterVec
	FallbackActivations prometheus.Counter
	DirectivesDropped   *prometheus.CounterVec
	UnlockFailures      prometheus.Counter
	GenerationDuration  prometheus.Histogram
}

// NewCollector creates a collector whose metric names start with namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		ChartsProduced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charts_produced_total",
			Help:      "Chart specs produced, by chart kind.",
		}, []string{"kind"}),
		FallbackActivations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_activations_total",
			Help:      "Times the deterministic histogram fallback ran.",
		}),
		DirectivesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "directives_dropped_total",
			Help:      "Chart directives that could not be derived, by reason.",
		}, []string{"reason"}),
		UnlockFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unlock_failures_total",
			Help:      "Failed attempts to decrypt a sheet.",
		}),
		GenerationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "End-to-end chart generation latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	c.registry.MustRegister(
		c.ChartsProduced,
		c.FallbackActivations,
		c.DirectivesDropped,
		c.UnlockFailures,
		c.GenerationDuration,
	)
	return c
}

// Registry exposes the private registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// ObserveCharts counts produced specs by kind.
func (c *Collector) ObserveCharts(specs []chart.Spec) {
	if c == nil {
		return
	}
	for _, s := range specs {
		c.ChartsProduced.WithLabelValues(string(s.Kind)).Inc()
	}
}

// ObserveDropped counts a failed directive under a reason derived from err.
func (c *Collector) ObserveDropped(err error) {
	if c == nil {
		return
	}
	c.DirectivesDropped.WithLabelValues(DropReason(err)).Inc()
}

// ObserveFallback counts one fallback activation.
func (c *Collector) ObserveFallback() {
	if c == nil {
		return
	}
	c.FallbackActivations.Inc()
}

// ObserveUnlockFailure counts one failed decryption.
func (c *Collector) ObserveUnlockFailure() {
	if c == nil {
		return
	}
	c.UnlockFailures.Inc()
}

// ObserveGeneration records how long one generation took.
func (c *Collector) ObserveGeneration(d time.Duration) {
	if c == nil {
		return
	}
	c.GenerationDuration.Observe(d.Seconds())
}

// DropReason maps derivation errors to a stable label value.
func DropReason(err error) string {
	switch {
	case errors.Is(err, chart.ErrUnresolvedColumn):
		return "unresolved_column"
	case errors.Is(err, chart.ErrUnknownAggregation):
		return "unknown_aggregation"
	case errors.Is(err, chart.ErrBadShape):
		return "bad_shape"
	case errors.Is(err, chart.ErrNoData):
		return "no_data"
	}
	return "other"
}

// Summary renders every non-zero sample as "name{labels} value" lines, sorted.
func (c *Collector) Summary() (string, error) {
	families, err := c.registry.Gather()
	if err != nil {
		return "", fmt.Errorf("gather metrics: %w", err)
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName() + labelString(m.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				if v := m.GetCounter().GetValue(); v != 0 {
					lines = append(lines, fmt.Sprintf("%s %g", name, v))
				}
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				if h.GetSampleCount() != 0 {
					lines = append(lines, fmt.Sprintf("%s_count %d", name, h.GetSampleCount()))
					lines = append(lines, fmt.Sprintf("%s_sum %g", name, h.GetSampleSum()))
				}
			}
		}
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n"), nil
}

func labelString(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", p.GetName(), p.GetValue()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
