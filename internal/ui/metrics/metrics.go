// Package metrics exposes prometheus counters for chart events and dataset
// loads.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leapstack-labs/chartlink/internal/coupling"
	"github.com/leapstack-labs/chartlink/pkg/core"
)

const namespace = "chartlink"

// Metric names.
const (
	MetricEvents             = "events_total"
	MetricContractViolations = "contract_violations_total"
	MetricDatasetLoads       = "dataset_loads_total"
	MetricDatasetLoadSeconds = "dataset_load_seconds"
	MetricSessions           = "sessions"
)

// Metrics holds the server's collectors and the registry serving them.
type Metrics struct {
	registry *prometheus.Registry

	Events             *prometheus.CounterVec
	ContractViolations *prometheus.CounterVec
	DatasetLoads       *prometheus.CounterVec
	DatasetLoadSeconds *prometheus.HistogramVec
	Sessions           prometheus.Gauge
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      MetricEvents,
				Help:      "Chart events received, by page, source and outcome.",
			},
			[]string{"page", "source", "outcome"},
		),
		ContractViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      MetricContractViolations,
				Help:      "Chart events rejected as malformed, by page and reason.",
			},
			[]string{"page", "reason"},
		),
		DatasetLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      MetricDatasetLoads,
				Help:      "Dataset load attempts, by dataset and result.",
			},
			[]string{"dataset", "result"},
		),
		DatasetLoadSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      MetricDatasetLoadSeconds,
				Help:      "Dataset load duration.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"dataset"},
		),
		Sessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      MetricSessions,
				Help:      "Browser sessions with at least one dashboard.",
			},
		),
	}
	m.registry.MustRegister(
		m.Events,
		m.ContractViolations,
		m.DatasetLoads,
		m.DatasetLoadSeconds,
		m.Sessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveEvent records the outcome of dispatching one chart event. Events
// no output accepted are counted as ignored.
func (m *Metrics) ObserveEvent(page string, ev *core.ChartEvent, results []coupling.Result) {
	source := ""
	if ev != nil {
		source = ev.SourceID
	}

	outcome := coupling.OutcomeIgnored
	for _, r := range results {
		if r.Outcome < outcome {
			outcome = r.Outcome
		}
		if r.Err != nil {
			outcome = coupling.OutcomeFailed
			if reason := violationReason(r.Err); reason != "" {
				m.ContractViolations.WithLabelValues(page, reason).Inc()
			}
			break
		}
	}
	m.Events.WithLabelValues(page, source, outcome.String()).Inc()
}

func violationReason(err error) string {
	var mismatch *core.SourceMismatchError
	var oor *core.IndexOutOfRangeError
	switch {
	case errors.As(err, &mismatch):
		return "source_mismatch"
	case errors.As(err, &oor):
		return "index_out_of_range"
	}
	return ""
}

// ObserveLoad records a dataset load attempt. Its signature matches
// dataset.Registry.OnLoad.
func (m *Metrics) ObserveLoad(name string, took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.DatasetLoads.WithLabelValues(name, result).Inc()
	m.DatasetLoadSeconds.WithLabelValues(name).Observe(took.Seconds())
}
