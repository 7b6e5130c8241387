// Package monitoring counts what a run did and exports the counters in the
// Prometheus text format for the node exporter textfile collector.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
)

const namespace = "osmwrangle"

// Record outcomes.
const (
	OutcomeShaped    = "shaped"
	OutcomeKept      = "kept"
	OutcomeDiscarded = "discarded"
)

// Metrics holds the counters of one process. Each instance owns its own
// registry so tests and repeated runs do not collide.
type Metrics struct {
	reg *prometheus.Registry

	Elements    *prometheus.CounterVec
	Records     *prometheus.CounterVec
	DroppedKeys *prometheus.CounterVec
	Rejections  *prometheus.CounterVec
	Patterns    *prometheus.CounterVec
	Duration    *prometheus.GaugeVec
	LastSuccess *prometheus.GaugeVec
}

// New registers a fresh set of collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		Elements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "elements_total",
				Help:      "Raw OSM elements read, by kind.",
			},
			[]string{"kind"},
		),
		Records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_total",
				Help:      "Records processed, by outcome.",
			},
			[]string{"outcome"},
		),
		DroppedKeys: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dropped_keys_total",
				Help:      "Tag keys left off records while shaping, by reason.",
			},
			[]string{"reason"},
		),
		Rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rejections_total",
				Help:      "Cleaning rules that marked a record for discard.",
			},
			[]string{"rule"},
		),
		Patterns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extract_patterns_total",
				Help:      "Housenumber splits, by the pattern that produced them.",
			},
			[]string{"pattern"},
		),
		Duration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall time of the last run.",
			},
			[]string{"command"},
		),
		LastSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time the last successful run finished.",
			},
			[]string{"command"},
		),
	}
	m.reg.MustRegister(m.Elements, m.Records, m.DroppedKeys, m.Rejections, m.Patterns, m.Duration, m.LastSuccess)
	return m
}

// RecordElement counts one raw element.
func (m *Metrics) RecordElement(kind string) {
	m.Elements.WithLabelValues(kind).Inc()
}

// RecordDroppedKey counts one tag key dropped for reason.
func (m *Metrics) RecordDroppedKey(reason string) {
	m.DroppedKeys.WithLabelValues(reason).Inc()
}

// RecordShaped counts one record written by the shaper.
func (m *Metrics) RecordShaped() {
	m.Records.WithLabelValues(OutcomeShaped).Inc()
}

// RecordCleaned counts the verdict on one record along with the rules that
// rejected it and the extractor pattern used, if any.
func (m *Metrics) RecordCleaned(keep bool, rejections []string, pattern string) {
	outcome := OutcomeKept
	if !keep {
		outcome = OutcomeDiscarded
	}
	m.Records.WithLabelValues(outcome).Inc()
	for _, rule := range rejections {
		m.Rejections.WithLabelValues(rule).Inc()
	}
	if pattern != "" {
		m.Patterns.WithLabelValues(pattern).Inc()
	}
}

// RecordRun stores the duration of a command. Successful runs also stamp
// the finish time.
func (m *Metrics) RecordRun(command string, d time.Duration, err error) {
	m.Duration.WithLabelValues(command).Set(d.Seconds())
	if err == nil {
		m.LastSuccess.WithLabelValues(command).SetToCurrentTime()
	}
}

// WriteTextfile writes every metric to path atomically. An empty path is
// a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return eris.Wrapf(err, "monitoring: write textfile %s", path)
	}
	return nil
}
