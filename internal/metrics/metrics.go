// Package metrics exports probe outcomes as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hamed0406/readycheck/internal/probe"
	"github.com/hamed0406/readycheck/internal/report"
)

const namespace = "readycheck"

// Metrics is safe for concurrent use; the runner calls ObserveOutcome from
// its worker goroutines.
type Metrics struct {
	checks      *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	up          *prometheus.GaugeVec
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	healthy     prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "checks_total",
			Help:      "Probe executions by outcome status.",
		}, []string{"probe", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "duration_seconds",
			Help:      "Probe latency.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"probe"}),
		up: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "up",
			Help:      "1 if the last execution of the probe succeeded, else 0.",
		}, []string{"probe"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed runs by overall health.",
		}, []string{"healthy"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a full run.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		healthy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "healthy",
			Help:      "1 if every probe of the last run succeeded, else 0.",
		}),
	}
	reg.MustRegister(m.checks, m.duration, m.up, m.runs, m.runDuration, m.healthy)
	return m
}

func (m *Metrics) ObserveOutcome(o probe.Outcome) {
	m.checks.WithLabelValues(o.Probe, o.Status.String()).Inc()
	m.duration.WithLabelValues(o.Probe).Observe(o.Latency.Seconds())
	m.up.WithLabelValues(o.Probe).Set(boolFloat(o.OK()))
}

func (m *Metrics) ObserveReport(r report.Report) {
	if r.Healthy {
		m.runs.WithLabelValues("true").Inc()
	} else {
		m.runs.WithLabelValues("false").Inc()
	}
	m.runDuration.Observe(r.Duration().Seconds())
	m.healthy.Set(boolFloat(r.Healthy))
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
