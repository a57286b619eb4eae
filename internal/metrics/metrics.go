// Package metrics defines the Prometheus instrumentation for the watch
// daemon. All collectors live on one Metrics value so tests can register
// against a private registry instead of the process-global default.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pidwatch"

// Metrics bundles every collector the daemon updates.
type Metrics struct {
	Announcements  prometheus.Counter
	Malformed      prometheus.Counter
	Reopens        prometheus.Counter
	ChecksRun      prometheus.Counter
	AlertsFired    prometheus.Counter
	NotifyFailures prometheus.Counter
	TrackedPIDs    prometheus.GaugeFunc
	DeadNotified   prometheus.GaugeFunc
}

// Counts supplies the current registry sizes for the gauges.
type Counts interface {
	Count() int
	DeadNotifiedCount() int
}

// New builds and registers all collectors on reg.
func New(reg prometheus.Registerer, counts Counts) *Metrics {
	m := &Metrics{
		Announcements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "announcements_total",
			Help:      "Valid PID announcements processed.",
		}),
		Malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_records_total",
			Help:      "Records received that did not parse as a positive PID.",
		}),
		Reopens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fifo_reopens_total",
			Help:      "Times the FIFO read end was reopened after hangup or error.",
		}),
		ChecksRun: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "liveness_checks_total",
			Help:      "Completed liveness check cycles.",
		}),
		AlertsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dead_alerts_total",
			Help:      "Confirmed-dead alerts attempted.",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_failures_total",
			Help:      "Alert deliveries that reported an error.",
		}),
	}

	m.TrackedPIDs = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tracked_pids",
		Help:      "Distinct PIDs currently tracked.",
	}, func() float64 { return float64(counts.Count()) })

	m.DeadNotified = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "dead_notified_pids",
		Help:      "PIDs with an outstanding dead alert.",
	}, func() float64 { return float64(counts.DeadNotifiedCount()) })

	reg.MustRegister(
		m.Announcements, m.Malformed, m.Reopens,
		m.ChecksRun, m.AlertsFired, m.NotifyFailures,
		m.TrackedPIDs, m.DeadNotified,
	)
	return m
}
