package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// HistogramBuckets are in milliseconds. The upper range covers a ledger query and a remote
// merge-write each hitting reconcile.operation_timeout.
var HistogramBuckets = []float64{
	5, 10, 25, 50, 100, 250, 500,
	1000, 2500, 5000, 10000, 15000, 30000, 45000,
}

// Metric describes one collector; NewMetric builds it from Type.
type Metric struct {
	MetricCollector prometheus.Collector
	ID              string
	Name            string
	Description     string
	Type            string
	Args            []string
}

// NewMetric returns nil for an unknown Type.
func NewMetric(m *Metric, subsystem string) prometheus.Collector {
	switch m.Type {
	case "counter":
		return prometheus.NewCounter(prometheus.CounterOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description})
	case "counter_vec":
		return prometheus.NewCounterVec(prometheus.CounterOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description}, m.Args)
	case "gauge_vec":
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description}, m.Args)
	case "histogram_vec":
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      m.Name,
			Help:      m.Description,
			Buckets:   HistogramBuckets,
		}, m.Args)
	case "summary_vec":
		return prometheus.NewSummaryVec(prometheus.SummaryOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description}, m.Args)
	}
	return nil
}

var MetricsBusinessProcess = &Metric{
	ID:          "bpDur",
	Name:        "bp_dur",
	Description: "process latency in milliseconds",
	Type:        "histogram_vec",
	Args:        []string{"type", "subtype"},
}

var MetricsReconcile = &Metric{
	ID:          "reconcileTotal",
	Name:        "reconcile_total",
	Description: "Reconciliation passes partitioned by trigger and result.",
	Type:        "counter_vec",
	Args:        []string{"trigger", "result"},
}

var MetricsRemoteWriteFailure = &Metric{
	ID:          "remoteWriteFailures",
	Name:        "remote_write_failures_total",
	Description: "Merge-writes to the remote record store that failed and were deferred to the next pass.",
	Type:        "counter",
}

var MetricsListenerState = &Metric{
	ID:          "listenerActive",
	Name:        "listener_active",
	Description: "1 when the listener has a live subscription, 0 when idle.",
	Type:        "gauge_vec",
	Args:        []string{"listener"},
}

var MetricsListenerRetry = &Metric{
	ID:          "listenerRetries",
	Name:        "listener_retries_total",
	Description: "Listener activation attempts made from the idle retry timer.",
	Type:        "counter_vec",
	Args:        []string{"listener"},
}

// BusinessMetrics are registered by NewPrometheus next to the HTTP metrics.
var BusinessMetrics = []*Metric{
	MetricsBusinessProcess,
	MetricsReconcile,
	MetricsRemoteWriteFailure,
	MetricsListenerState,
	MetricsListenerRetry,
}

const (
	RefererKey = "X-Referer"
)
