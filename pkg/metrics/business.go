package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var registerMu sync.Mutex

// registerOnce creates the collector for m and registers it with the default registry.
// A metric registered twice (tests, several engines) reuses the first collector.
func registerOnce(m *Metric, subsystem string, log Logger) prometheus.Collector {
	registerMu.Lock()
	defer registerMu.Unlock()
	if m.MetricCollector != nil {
		return m.MetricCollector
	}
	collector := NewMetric(m, subsystem)
	if err := prometheus.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			collector = already.ExistingCollector
		} else if log != nil {
			log.Errorw("metric could not be registered", "metric", m.Name, "err", err)
		}
	}
	m.MetricCollector = collector
	return collector
}

func business(m *Metric) prometheus.Collector {
	return registerOnce(m, "", nil)
}

// ObserveBusinessProcess records the latency of a named step in bp_dur.
func ObserveBusinessProcess(kind, subtype string, start time.Time) {
	business(MetricsBusinessProcess).(*prometheus.HistogramVec).
		WithLabelValues(kind, subtype).Observe(MillisecondsSince(start))
}

func IncReconcile(trigger, result string) {
	business(MetricsReconcile).(*prometheus.CounterVec).WithLabelValues(trigger, result).Inc()
}

func IncRemoteWriteFailure() {
	business(MetricsRemoteWriteFailure).(prometheus.Counter).Inc()
}

func SetListenerActive(listener string, active bool) {
	v := 0.0
	if active {
		v = 1
	}
	business(MetricsListenerState).(*prometheus.GaugeVec).WithLabelValues(listener).Set(v)
}

func IncListenerRetry(listener string) {
	business(MetricsListenerRetry).(*prometheus.CounterVec).WithLabelValues(listener).Inc()
}
