package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestBusinessMetrics_RegisterOnceAndCount(t *testing.T) {
	IncReconcile("refresh", "ok")
	IncReconcile("refresh", "ok")
	counter := MetricsReconcile.MetricCollector.(*prometheus.CounterVec)
	require.GreaterOrEqual(t, testutil.ToFloat64(counter.WithLabelValues("refresh", "ok")), 2.0)

	// second registration path returns the same collector
	require.Same(t, MetricsReconcile.MetricCollector, registerOnce(MetricsReconcile, "", nil))
}

func TestBusinessMetrics_ListenerGauge(t *testing.T) {
	SetListenerActive("ledger", true)
	gauge := MetricsListenerState.MetricCollector.(*prometheus.GaugeVec)
	require.Equal(t, 1.0, testutil.ToFloat64(gauge.WithLabelValues("ledger")))

	SetListenerActive("ledger", false)
	require.Equal(t, 0.0, testutil.ToFloat64(gauge.WithLabelValues("ledger")))
}

func TestObserveBusinessProcess(t *testing.T) {
	require.NotPanics(t, func() {
		ObserveBusinessProcess("reconcile", "merge", time.Now())
	})
}
