package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics wraps prometheus collectors for executor-loop metrics.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	tasksTotal          *prometheus.CounterVec
	pingsTotal          prometheus.Counter
	cpuBindFailures     prometheus.Counter
	cacheOpsDropped     prometheus.Counter

	taskDuration *prometheus.HistogramVec
	uptime       prometheus.GaugeFunc
}

// Default histogram buckets for task duration, in milliseconds.
var defaultBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

var promMetrics *PrometheusMetrics

// InitPrometheus initializes the Prometheus metrics subsystem.
func InitPrometheus(namespace string, buckets []float64) {
	if len(buckets) == 0 {
		buckets = defaultBuckets
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	pm := &PrometheusMetrics{
		registry: registry,

		tasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_total",
				Help:      "Total number of EXECUTE_TASK commands processed, by outcome",
			},
			[]string{"module", "method", "outcome"},
		),

		pingsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pings_total",
				Help:      "Total number of PING commands answered",
			},
		),

		cpuBindFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cpu_bind_failures_total",
				Help:      "Total non-fatal CPU affinity binding failures",
			},
		),

		cacheOpsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_ops_dropped_total",
				Help:      "Total cache-tracker ops dropped because the op queue was full",
			},
		),

		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "task_duration_milliseconds",
				Help:      "Duration of EXECUTE_TASK processing in milliseconds",
				Buckets:   buckets,
			},
			[]string{"module", "method"},
		),
	}

	pm.uptime = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Time since the executor process started",
		},
		func() float64 {
			return time.Since(StartTime()).Seconds()
		},
	)

	registry.MustRegister(
		pm.tasksTotal,
		pm.pingsTotal,
		pm.cpuBindFailures,
		pm.cacheOpsDropped,
		pm.taskDuration,
		pm.uptime,
	)

	promMetrics = pm
}

func outcomeLabel(outcome TaskOutcome) string {
	switch outcome {
	case OutcomeSuccess:
		return "success"
	case OutcomeDomainException:
		return "domain_exception"
	default:
		return "other_exception"
	}
}

// RecordPrometheusTask records one task's outcome and duration.
func RecordPrometheusTask(module, method string, durationMs int64, outcome TaskOutcome) {
	if promMetrics == nil {
		return
	}
	promMetrics.tasksTotal.WithLabelValues(module, method, outcomeLabel(outcome)).Inc()
	promMetrics.taskDuration.WithLabelValues(module, method).Observe(float64(durationMs))
}

// RecordPrometheusPing records a handled PING.
func RecordPrometheusPing() {
	if promMetrics == nil {
		return
	}
	promMetrics.pingsTotal.Inc()
}

// RecordPrometheusCPUBindFailure records a non-fatal affinity failure.
func RecordPrometheusCPUBindFailure() {
	if promMetrics == nil {
		return
	}
	promMetrics.cpuBindFailures.Inc()
}

// RecordPrometheusCacheOpDropped records a dropped cache-tracker op.
func RecordPrometheusCacheOpDropped() {
	if promMetrics == nil {
		return
	}
	promMetrics.cacheOpsDropped.Inc()
}

// PrometheusHandler returns an HTTP handler for Prometheus scraping.
func PrometheusHandler() http.Handler {
	if promMetrics == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("prometheus metrics not initialized"))
		})
	}
	return promhttp.HandlerFor(promMetrics.registry, promhttp.HandlerOpts{})
}

// PrometheusRegistry returns the prometheus registry (for custom
// collectors registered by cmd/worker or cmd/supervisor).
func PrometheusRegistry() *prometheus.Registry {
	if promMetrics == nil {
		return nil
	}
	return promMetrics.registry
}
