// Package metrics collects and exposes executor runtime observability
// data.
//
// # Design rationale
//
// Two metric stores coexist in this package:
//
//  1. The in-process Metrics struct (per-method counters + time series)
//     for a lightweight JSON /metrics endpoint a supervisor dashboard can
//     scrape without a Prometheus sidecar.
//  2. A Prometheus registry (prometheus.go) for scraping by external
//     monitoring systems.
//
// # Concurrency — hot path
//
// RecordTask is called from the executor loop on every EXECUTE_TASK and
// must be as fast as possible. It uses atomic increments for global
// counters and dispatches a lightweight event onto a buffered channel
// (tsChan) for the time-series worker to process asynchronously. This
// avoids holding any lock on the hot path.
//
// The per-method MethodMetrics struct also uses atomic operations
// exclusively; the sync.Map that stores the per-method entries is
// read-heavy and write-once-per-new-method, which is the ideal use case
// for sync.Map.
//
// # Invariants
//
//   - TotalTasks == SuccessTasks + DomainExceptionTasks + OtherExceptionTasks
//     (maintained by RecordTask).
//   - The time-series ring buffer holds at most timeSeriesBucketCount
//     buckets (24 * 60 = 1440 for the last 24 hours at 1-minute
//     granularity).
//   - tsChan capacity is 8192 events; events dropped when full are counted
//     in tsDroppedEvents for observability. CacheOpsDropped counts the
//     unrelated cache-op-queue-full case from the cache tracker.
package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const (
	timeSeriesBucketDuration = time.Minute
	timeSeriesBucketCount    = 24 * 60
)

// TimeSeriesBucket stores metrics for a single time bucket.
type TimeSeriesBucket struct {
	Timestamp    time.Time
	Tasks        int64
	Errors       int64
	TotalLatency int64
	Count        int64
}

// Metrics collects and exposes executor-loop metrics.
type Metrics struct {
	TotalTasks            atomic.Int64
	SuccessTasks          atomic.Int64
	DomainExceptionTasks  atomic.Int64
	OtherExceptionTasks   atomic.Int64
	PingsHandled          atomic.Int64

	TotalLatencyMs atomic.Int64
	MinLatencyMs   atomic.Int64
	MaxLatencyMs   atomic.Int64

	CPUBindFailures atomic.Int64
	CacheOpsDropped atomic.Int64

	methodMetrics sync.Map // "module.method" -> *MethodMetrics

	timeSeriesMu    sync.RWMutex
	timeSeries      []*TimeSeriesBucket
	tsChan          chan timeSeriesEvent
	tsDroppedEvents atomic.Int64

	startTime time.Time
}

type timeSeriesEvent struct {
	durationMs int64
	isError    bool
}

// MethodMetrics tracks metrics for a single module.method pair.
type MethodMetrics struct {
	Tasks    atomic.Int64
	Success  atomic.Int64
	Failures atomic.Int64
	TotalMs  atomic.Int64
	MinMs    atomic.Int64
	MaxMs    atomic.Int64
}

var global = &Metrics{startTime: time.Now()}

func init() {
	global.MinLatencyMs.Store(int64(^uint64(0) >> 1))
	global.tsChan = make(chan timeSeriesEvent, 8192)
	global.initTimeSeries()
	go global.processTimeSeriesLoop()
}

func (m *Metrics) initTimeSeries() {
	m.timeSeriesMu.Lock()
	defer m.timeSeriesMu.Unlock()

	now := time.Now().Truncate(timeSeriesBucketDuration)
	m.timeSeries = make([]*TimeSeriesBucket, timeSeriesBucketCount)
	for i := 0; i < timeSeriesBucketCount; i++ {
		m.timeSeries[i] = &TimeSeriesBucket{
			Timestamp: now.Add(time.Duration(i-(timeSeriesBucketCount-1)) * timeSeriesBucketDuration),
		}
	}
}

// Global returns the global metrics instance.
func Global() *Metrics { return global }

// StartTime returns when the metrics system was initialized.
func StartTime() time.Time { return global.startTime }

// TaskOutcome classifies how an EXECUTE_TASK finished, for RecordTask.
type TaskOutcome int

const (
	OutcomeSuccess TaskOutcome = iota
	OutcomeDomainException
	OutcomeOtherException
)

// RecordTask records one completed EXECUTE_TASK.
func (m *Metrics) RecordTask(module, method string, durationMs int64, outcome TaskOutcome) {
	m.TotalTasks.Add(1)
	switch outcome {
	case OutcomeSuccess:
		m.SuccessTasks.Add(1)
	case OutcomeDomainException:
		m.DomainExceptionTasks.Add(1)
	default:
		m.OtherExceptionTasks.Add(1)
	}

	m.TotalLatencyMs.Add(durationMs)
	updateMin(&m.MinLatencyMs, durationMs)
	updateMax(&m.MaxLatencyMs, durationMs)

	mm := m.getMethodMetrics(module + "." + method)
	mm.Tasks.Add(1)
	if outcome == OutcomeSuccess {
		mm.Success.Add(1)
	} else {
		mm.Failures.Add(1)
	}
	mm.TotalMs.Add(durationMs)
	updateMin(&mm.MinMs, durationMs)
	updateMax(&mm.MaxMs, durationMs)

	m.recordTimeSeries(durationMs, outcome != OutcomeSuccess)
	RecordPrometheusTask(module, method, durationMs, outcome)
}

// RecordPing counts a handled PING command.
func (m *Metrics) RecordPing() {
	m.PingsHandled.Add(1)
	RecordPrometheusPing()
}

// RecordCPUBindFailure counts a non-fatal CPU-affinity binding failure.
func (m *Metrics) RecordCPUBindFailure() {
	m.CPUBindFailures.Add(1)
	RecordPrometheusCPUBindFailure()
}

// RecordCacheOpDropped counts a cache-tracker op dropped because its
// queue was full.
func (m *Metrics) RecordCacheOpDropped() {
	m.CacheOpsDropped.Add(1)
	RecordPrometheusCacheOpDropped()
}

func (m *Metrics) recordTimeSeries(durationMs int64, isError bool) {
	select {
	case m.tsChan <- timeSeriesEvent{durationMs: durationMs, isError: isError}:
	default:
		m.tsDroppedEvents.Add(1)
	}
}

func (m *Metrics) processTimeSeriesLoop() {
	for evt := range m.tsChan {
		m.applyTimeSeriesEvent(evt.durationMs, evt.isError)
	}
}

func (m *Metrics) applyTimeSeriesEvent(durationMs int64, isError bool) {
	m.timeSeriesMu.Lock()
	defer m.timeSeriesMu.Unlock()

	now := time.Now().Truncate(timeSeriesBucketDuration)

	if len(m.timeSeries) > 0 {
		lastBucket := m.timeSeries[len(m.timeSeries)-1]
		bucketsDiff := int(now.Sub(lastBucket.Timestamp) / timeSeriesBucketDuration)

		if bucketsDiff > 0 {
			if bucketsDiff >= timeSeriesBucketCount {
				m.timeSeries = make([]*TimeSeriesBucket, timeSeriesBucketCount)
				for i := 0; i < timeSeriesBucketCount; i++ {
					m.timeSeries[i] = &TimeSeriesBucket{
						Timestamp: now.Add(time.Duration(i-(timeSeriesBucketCount-1)) * timeSeriesBucketDuration),
					}
				}
			} else {
				m.timeSeries = m.timeSeries[bucketsDiff:]
				for i := 0; i < bucketsDiff; i++ {
					m.timeSeries = append(m.timeSeries, &TimeSeriesBucket{
						Timestamp: lastBucket.Timestamp.Add(time.Duration(i+1) * timeSeriesBucketDuration),
					})
				}
			}
		}
	}

	if len(m.timeSeries) > 0 {
		bucket := m.timeSeries[len(m.timeSeries)-1]
		bucket.Tasks++
		bucket.TotalLatency += durationMs
		bucket.Count++
		if isError {
			bucket.Errors++
		}
	}
}

func (m *Metrics) getMethodMetrics(key string) *MethodMetrics {
	if v, ok := m.methodMetrics.Load(key); ok {
		return v.(*MethodMetrics)
	}
	mm := &MethodMetrics{}
	mm.MinMs.Store(int64(^uint64(0) >> 1))
	actual, _ := m.methodMetrics.LoadOrStore(key, mm)
	return actual.(*MethodMetrics)
}

// MethodStats returns metrics for a specific module.method (nil if none
// recorded yet).
func (m *Metrics) MethodStats(key string) *MethodMetrics {
	if v, ok := m.methodMetrics.Load(key); ok {
		return v.(*MethodMetrics)
	}
	return nil
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (m *Metrics) Snapshot() map[string]interface{} {
	total := m.TotalTasks.Load()
	avgLatency := float64(0)
	if total > 0 {
		avgLatency = float64(m.TotalLatencyMs.Load()) / float64(total)
	}

	minLatency := m.MinLatencyMs.Load()
	if minLatency == int64(^uint64(0)>>1) {
		minLatency = 0
	}

	return map[string]interface{}{
		"uptime_seconds": int64(time.Since(m.startTime).Seconds()),
		"tasks": map[string]interface{}{
			"total":             total,
			"success":           m.SuccessTasks.Load(),
			"domain_exception":  m.DomainExceptionTasks.Load(),
			"other_exception":   m.OtherExceptionTasks.Load(),
			"pings":             m.PingsHandled.Load(),
		},
		"latency_ms": map[string]interface{}{
			"avg": avgLatency,
			"min": minLatency,
			"max": m.MaxLatencyMs.Load(),
		},
		"cpu_bind_failures":  m.CPUBindFailures.Load(),
		"cache_ops_dropped":  m.CacheOpsDropped.Load(),
		"ts_dropped_events":  m.tsDroppedEvents.Load(),
	}
}

// JSONHandler returns an HTTP handler that exposes metrics in JSON.
func (m *Metrics) JSONHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(m.Snapshot())
	})
}

// TimeSeries returns minute-level time-series data for the last 24 hours.
func (m *Metrics) TimeSeries() []map[string]interface{} {
	m.timeSeriesMu.RLock()
	defer m.timeSeriesMu.RUnlock()

	result := make([]map[string]interface{}, len(m.timeSeries))
	for i, bucket := range m.timeSeries {
		avgDuration := float64(0)
		if bucket.Count > 0 {
			avgDuration = float64(bucket.TotalLatency) / float64(bucket.Count)
		}
		result[i] = map[string]interface{}{
			"timestamp":    bucket.Timestamp.Format(time.RFC3339),
			"tasks":        bucket.Tasks,
			"errors":       bucket.Errors,
			"avg_duration": avgDuration,
		}
	}
	return result
}

func updateMin(target *atomic.Int64, value int64) {
	for {
		old := target.Load()
		if value >= old {
			return
		}
		if target.CompareAndSwap(old, value) {
			return
		}
	}
}

func updateMax(target *atomic.Int64, value int64) {
	for {
		old := target.Load()
		if value <= old {
			return
		}
		if target.CompareAndSwap(old, value) {
			return
		}
	}
}
