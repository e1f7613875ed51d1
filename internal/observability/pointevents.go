package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// EventID identifies a tracing point-event kind. The numeric value is
// opaque to this package — it is whatever the native runtime's tracing
// backend expects to see tagged on the event.
type EventID int

const (
	EventInsideWorker EventID = iota
	EventCPUAffinity
	EventGPUAffinity
	EventCPUNumber
)

// Sink emits scoped spans and point events. Both primitives are no-ops
// when tracing is disabled and are safe to call with no backend
// attached — callers never need to branch on whether tracing is on.
type Sink struct {
	enabled func() bool
}

// NewSink builds a Sink whose emissions are gated on enabled(). Passing a
// nil enabled func disables the sink unconditionally.
func NewSink(enabled func() bool) *Sink {
	if enabled == nil {
		enabled = func() bool { return false }
	}
	return &Sink{enabled: enabled}
}

// Common attribute keys for executor spans.
var (
	AttrJobID      = attribute.Key("compss.job.id")
	AttrTaskID     = attribute.Key("compss.task.id")
	AttrMethod     = attribute.Key("compss.method.name")
	AttrModule     = attribute.Key("compss.module.name")
	AttrExitValue  = attribute.Key("compss.exit.value")
	AttrDurationMs = attribute.Key("compss.duration_ms")
)

// EnterSpan starts a scoped span tagged with id if tracing is enabled; the
// returned end func closes it. When tracing is off both are no-ops.
func (s *Sink) EnterSpan(ctx context.Context, name string, id EventID, attrs ...attribute.KeyValue) (context.Context, func()) {
	if !s.enabled() {
		return ctx, func() {}
	}
	attrs = append(attrs, attribute.Int("compss.event.id", int(id)))
	spanCtx, span := Tracer().Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	return spanCtx, func() { span.End() }
}

// PointEvent emits an integer value tagged under id. No-op when tracing
// is disabled or when ctx carries no active span.
func (s *Sink) PointEvent(ctx context.Context, id EventID, value int64) {
	if !s.enabled() {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent("point-event", trace.WithAttributes(
		attribute.Int("compss.event.id", int(id)),
		attribute.Int64("compss.event.value", value),
	))
}

// EmitCPUAffinity emits the observed cpu-affinity point events (the bound
// cpu id and the total bound count). affinityCapable must be the live
// capability probe result, never a cached assumption: emitting this event
// when the platform cannot answer affinity queries would lie about the
// binding state.
func (s *Sink) EmitCPUAffinity(ctx context.Context, affinityCapable bool, cpuIDs []int) {
	if !affinityCapable {
		return
	}
	for _, id := range cpuIDs {
		s.PointEvent(ctx, EventCPUNumber, int64(id))
	}
	s.PointEvent(ctx, EventCPUAffinity, int64(len(cpuIDs)))
}

// EmitGPUAffinity emits a gpu-affinity point event for each bound device
// ordinal.
func (s *Sink) EmitGPUAffinity(ctx context.Context, gpuIDs []int) {
	for _, id := range gpuIDs {
		s.PointEvent(ctx, EventGPUAffinity, int64(id))
	}
}

// SetOutcome tags the active span (if any) with the task's exit value and
// wall-clock duration. Called once a task completes, after EnterSpan has
// already opened the span; no-op when tracing is disabled.
func (s *Sink) SetOutcome(ctx context.Context, exitValue int, durationMs int64) {
	if !s.enabled() {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(AttrExitValue.Int(exitValue), AttrDurationMs.Int64(durationMs))
}
