package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSinkNoopWhenDisabled(t *testing.T) {
	s := NewSink(func() bool { return false })
	ctx, end := s.EnterSpan(context.Background(), "task", EventInsideWorker)
	assert.NotNil(t, end)
	end()
	// PointEvent and EmitCPUAffinity must not panic with no backend attached.
	s.PointEvent(ctx, EventCPUNumber, 3)
	s.EmitCPUAffinity(ctx, true, []int{0, 1})
	s.EmitGPUAffinity(ctx, []int{0})
}

func TestEmitCPUAffinityNoopWhenIncapable(t *testing.T) {
	s := NewSink(func() bool { return true })
	// Must not emit (and must not panic) when the platform cannot answer
	// affinity queries, even though tracing itself is enabled.
	s.EmitCPUAffinity(context.Background(), false, []int{0, 1, 2})
}

func TestNilEnabledDefaultsToDisabled(t *testing.T) {
	s := NewSink(nil)
	_, end := s.EnterSpan(context.Background(), "x", EventInsideWorker)
	end()
}

func TestSetOutcomeNoopWhenDisabled(t *testing.T) {
	s := NewSink(func() bool { return false })
	// Must not panic even with no span in ctx.
	s.SetOutcome(context.Background(), 0, 12)
}

func TestSetOutcomeOnActiveSpan(t *testing.T) {
	s := NewSink(func() bool { return true })
	ctx, end := s.EnterSpan(context.Background(), "task", EventInsideWorker)
	defer end()
	// Must not panic while a span is active.
	s.SetOutcome(ctx, 2, 45)
}
