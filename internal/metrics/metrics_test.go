package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordTaskAccumulates(t *testing.T) {
	m := &Metrics{}
	m.MinLatencyMs.Store(int64(^uint64(0) >> 1))
	m.tsChan = make(chan timeSeriesEvent, 8)

	m.RecordTask("mod", "fn", 10, OutcomeSuccess)
	m.RecordTask("mod", "fn", 20, OutcomeDomainException)
	m.RecordTask("mod", "fn", 5, OutcomeOtherException)

	assert.EqualValues(t, 3, m.TotalTasks.Load())
	assert.EqualValues(t, 1, m.SuccessTasks.Load())
	assert.EqualValues(t, 1, m.DomainExceptionTasks.Load())
	assert.EqualValues(t, 1, m.OtherExceptionTasks.Load())
	assert.EqualValues(t, 35, m.TotalLatencyMs.Load())
	assert.EqualValues(t, 5, m.MinLatencyMs.Load())
	assert.EqualValues(t, 20, m.MaxLatencyMs.Load())

	mm := m.MethodStats("mod.fn")
	assert.NotNil(t, mm)
	assert.EqualValues(t, 3, mm.Tasks.Load())
}

func TestRecordCacheOpDropped(t *testing.T) {
	m := &Metrics{}
	m.RecordCacheOpDropped()
	m.RecordCacheOpDropped()
	assert.EqualValues(t, 2, m.CacheOpsDropped.Load())
}
