package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector(t *testing.T) {
	collector := NewCollector(prometheus.NewRegistry())

	require.NotNil(t, collector)
	assert.NotNil(t, collector.saves)
	assert.NotNil(t, collector.saveFailures)
	assert.NotNil(t, collector.savesDropped)
	assert.NotNil(t, collector.savesCoalesced)
	assert.NotNil(t, collector.saveLatency)
	assert.NotNil(t, collector.fallbackWrites)
	assert.NotNil(t, collector.fallbackHits)
	assert.NotNil(t, collector.publishes)
	assert.NotNil(t, collector.publishFailures)
	assert.NotNil(t, collector.tasksCompleted)
	assert.NotNil(t, collector.tasksFailed)
	assert.NotNil(t, collector.tasksCancelled)
	assert.NotNil(t, collector.tasksRunning)
	assert.NotNil(t, collector.taskDuration)
}

func TestSaveCounters(t *testing.T) {
	collector := NewCollector(prometheus.NewRegistry())

	collector.RecordSave(0.02)
	collector.RecordSave(0.05)
	collector.RecordSaveFailure()
	collector.RecordSaveDropped()
	collector.RecordAutosaveCoalesced()

	assert.Equal(t, float64(2), testutil.ToFloat64(collector.saves))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.saveFailures))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.savesDropped))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.savesCoalesced))
}

func TestFallbackAndPublishCounters(t *testing.T) {
	collector := NewCollector(prometheus.NewRegistry())

	collector.RecordFallbackWrite()
	collector.RecordFallbackHit()
	collector.RecordPublish()
	collector.RecordPublishFailure()

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.fallbackWrites))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.fallbackHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.publishes))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.publishFailures))
}

func TestTaskGaugeTracksRunningTasks(t *testing.T) {
	collector := NewCollector(prometheus.NewRegistry())

	collector.RecordTaskStarted()
	collector.RecordTaskStarted()
	assert.Equal(t, float64(2), testutil.ToFloat64(collector.tasksRunning))

	collector.RecordTaskCompleted(1.5)
	collector.RecordTaskCancelled()
	assert.Equal(t, float64(0), testutil.ToFloat64(collector.tasksRunning))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.tasksCompleted))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.tasksCancelled))

	collector.RecordTaskStarted()
	collector.RecordTaskFailed()
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.tasksFailed))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var collector *Collector

	assert.NotPanics(t, func() {
		collector.RecordSave(0.1)
		collector.RecordSaveFailure()
		collector.RecordSaveDropped()
		collector.RecordAutosaveCoalesced()
		collector.RecordFallbackWrite()
		collector.RecordFallbackHit()
		collector.RecordPublish()
		collector.RecordPublishFailure()
		collector.RecordTaskStarted()
		collector.RecordTaskCompleted(0.1)
		collector.RecordTaskFailed()
		collector.RecordTaskCancelled()
	})
}
