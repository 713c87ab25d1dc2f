// ============================================================================
// Metrics - Prometheus instrumentation for the draft core
// ============================================================================
//
// Package: internal/metrics
// Purpose: Collects and exposes operational metrics for autosave,
// publishing, and task execution.
//
// Metric groups:
//
//   Saves (Counter/Histogram):
//     - draft_saves_total / draft_save_failures_total / draft_saves_dropped_total
//     - autosaves_coalesced_total: debounced writes replaced by a newer edit
//     - draft_save_latency_seconds: remote write latency distribution
//
//   Fallback (Counter):
//     - fallback_writes_total: local safety-net copies written
//     - fallback_hits_total: loads served from the local copy
//
//   Publish (Counter):
//     - publishes_total / publish_failures_total
//
//   Tasks (Counter/Gauge/Histogram):
//     - tasks_completed_total / tasks_failed_total / tasks_cancelled_total
//     - tasks_running: currently running tasks
//     - task_duration_seconds: wall-clock task duration distribution
//
// ============================================================================

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the Prometheus instruments for the draft core.
// All Record methods are safe to call on a nil *Collector, so components can
// treat instrumentation as optional.
type Collector struct {
	// save metrics
	saves          prometheus.Counter
	saveFailures   prometheus.Counter
	savesDropped   prometheus.Counter
	savesCoalesced prometheus.Counter
	saveLatency    prometheus.Histogram

	// fallback metrics
	fallbackWrites prometheus.Counter
	fallbackHits   prometheus.Counter

	// publish metrics
	publishes       prometheus.Counter
	publishFailures prometheus.Counter

	// task metrics
	tasksCompleted prometheus.Counter
	tasksFailed    prometheus.Counter
	tasksCancelled prometheus.Counter
	tasksRunning   prometheus.Gauge
	taskDuration   prometheus.Histogram
}

// NewCollector creates and registers all instruments. A nil registerer
// falls back to the default Prometheus registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		saves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nexus_draft_saves_total",
			Help: "Total number of successful remote draft saves",
		}),
		saveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nexus_draft_save_failures_total",
			Help: "Total number of failed remote draft saves",
		}),
		savesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nexus_draft_saves_dropped_total",
			Help: "Total number of save requests dropped because a save was in flight",
		}),
		savesCoalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nexus_autosaves_coalesced_total",
			Help: "Total number of debounced saves superseded by a newer edit",
		}),
		saveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nexus_draft_save_latency_seconds",
			Help:    "Remote draft save latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		fallbackWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nexus_fallback_writes_total",
			Help: "Total number of local fallback copies written",
		}),
		fallbackHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nexus_fallback_hits_total",
			Help: "Total number of draft loads served from the local fallback",
		}),
		publishes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nexus_publishes_total",
			Help: "Total number of successful campaign publishes",
		}),
		publishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nexus_publish_failures_total",
			Help: "Total number of failed campaign publishes",
		}),
		tasksCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nexus_tasks_completed_total",
			Help: "Total number of tasks that completed successfully",
		}),
		tasksFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nexus_tasks_failed_total",
			Help: "Total number of tasks that failed",
		}),
		tasksCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nexus_tasks_cancelled_total",
			Help: "Total number of tasks that were cancelled",
		}),
		tasksRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nexus_tasks_running",
			Help: "Current number of running tasks",
		}),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nexus_task_duration_seconds",
			Help:    "Task wall-clock duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.saves, c.saveFailures, c.savesDropped, c.savesCoalesced, c.saveLatency,
		c.fallbackWrites, c.fallbackHits,
		c.publishes, c.publishFailures,
		c.tasksCompleted, c.tasksFailed, c.tasksCancelled, c.tasksRunning, c.taskDuration,
	)

	return c
}

// RecordSave records a successful remote save and its latency.
func (c *Collector) RecordSave(latencySeconds float64) {
	if c == nil {
		return
	}
	c.saves.Inc()
	c.saveLatency.Observe(latencySeconds)
}

// RecordSaveFailure records a failed remote save.
func (c *Collector) RecordSaveFailure() {
	if c == nil {
		return
	}
	c.saveFailures.Inc()
}

// RecordSaveDropped records a save request dropped by the in-progress guard.
func (c *Collector) RecordSaveDropped() {
	if c == nil {
		return
	}
	c.savesDropped.Inc()
}

// RecordAutosaveCoalesced records a pending debounced save replaced by a
// newer edit.
func (c *Collector) RecordAutosaveCoalesced() {
	if c == nil {
		return
	}
	c.savesCoalesced.Inc()
}

// RecordFallbackWrite records a local fallback copy written.
func (c *Collector) RecordFallbackWrite() {
	if c == nil {
		return
	}
	c.fallbackWrites.Inc()
}

// RecordFallbackHit records a load served from the local fallback.
func (c *Collector) RecordFallbackHit() {
	if c == nil {
		return
	}
	c.fallbackHits.Inc()
}

// RecordPublish records a successful publish.
func (c *Collector) RecordPublish() {
	if c == nil {
		return
	}
	c.publishes.Inc()
}

// RecordPublishFailure records a failed publish.
func (c *Collector) RecordPublishFailure() {
	if c == nil {
		return
	}
	c.publishFailures.Inc()
}

// RecordTaskStarted marks a task as running.
func (c *Collector) RecordTaskStarted() {
	if c == nil {
		return
	}
	c.tasksRunning.Inc()
}

// RecordTaskCompleted records a successful task and its duration.
func (c *Collector) RecordTaskCompleted(durationSeconds float64) {
	if c == nil {
		return
	}
	c.tasksRunning.Dec()
	c.tasksCompleted.Inc()
	c.taskDuration.Observe(durationSeconds)
}

// RecordTaskFailed records a failed task.
func (c *Collector) RecordTaskFailed() {
	if c == nil {
		return
	}
	c.tasksRunning.Dec()
	c.tasksFailed.Inc()
}

// RecordTaskCancelled records a cancelled task.
func (c *Collector) RecordTaskCancelled() {
	if c == nil {
		return
	}
	c.tasksRunning.Dec()
	c.tasksCancelled.Inc()
}
