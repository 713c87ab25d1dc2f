// ============================================================================
// Task Runner - Cancellable Async Work Unit
// ============================================================================
//
// Package: internal/task
// Purpose: Executes one asynchronous operation at a time per Runner,
// exposing cooperative cancellation and progress reporting to the caller and
// normalizing every outcome into a single State value.
//
// Lifecycle:
//   Idle
//      | Run(ctx, work)
//   Running  -- UpdateProgress / UpdateStatus via Controls
//      | work settles (or Cancel observed)
//   Completed / Failed / Cancelled   (terminal)
//      | Reset()
//   Idle
//
// Cancellation model:
//   Each Run derives its own context.Context; Cancel() cancels it and marks
//   the state Cancelled immediately, whether or not the work function has
//   observed the signal yet. Cancellation is cooperative: the work function
//   must check its context at suspension points. The runner never preempts
//   synchronous code.
//
// Outcome classification when work settles:
//   - run context aborted, or error is ErrCancelled / context.Canceled
//       -> Cancelled, OnCancel fires (never OnError)
//   - any other error -> Failed, OnError fires with the original error
//   - nil error -> Completed with progress pinned to 100, OnComplete fires
//   The original error is returned to the caller in both failure cases so
//   standard error handling still works.
//
// Concurrency:
//   One logical invocation per Runner. Starting a new Run before the
//   previous one settles supersedes the old run: its context is cancelled
//   and its eventual outcome no longer touches shared state (generation
//   counter). Callbacks are invoked outside the runner's lock.
//
// ============================================================================

package task

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oklahomahail/nexus2-sub008/internal/metrics"
)

// Terminal status labels.
const (
	StatusCompleted = "Completed"
	StatusFailed    = "Failed"
	StatusCancelled = "Cancelled"
	statusRunning   = "Running"
)

var (
	// ErrCancelled is the conventional cancellation error. Work functions
	// may return it (or context.Canceled) to signal a cooperative stop.
	ErrCancelled = errors.New("task cancelled")

	// ErrClosed is returned by Run on a runner that has been closed.
	ErrClosed = errors.New("task runner closed")
)

// State is a point-in-time snapshot of a runner.
// At most one of Result and Err is set; both are cleared when a new run
// starts.
type State[R any] struct {
	Running  bool
	Progress *int // 0-100; nil means indeterminate
	Status   string
	Result   *R
	Err      error
}

// Controls is handed to the work function so it can report progress.
// Calls from a superseded or cancelled run are ignored.
type Controls struct {
	update func(pct int, status string, hasStatus bool)
	status func(status string)
}

// UpdateProgress reports completion percentage (clamped to 0-100) and an
// optional phase label.
func (c *Controls) UpdateProgress(pct int, status ...string) {
	if len(status) > 0 {
		c.update(pct, status[0], true)
		return
	}
	c.update(pct, "", false)
}

// UpdateStatus reports a phase label without touching progress.
func (c *Controls) UpdateStatus(status string) {
	c.status(status)
}

// Work is a cancellable unit of work. It must observe ctx at suspension
// points and should return ErrCancelled (or ctx.Err()) once cancelled.
type Work[R any] func(ctx context.Context, c *Controls) (R, error)

// Option configures a Runner.
type Option[R any] func(*Runner[R])

// WithInitialStatus sets the status label for the idle state. Reset restores
// it.
func WithInitialStatus[R any](status string) Option[R] {
	return func(r *Runner[R]) { r.initialStatus = status }
}

// WithOnComplete registers a callback fired exactly once per successful run.
func WithOnComplete[R any](fn func(R)) Option[R] {
	return func(r *Runner[R]) { r.onComplete = fn }
}

// WithOnError registers a callback fired exactly once per failed run, with
// the original error.
func WithOnError[R any](fn func(error)) Option[R] {
	return func(r *Runner[R]) { r.onError = fn }
}

// WithOnCancel registers a callback fired exactly once per cancelled run,
// instead of the error callback.
func WithOnCancel[R any](fn func()) Option[R] {
	return func(r *Runner[R]) { r.onCancel = fn }
}

// WithOnChange registers a callback observing every state transition,
// typically driving a progress/cancel UI.
func WithOnChange[R any](fn func(State[R])) Option[R] {
	return func(r *Runner[R]) { r.onChange = fn }
}

// WithCollector wires optional Prometheus instrumentation.
func WithCollector[R any](c *metrics.Collector) Option[R] {
	return func(r *Runner[R]) { r.collector = c }
}

// Runner executes one cancellable unit of work at a time.
type Runner[R any] struct {
	mu            sync.Mutex
	state         State[R]
	initialStatus string
	gen           uint64 // incremented per Run; stale runs are ignored
	cancel        context.CancelFunc
	cancelled     bool // Cancel observed for the current generation
	closed        bool

	onComplete func(R)
	onError    func(error)
	onCancel   func()
	onChange   func(State[R])
	collector  *metrics.Collector
}

// NewRunner creates an idle runner.
func NewRunner[R any](opts ...Option[R]) *Runner[R] {
	r := &Runner[R]{}
	for _, opt := range opts {
		opt(r)
	}
	r.state = State[R]{Status: r.initialStatus}
	return r
}

// State returns a snapshot. The snapshot's pointers are copies; mutating
// them does not affect the runner.
func (r *Runner[R]) State() State[R] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneState(r.state)
}

// Run executes work and blocks until it settles. Only one invocation should
// be in flight per runner; a new call supersedes the previous one and starts
// a fresh cancellation context.
func (r *Runner[R]) Run(ctx context.Context, work Work[R]) (R, error) {
	var zero R

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return zero, ErrClosed
	}
	if r.cancel != nil {
		r.cancel() // supersede the previous run
	}
	r.gen++
	gen := r.gen
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.cancelled = false
	start := 0
	r.state = State[R]{Running: true, Progress: &start, Status: statusRunning}
	snap := cloneState(r.state)
	onChange := r.onChange
	r.mu.Unlock()

	r.collector.RecordTaskStarted()
	if onChange != nil {
		onChange(snap)
	}

	controls := &Controls{
		update: func(pct int, status string, hasStatus bool) {
			r.report(gen, &pct, status, hasStatus)
		},
		status: func(status string) {
			r.report(gen, nil, status, true)
		},
	}

	began := time.Now()
	result, err := work(runCtx, controls)
	ctxErr := runCtx.Err() // read before releasing the context below
	cancel()

	r.mu.Lock()
	if gen != r.gen {
		// superseded; the newer run owns the state now
		r.mu.Unlock()
		r.collector.RecordTaskCancelled()
		if err != nil {
			return zero, err
		}
		return result, nil
	}

	cancelled := r.cancelled ||
		ctxErr != nil ||
		errors.Is(err, ErrCancelled) ||
		errors.Is(err, context.Canceled)

	switch {
	case cancelled:
		r.state = State[R]{Status: StatusCancelled}
		snap = cloneState(r.state)
		onCancel := r.onCancel
		onChange = r.onChange
		r.mu.Unlock()

		r.collector.RecordTaskCancelled()
		if onChange != nil {
			onChange(snap)
		}
		if onCancel != nil {
			onCancel()
		}
		if err == nil {
			err = ErrCancelled
		}
		return zero, err

	case err != nil:
		r.state = State[R]{Status: StatusFailed, Err: err}
		snap = cloneState(r.state)
		onError := r.onError
		onChange = r.onChange
		r.mu.Unlock()

		r.collector.RecordTaskFailed()
		if onChange != nil {
			onChange(snap)
		}
		if onError != nil {
			onError(err)
		}
		return zero, err

	default:
		done := 100
		r.state = State[R]{Progress: &done, Status: StatusCompleted, Result: &result}
		snap = cloneState(r.state)
		onComplete := r.onComplete
		onChange = r.onChange
		r.mu.Unlock()

		r.collector.RecordTaskCompleted(time.Since(began).Seconds())
		if onChange != nil {
			onChange(snap)
		}
		if onComplete != nil {
			onComplete(result)
		}
		return result, nil
	}
}

// Cancel signals cancellation to the active work, if any, and marks the
// state Cancelled immediately, before the work has observed the signal.
// No-op when nothing is running.
func (r *Runner[R]) Cancel() {
	r.mu.Lock()
	if !r.state.Running {
		r.mu.Unlock()
		return
	}
	r.cancelled = true
	if r.cancel != nil {
		r.cancel()
	}
	r.state = State[R]{Status: StatusCancelled}
	snap := cloneState(r.state)
	onChange := r.onChange
	r.mu.Unlock()

	if onChange != nil {
		onChange(snap)
	}
}

// Reset returns the runner to the idle state, clearing result, error, and
// progress. It does not abort an in-flight run; callers should Cancel first.
// Resetting while running is a no-op.
func (r *Runner[R]) Reset() {
	r.mu.Lock()
	if r.state.Running {
		r.mu.Unlock()
		return
	}
	r.gen++ // detach any run still settling
	r.state = State[R]{Status: r.initialStatus}
	snap := cloneState(r.state)
	onChange := r.onChange
	r.mu.Unlock()

	if onChange != nil {
		onChange(snap)
	}
}

// Close tears the runner down, cancelling any in-flight work. Further Run
// calls return ErrClosed.
func (r *Runner[R]) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	if r.state.Running {
		r.cancelled = true
		if r.cancel != nil {
			r.cancel()
		}
		r.state = State[R]{Status: StatusCancelled}
	}
	snap := cloneState(r.state)
	onChange := r.onChange
	r.mu.Unlock()

	if onChange != nil {
		onChange(snap)
	}
}

// report applies a progress/status update from the work function. Updates
// from superseded or already-terminal runs are dropped.
func (r *Runner[R]) report(gen uint64, pct *int, status string, hasStatus bool) {
	r.mu.Lock()
	if gen != r.gen || !r.state.Running {
		r.mu.Unlock()
		return
	}
	if pct != nil {
		p := clamp(*pct)
		r.state.Progress = &p
	}
	if hasStatus {
		r.state.Status = status
	}
	snap := cloneState(r.state)
	onChange := r.onChange
	r.mu.Unlock()

	if onChange != nil {
		onChange(snap)
	}
}

func clamp(pct int) int {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func cloneState[R any](s State[R]) State[R] {
	out := s
	if s.Progress != nil {
		p := *s.Progress
		out.Progress = &p
	}
	if s.Result != nil {
		res := *s.Result
		out.Result = &res
	}
	return out
}
