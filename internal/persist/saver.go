// ============================================================================
// Draft Persistence - Debounced Autosave with Local Fallback
// ============================================================================
//
// Package: internal/persist
// Purpose: Minimizes redundant writes to the remote store while guaranteeing
// no data loss on crash or navigation, for a single logical draft document
// edited incrementally.
//
// Write path:
//   Autosave(draft)
//     |-- immediately: fallback copy to the local cache (best-effort)
//     |-- debounce: reset the single pending timer; after the window fires,
//         the LATEST draft handed to Autosave is written remotely. Rapid
//         edits inside the window coalesce into one write.
//
// Concurrency model:
//   One pending timer per saver, reset (not stacked) by each Autosave. One
//   remote write in flight at a time, enforced by an in-progress flag, not a
//   queue: a concurrent SaveDraft is dropped (returns false) and the next
//   debounce cycle picks up the latest state. No locks are held across
//   remote I/O or callbacks.
//
// Failure semantics:
//   SaveDraft never propagates remote errors; they are recorded in the
//   SaveStatus and the local fallback copy stays intact for recovery.
//   Publish does return its error so an explicit user action can react.
//   Partial publish failures are NOT rolled back.
//
// ============================================================================

package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklahomahail/nexus2-sub008/internal/cache"
	"github.com/oklahomahail/nexus2-sub008/internal/metrics"
	"github.com/oklahomahail/nexus2-sub008/internal/store"
	"github.com/oklahomahail/nexus2-sub008/pkg/types"
)

var log = slog.Default()

// DefaultDebounce is the autosave coalescing window.
const DefaultDebounce = 500 * time.Millisecond

// cacheKeyPrefix scopes fallback entries so the cache directory can be
// shared with other features.
const cacheKeyPrefix = "campaign-draft-"

// ErrClosed is returned by operations on a closed saver.
var ErrClosed = errors.New("saver closed")

// Option configures a Saver.
type Option[T store.Document] func(*Saver[T])

// WithDebounce overrides the autosave debounce window.
func WithDebounce[T store.Document](d time.Duration) Option[T] {
	return func(s *Saver[T]) { s.window = d }
}

// WithCollector wires optional Prometheus instrumentation.
func WithCollector[T store.Document](c *metrics.Collector) Option[T] {
	return func(s *Saver[T]) { s.collector = c }
}

// Saver persists one logical draft document. The saver owns the debounce
// timer and the save-in-progress flag; the caller owns the document content.
type Saver[T store.Document] struct {
	remote store.Remote[T]
	local  cache.Cache
	window time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	pending  *T // latest draft awaiting the debounced write
	saving   bool
	status   types.SaveStatus
	onStatus func(types.SaveStatus)
	closed   bool

	baseCtx   context.Context // governs debounce-triggered saves
	cancelCtx context.CancelFunc

	collector *metrics.Collector
}

// NewSaver builds a saver over the given remote store and local fallback
// cache. Dependencies are explicit so tests can substitute doubles.
func NewSaver[T store.Document](remote store.Remote[T], local cache.Cache, opts ...Option[T]) *Saver[T] {
	s := &Saver[T]{
		remote: remote,
		local:  local,
		window: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.baseCtx, s.cancelCtx = context.WithCancel(context.Background())
	return s
}

// OnStatus registers the single status callback, invoked on every SaveStatus
// transition. Registering replaces any previous callback.
func (s *Saver[T]) OnStatus(fn func(types.SaveStatus)) {
	s.mu.Lock()
	s.onStatus = fn
	s.mu.Unlock()
}

// Status returns the current save status.
func (s *Saver[T]) Status() types.SaveStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Autosave is called on every edit. It writes the fallback copy
// synchronously, then schedules (or reschedules) the debounced remote write.
// Calls within the window coalesce into a single write of the latest draft.
func (s *Saver[T]) Autosave(draft T) {
	s.writeFallback(draft)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = &draft
	if s.timer != nil && s.timer.Stop() {
		s.collector.RecordAutosaveCoalesced()
	}
	s.timer = time.AfterFunc(s.window, s.flushPending)
	s.mu.Unlock()
}

// SaveDraft performs the remote write. If a save is already in flight the
// call is dropped and false is returned; the next debounce cycle picks up
// the latest state. Remote errors are recorded in the SaveStatus, never
// returned, and the local fallback copy stays intact for recovery.
// Returns true only when the remote write succeeded.
// The fallback copy is written before the remote attempt, so an explicit
// save is recoverable locally even when the remote is down.
func (s *Saver[T]) SaveDraft(ctx context.Context, draft T) bool {
	s.writeFallback(draft)

	s.mu.Lock()
	if s.closed || s.saving {
		if s.saving {
			s.collector.RecordSaveDropped()
		}
		s.mu.Unlock()
		return false
	}
	s.saving = true
	st := types.SaveStatus{Saving: true, LastSaved: s.status.LastSaved}
	notify := s.setStatusLocked(st)
	s.mu.Unlock()
	notify()

	began := time.Now()
	err := s.remote.Upsert(ctx, draft)

	s.mu.Lock()
	s.saving = false
	if err != nil {
		st = types.SaveStatus{LastSaved: s.status.LastSaved, Err: err.Error()}
		s.collector.RecordSaveFailure()
	} else {
		now := time.Now()
		st = types.SaveStatus{LastSaved: &now}
		s.collector.RecordSave(time.Since(began).Seconds())
	}
	notify = s.setStatusLocked(st)
	s.mu.Unlock()
	notify()

	if err != nil {
		log.Warn("draft save failed, fallback copy retained",
			"draft", draft.DocumentID(), "err", err)
		return false
	}
	return true
}

// ForceSave cancels any pending debounced write and saves immediately. Used
// before navigation or on an explicit user save action.
func (s *Saver[T]) ForceSave(ctx context.Context, draft T) bool {
	s.mu.Lock()
	s.stopTimerLocked()
	s.pending = nil
	s.mu.Unlock()
	return s.SaveDraft(ctx, draft)
}

// Load reads the draft from the remote store. On remote failure it falls
// back to the local cache for the same id; store.ErrNotFound is returned
// when neither copy exists.
func (s *Saver[T]) Load(ctx context.Context, id string) (T, error) {
	doc, err := s.remote.Get(ctx, id)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Warn("remote load failed, trying local fallback", "draft", id, "err", err)
	}

	if data, ok := s.local.Get(cacheKey(id)); ok {
		var out T
		if jerr := json.Unmarshal(data, &out); jerr == nil {
			s.collector.RecordFallbackHit()
			return out, nil
		}
		log.Warn("corrupt fallback entry ignored", "draft", id)
	}

	var zero T
	if errors.Is(err, store.ErrNotFound) {
		return zero, store.ErrNotFound
	}
	return zero, err
}

// Publish runs the multi-step publish: mark the draft published, insert each
// auxiliary collection in order, then clear the local fallback copy. The
// first failing step aborts the rest and its error is returned; steps that
// already ran are NOT rolled back. A later Autosave simply recreates the
// fallback entry.
func (s *Saver[T]) Publish(ctx context.Context, draft T, cols []store.Collection) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	// A pending debounced write would race the publish; drop it.
	s.stopTimerLocked()
	s.pending = nil
	s.mu.Unlock()

	id := draft.DocumentID()
	fields := map[string]any{
		"status":       string(types.StatusPublished),
		"published_at": time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.remote.Patch(ctx, id, fields); err != nil {
		s.collector.RecordPublishFailure()
		return fmt.Errorf("mark published: %w", err)
	}

	for _, col := range cols {
		if len(col.Items) == 0 {
			continue
		}
		if err := s.remote.InsertMany(ctx, col.Name, col.Items); err != nil {
			s.collector.RecordPublishFailure()
			return fmt.Errorf("insert %s: %w", col.Name, err)
		}
	}

	if err := s.local.Remove(cacheKey(id)); err != nil {
		log.Warn("clearing fallback copy failed", "draft", id, "err", err)
	}
	s.collector.RecordPublish()
	return nil
}

// Close stops the debounce timer and cancels any debounce-triggered save in
// flight. Pending edits that were only saved locally remain recoverable via
// Load.
func (s *Saver[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopTimerLocked()
	s.pending = nil
	s.mu.Unlock()
	s.cancelCtx()
}

// flushPending runs on the debounce timer and writes the latest draft.
func (s *Saver[T]) flushPending() {
	s.mu.Lock()
	if s.closed || s.pending == nil {
		s.mu.Unlock()
		return
	}
	draft := *s.pending
	s.pending = nil
	ctx := s.baseCtx
	s.mu.Unlock()

	s.SaveDraft(ctx, draft)
}

// writeFallback stores the local safety-net copy. Best-effort: failures are
// logged and swallowed so UI event handlers never see them.
func (s *Saver[T]) writeFallback(draft T) {
	data, err := json.Marshal(draft)
	if err != nil {
		log.Warn("fallback encode failed", "draft", draft.DocumentID(), "err", err)
		return
	}
	if err := s.local.Set(cacheKey(draft.DocumentID()), data); err != nil {
		log.Warn("fallback write failed", "draft", draft.DocumentID(), "err", err)
		return
	}
	s.collector.RecordFallbackWrite()
}

// setStatusLocked records the status and returns the notification to run
// after the lock is released.
func (s *Saver[T]) setStatusLocked(st types.SaveStatus) func() {
	s.status = st
	fn := s.onStatus
	if fn == nil {
		return func() {}
	}
	return func() { fn(st) }
}

func (s *Saver[T]) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func cacheKey(id string) string { return cacheKeyPrefix + id }
