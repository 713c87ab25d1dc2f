package store

import (
	"context"
	"sync"
)

// Memory is an in-memory Remote implementation used by tests and the demo
// binary. It records write history and supports fault injection so callers
// can exercise coalescing, fallback, and partial-publish behavior.
type Memory[T Document] struct {
	mu          sync.RWMutex
	docs        map[string]T
	patches     map[string]map[string]any
	collections map[string][]map[string]any
	upserts     []T // every successful Upsert, in order

	failUpsert error
	failGet    error
	failPatch  error
	failInsert error
}

// NewMemory creates an empty in-memory store.
func NewMemory[T Document]() *Memory[T] {
	return &Memory[T]{
		docs:        make(map[string]T),
		patches:     make(map[string]map[string]any),
		collections: make(map[string][]map[string]any),
	}
}

func (m *Memory[T]) Upsert(ctx context.Context, doc T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpsert != nil {
		return m.failUpsert
	}
	m.docs[doc.DocumentID()] = doc
	m.upserts = append(m.upserts, doc)
	return nil
}

func (m *Memory[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failGet != nil {
		return zero, m.failGet
	}
	doc, ok := m.docs[id]
	if !ok {
		return zero, ErrNotFound
	}
	return doc, nil
}

func (m *Memory[T]) Patch(ctx context.Context, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPatch != nil {
		return m.failPatch
	}
	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	merged := m.patches[id]
	if merged == nil {
		merged = make(map[string]any)
		m.patches[id] = merged
	}
	for k, v := range fields {
		merged[k] = v
	}
	return nil
}

func (m *Memory[T]) InsertMany(ctx context.Context, collection string, items []map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInsert != nil {
		return m.failInsert
	}
	m.collections[collection] = append(m.collections[collection], items...)
	return nil
}

// ============================================================================
// Fault injection and inspection helpers (tests, demo)
// ============================================================================

// FailUpserts makes every subsequent Upsert return err. Pass nil to heal.
func (m *Memory[T]) FailUpserts(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failUpsert = err
}

// FailGets makes every subsequent Get return err. Pass nil to heal.
func (m *Memory[T]) FailGets(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failGet = err
}

// FailPatches makes every subsequent Patch return err. Pass nil to heal.
func (m *Memory[T]) FailPatches(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPatch = err
}

// FailInserts makes every subsequent InsertMany return err. Pass nil to heal.
func (m *Memory[T]) FailInserts(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failInsert = err
}

// UpsertCount reports how many Upserts succeeded.
func (m *Memory[T]) UpsertCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.upserts)
}

// LastUpsert returns the most recently upserted document.
func (m *Memory[T]) LastUpsert() (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var zero T
	if len(m.upserts) == 0 {
		return zero, false
	}
	return m.upserts[len(m.upserts)-1], true
}

// Patched returns the merged patch fields applied to id so far.
func (m *Memory[T]) Patched(id string) map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]any, len(m.patches[id]))
	for k, v := range m.patches[id] {
		out[k] = v
	}
	return out
}

// CollectionItems returns the items inserted into the named collection.
func (m *Memory[T]) CollectionItems(name string) []map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]map[string]any(nil), m.collections[name]...)
}
