// ============================================================================
// Remote Store Boundary
// ============================================================================
//
// Package: internal/store
// Purpose: Key-value-ish remote store interface consumed by the persistence
// layer, plus its two implementations (HTTP client, in-memory test double).
//
// The boundary deliberately stays small:
//   - Upsert      upsert-by-id of a whole document
//   - Get         select-by-id
//   - Patch       partial field update by id (publish marks status this way)
//   - InsertMany  bulk insert into a named auxiliary collection
//
// Errors cross the boundary as plain error values; ErrNotFound is the only
// sentinel callers are expected to branch on.
//
// ============================================================================

package store

import (
	"context"
	"errors"
)

// ErrNotFound reports that no document exists under the requested id.
var ErrNotFound = errors.New("document not found")

// Document constrains the document types the store can hold. Anything with a
// stable string identifier qualifies; no other shape is assumed.
type Document interface {
	DocumentID() string
}

// Collection is a named batch of auxiliary items written during publish,
// e.g. generated donation asks or social posts belonging to a campaign.
type Collection struct {
	Name  string           `json:"name"`
	Items []map[string]any `json:"items"`
}

// Remote is the remote store boundary. Implementations must be safe for
// concurrent use; all operations honor context cancellation.
type Remote[T Document] interface {
	// Upsert writes the full document under its id, creating or replacing it.
	Upsert(ctx context.Context, doc T) error

	// Get returns the document stored under id, or ErrNotFound.
	Get(ctx context.Context, id string) (T, error)

	// Patch updates individual fields of the document stored under id.
	Patch(ctx context.Context, id string, fields map[string]any) error

	// InsertMany appends items to the named auxiliary collection. Items are
	// written as one batch; partial writes inside a batch are not reported.
	InsertMany(ctx context.Context, collection string, items []map[string]any) error
}
