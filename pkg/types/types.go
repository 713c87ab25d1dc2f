// Package types defines the core domain model shared across the campaign
// draft system.
package types

import (
	"time"

	"github.com/google/uuid"
)

// DraftStatus marks where a campaign draft sits in its editorial lifecycle.
type DraftStatus string

const (
	StatusDraft     DraftStatus = "draft"     // being edited, not visible to donors
	StatusPublished DraftStatus = "published" // live, auxiliary content written
)

// CampaignDraft is the document a client edits incrementally in the campaign
// editor. It is a plain value type; the persistence layer never mutates it.
type CampaignDraft struct {
	// Identity
	ID       string `json:"id"`        // stable identifier, caller-supplied or generated
	ClientID string `json:"client_id"` // owning nonprofit client

	// Content
	Title     string `json:"title"`
	Narrative string `json:"narrative"`  // long-form campaign story
	GoalCents int64  `json:"goal_cents"` // fundraising target in cents

	// Lifecycle
	Status      DraftStatus `json:"status"`
	PublishedAt *time.Time  `json:"published_at,omitempty"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// DocumentID satisfies the store.Document constraint.
func (d CampaignDraft) DocumentID() string { return d.ID }

// NewDraftID generates an identifier for drafts saved without one.
func NewDraftID() string { return uuid.NewString() }

// SaveStatus reflects the state of the most recent remote save attempt.
// It is mutated only by the persistence layer and observed by callers
// through a subscription callback.
type SaveStatus struct {
	Saving    bool       `json:"saving"`               // a remote write is in flight
	LastSaved *time.Time `json:"last_saved,omitempty"` // time of the last successful write
	Err       string     `json:"error,omitempty"`      // message of the last failed write
}

// Indicator returns the user-facing label for this status.
func (s SaveStatus) Indicator() string {
	switch {
	case s.Saving:
		return "Saving..."
	case s.Err != "":
		return "Error - saved locally"
	case s.LastSaved != nil:
		return "All changes saved"
	default:
		return ""
	}
}
