package lock

import (
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// History Action
// --------------------------------------------------------------------------

// HistoryAction enumerates the audited lock lifecycle transitions.
type HistoryAction string

const (
	ActionAcquired      HistoryAction = "acquired"
	ActionReleased      HistoryAction = "released"
	ActionExpired       HistoryAction = "expired"
	ActionForcedRelease HistoryAction = "forced_release"
	ActionRequested     HistoryAction = "requested"
)

// Valid reports whether a is one of the known actions.
func (a HistoryAction) Valid() bool {
	switch a {
	case ActionAcquired, ActionReleased, ActionExpired, ActionForcedRelease, ActionRequested:
		return true
	default:
		return false
	}
}

// --------------------------------------------------------------------------
// History Entry
// --------------------------------------------------------------------------

// HistoryEntry is an immutable audit record of a single lock lifecycle
// transition. Entries are written exactly once and never updated; they are
// removed only by the retention sweep.
type HistoryEntry struct {
	ID       string        `json:"id"`
	Resource ResourceRef   `json:"resource"`
	UserID   string        `json:"user_id"`
	Action   HistoryAction `json:"action"`

	// DurationSeconds is how long the lock was (or would have been) held.
	// Nil for actions without a duration, e.g. requested.
	DurationSeconds *int64 `json:"duration_seconds,omitempty"`

	Changes  map[string]string `json:"changes,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewHistoryEntry creates an audit record for the given transition.
// The id is assigned by the caller (the manager uses uuids).
func NewHistoryEntry(id string, resource ResourceRef, userID string, action HistoryAction, createdAt time.Time) (*HistoryEntry, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("invalid history action %q", action)
	}
	return &HistoryEntry{
		ID:        id,
		Resource:  resource,
		UserID:    userID,
		Action:    action,
		CreatedAt: createdAt,
	}, nil
}

// WithDuration records the held duration, rounded down to whole seconds.
func (h *HistoryEntry) WithDuration(d time.Duration) *HistoryEntry {
	secs := int64(d / time.Second)
	h.DurationSeconds = &secs
	return h
}

// WithMetadata attaches free-form metadata to the entry.
func (h *HistoryEntry) WithMetadata(meta map[string]string) *HistoryEntry {
	h.Metadata = meta
	return h
}
