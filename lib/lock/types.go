package lock

import (
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Resource Reference
// --------------------------------------------------------------------------

// ResourceRef identifies a lockable resource polymorphically by type and id.
type ResourceRef struct {
	Type string `json:"resource_type"`
	ID   string `json:"resource_id"`
}

// NewResourceRef creates a ResourceRef from a type name and an id.
func NewResourceRef(resourceType, resourceID string) ResourceRef {
	return ResourceRef{Type: resourceType, ID: resourceID}
}

// Key returns the canonical string form of the reference.
// It is used as the map key in in-memory stores and in log output.
func (r ResourceRef) Key() string {
	return r.Type + "/" + r.ID
}

// IsZero reports whether the reference is empty.
func (r ResourceRef) IsZero() bool {
	return r.Type == "" && r.ID == ""
}

func (r ResourceRef) String() string {
	return r.Key()
}

// --------------------------------------------------------------------------
// Strategy
// --------------------------------------------------------------------------

// Strategy describes the locking strategy recorded on a lock. The core
// treats all strategies uniformly; the value is a modeling hook for callers.
type Strategy string

const (
	StrategyPessimistic Strategy = "pessimistic"
	StrategyOptimistic  Strategy = "optimistic"
	StrategyHybrid      Strategy = "hybrid"
)

// Valid reports whether s is one of the known strategies.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyPessimistic, StrategyOptimistic, StrategyHybrid:
		return true
	default:
		return false
	}
}

// ParseStrategy converts a string to a Strategy, rejecting unknown values.
func ParseStrategy(s string) (Strategy, error) {
	strategy := Strategy(s)
	if !strategy.Valid() {
		return "", fmt.Errorf("invalid strategy %q (must be one of pessimistic, optimistic, hybrid)", s)
	}
	return strategy, nil
}

// --------------------------------------------------------------------------
// Lock
// --------------------------------------------------------------------------

// Lock represents exclusive (or field-scoped) ownership of a resource for a
// bounded time window. At most one non-expired Lock exists per resource.
type Lock struct {
	ID       string      `json:"id"`
	Resource ResourceRef `json:"resource"`

	// Owner
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`

	// Lease window. Invariant: ExpiresAt > LockedAt.
	LockedAt  time.Time `json:"locked_at"`
	ExpiresAt time.Time `json:"expires_at"`

	// Token is a globally unique 64 character hex correlation handle.
	// It is not an authorization credential: ownership is by UserID.
	Token string `json:"token"`

	Strategy Strategy `json:"strategy"`

	// LockedFields restricts the lock to the listed fields. Empty means the
	// entire resource is locked.
	LockedFields []string `json:"locked_fields,omitempty"`

	IPAddress string            `json:"ip_address,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// IsExpired reports whether the lease has passed at the given instant.
func (l *Lock) IsExpired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}

// IsOwnedBy reports whether userID owns the lock.
func (l *Lock) IsOwnedBy(userID string) bool {
	return userID != "" && l.UserID == userID
}

// Remaining returns the time left on the lease, never negative.
func (l *Lock) Remaining(now time.Time) time.Duration {
	if l.IsExpired(now) {
		return 0
	}
	return l.ExpiresAt.Sub(now)
}

// LeaseSpan returns the full duration the lease was granted for.
func (l *Lock) LeaseSpan() time.Duration {
	return l.ExpiresAt.Sub(l.LockedAt)
}

// CoversField reports whether the lock covers the given field. A lock
// without locked fields covers the whole resource and therefore every field.
func (l *Lock) CoversField(field string) bool {
	if len(l.LockedFields) == 0 {
		return true
	}
	for _, f := range l.LockedFields {
		if f == field {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the lock. Stores hand out clones so callers
// can never mutate persisted state through a returned pointer.
func (l *Lock) Clone() *Lock {
	c := *l
	if l.LockedFields != nil {
		c.LockedFields = append([]string(nil), l.LockedFields...)
	}
	if l.Metadata != nil {
		c.Metadata = make(map[string]string, len(l.Metadata))
		for k, v := range l.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// --------------------------------------------------------------------------
// Lock Info Snapshot
// --------------------------------------------------------------------------

// Info is a serializable snapshot of an active lock, intended for display
// to end users ("locked by alice, 240s remaining").
type Info struct {
	Resource         ResourceRef `json:"resource"`
	UserID           string      `json:"user_id"`
	LockedAt         time.Time   `json:"locked_at"`
	ExpiresAt        time.Time   `json:"expires_at"`
	RemainingSeconds int64       `json:"remaining_seconds"`
	Strategy         Strategy    `json:"strategy"`
	LockedFields     []string    `json:"locked_fields,omitempty"`
	Token            string      `json:"token"`
}

// NewInfo builds an Info snapshot of l at the given instant.
func NewInfo(l *Lock, now time.Time) *Info {
	return &Info{
		Resource:         l.Resource,
		UserID:           l.UserID,
		LockedAt:         l.LockedAt,
		ExpiresAt:        l.ExpiresAt,
		RemainingSeconds: int64(l.Remaining(now) / time.Second),
		Strategy:         l.Strategy,
		LockedFields:     l.LockedFields,
		Token:            l.Token,
	}
}
