package manager

import (
	"time"

	"github.com/reslock/reslock/lib/lock"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// AcquireOptions carries the optional parameters of an acquire call.
// The zero value is valid: default duration and strategy, whole-resource
// lock, no request context.
type AcquireOptions struct {
	// Duration is the requested lease length. It is clamped into the
	// configured [MinDuration, MaxDuration]; zero means the default.
	Duration time.Duration

	// Strategy to record on the lock; the configured default if invalid.
	Strategy lock.Strategy

	// Fields restricts the lock to the listed fields (empty = whole
	// resource).
	Fields []string

	// Request context, stored verbatim on the lock.
	SessionID string
	IPAddress string
	UserAgent string
	Metadata  map[string]string
}

// SweepReport summarizes one RunAllSweeps pass.
type SweepReport struct {
	ExpiredLocks  int `json:"expired_locks"`
	StaleSessions int `json:"stale_sessions"`
	PurgedHistory int `json:"purged_history"`
}

// UserLockCount is one row of the top-users statistic.
type UserLockCount struct {
	UserID string `json:"user_id"`
	Count  int    `json:"count"`
}

// Stats is the read-only aggregation over the lock store.
type Stats struct {
	ActiveLocks    int                   `json:"active_locks"`
	ExpiredLocks   int                   `json:"expired_locks"`
	ByStrategy     map[lock.Strategy]int `json:"by_strategy"`
	ByResourceType map[string]int        `json:"by_resource_type"`
	TopUsers       []UserLockCount       `json:"top_users"`
}

// ILockManager mediates all lock lifecycle transitions. It is the sole
// writer of lock rows and the only component that appends history.
//
// Domain failures (contention, not-the-owner, nothing-to-do) are value
// results; an error return always means the backing store failed.
type ILockManager interface {
	// Acquire attempts to lock the resource for userID. A lock already held
	// by userID is renewed instead (expires_at = now + clamped duration).
	// A lock held by someone else yields a failure result carrying the
	// blocking lock. An empty userID is rejected: no anonymous locks.
	Acquire(resource lock.ResourceRef, userID string, opts AcquireOptions) (lock.AcquireResult, error)

	// Release deletes userID's active lock on the resource. False if no
	// active lock exists or userID is not the owner.
	Release(resource lock.ResourceRef, userID string) (bool, error)

	// ForceRelease deletes the active lock regardless of ownership,
	// auditing who forced it. False if no active lock exists.
	ForceRelease(resource lock.ResourceRef, forcedBy string) (bool, error)

	// Extend renews the lease to now + duration (clamped like acquire).
	// False if no active lock exists or userID is not the owner.
	Extend(resource lock.ResourceRef, userID string, duration time.Duration) (bool, error)

	// RequestLock records that requesterID wants the resource. False if no
	// active lock exists or requesterID already owns it. Informational: no
	// notification is sent.
	RequestLock(resource lock.ResourceRef, requesterID string) (bool, error)

	// GetActiveLock is the single source of truth for "is it locked".
	// Lazy expiry runs first: an expired row is purged (with an expired
	// history entry) and never returned.
	GetActiveLock(resource lock.ResourceRef) (*lock.Lock, bool, error)

	// IsLocked reports whether an active lock exists for the resource.
	IsLocked(resource lock.ResourceRef) (bool, error)

	// GetLockInfo returns a display snapshot of the active lock.
	GetLockInfo(resource lock.ResourceRef) (*lock.Info, bool, error)

	// ListActiveLocks returns all locks whose lease has not passed.
	ListActiveLocks() ([]*lock.Lock, error)

	// ListExpiredLocks returns all locks whose lease has passed (dry-run
	// counterpart of SweepExpiredLocks).
	ListExpiredLocks() ([]*lock.Lock, error)

	// ReleaseAllForUser releases every lock held by userID and returns how
	// many were released.
	ReleaseAllForUser(userID string) (int, error)

	// ReleaseAll releases every lock and returns how many were released.
	ReleaseAll() (int, error)

	// PurgeLocks drops any lock rows for a resource without auditing.
	// Used by the write guard when the resource itself is deleted.
	PurgeLocks(resource lock.ResourceRef) (bool, error)

	// StartSession attaches an editing session to the active lock on the
	// resource. False if the resource is not locked.
	StartSession(resource lock.ResourceRef, userID, channelName string) (*lock.Session, bool, error)

	// Heartbeat marks a session as alive. False if the session is unknown.
	Heartbeat(sessionID string) (bool, error)

	// ListSessions returns the sessions attached to the active lock.
	ListSessions(resource lock.ResourceRef) ([]*lock.Session, error)

	// GetHistory returns the audit trail for a resource, newest first.
	GetHistory(resource lock.ResourceRef, limit int) ([]*lock.HistoryEntry, error)

	// SweepExpiredLocks purges every expired lock, writing one expired
	// history entry per purged row. Returns the purge count.
	SweepExpiredLocks() (int, error)

	// SweepStaleSessions purges sessions whose heartbeat is older than the
	// configured timeout. No history is recorded for sessions.
	SweepStaleSessions() (int, error)

	// SweepOldHistory purges history entries older than the configured
	// retention window.
	SweepOldHistory() (int, error)

	// RunAllSweeps runs the three sweeps and reports the counts.
	RunAllSweeps() (SweepReport, error)

	// GetStats aggregates lock counts by state, strategy, resource type and
	// the top-N users by active lock count.
	GetStats(topUsers int) (Stats, error)

	// Config returns the manager's effective configuration.
	Config() lock.Config
}
