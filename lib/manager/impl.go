package manager

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reslock/reslock/lib/lock"
	"github.com/reslock/reslock/lib/store"
)

// metaExtendedAt is stamped into lock metadata when an owner re-acquires
// (renews) an existing lock.
const metaExtendedAt = "extended_at"

// metaForcedBy is stamped into history metadata on a forced release.
const metaForcedBy = "forced_by"

// metaOwner is stamped into history metadata on a lock request.
const metaOwner = "owner"

type managerImpl struct {
	store store.ILockStore
	cfg   lock.Config
	now   func() time.Time
}

// Option configures a manager created with New.
type Option func(*managerImpl)

// WithClock replaces the manager's time source. Tests use this to simulate
// lease expiry without sleeping.
func WithClock(now func() time.Time) Option {
	return func(m *managerImpl) {
		m.now = now
	}
}

// New creates a lock manager on the given store. The manager holds no state
// of its own; it is safe to create any number of managers on the same store.
func New(s store.ILockStore, cfg lock.Config, opts ...Option) ILockManager {
	m := &managerImpl{
		store: s,
		cfg:   cfg,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *managerImpl) Config() lock.Config {
	return m.cfg
}

// --------------------------------------------------------------------------
// Interface Methods - Lifecycle (docu see interface.go)
// --------------------------------------------------------------------------

func (m *managerImpl) Acquire(resource lock.ResourceRef, userID string, opts AcquireOptions) (lock.AcquireResult, error) {
	if userID == "" {
		return lock.Rejected("a user is required to acquire a lock"), nil
	}
	if resource.IsZero() {
		return lock.Rejected("a resource reference is required"), nil
	}

	now := m.now()
	duration := m.cfg.ClampDuration(opts.Duration)

	token, err := lock.NewToken()
	if err != nil {
		return lock.AcquireResult{}, fmt.Errorf("failed to generate lock token: %w", err)
	}

	candidate := &lock.Lock{
		ID:           uuid.NewString(),
		Resource:     resource,
		UserID:       userID,
		SessionID:    opts.SessionID,
		LockedAt:     now,
		ExpiresAt:    now.Add(duration),
		Token:        token,
		Strategy:     m.cfg.StrategyOrDefault(opts.Strategy),
		LockedFields: opts.Fields,
		IPAddress:    opts.IPAddress,
		UserAgent:    opts.UserAgent,
		Metadata:     opts.Metadata,
	}

	// The store resolves the check-then-act race: lazy expiry and
	// insert-if-vacant are one atomic step per resource.
	acquired, existing, err := m.store.AcquireLock(candidate, now)
	if err != nil {
		return lock.AcquireResult{}, err
	}

	if acquired {
		// A displaced expired row is a real expiry; audit it.
		if existing != nil {
			if err := m.recordExpired(existing); err != nil {
				return lock.AcquireResult{}, err
			}
		}
		if err := m.recordHistory(lock.ActionAcquired, candidate.Resource, candidate.UserID, durationPtr(duration), nil); err != nil {
			return lock.AcquireResult{}, err
		}
		metricAcquired.Inc()
		return lock.Acquired(candidate, "lock acquired"), nil
	}

	// Same owner: re-acquire acts as a renewal of the lease.
	if existing.IsOwnedBy(userID) {
		existing.ExpiresAt = now.Add(duration)
		if existing.Metadata == nil {
			existing.Metadata = make(map[string]string, 1)
		}
		existing.Metadata[metaExtendedAt] = now.Format(time.RFC3339)

		if _, err := m.store.UpdateLock(existing); err != nil {
			return lock.AcquireResult{}, err
		}
		metricRenewed.Inc()
		return lock.Acquired(existing, "lock renewed"), nil
	}

	metricContended.Inc()
	return lock.Contended(existing, fmt.Sprintf("resource is locked by %s", existing.UserID)), nil
}

func (m *managerImpl) Release(resource lock.ResourceRef, userID string) (bool, error) {
	active, found, err := m.GetActiveLock(resource)
	if err != nil || !found {
		return false, err
	}
	if !active.IsOwnedBy(userID) {
		return false, nil
	}

	if err := m.recordHistory(lock.ActionReleased, resource, active.UserID, durationPtr(m.now().Sub(active.LockedAt)), nil); err != nil {
		return false, err
	}
	if err := m.deleteLockAndSessions(resource, active.ID); err != nil {
		return false, err
	}
	metricReleased.Inc()
	return true, nil
}

func (m *managerImpl) ForceRelease(resource lock.ResourceRef, forcedBy string) (bool, error) {
	active, found, err := m.GetActiveLock(resource)
	if err != nil || !found {
		return false, err
	}

	// Audit the full span the lock would have covered, and who cut it short.
	meta := map[string]string{metaForcedBy: forcedBy}
	if err := m.recordHistory(lock.ActionForcedRelease, resource, active.UserID, durationPtr(active.LeaseSpan()), meta); err != nil {
		return false, err
	}
	if err := m.deleteLockAndSessions(resource, active.ID); err != nil {
		return false, err
	}
	metricForceReleased.Inc()
	return true, nil
}

func (m *managerImpl) Extend(resource lock.ResourceRef, userID string, duration time.Duration) (bool, error) {
	active, found, err := m.GetActiveLock(resource)
	if err != nil || !found {
		return false, err
	}
	if !active.IsOwnedBy(userID) {
		return false, nil
	}

	// Clamped like acquire, so extend cannot bypass MaxDuration.
	active.ExpiresAt = m.now().Add(m.cfg.ClampDuration(duration))
	if _, err := m.store.UpdateLock(active); err != nil {
		return false, err
	}
	return true, nil
}

func (m *managerImpl) RequestLock(resource lock.ResourceRef, requesterID string) (bool, error) {
	active, found, err := m.GetActiveLock(resource)
	if err != nil || !found {
		return false, err
	}
	if active.IsOwnedBy(requesterID) {
		return false, nil
	}

	meta := map[string]string{metaOwner: active.UserID}
	if err := m.recordHistory(lock.ActionRequested, resource, requesterID, nil, meta); err != nil {
		return false, err
	}
	metricRequested.Inc()
	return true, nil
}

// --------------------------------------------------------------------------
// Interface Methods - Queries (docu see interface.go)
// --------------------------------------------------------------------------

func (m *managerImpl) GetActiveLock(resource lock.ResourceRef) (*lock.Lock, bool, error) {
	l, found, err := m.store.GetLock(resource)
	if err != nil || !found {
		return nil, false, err
	}

	// Lazy expiry: purge a passed lease on read, never return it.
	if l.IsExpired(m.now()) {
		if err := m.recordExpired(l); err != nil {
			return nil, false, err
		}
		if err := m.deleteLockAndSessions(resource, l.ID); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	return l, true, nil
}

func (m *managerImpl) IsLocked(resource lock.ResourceRef) (bool, error) {
	_, found, err := m.GetActiveLock(resource)
	return found, err
}

func (m *managerImpl) GetLockInfo(resource lock.ResourceRef) (*lock.Info, bool, error) {
	active, found, err := m.GetActiveLock(resource)
	if err != nil || !found {
		return nil, false, err
	}
	return lock.NewInfo(active, m.now()), true, nil
}

func (m *managerImpl) ListActiveLocks() ([]*lock.Lock, error) {
	return m.store.ListLocks(store.ListActive, m.now())
}

func (m *managerImpl) ListExpiredLocks() ([]*lock.Lock, error) {
	return m.store.ListLocks(store.ListExpired, m.now())
}

func (m *managerImpl) GetHistory(resource lock.ResourceRef, limit int) ([]*lock.HistoryEntry, error) {
	return m.store.ListHistory(resource, limit)
}

// --------------------------------------------------------------------------
// Interface Methods - Bulk Release (docu see interface.go)
// --------------------------------------------------------------------------

func (m *managerImpl) ReleaseAllForUser(userID string) (int, error) {
	deleted, err := m.store.DeleteLocksByUser(userID)
	if err != nil {
		return 0, err
	}
	return m.auditBulkRelease(deleted)
}

func (m *managerImpl) ReleaseAll() (int, error) {
	deleted, err := m.store.DeleteAllLocks()
	if err != nil {
		return 0, err
	}
	return m.auditBulkRelease(deleted)
}

func (m *managerImpl) PurgeLocks(resource lock.ResourceRef) (bool, error) {
	deleted, found, err := m.store.DeleteLock(resource)
	if err != nil || !found {
		return false, err
	}
	// Parent resource is being deleted: drop locks outright, no audit.
	if _, err := m.store.DeleteSessionsForLock(deleted.ID); err != nil {
		return false, err
	}
	return true, nil
}

// --------------------------------------------------------------------------
// Interface Methods - Sessions (docu see interface.go)
// --------------------------------------------------------------------------

func (m *managerImpl) StartSession(resource lock.ResourceRef, userID, channelName string) (*lock.Session, bool, error) {
	active, found, err := m.GetActiveLock(resource)
	if err != nil || !found {
		return nil, false, err
	}

	now := m.now()
	sess := &lock.Session{
		ID:            uuid.NewString(),
		LockID:        active.ID,
		UserID:        userID,
		ChannelName:   channelName,
		LastHeartbeat: now,
		IsActive:      true,
		CreatedAt:     now,
	}
	if err := m.store.PutSession(sess); err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

func (m *managerImpl) Heartbeat(sessionID string) (bool, error) {
	return m.store.TouchSession(sessionID, m.now())
}

func (m *managerImpl) ListSessions(resource lock.ResourceRef) ([]*lock.Session, error) {
	active, found, err := m.GetActiveLock(resource)
	if err != nil || !found {
		return nil, err
	}
	return m.store.ListSessionsForLock(active.ID)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// recordHistory appends an audit entry unless history is disabled.
func (m *managerImpl) recordHistory(action lock.HistoryAction, resource lock.ResourceRef, userID string, duration *time.Duration, meta map[string]string) error {
	if !m.cfg.HistoryEnabled {
		return nil
	}

	entry, err := lock.NewHistoryEntry(uuid.NewString(), resource, userID, action, m.now())
	if err != nil {
		return err
	}
	if duration != nil {
		entry.WithDuration(*duration)
	}
	if meta != nil {
		entry.WithMetadata(meta)
	}
	return m.store.AppendHistory(entry)
}

// recordExpired audits the expiry of a lock with its full lease span.
func (m *managerImpl) recordExpired(l *lock.Lock) error {
	metricExpired.Inc()
	return m.recordHistory(lock.ActionExpired, l.Resource, l.UserID, durationPtr(l.LeaseSpan()), nil)
}

// deleteLockAndSessions removes the lock row and its attached sessions.
func (m *managerImpl) deleteLockAndSessions(resource lock.ResourceRef, lockID string) error {
	if _, _, err := m.store.DeleteLock(resource); err != nil {
		return err
	}
	_, err := m.store.DeleteSessionsForLock(lockID)
	return err
}

// auditBulkRelease writes a released entry per deleted lock and drops their
// sessions.
func (m *managerImpl) auditBulkRelease(deleted []*lock.Lock) (int, error) {
	now := m.now()
	for _, l := range deleted {
		if _, err := m.store.DeleteSessionsForLock(l.ID); err != nil {
			return 0, err
		}
		held := now.Sub(l.LockedAt)
		if l.IsExpired(now) {
			held = l.LeaseSpan()
		}
		if err := m.recordHistory(lock.ActionReleased, l.Resource, l.UserID, durationPtr(held), nil); err != nil {
			return 0, err
		}
		metricReleased.Inc()
	}
	return len(deleted), nil
}

func durationPtr(d time.Duration) *time.Duration {
	return &d
}
