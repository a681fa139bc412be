package memstore

import (
	"sort"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/reslock/reslock/lib/lock"
	"github.com/reslock/reslock/lib/store"
)

type storeImpl struct {
	locks    *xsync.MapOf[string, *lock.Lock]    // keyed by ResourceRef.Key()
	sessions *xsync.MapOf[string, *lock.Session] // keyed by session id

	historyMu sync.RWMutex
	history   []*lock.HistoryEntry
}

// NewMemStore creates a new in-memory lock store. It keeps all rows in
// concurrent maps and is safe for use from multiple goroutines. State is
// lost on process exit; use sqlstore for durable setups.
func NewMemStore() store.ILockStore {
	return &storeImpl{
		locks:    xsync.NewMapOf[string, *lock.Lock](),
		sessions: xsync.NewMapOf[string, *lock.Session](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods - Locks (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) AcquireLock(candidate *lock.Lock, now time.Time) (bool, *lock.Lock, error) {
	if candidate == nil || candidate.Resource.IsZero() {
		return false, nil, store.NewError(store.RetCInvalidOperation, "AcquireLock requires a candidate with a resource reference")
	}

	var (
		acquired bool
		existing *lock.Lock
	)

	// Compute runs atomically per key: lazy expiry and insert-if-vacant
	// happen as one step, so concurrent acquirers resolve to one winner.
	s.locks.Compute(candidate.Resource.Key(), func(old *lock.Lock, loaded bool) (*lock.Lock, bool) {
		if loaded && !old.IsExpired(now) {
			existing = old.Clone()
			return old, false
		}
		if loaded {
			// Displaced an expired row; report it for auditing.
			existing = old.Clone()
		}
		acquired = true
		return candidate.Clone(), false
	})

	return acquired, existing, nil
}

func (s *storeImpl) GetLock(resource lock.ResourceRef) (*lock.Lock, bool, error) {
	l, ok := s.locks.Load(resource.Key())
	if !ok {
		return nil, false, nil
	}
	return l.Clone(), true, nil
}

func (s *storeImpl) UpdateLock(l *lock.Lock) (bool, error) {
	if l == nil || l.Resource.IsZero() {
		return false, store.NewError(store.RetCInvalidOperation, "UpdateLock requires a lock with a resource reference")
	}

	var found bool
	s.locks.Compute(l.Resource.Key(), func(old *lock.Lock, loaded bool) (*lock.Lock, bool) {
		if !loaded {
			return nil, true
		}
		found = true
		return l.Clone(), false
	})
	return found, nil
}

func (s *storeImpl) DeleteLock(resource lock.ResourceRef) (*lock.Lock, bool, error) {
	l, ok := s.locks.LoadAndDelete(resource.Key())
	if !ok {
		return nil, false, nil
	}
	return l, true, nil
}

func (s *storeImpl) ListLocks(filter store.ListFilter, now time.Time) ([]*lock.Lock, error) {
	var out []*lock.Lock
	s.locks.Range(func(_ string, l *lock.Lock) bool {
		if matchesFilter(l, filter, now) {
			out = append(out, l.Clone())
		}
		return true
	})
	sortLocks(out)
	return out, nil
}

func (s *storeImpl) DeleteLocksByUser(userID string) ([]*lock.Lock, error) {
	return s.deleteLocksWhere(func(l *lock.Lock) bool { return l.UserID == userID })
}

func (s *storeImpl) DeleteExpiredLocks(now time.Time) ([]*lock.Lock, error) {
	return s.deleteLocksWhere(func(l *lock.Lock) bool { return l.IsExpired(now) })
}

func (s *storeImpl) DeleteAllLocks() ([]*lock.Lock, error) {
	return s.deleteLocksWhere(func(*lock.Lock) bool { return true })
}

// --------------------------------------------------------------------------
// Interface Methods - Sessions (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) PutSession(sess *lock.Session) error {
	if sess == nil || sess.ID == "" {
		return store.NewError(store.RetCInvalidOperation, "PutSession requires a session with an id")
	}
	s.sessions.Store(sess.ID, sess.Clone())
	return nil
}

func (s *storeImpl) GetSession(id string) (*lock.Session, bool, error) {
	sess, ok := s.sessions.Load(id)
	if !ok {
		return nil, false, nil
	}
	return sess.Clone(), true, nil
}

func (s *storeImpl) TouchSession(id string, now time.Time) (bool, error) {
	var found bool
	s.sessions.Compute(id, func(old *lock.Session, loaded bool) (*lock.Session, bool) {
		if !loaded {
			return nil, true
		}
		found = true
		touched := old.Clone()
		touched.LastHeartbeat = now
		return touched, false
	})
	return found, nil
}

func (s *storeImpl) ListSessionsForLock(lockID string) ([]*lock.Session, error) {
	var out []*lock.Session
	s.sessions.Range(func(_ string, sess *lock.Session) bool {
		if sess.LockID == lockID {
			out = append(out, sess.Clone())
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *storeImpl) DeleteSessionsForLock(lockID string) (int, error) {
	return s.deleteSessionsWhere(func(sess *lock.Session) bool { return sess.LockID == lockID })
}

func (s *storeImpl) DeleteStaleSessions(cutoff time.Time) (int, error) {
	return s.deleteSessionsWhere(func(sess *lock.Session) bool { return sess.LastHeartbeat.Before(cutoff) })
}

// --------------------------------------------------------------------------
// Interface Methods - History (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) AppendHistory(entry *lock.HistoryEntry) error {
	if entry == nil {
		return store.NewError(store.RetCInvalidOperation, "AppendHistory requires an entry")
	}
	clone := *entry

	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	s.history = append(s.history, &clone)
	return nil
}

func (s *storeImpl) ListHistory(resource lock.ResourceRef, limit int) ([]*lock.HistoryEntry, error) {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	var out []*lock.HistoryEntry
	// Newest first: walk the append-only log backwards.
	for i := len(s.history) - 1; i >= 0; i-- {
		entry := s.history[i]
		if entry.Resource != resource {
			continue
		}
		clone := *entry
		out = append(out, &clone)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *storeImpl) CountHistory() (int, error) {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()
	return len(s.history), nil
}

func (s *storeImpl) DeleteHistoryBefore(cutoff time.Time) (int, error) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	kept := s.history[:0]
	deleted := 0
	for _, entry := range s.history {
		if entry.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, entry)
	}
	s.history = kept
	return deleted, nil
}

func (s *storeImpl) Close() error {
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (s *storeImpl) deleteLocksWhere(match func(*lock.Lock) bool) ([]*lock.Lock, error) {
	var deleted []*lock.Lock
	s.locks.Range(func(key string, _ *lock.Lock) bool {
		s.locks.Compute(key, func(old *lock.Lock, loaded bool) (*lock.Lock, bool) {
			if loaded && match(old) {
				deleted = append(deleted, old)
				return nil, true
			}
			return old, !loaded
		})
		return true
	})
	sortLocks(deleted)
	return deleted, nil
}

func (s *storeImpl) deleteSessionsWhere(match func(*lock.Session) bool) (int, error) {
	count := 0
	s.sessions.Range(func(id string, _ *lock.Session) bool {
		s.sessions.Compute(id, func(old *lock.Session, loaded bool) (*lock.Session, bool) {
			if loaded && match(old) {
				count++
				return nil, true
			}
			return old, !loaded
		})
		return true
	})
	return count, nil
}

func matchesFilter(l *lock.Lock, filter store.ListFilter, now time.Time) bool {
	switch filter {
	case store.ListActive:
		return !l.IsExpired(now)
	case store.ListExpired:
		return l.IsExpired(now)
	default:
		return true
	}
}

// sortLocks orders by resource key for deterministic listings.
func sortLocks(locks []*lock.Lock) {
	sort.Slice(locks, func(i, j int) bool {
		return locks[i].Resource.Key() < locks[j].Resource.Key()
	})
}
