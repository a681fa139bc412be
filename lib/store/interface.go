package store

import (
	"fmt"
	"time"

	"github.com/reslock/reslock/lib/lock"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// ListFilter selects which lock rows a listing returns relative to the
// given instant.
type ListFilter int

const (
	// ListAll returns every stored lock row, expired or not.
	ListAll ListFilter = iota
	// ListActive returns rows whose lease has not passed.
	ListActive
	// ListExpired returns rows whose lease has passed.
	ListExpired
)

// ILockStore is the persistence interface for lock, session and history
// rows. Absence and contention are value results; an error is returned only
// when the backing store itself fails.
//
// Every method that hands out rows hands out copies: mutating a returned
// value never changes stored state.
type ILockStore interface {
	// AcquireLock atomically performs, for candidate.Resource: delete the
	// stored row if its lease has passed, then insert candidate iff no row
	// remains. The read-check-write sequence MUST be atomic per resource so
	// two concurrent calls can never both succeed.
	//
	// On success (acquired=true) the expired row that was displaced, if any,
	// is returned so the caller can audit its expiry. On contention
	// (acquired=false) existing is the active blocking row.
	AcquireLock(candidate *lock.Lock, now time.Time) (acquired bool, existing *lock.Lock, err error)

	// GetLock returns the stored row for the resource, expired or not.
	GetLock(resource lock.ResourceRef) (l *lock.Lock, found bool, err error)

	// UpdateLock overwrites the stored row with the same resource reference.
	// It is a no-op returning found=false if no row exists.
	UpdateLock(l *lock.Lock) (found bool, err error)

	// DeleteLock removes the row for the resource and returns it.
	DeleteLock(resource lock.ResourceRef) (deleted *lock.Lock, found bool, err error)

	// ListLocks returns lock rows matching the filter.
	ListLocks(filter ListFilter, now time.Time) (locks []*lock.Lock, err error)

	// DeleteLocksByUser removes every row owned by userID and returns the
	// removed rows.
	DeleteLocksByUser(userID string) (deleted []*lock.Lock, err error)

	// DeleteExpiredLocks removes every row whose lease has passed and
	// returns the removed rows.
	DeleteExpiredLocks(now time.Time) (deleted []*lock.Lock, err error)

	// DeleteAllLocks removes every lock row and returns the removed rows.
	DeleteAllLocks() (deleted []*lock.Lock, err error)

	// PutSession inserts or updates a session row.
	PutSession(s *lock.Session) (err error)

	// GetSession returns the session with the given id.
	GetSession(id string) (s *lock.Session, found bool, err error)

	// TouchSession sets the session's last heartbeat to now.
	TouchSession(id string, now time.Time) (found bool, err error)

	// ListSessionsForLock returns all sessions attached to a lock.
	ListSessionsForLock(lockID string) (sessions []*lock.Session, err error)

	// DeleteSessionsForLock removes all sessions attached to a lock.
	DeleteSessionsForLock(lockID string) (count int, err error)

	// DeleteStaleSessions removes sessions whose last heartbeat is before
	// the cutoff and returns how many were removed.
	DeleteStaleSessions(cutoff time.Time) (count int, err error)

	// AppendHistory appends an audit record. Records are immutable.
	AppendHistory(entry *lock.HistoryEntry) (err error)

	// ListHistory returns audit records for a resource, newest first,
	// at most limit entries (limit <= 0 means no limit).
	ListHistory(resource lock.ResourceRef, limit int) (entries []*lock.HistoryEntry, err error)

	// CountHistory returns the total number of stored audit records.
	CountHistory() (count int, err error)

	// DeleteHistoryBefore removes audit records created before the cutoff
	// and returns how many were removed.
	DeleteHistoryBefore(cutoff time.Time) (count int, err error)

	// Close releases the resources held by the store.
	Close() (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the error type returned by store implementations. It wraps a
// return code so callers can distinguish infrastructure failures from
// invalid usage without string matching.
type Error struct {
	Code RetCode
	Msg  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("LockStoreError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new store Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// NewErrorf creates a new store Error with a formatted message.
func NewErrorf(code RetCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess          RetCode = iota // 0: Operation executed successfully.
	RetCInternalError                   // 1: Operation failed due to a backend error.
	RetCInvalidOperation                // 2: Operation was called with invalid arguments.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCInvalidOperation:
		return "InvalidOperation"
	default:
		return "Unknown"
	}
}
