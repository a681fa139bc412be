package manager

import (
	"fmt"

	"github.com/reslock/reslock/lib/lock"
)

// --------------------------------------------------------------------------
// Resource Locked Error
// --------------------------------------------------------------------------

// ResourceLockedError aborts a mutation of a resource that is locked by
// another user. It is the one failure in this module expressed as an error
// rather than a value: it must interrupt the caller's save pipeline.
// Consumers typically map it to a 423 Locked response.
type ResourceLockedError struct {
	// Lock is the blocking lock, so the caller can display who holds the
	// resource and until when.
	Lock *lock.Lock
}

func (e *ResourceLockedError) Error() string {
	return fmt.Sprintf("resource %s is locked by %s until %s",
		e.Lock.Resource, e.Lock.UserID, e.Lock.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
}

// --------------------------------------------------------------------------
// Write Guard
// --------------------------------------------------------------------------

// Guard provides the three hook points a resource's persistence pipeline
// calls around its own save and delete operations. The guard never attaches
// itself to anything: callers invoke the hooks explicitly.
type Guard struct {
	manager ILockManager
	cfg     lock.Config
}

// NewGuard creates a write guard over the given manager, using the
// manager's policy flags.
func NewGuard(m ILockManager) *Guard {
	return &Guard{manager: m, cfg: m.Config()}
}

// BeforeUpdate must be called before persisting a change to the resource.
// With PreventUpdateIfLocked enabled it returns a *ResourceLockedError when
// another user holds an active lock; otherwise nil.
func (g *Guard) BeforeUpdate(resource lock.ResourceRef, userID string) error {
	if !g.cfg.PreventUpdateIfLocked {
		return nil
	}

	active, found, err := g.manager.GetActiveLock(resource)
	if err != nil {
		return err
	}
	if found && !active.IsOwnedBy(userID) {
		return &ResourceLockedError{Lock: active}
	}
	return nil
}

// AfterUpdate must be called after a successful save. With
// AutoReleaseAfterUpdate enabled it releases the acting user's lock.
func (g *Guard) AfterUpdate(resource lock.ResourceRef, userID string) error {
	if !g.cfg.AutoReleaseAfterUpdate {
		return nil
	}
	_, err := g.manager.Release(resource, userID)
	return err
}

// BeforeDelete must be called before deleting the resource itself. It
// unconditionally drops any lock rows for the resource; deleting the parent
// entity drops its locks outright, without history.
func (g *Guard) BeforeDelete(resource lock.ResourceRef) error {
	_, err := g.manager.PurgeLocks(resource)
	return err
}
