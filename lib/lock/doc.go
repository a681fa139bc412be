// Package lock defines the domain model for resource editing locks:
// the Lock itself, the append-only HistoryEntry audit record, the Session
// liveness record and the configuration shared by all components.
//
// A Lock grants a single user exclusive (or field-scoped) ownership of a
// resource for a bounded time window, the lease. A lease is defined by
// LockedAt..ExpiresAt and is never enforced by a timer: a lock whose
// ExpiresAt has passed is simply treated as gone by every reader
// (lazy expiry), and periodically purged by a sweep.
//
// Resources are referenced polymorphically by (type, id) via ResourceRef,
// so any entity of the calling application can be locked without this
// package knowing its shape.
//
// The package holds no state and performs no I/O. Persistence lives in the
// store package, lifecycle logic in the manager package.
package lock
