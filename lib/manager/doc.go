// Package manager implements the lock lifecycle over a store.ILockStore:
// acquire, release, extend, forced release, lock requests, session
// heartbeats, sweeps and statistics.
//
// The manager only ever writes through the provided store and has no other
// internal state. Therefore it is safe to create multiple managers on the
// same store; as long as the same store is used every time, all locks work
// as expected.
//
// Expiry model:
//
//	Leases are never enforced by a timer. Every read of "the active lock"
//	goes through GetActiveLock, which purges a passed lease on the spot
//	(lazy expiry). The sweep operations are bulk cleanup for rows nobody
//	reads anymore, driven by an external scheduler or the CLI. Correctness
//	depends only on wall-clock comparison at access time, so the service
//	can be offline for arbitrary periods.
//
// Failure model:
//
//	Domain failures are values: a contended acquire returns a failed
//	AcquireResult carrying the blocking lock, an unauthorized release
//	returns false. Error returns are reserved for store failures. The one
//	exception is ResourceLockedError, raised by the write guard because it
//	must abort an in-flight mutation (see Guard).
//
// Identity is explicit: every operation takes the acting user id as a
// parameter. The manager has no notion of an ambient "current user".
package manager
