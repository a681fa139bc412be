// Package store defines the persistence interface for lock, session and
// history rows, plus the coded error type shared by all implementations.
//
// Two implementations exist:
//
//   - memstore: an in-memory store on concurrent maps, used for embedded
//     setups and tests. Per-resource atomicity comes from atomic map
//     compute operations.
//
//   - sqlstore: a relational store on gorm. Per-resource atomicity comes
//     from a transaction holding a row lock, backed by a unique index on
//     (resource_type, resource_id).
//
// The single correctness-critical operation is AcquireLock: it must fold
// lazy expiry and insert-if-vacant into one atomic step per resource, so
// that two concurrent acquirers can never both create an active lock.
// Everything else is plain CRUD.
//
// The testing subpackage provides a conformance suite (RunLockStoreTests)
// that every implementation runs, including a concurrent single-winner
// property for AcquireLock.
package store
