// Package testing provides a conformance test suite for implementations of
// the store.ILockStore interface.
//
// Every implementation runs the same suite via RunLockStoreTests, passing a
// factory that creates a fresh store per test. The suite covers the atomic
// acquire semantics (including the concurrent single-winner property), lock
// CRUD and filtering, session heartbeats and stale cleanup, and the
// append-only history log with retention deletes.
package testing
