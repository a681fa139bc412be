// Package memstore implements the store.ILockStore interface with
// in-process concurrent maps. It is the backend for embedded use and for
// tests; nothing survives a restart.
//
// Atomicity:
//
//	AcquireLock folds lazy expiry and insert-if-vacant into a single
//	atomic map compute per resource key. Two goroutines acquiring the
//	same resource at the same time therefore always resolve to exactly
//	one winner, with the loser receiving the winner's row.
//
// All returned rows are deep copies; callers can never mutate stored
// state through them.
package memstore
