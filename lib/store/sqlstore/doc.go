// Package sqlstore implements the store.ILockStore interface on a
// relational database via gorm. It owns three tables (locks,
// lock_sessions, lock_history by default; names are configurable) and
// migrates them on creation.
//
// Atomicity:
//
//	AcquireLock runs lazy expiry and insert-if-vacant inside one
//	transaction holding a FOR UPDATE row lock on the resource's row.
//	A unique index on (resource_type, resource_id) backstops dialects
//	that serialize writers differently (SQLite); a losing insert is
//	reported as contention, never as an error.
//
// The store accepts any opened *gorm.DB; the serve command uses the
// pure-Go SQLite driver, server deployments typically pass Postgres or
// MySQL connections.
package sqlstore
