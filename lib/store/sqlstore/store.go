package sqlstore

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/reslock/reslock/lib/lock"
	"github.com/reslock/reslock/lib/store"
)

type storeImpl struct {
	db  *gorm.DB
	cfg lock.Config
}

// NewSQLStore creates a relational lock store on an already opened gorm
// connection. The three tables (names taken from the config) are migrated
// on creation.
func NewSQLStore(db *gorm.DB, cfg lock.Config) (store.ILockStore, error) {
	s := &storeImpl{db: db, cfg: cfg}

	if err := db.Table(cfg.LocksTable).AutoMigrate(&lockRow{}); err != nil {
		return nil, store.NewErrorf(store.RetCInternalError, "failed to migrate %s: %v", cfg.LocksTable, err)
	}
	if err := db.Table(cfg.SessionsTable).AutoMigrate(&sessionRow{}); err != nil {
		return nil, store.NewErrorf(store.RetCInternalError, "failed to migrate %s: %v", cfg.SessionsTable, err)
	}
	if err := db.Table(cfg.HistoryTable).AutoMigrate(&historyRow{}); err != nil {
		return nil, store.NewErrorf(store.RetCInternalError, "failed to migrate %s: %v", cfg.HistoryTable, err)
	}

	return s, nil
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

	// The whole read-check-write sequence runs in one transaction holding a
	// row lock on the resource's row. The unique index on
	// (resource_type, resource_id) is the backstop for dialects without row
	// locks: a losing insert is mapped to contention below.
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var row lockRow
		q := tx.Table(s.cfg.LocksTable).
			Where("resource_type = ? AND resource_id = ?", candidate.Resource.Type, candidate.Resource.ID)
		if tx.Dialector.Name() != "sqlite" {
			// SQLite serializes writers itself and rejects FOR UPDATE.
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		err := q.Take(&row).Error
		switch {
		case err == nil:
			if row.ExpiresAt.After(now) {
				existing = row.toLock()
				return nil // contention, not an error
			}
			// Lazy expiry: drop the passed lease in the same transaction.
			existing = row.toLock()
			if err := tx.Table(s.cfg.LocksTable).Where("id = ?", row.ID).Delete(&lockRow{}).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// vacant
		default:
			return err
		}

		if err := tx.Table(s.cfg.LocksTable).Create(toLockRow(candidate, now)).Error; err != nil {
			return err
		}
		acquired = true
		return nil
	})

	if err != nil {
		// A unique-index violation means a concurrent acquirer won between
		// our check and insert. Report the winner as contention.
		if winner, found, rerr := s.GetLock(candidate.Resource); rerr == nil && found && winner.ID != candidate.ID {
			return false, winner, nil
		}
		return false, nil, store.NewErrorf(store.RetCInternalError, "acquire failed: %v", err)
	}
	return acquired, existing, nil
}

func (s *storeImpl) GetLock(resource lock.ResourceRef) (*lock.Lock, bool, error) {
	var row lockRow
	err := s.db.Table(s.cfg.LocksTable).
		Where("resource_type = ? AND resource_id = ?", resource.Type, resource.ID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, store.NewErrorf(store.RetCInternalError, "get lock failed: %v", err)
	}
	return row.toLock(), true, nil
}

func (s *storeImpl) UpdateLock(l *lock.Lock) (bool, error) {
	if l == nil || l.Resource.IsZero() {
		return false, store.NewError(store.RetCInvalidOperation, "UpdateLock requires a lock with a resource reference")
	}

	row := toLockRow(l, time.Now().UTC())
	res := s.db.Table(s.cfg.LocksTable).
		Where("resource_type = ? AND resource_id = ?", l.Resource.Type, l.Resource.ID).
		Select("user_id", "session_id", "strategy", "locked_fields", "locked_at",
			"expires_at", "token", "ip_address", "user_agent", "metadata", "updated_at").
		Updates(row)
	if res.Error != nil {
		return false, store.NewErrorf(store.RetCInternalError, "update lock failed: %v", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *storeImpl) DeleteLock(resource lock.ResourceRef) (*lock.Lock, bool, error) {
	l, found, err := s.GetLock(resource)
	if err != nil || !found {
		return nil, false, err
	}
	res := s.db.Table(s.cfg.LocksTable).Where("id = ?", l.ID).Delete(&lockRow{})
	if res.Error != nil {
		return nil, false, store.NewErrorf(store.RetCInternalError, "delete lock failed: %v", res.Error)
	}
	return l, res.RowsAffected > 0, nil
}

func (s *storeImpl) ListLocks(filter store.ListFilter, now time.Time) ([]*lock.Lock, error) {
	q := s.db.Table(s.cfg.LocksTable)
	switch filter {
	case store.ListActive:
		q = q.Where("expires_at > ?", now)
	case store.ListExpired:
		q = q.Where("expires_at <= ?", now)
	}

	var rows []lockRow
	if err := q.Order("resource_type, resource_id").Find(&rows).Error; err != nil {
		return nil, store.NewErrorf(store.RetCInternalError, "list locks failed: %v", err)
	}
	return rowsToLocks(rows), nil
}

func (s *storeImpl) DeleteLocksByUser(userID string) ([]*lock.Lock, error) {
	return s.deleteLocksWhere("user_id = ?", userID)
}

func (s *storeImpl) DeleteExpiredLocks(now time.Time) ([]*lock.Lock, error) {
	return s.deleteLocksWhere("expires_at <= ?", now)
}

func (s *storeImpl) DeleteAllLocks() ([]*lock.Lock, error) {
	return s.deleteLocksWhere("1 = 1")
}

// --------------------------------------------------------------------------
// Interface Methods - Sessions (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) PutSession(sess *lock.Session) error {
	if sess == nil || sess.ID == "" {
		return store.NewError(store.RetCInvalidOperation, "PutSession requires a session with an id")
	}
	err := s.db.Table(s.cfg.SessionsTable).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(toSessionRow(sess, time.Now().UTC())).Error
	if err != nil {
		return store.NewErrorf(store.RetCInternalError, "put session failed: %v", err)
	}
	return nil
}

func (s *storeImpl) GetSession(id string) (*lock.Session, bool, error) {
	var row sessionRow
	err := s.db.Table(s.cfg.SessionsTable).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, store.NewErrorf(store.RetCInternalError, "get session failed: %v", err)
	}
	return row.toSession(), true, nil
}

func (s *storeImpl) TouchSession(id string, now time.Time) (bool, error) {
	res := s.db.Table(s.cfg.SessionsTable).Where("id = ?", id).
		Updates(map[string]interface{}{"last_heartbeat": now, "updated_at": now})
	if res.Error != nil {
		return false, store.NewErrorf(store.RetCInternalError, "touch session failed: %v", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *storeImpl) ListSessionsForLock(lockID string) ([]*lock.Session, error) {
	var rows []sessionRow
	err := s.db.Table(s.cfg.SessionsTable).Where("lock_id = ?", lockID).Order("id").Find(&rows).Error
	if err != nil {
		return nil, store.NewErrorf(store.RetCInternalError, "list sessions failed: %v", err)
	}
	out := make([]*lock.Session, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toSession())
	}
	return out, nil
}

func (s *storeImpl) DeleteSessionsForLock(lockID string) (int, error) {
	res := s.db.Table(s.cfg.SessionsTable).Where("lock_id = ?", lockID).Delete(&sessionRow{})
	if res.Error != nil {
		return 0, store.NewErrorf(store.RetCInternalError, "delete sessions failed: %v", res.Error)
	}
	return int(res.RowsAffected), nil
}

func (s *storeImpl) DeleteStaleSessions(cutoff time.Time) (int, error) {
	res := s.db.Table(s.cfg.SessionsTable).Where("last_heartbeat < ?", cutoff).Delete(&sessionRow{})
	if res.Error != nil {
		return 0, store.NewErrorf(store.RetCInternalError, "delete stale sessions failed: %v", res.Error)
	}
	return int(res.RowsAffected), nil
}

// --------------------------------------------------------------------------
// Interface Methods - History (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) AppendHistory(entry *lock.HistoryEntry) error {
	if entry == nil {
		return store.NewError(store.RetCInvalidOperation, "AppendHistory requires an entry")
	}
	if err := s.db.Table(s.cfg.HistoryTable).Create(toHistoryRow(entry)).Error; err != nil {
		return store.NewErrorf(store.RetCInternalError, "append history failed: %v", err)
	}
	return nil
}

func (s *storeImpl) ListHistory(resource lock.ResourceRef, limit int) ([]*lock.HistoryEntry, error) {
	q := s.db.Table(s.cfg.HistoryTable).
		Where("resource_type = ? AND resource_id = ?", resource.Type, resource.ID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []historyRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, store.NewErrorf(store.RetCInternalError, "list history failed: %v", err)
	}
	out := make([]*lock.HistoryEntry, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toHistoryEntry())
	}
	return out, nil
}

func (s *storeImpl) CountHistory() (int, error) {
	var count int64
	if err := s.db.Table(s.cfg.HistoryTable).Count(&count).Error; err != nil {
		return 0, store.NewErrorf(store.RetCInternalError, "count history failed: %v", err)
	}
	return int(count), nil
}

func (s *storeImpl) DeleteHistoryBefore(cutoff time.Time) (int, error) {
	res := s.db.Table(s.cfg.HistoryTable).Where("created_at < ?", cutoff).Delete(&historyRow{})
	if res.Error != nil {
		return 0, store.NewErrorf(store.RetCInternalError, "delete history failed: %v", res.Error)
	}
	return int(res.RowsAffected), nil
}

func (s *storeImpl) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return store.NewErrorf(store.RetCInternalError, "close failed: %v", err)
	}
	return sqlDB.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// deleteLocksWhere selects matching rows and deletes them in one
// transaction, returning the deleted rows for auditing.
func (s *storeImpl) deleteLocksWhere(cond string, args ...interface{}) ([]*lock.Lock, error) {
	var deleted []*lock.Lock
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var rows []lockRow
		if err := tx.Table(s.cfg.LocksTable).Where(cond, args...).Order("resource_type, resource_id").Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		ids := make([]string, 0, len(rows))
		for i := range rows {
			ids = append(ids, rows[i].ID)
		}
		if err := tx.Table(s.cfg.LocksTable).Where("id IN ?", ids).Delete(&lockRow{}).Error; err != nil {
			return err
		}
		deleted = rowsToLocks(rows)
		return nil
	})
	if err != nil {
		return nil, store.NewErrorf(store.RetCInternalError, "bulk delete failed: %v", err)
	}
	return deleted, nil
}

func rowsToLocks(rows []lockRow) []*lock.Lock {
	out := make([]*lock.Lock, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toLock())
	}
	return out
}
