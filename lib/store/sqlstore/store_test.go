package sqlstore

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/reslock/reslock/lib/lock"
	"github.com/reslock/reslock/lib/store"
	storetesting "github.com/reslock/reslock/lib/store/testing"
)

func newTestStore(t *testing.T) store.ILockStore {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	s, err := NewSQLStore(db, lock.DefaultConfig())
	require.NoError(t, err)
	return s
}

func TestSQLStore(t *testing.T) {
	storetesting.RunLockStoreTests(t, "sqlstore", newTestStore)
}

func TestSQLStoreTableOverrides(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	cfg := lock.DefaultConfig()
	cfg.LocksTable = "app_locks"
	cfg.SessionsTable = "app_lock_sessions"
	cfg.HistoryTable = "app_lock_history"

	_, err = NewSQLStore(db, cfg)
	require.NoError(t, err)

	for _, table := range []string{"app_locks", "app_lock_sessions", "app_lock_history"} {
		require.True(t, db.Migrator().HasTable(table), "expected table %s", table)
	}
}
