package manager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reslock/reslock/lib/lock"
)

func TestSweepExpiredLocks(t *testing.T) {
	m, clock := newTestManager(t)

	_, err := m.Acquire(docRef("short-1"), "alice", AcquireOptions{Duration: time.Minute})
	require.NoError(t, err)
	_, err = m.Acquire(docRef("short-2"), "bob", AcquireOptions{Duration: time.Minute})
	require.NoError(t, err)
	_, err = m.Acquire(docRef("long"), "carol", AcquireOptions{Duration: time.Hour})
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)

	count, err := m.SweepExpiredLocks()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// The survivor is untouched.
	locked, err := m.IsLocked(docRef("long"))
	require.NoError(t, err)
	assert.True(t, locked)

	// Each purged lock got exactly one expired entry before the delete.
	for _, id := range []string{"short-1", "short-2"} {
		entries, err := m.GetHistory(docRef(id), 0)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, lock.ActionExpired, entries[0].Action)
		require.NotNil(t, entries[0].DurationSeconds)
		assert.Equal(t, int64(60), *entries[0].DurationSeconds)
	}

	// A second sweep finds nothing.
	count, err = m.SweepExpiredLocks()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSweepExpiredLocksDropsSessions(t *testing.T) {
	m, clock := newTestManager(t)
	res := docRef("1")

	_, err := m.Acquire(res, "alice", AcquireOptions{Duration: time.Minute})
	require.NoError(t, err)
	_, ok, err := m.StartSession(res, "alice", "presence-document-1")
	require.NoError(t, err)
	require.True(t, ok)

	clock.Advance(2 * time.Minute)

	_, err = m.SweepExpiredLocks()
	require.NoError(t, err)

	// Sessions do not outlive their lock.
	sessions, err := m.ListSessions(res)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestSweepStaleSessions(t *testing.T) {
	m, clock := newTestManager(t, func(cfg *lock.Config) {
		cfg.HeartbeatTimeout = 2 * time.Minute
	})
	res := docRef("1")

	_, err := m.Acquire(res, "alice", AcquireOptions{Duration: time.Hour})
	require.NoError(t, err)

	stale, ok, err := m.StartSession(res, "alice", "tab-1")
	require.NoError(t, err)
	require.True(t, ok)

	clock.Advance(90 * time.Second)

	fresh, ok, err := m.StartSession(res, "alice", "tab-2")
	require.NoError(t, err)
	require.True(t, ok)

	clock.Advance(time.Minute)

	count, err := m.SweepStaleSessions()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	sessions, err := m.ListSessions(res)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, fresh.ID, sessions[0].ID)
	assert.NotEqual(t, stale.ID, sessions[0].ID)
}

func TestSweepOldHistory(t *testing.T) {
	m, clock := newTestManager(t, func(cfg *lock.Config) {
		cfg.HistoryRetention = 24 * time.Hour
	})
	res := docRef("1")

	_, err := m.Acquire(res, "alice", AcquireOptions{})
	require.NoError(t, err)
	_, err = m.Release(res, "alice")
	require.NoError(t, err)

	clock.Advance(48 * time.Hour)

	_, err = m.Acquire(res, "bob", AcquireOptions{})
	require.NoError(t, err)

	count, err := m.SweepOldHistory()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	entries, err := m.GetHistory(res, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "bob", entries[0].UserID)
}

func TestRunAllSweeps(t *testing.T) {
	m, clock := newTestManager(t, func(cfg *lock.Config) {
		cfg.HeartbeatTimeout = time.Minute
		cfg.HistoryRetention = time.Hour
	})
	res := docRef("1")

	_, err := m.Acquire(res, "alice", AcquireOptions{Duration: time.Minute})
	require.NoError(t, err)
	_, ok, err := m.StartSession(res, "alice", "tab-1")
	require.NoError(t, err)
	require.True(t, ok)

	clock.Advance(2 * time.Hour)

	report, err := m.RunAllSweeps()
	require.NoError(t, err)
	assert.Equal(t, 1, report.ExpiredLocks)
	// The lock sweep already dropped the session alongside its lock.
	assert.Equal(t, 0, report.StaleSessions)
	// The acquire entry is outside retention; the expired entry written by
	// this very sweep is fresh and stays.
	assert.Equal(t, 1, report.PurgedHistory)
}

func TestGetStats(t *testing.T) {
	m, clock := newTestManager(t)

	_, err := m.Acquire(docRef("1"), "alice", AcquireOptions{Strategy: lock.StrategyPessimistic})
	require.NoError(t, err)
	_, err = m.Acquire(docRef("2"), "alice", AcquireOptions{Strategy: lock.StrategyOptimistic})
	require.NoError(t, err)
	_, err = m.Acquire(lock.NewResourceRef("invoice", "7"), "bob", AcquireOptions{Strategy: lock.StrategyPessimistic})
	require.NoError(t, err)
	_, err = m.Acquire(docRef("stale"), "carol", AcquireOptions{Duration: time.Minute})
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)

	stats, err := m.GetStats(2)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.ActiveLocks)
	assert.Equal(t, 1, stats.ExpiredLocks)
	assert.Equal(t, 2, stats.ByStrategy[lock.StrategyPessimistic])
	assert.Equal(t, 1, stats.ByStrategy[lock.StrategyOptimistic])
	assert.Equal(t, 2, stats.ByResourceType["document"])
	assert.Equal(t, 1, stats.ByResourceType["invoice"])

	require.Len(t, stats.TopUsers, 2)
	assert.Equal(t, UserLockCount{UserID: "alice", Count: 2}, stats.TopUsers[0])
	assert.Equal(t, UserLockCount{UserID: "bob", Count: 1}, stats.TopUsers[1])
}
