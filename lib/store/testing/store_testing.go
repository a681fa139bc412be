package testing

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reslock/reslock/lib/lock"
	"github.com/reslock/reslock/lib/store"
)

// StoreFactory is a function that creates a fresh instance of an
// ILockStore implementation.
type StoreFactory func(t *testing.T) store.ILockStore

// RunLockStoreTests runs the conformance suite for an ILockStore
// implementation. Every implementation must pass it unchanged.
func RunLockStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("AcquireAndGet", func(t *testing.T) {
			testAcquireAndGet(t, factory(t))
		})

		t.Run("AcquireContention", func(t *testing.T) {
			testAcquireContention(t, factory(t))
		})

		t.Run("AcquireDisplacesExpired", func(t *testing.T) {
			testAcquireDisplacesExpired(t, factory(t))
		})

		t.Run("ConcurrentAcquireSingleWinner", func(t *testing.T) {
			testConcurrentAcquireSingleWinner(t, factory(t))
		})

		t.Run("UpdateAndDelete", func(t *testing.T) {
			testUpdateAndDelete(t, factory(t))
		})

		t.Run("ListFilters", func(t *testing.T) {
			testListFilters(t, factory(t))
		})

		t.Run("BulkDeletes", func(t *testing.T) {
			testBulkDeletes(t, factory(t))
		})

		t.Run("Sessions", func(t *testing.T) {
			testSessions(t, factory(t))
		})

		t.Run("History", func(t *testing.T) {
			testHistory(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

var testEpoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newLock(t testing.TB, resource lock.ResourceRef, userID string, lockedAt time.Time, lease time.Duration) *lock.Lock {
	token, err := lock.NewToken()
	require.NoError(t, err)

	return &lock.Lock{
		ID:        uuid.NewString(),
		Resource:  resource,
		UserID:    userID,
		LockedAt:  lockedAt,
		ExpiresAt: lockedAt.Add(lease),
		Token:     token,
		Strategy:  lock.StrategyPessimistic,
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testAcquireAndGet(t *testing.T, s store.ILockStore) {
	defer s.Close()

	res := lock.NewResourceRef("document", "1")
	l := newLock(t, res, "alice", testEpoch, 10*time.Minute)

	acquired, existing, err := s.AcquireLock(l, testEpoch)
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.Nil(t, existing)

	got, found, err := s.GetLock(res)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, l.ID, got.ID)
	assert.Equal(t, "alice", got.UserID)
	assert.Equal(t, l.Token, got.Token)

	// Returned rows are copies: mutating them must not affect the store.
	got.UserID = "mallory"
	again, _, err := s.GetLock(res)
	require.NoError(t, err)
	assert.Equal(t, "alice", again.UserID)
}

func testAcquireContention(t *testing.T, s store.ILockStore) {
	defer s.Close()

	res := lock.NewResourceRef("document", "1")
	first := newLock(t, res, "alice", testEpoch, 10*time.Minute)
	second := newLock(t, res, "bob", testEpoch, 10*time.Minute)

	acquired, _, err := s.AcquireLock(first, testEpoch)
	require.NoError(t, err)
	require.True(t, acquired)

	acquired, existing, err := s.AcquireLock(second, testEpoch.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, acquired)
	require.NotNil(t, existing)
	assert.Equal(t, "alice", existing.UserID, "loser must receive the blocking row")

	// The stored row is still the winner's.
	got, found, err := s.GetLock(res)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, first.ID, got.ID)
}

func testAcquireDisplacesExpired(t *testing.T, s store.ILockStore) {
	defer s.Close()

	res := lock.NewResourceRef("document", "1")
	old := newLock(t, res, "alice", testEpoch, 10*time.Minute)

	acquired, _, err := s.AcquireLock(old, testEpoch)
	require.NoError(t, err)
	require.True(t, acquired)

	// Acquire after the first lease has passed.
	later := testEpoch.Add(11 * time.Minute)
	fresh := newLock(t, res, "bob", later, 10*time.Minute)

	acquired, displaced, err := s.AcquireLock(fresh, later)
	require.NoError(t, err)
	assert.True(t, acquired, "expired row must not block a new acquire")
	require.NotNil(t, displaced, "displaced expired row must be reported")
	assert.Equal(t, old.ID, displaced.ID)

	got, found, err := s.GetLock(res)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "bob", got.UserID)
}

func testConcurrentAcquireSingleWinner(t *testing.T, s store.ILockStore) {
	defer s.Close()

	const goroutines = 64

	res := lock.NewResourceRef("document", "contended")

	var (
		wg      sync.WaitGroup
		winners sync.Map
		count   int
	)

	start := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			l := newLock(t, res, fmt.Sprintf("user-%d", n), testEpoch, 10*time.Minute)
			<-start
			acquired, _, err := s.AcquireLock(l, testEpoch)
			assert.NoError(t, err)
			if acquired {
				winners.Store(n, struct{}{})
			}
		}(i)
	}

	close(start)
	wg.Wait()

	winners.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	assert.Equal(t, 1, count, "exactly one concurrent acquirer may win")
}

func testUpdateAndDelete(t *testing.T, s store.ILockStore) {
	defer s.Close()

	res := lock.NewResourceRef("document", "1")
	l := newLock(t, res, "alice", testEpoch, 10*time.Minute)

	// Updating a missing row is a no-op.
	found, err := s.UpdateLock(l)
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = s.AcquireLock(l, testEpoch)
	require.NoError(t, err)

	l.ExpiresAt = testEpoch.Add(time.Hour)
	found, err = s.UpdateLock(l)
	require.NoError(t, err)
	assert.True(t, found)

	got, _, err := s.GetLock(res)
	require.NoError(t, err)
	assert.True(t, got.ExpiresAt.Equal(testEpoch.Add(time.Hour)))

	deleted, found, err := s.DeleteLock(res)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, l.ID, deleted.ID)

	_, found, err = s.GetLock(res)
	require.NoError(t, err)
	assert.False(t, found)

	// Deleting again reports absence.
	_, found, err = s.DeleteLock(res)
	require.NoError(t, err)
	assert.False(t, found)
}

func testListFilters(t *testing.T, s store.ILockStore) {
	defer s.Close()

	active := newLock(t, lock.NewResourceRef("document", "active"), "alice", testEpoch, time.Hour)
	expired := newLock(t, lock.NewResourceRef("document", "expired"), "bob", testEpoch, time.Minute)

	_, _, err := s.AcquireLock(active, testEpoch)
	require.NoError(t, err)
	_, _, err = s.AcquireLock(expired, testEpoch)
	require.NoError(t, err)

	now := testEpoch.Add(5 * time.Minute)

	all, err := s.ListLocks(store.ListAll, now)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	actives, err := s.ListLocks(store.ListActive, now)
	require.NoError(t, err)
	require.Len(t, actives, 1)
	assert.Equal(t, "alice", actives[0].UserID)

	expireds, err := s.ListLocks(store.ListExpired, now)
	require.NoError(t, err)
	require.Len(t, expireds, 1)
	assert.Equal(t, "bob", expireds[0].UserID)
}

func testBulkDeletes(t *testing.T, s store.ILockStore) {
	defer s.Close()

	mkLock := func(id, user string, lease time.Duration) *lock.Lock {
		return newLock(t, lock.NewResourceRef("document", id), user, testEpoch, lease)
	}

	for _, l := range []*lock.Lock{
		mkLock("1", "alice", time.Minute),
		mkLock("2", "alice", time.Hour),
		mkLock("3", "bob", time.Hour),
	} {
		_, _, err := s.AcquireLock(l, testEpoch)
		require.NoError(t, err)
	}

	// Expired sweep removes only the passed lease.
	deleted, err := s.DeleteExpiredLocks(testEpoch.Add(5 * time.Minute))
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, "1", deleted[0].Resource.ID)

	// Per-user delete removes alice's remaining lock only.
	deleted, err = s.DeleteLocksByUser("alice")
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, "2", deleted[0].Resource.ID)

	// Delete-all clears the rest.
	deleted, err = s.DeleteAllLocks()
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, "bob", deleted[0].UserID)

	all, err := s.ListLocks(store.ListAll, testEpoch)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testSessions(t *testing.T, s store.ILockStore) {
	defer s.Close()

	sess := &lock.Session{
		ID:            uuid.NewString(),
		LockID:        uuid.NewString(),
		UserID:        "alice",
		ChannelName:   "presence-document-1",
		LastHeartbeat: testEpoch,
		IsActive:      true,
		CreatedAt:     testEpoch,
	}
	require.NoError(t, s.PutSession(sess))

	got, found, err := s.GetSession(sess.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "alice", got.UserID)

	// Touch moves the heartbeat forward.
	later := testEpoch.Add(time.Minute)
	found, err = s.TouchSession(sess.ID, later)
	require.NoError(t, err)
	assert.True(t, found)

	got, _, err = s.GetSession(sess.ID)
	require.NoError(t, err)
	assert.True(t, got.LastHeartbeat.Equal(later))

	// Touching a missing session reports absence.
	found, err = s.TouchSession("missing", later)
	require.NoError(t, err)
	assert.False(t, found)

	listed, err := s.ListSessionsForLock(sess.LockID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	// Stale sweep removes sessions that stopped heartbeating.
	stale := &lock.Session{
		ID:            uuid.NewString(),
		LockID:        uuid.NewString(),
		UserID:        "bob",
		LastHeartbeat: testEpoch.Add(-time.Hour),
		IsActive:      true,
		CreatedAt:     testEpoch.Add(-time.Hour),
	}
	require.NoError(t, s.PutSession(stale))

	count, err := s.DeleteStaleSessions(testEpoch)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, found, err = s.GetSession(stale.ID)
	require.NoError(t, err)
	assert.False(t, found)

	// Cascade delete by lock id.
	count, err = s.DeleteSessionsForLock(sess.LockID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func testHistory(t *testing.T, s store.ILockStore) {
	defer s.Close()

	res := lock.NewResourceRef("document", "1")
	other := lock.NewResourceRef("document", "2")

	appendEntry := func(resource lock.ResourceRef, action lock.HistoryAction, at time.Time) {
		entry, err := lock.NewHistoryEntry(uuid.NewString(), resource, "alice", action, at)
		require.NoError(t, err)
		require.NoError(t, s.AppendHistory(entry))
	}

	appendEntry(res, lock.ActionAcquired, testEpoch)
	appendEntry(res, lock.ActionReleased, testEpoch.Add(time.Minute))
	appendEntry(other, lock.ActionAcquired, testEpoch.Add(2*time.Minute))

	entries, err := s.ListHistory(res, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Newest first.
	assert.Equal(t, lock.ActionReleased, entries[0].Action)
	assert.Equal(t, lock.ActionAcquired, entries[1].Action)

	limited, err := s.ListHistory(res, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, lock.ActionReleased, limited[0].Action)

	count, err := s.CountHistory()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Retention cut drops the single oldest entry.
	removed, err := s.DeleteHistoryBefore(testEpoch.Add(30 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	count, err = s.CountHistory()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
