package manager

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reslock/reslock/lib/lock"
	"github.com/reslock/reslock/lib/store/memstore"
)

// --------------------------------------------------------------------------
// Test Helpers
// --------------------------------------------------------------------------

// fakeClock is a settable time source so tests can simulate lease expiry
// without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestManager(t *testing.T, mutate ...func(*lock.Config)) (ILockManager, *fakeClock) {
	t.Helper()

	cfg := lock.DefaultConfig()
	cfg.MinDuration = 60 * time.Second
	cfg.MaxDuration = 3600 * time.Second
	cfg.DefaultDuration = 600 * time.Second
	for _, fn := range mutate {
		fn(&cfg)
	}

	clock := newFakeClock()
	return New(memstore.NewMemStore(), cfg, WithClock(clock.Now)), clock
}

func docRef(id string) lock.ResourceRef {
	return lock.NewResourceRef("document", id)
}

func historyActions(t *testing.T, m ILockManager, resource lock.ResourceRef) []lock.HistoryAction {
	t.Helper()
	entries, err := m.GetHistory(resource, 0)
	require.NoError(t, err)
	actions := make([]lock.HistoryAction, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	return actions
}

// --------------------------------------------------------------------------
// Acquire
// --------------------------------------------------------------------------

func TestAcquireRequiresUser(t *testing.T) {
	m, _ := newTestManager(t)

	result, err := m.Acquire(docRef("1"), "", AcquireOptions{})
	require.NoError(t, err)
	assert.False(t, result.IsSuccessful())
	assert.Nil(t, result.Lock)
}

func TestAcquireContention(t *testing.T) {
	m, _ := newTestManager(t)
	res := docRef("1")

	first, err := m.Acquire(res, "alice", AcquireOptions{})
	require.NoError(t, err)
	require.True(t, first.IsSuccessful())
	assert.Len(t, first.Lock.Token, lock.TokenLength)

	second, err := m.Acquire(res, "bob", AcquireOptions{})
	require.NoError(t, err)
	assert.False(t, second.IsSuccessful())
	assert.Equal(t, "alice", second.GetLockedBy())

	// Contention is not audited as an acquire.
	assert.Equal(t, []lock.HistoryAction{lock.ActionAcquired}, historyActions(t, m, res))
}

func TestAcquireAfterRelease(t *testing.T) {
	m, _ := newTestManager(t)
	res := docRef("1")

	_, err := m.Acquire(res, "alice", AcquireOptions{})
	require.NoError(t, err)

	ok, err := m.Release(res, "alice")
	require.NoError(t, err)
	require.True(t, ok)

	result, err := m.Acquire(res, "bob", AcquireOptions{})
	require.NoError(t, err)
	assert.True(t, result.IsSuccessful())
}

func TestAcquireClampsDuration(t *testing.T) {
	m, clock := newTestManager(t)

	// min=60s: a request for 10s yields an effective lease of 60s.
	result, err := m.Acquire(docRef("1"), "alice", AcquireOptions{Duration: 10 * time.Second})
	require.NoError(t, err)
	require.True(t, result.IsSuccessful())
	assert.Equal(t, clock.Now().Add(60*time.Second), result.Lock.ExpiresAt)

	// max=3600s: a request for 2h is cut to 1h.
	result, err = m.Acquire(docRef("2"), "alice", AcquireOptions{Duration: 2 * time.Hour})
	require.NoError(t, err)
	require.True(t, result.IsSuccessful())
	assert.Equal(t, clock.Now().Add(time.Hour), result.Lock.ExpiresAt)
}

func TestReacquireRenewsLease(t *testing.T) {
	m, clock := newTestManager(t)
	res := docRef("1")

	first, err := m.Acquire(res, "alice", AcquireOptions{Duration: 10 * time.Minute})
	require.NoError(t, err)
	require.True(t, first.IsSuccessful())
	firstExpiry := first.Lock.ExpiresAt

	clock.Advance(5 * time.Minute)

	second, err := m.Acquire(res, "alice", AcquireOptions{Duration: 10 * time.Minute})
	require.NoError(t, err)
	require.True(t, second.IsSuccessful())

	// Renewal: expires_at moves forward, never shortens.
	assert.True(t, second.Lock.ExpiresAt.After(firstExpiry))
	assert.Equal(t, clock.Now().Add(10*time.Minute), second.Lock.ExpiresAt)
	assert.Equal(t, first.Lock.ID, second.Lock.ID, "renewal keeps the same lock row")
	assert.Contains(t, second.Lock.Metadata, "extended_at")

	// Renewals are not audited as fresh acquires.
	assert.Equal(t, []lock.HistoryAction{lock.ActionAcquired}, historyActions(t, m, res))
}

func TestAcquireRecordsContext(t *testing.T) {
	m, _ := newTestManager(t)

	result, err := m.Acquire(docRef("1"), "alice", AcquireOptions{
		Strategy:  lock.StrategyOptimistic,
		Fields:    []string{"title", "body"},
		SessionID: "sess-1",
		IPAddress: "10.0.0.7",
		UserAgent: "reslock-test",
		Metadata:  map[string]string{"reason": "edit"},
	})
	require.NoError(t, err)
	require.True(t, result.IsSuccessful())

	l := result.Lock
	assert.Equal(t, lock.StrategyOptimistic, l.Strategy)
	assert.Equal(t, []string{"title", "body"}, l.LockedFields)
	assert.Equal(t, "sess-1", l.SessionID)
	assert.Equal(t, "10.0.0.7", l.IPAddress)
	assert.Equal(t, "edit", l.Metadata["reason"])
}

// --------------------------------------------------------------------------
// Release / ForceRelease / Extend / RequestLock
// --------------------------------------------------------------------------

func TestRelease(t *testing.T) {
	m, clock := newTestManager(t)
	res := docRef("1")

	_, err := m.Acquire(res, "alice", AcquireOptions{})
	require.NoError(t, err)

	clock.Advance(3 * time.Minute)

	ok, err := m.Release(res, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	locked, err := m.IsLocked(res)
	require.NoError(t, err)
	assert.False(t, locked)

	entries, err := m.GetHistory(res, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	released := entries[0]
	assert.Equal(t, lock.ActionReleased, released.Action)
	require.NotNil(t, released.DurationSeconds)
	assert.Equal(t, int64(180), *released.DurationSeconds)
}

func TestReleaseByNonOwner(t *testing.T) {
	m, _ := newTestManager(t)
	res := docRef("1")

	_, err := m.Acquire(res, "alice", AcquireOptions{})
	require.NoError(t, err)

	ok, err := m.Release(res, "bob")
	require.NoError(t, err)
	assert.False(t, ok)

	// Lock stays intact.
	active, found, err := m.GetActiveLock(res)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "alice", active.UserID)
}

func TestReleaseWithoutLock(t *testing.T) {
	m, _ := newTestManager(t)

	ok, err := m.Release(docRef("1"), "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestForceRelease(t *testing.T) {
	m, _ := newTestManager(t)
	res := docRef("1")

	result, err := m.Acquire(res, "alice", AcquireOptions{Duration: 10 * time.Minute})
	require.NoError(t, err)
	require.True(t, result.IsSuccessful())

	// No ownership check: anyone may force.
	ok, err := m.ForceRelease(res, "admin")
	require.NoError(t, err)
	assert.True(t, ok)

	locked, err := m.IsLocked(res)
	require.NoError(t, err)
	assert.False(t, locked)

	entries, err := m.GetHistory(res, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	forced := entries[0]
	assert.Equal(t, lock.ActionForcedRelease, forced.Action)
	assert.Equal(t, "alice", forced.UserID)
	assert.Equal(t, "admin", forced.Metadata["forced_by"])
	// The audited duration is the full span the lock would have covered.
	require.NotNil(t, forced.DurationSeconds)
	assert.Equal(t, int64(600), *forced.DurationSeconds)
}

func TestForceReleaseWithoutLock(t *testing.T) {
	m, _ := newTestManager(t)

	ok, err := m.ForceRelease(docRef("1"), "admin")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExtend(t *testing.T) {
	m, clock := newTestManager(t)
	res := docRef("1")

	_, err := m.Acquire(res, "alice", AcquireOptions{Duration: 5 * time.Minute})
	require.NoError(t, err)

	ok, err := m.Extend(res, "alice", 30*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	active, _, err := m.GetActiveLock(res)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(30*time.Minute), active.ExpiresAt)

	// Extend clamps like acquire: 2h request is cut to the 1h maximum.
	ok, err = m.Extend(res, "alice", 2*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	active, _, err = m.GetActiveLock(res)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(time.Hour), active.ExpiresAt)

	// Non-owners cannot extend.
	ok, err = m.Extend(res, "bob", 10*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRequestLock(t *testing.T) {
	m, _ := newTestManager(t)
	res := docRef("1")

	// No lock, nothing to request.
	ok, err := m.RequestLock(res, "bob")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = m.Acquire(res, "alice", AcquireOptions{})
	require.NoError(t, err)

	// Owners do not request their own lock.
	ok, err = m.RequestLock(res, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.RequestLock(res, "bob")
	require.NoError(t, err)
	assert.True(t, ok)

	entries, err := m.GetHistory(res, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, lock.ActionRequested, entries[0].Action)
	assert.Equal(t, "bob", entries[0].UserID)
	assert.Equal(t, "alice", entries[0].Metadata["owner"])
	assert.Nil(t, entries[0].DurationSeconds)
}

// --------------------------------------------------------------------------
// Lazy Expiry
// --------------------------------------------------------------------------

func TestLazyExpiry(t *testing.T) {
	m, clock := newTestManager(t)
	res := docRef("1")

	_, err := m.Acquire(res, "alice", AcquireOptions{Duration: 600 * time.Second})
	require.NoError(t, err)

	// One second past the lease: the lock is gone on read.
	clock.Advance(601 * time.Second)

	locked, err := m.IsLocked(res)
	require.NoError(t, err)
	assert.False(t, locked)

	// The purge on read audits the expiry.
	entries, err := m.GetHistory(res, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, lock.ActionExpired, entries[0].Action)
	assert.Equal(t, "alice", entries[0].UserID)
	require.NotNil(t, entries[0].DurationSeconds)
	assert.Equal(t, int64(600), *entries[0].DurationSeconds)
}

func TestExpiredLockDoesNotBlockAcquire(t *testing.T) {
	m, clock := newTestManager(t)
	res := docRef("1")

	_, err := m.Acquire(res, "alice", AcquireOptions{Duration: time.Minute})
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	result, err := m.Acquire(res, "bob", AcquireOptions{})
	require.NoError(t, err)
	assert.True(t, result.IsSuccessful())

	// Alice's expiry was audited when her row was displaced.
	actions := historyActions(t, m, res)
	assert.Contains(t, actions, lock.ActionExpired)
}

func TestGetLockInfo(t *testing.T) {
	m, clock := newTestManager(t)
	res := docRef("1")

	_, found, err := m.GetLockInfo(res)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = m.Acquire(res, "alice", AcquireOptions{Duration: 10 * time.Minute})
	require.NoError(t, err)

	clock.Advance(4 * time.Minute)

	info, found, err := m.GetLockInfo(res)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "alice", info.UserID)
	assert.Equal(t, int64(360), info.RemainingSeconds)
	assert.Equal(t, lock.StrategyPessimistic, info.Strategy)
	assert.Len(t, info.Token, lock.TokenLength)
}

// --------------------------------------------------------------------------
// Bulk Operations
// --------------------------------------------------------------------------

func TestReleaseAllForUser(t *testing.T) {
	m, _ := newTestManager(t)

	for _, id := range []string{"1", "2"} {
		_, err := m.Acquire(docRef(id), "alice", AcquireOptions{})
		require.NoError(t, err)
	}
	_, err := m.Acquire(docRef("3"), "bob", AcquireOptions{})
	require.NoError(t, err)

	count, err := m.ReleaseAllForUser("alice")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	locked, err := m.IsLocked(docRef("3"))
	require.NoError(t, err)
	assert.True(t, locked, "other users' locks stay")

	assert.Contains(t, historyActions(t, m, docRef("1")), lock.ActionReleased)
	assert.Contains(t, historyActions(t, m, docRef("2")), lock.ActionReleased)
}

func TestReleaseAll(t *testing.T) {
	m, _ := newTestManager(t)

	for i, user := range []string{"alice", "bob", "carol"} {
		_, err := m.Acquire(docRef(string(rune('1'+i))), user, AcquireOptions{})
		require.NoError(t, err)
	}

	count, err := m.ReleaseAll()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	active, err := m.ListActiveLocks()
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestListActiveAndExpired(t *testing.T) {
	m, clock := newTestManager(t)

	_, err := m.Acquire(docRef("short"), "alice", AcquireOptions{Duration: time.Minute})
	require.NoError(t, err)
	_, err = m.Acquire(docRef("long"), "bob", AcquireOptions{Duration: time.Hour})
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)

	active, err := m.ListActiveLocks()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "bob", active[0].UserID)

	expired, err := m.ListExpiredLocks()
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "alice", expired[0].UserID)
}

// --------------------------------------------------------------------------
// Sessions
// --------------------------------------------------------------------------

func TestSessions(t *testing.T) {
	m, clock := newTestManager(t)
	res := docRef("1")

	// No lock, no session.
	_, ok, err := m.StartSession(res, "alice", "presence-document-1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = m.Acquire(res, "alice", AcquireOptions{})
	require.NoError(t, err)

	sess, ok, err := m.StartSession(res, "alice", "presence-document-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, sess.IsActive)

	clock.Advance(time.Minute)

	ok, err = m.Heartbeat(sess.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	sessions, err := m.ListSessions(res)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].LastHeartbeat.Equal(clock.Now()))

	ok, err = m.Heartbeat("unknown-session")
	require.NoError(t, err)
	assert.False(t, ok)
}

// --------------------------------------------------------------------------
// History Toggle
// --------------------------------------------------------------------------

func TestHistoryDisabled(t *testing.T) {
	m, clock := newTestManager(t, func(cfg *lock.Config) {
		cfg.HistoryEnabled = false
	})
	res := docRef("1")

	_, err := m.Acquire(res, "alice", AcquireOptions{})
	require.NoError(t, err)
	_, err = m.Release(res, "alice")
	require.NoError(t, err)

	_, err = m.Acquire(res, "alice", AcquireOptions{Duration: time.Minute})
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)
	_, err = m.SweepExpiredLocks()
	require.NoError(t, err)

	entries, err := m.GetHistory(res, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// --------------------------------------------------------------------------
// Concurrency
// --------------------------------------------------------------------------

func TestConcurrentAcquireSingleWinner(t *testing.T) {
	m, _ := newTestManager(t)
	res := docRef("contended")

	const goroutines = 32

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)

	start := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			<-start
			result, err := m.Acquire(res, "user-"+string(rune('a'+n%26))+string(rune('a'+n/26)), AcquireOptions{})
			assert.NoError(t, err)
			if result.IsSuccessful() {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}

	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one concurrent acquirer may win")
}
