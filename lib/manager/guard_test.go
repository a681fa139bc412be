package manager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reslock/reslock/lib/lock"
)

func TestGuardBeforeUpdate(t *testing.T) {
	m, _ := newTestManager(t)
	g := NewGuard(m)
	res := docRef("1")

	// Unlocked resources may always be written.
	require.NoError(t, g.BeforeUpdate(res, "bob"))

	_, err := m.Acquire(res, "alice", AcquireOptions{})
	require.NoError(t, err)

	// The owner may write.
	require.NoError(t, g.BeforeUpdate(res, "alice"))

	// Anyone else is blocked with the lock attached.
	err = g.BeforeUpdate(res, "bob")
	var locked *ResourceLockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, "alice", locked.Lock.UserID)
	assert.Contains(t, err.Error(), "locked by alice")
}

func TestGuardBeforeUpdateExpiredLock(t *testing.T) {
	m, clock := newTestManager(t)
	g := NewGuard(m)
	res := docRef("1")

	_, err := m.Acquire(res, "alice", AcquireOptions{Duration: time.Minute})
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	// An expired lock no longer blocks anyone.
	assert.NoError(t, g.BeforeUpdate(res, "bob"))
}

func TestGuardBeforeUpdateDisabled(t *testing.T) {
	m, _ := newTestManager(t, func(cfg *lock.Config) {
		cfg.PreventUpdateIfLocked = false
	})
	g := NewGuard(m)
	res := docRef("1")

	_, err := m.Acquire(res, "alice", AcquireOptions{})
	require.NoError(t, err)

	assert.NoError(t, g.BeforeUpdate(res, "bob"))
}

func TestGuardAfterUpdate(t *testing.T) {
	m, _ := newTestManager(t, func(cfg *lock.Config) {
		cfg.AutoReleaseAfterUpdate = true
	})
	g := NewGuard(m)
	res := docRef("1")

	_, err := m.Acquire(res, "alice", AcquireOptions{})
	require.NoError(t, err)

	require.NoError(t, g.AfterUpdate(res, "alice"))

	locked, err := m.IsLocked(res)
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestGuardAfterUpdateDisabled(t *testing.T) {
	m, _ := newTestManager(t, func(cfg *lock.Config) {
		cfg.AutoReleaseAfterUpdate = false
	})
	g := NewGuard(m)
	res := docRef("1")

	_, err := m.Acquire(res, "alice", AcquireOptions{})
	require.NoError(t, err)

	require.NoError(t, g.AfterUpdate(res, "alice"))

	locked, err := m.IsLocked(res)
	require.NoError(t, err)
	assert.True(t, locked, "lock stays when auto release is off")
}

func TestGuardBeforeDelete(t *testing.T) {
	m, _ := newTestManager(t)
	g := NewGuard(m)
	res := docRef("1")

	_, err := m.Acquire(res, "alice", AcquireOptions{})
	require.NoError(t, err)

	require.NoError(t, g.BeforeDelete(res))

	locked, err := m.IsLocked(res)
	require.NoError(t, err)
	assert.False(t, locked)

	// Purge is silent: no released or expired entry, only the acquire.
	assert.Equal(t, []lock.HistoryAction{lock.ActionAcquired}, historyActions(t, m, res))
}
