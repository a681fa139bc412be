package manager

import (
	"github.com/reslock/reslock/lib/lock"
	"github.com/reslock/reslock/lib/store"
)

// --------------------------------------------------------------------------
// Interface Methods - Sweeps (docu see interface.go)
// --------------------------------------------------------------------------

// SweepExpiredLocks purges all locks whose lease has passed. History is
// written before the bulk delete so every purged lock has its expired
// entry even if the delete then removes several rows at once.
func (m *managerImpl) SweepExpiredLocks() (int, error) {
	now := m.now()

	expired, err := m.store.ListLocks(store.ListExpired, now)
	if err != nil {
		return 0, err
	}
	for _, l := range expired {
		if err := m.recordExpired(l); err != nil {
			return 0, err
		}
	}

	deleted, err := m.store.DeleteExpiredLocks(now)
	if err != nil {
		return 0, err
	}
	for _, l := range deleted {
		if _, err := m.store.DeleteSessionsForLock(l.ID); err != nil {
			return 0, err
		}
	}
	return len(deleted), nil
}

// SweepStaleSessions purges sessions that stopped heartbeating. Sessions
// are not audited; only locks are.
func (m *managerImpl) SweepStaleSessions() (int, error) {
	cutoff := m.now().Add(-m.cfg.HeartbeatTimeout)
	return m.store.DeleteStaleSessions(cutoff)
}

// SweepOldHistory purges audit entries past the retention window.
func (m *managerImpl) SweepOldHistory() (int, error) {
	cutoff := m.now().Add(-m.cfg.HistoryRetention)
	return m.store.DeleteHistoryBefore(cutoff)
}

func (m *managerImpl) RunAllSweeps() (SweepReport, error) {
	var report SweepReport
	var err error

	if report.ExpiredLocks, err = m.SweepExpiredLocks(); err != nil {
		return report, err
	}
	if report.StaleSessions, err = m.SweepStaleSessions(); err != nil {
		return report, err
	}
	if report.PurgedHistory, err = m.SweepOldHistory(); err != nil {
		return report, err
	}
	return report, nil
}

// --------------------------------------------------------------------------
// Interface Methods - Statistics (docu see interface.go)
// --------------------------------------------------------------------------

func (m *managerImpl) GetStats(topUsers int) (Stats, error) {
	now := m.now()

	all, err := m.store.ListLocks(store.ListAll, now)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		ByStrategy:     make(map[lock.Strategy]int),
		ByResourceType: make(map[string]int),
	}
	activeByUser := make(map[string]int)

	for _, l := range all {
		if l.IsExpired(now) {
			stats.ExpiredLocks++
			continue
		}
		stats.ActiveLocks++
		stats.ByStrategy[l.Strategy]++
		stats.ByResourceType[l.Resource.Type]++
		activeByUser[l.UserID]++
	}

	stats.TopUsers = topUserCounts(activeByUser, topUsers)
	return stats, nil
}

// topUserCounts returns the n highest lock counts, ties broken by user id
// for deterministic output.
func topUserCounts(byUser map[string]int, n int) []UserLockCount {
	counts := make([]UserLockCount, 0, len(byUser))
	for user, count := range byUser {
		counts = append(counts, UserLockCount{UserID: user, Count: count})
	}

	// Insertion sort; user counts are small.
	for i := 1; i < len(counts); i++ {
		for j := i; j > 0; j-- {
			a, b := counts[j-1], counts[j]
			if b.Count > a.Count || (b.Count == a.Count && b.UserID < a.UserID) {
				counts[j-1], counts[j] = b, a
			} else {
				break
			}
		}
	}

	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}
