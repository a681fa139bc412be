package manager

import "github.com/VictoriaMetrics/metrics"

// Lifecycle counters, exported on the serve command's /metrics endpoint.
var (
	metricAcquired      = metrics.NewCounter(`reslock_locks_acquired_total`)
	metricRenewed       = metrics.NewCounter(`reslock_locks_renewed_total`)
	metricContended     = metrics.NewCounter(`reslock_locks_contended_total`)
	metricReleased      = metrics.NewCounter(`reslock_locks_released_total`)
	metricForceReleased = metrics.NewCounter(`reslock_locks_force_released_total`)
	metricExpired       = metrics.NewCounter(`reslock_locks_expired_total`)
	metricRequested     = metrics.NewCounter(`reslock_locks_requested_total`)
)
