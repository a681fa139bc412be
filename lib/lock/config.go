package lock

import "time"

// Default configuration values. Leases are sized for human editing
// sessions: minutes to hours, never sub-second.
const (
	DefaultDuration = 30 * time.Minute
	MinDuration     = 1 * time.Minute
	MaxDuration     = 4 * time.Hour

	DefaultHeartbeatInterval = 30 * time.Second
	DefaultHeartbeatTimeout  = 2 * time.Minute

	DefaultHistoryRetention = 30 * 24 * time.Hour

	DefaultLocksTable    = "locks"
	DefaultSessionsTable = "lock_sessions"
	DefaultHistoryTable  = "lock_history"
)

// Config carries the tunables shared by the manager and the stores.
type Config struct {
	// Lease durations. Acquire and extend requests are clamped into
	// [MinDuration, MaxDuration]; a zero requested duration falls back to
	// DefaultDuration.
	DefaultDuration time.Duration
	MinDuration     time.Duration
	MaxDuration     time.Duration

	// DefaultStrategy is recorded on locks acquired without an explicit one.
	DefaultStrategy Strategy

	// Write-guard policy flags (see manager.Guard).
	PreventUpdateIfLocked  bool
	AutoReleaseAfterUpdate bool

	// Audit history. With HistoryEnabled false all history writes become
	// no-ops. HistoryRetention bounds how long entries are kept; the
	// retention sweep deletes older ones.
	HistoryEnabled   bool
	HistoryRetention time.Duration

	// Session heartbeats. A session is stale once its last heartbeat is
	// older than HeartbeatTimeout.
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration

	// Table name overrides for relational stores.
	LocksTable    string
	SessionsTable string
	HistoryTable  string
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		DefaultDuration:        DefaultDuration,
		MinDuration:            MinDuration,
		MaxDuration:            MaxDuration,
		DefaultStrategy:        StrategyPessimistic,
		PreventUpdateIfLocked:  true,
		AutoReleaseAfterUpdate: false,
		HistoryEnabled:         true,
		HistoryRetention:       DefaultHistoryRetention,
		HeartbeatInterval:      DefaultHeartbeatInterval,
		HeartbeatTimeout:       DefaultHeartbeatTimeout,
		LocksTable:             DefaultLocksTable,
		SessionsTable:          DefaultSessionsTable,
		HistoryTable:           DefaultHistoryTable,
	}
}

// ClampDuration clamps a requested lease duration into the configured
// bounds. Zero or negative requests fall back to the default duration
// before clamping.
func (c Config) ClampDuration(requested time.Duration) time.Duration {
	d := requested
	if d <= 0 {
		d = c.DefaultDuration
	}
	if d < c.MinDuration {
		d = c.MinDuration
	}
	if d > c.MaxDuration {
		d = c.MaxDuration
	}
	return d
}

// StrategyOrDefault returns s if valid, the configured default otherwise.
func (c Config) StrategyOrDefault(s Strategy) Strategy {
	if s.Valid() {
		return s
	}
	return c.DefaultStrategy
}
