package lock

import "time"

// Session tracks the liveness of an editing session attached to a lock.
// Sessions exist so abandoned locks can be detected independently of lease
// expiry: an editor that crashes stops heartbeating long before its lease
// runs out.
type Session struct {
	ID     string `json:"id"`
	LockID string `json:"lock_id"`
	UserID string `json:"user_id"`

	// ChannelName is the realtime fan-out channel for this session. The core
	// stores it for external consumers and never publishes anything itself.
	ChannelName string `json:"channel_name,omitempty"`

	LastHeartbeat time.Time `json:"last_heartbeat"`
	IsActive      bool      `json:"is_active"`

	// CursorPosition is an opaque position payload (e.g. line/column).
	CursorPosition map[string]string `json:"cursor_position,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// IsStale reports whether the session has missed heartbeats for longer than
// the given timeout.
func (s *Session) IsStale(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastHeartbeat) > timeout
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	if s.CursorPosition != nil {
		c.CursorPosition = make(map[string]string, len(s.CursorPosition))
		for k, v := range s.CursorPosition {
			c.CursorPosition[k] = v
		}
	}
	return &c
}
