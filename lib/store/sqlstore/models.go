package sqlstore

import (
	"encoding/json"
	"time"

	"github.com/reslock/reslock/lib/lock"
)

// --------------------------------------------------------------------------
// Row Types
// --------------------------------------------------------------------------

// lockRow is the relational shape of a lock.Lock. Slice and map fields are
// stored as JSON text so the schema works across dialects.
type lockRow struct {
	ID           string    `gorm:"primaryKey;size:36"`
	ResourceType string    `gorm:"size:191;uniqueIndex:ux_locks_resource"`
	ResourceID   string    `gorm:"size:191;uniqueIndex:ux_locks_resource"`
	UserID       string    `gorm:"size:191;index"`
	SessionID    string    `gorm:"size:36"`
	Strategy     string    `gorm:"size:32"`
	LockedFields string    // JSON array
	LockedAt     time.Time
	ExpiresAt    time.Time `gorm:"index"`
	Token        string    `gorm:"size:64;uniqueIndex"`
	IPAddress    string    `gorm:"size:64"`
	UserAgent    string    `gorm:"size:512"`
	Metadata     string    // JSON object
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type sessionRow struct {
	ID             string `gorm:"primaryKey;size:36"`
	LockID         string `gorm:"size:36;index"`
	UserID         string `gorm:"size:191"`
	ChannelName    string `gorm:"size:191"`
	LastHeartbeat  time.Time `gorm:"index"`
	IsActive       bool
	CursorPosition string // JSON object
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type historyRow struct {
	ID              string `gorm:"primaryKey;size:36"`
	ResourceType    string `gorm:"size:191;index:idx_history_resource"`
	ResourceID      string `gorm:"size:191;index:idx_history_resource"`
	UserID          string `gorm:"size:191;index"`
	Action          string `gorm:"size:32"`
	DurationSeconds *int64
	Changes         string // JSON object
	Metadata        string // JSON object
	CreatedAt       time.Time `gorm:"index"`
}

// --------------------------------------------------------------------------
// Row <-> Domain Conversion
// --------------------------------------------------------------------------

func toLockRow(l *lock.Lock, now time.Time) *lockRow {
	return &lockRow{
		ID:           l.ID,
		ResourceType: l.Resource.Type,
		ResourceID:   l.Resource.ID,
		UserID:       l.UserID,
		SessionID:    l.SessionID,
		Strategy:     string(l.Strategy),
		LockedFields: encodeJSONSlice(l.LockedFields),
		LockedAt:     l.LockedAt,
		ExpiresAt:    l.ExpiresAt,
		Token:        l.Token,
		IPAddress:    l.IPAddress,
		UserAgent:    l.UserAgent,
		Metadata:     encodeJSONMap(l.Metadata),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (r *lockRow) toLock() *lock.Lock {
	return &lock.Lock{
		ID:           r.ID,
		Resource:     lock.NewResourceRef(r.ResourceType, r.ResourceID),
		UserID:       r.UserID,
		SessionID:    r.SessionID,
		Strategy:     lock.Strategy(r.Strategy),
		LockedFields: decodeJSONSlice(r.LockedFields),
		LockedAt:     r.LockedAt,
		ExpiresAt:    r.ExpiresAt,
		Token:        r.Token,
		IPAddress:    r.IPAddress,
		UserAgent:    r.UserAgent,
		Metadata:     decodeJSONMap(r.Metadata),
	}
}

func toSessionRow(s *lock.Session, now time.Time) *sessionRow {
	return &sessionRow{
		ID:             s.ID,
		LockID:         s.LockID,
		UserID:         s.UserID,
		ChannelName:    s.ChannelName,
		LastHeartbeat:  s.LastHeartbeat,
		IsActive:       s.IsActive,
		CursorPosition: encodeJSONMap(s.CursorPosition),
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      now,
	}
}

func (r *sessionRow) toSession() *lock.Session {
	return &lock.Session{
		ID:             r.ID,
		LockID:         r.LockID,
		UserID:         r.UserID,
		ChannelName:    r.ChannelName,
		LastHeartbeat:  r.LastHeartbeat,
		IsActive:       r.IsActive,
		CursorPosition: decodeJSONMap(r.CursorPosition),
		CreatedAt:      r.CreatedAt,
	}
}

func toHistoryRow(h *lock.HistoryEntry) *historyRow {
	return &historyRow{
		ID:              h.ID,
		ResourceType:    h.Resource.Type,
		ResourceID:      h.Resource.ID,
		UserID:          h.UserID,
		Action:          string(h.Action),
		DurationSeconds: h.DurationSeconds,
		Changes:         encodeJSONMap(h.Changes),
		Metadata:        encodeJSONMap(h.Metadata),
		CreatedAt:       h.CreatedAt,
	}
}

func (r *historyRow) toHistoryEntry() *lock.HistoryEntry {
	return &lock.HistoryEntry{
		ID:              r.ID,
		Resource:        lock.NewResourceRef(r.ResourceType, r.ResourceID),
		UserID:          r.UserID,
		Action:          lock.HistoryAction(r.Action),
		DurationSeconds: r.DurationSeconds,
		Changes:         decodeJSONMap(r.Changes),
		Metadata:        decodeJSONMap(r.Metadata),
		CreatedAt:       r.CreatedAt,
	}
}

// --------------------------------------------------------------------------
// JSON Column Helpers
// --------------------------------------------------------------------------

func encodeJSONSlice(v []string) string {
	if len(v) == 0 {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func decodeJSONSlice(s string) []string {
	if s == "" {
		return nil
	}
	var v []string
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil
	}
	return v
}

func encodeJSONMap(v map[string]string) string {
	if len(v) == 0 {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func decodeJSONMap(s string) map[string]string {
	if s == "" {
		return nil
	}
	var v map[string]string
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil
	}
	return v
}
