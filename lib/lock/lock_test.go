package lock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampDuration(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinDuration = 60 * time.Second
	cfg.MaxDuration = 3600 * time.Second
	cfg.DefaultDuration = 600 * time.Second

	tests := []struct {
		name      string
		requested time.Duration
		want      time.Duration
	}{
		{"below minimum", 10 * time.Second, 60 * time.Second},
		{"above maximum", 2 * time.Hour, 3600 * time.Second},
		{"within bounds", 5 * time.Minute, 5 * time.Minute},
		{"zero falls back to default", 0, 600 * time.Second},
		{"negative falls back to default", -time.Minute, 600 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.ClampDuration(tt.requested))
		})
	}
}

func TestLockExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := &Lock{
		Resource:  NewResourceRef("document", "42"),
		UserID:    "alice",
		LockedAt:  now,
		ExpiresAt: now.Add(10 * time.Minute),
	}

	assert.False(t, l.IsExpired(now))
	assert.False(t, l.IsExpired(now.Add(10*time.Minute-time.Second)))
	assert.True(t, l.IsExpired(now.Add(10*time.Minute)))
	assert.True(t, l.IsExpired(now.Add(time.Hour)))

	assert.Equal(t, 10*time.Minute, l.Remaining(now))
	assert.Equal(t, time.Duration(0), l.Remaining(now.Add(time.Hour)))
	assert.Equal(t, 10*time.Minute, l.LeaseSpan())
}

func TestLockFieldCoverage(t *testing.T) {
	whole := &Lock{Resource: NewResourceRef("document", "1")}
	assert.True(t, whole.CoversField("title"), "whole-resource lock covers every field")

	scoped := &Lock{
		Resource:     NewResourceRef("document", "1"),
		LockedFields: []string{"title", "body"},
	}
	assert.True(t, scoped.CoversField("title"))
	assert.False(t, scoped.CoversField("author"))
}

func TestLockClone(t *testing.T) {
	l := &Lock{
		Resource:     NewResourceRef("document", "1"),
		UserID:       "alice",
		LockedFields: []string{"title"},
		Metadata:     map[string]string{"reason": "edit"},
	}

	c := l.Clone()
	c.LockedFields[0] = "body"
	c.Metadata["reason"] = "review"

	assert.Equal(t, "title", l.LockedFields[0])
	assert.Equal(t, "edit", l.Metadata["reason"])
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("optimistic")
	require.NoError(t, err)
	assert.Equal(t, StrategyOptimistic, s)

	_, err = ParseStrategy("exclusive")
	assert.Error(t, err)
}

func TestAcquireResultAccessors(t *testing.T) {
	blocking := &Lock{Resource: NewResourceRef("document", "1"), UserID: "bob"}

	contended := Contended(blocking, "resource is locked")
	assert.False(t, contended.IsSuccessful())
	assert.Equal(t, "bob", contended.GetLockedBy())

	ok := Acquired(blocking, "lock acquired")
	assert.True(t, ok.IsSuccessful())
	assert.Empty(t, ok.GetLockedBy())

	rejected := Rejected("a user is required")
	assert.False(t, rejected.IsSuccessful())
	assert.Empty(t, rejected.GetLockedBy())
}

func TestSessionStaleness(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := &Session{LastHeartbeat: now}

	assert.False(t, s.IsStale(now.Add(time.Minute), 2*time.Minute))
	assert.True(t, s.IsStale(now.Add(3*time.Minute), 2*time.Minute))
}
