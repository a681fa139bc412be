package lock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTokenShape(t *testing.T) {
	token, err := NewToken()
	require.NoError(t, err)
	require.Len(t, token, TokenLength)

	for _, c := range token {
		isHex := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
		require.True(t, isHex, "token contains non lowercase-hex char %q", c)
	}
}

func TestNewTokenUniqueness(t *testing.T) {
	const n = 1000

	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		token, err := NewToken()
		require.NoError(t, err)

		_, dup := seen[token]
		require.False(t, dup, "duplicate token after %d generations", i)
		seen[token] = struct{}{}
	}
}
