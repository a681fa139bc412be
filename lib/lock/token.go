package lock

import (
	"crypto/rand"
	"encoding/hex"
)

const (
	// tokenBytes is the number of random bytes per token. Hex encoding
	// doubles this to the 64 character wire form.
	tokenBytes = 32

	// TokenLength is the length of the encoded token string.
	TokenLength = 2 * tokenBytes
)

// NewToken generates a new lock token: 32 cryptographically random bytes,
// hex encoded to exactly 64 lowercase characters. Tokens are correlation
// handles, globally unique for all practical purposes.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
