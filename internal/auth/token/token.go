// Package token generates the opaque session credential.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Length is the fixed character length of a session token: 32 random bytes,
// hex encoded.
const Length = 64

// Generate creates a high-entropy opaque session token. The token carries no
// structure; it is only meaningful as a session-store key.
func Generate() (string, error) {
	buf := make([]byte, Length/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
