package utils // package utils provides small helpers shared across layers

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomToken generates a random hexadecimal string of n bytes (2n hex
// characters).  crypto/rand guarantees the bytes are suitable for use
// as bearer tokens.
func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
