package util

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/btcsuite/btcutil/base58"
)

// idEntropyBytes gives ids and challenges 160 bits of entropy.
const idEntropyBytes = 20

// RandomID returns a base58 string over 160 random bits.
func RandomID() (string, error) {
	buf := make([]byte, idEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base58.Encode(buf), nil
}

// FormatTimestamp renders t the way JavaScript's Date.toISOString does.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
