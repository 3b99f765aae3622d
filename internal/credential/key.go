// Package credential issues the opaque API keys that identify companies and
// sensors, and derives the lookup hash that is stored in their place.
package credential

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// KeyBytes is the amount of entropy in an issued key (128 bits).
const KeyBytes = 16

// KeyLength is the length of the hex-encoded key handed to clients.
const KeyLength = KeyBytes * 2

// NewAPIKey returns a fresh random key. Keys are only ever generated here,
// never taken from client input.
func NewAPIKey() (string, error) {
	b := make([]byte, KeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating api key: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashKey returns the value persisted for a key. Lookups hash the presented
// key and match on the hash, so the plaintext key is never stored.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// WellFormed reports whether s has the shape of an issued key. It is a cheap
// pre-check before hitting the database; callers must not distinguish a
// malformed key from an unknown one in their responses.
func WellFormed(s string) bool {
	if len(s) != KeyLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f') {
			return false
		}
	}
	return true
}
