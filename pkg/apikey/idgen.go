package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// No Go implementation of cuid2 is vendored anywhere in this dependency set,
// so newID generates an equivalent collision-resistant identifier directly
// from crypto/rand: 16 random bytes, hex-encoded to a 32-character
// lowercase-alphanumeric string. This keeps the same security property
// cuid2 provides (non-guessable, collision-resistant primary keys) without
// inventing a fabricated dependency for it.
func newID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// newSlug is the shorter variant used as the visible prefix of a generated
// API key.
func newSlug() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// generateKey produces a new opaque API-key string in the form
// "sk-<slug>-<id>" along with its SHA-256 hex digest, which is the value
// actually persisted as ApiKey.KeyHash (see SPEC_FULL.md §4.6 for why a digest
// rather than a memory-hard KDF: the authz hot path needs key_hash to remain
// an indexed equality lookup).
func generateKey() (plaintext, hash string) {
	plaintext = fmt.Sprintf("sk-%s-%s", newSlug(), newID())
	sum := sha256.Sum256([]byte(plaintext))
	hash = hex.EncodeToString(sum[:])
	return plaintext, hash
}

// hashToken returns the SHA-256 hex digest of a presented token, for
// comparison against the stored key_hash at authz time.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
