// Package credential provides the one-way hashing primitives for secrets:
// bcrypt digests for login passwords and deterministic SHA-256 digests for
// high-entropy opaque tokens (refresh, password-reset, email-verification).
//
// Passwords get the slow, salted hash because they are low-entropy. Opaque
// tokens are generated from a CSPRNG with 256 bits of entropy, so they use a
// fast deterministic digest instead -- the digest doubles as the database
// lookup key, which a salted hash cannot.
package credential

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is the work factor for password hashing. 12 keeps a single
// verification in the tens-of-milliseconds range on current hardware.
const bcryptCost = 12

// maxSecretBytes is bcrypt's input limit. Longer secrets are truncated the
// same way on hash and verify so the two operations stay consistent.
const maxSecretBytes = 72

// tokenBytes is the number of random bytes in an opaque token.
// 32 bytes = 256 bits of entropy, URL-safe base64 encoded to 43 characters.
const tokenBytes = 32

// Hash produces a salted bcrypt digest of the given secret.
func Hash(secret string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword(truncate(secret), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether secret matches the bcrypt digest. The comparison is
// constant-time with respect to the match outcome, and any malformed digest
// yields false rather than an error.
func Verify(secret, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), truncate(secret)) == nil
}

// NewToken generates a cryptographically random, URL-safe opaque token.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Digest returns the deterministic SHA-256 hex digest of an opaque token.
// Only the digest is ever persisted; the raw token travels to the client once.
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// truncate caps a secret at bcrypt's 72-byte input limit.
func truncate(secret string) []byte {
	b := []byte(secret)
	if len(b) > maxSecretBytes {
		b = b[:maxSecretBytes]
	}
	return b
}
