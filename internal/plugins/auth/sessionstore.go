package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
)

// sessionTokenBytes is the number of random bytes in a session token.
// 32 bytes = 256 bits of entropy, hex-encoded to 64 characters.
const sessionTokenBytes = 32

// ErrSessionNotFound is returned by SessionStore.Get for unknown, expired,
// or destroyed tokens.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore owns server-side session records keyed by opaque tokens.
// Implementations must be safe for concurrent use.
type SessionStore interface {
	// Create persists sess under a freshly generated token and returns it.
	Create(ctx context.Context, sess *Session) (string, error)

	// Get returns the session for token or ErrSessionNotFound.
	Get(ctx context.Context, token string) (*Session, error)

	// Delete removes the session. Deleting an unknown token is not an error.
	Delete(ctx context.Context, token string) error
}

// generateSessionToken creates a cryptographically random hex-encoded token.
func generateSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// validTokenFormat rejects anything that could not have come from
// generateSessionToken before it reaches a backend.
func validTokenFormat(token string) bool {
	if len(token) != sessionTokenBytes*2 {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}
