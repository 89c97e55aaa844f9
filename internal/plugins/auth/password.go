package auth

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the fixed work factor for stored password hashes.
const BcryptCost = 10

// MaxPasswordBytes is bcrypt's input limit. Longer passwords are rejected
// at registration rather than silently truncated.
const MaxPasswordBytes = 72

// PasswordHasher turns plaintext into its storage form and checks a
// plaintext against a stored hash.
type PasswordHasher interface {
	// Hash returns a salted one-way hash. Two calls with the same input
	// return different strings; both verify.
	Hash(password string) (string, error)

	// Verify reports whether password matches encoded. Any mismatch,
	// including a malformed encoded value, yields false.
	Verify(password, encoded string) bool
}

// bcryptHasher implements PasswordHasher with bcrypt. The salt is random
// per call and embedded in the $2a$ encoding.
type bcryptHasher struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

// NewBcryptHasher returns the hasher used for all stored credentials.
func NewBcryptHasher() PasswordHasher {
	return &bcryptHasher{cost: BcryptCost}
}

// Hash creates a bcrypt hash of the password.
func (h *bcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify compares in constant time. A hash that does not parse is swapped
// for a valid dummy hash and compared anyway, so a malformed record costs
// the same bcrypt round as a wrong password.
func (h *bcryptHasher) Verify(password, encoded string) bool {
	hash := []byte(encoded)
	if _, err := bcrypt.Cost(hash); err != nil {
		_ = bcrypt.CompareHashAndPassword(h.dummyHash(), []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

// dummyHash lazily computes a hash at the real cost for timing equalization.
func (h *bcryptHasher) dummyHash() []byte {
	h.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("timing-equalizer"), h.cost)
		if err != nil {
			// Unreachable for a short constant input at a valid cost.
			panic(err)
		}
		h.dummy = hash
	})
	return h.dummy
}
