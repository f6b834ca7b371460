package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash is a syntactically valid bcrypt hash used to equalize the timing
// of lookups for unknown usernames with that of a failed hash check.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// BCryptHasher implements port.PasswordHasher with bcrypt. Every call to Hash
// draws a fresh salt; Verify is constant-time with respect to the hash length.
type BCryptHasher struct {
	cost int
}

// NewBCryptHasher constructs a hasher with the given cost. Costs outside the
// bcrypt range fall back to the library default.
func NewBCryptHasher(cost int) *BCryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BCryptHasher{cost: cost}
}

// Hash produces a salted bcrypt hash of the plaintext.
func (h *BCryptHasher) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plain matches the stored hash. A mismatch is
// (false, nil); a malformed stored hash is an error.
func (h *BCryptHasher) Verify(plain, stored string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("bcrypt verify: %w", err)
}

// DummyVerify burns the same work as a failed verification against a real
// hash. Called when the user lookup misses so that response timing does not
// reveal whether a username exists.
func (h *BCryptHasher) DummyVerify(plain string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(plain))
}
