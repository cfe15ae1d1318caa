package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrPasswordMismatch means the plaintext does not match the stored hash.
	ErrPasswordMismatch = errors.New("password mismatch")
	// ErrCorruptHash means the stored hash is not a valid bcrypt string. This is a
	// data-integrity failure, not an authentication failure.
	ErrCorruptHash = errors.New("corrupt password hash")
)

// Hasher hashes and verifies passwords with bcrypt. The cost is fixed at
// construction from config.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher with the given bcrypt cost. Costs outside the
// valid bcrypt range fall back to the library default.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns a salted bcrypt hash of plaintext. The salt is random per call,
// so hashing the same password twice yields different strings.
func (h *Hasher) Hash(plaintext string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(out), nil
}

// Verify compares plaintext against a stored hash. It returns nil on match,
// ErrPasswordMismatch on a wrong password, and ErrCorruptHash when the stored
// value is not a bcrypt hash at all.
func (h *Hasher) Verify(plaintext, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	if !strings.HasPrefix(hash, "$2") {
		return fmt.Errorf("%w: not a bcrypt string", ErrCorruptHash)
	}
	return fmt.Errorf("%w: %v", ErrCorruptHash, err)
}
