package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultCost = 10
	MaxLength   = 72
)

// ErrTooLong is returned by Hash for plaintexts longer than MaxLength bytes.
var ErrTooLong = errors.New("password exceeds 72 bytes")

// Hasher hashes and verifies plaintext passwords with bcrypt.
type Hasher struct {
	cost int
}

// New returns a Hasher using cost, falling back to DefaultCost when cost is outside bcrypt's range.
func New(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns a salted bcrypt hash; two calls with the same input never return the same string.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxLength {
		return "", ErrTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches hash. Malformed hashes verify as false.
func (h *Hasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
