// Package password wraps bcrypt credential hashing behind a small,
// fixed-work-factor API.
package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the stock bcrypt work factor.
const DefaultCost = 10

// bcrypt only consumes the first 72 bytes of input; longer passphrases are
// truncated consistently on both hash and verify so they stay verifiable.
const maxPasswordBytes = 72

// Hasher salts and hashes passwords one-way with a fixed cost.
type Hasher struct {
	cost int
}

// NewHasher builds a hasher. A cost outside bcrypt's bounds is an error;
// zero selects DefaultCost.
func NewHasher(cost int) (*Hasher, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, errors.New("password: cost outside bcrypt bounds")
	}
	return &Hasher{cost: cost}, nil
}

// Hash returns the salted one-way hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword(truncate(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether password matches the stored hash. A malformed
// hash yields false; nothing escapes this boundary as a panic or error.
func (h *Hasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), truncate(password)) == nil
}

func truncate(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}
