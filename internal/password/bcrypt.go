// Package password hashes user credentials with bcrypt.
package password

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost matches the work factor existing hashes were produced with.
const DefaultCost = 10

// MaxBytes is the longest password bcrypt accepts.
const MaxBytes = 72

var (
	ErrEmpty    = errors.New("password must not be empty")
	ErrTooLong  = errors.New("password exceeds 72 bytes")
	ErrMismatch = errors.New("password does not match")
)

// Hasher hashes and compares passwords.
type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns a salted bcrypt hash of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmpty
	}
	if len(plaintext) > MaxBytes {
		return "", ErrTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrTooLong
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Compare returns ErrMismatch when plaintext does not produce hash.
func (h *Hasher) Compare(hash, plaintext string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatch
		}
		return fmt.Errorf("compare password: %w", err)
	}
	return nil
}

// Prepare turns candidate into the value that should be persisted in place of
// stored. A candidate equal to the stored hash is returned untouched so saving
// an unchanged record never re-hashes.
func (h *Hasher) Prepare(stored, candidate string) (string, error) {
	if stored != "" && candidate == stored {
		return stored, nil
	}
	return h.Hash(candidate)
}

// Placeholder returns an unguessable plaintext for accounts that never sign
// in with a password, such as social logins.
func Placeholder(subject string) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + subject
}
