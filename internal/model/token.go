package model

import (
	"time"

	"github.com/google/uuid"
)

// TokenLifetime is how long a verification, reset or login-code token stays usable.
const TokenLifetime = 60 * time.Minute

// Purpose tags what an ephemeral token is for.
type Purpose string

const (
	PurposeVerification Purpose = "verification"
	PurposeReset        Purpose = "reset"
	PurposeLoginCode    Purpose = "login_code"
)

// Token is a single-use, time-limited secret owned by one user. Secret holds
// the purpose payload: a hex digest for verification and reset tokens, the
// encrypted code for login-code tokens. A user has at most one live token.
type Token struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Purpose   Purpose
	Secret    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func newToken(userID uuid.UUID, purpose Purpose, secret string, now time.Time) Token {
	return Token{
		ID:        uuid.New(),
		UserID:    userID,
		Purpose:   purpose,
		Secret:    secret,
		CreatedAt: now,
		ExpiresAt: now.Add(TokenLifetime),
	}
}

// NewVerificationToken stores the digest of an emailed verification secret.
func NewVerificationToken(userID uuid.UUID, digest string, now time.Time) Token {
	return newToken(userID, PurposeVerification, digest, now)
}

// NewResetToken stores the digest of an emailed password reset secret.
func NewResetToken(userID uuid.UUID, digest string, now time.Time) Token {
	return newToken(userID, PurposeReset, digest, now)
}

// NewLoginCodeToken stores an encrypted login code.
func NewLoginCodeToken(userID uuid.UUID, ciphertext string, now time.Time) Token {
	return newToken(userID, PurposeLoginCode, ciphertext, now)
}

// Valid reports whether the token can still be consumed at now.
func (t Token) Valid(now time.Time) bool {
	return now.Before(t.ExpiresAt)
}
