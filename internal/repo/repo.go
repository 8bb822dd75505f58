// Package repo persists users and their ephemeral tokens.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/authz/server/internal/model"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// PasswordPreparer turns a candidate password into its persisted form. It is
// called immediately before every write of the password column.
type PasswordPreparer interface {
	Prepare(stored, candidate string) (string, error)
}

// UserRepo defines the interface for user repository operations
type UserRepo interface {
	// Create inserts u, filling ID, CreatedAt and UpdatedAt. u.Password holds
	// the plaintext and is replaced by its hash.
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	// List returns every user, newest first.
	List(ctx context.Context) ([]model.User, error)
	// UpdateProfile writes name, email, phone, bio and photo.
	UpdateProfile(ctx context.Context, u model.User) (model.User, error)
	SetPassword(ctx context.Context, id uuid.UUID, password string) error
	SetVerified(ctx context.Context, id uuid.UUID) error
	SetRole(ctx context.Context, id uuid.UUID, role model.Role) error
	// AppendTrustedDevice adds fingerprint to the end of the trusted list.
	// Duplicates are kept.
	AppendTrustedDevice(ctx context.Context, id uuid.UUID, fingerprint string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TokenRepo stores at most one live token per user.
type TokenRepo interface {
	// Replace stores t as the only token of t.UserID, discarding any previous
	// token of that user regardless of purpose.
	Replace(ctx context.Context, t model.Token) error
	// FindByUser returns the user's token if it is still valid at now.
	FindByUser(ctx context.Context, userID uuid.UUID, now time.Time) (model.Token, error)
	// FindBySecret returns the token with the given purpose and stored secret
	// if it is still valid at now.
	FindBySecret(ctx context.Context, purpose model.Purpose, secret string, now time.Time) (model.Token, error)
	// Delete consumes t. It returns ErrNotFound when t is no longer the
	// user's live token, so a token can be consumed only once.
	Delete(ctx context.Context, t model.Token) error
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
