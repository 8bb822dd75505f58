package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/authz/server/internal/model"
)

const tokenColumns = `id, user_id, purpose, secret, created_at, expires_at`

type tokenRepo struct {
	db *sql.DB
}

// NewTokenRepo creates a Postgres-backed TokenRepo.
func NewTokenRepo(database *sql.DB) TokenRepo {
	return &tokenRepo{db: database}
}

func scanToken(row rowScanner) (model.Token, error) {
	var t model.Token
	var purpose string
	if err := row.Scan(&t.ID, &t.UserID, &purpose, &t.Secret, &t.CreatedAt, &t.ExpiresAt); err != nil {
		return model.Token{}, err
	}
	t.Purpose = model.Purpose(purpose)
	return t, nil
}

// Replace upserts on the unique user_id so concurrent flows for one user can
// never leave two live tokens behind.
func (r *tokenRepo) Replace(ctx context.Context, t model.Token) error {
	query := `
		INSERT INTO tokens (id, user_id, purpose, secret, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET id = EXCLUDED.id,
		    purpose = EXCLUDED.purpose,
		    secret = EXCLUDED.secret,
		    created_at = EXCLUDED.created_at,
		    expires_at = EXCLUDED.expires_at
	`
	_, err := r.db.ExecContext(ctx, query, t.ID, t.UserID, string(t.Purpose), t.Secret, t.CreatedAt, t.ExpiresAt)
	if err != nil {
		return fmt.Errorf("replace token: %w", err)
	}
	return nil
}

func (r *tokenRepo) FindByUser(ctx context.Context, userID uuid.UUID, now time.Time) (model.Token, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE user_id = $1 AND expires_at > $2`,
		userID, now)
	return r.scanOne(row)
}

func (r *tokenRepo) FindBySecret(ctx context.Context, purpose model.Purpose, secret string, now time.Time) (model.Token, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE purpose = $1 AND secret = $2 AND expires_at > $3`,
		string(purpose), secret, now)
	return r.scanOne(row)
}

func (r *tokenRepo) scanOne(row *sql.Row) (model.Token, error) {
	t, err := scanToken(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Token{}, fmt.Errorf("no active token: %w", ErrNotFound)
		}
		return model.Token{}, fmt.Errorf("query token: %w", err)
	}
	return t, nil
}

func (r *tokenRepo) Delete(ctx context.Context, t model.Token) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE id = $1`, t.ID)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("token already consumed: %w", ErrNotFound)
	}
	return nil
}
