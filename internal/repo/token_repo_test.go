package repo

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authz/server/internal/model"
)

var tokenCols = []string{"id", "user_id", "purpose", "secret", "created_at", "expires_at"}

func newMockTokenRepo(t *testing.T) (TokenRepo, sqlmock.Sqlmock) {
	t.Helper()
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewTokenRepo(database), mock
}

func TestTokenRepo_ReplaceUpsertsOnUser(t *testing.T) {
	r, mock := newMockTokenRepo(t)
	tok := model.NewLoginCodeToken(uuid.New(), "ciphertext", time.Now())

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (user_id) DO UPDATE")).
		WithArgs(tok.ID, tok.UserID, "login_code", "ciphertext", tok.CreatedAt, tok.ExpiresAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, r.Replace(context.Background(), tok))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_FindByUser(t *testing.T) {
	r, mock := newMockTokenRepo(t)
	now := time.Now()
	tok := model.NewVerificationToken(uuid.New(), "digest", now)

	mock.ExpectQuery(regexp.QuoteMeta("FROM tokens WHERE user_id = $1 AND expires_at > $2")).
		WithArgs(tok.UserID, now).
		WillReturnRows(sqlmock.NewRows(tokenCols).
			AddRow(tok.ID.String(), tok.UserID.String(), "verification", "digest", tok.CreatedAt, tok.ExpiresAt))

	got, err := r.FindByUser(context.Background(), tok.UserID, now)
	require.NoError(t, err)
	assert.Equal(t, tok.ID, got.ID)
	assert.Equal(t, model.PurposeVerification, got.Purpose)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_FindBySecretMissing(t *testing.T) {
	r, mock := newMockTokenRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM tokens WHERE purpose = $1 AND secret = $2 AND expires_at > $3")).
		WithArgs("reset", "digest", now).
		WillReturnError(sql.ErrNoRows)

	_, err := r.FindBySecret(context.Background(), model.PurposeReset, "digest", now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenRepo_DeleteIsSingleUse(t *testing.T) {
	r, mock := newMockTokenRepo(t)
	tok := model.NewResetToken(uuid.New(), "digest", time.Now())

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tokens WHERE id = $1")).
		WithArgs(tok.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tokens WHERE id = $1")).
		WithArgs(tok.ID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, r.Delete(context.Background(), tok))
	assert.ErrorIs(t, r.Delete(context.Background(), tok), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
