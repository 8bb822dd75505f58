package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/authz/server/internal/db"
	"github.com/authz/server/internal/model"
)

const userColumns = `id, name, email, password, phone, bio, photo, role, is_verified, trusted_devices, created_at, updated_at`

type userRepo struct {
	db        *sql.DB
	passwords PasswordPreparer
}

// NewUserRepo creates a new UserRepo instance
func NewUserRepo(database *sql.DB, passwords PasswordPreparer) UserRepo {
	return &userRepo{db: database, passwords: passwords}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var u model.User
	var role string
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Password,
		&u.Phone,
		&u.Bio,
		&u.Photo,
		&role,
		&u.IsVerified,
		pq.Array(&u.TrustedDevices),
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return model.User{}, err
	}
	u.Role = model.Role(role)
	if u.TrustedDevices == nil {
		u.TrustedDevices = []string{}
	}
	return u, nil
}

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	u.ApplyDefaults()
	hashed, err := r.passwords.Prepare("", u.Password)
	if err != nil {
		return fmt.Errorf("prepare password: %w", err)
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	query := `
		INSERT INTO users (id, name, email, password, phone, bio, photo, role, is_verified, trusted_devices)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	err = r.db.QueryRowContext(ctx, query,
		u.ID, u.Name, u.Email, hashed, u.Phone, u.Bio, u.Photo, string(u.Role), u.IsVerified, pq.Array(u.TrustedDevices),
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("email %q: %w", u.Email, ErrConflict)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	u.Password = hashed
	return nil
}

// GetByID retrieves a user by ID
func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, fmt.Errorf("user not found: %w", ErrNotFound)
		}
		return model.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

// GetByEmail retrieves a user by exact email match
func (r *userRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, fmt.Errorf("user not found: %w", ErrNotFound)
		}
		return model.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

func (r *userRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

func (r *userRepo) UpdateProfile(ctx context.Context, u model.User) (model.User, error) {
	query := `
		UPDATE users
		SET name = $2, email = $3, phone = $4, bio = $5, photo = $6, updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns
	row := r.db.QueryRowContext(ctx, query, u.ID, u.Name, u.Email, u.Phone, u.Bio, u.Photo)
	updated, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, fmt.Errorf("user not found: %w", ErrNotFound)
		}
		if isUniqueViolation(err) {
			return model.User{}, fmt.Errorf("email %q: %w", u.Email, ErrConflict)
		}
		return model.User{}, fmt.Errorf("failed to update user: %w", err)
	}
	return updated, nil
}

// SetPassword locks the row, prepares the candidate against the stored hash
// and writes it only when it changed.
func (r *userRepo) SetPassword(ctx context.Context, id uuid.UUID, password string) error {
	return db.WithTx(ctx, r.db, nil, func(ctx context.Context, tx db.DBTX) error {
		var stored string
		err := tx.QueryRowContext(ctx, `SELECT password FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&stored)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("user not found: %w", ErrNotFound)
			}
			return fmt.Errorf("failed to lock user: %w", err)
		}

		hashed, err := r.passwords.Prepare(stored, password)
		if err != nil {
			return fmt.Errorf("prepare password: %w", err)
		}
		if hashed == stored {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `UPDATE users SET password = $2, updated_at = now() WHERE id = $1`, id, hashed); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		return nil
	})
}

func (r *userRepo) SetVerified(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, "verify user", `UPDATE users SET is_verified = TRUE, updated_at = now() WHERE id = $1`, id)
}

func (r *userRepo) SetRole(ctx context.Context, id uuid.UUID, role model.Role) error {
	return r.execOne(ctx, "set role", `UPDATE users SET role = $2, updated_at = now() WHERE id = $1`, id, string(role))
}

func (r *userRepo) AppendTrustedDevice(ctx context.Context, id uuid.UUID, fingerprint string) error {
	return r.execOne(ctx, "trust device",
		`UPDATE users SET trusted_devices = array_append(trusted_devices, $2), updated_at = now() WHERE id = $1`,
		id, fingerprint)
}

func (r *userRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, "delete user", `DELETE FROM users WHERE id = $1`, id)
}

// execOne runs a single-row statement and maps zero affected rows to ErrNotFound.
func (r *userRepo) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("user not found: %w", ErrNotFound)
	}
	return nil
}
