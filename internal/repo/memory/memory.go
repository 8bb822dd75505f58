// Package memory holds in-process repository implementations for tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/authz/server/internal/model"
	"github.com/authz/server/internal/repo"
)

type UserRepo struct {
	mu        sync.Mutex
	passwords repo.PasswordPreparer
	users     map[uuid.UUID]model.User
	now       func() time.Time
}

var _ repo.UserRepo = (*UserRepo)(nil)

func NewUserRepo(passwords repo.PasswordPreparer) *UserRepo {
	return &UserRepo{
		passwords: passwords,
		users:     make(map[uuid.UUID]model.User),
		now:       time.Now,
	}
}

func clone(u model.User) model.User {
	u.TrustedDevices = append([]string{}, u.TrustedDevices...)
	return u
}

func notFound() error {
	return fmt.Errorf("user not found: %w", repo.ErrNotFound)
}

func (r *UserRepo) emailTaken(email string, except uuid.UUID) bool {
	for id, u := range r.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func (r *UserRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTaken(u.Email, uuid.Nil) {
		return fmt.Errorf("email %q: %w", u.Email, repo.ErrConflict)
	}
	u.ApplyDefaults()
	hashed, err := r.passwords.Prepare("", u.Password)
	if err != nil {
		return fmt.Errorf("prepare password: %w", err)
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Password = hashed
	// Distinct timestamps keep newest-first ordering stable.
	u.CreatedAt = r.now().Add(time.Duration(len(r.users)) * time.Microsecond)
	u.UpdatedAt = u.CreatedAt
	r.users[u.ID] = clone(*u)
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return model.User{}, notFound()
	}
	return clone(u), nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return model.User{}, notFound()
}

func (r *UserRepo) List(_ context.Context) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, clone(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

func (r *UserRepo) UpdateProfile(_ context.Context, u model.User) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.users[u.ID]
	if !ok {
		return model.User{}, notFound()
	}
	if r.emailTaken(u.Email, u.ID) {
		return model.User{}, fmt.Errorf("email %q: %w", u.Email, repo.ErrConflict)
	}
	cur.Name, cur.Email, cur.Phone, cur.Bio, cur.Photo = u.Name, u.Email, u.Phone, u.Bio, u.Photo
	cur.UpdatedAt = r.now()
	r.users[u.ID] = cur
	return clone(cur), nil
}

func (r *UserRepo) SetPassword(_ context.Context, id uuid.UUID, password string) error {
	return r.mutate(id, func(u *model.User) error {
		hashed, err := r.passwords.Prepare(u.Password, password)
		if err != nil {
			return fmt.Errorf("prepare password: %w", err)
		}
		u.Password = hashed
		return nil
	})
}

func (r *UserRepo) SetVerified(_ context.Context, id uuid.UUID) error {
	return r.mutate(id, func(u *model.User) error {
		u.IsVerified = true
		return nil
	})
}

func (r *UserRepo) SetRole(_ context.Context, id uuid.UUID, role model.Role) error {
	return r.mutate(id, func(u *model.User) error {
		u.Role = role
		return nil
	})
}

func (r *UserRepo) AppendTrustedDevice(_ context.Context, id uuid.UUID, fingerprint string) error {
	return r.mutate(id, func(u *model.User) error {
		u.TrustedDevices = append(u.TrustedDevices, fingerprint)
		return nil
	})
}

func (r *UserRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return notFound()
	}
	delete(r.users, id)
	return nil
}

func (r *UserRepo) mutate(id uuid.UUID, fn func(u *model.User) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return notFound()
	}
	u = clone(u)
	if err := fn(&u); err != nil {
		return err
	}
	u.UpdatedAt = r.now()
	r.users[id] = u
	return nil
}

// TokenRepo keeps one token per user.
type TokenRepo struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]model.Token
}

var _ repo.TokenRepo = (*TokenRepo)(nil)

func NewTokenRepo() *TokenRepo {
	return &TokenRepo{tokens: make(map[uuid.UUID]model.Token)}
}

func (r *TokenRepo) Replace(_ context.Context, t model.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[t.UserID] = t
	return nil
}

func (r *TokenRepo) FindByUser(_ context.Context, userID uuid.UUID, now time.Time) (model.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[userID]
	if !ok || !t.Valid(now) {
		return model.Token{}, fmt.Errorf("no active token: %w", repo.ErrNotFound)
	}
	return t, nil
}

func (r *TokenRepo) FindBySecret(_ context.Context, purpose model.Purpose, secret string, now time.Time) (model.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tokens {
		if t.Purpose == purpose && t.Secret == secret && t.Valid(now) {
			return t, nil
		}
	}
	return model.Token{}, fmt.Errorf("no active token: %w", repo.ErrNotFound)
}

func (r *TokenRepo) Delete(_ context.Context, t model.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.tokens[t.UserID]
	if !ok || cur.ID != t.ID {
		return fmt.Errorf("token already consumed: %w", repo.ErrNotFound)
	}
	delete(r.tokens, t.UserID)
	return nil
}

// Len reports how many live or expired tokens are held.
func (r *TokenRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}
