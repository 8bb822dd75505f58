package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/authz/server/internal/model"
	"github.com/authz/server/internal/notify"
	"github.com/authz/server/internal/password"
	"github.com/authz/server/internal/repo"
)

type RegisterInput struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
	UserAgent string `json:"-"`
}

type LoginInput struct {
	Email     string `json:"email" validate:"required"`
	Password  string `json:"password" validate:"required"`
	UserAgent string `json:"-"`
}

// Register creates a user whose only trusted device is the one registering,
// then signs them in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	if err := s.check(in); err != nil {
		return Session{}, err
	}

	u := &model.User{
		Name:           in.Name,
		Email:          in.Email,
		Password:       in.Password,
		TrustedDevices: []string{Fingerprint(in.UserAgent)},
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return Session{}, newError(ErrConflict, "Email already in use")
		}
		return Session{}, mapUserWrite("create user", err)
	}

	s.log.Info(ctx, "user registered", "user_id", u.ID)
	return s.issue(*u)
}

// Login checks the password and signs the user in from a trusted device. An
// unseen device gets a fresh login code instead of a session.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (Session, error) {
	if err := s.check(in); err != nil {
		return Session{}, newError(ErrValidation, "Please add email or password")
	}

	u, err := s.userByEmail(ctx, in.Email, "User not found. Please Signup!")
	if err != nil {
		return Session{}, err
	}
	if err := s.comparePassword(u, in.Password, "Invalid email or password"); err != nil {
		return Session{}, err
	}

	if !u.TrustsDevice(Fingerprint(in.UserAgent)) {
		if err := s.challengeDevice(ctx, u); err != nil {
			return Session{}, err
		}
		return Session{}, newError(ErrDeviceChallengeRequired, "New browser or Device detected")
	}

	return s.issue(u)
}

func (s *AuthService) comparePassword(u model.User, plaintext, mismatchMsg string) error {
	if err := s.hasher.Compare(u.Password, plaintext); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return newError(ErrInvalidCredential, mismatchMsg)
		}
		return internal("compare password", err)
	}
	return nil
}

// challengeDevice replaces the user's token with an encrypted login code.
func (s *AuthService) challengeDevice(ctx context.Context, u model.User) error {
	code, err := NewLoginCode()
	if err != nil {
		return internal("generate login code", err)
	}
	encrypted, err := s.cipher.Encrypt(code)
	if err != nil {
		return internal("encrypt login code", err)
	}
	if err := s.tokens.Replace(ctx, model.NewLoginCodeToken(u.ID, encrypted, s.now())); err != nil {
		return internal("store login code", err)
	}
	s.log.Info(ctx, "login code issued for new device", "user_id", u.ID)
	return nil
}

// pendingLoginCode returns the user's live login-code token and its plaintext.
func (s *AuthService) pendingLoginCode(ctx context.Context, u model.User) (model.Token, string, error) {
	tok, err := s.tokens.FindByUser(ctx, u.ID, s.now())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Token{}, "", newError(ErrTokenMissing, "Invalid or Expired token, please login again")
		}
		return model.Token{}, "", internal("load token", err)
	}
	if tok.Purpose != model.PurposeLoginCode {
		return model.Token{}, "", newError(ErrTokenMissing, "Invalid or Expired token, please login again")
	}
	code, err := s.cipher.Decrypt(tok.Secret)
	if err != nil {
		return model.Token{}, "", internal("decrypt login code", err)
	}
	return tok, code, nil
}

// RequestLoginCode emails the pending login code created by Login.
func (s *AuthService) RequestLoginCode(ctx context.Context, email string) error {
	u, err := s.userByEmail(ctx, email, "User not found")
	if err != nil {
		return err
	}
	_, code, err := s.pendingLoginCode(ctx, u)
	if err != nil {
		return err
	}

	return s.send(ctx, notify.Message{
		Subject:  "Login Access Code - AUTH:Z",
		To:       u.Email,
		Template: notify.TemplateLoginCode,
		Name:     u.Name,
		Link:     code,
	})
}

// ConfirmLoginCode trusts the current device when code matches the pending
// login code, consumes the code and signs the user in.
func (s *AuthService) ConfirmLoginCode(ctx context.Context, email, code, userAgent string) (Session, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Session{}, newError(ErrValidation, "Please enter the login code")
	}

	u, err := s.userByEmail(ctx, email, "User not found")
	if err != nil {
		return Session{}, err
	}
	tok, stored, err := s.pendingLoginCode(ctx, u)
	if err != nil {
		return Session{}, err
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return Session{}, newError(ErrCodeMismatch, "Incorrect login code, please try again")
	}

	// Trust first so a failed write leaves the code usable for a retry.
	fingerprint := Fingerprint(userAgent)
	if err := s.users.AppendTrustedDevice(ctx, u.ID, fingerprint); err != nil {
		return Session{}, mapUserWrite("trust device", err)
	}
	u.TrustedDevices = append(u.TrustedDevices, fingerprint)

	if err := s.tokens.Delete(ctx, tok); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Session{}, newError(ErrTokenMissing, "Invalid or Expired token, please login again")
		}
		return Session{}, internal("consume login code", err)
	}

	s.log.Info(ctx, "device trusted", "user_id", u.ID)
	return s.issue(u)
}

// ExternalLogin signs in the owner of an already verified external identity,
// creating a verified account on first sight. created reports whether a new
// account was made.
func (s *AuthService) ExternalLogin(ctx context.Context, ident model.ExternalIdentity, userAgent string) (sess Session, created bool, err error) {
	if ident.Email == "" || ident.Subject == "" {
		return Session{}, false, newError(ErrValidation, "External identity is missing email or subject")
	}

	u, err := s.users.GetByEmail(ctx, ident.Email)
	switch {
	case err == nil:
		sess, err = s.issue(u)
		return sess, false, err
	case !errors.Is(err, repo.ErrNotFound):
		return Session{}, false, internal("load user", err)
	}

	name := ident.Name
	if name == "" {
		name = strings.SplitN(ident.Email, "@", 2)[0]
	}
	nu := &model.User{
		Name:           name,
		Email:          ident.Email,
		Password:       password.Placeholder(ident.Subject),
		Photo:          ident.AvatarURL,
		IsVerified:     true,
		TrustedDevices: []string{Fingerprint(userAgent)},
	}
	if err := s.users.Create(ctx, nu); err != nil {
		if !errors.Is(err, repo.ErrConflict) {
			return Session{}, false, internal("create user", err)
		}
		// Lost a race with a concurrent first login for the same email.
		existing, err := s.userByEmail(ctx, ident.Email, "User not found")
		if err != nil {
			return Session{}, false, err
		}
		sess, err = s.issue(existing)
		return sess, false, err
	}

	s.log.Info(ctx, "user registered via external identity", "user_id", nu.ID)
	sess, err = s.issue(*nu)
	return sess, err == nil, err
}
