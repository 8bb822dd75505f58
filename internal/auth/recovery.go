package auth

import (
	"context"
	"errors"

	"github.com/authz/server/internal/model"
	"github.com/authz/server/internal/notify"
	"github.com/authz/server/internal/repo"
)

const msgInvalidOrExpired = "Invalid or Expired Token"

type ResetPasswordInput struct {
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type ChangePasswordInput struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
}

// mintEmailToken stores the digest of a fresh secret as the user's only token
// and returns the plaintext secret for the email link.
func (s *AuthService) mintEmailToken(ctx context.Context, u model.User, build func(digest string) model.Token) (string, error) {
	secret, err := MintSecret(u.ID)
	if err != nil {
		return "", internal("mint secret", err)
	}
	if err := s.tokens.Replace(ctx, build(HashSecret(secret))); err != nil {
		return "", internal("store token", err)
	}
	return secret, nil
}

// consume looks up a live token by the digest of secret and deletes it.
func (s *AuthService) consume(ctx context.Context, purpose model.Purpose, secret string) (model.Token, error) {
	if secret == "" {
		return model.Token{}, newError(ErrInvalidOrExpired, msgInvalidOrExpired)
	}
	tok, err := s.tokens.FindBySecret(ctx, purpose, HashSecret(secret), s.now())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Token{}, newError(ErrInvalidOrExpired, msgInvalidOrExpired)
		}
		return model.Token{}, internal("load token", err)
	}
	if err := s.tokens.Delete(ctx, tok); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Token{}, newError(ErrInvalidOrExpired, msgInvalidOrExpired)
		}
		return model.Token{}, internal("consume token", err)
	}
	return tok, nil
}

// SendVerificationEmail emails the user a single-use link that verifies the account.
func (s *AuthService) SendVerificationEmail(ctx context.Context, user model.User) error {
	u, err := s.userByID(ctx, user.ID)
	if err != nil {
		return err
	}
	if u.IsVerified {
		return newError(ErrAlreadyVerified, "User already verified")
	}

	secret, err := s.mintEmailToken(ctx, u, func(digest string) model.Token {
		return model.NewVerificationToken(u.ID, digest, s.now())
	})
	if err != nil {
		return err
	}

	return s.send(ctx, notify.Message{
		Subject:  "Verify Your Account - AUTH:Z",
		To:       u.Email,
		Template: notify.TemplateVerifyEmail,
		Name:     u.Name,
		Link:     s.cfg.FrontendURL + "/verify/" + secret,
	})
}

// VerifyAccount marks the owner of a verification secret as verified.
func (s *AuthService) VerifyAccount(ctx context.Context, secret string) error {
	tok, err := s.consume(ctx, model.PurposeVerification, secret)
	if err != nil {
		return err
	}

	u, err := s.userByID(ctx, tok.UserID)
	if err != nil {
		return err
	}
	if u.IsVerified {
		return newError(ErrAlreadyVerified, "User is already verified")
	}
	if err := s.users.SetVerified(ctx, u.ID); err != nil {
		return mapUserWrite("verify user", err)
	}

	s.log.Info(ctx, "account verified", "user_id", u.ID)
	return nil
}

// ForgotPassword emails a single-use password reset link.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return newError(ErrValidation, "Please enter an email")
	}
	u, err := s.userByEmail(ctx, email, "No user with this email")
	if err != nil {
		return err
	}

	secret, err := s.mintEmailToken(ctx, u, func(digest string) model.Token {
		return model.NewResetToken(u.ID, digest, s.now())
	})
	if err != nil {
		return err
	}

	return s.send(ctx, notify.Message{
		Subject:  "Password Reset Request - AUTH:Z",
		To:       u.Email,
		Template: notify.TemplateForgotPassword,
		Name:     u.Name,
		Link:     s.cfg.FrontendURL + "/resetPassword/" + secret,
	})
}

// ResetPassword sets a new password for the owner of a reset secret. The
// secret works once.
func (s *AuthService) ResetPassword(ctx context.Context, secret string, in ResetPasswordInput) error {
	if err := s.check(in); err != nil {
		return err
	}
	tok, err := s.consume(ctx, model.PurposeReset, secret)
	if err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, tok.UserID, in.Password); err != nil {
		return mapUserWrite("reset password", err)
	}

	s.log.Info(ctx, "password reset", "user_id", tok.UserID)
	return nil
}

// ChangePassword replaces the password of a signed-in user after checking the old one.
func (s *AuthService) ChangePassword(ctx context.Context, user model.User, in ChangePasswordInput) error {
	if err := s.check(in); err != nil {
		if KindOf(err) == ErrValidation && (in.OldPassword == "" || in.Password == "") {
			return newError(ErrValidation, "Please enter old and new password")
		}
		return err
	}

	u, err := s.userByID(ctx, user.ID)
	if err != nil {
		return err
	}
	if err := s.comparePassword(u, in.OldPassword, "Old password is incorrect"); err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, u.ID, in.Password); err != nil {
		return mapUserWrite("change password", err)
	}

	s.log.Info(ctx, "password changed", "user_id", u.ID)
	return nil
}
