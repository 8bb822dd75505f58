package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/authz/server/internal/model"
	"github.com/authz/server/internal/notify"
	"github.com/authz/server/internal/repo"
)

// ProfileUpdate holds the editable profile fields. Empty fields keep their
// current value.
type ProfileUpdate struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
	Bio   string `json:"bio"`
	Photo string `json:"photo"`
}

type UpgradeRoleInput struct {
	ID   uuid.UUID  `json:"id" validate:"required"`
	Role model.Role `json:"role" validate:"required,oneof=subscriber author admin suspended"`
}

type AutomatedEmailInput struct {
	Subject  string `json:"subject" validate:"required"`
	SendTo   string `json:"send_to" validate:"required,email"`
	ReplyTo  string `json:"reply_to" validate:"required,email"`
	Template string `json:"template" validate:"required"`
	URL      string `json:"url"`
}

func (s *AuthService) GetUser(ctx context.Context, id uuid.UUID) (model.PublicUser, error) {
	u, err := s.userByID(ctx, id)
	if err != nil {
		return model.PublicUser{}, err
	}
	return u.Public(), nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileUpdate) (model.PublicUser, error) {
	if err := s.check(in); err != nil {
		return model.PublicUser{}, err
	}
	u, err := s.userByID(ctx, id)
	if err != nil {
		return model.PublicUser{}, err
	}

	if in.Name != "" {
		u.Name = in.Name
	}
	if in.Email != "" {
		u.Email = in.Email
	}
	if in.Phone != "" {
		u.Phone = in.Phone
	}
	if in.Bio != "" {
		u.Bio = in.Bio
	}
	if in.Photo != "" {
		u.Photo = in.Photo
	}

	updated, err := s.users.UpdateProfile(ctx, u)
	if err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return model.PublicUser{}, newError(ErrConflict, "Email already in use")
		}
		return model.PublicUser{}, mapUserWrite("update profile", err)
	}
	return updated.Public(), nil
}

// ListUsers returns every user, newest first.
func (s *AuthService) ListUsers(ctx context.Context) ([]model.PublicUser, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, internal("list users", err)
	}
	out := make([]model.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// DeleteUser removes a user and any token they hold. It cannot be undone.
func (s *AuthService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if tok, err := s.tokens.FindByUser(ctx, id, s.now()); err == nil {
		if err := s.tokens.Delete(ctx, tok); err != nil && !errors.Is(err, repo.ErrNotFound) {
			s.log.Warn(ctx, "failed to drop token of deleted user", "user_id", id, "error", err)
		}
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return mapUserWrite("delete user", err)
	}
	s.log.Info(ctx, "user deleted", "user_id", id)
	return nil
}

// UpgradeRole sets the role of another user. Callers must already be gated as admin.
func (s *AuthService) UpgradeRole(ctx context.Context, in UpgradeRoleInput) error {
	if err := s.check(in); err != nil {
		return err
	}
	if err := s.users.SetRole(ctx, in.ID, in.Role); err != nil {
		return mapUserWrite("set role", err)
	}
	s.log.Info(ctx, "role changed", "user_id", in.ID, "role", in.Role)
	return nil
}

// SendAutomatedEmail sends one of the known templates to a registered user
// with a link under the frontend URL.
func (s *AuthService) SendAutomatedEmail(ctx context.Context, in AutomatedEmailInput) error {
	if err := s.check(in); err != nil {
		return err
	}
	if !notify.HasTemplate(in.Template) {
		return newError(ErrValidation, "Unknown email template")
	}
	u, err := s.userByEmail(ctx, in.SendTo, "User not found")
	if err != nil {
		return err
	}

	return s.send(ctx, notify.Message{
		Subject:  in.Subject,
		To:       u.Email,
		ReplyTo:  in.ReplyTo,
		Template: in.Template,
		Name:     u.Name,
		Link:     s.cfg.FrontendURL + in.URL,
	})
}
