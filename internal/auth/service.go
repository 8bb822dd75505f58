package auth

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/authz/server/internal/logging"
	"github.com/authz/server/internal/model"
	"github.com/authz/server/internal/notify"
	"github.com/authz/server/internal/password"
	"github.com/authz/server/internal/repo"
)

const (
	defaultReplyTo = "noreply@baoto.com"
	notifyTimeout  = 30 * time.Second

	msgNotifyFailed    = "Email not send, please try again!"
	msgPasswordTooLong = "Password must not be longer than 72 characters"
)

// Config carries the settings flows need beyond their collaborators.
type Config struct {
	// FrontendURL prefixes every link sent by email.
	FrontendURL string
	MailFrom    string
	ReplyTo     string
}

// Session is the outcome of every flow that signs a user in.
type Session struct {
	User  model.PublicUser
	Token string
}

// AuthService runs the authentication flows. All state lives in the user and
// token stores; each flow reads current state and writes the next.
type AuthService struct {
	users    repo.UserRepo
	tokens   repo.TokenRepo
	sessions *JWTService
	cipher   *Cipher
	hasher   *password.Hasher
	notifier notify.Notifier
	validate *validator.Validate
	cfg      Config
	log      logging.Logger
	now      func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	users repo.UserRepo,
	tokens repo.TokenRepo,
	sessions *JWTService,
	cipher *Cipher,
	hasher *password.Hasher,
	notifier notify.Notifier,
	cfg Config,
	log logging.Logger,
) *AuthService {
	if cfg.ReplyTo == "" {
		cfg.ReplyTo = defaultReplyTo
	}
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")

	return &AuthService{
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		cipher:   cipher,
		hasher:   hasher,
		notifier: notifier,
		validate: newValidator(),
		cfg:      cfg,
		log:      log.With("module", "auth"),
		now:      time.Now,
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// check validates in and turns the first failure into a Validation error.
func (s *AuthService) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return internal("validate input", err)
	}
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			return newError(ErrValidation, "Please fill in all the required fields")
		}
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "email":
		return newError(ErrValidation, "Please enter a valid email")
	case "min":
		return newError(ErrValidation, fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param()))
	case "max":
		return newError(ErrValidation, fmt.Sprintf("%s must not be longer than %s characters", fe.Field(), fe.Param()))
	case "oneof":
		return newError(ErrValidation, fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
	}
	return newError(ErrValidation, fmt.Sprintf("%s is invalid", fe.Field()))
}

func (s *AuthService) issue(u model.User) (Session, error) {
	token, err := s.sessions.SignSession(u.ID)
	if err != nil {
		return Session{}, internal("sign session", err)
	}
	return Session{User: u.Public(), Token: token}, nil
}

func (s *AuthService) userByEmail(ctx context.Context, email, notFoundMsg string) (model.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.User{}, newError(ErrNotFound, notFoundMsg)
		}
		return model.User{}, internal("load user", err)
	}
	return u, nil
}

func (s *AuthService) userByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.User{}, newError(ErrNotFound, "User not found")
		}
		return model.User{}, internal("load user", err)
	}
	return u, nil
}

// mapUserWrite classifies the error of a single-user write.
func mapUserWrite(op string, err error) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return newError(ErrNotFound, "User not found")
	case errors.Is(err, password.ErrTooLong):
		return wrapError(ErrValidation, msgPasswordTooLong, err)
	}
	return internal(op, err)
}

func (s *AuthService) send(ctx context.Context, msg notify.Message) error {
	msg.From = s.cfg.MailFrom
	if msg.ReplyTo == "" {
		msg.ReplyTo = s.cfg.ReplyTo
	}

	sendCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	if err := s.notifier.Send(sendCtx, msg); err != nil {
		s.log.Error(ctx, "notification failed", "template", msg.Template, "to", notify.MaskEmail(msg.To), "error", err)
		return wrapError(ErrNotifyFailed, msgNotifyFailed, err)
	}
	return nil
}

// Authenticate resolves a session token to its user. The returned user never
// carries the password hash.
func (s *AuthService) Authenticate(ctx context.Context, token string) (model.User, error) {
	if token == "" {
		return model.User{}, newError(ErrUnauthenticated, "Not authorized, please login")
	}
	id, err := s.sessions.VerifySession(token)
	if err != nil {
		return model.User{}, wrapError(ErrUnauthenticated, "Not authorized, please login", err)
	}

	u, err := s.userByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if u.Role == model.RoleSuspended {
		return model.User{}, newError(ErrSuspended, "User suspended, please contact support")
	}
	u.Password = ""
	return u, nil
}

// LoginStatus reports whether token is a valid, unexpired session.
func (s *AuthService) LoginStatus(token string) bool {
	if token == "" {
		return false
	}
	_, err := s.sessions.VerifySession(token)
	return err == nil
}
