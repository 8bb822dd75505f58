package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/authz/server/internal/auth"
	"github.com/authz/server/internal/model"
)

// SessionCookie is the cookie that carries the session token.
const SessionCookie = "token"

type contextKey string

const userKey contextKey = "user"

// Authenticator resolves a session token to the user it belongs to.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (model.User, error)
}

// TokenFromRequest returns the session token of r. The cookie wins over an
// Authorization: Bearer header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// Authenticate resolves the session of every request and attaches the user
// to the request context.
func Authenticate(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authenticator.Authenticate(r.Context(), TokenFromRequest(r))
			if err != nil {
				RespondWithError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), userKey, &user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole admits only users holding one of roles. It must run after Authenticate.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				RespondWithKind(w, auth.ErrUnauthenticated, "Not authorized, please login")
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			RespondWithKind(w, auth.ErrForbidden, "Not authorized for this action")
		})
	}
}

// RequireVerified admits only verified users. With strict off any
// authenticated user passes, matching older deployments.
func RequireVerified(strict bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				RespondWithKind(w, auth.ErrUnauthenticated, "Not authorized, please login")
				return
			}
			if strict && !user.IsVerified {
				RespondWithKind(w, auth.ErrForbidden, "Not authorized, account not verified")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUser returns the user attached to the request context (set by Authenticate)
func GetUser(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}
