package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/authz/server/internal/auth"
	"github.com/authz/server/internal/logging"
	"github.com/authz/server/internal/middleware"
	"github.com/authz/server/internal/model"
)

type messageResponse struct {
	Message string `json:"message"`
}

// sessionResponse is the public user plus the session token.
type sessionResponse struct {
	model.PublicUser
	Token string `json:"token"`
}

// decodeJSON reads the request body into v. It answers 400 and returns false
// when the body is not valid JSON.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.RespondWithKind(w, auth.ErrValidation, "Invalid request body")
		return false
	}
	return true
}

// fail answers with err and logs it when the failure is on our side.
func fail(w http.ResponseWriter, r *http.Request, log logging.Logger, err error) {
	switch auth.KindOf(err) {
	case auth.ErrInternal, auth.ErrNotifyFailed:
		log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	middleware.RespondWithError(w, err)
}

// cookies writes and clears the session cookie.
type cookies struct {
	secure bool
}

func (c cookies) set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(auth.SessionTTL),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: c.sameSite(),
	})
}

func (c cookies) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: c.sameSite(),
	})
}

// Browsers reject SameSite=None without Secure.
func (c cookies) sameSite() http.SameSite {
	if c.secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}
