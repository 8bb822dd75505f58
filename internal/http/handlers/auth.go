package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/authz/server/internal/auth"
	"github.com/authz/server/internal/logging"
	"github.com/authz/server/internal/middleware"
	"github.com/authz/server/internal/model"
)

// IdentityVerifier checks a third-party ID token and returns the identity it asserts.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (model.ExternalIdentity, error)
}

// AuthHandler serves the public sign-in, sign-up and recovery endpoints.
type AuthHandler struct {
	svc     *auth.AuthService
	google  IdentityVerifier
	cookies cookies
	log     logging.Logger
}

// NewAuthHandler creates a new auth handler. google may be nil, in which case
// the Google callback answers 501.
func NewAuthHandler(svc *auth.AuthService, google IdentityVerifier, secureCookies bool, log logging.Logger) *AuthHandler {
	return &AuthHandler{
		svc:     svc,
		google:  google,
		cookies: cookies{secure: secureCookies},
		log:     log.With("module", "http"),
	}
}

func (h *AuthHandler) signedIn(w http.ResponseWriter, status int, sess auth.Session) {
	h.cookies.set(w, sess.Token)
	middleware.RespondWithJSON(w, status, sessionResponse{PublicUser: sess.User, Token: sess.Token})
}

// HandleRegister handles POST /api/users/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.UserAgent = r.UserAgent()

	sess, err := h.svc.Register(r.Context(), in)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	h.signedIn(w, http.StatusCreated, sess)
}

// HandleLogin handles POST /api/users/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in auth.LoginInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.UserAgent = r.UserAgent()

	sess, err := h.svc.Login(r.Context(), in)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	h.signedIn(w, http.StatusOK, sess)
}

// HandleLogout handles GET /api/users/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.cookies.clear(w)
	middleware.RespondWithJSON(w, http.StatusOK, messageResponse{Message: "Logout successfull"})
}

// HandleLoginStatus handles GET /api/users/loginStatus
func (h *AuthHandler) HandleLoginStatus(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, h.svc.LoginStatus(middleware.TokenFromRequest(r)))
}

// HandleSendLoginCode handles POST /api/users/sendLoginCode/{email}
func (h *AuthHandler) HandleSendLoginCode(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if err := h.svc.RequestLoginCode(r.Context(), email); err != nil {
		fail(w, r, h.log, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("Access Code sent to %s", email)})
}

type loginCodeRequest struct {
	LoginCode string `json:"loginCode"`
}

// HandleLoginWithCode handles POST /api/users/loginWithCode/{email}
func (h *AuthHandler) HandleLoginWithCode(w http.ResponseWriter, r *http.Request) {
	var req loginCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sess, err := h.svc.ConfirmLoginCode(r.Context(), chi.URLParam(r, "email"), req.LoginCode, r.UserAgent())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	h.signedIn(w, http.StatusCreated, sess)
}

type googleCallbackRequest struct {
	UserToken string `json:"userToken"`
}

// HandleGoogleCallback handles POST /api/users/google/callback
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		middleware.RespondWithJSON(w, http.StatusNotImplemented, messageResponse{Message: "Google login is not configured"})
		return
	}
	var req googleCallbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserToken == "" {
		middleware.RespondWithKind(w, auth.ErrValidation, "Please provide a Google token")
		return
	}

	ident, err := h.google.Verify(r.Context(), req.UserToken)
	if err != nil {
		h.log.Warn(r.Context(), "google token rejected", "error", err)
		middleware.RespondWithKind(w, auth.ErrUnauthenticated, "Invalid Google token")
		return
	}

	sess, created, err := h.svc.ExternalLogin(r.Context(), ident, r.UserAgent())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.signedIn(w, status, sess)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// HandleForgotPassword handles POST /api/users/forgotPassword
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		fail(w, r, h.log, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, messageResponse{Message: "Password Reset Email Send"})
}

// HandleResetPassword handles PATCH /api/users/resetPassword/{resetToken}
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var in auth.ResetPasswordInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := h.svc.ResetPassword(r.Context(), chi.URLParam(r, "resetToken"), in); err != nil {
		fail(w, r, h.log, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, messageResponse{Message: "Password Reset Successful, Please login"})
}

// HandleVerifyUser handles PATCH /api/users/verifyUser/{verificationToken}
func (h *AuthHandler) HandleVerifyUser(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.VerifyAccount(r.Context(), chi.URLParam(r, "verificationToken")); err != nil {
		fail(w, r, h.log, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, messageResponse{Message: "Account Verification Successful"})
}
