package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/authz/server/internal/auth"
	"github.com/authz/server/internal/logging"
	"github.com/authz/server/internal/middleware"
	"github.com/authz/server/internal/model"
)

// UserHandler serves endpoints that act on the signed-in user or, for
// admins, on other users. Every route runs behind middleware.Authenticate.
type UserHandler struct {
	svc *auth.AuthService
	log logging.Logger
}

func NewUserHandler(svc *auth.AuthService, log logging.Logger) *UserHandler {
	return &UserHandler{svc: svc, log: log.With("module", "http")}
}

func (h *UserHandler) current(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	u, ok := middleware.GetUser(r.Context())
	if !ok {
		middleware.RespondWithKind(w, auth.ErrUnauthenticated, "Not authorized, please login")
	}
	return u, ok
}

// HandleGetUser handles GET /api/users/getUser
func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	u, ok := h.current(w, r)
	if !ok {
		return
	}
	pub, err := h.svc.GetUser(r.Context(), u.ID)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, pub)
}

// HandleUpdateUser handles PATCH /api/users/updateUser
func (h *UserHandler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	u, ok := h.current(w, r)
	if !ok {
		return
	}
	var in auth.ProfileUpdate
	if !decodeJSON(w, r, &in) {
		return
	}
	pub, err := h.svc.UpdateProfile(r.Context(), u.ID, in)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, pub)
}

// HandleChangePassword handles PATCH /api/users/changePassword
func (h *UserHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	u, ok := h.current(w, r)
	if !ok {
		return
	}
	var in auth.ChangePasswordInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := h.svc.ChangePassword(r.Context(), *u, in); err != nil {
		fail(w, r, h.log, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, messageResponse{Message: "Password Change Successful, Please re-login"})
}

// HandleSendVerificationEmail handles POST /api/users/sendVerificationEmail
func (h *UserHandler) HandleSendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	u, ok := h.current(w, r)
	if !ok {
		return
	}
	if err := h.svc.SendVerificationEmail(r.Context(), *u); err != nil {
		fail(w, r, h.log, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, messageResponse{Message: "Verification Email Send"})
}

// HandleSendAutomatedEmail handles POST /api/users/sendAutomatedEmail
func (h *UserHandler) HandleSendAutomatedEmail(w http.ResponseWriter, r *http.Request) {
	var in auth.AutomatedEmailInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := h.svc.SendAutomatedEmail(r.Context(), in); err != nil {
		fail(w, r, h.log, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, messageResponse{Message: "Email Send"})
}

// HandleGetUsers handles GET /api/users/getUsers
func (h *UserHandler) HandleGetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, users)
}

// HandleUpgradeUser handles POST /api/users/upgradeUser
func (h *UserHandler) HandleUpgradeUser(w http.ResponseWriter, r *http.Request) {
	var in auth.UpgradeRoleInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := h.svc.UpgradeRole(r.Context(), in); err != nil {
		fail(w, r, h.log, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("User role updated to %s", in.Role)})
}

// HandleDeleteUser handles DELETE /api/users/{id}
func (h *UserHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithKind(w, auth.ErrNotFound, "User not found")
		return
	}
	if err := h.svc.DeleteUser(r.Context(), id); err != nil {
		fail(w, r, h.log, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, messageResponse{Message: "User deleted successfully"})
}
