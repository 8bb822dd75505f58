package http

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/authz/server/internal/http/handlers"
	"github.com/authz/server/internal/logging"
	"github.com/authz/server/internal/middleware"
	"github.com/authz/server/internal/model"
)

// RouterConfig bundles what NewRouter wires together.
type RouterConfig struct {
	Auth          *handlers.AuthHandler
	Users         *handlers.UserHandler
	Health        *handlers.HealthHandler
	Authenticator middleware.Authenticator
	// StrictVerified makes routes gated on verification require isVerified.
	StrictVerified bool
	// Logger receives one line per request. Nil discards request logs.
	Logger logging.Logger
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(cfg RouterConfig) *chi.Mux {
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)

	r.Get("/health", cfg.Health.ServeHTTP)

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/register", cfg.Auth.HandleRegister)
		r.Post("/login", cfg.Auth.HandleLogin)
		r.Get("/logout", cfg.Auth.HandleLogout)
		r.Get("/loginStatus", cfg.Auth.HandleLoginStatus)
		r.Post("/sendLoginCode/{email}", cfg.Auth.HandleSendLoginCode)
		r.Post("/loginWithCode/{email}", cfg.Auth.HandleLoginWithCode)
		r.Post("/google/callback", cfg.Auth.HandleGoogleCallback)
		r.Post("/forgotPassword", cfg.Auth.HandleForgotPassword)
		r.Patch("/resetPassword/{resetToken}", cfg.Auth.HandleResetPassword)
		r.Patch("/verifyUser/{verificationToken}", cfg.Auth.HandleVerifyUser)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(cfg.Authenticator))

			r.Get("/getUser", cfg.Users.HandleGetUser)
			r.Patch("/updateUser", cfg.Users.HandleUpdateUser)
			r.Patch("/changePassword", cfg.Users.HandleChangePassword)
			r.Post("/sendVerificationEmail", cfg.Users.HandleSendVerificationEmail)
			r.Post("/sendAutomatedEmail", cfg.Users.HandleSendAutomatedEmail)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(model.RoleAuthor, model.RoleAdmin))
				r.Use(middleware.RequireVerified(cfg.StrictVerified))
				r.Get("/getUsers", cfg.Users.HandleGetUsers)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(model.RoleAdmin))
				r.Post("/upgradeUser", cfg.Users.HandleUpgradeUser)
				r.Delete("/{id}", cfg.Users.HandleDeleteUser)
			})
		})
	})

	return r
}
