package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/authz/server/internal/auth"
	"github.com/authz/server/internal/config"
	"github.com/authz/server/internal/db"
	"github.com/authz/server/internal/google"
	httphandler "github.com/authz/server/internal/http"
	"github.com/authz/server/internal/http/handlers"
	"github.com/authz/server/internal/logging"
	"github.com/authz/server/internal/notify"
	"github.com/authz/server/internal/password"
	"github.com/authz/server/internal/repo"
)

func main() {
	// Load .env from CWD (env vars override)
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.Debug)
	if err := run(cfg, logger); err != nil {
		logger.Error(context.Background(), "server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.SlogLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if err := db.Migrate(ctx, database); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	hasher := password.NewHasher(password.DefaultCost)
	userRepo := repo.NewUserRepo(database, hasher)
	tokenRepo, closeTokens, err := openTokenRepo(ctx, cfg, database, logger)
	if err != nil {
		return err
	}
	defer closeTokens()

	cipher, err := auth.NewCipher(cfg.CryptrKey)
	if err != nil {
		return fmt.Errorf("init cipher: %w", err)
	}
	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}

	authService := auth.NewAuthService(
		userRepo,
		tokenRepo,
		auth.NewJWTService(cfg.JWTSecret),
		cipher,
		hasher,
		notifier,
		auth.Config{
			FrontendURL: cfg.FrontendURL,
			MailFrom:    cfg.EmailUser,
			ReplyTo:     cfg.EmailReplyTo,
		},
		logger,
	)

	// A nil verifier must stay a nil interface so the handler can detect it.
	var identities handlers.IdentityVerifier
	if cfg.GoogleClientID != "" {
		verifier, err := google.NewVerifier(ctx, google.CertsURL, cfg.GoogleClientID, logger)
		if err != nil {
			return fmt.Errorf("init google verifier: %w", err)
		}
		defer verifier.Close()
		identities = verifier
	} else {
		logger.Warn(ctx, "GOOGLE_CLIENT_ID not set, google login disabled")
	}

	router := httphandler.NewRouter(httphandler.RouterConfig{
		Auth:           handlers.NewAuthHandler(authService, identities, cfg.CookieSecure, logger),
		Users:          handlers.NewUserHandler(authService, logger),
		Health:         handlers.NewHealthHandler(database),
		Authenticator:  authService,
		StrictVerified: cfg.StrictVerifiedGate,
		Logger:         logger,
	})

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "server starting", "port", cfg.Port, "token_store", cfg.TokenStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info(context.Background(), "server exited")
	return nil
}

func openTokenRepo(ctx context.Context, cfg *config.Config, database *sql.DB, logger logging.Logger) (repo.TokenRepo, func(), error) {
	if cfg.TokenStore != config.TokenStoreRedis {
		return repo.NewTokenRepo(database), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info(ctx, "using redis token store", "addr", opts.Addr)
	return repo.NewRedisTokenRepo(client, ""), func() { _ = client.Close() }, nil
}

func newNotifier(cfg *config.Config, logger logging.Logger) (notify.Notifier, error) {
	if cfg.EmailHost == "" {
		logger.Warn(context.Background(), "EMAIL_HOST not set, emails are logged instead of sent")
		return notify.NewLogNotifier(logger), nil
	}
	n, err := notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:     cfg.EmailHost,
		Port:     cfg.EmailPort,
		Username: cfg.EmailUser,
		Password: cfg.EmailPass,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init smtp notifier: %w", err)
	}
	return n, nil
}
