// Package google verifies Google Sign-In ID tokens.
package google

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/authz/server/internal/logging"
	"github.com/authz/server/internal/model"
)

// CertsURL is Google's published JWKS for ID tokens.
const CertsURL = "https://www.googleapis.com/oauth2/v3/certs"

var issuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

var ErrInvalidIDToken = errors.New("invalid google id token")

// Claims is the subset of a Google ID token payload the service reads.
type Claims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

// Verifier checks ID token signatures against a refreshed JWKS and enforces
// audience, issuer and expiry.
type Verifier struct {
	jwks     *keyfunc.JWKS
	clientID string
	now      func() time.Time
}

func NewVerifier(ctx context.Context, certsURL, clientID string, log logging.Logger) (*Verifier, error) {
	if clientID == "" {
		return nil, errors.New("google client id is required")
	}
	log = log.With("module", "google")

	jwks, err := keyfunc.Get(certsURL, keyfunc.Options{
		Ctx: ctx,
		RefreshErrorHandler: func(err error) {
			log.Warn(ctx, "failed to refresh google certs", "error", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("load google certs: %w", err)
	}
	return &Verifier{jwks: jwks, clientID: clientID, now: time.Now}, nil
}

// Verify returns the identity asserted by idToken.
func (v *Verifier) Verify(_ context.Context, idToken string) (model.ExternalIdentity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(idToken, claims, v.jwks.Keyfunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return model.ExternalIdentity{}, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}
	if !token.Valid {
		return model.ExternalIdentity{}, ErrInvalidIDToken
	}
	if !issuers[claims.Issuer] {
		return model.ExternalIdentity{}, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidIDToken, claims.Issuer)
	}
	if claims.Email == "" || claims.Subject == "" {
		return model.ExternalIdentity{}, fmt.Errorf("%w: missing email or subject", ErrInvalidIDToken)
	}

	return model.ExternalIdentity{
		Subject:   claims.Subject,
		Name:      claims.Name,
		Email:     claims.Email,
		AvatarURL: claims.Picture,
	}, nil
}

// Close stops the background JWKS refresh.
func (v *Verifier) Close() {
	v.jwks.EndBackground()
}
