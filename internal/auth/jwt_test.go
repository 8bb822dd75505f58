package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_SignAndVerify(t *testing.T) {
	svc := NewJWTService("test-secret")
	uid := uuid.New()

	tok, err := svc.SignSession(uid)
	require.NoError(t, err)

	got, err := svc.VerifySession(tok)
	require.NoError(t, err)
	assert.Equal(t, uid, got)
}

func TestJWTService_ClaimsShape(t *testing.T) {
	svc := NewJWTService("test-secret")
	issued := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	tok, err := svc.SignSession(uuid.New())
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(tok, claims)
	require.NoError(t, err)

	assert.Contains(t, claims, "id")
	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.Equal(t, issued.Add(24*time.Hour), exp.Time.UTC())
}

func TestJWTService_Expired(t *testing.T) {
	svc := NewJWTService("test-secret")
	issued := time.Now().Add(-25 * time.Hour)
	svc.now = func() time.Time { return issued }

	tok, err := svc.SignSession(uuid.New())
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.VerifySession(tok)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestJWTService_WrongSecret(t *testing.T) {
	tok, err := NewJWTService("secret-a").SignSession(uuid.New())
	require.NoError(t, err)

	_, err = NewJWTService("secret-b").VerifySession(tok)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestJWTService_Malformed(t *testing.T) {
	svc := NewJWTService("test-secret")

	for _, tok := range []string{"", "abc", "a.b.c"} {
		_, err := svc.VerifySession(tok)
		assert.Error(t, err, tok)
	}
}

func TestJWTService_RejectsNonHMAC(t *testing.T) {
	claims := &SessionClaims{
		UserID: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTService("test-secret").VerifySession(tok)
	assert.Error(t, err)
}

func TestJWTService_BadSubject(t *testing.T) {
	claims := &SessionClaims{
		UserID: "not-a-uuid",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = NewJWTService("test-secret").VerifySession(tok)
	assert.Error(t, err)
}
