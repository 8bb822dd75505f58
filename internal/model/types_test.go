package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestUser_ApplyDefaults(t *testing.T) {
	u := User{Name: "Alice", Email: "alice@example.com"}
	u.ApplyDefaults()

	assert.Equal(t, DefaultPhone, u.Phone)
	assert.Equal(t, DefaultBio, u.Bio)
	assert.Equal(t, DefaultPhoto, u.Photo)
	assert.Equal(t, RoleSubscriber, u.Role)
	assert.NotNil(t, u.TrustedDevices)

	custom := User{Phone: "123", Role: RoleAdmin}
	custom.ApplyDefaults()
	assert.Equal(t, "123", custom.Phone)
	assert.Equal(t, RoleAdmin, custom.Role)
}

func TestUser_TrustsDevice(t *testing.T) {
	u := User{TrustedDevices: []string{"curl/8.0", "Mozilla/5.0"}}
	assert.True(t, u.TrustsDevice("curl/8.0"))
	assert.False(t, u.TrustsDevice("curl/8"))
	assert.False(t, User{}.TrustsDevice(""))
}

func TestUser_PublicOmitsCredentials(t *testing.T) {
	u := User{ID: uuid.New(), Name: "A", Password: "hash", TrustedDevices: []string{"x"}, Role: RoleAuthor}
	p := u.Public()
	assert.Equal(t, u.ID, p.ID)
	assert.Equal(t, RoleAuthor, p.Role)
}

func TestPublicUser_JSON(t *testing.T) {
	u := User{ID: uuid.New(), Name: "A", Email: "a@example.com", Password: "hash", TrustedDevices: []string{"x"}}
	b, err := json.Marshal(u.Public())
	assert.NoError(t, err)

	var out map[string]any
	assert.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, u.ID.String(), out["id"])
	assert.NotContains(t, out, "_id")
	assert.NotContains(t, out, "password")
	assert.NotContains(t, out, "trustedDevices")
}

func TestRole_Valid(t *testing.T) {
	for _, r := range []Role{RoleSubscriber, RoleAuthor, RoleAdmin, RoleSuspended} {
		assert.True(t, r.Valid(), r)
	}
	assert.False(t, Role("root").Valid())
	assert.False(t, Role("").Valid())
}

func TestToken_Constructors(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	uid := uuid.New()

	tests := []struct {
		name    string
		token   Token
		purpose Purpose
	}{
		{"verification", NewVerificationToken(uid, "d1", now), PurposeVerification},
		{"reset", NewResetToken(uid, "d2", now), PurposeReset},
		{"login code", NewLoginCodeToken(uid, "c3", now), PurposeLoginCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.purpose, tt.token.Purpose)
			assert.Equal(t, uid, tt.token.UserID)
			assert.NotEqual(t, uuid.Nil, tt.token.ID)
			assert.Equal(t, now.Add(60*time.Minute), tt.token.ExpiresAt)
		})
	}
}

func TestToken_Valid(t *testing.T) {
	now := time.Now()
	tok := NewResetToken(uuid.New(), "d", now)

	assert.True(t, tok.Valid(now))
	assert.True(t, tok.Valid(now.Add(59*time.Minute)))
	assert.False(t, tok.Valid(now.Add(60*time.Minute)))
	assert.False(t, tok.Valid(now.Add(2*time.Hour)))
}
