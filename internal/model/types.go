package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is the access level of a user.
type Role string

const (
	RoleSubscriber Role = "subscriber"
	RoleAuthor     Role = "author"
	RoleAdmin      Role = "admin"
	RoleSuspended  Role = "suspended"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSubscriber, RoleAuthor, RoleAdmin, RoleSuspended:
		return true
	}
	return false
}

// Profile defaults applied when a user is created without them.
const (
	DefaultPhoto = "https://raw.githubusercontent.com/zinotrust/auth-app-styles/master/assets/avatarr.png"
	DefaultPhone = "(+84)"
	DefaultBio   = "bio"
)

// User represents a user in the system
type User struct {
	ID             uuid.UUID
	Name           string
	Email          string
	Password       string
	Phone          string
	Bio            string
	Photo          string
	Role           Role
	IsVerified     bool
	TrustedDevices []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ApplyDefaults fills empty profile fields and the role.
func (u *User) ApplyDefaults() {
	if u.Phone == "" {
		u.Phone = DefaultPhone
	}
	if u.Bio == "" {
		u.Bio = DefaultBio
	}
	if u.Photo == "" {
		u.Photo = DefaultPhoto
	}
	if u.Role == "" {
		u.Role = RoleSubscriber
	}
	if u.TrustedDevices == nil {
		u.TrustedDevices = []string{}
	}
}

// TrustsDevice reports whether fingerprint has been granted trust.
func (u User) TrustsDevice(fingerprint string) bool {
	for _, d := range u.TrustedDevices {
		if d == fingerprint {
			return true
		}
	}
	return false
}

// PublicUser is the outward projection of a User. It never carries the
// password hash or the trusted device list.
type PublicUser struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Bio        string    `json:"bio"`
	Photo      string    `json:"photo"`
	Role       Role      `json:"role"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Phone:      u.Phone,
		Bio:        u.Bio,
		Photo:      u.Photo,
		Role:       u.Role,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
	}
}

// ExternalIdentity is an already-verified assertion from a social login provider.
type ExternalIdentity struct {
	Subject   string
	Name      string
	Email     string
	AvatarURL string
}
