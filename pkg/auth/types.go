package auth

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

// Provider identifiers stored on accounts.
const (
	ProviderCredential = "credential"
	ProviderGoogle     = "google"
)

// User is a registered account holder.
type User struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	Image         string     `json:"image,omitempty"`
	Role          Role       `json:"role"`
	EmailVerified bool       `json:"emailVerified"`
	Banned        bool       `json:"banned"`
	BanReason     string     `json:"banReason,omitempty"`
	BanExpires    *time.Time `json:"banExpires,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

// IsBanned reports whether the ban is in force at now. Expired bans don't
// count.
func (u *User) IsBanned(now time.Time) bool {
	if u == nil || !u.Banned {
		return false
	}
	return u.BanExpires == nil || now.Before(*u.BanExpires)
}

func newUser(email, name string, verified bool) *User {
	now := time.Now()
	return &User{
		ID:            uuid.New(),
		Email:         email,
		Name:          name,
		Role:          RoleUser,
		EmailVerified: verified,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Account links a user to a sign-in method. Credential accounts carry the
// password hash; OAuth accounts carry the provider's subject.
type Account struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	ProviderID   string
	AccountID    string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Verification is a short-lived secret held by a VerificationStore.
type Verification struct {
	Identifier string
	Value      string
	ExpiresAt  time.Time
	// Attempts counts failed redemptions. Set resets it to the given value.
	Attempts int
}

func (v Verification) Expired(now time.Time) bool { return !now.Before(v.ExpiresAt) }
