package auth

import (
	"context"

	"github.com/google/uuid"
)

// UserStorage persists users. Lookups by e-mail expect a normalized
// address. Missing users are reported as ErrUserNotFound, duplicates as
// ErrEmailAlreadyExists.
type UserStorage interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// PasswordStorage keeps the credential account of a user.
type PasswordStorage interface {
	UserStorage
	StorePasswordHash(ctx context.Context, userID uuid.UUID, hash []byte) error
	// GetPasswordHash returns ErrUserNotFound when the user has no password.
	GetPasswordHash(ctx context.Context, userID uuid.UUID) ([]byte, error)
}

// OAuthStorage keeps provider accounts.
type OAuthStorage interface {
	UserStorage
	StoreOAuthLink(ctx context.Context, userID uuid.UUID, provider, providerUserID string) error
	GetUserByOAuth(ctx context.Context, provider, providerUserID string) (*User, error)
}

// ListUsersParams pages through users. Search matches e-mail or name,
// case-insensitively.
type ListUsersParams struct {
	Limit  int
	Offset int
	Search string
}

type UserList struct {
	Users []*User `json:"users"`
	Total int     `json:"total"`
}

// AdminStorage lists users.
type AdminStorage interface {
	UserStorage
	ListUsers(ctx context.Context, params ListUsersParams) (*UserList, error)
}

// Storage is everything the package needs from a database.
type Storage interface {
	PasswordStorage
	OAuthStorage
	AdminStorage
}
