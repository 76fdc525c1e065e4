package auth

import "context"

// ProviderProfile is the normalized user info returned by a provider.
type ProviderProfile struct {
	ProviderUserID string
	Email          string
	EmailVerified  bool
	Name           string
	AvatarURL      string
}

// ProviderAdapter hides provider specifics from OAuthService.
type ProviderAdapter interface {
	ProviderID() string
	AuthURL(state string) (string, error)
	// ResolveProfile exchanges code and fetches the profile. An invalid
	// code is reported as ErrInvalidCode.
	ResolveProfile(ctx context.Context, code string) (ProviderProfile, error)
}

// OAuthResult is the outcome of a successful callback.
type OAuthResult struct {
	User        *User
	CallbackURL string
	IsNewUser   bool
}
