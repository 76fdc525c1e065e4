package authserver

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authstarter/pkg/auth"
)

// StatusResult acknowledges operations that return no data.
type StatusResult struct {
	Status bool `json:"status"`
}

// AuthResult is returned by operations that may sign the user in. URL is
// the callback the client should navigate to, when one was requested.
type AuthResult struct {
	Redirect bool       `json:"redirect"`
	URL      string     `json:"url,omitempty"`
	User     *auth.User `json:"user"`
	// SignedIn is false when a session was not issued, for example after
	// sign-up with required e-mail verification.
	SignedIn bool `json:"-"`
}

// SocialResult carries the provider consent URL.
type SocialResult struct {
	Redirect bool   `json:"redirect"`
	URL      string `json:"url"`
}

type SignUpEmailParams struct {
	Name        string `json:"name" form:"name"`
	Email       string `json:"email" form:"email"`
	Password    string `json:"password" form:"password"`
	Image       string `json:"image,omitempty" form:"image"`
	CallbackURL string `json:"callbackURL,omitempty" form:"callbackURL"`
}

type SignInEmailParams struct {
	Email       string `json:"email" form:"email"`
	Password    string `json:"password" form:"password"`
	CallbackURL string `json:"callbackURL,omitempty" form:"callbackURL"`
}

type SignInSocialParams struct {
	Provider    string `json:"provider" query:"provider" form:"provider"`
	CallbackURL string `json:"callbackURL,omitempty" query:"callbackURL" form:"callbackURL"`
}

type OAuthCallbackParams struct {
	Provider string `path:"provider"`
	Code     string `query:"code"`
	State    string `query:"state"`
	Error    string `query:"error"`
}

type SignInMagicLinkParams struct {
	Email       string `json:"email" form:"email"`
	Name        string `json:"name,omitempty" form:"name"`
	CallbackURL string `json:"callbackURL,omitempty" form:"callbackURL"`
}

type VerifyTokenParams struct {
	Token       string `query:"token"`
	CallbackURL string `query:"callbackURL"`
}

type SendVerificationOTPParams struct {
	Email string       `json:"email" form:"email"`
	Type  auth.OTPType `json:"type" form:"type"`
}

type EmailOTPParams struct {
	Email string `json:"email" form:"email"`
	OTP   string `json:"otp" form:"otp"`
}

type ResetPasswordEmailOTPParams struct {
	Email    string `json:"email" form:"email"`
	OTP      string `json:"otp" form:"otp"`
	Password string `json:"password" form:"password"`
}

type ForgetPasswordParams struct {
	Email      string `json:"email" form:"email"`
	RedirectTo string `json:"redirectTo,omitempty" form:"redirectTo"`
}

type ResetPasswordParams struct {
	NewPassword string `json:"newPassword" form:"newPassword"`
	Token       string `json:"token" form:"token" query:"token"`
}

type SendVerificationEmailParams struct {
	Email       string `json:"email" form:"email"`
	CallbackURL string `json:"callbackURL,omitempty" form:"callbackURL"`
}

type ListUsersParams struct {
	Limit       int    `json:"limit,omitempty"`
	Offset      int    `json:"offset,omitempty"`
	SearchValue string `json:"searchValue,omitempty"`
}

type SetRoleParams struct {
	UserID uuid.UUID `json:"userId"`
	Role   auth.Role `json:"role"`
}

type BanUserParams struct {
	UserID    uuid.UUID `json:"userId"`
	BanReason string    `json:"banReason,omitempty"`
	// BanExpiresIn is in seconds. Zero bans indefinitely.
	BanExpiresIn int `json:"banExpiresIn,omitempty"`
}

func (p BanUserParams) expiresIn() time.Duration {
	return time.Duration(p.BanExpiresIn) * time.Second
}

type UserIDParams struct {
	UserID uuid.UUID `json:"userId"`
}

type ListUsersResult struct {
	Users  []*auth.User `json:"users"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}
