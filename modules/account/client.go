package account

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/authstarter/internal/authserver"
)

// AuthClient is the part of the auth server the account pages call. It is
// satisfied by *authserver.Server.
type AuthClient interface {
	Middleware(next http.Handler) http.Handler
	GetSession(ctx context.Context, w http.ResponseWriter, r *http.Request) (*authserver.SessionData, error)
	IsAdmin(ctx context.Context) bool
	Providers() []string

	SignInEmail(ctx context.Context, w http.ResponseWriter, r *http.Request, p authserver.SignInEmailParams) (*authserver.AuthResult, error)
	SignInSocial(ctx context.Context, p authserver.SignInSocialParams) (*authserver.SocialResult, error)
	SignInMagicLink(ctx context.Context, p authserver.SignInMagicLinkParams) (*authserver.StatusResult, error)
	SendVerificationOTP(ctx context.Context, p authserver.SendVerificationOTPParams) (*authserver.StatusResult, error)
	SignInEmailOTP(ctx context.Context, w http.ResponseWriter, r *http.Request, p authserver.EmailOTPParams) (*authserver.AuthResult, error)
	ForgetPassword(ctx context.Context, p authserver.ForgetPasswordParams) (*authserver.StatusResult, error)
	ResetPassword(ctx context.Context, p authserver.ResetPasswordParams) (*authserver.StatusResult, error)
	SignOut(ctx context.Context, w http.ResponseWriter, r *http.Request) (*authserver.StatusResult, error)
}

var _ AuthClient = (*authserver.Server)(nil)
