package auth

import "errors"

var (
	ErrUserNotFound       = errors.New("auth.user_not_found")
	ErrEmailAlreadyExists = errors.New("auth.email_already_exists")
	ErrInvalidCredentials = errors.New("auth.invalid_credentials")
	ErrEmailNotVerified   = errors.New("auth.email_not_verified")
	ErrUserBanned         = errors.New("auth.user_banned")
	ErrInvalidRole        = errors.New("auth.invalid_role")
	ErrCannotBanSelf      = errors.New("auth.cannot_ban_self")
)

var (
	ErrTokenInvalid = errors.New("auth.token_invalid")
	ErrTokenExpired = errors.New("auth.token_expired")
)

var (
	ErrVerificationNotFound = errors.New("auth.verification_not_found")
	ErrStoreUnavailable     = errors.New("auth.store_unavailable")
)

var (
	ErrInvalidOTP      = errors.New("auth.invalid_otp")
	ErrOTPExpired      = errors.New("auth.otp_expired")
	ErrTooManyAttempts = errors.New("auth.too_many_attempts")
	ErrInvalidOTPType  = errors.New("auth.invalid_otp_type")
)

var (
	ErrInvalidState       = errors.New("auth.invalid_oauth_state")
	ErrInvalidCode        = errors.New("auth.invalid_oauth_code")
	ErrUnknownProvider    = errors.New("auth.unknown_provider")
	ErrUnverifiedEmail    = errors.New("auth.provider_email_not_verified")
	ErrNoPrimaryEmail     = errors.New("auth.provider_no_email")
	ErrProviderEmailInUse = errors.New("auth.provider_email_in_use")
)
