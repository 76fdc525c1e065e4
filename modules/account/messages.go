package account

import (
	"github.com/dmitrymomot/authstarter/internal/authserver"
)

type action int

const (
	actionPassword action = iota
	actionGoogle
	actionMagicLink
	actionSendOTP
	actionSignInOTP
	actionVerifyOTP
	actionResendOTP
	actionForgotPassword
	actionResetPassword
)

const msgUnexpected = "An unexpected error occurred"

// errorTexts holds, per action, the text shown when the auth server reports
// an error without a message and the text shown for any other failure.
var errorTexts = map[action]struct{ fallback, unexpected string }{
	actionPassword:       {"Failed to sign in", msgUnexpected},
	actionGoogle:         {"Failed to sign in with Google", "Failed to sign in with Google"},
	actionMagicLink:      {"Failed to send magic link", "Failed to send magic link"},
	actionSendOTP:        {"Failed to send OTP", "Failed to send OTP"},
	actionSignInOTP:      {"Invalid OTP", "Failed to verify OTP"},
	actionVerifyOTP:      {"Invalid OTP code", msgUnexpected},
	actionResendOTP:      {"Failed to resend OTP", "Failed to resend OTP"},
	actionForgotPassword: {"Failed to send reset link", msgUnexpected},
	actionResetPassword:  {"Failed to reset password", msgUnexpected},
}

// errorMessage returns the text displayed for err. Auth server errors are
// shown verbatim.
func errorMessage(a action, err error) string {
	t := errorTexts[a]
	if e, ok := authserver.AsError(err); ok {
		if e.Message != "" {
			return e.Message
		}
		return t.fallback
	}
	return t.unexpected
}

// Messages for links that come back with ?error=CODE.
const (
	msgInvalidResetLink = "This reset link is invalid or has expired"
	msgResendTooSoon    = "Please wait before requesting a new code"
)
