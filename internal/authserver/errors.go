package authserver

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/authstarter/pkg/auth"
	"github.com/dmitrymomot/authstarter/pkg/validator"
)

// Error is an auth failure reported to clients. Message is meant to be
// shown as is. Any other error returned by the Server is unexpected.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

func newError(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// Error codes.
const (
	CodeInvalidEmailOrPassword = "INVALID_EMAIL_OR_PASSWORD"
	CodeEmailNotVerified       = "EMAIL_NOT_VERIFIED"
	CodeUserAlreadyExists      = "USER_ALREADY_EXISTS"
	CodeUserNotFound           = "USER_NOT_FOUND"
	CodeBannedUser             = "BANNED_USER"
	CodeInvalidEmail           = "INVALID_EMAIL"
	CodeInvalidPassword        = "INVALID_PASSWORD"
	CodeValidation             = "VALIDATION_ERROR"
	CodeInvalidToken           = "INVALID_TOKEN"
	CodeTokenExpired           = "TOKEN_EXPIRED"
	CodeInvalidOTP             = "INVALID_OTP"
	CodeOTPExpired             = "OTP_EXPIRED"
	CodeTooManyAttempts        = "TOO_MANY_ATTEMPTS"
	CodeInvalidOTPType         = "INVALID_OTP_TYPE"
	CodeProviderNotFound       = "PROVIDER_NOT_FOUND"
	CodeStateMismatch          = "STATE_MISMATCH"
	CodeInvalidCode            = "INVALID_CODE"
	CodeProviderEmailMissing   = "EMAIL_NOT_FOUND"
	CodeUnverifiedEmail        = "PROVIDER_EMAIL_NOT_VERIFIED"
	CodeAccountNotLinked       = "ACCOUNT_NOT_LINKED"
	CodeInvalidRole            = "INVALID_ROLE"
	CodeCannotBanSelf          = "YOU_CANNOT_BAN_YOURSELF"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeForbidden              = "FORBIDDEN"
)

var (
	ErrInvalidEmailOrPassword = newError(http.StatusUnauthorized, CodeInvalidEmailOrPassword, "Invalid email or password")
	ErrEmailNotVerified       = newError(http.StatusForbidden, CodeEmailNotVerified, "Email not verified")
	ErrUnauthorized           = newError(http.StatusUnauthorized, CodeUnauthorized, "Unauthorized")
	ErrForbidden              = newError(http.StatusForbidden, CodeForbidden, "You are not allowed to perform this action")
)

var mapped = []struct {
	err error
	out *Error
}{
	{auth.ErrInvalidCredentials, ErrInvalidEmailOrPassword},
	{auth.ErrEmailNotVerified, ErrEmailNotVerified},
	{auth.ErrEmailAlreadyExists, newError(http.StatusUnprocessableEntity, CodeUserAlreadyExists, "User already exists")},
	{auth.ErrUserNotFound, newError(http.StatusNotFound, CodeUserNotFound, "User not found")},
	{auth.ErrUserBanned, newError(http.StatusForbidden, CodeBannedUser, "You have been banned from this application")},
	{auth.ErrTokenInvalid, newError(http.StatusBadRequest, CodeInvalidToken, "Invalid token")},
	{auth.ErrTokenExpired, newError(http.StatusBadRequest, CodeTokenExpired, "Token expired")},
	{auth.ErrInvalidOTP, newError(http.StatusBadRequest, CodeInvalidOTP, "Invalid OTP")},
	{auth.ErrOTPExpired, newError(http.StatusBadRequest, CodeOTPExpired, "OTP expired")},
	{auth.ErrTooManyAttempts, newError(http.StatusForbidden, CodeTooManyAttempts, "Too many attempts")},
	{auth.ErrInvalidOTPType, newError(http.StatusBadRequest, CodeInvalidOTPType, "Invalid OTP type")},
	{auth.ErrUnknownProvider, newError(http.StatusNotFound, CodeProviderNotFound, "Provider not found")},
	{auth.ErrInvalidState, newError(http.StatusBadRequest, CodeStateMismatch, "State mismatch")},
	{auth.ErrInvalidCode, newError(http.StatusBadRequest, CodeInvalidCode, "Invalid authorization code")},
	{auth.ErrNoPrimaryEmail, newError(http.StatusBadRequest, CodeProviderEmailMissing, "Email not found")},
	{auth.ErrUnverifiedEmail, newError(http.StatusForbidden, CodeUnverifiedEmail, "Provider email is not verified")},
	{auth.ErrProviderEmailInUse, newError(http.StatusConflict, CodeAccountNotLinked, "Account not linked")},
	{auth.ErrInvalidRole, newError(http.StatusBadRequest, CodeInvalidRole, "Invalid role")},
	{auth.ErrCannotBanSelf, newError(http.StatusBadRequest, CodeCannotBanSelf, "You cannot ban yourself")},
}

// toError maps library errors to *Error. Validation failures keep their
// first message. Unknown errors pass through unchanged.
func toError(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if ve := validator.Extract(err); len(ve) > 0 {
		first := ve[0]
		code := CodeValidation
		switch first.Field {
		case "email":
			code = CodeInvalidEmail
		case "password", "newPassword":
			code = CodeInvalidPassword
		}
		return newError(http.StatusBadRequest, code, first.Message)
	}
	for _, m := range mapped {
		if errors.Is(err, m.err) {
			return m.out
		}
	}
	return err
}

// AsError returns the *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
