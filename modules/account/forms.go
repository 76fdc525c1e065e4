package account

import (
	"unicode/utf8"

	"github.com/dmitrymomot/authstarter/pkg/validator"
)

// Form validation messages.
const (
	MsgInvalidEmail  = "Please enter a valid email address"
	MsgShortPassword = "Password must be at least 8 characters"
	MsgOTPLength     = "OTP must be 6 digits"
)

const (
	minPasswordLength = 8
	otpLength         = 6
)

// ShouldAutoSubmit reports whether an OTP input holding code is complete
// and must be submitted without waiting for the button.
func ShouldAutoSubmit(code string) bool {
	return utf8.RuneCountInString(code) == otpLength
}

func emailRule(email string) validator.Rule {
	return validator.ValidEmail("email", email).WithMessage(MsgInvalidEmail)
}

func otpRule(code string) validator.Rule {
	return validator.LenString("otp", code, otpLength).WithMessage(MsgOTPLength)
}

type PasswordForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

func (f PasswordForm) Validate() error {
	return validator.FirstPerField(
		emailRule(f.Email),
		validator.MinLenString("password", f.Password, minPasswordLength).WithMessage(MsgShortPassword),
	)
}

// EmailForm is posted by the magic link, send OTP and forgot password
// forms.
type EmailForm struct {
	Email string `form:"email"`
}

func (f EmailForm) Validate() error {
	return validator.FirstPerField(emailRule(f.Email))
}

type OTPForm struct {
	Email string `form:"email"`
	OTP   string `form:"otp"`
	// Auto is set by the input handler when the code reached full length.
	Auto bool `query:"auto"`
}

func (f OTPForm) Validate() error {
	return validator.FirstPerField(emailRule(f.Email), otpRule(f.OTP))
}

type ResetPasswordForm struct {
	Token       string `form:"token" query:"token"`
	NewPassword string `form:"newPassword"`
	Error       string `query:"error"`
}

func (f ResetPasswordForm) Validate() error {
	return validator.FirstPerField(
		validator.MinLenString("newPassword", f.NewPassword, minPasswordLength).WithMessage(MsgShortPassword),
	)
}
