// Package templates renders the transactional e-mail bodies.
//
// Each constructor returns a templ.Component backed by an embedded
// html/template, so every interpolated value is HTML-escaped.
package templates

import (
	"context"
	"embed"
	"html/template"
	"strings"

	"github.com/a-h/templ"
)

//go:embed html/*.html
var files embed.FS

// Button and link colours.
const (
	ColorVerification = "#4F46E5"
	ColorMagicLink    = "#8B5CF6"
	ColorDanger       = "#DC2626"
)

var (
	emailVerificationTmpl = parse("html/email_verification.html")
	magicLinkTmpl         = parse("html/magic_link.html")
	passwordResetTmpl     = parse("html/password_reset.html")
	otpTmpl               = parse("html/otp.html")
)

func parse(name string) *template.Template {
	return template.Must(template.ParseFS(files, "html/layout.html", name))
}

type linkData struct {
	URL        string
	Name       string
	ButtonText string
	Color      template.CSS
}

type otpData struct {
	Code  string
	Title string
}

func component(t *template.Template, data any) templ.Component {
	return templ.FromGoHTML(t.Lookup("layout"), data)
}

// EmailVerification greets name when it is not empty.
func EmailVerification(url, name string) templ.Component {
	return component(emailVerificationTmpl, linkData{
		URL:        url,
		Name:       name,
		ButtonText: "Verify Email Address",
		Color:      ColorVerification,
	})
}

func MagicLink(url string) templ.Component {
	return component(magicLinkTmpl, linkData{
		URL:        url,
		ButtonText: "Sign In",
		Color:      ColorMagicLink,
	})
}

func PasswordReset(url string) templ.Component {
	return component(passwordResetTmpl, linkData{
		URL:        url,
		ButtonText: "Reset Password",
		Color:      ColorDanger,
	})
}

// OTP renders a one-time code. otpType selects the heading.
func OTP(code, otpType string) templ.Component {
	return component(otpTmpl, otpData{Code: code, Title: OTPTitle(otpType)})
}

// OTPTitle maps an OTP type to its heading.
func OTPTitle(otpType string) string {
	switch otpType {
	case "sign-in":
		return "Sign In Code"
	case "email-verification":
		return "Email Verification Code"
	case "forget-password":
		return "Password Reset Code"
	default:
		return "Verification Code"
	}
}

// Render renders tpl to a string.
func Render(ctx context.Context, tpl templ.Component) (string, error) {
	var sb strings.Builder
	if err := tpl.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}
