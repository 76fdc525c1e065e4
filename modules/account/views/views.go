// Package views renders the account pages.
//
// Every page has a full-document component for regular requests and a
// panel component that DataStar patches in place. Both are backed by the
// same embedded html/template.
package views

import (
	"embed"
	"html/template"
	"time"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/authstarter/handler"
	"github.com/dmitrymomot/authstarter/internal/authserver"
	"github.com/dmitrymomot/authstarter/pkg/validator"
)

//go:embed html/*.html
var files embed.FS

// Element ids patched by DataStar responses.
const (
	SignInPanelID    = "#sign-in-panel"
	ForgotPanelID    = "#forgot-panel"
	ResetPanelID     = "#reset-panel"
	VerifyOTPPanelID = "#verify-otp-panel"
)

var funcs = template.FuncMap{
	"datetime":  func(t time.Time) string { return t.Format("Jan 2, 2006, 3:04 PM") },
	"longDate":  func(t time.Time) string { return t.Format("January 2, 2006") },
	"shortDate": func(t time.Time) string { return t.Format("1/2/2006") },
}

var (
	signInTmpl    = parse("html/sign_in.html")
	forgotTmpl    = parse("html/forgot_password.html")
	resetTmpl     = parse("html/reset_password.html")
	verifyOTPTmpl = parse("html/verify_otp.html")
	homeTmpl      = parse("html/home.html")
	dashboardTmpl = parse("html/dashboard.html")
	errorTmpl     = parse("html/error.html")
)

func parse(name string) *template.Template {
	return template.Must(template.New("").Funcs(funcs).ParseFS(files, "html/layout.html", name))
}

func page(t *template.Template, data any) templ.Component {
	return templ.FromGoHTML(t.Lookup("layout"), data)
}

func partial(t *template.Template, name string, data any) templ.Component {
	return templ.FromGoHTML(t.Lookup(name), data)
}

// Tab is a sign-in method.
type Tab string

const (
	TabPassword  Tab = "password"
	TabMagicLink Tab = "magic"
	TabOTP       Tab = "otp"
)

// ParseTab falls back to the password tab.
func ParseTab(s string) Tab {
	switch Tab(s) {
	case TabMagicLink, TabOTP:
		return Tab(s)
	default:
		return TabPassword
	}
}

type SignInData struct {
	Tab           Tab
	Email         string
	Error         string
	Errors        validator.ValidationErrors
	MagicLinkSent bool
	OTPSent       bool
	OTPLength     int
	GoogleEnabled bool
}

func SignInPage(d SignInData) templ.Component  { return page(signInTmpl, d) }
func SignInPanel(d SignInData) templ.Component { return partial(signInTmpl, "sign-in-panel", d) }

type ForgotPasswordData struct {
	Email  string
	Error  string
	Errors validator.ValidationErrors
	Sent   bool
}

func ForgotPasswordPage(d ForgotPasswordData) templ.Component { return page(forgotTmpl, d) }
func ForgotPasswordPanel(d ForgotPasswordData) templ.Component {
	return partial(forgotTmpl, "forgot-panel", d)
}

type ResetPasswordData struct {
	Token       string
	Error       string
	Errors      validator.ValidationErrors
	InvalidLink bool
	Done        bool
}

func ResetPasswordPage(d ResetPasswordData) templ.Component { return page(resetTmpl, d) }
func ResetPasswordPanel(d ResetPasswordData) templ.Component {
	return partial(resetTmpl, "reset-panel", d)
}

type VerifyOTPData struct {
	Email     string
	Error     string
	Errors    validator.ValidationErrors
	Notice    string
	OTPLength int
	// Cooldown is the number of seconds until a new code can be requested.
	Cooldown int
}

// ResendDisabled reports whether the resend action is still cooling down.
func (d VerifyOTPData) ResendDisabled() bool { return d.Cooldown > 0 }

func VerifyOTPPage(d VerifyOTPData) templ.Component { return page(verifyOTPTmpl, d) }
func VerifyOTPPanel(d VerifyOTPData) templ.Component {
	return partial(verifyOTPTmpl, "verify-otp-panel", d)
}

// HomeData is nil-Session for anonymous visitors. Debug holds the session
// as indented JSON and is only set in development.
type HomeData struct {
	Session *authserver.SessionData
	IsAdmin bool
	Debug   string
}

func HomePage(d HomeData) templ.Component { return page(homeTmpl, d) }

type DashboardData struct {
	Session *authserver.SessionData
	ShortID string
}

func DashboardPage(d DashboardData) templ.Component { return page(dashboardTmpl, d) }

func ErrorPage(p handler.ErrorPageParams) templ.Component { return page(errorTmpl, p) }

func ErrorToast(p handler.ErrorToastParams) templ.Component { return partial(errorTmpl, "toast", p) }
