package views_test

import (
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authstarter/handler"
	"github.com/dmitrymomot/authstarter/modules/account/views"
	"github.com/dmitrymomot/authstarter/pkg/validator"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var sb strings.Builder
	require.NoError(t, c.Render(t.Context(), &sb))
	return sb.String()
}

func TestPagesRender(t *testing.T) {
	t.Parallel()

	pages := map[string]templ.Component{
		"sign-in":         views.SignInPage(views.SignInData{Tab: views.TabPassword}),
		"forgot-password": views.ForgotPasswordPage(views.ForgotPasswordData{}),
		"reset-password":  views.ResetPasswordPage(views.ResetPasswordData{Token: "t"}),
		"verify-otp":      views.VerifyOTPPage(views.VerifyOTPData{Email: "a@example.com", OTPLength: 6}),
		"home":            views.HomePage(views.HomeData{}),
		"error":           views.ErrorPage(handler.ErrorPageParams{Error: "Not found", StatusCode: 404}),
	}
	for name, c := range pages {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			html := render(t, c)
			assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
			assert.Contains(t, html, `id="toast-container"`)
		})
	}
}

func TestPanelsArePartial(t *testing.T) {
	t.Parallel()

	html := render(t, views.SignInPanel(views.SignInData{
		Tab:    views.TabMagicLink,
		Email:  `"><script>alert(1)</script>`,
		Errors: validator.ValidationErrors{{Field: "email", Message: "Please enter a valid email address"}},
	}))
	assert.NotContains(t, html, "<html")
	assert.Contains(t, html, `id="sign-in-panel"`)
	assert.Contains(t, html, "Please enter a valid email address")
	assert.NotContains(t, html, "<script>alert(1)</script>")
}

func TestVerifyOTPPanel_Cooldown(t *testing.T) {
	t.Parallel()

	cooling := views.VerifyOTPData{Email: "a@example.com", OTPLength: 6, Cooldown: 42}
	assert.True(t, cooling.ResendDisabled())
	html := render(t, views.VerifyOTPPanel(cooling))
	assert.Contains(t, html, "Resend in 42s")
	assert.Contains(t, html, "cooldown: 42")

	ready := views.VerifyOTPData{Email: "a@example.com", OTPLength: 6}
	assert.False(t, ready.ResendDisabled())
	html = render(t, views.VerifyOTPPanel(ready))
	assert.Contains(t, html, "Resend Code")
	assert.NotContains(t, html, " disabled>")
}

func TestParseTab(t *testing.T) {
	t.Parallel()
	assert.Equal(t, views.TabOTP, views.ParseTab("otp"))
	assert.Equal(t, views.TabMagicLink, views.ParseTab("magic"))
	assert.Equal(t, views.TabPassword, views.ParseTab(""))
	assert.Equal(t, views.TabPassword, views.ParseTab("bogus"))
}
