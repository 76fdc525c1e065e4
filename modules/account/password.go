package account

import (
	"github.com/dmitrymomot/authstarter/handler"
	"github.com/dmitrymomot/authstarter/internal/authserver"
	"github.com/dmitrymomot/authstarter/modules/account/views"
	"github.com/dmitrymomot/authstarter/pkg/validator"
)

// resetPath is where reset links land with ?token= or ?error=.
const resetPath = "/reset-password"

func forgotResponse(d views.ForgotPasswordData) handler.Response {
	return handler.TemplPartial(views.ForgotPasswordPanel(d), views.ForgotPasswordPage(d), handler.WithTarget(views.ForgotPanelID))
}

func resetResponse(d views.ResetPasswordData) handler.Response {
	return handler.TemplPartial(views.ResetPasswordPanel(d), views.ResetPasswordPage(d), handler.WithTarget(views.ResetPanelID))
}

func (m *Module) forgotPasswordPage(_ handler.Context, _ struct{}) handler.Response {
	return handler.Templ(views.ForgotPasswordPage(views.ForgotPasswordData{}))
}

func (m *Module) forgotPassword(ctx handler.Context, f EmailForm) handler.Response {
	d := views.ForgotPasswordData{Email: f.Email}
	if err := f.Validate(); err != nil {
		d.Errors = validator.Extract(err)
		return forgotResponse(d)
	}

	if _, err := m.client.ForgetPassword(ctx, authserver.ForgetPasswordParams{
		Email:      f.Email,
		RedirectTo: resetPath,
	}); err != nil {
		d.Error = m.fail(ctx, actionForgotPassword, err)
		return forgotResponse(d)
	}
	d.Sent = true
	return forgotResponse(d)
}

func (m *Module) resetPasswordPage(_ handler.Context, f ResetPasswordForm) handler.Response {
	d := views.ResetPasswordData{Token: f.Token}
	if f.Error != "" || f.Token == "" {
		d.InvalidLink = true
		d.Error = msgInvalidResetLink
	}
	return handler.Templ(views.ResetPasswordPage(d))
}

func (m *Module) resetPassword(ctx handler.Context, f ResetPasswordForm) handler.Response {
	d := views.ResetPasswordData{Token: f.Token}
	if f.Token == "" {
		d.InvalidLink = true
		d.Error = msgInvalidResetLink
		return resetResponse(d)
	}
	if err := f.Validate(); err != nil {
		d.Errors = validator.Extract(err)
		return resetResponse(d)
	}

	if _, err := m.client.ResetPassword(ctx, authserver.ResetPasswordParams{
		NewPassword: f.NewPassword,
		Token:       f.Token,
	}); err != nil {
		d.Error = m.fail(ctx, actionResetPassword, err)
		if e, ok := authserver.AsError(err); ok && (e.Code == authserver.CodeInvalidToken || e.Code == authserver.CodeTokenExpired) {
			d.InvalidLink = true
		}
		return resetResponse(d)
	}
	d.Done = true
	return resetResponse(d)
}
