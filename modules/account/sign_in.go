package account

import (
	"context"

	"github.com/dmitrymomot/authstarter/handler"
	"github.com/dmitrymomot/authstarter/internal/authserver"
	"github.com/dmitrymomot/authstarter/modules/account/views"
	"github.com/dmitrymomot/authstarter/pkg/auth"
	"github.com/dmitrymomot/authstarter/pkg/logger"
	"github.com/dmitrymomot/authstarter/pkg/validator"
)

// Where successful sign-ins land.
const homePath = "/"

type signInQuery struct {
	Tab   string `query:"tab"`
	Error string `query:"error"`
}

func (m *Module) signInData(tab views.Tab) views.SignInData {
	return views.SignInData{
		Tab:           tab,
		OTPLength:     otpLength,
		GoogleEnabled: m.googleEnabled(),
	}
}

func signInResponse(d views.SignInData) handler.Response {
	return handler.TemplPartial(views.SignInPanel(d), views.SignInPage(d), handler.WithTarget(views.SignInPanelID))
}

// fail returns the message shown for a failed auth call. Failures the auth
// server didn't describe are logged.
func (m *Module) fail(ctx context.Context, a action, err error) string {
	if _, ok := authserver.AsError(err); !ok {
		m.log.ErrorContext(ctx, "auth call failed", logger.Error(err), logger.Component("account"))
	}
	return errorMessage(a, err)
}

// signInPage also receives OAuth failures as ?error=CODE.
func (m *Module) signInPage(_ handler.Context, q signInQuery) handler.Response {
	d := m.signInData(views.ParseTab(q.Tab))
	if q.Error != "" {
		d.Error = errorTexts[actionGoogle].fallback
	}
	return handler.Templ(views.SignInPage(d))
}

func (m *Module) signInPassword(ctx handler.Context, f PasswordForm) handler.Response {
	d := m.signInData(views.TabPassword)
	d.Email = f.Email
	if err := f.Validate(); err != nil {
		d.Errors = validator.Extract(err)
		return signInResponse(d)
	}

	_, err := m.client.SignInEmail(ctx, ctx.ResponseWriter(), ctx.Request(), authserver.SignInEmailParams{
		Email:       f.Email,
		Password:    f.Password,
		CallbackURL: homePath,
	})
	if err != nil {
		d.Error = m.fail(ctx, actionPassword, err)
		return signInResponse(d)
	}
	return handler.Redirect(homePath)
}

func (m *Module) signInGoogle(ctx handler.Context, _ struct{}) handler.Response {
	res, err := m.client.SignInSocial(ctx, authserver.SignInSocialParams{
		Provider:    auth.ProviderGoogle,
		CallbackURL: homePath,
	})
	if err != nil {
		d := m.signInData(views.TabPassword)
		d.Error = m.fail(ctx, actionGoogle, err)
		return signInResponse(d)
	}
	return handler.Redirect(res.URL)
}

func (m *Module) signInMagicLink(ctx handler.Context, f EmailForm) handler.Response {
	d := m.signInData(views.TabMagicLink)
	d.Email = f.Email
	if err := f.Validate(); err != nil {
		d.Errors = validator.Extract(err)
		return signInResponse(d)
	}

	if _, err := m.client.SignInMagicLink(ctx, authserver.SignInMagicLinkParams{
		Email:       f.Email,
		CallbackURL: homePath,
	}); err != nil {
		d.Error = m.fail(ctx, actionMagicLink, err)
		return signInResponse(d)
	}
	d.MagicLinkSent = true
	return signInResponse(d)
}

func (m *Module) sendSignInOTP(ctx handler.Context, f EmailForm) handler.Response {
	d := m.signInData(views.TabOTP)
	d.Email = f.Email
	if err := f.Validate(); err != nil {
		d.Errors = validator.Extract(err)
		return signInResponse(d)
	}

	if _, err := m.client.SendVerificationOTP(ctx, authserver.SendVerificationOTPParams{
		Email: f.Email,
		Type:  auth.OTPSignIn,
	}); err != nil {
		d.Error = m.fail(ctx, actionSendOTP, err)
		return signInResponse(d)
	}
	d.OTPSent = true
	return signInResponse(d)
}

func (m *Module) verifySignInOTP(ctx handler.Context, f OTPForm) handler.Response {
	d := m.signInData(views.TabOTP)
	d.Email = f.Email
	d.OTPSent = true
	if err := f.Validate(); err != nil {
		d.Errors = validator.Extract(err)
		return signInResponse(d)
	}

	if _, err := m.client.SignInEmailOTP(ctx, ctx.ResponseWriter(), ctx.Request(), authserver.EmailOTPParams{
		Email: f.Email,
		OTP:   f.OTP,
	}); err != nil {
		d.Error = m.fail(ctx, actionSignInOTP, err)
		return signInResponse(d)
	}
	return handler.Redirect(homePath)
}
