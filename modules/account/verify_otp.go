package account

import (
	"net/http"

	"github.com/dmitrymomot/authstarter/handler"
	"github.com/dmitrymomot/authstarter/internal/authserver"
	"github.com/dmitrymomot/authstarter/modules/account/views"
	"github.com/dmitrymomot/authstarter/pkg/auth"
	"github.com/dmitrymomot/authstarter/pkg/logger"
	"github.com/dmitrymomot/authstarter/pkg/validator"
)

const (
	signInPath     = "/sign-in"
	cooldownSignal = "cooldown"
	msgCodeResent  = "A new code has been sent to your email"
)

type verifyOTPQuery struct {
	Email string `query:"email"`
}

func (m *Module) verifyOTPData(email string) views.VerifyOTPData {
	return views.VerifyOTPData{Email: email, OTPLength: otpLength}
}

func verifyOTPResponse(d views.VerifyOTPData) handler.Response {
	return handler.TemplPartial(views.VerifyOTPPanel(d), views.VerifyOTPPage(d), handler.WithTarget(views.VerifyOTPPanelID))
}

func (m *Module) verifyOTPPage(ctx handler.Context, q verifyOTPQuery) handler.Response {
	if q.Email == "" {
		return handler.Redirect(signInPath)
	}
	d := m.verifyOTPData(q.Email)
	d.Cooldown = m.guard.remaining(ctx.Request(), q.Email)
	return m.cooldownResponse(d)
}

func (m *Module) verifyOTP(ctx handler.Context, f OTPForm) handler.Response {
	if f.Email == "" {
		return handler.Redirect(signInPath)
	}
	// The input handler fires on every keystroke; only a complete code is
	// sent to the auth server.
	if f.Auto && !ShouldAutoSubmit(f.OTP) {
		return handler.NoContent()
	}

	d := m.verifyOTPData(f.Email)
	if err := f.Validate(); err != nil {
		d.Errors = validator.Extract(err)
		return verifyOTPResponse(d)
	}

	if _, err := m.client.SignInEmailOTP(ctx, ctx.ResponseWriter(), ctx.Request(), authserver.EmailOTPParams{
		Email: f.Email,
		OTP:   f.OTP,
	}); err != nil {
		d.Error = m.fail(ctx, actionVerifyOTP, err)
		return verifyOTPResponse(d)
	}
	return handler.Redirect(homePath)
}

// resendOTP sends a new sign-in code and starts the cooldown. Requests
// during the cooldown are refused without calling the auth server.
func (m *Module) resendOTP(ctx handler.Context, f EmailForm) handler.Response {
	if f.Email == "" {
		return handler.Redirect(signInPath)
	}
	d := m.verifyOTPData(f.Email)

	if left := m.guard.remaining(ctx.Request(), f.Email); left > 0 {
		d.Error = msgResendTooSoon
		d.Cooldown = left
		return m.cooldownResponse(d)
	}

	if _, err := m.client.SendVerificationOTP(ctx, authserver.SendVerificationOTPParams{
		Email: f.Email,
		Type:  auth.OTPSignIn,
	}); err != nil {
		m.guard.reset(ctx.ResponseWriter())
		d.Error = m.fail(ctx, actionResendOTP, err)
		return verifyOTPResponse(d)
	}

	if err := m.guard.start(ctx.ResponseWriter(), f.Email); err != nil {
		m.log.WarnContext(ctx, "failed to set resend cooldown", logger.Error(err), logger.Component("account"))
	}
	d.Notice = msgCodeResent
	d.Cooldown = int(m.cfg.ResendCooldown.Seconds())
	return m.cooldownResponse(d)
}

// cooldownResponse patches the panel and then streams the cooldown signal
// once per tick down to zero. Regular requests get the page as of now.
func (m *Module) cooldownResponse(d views.VerifyOTPData) handler.Response {
	if d.Cooldown <= 0 {
		return verifyOTPResponse(d)
	}
	return streamOrPage{
		page: verifyOTPResponse(d),
		stream: handler.SSE(func(sc handler.StreamContext) error {
			if err := sc.SendComponent(views.VerifyOTPPanel(d), handler.WithTarget(views.VerifyOTPPanelID)); err != nil {
				return err
			}
			return Countdown(sc, d.Cooldown, m.tick, func(n int) error {
				return sc.SendSignal(cooldownSignal, n)
			})
		}),
	}
}

type streamOrPage struct {
	page   handler.Response
	stream handler.Response
}

func (s streamOrPage) Render(w http.ResponseWriter, r *http.Request) error {
	if handler.IsDataStar(r) {
		return s.stream.Render(w, r)
	}
	return s.page.Render(w, r)
}
