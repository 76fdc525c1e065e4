package authserver

import (
	"context"
	"log/slog"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/authstarter/pkg/email"
	"github.com/dmitrymomot/authstarter/pkg/email/templates"
	"github.com/dmitrymomot/authstarter/pkg/logger"
)

// Subjects of the auth e-mails.
const (
	SubjectResetPassword = "Reset Your Password"
	SubjectVerifyEmail   = "Verify Your Email Address"
	SubjectMagicLink     = "✨ Your Magic Sign-In Link"
	subjectOTPPrefix     = "Your verification code: "
)

// Notifier renders and sends auth e-mails. Delivery failures are logged
// and never reported to the caller, so a provider outage does not fail a
// sign-in flow.
type Notifier struct {
	sender email.EmailSender
	log    *slog.Logger
}

func NewNotifier(sender email.EmailSender, log *slog.Logger) *Notifier {
	if log == nil {
		log = logger.Discard()
	}
	return &Notifier{sender: sender, log: log}
}

func (n *Notifier) SendResetPassword(ctx context.Context, to, url string) {
	n.send(ctx, to, SubjectResetPassword, "password-reset", templates.PasswordReset(url))
}

func (n *Notifier) SendVerificationEmail(ctx context.Context, to, name, url string) {
	n.send(ctx, to, SubjectVerifyEmail, "email-verification", templates.EmailVerification(url, name))
}

func (n *Notifier) SendMagicLink(ctx context.Context, to, url string) {
	n.send(ctx, to, SubjectMagicLink, "magic-link", templates.MagicLink(url))
}

func (n *Notifier) SendVerificationOTP(ctx context.Context, to, otp, otpType string) {
	n.send(ctx, to, subjectOTPPrefix+otp, "otp", templates.OTP(otp, otpType))
}

func (n *Notifier) send(ctx context.Context, to, subject, tag string, tpl templ.Component) {
	body, err := templates.Render(ctx, tpl)
	if err != nil {
		n.log.ErrorContext(ctx, "failed to render email",
			logger.Email(to), slog.String("tag", tag), logger.Error(err), logger.Component("notifier"))
		return
	}

	if err := n.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   to,
		Subject:  subject,
		BodyHTML: body,
		Tag:      tag,
	}); err != nil {
		n.log.ErrorContext(ctx, "failed to send email",
			logger.Email(to), slog.String("tag", tag), logger.Error(err), logger.Component("notifier"))
		return
	}
	n.log.DebugContext(ctx, "email sent", logger.Email(to), slog.String("tag", tag), logger.Component("notifier"))
}
