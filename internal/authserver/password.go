package authserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dmitrymomot/authstarter/pkg/auth"
	"github.com/dmitrymomot/authstarter/pkg/logger"
	"github.com/dmitrymomot/authstarter/pkg/sanitizer"
)

// SignUpEmail registers a password account. The verification e-mail goes
// out on sign-up; a session is issued only when verification isn't
// required.
func (s *Server) SignUpEmail(ctx context.Context, w http.ResponseWriter, r *http.Request, p SignUpEmailParams) (*AuthResult, error) {
	user, err := s.passwords.Register(ctx, auth.RegisterParams{
		Name:     p.Name,
		Email:    p.Email,
		Password: p.Password,
		Image:    p.Image,
	})
	if err != nil {
		return nil, toError(err)
	}
	s.log.InfoContext(ctx, "user signed up", logger.UserID(user.ID), logger.Component("authserver"))

	if s.cfg.SendVerificationOnSignUp || s.cfg.RequireEmailVerification {
		s.sendVerification(ctx, user, p.CallbackURL)
	}

	res := &AuthResult{User: user, Redirect: p.CallbackURL != "", URL: p.CallbackURL}
	if s.cfg.RequireEmailVerification {
		return res, nil
	}
	if _, err := s.signIn(ctx, w, r, user); err != nil {
		return nil, err
	}
	res.SignedIn = true
	return res, nil
}

// SignInEmail signs in with a password. Unverified users are rejected
// with EMAIL_NOT_VERIFIED and get a fresh verification link.
func (s *Server) SignInEmail(ctx context.Context, w http.ResponseWriter, r *http.Request, p SignInEmailParams) (*AuthResult, error) {
	user, err := s.passwords.Authenticate(ctx, p.Email, p.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailNotVerified) {
			if u, lookupErr := s.storage.GetUserByEmail(ctx, sanitizer.NormalizeEmail(p.Email)); lookupErr == nil {
				s.sendVerification(ctx, u, p.CallbackURL)
			}
		}
		return nil, toError(err)
	}
	if _, err := s.signIn(ctx, w, r, user); err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Redirect: p.CallbackURL != "", URL: p.CallbackURL, SignedIn: true}, nil
}

// ForgetPassword mails a reset link pointing at the reset-password
// route, which forwards to RedirectTo. Unknown addresses succeed silently.
func (s *Server) ForgetPassword(ctx context.Context, p ForgetPasswordParams) (*StatusResult, error) {
	req, err := s.passwords.ForgotPassword(ctx, p.Email)
	if err != nil {
		return nil, toError(err)
	}
	if req == nil {
		return &StatusResult{Status: true}, nil
	}

	link := s.cfg.endpoint("/reset-password/" + url.PathEscape(req.Token))
	if p.RedirectTo != "" {
		link += "?" + url.Values{"callbackURL": {p.RedirectTo}}.Encode()
	}
	s.notifier.SendResetPassword(ctx, req.User.Email, link)
	return &StatusResult{Status: true}, nil
}

// CheckResetToken reports INVALID_TOKEN for a token that can't be redeemed.
func (s *Server) CheckResetToken(ctx context.Context, token string) error {
	return toError(s.passwords.CheckResetToken(ctx, token))
}

// ResetPassword sets a new password with a reset token and revokes the
// user's other sessions.
func (s *Server) ResetPassword(ctx context.Context, p ResetPasswordParams) (*StatusResult, error) {
	if p.Token == "" {
		return nil, toError(auth.ErrTokenInvalid)
	}
	user, err := s.passwords.ResetPassword(ctx, p.Token, p.NewPassword)
	if err != nil {
		return nil, toError(err)
	}
	if err := s.sessions.DestroyUser(ctx, user.ID); err != nil {
		s.log.WarnContext(ctx, "failed to revoke sessions after password reset",
			logger.UserID(user.ID), logger.Error(err), logger.Component("authserver"))
	}
	return &StatusResult{Status: true}, nil
}

func (s *Server) sendVerification(ctx context.Context, user *auth.User, callbackURL string) {
	req, err := s.verification.RequestVerification(ctx, user.Email, callbackURL)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to create verification token",
			logger.UserID(user.ID), logger.Error(err), logger.Component("authserver"))
		return
	}
	s.notifier.SendVerificationEmail(ctx, user.Email, user.Name, s.verifyEmailURL(req.Token, callbackURL))
}

func (s *Server) verifyEmailURL(token, callbackURL string) string {
	q := url.Values{"token": {token}}
	if callbackURL != "" {
		q.Set("callbackURL", callbackURL)
	}
	return fmt.Sprintf("%s?%s", s.cfg.endpoint("/verify-email"), q.Encode())
}
