package authserver

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/authstarter/pkg/logger"
)

// SendVerificationOTP mails a one-time code of the requested type.
// Addresses that shouldn't receive one succeed silently.
func (s *Server) SendVerificationOTP(ctx context.Context, p SendVerificationOTPParams) (*StatusResult, error) {
	req, err := s.otp.Send(ctx, p.Email, p.Type)
	if err != nil {
		return nil, toError(err)
	}
	if req != nil {
		s.notifier.SendVerificationOTP(ctx, req.Email, req.Code, string(req.Type))
	}
	return &StatusResult{Status: true}, nil
}

// SignInEmailOTP signs in with a sign-in code, registering unknown
// addresses.
func (s *Server) SignInEmailOTP(ctx context.Context, w http.ResponseWriter, r *http.Request, p EmailOTPParams) (*AuthResult, error) {
	user, err := s.otp.SignIn(ctx, p.Email, p.OTP)
	if err != nil {
		return nil, toError(err)
	}
	if _, err := s.signIn(ctx, w, r, user); err != nil {
		return nil, err
	}
	return &AuthResult{User: user, SignedIn: true}, nil
}

// VerifyEmailOTP verifies the address with an email-verification code.
func (s *Server) VerifyEmailOTP(ctx context.Context, w http.ResponseWriter, r *http.Request, p EmailOTPParams) (*AuthResult, error) {
	user, err := s.otp.VerifyEmail(ctx, p.Email, p.OTP)
	if err != nil {
		return nil, toError(err)
	}
	res := &AuthResult{User: user}
	if !s.cfg.AutoSignInAfterVerification {
		return res, nil
	}
	if _, err := s.signIn(ctx, w, r, user); err != nil {
		return nil, err
	}
	res.SignedIn = true
	return res, nil
}

// ResetPasswordEmailOTP sets a new password with a forget-password code.
func (s *Server) ResetPasswordEmailOTP(ctx context.Context, p ResetPasswordEmailOTPParams) (*StatusResult, error) {
	user, err := s.otp.ResetPassword(ctx, p.Email, p.OTP, p.Password)
	if err != nil {
		return nil, toError(err)
	}
	if err := s.sessions.DestroyUser(ctx, user.ID); err != nil {
		s.log.WarnContext(ctx, "failed to revoke sessions after password reset",
			logger.UserID(user.ID), logger.Error(err), logger.Component("authserver"))
	}
	return &StatusResult{Status: true}, nil
}
