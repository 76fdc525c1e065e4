package authserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrymomot/authstarter/pkg/auth"
	"github.com/dmitrymomot/authstarter/pkg/sanitizer"
	"github.com/dmitrymomot/authstarter/pkg/validator"
)

// SendVerificationEmail mails a verification link. Unknown and already
// verified addresses succeed without sending anything.
func (s *Server) SendVerificationEmail(ctx context.Context, p SendVerificationEmailParams) (*StatusResult, error) {
	email := sanitizer.NormalizeEmail(p.Email)
	if err := validator.Apply(validator.ValidEmail("email", email).WithMessage("Invalid email")); err != nil {
		return nil, toError(err)
	}

	user, err := s.storage.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		return &StatusResult{Status: true}, nil
	case err != nil:
		return nil, err
	}
	if !user.EmailVerified {
		s.sendVerification(ctx, user, p.CallbackURL)
	}
	return &StatusResult{Status: true}, nil
}

// VerifyEmail redeems a verification token and, when
// AutoSignInAfterVerification is set, signs the user in. The callback URL
// embedded in the token wins over the one passed in.
func (s *Server) VerifyEmail(ctx context.Context, w http.ResponseWriter, r *http.Request, p VerifyTokenParams) (*AuthResult, error) {
	user, callbackURL, err := s.verification.VerifyEmail(ctx, p.Token)
	if err != nil {
		return nil, toError(err)
	}
	if callbackURL == "" {
		callbackURL = p.CallbackURL
	}

	res := &AuthResult{User: user, Redirect: callbackURL != "", URL: callbackURL}
	if !s.cfg.AutoSignInAfterVerification {
		return res, nil
	}
	if _, err := s.signIn(ctx, w, r, user); err != nil {
		return nil, err
	}
	res.SignedIn = true
	return res, nil
}
