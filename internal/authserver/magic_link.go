package authserver

import (
	"context"
	"net/http"
	"net/url"
)

// SignInMagicLink mails a single-use sign-in link.
func (s *Server) SignInMagicLink(ctx context.Context, p SignInMagicLinkParams) (*StatusResult, error) {
	req, err := s.magicLinks.RequestMagicLink(ctx, p.Email, p.Name)
	if err != nil {
		return nil, toError(err)
	}

	q := url.Values{"token": {req.Token}}
	if p.CallbackURL != "" {
		q.Set("callbackURL", p.CallbackURL)
	}
	s.notifier.SendMagicLink(ctx, req.Email, s.cfg.endpoint("/magic-link/verify")+"?"+q.Encode())
	return &StatusResult{Status: true}, nil
}

// VerifyMagicLink redeems the link and signs the user in.
func (s *Server) VerifyMagicLink(ctx context.Context, w http.ResponseWriter, r *http.Request, p VerifyTokenParams) (*AuthResult, error) {
	res, err := s.magicLinks.VerifyMagicLink(ctx, p.Token)
	if err != nil {
		return nil, toError(err)
	}
	if _, err := s.signIn(ctx, w, r, res.User); err != nil {
		return nil, err
	}
	return &AuthResult{User: res.User, Redirect: p.CallbackURL != "", URL: p.CallbackURL, SignedIn: true}, nil
}
