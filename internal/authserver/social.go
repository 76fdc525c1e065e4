package authserver

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dmitrymomot/authstarter/handler"
	"github.com/dmitrymomot/authstarter/pkg/logger"
)

// SignInSocial starts the OAuth flow and returns the consent URL.
func (s *Server) SignInSocial(ctx context.Context, p SignInSocialParams) (*SocialResult, error) {
	authURL, err := s.oauth.GetAuthURL(ctx, p.Provider, handler.SafeRedirectPath(p.CallbackURL, "/"))
	if err != nil {
		return nil, toError(err)
	}
	return &SocialResult{Redirect: true, URL: authURL}, nil
}

// OAuthCallback completes the flow and returns where to send the browser:
// the callback URL bound to the state on success, ErrorCallbackURL with
// ?error=CODE on failure.
func (s *Server) OAuthCallback(ctx context.Context, w http.ResponseWriter, r *http.Request, p OAuthCallbackParams) string {
	if p.Error != "" {
		s.log.WarnContext(ctx, "provider returned an error",
			logger.Provider(p.Provider), logger.Event(p.Error), logger.Component("authserver"))
		return s.errorRedirect(p.Error)
	}

	res, err := s.oauth.Auth(ctx, p.Provider, p.Code, p.State)
	if err != nil {
		err = toError(err)
		if e, ok := AsError(err); ok {
			return s.errorRedirect(e.Code)
		}
		s.log.ErrorContext(ctx, "oauth callback failed",
			logger.Provider(p.Provider), logger.Error(err), logger.Component("authserver"))
		return s.errorRedirect("INTERNAL_ERROR")
	}

	if _, err := s.signIn(ctx, w, r, res.User); err != nil {
		if e, ok := AsError(err); ok {
			return s.errorRedirect(e.Code)
		}
		s.log.ErrorContext(ctx, "failed to sign in oauth user",
			logger.UserID(res.User.ID), logger.Error(err), logger.Component("authserver"))
		return s.errorRedirect("INTERNAL_ERROR")
	}
	return handler.SafeRedirectPath(res.CallbackURL, "/")
}

func (s *Server) errorRedirect(code string) string {
	return handler.SafeRedirectPath(s.cfg.ErrorCallbackURL, "/") + "?" + url.Values{"error": {code}}.Encode()
}
