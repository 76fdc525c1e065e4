package authserver

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/authstarter/handler"
	"github.com/dmitrymomot/authstarter/pkg/binder"
	"github.com/dmitrymomot/authstarter/pkg/ratelimiter"
)

// RateLimitPrefix prefixes per-IP rate limit keys of auth POST routes.
const RateLimitPrefix = "auth:"

// Routes returns the auth API, meant to be mounted at Config.BasePath.
// GET routes serve links opened from e-mails and the OAuth redirect; POST
// routes take JSON or form bodies and answer with JSON.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.Middleware)

	r.Get("/get-session", handler.Wrap(s.handleGetSession))
	r.Get("/verify-email", handler.Wrap(s.handleVerifyEmail,
		handler.WithBinders[handler.Context, VerifyTokenParams](binder.Query()),
	))
	r.Get("/magic-link/verify", handler.Wrap(s.handleVerifyMagicLink,
		handler.WithBinders[handler.Context, VerifyTokenParams](binder.Query()),
	))
	r.Get("/reset-password/{token}", handler.Wrap(s.handleResetPasswordLink,
		handler.WithBinders[handler.Context, resetLinkParams](binder.Path(), binder.Query()),
	))
	r.Get("/sign-in/social", handler.Wrap(s.handleSocialRedirect,
		handler.WithBinders[handler.Context, SignInSocialParams](binder.Query()),
	))
	r.Get("/callback/{provider}", handler.Wrap(s.handleOAuthCallback,
		handler.WithBinders[handler.Context, OAuthCallbackParams](binder.Path(), binder.Query()),
	))

	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(ratelimiter.Middleware(s.limiter, ratelimiter.ByClientIP(RateLimitPrefix), s.log))
		}

		r.Post("/sign-up/email", jsonRoute(s.handleSignUpEmail))
		r.Post("/sign-in/email", jsonRoute(s.handleSignInEmail))
		r.Post("/sign-in/social", jsonRoute(s.handleSignInSocial))
		r.Post("/sign-in/magic-link", jsonRoute(s.handleSignInMagicLink))
		r.Post("/sign-in/email-otp", jsonRoute(s.handleSignInEmailOTP))
		r.Post("/email-otp/send-verification-otp", jsonRoute(s.handleSendVerificationOTP))
		r.Post("/email-otp/verify-email", jsonRoute(s.handleVerifyEmailOTP))
		r.Post("/email-otp/reset-password", jsonRoute(s.handleResetPasswordEmailOTP))
		r.Post("/forget-password", jsonRoute(s.handleForgetPassword))
		r.Post("/reset-password", jsonRoute(s.handleResetPassword))
		r.Post("/send-verification-email", jsonRoute(s.handleSendVerificationEmail))
	})
	r.Post("/sign-out", handler.Wrap(s.handleSignOut))

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.freshSession)
		r.Post("/list-users", jsonRoute(s.handleListUsers))
		r.Post("/set-role", jsonRoute(s.handleSetRole))
		r.Post("/ban-user", jsonRoute(s.handleBanUser))
		r.Post("/unban-user", jsonRoute(s.handleUnbanUser))
		r.Post("/revoke-user-sessions", jsonRoute(s.handleRevokeUserSessions))
		r.Post("/remove-user", jsonRoute(s.handleRemoveUser))
	})

	return r
}

// jsonRoute binds a JSON or form body into R.
func jsonRoute[R any](h handler.HandlerFunc[handler.Context, R]) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders[handler.Context, R](binder.JSON(), binder.Form()),
		handler.WithErrorHandler[handler.Context, R](bindErrorHandler),
	)
}

func bindErrorHandler(ctx handler.Context, err error) {
	_ = errorJSON(newError(http.StatusBadRequest, "INVALID_REQUEST_BODY", "Invalid request body")).
		Render(ctx.ResponseWriter(), ctx.Request())
}

func errorJSON(e *Error) handler.Response {
	return handler.JSON(handler.JSONResponse{
		Error: &handler.ErrorDetail{Code: e.Code, Message: e.Message},
	}, handler.WithJSONStatus(e.Status))
}

// respond renders v, an *Error with its status, or a 500 for anything
// else.
func respond[T any](v T, err error) handler.Response {
	if err != nil {
		if e, ok := AsError(err); ok {
			return errorJSON(e)
		}
		return handler.JSONError(err)
	}
	return handler.JSON(v)
}

// withQuery appends key=value to a same-origin path.
func withQuery(path, key, value string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + url.Values{key: {value}}.Encode()
}

func (s *Server) handleGetSession(ctx handler.Context, _ struct{}) handler.Response {
	return respond(s.GetSession(ctx, ctx.ResponseWriter(), ctx.Request()))
}

func (s *Server) handleSignUpEmail(ctx handler.Context, p SignUpEmailParams) handler.Response {
	return respond(s.SignUpEmail(ctx, ctx.ResponseWriter(), ctx.Request(), p))
}

func (s *Server) handleSignInEmail(ctx handler.Context, p SignInEmailParams) handler.Response {
	return respond(s.SignInEmail(ctx, ctx.ResponseWriter(), ctx.Request(), p))
}

func (s *Server) handleSignInSocial(ctx handler.Context, p SignInSocialParams) handler.Response {
	return respond(s.SignInSocial(ctx, p))
}

func (s *Server) handleSocialRedirect(ctx handler.Context, p SignInSocialParams) handler.Response {
	res, err := s.SignInSocial(ctx, p)
	if err != nil {
		if e, ok := AsError(err); ok {
			return handler.Redirect(s.errorRedirect(e.Code))
		}
		return handler.JSONError(err)
	}
	return handler.Redirect(res.URL)
}

func (s *Server) handleOAuthCallback(ctx handler.Context, p OAuthCallbackParams) handler.Response {
	return handler.Redirect(s.OAuthCallback(ctx, ctx.ResponseWriter(), ctx.Request(), p))
}

func (s *Server) handleSignInMagicLink(ctx handler.Context, p SignInMagicLinkParams) handler.Response {
	return respond(s.SignInMagicLink(ctx, p))
}

func (s *Server) handleVerifyMagicLink(ctx handler.Context, p VerifyTokenParams) handler.Response {
	res, err := s.VerifyMagicLink(ctx, ctx.ResponseWriter(), ctx.Request(), p)
	return s.linkRedirect(res, err, p.CallbackURL)
}

func (s *Server) handleVerifyEmail(ctx handler.Context, p VerifyTokenParams) handler.Response {
	res, err := s.VerifyEmail(ctx, ctx.ResponseWriter(), ctx.Request(), p)
	return s.linkRedirect(res, err, p.CallbackURL)
}

// linkRedirect finishes a flow started from an e-mail link. Failures go
// back to the callback with ?error=CODE, or render as JSON without one.
func (s *Server) linkRedirect(res *AuthResult, err error, callbackURL string) handler.Response {
	if err != nil {
		e, ok := AsError(err)
		switch {
		case ok && callbackURL != "":
			return handler.Redirect(withQuery(handler.SafeRedirectPath(callbackURL, "/"), "error", e.Code))
		case ok:
			return errorJSON(e)
		default:
			return handler.JSONError(err)
		}
	}
	return handler.Redirect(handler.SafeRedirectPath(res.URL, "/"))
}

type resetLinkParams struct {
	Token       string `path:"token"`
	CallbackURL string `query:"callbackURL"`
}

func (s *Server) handleResetPasswordLink(ctx handler.Context, p resetLinkParams) handler.Response {
	target := handler.SafeRedirectPath(p.CallbackURL, "/reset-password")
	if err := s.CheckResetToken(ctx, p.Token); err != nil {
		if _, ok := AsError(err); !ok {
			return handler.JSONError(err)
		}
		return handler.Redirect(withQuery(target, "error", CodeInvalidToken))
	}
	return handler.Redirect(withQuery(target, "token", p.Token))
}

func (s *Server) handleSendVerificationOTP(ctx handler.Context, p SendVerificationOTPParams) handler.Response {
	return respond(s.SendVerificationOTP(ctx, p))
}

func (s *Server) handleSignInEmailOTP(ctx handler.Context, p EmailOTPParams) handler.Response {
	return respond(s.SignInEmailOTP(ctx, ctx.ResponseWriter(), ctx.Request(), p))
}

func (s *Server) handleVerifyEmailOTP(ctx handler.Context, p EmailOTPParams) handler.Response {
	return respond(s.VerifyEmailOTP(ctx, ctx.ResponseWriter(), ctx.Request(), p))
}

func (s *Server) handleResetPasswordEmailOTP(ctx handler.Context, p ResetPasswordEmailOTPParams) handler.Response {
	return respond(s.ResetPasswordEmailOTP(ctx, p))
}

func (s *Server) handleForgetPassword(ctx handler.Context, p ForgetPasswordParams) handler.Response {
	return respond(s.ForgetPassword(ctx, p))
}

func (s *Server) handleResetPassword(ctx handler.Context, p ResetPasswordParams) handler.Response {
	return respond(s.ResetPassword(ctx, p))
}

func (s *Server) handleSendVerificationEmail(ctx handler.Context, p SendVerificationEmailParams) handler.Response {
	return respond(s.SendVerificationEmail(ctx, p))
}

func (s *Server) handleSignOut(ctx handler.Context, _ struct{}) handler.Response {
	return respond(s.SignOut(ctx, ctx.ResponseWriter(), ctx.Request()))
}

func (s *Server) handleListUsers(ctx handler.Context, p ListUsersParams) handler.Response {
	return respond(s.ListUsers(ctx, p))
}

func (s *Server) handleSetRole(ctx handler.Context, p SetRoleParams) handler.Response {
	return respond(s.SetRole(ctx, p))
}

func (s *Server) handleBanUser(ctx handler.Context, p BanUserParams) handler.Response {
	return respond(s.BanUser(ctx, p))
}

func (s *Server) handleUnbanUser(ctx handler.Context, p UserIDParams) handler.Response {
	return respond(s.UnbanUser(ctx, p))
}

func (s *Server) handleRevokeUserSessions(ctx handler.Context, p UserIDParams) handler.Response {
	return respond(s.RevokeUserSessions(ctx, p))
}

func (s *Server) handleRemoveUser(ctx handler.Context, p UserIDParams) handler.Response {
	return respond(s.RemoveUser(ctx, p))
}
