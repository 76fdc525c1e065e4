// Package account serves the sign-in, password recovery, OTP and home
// pages on top of an AuthClient.
package account

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/authstarter/handler"
	"github.com/dmitrymomot/authstarter/internal/authserver"
	"github.com/dmitrymomot/authstarter/modules/account/views"
	"github.com/dmitrymomot/authstarter/pkg/auth"
	"github.com/dmitrymomot/authstarter/pkg/binder"
	"github.com/dmitrymomot/authstarter/pkg/cookie"
	"github.com/dmitrymomot/authstarter/pkg/logger"
	"github.com/dmitrymomot/authstarter/pkg/ratelimiter"
)

type Config struct {
	// Secret signs the resend cooldown cookie.
	Secret         string        `env:"AUTH_SECRET,required"`
	ResendCooldown time.Duration `env:"OTP_RESEND_COOLDOWN" envDefault:"60s"`
}

type Module struct {
	client       AuthClient
	cfg          Config
	log          *slog.Logger
	guard        *cooldownGuard
	tick         time.Duration
	limiter      ratelimiter.Limiter
	errorHandler handler.ErrorHandler[handler.Context]
}

type Option func(*Module)

func WithLogger(log *slog.Logger) Option {
	return func(m *Module) { m.log = log }
}

// WithTick sets the interval between streamed cooldown updates.
func WithTick(d time.Duration) Option {
	return func(m *Module) { m.tick = d }
}

func WithClock(now func() time.Time) Option {
	return func(m *Module) { m.guard.now = now }
}

// WithRateLimiter limits form posts per client IP. Keys match the auth API,
// so both surfaces draw from one bucket per IP.
func WithRateLimiter(l ratelimiter.Limiter) Option {
	return func(m *Module) { m.limiter = l }
}

func WithErrorHandler(h handler.ErrorHandler[handler.Context]) Option {
	return func(m *Module) { m.errorHandler = h }
}

func New(client AuthClient, cookies *cookie.Manager, cfg Config, opts ...Option) *Module {
	if cfg.ResendCooldown <= 0 {
		cfg.ResendCooldown = 60 * time.Second
	}
	m := &Module{
		client: client,
		cfg:    cfg,
		log:    logger.Discard(),
		tick:   time.Second,
		guard: &cooldownGuard{
			cookies:  cookies,
			secret:   cfg.Secret,
			duration: cfg.ResendCooldown,
			now:      time.Now,
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.errorHandler == nil {
		m.errorHandler = handler.NewErrorHandler(m.log, handler.ErrorHandlerConfig{
			ErrorPage:  views.ErrorPage,
			ErrorToast: views.ErrorToast,
		})
	}
	return m
}

// Routes returns the page router, meant to be mounted at the site root.
// Forms post regular HTML forms; DataStar requests get element patches.
func (m *Module) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(m.client.Middleware)

	r.Get("/", route(m, m.home))
	r.Get("/dashboard", route(m, m.dashboard))
	r.Get("/sign-in", route(m, m.signInPage, binder.Query()))
	r.Get("/forgot-password", route(m, m.forgotPasswordPage))
	r.Get("/reset-password", route(m, m.resetPasswordPage, binder.Query()))
	r.Get("/verify-otp", route(m, m.verifyOTPPage, binder.Query()))

	r.Group(func(r chi.Router) {
		if m.limiter != nil {
			r.Use(ratelimiter.Middleware(m.limiter, ratelimiter.ByClientIP(authserver.RateLimitPrefix), m.log))
		}

		r.Post("/sign-out", route(m, m.signOut))
		r.Post("/sign-in/password", route(m, m.signInPassword, binder.Form()))
		r.Post("/sign-in/google", route(m, m.signInGoogle))
		r.Post("/sign-in/magic-link", route(m, m.signInMagicLink, binder.Form()))
		r.Post("/sign-in/otp/send", route(m, m.sendSignInOTP, binder.Form()))
		r.Post("/sign-in/otp/verify", route(m, m.verifySignInOTP, binder.Form()))
		r.Post("/forgot-password", route(m, m.forgotPassword, binder.Form()))
		r.Post("/reset-password", route(m, m.resetPassword, binder.Query(), binder.Form()))
		r.Post("/verify-otp", route(m, m.verifyOTP, binder.Query(), binder.Form()))
		r.Post("/verify-otp/resend", route(m, m.resendOTP, binder.Form()))
	})

	return r
}

func route[R any](m *Module, h handler.HandlerFunc[handler.Context, R], binders ...handler.Bind) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders[handler.Context, R](binders...),
		handler.WithErrorHandler[handler.Context, R](m.errorHandler),
	)
}

func (m *Module) googleEnabled() bool {
	return slices.Contains(m.client.Providers(), auth.ProviderGoogle)
}
