package authserver

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/authstarter/pkg/auth"
	"github.com/dmitrymomot/authstarter/pkg/cookie"
	"github.com/dmitrymomot/authstarter/pkg/email"
	"github.com/dmitrymomot/authstarter/pkg/jwt"
	"github.com/dmitrymomot/authstarter/pkg/logger"
	"github.com/dmitrymomot/authstarter/pkg/ratelimiter"
	"github.com/dmitrymomot/authstarter/pkg/session"
)

// Server binds the auth services to storage, sessions and e-mail. It is
// the in-process counterpart of the /api/auth routes: both call the same
// methods.
type Server struct {
	cfg      Config
	sessions *session.Manager
	cookies  *cookie.Manager
	storage  auth.Storage
	signer   *jwt.Service
	notifier *Notifier
	limiter  ratelimiter.Limiter
	log      *slog.Logger

	passwords    auth.PasswordAuthenticator
	verification *auth.VerificationService
	magicLinks   *auth.MagicLinkService
	otp          *auth.OTPService
	oauth        *auth.OAuthService
	admin        *auth.AdminService

	now func() time.Time
}

type options struct {
	sender     email.EmailSender
	log        *slog.Logger
	limiter    ratelimiter.Limiter
	providers  []auth.ProviderAdapter
	bcryptCost int
	now        func() time.Time
}

type Option func(*options)

// WithEmailSender sets the outgoing mail transport. Without it mail is
// only logged.
func WithEmailSender(s email.EmailSender) Option {
	return func(o *options) { o.sender = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithRateLimiter limits POST routes per client IP.
func WithRateLimiter(l ratelimiter.Limiter) Option {
	return func(o *options) { o.limiter = l }
}

// WithProvider registers an OAuth provider. The Google provider is
// registered from Config when its credentials are set.
func WithProvider(p auth.ProviderAdapter) Option {
	return func(o *options) { o.providers = append(o.providers, p) }
}

func WithBcryptCost(cost int) Option {
	return func(o *options) { o.bcryptCost = cost }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func New(cfg Config, storage auth.Storage, verifications auth.VerificationStore, sessions *session.Manager, cookies *cookie.Manager, opts ...Option) (*Server, error) {
	if storage == nil || verifications == nil {
		return nil, errors.New("authserver: storage and verification store are required")
	}
	if sessions == nil || cookies == nil {
		return nil, errors.New("authserver: session and cookie managers are required")
	}

	o := &options{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.Discard()
	}
	if o.sender == nil {
		o.sender = email.NewLogSender(o.log)
	}

	signer, err := jwt.NewFromString(cfg.Secret, jwt.WithIssuer(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("authserver: signer: %w", err)
	}

	passwordOpts := []auth.PasswordOption{
		auth.WithResetTokenTTL(cfg.ResetExpiresIn),
		auth.WithRequireEmailVerification(cfg.RequireEmailVerification),
		auth.WithPasswordLogger(o.log),
	}
	if o.bcryptCost > 0 {
		passwordOpts = append(passwordOpts, auth.WithBcryptCost(o.bcryptCost))
	}
	passwords := auth.NewPasswordService(storage, verifications, passwordOpts...)

	oauthOpts := []auth.OAuthOption{auth.WithOAuthLogger(o.log)}
	if cfg.Google.Enabled() {
		google := cfg.Google
		google.RedirectURL = cfg.GoogleRedirectURL()
		oauthOpts = append(oauthOpts, auth.WithProvider(auth.NewGoogleAdapter(google)))
	}
	for _, p := range o.providers {
		oauthOpts = append(oauthOpts, auth.WithProvider(p))
	}

	s := &Server{
		cfg:       cfg,
		sessions:  sessions,
		cookies:   cookies,
		storage:   storage,
		signer:    signer,
		notifier:  NewNotifier(o.sender, o.log),
		limiter:   o.limiter,
		log:       o.log,
		passwords: passwords,
		verification: auth.NewVerificationService(storage, signer,
			auth.WithVerificationTTL(cfg.VerificationExpiresIn)),
		magicLinks: auth.NewMagicLinkService(storage, verifications,
			auth.WithMagicLinkTTL(cfg.MagicLinkExpiresIn),
			auth.WithMagicLinkLogger(o.log)),
		otp: auth.NewOTPService(storage, verifications,
			auth.WithOTPLength(cfg.OTPLength),
			auth.WithOTPExpiresIn(cfg.OTPExpiresIn),
			auth.WithOTPAllowedAttempts(cfg.OTPAllowedAttempts),
			auth.WithOTPPasswords(passwords),
			auth.WithOTPLogger(o.log)),
		oauth: auth.NewOAuthService(storage, verifications, oauthOpts...),
		admin: auth.NewAdminService(storage, o.log),
		now:   o.now,
	}
	return s, nil
}

func (s *Server) Config() Config { return s.cfg }

// Providers lists the enabled OAuth providers.
func (s *Server) Providers() []string { return s.oauth.Providers() }
