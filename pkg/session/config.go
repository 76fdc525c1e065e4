package session

import "time"

type Config struct {
	// CookieName is the session token cookie. The cookie manager adds the
	// __Secure- prefix in production.
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"session_token"`

	// ExpiresIn is the sliding lifetime of a session.
	ExpiresIn time.Duration `env:"SESSION_EXPIRES_IN" envDefault:"168h"`

	// MaxLifetime caps a session regardless of activity.
	MaxLifetime time.Duration `env:"SESSION_MAX_LIFETIME" envDefault:"720h"`

	// UpdateAge is how old the current expiry window must be before
	// Resolve extends it.
	UpdateAge time.Duration `env:"SESSION_UPDATE_AGE" envDefault:"24h"`

	ActivityUpdateThreshold time.Duration `env:"SESSION_ACTIVITY_UPDATE_THRESHOLD" envDefault:"5m"`

	// CleanupInterval for the in-memory store (0 disables).
	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"5m"`
}

func DefaultConfig() Config {
	return Config{
		CookieName:              "session_token",
		ExpiresIn:               7 * 24 * time.Hour,
		MaxLifetime:             30 * 24 * time.Hour,
		UpdateAge:               24 * time.Hour,
		ActivityUpdateThreshold: 5 * time.Minute,
		CleanupInterval:         5 * time.Minute,
	}
}

// NewFromConfig creates a Manager from cfg. A cookie manager or a custom
// transport must be supplied through opts.
func NewFromConfig(cfg Config, opts ...Option) *Manager {
	return New(append([]Option{WithConfig(cfg)}, opts...)...)
}
