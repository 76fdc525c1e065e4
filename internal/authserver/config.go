package authserver

import (
	"strings"
	"time"

	"github.com/dmitrymomot/authstarter/pkg/auth"
)

// Secondary storage backends for sessions and verification values.
const (
	StorageDatabase = "database"
	StorageRedis    = "redis"
	StorageMemory   = "memory"
)

type Config struct {
	// BaseURL is the public origin used to build links sent by e-mail.
	BaseURL  string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`
	BasePath string `env:"AUTH_BASE_PATH" envDefault:"/api/auth"`

	// Secret signs verification tokens and the session cookie cache.
	Secret string `env:"AUTH_SECRET,required"`

	Google auth.GoogleOAuthConfig

	RequireEmailVerification    bool `env:"AUTH_REQUIRE_EMAIL_VERIFICATION" envDefault:"true"`
	SendVerificationOnSignUp    bool `env:"AUTH_SEND_VERIFICATION_ON_SIGN_UP" envDefault:"true"`
	AutoSignInAfterVerification bool `env:"AUTH_AUTO_SIGN_IN_AFTER_VERIFICATION" envDefault:"true"`

	OTPLength          int           `env:"AUTH_OTP_LENGTH" envDefault:"6"`
	OTPExpiresIn       time.Duration `env:"AUTH_OTP_EXPIRES_IN" envDefault:"600s"`
	OTPAllowedAttempts int           `env:"AUTH_OTP_ALLOWED_ATTEMPTS" envDefault:"3"`

	MagicLinkExpiresIn    time.Duration `env:"AUTH_MAGIC_LINK_EXPIRES_IN" envDefault:"15m"`
	VerificationExpiresIn time.Duration `env:"AUTH_VERIFICATION_EXPIRES_IN" envDefault:"24h"`
	ResetExpiresIn        time.Duration `env:"AUTH_RESET_EXPIRES_IN" envDefault:"1h"`

	// CookieCacheMaxAge enables a signed session cache cookie and bounds how
	// stale it may be. A cached session outlives store revocation until it
	// expires. Zero disables the cache.
	CookieCacheMaxAge time.Duration `env:"AUTH_COOKIE_CACHE_MAX_AGE" envDefault:"0s"`
	CookieCacheName   string        `env:"AUTH_COOKIE_CACHE_NAME" envDefault:"session_data"`

	// ErrorCallbackURL receives ?error=CODE when an OAuth callback fails.
	ErrorCallbackURL string `env:"AUTH_ERROR_CALLBACK_URL" envDefault:"/sign-in"`

	SecondaryStorage string `env:"AUTH_SECONDARY_STORAGE" envDefault:"database"`
}

// DefaultConfig mirrors the env defaults. Secret is left empty.
func DefaultConfig() Config {
	return Config{
		BaseURL:                     "http://localhost:8080",
		BasePath:                    "/api/auth",
		RequireEmailVerification:    true,
		SendVerificationOnSignUp:    true,
		AutoSignInAfterVerification: true,
		OTPLength:                   6,
		OTPExpiresIn:                600 * time.Second,
		OTPAllowedAttempts:          3,
		MagicLinkExpiresIn:          15 * time.Minute,
		VerificationExpiresIn:       24 * time.Hour,
		ResetExpiresIn:              time.Hour,
		CookieCacheName:             "session_data",
		ErrorCallbackURL:            "/sign-in",
		SecondaryStorage:            StorageDatabase,
	}
}

// GoogleRedirectURL is the configured redirect URL or the default
// callback route under BaseURL.
func (c Config) GoogleRedirectURL() string {
	if c.Google.RedirectURL != "" {
		return c.Google.RedirectURL
	}
	return c.endpoint("/callback/" + auth.ProviderGoogle)
}

func (c Config) endpoint(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + c.BasePath + path
}
