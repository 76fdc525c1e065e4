// Command server runs the auth API under AUTH_BASE_PATH and the account
// pages at the root.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/authstarter/internal/authserver"
	"github.com/dmitrymomot/authstarter/internal/db"
	"github.com/dmitrymomot/authstarter/modules/account"
	"github.com/dmitrymomot/authstarter/pkg/auth"
	"github.com/dmitrymomot/authstarter/pkg/clientip"
	"github.com/dmitrymomot/authstarter/pkg/config"
	"github.com/dmitrymomot/authstarter/pkg/cookie"
	"github.com/dmitrymomot/authstarter/pkg/email"
	"github.com/dmitrymomot/authstarter/pkg/environment"
	"github.com/dmitrymomot/authstarter/pkg/httpserver"
	"github.com/dmitrymomot/authstarter/pkg/logger"
	"github.com/dmitrymomot/authstarter/pkg/pg"
	"github.com/dmitrymomot/authstarter/pkg/ratelimiter"
	"github.com/dmitrymomot/authstarter/pkg/redis"
	"github.com/dmitrymomot/authstarter/pkg/requestid"
	"github.com/dmitrymomot/authstarter/pkg/session"
)

type appConfig struct {
	Env       string `env:"APP_ENV" envDefault:"development"`
	Service   string `env:"APP_NAME" envDefault:"authstarter"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT"`

	CleanupInterval time.Duration `env:"DB_CLEANUP_INTERVAL" envDefault:"1h"`

	Auth        authserver.Config
	Account     account.Config
	HTTP        httpserver.Config
	Postgres    pg.Config
	Redis       redis.Config
	Email       email.Config
	Cookie      cookie.Config
	Session     session.Config
	RateLimit   ratelimiter.Config
	RateLimitOn bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	env := environment.Parse(cfg.Env)
	log := logger.New(
		logger.WithEnvironment(env, cfg.Service),
		logger.WithLevelName(cfg.LogLevel),
		logger.WithFormat(logger.Format(cfg.LogFormat)),
		logger.WithContextExtractors(requestid.LoggerExtractor(), environment.LoggerExtractor()),
	)

	if err := run(context.Background(), cfg, env, log); err != nil {
		log.Error("server stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, env environment.Environment, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool, err := pg.Connect(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, db.Migrations, db.MigrationsDir, cfg.Postgres, log); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	checks := []httpserver.Check{{Name: "postgres", Fn: pg.Healthcheck(pool)}}

	var rdb *goredis.Client
	if cfg.Auth.SecondaryStorage == authserver.StorageRedis {
		if rdb, err = redis.Connect(ctx, cfg.Redis); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		checks = append(checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(rdb)})
	}

	stores, err := newStores(cfg, pool, rdb)
	if err != nil {
		return err
	}
	defer stores.close()

	sender, err := email.New(cfg.Email, log)
	if err != nil {
		return fmt.Errorf("email: %w", err)
	}

	// Production cookies are Secure and carry the __Secure- prefix.
	cookies, err := cookie.NewFromConfig(cfg.Cookie,
		cookie.WithSecure(cfg.Cookie.Secure || env.IsProduction()),
		cookie.WithSecurePrefix(env.IsProduction()),
	)
	if err != nil {
		return fmt.Errorf("cookies: %w", err)
	}

	sessions := session.NewFromConfig(cfg.Session,
		session.WithStore(stores.sessions),
		session.WithCookieManager(cookies),
		session.WithLogger(log),
	)
	defer sessions.Close()

	opts := []authserver.Option{
		authserver.WithEmailSender(sender),
		authserver.WithLogger(log),
	}
	uiOpts := []account.Option{account.WithLogger(log)}
	if cfg.RateLimitOn {
		limiter, err := ratelimiter.NewBucket(stores.limits, cfg.RateLimit)
		if err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
		opts = append(opts, authserver.WithRateLimiter(limiter))
		uiOpts = append(uiOpts, account.WithRateLimiter(limiter))
	}

	srv, err := authserver.New(cfg.Auth, db.NewUserStore(pool), stores.verifications, sessions, cookies, opts...)
	if err != nil {
		return err
	}

	ui := account.New(srv, cookies, cfg.Account, uiOpts...)

	r := chi.NewRouter()
	r.Use(requestid.Middleware, clientip.Middleware, environment.Middleware(env))
	r.Get("/health/live", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(log, checks...))
	r.Mount(cfg.Auth.BasePath, srv.Routes())
	r.Mount("/", ui.Routes())

	go db.RunCleanup(ctx, cfg.CleanupInterval, log, stores.expirers...)

	log.InfoContext(ctx, "starting",
		slog.String("storage", cfg.Auth.SecondaryStorage),
		slog.Bool("google", cfg.Auth.Google.Enabled()),
	)
	return httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log)).Run(ctx, r)
}

type backends struct {
	sessions      session.Store
	verifications auth.VerificationStore
	limits        ratelimiter.Store
	expirers      []db.Expirer
	closers       []func()
}

func (s *backends) close() {
	for _, c := range s.closers {
		c()
	}
}

// newStores picks session and verification storage for the configured
// backend. Users always live in Postgres.
func newStores(cfg appConfig, pool *pgxpool.Pool, rdb *goredis.Client) (*backends, error) {
	s := &backends{}
	switch cfg.Auth.SecondaryStorage {
	case authserver.StorageDatabase:
		sess, ver := db.NewSessionStore(pool), db.NewVerificationStore(pool)
		s.sessions, s.verifications = sess, ver
		s.expirers = []db.Expirer{sess, ver}
	case authserver.StorageRedis:
		s.sessions = session.NewRedisStore(rdb, "session:")
		s.verifications = auth.NewRedisVerificationStore(rdb, "verification:")
		s.limits = ratelimiter.NewRedisStore(rdb, "ratelimit:")
	case authserver.StorageMemory:
		mem := session.NewMemoryStore(cfg.Session.CleanupInterval)
		s.sessions = mem
		s.verifications = auth.NewMemoryVerificationStore()
		s.closers = append(s.closers, func() { _ = mem.Close() })
	default:
		return nil, errors.New("unknown secondary storage " + cfg.Auth.SecondaryStorage)
	}

	if s.limits == nil {
		mem := ratelimiter.NewMemoryStore(time.Minute)
		s.limits = mem
		s.closers = append(s.closers, mem.Close)
	}
	return s, nil
}
