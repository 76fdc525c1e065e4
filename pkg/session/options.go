package session

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/authstarter/pkg/cookie"
)

type Option func(*Manager)

func WithStore(store Store) Option {
	return func(m *Manager) {
		m.store = store
	}
}

func WithTransport(transport Transport) Option {
	return func(m *Manager) {
		m.transport = transport
	}
}

func WithConfig(config Config) Option {
	return func(m *Manager) {
		m.config = config
	}
}

func WithCookieName(name string) Option {
	return func(m *Manager) {
		m.config.CookieName = name
	}
}

// WithExpiry sets the sliding lifetime and the hard cap.
func WithExpiry(expiresIn, maxLifetime time.Duration) Option {
	return func(m *Manager) {
		m.config.ExpiresIn = expiresIn
		m.config.MaxLifetime = maxLifetime
	}
}

func WithUpdateAge(age time.Duration) Option {
	return func(m *Manager) {
		m.config.UpdateAge = age
	}
}

func WithActivityUpdateThreshold(threshold time.Duration) Option {
	return func(m *Manager) {
		m.config.ActivityUpdateThreshold = threshold
	}
}

// WithCookieManager enables the default encrypted cookie transport.
func WithCookieManager(cookieMgr *cookie.Manager, opts ...cookie.Option) Option {
	return func(m *Manager) {
		m.cookieManager = cookieMgr
		m.cookieOptions = opts
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}
