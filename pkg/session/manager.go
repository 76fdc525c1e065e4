package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authstarter/pkg/clientip"
	"github.com/dmitrymomot/authstarter/pkg/cookie"
	"github.com/dmitrymomot/authstarter/pkg/logger"
)

const maxUserAgentLength = 512

// Manager handles the session life-cycle.
type Manager struct {
	store         Store
	transport     Transport
	config        Config
	cookieManager *cookie.Manager
	cookieOptions []cookie.Option
	log           *slog.Logger
	now           func() time.Time
	activityChan  chan activityUpdate
	done          chan struct{}
	stopped       chan struct{}
}

type activityUpdate struct {
	token string
	time  time.Time
}

// New creates a manager. Without a store it falls back to a MemoryStore.
// It panics when neither a transport nor a cookie manager is configured.
func New(opts ...Option) *Manager {
	m := &Manager{
		config:       DefaultConfig(),
		log:          logger.Discard(),
		now:          time.Now,
		activityChan: make(chan activityUpdate, 1000),
		done:         make(chan struct{}),
		stopped:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.store == nil {
		m.store = NewMemoryStore(m.config.CleanupInterval)
	}
	if m.transport == nil {
		if m.cookieManager == nil {
			panic("session: cookie manager is required when using default cookie transport")
		}
		m.transport = NewCookieTransport(m.cookieManager, m.config.CookieName, m.cookieOptions...)
	}

	go m.activityWorker()
	return m
}

// Issue creates a session for userID and sends its token. Any session the
// request already carries is revoked, so a sign-in always rotates the token.
func (m *Manager) Issue(ctx context.Context, w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*Session, error) {
	if old, err := m.transport.GetToken(r); err == nil {
		_ = m.store.Delete(ctx, old)
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := m.now()
	session := &Session{
		ID:             uuid.New(),
		Token:          token,
		UserID:         userID,
		IPAddress:      clientip.Key(r),
		UserAgent:      truncate(r.UserAgent(), maxUserAgentLength),
		Data:           make(map[string]any),
		ExpiresAt:      m.expiry(now, now),
		LastActivityAt: now,
		CreatedAt:      now,
	}
	if err := m.store.Create(ctx, session); err != nil {
		return nil, err
	}
	if err := m.transport.SetToken(w, session.Token, session.ExpiresAt.Sub(now)); err != nil {
		_ = m.store.Delete(ctx, session.Token)
		return nil, err
	}

	m.log.DebugContext(ctx, "session issued", logger.UserID(userID), slog.String("session_id", session.ID.String()))
	return session, nil
}

// Get loads the session the request carries without refreshing it.
func (m *Manager) Get(ctx context.Context, r *http.Request) (*Session, error) {
	token, err := m.transport.GetToken(r)
	if err != nil {
		return nil, err
	}
	return m.load(ctx, token)
}

// Token returns the raw session token the request carries.
func (m *Manager) Token(r *http.Request) (string, error) {
	return m.transport.GetToken(r)
}

// GetByToken loads a session by its raw token.
func (m *Manager) GetByToken(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	return m.load(ctx, token)
}

func (m *Manager) load(ctx context.Context, token string) (*Session, error) {
	session, err := m.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(m.now()) {
		return nil, ErrSessionExpired
	}
	return session, nil
}

// Resolve loads the request's session and keeps it alive: the expiry is
// extended once the current window is older than UpdateAge, and activity is
// recorded at most once per ActivityUpdateThreshold. A token that no longer
// maps to a session is cleared from the client.
func (m *Manager) Resolve(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Session, error) {
	session, err := m.Get(ctx, r)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrSessionNotFound) && hasToken(m.transport, r) {
			_ = m.transport.ClearToken(w)
		}
		return nil, err
	}

	now := m.now()
	if m.shouldRefresh(session, now) {
		session.ExpiresAt = m.expiry(session.CreatedAt, now)
		session.LastActivityAt = now
		if err := m.store.Update(ctx, session); err != nil {
			m.log.WarnContext(ctx, "failed to refresh session", logger.Error(err))
			return session, nil
		}
		if err := m.transport.SetToken(w, session.Token, session.ExpiresAt.Sub(now)); err != nil {
			m.log.WarnContext(ctx, "failed to resend session token", logger.Error(err))
		}
		return session, nil
	}

	if now.Sub(session.LastActivityAt) >= m.config.ActivityUpdateThreshold {
		m.queueActivityUpdate(session.Token, now)
	}
	return session, nil
}

func hasToken(t Transport, r *http.Request) bool {
	_, err := t.GetToken(r)
	return err == nil
}

// Destroy revokes the request's session and clears the token.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if token, err := m.transport.GetToken(r); err == nil {
		if err := m.store.Delete(ctx, token); err != nil {
			return err
		}
	}
	return m.transport.ClearToken(w)
}

// DestroyUser revokes every session of userID.
func (m *Manager) DestroyUser(ctx context.Context, userID uuid.UUID) error {
	if err := m.store.DeleteByUserID(ctx, userID); err != nil {
		return err
	}
	m.log.InfoContext(ctx, "user sessions revoked", logger.UserID(userID))
	return nil
}

// Set stores a value in the request's session.
func (m *Manager) Set(ctx context.Context, r *http.Request, key string, value any) error {
	session, err := m.Get(ctx, r)
	if err != nil {
		return err
	}
	session.Set(key, value)
	return m.store.Update(ctx, session)
}

func (m *Manager) Config() Config { return m.config }

// shouldRefresh reports whether the expiry window started more than
// UpdateAge ago.
func (m *Manager) shouldRefresh(session *Session, now time.Time) bool {
	if m.config.UpdateAge <= 0 {
		return false
	}
	windowStart := session.ExpiresAt.Add(-m.config.ExpiresIn)
	return now.Sub(windowStart) >= m.config.UpdateAge && session.ExpiresAt.Before(m.expiry(session.CreatedAt, now))
}

// expiry is the earlier of now+ExpiresIn and createdAt+MaxLifetime.
func (m *Manager) expiry(createdAt, now time.Time) time.Time {
	idle := now.Add(m.config.ExpiresIn)
	if m.config.MaxLifetime <= 0 {
		return idle
	}
	if hard := createdAt.Add(m.config.MaxLifetime); hard.Before(idle) {
		return hard
	}
	return idle
}

func (m *Manager) queueActivityUpdate(token string, at time.Time) {
	select {
	case m.activityChan <- activityUpdate{token: token, time: at}:
	default:
		// full: drop the update rather than block the request
	}
}

func (m *Manager) activityWorker() {
	defer close(m.stopped)
	for {
		select {
		case update := <-m.activityChan:
			m.applyActivity(update)
		case <-m.done:
			for {
				select {
				case update := <-m.activityChan:
					m.applyActivity(update)
				default:
					return
				}
			}
		}
	}
}

func (m *Manager) applyActivity(u activityUpdate) {
	if err := m.store.UpdateActivity(context.Background(), u.token, u.time); err != nil && !errors.Is(err, ErrSessionNotFound) {
		m.log.Warn("failed to update session activity", logger.Error(err))
	}
}

// Close drains pending activity updates and stops the worker.
func (m *Manager) Close() error {
	select {
	case <-m.done:
	default:
		close(m.done)
	}
	<-m.stopped
	return nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
