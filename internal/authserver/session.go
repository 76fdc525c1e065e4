package authserver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authstarter/pkg/auth"
	"github.com/dmitrymomot/authstarter/pkg/cookie"
	"github.com/dmitrymomot/authstarter/pkg/jwt"
	"github.com/dmitrymomot/authstarter/pkg/logger"
	"github.com/dmitrymomot/authstarter/pkg/session"
)

// SessionInfo is the client view of a session. The token never leaves
// its cookie.
type SessionInfo struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SessionData is what GetSession returns for a signed-in request.
type SessionData struct {
	Session SessionInfo `json:"session"`
	User    *auth.User  `json:"user"`
}

func newSessionInfo(s *session.Session) SessionInfo {
	return SessionInfo{
		ID:        s.ID,
		UserID:    s.UserID,
		IPAddress: s.IPAddress,
		UserAgent: s.UserAgent,
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.LastActivityAt,
	}
}

type cacheClaims struct {
	SessionData
	// TokenHash ties the cache to the session cookie it was issued with.
	TokenHash string `json:"th"`
	jwt.RegisteredClaims
}

type sessionDataKey struct{}

// FromContext returns the session data stored by Middleware.
func FromContext(ctx context.Context) (*SessionData, bool) {
	d, ok := ctx.Value(sessionDataKey{}).(*SessionData)
	return d, ok && d != nil
}

func withSessionData(ctx context.Context, d *SessionData) context.Context {
	ctx = context.WithValue(ctx, sessionDataKey{}, d)
	return auth.WithUser(ctx, d.User)
}

// GetSession returns the request's session and user, or nil when the
// request is not signed in. When the cookie cache is enabled a valid cache
// is trusted for up to CookieCacheMaxAge; otherwise the session is
// resolved from the store, refreshed and cached again.
func (s *Server) GetSession(ctx context.Context, w http.ResponseWriter, r *http.Request) (*SessionData, error) {
	if d, ok := FromContext(ctx); ok {
		return d, nil
	}
	return s.loadSession(ctx, w, r, true)
}

func (s *Server) loadSession(ctx context.Context, w http.ResponseWriter, r *http.Request, useCache bool) (*SessionData, error) {
	token, err := s.sessions.Token(r)
	if err != nil {
		s.clearCache(w, r)
		return nil, nil
	}
	if useCache {
		if d := s.readCache(r, token); d != nil {
			return d, nil
		}
	}

	sess, err := s.sessions.Resolve(ctx, w, r)
	if err != nil {
		s.clearCache(w, r)
		if errors.Is(err, session.ErrSessionNotFound) || errors.Is(err, session.ErrSessionExpired) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	user, err := s.storage.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			_ = s.sessions.Destroy(ctx, w, r)
			s.clearCache(w, r)
			return nil, nil
		}
		return nil, fmt.Errorf("load session user: %w", err)
	}
	if user.IsBanned(s.now()) {
		if err := s.sessions.DestroyUser(ctx, user.ID); err != nil {
			s.log.WarnContext(ctx, "failed to revoke banned user sessions", logger.UserID(user.ID), logger.Error(err))
		}
		_ = s.sessions.Destroy(ctx, w, r)
		s.clearCache(w, r)
		return nil, nil
	}

	d := &SessionData{Session: newSessionInfo(sess), User: user}
	s.writeCache(ctx, w, d, sess.Token)
	return d, nil
}

// SignOut revokes the request's session and clears both cookies.
func (s *Server) SignOut(ctx context.Context, w http.ResponseWriter, r *http.Request) (*StatusResult, error) {
	s.clearCache(w, r)
	if err := s.sessions.Destroy(ctx, w, r); err != nil {
		return nil, fmt.Errorf("destroy session: %w", err)
	}
	return &StatusResult{Status: true}, nil
}

// IsAdmin reports whether the signed-in user stored in ctx has the admin
// role.
func (s *Server) IsAdmin(ctx context.Context) bool {
	u, ok := auth.UserFromContext(ctx)
	return ok && u.IsAdmin()
}

// Middleware stores the session data of signed-in requests in the
// context. Anonymous requests pass through.
func (s *Server) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}
		d, err := s.GetSession(r.Context(), w, r)
		if err != nil {
			s.log.ErrorContext(r.Context(), "failed to load session", logger.Error(err), logger.Component("authserver"))
		}
		if d == nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(withSessionData(r.Context(), d)))
	})
}

// freshSession replaces the context session with one resolved from the
// store, bypassing the cookie cache. Routes that act with the caller's
// privileges sit behind it so revocations and role changes apply at once.
func (s *Server) freshSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, err := s.loadSession(r.Context(), w, r, false)
		if err != nil {
			s.log.ErrorContext(r.Context(), "failed to load session", logger.Error(err), logger.Component("authserver"))
		}
		// A nil entry masks any cached session set by Middleware.
		ctx := context.WithValue(r.Context(), sessionDataKey{}, d)
		if d != nil {
			ctx = auth.WithUser(ctx, d.User)
		} else {
			ctx = auth.WithUser(ctx, nil)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// signIn issues a session for user and primes the cookie cache.
func (s *Server) signIn(ctx context.Context, w http.ResponseWriter, r *http.Request, user *auth.User) (*session.Session, error) {
	if user.IsBanned(s.now()) {
		return nil, toError(auth.ErrUserBanned)
	}
	sess, err := s.sessions.Issue(ctx, w, r, user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	s.writeCache(ctx, w, &SessionData{Session: newSessionInfo(sess), User: user}, sess.Token)
	s.log.InfoContext(ctx, "user signed in", logger.UserID(user.ID), logger.Component("authserver"))
	return sess, nil
}

func tokenHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}

func (s *Server) writeCache(ctx context.Context, w http.ResponseWriter, d *SessionData, token string) {
	if s.cfg.CookieCacheMaxAge <= 0 {
		return
	}
	claims := cacheClaims{
		SessionData:      *d,
		TokenHash:        tokenHash(token),
		RegisteredClaims: jwt.Expires(s.cfg.CookieCacheMaxAge),
	}
	claims.Issuer = s.signer.Issuer()
	claims.Subject = d.Session.ID.String()

	tok, err := s.signer.Generate(claims)
	if err != nil {
		s.log.WarnContext(ctx, "failed to sign session cache", logger.Error(err))
		return
	}
	_ = s.cookies.Set(w, s.cfg.CookieCacheName, tok,
		cookie.WithMaxAge(int(s.cfg.CookieCacheMaxAge.Seconds())),
		cookie.WithHTTPOnly(true),
	)
}

func (s *Server) readCache(r *http.Request, token string) *SessionData {
	if s.cfg.CookieCacheMaxAge <= 0 {
		return nil
	}
	raw, err := s.cookies.Get(r, s.cfg.CookieCacheName)
	if err != nil || raw == "" {
		return nil
	}
	var claims cacheClaims
	if err := s.signer.Parse(raw, &claims); err != nil {
		return nil
	}
	if claims.TokenHash != tokenHash(token) || claims.User == nil {
		return nil
	}
	if claims.User.IsBanned(s.now()) || !s.now().Before(claims.Session.ExpiresAt) {
		return nil
	}
	return &claims.SessionData
}

func (s *Server) clearCache(w http.ResponseWriter, r *http.Request) {
	if s.cfg.CookieCacheMaxAge <= 0 {
		return
	}
	if _, err := s.cookies.Get(r, s.cfg.CookieCacheName); err == nil {
		s.cookies.Delete(w, s.cfg.CookieCacheName)
	}
}
