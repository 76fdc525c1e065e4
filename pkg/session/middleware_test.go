package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authstarter/pkg/session"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()
	m, _ := newManager(t, session.NewMemoryStore(0))
	userID := uuid.New()

	rec := httptest.NewRecorder()
	_, err := m.Issue(context.Background(), rec, httptest.NewRequest(http.MethodPost, "/", nil), userID)
	require.NoError(t, err)

	var seen uuid.UUID
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = session.UserIDFromContext(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), carry(rec))
	assert.Equal(t, userID, seen)

	seen = uuid.Nil
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, uuid.Nil, seen)
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	t.Run("default unauthorized", func(t *testing.T) {
		rec := httptest.NewRecorder()
		session.RequireAuth(nil)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("redirect", func(t *testing.T) {
		rec := httptest.NewRecorder()
		session.RequireAuth(session.RedirectTo("/sign-in"))(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/sign-in", rec.Header().Get("Location"))
	})

	t.Run("with session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req = req.WithContext(session.WithSession(req.Context(), session.NewSession("t", uuid.New(), 0)))
		rec := httptest.NewRecorder()
		session.RequireAuth(nil)(ok).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
