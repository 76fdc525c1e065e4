package authserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authstarter/internal/authserver"
	"github.com/dmitrymomot/authstarter/pkg/auth"
)

func TestAdminRoutes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	admin := f.verifiedUser(t, "admin@example.com", "password123")
	admin.Role = auth.RoleAdmin
	require.NoError(t, f.users.UpdateUser(ctx, admin))
	target := f.verifiedUser(t, "target@example.com", "password123")

	adminClient := f.signIn(t, "admin@example.com", "password123")
	targetClient := f.signIn(t, "target@example.com", "password123")

	t.Run("requires a session", func(t *testing.T) {
		status, body := f.post(t, f.client(t), "/admin/list-users", map[string]any{})
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, authserver.CodeUnauthorized, body.Error.Code)
	})

	t.Run("requires the admin role", func(t *testing.T) {
		status, body := f.post(t, targetClient, "/admin/list-users", map[string]any{})
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, authserver.CodeForbidden, body.Error.Code)
	})

	t.Run("list users", func(t *testing.T) {
		status, body := f.post(t, adminClient, "/admin/list-users", map[string]any{"searchValue": "target"})
		require.Equal(t, http.StatusOK, status)
		var res authserver.ListUsersResult
		require.NoError(t, json.Unmarshal(body.Data, &res))
		assert.Equal(t, 1, res.Total)
		require.Len(t, res.Users, 1)
		assert.Equal(t, target.ID, res.Users[0].ID)
		assert.Equal(t, 100, res.Limit)
	})

	t.Run("set role", func(t *testing.T) {
		status, body := f.post(t, adminClient, "/admin/set-role", map[string]any{"userId": target.ID, "role": "owner"})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, authserver.CodeInvalidRole, body.Error.Code)

		status, _ = f.post(t, adminClient, "/admin/set-role", map[string]any{"userId": target.ID, "role": "user"})
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("ban revokes sessions and blocks sign in", func(t *testing.T) {
		status, body := f.post(t, adminClient, "/admin/ban-user", map[string]any{"userId": admin.ID})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, authserver.CodeCannotBanSelf, body.Error.Code)

		status, _ = f.post(t, adminClient, "/admin/ban-user", map[string]any{"userId": target.ID, "banReason": "spam"})
		require.Equal(t, http.StatusOK, status)
		assert.Nil(t, f.session(t, targetClient))

		status, body = f.post(t, f.client(t), "/sign-in/email", map[string]string{"email": "target@example.com", "password": "password123"})
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, authserver.CodeBannedUser, body.Error.Code)

		status, _ = f.post(t, adminClient, "/admin/unban-user", map[string]any{"userId": target.ID})
		require.Equal(t, http.StatusOK, status)
		targetClient = f.signIn(t, "target@example.com", "password123")
	})

	t.Run("revoke sessions", func(t *testing.T) {
		require.NotNil(t, f.session(t, targetClient))
		status, _ := f.post(t, adminClient, "/admin/revoke-user-sessions", map[string]any{"userId": target.ID})
		require.Equal(t, http.StatusOK, status)
		assert.Nil(t, f.session(t, targetClient))
	})

	t.Run("remove user", func(t *testing.T) {
		status, _ := f.post(t, adminClient, "/admin/remove-user", map[string]any{"userId": admin.ID})
		assert.Equal(t, http.StatusForbidden, status)

		status, _ = f.post(t, adminClient, "/admin/remove-user", map[string]any{"userId": target.ID})
		require.Equal(t, http.StatusOK, status)
		_, err := f.users.GetUserByID(ctx, target.ID)
		assert.ErrorIs(t, err, auth.ErrUserNotFound)

		status, body := f.post(t, adminClient, "/admin/unban-user", map[string]any{"userId": target.ID})
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, authserver.CodeUserNotFound, body.Error.Code)
	})
}

func TestServer_IsAdmin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	assert.False(t, f.srv.IsAdmin(context.Background()))
	assert.False(t, f.srv.IsAdmin(auth.WithUser(context.Background(), &auth.User{Role: auth.RoleUser})))
	assert.True(t, f.srv.IsAdmin(auth.WithUser(context.Background(), &auth.User{Role: auth.RoleAdmin})))
}

func TestAdminRoutes_IgnoreCookieCache(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(c *authserver.Config) { c.CookieCacheMaxAge = 5 * time.Minute })
	ctx := context.Background()

	admin := f.verifiedUser(t, "admin@example.com", "password123")
	admin.Role = auth.RoleAdmin
	require.NoError(t, f.users.UpdateUser(ctx, admin))

	t.Run("demotion applies at once", func(t *testing.T) {
		c := f.signIn(t, "admin@example.com", "password123")
		status, _ := f.post(t, c, "/admin/list-users", map[string]any{})
		require.Equal(t, http.StatusOK, status)

		admin.Role = auth.RoleUser
		require.NoError(t, f.users.UpdateUser(ctx, admin))
		status, body := f.post(t, c, "/admin/list-users", map[string]any{})
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, authserver.CodeForbidden, body.Error.Code)

		admin.Role = auth.RoleAdmin
		require.NoError(t, f.users.UpdateUser(ctx, admin))
	})

	t.Run("revoked session is rejected", func(t *testing.T) {
		c := f.signIn(t, "admin@example.com", "password123")
		require.NoError(t, f.sessions.DestroyUser(ctx, admin.ID))

		status, body := f.post(t, c, "/admin/list-users", map[string]any{})
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, authserver.CodeUnauthorized, body.Error.Code)
	})
}
