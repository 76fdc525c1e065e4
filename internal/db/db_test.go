package db_test

import (
	"context"
	"io/fs"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authstarter/internal/db"
	"github.com/dmitrymomot/authstarter/pkg/auth"
	"github.com/dmitrymomot/authstarter/pkg/logger"
	"github.com/dmitrymomot/authstarter/pkg/pg"
	"github.com/dmitrymomot/authstarter/pkg/session"
)

var (
	poolOnce sync.Once
	pool     *pgxpool.Pool
	poolErr  error
)

// testPool connects to TEST_DATABASE_URL and migrates it once. Tests are
// skipped when the variable is unset.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	poolOnce.Do(func() {
		cfg := pg.Config{ConnectionString: url, MaxOpenConns: 4, RetryAttempts: 1}
		pool, poolErr = pg.Connect(context.Background(), cfg)
		if poolErr == nil {
			poolErr = pg.Migrate(context.Background(), pool, db.Migrations, db.MigrationsDir, cfg, logger.Discard())
		}
	})
	require.NoError(t, poolErr)
	return pool
}

func newUser(email string) *auth.User {
	now := time.Now().Truncate(time.Microsecond)
	return &auth.User{
		ID:        uuid.New(),
		Email:     email,
		Name:      "Test User",
		Role:      auth.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func uniqueEmail(prefix string) string {
	return prefix + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12] + "@example.com"
}

func TestMigrations_Embedded(t *testing.T) {
	t.Parallel()

	files, err := fs.Glob(db.Migrations, db.MigrationsDir+"/*.sql")
	require.NoError(t, err)
	assert.Len(t, files, 4)
	for _, f := range files {
		raw, err := fs.ReadFile(db.Migrations, f)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "-- +goose Up", f)
		assert.Contains(t, string(raw), "-- +goose Down", f)
	}
}

func TestUserStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := db.NewUserStore(testPool(t))

	u := newUser(uniqueEmail("ada"))
	require.NoError(t, store.CreateUser(ctx, u))
	assert.ErrorIs(t, store.CreateUser(ctx, newUser(u.Email)), auth.ErrEmailAlreadyExists)

	got, err := store.GetUserByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, auth.RoleUser, got.Role)
	assert.Nil(t, got.BanExpires)

	until := time.Now().Add(time.Hour).Truncate(time.Microsecond)
	got.Banned, got.BanReason, got.BanExpires = true, "spam", &until
	got.Role = auth.RoleAdmin
	require.NoError(t, store.UpdateUser(ctx, got))

	got, err = store.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin())
	assert.True(t, got.IsBanned(time.Now()))
	require.NotNil(t, got.BanExpires)
	assert.True(t, until.Equal(*got.BanExpires))

	_, err = store.GetPasswordHash(ctx, u.ID)
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
	require.NoError(t, store.StorePasswordHash(ctx, u.ID, []byte("hash-1")))
	require.NoError(t, store.StorePasswordHash(ctx, u.ID, []byte("hash-2")))
	hash, err := store.GetPasswordHash(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("hash-2"), hash)
	assert.ErrorIs(t, store.StorePasswordHash(ctx, uuid.New(), []byte("x")), auth.ErrUserNotFound)

	sub := "g-" + uuid.NewString()
	require.NoError(t, store.StoreOAuthLink(ctx, u.ID, auth.ProviderGoogle, sub))
	require.NoError(t, store.StoreOAuthLink(ctx, u.ID, auth.ProviderGoogle, sub), "linking twice is a no-op")
	linked, err := store.GetUserByOAuth(ctx, auth.ProviderGoogle, sub)
	require.NoError(t, err)
	assert.Equal(t, u.ID, linked.ID)

	require.NoError(t, store.DeleteUser(ctx, u.ID))
	_, err = store.GetUserByID(ctx, u.ID)
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
	_, err = store.GetUserByOAuth(ctx, auth.ProviderGoogle, sub)
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
	assert.ErrorIs(t, store.DeleteUser(ctx, u.ID), auth.ErrUserNotFound)
	assert.ErrorIs(t, store.UpdateUser(ctx, u), auth.ErrUserNotFound)
}

func TestUserStore_ListUsers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := db.NewUserStore(testPool(t))

	tag := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	for i := range 3 {
		u := newUser(tag + "-" + string(rune('a'+i)) + "@example.com")
		u.CreatedAt = u.CreatedAt.Add(time.Duration(i) * time.Second)
		require.NoError(t, store.CreateUser(ctx, u))
	}

	list, err := store.ListUsers(ctx, auth.ListUsersParams{Search: strings.ToUpper(tag), Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, list.Total)
	require.Len(t, list.Users, 2)
	assert.True(t, strings.HasPrefix(list.Users[0].Email, tag+"-c"), "newest first")

	list, err = store.ListUsers(ctx, auth.ListUsersParams{Search: tag, Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, list.Users, 1)

	list, err = store.ListUsers(ctx, auth.ListUsersParams{Search: "%" + tag})
	require.NoError(t, err)
	assert.Zero(t, list.Total, "wildcards in search are literal")
}

func TestVerificationStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := db.NewVerificationStore(testPool(t))
	id := "sign-in-otp-" + uniqueEmail("otp")

	_, err := store.Get(ctx, id)
	assert.ErrorIs(t, err, auth.ErrVerificationNotFound)

	require.NoError(t, store.Set(ctx, auth.Verification{Identifier: id, Value: "111111", ExpiresAt: time.Now().Add(time.Minute)}))
	require.NoError(t, store.Set(ctx, auth.Verification{Identifier: id, Value: "123456", ExpiresAt: time.Now().Add(time.Minute)}))
	v, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "123456", v.Value)

	var counted sync.WaitGroup
	for range 10 {
		counted.Add(1)
		go func() {
			defer counted.Done()
			_, err := store.IncrementAttempts(ctx, id)
			assert.NoError(t, err)
		}()
	}
	counted.Wait()
	v, err = store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 10, v.Attempts, "increments are not lost")

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Consume(ctx, id); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	require.NoError(t, store.Set(ctx, auth.Verification{Identifier: id, Value: "x", ExpiresAt: time.Now().Add(-time.Second)}))
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, auth.ErrVerificationNotFound)
	require.NoError(t, store.DeleteExpired(ctx))
	require.NoError(t, store.Delete(ctx, id))
}

func TestSessionStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := testPool(t)
	users := db.NewUserStore(p)
	store := db.NewSessionStore(p)

	u := newUser(uniqueEmail("sess"))
	require.NoError(t, users.CreateUser(ctx, u))

	s := session.NewSession("tok-"+uuid.NewString(), u.ID, time.Hour)
	s.IPAddress, s.UserAgent = "198.51.100.7", "test"
	s.Set("theme", "dark")
	require.NoError(t, store.Create(ctx, s))
	assert.ErrorIs(t, store.Create(ctx, session.NewSession("orphan", uuid.New(), time.Hour)), session.ErrInvalidSession)

	got, err := store.Get(ctx, s.Token)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	theme, _ := got.GetString("theme")
	assert.Equal(t, "dark", theme)

	got.ExpiresAt = got.ExpiresAt.Add(time.Hour)
	require.NoError(t, store.Update(ctx, got))
	require.NoError(t, store.UpdateActivity(ctx, s.Token, time.Now()))
	assert.ErrorIs(t, store.UpdateActivity(ctx, "missing", time.Now()), session.ErrSessionNotFound)

	second := session.NewSession("tok-"+uuid.NewString(), u.ID, time.Hour)
	require.NoError(t, store.Create(ctx, second))
	require.NoError(t, store.DeleteByUserID(ctx, u.ID))
	_, err = store.Get(ctx, s.Token)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	_, err = store.Get(ctx, second.Token)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	expired := session.NewSession("tok-"+uuid.NewString(), u.ID, time.Hour)
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, store.Create(ctx, expired))
	_, err = store.Get(ctx, expired.Token)
	assert.ErrorIs(t, err, session.ErrSessionExpired)
	require.NoError(t, store.DeleteExpired(ctx))
	_, err = store.Get(ctx, expired.Token)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}
