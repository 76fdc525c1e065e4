package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/authstarter/pkg/auth"
)

type fixture struct {
	users     *auth.MemoryStorage
	codes     *auth.MemoryVerificationStore
	passwords auth.PasswordAuthenticator
}

func newFixture(t *testing.T, opts ...auth.PasswordOption) *fixture {
	t.Helper()
	users := auth.NewMemoryStorage()
	codes := auth.NewMemoryVerificationStore()
	opts = append([]auth.PasswordOption{auth.WithBcryptCost(bcrypt.MinCost)}, opts...)
	return &fixture{
		users:     users,
		codes:     codes,
		passwords: auth.NewPasswordService(users, codes, opts...),
	}
}

func (f *fixture) register(t *testing.T, email, password string) *auth.User {
	t.Helper()
	u, err := f.passwords.Register(context.Background(), auth.RegisterParams{Name: "Test", Email: email, Password: password})
	require.NoError(t, err)
	return u
}
