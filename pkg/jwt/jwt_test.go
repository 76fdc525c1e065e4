package jwt_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authstarter/pkg/jwt"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := jwt.New(nil)
	assert.ErrorIs(t, err, jwt.ErrMissingSigningKey)

	_, err = jwt.NewFromString("short")
	assert.ErrorIs(t, err, jwt.ErrSigningKeyTooShort)

	_, err = jwt.NewFromString(testKey)
	assert.NoError(t, err)
}

func TestGenerateParse(t *testing.T) {
	t.Parallel()

	svc, err := jwt.NewFromString(testKey, jwt.WithIssuer("authstarter"))
	require.NoError(t, err)

	claims := jwt.NewClaims("user-1", time.Hour)
	claims.Email = "user@example.com"
	claims.Purpose = "email-verification"

	tok, err := svc.Generate(claims)
	require.NoError(t, err)
	assert.Len(t, strings.Split(tok, "."), 3)

	var got jwt.Claims
	require.NoError(t, svc.Parse(tok, &got))
	assert.Equal(t, "user-1", got.Subject)
	assert.Equal(t, "user@example.com", got.Email)
	assert.Equal(t, "email-verification", got.Purpose)
	assert.Equal(t, "authstarter", got.Issuer)
}

func TestParse_Expired(t *testing.T) {
	t.Parallel()

	svc, err := jwt.NewFromString(testKey)
	require.NoError(t, err)

	tok, err := svc.Generate(jwt.NewClaims("user-1", -time.Minute))
	require.NoError(t, err)

	var got jwt.Claims
	assert.ErrorIs(t, svc.Parse(tok, &got), jwt.ErrExpiredToken)
}

func TestParse_Leeway(t *testing.T) {
	t.Parallel()

	svc, err := jwt.NewFromString(testKey, jwt.WithLeeway(time.Minute))
	require.NoError(t, err)

	tok, err := svc.Generate(jwt.NewClaims("user-1", -10*time.Second))
	require.NoError(t, err)

	var got jwt.Claims
	assert.NoError(t, svc.Parse(tok, &got))
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	svc, err := jwt.NewFromString(testKey)
	require.NoError(t, err)
	other, err := jwt.NewFromString(strings.Repeat("x", 32))
	require.NoError(t, err)

	tok, err := other.Generate(jwt.NewClaims("user-1", time.Hour))
	require.NoError(t, err)

	var got jwt.Claims
	assert.ErrorIs(t, svc.Parse(tok, &got), jwt.ErrInvalidToken, "foreign key")
	assert.ErrorIs(t, svc.Parse("not.a.token", &got), jwt.ErrInvalidToken)
	assert.ErrorIs(t, svc.Parse(tok, nil), jwt.ErrMissingClaims)

	// Issuer mismatch.
	issued, err := jwt.NewFromString(testKey, jwt.WithIssuer("other"))
	require.NoError(t, err)
	strict, err := jwt.NewFromString(testKey, jwt.WithIssuer("authstarter"))
	require.NoError(t, err)
	tok, err = issued.Generate(jwt.NewClaims("user-1", time.Hour))
	require.NoError(t, err)
	assert.ErrorIs(t, strict.Parse(tok, &got), jwt.ErrInvalidToken)
}

func TestParse_RequiresExpiry(t *testing.T) {
	t.Parallel()

	svc, err := jwt.NewFromString(testKey)
	require.NoError(t, err)

	tok, err := svc.Generate(jwt.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "forever"}})
	require.NoError(t, err)

	var got jwt.Claims
	assert.ErrorIs(t, svc.Parse(tok, &got), jwt.ErrInvalidToken)
}

type cacheClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func TestCustomClaims(t *testing.T) {
	t.Parallel()

	svc, err := jwt.NewFromString(testKey)
	require.NoError(t, err)

	tok, err := svc.Generate(cacheClaims{SessionID: "s1", RegisteredClaims: jwt.Expires(5 * time.Minute)})
	require.NoError(t, err)

	var got cacheClaims
	require.NoError(t, svc.Parse(tok, &got))
	assert.Equal(t, "s1", got.SessionID)
}
