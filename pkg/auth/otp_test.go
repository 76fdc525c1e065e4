package auth_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authstarter/pkg/auth"
)

func newOTP(f *fixture, opts ...auth.OTPOption) *auth.OTPService {
	return auth.NewOTPService(f.users, f.codes, append([]auth.OTPOption{auth.WithOTPPasswords(f.passwords)}, opts...)...)
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestOTPService_Send(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("stores code with zero attempts", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		svc := newOTP(f)

		req, err := svc.Send(ctx, "User@Example.com", auth.OTPSignIn)
		require.NoError(t, err)
		require.NotNil(t, req)
		assert.Len(t, req.Code, 6)
		assert.Regexp(t, `^\d{6}$`, req.Code)
		assert.WithinDuration(t, time.Now().Add(600*time.Second), req.ExpiresAt, time.Minute)

		v, err := f.codes.Get(ctx, "sign-in-otp-user@example.com")
		require.NoError(t, err)
		assert.Equal(t, req.Code, v.Value)
		assert.Zero(t, v.Attempts)
	})

	t.Run("unknown user gets nothing for verification and reset", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		svc := newOTP(f)

		for _, typ := range []auth.OTPType{auth.OTPEmailVerification, auth.OTPForgetPassword} {
			req, err := svc.Send(ctx, "ghost@example.com", typ)
			assert.NoError(t, err)
			assert.Nil(t, req)
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		svc := newOTP(f)

		_, err := svc.Send(ctx, "user@example.com", "login")
		assert.ErrorIs(t, err, auth.ErrInvalidOTPType)
		_, err = svc.Send(ctx, "not-an-email", auth.OTPSignIn)
		assert.Error(t, err)
	})

	t.Run("resend replaces previous code", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		svc := newOTP(f)

		first, err := svc.Send(ctx, "user@example.com", auth.OTPSignIn)
		require.NoError(t, err)
		second, err := svc.Send(ctx, "user@example.com", auth.OTPSignIn)
		require.NoError(t, err)

		if first.Code != second.Code {
			_, err = svc.SignIn(ctx, "user@example.com", first.Code)
			assert.ErrorIs(t, err, auth.ErrInvalidOTP)
		}
		_, err = svc.SignIn(ctx, "user@example.com", second.Code)
		assert.NoError(t, err)
	})
}

func TestOTPService_SignIn(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("auto-registers verified user", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		svc := newOTP(f)

		req, err := svc.Send(ctx, "new@example.com", auth.OTPSignIn)
		require.NoError(t, err)

		u, err := svc.SignIn(ctx, "new@example.com", req.Code)
		require.NoError(t, err)
		assert.True(t, u.EmailVerified)
		assert.Equal(t, auth.RoleUser, u.Role)

		_, err = svc.SignIn(ctx, "new@example.com", req.Code)
		assert.ErrorIs(t, err, auth.ErrOTPExpired, "code is single use")
	})

	t.Run("three wrong attempts then locked", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		svc := newOTP(f)

		req, err := svc.Send(ctx, "user@example.com", auth.OTPSignIn)
		require.NoError(t, err)
		bad := wrongCode(req.Code)

		for i := 1; i <= 3; i++ {
			_, err = svc.SignIn(ctx, "user@example.com", bad)
			assert.ErrorIs(t, err, auth.ErrInvalidOTP, "attempt %d", i)
		}
		_, err = svc.SignIn(ctx, "user@example.com", req.Code)
		assert.ErrorIs(t, err, auth.ErrTooManyAttempts)

		_, err = svc.SignIn(ctx, "user@example.com", req.Code)
		assert.ErrorIs(t, err, auth.ErrOTPExpired, "entry removed after lockout")
	})

	t.Run("concurrent wrong guesses share the attempt limit", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		svc := newOTP(f)

		req, err := svc.Send(ctx, "user@example.com", auth.OTPSignIn)
		require.NoError(t, err)
		bad := wrongCode(req.Code)

		var evaluated atomic.Int32
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.SignIn(ctx, "user@example.com", bad)
				if errors.Is(err, auth.ErrInvalidOTP) {
					evaluated.Add(1)
					return
				}
				assert.True(t, errors.Is(err, auth.ErrTooManyAttempts) || errors.Is(err, auth.ErrOTPExpired), "unexpected error %v", err)
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(3), evaluated.Load())

		_, err = svc.SignIn(ctx, "user@example.com", req.Code)
		assert.Error(t, err, "code is burned after the limit")
	})

	t.Run("concurrent correct guesses redeem once", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		svc := newOTP(f, auth.WithOTPAllowedAttempts(10))

		req, err := svc.Send(ctx, "user@example.com", auth.OTPSignIn)
		require.NoError(t, err)

		var wins atomic.Int32
		var wg sync.WaitGroup
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := svc.SignIn(ctx, "user@example.com", req.Code); err == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("malformed code does not cost an attempt", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		svc := newOTP(f, auth.WithOTPAllowedAttempts(1))

		req, err := svc.Send(ctx, "user@example.com", auth.OTPSignIn)
		require.NoError(t, err)

		_, err = svc.SignIn(ctx, "user@example.com", "12ab")
		assert.ErrorIs(t, err, auth.ErrInvalidOTP)
		_, err = svc.SignIn(ctx, "user@example.com", req.Code)
		assert.NoError(t, err)
	})

	t.Run("expired code", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		svc := newOTP(f, auth.WithOTPExpiresIn(-time.Second))

		req, err := svc.Send(ctx, "user@example.com", auth.OTPSignIn)
		require.NoError(t, err)
		_, err = svc.SignIn(ctx, "user@example.com", req.Code)
		assert.ErrorIs(t, err, auth.ErrOTPExpired)
	})

	t.Run("codes are scoped by type", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.register(t, "user@example.com", "password123")
		svc := newOTP(f)

		req, err := svc.Send(ctx, "user@example.com", auth.OTPEmailVerification)
		require.NoError(t, err)
		_, err = svc.SignIn(ctx, "user@example.com", req.Code)
		assert.ErrorIs(t, err, auth.ErrOTPExpired)
	})
}

func TestOTPService_VerifyEmailAndReset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	u := f.register(t, "user@example.com", "password123")
	svc := newOTP(f)

	req, err := svc.Send(ctx, "user@example.com", auth.OTPEmailVerification)
	require.NoError(t, err)
	verified, err := svc.VerifyEmail(ctx, "user@example.com", req.Code)
	require.NoError(t, err)
	assert.Equal(t, u.ID, verified.ID)
	assert.True(t, verified.EmailVerified)

	req, err = svc.Send(ctx, "user@example.com", auth.OTPForgetPassword)
	require.NoError(t, err)
	_, err = svc.ResetPassword(ctx, "user@example.com", req.Code, "brand-new-pass")
	require.NoError(t, err)

	_, err = f.passwords.Authenticate(ctx, "user@example.com", "brand-new-pass")
	assert.NoError(t, err)
}
