package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/authstarter/pkg/logger"
	"github.com/dmitrymomot/authstarter/pkg/sanitizer"
	"github.com/dmitrymomot/authstarter/pkg/validator"
)

// OTPType selects what a one-time password is for.
type OTPType string

const (
	OTPSignIn            OTPType = "sign-in"
	OTPEmailVerification OTPType = "email-verification"
	OTPForgetPassword    OTPType = "forget-password"
)

func (t OTPType) Valid() bool {
	return t == OTPSignIn || t == OTPEmailVerification || t == OTPForgetPassword
}

// OTPIdentifier is the verification identifier for an address and type.
func OTPIdentifier(t OTPType, email string) string {
	return string(t) + "-otp-" + email
}

// OTPRequest carries a freshly issued code to deliver.
type OTPRequest struct {
	Email     string
	Code      string
	Type      OTPType
	ExpiresAt time.Time
}

// OTPService issues numeric codes with a per-code attempt limit.
type OTPService struct {
	storage       PasswordStorage
	verifications VerificationStore
	passwords     PasswordAuthenticator
	length        int
	ttl           time.Duration
	maxAttempts   int
	disableSignUp bool
	logger        *slog.Logger
}

type OTPOption func(*OTPService)

func WithOTPLength(n int) OTPOption {
	return func(s *OTPService) { s.length = n }
}

func WithOTPExpiresIn(ttl time.Duration) OTPOption {
	return func(s *OTPService) { s.ttl = ttl }
}

func WithOTPAllowedAttempts(n int) OTPOption {
	return func(s *OTPService) { s.maxAttempts = n }
}

// WithOTPSignUp controls whether sign-in codes create accounts.
func WithOTPSignUp(enabled bool) OTPOption {
	return func(s *OTPService) { s.disableSignUp = !enabled }
}

// WithOTPPasswords sets the service used to store new passwords. Without
// it ResetPassword hashes with the default cost.
func WithOTPPasswords(p PasswordAuthenticator) OTPOption {
	return func(s *OTPService) { s.passwords = p }
}

func WithOTPLogger(l *slog.Logger) OTPOption {
	return func(s *OTPService) { s.logger = l }
}

func NewOTPService(storage PasswordStorage, verifications VerificationStore, opts ...OTPOption) *OTPService {
	s := &OTPService{
		storage:       storage,
		verifications: verifications,
		length:        6,
		ttl:           10 * time.Minute,
		maxAttempts:   3,
		logger:        logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.passwords == nil {
		s.passwords = NewPasswordService(storage, verifications)
	}
	return s
}

// Send issues a code and replaces any previous one. It returns a nil
// request without error when nothing should be delivered: verification
// and reset codes for unknown addresses, or sign-in codes for unknown
// addresses when sign-up is disabled.
func (s *OTPService) Send(ctx context.Context, email string, t OTPType) (*OTPRequest, error) {
	email = sanitizer.NormalizeEmail(email)
	if !t.Valid() {
		return nil, ErrInvalidOTPType
	}
	if err := validator.Apply(validator.ValidEmail("email", email).WithMessage("Invalid email")); err != nil {
		return nil, err
	}

	_, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if errors.Is(err, ErrUserNotFound) && (t != OTPSignIn || s.disableSignUp) {
		s.logger.DebugContext(ctx, "otp requested for unknown email",
			slog.String("type", string(t)), logger.Component("otp"))
		return nil, nil
	}

	code, err := randomDigits(s.length)
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(s.ttl)
	if err := s.verifications.Set(ctx, Verification{
		Identifier: OTPIdentifier(t, email),
		Value:      code,
		ExpiresAt:  expiresAt,
	}); err != nil {
		return nil, fmt.Errorf("store otp: %w", err)
	}
	return &OTPRequest{Email: email, Code: code, Type: t, ExpiresAt: expiresAt}, nil
}

// check verifies code for (t, email). Every well-formed guess costs an
// attempt, counted atomically before the comparison so concurrent guesses
// cannot share one. Once the count passes the limit the entry is dropped.
func (s *OTPService) check(ctx context.Context, email string, t OTPType, code string) error {
	if err := validator.Apply(
		validator.LenString("otp", code, s.length).WithMessage("Invalid OTP"),
		validator.Digits("otp", code).WithMessage("Invalid OTP"),
	); err != nil {
		return ErrInvalidOTP
	}

	id := OTPIdentifier(t, email)
	v, err := s.verifications.IncrementAttempts(ctx, id)
	if err != nil {
		if errors.Is(err, ErrVerificationNotFound) {
			return ErrOTPExpired
		}
		return fmt.Errorf("record otp attempt: %w", err)
	}
	if v.Attempts > s.maxAttempts {
		_ = s.verifications.Delete(ctx, id)
		return ErrTooManyAttempts
	}
	if subtle.ConstantTimeCompare([]byte(v.Value), []byte(code)) != 1 {
		return ErrInvalidOTP
	}

	// Only one of several concurrent correct guesses may redeem the code.
	if _, err := s.verifications.Consume(ctx, id); err != nil {
		if errors.Is(err, ErrVerificationNotFound) {
			return ErrOTPExpired
		}
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}

// SignIn redeems a sign-in code. Unknown addresses are registered, and
// the address counts as verified either way.
func (s *OTPService) SignIn(ctx context.Context, email, code string) (*User, error) {
	email = sanitizer.NormalizeEmail(email)
	if err := s.check(ctx, email, OTPSignIn, code); err != nil {
		return nil, err
	}

	user, err := s.storage.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrUserNotFound):
		if s.disableSignUp {
			return nil, ErrUserNotFound
		}
		user = newUser(email, "", true)
		if err := s.storage.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		return user, nil
	case err != nil:
		return nil, fmt.Errorf("get user: %w", err)
	}

	if user.IsBanned(time.Now()) {
		return nil, ErrUserBanned
	}
	if !user.EmailVerified {
		user.EmailVerified = true
		if err := s.storage.UpdateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("mark email verified: %w", err)
		}
	}
	return user, nil
}

func (s *OTPService) VerifyEmail(ctx context.Context, email, code string) (*User, error) {
	email = sanitizer.NormalizeEmail(email)
	if err := s.check(ctx, email, OTPEmailVerification, code); err != nil {
		return nil, err
	}

	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !user.EmailVerified {
		user.EmailVerified = true
		if err := s.storage.UpdateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("mark email verified: %w", err)
		}
	}
	return user, nil
}

// ResetPassword sets a new password after redeeming a forget-password
// code. Proving control of the address also verifies it.
func (s *OTPService) ResetPassword(ctx context.Context, email, code, newPassword string) (*User, error) {
	email = sanitizer.NormalizeEmail(email)
	if err := validator.FirstPerField(passwordRules("password", newPassword)...); err != nil {
		return nil, err
	}
	if err := s.check(ctx, email, OTPForgetPassword, code); err != nil {
		return nil, err
	}

	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.passwords.SetPassword(ctx, user.ID, newPassword); err != nil {
		return nil, err
	}
	if !user.EmailVerified {
		user.EmailVerified = true
		if err := s.storage.UpdateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("mark email verified: %w", err)
		}
	}
	return user, nil
}
