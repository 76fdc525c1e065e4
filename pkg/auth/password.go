package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/authstarter/pkg/logger"
	"github.com/dmitrymomot/authstarter/pkg/sanitizer"
	"github.com/dmitrymomot/authstarter/pkg/validator"
)

// Password length policy.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

const resetPasswordPrefix = "reset-password:"

// PasswordAuthenticator covers e-mail and password accounts.
type PasswordAuthenticator interface {
	Register(ctx context.Context, params RegisterParams) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
	// ForgotPassword returns a nil request, and no error, for unknown
	// addresses so callers can't be used to probe for accounts.
	ForgotPassword(ctx context.Context, email string) (*PasswordResetRequest, error)
	// CheckResetToken reports whether token can still be redeemed.
	CheckResetToken(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, token, newPassword string) (*User, error)
	SetPassword(ctx context.Context, userID uuid.UUID, newPassword string) error
}

type RegisterParams struct {
	Name     string
	Email    string
	Password string
	Image    string
}

type PasswordResetRequest struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}

type passwordService struct {
	storage       PasswordStorage
	verifications VerificationStore
	bcryptCost    int
	resetTTL      time.Duration
	requireVerify bool
	logger        *slog.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

type PasswordOption func(*passwordService)

func WithBcryptCost(cost int) PasswordOption {
	return func(s *passwordService) { s.bcryptCost = cost }
}

func WithResetTokenTTL(ttl time.Duration) PasswordOption {
	return func(s *passwordService) { s.resetTTL = ttl }
}

// WithRequireEmailVerification makes Authenticate reject unverified users
// with ErrEmailNotVerified.
func WithRequireEmailVerification(required bool) PasswordOption {
	return func(s *passwordService) { s.requireVerify = required }
}

func WithPasswordLogger(l *slog.Logger) PasswordOption {
	return func(s *passwordService) { s.logger = l }
}

func NewPasswordService(storage PasswordStorage, verifications VerificationStore, opts ...PasswordOption) PasswordAuthenticator {
	s := &passwordService{
		storage:       storage,
		verifications: verifications,
		bcryptCost:    bcrypt.DefaultCost,
		resetTTL:      time.Hour,
		logger:        logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func passwordRules(field, password string) []validator.Rule {
	return []validator.Rule{
		validator.MinLenString(field, password, MinPasswordLength).
			WithMessage(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)),
		validator.MaxLenString(field, password, MaxPasswordLength).
			WithMessage(fmt.Sprintf("Password must be at most %d characters", MaxPasswordLength)),
	}
}

func (s *passwordService) Register(ctx context.Context, params RegisterParams) (*User, error) {
	email := sanitizer.NormalizeEmail(params.Email)
	name := sanitizer.Apply(params.Name, sanitizer.Trim, sanitizer.SingleLine, sanitizer.NFC)

	rules := append([]validator.Rule{
		validator.ValidEmail("email", email).WithMessage("Invalid email"),
	}, passwordRules("password", params.Password)...)
	if err := validator.FirstPerField(rules...); err != nil {
		return nil, err
	}

	if _, err := s.storage.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailAlreadyExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := newUser(email, name, false)
	user.Image = params.Image
	if err := s.storage.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.storage.StorePasswordHash(ctx, user.ID, hash); err != nil {
		if delErr := s.storage.DeleteUser(ctx, user.ID); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to clean up user after password save failure",
				logger.UserID(user.ID),
				logger.Email(user.Email),
				logger.Error(delErr),
				logger.Component("password"),
			)
		}
		return nil, fmt.Errorf("store password: %w", err)
	}

	return user, nil
}

// Authenticate returns ErrInvalidCredentials for an unknown address, a
// user without a password and a wrong password alike.
func (s *passwordService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = sanitizer.NormalizeEmail(email)

	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		// Keep timing close to the found-user path.
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		return nil, ErrInvalidCredentials
	}

	hash, err := s.storage.GetPasswordHash(ctx, user.ID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.IsBanned(time.Now()) {
		return nil, ErrUserBanned
	}
	if s.requireVerify && !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	return user, nil
}

// dummy returns a hash at the configured cost, compared against when the
// user doesn't exist.
func (s *passwordService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("no-such-user"), s.bcryptCost)
	})
	return s.dummyHash
}

func (s *passwordService) ForgotPassword(ctx context.Context, email string) (*PasswordResetRequest, error) {
	email = sanitizer.NormalizeEmail(email)
	if err := validator.Apply(validator.ValidEmail("email", email).WithMessage("Invalid email")); err != nil {
		return nil, err
	}

	user, err := s.storage.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		s.logger.DebugContext(ctx, "password reset requested for unknown email", logger.Component("password"))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	tok, err := randomToken(24)
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(s.resetTTL)
	if err := s.verifications.Set(ctx, Verification{
		Identifier: resetPasswordPrefix + tok,
		Value:      user.ID.String(),
		ExpiresAt:  expiresAt,
	}); err != nil {
		return nil, fmt.Errorf("store reset token: %w", err)
	}

	return &PasswordResetRequest{User: user, Token: tok, ExpiresAt: expiresAt}, nil
}

func (s *passwordService) CheckResetToken(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrTokenInvalid
	}
	if _, err := s.verifications.Get(ctx, resetPasswordPrefix+token); err != nil {
		if errors.Is(err, ErrVerificationNotFound) {
			return ErrTokenInvalid
		}
		return err
	}
	return nil
}

func (s *passwordService) ResetPassword(ctx context.Context, token, newPassword string) (*User, error) {
	if err := validator.FirstPerField(passwordRules("newPassword", newPassword)...); err != nil {
		return nil, err
	}
	if strings.TrimSpace(token) == "" {
		return nil, ErrTokenInvalid
	}

	v, err := s.verifications.Consume(ctx, resetPasswordPrefix+token)
	if err != nil {
		if errors.Is(err, ErrVerificationNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("consume reset token: %w", err)
	}

	userID, err := uuid.Parse(v.Value)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	if err := s.SetPassword(ctx, userID, newPassword); err != nil {
		return nil, err
	}
	return s.storage.GetUserByID(ctx, userID)
}

func (s *passwordService) SetPassword(ctx context.Context, userID uuid.UUID, newPassword string) error {
	if err := validator.FirstPerField(passwordRules("newPassword", newPassword)...); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.storage.StorePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("store password: %w", err)
	}
	return nil
}
