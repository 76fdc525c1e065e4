package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/authstarter/pkg/logger"
	"github.com/dmitrymomot/authstarter/pkg/sanitizer"
	"github.com/dmitrymomot/authstarter/pkg/validator"
)

const magicLinkPrefix = "magic-link:"

type MagicLinkRequest struct {
	Email     string
	Token     string
	ExpiresAt time.Time
}

type magicLinkPayload struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// MagicLinkResult is the authenticated user. IsNewUser is set when the
// link created the account.
type MagicLinkResult struct {
	User      *User
	IsNewUser bool
}

// MagicLinkService handles passwordless sign-in through single-use links.
type MagicLinkService struct {
	storage       UserStorage
	verifications VerificationStore
	ttl           time.Duration
	disableSignUp bool
	logger        *slog.Logger
}

type MagicLinkOption func(*MagicLinkService)

func WithMagicLinkTTL(ttl time.Duration) MagicLinkOption {
	return func(s *MagicLinkService) { s.ttl = ttl }
}

// WithMagicLinkSignUp controls whether unknown addresses get an account.
func WithMagicLinkSignUp(enabled bool) MagicLinkOption {
	return func(s *MagicLinkService) { s.disableSignUp = !enabled }
}

func WithMagicLinkLogger(l *slog.Logger) MagicLinkOption {
	return func(s *MagicLinkService) { s.logger = l }
}

func NewMagicLinkService(storage UserStorage, verifications VerificationStore, opts ...MagicLinkOption) *MagicLinkService {
	s := &MagicLinkService{
		storage:       storage,
		verifications: verifications,
		ttl:           15 * time.Minute,
		logger:        logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestMagicLink stores a single-use token for email. The account is
// created on redemption, not here.
func (s *MagicLinkService) RequestMagicLink(ctx context.Context, email, name string) (*MagicLinkRequest, error) {
	email = sanitizer.NormalizeEmail(email)
	if err := validator.Apply(validator.ValidEmail("email", email).WithMessage("Invalid email")); err != nil {
		return nil, err
	}

	if s.disableSignUp {
		if _, err := s.storage.GetUserByEmail(ctx, email); err != nil {
			return nil, err
		}
	}

	tok, err := randomToken(24)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(magicLinkPayload{Email: email, Name: name})
	if err != nil {
		return nil, fmt.Errorf("marshal magic link: %w", err)
	}

	expiresAt := time.Now().Add(s.ttl)
	if err := s.verifications.Set(ctx, Verification{
		Identifier: magicLinkPrefix + tok,
		Value:      string(payload),
		ExpiresAt:  expiresAt,
	}); err != nil {
		return nil, fmt.Errorf("store magic link: %w", err)
	}
	return &MagicLinkRequest{Email: email, Token: tok, ExpiresAt: expiresAt}, nil
}

// VerifyMagicLink redeems token once. A replayed or expired token is
// ErrTokenInvalid.
func (s *MagicLinkService) VerifyMagicLink(ctx context.Context, token string) (*MagicLinkResult, error) {
	if token == "" {
		return nil, ErrTokenInvalid
	}
	v, err := s.verifications.Consume(ctx, magicLinkPrefix+token)
	if err != nil {
		if errors.Is(err, ErrVerificationNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("consume magic link: %w", err)
	}

	var p magicLinkPayload
	if err := json.Unmarshal([]byte(v.Value), &p); err != nil || p.Email == "" {
		return nil, ErrTokenInvalid
	}

	user, err := s.storage.GetUserByEmail(ctx, p.Email)
	switch {
	case errors.Is(err, ErrUserNotFound):
		if s.disableSignUp {
			return nil, ErrUserNotFound
		}
		user = newUser(p.Email, p.Name, true)
		if err := s.storage.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		s.logger.InfoContext(ctx, "user registered via magic link",
			logger.UserID(user.ID), logger.Component("magic_link"))
		return &MagicLinkResult{User: user, IsNewUser: true}, nil
	case err != nil:
		return nil, fmt.Errorf("get user: %w", err)
	}

	if user.IsBanned(time.Now()) {
		return nil, ErrUserBanned
	}
	if !user.EmailVerified {
		user.EmailVerified = true
		if err := s.storage.UpdateUser(ctx, user); err != nil {
			s.logger.ErrorContext(ctx, "failed to mark email verified",
				logger.UserID(user.ID), logger.Error(err), logger.Component("magic_link"))
		}
	}
	return &MagicLinkResult{User: user}, nil
}
