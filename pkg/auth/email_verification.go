package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrymomot/authstarter/pkg/jwt"
	"github.com/dmitrymomot/authstarter/pkg/sanitizer"
	"github.com/dmitrymomot/authstarter/pkg/validator"
)

const purposeEmailVerification = "email-verification"

// VerificationRequest is a signed e-mail verification token.
type VerificationRequest struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}

type verificationClaims struct {
	Email       string `json:"email"`
	Purpose     string `json:"purpose"`
	CallbackURL string `json:"callbackURL,omitempty"`
	jwt.RegisteredClaims
}

// VerificationService issues and redeems stateless e-mail verification
// tokens. Tokens are JWTs bound to the address they were issued for.
type VerificationService struct {
	storage UserStorage
	signer  *jwt.Service
	ttl     time.Duration
}

type VerificationOption func(*VerificationService)

func WithVerificationTTL(ttl time.Duration) VerificationOption {
	return func(s *VerificationService) { s.ttl = ttl }
}

func NewVerificationService(storage UserStorage, signer *jwt.Service, opts ...VerificationOption) *VerificationService {
	s := &VerificationService{storage: storage, signer: signer, ttl: 24 * time.Hour}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestVerification returns ErrUserNotFound for unknown addresses.
// Already verified users get a token anyway; redeeming it is a no-op.
func (s *VerificationService) RequestVerification(ctx context.Context, email, callbackURL string) (*VerificationRequest, error) {
	email = sanitizer.NormalizeEmail(email)
	if err := validator.Apply(validator.ValidEmail("email", email).WithMessage("Invalid email")); err != nil {
		return nil, err
	}

	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	claims := verificationClaims{
		Email:            email,
		Purpose:          purposeEmailVerification,
		CallbackURL:      callbackURL,
		RegisteredClaims: jwt.Expires(s.ttl),
	}
	claims.Subject = user.ID.String()
	claims.Issuer = s.signer.Issuer()

	tok, err := s.signer.Generate(claims)
	if err != nil {
		return nil, fmt.Errorf("sign verification token: %w", err)
	}
	return &VerificationRequest{User: user, Token: tok, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// VerifyEmail marks the token's user verified and returns it with the
// callback URL the token was issued with.
func (s *VerificationService) VerifyEmail(ctx context.Context, token string) (*User, string, error) {
	var claims verificationClaims
	if err := s.signer.Parse(token, &claims); err != nil {
		if errors.Is(err, jwt.ErrExpiredToken) {
			return nil, "", ErrTokenExpired
		}
		return nil, "", ErrTokenInvalid
	}
	if claims.Purpose != purposeEmailVerification || claims.Email == "" {
		return nil, "", ErrTokenInvalid
	}

	user, err := s.storage.GetUserByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, "", ErrTokenInvalid
		}
		return nil, "", err
	}

	if !user.EmailVerified {
		user.EmailVerified = true
		if err := s.storage.UpdateUser(ctx, user); err != nil {
			return nil, "", fmt.Errorf("mark email verified: %w", err)
		}
	}
	return user, claims.CallbackURL, nil
}
