package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSigningKeyLength is the minimum HS256 key length in bytes.
const MinSigningKeyLength = 32

// RegisteredClaims is re-exported so callers don't import golang-jwt directly.
type RegisteredClaims = jwt.RegisteredClaims

// Claims carries a subject, an optional e-mail and a purpose.
type Claims struct {
	Email   string `json:"email,omitempty"`
	Purpose string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// NewClaims returns claims for subject expiring after ttl.
func NewClaims(subject string, ttl time.Duration) Claims {
	now := time.Now()
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

// Expires builds registered claims expiring after ttl.
func Expires(ttl time.Duration) RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

type Option func(*Service)

// WithIssuer stamps tokens with iss and requires it when parsing.
func WithIssuer(issuer string) Option {
	return func(s *Service) { s.issuer = issuer }
}

// WithLeeway tolerates clock skew on exp/nbf checks.
func WithLeeway(d time.Duration) Option {
	return func(s *Service) { s.leeway = d }
}

// Service signs and parses HS256 tokens.
type Service struct {
	key    []byte
	issuer string
	leeway time.Duration
}

func New(signingKey []byte, opts ...Option) (*Service, error) {
	if len(signingKey) == 0 {
		return nil, ErrMissingSigningKey
	}
	if len(signingKey) < MinSigningKeyLength {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrSigningKeyTooShort, MinSigningKeyLength)
	}
	s := &Service{key: signingKey}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issuer returns the configured issuer, or "".
func (s *Service) Issuer() string { return s.issuer }

func NewFromString(signingKey string, opts ...Option) (*Service, error) {
	return New([]byte(signingKey), opts...)
}

// Generate signs claims. The configured issuer is filled in for Claims
// values; custom claim types set Issuer themselves, see Service.Issuer.
func (s *Service) Generate(claims jwt.Claims) (string, error) {
	if claims == nil {
		return "", ErrMissingClaims
	}
	if c, ok := claims.(Claims); ok && s.issuer != "" && c.Issuer == "" {
		c.Issuer = s.issuer
		claims = c
	}
	if c, ok := claims.(*Claims); ok && s.issuer != "" && c.Issuer == "" {
		c.Issuer = s.issuer
	}

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tok, nil
}

// Parse verifies the token and decodes it into claims, which must be a
// pointer. Expired tokens return ErrExpiredToken, everything else
// ErrInvalidToken.
func (s *Service) Parse(token string, claims jwt.Claims) error {
	if claims == nil {
		return ErrMissingClaims
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.leeway > 0 {
		opts = append(opts, jwt.WithLeeway(s.leeway))
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return errors.Join(ErrExpiredToken, err)
		}
		return errors.Join(ErrInvalidToken, err)
	}
	return nil
}
