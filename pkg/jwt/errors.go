package jwt

import "errors"

var (
	ErrMissingSigningKey  = errors.New("jwt.missing_signing_key")
	ErrSigningKeyTooShort = errors.New("jwt.signing_key_too_short")
	ErrMissingClaims      = errors.New("jwt.missing_claims")
	ErrInvalidToken       = errors.New("jwt.invalid_token")
	ErrExpiredToken       = errors.New("jwt.expired_token")
)
