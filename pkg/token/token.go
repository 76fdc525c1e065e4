package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type envelope[T any] struct {
	Payload T     `json:"p"`
	Expires int64 `json:"e,omitempty"`
}

// Generate signs payload. A ttl of zero produces a token that never expires.
func Generate[T any](payload T, secret string, ttl time.Duration) (string, error) {
	env := envelope[T]{Payload: payload}
	if ttl != 0 {
		env.Expires = time.Now().Add(ttl).Unix()
	}

	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal token payload: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(data) + "." +
		base64.RawURLEncoding.EncodeToString(sign(data, secret)), nil
}

// Parse verifies the signature and expiry and returns the payload.
func Parse[T any](token, secret string) (T, error) {
	var zero T

	body, sigPart, ok := strings.Cut(token, ".")
	if !ok || body == "" || sigPart == "" {
		return zero, ErrInvalidToken
	}
	data, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return zero, ErrInvalidToken
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil {
		return zero, ErrInvalidToken
	}

	if !hmac.Equal(sig, sign(data, secret)) {
		return zero, ErrSignatureInvalid
	}

	var env envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		return zero, ErrInvalidToken
	}
	if env.Expires > 0 && time.Now().Unix() >= env.Expires {
		return zero, ErrExpired
	}
	return env.Payload, nil
}

func sign(data []byte, secret string) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(data)
	return h.Sum(nil)
}
