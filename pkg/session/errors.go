package session

import "errors"

var (
	ErrInvalidSession = errors.New("session.invalid")

	ErrSessionExpired = errors.New("session.expired")

	ErrSessionNotFound = errors.New("session.not_found")

	ErrTokenGeneration = errors.New("session.token_generation_failed")

	// ErrStoreUnavailable wraps backend failures so callers can tell them
	// apart from a missing session.
	ErrStoreUnavailable = errors.New("session.store_unavailable")
)
