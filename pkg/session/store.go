package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists sessions keyed by token.
type Store interface {
	Create(ctx context.Context, session *Session) error

	// Get returns ErrSessionNotFound for unknown tokens and
	// ErrSessionExpired for expired ones.
	Get(ctx context.Context, token string) (*Session, error)

	Update(ctx context.Context, session *Session) error

	// UpdateActivity only touches the last activity time.
	UpdateActivity(ctx context.Context, token string, lastActivity time.Time) error

	Delete(ctx context.Context, token string) error

	// DeleteByUserID removes every session of userID.
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error

	DeleteExpired(ctx context.Context) error
}
