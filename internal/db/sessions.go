package db

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/authstarter/pkg/pg"
	"github.com/dmitrymomot/authstarter/pkg/session"
)

const sessionColumns = `id, token, user_id, ip_address, user_agent, data, expires_at, last_activity_at, created_at`

// SessionStore implements session.Store on the sessions table.
type SessionStore struct {
	db DBTX
}

var _ session.Store = (*SessionStore)(nil)

func NewSessionStore(db DBTX) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Create(ctx context.Context, sess *session.Session) error {
	if sess == nil || sess.Token == "" {
		return session.ErrInvalidSession
	}
	data, err := marshalData(sess.Data)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sess.ID, sess.Token, sess.UserID, sess.IPAddress, sess.UserAgent, data,
		sess.ExpiresAt, sess.LastActivityAt, sess.CreatedAt)
	if pg.IsForeignKeyViolationError(err) {
		return session.ErrInvalidSession
	}
	if err != nil {
		return errors.Join(session.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, token string) (*session.Session, error) {
	var sess session.Session
	var data []byte
	err := s.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE token = $1`, token).Scan(
		&sess.ID, &sess.Token, &sess.UserID, &sess.IPAddress, &sess.UserAgent, &data,
		&sess.ExpiresAt, &sess.LastActivityAt, &sess.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrSessionNotFound
	}
	if err != nil {
		return nil, errors.Join(session.ErrStoreUnavailable, err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &sess.Data); err != nil {
			return nil, errors.Join(session.ErrInvalidSession, err)
		}
	}
	if sess.IsExpired(time.Now()) {
		return nil, session.ErrSessionExpired
	}
	return &sess, nil
}

func (s *SessionStore) Update(ctx context.Context, sess *session.Session) error {
	if sess == nil || sess.Token == "" {
		return session.ErrInvalidSession
	}
	data, err := marshalData(sess.Data)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE sessions
		SET data = $2, expires_at = $3, last_activity_at = $4, updated_at = now()
		WHERE token = $1`,
		sess.Token, data, sess.ExpiresAt, sess.LastActivityAt)
	if err != nil {
		return errors.Join(session.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) UpdateActivity(ctx context.Context, token string, lastActivity time.Time) error {
	tag, err := s.db.Exec(ctx, `UPDATE sessions SET last_activity_at = $2 WHERE token = $1`, token, lastActivity)
	if err != nil {
		return errors.Join(session.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return errors.Join(session.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *SessionStore) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return errors.Join(session.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= now()`); err != nil {
		return errors.Join(session.ErrStoreUnavailable, err)
	}
	return nil
}

func marshalData(data map[string]any) ([]byte, error) {
	if data == nil {
		return []byte("{}"), nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Join(session.ErrInvalidSession, err)
	}
	return raw, nil
}
