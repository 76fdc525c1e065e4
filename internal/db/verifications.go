package db

import (
	"context"
	"errors"

	"github.com/dmitrymomot/authstarter/pkg/auth"
	"github.com/dmitrymomot/authstarter/pkg/pg"
)

// VerificationStore implements auth.VerificationStore on the verifications
// table. Expired rows are invisible and removed by DeleteExpired.
type VerificationStore struct {
	db DBTX
}

var _ auth.VerificationStore = (*VerificationStore)(nil)

func NewVerificationStore(db DBTX) *VerificationStore {
	return &VerificationStore{db: db}
}

func (s *VerificationStore) Set(ctx context.Context, v auth.Verification) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO verifications (identifier, value, expires_at, attempts)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (identifier)
		DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at,
			attempts = EXCLUDED.attempts, updated_at = now()`,
		v.Identifier, v.Value, v.ExpiresAt, v.Attempts)
	if err != nil {
		return errors.Join(auth.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *VerificationStore) Get(ctx context.Context, identifier string) (auth.Verification, error) {
	return scanVerification(s.db.QueryRow(ctx, `
		SELECT identifier, value, expires_at, attempts FROM verifications
		WHERE identifier = $1 AND expires_at > now()`, identifier))
}

// Consume deletes and returns the row in one statement, so concurrent
// consumers cannot both succeed.
func (s *VerificationStore) Consume(ctx context.Context, identifier string) (auth.Verification, error) {
	return scanVerification(s.db.QueryRow(ctx, `
		DELETE FROM verifications
		WHERE identifier = $1 AND expires_at > now()
		RETURNING identifier, value, expires_at, attempts`, identifier))
}

// IncrementAttempts bumps the counter in one statement, so concurrent
// callers each see a distinct count.
func (s *VerificationStore) IncrementAttempts(ctx context.Context, identifier string) (auth.Verification, error) {
	return scanVerification(s.db.QueryRow(ctx, `
		UPDATE verifications SET attempts = attempts + 1, updated_at = now()
		WHERE identifier = $1 AND expires_at > now()
		RETURNING identifier, value, expires_at, attempts`, identifier))
}

func (s *VerificationStore) Delete(ctx context.Context, identifier string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM verifications WHERE identifier = $1`, identifier); err != nil {
		return errors.Join(auth.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *VerificationStore) DeleteExpired(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM verifications WHERE expires_at <= now()`); err != nil {
		return errors.Join(auth.ErrStoreUnavailable, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVerification(row rowScanner) (auth.Verification, error) {
	var v auth.Verification
	if err := row.Scan(&v.Identifier, &v.Value, &v.ExpiresAt, &v.Attempts); err != nil {
		if pg.IsNotFoundError(err) {
			return auth.Verification{}, auth.ErrVerificationNotFound
		}
		return auth.Verification{}, errors.Join(auth.ErrStoreUnavailable, err)
	}
	return v, nil
}
