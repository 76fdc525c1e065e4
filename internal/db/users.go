package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/authstarter/pkg/auth"
	"github.com/dmitrymomot/authstarter/pkg/pg"
)

const userColumns = `id, name, email, email_verified, image, role, banned, ban_reason, ban_expires, created_at, updated_at`

// UserStore implements auth.Storage on the users and accounts tables.
type UserStore struct {
	db DBTX
}

var _ auth.Storage = (*UserStore)(nil)

func NewUserStore(db DBTX) *UserStore {
	return &UserStore{db: db}
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var u auth.User
	var role string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.EmailVerified, &u.Image, &role,
		&u.Banned, &u.BanReason, &u.BanExpires, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, auth.ErrUserNotFound
		}
		return nil, errors.Join(auth.ErrStoreUnavailable, err)
	}
	u.Role = auth.Role(role)
	return &u, nil
}

func (s *UserStore) CreateUser(ctx context.Context, u *auth.User) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		u.ID, u.Name, u.Email, u.EmailVerified, u.Image, string(u.Role),
		u.Banned, u.BanReason, u.BanExpires, u.CreatedAt, u.UpdatedAt)
	if pg.IsDuplicateKeyError(err) {
		return auth.ErrEmailAlreadyExists
	}
	if err != nil {
		return errors.Join(auth.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *UserStore) GetUserByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (s *UserStore) UpdateUser(ctx context.Context, u *auth.User) error {
	u.UpdatedAt = time.Now()
	tag, err := s.db.Exec(ctx, `
		UPDATE users
		SET name = $2, email = $3, email_verified = $4, image = $5, role = $6,
		    banned = $7, ban_reason = $8, ban_expires = $9, updated_at = $10
		WHERE id = $1`,
		u.ID, u.Name, u.Email, u.EmailVerified, u.Image, string(u.Role),
		u.Banned, u.BanReason, u.BanExpires, u.UpdatedAt)
	if pg.IsDuplicateKeyError(err) {
		return auth.ErrEmailAlreadyExists
	}
	if err != nil {
		return errors.Join(auth.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

// DeleteUser removes the user; accounts and sessions cascade.
func (s *UserStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return errors.Join(auth.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func (s *UserStore) StorePasswordHash(ctx context.Context, userID uuid.UUID, hash []byte) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO accounts (id, user_id, provider_id, account_id, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (provider_id, account_id)
		DO UPDATE SET password_hash = EXCLUDED.password_hash, updated_at = now()`,
		uuid.New(), userID, auth.ProviderCredential, userID.String(), hash)
	if pg.IsForeignKeyViolationError(err) {
		return auth.ErrUserNotFound
	}
	if err != nil {
		return errors.Join(auth.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *UserStore) GetPasswordHash(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	var hash []byte
	err := s.db.QueryRow(ctx, `
		SELECT password_hash FROM accounts
		WHERE user_id = $1 AND provider_id = $2 AND password_hash IS NOT NULL`,
		userID, auth.ProviderCredential).Scan(&hash)
	if pg.IsNotFoundError(err) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Join(auth.ErrStoreUnavailable, err)
	}
	return hash, nil
}

func (s *UserStore) StoreOAuthLink(ctx context.Context, userID uuid.UUID, provider, providerUserID string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO accounts (id, user_id, provider_id, account_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider_id, account_id) DO NOTHING`,
		uuid.New(), userID, provider, providerUserID)
	if pg.IsForeignKeyViolationError(err) {
		return auth.ErrUserNotFound
	}
	if err != nil {
		return errors.Join(auth.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *UserStore) GetUserByOAuth(ctx context.Context, provider, providerUserID string) (*auth.User, error) {
	return scanUser(s.db.QueryRow(ctx, `
		SELECT u.id, u.name, u.email, u.email_verified, u.image, u.role, u.banned,
		       u.ban_reason, u.ban_expires, u.created_at, u.updated_at
		FROM users u
		JOIN accounts a ON a.user_id = u.id
		WHERE a.provider_id = $1 AND a.account_id = $2`,
		provider, providerUserID))
}

// ListUsers orders by creation time, newest first. Search matches email or
// name with ILIKE.
func (s *UserStore) ListUsers(ctx context.Context, params auth.ListUsersParams) (*auth.UserList, error) {
	var search *string
	if params.Search != "" {
		pattern := "%" + escapeLike(params.Search) + "%"
		search = &pattern
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 100
	}

	var total int
	if err := s.db.QueryRow(ctx, `
		SELECT count(*) FROM users
		WHERE $1::text IS NULL OR email ILIKE $1 OR name ILIKE $1`, search).Scan(&total); err != nil {
		return nil, errors.Join(auth.ErrStoreUnavailable, err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE $1::text IS NULL OR email ILIKE $1 OR name ILIKE $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, search, limit, max(params.Offset, 0))
	if err != nil {
		return nil, errors.Join(auth.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	list := &auth.UserList{Total: total, Users: []*auth.User{}}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list.Users = append(list.Users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(auth.ErrStoreUnavailable, err)
	}
	return list, nil
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
