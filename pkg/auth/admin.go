package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authstarter/pkg/logger"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// AdminService manages users. Callers enforce that the actor is an admin.
type AdminService struct {
	storage AdminStorage
	logger  *slog.Logger
}

func NewAdminService(storage AdminStorage, log *slog.Logger) *AdminService {
	if log == nil {
		log = logger.Discard()
	}
	return &AdminService{storage: storage, logger: log.With(logger.Component("admin"))}
}

func (s *AdminService) ListUsers(ctx context.Context, params ListUsersParams) (*UserList, error) {
	switch {
	case params.Limit <= 0:
		params.Limit = defaultListLimit
	case params.Limit > maxListLimit:
		params.Limit = maxListLimit
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	list, err := s.storage.ListUsers(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return list, nil
}

func (s *AdminService) SetRole(ctx context.Context, userID uuid.UUID, role Role) (*User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	return s.update(ctx, userID, func(u *User) {
		u.Role = role
	}, "role changed", logger.Role(string(role)))
}

// BanUser bans userID. A zero expiresIn bans indefinitely. Revoking the
// user's sessions is left to the caller.
func (s *AdminService) BanUser(ctx context.Context, actorID, userID uuid.UUID, reason string, expiresIn time.Duration) (*User, error) {
	if actorID == userID {
		return nil, ErrCannotBanSelf
	}
	return s.update(ctx, userID, func(u *User) {
		u.Banned = true
		u.BanReason = reason
		u.BanExpires = nil
		if expiresIn > 0 {
			t := time.Now().Add(expiresIn)
			u.BanExpires = &t
		}
	}, "user banned", slog.String("reason", reason))
}

func (s *AdminService) UnbanUser(ctx context.Context, userID uuid.UUID) (*User, error) {
	return s.update(ctx, userID, func(u *User) {
		u.Banned = false
		u.BanReason = ""
		u.BanExpires = nil
	}, "user unbanned")
}

func (s *AdminService) RemoveUser(ctx context.Context, userID uuid.UUID) error {
	if err := s.storage.DeleteUser(ctx, userID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "user removed", logger.UserID(userID))
	return nil
}

func (s *AdminService) update(ctx context.Context, userID uuid.UUID, mutate func(*User), event string, attrs ...slog.Attr) (*User, error) {
	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	mutate(user)
	if err := s.storage.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, event, append([]slog.Attr{logger.UserID(userID)}, attrs...)...)
	return user, nil
}
