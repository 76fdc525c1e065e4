package authserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authstarter/pkg/auth"
	"github.com/dmitrymomot/authstarter/pkg/logger"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// requireAdmin returns the signed-in admin of ctx as currently stored, so
// a demotion or ban takes effect on the next call.
func (s *Server) requireAdmin(ctx context.Context) (*auth.User, error) {
	u, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	current, err := s.storage.GetUserByID(ctx, u.ID)
	if errors.Is(err, auth.ErrUserNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("load admin: %w", err)
	}
	if current.IsBanned(s.now()) {
		return nil, ErrUnauthorized
	}
	if !current.IsAdmin() {
		return nil, ErrForbidden
	}
	return current, nil
}

func (s *Server) ListUsers(ctx context.Context, p ListUsersParams) (*ListUsersResult, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	limit := p.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	offset := max(p.Offset, 0)

	list, err := s.admin.ListUsers(ctx, auth.ListUsersParams{Limit: limit, Offset: offset, Search: p.SearchValue})
	if err != nil {
		return nil, toError(err)
	}
	return &ListUsersResult{Users: list.Users, Total: list.Total, Limit: limit, Offset: offset}, nil
}

func (s *Server) SetRole(ctx context.Context, p SetRoleParams) (*auth.User, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	u, err := s.admin.SetRole(ctx, p.UserID, p.Role)
	return u, toError(err)
}

// BanUser bans the user and revokes all of their sessions.
func (s *Server) BanUser(ctx context.Context, p BanUserParams) (*auth.User, error) {
	actor, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.admin.BanUser(ctx, actor.ID, p.UserID, p.BanReason, p.expiresIn())
	if err != nil {
		return nil, toError(err)
	}
	s.revokeAll(ctx, u.ID)
	return u, nil
}

func (s *Server) UnbanUser(ctx context.Context, p UserIDParams) (*auth.User, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	u, err := s.admin.UnbanUser(ctx, p.UserID)
	return u, toError(err)
}

func (s *Server) RevokeUserSessions(ctx context.Context, p UserIDParams) (*StatusResult, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := s.sessions.DestroyUser(ctx, p.UserID); err != nil {
		return nil, fmt.Errorf("revoke sessions: %w", err)
	}
	return &StatusResult{Status: true}, nil
}

// RemoveUser deletes the user after revoking their sessions. Admins can't
// remove themselves.
func (s *Server) RemoveUser(ctx context.Context, p UserIDParams) (*StatusResult, error) {
	actor, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if actor.ID == p.UserID {
		return nil, newError(ErrForbidden.Status, "YOU_CANNOT_REMOVE_YOURSELF", "You cannot remove yourself")
	}
	s.revokeAll(ctx, p.UserID)
	if err := s.admin.RemoveUser(ctx, p.UserID); err != nil {
		return nil, toError(err)
	}
	return &StatusResult{Status: true}, nil
}

func (s *Server) revokeAll(ctx context.Context, userID uuid.UUID) {
	if err := s.sessions.DestroyUser(ctx, userID); err != nil {
		s.log.WarnContext(ctx, "failed to revoke user sessions",
			logger.UserID(userID), logger.Error(err), logger.Component("authserver"))
	}
}
