package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"clubfunds/internal/authz"
	"clubfunds/internal/database"
	"clubfunds/internal/util"

	"github.com/google/uuid"
)

type UserService struct {
	db       *database.Database
	resolver *authz.Resolver
	logger   *slog.Logger
}

func NewUserService(db *database.Database, resolver *authz.Resolver, logger *slog.Logger) *UserService {
	return &UserService{db: db, resolver: resolver, logger: logger}
}

// Profile is a user together with their resolved access, for the /api/me
// response.
type Profile struct {
	User   database.User
	Access authz.Access
}

func (s *UserService) Me(ctx context.Context, userID uuid.UUID) (Profile, error) {
	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return Profile{}, ErrUnauthenticated
		}
		return Profile{}, fmt.Errorf("service: failed to load user: %w", err)
	}

	access, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("service: failed to resolve access: %w", err)
	}
	return Profile{User: user, Access: access}, nil
}

// List returns the users the caller may administer: everyone for
// organization-wide user managers, group members for club-level managers,
// just the caller otherwise.
func (s *UserService) List(ctx context.Context, userID uuid.UUID) ([]database.User, error) {
	access, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to resolve access: %w", err)
	}

	params := database.ListUsersParams{}
	switch {
	case access.Has(authz.PermManageAllUsers):
	case access.Has(authz.PermManageClubUsers):
		if len(access.GroupIDs) == 0 {
			return []database.User{}, nil
		}
		params.GroupIDs = access.GroupIDs
	default:
		user, err := s.db.GetUserByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("service: failed to load user: %w", err)
		}
		return []database.User{user}, nil
	}

	users, err := s.db.ListUsers(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list users: %w", err)
	}
	return users, nil
}

type UpdateUserParams struct {
	Name    util.Optional[string]
	Phone   util.Optional[string]
	GroupID util.Optional[util.Optional[uuid.UUID]] // outer set = change membership, inner unset = remove from group
}

// Update modifies a user's profile or group membership. Users may edit their
// own name and phone; changing group membership requires user management
// authority over the target.
func (s *UserService) Update(ctx context.Context, userID uuid.UUID, targetID uuid.UUID, params UpdateUserParams) (database.User, error) {
	access, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return database.User{}, fmt.Errorf("service: failed to resolve access: %w", err)
	}

	target, err := s.db.GetUserByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return database.User{}, ErrNotFound
		}
		return database.User{}, fmt.Errorf("service: failed to load target user: %w", err)
	}

	var targetGroups []uuid.UUID
	if target.GroupID.IsSet {
		targetGroups = append(targetGroups, target.GroupID.Val)
	}

	isSelf := userID == targetID
	if params.GroupID.IsSet || !isSelf {
		if !authz.CanManageUsers(access, targetGroups) {
			return database.User{}, ErrAccessDenied
		}
	}

	if err := s.db.UpdateUserByID(ctx, targetID, database.UpdateUserParams(params)); err != nil {
		return database.User{}, fmt.Errorf("service: failed to update user: %w", err)
	}

	if params.GroupID.IsSet {
		// Membership feeds into access resolution.
		s.resolver.Invalidate(ctx, targetID)
	}

	s.logger.Info("user updated", "user_id", targetID, "by", userID)
	return s.db.GetUserByID(ctx, targetID)
}
