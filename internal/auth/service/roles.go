package service

import (
	"context"
	"errors"

	"github.com/quickbite/platform/internal/auth/domain"
	"github.com/quickbite/platform/internal/auth/store"
	"github.com/quickbite/platform/pkg/slogx"
)

var (
	ErrForbidden   = errors.New("forbidden")
	ErrInvalidRole = errors.New("invalid_role")
)

// RolesService administers role grants. The actor's authority is always
// re-read from the store at call time, so a stale access token never confers
// admin rights the account no longer holds.
type RolesService struct {
	Store store.Store
}

// Grant attaches a role to the target user. Only ADMIN actors may grant;
// USER and unknown names are not grantable. Granting a role the target
// already holds is a no-op.
func (s *RolesService) Grant(ctx context.Context, actorID, targetID, role string) error {
	if err := s.checkActor(ctx, actorID); err != nil {
		return err
	}
	if !domain.IsGrantableRole(role) {
		return ErrInvalidRole
	}

	// Surface ErrNotFound for a missing target before the no-op write.
	if _, err := s.Store.Users().GetUserByID(ctx, targetID); err != nil {
		return err
	}

	if err := s.Store.Users().AddRole(ctx, targetID, role); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("role granted",
		"actor_id", actorID, "target_id", targetID, "role", role)
	return nil
}

// Revoke removes a role from the target user. USER can never be removed.
// Revoking a role the target does not hold is a no-op.
func (s *RolesService) Revoke(ctx context.Context, actorID, targetID, role string) error {
	if err := s.checkActor(ctx, actorID); err != nil {
		return err
	}
	if !domain.IsGrantableRole(role) {
		return ErrInvalidRole
	}

	if _, err := s.Store.Users().GetUserByID(ctx, targetID); err != nil {
		return err
	}

	if err := s.Store.Users().RemoveRole(ctx, targetID, role); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("role revoked",
		"actor_id", actorID, "target_id", targetID, "role", role)
	return nil
}

func (s *RolesService) checkActor(ctx context.Context, actorID string) error {
	actor, err := s.Store.Users().GetUserByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrForbidden
		}
		return err
	}
	if !actor.HasRole(domain.RoleAdmin) {
		return ErrForbidden
	}
	return nil
}
