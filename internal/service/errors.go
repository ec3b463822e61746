package service

import (
	"context"
	"fmt"

	"github.com/BuzzLyutic/minutes-tracker/internal/model"
	"github.com/BuzzLyutic/minutes-tracker/internal/policy"
	"github.com/BuzzLyutic/minutes-tracker/internal/repo"
)

var (
	ErrValidation = policy.ErrValidation
	ErrForbidden  = policy.ErrForbidden
)

// canManageTeam reports whether actor may create, delete and edit meeting
// details for teamID. Admins manage every team, coordinators only their own.
func canManageTeam(ctx context.Context, q repo.Queries, actor model.Actor, teamID string) (bool, error) {
	if actor.UserID == "" {
		return false, nil
	}
	if actor.Role.Privileged() {
		return true, nil
	}
	if actor.Role != model.RoleCoordinator {
		return false, nil
	}
	return q.IsCoordinator(ctx, actor.UserID, teamID)
}

func requireManager(ctx context.Context, q repo.Queries, actor model.Actor, teamID, action string) error {
	ok, err := canManageTeam(ctx, q, actor, teamID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: not authorized to %s for this team", ErrForbidden, action)
	}
	return nil
}
