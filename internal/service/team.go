package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BuzzLyutic/minutes-tracker/internal/clock"
	"github.com/BuzzLyutic/minutes-tracker/internal/model"
	"github.com/BuzzLyutic/minutes-tracker/internal/repo"
)

type TeamService struct {
	store repo.Store
	clock clock.Clock
}

func NewTeamService(store repo.Store, clk clock.Clock) *TeamService {
	return &TeamService{store: store, clock: clk}
}

func (s *TeamService) List(ctx context.Context) ([]model.Team, error) {
	teams, err := s.store.ListTeams(ctx)
	return nonNil(teams), err
}

func (s *TeamService) Get(ctx context.Context, id string) (model.TeamDetails, error) {
	team, err := s.store.GetTeam(ctx, id)
	if err != nil {
		return model.TeamDetails{}, err
	}
	members, err := s.store.ListMembers(ctx, id)
	if err != nil {
		return model.TeamDetails{}, err
	}
	return model.TeamDetails{Team: team, Members: nonNil(members)}, nil
}

type NewTeam struct {
	Name         string  `json:"name"`
	DefaultVenue *string `json:"defaultVenue"`
}

// Create adds a team. Only admins may create teams; names are unique.
func (s *TeamService) Create(ctx context.Context, actor model.Actor, in NewTeam) (model.Team, error) {
	if actor.UserID == "" || !actor.Role.Privileged() {
		return model.Team{}, fmt.Errorf("%w: only admins can create teams", ErrForbidden)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Team{}, fmt.Errorf("%w: name is required", ErrValidation)
	}

	now := s.clock.Now().UTC().Truncate(time.Microsecond)
	return s.store.CreateTeam(ctx, model.Team{
		ID:           uuid.NewString(),
		Name:         name,
		DefaultVenue: emptyToNil(in.DefaultVenue),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

// Update changes a team's name or default venue. Existing minutes keep the
// venue they were created with.
func (s *TeamService) Update(ctx context.Context, actor model.Actor, id string, patch model.TeamPatch) (model.Team, error) {
	if actor.UserID == "" || !actor.Role.Privileged() {
		return model.Team{}, fmt.Errorf("%w: only admins can update teams", ErrForbidden)
	}
	if patch.Empty() {
		return model.Team{}, fmt.Errorf("%w: nothing to update", ErrValidation)
	}

	var out model.Team
	err := s.store.InTx(ctx, func(q repo.Queries) error {
		team, err := q.GetTeam(ctx, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return fmt.Errorf("%w: name is required", ErrValidation)
			}
			team.Name = name
		}
		if patch.DefaultVenue.Set {
			team.DefaultVenue = emptyToNil(patch.DefaultVenue.Value)
		}
		team.UpdatedAt = s.clock.Now().UTC().Truncate(time.Microsecond)

		out, err = q.UpdateTeam(ctx, team)
		return err
	})
	return out, err
}
