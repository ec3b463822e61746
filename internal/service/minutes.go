package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/BuzzLyutic/minutes-tracker/internal/clock"
	"github.com/BuzzLyutic/minutes-tracker/internal/model"
	"github.com/BuzzLyutic/minutes-tracker/internal/repo"
)

// MinutesService owns the per-team, per-day minutes records and the
// snapshot history attached to them.
type MinutesService struct {
	store repo.Store
	tx    *TxRunner
	clock clock.Clock
	loc   *time.Location
}

func NewMinutesService(store repo.Store, tx *TxRunner, clk clock.Clock, loc *time.Location) *MinutesService {
	if loc == nil {
		loc = time.UTC
	}
	return &MinutesService{store: store, tx: tx, clock: clk, loc: loc}
}

// Today is the current calendar date in the configured location.
func (s *MinutesService) Today() string {
	return clock.Date(s.clock.Now(), s.loc)
}

// ResolveToday returns today's minutes for teamID, creating them if needed.
func (s *MinutesService) ResolveToday(ctx context.Context, teamID string) (model.Minutes, error) {
	now := s.clock.Now()
	var m model.Minutes
	err := s.tx.Run(ctx, "resolve minutes", func(q repo.Queries) error {
		var err error
		m, err = s.resolve(ctx, q, teamID, clock.Date(now, s.loc), now)
		return err
	})
	return m, err
}

// resolve locates or creates the minutes for (teamID, date) using q, so it
// joins the caller's transaction. Two writers racing on the same key both
// end up with the one row the unique constraint let through.
func (s *MinutesService) resolve(ctx context.Context, q repo.Queries, teamID, date string, now time.Time) (model.Minutes, error) {
	m, err := q.FindMinutes(ctx, teamID, date)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, repo.ErrorNotFound) {
		return m, err
	}

	team, err := q.GetTeam(ctx, teamID)
	if err != nil {
		return model.Minutes{}, err
	}

	now = now.UTC().Truncate(time.Microsecond)
	fresh := model.Minutes{
		ID:         uuid.NewString(),
		TeamID:     team.ID,
		Date:       date,
		Venue:      team.DefaultVenue,
		Attendance: []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := q.InsertMinutesIfAbsent(ctx, fresh); err != nil {
		return model.Minutes{}, err
	}
	return q.FindMinutes(ctx, teamID, date)
}

// ListMinutesForTeam returns every minutes record of the team, newest date
// first, each with its snapshots newest first.
func (s *MinutesService) ListMinutesForTeam(ctx context.Context, teamID string) ([]model.MinutesWithSnapshots, error) {
	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	list, err := s.store.ListMinutesByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}

	out := make([]model.MinutesWithSnapshots, 0, len(list))
	for _, m := range list {
		snaps, err := s.store.ListSnapshots(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, model.MinutesWithSnapshots{Minutes: m, Team: team, Snapshots: nonNil(snaps)})
	}
	return out, nil
}

func (s *MinutesService) GetByTeamAndDate(ctx context.Context, teamID, date string) (model.MinutesWithSnapshots, error) {
	if !model.ValidDate(date) {
		return model.MinutesWithSnapshots{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		return model.MinutesWithSnapshots{}, err
	}
	m, err := s.store.FindMinutes(ctx, teamID, date)
	if err != nil {
		return model.MinutesWithSnapshots{}, err
	}
	snaps, err := s.store.ListSnapshots(ctx, m.ID)
	if err != nil {
		return model.MinutesWithSnapshots{}, err
	}
	return model.MinutesWithSnapshots{Minutes: m, Team: team, Snapshots: nonNil(snaps)}, nil
}

// UpdateDetails sets the venue and attendance of a meeting day, creating the
// minutes record for that day if it does not exist yet.
func (s *MinutesService) UpdateDetails(ctx context.Context, actor model.Actor, teamID, date string, patch model.MinutesPatch) (model.Minutes, error) {
	if !model.ValidDate(date) {
		return model.Minutes{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	if patch.Empty() {
		return model.Minutes{}, fmt.Errorf("%w: nothing to update", ErrValidation)
	}

	now := s.clock.Now()
	var out model.Minutes
	err := s.tx.Run(ctx, "update minutes", func(q repo.Queries) error {
		if _, err := q.GetTeam(ctx, teamID); err != nil {
			return err
		}
		if err := requireManager(ctx, q, actor, teamID, "edit meeting details"); err != nil {
			return err
		}

		m, err := s.resolve(ctx, q, teamID, date, now)
		if err != nil {
			return err
		}
		if err := q.LockMinutes(ctx, m.ID); err != nil {
			return err
		}

		if patch.Venue.Set {
			m.Venue = patch.Venue.Value
		}
		if patch.Attendance != nil {
			attendance, err := validAttendance(ctx, q, teamID, *patch.Attendance)
			if err != nil {
				return err
			}
			m.Attendance = attendance
		}
		m.UpdatedAt = now.UTC().Truncate(time.Microsecond)

		out, err = q.UpdateMinutes(ctx, m)
		return err
	})
	return out, err
}

// validAttendance checks every id is a membership of teamID and drops
// duplicates, keeping the first occurrence.
func validAttendance(ctx context.Context, q repo.Queries, teamID string, ids []string) ([]string, error) {
	members, err := q.ListMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(members))
	for _, m := range members {
		known[m.ID] = true
	}

	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !known[id] {
			return nil, fmt.Errorf("%w: attendee %q is not a member of this team", ErrValidation, id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
