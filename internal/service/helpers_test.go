package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/minutes-tracker/internal/clock"
	"github.com/BuzzLyutic/minutes-tracker/internal/model"
	"github.com/BuzzLyutic/minutes-tracker/internal/repo"
	"github.com/BuzzLyutic/minutes-tracker/internal/testdb"
)

var start = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

type env struct {
	store   repo.Store
	clock   *clock.Manual
	minutes *MinutesService
	tasks   *TaskService
	teams   *TeamService
	fx      testdb.Fixture
}

func newEnv(t *testing.T, store repo.Store, loc *time.Location) *env {
	t.Helper()
	clk := clock.NewManual(start)
	tx := NewTxRunner(store, time.Second, zap.NewNop())
	minutes := NewMinutesService(store, tx, clk, loc)
	return &env{
		store:   store,
		clock:   clk,
		minutes: minutes,
		tasks:   NewTaskService(store, tx, NewRecorder(minutes, clk), clk),
		teams:   NewTeamService(store, clk),
		fx:      testdb.SeedTeam(t, store, testdb.UniqueName("Team")),
	}
}

func (e *env) admin() model.Actor {
	return model.Actor{UserID: e.fx.Admin.ID, Role: model.RoleAdmin}
}

func (e *env) coordinator() model.Actor {
	return model.Actor{UserID: e.fx.Coordinator.UserID, Role: model.RoleCoordinator}
}

func (e *env) member() model.Actor {
	return model.Actor{UserID: e.fx.Member.UserID, Role: model.RoleMember}
}

func (e *env) createTask(t *testing.T, title string) model.TaskDetails {
	t.Helper()
	d, _, err := e.tasks.Create(context.Background(), e.coordinator(), model.NewTask{
		TeamID:              e.fx.Team.ID,
		ResponsibleMemberID: ptr(e.fx.Member.ID),
		Title:               title,
	}, "")
	require.NoError(t, err)
	return d
}

func (e *env) todaysSnapshots(t *testing.T) []model.Snapshot {
	t.Helper()
	got, err := e.minutes.GetByTeamAndDate(context.Background(), e.fx.Team.ID, e.minutes.Today())
	require.NoError(t, err)
	return got.Snapshots
}
