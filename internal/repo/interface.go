package repo

import (
	"context"
	"time"

	"github.com/BuzzLyutic/minutes-tracker/internal/model"
)

// Queries is the storage surface used by the services. It is implemented
// both by the store itself and by the transaction handle passed to InTx.
type Queries interface {
	CreateUser(ctx context.Context, u model.User) (model.User, error)
	GetUser(ctx context.Context, id string) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)

	CreateTeam(ctx context.Context, t model.Team) (model.Team, error)
	GetTeam(ctx context.Context, id string) (model.Team, error)
	ListTeams(ctx context.Context) ([]model.Team, error)
	UpdateTeam(ctx context.Context, t model.Team) (model.Team, error)

	CreateMember(ctx context.Context, m model.TeamMember) (model.TeamMember, error)
	GetMember(ctx context.Context, id string) (model.MemberWithUser, error)
	ListMembers(ctx context.Context, teamID string) ([]model.MemberWithUser, error)
	IsCoordinator(ctx context.Context, userID, teamID string) (bool, error)
	IsMember(ctx context.Context, userID, teamID string) (bool, error)

	InsertTask(ctx context.Context, t model.Task) (model.Task, error)
	GetTask(ctx context.Context, id string) (model.Task, error)
	// GetTaskForUpdate reads a task and locks its row until the end of the
	// surrounding transaction where the backend supports row locks.
	GetTaskForUpdate(ctx context.Context, id string) (model.Task, error)
	UpdateTask(ctx context.Context, t model.Task) (model.Task, error)
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error)

	// SaveIdempotencyKey binds key to taskID unless the key is already
	// taken. saved is false when another request claimed it first.
	SaveIdempotencyKey(ctx context.Context, key, taskID string) (saved bool, err error)
	GetIdempotencyKey(ctx context.Context, key string) (taskID string, err error)

	FindMinutes(ctx context.Context, teamID, date string) (model.Minutes, error)
	// InsertMinutesIfAbsent inserts m unless a row for (m.TeamID, m.Date)
	// already exists. created is false when another writer got there first;
	// the caller must re-read the row in that case.
	InsertMinutesIfAbsent(ctx context.Context, m model.Minutes) (created bool, err error)
	// LockMinutes serializes snapshot appends for one minutes row until the
	// surrounding transaction ends.
	LockMinutes(ctx context.Context, id string) error
	UpdateMinutes(ctx context.Context, m model.Minutes) (model.Minutes, error)
	ListMinutesByTeam(ctx context.Context, teamID string) ([]model.Minutes, error)

	// Snapshots are append-only: there is deliberately no update or delete.
	InsertSnapshot(ctx context.Context, s model.Snapshot) (model.Snapshot, error)
	LatestSnapshotTime(ctx context.Context, minutesID string) (time.Time, error)
	ListSnapshots(ctx context.Context, minutesID string) ([]model.Snapshot, error)
	CountSnapshots(ctx context.Context, minutesID string) (int, error)
}

type Store interface {
	Queries
	// InTx runs fn in one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise; fn's error is returned as is.
	InTx(ctx context.Context, fn func(q Queries) error) error
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
