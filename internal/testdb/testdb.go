// Package testdb provides store fixtures for tests: a throwaway SQLite file
// and a Postgres container started with testcontainers.
package testdb

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/BuzzLyutic/minutes-tracker/internal/model"
	"github.com/BuzzLyutic/minutes-tracker/internal/repo"
)

// SQLite opens a migrated store in a per-test temp directory.
func SQLite(t *testing.T) *repo.SQLiteStore {
	t.Helper()

	store, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "minutes.db"))
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate sqlite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// Postgres starts a postgres container and returns a migrated store plus the
// raw pool for assertions. Skipped under -short.
func Postgres(t *testing.T) (*repo.PostgresStore, *pgxpool.Pool) {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests skipped in -short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	store := repo.NewPostgresStore(pool)
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}
	return store, pool
}

// Fixture is a team with a coordinator and a plain member.
type Fixture struct {
	Team        model.Team
	Admin       model.User
	Coordinator model.MemberWithUser
	Member      model.MemberWithUser
}

func ptr[T any](v T) *T { return &v }

// SeedTeam creates a team named name with one coordinator and one member.
func SeedTeam(t *testing.T, q repo.Queries, name string) Fixture {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	team, err := q.CreateTeam(ctx, model.Team{
		ID:           uuid.NewString(),
		Name:         name,
		DefaultVenue: ptr(name + " Meeting Room"),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("Failed to seed team: %v", err)
	}

	f := Fixture{Team: team}
	f.Admin = SeedUser(t, q, "admin-"+team.ID+"@example.com", "Admin "+name, true)
	coord := SeedUser(t, q, "coord-"+team.ID+"@example.com", "Coordinator "+name, false)
	member := SeedUser(t, q, "member-"+team.ID+"@example.com", "Member "+name, false)
	f.Coordinator = SeedMember(t, q, team.ID, coord, true)
	f.Member = SeedMember(t, q, team.ID, member, false)
	return f
}

func SeedUser(t *testing.T, q repo.Queries, email, name string, admin bool) model.User {
	t.Helper()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	u, err := q.CreateUser(context.Background(), model.User{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: ptr(name),
		IsAdmin:     admin,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("Failed to seed user %s: %v", email, err)
	}
	return u
}

func SeedMember(t *testing.T, q repo.Queries, teamID string, u model.User, coordinator bool) model.MemberWithUser {
	t.Helper()
	m, err := q.CreateMember(context.Background(), model.TeamMember{
		ID:            uuid.NewString(),
		TeamID:        teamID,
		UserID:        u.ID,
		IsCoordinator: coordinator,
		CreatedAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Failed to seed member: %v", err)
	}
	return model.MemberWithUser{TeamMember: m, User: u}
}

// Backends runs fn once per store backend as subtests.
func Backends(t *testing.T, fn func(t *testing.T, store repo.Store)) {
	t.Run("sqlite", func(t *testing.T) {
		fn(t, SQLite(t))
	})
	t.Run("postgres", func(t *testing.T) {
		store, _ := Postgres(t)
		fn(t, store)
	})
}

// UniqueName returns a name that will not collide across subtests.
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}
