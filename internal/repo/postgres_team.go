package repo

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/BuzzLyutic/minutes-tracker/internal/model"
)

func (q *pgQueries) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	err := q.db.QueryRow(ctx, `
		INSERT INTO users (id, email, display_name, photo_url, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, email, display_name, photo_url, is_admin, created_at, updated_at
	`, u.ID, u.Email, u.DisplayName, u.PhotoURL, u.IsAdmin, u.CreatedAt, u.UpdatedAt).Scan(
		&u.ID, &u.Email, &u.DisplayName, &u.PhotoURL, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, pgError("create user", err)
}

func (q *pgQueries) GetUser(ctx context.Context, id string) (model.User, error) {
	return q.getUser(ctx, `WHERE id = $1`, id)
}

func (q *pgQueries) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return q.getUser(ctx, `WHERE lower(email) = lower($1)`, email)
}

func (q *pgQueries) getUser(ctx context.Context, where string, arg string) (model.User, error) {
	var u model.User
	err := q.db.QueryRow(ctx, `
		SELECT id, email, display_name, photo_url, is_admin, created_at, updated_at
		FROM users `+where, arg).Scan(
		&u.ID, &u.Email, &u.DisplayName, &u.PhotoURL, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, pgNotFound("user", "get user", err)
}

func (q *pgQueries) CreateTeam(ctx context.Context, t model.Team) (model.Team, error) {
	err := q.db.QueryRow(ctx, `
		INSERT INTO teams (id, name, default_venue, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, default_venue, created_at, updated_at
	`, t.ID, t.Name, t.DefaultVenue, t.CreatedAt, t.UpdatedAt).Scan(
		&t.ID, &t.Name, &t.DefaultVenue, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, pgError("create team", err)
}

func (q *pgQueries) GetTeam(ctx context.Context, id string) (model.Team, error) {
	var t model.Team
	err := q.db.QueryRow(ctx, `
		SELECT id, name, default_venue, created_at, updated_at
		FROM teams
		WHERE id = $1
	`, id).Scan(&t.ID, &t.Name, &t.DefaultVenue, &t.CreatedAt, &t.UpdatedAt)
	return t, pgNotFound("team", "get team", err)
}

func (q *pgQueries) ListTeams(ctx context.Context) ([]model.Team, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, name, default_venue, created_at, updated_at
		FROM teams
		ORDER BY name
	`)
	if err != nil {
		return nil, pgError("list teams", err)
	}
	teams, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Team, error) {
		var t model.Team
		err := row.Scan(&t.ID, &t.Name, &t.DefaultVenue, &t.CreatedAt, &t.UpdatedAt)
		return t, err
	})
	return teams, pgError("list teams", err)
}

func (q *pgQueries) UpdateTeam(ctx context.Context, t model.Team) (model.Team, error) {
	err := q.db.QueryRow(ctx, `
		UPDATE teams
		SET name = $2, default_venue = $3, updated_at = $4
		WHERE id = $1
		RETURNING id, name, default_venue, created_at, updated_at
	`, t.ID, t.Name, t.DefaultVenue, t.UpdatedAt).Scan(
		&t.ID, &t.Name, &t.DefaultVenue, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, pgNotFound("team", "update team", err)
}

func (q *pgQueries) CreateMember(ctx context.Context, m model.TeamMember) (model.TeamMember, error) {
	err := q.db.QueryRow(ctx, `
		INSERT INTO team_members (id, team_id, user_id, is_coordinator, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, team_id, user_id, is_coordinator, created_at
	`, m.ID, m.TeamID, m.UserID, m.IsCoordinator, m.CreatedAt).Scan(
		&m.ID, &m.TeamID, &m.UserID, &m.IsCoordinator, &m.CreatedAt,
	)
	return m, pgError("create member", err)
}

const memberWithUserColumns = `
	m.id, m.team_id, m.user_id, m.is_coordinator, m.created_at,
	u.id, u.email, u.display_name, u.photo_url, u.is_admin, u.created_at, u.updated_at`

func scanMemberWithUser(row pgx.Row) (model.MemberWithUser, error) {
	var m model.MemberWithUser
	err := row.Scan(
		&m.ID, &m.TeamID, &m.UserID, &m.IsCoordinator, &m.CreatedAt,
		&m.User.ID, &m.User.Email, &m.User.DisplayName, &m.User.PhotoURL, &m.User.IsAdmin,
		&m.User.CreatedAt, &m.User.UpdatedAt,
	)
	return m, err
}

func (q *pgQueries) GetMember(ctx context.Context, id string) (model.MemberWithUser, error) {
	m, err := scanMemberWithUser(q.db.QueryRow(ctx, `
		SELECT `+memberWithUserColumns+`
		FROM team_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.id = $1
	`, id))
	return m, pgNotFound("team member", "get member", err)
}

func (q *pgQueries) ListMembers(ctx context.Context, teamID string) ([]model.MemberWithUser, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+memberWithUserColumns+`
		FROM team_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.team_id = $1
		ORDER BY m.created_at, m.id
	`, teamID)
	if err != nil {
		return nil, pgError("list members", err)
	}
	members, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.MemberWithUser, error) {
		return scanMemberWithUser(row)
	})
	return members, pgError("list members", err)
}

func (q *pgQueries) IsCoordinator(ctx context.Context, userID, teamID string) (bool, error) {
	var ok bool
	err := q.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM team_members
			WHERE user_id = $1 AND team_id = $2 AND is_coordinator
		)
	`, userID, teamID).Scan(&ok)
	return ok, pgError("is coordinator", err)
}

func (q *pgQueries) IsMember(ctx context.Context, userID, teamID string) (bool, error) {
	var ok bool
	err := q.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM team_members WHERE user_id = $1 AND team_id = $2
		)
	`, userID, teamID).Scan(&ok)
	return ok, pgError("is member", err)
}
