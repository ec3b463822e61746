package repo

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/BuzzLyutic/minutes-tracker/internal/model"
)

const taskColumns = `id, team_id, responsible_member_id, title, notes, status, priority, due_date, created_at, updated_at`

func scanTask(row pgx.Row) (model.Task, error) {
	var t model.Task
	err := row.Scan(
		&t.ID, &t.TeamID, &t.ResponsibleMemberID, &t.Title, &t.Notes,
		&t.Status, &t.Priority, &t.DueDate, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

func (q *pgQueries) InsertTask(ctx context.Context, t model.Task) (model.Task, error) {
	t, err := scanTask(q.db.QueryRow(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+taskColumns,
		t.ID, t.TeamID, t.ResponsibleMemberID, t.Title, t.Notes,
		t.Status, t.Priority, t.DueDate, t.CreatedAt, t.UpdatedAt,
	))
	return t, pgError("insert task", err)
}

func (q *pgQueries) GetTask(ctx context.Context, id string) (model.Task, error) {
	t, err := scanTask(q.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	return t, pgNotFound("task", "get task", err)
}

func (q *pgQueries) GetTaskForUpdate(ctx context.Context, id string) (model.Task, error) {
	t, err := scanTask(q.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id))
	return t, pgNotFound("task", "lock task", err)
}

func (q *pgQueries) UpdateTask(ctx context.Context, t model.Task) (model.Task, error) {
	t, err := scanTask(q.db.QueryRow(ctx, `
		UPDATE tasks
		SET responsible_member_id = $2, title = $3, notes = $4, status = $5,
		    priority = $6, due_date = $7, updated_at = $8
		WHERE id = $1
		RETURNING `+taskColumns,
		t.ID, t.ResponsibleMemberID, t.Title, t.Notes, t.Status, t.Priority, t.DueDate, t.UpdatedAt,
	))
	return t, pgNotFound("task", "update task", err)
}

func (q *pgQueries) DeleteTask(ctx context.Context, id string) error {
	cmd, err := q.db.Exec(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return pgError("delete task", err)
	}
	if cmd.RowsAffected() == 0 {
		return notFound("task")
	}
	return nil
}

func (q *pgQueries) ListTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE ($1::text = '' OR team_id = $1)
		  AND ($2::text = '' OR responsible_member_id = $2)
		  AND ($3::boolean OR status NOT IN ('Done', 'Canceled'))
		ORDER BY updated_at DESC, id
	`, filter.TeamID, filter.MemberID, filter.IncludeCompleted)
	if err != nil {
		return nil, pgError("list tasks", err)
	}
	tasks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Task, error) {
		return scanTask(row)
	})
	return tasks, pgError("list tasks", err)
}

// SaveIdempotencyKey waits on a concurrent uncommitted insert of the same
// key, so only one of two racing requests gets saved=true.
func (q *pgQueries) SaveIdempotencyKey(ctx context.Context, key, taskID string) (bool, error) {
	cmd, err := q.db.Exec(ctx, `
		INSERT INTO idempotency_keys (idempotency_key, task_id) VALUES ($1, $2)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, key, taskID)
	if err != nil {
		return false, pgError("save idempotency key", err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (q *pgQueries) GetIdempotencyKey(ctx context.Context, key string) (string, error) {
	var id string
	err := q.db.QueryRow(ctx, `SELECT task_id FROM idempotency_keys WHERE idempotency_key = $1`, key).Scan(&id)
	return id, pgNotFound("idempotency key", "get idempotency key", err)
}
