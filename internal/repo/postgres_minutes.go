package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/BuzzLyutic/minutes-tracker/internal/model"
)

const minutesColumns = `id, team_id, date, venue, attendance, created_at, updated_at`

func scanMinutes(row pgx.Row) (model.Minutes, error) {
	var (
		m          model.Minutes
		attendance []byte
	)
	if err := row.Scan(&m.ID, &m.TeamID, &m.Date, &m.Venue, &attendance, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return m, err
	}
	if err := json.Unmarshal(attendance, &m.Attendance); err != nil {
		return m, fmt.Errorf("decode attendance: %w", err)
	}
	if m.Attendance == nil {
		m.Attendance = []string{}
	}
	return m, nil
}

func encodeAttendance(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	return json.Marshal(ids)
}

func (q *pgQueries) FindMinutes(ctx context.Context, teamID, date string) (model.Minutes, error) {
	m, err := scanMinutes(q.db.QueryRow(ctx, `
		SELECT `+minutesColumns+`
		FROM minutes
		WHERE team_id = $1 AND date = $2
	`, teamID, date))
	return m, pgNotFound("minutes", "find minutes", err)
}

// InsertMinutesIfAbsent uses ON CONFLICT DO NOTHING rather than catching
// 23505, because a raised unique violation would abort the surrounding
// transaction. A concurrent uncommitted insert makes this statement wait for
// that transaction to finish.
func (q *pgQueries) InsertMinutesIfAbsent(ctx context.Context, m model.Minutes) (bool, error) {
	attendance, err := encodeAttendance(m.Attendance)
	if err != nil {
		return false, err
	}
	cmd, err := q.db.Exec(ctx, `
		INSERT INTO minutes (`+minutesColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT ON CONSTRAINT minutes_team_date_key DO NOTHING
	`, m.ID, m.TeamID, m.Date, m.Venue, attendance, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return false, pgError("insert minutes", err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (q *pgQueries) LockMinutes(ctx context.Context, id string) error {
	var locked string
	err := q.db.QueryRow(ctx, `SELECT id FROM minutes WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	return pgNotFound("minutes", "lock minutes", err)
}

func (q *pgQueries) UpdateMinutes(ctx context.Context, m model.Minutes) (model.Minutes, error) {
	attendance, err := encodeAttendance(m.Attendance)
	if err != nil {
		return m, err
	}
	m, err = scanMinutes(q.db.QueryRow(ctx, `
		UPDATE minutes
		SET venue = $2, attendance = $3, updated_at = $4
		WHERE id = $1
		RETURNING `+minutesColumns,
		m.ID, m.Venue, attendance, m.UpdatedAt,
	))
	return m, pgNotFound("minutes", "update minutes", err)
}

func (q *pgQueries) ListMinutesByTeam(ctx context.Context, teamID string) ([]model.Minutes, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+minutesColumns+`
		FROM minutes
		WHERE team_id = $1
		ORDER BY date DESC
	`, teamID)
	if err != nil {
		return nil, pgError("list minutes", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Minutes, error) {
		return scanMinutes(row)
	})
	return list, pgError("list minutes", err)
}

const snapshotColumns = `seq, id, minutes_id, task_id, change_type, recorded_at, task_updated_at, actor_id, payload`

func scanSnapshot(row pgx.Row) (model.Snapshot, error) {
	var (
		s       model.Snapshot
		payload []byte
	)
	err := row.Scan(
		&s.Seq, &s.ID, &s.MinutesID, &s.TaskID, &s.ChangeType,
		&s.RecordedAt, &s.TaskUpdatedAt, &s.ActorID, &payload,
	)
	if err != nil {
		return s, err
	}
	s.Payload, err = model.DecodePayload(payload)
	return s, err
}

func (q *pgQueries) InsertSnapshot(ctx context.Context, s model.Snapshot) (model.Snapshot, error) {
	payload, err := model.EncodePayload(s.Payload)
	if err != nil {
		return s, fmt.Errorf("encode snapshot payload: %w", err)
	}
	s, err = scanSnapshot(q.db.QueryRow(ctx, `
		INSERT INTO snapshots (id, minutes_id, task_id, change_type, recorded_at, task_updated_at, actor_id, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+snapshotColumns,
		s.ID, s.MinutesID, s.TaskID, s.ChangeType, s.RecordedAt, s.TaskUpdatedAt, s.ActorID, payload,
	))
	return s, pgError("insert snapshot", err)
}

func (q *pgQueries) LatestSnapshotTime(ctx context.Context, minutesID string) (time.Time, error) {
	var latest *time.Time
	err := q.db.QueryRow(ctx, `SELECT max(recorded_at) FROM snapshots WHERE minutes_id = $1`, minutesID).Scan(&latest)
	if err != nil || latest == nil {
		return time.Time{}, pgError("latest snapshot", err)
	}
	return *latest, nil
}

func (q *pgQueries) ListSnapshots(ctx context.Context, minutesID string) ([]model.Snapshot, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+snapshotColumns+`
		FROM snapshots
		WHERE minutes_id = $1
		ORDER BY recorded_at DESC, seq DESC
	`, minutesID)
	if err != nil {
		return nil, pgError("list snapshots", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Snapshot, error) {
		return scanSnapshot(row)
	})
	return list, pgError("list snapshots", err)
}

func (q *pgQueries) CountSnapshots(ctx context.Context, minutesID string) (int, error) {
	var n int
	err := q.db.QueryRow(ctx, `SELECT count(*) FROM snapshots WHERE minutes_id = $1`, minutesID).Scan(&n)
	return n, pgError("count snapshots", err)
}
