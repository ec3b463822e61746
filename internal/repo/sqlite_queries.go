package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BuzzLyutic/minutes-tracker/internal/model"
)

type userRecord struct {
	ID          string `gorm:"primaryKey"`
	Email       string `gorm:"not null;uniqueIndex"`
	DisplayName *string
	PhotoURL    *string
	IsAdmin     bool      `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime:false"`
}

func (userRecord) TableName() string { return "users" }

type teamRecord struct {
	ID           string `gorm:"primaryKey"`
	Name         string `gorm:"not null;uniqueIndex"`
	DefaultVenue *string
	CreatedAt    time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt    time.Time `gorm:"not null;autoUpdateTime:false"`
}

func (teamRecord) TableName() string { return "teams" }

type memberRecord struct {
	ID            string    `gorm:"primaryKey"`
	TeamID        string    `gorm:"not null;uniqueIndex:idx_team_members_team_user,priority:1"`
	UserID        string    `gorm:"not null;uniqueIndex:idx_team_members_team_user,priority:2"`
	IsCoordinator bool      `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime:false"`

	Team *teamRecord `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE"`
	User *userRecord `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (memberRecord) TableName() string { return "team_members" }

type taskRecord struct {
	ID                  string  `gorm:"primaryKey"`
	TeamID              string  `gorm:"not null;index"`
	ResponsibleMemberID *string `gorm:"index"`
	Title               string  `gorm:"not null"`
	Notes               *string
	Status              string `gorm:"not null"`
	Priority            string `gorm:"not null"`
	DueDate             *time.Time
	CreatedAt           time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt           time.Time `gorm:"not null;autoUpdateTime:false"`

	Team              *teamRecord   `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE"`
	ResponsibleMember *memberRecord `gorm:"foreignKey:ResponsibleMemberID;constraint:OnDelete:SET NULL"`
}

func (taskRecord) TableName() string { return "tasks" }

// idempotencyKeyRecord.TaskID is a soft reference, like snapshotRecord.TaskID.
type idempotencyKeyRecord struct {
	Key       string    `gorm:"column:idempotency_key;primaryKey"`
	TaskID    string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (idempotencyKeyRecord) TableName() string { return "idempotency_keys" }

type minutesRecord struct {
	ID         string `gorm:"primaryKey"`
	TeamID     string `gorm:"not null;uniqueIndex:idx_minutes_team_date,priority:1"`
	Date       string `gorm:"not null;uniqueIndex:idx_minutes_team_date,priority:2"`
	Venue      *string
	Attendance []string  `gorm:"serializer:json;not null"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt  time.Time `gorm:"not null;autoUpdateTime:false"`

	Team *teamRecord `gorm:"foreignKey:TeamID"`
}

func (minutesRecord) TableName() string { return "minutes" }

type snapshotRecord struct {
	Seq           int64     `gorm:"primaryKey;autoIncrement"`
	ID            string    `gorm:"not null;uniqueIndex"`
	MinutesID     string    `gorm:"not null;index:idx_snapshots_minutes"`
	TaskID        string    `gorm:"not null;index"`
	ChangeType    string    `gorm:"not null"`
	RecordedAt    time.Time `gorm:"not null"`
	TaskUpdatedAt time.Time `gorm:"not null"`
	ActorID       string    `gorm:"not null"`
	Payload       string    `gorm:"not null"`

	// task_id is a soft reference so history outlives the task row.
	Minutes *minutesRecord `gorm:"foreignKey:MinutesID"`
}

func (snapshotRecord) TableName() string { return "snapshots" }

type gormQueries struct {
	db *gorm.DB
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (q *gormQueries) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	rec := userRecord{
		ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, PhotoURL: u.PhotoURL,
		IsAdmin: u.IsAdmin, CreatedAt: u.CreatedAt.UTC(), UpdatedAt: u.UpdatedAt.UTC(),
	}
	if err := q.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return u, gormError("create user", err)
	}
	return rec.toModel(), nil
}

func (r userRecord) toModel() model.User {
	return model.User{
		ID: r.ID, Email: r.Email, DisplayName: r.DisplayName, PhotoURL: r.PhotoURL,
		IsAdmin: r.IsAdmin, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func (q *gormQueries) GetUser(ctx context.Context, id string) (model.User, error) {
	var rec userRecord
	err := q.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	return rec.toModel(), gormNotFound("user", "get user", err)
}

func (q *gormQueries) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var rec userRecord
	err := q.db.WithContext(ctx).Where("lower(email) = lower(?)", email).Take(&rec).Error
	return rec.toModel(), gormNotFound("user", "get user", err)
}

func (r teamRecord) toModel() model.Team {
	return model.Team{ID: r.ID, Name: r.Name, DefaultVenue: r.DefaultVenue, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

func (q *gormQueries) CreateTeam(ctx context.Context, t model.Team) (model.Team, error) {
	rec := teamRecord{
		ID: t.ID, Name: t.Name, DefaultVenue: t.DefaultVenue,
		CreatedAt: t.CreatedAt.UTC(), UpdatedAt: t.UpdatedAt.UTC(),
	}
	if err := q.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return t, gormError("create team", err)
	}
	return rec.toModel(), nil
}

func (q *gormQueries) GetTeam(ctx context.Context, id string) (model.Team, error) {
	var rec teamRecord
	err := q.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	return rec.toModel(), gormNotFound("team", "get team", err)
}

func (q *gormQueries) ListTeams(ctx context.Context) ([]model.Team, error) {
	var recs []teamRecord
	if err := q.db.WithContext(ctx).Order("name").Find(&recs).Error; err != nil {
		return nil, gormError("list teams", err)
	}
	teams := make([]model.Team, 0, len(recs))
	for _, r := range recs {
		teams = append(teams, r.toModel())
	}
	return teams, nil
}

func (r memberRecord) toModel() model.TeamMember {
	return model.TeamMember{ID: r.ID, TeamID: r.TeamID, UserID: r.UserID, IsCoordinator: r.IsCoordinator, CreatedAt: r.CreatedAt}
}

func (q *gormQueries) UpdateTeam(ctx context.Context, t model.Team) (model.Team, error) {
	rec := teamRecord{ID: t.ID, Name: t.Name, DefaultVenue: t.DefaultVenue, UpdatedAt: t.UpdatedAt.UTC()}
	res := q.db.WithContext(ctx).Model(&teamRecord{}).Where("id = ?", t.ID).
		Select("name", "default_venue", "updated_at").
		Updates(&rec)
	if res.Error != nil {
		return t, gormError("update team", res.Error)
	}
	if res.RowsAffected == 0 {
		return t, notFound("team")
	}
	return q.GetTeam(ctx, t.ID)
}

func (q *gormQueries) CreateMember(ctx context.Context, m model.TeamMember) (model.TeamMember, error) {
	rec := memberRecord{
		ID: m.ID, TeamID: m.TeamID, UserID: m.UserID,
		IsCoordinator: m.IsCoordinator, CreatedAt: m.CreatedAt.UTC(),
	}
	if err := q.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return m, gormError("create member", err)
	}
	return rec.toModel(), nil
}

func (q *gormQueries) GetMember(ctx context.Context, id string) (model.MemberWithUser, error) {
	var rec memberRecord
	if err := q.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error; err != nil {
		return model.MemberWithUser{}, gormNotFound("team member", "get member", err)
	}
	user, err := q.GetUser(ctx, rec.UserID)
	if err != nil {
		return model.MemberWithUser{}, err
	}
	return model.MemberWithUser{TeamMember: rec.toModel(), User: user}, nil
}

func (q *gormQueries) ListMembers(ctx context.Context, teamID string) ([]model.MemberWithUser, error) {
	var recs []memberRecord
	if err := q.db.WithContext(ctx).Where("team_id = ?", teamID).Order("created_at, id").Find(&recs).Error; err != nil {
		return nil, gormError("list members", err)
	}
	members := make([]model.MemberWithUser, 0, len(recs))
	for _, r := range recs {
		user, err := q.GetUser(ctx, r.UserID)
		if err != nil {
			return nil, err
		}
		members = append(members, model.MemberWithUser{TeamMember: r.toModel(), User: user})
	}
	return members, nil
}

func (q *gormQueries) IsCoordinator(ctx context.Context, userID, teamID string) (bool, error) {
	var n int64
	err := q.db.WithContext(ctx).Model(&memberRecord{}).
		Where("user_id = ? AND team_id = ? AND is_coordinator", userID, teamID).
		Count(&n).Error
	return n > 0, gormError("is coordinator", err)
}

func (q *gormQueries) IsMember(ctx context.Context, userID, teamID string) (bool, error) {
	var n int64
	err := q.db.WithContext(ctx).Model(&memberRecord{}).
		Where("user_id = ? AND team_id = ?", userID, teamID).
		Count(&n).Error
	return n > 0, gormError("is member", err)
}

func newTaskRecord(t model.Task) taskRecord {
	return taskRecord{
		ID: t.ID, TeamID: t.TeamID, ResponsibleMemberID: t.ResponsibleMemberID,
		Title: t.Title, Notes: t.Notes, Status: string(t.Status), Priority: string(t.Priority),
		DueDate: utcPtr(t.DueDate), CreatedAt: t.CreatedAt.UTC(), UpdatedAt: t.UpdatedAt.UTC(),
	}
}

func (r taskRecord) toModel() model.Task {
	return model.Task{
		ID: r.ID, TeamID: r.TeamID, ResponsibleMemberID: r.ResponsibleMemberID,
		Title: r.Title, Notes: r.Notes, Status: model.Status(r.Status), Priority: model.Priority(r.Priority),
		DueDate: r.DueDate, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func (q *gormQueries) InsertTask(ctx context.Context, t model.Task) (model.Task, error) {
	rec := newTaskRecord(t)
	if err := q.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return t, gormError("insert task", err)
	}
	return rec.toModel(), nil
}

func (q *gormQueries) GetTask(ctx context.Context, id string) (model.Task, error) {
	var rec taskRecord
	err := q.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	return rec.toModel(), gormNotFound("task", "get task", err)
}

// GetTaskForUpdate needs no row lock: the single connection already
// serializes transactions.
func (q *gormQueries) GetTaskForUpdate(ctx context.Context, id string) (model.Task, error) {
	return q.GetTask(ctx, id)
}

func (q *gormQueries) UpdateTask(ctx context.Context, t model.Task) (model.Task, error) {
	rec := newTaskRecord(t)
	res := q.db.WithContext(ctx).Model(&taskRecord{}).Where("id = ?", t.ID).
		Select("responsible_member_id", "title", "notes", "status", "priority", "due_date", "updated_at").
		Updates(&rec)
	if res.Error != nil {
		return t, gormError("update task", res.Error)
	}
	if res.RowsAffected == 0 {
		return t, notFound("task")
	}
	return q.GetTask(ctx, t.ID)
}

func (q *gormQueries) DeleteTask(ctx context.Context, id string) error {
	res := q.db.WithContext(ctx).Where("id = ?", id).Delete(&taskRecord{})
	if res.Error != nil {
		return gormError("delete task", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("task")
	}
	return nil
}

func (q *gormQueries) ListTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	db := q.db.WithContext(ctx).Model(&taskRecord{})
	if filter.TeamID != "" {
		db = db.Where("team_id = ?", filter.TeamID)
	}
	if filter.MemberID != "" {
		db = db.Where("responsible_member_id = ?", filter.MemberID)
	}
	if !filter.IncludeCompleted {
		db = db.Where("status NOT IN ?", []string{string(model.StatusDone), string(model.StatusCanceled)})
	}

	var recs []taskRecord
	if err := db.Order("updated_at DESC, id").Find(&recs).Error; err != nil {
		return nil, gormError("list tasks", err)
	}
	tasks := make([]model.Task, 0, len(recs))
	for _, r := range recs {
		tasks = append(tasks, r.toModel())
	}
	return tasks, nil
}

func (q *gormQueries) SaveIdempotencyKey(ctx context.Context, key, taskID string) (bool, error) {
	rec := idempotencyKeyRecord{Key: key, TaskID: taskID}
	res := q.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "idempotency_key"}}, DoNothing: true}).
		Create(&rec)
	if res.Error != nil {
		err := gormError("save idempotency key", res.Error)
		if errors.Is(err, ErrorConflict) {
			return false, nil
		}
		return false, err
	}
	return res.RowsAffected == 1, nil
}

func (q *gormQueries) GetIdempotencyKey(ctx context.Context, key string) (string, error) {
	var rec idempotencyKeyRecord
	err := q.db.WithContext(ctx).Where("idempotency_key = ?", key).Take(&rec).Error
	return rec.TaskID, gormNotFound("idempotency key", "get idempotency key", err)
}

func (r minutesRecord) toModel() model.Minutes {
	attendance := r.Attendance
	if attendance == nil {
		attendance = []string{}
	}
	return model.Minutes{
		ID: r.ID, TeamID: r.TeamID, Date: r.Date, Venue: r.Venue, Attendance: attendance,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func newMinutesRecord(m model.Minutes) minutesRecord {
	attendance := m.Attendance
	if attendance == nil {
		attendance = []string{}
	}
	return minutesRecord{
		ID: m.ID, TeamID: m.TeamID, Date: m.Date, Venue: m.Venue, Attendance: attendance,
		CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC(),
	}
}

func (q *gormQueries) FindMinutes(ctx context.Context, teamID, date string) (model.Minutes, error) {
	var rec minutesRecord
	err := q.db.WithContext(ctx).Where("team_id = ? AND date = ?", teamID, date).Take(&rec).Error
	return rec.toModel(), gormNotFound("minutes", "find minutes", err)
}

func (q *gormQueries) InsertMinutesIfAbsent(ctx context.Context, m model.Minutes) (bool, error) {
	rec := newMinutesRecord(m)
	res := q.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "team_id"}, {Name: "date"}},
			DoNothing: true,
		}).
		Create(&rec)
	if res.Error != nil {
		err := gormError("insert minutes", res.Error)
		if errors.Is(err, ErrorConflict) {
			return false, nil
		}
		return false, err
	}
	return res.RowsAffected == 1, nil
}

func (q *gormQueries) LockMinutes(ctx context.Context, id string) error {
	var n int64
	if err := q.db.WithContext(ctx).Model(&minutesRecord{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return gormError("lock minutes", err)
	}
	if n == 0 {
		return notFound("minutes")
	}
	return nil
}

func (q *gormQueries) UpdateMinutes(ctx context.Context, m model.Minutes) (model.Minutes, error) {
	rec := newMinutesRecord(m)
	res := q.db.WithContext(ctx).Model(&minutesRecord{}).Where("id = ?", m.ID).
		Select("venue", "attendance", "updated_at").
		Updates(&rec)
	if res.Error != nil {
		return m, gormError("update minutes", res.Error)
	}
	if res.RowsAffected == 0 {
		return m, notFound("minutes")
	}
	var out minutesRecord
	err := q.db.WithContext(ctx).Where("id = ?", m.ID).Take(&out).Error
	return out.toModel(), gormNotFound("minutes", "get minutes", err)
}

func (q *gormQueries) ListMinutesByTeam(ctx context.Context, teamID string) ([]model.Minutes, error) {
	var recs []minutesRecord
	if err := q.db.WithContext(ctx).Where("team_id = ?", teamID).Order("date DESC").Find(&recs).Error; err != nil {
		return nil, gormError("list minutes", err)
	}
	list := make([]model.Minutes, 0, len(recs))
	for _, r := range recs {
		list = append(list, r.toModel())
	}
	return list, nil
}

func (r snapshotRecord) toModel() (model.Snapshot, error) {
	payload, err := model.DecodePayload([]byte(r.Payload))
	if err != nil {
		return model.Snapshot{}, &StorageError{Op: "decode snapshot " + r.ID, Err: err}
	}
	return model.Snapshot{
		ID: r.ID, MinutesID: r.MinutesID, TaskID: r.TaskID, ChangeType: model.ChangeType(r.ChangeType),
		Seq: r.Seq, RecordedAt: r.RecordedAt, TaskUpdatedAt: r.TaskUpdatedAt, ActorID: r.ActorID,
		Payload: payload,
	}, nil
}

func (q *gormQueries) InsertSnapshot(ctx context.Context, s model.Snapshot) (model.Snapshot, error) {
	payload, err := model.EncodePayload(s.Payload)
	if err != nil {
		return s, &StorageError{Op: "encode snapshot", Err: err}
	}
	rec := snapshotRecord{
		ID: s.ID, MinutesID: s.MinutesID, TaskID: s.TaskID, ChangeType: string(s.ChangeType),
		RecordedAt: s.RecordedAt.UTC(), TaskUpdatedAt: s.TaskUpdatedAt.UTC(), ActorID: s.ActorID,
		Payload: string(payload),
	}
	if err := q.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return s, gormError("insert snapshot", err)
	}
	return rec.toModel()
}

func (q *gormQueries) LatestSnapshotTime(ctx context.Context, minutesID string) (time.Time, error) {
	var rec snapshotRecord
	err := q.db.WithContext(ctx).Where("minutes_id = ?", minutesID).
		Order("recorded_at DESC, seq DESC").Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, gormError("latest snapshot", err)
	}
	return rec.RecordedAt, nil
}

func (q *gormQueries) ListSnapshots(ctx context.Context, minutesID string) ([]model.Snapshot, error) {
	var recs []snapshotRecord
	err := q.db.WithContext(ctx).Where("minutes_id = ?", minutesID).
		Order("recorded_at DESC, seq DESC").Find(&recs).Error
	if err != nil {
		return nil, gormError("list snapshots", err)
	}
	list := make([]model.Snapshot, 0, len(recs))
	for _, r := range recs {
		s, err := r.toModel()
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, nil
}

func (q *gormQueries) CountSnapshots(ctx context.Context, minutesID string) (int, error) {
	var n int64
	err := q.db.WithContext(ctx).Model(&snapshotRecord{}).Where("minutes_id = ?", minutesID).Count(&n).Error
	return int(n), gormError("count snapshots", err)
}
