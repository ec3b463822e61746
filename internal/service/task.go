package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/BuzzLyutic/minutes-tracker/internal/clock"
	"github.com/BuzzLyutic/minutes-tracker/internal/model"
	"github.com/BuzzLyutic/minutes-tracker/internal/policy"
	"github.com/BuzzLyutic/minutes-tracker/internal/repo"
)

type TaskService struct {
	store    repo.Store
	tx       *TxRunner
	recorder *Recorder
	clock    clock.Clock
}

func NewTaskService(store repo.Store, tx *TxRunner, recorder *Recorder, clk clock.Clock) *TaskService {
	return &TaskService{store: store, tx: tx, recorder: recorder, clock: clk}
}

// Create inserts a task and records an Added snapshot in the same
// transaction. A non-empty idempKey that was already used returns the task
// created under it and a zero Snapshot, without writing anything.
func (s *TaskService) Create(ctx context.Context, actor model.Actor, in model.NewTask, idempKey string) (model.TaskDetails, model.Snapshot, error) {
	task, err := s.newTask(in) // Валидация и значения по умолчанию до открытия транзакции
	if err != nil {
		return model.TaskDetails{}, model.Snapshot{}, err
	}

	var (
		details model.TaskDetails
		snap    model.Snapshot
	)
	err = s.tx.Run(ctx, "create task", func(q repo.Queries) error {
		if _, err := q.GetTeam(ctx, task.TeamID); err != nil {
			return err
		}
		if err := requireManager(ctx, q, actor, task.TeamID, "create tasks"); err != nil {
			return err
		}

		// Идемпотентность: ключ занимается до вставки задачи, повтор запроса получает уже созданную задачу
		if idempKey != "" {
			saved, err := q.SaveIdempotencyKey(ctx, idempKey, task.ID)
			if err != nil {
				return err
			}
			if !saved {
				details, err = s.replay(ctx, q, idempKey)
				return err
			}
		}

		if err := checkResponsible(ctx, q, task.TeamID, task.ResponsibleMemberID); err != nil {
			return err
		}

		// Создание задачи
		created, err := q.InsertTask(ctx, task)
		if err != nil {
			return err
		}
		if details, err = s.details(ctx, q, created); err != nil {
			return err
		}

		// Снимок Added в протокол сегодняшнего собрания, в той же транзакции
		snap, err = s.recorder.RecordChange(ctx, q, details, model.ChangeAdded, actor.UserID)
		return err
	})
	if err != nil {
		return model.TaskDetails{}, model.Snapshot{}, err
	}
	return details, snap, nil
}

func (s *TaskService) replay(ctx context.Context, q repo.Queries, idempKey string) (model.TaskDetails, error) {
	id, err := q.GetIdempotencyKey(ctx, idempKey)
	if err != nil {
		return model.TaskDetails{}, err
	}
	existing, err := q.GetTask(ctx, id)
	if errors.Is(err, repo.ErrorNotFound) {
		return model.TaskDetails{}, fmt.Errorf("idempotency key %q: task was deleted: %w", idempKey, repo.ErrorConflict)
	}
	if err != nil {
		return model.TaskDetails{}, err
	}
	return s.details(ctx, q, existing)
}

func (s *TaskService) newTask(in model.NewTask) (model.Task, error) {
	now := s.clock.Now().UTC().Truncate(time.Microsecond)
	t := model.Task{
		ID:                  uuid.NewString(),
		TeamID:              strings.TrimSpace(in.TeamID),
		ResponsibleMemberID: emptyToNil(in.ResponsibleMemberID),
		Title:               strings.TrimSpace(in.Title),
		Notes:               in.Notes,
		Status:              in.Status,
		Priority:            in.Priority,
		DueDate:             in.DueDate,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if t.Status == "" {
		t.Status = model.StatusOpen
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}

	if t.TeamID == "" {
		return t, fmt.Errorf("%w: teamId is required", ErrValidation)
	}
	if err := validateTitle(t.Title); err != nil {
		return t, err
	}
	if !t.Status.Valid() {
		return t, fmt.Errorf("%w: invalid status %q", ErrValidation, t.Status)
	}
	if !t.Priority.Valid() {
		return t, fmt.Errorf("%w: invalid priority %q", ErrValidation, t.Priority)
	}
	return t, nil
}

// Update applies the fields of patch the actor's role may change and records
// an Edited snapshot.
func (s *TaskService) Update(ctx context.Context, actor model.Actor, id string, patch model.TaskPatch) (model.TaskDetails, model.Snapshot, error) {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		patch.Title = &title
	}
	if patch.ResponsibleMemberID.Set {
		patch.ResponsibleMemberID.Value = emptyToNil(patch.ResponsibleMemberID.Value)
	}

	var (
		details model.TaskDetails
		snap    model.Snapshot
	)
	err := s.tx.Run(ctx, "update task", func(q repo.Queries) error {
		task, err := q.GetTaskForUpdate(ctx, id) // Блокируем строку задачи до конца транзакции
		if err != nil {
			return err
		}

		// Роль в команде задачи определяет, какие поля можно менять
		role, err := effectiveRole(ctx, q, actor, task.TeamID)
		if err != nil {
			return err
		}
		allowed, err := policy.FilterMutableFields(role, patch)
		if err != nil {
			return err
		}
		if err := validatePatch(ctx, q, task.TeamID, allowed); err != nil {
			return err
		}

		// Применяем разрешенные поля
		allowed.Apply(&task)
		task.UpdatedAt = s.clock.Now().UTC().Truncate(time.Microsecond)
		updated, err := q.UpdateTask(ctx, task)
		if err != nil {
			return err
		}
		if details, err = s.details(ctx, q, updated); err != nil {
			return err
		}
		snap, err = s.recorder.RecordChange(ctx, q, details, model.ChangeEdited, actor.UserID)
		return err
	})
	if err != nil {
		return model.TaskDetails{}, model.Snapshot{}, err
	}
	return details, snap, nil
}

// Delete records a Deleted snapshot carrying the last state of the task and
// then removes the task row.
func (s *TaskService) Delete(ctx context.Context, actor model.Actor, id string) (model.Snapshot, error) {
	var snap model.Snapshot
	err := s.tx.Run(ctx, "delete task", func(q repo.Queries) error {
		task, err := q.GetTaskForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := requireManager(ctx, q, actor, task.TeamID, "delete tasks"); err != nil {
			return err
		}
		// Снимок пишется до удаления, пока задача еще есть
		details, err := s.details(ctx, q, task)
		if err != nil {
			return err
		}
		if snap, err = s.recorder.RecordChange(ctx, q, details, model.ChangeDeleted, actor.UserID); err != nil {
			return err
		}
		return q.DeleteTask(ctx, id)
	})
	if err != nil {
		return model.Snapshot{}, err
	}
	return snap, nil
}

func (s *TaskService) Get(ctx context.Context, id string) (model.TaskDetails, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return model.TaskDetails{}, err
	}
	return s.details(ctx, s.store, task)
}

// List returns the tasks of a team or of one responsible member. Done and
// Canceled tasks are left out unless filter.IncludeCompleted is set.
func (s *TaskService) List(ctx context.Context, filter model.TaskFilter) ([]model.TaskDetails, error) {
	if filter.TeamID == "" && filter.MemberID == "" {
		return nil, fmt.Errorf("%w: teamId or memberId required", ErrValidation)
	}
	tasks, err := s.store.ListTasks(ctx, filter)
	if err != nil {
		return nil, err
	}

	r := newDetailsResolver(s.store)
	out := make([]model.TaskDetails, 0, len(tasks))
	for _, t := range tasks {
		d, err := r.resolve(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *TaskService) details(ctx context.Context, q repo.Queries, t model.Task) (model.TaskDetails, error) {
	return newDetailsResolver(q).resolve(ctx, t)
}

// detailsResolver caches teams and members across one listing.
type detailsResolver struct {
	q       repo.Queries
	teams   map[string]model.Team
	members map[string]*model.MemberWithUser
}

func newDetailsResolver(q repo.Queries) *detailsResolver {
	return &detailsResolver{
		q:       q,
		teams:   map[string]model.Team{},
		members: map[string]*model.MemberWithUser{},
	}
}

func (r *detailsResolver) resolve(ctx context.Context, t model.Task) (model.TaskDetails, error) {
	team, ok := r.teams[t.TeamID]
	if !ok {
		var err error
		if team, err = r.q.GetTeam(ctx, t.TeamID); err != nil {
			return model.TaskDetails{}, err
		}
		r.teams[t.TeamID] = team
	}

	d := model.TaskDetails{Task: t, Team: team}
	if t.ResponsibleMemberID == nil {
		return d, nil
	}
	id := *t.ResponsibleMemberID
	member, ok := r.members[id]
	if !ok {
		m, err := r.q.GetMember(ctx, id)
		switch {
		case err == nil:
			member = &m
		case errors.Is(err, repo.ErrorNotFound):
		default:
			return model.TaskDetails{}, err
		}
		r.members[id] = member
	}
	d.ResponsibleMember = member
	return d, nil
}

// effectiveRole maps the actor's claimed role onto the task's team.
// Coordinators of another team and non-members are refused outright.
func effectiveRole(ctx context.Context, q repo.Queries, actor model.Actor, teamID string) (model.Role, error) {
	if actor.UserID == "" {
		return "", fmt.Errorf("%w: not authorized to update this task", ErrForbidden)
	}
	if actor.Role.Privileged() {
		return actor.Role, nil
	}

	var (
		ok  bool
		err error
	)
	switch actor.Role {
	case model.RoleCoordinator:
		ok, err = q.IsCoordinator(ctx, actor.UserID, teamID)
	case model.RoleMember:
		ok, err = q.IsMember(ctx, actor.UserID, teamID)
	}
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: not authorized to update this task", ErrForbidden)
	}
	return actor.Role, nil
}

func validateTitle(title string) error {
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if utf8.RuneCountInString(title) > model.MaxTitleLength {
		return fmt.Errorf("%w: title must be at most %d characters", ErrValidation, model.MaxTitleLength)
	}
	return nil
}

func validatePatch(ctx context.Context, q repo.Queries, teamID string, p model.TaskPatch) error {
	if p.Title != nil {
		if err := validateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, *p.Status)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return fmt.Errorf("%w: invalid priority %q", ErrValidation, *p.Priority)
	}
	if p.ResponsibleMemberID.Set {
		return checkResponsible(ctx, q, teamID, p.ResponsibleMemberID.Value)
	}
	return nil
}

func checkResponsible(ctx context.Context, q repo.Queries, teamID string, memberID *string) error {
	if memberID == nil {
		return nil
	}
	m, err := q.GetMember(ctx, *memberID)
	if errors.Is(err, repo.ErrorNotFound) || (err == nil && m.TeamID != teamID) {
		return fmt.Errorf("%w: responsible member must belong to the same team", ErrValidation)
	}
	return err
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
