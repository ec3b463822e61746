package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/BuzzLyutic/minutes-tracker/internal/clock"
	"github.com/BuzzLyutic/minutes-tracker/internal/model"
	"github.com/BuzzLyutic/minutes-tracker/internal/repo"
)

// Recorder appends task snapshots to the current day's minutes.
type Recorder struct {
	minutes *MinutesService
	clock   clock.Clock
}

func NewRecorder(minutes *MinutesService, clk clock.Clock) *Recorder {
	return &Recorder{minutes: minutes, clock: clk}
}

// RecordChange must run inside the transaction that wrote the task so the
// task write and its snapshot commit or roll back together.
//
// recordedAt never goes backwards within one minutes record: the minutes row
// is locked before the latest recordedAt is read, and a clock that lags the
// last entry is clamped to it. Seq orders entries with equal recordedAt.
func (r *Recorder) RecordChange(ctx context.Context, q repo.Queries, task model.TaskDetails, kind model.ChangeType, actorID string) (model.Snapshot, error) {
	if !kind.Valid() {
		return model.Snapshot{}, fmt.Errorf("%w: unknown change type %q", ErrValidation, kind)
	}

	now := r.clock.Now()
	m, err := r.minutes.resolve(ctx, q, task.TeamID, clock.Date(now, r.minutes.loc), now)
	if err != nil {
		return model.Snapshot{}, err
	}
	if err := q.LockMinutes(ctx, m.ID); err != nil {
		return model.Snapshot{}, err
	}
	latest, err := q.LatestSnapshotTime(ctx, m.ID)
	if err != nil {
		return model.Snapshot{}, err
	}

	recordedAt := now.UTC().Truncate(time.Microsecond)
	if recordedAt.Before(latest) {
		recordedAt = latest.UTC()
	}

	return q.InsertSnapshot(ctx, model.Snapshot{
		ID:            uuid.NewString(),
		MinutesID:     m.ID,
		TaskID:        task.ID,
		ChangeType:    kind,
		RecordedAt:    recordedAt,
		TaskUpdatedAt: task.UpdatedAt,
		ActorID:       actorID,
		Payload:       model.NewPayload(task),
	})
}
