package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/BuzzLyutic/minutes-tracker/internal/model"
)

func snap(id, task string, seq int64, at time.Time) model.Snapshot {
	return model.Snapshot{ID: id, TaskID: task, Seq: seq, RecordedAt: at}
}

func TestCollapseLatestPerTask(t *testing.T) {
	t0 := start
	t1 := start.Add(time.Minute)

	tests := []struct {
		name  string
		snaps []model.Snapshot
		want  map[string]string
	}{
		{
			name:  "empty",
			snaps: nil,
			want:  map[string]string{},
		},
		{
			name:  "greater recordedAt wins regardless of order",
			snaps: []model.Snapshot{snap("b", "t1", 2, t1), snap("a", "t1", 1, t0)},
			want:  map[string]string{"t1": "b"},
		},
		{
			name:  "equal recordedAt falls back to seq",
			snaps: []model.Snapshot{snap("b", "t1", 7, t0), snap("a", "t1", 3, t0)},
			want:  map[string]string{"t1": "b"},
		},
		{
			name:  "full tie keeps the later entry",
			snaps: []model.Snapshot{snap("a", "t1", 0, t0), snap("b", "t1", 0, t0)},
			want:  map[string]string{"t1": "b"},
		},
		{
			name: "tasks are independent",
			snaps: []model.Snapshot{
				snap("a", "t1", 1, t0),
				snap("b", "t2", 2, t0),
				snap("c", "t1", 3, t1),
			},
			want: map[string]string{"t1": "c", "t2": "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CollapseLatestPerTask(tt.snaps)
			ids := map[string]string{}
			for task, s := range got {
				ids[task] = s.ID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestCollapseLatestPerTask_Idempotent(t *testing.T) {
	snaps := []model.Snapshot{
		snap("a", "t1", 1, start),
		snap("b", "t1", 2, start),
		snap("c", "t2", 3, start.Add(time.Second)),
		snap("d", "t3", 4, start.Add(-time.Second)),
	}

	once := CollapseLatestPerTask(snaps)
	flat := make([]model.Snapshot, 0, len(once))
	for _, s := range once {
		flat = append(flat, s)
	}
	assert.Equal(t, once, CollapseLatestPerTask(flat))
}

func TestLatestPerTask_Order(t *testing.T) {
	got := LatestPerTask([]model.Snapshot{
		snap("a", "t1", 1, start),
		snap("b", "t2", 2, start.Add(2*time.Second)),
		snap("c", "t1", 3, start.Add(time.Second)),
		snap("d", "t3", 4, start.Add(time.Second)),
	})

	var ids []string
	for _, s := range got {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"b", "d", "c"}, ids)
}
