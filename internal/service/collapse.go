package service

import (
	"sort"

	"github.com/BuzzLyutic/minutes-tracker/internal/model"
)

// CollapseLatestPerTask keeps the newest snapshot per task. Newest means
// greater RecordedAt, then greater Seq, then later position in snaps.
func CollapseLatestPerTask(snaps []model.Snapshot) map[string]model.Snapshot {
	latest := make(map[string]model.Snapshot, len(snaps))
	for _, s := range snaps {
		cur, ok := latest[s.TaskID]
		if !ok || !newer(cur, s) {
			latest[s.TaskID] = s
		}
	}
	return latest
}

// newer reports whether a is strictly newer than b.
func newer(a, b model.Snapshot) bool {
	if !a.RecordedAt.Equal(b.RecordedAt) {
		return a.RecordedAt.After(b.RecordedAt)
	}
	return a.Seq > b.Seq
}

// LatestPerTask returns the collapsed snapshots newest first.
func LatestPerTask(snaps []model.Snapshot) []model.Snapshot {
	collapsed := CollapseLatestPerTask(snaps)
	out := make([]model.Snapshot, 0, len(collapsed))
	for _, s := range collapsed {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if newer(out[i], out[j]) || newer(out[j], out[i]) {
			return newer(out[i], out[j])
		}
		return out[i].TaskID < out[j].TaskID
	})
	return out
}
