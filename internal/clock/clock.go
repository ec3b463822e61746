// Package clock supplies the current time to the minutes bucketing logic so
// that "today" can be pinned in tests.
package clock

import (
	"sync"
	"time"

	"github.com/BuzzLyutic/minutes-tracker/internal/model"
)

type Clock interface {
	Now() time.Time
}

type System struct{}

func (System) Now() time.Time { return time.Now() }

// Date formats t as the calendar date it falls on in loc.
func Date(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(model.DateLayout)
}

// Manual is a settable clock for tests. Each Now call advances it by Step.
type Manual struct {
	mu   sync.Mutex
	now  time.Time
	Step time.Duration
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.now
	m.now = m.now.Add(m.Step)
	return t
}

func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}
