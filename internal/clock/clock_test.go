package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate(t *testing.T) {
	// 23:30 UTC on the 15th is already the 16th in Tokyo.
	ts := time.Date(2026, 10, 15, 23, 30, 0, 0, time.UTC)
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	assert.Equal(t, "2026-10-15", Date(ts, time.UTC))
	assert.Equal(t, "2026-10-15", Date(ts, nil))
	assert.Equal(t, "2026-10-16", Date(ts, tokyo))
}

func TestManual(t *testing.T) {
	start := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	c := NewManual(start)
	c.Step = time.Second

	assert.Equal(t, start, c.Now())
	assert.Equal(t, start.Add(time.Second), c.Now())

	c.Advance(time.Hour)
	assert.Equal(t, start.Add(2*time.Second+time.Hour), c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}
