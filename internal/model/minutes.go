package model

import "time"

// DateLayout is the calendar-date format minutes are bucketed by.
const DateLayout = "2006-01-02"

// Minutes is the meeting record for one team on one calendar date.
type Minutes struct {
	ID         string    `json:"id"`
	TeamID     string    `json:"teamId"`
	Date       string    `json:"date"`
	Venue      *string   `json:"venue"`
	Attendance []string  `json:"attendance"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type MinutesWithSnapshots struct {
	Minutes
	Team      Team       `json:"team"`
	Snapshots []Snapshot `json:"snapshots"`
}

// MinutesPatch edits the meeting details of a day.
type MinutesPatch struct {
	Venue      Optional[string] `json:"venue,omitzero"`
	Attendance *[]string        `json:"attendance,omitempty"`
}

func (p MinutesPatch) Empty() bool {
	return !p.Venue.Set && p.Attendance == nil
}

// ValidDate reports whether s is a YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	t, err := time.Parse(DateLayout, s)
	return err == nil && t.Format(DateLayout) == s
}
