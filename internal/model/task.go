package model

import "time"

type Status string

const (
	StatusOpen       Status = "Open"
	StatusInProgress Status = "In-Progress"
	StatusBlocked    Status = "Blocked"
	StatusDone       Status = "Done"
	StatusCanceled   Status = "Canceled"
)

// Statuses lists the canonical task states in workflow order.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusBlocked, StatusDone, StatusCanceled}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Completed reports whether the task has left the active board.
func (s Status) Completed() bool {
	return s == StatusDone || s == StatusCanceled
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

const MaxTitleLength = 120

type Task struct {
	ID                  string     `json:"id"`
	TeamID              string     `json:"teamId"`
	ResponsibleMemberID *string    `json:"responsibleMemberId"`
	Title               string     `json:"title"`
	Notes               *string    `json:"notes"`
	Status              Status     `json:"status"`
	Priority            Priority   `json:"priority"`
	DueDate             *time.Time `json:"dueDate"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// TaskDetails is a task with its team and assignee resolved.
type TaskDetails struct {
	Task
	Team              Team            `json:"team"`
	ResponsibleMember *MemberWithUser `json:"responsibleMember,omitempty"`
}

// NewTask is the create request. Zero Status and Priority take the defaults.
type NewTask struct {
	TeamID              string     `json:"teamId"`
	ResponsibleMemberID *string    `json:"responsibleMemberId"`
	Title               string     `json:"title"`
	Notes               *string    `json:"notes"`
	Status              Status     `json:"status"`
	Priority            Priority   `json:"priority"`
	DueDate             *time.Time `json:"dueDate"`
}

type TaskFilter struct {
	TeamID           string
	MemberID         string
	IncludeCompleted bool
}
