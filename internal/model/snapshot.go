package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

type ChangeType string

const (
	ChangeAdded   ChangeType = "Added"
	ChangeEdited  ChangeType = "Edited"
	ChangeDeleted ChangeType = "Deleted"
)

func (c ChangeType) Valid() bool {
	switch c {
	case ChangeAdded, ChangeEdited, ChangeDeleted:
		return true
	}
	return false
}

// Snapshot is an append-only audit entry. Seq is assigned by the store in
// insertion order and breaks RecordedAt ties.
type Snapshot struct {
	ID            string     `json:"id"`
	MinutesID     string     `json:"minutesId"`
	TaskID        string     `json:"taskId"`
	ChangeType    ChangeType `json:"changeType"`
	Seq           int64      `json:"seq"`
	RecordedAt    time.Time  `json:"recordedAt"`
	TaskUpdatedAt time.Time  `json:"taskUpdatedAt"`
	ActorID       string     `json:"actorId"`
	Payload       PayloadV1  `json:"payload"`
}

const PayloadVersion = 1

var ErrUnsupportedPayloadVersion = errors.New("unsupported snapshot payload version")

// PayloadV1 is the frozen, self-contained task state stored with a snapshot.
// Field names are part of the persisted format; add a PayloadV2 rather than
// changing them.
type PayloadV1 struct {
	Version             int        `json:"version"`
	ID                  string     `json:"id"`
	TeamID              string     `json:"teamId"`
	TeamName            string     `json:"teamName"`
	ResponsibleMemberID *string    `json:"responsibleMemberId"`
	ResponsibleUserID   *string    `json:"responsibleUserId"`
	ResponsibleName     *string    `json:"responsibleName"`
	ResponsibleEmail    *string    `json:"responsibleEmail"`
	Title               string     `json:"title"`
	Notes               *string    `json:"notes"`
	Status              Status     `json:"status"`
	Priority            Priority   `json:"priority"`
	DueDate             *time.Time `json:"dueDate"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

func NewPayload(t TaskDetails) PayloadV1 {
	p := PayloadV1{
		Version:             PayloadVersion,
		ID:                  t.ID,
		TeamID:              t.TeamID,
		TeamName:            t.Team.Name,
		ResponsibleMemberID: t.ResponsibleMemberID,
		Title:               t.Title,
		Notes:               t.Notes,
		Status:              t.Status,
		Priority:            t.Priority,
		DueDate:             t.DueDate,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
	if m := t.ResponsibleMember; m != nil {
		userID, name, email := m.User.ID, m.User.Name(), m.User.Email
		p.ResponsibleUserID = &userID
		p.ResponsibleName = &name
		p.ResponsibleEmail = &email
	}
	return p
}

func EncodePayload(p PayloadV1) ([]byte, error) {
	p.Version = PayloadVersion
	return json.Marshal(p)
}

// DecodePayload reads a stored payload. Blobs without a version field are
// the legacy bare-task shape, whose keys are a subset of PayloadV1.
func DecodePayload(raw []byte) (PayloadV1, error) {
	var p PayloadV1
	if !gjson.ValidBytes(raw) {
		return p, fmt.Errorf("decode snapshot payload: invalid json")
	}
	version := gjson.GetBytes(raw, "version")
	switch {
	case !version.Exists(), version.Int() == 1:
		if err := json.Unmarshal(raw, &p); err != nil {
			return p, fmt.Errorf("decode snapshot payload: %w", err)
		}
		p.Version = PayloadVersion
		return p, nil
	default:
		return p, fmt.Errorf("%w: %s", ErrUnsupportedPayloadVersion, version.Raw)
	}
}
