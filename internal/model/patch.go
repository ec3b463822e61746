package model

import (
	"encoding/json"
	"time"
)

// Optional distinguishes an absent JSON field from an explicit null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

func (o Optional[T]) IsZero() bool {
	return !o.Set
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// Field names a mutable task attribute; values match the JSON keys.
type Field string

const (
	FieldTitle             Field = "title"
	FieldNotes             Field = "notes"
	FieldStatus            Field = "status"
	FieldPriority          Field = "priority"
	FieldDueDate           Field = "dueDate"
	FieldResponsibleMember Field = "responsibleMemberId"
)

var AllFields = []Field{FieldTitle, FieldNotes, FieldStatus, FieldPriority, FieldDueDate, FieldResponsibleMember}

// TaskPatch is a partial task update. Only present fields are applied.
type TaskPatch struct {
	Title               *string             `json:"title,omitempty"`
	Notes               Optional[string]    `json:"notes,omitzero"`
	Status              *Status             `json:"status,omitempty"`
	Priority            *Priority           `json:"priority,omitempty"`
	DueDate             Optional[time.Time] `json:"dueDate,omitzero"`
	ResponsibleMemberID Optional[string]    `json:"responsibleMemberId,omitzero"`
}

func (p TaskPatch) Has(f Field) bool {
	switch f {
	case FieldTitle:
		return p.Title != nil
	case FieldNotes:
		return p.Notes.Set
	case FieldStatus:
		return p.Status != nil
	case FieldPriority:
		return p.Priority != nil
	case FieldDueDate:
		return p.DueDate.Set
	case FieldResponsibleMember:
		return p.ResponsibleMemberID.Set
	}
	return false
}

// Fields returns the present fields in AllFields order.
func (p TaskPatch) Fields() []Field {
	var out []Field
	for _, f := range AllFields {
		if p.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

func (p TaskPatch) Empty() bool {
	return len(p.Fields()) == 0
}

// Only returns a copy of p keeping just the fields for which keep is true.
func (p TaskPatch) Only(keep func(Field) bool) TaskPatch {
	var out TaskPatch
	if keep(FieldTitle) {
		out.Title = p.Title
	}
	if keep(FieldNotes) {
		out.Notes = p.Notes
	}
	if keep(FieldStatus) {
		out.Status = p.Status
	}
	if keep(FieldPriority) {
		out.Priority = p.Priority
	}
	if keep(FieldDueDate) {
		out.DueDate = p.DueDate
	}
	if keep(FieldResponsibleMember) {
		out.ResponsibleMemberID = p.ResponsibleMemberID
	}
	return out
}

// Apply writes the present fields onto t. It does not touch UpdatedAt.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Notes.Set {
		t.Notes = p.Notes.Value
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate.Set {
		t.DueDate = p.DueDate.Value
	}
	if p.ResponsibleMemberID.Set {
		t.ResponsibleMemberID = p.ResponsibleMemberID.Value
	}
}
