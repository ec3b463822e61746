// Package policy decides which task fields a role may change.
package policy

import (
	"errors"
	"fmt"

	"github.com/BuzzLyutic/minutes-tracker/internal/model"
)

var (
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation error")
)

type fieldSet map[model.Field]bool

func allFields() fieldSet {
	s := fieldSet{}
	for _, f := range model.AllFields {
		s[f] = true
	}
	return s
}

// mutableFields is the whole policy. Coordinators get every field here; the
// check that they coordinate the task's team belongs to the caller.
var mutableFields = map[model.Role]fieldSet{
	model.RoleSuperadmin:  allFields(),
	model.RoleAdmin:       allFields(),
	model.RoleCoordinator: allFields(),
	model.RoleMember: {
		model.FieldStatus:   true,
		model.FieldNotes:    true,
		model.FieldPriority: true,
	},
}

// MutableFields returns the fields role may change, in model.AllFields order.
func MutableFields(role model.Role) []model.Field {
	allowed := mutableFields[role]
	var out []model.Field
	for _, f := range model.AllFields {
		if allowed[f] {
			out = append(out, f)
		}
	}
	return out
}

// FilterMutableFields drops the fields role may not change. Dropping is
// silent; a patch left empty by the drop is rejected as forbidden, a patch
// that was empty to begin with as invalid.
func FilterMutableFields(role model.Role, patch model.TaskPatch) (model.TaskPatch, error) {
	allowed, ok := mutableFields[role]
	if !ok {
		return model.TaskPatch{}, fmt.Errorf("%w: unknown role %q", ErrForbidden, role)
	}
	if patch.Empty() {
		return model.TaskPatch{}, fmt.Errorf("%w: no fields to update", ErrValidation)
	}

	filtered := patch.Only(func(f model.Field) bool { return allowed[f] })
	if filtered.Empty() {
		if role == model.RoleMember {
			return filtered, fmt.Errorf("%w: members can only update status, notes and priority", ErrForbidden)
		}
		return filtered, fmt.Errorf("%w: role %s may not change these fields", ErrForbidden, role)
	}

	if filtered.Status != nil && !filtered.Status.Valid() {
		return filtered, fmt.Errorf("%w: invalid status %q", ErrValidation, *filtered.Status)
	}
	return filtered, nil
}
