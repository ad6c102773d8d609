// Package policy is the single authorization table for the API. Handlers ask an
// Engine whether a subject may perform an action on a resource instead of
// repeating role and department checks inline.
package policy

import (
	"context"
	"errors"

	database "github.com/Armour007/wellness-backend/internal"
)

// Engine names
const (
	EngineTable = "table"
	EngineRego  = "rego"
)

// ErrUnknownAction is returned for actions missing from the table.
var ErrUnknownAction = errors.New("unknown policy action")

type Action string

// Scope bounds which resources a rule reaches.
type Scope string

const (
	ScopeAll        Scope = "all"
	ScopeDepartment Scope = "department"
	ScopeSelf       Scope = "self"
)

// Subject is the authenticated caller.
type Subject struct {
	UserID       int64
	Role         database.Role
	DepartmentID *int64
}

// Resource describes what the action touches. Zero fields are unconstrained
// except where the matched rule's scope needs them.
type Resource struct {
	OwnerID      *int64
	DepartmentID *int64
	TargetRole   database.Role
}

// Rule grants one role one action within a scope. TargetRoles, when set,
// restricts which user roles the action may create or modify.
type Rule struct {
	Action      Action          `json:"action"`
	Role        database.Role   `json:"role"`
	Scope       Scope           `json:"scope"`
	TargetRoles []database.Role `json:"target_roles,omitempty"`
}

// Decision is the outcome of evaluation.
type Decision struct {
	Allow  bool   `json:"allow"`
	Reason string `json:"reason,omitempty"`
	Scope  Scope  `json:"scope,omitempty"`
}

// Engine evaluates authorization requests.
type Engine interface {
	Evaluate(ctx context.Context, s Subject, a Action, r Resource) (Decision, error)
	Name() string
}

// ForUser builds a Resource owned by a user.
func ForUser(u database.User) Resource {
	id := u.ID
	return Resource{OwnerID: &id, DepartmentID: u.DepartmentID, TargetRole: u.Role}
}

// InDepartment builds a Resource scoped to a department.
func InDepartment(departmentID *int64) Resource {
	return Resource{DepartmentID: departmentID}
}

// Own builds a Resource owned by the subject itself, inside its department.
func Own(s Subject) Resource {
	id := s.UserID
	return Resource{OwnerID: &id, DepartmentID: s.DepartmentID}
}
