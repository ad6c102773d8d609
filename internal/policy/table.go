package policy

import (
	"context"
	"fmt"
	"sort"
	"strings"

	database "github.com/Armour007/wellness-backend/internal"
)

// TableEngine evaluates requests directly against an in-memory rule table.
type TableEngine struct {
	rules map[Action]map[database.Role]Rule
	list  []Rule
}

// NewTableEngine indexes rules. Later duplicates of an (action, role) pair win.
func NewTableEngine(rules []Rule) *TableEngine {
	e := &TableEngine{rules: map[Action]map[database.Role]Rule{}}
	for _, r := range rules {
		if e.rules[r.Action] == nil {
			e.rules[r.Action] = map[database.Role]Rule{}
		}
		e.rules[r.Action][r.Role] = r
	}
	for _, byRole := range e.rules {
		for _, r := range byRole {
			e.list = append(e.list, r)
		}
	}
	sort.Slice(e.list, func(i, j int) bool {
		if e.list[i].Action != e.list[j].Action {
			return e.list[i].Action < e.list[j].Action
		}
		return e.list[i].Role < e.list[j].Role
	})
	return e
}

func (e *TableEngine) Name() string { return EngineTable }

// Rules returns the table sorted by action then role.
func (e *TableEngine) Rules() []Rule { return append([]Rule(nil), e.list...) }

// Lookup returns the rule for (action, role) and whether the action is known at all.
func (e *TableEngine) Lookup(a Action, role database.Role) (rule Rule, found bool, known bool) {
	byRole, known := e.rules[a]
	if !known {
		return Rule{}, false, false
	}
	rule, found = byRole[role]
	return rule, found, true
}

func (e *TableEngine) Evaluate(_ context.Context, s Subject, a Action, r Resource) (Decision, error) {
	rule, found, known := e.Lookup(a, s.Role)
	if !known {
		return Decision{Reason: "unknown action"}, fmt.Errorf("%w: %s", ErrUnknownAction, a)
	}
	if !found {
		return Decision{Reason: deniedRole(s.Role, a)}, nil
	}
	return Apply(rule, s, r), nil
}

// Apply checks a matched rule's target-role and scope constraints.
func Apply(rule Rule, s Subject, r Resource) Decision {
	if len(rule.TargetRoles) > 0 && r.TargetRole != "" && !containsRole(rule.TargetRoles, r.TargetRole) {
		return Decision{Scope: rule.Scope, Reason: fmt.Sprintf("%s users may only act on %s accounts", title(s.Role), joinRoles(rule.TargetRoles))}
	}
	switch rule.Scope {
	case ScopeAll:
		return Decision{Allow: true, Scope: rule.Scope}
	case ScopeDepartment:
		if s.DepartmentID == nil {
			return Decision{Scope: rule.Scope, Reason: "You are not assigned to a department"}
		}
		if r.DepartmentID == nil || *r.DepartmentID != *s.DepartmentID {
			return Decision{Scope: rule.Scope, Reason: fmt.Sprintf("%s users may only act within their own department", title(s.Role))}
		}
		return Decision{Allow: true, Scope: rule.Scope}
	case ScopeSelf:
		if r.OwnerID == nil || *r.OwnerID != s.UserID {
			return Decision{Scope: rule.Scope, Reason: "You may only act on your own data"}
		}
		return Decision{Allow: true, Scope: rule.Scope}
	}
	return Decision{Scope: rule.Scope, Reason: "rule has no valid scope"}
}

func deniedRole(role database.Role, a Action) string {
	return fmt.Sprintf("%s users are not authorized to perform %s", title(role), a)
}

func containsRole(list []database.Role, r database.Role) bool {
	for _, x := range list {
		if x == r {
			return true
		}
	}
	return false
}

func joinRoles(list []database.Role) string {
	parts := make([]string, len(list))
	for i, r := range list {
		parts[i] = strings.ToLower(string(r))
	}
	return strings.Join(parts, "/")
}

func title(r database.Role) string {
	s := strings.ToLower(string(r))
	if s == "" {
		return "Anonymous"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
