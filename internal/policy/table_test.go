package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	database "github.com/Armour007/wellness-backend/internal"
)

func i64(v int64) *int64 { return &v }

func TestTableEngine_Decisions(t *testing.T) {
	e := NewTableEngine(DefaultRules())
	ctx := context.Background()

	adminSub := Subject{UserID: 1, Role: database.RoleAdmin}
	sup := Subject{UserID: 2, Role: database.RoleSupervisor, DepartmentID: i64(1)}
	emp := Subject{UserID: 3, Role: database.RoleEmployee, DepartmentID: i64(1)}

	cases := []struct {
		name  string
		s     Subject
		a     Action
		r     Resource
		allow bool
	}{
		{"admin creates department", adminSub, ActionDepartmentCreate, Resource{}, true},
		{"supervisor cannot create department", sup, ActionDepartmentCreate, Resource{}, false},
		{"supervisor creates employee in own department", sup, ActionEmployeeCreate, Resource{DepartmentID: i64(1), TargetRole: database.RoleEmployee}, true},
		{"supervisor cannot create employee elsewhere", sup, ActionEmployeeCreate, Resource{DepartmentID: i64(2), TargetRole: database.RoleEmployee}, false},
		{"supervisor cannot register supervisor", sup, ActionUserRegister, Resource{DepartmentID: i64(1), TargetRole: database.RoleSupervisor}, false},
		{"admin registers any role", adminSub, ActionUserRegister, Resource{TargetRole: database.RoleAdmin}, true},
		{"admin cannot update employee via supervisor action", adminSub, ActionSupervisorUpdate, Resource{TargetRole: database.RoleEmployee}, false},
		{"employee views self", emp, ActionEmployeeView, Resource{OwnerID: i64(3)}, true},
		{"employee cannot view peer", emp, ActionEmployeeView, Resource{OwnerID: i64(4), DepartmentID: i64(1)}, false},
		{"employee submits own metrics", emp, ActionMetricSubmit, Own(emp), true},
		{"admin cannot submit metrics", adminSub, ActionMetricSubmit, Own(adminSub), false},
		{"supervisor views department metrics", sup, ActionDepartmentMetricsView, InDepartment(sup.DepartmentID), true},
		{"supervisor without department", Subject{UserID: 9, Role: database.RoleSupervisor}, ActionDepartmentMetricsView, InDepartment(i64(1)), false},
		{"employee cannot read audit", emp, ActionAuditView, InDepartment(i64(1)), false},
		{"supervisor deletes employee in own department", sup, ActionEmployeeDelete, Resource{DepartmentID: i64(1), TargetRole: database.RoleEmployee}, true},
		{"admin cannot delete employee", adminSub, ActionEmployeeDelete, Resource{DepartmentID: i64(1), TargetRole: database.RoleEmployee}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := e.Evaluate(ctx, tc.s, tc.a, tc.r)
			require.NoError(t, err)
			assert.Equal(t, tc.allow, d.Allow, d.Reason)
			if !tc.allow {
				assert.NotEmpty(t, d.Reason)
			}
		})
	}
}

func TestTableEngine_UnknownAction(t *testing.T) {
	e := NewTableEngine(DefaultRules())
	_, err := e.Evaluate(context.Background(), Subject{Role: database.RoleAdmin}, Action("nope"), Resource{})
	assert.True(t, errors.Is(err, ErrUnknownAction))
}

func TestTableEngine_RulesSortedAndDeduplicated(t *testing.T) {
	rules := []Rule{
		grant(ActionPolicyView, admin, ScopeAll),
		grant(ActionAuditView, admin, ScopeAll),
		grant(ActionAuditView, admin, ScopeDepartment),
	}
	e := NewTableEngine(rules)
	got := e.Rules()
	require.Len(t, got, 2)
	assert.Equal(t, ActionAuditView, got[0].Action)
	assert.Equal(t, ScopeDepartment, got[0].Scope)
	assert.Equal(t, ActionPolicyView, got[1].Action)
}

func TestApply_DenyReasons(t *testing.T) {
	sup := Subject{UserID: 2, Role: database.RoleSupervisor, DepartmentID: i64(1)}
	d := Apply(grant(ActionEmployeeUpdate, supervisor, ScopeDepartment, employee), sup, Resource{DepartmentID: i64(1), TargetRole: database.RoleAdmin})
	assert.False(t, d.Allow)
	assert.Contains(t, d.Reason, "employee")

	d = Apply(grant(ActionEmployeeUpdate, supervisor, ScopeDepartment, employee), sup, Resource{DepartmentID: i64(5), TargetRole: database.RoleEmployee})
	assert.False(t, d.Allow)
	assert.Contains(t, d.Reason, "own department")
}
