package opa

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	database "github.com/Armour007/wellness-backend/internal"
	"github.com/Armour007/wellness-backend/internal/policy"
)

func i64(v int64) *int64 { return &v }

func TestEngine_AgreesWithTable(t *testing.T) {
	ctx := context.Background()
	rules := policy.DefaultRules()
	table := policy.NewTableEngine(rules)
	rg, err := New(ctx, rules)
	require.NoError(t, err)
	assert.Equal(t, policy.EngineRego, rg.Name())

	subjects := []policy.Subject{
		{UserID: 1, Role: database.RoleAdmin},
		{UserID: 2, Role: database.RoleSupervisor, DepartmentID: i64(1)},
		{UserID: 3, Role: database.RoleEmployee, DepartmentID: i64(1)},
		{UserID: 4, Role: database.RoleSupervisor},
	}
	resources := []policy.Resource{
		{},
		{DepartmentID: i64(1)},
		{DepartmentID: i64(2)},
		{OwnerID: i64(3), DepartmentID: i64(1), TargetRole: database.RoleEmployee},
		{OwnerID: i64(2), DepartmentID: i64(1), TargetRole: database.RoleSupervisor},
		{OwnerID: i64(1), TargetRole: database.RoleAdmin},
	}
	seen := map[policy.Action]bool{}
	for _, r := range rules {
		seen[r.Action] = true
	}
	for a := range seen {
		for _, s := range subjects {
			for _, res := range resources {
				want, err := table.Evaluate(ctx, s, a, res)
				require.NoError(t, err)
				got, err := rg.Evaluate(ctx, s, a, res)
				require.NoError(t, err)
				assert.Equal(t, want.Allow, got.Allow, "action=%s role=%s resource=%+v", a, s.Role, res)
			}
		}
	}
}

func TestEngine_UnknownAction(t *testing.T) {
	rg, err := New(context.Background(), policy.DefaultRules())
	require.NoError(t, err)
	_, err = rg.Evaluate(context.Background(), policy.Subject{Role: database.RoleAdmin}, "missing.action", policy.Resource{})
	assert.ErrorIs(t, err, policy.ErrUnknownAction)
}

func TestEngine_DenyReason(t *testing.T) {
	rg, err := New(context.Background(), policy.DefaultRules())
	require.NoError(t, err)
	d, err := rg.Evaluate(context.Background(), policy.Subject{UserID: 3, Role: database.RoleEmployee}, policy.ActionDepartmentCreate, policy.Resource{})
	require.NoError(t, err)
	assert.False(t, d.Allow)
	assert.Contains(t, d.Reason, "Employee users are not authorized")
}
