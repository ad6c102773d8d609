// Package opa evaluates the authorization table with OPA/Rego. The table is
// loaded as data.rules and a fixed module decides allow from it.
package opa

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
	"github.com/open-policy-agent/opa/storage/inmem"

	"github.com/Armour007/wellness-backend/internal/policy"
)

const module = `package wellness.authz

default allow = false

rule := r {
	r := data.rules[input.action][input.subject.role]
}

target_ok {
	not rule.target_roles
}

target_ok {
	count(rule.target_roles) == 0
}

target_ok {
	input.resource.target_role == ""
}

target_ok {
	rule.target_roles[_] == input.resource.target_role
}

scope_ok {
	rule.scope == "all"
}

scope_ok {
	rule.scope == "department"
	input.subject.department_id != null
	input.resource.department_id == input.subject.department_id
}

scope_ok {
	rule.scope == "self"
	input.resource.owner_id == input.subject.user_id
}

allow {
	rule
	target_ok
	scope_ok
}
`

// Engine implements policy.Engine using OPA/Rego.
type Engine struct {
	query rego.PreparedEvalQuery
	table *policy.TableEngine
}

// New prepares the Rego query over rules.
func New(ctx context.Context, rules []policy.Rule) (*Engine, error) {
	table := policy.NewTableEngine(rules)
	data, err := rulesData(table.Rules())
	if err != nil {
		return nil, err
	}
	r := rego.New(
		rego.Module("wellness.rego", module),
		rego.Query("data.wellness.authz.allow"),
		rego.Store(inmem.NewFromObject(map[string]interface{}{"rules": data})),
	)
	pq, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare rego: %w", err)
	}
	return &Engine{query: pq, table: table}, nil
}

func (e *Engine) Name() string { return policy.EngineRego }

// Rules returns the table the module was compiled from.
func (e *Engine) Rules() []policy.Rule { return e.table.Rules() }

// Evaluate returns Allow true when data.wellness.authz.allow is true. Deny
// reasons come from the table so both engines report the same message.
func (e *Engine) Evaluate(ctx context.Context, s policy.Subject, a policy.Action, r policy.Resource) (policy.Decision, error) {
	rule, found, known := e.table.Lookup(a, s.Role)
	if !known {
		return policy.Decision{Reason: "unknown action"}, fmt.Errorf("%w: %s", policy.ErrUnknownAction, a)
	}
	res, err := e.query.Eval(ctx, rego.EvalInput(input(s, a, r)))
	if err != nil {
		return policy.Decision{}, err
	}
	allow := false
	if len(res) > 0 && len(res[0].Expressions) > 0 {
		if b, ok := res[0].Expressions[0].Value.(bool); ok {
			allow = b
		}
	}
	if allow {
		return policy.Decision{Allow: true, Scope: rule.Scope}, nil
	}
	d, err := e.table.Evaluate(ctx, s, a, r)
	if err != nil {
		return policy.Decision{}, err
	}
	if !found || d.Allow {
		d = policy.Decision{Scope: rule.Scope, Reason: d.Reason}
	}
	if d.Reason == "" {
		d.Reason = "denied by rego policy"
	}
	return d, nil
}

func input(s policy.Subject, a policy.Action, r policy.Resource) map[string]interface{} {
	subject := map[string]interface{}{
		"user_id":       s.UserID,
		"role":          string(s.Role),
		"department_id": nil,
	}
	if s.DepartmentID != nil {
		subject["department_id"] = *s.DepartmentID
	}
	resource := map[string]interface{}{
		"target_role":   string(r.TargetRole),
		"department_id": nil,
		"owner_id":      nil,
	}
	if r.DepartmentID != nil {
		resource["department_id"] = *r.DepartmentID
	}
	if r.OwnerID != nil {
		resource["owner_id"] = *r.OwnerID
	}
	return map[string]interface{}{
		"action":   string(a),
		"subject":  subject,
		"resource": resource,
	}
}

// rulesData nests rules as action -> role -> rule in plain JSON values.
func rulesData(rules []policy.Rule) (map[string]interface{}, error) {
	nested := map[string]map[string]policy.Rule{}
	for _, r := range rules {
		if nested[string(r.Action)] == nil {
			nested[string(r.Action)] = map[string]policy.Rule{}
		}
		nested[string(r.Action)][string(r.Role)] = r
	}
	b, err := json.Marshal(nested)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
