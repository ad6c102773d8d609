package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	database "github.com/Armour007/wellness-backend/internal"
	"github.com/Armour007/wellness-backend/internal/policy"
)

func roleOf(s string) database.Role {
	return database.Role(strings.ToUpper(strings.TrimSpace(s)))
}

type ruleLister interface {
	Rules() []policy.Rule
}

// GET /policy/rules
func ListPolicyRules(c *gin.Context) {
	var rules []policy.Rule
	if l, ok := engine.(ruleLister); ok {
		rules = l.Rules()
	} else {
		rules = policy.NewTableEngine(policy.DefaultRules()).Rules()
	}
	c.JSON(http.StatusOK, gin.H{"engine": engine.Name(), "rules": rules, "count": len(rules)})
}

type evaluateReq struct {
	Action       policy.Action `json:"action" binding:"required"`
	Role         string        `json:"role" binding:"required"`
	DepartmentID *int64        `json:"department_id"`
	Resource     struct {
		OwnerID      *int64 `json:"owner_id"`
		DepartmentID *int64 `json:"department_id"`
		TargetRole   string `json:"target_role"`
	} `json:"resource"`
}

// POST /policy/evaluate dry-runs a decision for an arbitrary subject.
func EvaluatePolicy(c *gin.Context) {
	var req evaluateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	s := policy.Subject{UserID: -1, Role: roleOf(req.Role), DepartmentID: req.DepartmentID}
	r := policy.Resource{OwnerID: req.Resource.OwnerID, DepartmentID: req.Resource.DepartmentID, TargetRole: roleOf(req.Resource.TargetRole)}
	d, err := engine.Evaluate(c.Request.Context(), s, req.Action, r)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"engine": engine.Name(), "decision": d})
}
