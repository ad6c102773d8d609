package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	database "github.com/Armour007/wellness-backend/internal"
	"github.com/Armour007/wellness-backend/internal/logging"
	"github.com/Armour007/wellness-backend/internal/policy"
)

func subjectOf(u database.User) policy.Subject {
	return policy.Subject{UserID: u.ID, Role: u.Role, DepartmentID: u.DepartmentID}
}

// authorize asks the policy engine and writes 401/403/500 when the request may
// not proceed. The caller returns immediately when ok is false.
func authorize(c *gin.Context, a policy.Action, r policy.Resource) (policy.Decision, bool) {
	u, ok := currentUser(c)
	if !ok {
		unauthorized(c, "Not authenticated")
		return policy.Decision{}, false
	}
	d, err := engine.Evaluate(c.Request.Context(), subjectOf(u), a, r)
	if err != nil {
		if errors.Is(err, policy.ErrUnknownAction) {
			logging.L().Error("policy action missing from table", zap.String("action", string(a)))
		} else {
			logging.L().Error("policy evaluation failed", zap.String("action", string(a)), zap.Error(err))
		}
		RecordPolicyDecision(string(a), engine.Name(), false)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authorization check failed"})
		return d, false
	}
	RecordPolicyDecision(string(a), engine.Name(), d.Allow)
	if !d.Allow {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": d.Reason})
		return d, false
	}
	return d, true
}

// RequireAction guards a route whose resource is the caller's own scope.
func RequireAction(a policy.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := currentUser(c)
		if !ok {
			unauthorized(c, "Not authenticated")
			return
		}
		if _, ok := authorize(c, a, policy.Own(subjectOf(u))); !ok {
			return
		}
		c.Next()
	}
}

// departmentScope returns the department a list should be limited to:
// nil for an all-scope decision, the caller's department otherwise.
func departmentScope(d policy.Decision, u database.User) *int64 {
	if d.Scope == policy.ScopeAll {
		return nil
	}
	return u.DepartmentID
}

// requestedDepartment reads an optional ?department_id= query value.
func requestedDepartment(c *gin.Context) (*int64, bool) {
	v := c.Query("department_id")
	if v == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id < 0 {
		badRequest(c, "department_id must be a non-negative integer")
		return nil, false
	}
	return &id, true
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

func internalError(c *gin.Context, msg string, err error) {
	logging.L().Error(msg, zap.String("request_id", c.GetString("requestID")), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func int64Ptr(v int64) *int64 { return &v }

func sameDepartment(a, b *int64) bool {
	return a != nil && b != nil && *a == *b
}
