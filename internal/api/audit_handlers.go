package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Armour007/wellness-backend/internal/audit"
	"github.com/Armour007/wellness-backend/internal/policy"
)

// queryLimit reads ?limit=, clamped to max. Missing or invalid values use def.
func queryLimit(c *gin.Context, def, max int) int {
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return min(n, max)
		}
	}
	return def
}

// auditScope resolves the chain a request reads. Admins read the requested
// department or the global chain; anyone else reads their own department.
func auditScope(c *gin.Context, action policy.Action) (int64, bool) {
	u, _ := currentUser(c)
	requested, ok := requestedDepartment(c)
	if !ok {
		return 0, false
	}
	d, ok := authorize(c, action, policy.Own(subjectOf(u)))
	if !ok {
		return 0, false
	}
	if d.Scope == policy.ScopeAll {
		return audit.Scope(requested), true
	}
	return audit.Scope(u.DepartmentID), true
}

// GET /audit?department_id=&limit=200
func GetAuditLedger(c *gin.Context) {
	dept, ok := auditScope(c, policy.ActionAuditView)
	if !ok {
		return
	}
	rows, err := audit.List(c.Request.Context(), dept, queryLimit(c, 200, audit.MaxListLimit))
	if err != nil {
		internalError(c, "Failed to read audit ledger", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"department_id": dept, "items": rows, "count": len(rows)})
}

// GET /audit/verify?department_id=&limit=10000
func VerifyAuditChain(c *gin.Context) {
	dept, ok := auditScope(c, policy.ActionAuditVerify)
	if !ok {
		return
	}
	breakAt, err := audit.Verify(c.Request.Context(), dept, queryLimit(c, audit.MaxVerifyLimit, audit.MaxVerifyLimit))
	switch {
	case errors.Is(err, audit.ErrChainBroken):
		c.JSON(http.StatusOK, gin.H{"department_id": dept, "ok": false, "break_at": breakAt, "error": err.Error()})
		return
	case err != nil:
		internalError(c, "Failed to verify audit ledger", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"department_id": dept, "ok": true, "break_at": 0})
}
