package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	database "github.com/Armour007/wellness-backend/internal"
	"github.com/Armour007/wellness-backend/internal/reporting"
)

const metricDefinitionColumns = `id, metric_name, metric_description, metric_type, department_id, unit, metric_formula, metric_formula_description, is_aggregated, is_numeric, value`

func loadMetricDefinition(ctx context.Context, id int64) (database.MetricDefinition, error) {
	var m database.MetricDefinition
	err := database.DB.GetContext(ctx, &m, `SELECT `+metricDefinitionColumns+` FROM metric_definitions WHERE id=$1`, id)
	return m, err
}

// GET /metrics?metric_type=&department_id=
func ListMetricDefinitions(c *gin.Context) {
	q := psql.Select(metricDefinitionColumns).From("metric_definitions").OrderBy("id")
	if v := c.Query("metric_type"); v != "" {
		t, err := reporting.ParseMetricType(v)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		q = q.Where(sq.Eq{"metric_type": t})
	}
	if v := c.Query("department_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequest(c, "department_id must be an integer")
			return
		}
		q = q.Where(sq.Eq{"department_id": id})
	}
	query, args, err := q.ToSql()
	if err != nil {
		internalError(c, "Failed to build metric query", err)
		return
	}
	defs := []database.MetricDefinition{}
	if err := database.DB.SelectContext(c.Request.Context(), &defs, query, args...); err != nil {
		internalError(c, "Failed to list metric definitions", err)
		return
	}
	c.JSON(http.StatusOK, defs)
}

func definitionFromRequest(req MetricDefinitionRequest, m *database.MetricDefinition) {
	m.MetricName = strings.TrimSpace(req.MetricName)
	m.MetricDescription = req.MetricDescription
	m.MetricType = req.MetricType
	m.DepartmentID = req.DepartmentID
	m.Unit = req.Unit
	m.MetricFormula = req.MetricFormula
	m.MetricFormulaDescription = req.MetricFormulaDescription
	if req.IsAggregated != nil {
		m.IsAggregated = *req.IsAggregated
	}
	if req.IsNumeric != nil {
		m.IsNumeric = *req.IsNumeric
	}
	m.Value = req.Value
}

func bindMetricDefinition(c *gin.Context) (MetricDefinitionRequest, bool) {
	var req MetricDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return req, false
	}
	t, err := reporting.ParseMetricType(string(req.MetricType))
	if err != nil {
		badRequest(c, err.Error())
		return req, false
	}
	req.MetricType = t
	return req, true
}

// replaceMetricRoles swaps the role mapping of one definition inside tx.
func replaceMetricRoles(ctx context.Context, tx *sqlx.Tx, metricID int64, roleIDs []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM metric_definition_roles WHERE metric_id=$1`, metricID); err != nil {
		return fmt.Errorf("clear roles: %w", err)
	}
	seen := map[int64]bool{}
	for _, rid := range roleIDs {
		if seen[rid] {
			continue
		}
		seen[rid] = true
		if _, err := tx.ExecContext(ctx, `INSERT INTO metric_definition_roles (metric_id, role_id) VALUES ($1,$2)`, metricID, rid); err != nil {
			return err
		}
	}
	return nil
}

func writeMetricError(c *gin.Context, msg string, err error) {
	if database.IsForeignKeyViolation(err) {
		badRequest(c, "Department or employee role does not exist")
		return
	}
	internalError(c, msg, err)
}

// POST /metrics
func CreateMetricDefinition(c *gin.Context) {
	req, ok := bindMetricDefinition(c)
	if !ok {
		return
	}
	m := database.MetricDefinition{IsNumeric: true}
	definitionFromRequest(req, &m)
	ctx := c.Request.Context()
	tx, err := database.DB.BeginTxx(ctx, nil)
	if err != nil {
		internalError(c, "Failed to start transaction", err)
		return
	}
	defer tx.Rollback()
	err = tx.GetContext(ctx, &m, `INSERT INTO metric_definitions (metric_name, metric_description, metric_type, department_id, unit, metric_formula, metric_formula_description, is_aggregated, is_numeric, value)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING `+metricDefinitionColumns,
		m.MetricName, m.MetricDescription, m.MetricType, m.DepartmentID, m.Unit, m.MetricFormula, m.MetricFormulaDescription, m.IsAggregated, m.IsNumeric, m.Value)
	if err != nil {
		writeMetricError(c, "Failed to create metric definition", err)
		return
	}
	if len(req.RoleIDs) > 0 {
		if err := replaceMetricRoles(ctx, tx, m.ID, req.RoleIDs); err != nil {
			writeMetricError(c, "Failed to map metric roles", err)
			return
		}
	}
	if err := tx.Commit(); err != nil {
		internalError(c, "Failed to commit metric definition", err)
		return
	}
	actor, _ := currentUser(c)
	recordAudit(ctx, m.DepartmentID, "metric_definition.created", actor.ID, gin.H{"metric_id": m.ID, "metric_name": m.MetricName, "role_ids": req.RoleIDs})
	c.JSON(http.StatusCreated, m)
}

// PUT /metrics/:id
func UpdateMetricDefinition(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	req, ok := bindMetricDefinition(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	m, err := loadMetricDefinition(ctx, id)
	if err != nil {
		if database.IsNoRows(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Metric definition not found"})
			return
		}
		internalError(c, "Failed to load metric definition", err)
		return
	}
	if m.MetricType != req.MetricType {
		var used bool
		if err := database.DB.GetContext(ctx, &used, `SELECT EXISTS(SELECT 1 FROM metric_records WHERE metric_id=$1)`, id); err != nil {
			internalError(c, "Failed to check metric records", err)
			return
		}
		if used {
			badRequest(c, "Cannot change metric_type of a metric with recorded values")
			return
		}
	}
	definitionFromRequest(req, &m)
	tx, err := database.DB.BeginTxx(ctx, nil)
	if err != nil {
		internalError(c, "Failed to start transaction", err)
		return
	}
	defer tx.Rollback()
	err = tx.GetContext(ctx, &m, `UPDATE metric_definitions SET metric_name=$1, metric_description=$2, metric_type=$3, department_id=$4, unit=$5, metric_formula=$6, metric_formula_description=$7, is_aggregated=$8, is_numeric=$9, value=$10
		WHERE id=$11 RETURNING `+metricDefinitionColumns,
		m.MetricName, m.MetricDescription, m.MetricType, m.DepartmentID, m.Unit, m.MetricFormula, m.MetricFormulaDescription, m.IsAggregated, m.IsNumeric, m.Value, id)
	if err != nil {
		writeMetricError(c, "Failed to update metric definition", err)
		return
	}
	if req.RoleIDs != nil {
		if err := replaceMetricRoles(ctx, tx, id, req.RoleIDs); err != nil {
			writeMetricError(c, "Failed to map metric roles", err)
			return
		}
	}
	if err := tx.Commit(); err != nil {
		internalError(c, "Failed to commit metric definition", err)
		return
	}
	actor, _ := currentUser(c)
	recordAudit(ctx, m.DepartmentID, "metric_definition.updated", actor.ID, gin.H{"metric_id": m.ID, "metric_name": m.MetricName})
	c.JSON(http.StatusOK, m)
}

// DELETE /metrics/:id
func DeleteMetricDefinition(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	m, err := loadMetricDefinition(ctx, id)
	if err != nil {
		if database.IsNoRows(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Metric definition not found"})
			return
		}
		internalError(c, "Failed to load metric definition", err)
		return
	}
	if _, err := database.DB.ExecContext(ctx, `DELETE FROM metric_definitions WHERE id=$1`, id); err != nil {
		if database.IsForeignKeyViolation(err) {
			badRequest(c, "Metric definition has recorded values")
			return
		}
		internalError(c, "Failed to delete metric definition", err)
		return
	}
	actor, _ := currentUser(c)
	recordAudit(ctx, m.DepartmentID, "metric_definition.deleted", actor.ID, gin.H{"metric_id": id, "metric_name": m.MetricName})
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Metric %s deleted successfully.", m.MetricName)})
}

// GET /metrics/roles
func ListEmployeeRoles(c *gin.Context) {
	roles := []database.EmployeeRole{}
	if err := database.DB.SelectContext(c.Request.Context(), &roles, `SELECT role_id, role_name, role_description FROM employee_roles ORDER BY role_id`); err != nil {
		internalError(c, "Failed to list employee roles", err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

// POST /metrics/roles
func CreateEmployeeRole(c *gin.Context) {
	var req EmployeeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	var r database.EmployeeRole
	err := database.DB.GetContext(c.Request.Context(), &r, `INSERT INTO employee_roles (role_name, role_description) VALUES ($1,$2) RETURNING role_id, role_name, role_description`,
		strings.TrimSpace(req.RoleName), req.RoleDescription)
	if err != nil {
		if database.IsUniqueViolation(err) {
			badRequest(c, "Employee role with this name already exists.")
			return
		}
		internalError(c, "Failed to create employee role", err)
		return
	}
	actor, _ := currentUser(c)
	recordAudit(c.Request.Context(), nil, "employee_role.created", actor.ID, gin.H{"role_id": r.RoleID, "role_name": r.RoleName})
	c.JSON(http.StatusCreated, r)
}

func metricRoles(ctx context.Context, metricID int64) ([]database.EmployeeRole, error) {
	roles := []database.EmployeeRole{}
	err := database.DB.SelectContext(ctx, &roles, `SELECT r.role_id, r.role_name, r.role_description FROM employee_roles r
		JOIN metric_definition_roles mdr ON mdr.role_id = r.role_id WHERE mdr.metric_id=$1 ORDER BY r.role_id`, metricID)
	return roles, err
}

// GET /metrics/:id/roles
func GetMetricRoles(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := loadMetricDefinition(ctx, id); err != nil {
		if database.IsNoRows(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Metric definition not found"})
			return
		}
		internalError(c, "Failed to load metric definition", err)
		return
	}
	roles, err := metricRoles(ctx, id)
	if err != nil {
		internalError(c, "Failed to list metric roles", err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

// PUT /metrics/:id/roles
func SetMetricRoles(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req MetricRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	m, err := loadMetricDefinition(ctx, id)
	if err != nil {
		if database.IsNoRows(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Metric definition not found"})
			return
		}
		internalError(c, "Failed to load metric definition", err)
		return
	}
	tx, err := database.DB.BeginTxx(ctx, nil)
	if err != nil {
		internalError(c, "Failed to start transaction", err)
		return
	}
	defer tx.Rollback()
	if err := replaceMetricRoles(ctx, tx, id, req.RoleIDs); err != nil {
		writeMetricError(c, "Failed to map metric roles", err)
		return
	}
	if err := tx.Commit(); err != nil {
		internalError(c, "Failed to commit metric roles", err)
		return
	}
	actor, _ := currentUser(c)
	recordAudit(ctx, m.DepartmentID, "metric_definition.roles_changed", actor.ID, gin.H{"metric_id": id, "role_ids": req.RoleIDs})
	roles, err := metricRoles(ctx, id)
	if err != nil {
		internalError(c, "Failed to list metric roles", err)
		return
	}
	c.JSON(http.StatusOK, roles)
}
