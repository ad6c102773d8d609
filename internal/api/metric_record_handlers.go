package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	database "github.com/Armour007/wellness-backend/internal"
	"github.com/Armour007/wellness-backend/internal/mesh"
	"github.com/Armour007/wellness-backend/internal/policy"
	"github.com/Armour007/wellness-backend/internal/reporting"
)

// clock is swapped in tests.
var clock = time.Now

// availableDefinitions returns the definitions mapped to the user's job role.
// Users without a role fall back to their department's definitions plus the
// ones bound to no department.
func availableDefinitions(ctx context.Context, u database.User, mt database.MetricType) ([]database.MetricDefinition, error) {
	q := psql.Select(prefixed("d.", metricDefinitionColumns)...).From("metric_definitions d").OrderBy("d.id")
	if u.RoleID != nil {
		q = q.Join("metric_definition_roles mdr ON mdr.metric_id = d.id").Where(sq.Eq{"mdr.role_id": *u.RoleID})
	} else if u.DepartmentID != nil {
		q = q.Where(sq.Or{sq.Eq{"d.department_id": *u.DepartmentID}, sq.Eq{"d.department_id": nil}})
	} else {
		q = q.Where(sq.Eq{"d.department_id": nil})
	}
	if mt != "" {
		q = q.Where(sq.Eq{"d.metric_type": mt})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	defs := []database.MetricDefinition{}
	if err := database.DB.SelectContext(ctx, &defs, query, args...); err != nil {
		return nil, err
	}
	return defs, nil
}

func availableMetrics(c *gin.Context, mt database.MetricType) {
	u, _ := currentUser(c)
	defs, err := availableDefinitions(c.Request.Context(), u, mt)
	if err != nil {
		internalError(c, "Failed to load available metrics", err)
		return
	}
	c.JSON(http.StatusOK, defs)
}

// GET /metric-records/employee/available-metrics
func AvailableMetrics(c *gin.Context) { availableMetrics(c, "") }

// GET /metric-records/employee/performance-metrics
func PerformanceMetrics(c *gin.Context) { availableMetrics(c, database.MetricPerformance) }

// GET /metric-records/employee/wellness-metrics
func WellnessMetrics(c *gin.Context) { availableMetrics(c, database.MetricWellness) }

// validateSubmission checks one submitted value against its definition.
func validateSubmission(m SubmittedMetric, def database.MetricDefinition) error {
	if def.IsNumeric {
		if m.ValueNumeric == nil {
			return fmt.Errorf("metric %d (%s) requires value_numeric", m.MetricID, def.MetricName)
		}
		return nil
	}
	if (m.ValueText == nil || *m.ValueText == "") && len(m.ValueJSON) == 0 {
		return fmt.Errorf("metric %d (%s) requires value_text or value_json", m.MetricID, def.MetricName)
	}
	return nil
}

func insertMetricRecord(ctx context.Context, tx *sqlx.Tx, r *database.MetricRecord) error {
	return tx.QueryRowxContext(ctx, `INSERT INTO metric_records (user_id, metric_id, metric_type, value_numeric, value_json, value_text, recorded_at, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		r.UserID, r.MetricID, r.MetricType, r.ValueNumeric, r.ValueJSON, r.ValueText, r.RecordedAt, r.Notes).Scan(&r.ID)
}

// POST /metric-records/employee-submit-metrics
func SubmitMetrics(c *gin.Context) {
	var req SubmitMetricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	day, err := reporting.ParseDate(req.Date)
	if err != nil {
		badRequest(c, "date must be YYYY-MM-DD")
		return
	}
	u, _ := currentUser(c)
	ctx := c.Request.Context()
	defs, err := availableDefinitions(ctx, u, "")
	if err != nil {
		internalError(c, "Failed to load available metrics", err)
		return
	}
	byID := make(map[int64]database.MetricDefinition, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}
	for _, m := range req.Metrics {
		def, ok := byID[m.MetricID]
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": fmt.Sprintf("Metric %d is not available for your role", m.MetricID)})
			return
		}
		if err := validateSubmission(m, def); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	tx, err := database.DB.BeginTxx(ctx, nil)
	if err != nil {
		internalError(c, "Failed to start transaction", err)
		return
	}
	defer tx.Rollback()
	ids := make([]int64, 0, len(req.Metrics))
	perType := map[database.MetricType]int{}
	for _, m := range req.Metrics {
		def := byID[m.MetricID]
		rec := database.MetricRecord{
			UserID:       u.ID,
			MetricID:     def.ID,
			MetricType:   def.MetricType,
			ValueNumeric: m.ValueNumeric,
			ValueJSON:    m.ValueJSON,
			ValueText:    m.ValueText,
			RecordedAt:   day,
			Notes:        m.Notes,
		}
		if err := insertMetricRecord(ctx, tx, &rec); err != nil {
			internalError(c, "Failed to store metric record", err)
			return
		}
		ids = append(ids, rec.ID)
		perType[def.MetricType]++
	}
	if err := tx.Commit(); err != nil {
		internalError(c, "Failed to commit metric records", err)
		return
	}
	for t, n := range perType {
		RecordSubmission(string(t), n)
	}
	publishMetricsSubmitted(ctx, mesh.MetricsSubmitted{UserID: u.ID, DepartmentID: u.DepartmentID, RecordIDs: ids, Date: req.Date})
	recordAudit(ctx, u.DepartmentID, "metrics.submitted", u.ID, gin.H{"user_id": u.ID, "date": req.Date, "record_ids": ids})
	c.JSON(http.StatusCreated, SubmitMetricsResponse{
		Message:   fmt.Sprintf("%d metric records submitted", len(ids)),
		Count:     len(ids),
		RecordIDs: ids,
	})
}

func parseFilter(c *gin.Context) (reporting.Filter, bool) {
	f, err := reporting.ParseFilter(c.Request.URL.Query(), clock())
	if err != nil {
		badRequest(c, err.Error())
		return f, false
	}
	return f, true
}

// GET /metrics/employee/my-metrics
func MyMetrics(c *gin.Context) {
	f, ok := parseFilter(c)
	if !ok {
		return
	}
	u, _ := currentUser(c)
	recs, err := reporting.UserRecords(c.Request.Context(), u.ID, f)
	if err != nil {
		internalError(c, "Failed to load metric records", err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

// GET /metrics/employee/my-aggregated-metrics
func MyAggregatedMetrics(c *gin.Context) {
	f, ok := parseFilter(c)
	if !ok {
		return
	}
	u, _ := currentUser(c)
	recs, err := reporting.UserRecords(c.Request.Context(), u.ID, f)
	if err != nil {
		internalError(c, "Failed to load metric records", err)
		return
	}
	c.JSON(http.StatusOK, reporting.AggregateRecords(recs))
}

// GET /metrics/employee/metrics-by-date/:date
func MetricsByDate(c *gin.Context) {
	day, err := reporting.ParseDate(c.Param("date"))
	if err != nil {
		badRequest(c, "date must be YYYY-MM-DD")
		return
	}
	f := reporting.Filter{From: day, Until: day.AddDate(0, 0, 1)}
	if v := c.Query("metric_type"); v != "" {
		mt, err := reporting.ParseMetricType(v)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		f.MetricType = mt
	}
	u, _ := currentUser(c)
	recs, err := reporting.UserRecords(c.Request.Context(), u.ID, f)
	if err != nil {
		internalError(c, "Failed to load metric records", err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

// GET /metric-records/department/employee-metrics
// Admins may pass department_id; supervisors always read their own department.
func DepartmentEmployeeMetrics(c *gin.Context) {
	u, _ := currentUser(c)
	requested, ok := requestedDepartment(c)
	if !ok {
		return
	}
	d, ok := authorize(c, policy.ActionDepartmentMetricsView, policy.Own(subjectOf(u)))
	if !ok {
		return
	}
	f, ok := parseFilter(c)
	if !ok {
		return
	}
	dept := departmentScope(d, u)
	if d.Scope == policy.ScopeAll {
		dept = requested
	}
	out, err := reporting.DepartmentRecords(c.Request.Context(), dept, f)
	if err != nil {
		internalError(c, "Failed to load department metrics", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// employeeByCode loads a user by employee id and authorizes record access to it.
func employeeByCode(c *gin.Context) (database.User, bool) {
	code := c.Param("employee_id")
	var target database.User
	err := database.DB.GetContext(c.Request.Context(), &target, `SELECT `+userColumns+` FROM users WHERE employee_id=$1`, code)
	if err != nil {
		if database.IsNoRows(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No employee found with ID: " + code})
			return target, false
		}
		internalError(c, "Failed to load employee", err)
		return target, false
	}
	if _, ok := authorize(c, policy.ActionRecordViewEmployee, policy.ForUser(target)); !ok {
		return target, false
	}
	return target, true
}

// GET /metric-records/employee/search-by-id/:employee_id
func SearchEmployeeByID(c *gin.Context) {
	target, ok := employeeByCode(c)
	if !ok {
		return
	}
	f, ok := parseFilter(c)
	if !ok {
		return
	}
	recs, err := reporting.UserRecords(c.Request.Context(), target.ID, f)
	if err != nil {
		internalError(c, "Failed to load metric records", err)
		return
	}
	perf, well := reporting.SplitByType(recs)
	c.JSON(http.StatusOK, gin.H{
		"employee_id":         target.EmployeeID,
		"full_name":           target.FullName(),
		"performance_metrics": perf,
		"wellness_metrics":    well,
	})
}

// GET /metric-records/employee/:employee_id/metrics
func EmployeeMetrics(c *gin.Context) {
	target, ok := employeeByCode(c)
	if !ok {
		return
	}
	f, ok := parseFilter(c)
	if !ok {
		return
	}
	recs, err := reporting.UserRecords(c.Request.Context(), target.ID, f)
	if err != nil {
		internalError(c, "Failed to load metric records", err)
		return
	}
	c.JSON(http.StatusOK, reporting.EmployeeRecords{
		UserID:     target.ID,
		EmployeeID: target.EmployeeID,
		FirstName:  target.FirstName,
		LastName:   target.LastName,
		Metrics:    recs,
	})
}
