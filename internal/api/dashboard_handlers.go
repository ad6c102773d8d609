package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	database "github.com/Armour007/wellness-backend/internal"
	"github.com/Armour007/wellness-backend/internal/logging"
	"github.com/Armour007/wellness-backend/internal/mesh"
)

const (
	dashboardPrefix = "dashboard:"
	dashboardTTL    = time.Minute
	idleWindow      = 7 * 24 * time.Hour
)

type typeCount struct {
	MetricType database.MetricType `db:"metric_type"`
	Count      int                 `db:"count"`
}

type roleCount struct {
	Role  database.Role `db:"role"`
	Count int           `db:"count"`
}

type idleEmployee struct {
	ID             int64      `db:"id" json:"-"`
	EmployeeID     string     `db:"employee_id" json:"employee_id"`
	FirstName      *string    `db:"first_name" json:"first_name"`
	LastName       *string    `db:"last_name" json:"last_name"`
	LastSubmission *time.Time `db:"last_submission" json:"last_submission"`
}

type EmployeeDashboard struct {
	Role             database.Role               `json:"role"`
	RecordsByType    map[database.MetricType]int `json:"records_by_type"`
	LastSubmission   *time.Time                  `json:"last_submission"`
	AvailableMetrics int                         `json:"available_metrics"`
}

type SupervisorDashboard struct {
	Role                database.Role               `json:"role"`
	DepartmentID        int64                       `json:"department_id"`
	EmployeeCount       int                         `json:"employee_count"`
	RecordsThisMonth    map[database.MetricType]int `json:"records_this_month"`
	EmployeesNotUpdated []idleEmployee              `json:"employees_without_recent_submission"`
}

type AdminDashboard struct {
	Role              database.Role         `json:"role"`
	Departments       int                   `json:"departments"`
	UsersByRole       map[database.Role]int `json:"users_by_role"`
	MetricDefinitions int                   `json:"metric_definitions"`
	MetricRecords     int                   `json:"metric_records"`
}

func byType(rows []typeCount) map[database.MetricType]int {
	out := map[database.MetricType]int{database.MetricPerformance: 0, database.MetricWellness: 0}
	for _, r := range rows {
		out[r.MetricType] = r.Count
	}
	return out
}

func employeeDashboard(ctx context.Context, u database.User) (any, error) {
	var counts []typeCount
	if err := database.DB.SelectContext(ctx, &counts, `SELECT metric_type, COUNT(*) AS count FROM metric_records WHERE user_id=$1 GROUP BY metric_type`, u.ID); err != nil {
		return nil, err
	}
	var last *time.Time
	if err := database.DB.GetContext(ctx, &last, `SELECT MAX(recorded_at) FROM metric_records WHERE user_id=$1`, u.ID); err != nil {
		return nil, err
	}
	defs, err := availableDefinitions(ctx, u, "")
	if err != nil {
		return nil, err
	}
	return EmployeeDashboard{Role: u.Role, RecordsByType: byType(counts), LastSubmission: last, AvailableMetrics: len(defs)}, nil
}

func supervisorDashboard(ctx context.Context, u database.User) (any, error) {
	dept := *u.DepartmentID
	out := SupervisorDashboard{Role: u.Role, DepartmentID: dept, EmployeesNotUpdated: []idleEmployee{}}
	if err := database.DB.GetContext(ctx, &out.EmployeeCount, `SELECT COUNT(*) FROM users WHERE department_id=$1 AND role='EMPLOYEE' AND is_active`, dept); err != nil {
		return nil, err
	}
	t := clock().UTC()
	monthStart := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	var counts []typeCount
	if err := database.DB.SelectContext(ctx, &counts, `SELECT r.metric_type, COUNT(*) AS count FROM metric_records r JOIN users u ON u.id = r.user_id
		WHERE u.department_id=$1 AND r.recorded_at >= $2 GROUP BY r.metric_type`, dept, monthStart); err != nil {
		return nil, err
	}
	out.RecordsThisMonth = byType(counts)
	if err := database.DB.SelectContext(ctx, &out.EmployeesNotUpdated, `SELECT u.id, u.employee_id, u.first_name, u.last_name, MAX(r.recorded_at) AS last_submission
		FROM users u LEFT JOIN metric_records r ON r.user_id = u.id
		WHERE u.department_id=$1 AND u.role='EMPLOYEE' AND u.is_active
		GROUP BY u.id, u.employee_id, u.first_name, u.last_name
		HAVING MAX(r.recorded_at) IS NULL OR MAX(r.recorded_at) < $2
		ORDER BY u.employee_id`, dept, t.Add(-idleWindow)); err != nil {
		return nil, err
	}
	return out, nil
}

func adminDashboard(ctx context.Context, u database.User) (any, error) {
	out := AdminDashboard{Role: u.Role, UsersByRole: map[database.Role]int{}}
	if err := database.DB.GetContext(ctx, &out.Departments, `SELECT COUNT(*) FROM departments`); err != nil {
		return nil, err
	}
	var roles []roleCount
	if err := database.DB.SelectContext(ctx, &roles, `SELECT role, COUNT(*) AS count FROM users GROUP BY role`); err != nil {
		return nil, err
	}
	for _, r := range roles {
		out.UsersByRole[r.Role] = r.Count
	}
	if err := database.DB.GetContext(ctx, &out.MetricDefinitions, `SELECT COUNT(*) FROM metric_definitions`); err != nil {
		return nil, err
	}
	if err := database.DB.GetContext(ctx, &out.MetricRecords, `SELECT COUNT(*) FROM metric_records`); err != nil {
		return nil, err
	}
	return out, nil
}

// GET /dashboard/view
func DashboardView(c *gin.Context) {
	u, _ := currentUser(c)
	ctx := c.Request.Context()
	key := dashboardPrefix + strconv.FormatInt(u.ID, 10)
	if b, ok := viewCache.Get(ctx, key); ok {
		RecordCacheHit("dashboard")
		c.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}
	RecordCacheMiss("dashboard")

	var (
		view any
		err  error
	)
	switch u.Role {
	case database.RoleAdmin:
		view, err = adminDashboard(ctx, u)
	case database.RoleSupervisor:
		if u.DepartmentID == nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "You are not assigned to a department"})
			return
		}
		view, err = supervisorDashboard(ctx, u)
	default:
		view, err = employeeDashboard(ctx, u)
	}
	if err != nil {
		internalError(c, "Failed to build dashboard", err)
		return
	}
	b, err := json.Marshal(view)
	if err != nil {
		internalError(c, "Failed to encode dashboard", err)
		return
	}
	viewCache.Set(ctx, key, b, dashboardTTL)
	c.Data(http.StatusOK, "application/json; charset=utf-8", b)
}

// SubscribeDashboardInvalidation drops cached dashboards whenever records,
// users or departments change. The returned func unsubscribes.
func SubscribeDashboardInvalidation(b mesh.Bus) (func(), error) {
	var unsubs []func()
	stop := func() {
		for _, u := range unsubs {
			u()
		}
	}
	h := func(ctx context.Context, e mesh.Event) {
		viewCache.DeletePrefix(ctx, dashboardPrefix)
		logging.L().Debug("dashboard cache invalidated", zap.String("topic", e.Topic), zap.String("event_id", e.ID))
	}
	for _, t := range []string{mesh.TopicMetricsSubmitted, mesh.TopicUsersChanged, mesh.TopicDepartmentsChanged} {
		u, err := b.Subscribe(t, h)
		if err != nil {
			stop()
			return nil, err
		}
		unsubs = append(unsubs, u)
	}
	return stop, nil
}
