package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	database "github.com/Armour007/wellness-backend/internal"
	p "github.com/Armour007/wellness-backend/internal/policy"
)

// RegisterRoutes mounts the API under g (normally the API_PREFIX group).
func RegisterRoutes(g *gin.RouterGroup, loginPerMinute int) {
	g.POST("/auth/login", LoginRateLimitMiddleware(loginPerMinute), Login)

	authed := g.Group("")
	authed.Use(AuthMiddleware())

	users := authed.Group("/users")
	{
		users.GET("", ListUsers)
		users.GET("/", ListUsers)
		users.GET("/departments", RequireAction(p.ActionDepartmentAdminList), ListDepartments)
		users.POST("/departments", RequireAction(p.ActionDepartmentCreate), CreateDepartment)
		users.GET("/supervisors", RequireAction(p.ActionSupervisorList), ListSupervisors)
		users.POST("/create_supervisor", RequireAction(p.ActionSupervisorCreate), CreateSupervisor)
		users.PUT("/supervisors/:id", RequireAction(p.ActionSupervisorUpdate), UpdateSupervisor)
		users.DELETE("/delete_supervisor/:id", RequireAction(p.ActionSupervisorDelete), DeleteSupervisor)
		users.POST("/create_employee", RequireAction(p.ActionEmployeeCreate), CreateEmployee)
		users.GET("/employees", ListEmployees)
		users.GET("/employees/:id", GetEmployee)
		users.PUT("/employees/:id", RequireAction(p.ActionEmployeeUpdate), UpdateEmployee)
		users.DELETE("/delete_employee/:id", RequireAction(p.ActionEmployeeDelete), DeleteEmployee)
		users.POST("/register-employee", RequireAction(p.ActionUserRegister), RegisterUser)
	}

	profile := authed.Group("/profile")
	{
		profile.GET("/me", GetMe)
		profile.PUT("/me", UpdateMe)
		profile.PUT("/me/password", ChangePassword)
	}

	depts := authed.Group("/departments")
	{
		depts.GET("", RequireAction(p.ActionDepartmentList), ListDepartments)
		depts.GET("/:id", RequireAction(p.ActionDepartmentView), GetDepartment)
		depts.PUT("/:id", RequireAction(p.ActionDepartmentUpdate), UpdateDepartment)
		depts.DELETE("/:id", RequireAction(p.ActionDepartmentDelete), DeleteDepartment)
	}

	metrics := authed.Group("/metrics")
	{
		metrics.GET("", RequireAction(p.ActionMetricDefinitionList), ListMetricDefinitions)
		metrics.POST("", RequireAction(p.ActionMetricDefinitionManage), CreateMetricDefinition)
		metrics.GET("/roles", RequireAction(p.ActionEmployeeRoleList), ListEmployeeRoles)
		metrics.POST("/roles", RequireAction(p.ActionEmployeeRoleManage), CreateEmployeeRole)
		metrics.PUT("/:id", RequireAction(p.ActionMetricDefinitionManage), UpdateMetricDefinition)
		metrics.DELETE("/:id", RequireAction(p.ActionMetricDefinitionManage), DeleteMetricDefinition)
		metrics.GET("/:id/roles", RequireAction(p.ActionMetricDefinitionList), GetMetricRoles)
		metrics.PUT("/:id/roles", RequireAction(p.ActionMetricDefinitionManage), SetMetricRoles)

		metrics.GET("/employee/my-metrics", RequireAction(p.ActionRecordViewOwn), MyMetrics)
		metrics.GET("/employee/my-aggregated-metrics", RequireAction(p.ActionRecordViewOwn), MyAggregatedMetrics)
		metrics.GET("/employee/metrics-by-date/:date", RequireAction(p.ActionRecordViewOwn), MetricsByDate)
	}

	records := authed.Group("/metric-records")
	{
		records.GET("/employee/available-metrics", RequireAction(p.ActionMetricSubmit), AvailableMetrics)
		records.GET("/employee/performance-metrics", RequireAction(p.ActionMetricSubmit), PerformanceMetrics)
		records.GET("/employee/wellness-metrics", RequireAction(p.ActionMetricSubmit), WellnessMetrics)
		records.POST("/employee-submit-metrics", RequireAction(p.ActionMetricSubmit), IdempotencyMiddleware(), SubmitMetrics)
		records.GET("/department/employee-metrics", DepartmentEmployeeMetrics)
		records.GET("/employee/search-by-id/:employee_id", SearchEmployeeByID)
		records.GET("/employee/:employee_id/metrics", EmployeeMetrics)
	}

	authed.GET("/dashboard/view", RequireAction(p.ActionDashboardView), DashboardView)

	authed.GET("/audit", GetAuditLedger)
	authed.GET("/audit/verify", VerifyAuditChain)

	reports := authed.Group("/reports")
	{
		reports.GET("/schedules", RequireAction(p.ActionReportScheduleManage), ListReportSchedules)
		reports.PUT("/schedules/:department_id", RequireAction(p.ActionReportScheduleManage), PutReportSchedule)
		reports.DELETE("/schedules/:department_id", RequireAction(p.ActionReportScheduleManage), DeleteReportSchedule)
		reports.GET("/departments/:department_id", GetDepartmentReport)
	}

	pol := authed.Group("/policy", RequireAction(p.ActionPolicyView))
	{
		pol.GET("/rules", ListPolicyRules)
		pol.POST("/evaluate", EvaluatePolicy)
	}
}

// Welcome answers GET /.
func Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the Employee Wellness & Performance Tracker API"})
}

func Healthz(c *gin.Context) { c.Status(http.StatusOK) }

// Readyz pings the database and, when configured, Redis.
func Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 300*time.Millisecond)
	defer cancel()
	if database.DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": "database not connected"})
		return
	}
	if err := database.DB.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
		return
	}
	if redisClient != nil {
		if err := redisClient.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": "redis ping failed"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
