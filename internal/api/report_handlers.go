package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	database "github.com/Armour007/wellness-backend/internal"
	"github.com/Armour007/wellness-backend/internal/policy"
	"github.com/Armour007/wellness-backend/internal/reporting"
)

const defaultReportWindow = 30 * 24 * time.Hour

// PUT /reports/schedules/:department_id
func PutReportSchedule(c *gin.Context) {
	dept, ok := idParam(c, "department_id")
	if !ok {
		return
	}
	var req ReportScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	s := database.ReportSchedule{
		DepartmentID: dept,
		Cron:         strings.TrimSpace(req.Cron),
		WebhookURL:   strings.TrimSpace(req.WebhookURL),
		Secret:       req.Secret,
		Lookback:     strings.TrimSpace(req.Lookback),
	}
	if s.Lookback == "" {
		s.Lookback = defaultLookback.String()
	}
	if err := validateSchedule(s); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	d, err := loadDepartment(ctx, &dept)
	if err != nil {
		internalError(c, "Failed to load department", err)
		return
	}
	if d == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Department not found"})
		return
	}
	if err := saveReportSchedule(ctx, &s); err != nil {
		internalError(c, "Failed to save report schedule", err)
		return
	}
	actor, _ := currentUser(c)
	recordAudit(ctx, &dept, "report_schedule.set", actor.ID, gin.H{"cron": s.Cron, "webhook_url": s.WebhookURL, "lookback": s.Lookback})
	c.JSON(http.StatusOK, s)
}

// GET /reports/schedules
func ListReportSchedules(c *gin.Context) {
	rows, err := listReportSchedules(c.Request.Context())
	if err != nil {
		internalError(c, "Failed to list report schedules", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// DELETE /reports/schedules/:department_id
func DeleteReportSchedule(c *gin.Context) {
	dept, ok := idParam(c, "department_id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	found, err := deleteReportSchedule(ctx, dept)
	if err != nil {
		internalError(c, "Failed to delete report schedule", err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report schedule not found"})
		return
	}
	actor, _ := currentUser(c)
	recordAudit(ctx, &dept, "report_schedule.deleted", actor.ID, gin.H{"department_id": dept})
	c.JSON(http.StatusOK, gin.H{"message": "Report schedule deleted"})
}

// GET /reports/departments/:department_id?start_date=&end_date=&metric_type=
func GetDepartmentReport(c *gin.Context) {
	dept, ok := idParam(c, "department_id")
	if !ok {
		return
	}
	if _, ok := authorize(c, policy.ActionReportView, policy.InDepartment(&dept)); !ok {
		return
	}
	f, ok := parseFilter(c)
	if !ok {
		return
	}
	if f.Until.IsZero() {
		f.Until = clock().UTC()
	}
	if f.From.IsZero() {
		f.From = f.Until.Add(-defaultReportWindow)
	}
	rep, err := reporting.BuildDepartmentReport(c.Request.Context(), dept, f)
	if err != nil {
		if database.IsNoRows(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Department not found"})
			return
		}
		internalError(c, "Failed to build department report", err)
		return
	}
	c.JSON(http.StatusOK, rep)
}
