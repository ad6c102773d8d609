package reporting

import (
	"context"
	"fmt"
	"time"

	database "github.com/Armour007/wellness-backend/internal"
)

// EmployeeSummary is one employee's activity inside a report window.
type EmployeeSummary struct {
	EmployeeID     string     `json:"employee_id"`
	FullName       string     `json:"full_name"`
	Records        int        `json:"records"`
	LastSubmission *time.Time `json:"last_submission,omitempty"`
}

// DepartmentReport is the payload served on demand and delivered by scheduled jobs.
type DepartmentReport struct {
	DepartmentID    int64             `json:"department_id"`
	DepartmentName  string            `json:"department_name"`
	MetricType      string            `json:"metric_type,omitempty"`
	From            time.Time         `json:"from"`
	Until           time.Time         `json:"until"`
	GeneratedAt     time.Time         `json:"generated_at"`
	EmployeeCount   int               `json:"employee_count"`
	ActiveEmployees int               `json:"active_employees"`
	RecordCount     int               `json:"record_count"`
	Metrics         []Aggregate       `json:"metrics"`
	Employees       []EmployeeSummary `json:"employees"`
}

// BuildDepartmentReport aggregates a department's records in [f.From, f.Until),
// optionally limited to f.MetricType.
func BuildDepartmentReport(ctx context.Context, departmentID int64, f Filter) (*DepartmentReport, error) {
	var name string
	if err := database.DB.GetContext(ctx, &name, `SELECT name FROM departments WHERE id=$1`, departmentID); err != nil {
		return nil, fmt.Errorf("load department %d: %w", departmentID, err)
	}
	emps, err := DepartmentRecords(ctx, &departmentID, f)
	if err != nil {
		return nil, err
	}
	rep := &DepartmentReport{
		DepartmentID:   departmentID,
		DepartmentName: name,
		MetricType:     string(f.MetricType),
		From:           f.From,
		Until:          f.Until,
		GeneratedAt:    time.Now().UTC(),
		EmployeeCount:  len(emps),
		Employees:      make([]EmployeeSummary, 0, len(emps)),
	}
	var all []RecordView
	for _, e := range emps {
		u := database.User{FirstName: e.FirstName, LastName: e.LastName}
		s := EmployeeSummary{EmployeeID: e.EmployeeID, FullName: u.FullName(), Records: len(e.Metrics)}
		if len(e.Metrics) > 0 {
			rep.ActiveEmployees++
			last := e.Metrics[0].RecordedAt
			s.LastSubmission = &last
		}
		rep.RecordCount += len(e.Metrics)
		all = append(all, e.Metrics...)
		rep.Employees = append(rep.Employees, s)
	}
	rep.Metrics = AggregateRecords(all)
	return rep, nil
}
