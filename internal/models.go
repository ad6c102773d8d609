package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Role is the static application role carried in access tokens.
type Role string

const (
	RoleEmployee   Role = "EMPLOYEE"
	RoleSupervisor Role = "SUPERVISOR"
	RoleAdmin      Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleSupervisor, RoleAdmin:
		return true
	}
	return false
}

// DepartmentType mirrors department_type_enum.
type DepartmentType string

const (
	DepartmentUSPS           DepartmentType = "USPS"
	DepartmentHealthcare     DepartmentType = "HEALTHCARE"
	DepartmentTransportation DepartmentType = "TRANSPORTATION"
	DepartmentITSupport      DepartmentType = "IT_SUPPORT"
	DepartmentFinance        DepartmentType = "FINANCE"
)

func (t DepartmentType) Valid() bool {
	switch t {
	case DepartmentUSPS, DepartmentHealthcare, DepartmentTransportation, DepartmentITSupport, DepartmentFinance:
		return true
	}
	return false
}

// DepartmentRole mirrors department_role_enum (the job title inside a department).
type DepartmentRole string

const (
	DeptRoleUSPSMailCarrier          DepartmentRole = "USPS_MAIL_CARRIER"
	DeptRoleUSPSOfficeAdmin          DepartmentRole = "USPS_OFFICE_ADMIN"
	DeptRoleHealthcareNurse          DepartmentRole = "HEALTHCARE_NURSE"
	DeptRoleHealthcareAdmin          DepartmentRole = "HEALTHCARE_ADMIN"
	DeptRoleSupervisor               DepartmentRole = "SUPERVISOR"
	DeptRoleHealthcareSupervisor     DepartmentRole = "HEALTHCARE_SUPERVISOR"
	DeptRoleUSPSSupervisor           DepartmentRole = "USPS_SUPERVISOR"
	DeptRoleTransportationDriver     DepartmentRole = "TRANSPORTATION_DRIVER"
	DeptRoleTransportationDispatcher DepartmentRole = "TRANSPORTATION_DISPATCHER"
	DeptRoleAdmin2                   DepartmentRole = "ADMIN2"
)

func (r DepartmentRole) Valid() bool {
	switch r {
	case DeptRoleUSPSMailCarrier, DeptRoleUSPSOfficeAdmin, DeptRoleHealthcareNurse, DeptRoleHealthcareAdmin,
		DeptRoleSupervisor, DeptRoleHealthcareSupervisor, DeptRoleUSPSSupervisor,
		DeptRoleTransportationDriver, DeptRoleTransportationDispatcher, DeptRoleAdmin2:
		return true
	}
	return false
}

// MetricType mirrors metric_type_enum.
type MetricType string

const (
	MetricPerformance MetricType = "performance"
	MetricWellness    MetricType = "wellness"
)

func (t MetricType) Valid() bool { return t == MetricPerformance || t == MetricWellness }

// Department represents the 'departments' table
type Department struct {
	ID          int64          `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Type        DepartmentType `db:"type" json:"type"`
	Description *string        `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// User represents the 'users' table
type User struct {
	ID             int64          `db:"id"`
	Username       string         `db:"username"`
	Email          string         `db:"email"`
	HashedPassword string         `db:"hashed_password"`
	FirstName      *string        `db:"first_name"`
	LastName       *string        `db:"last_name"`
	EmployeeID     string         `db:"employee_id"`
	Role           Role           `db:"role"`
	DepartmentRole DepartmentRole `db:"department_role"`
	DepartmentID   *int64         `db:"department_id"`
	RoleID         *int64         `db:"role_id"`
	IsActive       bool           `db:"is_active"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

// FullName joins the optional name parts.
func (u User) FullName() string {
	var first, last string
	if u.FirstName != nil {
		first = *u.FirstName
	}
	if u.LastName != nil {
		last = *u.LastName
	}
	switch {
	case first == "":
		return last
	case last == "":
		return first
	}
	return first + " " + last
}

// EmployeeRole represents the 'employee_roles' table (job roles that gate metrics)
type EmployeeRole struct {
	RoleID          int64   `db:"role_id" json:"role_id"`
	RoleName        string  `db:"role_name" json:"role_name"`
	RoleDescription *string `db:"role_description" json:"role_description,omitempty"`
}

// MetricDefinition represents the 'metric_definitions' table
type MetricDefinition struct {
	ID                       int64      `db:"id" json:"id"`
	MetricName               string     `db:"metric_name" json:"metric_name"`
	MetricDescription        *string    `db:"metric_description" json:"metric_description,omitempty"`
	MetricType               MetricType `db:"metric_type" json:"metric_type"`
	DepartmentID             *int64     `db:"department_id" json:"department_id,omitempty"`
	Unit                     *string    `db:"unit" json:"unit"`
	MetricFormula            *string    `db:"metric_formula" json:"metric_formula,omitempty"`
	MetricFormulaDescription *string    `db:"metric_formula_description" json:"metric_formula_description,omitempty"`
	IsAggregated             bool       `db:"is_aggregated" json:"is_aggregated"`
	IsNumeric                bool       `db:"is_numeric" json:"is_numeric"`
	Value                    *string    `db:"value" json:"value,omitempty"`
}

// MetricDefinitionRole represents the 'metric_definition_roles' join table
type MetricDefinitionRole struct {
	MetricID int64 `db:"metric_id"`
	RoleID   int64 `db:"role_id"`
}

// MetricRecord represents the 'metric_records' table
type MetricRecord struct {
	ID           int64      `db:"id"`
	UserID       int64      `db:"user_id"`
	MetricID     int64      `db:"metric_id"`
	MetricType   MetricType `db:"metric_type"`
	ValueNumeric *float64   `db:"value_numeric"`
	ValueJSON    JSON       `db:"value_json"`
	ValueText    *string    `db:"value_text"`
	RecordedAt   time.Time  `db:"recorded_at"`
	Notes        *string    `db:"notes"`
}

// ReportSchedule represents the 'report_schedules' table
type ReportSchedule struct {
	DepartmentID int64     `db:"department_id" json:"department_id"`
	Cron         string    `db:"cron" json:"cron"`
	WebhookURL   string    `db:"webhook_url" json:"webhook_url"`
	Secret       string    `db:"secret" json:"-"`
	Lookback     string    `db:"lookback" json:"lookback"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// JSON holds a raw JSON/JSONB column. A nil value is SQL NULL.
type JSON []byte

func (j *JSON) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append((*j)[:0:0], v...)
	case string:
		*j = JSON(v)
	default:
		return fmt.Errorf("cannot scan %T into JSON", src)
	}
	return nil
}

func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return []byte(j), nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return json.RawMessage(j).MarshalJSON()
}

func (j *JSON) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*j = nil
		return nil
	}
	*j = append((*j)[:0:0], b...)
	return nil
}
