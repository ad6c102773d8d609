package api

import (
	"time"

	database "github.com/Armour007/wellness-backend/internal"
)

// LoginRequest accepts the OAuth2 password form or JSON. Username may hold an email.
type LoginRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// UserResponse is a user without credentials.
type UserResponse struct {
	ID             int64                   `json:"id"`
	Username       string                  `json:"username"`
	Email          string                  `json:"email"`
	FirstName      *string                 `json:"first_name"`
	LastName       *string                 `json:"last_name"`
	EmployeeID     string                  `json:"employee_id"`
	Role           database.Role           `json:"role"`
	DepartmentRole database.DepartmentRole `json:"department_role"`
	DepartmentID   *int64                  `json:"department_id"`
	RoleID         *int64                  `json:"role_id"`
	IsActive       bool                    `json:"is_active"`
	Department     *database.Department    `json:"department"`
	CreatedAt      time.Time               `json:"created_at"`
}

func toUserResponse(u database.User, dept *database.Department) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		EmployeeID:     u.EmployeeID,
		Role:           u.Role,
		DepartmentRole: u.DepartmentRole,
		DepartmentID:   u.DepartmentID,
		RoleID:         u.RoleID,
		IsActive:       u.IsActive,
		Department:     dept,
		CreatedAt:      u.CreatedAt,
	}
}

// ProfileResponse is returned by /profile/me.
type ProfileResponse struct {
	ID             int64                   `json:"id"`
	Username       string                  `json:"username"`
	Email          string                  `json:"email"`
	FirstName      *string                 `json:"first_name"`
	LastName       *string                 `json:"last_name"`
	Role           database.Role           `json:"role"`
	DepartmentRole database.DepartmentRole `json:"department_role"`
	DepartmentID   *int64                  `json:"department_id"`
	EmployeeID     string                  `json:"employee_id"`
	RoleID         *int64                  `json:"role_id"`
	Department     *database.Department    `json:"department"`
}

// CreateUserRequest is the body of create_supervisor and create_employee.
type CreateUserRequest struct {
	Username       string                  `json:"username" binding:"required,max=50"`
	Email          string                  `json:"email" binding:"required,email,max=100"`
	Password       string                  `json:"password" binding:"required,min=8,max=72"`
	FirstName      string                  `json:"first_name" binding:"required,max=50"`
	LastName       string                  `json:"last_name" binding:"required,max=50"`
	DepartmentRole database.DepartmentRole `json:"department_role" binding:"required"`
	DepartmentID   int64                   `json:"department_id" binding:"required"`
	RoleID         *int64                  `json:"role_id"`
	IsActive       *bool                   `json:"is_active"`
}

// RegisterUserRequest is the legacy unified create body.
type RegisterUserRequest struct {
	Username       string                  `json:"username" binding:"required,max=50"`
	Email          string                  `json:"email" binding:"required,email,max=100"`
	Password       string                  `json:"password" binding:"required,min=8,max=72"`
	FirstName      *string                 `json:"first_name"`
	LastName       *string                 `json:"last_name"`
	Role           database.Role           `json:"role" binding:"required"`
	DepartmentRole database.DepartmentRole `json:"department_role" binding:"required"`
	DepartmentID   *int64                  `json:"department_id"`
	RoleID         *int64                  `json:"role_id"`
	IsActive       *bool                   `json:"is_active"`
}

// UpdateUserRequest applies only the fields present.
type UpdateUserRequest struct {
	Username       *string                  `json:"username" binding:"omitempty,max=50"`
	Email          *string                  `json:"email" binding:"omitempty,email,max=100"`
	Password       *string                  `json:"password" binding:"omitempty,min=8,max=72"`
	FirstName      *string                  `json:"first_name" binding:"omitempty,max=50"`
	LastName       *string                  `json:"last_name" binding:"omitempty,max=50"`
	DepartmentRole *database.DepartmentRole `json:"department_role"`
	DepartmentID   *int64                   `json:"department_id"`
	RoleID         *int64                   `json:"role_id"`
	IsActive       *bool                    `json:"is_active"`
}

type CreatedUserResponse struct {
	Message    string `json:"message"`
	EmployeeID string `json:"employee_id"`
	ID         int64  `json:"id"`
}

type DepartmentRequest struct {
	Name        string                  `json:"name" binding:"required,max=100"`
	Type        database.DepartmentType `json:"type" binding:"required"`
	Description *string                 `json:"description" binding:"omitempty,max=255"`
}

type UpdateDepartmentRequest struct {
	Name        *string                  `json:"name" binding:"omitempty,max=100"`
	Type        *database.DepartmentType `json:"type"`
	Description *string                  `json:"description" binding:"omitempty,max=255"`
}

type MetricDefinitionRequest struct {
	MetricName               string              `json:"metric_name" binding:"required,max=100"`
	MetricDescription        *string             `json:"metric_description"`
	MetricType               database.MetricType `json:"metric_type" binding:"required"`
	DepartmentID             *int64              `json:"department_id"`
	Unit                     *string             `json:"unit" binding:"omitempty,max=20"`
	MetricFormula            *string             `json:"metric_formula"`
	MetricFormulaDescription *string             `json:"metric_formula_description"`
	IsAggregated             *bool               `json:"is_aggregated"`
	IsNumeric                *bool               `json:"is_numeric"`
	Value                    *string             `json:"value"`
	RoleIDs                  []int64             `json:"role_ids"`
}

type EmployeeRoleRequest struct {
	RoleName        string  `json:"role_name" binding:"required,max=100"`
	RoleDescription *string `json:"role_description"`
}

type MetricRolesRequest struct {
	RoleIDs []int64 `json:"role_ids" binding:"required"`
}

// SubmittedMetric is one value in a submission.
type SubmittedMetric struct {
	MetricID     int64         `json:"metric_id" binding:"required"`
	ValueNumeric *float64      `json:"value_numeric"`
	ValueText    *string       `json:"value_text"`
	ValueJSON    database.JSON `json:"value_json"`
	Notes        *string       `json:"notes"`
}

type SubmitMetricsRequest struct {
	Date    string            `json:"date" binding:"required"`
	Metrics []SubmittedMetric `json:"metrics" binding:"required,min=1,dive"`
}

type SubmitMetricsResponse struct {
	Message   string  `json:"message"`
	Count     int     `json:"count"`
	RecordIDs []int64 `json:"record_ids"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

type ReportScheduleRequest struct {
	Cron       string `json:"cron" binding:"required"`
	WebhookURL string `json:"webhook_url" binding:"required,url"`
	Secret     string `json:"secret" binding:"required,min=16"`
	Lookback   string `json:"lookback"`
}

// fieldNames lists the fields present in the update, for the audit trail.
func (r UpdateUserRequest) fieldNames() []string {
	var out []string
	add := func(present bool, name string) {
		if present {
			out = append(out, name)
		}
	}
	add(r.Username != nil, "username")
	add(r.Email != nil, "email")
	add(r.Password != nil, "password")
	add(r.FirstName != nil, "first_name")
	add(r.LastName != nil, "last_name")
	add(r.DepartmentRole != nil, "department_role")
	add(r.DepartmentID != nil, "department_id")
	add(r.RoleID != nil, "role_id")
	add(r.IsActive != nil, "is_active")
	return out
}
