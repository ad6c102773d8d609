package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"

	database "github.com/Armour007/wellness-backend/internal"
	"github.com/Armour007/wellness-backend/internal/policy"
	"github.com/Armour007/wellness-backend/internal/utils"
)

const defaultListLimit = 100

func pageParams(c *gin.Context) (uint64, uint64, bool) {
	skip, limit := uint64(0), uint64(defaultListLimit)
	if v := c.Query("skip"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			badRequest(c, "skip must be a non-negative integer")
			return 0, 0, false
		}
		skip = n
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil || n == 0 || n > 1000 {
			badRequest(c, "limit must be between 1 and 1000")
			return 0, 0, false
		}
		limit = n
	}
	return skip, limit, true
}

// listUsers runs a users query filtered by role and department and attaches departments.
func listUsers(c *gin.Context, role database.Role, dept *int64, skip, limit uint64) {
	q := psql.Select(userColumns).From("users").OrderBy("id")
	if role != "" {
		q = q.Where(sq.Eq{"role": role})
	}
	if dept != nil {
		q = q.Where(sq.Eq{"department_id": *dept})
	}
	if limit > 0 {
		q = q.Offset(skip).Limit(limit)
	}
	query, args, err := q.ToSql()
	if err != nil {
		internalError(c, "Failed to build user query", err)
		return
	}
	users := []database.User{}
	if err := database.DB.SelectContext(c.Request.Context(), &users, query, args...); err != nil {
		internalError(c, "Failed to list users", err)
		return
	}
	out, err := withDepartments(c.Request.Context(), users)
	if err != nil {
		internalError(c, "Failed to load departments", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// GET /users
func ListUsers(c *gin.Context) {
	u, _ := currentUser(c)
	d, ok := authorize(c, policy.ActionUserList, policy.Own(subjectOf(u)))
	if !ok {
		return
	}
	skip, limit, ok := pageParams(c)
	if !ok {
		return
	}
	listUsers(c, "", departmentScope(d, u), skip, limit)
}

// GET /users/supervisors
func ListSupervisors(c *gin.Context) {
	listUsers(c, database.RoleSupervisor, nil, 0, 0)
}

// GET /users/employees
func ListEmployees(c *gin.Context) {
	u, _ := currentUser(c)
	d, ok := authorize(c, policy.ActionEmployeeList, policy.Own(subjectOf(u)))
	if !ok {
		return
	}
	skip, limit, ok := pageParams(c)
	if !ok {
		return
	}
	listUsers(c, database.RoleEmployee, departmentScope(d, u), skip, limit)
}

// GET /users/employees/:id
func GetEmployee(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	target, err := loadUserWithRole(c.Request.Context(), id, database.RoleEmployee)
	if err != nil {
		if database.IsNoRows(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Employee not found"})
			return
		}
		internalError(c, "Failed to load employee", err)
		return
	}
	if _, ok := authorize(c, policy.ActionEmployeeView, policy.ForUser(target)); !ok {
		return
	}
	dept, err := loadDepartment(c.Request.Context(), target.DepartmentID)
	if err != nil {
		internalError(c, "Failed to load department", err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(target, dept))
}

// createUser validates the department and uniqueness, then inserts with a fresh employee id.
// It writes the error response itself and reports whether the user was created.
func createUser(c *gin.Context, u *database.User, password string) bool {
	ctx := c.Request.Context()
	if !u.DepartmentRole.Valid() {
		badRequest(c, fmt.Sprintf("Invalid department_role %q", u.DepartmentRole))
		return false
	}
	if u.DepartmentID != nil {
		d, err := loadDepartment(ctx, u.DepartmentID)
		if err != nil {
			internalError(c, "Failed to load department", err)
			return false
		}
		if d == nil {
			badRequest(c, "Department not found")
			return false
		}
	}
	exists, err := userExists(ctx, u.Username, u.Email)
	if err != nil {
		internalError(c, "Failed to check existing users", err)
		return false
	}
	if exists {
		badRequest(c, "Username or email already registered.")
		return false
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		internalError(c, "Failed to hash password", err)
		return false
	}
	u.HashedPassword = hash
	if err := insertUser(ctx, u); err != nil {
		switch {
		case database.IsUniqueViolation(err):
			c.JSON(http.StatusConflict, gin.H{"error": "Username or email already registered."})
		case database.IsForeignKeyViolation(err):
			badRequest(c, "Department or role does not exist")
		default:
			internalError(c, "Failed to create user", err)
		}
		return false
	}
	actor, _ := currentUser(c)
	publishUsersChanged(ctx, *u, "create")
	recordAudit(ctx, u.DepartmentID, "user.created", actor.ID, gin.H{
		"user_id": u.ID, "username": u.Username, "role": u.Role, "employee_id": u.EmployeeID,
	})
	return true
}

func newUserFromRequest(req CreateUserRequest, role database.Role) database.User {
	first, last := strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName)
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	dept := req.DepartmentID
	return database.User{
		Username:       strings.TrimSpace(req.Username),
		Email:          strings.TrimSpace(req.Email),
		FirstName:      &first,
		LastName:       &last,
		Role:           role,
		DepartmentRole: req.DepartmentRole,
		DepartmentID:   &dept,
		RoleID:         req.RoleID,
		IsActive:       active,
	}
}

// POST /users/create_supervisor
func CreateSupervisor(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	nu := newUserFromRequest(req, database.RoleSupervisor)
	if _, ok := authorize(c, policy.ActionSupervisorCreate, policy.Resource{DepartmentID: nu.DepartmentID, TargetRole: nu.Role}); !ok {
		return
	}
	if !createUser(c, &nu, req.Password) {
		return
	}
	c.JSON(http.StatusCreated, CreatedUserResponse{
		Message:    fmt.Sprintf("Supervisor %s created successfully", nu.Username),
		EmployeeID: nu.EmployeeID,
		ID:         nu.ID,
	})
}

// POST /users/create_employee
func CreateEmployee(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	nu := newUserFromRequest(req, database.RoleEmployee)
	if _, ok := authorize(c, policy.ActionEmployeeCreate, policy.Resource{DepartmentID: nu.DepartmentID, TargetRole: nu.Role}); !ok {
		return
	}
	if !createUser(c, &nu, req.Password) {
		return
	}
	c.JSON(http.StatusCreated, CreatedUserResponse{
		Message:    fmt.Sprintf("Employee %s created successfully!", nu.Username),
		EmployeeID: nu.EmployeeID,
		ID:         nu.ID,
	})
}

// POST /users/register-employee
func RegisterUser(c *gin.Context) {
	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if !req.Role.Valid() {
		badRequest(c, fmt.Sprintf("Invalid role %q", req.Role))
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	nu := database.User{
		Username:       strings.TrimSpace(req.Username),
		Email:          strings.TrimSpace(req.Email),
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Role:           req.Role,
		DepartmentRole: req.DepartmentRole,
		DepartmentID:   req.DepartmentID,
		RoleID:         req.RoleID,
		IsActive:       active,
	}
	if _, ok := authorize(c, policy.ActionUserRegister, policy.Resource{DepartmentID: nu.DepartmentID, TargetRole: nu.Role}); !ok {
		return
	}
	if !createUser(c, &nu, req.Password) {
		return
	}
	dept, err := loadDepartment(c.Request.Context(), nu.DepartmentID)
	if err != nil {
		internalError(c, "Failed to load department", err)
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(nu, dept))
}

// updateUser loads a user of the given role, checks the action against both the
// current and the requested department, applies the update and saves it.
func updateUser(c *gin.Context, role database.Role, action policy.Action, notFound string) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	target, err := loadUserWithRole(ctx, id, role)
	if err != nil {
		if database.IsNoRows(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": notFound})
			return
		}
		internalError(c, "Failed to load user", err)
		return
	}
	if _, ok := authorize(c, action, policy.ForUser(target)); !ok {
		return
	}
	if req.DepartmentID != nil && !sameDepartment(req.DepartmentID, target.DepartmentID) {
		if _, ok := authorize(c, action, policy.Resource{DepartmentID: req.DepartmentID, TargetRole: role}); !ok {
			return
		}
	}
	if err := applyUserUpdate(&target, req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := saveUser(ctx, &target); err != nil {
		switch {
		case database.IsUniqueViolation(err):
			badRequest(c, "Username or email already registered.")
		case database.IsForeignKeyViolation(err):
			badRequest(c, "Department or role does not exist")
		default:
			internalError(c, "Failed to update user", err)
		}
		return
	}
	actor, _ := currentUser(c)
	publishUsersChanged(ctx, target, "update")
	recordAudit(ctx, target.DepartmentID, "user.updated", actor.ID, gin.H{
		"user_id": target.ID, "fields": req.fieldNames(),
	})
	dept, err := loadDepartment(ctx, target.DepartmentID)
	if err != nil {
		internalError(c, "Failed to load department", err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(target, dept))
}

// PUT /users/supervisors/:id
func UpdateSupervisor(c *gin.Context) {
	updateUser(c, database.RoleSupervisor, policy.ActionSupervisorUpdate, "Supervisor not found")
}

// PUT /users/employees/:id
func UpdateEmployee(c *gin.Context) {
	updateUser(c, database.RoleEmployee, policy.ActionEmployeeUpdate, "Employee not found")
}

func deleteUser(c *gin.Context, role database.Role, action policy.Action, label string) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	target, err := loadUser(ctx, id)
	if err != nil {
		if database.IsNoRows(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": label + " not found."})
			return
		}
		internalError(c, "Failed to load user", err)
		return
	}
	if target.Role != role {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete " + strings.ToLower(label) + "s."})
		return
	}
	if _, ok := authorize(c, action, policy.ForUser(target)); !ok {
		return
	}
	if _, err := database.DB.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, target.ID); err != nil {
		internalError(c, "Failed to delete user", err)
		return
	}
	actor, _ := currentUser(c)
	publishUsersChanged(ctx, target, "delete")
	recordAudit(ctx, target.DepartmentID, "user.deleted", actor.ID, gin.H{
		"user_id": target.ID, "username": target.Username, "role": target.Role,
	})
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%s %s deleted successfully.", label, target.Username)})
}

// DELETE /users/delete_supervisor/:id
func DeleteSupervisor(c *gin.Context) {
	deleteUser(c, database.RoleSupervisor, policy.ActionSupervisorDelete, "Supervisor")
}

// DELETE /users/delete_employee/:id
func DeleteEmployee(c *gin.Context) {
	deleteUser(c, database.RoleEmployee, policy.ActionEmployeeDelete, "Employee")
}
