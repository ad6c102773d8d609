package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	database "github.com/Armour007/wellness-backend/internal"
)

const departmentColumns = `id, name, type, description, created_at, updated_at`

// GET /departments and GET /users/departments
func ListDepartments(c *gin.Context) {
	rows := []database.Department{}
	if err := database.DB.SelectContext(c.Request.Context(), &rows, `SELECT `+departmentColumns+` FROM departments ORDER BY id`); err != nil {
		internalError(c, "Failed to list departments", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GET /departments/:id
func GetDepartment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	d, err := loadDepartment(c.Request.Context(), &id)
	if err != nil {
		internalError(c, "Failed to load department", err)
		return
	}
	if d == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Department not found"})
		return
	}
	c.JSON(http.StatusOK, d)
}

// POST /users/departments
func CreateDepartment(c *gin.Context) {
	var req DepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if !req.Type.Valid() {
		badRequest(c, fmt.Sprintf("Invalid department type %q", req.Type))
		return
	}
	ctx := c.Request.Context()
	name := strings.TrimSpace(req.Name)
	var exists bool
	if err := database.DB.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM departments WHERE name=$1)`, name); err != nil {
		internalError(c, "Failed to check departments", err)
		return
	}
	if exists {
		badRequest(c, "Department with this name already exists.")
		return
	}
	var d database.Department
	err := database.DB.GetContext(ctx, &d, `INSERT INTO departments (name, type, description) VALUES ($1,$2,$3) RETURNING `+departmentColumns, name, req.Type, req.Description)
	if err != nil {
		if database.IsUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "Department with this name already exists."})
			return
		}
		internalError(c, "Failed to create department", err)
		return
	}
	actor, _ := currentUser(c)
	publishDepartmentsChanged(ctx, d.ID, "create")
	recordAudit(ctx, nil, "department.created", actor.ID, gin.H{"department_id": d.ID, "name": d.Name, "type": d.Type})
	c.JSON(http.StatusCreated, d)
}

// PUT /departments/:id
func UpdateDepartment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req UpdateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	d, err := loadDepartment(ctx, &id)
	if err != nil {
		internalError(c, "Failed to load department", err)
		return
	}
	if d == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Department not found"})
		return
	}
	if req.Name != nil {
		d.Name = strings.TrimSpace(*req.Name)
	}
	if req.Type != nil {
		if !req.Type.Valid() {
			badRequest(c, fmt.Sprintf("Invalid department type %q", *req.Type))
			return
		}
		d.Type = *req.Type
	}
	if req.Description != nil {
		d.Description = req.Description
	}
	err = database.DB.GetContext(ctx, d, `UPDATE departments SET name=$1, type=$2, description=$3, updated_at=NOW() WHERE id=$4 RETURNING `+departmentColumns, d.Name, d.Type, d.Description, id)
	if err != nil {
		if database.IsUniqueViolation(err) {
			badRequest(c, "Department with this name already exists.")
			return
		}
		internalError(c, "Failed to update department", err)
		return
	}
	actor, _ := currentUser(c)
	publishDepartmentsChanged(ctx, id, "update")
	recordAudit(ctx, &id, "department.updated", actor.ID, gin.H{"department_id": id, "name": d.Name, "type": d.Type})
	c.JSON(http.StatusOK, d)
}

// DELETE /departments/:id
func DeleteDepartment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	d, err := loadDepartment(ctx, &id)
	if err != nil {
		internalError(c, "Failed to load department", err)
		return
	}
	if d == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Department not found"})
		return
	}
	var assigned int
	if err := database.DB.GetContext(ctx, &assigned, `SELECT COUNT(*) FROM users WHERE department_id=$1`, id); err != nil {
		internalError(c, "Failed to count department users", err)
		return
	}
	if assigned > 0 {
		badRequest(c, fmt.Sprintf("Department still has %d assigned users", assigned))
		return
	}
	if _, err := database.DB.ExecContext(ctx, `DELETE FROM departments WHERE id=$1`, id); err != nil {
		if database.IsForeignKeyViolation(err) {
			badRequest(c, "Department is still referenced by metric definitions")
			return
		}
		internalError(c, "Failed to delete department", err)
		return
	}
	// report_schedules rows cascade with the department
	unregisterJob(id)
	actor, _ := currentUser(c)
	publishDepartmentsChanged(ctx, id, "delete")
	recordAudit(ctx, nil, "department.deleted", actor.ID, gin.H{"department_id": id, "name": d.Name})
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Department %s deleted successfully.", d.Name)})
}
