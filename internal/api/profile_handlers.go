package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	database "github.com/Armour007/wellness-backend/internal"
	"github.com/Armour007/wellness-backend/internal/utils"
)

func profileOf(u database.User, dept *database.Department) ProfileResponse {
	return ProfileResponse{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Role:           u.Role,
		DepartmentRole: u.DepartmentRole,
		DepartmentID:   u.DepartmentID,
		EmployeeID:     u.EmployeeID,
		RoleID:         u.RoleID,
		Department:     dept,
	}
}

// GetMe returns the current authenticated user's profile
func GetMe(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		unauthorized(c, "Not authenticated")
		return
	}
	dept, err := loadDepartment(c.Request.Context(), u.DepartmentID)
	if err != nil {
		internalError(c, "Failed to load profile", err)
		return
	}
	c.JSON(http.StatusOK, profileOf(u, dept))
}

type UpdateMeRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,max=50"`
	LastName  *string `json:"last_name" binding:"omitempty,max=50"`
}

// UpdateMe updates the caller's display name
func UpdateMe(c *gin.Context) {
	u, _ := currentUser(c)
	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if req.FirstName == nil && req.LastName == nil {
		badRequest(c, "first_name or last_name is required")
		return
	}
	if req.FirstName != nil {
		v := strings.TrimSpace(*req.FirstName)
		u.FirstName = &v
	}
	if req.LastName != nil {
		v := strings.TrimSpace(*req.LastName)
		u.LastName = &v
	}
	ctx := c.Request.Context()
	if _, err := database.DB.ExecContext(ctx, `UPDATE users SET first_name=$1, last_name=$2, updated_at=NOW() WHERE id=$3`, u.FirstName, u.LastName, u.ID); err != nil {
		internalError(c, "Failed to update profile", err)
		return
	}
	publishUsersChanged(ctx, u, "update")
	dept, err := loadDepartment(ctx, u.DepartmentID)
	if err != nil {
		internalError(c, "Failed to load profile", err)
		return
	}
	c.JSON(http.StatusOK, profileOf(u, dept))
}

// ChangePassword changes the current user's password after verifying the current one
func ChangePassword(c *gin.Context) {
	u, _ := currentUser(c)
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if !utils.CheckPasswordHash(req.CurrentPassword, u.HashedPassword) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Current password is incorrect"})
		return
	}
	local, _, _ := strings.Cut(u.Email, "@")
	if ok, why := utils.ValidatePasswordPolicy(req.NewPassword, u.Username, local); !ok {
		badRequest(c, why)
		return
	}
	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		internalError(c, "Failed to hash password", err)
		return
	}
	ctx := c.Request.Context()
	if _, err := database.DB.ExecContext(ctx, `UPDATE users SET hashed_password=$1, updated_at=NOW() WHERE id=$2`, hash, u.ID); err != nil {
		internalError(c, "Failed to update password", err)
		return
	}
	recordAudit(ctx, u.DepartmentID, "user.password_changed", u.ID, gin.H{"user_id": u.ID})
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}
