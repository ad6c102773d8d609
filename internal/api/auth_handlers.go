package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	database "github.com/Armour007/wellness-backend/internal"
	"github.com/Armour007/wellness-backend/internal/logging"
	"github.com/Armour007/wellness-backend/internal/utils"
)

// missingUserCheck burns a bcrypt comparison when no user matched.
var missingUserCheck = utils.CompareDummyHash

// Login implements the OAuth2 password flow. The form or JSON username may be an email.
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	user, err := loadUserByLogin(c.Request.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		if database.IsNoRows(err) {
			missingUserCheck(req.Password)
			RecordLogin("invalid")
			unauthorized(c, "Incorrect username or password")
			return
		}
		internalError(c, "Database error", err)
		return
	}
	if !utils.CheckPasswordHash(req.Password, user.HashedPassword) {
		RecordLogin("invalid")
		unauthorized(c, "Incorrect username or password")
		return
	}
	if !user.IsActive {
		RecordLogin("inactive")
		unauthorized(c, "Inactive user")
		return
	}

	token, err := utils.GenerateJWT(jwtSecret, tokenTTL, user.ID, string(user.Role), user.DepartmentID)
	if err != nil {
		RecordLogin("error")
		internalError(c, "Failed to generate token", err)
		return
	}
	RecordLogin("success")
	logging.L().Info("login", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
	c.JSON(http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(tokenTTL.Seconds()),
	})
}
