package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"signal-market/internal/auth"
	"signal-market/internal/services"
)

// UserHandler handles user-related endpoints
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetProfile returns the current user's profile
// GET /api/user/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	profile, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}

// UpdateNickname changes the current user's nickname
// POST /api/user/nickname
func (h *UserHandler) UpdateNickname(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req struct {
		Nickname string `json:"nickname" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := h.userService.UpdateNickname(c.Request.Context(), userID, req.Nickname)
	switch {
	case errors.Is(err, services.ErrInvalidNickname):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "reason": "INVALID_NICKNAME"})
		return
	case errors.Is(err, services.ErrNicknameTaken):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error(), "reason": "NICKNAME_TAKEN"})
		return
	case err != nil:
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
