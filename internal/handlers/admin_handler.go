package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"signal-market/internal/access"
)

// AdminHandler serves owner-only administration.
type AdminHandler struct {
	access *access.Control
}

func NewAdminHandler(ac *access.Control) *AdminHandler {
	return &AdminHandler{access: ac}
}

// TransferOwnership hands the owner role to another address.
// POST /api/admin/owner
func (h *AdminHandler) TransferOwnership(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}

	var req struct {
		NewOwner string `json:"new_owner" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := h.access.TransferOwnership(c.Request.Context(), caller, req.NewOwner); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"owner": h.access.Owner()})
}

// GetAuditLog lists recent administrative actions.
// GET /api/admin/logs?limit=
func (h *AdminHandler) GetAuditLog(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > maxPageSize {
		badRequest(c, "invalid limit")
		return
	}

	logs, err := h.access.AuditLog(c.Request.Context(), caller, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, logs)
}
