package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	conflictRepo "reserva/database/repository/conflict"
	"reserva/services/booking"
	"reserva/utils"
)

// ConflictHandler exposes detection and resolution endpoints.
type ConflictHandler struct {
	Service   booking.Service
	Conflicts conflictRepo.Repository
	Logger    *zap.Logger
}

// NewConflictHandler constructs a ConflictHandler.
func NewConflictHandler(service booking.Service, conflicts conflictRepo.Repository, logger *zap.Logger) *ConflictHandler {
	return &ConflictHandler{Service: service, Conflicts: conflicts, Logger: logger}
}

// Detect handles POST /api/conflicts/detect. It runs every applicable check
// for the described operation and returns the conflicts found, if any.
func (h *ConflictHandler) Detect(c *gin.Context) {
	var req booking.DetectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	conflicts, err := h.Service.DetectRealTimeConflicts(c.Request.Context(), req)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "conflict detection failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"conflicts": conflicts, "count": len(conflicts)})
}

// Resolve handles POST /api/conflicts/resolve. Strategies that require
// approval come back as pending; the admin approval endpoint re-submits
// them with approved set.
func (h *ConflictHandler) Resolve(c *gin.Context) {
	var input struct {
		ConflictIDs []string `json:"conflict_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	results, err := h.Service.ResolveConflicts(c.Request.Context(), input.ConflictIDs, false)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "conflict resolution failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// ListOpen handles GET /api/conflicts?shop_id=&limit=.
func (h *ConflictHandler) ListOpen(c *gin.Context) {
	shopID := c.Query("shop_id")
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			utils.JSONError(c, http.StatusBadRequest, "invalid limit", raw)
			return
		}
		limit = n
	}

	open, err := h.Conflicts.ListOpen(c.Request.Context(), shopID, int64(limit))
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to list conflicts", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"conflicts": open, "count": len(open)})
}
