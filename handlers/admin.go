package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"reserva/models"
	"reserva/services/booking"
	"reserva/services/noshow"
	"reserva/services/tracker"
	"reserva/utils"
)

// AdminHandler groups the operator-facing endpoints: manual no-show
// overrides, conflict approvals, statistics and compliance reports, and
// on-demand retention cleanup.
type AdminHandler struct {
	Service   booking.Service
	Scheduler *noshow.Scheduler
	Tracker   *tracker.Tracker
	Retention tracker.RetentionPolicy
	Logger    *zap.Logger
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(service booking.Service, scheduler *noshow.Scheduler, trk *tracker.Tracker, retention tracker.RetentionPolicy, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{Service: service, Scheduler: scheduler, Tracker: trk, Retention: retention, Logger: logger}
}

// Override handles POST /api/admin/reservations/:id/override.
func (h *AdminHandler) Override(c *gin.Context) {
	var input struct {
		Action        noshow.OverrideAction `json:"action" binding:"required"`
		Reason        string                `json:"reason" binding:"required"`
		ExtendMinutes int                   `json:"extend_minutes"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	actorID := c.GetString("actorID")
	err := h.Scheduler.ManualOverride(c.Request.Context(), c.Param("id"), input.Action, models.ActorAdmin, actorID, input.Reason, input.ExtendMinutes)
	if err != nil {
		utils.JSONError(c, http.StatusConflict, "override failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ApproveResolution handles POST /api/admin/conflicts/resolve. It replays
// pending resolutions with approval granted.
func (h *AdminHandler) ApproveResolution(c *gin.Context) {
	var input struct {
		ConflictIDs []string `json:"conflict_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	results, err := h.Service.ResolveConflicts(c.Request.Context(), input.ConflictIDs, true)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "conflict resolution failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// Stats handles GET /api/admin/stats?from=&to=&shop_id=&operation_type=.
func (h *AdminHandler) Stats(c *gin.Context) {
	from, to, ok := h.parseRange(c)
	if !ok {
		return
	}

	stats, err := h.Tracker.GetOperationStatistics(c.Request.Context(), tracker.StatsFilter{
		From:          from,
		To:            to,
		ShopID:        c.Query("shop_id"),
		OperationType: c.Query("operation_type"),
	})
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to compute statistics", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// Compliance handles GET /api/admin/reports/compliance?from=&to=.
func (h *AdminHandler) Compliance(c *gin.Context) {
	from, to, ok := h.parseRange(c)
	if !ok {
		return
	}

	report, err := h.Tracker.GenerateComplianceReport(c.Request.Context(), from, to)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to generate report", err.Error())
		return
	}
	c.JSON(http.StatusOK, report)
}

// Trends handles GET /api/admin/reports/trends?from=&to=.
func (h *AdminHandler) Trends(c *gin.Context) {
	from, to, ok := h.parseRange(c)
	if !ok {
		return
	}

	report, err := h.Tracker.AnalyzeTrends(c.Request.Context(), from, to)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to analyze trends", err.Error())
		return
	}
	c.JSON(http.StatusOK, report)
}

// Cleanup handles POST /api/admin/cleanup. The background loop runs the
// same policy on a timer; this endpoint exists for operators who want the
// purge now.
func (h *AdminHandler) Cleanup(c *gin.Context) {
	operations, conflicts, auditRows, err := h.Tracker.Cleanup(c.Request.Context(), h.Retention)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "cleanup failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"operations_removed": operations,
		"conflicts_removed":  conflicts,
		"audit_rows_removed": auditRows,
	})
}

// parseRange reads from/to query params as RFC 3339, defaulting to the
// trailing 24 hours.
func (h *AdminHandler) parseRange(c *gin.Context) (time.Time, time.Time, bool) {
	to := time.Now().UTC()
	from := to.Add(-24 * time.Hour)

	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid from timestamp", raw)
			return time.Time{}, time.Time{}, false
		}
		from = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid to timestamp", raw)
			return time.Time{}, time.Time{}, false
		}
		to = t
	}
	if !from.Before(to) {
		utils.JSONError(c, http.StatusBadRequest, "from must precede to", "")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
