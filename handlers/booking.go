package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"reserva/models"
	"reserva/services/booking"
	"reserva/utils"
)

// BookingHandler exposes the booking core over HTTP. No concurrency logic
// lives here; it validates input and translates typed errors into status
// codes.
type BookingHandler struct {
	Service booking.Service
	Logger  *zap.Logger
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(service booking.Service, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{Service: service, Logger: logger}
}

// CreateReservation handles POST /api/reservations.
func (h *BookingHandler) CreateReservation(c *gin.Context) {
	var req models.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	result, err := h.Service.CreateReservationWithLock(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !result.Success {
		c.JSON(http.StatusConflict, result)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// UpdateReservation handles PUT /api/reservations/:id.
func (h *BookingHandler) UpdateReservation(c *gin.Context) {
	var input struct {
		Patch           models.UpdateReservationPatch `json:"patch"`
		ExpectedVersion int64                         `json:"expected_version" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	result, err := h.Service.UpdateReservationWithLock(c.Request.Context(), c.Param("id"), input.Patch, input.ExpectedVersion)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !result.Success {
		c.JSON(http.StatusConflict, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetReservation handles GET /api/reservations/:id.
func (h *BookingHandler) GetReservation(c *gin.Context) {
	r, err := h.Service.GetReservation(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "reservation not found", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, r)
}

// ListReservations handles GET /api/reservations?shop_id=&date=.
func (h *BookingHandler) ListReservations(c *gin.Context) {
	shopID := c.Query("shop_id")
	date := c.Query("date")
	if shopID == "" || date == "" {
		utils.JSONError(c, http.StatusBadRequest, "shop_id and date are required", "")
		return
	}
	list, err := h.Service.ListReservations(c.Request.Context(), shopID, date)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservations": list, "count": len(list)})
}

// UpdatePayment handles PUT /api/payments/:id/status.
func (h *BookingHandler) UpdatePayment(c *gin.Context) {
	var input struct {
		Status          models.PaymentStatus `json:"status" binding:"required"`
		ExpectedVersion int64                `json:"expected_version" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	newVersion, err := h.Service.UpdatePaymentStatus(c.Request.Context(), c.Param("id"), input.Status, input.ExpectedVersion)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "new_version": newVersion})
}

// writeError maps the typed error taxonomy onto HTTP. Callers get a stable
// code plus retryability; raw internals stay in the logs.
func (h *BookingHandler) writeError(c *gin.Context, err error) {
	kind := booking.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case models.ErrKindValidation:
		status = http.StatusBadRequest
	case models.ErrKindConflict, models.ErrKindVersionConflict, models.ErrKindPaymentConflict:
		status = http.StatusConflict
	case models.ErrKindLockTimeout, models.ErrKindTimeout:
		status = http.StatusServiceUnavailable
	}

	h.Logger.Warn("booking operation failed",
		zap.String("error_kind", string(kind)),
		zap.Error(err))

	body := gin.H{
		"error_code": string(kind),
		"retryable":  booking.IsRetryable(err),
	}
	if conflict := booking.ConflictOf(err); conflict != nil {
		body["conflict"] = conflict
	}
	c.JSON(status, body)
}
