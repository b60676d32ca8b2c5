package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	auditRepo "reserva/database/repository/audit"
	reservationRepo "reserva/database/repository/reservation"
	"reserva/models"
)

// allowedEdges is the reservation state machine. Every edge is one-shot:
// the repository CAS on the from-status rejects a concurrent second writer.
var allowedEdges = map[models.ReservationStatus][]models.ReservationStatus{
	models.StatusRequested: {
		models.StatusConfirmed,
		models.StatusCancelledByUser,
		models.StatusCancelledByShop,
	},
	models.StatusConfirmed: {
		models.StatusInProgress,
		models.StatusCompleted,
		models.StatusCancelledByUser,
		models.StatusCancelledByShop,
		models.StatusNoShow,
	},
	models.StatusInProgress: {
		models.StatusCompleted,
		models.StatusCancelledByShop,
	},
}

func edgeAllowed(from, to models.ReservationStatus) bool {
	for _, t := range allowedEdges[from] {
		if t == to {
			return true
		}
	}
	return false
}

// ErrAuditLost marks a transition whose status CAS committed but whose audit
// entry could not be appended. Callers that own follow-up side effects must
// still run them: the edge is consumed.
var ErrAuditLost = errors.New("audit entry lost after committed transition")

// Transitioner is the single primitive through which a reservation's status
// changes. Appending the audit entry is part of the transition; there is no
// other write path for the status field.
type Transitioner struct {
	Reservations reservationRepo.Repository
	Audit        auditRepo.Repository
	Logger       *zap.Logger
}

// NewTransitioner constructs a Transitioner.
func NewTransitioner(reservations reservationRepo.Repository, audit auditRepo.Repository, logger *zap.Logger) *Transitioner {
	return &Transitioner{Reservations: reservations, Audit: audit, Logger: logger}
}

// TransitionRequest describes one status change attempt.
type TransitionRequest struct {
	ReservationID string
	From          models.ReservationStatus
	To            models.ReservationStatus
	ActorKind     models.ActorKind
	ActorID       string
	Reason        string
	Metadata      map[string]any
	Extra         map[string]any // Additional reservation fields set atomically with the status
}

// Apply performs the transition and writes the audit entry. Rejected
// transitions (bad edge, lost race) are audited as failures too, so the
// compliance report sees every attempt.
func (t *Transitioner) Apply(ctx context.Context, req TransitionRequest) error {
	started := time.Now()

	var applyErr error
	if !edgeAllowed(req.From, req.To) {
		applyErr = NewValidationError("transition " + string(req.From) + " -> " + string(req.To) + " is not allowed")
	} else {
		applyErr = t.Reservations.TransitionStatus(ctx, req.ReservationID, req.From, req.To, req.Extra)
		switch {
		case applyErr == nil:
		case errors.Is(applyErr, reservationRepo.ErrEdgeTaken):
			applyErr = NewVersionConflictError("reservation status", 0)
		case errors.Is(applyErr, reservationRepo.ErrNotFound):
			applyErr = NewValidationError("reservation not found: " + req.ReservationID)
		default:
			applyErr = NewSystemError("status transition write failed", applyErr)
		}
	}

	meta := map[string]any{"processing_ms": time.Since(started).Milliseconds()}
	for k, v := range req.Metadata {
		meta[k] = v
	}
	entry := &models.AuditEntry{
		ID:            uuid.New().String(),
		ReservationID: req.ReservationID,
		FromStatus:    req.From,
		ToStatus:      req.To,
		ActorKind:     req.ActorKind,
		ActorID:       req.ActorID,
		Reason:        req.Reason,
		Success:       applyErr == nil,
		Metadata:      meta,
		CreatedAt:     time.Now().UTC(),
	}
	if err := t.Audit.Append(ctx, entry); err != nil {
		// The transition already happened; losing the audit row is worse
		// than failing the call.
		t.Logger.Error("audit append failed after transition",
			zap.String("reservation_id", req.ReservationID),
			zap.Error(err))
		if applyErr == nil {
			return NewSystemError("audit append failed", fmt.Errorf("%w: %v", ErrAuditLost, err))
		}
	}

	if applyErr == nil {
		t.Logger.Info("reservation transitioned",
			zap.String("reservation_id", req.ReservationID),
			zap.String("from", string(req.From)),
			zap.String("to", string(req.To)),
			zap.String("actor", string(req.ActorKind)))
	}
	return applyErr
}
