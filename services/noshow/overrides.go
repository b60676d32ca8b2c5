package noshow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"reserva/models"
	"reserva/services/booking"
)

// OverrideAction enumerates the manual no-show overrides.
type OverrideAction string

const (
	OverrideAttended    OverrideAction = "attended"     // confirmed -> completed
	OverrideNoShow      OverrideAction = "no_show"      // confirmed -> no_show, same side effects as the scanner
	OverrideExtendGrace OverrideAction = "extend_grace" // Push the deadline out, no status change
)

// ManualOverride lets an authorized actor resolve a pending no-show by hand.
// All paths share the transition primitive, so they carry the same audit
// guarantee as automatic detection.
func (s *Scheduler) ManualOverride(ctx context.Context, reservationID string, action OverrideAction, actor models.ActorKind, actorID, reason string, extendMinutes int) error {
	r, err := s.Reservations.GetByID(ctx, reservationID)
	if err != nil {
		return fmt.Errorf("load reservation: %w", err)
	}

	switch action {
	case OverrideAttended:
		return s.Transitioner.Apply(ctx, booking.TransitionRequest{
			ReservationID: reservationID,
			From:          models.StatusConfirmed,
			To:            models.StatusCompleted,
			ActorKind:     actor,
			ActorID:       actorID,
			Reason:        reason,
			Metadata:      map[string]any{"override": string(action)},
		})

	case OverrideNoShow:
		grace, penalty := s.policyFor(ctx, r)
		return s.declareNoShow(ctx, r, grace, penalty, actor, actorID, reason)

	case OverrideExtendGrace:
		if extendMinutes <= 0 {
			return booking.NewValidationError("extension minutes must be positive")
		}
		_, err := s.Reservations.UpdateWithVersion(ctx, reservationID, r.Version, map[string]any{
			"grace_extension_min": r.GraceExtensionMin + extendMinutes,
		})
		if err != nil {
			return fmt.Errorf("extend grace: %w", err)
		}
		s.Logger.Info("grace period extended",
			zap.String("reservation_id", reservationID),
			zap.Int("minutes", extendMinutes),
			zap.String("actor", string(actor)),
			zap.String("reason", reason))
		return nil

	default:
		return booking.NewValidationError("unknown override action: " + string(action))
	}
}
