package booking

import (
	"context"
	"errors"

	paymentRepo "reserva/database/repository/payment"
	"reserva/models"
)

// UpdatePaymentStatus mutates a payment under optimistic concurrency,
// guarding against duplicate active payments first. A payment conflict is
// critical and never auto-retried; version conflicts and transient failures
// retry per the payment profile.
func (s *DefaultBookingService) UpdatePaymentStatus(ctx context.Context, paymentID string, status models.PaymentStatus, expectedVersion int64) (int64, error) {
	if paymentID == "" {
		return 0, NewValidationError("payment id is required")
	}

	var newVersion int64

	op := Operation{
		Type:        OpPaymentUpdate,
		PaymentID:   paymentID,
		Config:      PaymentRetryConfig(),
		ShouldRetry: PaymentShouldRetry,
		Execute: func(ctx context.Context) error {
			p, err := s.Detector.Payments.GetByID(ctx, paymentID)
			if err != nil {
				if errors.Is(err, paymentRepo.ErrNotFound) {
					return NewValidationError("payment not found: " + paymentID)
				}
				return NewSystemError("payment read failed", err)
			}

			// Moving a payment into an active state must not create a
			// duplicate for the same reservation and amount.
			if isActivePaymentStatus(status) {
				if c, derr := s.Detector.CheckPayment(ctx, p.ReservationID, p.Amount, p.ID); derr != nil {
					return derr
				} else if c != nil {
					return NewConflictError(c)
				}
			}

			v, err := s.Detector.Payments.UpdateStatusWithVersion(ctx, paymentID, expectedVersion, status, "")
			if err != nil {
				if errors.Is(err, paymentRepo.ErrVersionMismatch) {
					return NewVersionConflictError("payment", expectedVersion)
				}
				return NewSystemError("payment update failed", err)
			}
			newVersion = v
			return nil
		},
	}

	result := s.Executor.ExecuteWithRetry(ctx, op)
	if !result.Success {
		return 0, result.FinalError
	}
	return newVersion, nil
}

func isActivePaymentStatus(status models.PaymentStatus) bool {
	for _, a := range models.ActivePaymentStatuses {
		if a == status {
			return true
		}
	}
	return false
}
