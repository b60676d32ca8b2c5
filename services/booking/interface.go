package booking

import (
	"context"

	"reserva/models"
)

// Service is the booking core exposed to handlers and background jobs.
type Service interface {
	CreateReservationWithLock(ctx context.Context, req models.CreateReservationRequest) (*models.CreateReservationResult, error)
	UpdateReservationWithLock(ctx context.Context, id string, patch models.UpdateReservationPatch, expectedVersion int64) (*models.UpdateReservationResult, error)
	UpdatePaymentStatus(ctx context.Context, paymentID string, status models.PaymentStatus, expectedVersion int64) (int64, error)
	DetectRealTimeConflicts(ctx context.Context, req DetectRequest) ([]models.Conflict, error)
	ResolveConflicts(ctx context.Context, conflictIDs []string, approved bool) ([]models.ResolutionResult, error)
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	ListReservations(ctx context.Context, shopID, date string) ([]models.Reservation, error)
}
