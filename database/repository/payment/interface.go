package paymentRepo

import (
	"context"
	"errors"

	"reserva/models"
)

// ErrNotFound is returned when a requested payment does not exist.
var ErrNotFound = errors.New("payment not found")

// ErrVersionMismatch is returned when a versioned payment update is stale.
var ErrVersionMismatch = errors.New("payment version mismatch")

// Repository persists payment rows for the booking core. Gateway interaction
// lives elsewhere; this layer only records state.
type Repository interface {
	Insert(ctx context.Context, p *models.Payment) error
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	ListByReservation(ctx context.Context, reservationID string) ([]models.Payment, error)

	// FindActiveDuplicates returns payments on the same reservation with the
	// same amount in an active state, excluding excludeID. A non-empty result
	// is a payment conflict.
	FindActiveDuplicates(ctx context.Context, reservationID string, amount int64, excludeID string) ([]models.Payment, error)

	// UpdateStatusWithVersion applies a status change iff the stored version
	// matches, incrementing the version. Returns the new version.
	UpdateStatusWithVersion(ctx context.Context, id string, expectedVersion int64, status models.PaymentStatus, gatewayRef string) (int64, error)
}
