package pointsRepo

import (
	"context"

	"reserva/models"
)

// Repository is the user point ledger. The balance is derived by summing
// deltas; entries are append-only.
type Repository interface {
	Balance(ctx context.Context, userID string) (int, error)
	Append(ctx context.Context, e *models.PointEntry) error

	// HasPenaltyFor reports whether a penalty entry already exists for the
	// reservation, the second idempotency guard behind the state machine.
	HasPenaltyFor(ctx context.Context, userID, reservationID string) (bool, error)
}
