package retrylogRepo

import (
	"context"
	"time"

	"reserva/models"
)

// Repository persists retry operation records for the tracker.
type Repository interface {
	Insert(ctx context.Context, op *models.RetryOperation) error

	// AppendAttempt pushes one attempt onto the operation and bumps the
	// aggregated conflict/lock-timeout/deadlock counters.
	AppendAttempt(ctx context.Context, opID string, attempt models.RetryAttempt) error

	// Complete closes the record; it is immutable afterwards.
	Complete(ctx context.Context, opID string, success bool, finalError models.ErrorKind) error

	GetByID(ctx context.Context, opID string) (*models.RetryOperation, error)

	// Stats aggregates operations started in [from, to), optionally filtered
	// by shop and operation type.
	Stats(ctx context.Context, from, to time.Time, shopID, operationType string) ([]models.OperationStats, error)

	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
