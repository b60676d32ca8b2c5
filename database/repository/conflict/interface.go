package conflictRepo

import (
	"context"
	"errors"
	"time"

	"reserva/models"
)

// ErrNotFound is returned when a requested conflict does not exist.
var ErrNotFound = errors.New("conflict not found")

// ErrAlreadyClosed is returned when a close races with another resolver call.
var ErrAlreadyClosed = errors.New("conflict already resolved or failed")

// Repository persists conflict records. Records are never deleted outside
// retention cleanup.
type Repository interface {
	Insert(ctx context.Context, c *models.Conflict) error
	GetByID(ctx context.Context, id string) (*models.Conflict, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Conflict, error)
	ListOpen(ctx context.Context, shopID string, limit int64) ([]models.Conflict, error)

	// Close transitions detected -> resolved/failed with first-write-wins
	// semantics: a second concurrent close gets ErrAlreadyClosed.
	Close(ctx context.Context, id string, status models.ConflictStatus, strategyID, notes string) error

	// DeleteClosedBefore removes resolved/failed conflicts older than cutoff
	// and reports how many were deleted.
	DeleteClosedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
