package reservationRepo

import (
	"context"
	"errors"
	"time"

	"reserva/models"
)

// ErrNotFound is returned when a requested reservation does not exist.
var ErrNotFound = errors.New("reservation not found")

// ErrVersionMismatch is returned when an optimistic update sees a stale version.
var ErrVersionMismatch = errors.New("reservation version mismatch")

// ErrEdgeTaken is returned when a status CAS finds the reservation no longer
// in the expected from-status.
var ErrEdgeTaken = errors.New("reservation not in expected status")

// Repository is the persistence boundary for reservations. Status moves only
// through TransitionStatus, which enforces the one-shot CAS edge.
type Repository interface {
	Insert(ctx context.Context, r *models.Reservation) error
	GetByID(ctx context.Context, id string) (*models.Reservation, error)
	ListActiveByShopDate(ctx context.Context, shopID, date string) ([]models.Reservation, error)
	CountActiveAt(ctx context.Context, shopID, date string, atMinutes int) (int, error)
	ListByShopDate(ctx context.Context, shopID, date string) ([]models.Reservation, error)

	// UpdateWithVersion applies fields iff the stored version equals
	// expectedVersion, incrementing version by one. Returns the new version or
	// ErrVersionMismatch.
	UpdateWithVersion(ctx context.Context, id string, expectedVersion int64, fields map[string]any) (int64, error)

	// TransitionStatus moves id from -> to and applies extra fields in the
	// same write. The filter on the from-status makes the edge one-shot:
	// a concurrent second caller gets ErrEdgeTaken.
	TransitionStatus(ctx context.Context, id string, from, to models.ReservationStatus, extra map[string]any) error

	// ListConfirmedInWindow returns confirmed reservations scheduled inside
	// [from, to), bounding the no-show scan.
	ListConfirmedInWindow(ctx context.Context, from, to time.Time) ([]models.Reservation, error)

	// MarkWarned flips the no-show warning flag; returns false when the flag
	// was already set, so the warning fires once.
	MarkWarned(ctx context.Context, id string) (bool, error)
}
