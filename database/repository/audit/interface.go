package auditRepo

import (
	"context"
	"time"

	"reserva/models"
)

// Repository is the append-only store for status-transition audit entries.
type Repository interface {
	Append(ctx context.Context, e *models.AuditEntry) error
	ListByReservation(ctx context.Context, reservationID string) ([]models.AuditEntry, error)

	CountBetween(ctx context.Context, from, to time.Time) (total, failed int64, err error)
	StatusPairStats(ctx context.Context, from, to time.Time) ([]models.StatusPairStats, error)
	ActorStats(ctx context.Context, from, to time.Time) ([]models.ActorStats, error)

	// FindOrphans returns audit rows whose reservation no longer exists.
	FindOrphans(ctx context.Context, from, to time.Time, limit int64) ([]models.IntegrityIssue, error)
	// FindDuplicateTerminals returns audit rows that apply the same terminal
	// transition to the same reservation more than once.
	FindDuplicateTerminals(ctx context.Context, from, to time.Time) ([]models.IntegrityIssue, error)

	// DailyBuckets groups transitions by calendar day with failure counts and
	// average processing time from entry metadata.
	DailyBuckets(ctx context.Context, from, to time.Time) ([]models.TrendBucket, error)

	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
