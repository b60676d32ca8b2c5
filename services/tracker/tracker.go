package tracker

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	auditRepo "reserva/database/repository/audit"
	conflictRepo "reserva/database/repository/conflict"
	retrylogRepo "reserva/database/repository/retrylog"
	"reserva/models"
)

// Tracker persists every operation attempt and conflict event and serves the
// read models built on top of them. It implements booking.OperationTracker.
type Tracker struct {
	RetryLog  retrylogRepo.Repository
	Conflicts conflictRepo.Repository
	Audit     auditRepo.Repository
	Cache     *redis.Client // Optional stats cache; nil disables caching
	CacheTTL  time.Duration
	Logger    *zap.Logger
}

// NewTracker constructs a Tracker.
func NewTracker(
	retryLog retrylogRepo.Repository,
	conflicts conflictRepo.Repository,
	audit auditRepo.Repository,
	cache *redis.Client,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *Tracker {
	return &Tracker{
		RetryLog:  retryLog,
		Conflicts: conflicts,
		Audit:     audit,
		Cache:     cache,
		CacheTTL:  cacheTTL,
		Logger:    logger,
	}
}

// OperationStarted persists the operation record before the first attempt
// runs, so telemetry survives a caller crash mid-operation.
func (t *Tracker) OperationStarted(ctx context.Context, op *models.RetryOperation) {
	if err := t.RetryLog.Insert(ctx, op); err != nil {
		t.Logger.Error("failed to record operation start",
			zap.String("operation_id", op.ID),
			zap.String("type", op.OperationType),
			zap.Error(err))
	}
}

// AttemptRecorded appends one attempt to the operation record.
func (t *Tracker) AttemptRecorded(ctx context.Context, opID string, attempt models.RetryAttempt) {
	if err := t.RetryLog.AppendAttempt(ctx, opID, attempt); err != nil {
		t.Logger.Error("failed to record attempt",
			zap.String("operation_id", opID),
			zap.Int("attempt", attempt.Number),
			zap.Error(err))
	}
}

// OperationCompleted closes the operation record.
func (t *Tracker) OperationCompleted(ctx context.Context, opID string, success bool, finalError models.ErrorKind) {
	if err := t.RetryLog.Complete(ctx, opID, success, finalError); err != nil {
		t.Logger.Error("failed to record operation completion",
			zap.String("operation_id", opID),
			zap.Error(err))
	}
}
