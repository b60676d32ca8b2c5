package tracker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetentionPolicy bounds how long tracker records are kept.
type RetentionPolicy struct {
	OperationHorizon time.Duration // Retry operations and closed conflicts
	AuditHorizon     time.Duration // Audit entries, kept longer for compliance
}

// Cleanup deletes records older than the policy horizons and reports counts.
func (t *Tracker) Cleanup(ctx context.Context, policy RetentionPolicy) (operations, conflicts, auditRows int64, err error) {
	now := time.Now().UTC()

	operations, err = t.RetryLog.DeleteBefore(ctx, now.Add(-policy.OperationHorizon))
	if err != nil {
		return 0, 0, 0, err
	}
	conflicts, err = t.Conflicts.DeleteClosedBefore(ctx, now.Add(-policy.OperationHorizon))
	if err != nil {
		return operations, 0, 0, err
	}
	auditRows, err = t.Audit.DeleteBefore(ctx, now.Add(-policy.AuditHorizon))
	if err != nil {
		return operations, conflicts, 0, err
	}

	t.Logger.Info("retention cleanup completed",
		zap.Int64("operations_deleted", operations),
		zap.Int64("conflicts_deleted", conflicts),
		zap.Int64("audit_rows_deleted", auditRows))
	return operations, conflicts, auditRows, nil
}

// RunCleanupLoop runs Cleanup on a fixed interval until ctx is cancelled.
// A single instance is assumed; duplicate runs in a multi-instance deployment
// only repeat idempotent deletes.
func (t *Tracker) RunCleanupLoop(ctx context.Context, interval time.Duration, policy RetentionPolicy) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, _, err := t.Cleanup(ctx, policy); err != nil {
				t.Logger.Error("retention cleanup failed", zap.Error(err))
			}
		}
	}
}
