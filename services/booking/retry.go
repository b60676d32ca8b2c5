package booking

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"reserva/models"
)

// OperationTracker receives the lifecycle of every retryable operation. The
// tracker persists before results are returned, so telemetry survives caller
// crashes.
type OperationTracker interface {
	OperationStarted(ctx context.Context, op *models.RetryOperation)
	AttemptRecorded(ctx context.Context, opID string, attempt models.RetryAttempt)
	OperationCompleted(ctx context.Context, opID string, success bool, finalError models.ErrorKind)
}

// Operation is a retryable unit of work. ShouldRetry and Delay default to the
// kind-based policy when nil.
type Operation struct {
	Type          string
	ShopID        string
	ReservationID string
	PaymentID     string
	Config        models.RetryConfig
	Execute       func(ctx context.Context) error
	ShouldRetry   func(err error, attempt int) bool
	Delay         func(attempt int, err error) time.Duration
}

// RetryResult reports the terminal outcome plus full attempt history.
type RetryResult struct {
	OperationID string
	Success     bool
	Attempts    []models.RetryAttempt
	FinalError  error
}

// Executor drives retryable operations with bounded exponential backoff.
type Executor struct {
	tracker OperationTracker
	logger  *zap.Logger
	rand    *rand.Rand
	sleep   func(ctx context.Context, d time.Duration) error // Injectable for tests
}

// NewExecutor constructs an Executor.
func NewExecutor(tracker OperationTracker, logger *zap.Logger) *Executor {
	return &Executor{
		tracker: tracker,
		logger:  logger,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// ExecuteWithRetry runs op.Execute up to MaxRetries+1 times. Each attempt is
// wrapped in a hard timeout; a timed-out attempt is a terminal failure for
// that attempt and never leaves partial state (the wrapped operation must be
// transactional).
func (ex *Executor) ExecuteWithRetry(ctx context.Context, op Operation) RetryResult {
	record := &models.RetryOperation{
		ID:            uuid.New().String(),
		OperationType: op.Type,
		ShopID:        op.ShopID,
		ReservationID: op.ReservationID,
		PaymentID:     op.PaymentID,
		Config:        op.Config,
		StartedAt:     time.Now().UTC(),
	}
	ex.tracker.OperationStarted(ctx, record)

	shouldRetry := op.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = func(err error, _ int) bool { return IsRetryable(err) }
	}
	delayFn := op.Delay
	if delayFn == nil {
		delayFn = func(attempt int, err error) time.Duration {
			return ex.BackoffDelay(op.Config, attempt, KindOf(err))
		}
	}

	result := RetryResult{OperationID: record.ID}
	maxAttempts := op.Config.MaxRetries + 1
	var delay time.Duration

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if delay > 0 {
			if err := ex.sleep(ctx, delay); err != nil {
				result.FinalError = NewTimeoutError(op.Type)
				ex.tracker.OperationCompleted(ctx, record.ID, false, models.ErrKindTimeout)
				return result
			}
		}

		attemptStart := time.Now()
		err := ex.runAttempt(ctx, op)
		a := models.RetryAttempt{
			Number:    attempt,
			Success:   err == nil,
			Delay:     delay,
			Duration:  time.Since(attemptStart),
			StartedAt: attemptStart.UTC(),
		}
		if err != nil {
			a.ErrorKind = KindOf(err)
			a.ErrorText = err.Error()
		}
		result.Attempts = append(result.Attempts, a)
		ex.tracker.AttemptRecorded(ctx, record.ID, a)

		if err == nil {
			result.Success = true
			ex.tracker.OperationCompleted(ctx, record.ID, true, models.ErrKindNone)
			return result
		}

		result.FinalError = err
		if attempt == maxAttempts || !shouldRetry(err, attempt) {
			break
		}
		delay = delayFn(attempt, err)
		ex.logger.Debug("operation attempt failed, backing off",
			zap.String("operation", op.Type),
			zap.Int("attempt", attempt),
			zap.String("error_kind", string(KindOf(err))),
			zap.Duration("delay", delay))
	}

	ex.tracker.OperationCompleted(ctx, record.ID, false, KindOf(result.FinalError))
	return result
}

// runAttempt applies the per-attempt hard timeout. Exceeding it is a timeout
// failure regardless of what the operation itself returns later.
func (ex *Executor) runAttempt(ctx context.Context, op Operation) error {
	if op.Config.AttemptTimeout <= 0 {
		return op.Execute(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, op.Config.AttemptTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op.Execute(attemptCtx) }()

	select {
	case err := <-done:
		if attemptCtx.Err() != nil && err != nil {
			return NewTimeoutError(op.Type)
		}
		return err
	case <-attemptCtx.Done():
		return NewTimeoutError(op.Type)
	}
}

// BackoffDelay computes min(maxDelay, base * mult^(attempt-1) * (1 + jitter*rand)),
// with the deadlock multiplier applied on top.
func (ex *Executor) BackoffDelay(cfg models.RetryConfig, attempt int, kind models.ErrorKind) time.Duration {
	base := float64(cfg.BaseDelay) * math.Pow(cfg.BackoffMultiplier, float64(attempt-1))
	if kind == models.ErrKindDeadlock {
		base *= 2
	}
	jittered := base * (1 + cfg.JitterFactor*ex.rand.Float64())
	if max := float64(cfg.MaxDelay); jittered > max {
		jittered = max
	}
	return time.Duration(jittered)
}
