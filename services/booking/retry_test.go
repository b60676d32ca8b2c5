package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reserva/models"
)

func TestExecuteWithRetry_SucceedsFirstAttempt(t *testing.T) {
	ex := newTestExecutor()
	calls := 0

	result := ex.ExecuteWithRetry(context.Background(), Operation{
		Type:   OpReservationCreate,
		Config: CreateRetryConfig(),
		Execute: func(context.Context) error {
			calls++
			return nil
		},
	})

	assert.True(t, result.Success)
	assert.Equal(t, 1, calls)
	require.Len(t, result.Attempts, 1)
	assert.True(t, result.Attempts[0].Success)
	assert.Equal(t, time.Duration(0), result.Attempts[0].Delay)
}

func TestExecuteWithRetry_ExhaustsMaxRetries(t *testing.T) {
	ex := newTestExecutor()
	calls := 0
	cfg := CreateRetryConfig()

	result := ex.ExecuteWithRetry(context.Background(), Operation{
		Type:        OpReservationCreate,
		Config:      cfg,
		ShouldRetry: CreateShouldRetry,
		Execute: func(context.Context) error {
			calls++
			return NewLockTimeoutError(42)
		},
	})

	assert.False(t, result.Success)
	assert.Equal(t, cfg.MaxRetries+1, calls)
	assert.Len(t, result.Attempts, cfg.MaxRetries+1)
	assert.Equal(t, models.ErrKindLockTimeout, KindOf(result.FinalError))
}

func TestExecuteWithRetry_NonRetryableStopsImmediately(t *testing.T) {
	ex := newTestExecutor()
	calls := 0

	result := ex.ExecuteWithRetry(context.Background(), Operation{
		Type:        OpReservationCreate,
		Config:      CreateRetryConfig(),
		ShouldRetry: CreateShouldRetry,
		Execute: func(context.Context) error {
			calls++
			return NewConflictError(&models.Conflict{Type: models.ConflictSlotOverlap})
		},
	})

	assert.False(t, result.Success)
	assert.Equal(t, 1, calls)
}

func TestExecuteWithRetry_RecoversMidway(t *testing.T) {
	ex := newTestExecutor()
	calls := 0

	result := ex.ExecuteWithRetry(context.Background(), Operation{
		Type:        OpReservationUpdate,
		Config:      UpdateRetryConfig(),
		ShouldRetry: UpdateShouldRetry,
		Execute: func(context.Context) error {
			calls++
			if calls < 3 {
				return NewVersionConflictError("reservation", 1)
			}
			return nil
		},
	})

	assert.True(t, result.Success)
	assert.Equal(t, 3, calls)
	require.Len(t, result.Attempts, 3)
	assert.False(t, result.Attempts[0].Success)
	assert.True(t, result.Attempts[2].Success)
}

func TestExecuteWithRetry_AttemptTimeout(t *testing.T) {
	ex := newTestExecutor()
	cfg := models.RetryConfig{
		MaxRetries:        0,
		BaseDelay:         time.Millisecond,
		MaxDelay:          time.Millisecond,
		BackoffMultiplier: 1,
		AttemptTimeout:    20 * time.Millisecond,
	}

	result := ex.ExecuteWithRetry(context.Background(), Operation{
		Type:   OpReservationCreate,
		Config: cfg,
		Execute: func(ctx context.Context) error {
			select {
			case <-time.After(5 * time.Second):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})

	assert.False(t, result.Success)
	assert.Equal(t, models.ErrKindTimeout, KindOf(result.FinalError))
}

func TestBackoffDelay_ExponentialWithinJitterBounds(t *testing.T) {
	ex := newTestExecutor()
	cfg := CreateRetryConfig()

	for attempt := 1; attempt <= 3; attempt++ {
		base := float64(cfg.BaseDelay) * pow(cfg.BackoffMultiplier, attempt-1)
		for i := 0; i < 50; i++ {
			d := ex.BackoffDelay(cfg, attempt, models.ErrKindLockTimeout)
			assert.GreaterOrEqual(t, float64(d), base)
			assert.LessOrEqual(t, float64(d), base*(1+cfg.JitterFactor))
		}
	}
}

func TestBackoffDelay_CappedAtMax(t *testing.T) {
	ex := newTestExecutor()
	cfg := CreateRetryConfig()

	// Far past the point where base*mult^n exceeds the cap.
	d := ex.BackoffDelay(cfg, 10, models.ErrKindLockTimeout)
	assert.Equal(t, cfg.MaxDelay, d)
}

func TestBackoffDelay_DeadlockDoubles(t *testing.T) {
	ex := newTestExecutor()
	cfg := CreateRetryConfig()
	cfg.JitterFactor = 0

	normal := ex.BackoffDelay(cfg, 1, models.ErrKindLockTimeout)
	deadlock := ex.BackoffDelay(cfg, 1, models.ErrKindDeadlock)
	assert.Equal(t, 2*normal, deadlock)
}

func TestBackoffDelay_FixedDelayProfile(t *testing.T) {
	ex := newTestExecutor()
	cfg := UpdateRetryConfig()

	for attempt := 1; attempt <= 4; attempt++ {
		assert.Equal(t, cfg.BaseDelay, ex.BackoffDelay(cfg, attempt, models.ErrKindVersionConflict))
	}
}

func TestIsRetryable_Classification(t *testing.T) {
	assert.True(t, IsRetryable(NewLockTimeoutError(1)))
	assert.True(t, IsRetryable(NewVersionConflictError("reservation", 1)))
	assert.True(t, IsRetryable(NewDeadlockError(errors.New("deadlock"))))
	assert.False(t, IsRetryable(NewValidationError("bad input")))
	assert.False(t, IsRetryable(NewConflictError(&models.Conflict{Type: models.ConflictSlotOverlap})))
	assert.False(t, IsRetryable(nil))
}

func TestPaymentShouldRetry_NeverRetriesPaymentConflict(t *testing.T) {
	err := NewConflictError(&models.Conflict{Type: models.ConflictPayment})
	assert.Equal(t, models.ErrKindPaymentConflict, KindOf(err))
	assert.False(t, PaymentShouldRetry(err, 1))
	assert.True(t, PaymentShouldRetry(NewVersionConflictError("payment", 2), 1))
}

func pow(base float64, exp int) float64 {
	out := 1.0
	for i := 0; i < exp; i++ {
		out *= base
	}
	return out
}
