package booking

import (
	"time"

	"reserva/models"
)

// Operation type names used by the tracker read models.
const (
	OpReservationCreate = "reservation_create"
	OpReservationUpdate = "reservation_update"
	OpPaymentUpdate     = "payment_update"
)

// CreateRetryConfig tunes reservation creation: lock timeouts and deadlocks
// retry with standard backoff (deadlock delay doubled by the executor),
// detected conflicts do not retry.
func CreateRetryConfig() models.RetryConfig {
	return models.RetryConfig{
		MaxRetries:        3,
		BaseDelay:         100 * time.Millisecond,
		MaxDelay:          2 * time.Second,
		BackoffMultiplier: 2,
		JitterFactor:      0.1,
		AttemptTimeout:    10 * time.Second,
	}
}

// CreateShouldRetry retries only transient lock/deadlock/system failures.
func CreateShouldRetry(err error, _ int) bool {
	switch KindOf(err) {
	case models.ErrKindLockTimeout, models.ErrKindDeadlock, models.ErrKindTemporary, models.ErrKindSystem:
		return true
	}
	return false
}

// UpdateRetryConfig tunes reservation updates: only a stale version retries,
// after a short fixed delay.
func UpdateRetryConfig() models.RetryConfig {
	return models.RetryConfig{
		MaxRetries:        3,
		BaseDelay:         50 * time.Millisecond,
		MaxDelay:          50 * time.Millisecond,
		BackoffMultiplier: 1,
		JitterFactor:      0,
		AttemptTimeout:    5 * time.Second,
	}
}

// UpdateShouldRetry retries version conflicts only.
func UpdateShouldRetry(err error, _ int) bool {
	return KindOf(err) == models.ErrKindVersionConflict
}

// PaymentRetryConfig tunes payment updates: version conflicts, transient
// failures and timeouts retry with a gentler 1.5x backoff.
func PaymentRetryConfig() models.RetryConfig {
	return models.RetryConfig{
		MaxRetries:        4,
		BaseDelay:         200 * time.Millisecond,
		MaxDelay:          5 * time.Second,
		BackoffMultiplier: 1.5,
		JitterFactor:      0.1,
		AttemptTimeout:    15 * time.Second,
	}
}

// PaymentShouldRetry never retries a payment conflict; those always surface
// for manual reconciliation.
func PaymentShouldRetry(err error, _ int) bool {
	switch KindOf(err) {
	case models.ErrKindVersionConflict, models.ErrKindTemporary, models.ErrKindTimeout:
		return true
	}
	return false
}
