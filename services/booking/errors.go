package booking

import (
	"errors"
	"fmt"

	"reserva/models"
)

// Error is the typed failure returned by every core operation. The Kind is
// assigned where the failure originates; callers branch on it and never on
// message text.
type Error struct {
	Kind      models.ErrorKind
	Message   string
	Retryable bool
	Conflict  *models.Conflict // Set when the failure is a detected conflict
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewConflictError wraps a detected slot/capacity conflict. Not retryable;
// the caller reschedules or escalates.
func NewConflictError(c *models.Conflict) *Error {
	kind := models.ErrKindConflict
	if c != nil && c.Type == models.ConflictVersion {
		kind = models.ErrKindVersionConflict
	}
	if c != nil && c.Type == models.ConflictPayment {
		kind = models.ErrKindPaymentConflict
	}
	return &Error{
		Kind:      kind,
		Message:   fmt.Sprintf("booking conflict detected (%s)", c.Type),
		Retryable: kind == models.ErrKindVersionConflict,
		Conflict:  c,
	}
}

// NewVersionConflictError reports a stale optimistic version. Retryable after
// a re-read.
func NewVersionConflictError(entity string, expected int64) *Error {
	return &Error{
		Kind:      models.ErrKindVersionConflict,
		Message:   fmt.Sprintf("%s version mismatch, expected %d", entity, expected),
		Retryable: true,
	}
}

// NewLockTimeoutError reports a slot lock that was not acquired in time.
func NewLockTimeoutError(key int64) *Error {
	return &Error{
		Kind:      models.ErrKindLockTimeout,
		Message:   fmt.Sprintf("slot lock %d not acquired in time", key),
		Retryable: true,
	}
}

// NewDeadlockError wraps a store-reported deadlock.
func NewDeadlockError(cause error) *Error {
	return &Error{
		Kind:      models.ErrKindDeadlock,
		Message:   "store deadlock",
		Retryable: true,
		Cause:     cause,
	}
}

// NewValidationError reports a caller fault. Never retried.
func NewValidationError(msg string) *Error {
	return &Error{Kind: models.ErrKindValidation, Message: msg}
}

// NewTimeoutError reports an attempt that exceeded its hard timeout.
func NewTimeoutError(op string) *Error {
	return &Error{
		Kind:      models.ErrKindTimeout,
		Message:   fmt.Sprintf("%s timed out", op),
		Retryable: true,
	}
}

// NewSystemError wraps an unclassified failure; retried with standard backoff.
func NewSystemError(msg string, cause error) *Error {
	return &Error{
		Kind:      models.ErrKindSystem,
		Message:   msg,
		Retryable: true,
		Cause:     cause,
	}
}

// KindOf extracts the typed kind from any error; unclassified errors are
// system errors.
func KindOf(err error) models.ErrorKind {
	if err == nil {
		return models.ErrKindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return models.ErrKindSystem
}

// IsRetryable reports whether err carries a retryable classification.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	// Unclassified failures default to retryable system errors.
	return err != nil
}

// ConflictOf returns the conflict attached to err, if any.
func ConflictOf(err error) *models.Conflict {
	var e *Error
	if errors.As(err, &e) {
		return e.Conflict
	}
	return nil
}
