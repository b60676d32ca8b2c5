package notification

import (
	"context"

	"reserva/models"
)

// Service is the fire-and-forget notification boundary. Enqueue failures are
// logged by implementations, never propagated into booking decisions.
type Service interface {
	Enqueue(ctx context.Context, payload models.NotificationPayload) error
}
