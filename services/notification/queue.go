package notification

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"reserva/models"
)

// TypeNotificationSend is the asynq task type for outbound notifications.
const TypeNotificationSend = "notification:send"

// QueueService implements Service by enqueuing asynq tasks; the worker in
// cron/ consumes them. Enqueue failures are logged and swallowed: bookings
// never fail because a notification could not be queued.
type QueueService struct {
	Client *asynq.Client
	Logger *zap.Logger
}

// NewQueueService constructs a QueueService.
func NewQueueService(client *asynq.Client, logger *zap.Logger) *QueueService {
	return &QueueService{Client: client, Logger: logger}
}

func (q *QueueService) Enqueue(ctx context.Context, payload models.NotificationPayload) error {
	b, err := json.Marshal(payload)
	if err != nil {
		q.Logger.Error("notification payload marshal failed", zap.Error(err))
		return nil
	}
	task := asynq.NewTask(TypeNotificationSend, b)
	if _, err := q.Client.EnqueueContext(ctx, task); err != nil {
		q.Logger.Error("failed to enqueue notification",
			zap.String("kind", payload.Kind),
			zap.String("user_id", payload.UserID),
			zap.Error(err))
	}
	return nil
}

// LogService implements Service by logging only. Used in tests and when no
// queue is configured.
type LogService struct {
	Logger *zap.Logger
}

func (l *LogService) Enqueue(_ context.Context, payload models.NotificationPayload) error {
	l.Logger.Info("notification (log only)",
		zap.String("kind", payload.Kind),
		zap.String("user_id", payload.UserID),
		zap.String("reservation_id", payload.ReservationID),
		zap.String("title", payload.Title))
	return nil
}
