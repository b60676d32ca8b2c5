package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"reserva/models"
	"reserva/services/notification"
)

// Dispatcher delivers one notification to its channel (push, SMS, ...).
// Delivery backends are collaborators; the default implementation logs.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload models.NotificationPayload) error
}

// ZapDispatcher logs deliveries; the real channel adapters hang off the
// notification surface, outside the booking core.
type ZapDispatcher struct {
	Logger *zap.Logger
}

func (d *ZapDispatcher) Dispatch(_ context.Context, payload models.NotificationPayload) error {
	d.Logger.Info("notification dispatched",
		zap.String("kind", payload.Kind),
		zap.String("user_id", payload.UserID),
		zap.String("title", payload.Title))
	return nil
}

// InitNotificationWorker runs the async worker in background.
func InitNotificationWorker(redisAddr, redisPassword string, redisDB int, dispatcher Dispatcher) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(notification.TypeNotificationSend, handleNotificationTask(dispatcher))

	// Start async worker with retry logic.
	go func() {
		log.Println("[NotificationWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[NotificationWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[NotificationWorker] max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

func handleNotificationTask(dispatcher Dispatcher) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.NotificationPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[NotificationWorker] invalid payload: %v", err)
			return err
		}
		if err := dispatcher.Dispatch(ctx, p); err != nil {
			log.Printf("[NotificationWorker] failed to dispatch %s to %s: %v", p.Kind, p.UserID, err)
			return err
		}
		return nil
	}
}
