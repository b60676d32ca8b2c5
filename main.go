package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"

	"reserva/config"
	"reserva/cron"
	"reserva/database"
	auditRepo "reserva/database/repository/audit"
	conflictRepo "reserva/database/repository/conflict"
	paymentRepo "reserva/database/repository/payment"
	pointsRepo "reserva/database/repository/points"
	reservationRepo "reserva/database/repository/reservation"
	retrylogRepo "reserva/database/repository/retrylog"
	shopRepo "reserva/database/repository/shop"
	"reserva/handlers"
	"reserva/routes"
	"reserva/services/booking"
	"reserva/services/noshow"
	"reserva/services/notification"
	"reserva/services/payment"
	"reserva/services/tracker"
	"reserva/utils"
)

func main() {
	cfg := config.LoadConfig()
	utils.InitializeLogger(cfg.IsProduction())
	logger := utils.GetLogger()

	mongoClient := database.Connect(cfg.DatabaseURL)
	db := mongoClient.Database(cfg.DatabaseName)

	lockClient := utils.NewRedisClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisLockDB)
	cacheClient := utils.NewRedisClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisCacheDB)

	stripe.Key = cfg.StripeKey

	// Repositories.
	reservations := reservationRepo.NewMongoReservationRepo(db)
	conflicts := conflictRepo.NewMongoConflictRepo(db)
	audits := auditRepo.NewMongoAuditRepo(db)
	retryLogs := retrylogRepo.NewMongoRetryLogRepo(db)
	payments := paymentRepo.NewMongoPaymentRepo(db)
	points := pointsRepo.NewMongoPointsRepo(db)
	shops := shopRepo.NewMongoShopRepo(db)

	{
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := reservations.EnsureIndexes(ctx); err != nil {
			logger.Sugar().Fatalf("main: failed to create reservation indexes: %v", err)
		}
		cancel()
	}

	// Services.
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisQueueDB,
	})
	defer asynqClient.Close()
	notifier := notification.NewQueueService(asynqClient, logger)

	gateway := payment.NewStripeGateway(logger)

	trk := tracker.NewTracker(retryLogs, conflicts, audits, cacheClient,
		time.Duration(cfg.StatsCacheSeconds)*time.Second, logger)

	transitioner := booking.NewTransitioner(reservations, audits, logger)
	detector := booking.NewDetector(reservations, payments, shops, conflicts, logger)
	resolver := booking.NewResolver(booking.DefaultStrategies(), conflicts, reservations,
		payments, shops, transitioner, notifier, gateway, time.Local, logger)
	executor := booking.NewExecutor(trk, logger)

	lockProvider := booking.NewRedisLockProvider(lockClient, cfg.LockTTL(), logger)
	locks := booking.NewLockCoordinator(lockProvider, cfg.LockTimeout(), logger)

	bookingService := &booking.DefaultBookingService{
		Locks:    locks,
		Detector: detector,
		Resolver: resolver,
		Executor: executor,
		Trans:    transitioner,
		Logger:   logger,
	}

	scheduler := noshow.NewScheduler(reservations, shops, points, transitioner, notifier, noshow.Config{
		ScanInterval:  time.Duration(cfg.NoShowScanIntervalMin) * time.Minute,
		DefaultGrace:  time.Duration(cfg.NoShowGraceDefaultMin) * time.Minute,
		WarningDelay:  time.Duration(cfg.NoShowWarningDelayMin) * time.Minute,
		Lookback:      time.Duration(cfg.NoShowLookbackHours) * time.Hour,
		Lookahead:     time.Duration(cfg.NoShowLookaheadMin) * time.Minute,
		PenaltyPoints: cfg.DefaultPenaltyPoints,
	}, logger)

	retention := tracker.RetentionPolicy{
		OperationHorizon: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		AuditHorizon:     time.Duration(cfg.AuditRetentionDays) * 24 * time.Hour,
	}

	// Background loops stop with the root context on shutdown.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()
	go scheduler.Run(rootCtx)
	go trk.RunCleanupLoop(rootCtx, time.Duration(cfg.CleanupIntervalHours)*time.Hour, retention)
	cron.InitNotificationWorker(cfg.RedisAddr, cfg.RedisPass, cfg.RedisQueueDB, &cron.ZapDispatcher{Logger: logger})

	// HTTP surface.
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())

	handlerBundle := &handlers.HandlerBundle{
		Booking:  handlers.NewBookingHandler(bookingService, logger),
		Conflict: handlers.NewConflictHandler(bookingService, conflicts, logger),
		Admin:    handlers.NewAdminHandler(bookingService, scheduler, trk, retention, logger),
		Health:   handlers.NewHealthHandler(mongoClient, lockClient),
	}
	routes.RegisterRoutes(router, handlerBundle, cfg.JWTSecret, cfg.MaxRequestsPerMin)

	srv := &http.Server{
		Addr:    "0.0.0.0:" + cfg.AppPort,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")
	rootCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
