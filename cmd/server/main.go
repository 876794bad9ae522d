package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	appnotification "github.com/pressmarket/backend/internal/application/notification"
	apppublication "github.com/pressmarket/backend/internal/application/publication"
	"github.com/pressmarket/backend/internal/domain/shared"
	"github.com/pressmarket/backend/internal/infrastructure/cache"
	"github.com/pressmarket/backend/internal/infrastructure/config"
	"github.com/pressmarket/backend/internal/infrastructure/email"
	"github.com/pressmarket/backend/internal/infrastructure/event"
	"github.com/pressmarket/backend/internal/infrastructure/logger"
	"github.com/pressmarket/backend/internal/infrastructure/persistence"
	"github.com/pressmarket/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// serviceRegistry is the composed application surface. The transport layer
// (deployed separately) consumes it once wired in; building it here keeps
// the full object graph validated at startup.
type serviceRegistry struct {
	Publications  *apppublication.Service
	Bulk          *apppublication.BulkService
	Notifications *appnotification.Service
}

var services *serviceRegistry

func main() {
	// 1. Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Logger
	log, err := logger.NewForEnvironment(cfg.App.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("starting publication lifecycle service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	ctx := context.Background()

	// 3. Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		_ = tracerProvider.Shutdown(ctx)
	}()

	// 4. Database
	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	if err := telemetry.RegisterDBTracing(db.DB, dbTracing, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// 5. Repositories
	publicationRepo := persistence.NewGormPublicationRepository(db.DB)
	historyRepo := persistence.NewGormStatusHistoryRepository(db.DB)
	notificationRepo := persistence.NewGormNotificationRepository(db.DB)
	userDirectory := persistence.NewGormUserDirectory(db.DB)

	// 6. Event bus and notification fan-out
	bus := event.NewInMemoryEventBus(log)
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	dedupStore := buildDedupStore(cfg, log)
	if dedupStore != nil {
		defer func() {
			_ = dedupStore.Close()
		}()
	}

	dispatcherConfig := appnotification.DefaultDispatcherConfig()
	dispatcherConfig.EmailTimeout = cfg.Email.Timeout
	dispatcherConfig.IdempotencyTTL = cfg.Notify.DedupTTL

	dispatcher := appnotification.NewDispatcher(
		notificationRepo,
		userDirectory,
		email.NewSMTPSender(cfg.Email, log),
		dedupStore,
		dispatcherConfig,
		log,
	)
	bus.Subscribe(dispatcher)

	// 7. Application services
	publicationService := apppublication.NewService(publicationRepo, historyRepo, bus, log)
	services = &serviceRegistry{
		Publications:  publicationService,
		Bulk:          apppublication.NewBulkService(publicationService, cfg.Bulk.MaxBatchSize, log),
		Notifications: appnotification.NewService(notificationRepo),
	}

	log.Info("publication lifecycle service ready",
		zap.Int("max_batch_size", cfg.Bulk.MaxBatchSize),
		zap.Bool("notify_dedup", dedupStore != nil),
	)

	// 8. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutdown signal received", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Warn("event bus did not drain in time", zap.Error(err))
	}

	log.Info("publication lifecycle service stopped")
}

// buildDedupStore creates the notification dedup store. Redis is preferred
// so multiple instances share dispatch state; a development setup without
// Redis falls back to the in-memory store.
func buildDedupStore(cfg *config.Config, log *zap.Logger) shared.IdempotencyStore {
	if !cfg.Notify.DedupEnabled {
		return nil
	}

	factory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log))
	store, err := factory.CreateStore()
	if err != nil {
		log.Warn("failed to create dedup store, dispatch dedup disabled", zap.Error(err))
		return nil
	}
	return store
}
