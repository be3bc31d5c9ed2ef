package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	billingapp "github.com/biz2bricks/backend/internal/application/billing"
	"github.com/biz2bricks/backend/internal/domain/billing"
	"github.com/biz2bricks/backend/internal/infrastructure/cache"
	"github.com/biz2bricks/backend/internal/infrastructure/config"
	"github.com/biz2bricks/backend/internal/infrastructure/logger"
	"github.com/biz2bricks/backend/internal/infrastructure/persistence"
	"github.com/biz2bricks/backend/internal/infrastructure/scheduler"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting usage reconciler",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	orgRepo := persistence.NewGormOrganizationRepository(db.DB)
	docRepo := persistence.NewGormDocumentRepository(db.DB)
	planRepo := persistence.NewGormPlanRepository(db.DB)
	limitsRepo := persistence.NewGormUsageLimitsRepository(db.DB)
	eventRepo := persistence.NewGormUsageEventRepository(db.DB)

	// Initialize the summary cache when enabled
	var summaryCache billing.SummaryCache
	if cfg.Cache.Enabled {
		factory := cache.NewSummaryCacheFactory(cfg.Redis, cache.WithLogger(log))
		summaryCache, err = factory.CreateCache()
		if err != nil {
			log.Fatal("Failed to create summary cache", zap.Error(err))
		}
		defer func() {
			if err := summaryCache.Close(); err != nil {
				log.Error("Error closing summary cache", zap.Error(err))
			}
		}()
	}

	// Initialize the usage service
	usageService := billingapp.NewUsageService(
		limitsRepo, eventRepo, planRepo, orgRepo, docRepo,
		summaryCache, log,
		billingapp.UsageServiceConfig{SummaryTTL: cfg.Cache.SummaryTTL},
	)

	// Initialize and start the reconcile scheduler
	reconcileScheduler := scheduler.NewStorageReconcileScheduler(
		usageService, orgRepo, log,
		scheduler.StorageReconcileSchedulerConfig{
			Enabled:    cfg.Reconciler.Enabled,
			RunHour:    cfg.Reconciler.RunHour,
			RunTimeout: cfg.Reconciler.RunTimeout,
			OrgTimeout: cfg.Reconciler.OrgTimeout,
			RunOnStart: cfg.Reconciler.RunOnStart,
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := reconcileScheduler.Start(ctx); err != nil {
		log.Fatal("Failed to start reconcile scheduler", zap.Error(err))
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down reconciler...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := reconcileScheduler.Stop(shutdownCtx); err != nil {
		log.Error("Reconcile scheduler forced to stop", zap.Error(err))
	}

	log.Info("Reconciler exited gracefully")
}
