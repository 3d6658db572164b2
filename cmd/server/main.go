package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loanops/commsync/internal/config"
	"github.com/loanops/commsync/internal/ghl"
	"github.com/loanops/commsync/internal/handler"
	"github.com/loanops/commsync/internal/middleware"
	"github.com/loanops/commsync/internal/pkg/logger"
	"github.com/loanops/commsync/internal/repository"
	"github.com/loanops/commsync/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// 1. Load Configuration (fail fast before anything else starts)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize Logger
	logger.Init(cfg.Log.Level)

	// 3. Initialize Persistence
	// Dedupe + cycle status (Redis > Memory)
	var dedupe service.DedupeStore
	var cycles service.CycleStore
	if cfg.Redis.Addr != "" {
		redisStore, err := repository.NewRedisStore(cfg)
		if err == nil {
			logger.Info("✅ Connected to Redis")
			dedupe = redisStore
			cycles = redisStore
		} else {
			logger.Error("⚠️ Failed to connect to Redis, falling back to memory", "error", err)
		}
	}
	if dedupe == nil {
		dedupe = service.NewMemDedupeStore()
	}
	if cycles == nil {
		cycles = service.NewMemCycleStore()
	}

	// Update history (Postgres > memory ring buffer)
	var historyRepo service.HistoryRepo
	if cfg.Database.DSN != "" {
		db, err := repository.NewDB(cfg)
		if err == nil {
			logger.Info("✅ Connected to PostgreSQL")
			historyRepo = repository.NewPostgresHistoryRepo(db)
		} else {
			logger.Error("⚠️ Failed to connect to DB, history will be memory-only", "error", err)
		}
	}

	// 4. Initialize Core Services
	historySvc := service.NewHistoryService(
		historyRepo,
		time.Duration(cfg.Database.HistoryRetentionDays)*24*time.Hour,
		time.Duration(cfg.Database.CleanupIntervalMinutes)*time.Minute,
	)

	crmClient := ghl.NewClient(&cfg.GHL)
	reconciler := service.NewReconciler(cfg, crmClient, historySvc, dedupe)
	poller := service.NewPoller(crmClient)
	loop := service.NewLoop(poller, reconciler, cfg.Sync.PollInterval(), cycles)

	// 5. Initialize Handlers
	webhookHandler := handler.NewWebhookHandler(reconciler)
	healthHandler := handler.NewHealthHandler(loop, cycles)
	historyHandler := handler.NewHistoryHandler(historySvc)
	syncHandler := handler.NewSyncHandler(loop)

	// 6. Setup Router
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())

	r.GET("/health", healthHandler.Handle)
	r.POST("/webhook", webhookHandler.Handle)

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.Group("/v1")
	v1.Use(middleware.AdminMiddleware(cfg))
	{
		v1.POST("/sync", syncHandler.Trigger)
		v1.GET("/history", historyHandler.List)
	}

	// 7. Start Loop and Server
	loop.Start()

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("🚀 commsync started",
			"port", cfg.Server.Port,
			"poll_interval", cfg.Sync.PollInterval().String(),
			"commission_rate", cfg.Sync.CommissionRate)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case <-quit:
		logger.Info("🛑 Shutting down...")
		loop.Stop()
	case err := <-loop.Fatal():
		// Credential rejected: retrying with the same token cannot succeed.
		logger.Error("Fatal sync error, exiting", "error", err)
		exitCode = 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Drain the server first: an in-flight webhook may still record history.
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	historySvc.Close()

	logger.Info("Server exiting")
	os.Exit(exitCode)
}
