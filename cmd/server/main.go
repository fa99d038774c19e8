package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vytor/cfpractice/internal/api"
	"github.com/vytor/cfpractice/internal/catalog"
	"github.com/vytor/cfpractice/internal/codeforces"
	"github.com/vytor/cfpractice/internal/config"
	"github.com/vytor/cfpractice/internal/db"
	"github.com/vytor/cfpractice/internal/history"
	"github.com/vytor/cfpractice/internal/logger"
	"github.com/vytor/cfpractice/internal/repository"
	redisrepo "github.com/vytor/cfpractice/internal/repository/redis"
	"github.com/vytor/cfpractice/internal/repository/sqlite"
	"github.com/vytor/cfpractice/internal/services"
	"github.com/vytor/cfpractice/internal/syncer"
	"github.com/vytor/cfpractice/internal/timers"
	"github.com/vytor/cfpractice/internal/worker"
)

func main() {
	cfg := config.Load()

	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	log.Info("===========================================")
	log.Info("CFPractice Server Starting")
	log.Info("===========================================")
	log.Info("configuration loaded")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("api_base=%s", cfg.APIBase)
	log.Debug("full_window=%v quick_window=%v quick_count=%d", cfg.FullWindow, cfg.QuickWindow, cfg.QuickCount)
	log.Debug("batch_size=%d tick_interval=%v recheck_interval=%v", cfg.BatchSize, cfg.TickInterval, cfg.RecheckInterval)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	// Repositories
	userCacheRepo := sqlite.NewUserCacheRepository(database.DB)
	historyRepo := sqlite.NewHistoryRepository(database.DB)
	settingsRepo := sqlite.NewSettingsRepository(database.DB)
	timerRepo := sqlite.NewTimerRepository(database.DB)

	var catalogRepo repository.CatalogRepository
	if cfg.RedisAddr != "" {
		log.Info("using redis catalog cache at %s", cfg.RedisAddr)
		catalogRepo = redisrepo.NewCatalogRepository(cfg.RedisAddr, cfg.RedisDB, cfg.FullWindow)
	} else {
		catalogRepo = sqlite.NewCatalogRepository(database.DB)
	}

	// Core components
	cfClient := codeforces.New(cfg.APIBase, cfg.HTTPTimeout)
	sync := syncer.New(cfClient, userCacheRepo, cfg.FullWindow, cfg.QuickWindow, cfg.QuickCount)
	cat := catalog.New(cfClient, catalogRepo, cfg.FullWindow)
	ledger := history.NewLedger(historyRepo, userCacheRepo)
	coordinator := timers.NewCoordinator(timerRepo, cfg.TickInterval)

	// Services
	progressService := services.NewProgressService(sync, ledger, coordinator)
	recommendationService := services.NewRecommendationService(sync, cat, ledger, coordinator, settingsRepo, cfg.BatchSize, nil)
	exportService := services.NewExportService(userCacheRepo, historyRepo, catalogRepo, settingsRepo, timerRepo, coordinator)

	pool := worker.NewPool(cfg.WorkerCount, cfg.QueueSize)

	srv := &api.Server{
		ProgressService:       progressService,
		RecommendationService: recommendationService,
		ExportService:         exportService,
		Coordinator:           coordinator,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go coordinator.Run(ctx)
	pool.Start(ctx)

	// Warm the catalog caches and schedule the low-frequency background
	// recheck for the last used handle.
	pool.Submit(&worker.CatalogRefreshJob{Catalog: cat})
	go func() {
		ticker := time.NewTicker(cfg.RecheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pool.Submit(&worker.QuickRecheckJob{Progress: progressService, Settings: settingsRepo})
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	log.Debug("stopping background workers")
	cancel()
	pool.Stop()

	log.Info("===========================================")
	log.Info("CFPractice Server Stopped")
	log.Info("===========================================")
}
