package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	analytics "github.com/jwaldner/chainsignal/analytics_lib"
	"github.com/jwaldner/chainsignal/internal/audit"
	"github.com/jwaldner/chainsignal/internal/config"
	"github.com/jwaldner/chainsignal/internal/handlers"
	"github.com/jwaldner/chainsignal/internal/history"
	"github.com/jwaldner/chainsignal/internal/logger"
	"github.com/jwaldner/chainsignal/internal/metrics"
	"github.com/jwaldner/chainsignal/internal/pipeline"
	"github.com/jwaldner/chainsignal/internal/providers"
	"github.com/jwaldner/chainsignal/internal/providers/file"
)

func main() {
	cfg := config.Load()

	// Initialize proper logging with config level and file path
	if err := logger.InitWithOptions(logger.Options{
		Level:      cfg.Logging.LogLevel,
		File:       cfg.Logging.LogFile,
		Format:     cfg.Logging.Format,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	}); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	logger.Always.Printf("🚀 Chainsignal starting - Port: %s", cfg.Port)

	if cfg.Logging.LogLevel == "verbose" {
		fmt.Printf("⚠️  VERBOSE LOGGING ENABLED - Per-strike calculations will be logged to %s\n", cfg.Logging.LogFile)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	// Initialize engine based on configuration
	engine := analytics.NewEngineForced(cfg.Engine.ExecutionMode, cfg.EngineParams())
	if cfg.Engine.Workers > 0 {
		engine.SetWorkers(cfg.Engine.Workers)
	}
	logger.Always.Printf("🔧 EXECUTION MODE: %s (configured %s)", engine.ExecutionMode(), cfg.Engine.ExecutionMode)

	reg := metrics.NewRegistry()
	store := history.NewStore(cfg.History.Window)

	var auditor audit.Auditor
	if cfg.Audit.Enabled {
		worker, err := audit.NewWorker(audit.Options{
			Dir:            cfg.Audit.Dir,
			FilenameFormat: cfg.Audit.FilenameFormat,
			OnDrop:         reg.AuditDropped.Inc,
		})
		if err != nil {
			log.Fatalf("❌ Failed to start audit worker: %v", err)
		}
		auditor = worker
		defer func() {
			if err := worker.Close(); err != nil {
				logger.Error.Printf("❌ Audit worker close failed: %v", err)
			}
		}()
		logger.Info.Printf("📝 Audit trail enabled in %s", cfg.Audit.Dir)
	}

	provider, err := file.NewProvider(cfg.Data.Dir, cfg.Data.Format, cfg.Engine.RiskFreeRate)
	if err != nil {
		log.Fatalf("❌ Failed to create snapshot provider: %v", err)
	}
	pm := providers.NewProviderManager(provider)
	pm.OnLoad(reg.ObserveLoad)
	defer pm.Close()
	logger.Info.Printf("📡 Snapshot provider: %s (%s files in %s)", provider.GetProviderName(), cfg.Data.Format, cfg.Data.Dir)

	service := pipeline.NewService(engine, store, auditor, reg)
	chainHandler := handlers.NewChainHandler(cfg, service, pm, store, reg)

	// Setup router
	r := mux.NewRouter()
	chainHandler.Routes(r)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		// Start server
		fmt.Printf("🌐 Server starting on http://localhost:%s\n", cfg.Port)
		logger.Always.Printf("🌐 Server starting on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error.Printf("❌ Server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Always.Printf("🛑 Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error.Printf("❌ Shutdown failed: %v", err)
	}
	logger.Info.Printf("%s", pm.GetPerformanceReport())
}
