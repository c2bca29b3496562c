package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinicdesk/registry/internal/registry"
	"github.com/clinicdesk/registry/internal/scheduling"
	"github.com/clinicdesk/registry/internal/server"
	"github.com/clinicdesk/registry/pkg/config"
	"github.com/clinicdesk/registry/pkg/database"
	"github.com/clinicdesk/registry/pkg/logger"
	"github.com/clinicdesk/registry/pkg/monitoring"
)

const serviceName = "registry-server"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)

	// Connect to the database and ensure the schema
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.CreateSchema(ctx); err != nil {
		cancel()
		logger.Fatalf("Failed to create database schema: %v", err)
	}
	cancel()

	// Monitoring
	metrics := monitoring.NewMetricsCollector(serviceName)
	health := monitoring.NewHealthManager(serviceName, "1.0.0")
	health.RegisterChecker("database", monitoring.NewDatabaseHealthChecker(db.DB))

	// Services
	schedulingRepo := scheduling.NewRepository(db, logger)
	notifier := scheduling.NewLogNotifier(logger)
	schedulingSvc := scheduling.NewService(schedulingRepo, notifier, cfg.Scheduling, logger, metrics)
	registryRepo := registry.NewRepository(db, logger)
	registrySvc := registry.NewService(registryRepo, logger)

	// Background jobs: schedule retention and appointment reminders
	retention := scheduling.NewRetentionJob(schedulingRepo, cfg.Cleanup, logger, metrics)
	retention.Start()
	reminders := scheduling.NewReminderJob(schedulingRepo, notifier, cfg.Scheduling, logger, metrics)
	reminders.Start()

	// HTTP server
	srv := server.New(cfg, logger, metrics, health, schedulingSvc, registrySvc)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down registry server...")
	retention.Stop()
	reminders.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
	logger.Info("Registry server stopped")
}
