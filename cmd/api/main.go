// Command api is the Reset Biology reminders API server.
//
// Usage:
//
//	reminders-api
//	API_PORT=8080 reminders-api

// @title Reset Biology Reminders API
// @version 1.0.0
// @description Dose reminder scheduling and delivery for peptide protocols: preference-driven scheduling, queue replenishment, and push/email dispatch.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @contact.name Reset Biology
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/resetbiology/reminders/internal/api"
	"github.com/resetbiology/reminders/internal/config"
	"github.com/resetbiology/reminders/internal/db"
	"github.com/resetbiology/reminders/internal/maintenance"
	"github.com/resetbiology/reminders/internal/notify"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Wire the notification pipeline
	store := notify.NewStore(pool.Pool)
	scheduler := notify.NewScheduler(store, logger)

	pushSender := notify.NewPushSender(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject, logger)
	if pushSender.Configured() {
		logger.Info("Web push sender configured", "subject", cfg.VAPIDSubject)
	} else {
		logger.Info("Web push sender disabled (no VAPID keys)")
	}

	emailSender := notify.NewEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPSender, cfg.SMTPPass)
	if emailSender.Configured() {
		logger.Info("Email sender configured", "host", cfg.SMTPHost)
	} else {
		logger.Info("Email sender disabled (no SMTP_HOST)")
	}

	dispatcher := notify.NewDispatcher(store, pushSender, emailSender, logger)

	// Start maintenance tickers (replenish sweep, dispatch worker, cleanup)
	maintCfg := maintenance.Config{
		ReplenishInterval: cfg.ReplenishInterval,
		DispatchInterval:  cfg.DispatchInterval,
		CleanupInterval:   cfg.CleanupInterval,
		SweepWorkers:      cfg.SweepWorkers,
	}
	go maintenance.Start(ctx, pool.Pool, store, scheduler, dispatcher, maintCfg, logger)

	// Create router
	router := api.NewRouter(pool.Pool, store, scheduler, dispatcher, cfg, logger)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Reset Biology Reminders API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
