package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SanchitCoder/PortIQ/internal/config"
	"github.com/SanchitCoder/PortIQ/internal/db"
	"github.com/SanchitCoder/PortIQ/internal/logger"
	"github.com/SanchitCoder/PortIQ/internal/server"
)

// @title PortIQ API
// @version 1.0
// @description Subscription-gated stock analysis backend.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()
	logger.Info("Starting PortIQ")
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.InitWithLevel(cfg.LogLevel)

	if err := logger.InitSentry(cfg.SentryDSN, cfg.Environment); err != nil {
		logger.Warn("Sentry disabled", "error", err)
	}
	defer logger.Flush()

	verifier, err := server.NewVerifier(cfg)
	if err != nil {
		logger.Fatalf("Failed to configure token verification: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Connecting to database...")
	database, err := db.Connect(ctx, cfg.DatabaseURL, db.Pool{
		MaxOpen:     cfg.DBMaxOpen,
		MaxIdle:     cfg.DBMaxIdle,
		MaxLifetime: cfg.DBMaxLifetime,
	})
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if _, err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	emailService := server.NewEmailService(cfg)
	defer emailService.Close()
	go emailService.Start(ctx)

	publisher := server.NewPublisher(ctx, cfg)

	srv := server.New(database, cfg, emailService, publisher, verifier)

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(cfg.Port); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	logger.Info("Server stopped")
}
