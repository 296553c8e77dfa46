// Package main is the entry point for the Task Manager API
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chnk8802/task-manager/internal/api"
	"github.com/chnk8802/task-manager/internal/api/middleware"
	"github.com/chnk8802/task-manager/internal/config"
	"github.com/chnk8802/task-manager/internal/repository"
	"github.com/chnk8802/task-manager/internal/service"
	"github.com/chnk8802/task-manager/pkg/utils/zaplogger"
	"github.com/labstack/echo/v4"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Get()
	if err != nil {
		zaplogger.Fatal("Failed to load configuration", zaplogger.Fields{"error": err.Error()})
	}

	// Print the configuration
	zaplogger.Info(cfg.String())

	// Connect to Postgres
	db, err := repository.ConnectPostgres(cfg)
	if err != nil {
		zaplogger.Fatal("Failed to connect to Postgres", zaplogger.Fields{"error": err.Error()})
	}

	// Connect Redis
	redisClient, err := repository.ConnectRedis(cfg)
	if err != nil {
		zaplogger.Fatal("Failed to connect to Redis", zaplogger.Fields{"error": err.Error()})
	}

	// Init logger
	if err := zaplogger.InitLogger(db); err != nil {
		zaplogger.Fatal("Failed to initialize logger", zaplogger.Fields{"error": err.Error()})
	}
	defer zaplogger.Sync()
	zaplogger.SetLogLevel(cfg.ServerLogLevel)

	zaplogger.Info(cfg.APIName + " - " + cfg.APIVersion + " initialized")

	// Create a new Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Setup middleware
	middleware.SetupLoggerMiddleware(e)

	// Setup routes
	services := api.NewServices(cfg, db, redisClient)
	api.SetupRoutes(e, cfg, services)

	// Setup and start cron jobs
	cronService := service.NewCronService(cfg, services.Sessions)
	cronService.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go startServer(e, cfg)

	<-ctx.Done()
	zaplogger.Info("SERVER SHUTTING DOWN")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zaplogger.Error("Server shutdown failed", zaplogger.Fields{"error": err.Error()})
	}
	cronService.Stop()
	if redisClient != nil {
		redisClient.Close()
	}
}

// startServer starts the Echo server on the specified port
func startServer(e *echo.Echo, cfg *config.Config) {
	port := cfg.ServerPort
	if port == "" {
		port = "3007"
	}
	zaplogger.Info("SERVER STARTED ON PORT " + port)
	if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zaplogger.Fatal("Server stopped", zaplogger.Fields{"error": err.Error()})
	}
}
