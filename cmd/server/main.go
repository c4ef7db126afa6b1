// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/api"
	"github.com/andresuchdata/restock-advisor/internal/app"
	"github.com/andresuchdata/restock-advisor/internal/config"
	"github.com/andresuchdata/restock-advisor/internal/pipeline"
	"github.com/andresuchdata/restock-advisor/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
		logger.UseJSON(os.Stdout)
	}

	if err := cfg.Forecast.Validate(); err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid forecast configuration")
	}

	baseCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize database
	store, closer, err := app.OpenStore(baseCtx, &cfg.Database, "")
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to open store")
	}

	// Initialize services
	application, err := app.New(baseCtx, cfg, store)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	application.AddCloser(closer)
	defer application.Close()

	var scheduler *pipeline.Scheduler
	if cfg.Schedule.Enabled {
		scheduler = pipeline.NewScheduler(baseCtx)
		if _, err := scheduler.ScheduleRuns(cfg.Schedule.Spec, application.Orchestrator); err != nil {
			logger.Log.Fatal().Err(err).Str("spec", cfg.Schedule.Spec).Msg("Invalid schedule")
		}
		scheduler.Start()
	}

	// Initialize HTTP server
	router := api.NewRouter(&api.Services{
		Restock:      application.Restock,
		Orchestrator: application.Orchestrator,
		Runs:         application.Store.Runs,
		Importer:     application.Importer,
		DriveFiles:   application.DriveFiles(),
		DriveSync:    application.DriveSync,
		DriveFolder:  cfg.Drive.FolderID,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// Scheduled runs observe baseCtx; cancel it before waiting on the cron.
	stop()
	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
