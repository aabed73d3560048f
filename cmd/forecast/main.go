// Package main provides the entry point for the forecast service.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/skycast/internal/config"
	"github.com/yourusername/skycast/internal/database"
	"github.com/yourusername/skycast/internal/forecast"
	"github.com/yourusername/skycast/internal/health"
	"github.com/yourusername/skycast/internal/logger"
	"github.com/yourusername/skycast/internal/models"
	"github.com/yourusername/skycast/internal/predictor"
	"github.com/yourusername/skycast/internal/repository"
	"github.com/yourusername/skycast/internal/scheduler"
	"github.com/yourusername/skycast/internal/tracing"
	"github.com/yourusername/skycast/internal/training"
	"github.com/yourusername/skycast/internal/weatherapi"
)

// Build information - set via ldflags
var Version = "dev"

var (
	configFile   string
	listenAddr   string
	locationName string
	latitude     float64
	longitude    float64
	pollSeconds  int
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Flags().StringVar(&listenAddr, "listen", ":8090", "Forecast API listen address")
	rootCmd.Flags().StringVar(&locationName, "location", "berlin", "Location name for observation polling")
	rootCmd.Flags().Float64Var(&latitude, "lat", 52.52, "Location latitude")
	rootCmd.Flags().Float64Var(&longitude, "lon", 13.405, "Location longitude")
	rootCmd.Flags().IntVar(&pollSeconds, "poll-interval", 600, "Observation polling interval in seconds")
}

var rootCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Run the hybrid forecast service",
	Long:  `Serves hybrid forecasts by blending the baseline provider forecast with ensemble model predictions, keeping observations and models fresh in the background.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := config.ApplySecrets(context.Background(), cfg); err != nil {
		return fmt.Errorf("failed to apply secrets: %w", err)
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	appLog := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     Version,
	}).Info("Skycast forecast service starting")

	if err := tracing.Initialize(cfg.Tracing, appLog); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.Initialize(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	appLog.Info("Database connection established")

	obsStore := repository.NewPostgresObservationStore(db)
	history := repository.NewPostgresTrainingHistory(db)
	modelStore, err := repository.NewFileModelStore(cfg.Models.Dir)
	if err != nil {
		return fmt.Errorf("failed to open model store: %w", err)
	}

	pred := predictor.New(cfg.Training.Target, modelStore, appLog)
	if err := pred.Load(ctx); err != nil {
		appLog.WithError(err).Warn("No persisted models available, first forecast request will train")
	}

	source := weatherapi.NewClient(&cfg.WeatherAPI, appLog)
	orchestrator := training.NewOrchestrator(cfg, obsStore, history, pred, appLog)
	layer := forecast.NewIntegrationLayer(cfg, orchestrator, source, history, appLog)

	location := models.Location{Name: locationName, Latitude: latitude, Longitude: longitude}

	sched := scheduler.NewScheduler(orchestrator, source, obsStore, appLog)
	if cfg.Training.RetrainSchedule != "" {
		if err := sched.ScheduleRetraining(cfg.Training.RetrainSchedule); err != nil {
			return fmt.Errorf("failed to schedule retraining: %w", err)
		}
	}
	if err := sched.ScheduleObservationPolling(pollSeconds, location); err != nil {
		return fmt.Errorf("failed to schedule observation polling: %w", err)
	}
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Port:        strconv.Itoa(cfg.Metrics.Port),
		MetricsPath: cfg.Metrics.Path,
		Logger:      appLog,
		DB:          db,
		Models:      pred,
	})
	if err := healthServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start health server: %w", err)
	}
	healthServer.SetReady(true)

	mux := http.NewServeMux()
	forecast.NewHandler(layer, appLog).Register(mux)
	apiServer := &http.Server{
		Addr:         listenAddr,
		Handler:      tracing.Middleware(cfg.Tracing, cfg.App.Name, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.WithError(err).Error("Forecast API server error")
		}
	}()

	appLog.WithFields(logrus.Fields{
		"listen":   listenAddr,
		"location": location.Key(),
		"next_run": sched.NextRun(),
	}).Info("Forecast service running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	appLog.WithField("signal", sig).Info("Shutdown signal received")

	healthServer.SetReady(false)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Error("Error stopping forecast API server")
	}
	if err := sched.Stop(); err != nil {
		appLog.WithError(err).Error("Error stopping scheduler")
	}

	// Give background jobs time to finish their current tick.
	time.Sleep(2 * time.Second)
	appLog.Info("Skycast forecast service shut down")

	return nil
}
