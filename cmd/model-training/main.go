// Package main provides the one-shot model training CLI.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/skycast/internal/config"
	"github.com/yourusername/skycast/internal/database"
	"github.com/yourusername/skycast/internal/logger"
	"github.com/yourusername/skycast/internal/predictor"
	"github.com/yourusername/skycast/internal/repository"
	"github.com/yourusername/skycast/internal/training"
)

var (
	configFile string
	force      bool
	validate   bool
	timeout    time.Duration
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Flags().BoolVarP(&force, "force", "f", false, "Train even if the retrain policy says models are fresh")
	rootCmd.Flags().BoolVar(&validate, "validate", false, "Re-score trained models against fresh data after training")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "Overall run timeout")
}

var rootCmd = &cobra.Command{
	Use:   "model-training",
	Short: "Train the forecast model ensemble",
	Long:  `Pulls the trailing observation window, trains every configured algorithm, persists the resulting models, and prints the run report.`,
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

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := config.ApplySecrets(ctx, cfg); err != nil {
		return fmt.Errorf("failed to apply secrets: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	appLog := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)

	db, err := database.Initialize(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	modelStore, err := repository.NewFileModelStore(cfg.Models.Dir)
	if err != nil {
		return fmt.Errorf("failed to open model store: %w", err)
	}

	obsStore := repository.NewPostgresObservationStore(db)
	history := repository.NewPostgresTrainingHistory(db)
	pred := predictor.New(cfg.Training.Target, modelStore, appLog)
	orchestrator := training.NewOrchestrator(cfg, obsStore, history, pred, appLog)

	result, err := orchestrator.TrainModels(ctx, force)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}
	if result == nil {
		fmt.Println("Models are fresh; nothing to do. Use --force to retrain anyway.")
		return nil
	}

	fmt.Println(orchestrator.LastReport())

	if validate {
		score, err := orchestrator.ValidateModels(ctx)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Printf("Independent validation R2: %.4f\n", score)
	}

	if !result.Succeeded() {
		return fmt.Errorf("training run %s failed: %s", result.RunID, result.Notes)
	}
	return nil
}
