// Package main provides a status display for the trained forecast models.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yourusername/skycast/internal/config"
	"github.com/yourusername/skycast/internal/database"
	"github.com/yourusername/skycast/internal/models"
	"github.com/yourusername/skycast/internal/repository"
)

var (
	configFile string
	runLimit   int
	cfg        *config.Config
	db         *database.DB
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Flags().IntVar(&runLimit, "runs", 5, "Number of recent training runs to display")
}

var rootCmd = &cobra.Command{
	Use:   "model-status",
	Short: "Check trained model and pipeline status",
	Long:  `Displays persisted model metadata, recent training runs, ensemble weights, and observation coverage.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := setupDependencies(); err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		displayStatus()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	viper.SetConfigFile(configFile)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()
	viper.SetEnvPrefix("SKYCAST")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}

func setupDependencies() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	db, err = database.NewDB(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	return nil
}

func displayStatus() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	defer db.Close()

	fmt.Println("\n╔════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                  Forecast Model Status                         ║")
	fmt.Println("╚════════════════════════════════════════════════════════════════╝")
	fmt.Println()

	displayModelMetadata()
	displayObservationStats(ctx)
	displayTrainingRuns(ctx)
	displayConfiguration()

	fmt.Println()
}

func displayModelMetadata() {
	fmt.Print("Persisted Models: ")

	store, err := repository.NewFileModelStore(cfg.Models.Dir)
	if err != nil {
		fmt.Println("❌ UNAVAILABLE")
		fmt.Printf("   Error: %v\n", err)
		return
	}

	meta, err := store.LoadMetadata(context.Background())
	if errors.Is(err, models.ErrModelNotFound) {
		fmt.Println("⚠ NOT TRAINED")
		return
	}
	if err != nil {
		fmt.Println("❌ UNAVAILABLE")
		fmt.Printf("   Error: %v\n", err)
		return
	}

	fmt.Println("✓ PRESENT")
	fmt.Printf("  Target: %s\n", meta.Target)
	fmt.Printf("  Algorithms: %s\n", strings.Join(meta.Algorithms, ", "))
	fmt.Printf("  Feature Schema: %d columns\n", len(meta.Schema))
	fmt.Printf("  Trained At: %s (%s ago)\n", meta.TrainedAt.Format(time.RFC3339), time.Since(meta.TrainedAt).Round(time.Minute))
}

func displayObservationStats(ctx context.Context) {
	fmt.Println("\nObservation Coverage:")

	obsStore := repository.NewPostgresObservationStore(db)

	count, err := obsStore.Count(ctx)
	if err != nil {
		fmt.Printf("  Error: %v\n", err)
		return
	}
	fmt.Printf("  Stored Observations: %d (minimum for training: %d)\n", count, cfg.Training.MinObservations)

	latest, err := obsStore.Latest(ctx)
	if errors.Is(err, models.ErrNoObservations) {
		fmt.Println("  Latest Observation: none")
		return
	}
	if err != nil {
		fmt.Printf("  Error: %v\n", err)
		return
	}
	fmt.Printf("  Latest Observation: %s (%.1f°C, %s)\n", latest.Timestamp.Format(time.RFC3339), latest.Temperature, latest.Description)
}

func displayTrainingRuns(ctx context.Context) {
	fmt.Println("\nRecent Training Runs:")

	history := repository.NewPostgresTrainingHistory(db)

	runs, err := history.List(ctx, runLimit)
	if err != nil {
		fmt.Printf("  Error: %v\n", err)
		return
	}
	if len(runs) == 0 {
		fmt.Println("  No training runs recorded.")
		return
	}

	for _, run := range runs {
		marker := "✓"
		if !run.Succeeded() {
			marker = "❌"
		}
		fmt.Printf("  %s %s  %s  score=%.3f  points=%d  took=%s\n",
			marker, run.Timestamp.Format("2006-01-02 15:04"), run.Status,
			run.ValidationScore, run.DataPoints, run.Duration.Round(time.Second))
		for _, outcome := range run.Outcomes {
			if outcome.Metrics != nil {
				fmt.Printf("      %-12s %s  R2=%.3f  RMSE=%.3f  CV=%.3f\n",
					outcome.Algorithm, outcome.Status, outcome.Metrics.R2, outcome.Metrics.RMSE, outcome.Metrics.CVScore)
			} else {
				fmt.Printf("      %-12s %s  %s\n", outcome.Algorithm, outcome.Status, outcome.Notes)
			}
		}
	}

	displayWeights(runs[0])
}

// displayWeights mirrors the ensemble weighting used at prediction time:
// negative scores clamp to zero, then weights normalize across algorithms.
func displayWeights(run *models.TrainingResult) {
	if !run.Succeeded() {
		return
	}

	total := 0.0
	raw := make(map[string]float64, len(run.Outcomes))
	for _, outcome := range run.Outcomes {
		score := 0.0
		if outcome.Metrics != nil && outcome.Metrics.R2 > 0 {
			score = outcome.Metrics.R2
		}
		raw[outcome.Algorithm] = score
		total += score
	}

	fmt.Println("\nEnsemble Weights (from last successful run):")
	for _, outcome := range run.Outcomes {
		weight := 1.0 / float64(len(run.Outcomes))
		if total > 0 {
			weight = raw[outcome.Algorithm] / total
		}
		fmt.Printf("  %-12s %.3f\n", outcome.Algorithm, weight)
	}
}

func displayConfiguration() {
	fmt.Println("\nConfiguration:")
	fmt.Printf("  Algorithms: %s\n", strings.Join(cfg.Training.Algorithms, ", "))
	fmt.Printf("  History Window: %d days\n", cfg.Training.HistoryWindowDays)
	fmt.Printf("  Auto Retrain: every %d days\n", cfg.Training.AutoRetrainDays)
	fmt.Printf("  Retrain Threshold: %.2f\n", cfg.Training.RetrainThreshold)
	fmt.Printf("  Forecast Cache TTL: %d seconds\n", cfg.Forecast.CacheTTLSeconds)
	fmt.Printf("  Max Horizon: %d days\n", cfg.Forecast.MaxHorizonDays)
	fmt.Printf("  Model Dir: %s\n", cfg.Models.Dir)
}
