package training

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yourusername/skycast/internal/models"
)

// buildReport renders a human-readable summary of one training run: per
// algorithm metrics, data statistics, and flags for failed or
// under-threshold models.
func buildReport(result *models.TrainingResult, cleaned []models.Observation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Training run %s (%s)\n", result.RunID, result.Status)
	fmt.Fprintf(&b, "Target: %s, observations: %d, duration: %s\n", result.Target, result.DataPoints, result.Duration.Round(0))

	b.WriteString("\nAlgorithms:\n")
	for _, outcome := range result.Outcomes {
		if outcome.Status != models.TrainingStatusSuccess {
			fmt.Fprintf(&b, "  [FAILED] %-8s %s\n", outcome.Algorithm, outcome.Notes)
			continue
		}
		m := outcome.Metrics
		flag := ""
		if m.R2 < underperformingR2 {
			flag = " [UNDERPERFORMING]"
		}
		fmt.Fprintf(&b, "  %-8s MAE=%.3f MSE=%.3f RMSE=%.3f R2=%.3f CV=%.3f%s\n",
			outcome.Algorithm, m.MAE, m.MSE, m.RMSE, m.R2, m.CVScore, flag)
	}

	if len(cleaned) > 0 {
		b.WriteString("\nData:\n")
		writeRange(&b, "temperature", cleaned, func(o *models.Observation) float64 { return o.Temperature })
		writeRange(&b, "humidity", cleaned, func(o *models.Observation) float64 { return o.Humidity })
		writeRange(&b, "pressure", cleaned, func(o *models.Observation) float64 { return o.Pressure })
		writeConditionDistribution(&b, cleaned)
	}

	return b.String()
}

func writeRange(b *strings.Builder, name string, observations []models.Observation, get func(*models.Observation) float64) {
	low, high := get(&observations[0]), get(&observations[0])
	for i := range observations {
		v := get(&observations[i])
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}
	fmt.Fprintf(b, "  %-12s %.1f .. %.1f\n", name, low, high)
}

func writeConditionDistribution(b *strings.Builder, observations []models.Observation) {
	counts := make(map[string]int)
	for i := range observations {
		counts[observations[i].Description]++
	}

	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	b.WriteString("  conditions   ")
	for i, label := range labels {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%s=%d", label, counts[label])
	}
	b.WriteString("\n")
}
