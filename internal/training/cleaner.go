package training

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/skycast/internal/models"
)

// fallbackDescription replaces missing condition labels during cleaning.
const fallbackDescription = "unknown"

// Temperature readings outside this percentile band of the batch are treated
// as sensor glitches and dropped.
const (
	outlierLowerPercentile = 0.01
	outlierUpperPercentile = 0.99
)

// ValidateFields checks that every core field carries at least one usable
// value across the batch. A field that is absent everywhere means the
// upstream feed is broken, which is a typed hard failure rather than
// something cleaning should paper over.
func ValidateFields(observations []models.Observation) error {
	if len(observations) == 0 {
		return models.ErrNoObservations
	}

	present := map[string]bool{
		"timestamp":   false,
		"temperature": false,
		"humidity":    false,
		"pressure":    false,
		"wind_speed":  false,
	}
	for i := range observations {
		o := &observations[i]
		if !o.Timestamp.IsZero() {
			present["timestamp"] = true
		}
		if !math.IsNaN(o.Temperature) {
			present["temperature"] = true
		}
		if !math.IsNaN(o.Humidity) {
			present["humidity"] = true
		}
		if !math.IsNaN(o.Pressure) {
			present["pressure"] = true
		}
		if !math.IsNaN(o.WindSpeed) {
			present["wind_speed"] = true
		}
	}

	var missing []string
	for _, field := range []string{"timestamp", "temperature", "humidity", "pressure", "wind_speed"} {
		if !present[field] {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return &models.MissingFieldsError{Fields: missing}
	}
	return nil
}

// Clean prepares a raw observation batch for feature building: deduplicate
// on timestamp keeping the first reading, sort chronologically, drop rows
// missing any core field, drop temperature outliers outside the batch's
// [1st, 99th] percentile band, and fill empty descriptions.
func Clean(observations []models.Observation) []models.Observation {
	seen := make(map[int64]bool, len(observations))
	cleaned := make([]models.Observation, 0, len(observations))
	for i := range observations {
		o := observations[i]
		key := o.Timestamp.UnixNano()
		if o.Timestamp.IsZero() || seen[key] {
			continue
		}
		if hasMissingCoreField(&o) {
			continue
		}
		seen[key] = true
		if o.Description == "" {
			o.Description = fallbackDescription
		}
		cleaned = append(cleaned, o)
	}

	sort.Slice(cleaned, func(i, j int) bool {
		return cleaned[i].Timestamp.Before(cleaned[j].Timestamp)
	})

	return dropTemperatureOutliers(cleaned)
}

func hasMissingCoreField(o *models.Observation) bool {
	return math.IsNaN(o.Temperature) || math.IsNaN(o.Humidity) ||
		math.IsNaN(o.Pressure) || math.IsNaN(o.WindSpeed)
}

// dropTemperatureOutliers removes rows whose temperature falls outside the
// [1st, 99th] percentile of the batch. The band is computed from the batch
// itself, so a uniformly shifted batch is left alone.
func dropTemperatureOutliers(observations []models.Observation) []models.Observation {
	if len(observations) < 3 {
		return observations
	}

	temps := make([]float64, len(observations))
	for i := range observations {
		temps[i] = observations[i].Temperature
	}
	sort.Float64s(temps)

	lower := stat.Quantile(outlierLowerPercentile, stat.Empirical, temps, nil)
	upper := stat.Quantile(outlierUpperPercentile, stat.Empirical, temps, nil)

	kept := make([]models.Observation, 0, len(observations))
	for i := range observations {
		t := observations[i].Temperature
		if t < lower || t > upper {
			continue
		}
		kept = append(kept, observations[i])
	}
	return kept
}
