// Package features converts ordered raw observations into fixed-shape
// numeric feature matrices for model training and prediction.
package features

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/skycast/internal/models"
)

// Lag offsets and rolling windows, in observation steps.
var (
	lagOffsets     = []int{1, 3, 6, 12, 24}
	rollingWindows = []int{3, 6, 12, 24}
)

// maxWindow is the largest lookback any derived feature needs. Rows that
// cannot fully populate it are dropped, never imputed.
const maxWindow = 24

// laggedFields are the observation fields that get lag and rolling features.
var laggedFields = []string{"temperature", "humidity", "pressure"}

// Builder derives feature matrices from chronologically ordered observations.
type Builder struct {
	encoder *ConditionEncoder
}

// NewBuilder creates a feature builder around a condition encoder. The
// encoder may already be fitted (prediction path) or empty (training path,
// where Matrix fits it).
func NewBuilder(encoder *ConditionEncoder) *Builder {
	if encoder == nil {
		encoder = NewConditionEncoder()
	}
	return &Builder{encoder: encoder}
}

// Encoder returns the condition encoder, for persistence alongside models.
func (b *Builder) Encoder() *ConditionEncoder {
	return b.encoder
}

// Schema returns the ordered feature name list for the given observations.
// Latitude/longitude columns are only included when every observation
// carries coordinates, so the matrix stays rectangular.
func (b *Builder) Schema(withCoordinates bool) []string {
	schema := []string{"hour", "day_of_week", "month", "season"}
	for _, field := range laggedFields {
		for _, lag := range lagOffsets {
			schema = append(schema, fmt.Sprintf("%s_lag_%d", field, lag))
		}
	}
	for _, field := range laggedFields {
		for _, w := range rollingWindows {
			schema = append(schema, fmt.Sprintf("%s_roll_mean_%d", field, w))
			schema = append(schema, fmt.Sprintf("%s_roll_std_%d", field, w))
		}
	}
	schema = append(schema, "condition_code")
	if withCoordinates {
		schema = append(schema, "latitude", "longitude")
	}
	return schema
}

// Matrix converts observations into a rectangular feature matrix, the
// schema it was built against, and the target column (temperature). The
// first maxWindow rows are dropped because their lag and rolling windows
// cannot be fully populated. Matrix fits the condition encoder from the
// observed labels.
func (b *Builder) Matrix(observations []models.Observation) (X [][]float64, schema []string, y []float64, err error) {
	labels := make([]string, len(observations))
	for i := range observations {
		labels[i] = observations[i].Description
	}
	b.encoder.Fit(labels)

	return b.FrozenMatrix(observations)
}

// FrozenMatrix is Matrix without refitting the condition encoder: the
// existing vocabulary is kept and unseen labels encode to the unknown code.
// Use this when scoring data against an already-trained vocabulary, where a
// refit would renumber the codes the models were trained on.
func (b *Builder) FrozenMatrix(observations []models.Observation) (X [][]float64, schema []string, y []float64, err error) {
	if len(observations) <= maxWindow {
		return nil, nil, nil, fmt.Errorf("need more than %d observations to populate lag windows, got %d", maxWindow, len(observations))
	}

	withCoords := allHaveCoordinates(observations)
	schema = b.Schema(withCoords)

	rows := len(observations) - maxWindow
	X = make([][]float64, 0, rows)
	y = make([]float64, 0, rows)

	for i := maxWindow; i < len(observations); i++ {
		X = append(X, b.row(observations, i, withCoords))
		y = append(y, observations[i].Temperature)
	}

	return X, schema, y, nil
}

// row builds a single feature vector for observation index i. The caller
// guarantees i >= maxWindow.
func (b *Builder) row(observations []models.Observation, i int, withCoords bool) []float64 {
	obs := observations[i]
	vec := make([]float64, 0, len(b.Schema(withCoords)))

	vec = append(vec, timeFeatures(obs.Timestamp)...)

	for _, field := range laggedFields {
		for _, lag := range lagOffsets {
			vec = append(vec, fieldValue(&observations[i-lag], field))
		}
	}

	for _, field := range laggedFields {
		for _, w := range rollingWindows {
			window := make([]float64, w)
			for j := 0; j < w; j++ {
				window[j] = fieldValue(&observations[i-j], field)
			}
			vec = append(vec, stat.Mean(window, nil))
			vec = append(vec, stat.StdDev(window, nil))
		}
	}

	vec = append(vec, float64(b.encoder.Encode(obs.Description)))

	if withCoords {
		vec = append(vec, *obs.Latitude, *obs.Longitude)
	}

	return vec
}

// VectorForHorizon builds one prediction vector for a future time. Time
// features are advanced to the target time, while lag and rolling features
// are approximated from the current reading alone: no true future history
// exists, so every lag takes the current value and every rolling std is
// zero. This approximation inflates apparent accuracy versus genuine
// multi-step forecasting and is intentionally preserved.
func (b *Builder) VectorForHorizon(current models.Observation, at time.Time, schema []string) []float64 {
	values := map[string]float64{
		"condition_code": float64(b.encoder.Encode(current.Description)),
	}

	tf := timeFeatures(at)
	values["hour"], values["day_of_week"], values["month"], values["season"] = tf[0], tf[1], tf[2], tf[3]

	for _, field := range laggedFields {
		v := fieldValue(&current, field)
		for _, lag := range lagOffsets {
			values[fmt.Sprintf("%s_lag_%d", field, lag)] = v
		}
		for _, w := range rollingWindows {
			values[fmt.Sprintf("%s_roll_mean_%d", field, w)] = v
			values[fmt.Sprintf("%s_roll_std_%d", field, w)] = 0
		}
	}

	if current.HasCoordinates() {
		values["latitude"] = *current.Latitude
		values["longitude"] = *current.Longitude
	}

	// Emit strictly in schema order; names the schema lacks are skipped and
	// names the map lacks become zero, so the vector always matches the
	// schema the consuming model was trained against.
	vec := make([]float64, len(schema))
	for i, name := range schema {
		vec[i] = values[name]
	}
	return vec
}

// AlignVector deterministically pads a short vector with zeros or truncates
// a long one so its length matches the schema. Mismatches are never
// silently reinterpreted.
func AlignVector(vec []float64, schemaLen int) []float64 {
	if len(vec) == schemaLen {
		return vec
	}
	aligned := make([]float64, schemaLen)
	copy(aligned, vec)
	return aligned
}

// timeFeatures derives hour-of-day, day-of-week, month and season bucket.
func timeFeatures(t time.Time) []float64 {
	return []float64{
		float64(t.Hour()),
		float64(t.Weekday()),
		float64(t.Month()),
		float64(seasonBucket(t.Month())),
	}
}

// seasonBucket maps a month to one of four season categories.
func seasonBucket(m time.Month) int {
	switch m {
	case time.December, time.January, time.February:
		return 0 // winter
	case time.March, time.April, time.May:
		return 1 // spring
	case time.June, time.July, time.August:
		return 2 // summer
	default:
		return 3 // autumn
	}
}

func fieldValue(obs *models.Observation, field string) float64 {
	switch field {
	case "temperature":
		return obs.Temperature
	case "humidity":
		return obs.Humidity
	case "pressure":
		return obs.Pressure
	default:
		return 0
	}
}

func allHaveCoordinates(observations []models.Observation) bool {
	for i := range observations {
		if !observations[i].HasCoordinates() {
			return false
		}
	}
	return len(observations) > 0
}
