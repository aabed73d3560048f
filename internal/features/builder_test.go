package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/skycast/internal/models"
)

func hourlyObservations(n int, withCoords bool) []models.Observation {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	obs := make([]models.Observation, n)
	descriptions := []string{"clear sky", "light rain", "overcast"}
	for i := 0; i < n; i++ {
		obs[i] = models.Observation{
			Timestamp:   start.Add(time.Duration(i) * time.Hour),
			Temperature: 10 + float64(i%24)*0.5,
			Humidity:    60 + float64(i%10),
			Pressure:    1010 + float64(i%5),
			Description: descriptions[i%len(descriptions)],
		}
		if withCoords {
			lat, lon := 51.5, -0.12
			obs[i].Latitude = &lat
			obs[i].Longitude = &lon
		}
	}
	return obs
}

func TestMatrixDropsUnpopulatedLagRows(t *testing.T) {
	obs := hourlyObservations(100, false)
	builder := NewBuilder(nil)

	X, schema, y, err := builder.Matrix(obs)
	require.NoError(t, err)

	// The first 24 rows cannot fill the largest window and are dropped.
	assert.Len(t, X, 76)
	assert.Len(t, y, 76)
	for _, row := range X {
		assert.Len(t, row, len(schema))
	}
}

func TestMatrixRejectsTooFewObservations(t *testing.T) {
	obs := hourlyObservations(24, false)
	builder := NewBuilder(nil)

	_, _, _, err := builder.Matrix(obs)
	require.Error(t, err)
}

func TestMatrixLagValues(t *testing.T) {
	obs := hourlyObservations(60, false)
	builder := NewBuilder(nil)

	X, schema, y, err := builder.Matrix(obs)
	require.NoError(t, err)

	lagIdx := indexOf(t, schema, "temperature_lag_1")
	// Row 0 corresponds to observation 24; its lag-1 temperature is obs[23].
	assert.InDelta(t, obs[23].Temperature, X[0][lagIdx], 1e-9)
	assert.InDelta(t, obs[24].Temperature, y[0], 1e-9)

	lag24Idx := indexOf(t, schema, "temperature_lag_24")
	assert.InDelta(t, obs[0].Temperature, X[0][lag24Idx], 1e-9)
}

func TestMatrixIncludesCoordinatesWhenAllPresent(t *testing.T) {
	builder := NewBuilder(nil)
	_, schema, _, err := builder.Matrix(hourlyObservations(50, true))
	require.NoError(t, err)
	assert.Contains(t, schema, "latitude")
	assert.Contains(t, schema, "longitude")

	builder = NewBuilder(nil)
	_, schema, _, err = builder.Matrix(hourlyObservations(50, false))
	require.NoError(t, err)
	assert.NotContains(t, schema, "latitude")
}

func TestEncoderUnseenLabelMapsToUnknown(t *testing.T) {
	encoder := NewConditionEncoder()
	encoder.Fit([]string{"clear sky", "light rain", "Clear Sky"})

	assert.Equal(t, 2, encoder.Size())
	assert.NotEqual(t, UnknownConditionCode, encoder.Encode("clear sky"))
	assert.Equal(t, encoder.Encode("clear sky"), encoder.Encode("CLEAR SKY"))
	assert.Equal(t, UnknownConditionCode, encoder.Encode("volcanic ash"))
}

func TestVectorForHorizonMatchesSchema(t *testing.T) {
	obs := hourlyObservations(60, false)
	builder := NewBuilder(nil)
	_, schema, _, err := builder.Matrix(obs)
	require.NoError(t, err)

	current := obs[len(obs)-1]
	at := current.Timestamp.Add(3 * time.Hour)
	vec := builder.VectorForHorizon(current, at, schema)

	require.Len(t, vec, len(schema))

	// Lags are approximated by the current reading; rolling std is zero.
	assert.InDelta(t, current.Temperature, vec[indexOf(t, schema, "temperature_lag_12")], 1e-9)
	assert.InDelta(t, current.Humidity, vec[indexOf(t, schema, "humidity_roll_mean_6")], 1e-9)
	assert.Zero(t, vec[indexOf(t, schema, "pressure_roll_std_24")])

	// Time features advance to the target hour.
	assert.InDelta(t, float64(at.Hour()), vec[indexOf(t, schema, "hour")], 1e-9)
}

func TestAlignVector(t *testing.T) {
	short := []float64{1, 2}
	aligned := AlignVector(short, 4)
	assert.Equal(t, []float64{1, 2, 0, 0}, aligned)

	long := []float64{1, 2, 3, 4, 5}
	aligned = AlignVector(long, 3)
	assert.Equal(t, []float64{1, 2, 3}, aligned)

	same := []float64{1, 2, 3}
	assert.Equal(t, same, AlignVector(same, 3))
}

func TestSeasonBuckets(t *testing.T) {
	assert.Equal(t, 0, seasonBucket(time.January))
	assert.Equal(t, 1, seasonBucket(time.April))
	assert.Equal(t, 2, seasonBucket(time.July))
	assert.Equal(t, 3, seasonBucket(time.October))
	assert.Equal(t, 0, seasonBucket(time.December))
}

func indexOf(t *testing.T, schema []string, name string) int {
	t.Helper()
	for i, s := range schema {
		if s == name {
			return i
		}
	}
	t.Fatalf("feature %q not in schema", name)
	return -1
}

func TestFrozenMatrixKeepsVocabulary(t *testing.T) {
	encoder := NewConditionEncoder()
	encoder.Fit([]string{"clear sky", "light rain", "overcast"})
	builder := NewBuilder(encoder)

	obs := hourlyObservations(60, false)
	obs[40].Description = "ash cloud" // sorts before every fitted label

	X, schema, _, err := builder.FrozenMatrix(obs)
	require.NoError(t, err)

	codeIdx := -1
	for i, name := range schema {
		if name == "condition_code" {
			codeIdx = i
		}
	}
	require.GreaterOrEqual(t, codeIdx, 0)

	// The fitted codes are untouched and the unseen label maps to the
	// reserved unknown code instead of renumbering the vocabulary.
	assert.Equal(t, 3, encoder.Size())
	assert.Equal(t, float64(UnknownConditionCode), X[40-24][codeIdx])
	assert.Equal(t, float64(encoder.Encode("overcast")), X[41-24][codeIdx])
	assert.NotEqual(t, UnknownConditionCode, encoder.Encode("overcast"))
}
