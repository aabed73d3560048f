package forecast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/skycast/internal/models"
	"github.com/yourusername/skycast/internal/regressor"
	"github.com/yourusername/skycast/internal/repository"
)

func newTestServer(t *testing.T, layer *IntegrationLayer) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	NewHandler(layer, quietLogger()).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func trainedHandlerLayer(t *testing.T, source *stubSource) *IntegrationLayer {
	t.Helper()
	history := repository.NewMemoryTrainingHistory()
	require.NoError(t, history.Append(context.Background(), successfulRun(
		models.AlgorithmOutcome{Algorithm: "linear", Status: models.TrainingStatusSuccess, Metrics: &models.ModelMetrics{R2: 0.8}},
	)))
	return newTrainedLayer(t, source, map[string]regressor.Model{
		"linear": &constantModel{name: "linear", value: 18},
	}, map[string]float64{"linear": 0.8}, history)
}

func TestForecastEndpoint(t *testing.T) {
	source := &stubSource{baseline: baselineDays(7), current: currentConditions()}
	server := newTestServer(t, trainedHandlerLayer(t, source))

	resp, err := http.Get(server.URL + "/v1/forecast?location=berlin&lat=52.52&lon=13.405&days=3")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var result models.IntegratedForecast
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Len(t, result.Hybrid, 3)
	assert.False(t, result.Degraded)
	assert.Greater(t, result.Confidence, 0.0)
}

func TestForecastEndpointValidation(t *testing.T) {
	source := &stubSource{baseline: baselineDays(7), current: currentConditions()}
	server := newTestServer(t, trainedHandlerLayer(t, source))

	cases := []struct {
		name  string
		query string
	}{
		{"missing location", "lat=52.52&lon=13.405"},
		{"bad latitude", "location=berlin&lat=95&lon=13.405"},
		{"bad longitude", "location=berlin&lat=52.52&lon=200"},
		{"non-numeric days", "location=berlin&lat=52.52&lon=13.405&days=soon"},
		{"zero days", "location=berlin&lat=52.52&lon=13.405&days=0"},
		{"bad include_ml", "location=berlin&lat=52.52&lon=13.405&include_ml=perhaps"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Get(server.URL + "/v1/forecast?" + tc.query)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestForecastEndpointMethodNotAllowed(t *testing.T) {
	source := &stubSource{baseline: baselineDays(7), current: currentConditions()}
	server := newTestServer(t, trainedHandlerLayer(t, source))

	resp, err := http.Post(server.URL+"/v1/forecast", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestForecastEndpointBaselineUnavailable(t *testing.T) {
	source := &stubSource{forecastErr: assert.AnError, current: currentConditions()}
	server := newTestServer(t, trainedHandlerLayer(t, source))

	resp, err := http.Get(server.URL + "/v1/forecast?location=berlin&lat=52.52&lon=13.405")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Error, "baseline")
}

func TestExplainEndpoint(t *testing.T) {
	source := &stubSource{baseline: baselineDays(7), current: currentConditions()}
	server := newTestServer(t, trainedHandlerLayer(t, source))

	resp, err := http.Get(server.URL + "/v1/explain?location=berlin&lat=52.52&lon=13.405")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var explanation Explanation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&explanation))
	assert.Equal(t, []string{"linear"}, explanation.Algorithms)
	assert.NotEmpty(t, explanation.Limitations)
}

func TestExplainEndpointUntrained(t *testing.T) {
	source := &stubSource{baseline: baselineDays(7), current: currentConditions()}
	layer := newTrainedLayer(t, source, nil, nil, repository.NewMemoryTrainingHistory())
	server := newTestServer(t, layer)

	resp, err := http.Get(server.URL + "/v1/explain?location=berlin&lat=52.52&lon=13.405")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
