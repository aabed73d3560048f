package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

type fakeModels struct {
	trained   bool
	trainedAt time.Time
}

func (f *fakeModels) Trained() bool        { return f.trained }
func (f *fakeModels) TrainedAt() time.Time { return f.trainedAt }

func TestHandleHealth(t *testing.T) {
	server := NewServer(Config{ServiceName: "skycast", Version: "test"})

	rec := httptest.NewRecorder()
	server.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "skycast", resp.Service)
	assert.Equal(t, "test", resp.Version)
}

func TestHandleReadyNotReady(t *testing.T) {
	server := NewServer(Config{ServiceName: "skycast"})

	rec := httptest.NewRecorder()
	server.handleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ReadyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "not_ready", resp.Checks["service"])
}

func TestHandleReadyDatabaseFailure(t *testing.T) {
	server := NewServer(Config{
		ServiceName: "skycast",
		DB:          &fakePinger{err: errors.New("connection refused")},
	})
	server.SetReady(true)

	rec := httptest.NewRecorder()
	server.handleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ReadyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Checks["database"], "connection refused")
}

func TestHandleReadyUntrainedModelsStillReady(t *testing.T) {
	server := NewServer(Config{
		ServiceName: "skycast",
		DB:          &fakePinger{},
		Models:      &fakeModels{trained: false},
	})
	server.SetReady(true)

	rec := httptest.NewRecorder()
	server.handleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ReadyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "untrained", resp.Checks["models"])
}

func TestHandleReadyTrainedModels(t *testing.T) {
	trainedAt := time.Date(2026, 6, 15, 3, 0, 0, 0, time.UTC)
	server := NewServer(Config{
		ServiceName: "skycast",
		DB:          &fakePinger{},
		Models:      &fakeModels{trained: true, trainedAt: trainedAt},
	})
	server.SetReady(true)

	rec := httptest.NewRecorder()
	server.handleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ReadyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Checks["models"], "2026-06-15T03:00:00Z")
}

func TestDefaultPort(t *testing.T) {
	server := NewServer(Config{ServiceName: "skycast"})
	assert.Equal(t, "8080", server.port)

	server = NewServer(Config{ServiceName: "skycast", Port: "9999"})
	assert.Equal(t, "9999", server.port)
}
