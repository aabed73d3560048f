package forecast

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/skycast/internal/models"
)

// Handler exposes the integration layer over HTTP.
type Handler struct {
	layer *IntegrationLayer
	log   *logrus.Logger
}

// NewHandler creates an HTTP handler around the integration layer
func NewHandler(layer *IntegrationLayer, log *logrus.Logger) *Handler {
	return &Handler{layer: layer, log: log}
}

// Register mounts the forecast API routes
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/forecast", h.handleForecast)
	mux.HandleFunc("/v1/explain", h.handleExplain)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) handleForecast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	location, ok := parseLocation(w, r)
	if !ok {
		return
	}

	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}

	includeML := true
	if raw := r.URL.Query().Get("include_ml"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "include_ml must be a boolean")
			return
		}
		includeML = parsed
	}

	result, err := h.layer.GetEnhancedForecast(r.Context(), location, days, includeML)
	if err != nil {
		if errors.Is(err, models.ErrNoBaselineForecast) {
			writeError(w, http.StatusBadGateway, "baseline forecast unavailable")
			return
		}
		h.log.WithError(err).Error("Forecast request failed")
		writeError(w, http.StatusInternalServerError, "forecast unavailable")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleExplain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	location, ok := parseLocation(w, r)
	if !ok {
		return
	}

	explanation, err := h.layer.GetPredictionExplanation(r.Context(), location)
	if err != nil {
		if errors.Is(err, models.ErrModelNotTrained) {
			writeError(w, http.StatusConflict, "no trained models yet")
			return
		}
		h.log.WithError(err).Error("Explanation request failed")
		writeError(w, http.StatusInternalServerError, "explanation unavailable")
		return
	}

	writeJSON(w, http.StatusOK, explanation)
}

func parseLocation(w http.ResponseWriter, r *http.Request) (models.Location, bool) {
	q := r.URL.Query()
	name := q.Get("location")
	if name == "" {
		writeError(w, http.StatusBadRequest, "location is required")
		return models.Location{}, false
	}

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		writeError(w, http.StatusBadRequest, "lat must be a valid latitude")
		return models.Location{}, false
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		writeError(w, http.StatusBadRequest, "lon must be a valid longitude")
		return models.Location{}, false
	}

	return models.Location{Name: name, Latitude: lat, Longitude: lon}, true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
