package models

import (
	"errors"
	"fmt"
	"strings"
)

// Custom errors
var (
	// ErrDependencyUnavailable indicates a configured algorithm has no
	// registered implementation. Fatal, surfaced at construction time.
	ErrDependencyUnavailable = errors.New("regression backend unavailable")

	// ErrModelNotTrained indicates prediction was requested before any
	// model was trained.
	ErrModelNotTrained = errors.New("model not trained")

	// ErrModelNotFound indicates no persisted model exists for the key.
	ErrModelNotFound = errors.New("model not found")

	// ErrNoBaselineForecast indicates the external forecast source returned
	// nothing usable. No forecast is better than a fabricated one.
	ErrNoBaselineForecast = errors.New("baseline forecast unavailable")

	// ErrNoObservations indicates the observation store returned no rows
	// for the requested window.
	ErrNoObservations = errors.New("no observations in window")
)

// InsufficientDataError is returned before any per-algorithm training begins
// when the cleaned observation count is below the configured minimum.
type InsufficientDataError struct {
	Count    int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d observations after cleaning, need %d", e.Count, e.Required)
}

// MissingFieldsError is returned when observations lack required fields.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("observations missing required fields: %s", strings.Join(e.Fields, ", "))
}
