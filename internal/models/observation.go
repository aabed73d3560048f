package models

import (
	"time"
)

// Observation represents a single recorded weather reading. Observations are
// immutable once recorded; they are produced by the external data source or
// loaded from the observation store.
type Observation struct {
	Timestamp   time.Time `db:"observed_at" json:"timestamp" validate:"required"`
	Temperature float64   `db:"temperature" json:"temperature"`
	Humidity    float64   `db:"humidity" json:"humidity" validate:"gte=0,lte=100"`
	Pressure    float64   `db:"pressure" json:"pressure"`
	WindSpeed   float64   `db:"wind_speed" json:"wind_speed" validate:"gte=0"`
	Description string    `db:"description" json:"description"`
	Latitude    *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude   *float64  `db:"longitude" json:"longitude,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are present.
func (o *Observation) HasCoordinates() bool {
	return o.Latitude != nil && o.Longitude != nil
}

// Location identifies a place a forecast is requested for.
type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Key returns a canonical string key for indexing this location in caches.
func (l Location) Key() string {
	return l.Name
}

// DayForecast is one day of an externally supplied baseline forecast.
type DayForecast struct {
	Date        time.Time `json:"date"`
	TempHigh    float64   `json:"temp_high"`
	TempLow     float64   `json:"temp_low"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Description string    `json:"description"`
}
