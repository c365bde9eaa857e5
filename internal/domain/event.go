package domain

import (
	"context"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Epicenter locates an event and bounds its analysis area.
type Epicenter struct {
	Lon      float64 `json:"lon" validate:"gte=-180,lte=180"`
	Lat      float64 `json:"lat" validate:"gt=-85,lt=85"`
	DepthKm  float64 `json:"depth_km" validate:"gte=0,lte=700"`
	RadiusKm float64 `json:"radius_km" validate:"gt=0,lte=1000"`
}

// Magnitudes holds both magnitude scales used by the models.
type Magnitudes struct {
	Ms float64 `json:"ms"`
	Mw float64 `json:"mw"`
}

// EarthquakeReport is a validated request to estimate ground motion.
type EarthquakeReport struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	// Date is DDMMYYYY; required when only one magnitude is supplied.
	Date string `json:"date,omitempty"`

	Epicenter
	Ms float64 `json:"ms,omitempty" validate:"omitempty,gt=0,lt=10"`
	Mw float64 `json:"mw,omitempty" validate:"omitempty,gt=0,lt=10"`

	// Models restricts the ensemble; empty means every catalogued model.
	Models       []string `json:"models,omitempty"`
	ResolutionKm float64  `json:"resolution_km,omitempty" validate:"gte=0,lte=50"`

	// PlaceSource records how Name was obtained: "original", "reverse",
	// "generated" or "failed".
	PlaceSource string    `json:"place_source,omitempty"`
	ReceivedAt  time.Time `json:"received_at"`
	RawPayload  []byte    `json:"-"`
}

// ModelWeight is a model's ensemble weight at a serialization boundary:
// excluded models carry -1.
type ModelWeight struct {
	Model  string  `json:"model"`
	Weight float64 `json:"weight"`
}

// PGAStats summarizes the ensemble PGA inside the analysis radius (m/s²).
type PGAStats struct {
	Cells  int     `json:"cells"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
}

// EstimateSummary is the record published for each completed estimate.
type EstimateSummary struct {
	ID            string        `json:"id"`
	RunID         string        `json:"run_id"`
	Name          string        `json:"name"`
	Epicenter     Epicenter     `json:"epicenter"`
	Magnitudes    Magnitudes    `json:"magnitudes"`
	Status        string        `json:"weight_status"`
	Weights       []ModelWeight `json:"weights"`
	UnknownModels []string      `json:"unknown_models,omitempty"`
	PGA           PGAStats      `json:"pga"`
	MaxIntensity  float64       `json:"max_intensity_level"`
	GridWidth     int           `json:"grid_width"`
	GridHeight    int           `json:"grid_height"`
	Artifacts     []string      `json:"artifacts,omitempty"`
	ProcessedAt   time.Time     `json:"processed_at"`
}
