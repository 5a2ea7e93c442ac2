// Package environment provides the spatial soil grids and the day cycle the
// growth engine draws resources from. The engine only sees the Availability
// and LightSource interfaces; grid resolution stays hidden behind them.
package environment

import "github.com/pthm-cable/sprout/components"

// Availability exposes how much of a resource an organism footprint can reach.
type Availability interface {
	AvailableAbsolute(fp components.Footprint) float64
	Drain(amount float64, fp components.Footprint)
}

// LightSource integrates ambient irradiance per unit leaf area over simulated time.
type LightSource interface {
	Integral(t0, t1 float64) float64
}

// Snapshot summarizes environment state for display and the wire.
type Snapshot struct {
	Water      float64 `json:"water"`      // Total water across the soil grid
	Nutrient   float64 `json:"nutrient"`   // Total nutrient across the soil grid
	Irradiance float64 `json:"irradiance"` // Irradiance at the snapshot time
	TimeOfDay  float64 `json:"time_of_day"`
}
