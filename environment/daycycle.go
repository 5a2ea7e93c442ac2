package environment

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"

	"github.com/pthm-cable/sprout/config"
)

// DayCycle models irradiance as a clipped sine over the day.
// Simulated time 0 corresponds to StartHour.
type DayCycle struct {
	DayLength float64 // Simulated seconds per day
	Peak      float64 // Irradiance at noon
	StartHour float64
	Points    int // Quadrature nodes per integral
}

// NewDayCycle creates a day cycle from config.
func NewDayCycle(cfg config.LightConfig) *DayCycle {
	return &DayCycle{
		DayLength: cfg.DayLength,
		Peak:      cfg.PeakIrradiance,
		StartHour: cfg.StartHour,
		Points:    cfg.QuadPoints,
	}
}

// HourAt returns the time of day in hours [0,24) at simulated time t.
func (d *DayCycle) HourAt(t float64) float64 {
	h := math.Mod(d.StartHour+24*t/d.DayLength, 24)
	if h < 0 {
		h += 24
	}
	return h
}

// Irradiance returns irradiance at simulated time t. Zero between 18:00 and 06:00.
func (d *DayCycle) Irradiance(t float64) float64 {
	phase := (d.HourAt(t) - 6) / 12 * math.Pi
	v := math.Sin(phase)
	if v <= 0 {
		return 0
	}
	return d.Peak * v
}

// Integral returns the irradiance integrated over [t0, t1].
// Each day-half is integrated separately so the night clip stays out of the quadrature.
func (d *DayCycle) Integral(t0, t1 float64) float64 {
	if t1 <= t0 {
		return 0
	}
	n := d.Points
	if n < 1 {
		n = 16
	}

	var total float64
	for _, seg := range d.segments(t0, t1) {
		total += quad.Fixed(d.Irradiance, seg[0], seg[1], n, nil, 0)
	}
	return total
}

// segments splits [t0, t1] at every sunrise and sunset.
func (d *DayCycle) segments(t0, t1 float64) [][2]float64 {
	perHour := d.DayLength / 24
	// Simulated time of the first 06:00 or 18:00 at or after t0.
	hour := d.HourAt(t0)
	next := math.Ceil((hour-6)/12)*12 + 6
	cut := t0 + (next-hour)*perHour

	var segs [][2]float64
	start := t0
	for cut < t1 {
		if cut > start {
			segs = append(segs, [2]float64{start, cut})
			start = cut
		}
		cut += 12 * perHour
	}
	return append(segs, [2]float64{start, t1})
}
