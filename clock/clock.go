// Package clock provides the simulation clock that paces growth ticks.
// The clock is owned by whichever component drives the tick loop and is
// passed explicitly; there is no process-wide instance.
package clock

import "sync"

// SimulationClock converts real elapsed time into simulated time.
// While paused, Advance does not move simulated time.
type SimulationClock struct {
	mu     sync.Mutex
	now    float64
	scale  float64
	paused bool
}

// New creates a clock at simulated time zero. scale is simulated seconds per real second.
func New(scale float64) *SimulationClock {
	if scale <= 0 {
		scale = 1
	}
	return &SimulationClock{scale: scale}
}

// Now returns the current simulated time.
func (c *SimulationClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves simulated time forward by realDt real seconds and returns
// the simulated seconds added, 0 while paused.
func (c *SimulationClock) Advance(realDt float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused || realDt <= 0 {
		return 0
	}
	dt := realDt * c.scale
	c.now += dt
	return dt
}

// Pause stops simulated time.
func (c *SimulationClock) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

// Unpause resumes simulated time.
func (c *SimulationClock) Unpause() {
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
}

// Paused reports whether the clock is paused.
func (c *SimulationClock) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Scale returns simulated seconds per real second.
func (c *SimulationClock) Scale() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scale
}
