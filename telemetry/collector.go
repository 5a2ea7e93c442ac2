package telemetry

// Collector accumulates tick and sync events within windows of simulated
// time and produces WindowStats.
type Collector struct {
	windowDurationSec float64

	// Current window tracking
	windowStartTick int64
	windowStartTime float64

	// Tick counters for current window
	ticks      int
	skipped    int
	infeasible int

	growth     [4]float64
	storageIn  float64
	storageOut float64

	waterUsed     float64
	waterUnmet    float64
	nutrientUsed  float64
	nutrientUnmet float64

	// Sync counters for current window
	roundTrips int
	pauses     int
	latencies  []float64
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulated seconds.
func NewCollector(windowDurationSec float64) *Collector {
	if windowDurationSec <= 0 {
		windowDurationSec = 1
	}
	return &Collector{windowDurationSec: windowDurationSec}
}

// RecordTick accumulates one engine tick.
func (c *Collector) RecordTick(r TickRecord) {
	c.ticks++
	if r.Skipped {
		c.skipped++
	}
	if r.Infeasible {
		c.infeasible++
	}
	c.growth[0] += r.LeafDelta
	c.growth[1] += r.StemDelta
	c.growth[2] += r.RootDelta
	c.growth[3] += r.SeedDelta
	c.storageIn += r.StorageIn
	c.storageOut += r.StorageOut
	c.waterUsed += r.WaterUsed
	c.waterUnmet += r.WaterUnmet
	c.nutrientUsed += r.NutrientUsed
	c.nutrientUnmet += r.NutrientUnmet
}

// RecordRoundTrip records a completed allocation round trip.
func (c *Collector) RecordRoundTrip(r SyncRecord) {
	c.roundTrips++
	c.latencies = append(c.latencies, r.LatencyMS)
}

// RecordPause records a backpressure pause.
func (c *Collector) RecordPause() {
	c.pauses++
}

// ShouldFlush returns true if enough simulated time has passed to flush the window.
func (c *Collector) ShouldFlush(simTime float64) bool {
	return simTime-c.windowStartTime >= c.windowDurationSec
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int64, simTime float64, state OrganismState) WindowStats {
	latMean, _, latP50, latP90 := ComputeStats(c.latencies)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      simTime,

		Ticks:      c.ticks,
		Skipped:    c.skipped,
		Infeasible: c.infeasible,

		LeafGrowth: c.growth[0],
		StemGrowth: c.growth[1],
		RootGrowth: c.growth[2],
		SeedGrowth: c.growth[3],

		StorageIn:     c.storageIn,
		StorageOut:    c.storageOut,
		WaterUsed:     c.waterUsed,
		WaterUnmet:    c.waterUnmet,
		NutrientUsed:  c.nutrientUsed,
		NutrientUnmet: c.nutrientUnmet,

		Biomass:      state.Biomass,
		SeedMass:     state.SeedMass,
		WaterFill:    state.WaterFill,
		NutrientFill: state.NutrientFill,
		StorageFill:  state.StorageFill,
		SoilWater:    state.SoilWater,
		SoilNutrient: state.SoilNutrient,

		RoundTrips:    c.roundTrips,
		Pauses:        c.pauses,
		LatencyMeanMS: latMean,
		LatencyP50MS:  latP50,
		LatencyP90MS:  latP90,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.windowStartTime = simTime
	c.ticks = 0
	c.skipped = 0
	c.infeasible = 0
	c.growth = [4]float64{}
	c.storageIn = 0
	c.storageOut = 0
	c.waterUsed = 0
	c.waterUnmet = 0
	c.nutrientUsed = 0
	c.nutrientUnmet = 0
	c.roundTrips = 0
	c.pauses = 0
	c.latencies = c.latencies[:0]

	return stats
}

// WindowDuration returns the simulated seconds per window.
func (c *Collector) WindowDuration() float64 {
	return c.windowDurationSec
}
