package telemetry

import (
	"log/slog"
	"sort"
)

// WindowStats holds aggregated statistics for a window of simulated time.
type WindowStats struct {
	WindowStartTick int64   `csv:"-"`
	WindowEndTick   int64   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Tick outcomes during window
	Ticks      int `csv:"ticks"`
	Skipped    int `csv:"skipped"`
	Infeasible int `csv:"infeasible"`

	// Biomass gained during window
	LeafGrowth float64 `csv:"leaf_growth"`
	StemGrowth float64 `csv:"stem_growth"`
	RootGrowth float64 `csv:"root_growth"`
	SeedGrowth float64 `csv:"seed_growth"`

	// Resource flows during window
	StorageIn     float64 `csv:"storage_in"`
	StorageOut    float64 `csv:"storage_out"`
	WaterUsed     float64 `csv:"water_used"`
	WaterUnmet    float64 `csv:"water_unmet"`
	NutrientUsed  float64 `csv:"nutrient_used"`
	NutrientUnmet float64 `csv:"nutrient_unmet"`

	// Organism state at window end
	Biomass      float64 `csv:"biomass"`
	SeedMass     float64 `csv:"seed_mass"`
	WaterFill    float64 `csv:"water_fill"`
	NutrientFill float64 `csv:"nutrient_fill"`
	StorageFill  float64 `csv:"storage_fill"`

	// Soil totals at window end
	SoilWater    float64 `csv:"soil_water"`
	SoilNutrient float64 `csv:"soil_nutrient"`

	// Sync round trips (client side)
	RoundTrips    int     `csv:"round_trips"`
	Pauses        int     `csv:"pauses"`
	LatencyMeanMS float64 `csv:"latency_mean_ms"`
	LatencyP50MS  float64 `csv:"latency_p50_ms"`
	LatencyP90MS  float64 `csv:"latency_p90_ms"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeStats calculates mean and percentiles from sample values.
func ComputeStats(values []float64) (mean, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)

	// Sort for percentiles
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartTick),
		slog.Int64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("ticks", s.Ticks),
		slog.Int("infeasible", s.Infeasible),
		slog.Float64("biomass", s.Biomass),
		slog.Float64("seed_mass", s.SeedMass),
		slog.Int("round_trips", s.RoundTrips),
		slog.Int("pauses", s.Pauses),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"ticks", s.Ticks,
		"skipped", s.Skipped,
		"infeasible", s.Infeasible,
		"leaf_growth", s.LeafGrowth,
		"stem_growth", s.StemGrowth,
		"root_growth", s.RootGrowth,
		"seed_growth", s.SeedGrowth,
		"storage_in", s.StorageIn,
		"storage_out", s.StorageOut,
		"water_used", s.WaterUsed,
		"water_unmet", s.WaterUnmet,
		"nutrient_used", s.NutrientUsed,
		"nutrient_unmet", s.NutrientUnmet,
		"biomass", s.Biomass,
		"seed_mass", s.SeedMass,
		"water_fill", s.WaterFill,
		"nutrient_fill", s.NutrientFill,
		"storage_fill", s.StorageFill,
		"soil_water", s.SoilWater,
		"soil_nutrient", s.SoilNutrient,
		"round_trips", s.RoundTrips,
		"pauses", s.Pauses,
		"latency_mean_ms", s.LatencyMeanMS,
		"latency_p90_ms", s.LatencyP90MS,
	)
}
