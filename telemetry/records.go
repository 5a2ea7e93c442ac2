package telemetry

// TickRecord is one row of ticks.csv.
type TickRecord struct {
	Tick       int64   `csv:"tick"`
	SimTime    float64 `csv:"sim_time"`
	Elapsed    float64 `csv:"elapsed"`
	Skipped    bool    `csv:"skipped"`
	Infeasible bool    `csv:"infeasible"`

	LeafDelta float64 `csv:"leaf_delta"`
	StemDelta float64 `csv:"stem_delta"`
	RootDelta float64 `csv:"root_delta"`
	SeedDelta float64 `csv:"seed_delta"`

	StorageIn     float64 `csv:"storage_in"`
	StorageOut    float64 `csv:"storage_out"`
	WaterUsed     float64 `csv:"water_used"`
	WaterUnmet    float64 `csv:"water_unmet"`
	NutrientUsed  float64 `csv:"nutrient_used"`
	NutrientUnmet float64 `csv:"nutrient_unmet"`

	Biomass  float64 `csv:"biomass"`
	Water    float64 `csv:"water"`
	Nutrient float64 `csv:"nutrient"`
	Storage  float64 `csv:"storage"`

	LightFlux      float64 `csv:"light_flux"`
	Photosynthesis float64 `csv:"photosynthesis"`
}

// SyncRecord is one row of sync.csv, written by the client per round trip.
type SyncRecord struct {
	Seq       int64   `csv:"seq"`
	ID        string  `csv:"id"`
	SimTime   float64 `csv:"sim_time"`
	Elapsed   float64 `csv:"elapsed"`
	LatencyMS float64 `csv:"latency_ms"`
	Pauses    int     `csv:"pauses"`
	Running   bool    `csv:"running"`
}

// OrganismState is the end-of-window state sampled when flushing stats.
type OrganismState struct {
	Biomass      float64
	SeedMass     float64
	WaterFill    float64
	NutrientFill float64
	StorageFill  float64
	SoilWater    float64
	SoilNutrient float64
}
