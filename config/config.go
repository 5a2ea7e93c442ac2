// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Sim        SimConfig        `yaml:"sim"`
	Organs     OrgansConfig     `yaml:"organs"`
	Pools      PoolsConfig      `yaml:"pools"`
	Storage    StorageConfig    `yaml:"storage"`
	Metabolism MetabolismConfig `yaml:"metabolism"`
	Water      WaterConfig      `yaml:"water"`
	Nutrient   NutrientConfig   `yaml:"nutrient"`
	Light      LightConfig      `yaml:"light"`
	Stomata    StomataConfig    `yaml:"stomata"`
	Soil       SoilConfig       `yaml:"soil"`
	Sync       SyncConfig       `yaml:"sync"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimConfig holds tick pacing and session parameters.
type SimConfig struct {
	TickInterval  float64           `yaml:"tick_interval"`  // Game seconds between allocation ticks
	TimeScale     float64           `yaml:"time_scale"`     // Simulated seconds per real second
	SessionLength float64           `yaml:"session_length"` // Simulated seconds before the session ends (0 = unlimited)
	SeedGoal      float64           `yaml:"seed_goal"`      // Seed biomass that ends the session (0 = disabled)
	Percentages   PercentagesConfig `yaml:"percentages"`    // Allocation used when no player input is wired
	StomataOpen   bool              `yaml:"stomata_open"`
}

// PercentagesConfig holds per-sink allocation targets.
type PercentagesConfig struct {
	Leaf    float64 `yaml:"leaf"`
	Stem    float64 `yaml:"stem"`
	Root    float64 `yaml:"root"`
	Seed    float64 `yaml:"seed"`
	Storage float64 `yaml:"storage"` // Negative = consume from storage
}

// OrgansConfig holds initial organ state and footprint shaping.
type OrgansConfig struct {
	LeafMass float64 `yaml:"leaf_mass"`
	StemMass float64 `yaml:"stem_mass"`
	RootMass float64 `yaml:"root_mass"`
	SeedMass float64 `yaml:"seed_mass"` // Must be > 0 for seed to ever grow (flux is per own mass)

	SpecificLeafArea  float64 `yaml:"specific_leaf_area"`   // Leaf area per unit leaf mass
	RootX             float64 `yaml:"root_x"`               // Root footprint center in world units
	RootY             float64 `yaml:"root_y"`
	RootRadiusBase    float64 `yaml:"root_radius_base"`     // Root footprint radius at zero mass
	RootRadiusPerMass float64 `yaml:"root_radius_per_mass"` // Radius growth per unit root mass
}

// PoolConfig holds a single pool's starting state.
type PoolConfig struct {
	Initial  float64 `yaml:"initial"`
	Capacity float64 `yaml:"capacity"`
}

// PoolsConfig holds the internal water and nutrient pools.
type PoolsConfig struct {
	Water    PoolConfig `yaml:"water"`
	Nutrient PoolConfig `yaml:"nutrient"`
}

// StorageConfig holds the storage reserve parameters.
type StorageConfig struct {
	Initial            float64 `yaml:"initial"`
	CapacityPerBiomass float64 `yaml:"capacity_per_biomass"` // Capacity = this * total organ biomass
	ConversionRate     float64 `yaml:"conversion_rate"`      // Max storage units converted per unit biomass per second
	MassPerUnit        float64 `yaml:"mass_per_unit"`        // Biomass equivalent of one storage unit
}

// MetabolismConfig holds stoichiometric coefficients of the growth model.
type MetabolismConfig struct {
	LightPerCarbon     float64 `yaml:"light_per_carbon"`     // Light absorbed per unit fixed carbon
	WaterPerCarbon     float64 `yaml:"water_per_carbon"`     // Water consumed per unit fixed carbon
	WaterPerBiomass    float64 `yaml:"water_per_biomass"`    // Water incorporated per unit new biomass
	NutrientPerBiomass float64 `yaml:"nutrient_per_biomass"` // Nutrient incorporated per unit new biomass
	SinkBound          float64 `yaml:"sink_bound"`           // Upper flux bound of an active sink
}

// WaterConfig holds water uptake and loss parameters.
type WaterConfig struct {
	UptakeRate        float64 `yaml:"uptake_rate"`        // Max uptake per unit root mass per second
	TranspirationRate float64 `yaml:"transpiration_rate"` // Loss per unit leaf area per second
	ClosedFactor      float64 `yaml:"closed_factor"`      // Transpiration multiplier with stomata closed
}

// NutrientConfig holds the saturating uptake law parameters.
type NutrientConfig struct {
	Vmax float64 `yaml:"vmax"` // Max uptake per unit root mass per second
	Km   float64 `yaml:"km"`   // Half-saturation concentration
}

// LightConfig holds the day cycle.
type LightConfig struct {
	DayLength      float64 `yaml:"day_length"`      // Simulated seconds per day
	PeakIrradiance float64 `yaml:"peak_irradiance"` // Irradiance at noon per unit leaf area
	StartHour      float64 `yaml:"start_hour"`      // Time of day at simulation start [0,24)
	QuadPoints     int     `yaml:"quad_points"`     // Quadrature nodes for the light integral
}

// StomataConfig holds gas exchange bounds.
type StomataConfig struct {
	OpenBound float64 `yaml:"open_bound"` // Magnitude of the two-way gas exchange interval
}

// FieldConfig holds one soil resource grid.
type FieldConfig struct {
	CellCapacity float64 `yaml:"cell_capacity"` // Max amount per cell at peak noise
	InitialFill  float64 `yaml:"initial_fill"`  // Fraction of capacity at start
	RegrowRate   float64 `yaml:"regrow_rate"`   // Relaxation rate toward capacity per second
	Diffuse      float64 `yaml:"diffuse"`       // Diffusion strength per second (0 disables)
	Seed         uint32  `yaml:"seed"`
}

// SoilConfig holds spatial grid layout and noise shaping.
type SoilConfig struct {
	GridW      int         `yaml:"grid_w"`
	GridH      int         `yaml:"grid_h"`
	WorldW     float64     `yaml:"world_w"`
	WorldH     float64     `yaml:"world_h"`
	Scale      float64     `yaml:"scale"`      // Base noise frequency
	Octaves    int         `yaml:"octaves"`    // FBM octaves
	Lacunarity float64     `yaml:"lacunarity"` // Frequency multiplier per octave
	Gain       float64     `yaml:"gain"`       // Amplitude multiplier per octave
	Contrast   float64     `yaml:"contrast"`   // FBM contrast exponent
	Water      FieldConfig `yaml:"water"`
	Nutrient   FieldConfig `yaml:"nutrient"`
}

// SyncConfig holds client/authority round trip parameters.
type SyncConfig struct {
	Addr            string  `yaml:"addr"`
	Path            string  `yaml:"path"`
	RequestInterval float64 `yaml:"request_interval"`  // Game seconds between allocation requests
	MaxWait         float64 `yaml:"max_wait"`          // Real seconds before backpressure kicks in
	GracePause      float64 `yaml:"grace_pause"`       // Real seconds of each backpressure pause
	MaxPauseRetries int     `yaml:"max_pause_retries"` // Consecutive pauses before abort (0 = never abort)
	WriteTimeout    float64 `yaml:"write_timeout"`     // Seconds
	ReadTimeout     float64 `yaml:"read_timeout"`      // Seconds
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"` // Simulated seconds per stats window
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	InitialBiomass  float64 // Sum of initial organ masses
	StorageCapacity float64 // Storage capacity at InitialBiomass
	SoilCellArea    float64 // World area covered by one soil cell
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// validate rejects values the engine cannot run with.
func (c *Config) validate() error {
	if c.Sim.TickInterval <= 0 {
		return fmt.Errorf("sim.tick_interval must be positive, got %v", c.Sim.TickInterval)
	}
	if c.Sim.TimeScale <= 0 {
		return fmt.Errorf("sim.time_scale must be positive, got %v", c.Sim.TimeScale)
	}
	if c.Storage.MassPerUnit <= 0 {
		return fmt.Errorf("storage.mass_per_unit must be positive, got %v", c.Storage.MassPerUnit)
	}
	if c.Soil.GridW <= 0 || c.Soil.GridH <= 0 {
		return fmt.Errorf("soil grid must be non-empty, got %dx%d", c.Soil.GridW, c.Soil.GridH)
	}
	if c.Light.DayLength <= 0 {
		return fmt.Errorf("light.day_length must be positive, got %v", c.Light.DayLength)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.InitialBiomass = c.Organs.LeafMass + c.Organs.StemMass + c.Organs.RootMass + c.Organs.SeedMass
	c.Derived.StorageCapacity = c.Storage.CapacityPerBiomass * c.Derived.InitialBiomass

	// World dimensions default to grid size (one unit per cell)
	if c.Soil.WorldW == 0 {
		c.Soil.WorldW = float64(c.Soil.GridW)
	}
	if c.Soil.WorldH == 0 {
		c.Soil.WorldH = float64(c.Soil.GridH)
	}
	c.Derived.SoilCellArea = (c.Soil.WorldW / float64(c.Soil.GridW)) * (c.Soil.WorldH / float64(c.Soil.GridH))

	if c.Light.QuadPoints < 1 {
		c.Light.QuadPoints = 16
	}
	if c.Sync.Path == "" {
		c.Sync.Path = "/v1/grow"
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
