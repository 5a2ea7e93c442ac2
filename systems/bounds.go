package systems

import (
	"math"

	"github.com/pthm-cable/sprout/components"
	"github.com/pthm-cable/sprout/config"
	"github.com/pthm-cable/sprout/environment"
	"github.com/pthm-cable/sprout/solver"
)

// ChannelBounds is a [Lower, Upper] flux interval valid for one tick.
type ChannelBounds struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// BoundsInput is everything the bounds calculation reads for one tick.
type BoundsInput struct {
	Masses        OrganMasses
	LeafArea      float64
	RootFootprint components.Footprint

	Water    components.PoolState
	Nutrient components.PoolState
	Storage  components.PoolState

	Percentages components.Percentages
	StomataOpen bool

	SimTime float64 // Simulated time at the start of the tick
	Elapsed float64
}

// TickBounds holds per-channel bounds plus the absolute quantities the state
// updater settles against. Recomputed from scratch every tick.
type TickBounds struct {
	Light      ChannelBounds
	Water      ChannelBounds
	Nutrient   ChannelBounds
	StorageIn  ChannelBounds
	StorageOut ChannelBounds
	Gas        ChannelBounds

	ReferenceMass float64 // Total organ biomass
	Elapsed       float64

	Transpiration float64 // Water lost through leaves this tick
	EnvWater      float64 // Water the environment can supply this tick
	EnvNutrient   float64 // Nutrient the environment can supply this tick
}

// Apply sets every channel bound on the optimizer.
func (tb TickBounds) Apply(m solver.Optimizer) {
	m.SetBounds(VarLight, tb.Light.Lower, tb.Light.Upper)
	m.SetBounds(VarWater, tb.Water.Lower, tb.Water.Upper)
	m.SetBounds(VarNutrient, tb.Nutrient.Lower, tb.Nutrient.Upper)
	m.SetBounds(VarStorageIn, tb.StorageIn.Lower, tb.StorageIn.Upper)
	m.SetBounds(VarStorageOut, tb.StorageOut.Lower, tb.StorageOut.Upper)
	m.SetBounds(VarGas, tb.Gas.Lower, tb.Gas.Upper)
}

// BoundsCalculator turns pool state, environment availability, elapsed time
// and the stomata toggle into channel bounds.
type BoundsCalculator struct {
	water    environment.Availability
	nutrient environment.Availability
	light    environment.LightSource

	waterCfg    config.WaterConfig
	nutrientCfg config.NutrientConfig
	storageCfg  config.StorageConfig
	openBound   float64
	minArea     float64
}

// NewBoundsCalculator creates a bounds calculator over the given environment.
func NewBoundsCalculator(cfg *config.Config, water, nutrient environment.Availability, light environment.LightSource) *BoundsCalculator {
	return &BoundsCalculator{
		water:       water,
		nutrient:    nutrient,
		light:       light,
		waterCfg:    cfg.Water,
		nutrientCfg: cfg.Nutrient,
		storageCfg:  cfg.Storage,
		openBound:   cfg.Stomata.OpenBound,
		minArea:     cfg.Derived.SoilCellArea,
	}
}

// Compute returns the bounds for one tick. Resource channel bounds are rates
// per unit reference mass: an absolute amount A over the tick becomes A/(M*dt).
// With no elapsed time or no biomass every bound collapses to [0, 0].
func (b *BoundsCalculator) Compute(in BoundsInput) TickBounds {
	M := in.Masses.Total()
	dt := in.Elapsed
	tb := TickBounds{ReferenceMass: M, Elapsed: dt}
	if dt <= 0 || M <= 0 {
		return tb
	}
	perRate := 1 / (M * dt)
	rootMass := in.Masses.Of(components.SinkRoot)

	// Light capture
	light := in.LeafArea * b.light.Integral(in.SimTime, in.SimTime+dt)
	tb.Light = ChannelBounds{0, light * perRate}

	// Water: pool plus reachable soil water, minus what the leaves will lose anyway
	tb.EnvWater = math.Min(b.water.AvailableAbsolute(in.RootFootprint), rootMass*b.waterCfg.UptakeRate*dt)
	tb.Transpiration = in.LeafArea * b.waterCfg.TranspirationRate * dt
	if !in.StomataOpen {
		tb.Transpiration *= b.waterCfg.ClosedFactor
	}
	water := math.Max(0, in.Water.Available+tb.EnvWater-tb.Transpiration)
	tb.Water = ChannelBounds{0, water * perRate}

	// Nutrient: saturating uptake from the soil under the roots
	tb.EnvNutrient = b.nutrientUptake(in.RootFootprint, rootMass, dt)
	tb.Nutrient = ChannelBounds{0, (in.Nutrient.Available + tb.EnvNutrient) * perRate}

	// Storage: one direction per tick, chosen by the sign of the storage share
	switch share := in.Percentages.Storage; {
	case share < 0:
		convertible := math.Min(in.Storage.Available, b.storageCfg.ConversionRate*M*dt)
		tb.StorageOut = ChannelBounds{0, convertible * (-share / 100) * perRate}
	case share > 0:
		tb.StorageIn = ChannelBounds{0, math.Max(0, in.Storage.Capacity-in.Storage.Available) * perRate}
	}

	// Gas exchange: closed stomata still allow release
	if in.StomataOpen {
		tb.Gas = ChannelBounds{-b.openBound, b.openBound}
	} else {
		tb.Gas = ChannelBounds{-b.openBound, 0}
	}

	return tb
}

// nutrientUptake applies a saturating uptake law to the soil under the roots:
// rate = vmax * C/(km + C) * rootMass, where C is the footprint concentration.
func (b *BoundsCalculator) nutrientUptake(fp components.Footprint, rootMass, dt float64) float64 {
	avail := b.nutrient.AvailableAbsolute(fp)
	if avail <= 0 || rootMass <= 0 {
		return 0
	}
	area := math.Max(math.Pi*fp.Radius*fp.Radius, b.minArea)
	conc := avail / area
	rate := b.nutrientCfg.Vmax * conc / (b.nutrientCfg.Km + conc) * rootMass
	return math.Min(avail, rate*dt)
}
