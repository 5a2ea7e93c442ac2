package systems

import (
	"math"

	"github.com/pthm-cable/sprout/components"
	"github.com/pthm-cable/sprout/config"
	"github.com/pthm-cable/sprout/environment"
	"github.com/pthm-cable/sprout/solver"
)

// Pools groups the organism's internal reservoirs.
type Pools struct {
	Water    *components.ResourcePool
	Nutrient *components.ResourcePool
	Storage  *components.ResourcePool
}

// Settlement records how one resource's use was covered this tick.
type Settlement struct {
	Used     float64 `csv:"used"`      // Total demand
	FromEnv  float64 `csv:"from_env"`  // Drawn from the soil
	FromPool float64 `csv:"from_pool"` // Drawn from the internal pool
	TopUp    float64 `csv:"top_up"`    // Soil surplus moved into the pool afterwards
	Unmet    float64 `csv:"unmet"`     // Demand neither could cover
}

// TickDelta is the complete set of absolute changes for one tick.
// It is computed without side effects and committed in one step.
type TickDelta struct {
	Biomass         OrganMasses
	Water           Settlement
	Nutrient        Settlement
	StorageIn       float64
	StorageOut      float64
	StorageCapacity float64
}

// StorageDelta returns the signed change to the storage pool.
func (d TickDelta) StorageDelta() float64 {
	return d.StorageIn - d.StorageOut
}

// StateUpdater converts solved fluxes into absolute deltas and applies them
// to organs, pools and the soil. It is the only writer of organ biomass and pools.
type StateUpdater struct {
	water              environment.Availability
	nutrient           environment.Availability
	capacityPerBiomass float64
}

// NewStateUpdater creates a state updater draining the given environment.
func NewStateUpdater(cfg *config.Config, water, nutrient environment.Availability) *StateUpdater {
	return &StateUpdater{
		water:              water,
		nutrient:           nutrient,
		capacityPerBiomass: cfg.Storage.CapacityPerBiomass,
	}
}

// Plan computes the tick's deltas. Fluxes are rates: sinks per own mass,
// channels per reference mass, so delta = flux * mass * elapsed.
func (u *StateUpdater) Plan(sol solver.Solution, tb TickBounds, masses OrganMasses, pools Pools) TickDelta {
	M, dt := tb.ReferenceMass, tb.Elapsed
	var d TickDelta

	var grown float64
	for i, s := range components.Organs {
		flux := math.Max(0, sol.Value(SinkVariable(s)))
		d.Biomass[i] = flux * masses[i] * dt
		grown += d.Biomass[i]
	}

	waterUsed := math.Max(0, sol.Value(VarWater))*M*dt + tb.Transpiration
	d.Water = settle(waterUsed, tb.EnvWater, pools.Water.State())

	nutrientUsed := math.Max(0, sol.Value(VarNutrient)) * M * dt
	d.Nutrient = settle(nutrientUsed, tb.EnvNutrient, pools.Nutrient.State())

	d.StorageIn = math.Max(0, sol.Value(VarStorageIn)) * M * dt
	d.StorageOut = math.Max(0, sol.Value(VarStorageOut)) * M * dt
	d.StorageCapacity = u.capacityPerBiomass * (masses.Total() + grown)

	return d
}

// settle covers demand from the soil first, then the pool, then tops the
// pool up from whatever the soil could still have supplied.
func settle(used, envUsable float64, pool components.PoolState) Settlement {
	s := Settlement{Used: used}
	s.FromEnv = math.Min(used, envUsable)
	shortfall := used - s.FromEnv
	s.FromPool = math.Min(shortfall, pool.Available)
	s.Unmet = shortfall - s.FromPool

	surplus := envUsable - s.FromEnv
	room := pool.Capacity - (pool.Available - s.FromPool)
	s.TopUp = math.Max(0, math.Min(surplus, room))
	return s
}

// Commit applies a planned delta. Callers hold the engine lock so no
// partially applied tick is ever observable.
func (u *StateUpdater) Commit(d TickDelta, organs [components.NumOrgans]*components.Organ, pools Pools, root components.Footprint) {
	for i, o := range organs {
		o.Biomass = math.Max(0, o.Biomass+d.Biomass[i])
	}

	u.water.Drain(d.Water.FromEnv+d.Water.TopUp, root)
	pools.Water.Drain(d.Water.FromPool)
	pools.Water.Replenish(d.Water.TopUp)

	u.nutrient.Drain(d.Nutrient.FromEnv+d.Nutrient.TopUp, root)
	pools.Nutrient.Drain(d.Nutrient.FromPool)
	pools.Nutrient.Replenish(d.Nutrient.TopUp)

	pools.Storage.SetCapacity(d.StorageCapacity)
	pools.Storage.Apply(d.StorageDelta())
}
