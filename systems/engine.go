package systems

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/sprout/components"
	"github.com/pthm-cable/sprout/config"
	"github.com/pthm-cable/sprout/environment"
	"github.com/pthm-cable/sprout/solver"
	"github.com/pthm-cable/sprout/telemetry"
)

// PoolKind identifies one of the organism's internal pools.
type PoolKind uint8

const (
	PoolWater PoolKind = iota
	PoolNutrient
	PoolStorage
)

// String returns the pool name.
func (k PoolKind) String() string {
	switch k {
	case PoolWater:
		return "water"
	case PoolNutrient:
		return "nutrient"
	case PoolStorage:
		return "storage"
	}
	return "unknown"
}

// PhaseTimer receives phase boundaries of a tick. *telemetry.PerfCollector implements it.
type PhaseTimer interface {
	StartPhase(phase string)
}

// TickResult reports what one engine tick did.
type TickResult struct {
	Tick       int64
	SimTime    float64 // Simulated time at the end of the tick
	Elapsed    float64
	Skipped    bool // No solve: zero elapsed time, no biomass, or no active sink
	Infeasible bool // No feasible point, or an active sink could not grow; growth was zero
	Err        error

	Bounds   TickBounds
	Solution solver.Solution
	Delta    TickDelta
}

// EngineState is a consistent snapshot of the organism.
type EngineState struct {
	Tick           int64
	SimTime        float64
	Masses         OrganMasses
	LeafArea       float64
	RootFootprint  components.Footprint
	Water          components.PoolState
	Nutrient       components.PoolState
	Storage        components.PoolState
	LastInfeasible bool
}

// GrowthEngine owns organism state and runs the per-tick pipeline:
// bounds, constraints, solve, then an atomic state update.
type GrowthEngine struct {
	mu sync.Mutex

	world      *ecs.World
	organMap   *ecs.Map2[components.Organ, components.Footprint]
	organs     *ecs.Map1[components.Organ]
	footprints *ecs.Map1[components.Footprint]
	entities   [components.NumOrgans]ecs.Entity

	pools Pools
	model solver.Optimizer

	bounds      *BoundsCalculator
	constraints *ConstraintBuilder
	metabolism  *Metabolism
	updater     *StateUpdater
	footprint   *FootprintSystem

	simTime        float64
	tick           int64
	lastInfeasible bool

	perf PhaseTimer
}

// NewGrowthEngine creates an engine with organs and pools initialized from config.
func NewGrowthEngine(cfg *config.Config, water, nutrient environment.Availability, light environment.LightSource) *GrowthEngine {
	world := ecs.NewWorld()
	e := &GrowthEngine{
		world:      world,
		organMap:   ecs.NewMap2[components.Organ, components.Footprint](world),
		organs:     ecs.NewMap1[components.Organ](world),
		footprints: ecs.NewMap1[components.Footprint](world),

		pools: Pools{
			Water:    components.NewResourcePool(cfg.Pools.Water.Initial, cfg.Pools.Water.Capacity),
			Nutrient: components.NewResourcePool(cfg.Pools.Nutrient.Initial, cfg.Pools.Nutrient.Capacity),
			Storage:  components.NewResourcePool(cfg.Storage.Initial, cfg.Derived.StorageCapacity),
		},
		model: NewGrowthModel(),

		bounds:      NewBoundsCalculator(cfg, water, nutrient, light),
		constraints: NewConstraintBuilder(cfg),
		metabolism:  NewMetabolism(cfg),
		updater:     NewStateUpdater(cfg, water, nutrient),
	}
	e.footprint = NewFootprintSystem(world, cfg.Organs)

	initial := [components.NumOrgans]float64{
		cfg.Organs.LeafMass, cfg.Organs.StemMass, cfg.Organs.RootMass, cfg.Organs.SeedMass,
	}
	for i, s := range components.Organs {
		organ := components.Organ{Sink: s, Biomass: initial[i]}
		fp := components.Footprint{}
		e.entities[i] = e.organMap.NewEntity(&organ, &fp)
	}
	e.footprint.Update()

	return e
}

// SetPhaseTimer attaches a timer receiving tick phase boundaries.
func (e *GrowthEngine) SetPhaseTimer(t PhaseTimer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.perf = t
}

func (e *GrowthEngine) startPhase(phase string) {
	if e.perf != nil {
		e.perf.StartPhase(phase)
	}
}

// Tick advances the organism by one allocation. Infeasibility is reported,
// never fatal: growth is zero and state is left untouched. An active sink
// whose bound collapsed to zero makes the tick infeasible.
func (e *GrowthEngine) Tick(alloc components.GrowthAllocation) TickResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	dt := alloc.ElapsedTime
	res := TickResult{Elapsed: dt}
	if dt > 0 {
		e.tick++
	}
	res.Tick = e.tick

	masses := e.massesLocked()
	if dt <= 0 || masses.Total() <= 0 || !alloc.Percentages.AnyActive() {
		e.simTime += max(dt, 0)
		res.SimTime = e.simTime
		res.Skipped = true
		return res
	}

	e.startPhase(telemetry.PhaseBounds)
	leaf := e.footprints.Get(e.entities[components.SinkLeaf])
	root := *e.footprints.Get(e.entities[components.SinkRoot])
	res.Bounds = e.bounds.Compute(BoundsInput{
		Masses:        masses,
		LeafArea:      leaf.Area,
		RootFootprint: root,
		Water:         e.pools.Water.State(),
		Nutrient:      e.pools.Nutrient.State(),
		Storage:       e.pools.Storage.State(),
		Percentages:   alloc.Percentages,
		StomataOpen:   alloc.StomataOpen,
		SimTime:       e.simTime,
		Elapsed:       dt,
	})
	res.Bounds.Apply(e.model)

	e.startPhase(telemetry.PhaseConstraints)
	e.metabolism.Apply(e.model, masses)
	e.constraints.Apply(e.model, alloc.Percentages, masses)

	e.startPhase(telemetry.PhaseSolve)
	var sol solver.Solution
	var err error
	if s, collapsed := e.constraints.CollapsedSink(alloc.Percentages, masses, res.Bounds); collapsed {
		err = fmt.Errorf("%w: %s sink bound collapsed to zero", solver.ErrInfeasible, s)
	} else {
		sol, err = e.model.Solve()
	}
	if err != nil {
		e.simTime += dt
		res.SimTime = e.simTime
		if errors.Is(err, solver.ErrInfeasible) {
			e.lastInfeasible = true
			res.Infeasible = true
			slog.Warn("infeasible allocation, no growth this tick",
				"tick", e.tick, "elapsed", dt, "reason", err.Error())
			return res
		}
		res.Err = fmt.Errorf("solving tick %d: %w", e.tick, err)
		slog.Error("solver failed", "tick", e.tick, "error", err)
		return res
	}
	e.lastInfeasible = false
	res.Solution = sol

	e.startPhase(telemetry.PhaseApply)
	res.Delta = e.updater.Plan(sol, res.Bounds, masses, e.pools)
	var organs [components.NumOrgans]*components.Organ
	for i, ent := range e.entities {
		organs[i] = e.organs.Get(ent)
	}
	e.updater.Commit(res.Delta, organs, e.pools, root)
	e.footprint.Update()

	e.simTime += dt
	res.SimTime = e.simTime
	return res
}

// State returns a snapshot of the organism.
func (e *GrowthEngine) State() EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return EngineState{
		Tick:           e.tick,
		SimTime:        e.simTime,
		Masses:         e.massesLocked(),
		LeafArea:       e.footprints.Get(e.entities[components.SinkLeaf]).Area,
		RootFootprint:  *e.footprints.Get(e.entities[components.SinkRoot]),
		Water:          e.pools.Water.State(),
		Nutrient:       e.pools.Nutrient.State(),
		Storage:        e.pools.Storage.State(),
		LastInfeasible: e.lastInfeasible,
	}
}

// SimTime returns the simulated time the engine has advanced to.
func (e *GrowthEngine) SimTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.simTime
}

// SetPool overrides a pool's state.
func (e *GrowthEngine) SetPool(kind PoolKind, available, capacity float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.poolLocked(kind)
	p.SetCapacity(capacity)
	p.Drain(p.Available())
	p.Replenish(available)
}

// Pool returns a snapshot of one pool.
func (e *GrowthEngine) Pool(kind PoolKind) components.PoolState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.poolLocked(kind).State()
}

// SetOrganMass overrides an organ's biomass and refreshes footprints.
func (e *GrowthEngine) SetOrganMass(s components.Sink, mass float64) {
	if !s.IsOrgan() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.organs.Get(e.entities[s]).Biomass = max(mass, 0)
	e.footprint.Update()
}

func (e *GrowthEngine) poolLocked(kind PoolKind) *components.ResourcePool {
	switch kind {
	case PoolWater:
		return e.pools.Water
	case PoolNutrient:
		return e.pools.Nutrient
	default:
		return e.pools.Storage
	}
}

func (e *GrowthEngine) massesLocked() OrganMasses {
	var m OrganMasses
	for i, ent := range e.entities {
		m[i] = e.organs.Get(ent).Biomass
	}
	return m
}
