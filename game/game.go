// Package game runs a growth session: the engine, the soil grids it draws
// from, the day cycle, player actions, and session telemetry.
package game

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/pthm-cable/sprout/components"
	"github.com/pthm-cable/sprout/config"
	"github.com/pthm-cable/sprout/environment"
	"github.com/pthm-cable/sprout/systems"
	"github.com/pthm-cable/sprout/telemetry"
)

// Game holds the complete state of one growth session.
type Game struct {
	mu  sync.Mutex
	cfg *config.Config

	engine   *systems.GrowthEngine
	water    *environment.SoilField
	nutrient *environment.SoilField
	light    *environment.DayCycle

	// State
	running    bool
	endReason  string
	infeasible bool

	// Telemetry
	perfCollector *telemetry.PerfCollector
	collector     *telemetry.Collector
	outputManager *telemetry.OutputManager
	logStats      bool
	statsCallback func(telemetry.WindowStats)
}

// NewGameWithOptions creates a session from the global config.
func NewGameWithOptions(opts Options) *Game {
	cfg := config.Cfg()

	soil := cfg.Soil
	if opts.Seed != 0 {
		soil.Water.Seed = uint32(opts.Seed)
		soil.Nutrient.Seed = uint32(opts.Seed) + 1
	}
	water := environment.NewSoilField(soil, soil.Water)
	nutrient := environment.NewSoilField(soil, soil.Nutrient)
	light := environment.NewDayCycle(cfg.Light)

	statsWindow := cfg.Telemetry.StatsWindow
	if opts.StatsWindowSec > 0 {
		statsWindow = opts.StatsWindowSec
	}

	g := &Game{
		cfg:           cfg,
		engine:        systems.NewGrowthEngine(cfg, water, nutrient, light),
		water:         water,
		nutrient:      nutrient,
		light:         light,
		running:       true,
		perfCollector: telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		collector:     telemetry.NewCollector(statsWindow),
		logStats:      opts.LogStats,
	}
	g.engine.SetPhaseTimer(g.perfCollector)

	if opts.OutputDir != "" {
		om, err := telemetry.NewOutputManager(opts.OutputDir)
		if err != nil {
			slog.Error("failed to create output manager", "error", err)
		} else {
			g.outputManager = om
			if err := om.WriteConfig(cfg); err != nil {
				slog.Error("failed to write config", "error", err)
			}
		}
	}

	return g
}

// SetStatsCallback registers a function called with each flushed stats window.
func (g *Game) SetStatsCallback(fn func(telemetry.WindowStats)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statsCallback = fn
}

// Advance applies queued spatial actions, steps the soil and runs one engine
// tick. Invalid input is rejected before anything changes. Once the session
// has ended, Advance reports the final state without ticking.
func (g *Game) Advance(alloc components.GrowthAllocation, actions []components.SpatialAction) (Report, error) {
	if err := alloc.Validate(); err != nil {
		return Report{}, err
	}
	for i, a := range actions {
		if err := a.Validate(); err != nil {
			return Report{}, fmt.Errorf("spatial action %d: %w", i, err)
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.running {
		return g.reportLocked(), nil
	}

	g.perfCollector.StartTick()

	g.perfCollector.StartPhase(telemetry.PhaseSoil)
	for _, a := range actions {
		g.applyAction(a)
	}
	if alloc.ElapsedTime > 0 {
		g.water.Step(alloc.ElapsedTime)
		g.nutrient.Step(alloc.ElapsedTime)
	}

	res := g.engine.Tick(alloc)
	g.infeasible = res.Infeasible

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.recordTick(res)
	g.perfCollector.EndTick()

	g.checkSessionEnd()

	return g.reportLocked(), res.Err
}

// Step advances the session by one tick interval using the configured
// allocation. Used when no player input is wired.
func (g *Game) Step(elapsed float64) (Report, error) {
	return g.Advance(components.GrowthAllocation{
		Percentages: ConfiguredPercentages(g.cfg),
		ElapsedTime: elapsed,
		StomataOpen: g.cfg.Sim.StomataOpen,
	}, nil)
}

// ConfiguredPercentages returns the allocation set in sim.percentages.
func ConfiguredPercentages(cfg *config.Config) components.Percentages {
	p := cfg.Sim.Percentages
	return components.Percentages{Leaf: p.Leaf, Stem: p.Stem, Root: p.Root, Seed: p.Seed, Storage: p.Storage}
}

// applyAction adds a player's water or fertilizer to the soil.
func (g *Game) applyAction(a components.SpatialAction) {
	fp := components.Footprint{X: a.X, Y: a.Y, Radius: a.Radius}
	switch a.Resource {
	case components.ResourceWater:
		g.water.Replenish(a.Amount, fp)
	case components.ResourceNutrient:
		g.nutrient.Replenish(a.Amount, fp)
	}
	slog.Debug("spatial action applied", "resource", a.Resource, "x", a.X, "y", a.Y, "amount", a.Amount)
}

// checkSessionEnd stops the session once it ran out of time or reached its seed goal.
func (g *Game) checkSessionEnd() {
	st := g.engine.State()
	switch {
	case g.cfg.Sim.SessionLength > 0 && st.SimTime >= g.cfg.Sim.SessionLength:
		g.endReason = EndSessionLength
	case g.cfg.Sim.SeedGoal > 0 && st.Masses[components.SinkSeed] >= g.cfg.Sim.SeedGoal:
		g.endReason = EndSeedGoal
	default:
		return
	}
	g.running = false
	slog.Info("session ended",
		"reason", g.endReason,
		"tick", st.Tick,
		"sim_time", st.SimTime,
		"seed_mass", st.Masses[components.SinkSeed],
	)
}

// Report returns the current session state.
func (g *Game) Report() Report {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reportLocked()
}

func (g *Game) reportLocked() Report {
	st := g.engine.State()
	return Report{
		Tick:     st.Tick,
		SimTime:  st.SimTime,
		Masses:   st.Masses,
		Water:    st.Water,
		Nutrient: st.Nutrient,
		Storage:  st.Storage,
		Environment: environment.Snapshot{
			Water:      g.water.Total(),
			Nutrient:   g.nutrient.Total(),
			Irradiance: g.light.Irradiance(st.SimTime),
			TimeOfDay:  g.light.HourAt(st.SimTime),
		},
		Infeasible: g.infeasible,
		Running:    g.running,
		EndReason:  g.endReason,
	}
}

// Tick returns the current engine tick.
func (g *Game) Tick() int64 {
	return g.engine.State().Tick
}

// Running reports whether the session is still active.
func (g *Game) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// Engine returns the growth engine.
func (g *Game) Engine() *systems.GrowthEngine {
	return g.engine
}

// Unload flushes and closes session output.
func (g *Game) Unload() {
	if g.outputManager != nil {
		if err := g.outputManager.Close(); err != nil {
			slog.Error("failed to close output", "error", err)
		}
	}
}
