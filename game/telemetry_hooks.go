package game

import (
	"log/slog"

	"github.com/pthm-cable/sprout/components"
	"github.com/pthm-cable/sprout/systems"
	"github.com/pthm-cable/sprout/telemetry"
)

// recordTick feeds one engine tick to the collector and ticks.csv, then
// flushes the stats window when due.
func (g *Game) recordTick(res systems.TickResult) {
	st := g.engine.State()
	d := res.Delta

	rec := telemetry.TickRecord{
		Tick:       res.Tick,
		SimTime:    res.SimTime,
		Elapsed:    res.Elapsed,
		Skipped:    res.Skipped,
		Infeasible: res.Infeasible,

		LeafDelta: d.Biomass[components.SinkLeaf],
		StemDelta: d.Biomass[components.SinkStem],
		RootDelta: d.Biomass[components.SinkRoot],
		SeedDelta: d.Biomass[components.SinkSeed],

		StorageIn:     d.StorageIn,
		StorageOut:    d.StorageOut,
		WaterUsed:     d.Water.Used,
		WaterUnmet:    d.Water.Unmet,
		NutrientUsed:  d.Nutrient.Used,
		NutrientUnmet: d.Nutrient.Unmet,

		Biomass:  st.Masses.Total(),
		Water:    st.Water.Available,
		Nutrient: st.Nutrient.Available,
		Storage:  st.Storage.Available,

		LightFlux:      res.Solution.Value(systems.VarLight),
		Photosynthesis: res.Solution.Value(systems.VarPhotosynthesis),
	}

	g.collector.RecordTick(rec)
	if g.outputManager != nil {
		if err := g.outputManager.WriteTick(rec); err != nil {
			slog.Error("failed to write tick", "error", err)
		}
	}

	if g.collector.ShouldFlush(st.SimTime) {
		g.flushTelemetry(st)
	}
}

// flushTelemetry closes the current stats window.
func (g *Game) flushTelemetry(st systems.EngineState) {
	stats := g.collector.Flush(st.Tick, st.SimTime, telemetry.OrganismState{
		Biomass:      st.Masses.Total(),
		SeedMass:     st.Masses[components.SinkSeed],
		WaterFill:    st.Water.Fill(),
		NutrientFill: st.Nutrient.Fill(),
		StorageFill:  st.Storage.Fill(),
		SoilWater:    g.water.Total(),
		SoilNutrient: g.nutrient.Total(),
	})
	perfStats := g.perfCollector.Stats()

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if g.outputManager != nil {
		if err := g.outputManager.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}
}
