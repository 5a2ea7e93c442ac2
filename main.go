package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/pthm-cable/sprout/clock"
	"github.com/pthm-cable/sprout/config"
	"github.com/pthm-cable/sprout/game"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in simulated seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "Soil noise seed (0 = use config seeds)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	realtime := flag.Bool("realtime", false, "Pace ticks against the wall clock instead of running flat out")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	opts := game.Options{
		Seed:           *seed,
		LogStats:       *logStats,
		StatsWindowSec: *statsWindow,
		OutputDir:      *outputDir,
	}

	g := game.NewGameWithOptions(opts)
	defer g.Unload()

	clk := clock.New(cfg.Sim.TimeScale)
	realStep := cfg.Sim.TickInterval / cfg.Sim.TimeScale

	slog.Info("starting local simulation",
		"seed", *seed,
		"tick_interval", cfg.Sim.TickInterval,
		"time_scale", cfg.Sim.TimeScale,
		"max_ticks", *maxTicks,
	)

	var ticker *time.Ticker
	if *realtime {
		ticker = time.NewTicker(time.Duration(realStep * float64(time.Second)))
		defer ticker.Stop()
	}

	for g.Running() {
		if ticker != nil {
			<-ticker.C
		}
		if _, err := g.Step(clk.Advance(realStep)); err != nil {
			slog.Error("tick failed", "tick", g.Tick(), "error", err)
		}

		if *maxTicks > 0 && int(g.Tick()) >= *maxTicks {
			slog.Info("max ticks reached", "tick", g.Tick())
			return
		}
	}

	r := g.Report()
	slog.Info("simulation finished",
		"tick", r.Tick,
		"sim_time", r.SimTime,
		"reason", r.EndReason,
		"biomass", r.Masses.Total(),
	)
}
