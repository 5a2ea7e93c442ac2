// Package main runs the local grower: a frame loop that advances the
// simulation clock and syncs allocations with a remote authority.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/sprout/clock"
	"github.com/pthm-cable/sprout/config"
	"github.com/pthm-cable/sprout/game"
	"github.com/pthm-cable/sprout/netsync"
	"github.com/pthm-cable/sprout/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	url := flag.String("url", "", "Authority websocket URL (empty = ws://<sync.addr><sync.path>)")
	outputDir := flag.String("output-dir", "", "Output directory for sync.csv")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	fps := flag.Int("fps", 60, "Local frame rate")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	target := *url
	if target == "" {
		target = "ws://" + hostAddr(cfg.Sync.Addr) + cfg.Sync.Path
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	transport, err := netsync.Dial(dialCtx, target, time.Duration(cfg.Sync.WriteTimeout*float64(time.Second)))
	cancel()
	if err != nil {
		slog.Error("failed to connect", "url", target, "error", err)
		os.Exit(1)
	}
	defer transport.Close()

	var om *telemetry.OutputManager
	if *outputDir != "" {
		om, err = telemetry.NewOutputManager(*outputDir)
		if err != nil {
			slog.Error("failed to create output manager", "error", err)
			os.Exit(1)
		}
		defer om.Close()
		if err := om.WriteConfig(cfg); err != nil {
			slog.Error("failed to write config", "error", err)
		}
	}

	clk := clock.New(cfg.Sim.TimeScale)
	client := netsync.NewClient(cfg.Sync, transport, clk)
	collector := telemetry.NewCollector(cfg.Telemetry.StatsWindow)

	client.OnRoundTrip(func(rt netsync.RoundTrip) {
		rec := telemetry.SyncRecord{
			Seq:       rt.Seq,
			ID:        rt.ID,
			SimTime:   clk.Now(),
			Elapsed:   rt.Elapsed,
			LatencyMS: float64(rt.Latency) / float64(time.Millisecond),
			Pauses:    rt.Pauses,
			Running:   rt.Running,
		}
		collector.RecordRoundTrip(rec)
		if err := om.WriteSync(rec); err != nil {
			slog.Error("failed to write sync record", "error", err)
		}
	})
	client.OnPause(collector.RecordPause)

	in := netsync.Input{
		Percentages: game.ConfiguredPercentages(cfg),
		StomataOpen: cfg.Sim.StomataOpen,
	}

	slog.Info("grower connected", "url", target, "time_scale", clk.Scale(), "fps", *fps)

	frame := time.Second / time.Duration(max(*fps, 1))
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			slog.Info("grower interrupted", "sim_time", clk.Now())
			return
		case now := <-ticker.C:
			realDt := now.Sub(last).Seconds()
			last = now

			err := client.Update(realDt, in)
			switch {
			case errors.Is(err, netsync.ErrSessionEnded):
				d := client.Display()
				slog.Info("session ended", "tick", d.Tick, "sim_time", d.SimTime, "seed_mass", d.OrganMasses.Seed)
				return
			case errors.Is(err, netsync.ErrAborted):
				slog.Error("sync aborted", "sim_time", clk.Now())
				os.Exit(1)
			case err != nil:
				slog.Error("sync failed", "error", err)
				os.Exit(1)
			}

			if collector.ShouldFlush(clk.Now()) {
				d := client.Display()
				st := collector.Flush(d.Tick, clk.Now(), telemetry.OrganismState{
					Biomass:      d.OrganMasses.Total(),
					SeedMass:     d.OrganMasses.Seed,
					WaterFill:    d.Pools.Water.Fill(),
					NutrientFill: d.Pools.Nutrient.Fill(),
					StorageFill:  d.Pools.Storage.Fill(),
				})
				if *logStats {
					st.LogStats()
				}
				if err := om.WriteTelemetry(st); err != nil {
					slog.Error("failed to write telemetry", "error", err)
				}
			}
		}
	}
}

// hostAddr turns a listen address like ":8080" into a dialable one.
func hostAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
