// Package main runs the authoritative growth session behind a websocket endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pthm-cable/sprout/config"
	"github.com/pthm-cable/sprout/game"
	"github.com/pthm-cable/sprout/netsync"
	"github.com/pthm-cable/sprout/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	addr := flag.String("addr", "", "Listen address (empty = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "Soil noise seed (0 = use config seeds)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	listen := cfg.Sync.Addr
	if *addr != "" {
		listen = *addr
	}

	g := game.NewGameWithOptions(game.Options{
		Seed:      *seed,
		LogStats:  *logStats,
		OutputDir: *outputDir,
	})
	defer g.Unload()

	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	srv := netsync.NewServer(g, cfg.Sync, metrics)

	mux := http.NewServeMux()
	mux.Handle(cfg.Sync.Path, srv.Handler())
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	httpServer := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("authority listening", "addr", listen, "path", cfg.Sync.Path, "protocol", netsync.Version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}

	r := g.Report()
	slog.Info("authority stopped", "tick", r.Tick, "sim_time", r.SimTime, "running", r.Running)
}
