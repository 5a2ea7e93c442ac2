package game

// Options configures a growth session.
type Options struct {
	Seed           int64   // Soil noise seed override (0 = use config seeds)
	LogStats       bool    // Log window stats via slog
	StatsWindowSec float64 // Stats window in simulated seconds (0 = use config)
	OutputDir      string  // Directory for CSV logs and config snapshot (empty = disabled)
}
