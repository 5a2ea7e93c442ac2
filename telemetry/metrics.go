package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes authority-side growth counters to Prometheus.
type Metrics struct {
	Ticks        *prometheus.CounterVec
	Rejected     prometheus.Counter
	TickDuration prometheus.Histogram
	Biomass      *prometheus.GaugeVec
	PoolFill     *prometheus.GaugeVec
	SimTime      prometheus.Gauge
}

// NewMetrics registers growth metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Ticks counts engine ticks by outcome (solved, skipped, infeasible, error)
		Ticks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sprout_ticks_total",
			Help: "Engine ticks by outcome",
		}, []string{"outcome"}),

		Rejected: f.NewCounter(prometheus.CounterOpts{
			Name: "sprout_requests_rejected_total",
			Help: "Allocation requests rejected at validation",
		}),

		TickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sprout_tick_duration_seconds",
			Help:    "Wall time to serve one allocation request",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms to ~400ms
		}),

		Biomass: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sprout_organ_biomass",
			Help: "Current organ biomass",
		}, []string{"organ"}),

		PoolFill: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sprout_pool_fill_ratio",
			Help: "Pool available/capacity",
		}, []string{"pool"}),

		SimTime: f.NewGauge(prometheus.GaugeOpts{
			Name: "sprout_sim_time_seconds",
			Help: "Simulated time of the session",
		}),
	}
}
