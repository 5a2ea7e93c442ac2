package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetricsRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.Ticks.WithLabelValues("solved").Inc()
	m.Ticks.WithLabelValues("solved").Inc()
	m.Biomass.WithLabelValues("leaf").Set(0.5)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	values := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				values[mf.GetName()] += metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				values[mf.GetName()] += metric.GetGauge().GetValue()
			}
		}
	}

	if got := values["sprout_ticks_total"]; got != 2 {
		t.Errorf("sprout_ticks_total = %v, want 2", got)
	}
	if got := values["sprout_organ_biomass"]; got != 0.5 {
		t.Errorf("sprout_organ_biomass = %v, want 0.5", got)
	}
}
