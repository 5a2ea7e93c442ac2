package systems

import (
	"github.com/pthm-cable/sprout/components"
	"github.com/pthm-cable/sprout/config"
	"github.com/pthm-cable/sprout/solver"
)

// PairKey returns the constraint key for a sink pair, independent of argument order.
func PairKey(a, b components.Sink) string {
	if b < a {
		a, b = b, a
	}
	return "prop:" + a.String() + ":" + b.String()
}

// ConstraintBuilder translates allocation percentages into sink bounds and
// pairwise proportionality constraints.
//
// For active sinks i and j it requires
//
//	flux_i * mass_i / pct_i == flux_j * mass_j / pct_j
//
// so each sink's absolute gain is proportional to its share. Relative gains
// (delta_i/mass_i)/pct_i therefore differ between organs of unequal mass. The storage
// sink's flux is in storage units per reference mass, so its mass term is the
// reference mass times the biomass equivalent of one storage unit.
type ConstraintBuilder struct {
	sinkBound   float64
	massPerUnit float64
}

// NewConstraintBuilder creates a constraint builder.
func NewConstraintBuilder(cfg *config.Config) *ConstraintBuilder {
	return &ConstraintBuilder{
		sinkBound:   cfg.Metabolism.SinkBound,
		massPerUnit: cfg.Storage.MassPerUnit,
	}
}

// SinkMass returns the mass term used for a sink in proportionality constraints.
func (b *ConstraintBuilder) SinkMass(s components.Sink, masses OrganMasses) float64 {
	if s == components.SinkStorage {
		return masses.Total() * b.massPerUnit
	}
	return masses.Of(s)
}

// Apply removes last tick's proportionality constraints and installs this tick's.
// Storage-in bounds for an active storage sink are left as the bounds calculator set them.
func (b *ConstraintBuilder) Apply(m solver.Optimizer, p components.Percentages, masses OrganMasses) {
	for i, si := range components.Sinks {
		for _, sj := range components.Sinks[i+1:] {
			m.RemoveConstraint(PairKey(si, sj))
		}
	}

	var active []components.Sink
	for _, s := range components.Sinks {
		v := SinkVariable(s)
		switch {
		case !p.Active(s):
			m.SetBounds(v, 0, 0)
		case s.IsOrgan():
			m.SetBounds(v, 0, b.sinkBound)
			active = append(active, s)
		default:
			active = append(active, s)
		}
	}

	for i, si := range active {
		for _, sj := range active[i+1:] {
			m.AddConstraint(PairKey(si, sj), solver.Expr{
				SinkVariable(si): b.SinkMass(si, masses) / p.Of(si),
				SinkVariable(sj): -b.SinkMass(sj, masses) / p.Of(sj),
			}, 0, 0)
		}
	}
}

// CollapsedSink returns the first active sink that cannot grow this tick: an
// organ with no biomass, or a storage target with no free capacity. The
// proportionality constraints would pin every other sink to zero with it, so
// such a tick is infeasible rather than a silent zero-growth tick.
func (b *ConstraintBuilder) CollapsedSink(p components.Percentages, masses OrganMasses, tb TickBounds) (components.Sink, bool) {
	for _, s := range components.Sinks {
		if !p.Active(s) {
			continue
		}
		if b.SinkMass(s, masses) <= 0 {
			return s, true
		}
		if s == components.SinkStorage && tb.StorageIn.Upper <= 0 {
			return s, true
		}
	}
	return 0, false
}
