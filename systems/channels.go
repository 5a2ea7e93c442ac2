package systems

import (
	"github.com/pthm-cable/sprout/components"
	"github.com/pthm-cable/sprout/solver"
)

// Exchange channels, sink outputs, and internal reactions of the growth model.
const (
	VarLight      solver.Variable = "light"
	VarWater      solver.Variable = "water"
	VarNutrient   solver.Variable = "nutrient"
	VarStorageIn  solver.Variable = "storage_in"
	VarStorageOut solver.Variable = "storage_out"
	VarGas        solver.Variable = "gas"

	VarLeaf solver.Variable = "leaf"
	VarStem solver.Variable = "stem"
	VarRoot solver.Variable = "root"
	VarSeed solver.Variable = "seed"

	// VarPhotosynthesis is carbon fixation, per reference mass. Not an exchange channel.
	VarPhotosynthesis solver.Variable = "photosynthesis"
)

// SinkVariable returns the output channel of a sink.
// The storage sink's output is the storage-in channel.
func SinkVariable(s components.Sink) solver.Variable {
	switch s {
	case components.SinkLeaf:
		return VarLeaf
	case components.SinkStem:
		return VarStem
	case components.SinkRoot:
		return VarRoot
	case components.SinkSeed:
		return VarSeed
	default:
		return VarStorageIn
	}
}

// OrganMasses holds organ biomass indexed like components.Organs.
type OrganMasses [components.NumOrgans]float64

// Of returns the mass of an organ sink, 0 for storage.
func (m OrganMasses) Of(s components.Sink) float64 {
	if !s.IsOrgan() {
		return 0
	}
	return m[s]
}

// Total returns the summed organ biomass, the reference mass for resource channels.
func (m OrganMasses) Total() float64 {
	var sum float64
	for _, v := range m {
		sum += v
	}
	return sum
}

// NewGrowthModel creates a solver model over every growth variable,
// maximizing the summed sink output.
func NewGrowthModel() *solver.Model {
	m := solver.NewModel(
		VarLight, VarWater, VarNutrient, VarStorageIn, VarStorageOut, VarGas,
		VarLeaf, VarStem, VarRoot, VarSeed,
		VarPhotosynthesis,
	)
	objective := solver.Expr{}
	for _, s := range components.Sinks {
		objective[SinkVariable(s)] = 1
	}
	m.Maximize(objective)
	return m
}
