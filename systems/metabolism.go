package systems

import (
	"github.com/pthm-cable/sprout/components"
	"github.com/pthm-cable/sprout/config"
	"github.com/pthm-cable/sprout/solver"
)

// Stoichiometry constraint keys.
const (
	KeyLight    = "stoich:light"
	KeyGas      = "stoich:gas"
	KeyWater    = "stoich:water"
	KeyNutrient = "stoich:nutrient"
	KeyCarbon   = "stoich:carbon"
)

// Metabolism couples the exchange channels to sink output through a single
// photosynthesis reaction. With G the biomass gain per reference mass,
//
//	light    = a_light * P
//	gas      = P
//	water    = a_water * P + w_bio * G
//	nutrient = n_bio * G
//	P + k * storage_out = G + k * storage_in
//
// where k is the biomass equivalent of one storage unit.
type Metabolism struct {
	cfg         config.MetabolismConfig
	massPerUnit float64
	maxRate     float64
}

// NewMetabolism creates the stoichiometric model.
func NewMetabolism(cfg *config.Config) *Metabolism {
	return &Metabolism{
		cfg:         cfg.Metabolism,
		massPerUnit: cfg.Storage.MassPerUnit,
		maxRate:     cfg.Stomata.OpenBound,
	}
}

// Apply installs the stoichiometry for the current organ masses.
// Coefficients depend on mass shares, so this runs every tick.
func (mt *Metabolism) Apply(m solver.Optimizer, masses OrganMasses) {
	M := masses.Total()
	if M <= 0 {
		return
	}

	growth := solver.Expr{}
	for _, s := range components.Organs {
		growth[SinkVariable(s)] = masses.Of(s) / M
	}

	m.SetBounds(VarPhotosynthesis, 0, mt.maxRate)

	m.AddConstraint(KeyLight, solver.Expr{
		VarLight:          1,
		VarPhotosynthesis: -mt.cfg.LightPerCarbon,
	}, 0, 0)

	m.AddConstraint(KeyGas, solver.Expr{
		VarGas:            1,
		VarPhotosynthesis: -1,
	}, 0, 0)

	water := solver.Expr{VarWater: 1, VarPhotosynthesis: -mt.cfg.WaterPerCarbon}
	for v, share := range growth {
		water[v] = -mt.cfg.WaterPerBiomass * share
	}
	m.AddConstraint(KeyWater, water, 0, 0)

	nutrient := solver.Expr{VarNutrient: 1}
	for v, share := range growth {
		nutrient[v] = -mt.cfg.NutrientPerBiomass * share
	}
	m.AddConstraint(KeyNutrient, nutrient, 0, 0)

	carbon := solver.Expr{
		VarPhotosynthesis: 1,
		VarStorageOut:     mt.massPerUnit,
		VarStorageIn:      -mt.massPerUnit,
	}
	for v, share := range growth {
		carbon[v] = -share
	}
	m.AddConstraint(KeyCarbon, carbon, 0, 0)
}
