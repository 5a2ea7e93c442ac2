package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/sprout/components"
	"github.com/pthm-cable/sprout/config"
)

// FootprintSystem recomputes organ footprints from biomass.
type FootprintSystem struct {
	filter *ecs.Filter2[components.Organ, components.Footprint]
	cfg    config.OrgansConfig
}

// NewFootprintSystem creates a new footprint system.
func NewFootprintSystem(w *ecs.World, cfg config.OrgansConfig) *FootprintSystem {
	return &FootprintSystem{
		filter: ecs.NewFilter2[components.Organ, components.Footprint](w),
		cfg:    cfg,
	}
}

// Update refreshes leaf area and root reach.
func (s *FootprintSystem) Update() {
	query := s.filter.Query()
	for query.Next() {
		organ, fp := query.Get()
		switch organ.Sink {
		case components.SinkLeaf:
			fp.Area = s.cfg.SpecificLeafArea * organ.Biomass
		case components.SinkRoot:
			fp.X = s.cfg.RootX
			fp.Y = s.cfg.RootY
			fp.Radius = s.cfg.RootRadiusBase + s.cfg.RootRadiusPerMass*organ.Biomass
		}
	}
}
