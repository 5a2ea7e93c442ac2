package systems

import (
	"math"
	"testing"

	"github.com/pthm-cable/sprout/components"
)

func TestSettle(t *testing.T) {
	tests := []struct {
		name string
		used float64
		env  float64
		pool components.PoolState
		want Settlement
	}{
		{
			name: "soil covers all, surplus tops up",
			used: 5, env: 8,
			pool: components.PoolState{Available: 10, Capacity: 12},
			want: Settlement{Used: 5, FromEnv: 5, TopUp: 2},
		},
		{
			name: "pool covers shortfall",
			used: 10, env: 4,
			pool: components.PoolState{Available: 10, Capacity: 20},
			want: Settlement{Used: 10, FromEnv: 4, FromPool: 6},
		},
		{
			name: "unmet demand",
			used: 10, env: 2,
			pool: components.PoolState{Available: 3, Capacity: 20},
			want: Settlement{Used: 10, FromEnv: 2, FromPool: 3, Unmet: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := settle(tt.used, tt.env, tt.pool); got != tt.want {
				t.Errorf("settle() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

type recordingSoil struct {
	avail   float64
	drained float64
}

func (r *recordingSoil) AvailableAbsolute(components.Footprint) float64 { return r.avail }
func (r *recordingSoil) Drain(amount float64, _ components.Footprint)   { r.drained += amount }

func TestStateUpdaterCommit(t *testing.T) {
	water := &recordingSoil{avail: 100}
	nutrient := &recordingSoil{avail: 100}
	u := &StateUpdater{water: water, nutrient: nutrient, capacityPerBiomass: 10}

	organs := [components.NumOrgans]*components.Organ{
		{Sink: components.SinkLeaf, Biomass: 1},
		{Sink: components.SinkStem, Biomass: 1},
		{Sink: components.SinkRoot, Biomass: 1},
		{Sink: components.SinkSeed, Biomass: 1},
	}
	pools := Pools{
		Water:    components.NewResourcePool(5, 10),
		Nutrient: components.NewResourcePool(5, 10),
		Storage:  components.NewResourcePool(5, 40),
	}

	d := TickDelta{
		Biomass:         OrganMasses{0.1, 0.2, 0, -5},
		Water:           Settlement{Used: 3, FromEnv: 1, FromPool: 2},
		Nutrient:        Settlement{Used: 1, FromEnv: 1, TopUp: 4},
		StorageIn:       0,
		StorageOut:      8,
		StorageCapacity: 43,
	}
	u.Commit(d, organs, pools, components.Footprint{})

	if math.Abs(organs[0].Biomass-1.1) > 1e-12 || math.Abs(organs[1].Biomass-1.2) > 1e-12 {
		t.Errorf("organ biomass not applied: %g %g", organs[0].Biomass, organs[1].Biomass)
	}
	if organs[3].Biomass != 0 {
		t.Errorf("biomass should clamp at 0, got %g", organs[3].Biomass)
	}
	if pools.Water.Available() != 3 {
		t.Errorf("water pool = %g, want 3", pools.Water.Available())
	}
	if pools.Nutrient.Available() != 9 {
		t.Errorf("nutrient pool = %g, want 9", pools.Nutrient.Available())
	}
	if water.drained != 1 || nutrient.drained != 5 {
		t.Errorf("soil drained water=%g nutrient=%g", water.drained, nutrient.drained)
	}
	if pools.Storage.Available() != 0 || pools.Storage.Capacity() != 43 {
		t.Errorf("storage = %+v, want drained to 0 with capacity 43", pools.Storage.State())
	}
}
