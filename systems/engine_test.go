package systems

import (
	"math"
	"testing"

	"github.com/pthm-cable/sprout/components"
	"github.com/pthm-cable/sprout/config"
	"github.com/pthm-cable/sprout/environment"
	"github.com/pthm-cable/sprout/solver"
)

func init() {
	config.MustInit("")
}

type testEnv struct {
	water    *environment.SoilField
	nutrient *environment.SoilField
	light    *environment.DayCycle
}

func newTestEngine(waterPerCell, nutrientPerCell float64) (*GrowthEngine, testEnv) {
	cfg := config.Cfg()
	env := testEnv{
		water:    environment.NewUniformSoilField(cfg.Soil.GridW, cfg.Soil.GridH, cfg.Soil.WorldW, cfg.Soil.WorldH, waterPerCell),
		nutrient: environment.NewUniformSoilField(cfg.Soil.GridW, cfg.Soil.GridH, cfg.Soil.WorldW, cfg.Soil.WorldH, nutrientPerCell),
		light:    environment.NewDayCycle(cfg.Light),
	}
	return NewGrowthEngine(cfg, env.water, env.nutrient, env.light), env
}

func approx(a, b, rel float64) bool {
	scale := math.Max(math.Abs(a), math.Abs(b))
	if scale == 0 {
		return true
	}
	return math.Abs(a-b) <= rel*scale
}

func checkPools(t *testing.T, st EngineState) {
	t.Helper()
	for name, p := range map[string]components.PoolState{
		"water": st.Water, "nutrient": st.Nutrient, "storage": st.Storage,
	} {
		if p.Available < 0 || p.Available > p.Capacity+1e-9 {
			t.Errorf("%s pool out of range: %+v", name, p)
		}
	}
}

func TestScenarioA_ProportionalGrowth(t *testing.T) {
	e, _ := newTestEngine(10, 2)
	e.SetPool(PoolWater, 500, 1000)
	e.SetPool(PoolNutrient, 200, 1000)
	before := e.State()

	res := e.Tick(components.GrowthAllocation{
		Percentages: components.Percentages{Leaf: 40, Stem: 20, Root: 40},
		ElapsedTime: 60,
		StomataOpen: true,
	})
	if res.Err != nil || res.Infeasible || res.Skipped {
		t.Fatalf("unexpected tick result: err=%v infeasible=%v skipped=%v", res.Err, res.Infeasible, res.Skipped)
	}

	after := e.State()
	var delta OrganMasses
	for i := range delta {
		delta[i] = after.Masses[i] - before.Masses[i]
	}

	if delta[components.SinkSeed] != 0 {
		t.Errorf("seed should not grow, got %g", delta[components.SinkSeed])
	}
	for _, s := range []components.Sink{components.SinkLeaf, components.SinkStem, components.SinkRoot} {
		if delta[s] <= 0 {
			t.Errorf("%s should grow, got %g", s, delta[s])
		}
	}

	// Absolute gains follow the shares: leaf/40 == stem/20 == root/40
	leaf := delta[components.SinkLeaf] / 40
	stem := delta[components.SinkStem] / 20
	root := delta[components.SinkRoot] / 40
	if !approx(leaf, stem, 1e-6) || !approx(leaf, root, 1e-6) {
		t.Errorf("gains not proportional: leaf=%g stem=%g root=%g", leaf, stem, root)
	}

	checkPools(t, after)
}

func TestScenarioB_StorageConsumption(t *testing.T) {
	e, _ := newTestEngine(10, 2)
	e.SetPool(PoolStorage, 100, 1000)

	// Closed stomata leave storage as the only carbon source
	res := e.Tick(components.GrowthAllocation{
		Percentages: components.Percentages{Leaf: 40, Stem: 20, Root: 40, Storage: -50},
		ElapsedTime: 60,
		StomataOpen: false,
	})
	if res.Err != nil || res.Infeasible || res.Skipped {
		t.Fatalf("unexpected tick result: %+v", res)
	}

	if res.Bounds.StorageOut.Lower != 0 || res.Bounds.StorageOut.Upper <= 0 {
		t.Errorf("storage-out bounds should be (0, >0), got %+v", res.Bounds.StorageOut)
	}
	if res.Bounds.StorageIn != (ChannelBounds{}) {
		t.Errorf("storage-in bounds should be (0,0), got %+v", res.Bounds.StorageIn)
	}
	if res.Delta.StorageOut <= 0 {
		t.Fatalf("expected storage consumption, got %g", res.Delta.StorageOut)
	}

	st := e.State()
	want := 100 - res.Delta.StorageOut
	if math.Abs(st.Storage.Available-want) > 1e-9 {
		t.Errorf("storage available = %g, want %g", st.Storage.Available, want)
	}
	if st.Masses.Total() <= config.Cfg().Derived.InitialBiomass {
		t.Error("consumed storage should turn into biomass")
	}
	checkPools(t, st)
}

func TestScenarioB_StorageConsumptionClampedAtZero(t *testing.T) {
	e, _ := newTestEngine(10, 2)
	e.SetPool(PoolStorage, 0.5, 1000)

	for i := 0; i < 20; i++ {
		e.Tick(components.GrowthAllocation{
			Percentages: components.Percentages{Leaf: 100, Storage: -100},
			ElapsedTime: 600,
		})
	}

	st := e.State()
	if st.Storage.Available < 0 {
		t.Errorf("storage went negative: %g", st.Storage.Available)
	}
	if st.Storage.Available > 1e-9 {
		t.Errorf("storage should be exhausted, got %g", st.Storage.Available)
	}
}

func TestScenarioC_AllZeroIsNoOp(t *testing.T) {
	e, env := newTestEngine(10, 2)
	before := e.State()
	waterBefore := env.water.Total()

	res := e.Tick(components.GrowthAllocation{ElapsedTime: 60, StomataOpen: true})
	if !res.Skipped {
		t.Error("expected tick to be skipped")
	}

	after := e.State()
	if after.Masses != before.Masses {
		t.Errorf("masses changed: %v -> %v", before.Masses, after.Masses)
	}
	if after.Water != before.Water || after.Nutrient != before.Nutrient || after.Storage != before.Storage {
		t.Error("pools changed on an all-zero allocation")
	}
	if env.water.Total() != waterBefore {
		t.Error("soil water drained on an all-zero allocation")
	}
}

func TestZeroElapsedIsIdempotent(t *testing.T) {
	e, _ := newTestEngine(10, 2)
	before := e.State()

	for i := 0; i < 3; i++ {
		res := e.Tick(components.GrowthAllocation{
			Percentages: components.Percentages{Leaf: 50, Root: 50},
			StomataOpen: true,
		})
		if !res.Skipped {
			t.Fatal("zero elapsed tick should be skipped")
		}
	}

	after := e.State()
	if after != before {
		t.Errorf("state changed on zero elapsed ticks:\n%+v\n%+v", before, after)
	}
}

func TestInactiveSinkExcluded(t *testing.T) {
	e, _ := newTestEngine(10, 2)
	before := e.State()

	res := e.Tick(components.GrowthAllocation{
		Percentages: components.Percentages{Leaf: 70, Root: 30},
		ElapsedTime: 120,
		StomataOpen: true,
	})
	if res.Err != nil || res.Skipped {
		t.Fatalf("unexpected tick result: %+v", res)
	}

	for _, v := range []solver.Variable{VarStem, VarSeed, VarStorageIn} {
		if got := res.Solution.Value(v); math.Abs(got) > 1e-12 {
			t.Errorf("%s flux = %g, want 0", v, got)
		}
	}
	after := e.State()
	if math.Abs(after.Masses[components.SinkStem]-before.Masses[components.SinkStem]) > 1e-12 {
		t.Error("stem grew with a zero share")
	}
	if math.Abs(after.Storage.Available-before.Storage.Available) > 1e-9 {
		t.Error("storage changed with a zero share")
	}
}

func TestStorageSinkProportional(t *testing.T) {
	e, _ := newTestEngine(10, 2)
	before := e.State()

	res := e.Tick(components.GrowthAllocation{
		Percentages: components.Percentages{Leaf: 50, Storage: 50},
		ElapsedTime: 60,
		StomataOpen: true,
	})
	if res.Err != nil || res.Skipped || res.Infeasible {
		t.Fatalf("unexpected tick result: %+v", res)
	}

	leafGain := e.State().Masses[components.SinkLeaf] - before.Masses[components.SinkLeaf]
	storageGain := res.Delta.StorageIn * config.Cfg().Storage.MassPerUnit
	if leafGain <= 0 || storageGain <= 0 {
		t.Fatalf("expected both sinks to gain, leaf=%g storage=%g", leafGain, storageGain)
	}
	if !approx(leafGain, storageGain, 1e-6) {
		t.Errorf("equal shares should give equal gains: leaf=%g storage=%g", leafGain, storageGain)
	}
}

func TestDroughtKeepsPoolsInRange(t *testing.T) {
	e, _ := newTestEngine(0, 0)
	e.SetPool(PoolWater, 0.01, 100)
	e.SetPool(PoolNutrient, 0, 100)

	for i := 0; i < 10; i++ {
		res := e.Tick(components.GrowthAllocation{
			Percentages: components.Percentages{Leaf: 50, Root: 50},
			ElapsedTime: 600,
			StomataOpen: true,
		})
		if res.Err != nil {
			t.Fatalf("tick %d: %v", i, res.Err)
		}
		checkPools(t, e.State())
	}

	// No nutrient anywhere means no new biomass
	if got := e.State().Masses.Total(); !approx(got, config.Cfg().Derived.InitialBiomass, 1e-9) {
		t.Errorf("biomass changed without nutrient: %g", got)
	}
}

type infeasibleOptimizer struct {
	solver.Optimizer
}

func (infeasibleOptimizer) Solve() (solver.Solution, error) {
	return solver.Solution{}, solver.ErrInfeasible
}

func TestInfeasibleTickIsReported(t *testing.T) {
	e, _ := newTestEngine(10, 2)
	e.model = infeasibleOptimizer{Optimizer: e.model}
	before := e.State()

	res := e.Tick(components.GrowthAllocation{
		Percentages: components.Percentages{Leaf: 100},
		ElapsedTime: 60,
		StomataOpen: true,
	})
	if !res.Infeasible {
		t.Fatal("expected infeasible tick")
	}
	if res.Err != nil {
		t.Errorf("infeasibility should not be an error, got %v", res.Err)
	}

	after := e.State()
	if after.Masses != before.Masses {
		t.Error("infeasible tick changed biomass")
	}
	if !after.LastInfeasible {
		t.Error("state should record the infeasible tick")
	}
	if after.SimTime != before.SimTime+60 {
		t.Errorf("sim time should still advance, got %g", after.SimTime)
	}
}

func TestFullStorageTargetIsInfeasible(t *testing.T) {
	e, _ := newTestEngine(10, 2)
	capacity := e.Pool(PoolStorage).Capacity
	e.SetPool(PoolStorage, capacity, capacity)
	before := e.State()

	res := e.Tick(components.GrowthAllocation{
		Percentages: components.Percentages{Leaf: 40, Stem: 20, Root: 20, Seed: 10, Storage: 10},
		ElapsedTime: 60,
		StomataOpen: true,
	})
	if res.Bounds.StorageIn.Upper != 0 {
		t.Fatalf("expected collapsed storage bound, got %+v", res.Bounds.StorageIn)
	}
	if !res.Infeasible || res.Skipped {
		t.Fatalf("expected infeasible tick, got infeasible=%v skipped=%v", res.Infeasible, res.Skipped)
	}
	if res.Err != nil {
		t.Errorf("infeasibility should not be an error, got %v", res.Err)
	}

	after := e.State()
	if after.Masses != before.Masses {
		t.Errorf("infeasible tick changed biomass: %v -> %v", before.Masses, after.Masses)
	}
	if after.Storage != before.Storage {
		t.Errorf("infeasible tick changed storage: %+v -> %+v", before.Storage, after.Storage)
	}
	if !after.LastInfeasible {
		t.Error("state should record the infeasible tick")
	}

	// Making room in storage clears it
	e.SetPool(PoolStorage, 0, capacity)
	res = e.Tick(components.GrowthAllocation{
		Percentages: components.Percentages{Leaf: 40, Stem: 20, Root: 20, Seed: 10, Storage: 10},
		ElapsedTime: 60,
		StomataOpen: true,
	})
	if res.Infeasible {
		t.Error("tick with free storage capacity should be feasible")
	}
	if e.State().LastInfeasible {
		t.Error("feasible tick should clear the infeasible flag")
	}
}

func TestMasslessActiveOrganIsInfeasible(t *testing.T) {
	e, _ := newTestEngine(10, 2)
	e.SetOrganMass(components.SinkSeed, 0)
	before := e.State()

	res := e.Tick(components.GrowthAllocation{
		Percentages: components.Percentages{Leaf: 40, Root: 40, Seed: 20},
		ElapsedTime: 60,
		StomataOpen: true,
	})
	if !res.Infeasible {
		t.Fatal("expected infeasible tick with a massless active organ")
	}
	if after := e.State(); after.Masses != before.Masses {
		t.Errorf("infeasible tick changed biomass: %v -> %v", before.Masses, after.Masses)
	}

	// The same organ with a zero share is simply inactive
	res = e.Tick(components.GrowthAllocation{
		Percentages: components.Percentages{Leaf: 50, Root: 50},
		ElapsedTime: 60,
		StomataOpen: true,
	})
	if res.Infeasible || res.Skipped {
		t.Errorf("expected a solved tick, got infeasible=%v skipped=%v", res.Infeasible, res.Skipped)
	}
}

type recordingTimer struct {
	phases []string
}

func (r *recordingTimer) StartPhase(p string) { r.phases = append(r.phases, p) }

func TestPhaseTimerSeesEveryPhase(t *testing.T) {
	e, _ := newTestEngine(10, 2)
	timer := &recordingTimer{}
	e.SetPhaseTimer(timer)

	e.Tick(components.GrowthAllocation{
		Percentages: components.Percentages{Leaf: 100},
		ElapsedTime: 60,
		StomataOpen: true,
	})
	if len(timer.phases) != 4 {
		t.Errorf("expected 4 phases, got %v", timer.phases)
	}
}
