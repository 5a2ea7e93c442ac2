package main

import (
	"log/slog"
	"math"
	"sync"

	"github.com/pthm-cable/sprout/components"
	"github.com/pthm-cable/sprout/config"
	"github.com/pthm-cable/sprout/game"
)

// FitnessEvaluator runs headless sessions and scores a strategy.
type FitnessEvaluator struct {
	params   *ParamVector
	duration float64 // Simulated seconds per session
	seeds    []int64
	cfg      *config.Config

	mu          sync.Mutex
	bestFitness float64
	lastYield   float64 // mean seed mass from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, duration float64, seeds []int64, cfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		duration:    duration,
		seeds:       seeds,
		cfg:         cfg,
		bestFitness: math.Inf(1),
	}
}

// LastYield returns the mean seed mass from the most recent evaluation.
func (fe *FitnessEvaluator) LastYield() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastYield
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is the negative mean final seed mass across soil seeds.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	strategy := fe.params.ToStrategy(x)

	// Run all seeds in parallel
	yields := make([]float64, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			yields[idx] = fe.runSession(strategy, s)
		}(i, seed)
	}
	wg.Wait()

	var total float64
	for _, y := range yields {
		total += y
	}
	mean := total / float64(len(yields))
	fitness := -mean

	fe.mu.Lock()
	fe.lastYield = mean
	if fitness < fe.bestFitness {
		fe.bestFitness = fitness
	}
	fe.mu.Unlock()

	return fitness
}

// runSession plays one session with the strategy and returns the final seed mass.
func (fe *FitnessEvaluator) runSession(s Strategy, seed int64) float64 {
	g := game.NewGameWithOptions(game.Options{Seed: seed})
	defer g.Unload()

	dt := fe.cfg.Sim.TickInterval
	for t := 0.0; t < fe.duration; t += dt {
		rep, err := g.Advance(components.GrowthAllocation{
			Percentages: s.At(t / fe.duration),
			ElapsedTime: dt,
			StomataOpen: true,
		}, nil)
		if err != nil {
			slog.Warn("session failed", "seed", seed, "error", err)
			return 0
		}
		if !rep.Running {
			break
		}
	}
	return g.Report().Masses[components.SinkSeed]
}
