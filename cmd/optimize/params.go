// Package main provides CMA-ES optimization of allocation strategies.
package main

import (
	"github.com/pthm-cable/sprout/components"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of strategy parameters: organ
// weights for a vegetative and a reproductive phase, and when to switch.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Vegetative phase (organ weights are normalized to 100)
			{Name: "veg_leaf", Min: 0, Max: 1, Default: 0.4},
			{Name: "veg_stem", Min: 0, Max: 1, Default: 0.2},
			{Name: "veg_root", Min: 0, Max: 1, Default: 0.4},
			{Name: "veg_storage", Min: 0, Max: 100, Default: 0},
			// Reproductive phase
			{Name: "rep_leaf", Min: 0, Max: 1, Default: 0.1},
			{Name: "rep_root", Min: 0, Max: 1, Default: 0.1},
			{Name: "rep_seed", Min: 0, Max: 1, Default: 0.8},
			{Name: "rep_storage", Min: -100, Max: 0, Default: -50},
			// Fraction of the session spent vegetative
			{Name: "switch_frac", Min: 0.05, Max: 0.95, Default: 0.6},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// Strategy is a two-phase allocation schedule.
type Strategy struct {
	Vegetative   components.Percentages `yaml:"vegetative"`
	Reproductive components.Percentages `yaml:"reproductive"`
	SwitchFrac   float64                `yaml:"switch_frac"`
}

// At returns the allocation for a point in the session, as a fraction of its length.
func (s Strategy) At(frac float64) components.Percentages {
	if frac < s.SwitchFrac {
		return s.Vegetative
	}
	return s.Reproductive
}

// ToStrategy converts parameter values to a strategy. Organ weights are
// normalized so organ percentages sum to 100.
func (pv *ParamVector) ToStrategy(values []float64) Strategy {
	c := pv.Clamp(values)
	i := 0

	var s Strategy
	leaf, stem, root := c[i], c[i+1], c[i+2]
	i += 3
	s.Vegetative = normalize(leaf, stem, root, 0)
	s.Vegetative.Storage = c[i]
	i++

	leaf, root, seed := c[i], c[i+1], c[i+2]
	i += 3
	s.Reproductive = normalize(leaf, 0, root, seed)
	s.Reproductive.Storage = c[i]
	i++

	s.SwitchFrac = c[i]
	return s
}

func normalize(leaf, stem, root, seed float64) components.Percentages {
	sum := leaf + stem + root + seed
	if sum <= 0 {
		return components.Percentages{}
	}
	k := 100 / sum
	return components.Percentages{Leaf: leaf * k, Stem: stem * k, Root: root * k, Seed: seed * k}
}
