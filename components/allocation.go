package components

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidAllocation is returned when allocation input fails boundary validation.
var ErrInvalidAllocation = errors.New("invalid allocation")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Percentages holds the player's per-sink allocation targets.
// The engine treats them as already normalized; the UI keeps organ shares summing to <= 100.
type Percentages struct {
	Leaf    float64 `json:"leaf" validate:"gte=0,lte=100"`
	Stem    float64 `json:"stem" validate:"gte=0,lte=100"`
	Root    float64 `json:"root" validate:"gte=0,lte=100"`
	Seed    float64 `json:"seed" validate:"gte=0,lte=100"`
	Storage float64 `json:"storage" validate:"gte=-100,lte=100"` // Negative = consume from storage
}

// Of returns the percentage assigned to a sink.
func (p Percentages) Of(s Sink) float64 {
	switch s {
	case SinkLeaf:
		return p.Leaf
	case SinkStem:
		return p.Stem
	case SinkRoot:
		return p.Root
	case SinkSeed:
		return p.Seed
	case SinkStorage:
		return p.Storage
	}
	return 0
}

// Active reports whether a sink takes part in proportional allocation.
// A negative storage share means consumption, not a sink target.
func (p Percentages) Active(s Sink) bool {
	return p.Of(s) > 0
}

// AnyActive reports whether at least one sink is active.
func (p Percentages) AnyActive() bool {
	for _, s := range Sinks {
		if p.Active(s) {
			return true
		}
	}
	return false
}

// GrowthAllocation is the transient per-tick input to the engine.
type GrowthAllocation struct {
	Percentages Percentages `json:"percentages"`
	ElapsedTime float64     `json:"elapsed_time" validate:"gte=0"` // Simulated seconds since the previous tick
	StomataOpen bool        `json:"stomata_open"`
}

// Validate checks the allocation at the boundary where it enters the engine.
func (a GrowthAllocation) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAllocation, err)
	}
	return nil
}

// Resource names a soil resource a spatial action targets.
type Resource string

const (
	ResourceWater    Resource = "water"
	ResourceNutrient Resource = "nutrient"
)

// SpatialAction is a player action on the soil grids, queued on the client
// and applied by the authority before the next tick.
type SpatialAction struct {
	Resource Resource `json:"resource" validate:"oneof=water nutrient"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Radius   float64  `json:"radius" validate:"gt=0"`
	Amount   float64  `json:"amount" validate:"gt=0"`
}

// Validate checks a spatial action at the boundary.
func (a SpatialAction) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAllocation, err)
	}
	return nil
}
