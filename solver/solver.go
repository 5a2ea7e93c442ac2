// Package solver defines the linear-program interface the growth engine
// delegates to, and a simplex-backed implementation of it.
package solver

import "errors"

var (
	// ErrInfeasible is returned when no flux vector satisfies bounds and constraints.
	ErrInfeasible = errors.New("solver: infeasible")
	// ErrUnbounded is returned when the objective can grow without limit.
	ErrUnbounded = errors.New("solver: unbounded")
)

// Unbounded is the magnitude infinite bounds are clamped to.
const Unbounded = 1e9

// Variable names a solver variable (a channel or an internal reaction).
type Variable string

// Expr is a linear expression: variable -> coefficient.
type Expr map[Variable]float64

// Solution holds the optimal flux per variable.
type Solution struct {
	Objective float64
	Values    map[Variable]float64
}

// Value returns the flux of v, or 0 if v is unknown.
func (s Solution) Value(v Variable) float64 {
	return s.Values[v]
}

// Optimizer solves "maximize objective subject to bounds and keyed constraints".
// Constraints are keyed so callers can replace them idempotently between solves.
type Optimizer interface {
	SetBounds(v Variable, lower, upper float64)
	AddConstraint(key string, expr Expr, lb, ub float64)
	RemoveConstraint(key string)
	Solve() (Solution, error)
}
