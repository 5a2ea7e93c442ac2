package solver

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// DefaultTolerance is the simplex optimality and row-dependence tolerance.
const DefaultTolerance = 1e-10

type bounds struct {
	lower, upper float64
}

type constraint struct {
	expr   Expr
	lb, ub float64
}

// Model is an Optimizer backed by gonum's simplex method.
// Variables start bounded to [0, 0] until SetBounds widens them.
type Model struct {
	vars        []Variable
	index       map[Variable]int
	bounds      []bounds
	objective   Expr
	constraints map[string]constraint

	// Tol is passed to the simplex method.
	Tol float64
}

var _ Optimizer = (*Model)(nil)

// NewModel creates a model over a fixed set of variables.
func NewModel(vars ...Variable) *Model {
	m := &Model{
		vars:        append([]Variable(nil), vars...),
		index:       make(map[Variable]int, len(vars)),
		bounds:      make([]bounds, len(vars)),
		objective:   Expr{},
		constraints: make(map[string]constraint),
		Tol:         DefaultTolerance,
	}
	for i, v := range vars {
		if _, dup := m.index[v]; dup {
			panic(fmt.Sprintf("solver: duplicate variable %q", v))
		}
		m.index[v] = i
	}
	return m
}

// Variables returns the model variables in column order.
func (m *Model) Variables() []Variable {
	return append([]Variable(nil), m.vars...)
}

// Maximize sets the objective to maximize.
func (m *Model) Maximize(expr Expr) {
	m.mustKnow(expr)
	m.objective = expr
}

// SetBounds sets the [lower, upper] interval of v. Infinite values are clamped to ±Unbounded.
func (m *Model) SetBounds(v Variable, lower, upper float64) {
	i, ok := m.index[v]
	if !ok {
		panic(fmt.Sprintf("solver: unknown variable %q", v))
	}
	m.bounds[i] = bounds{lower: clampInf(lower), upper: clampInf(upper)}
}

// Bounds returns the current interval of v.
func (m *Model) Bounds(v Variable) (lower, upper float64) {
	i, ok := m.index[v]
	if !ok {
		return 0, 0
	}
	return m.bounds[i].lower, m.bounds[i].upper
}

// AddConstraint adds or replaces the constraint lb <= expr <= ub under key.
// lb == ub makes it an equality.
func (m *Model) AddConstraint(key string, expr Expr, lb, ub float64) {
	m.mustKnow(expr)
	m.constraints[key] = constraint{expr: expr, lb: lb, ub: ub}
}

// RemoveConstraint drops the constraint under key, if present.
func (m *Model) RemoveConstraint(key string) {
	delete(m.constraints, key)
}

// HasConstraint reports whether a constraint is registered under key.
func (m *Model) HasConstraint(key string) bool {
	_, ok := m.constraints[key]
	return ok
}

// ConstraintKeys returns the registered keys in sorted order.
func (m *Model) ConstraintKeys() []string {
	keys := make([]string, 0, len(m.constraints))
	for k := range m.constraints {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Solve maximizes the objective. It returns ErrInfeasible or ErrUnbounded
// when the simplex method reports so.
func (m *Model) Solve() (Solution, error) {
	n := len(m.vars)
	if n == 0 {
		return Solution{Values: map[Variable]float64{}}, nil
	}
	for i, b := range m.bounds {
		if b.lower > b.upper {
			return Solution{}, fmt.Errorf("%w: %s bounds [%g, %g]", ErrInfeasible, m.vars[i], b.lower, b.upper)
		}
	}

	// Objective: simplex minimizes, so negate.
	c := make([]float64, n)
	for v, coef := range m.objective {
		c[m.index[v]] = -coef
	}

	// Inequalities G x <= h: variable bounds, then ranged constraints.
	var gRows [][]float64
	var h []float64
	for i, b := range m.bounds {
		up := make([]float64, n)
		up[i] = 1
		gRows = append(gRows, up)
		h = append(h, b.upper)

		lo := make([]float64, n)
		lo[i] = -1
		gRows = append(gRows, lo)
		h = append(h, -b.lower)
	}

	var aRows [][]float64
	var b []float64
	for _, key := range m.ConstraintKeys() {
		con := m.constraints[key]
		row := m.dense(con.expr)
		if con.lb == con.ub {
			aRows = append(aRows, row)
			b = append(b, con.lb)
			continue
		}
		if !math.IsInf(con.ub, 1) {
			gRows = append(gRows, row)
			h = append(h, con.ub)
		}
		if !math.IsInf(con.lb, -1) {
			neg := make([]float64, n)
			floats.ScaleTo(neg, -1, row)
			gRows = append(gRows, neg)
			h = append(h, -con.lb)
		}
	}

	aRows, b, err := independentRows(aRows, b, m.tol())
	if err != nil {
		return Solution{}, err
	}

	// Untyped nil keeps Convert from seeing a nil *mat.Dense as a matrix.
	var aMat mat.Matrix
	if len(aRows) > 0 {
		aMat = stack(aRows, n)
	}
	cStd, aStd, bStd := lp.Convert(c, stack(gRows, n), h, aMat, b)

	// Keep the right-hand side non-negative for phase one.
	rows, cols := aStd.Dims()
	for i := 0; i < rows; i++ {
		if bStd[i] >= 0 {
			continue
		}
		bStd[i] = -bStd[i]
		for j := 0; j < cols; j++ {
			aStd.Set(i, j, -aStd.At(i, j))
		}
	}

	optF, optX, err := lp.Simplex(cStd, aStd, bStd, m.tol(), nil)
	if err != nil {
		switch {
		case errors.Is(err, lp.ErrInfeasible):
			return Solution{}, ErrInfeasible
		case errors.Is(err, lp.ErrUnbounded):
			return Solution{}, ErrUnbounded
		default:
			return Solution{}, fmt.Errorf("%w: simplex: %v", ErrInfeasible, err)
		}
	}

	// x = x+ - x-
	sol := Solution{Objective: -optF, Values: make(map[Variable]float64, n)}
	for i, v := range m.vars {
		sol.Values[v] = optX[i] - optX[n+i]
	}
	return sol, nil
}

func (m *Model) tol() float64 {
	if m.Tol <= 0 {
		return DefaultTolerance
	}
	return m.Tol
}

func (m *Model) dense(expr Expr) []float64 {
	row := make([]float64, len(m.vars))
	for v, coef := range expr {
		row[m.index[v]] = coef
	}
	return row
}

func (m *Model) mustKnow(expr Expr) {
	for v := range expr {
		if _, ok := m.index[v]; !ok {
			panic(fmt.Sprintf("solver: unknown variable %q", v))
		}
	}
}

// independentRows drops equality rows that are linear combinations of earlier
// rows (modified Gram-Schmidt). The simplex method needs full row rank.
// A dependent row whose right-hand side disagrees makes the system infeasible.
func independentRows(rows [][]float64, rhs []float64, tol float64) ([][]float64, []float64, error) {
	var basis [][]float64
	var basisRHS []float64
	var keptRows [][]float64
	var keptRHS []float64

	for i, row := range rows {
		v := append([]float64(nil), row...)
		beta := rhs[i]
		for k, q := range basis {
			d := floats.Dot(v, q)
			floats.AddScaled(v, -d, q)
			beta -= d * basisRHS[k]
		}

		norm := floats.Norm(v, 2)
		scale := math.Max(1, floats.Norm(row, 2))
		if norm <= 1e3*tol*scale {
			if math.Abs(beta) > 1e3*tol*math.Max(1, math.Abs(rhs[i])) {
				return nil, nil, fmt.Errorf("%w: inconsistent equality constraints", ErrInfeasible)
			}
			continue
		}

		floats.Scale(1/norm, v)
		basis = append(basis, v)
		basisRHS = append(basisRHS, beta/norm)
		keptRows = append(keptRows, row)
		keptRHS = append(keptRHS, rhs[i])
	}
	return keptRows, keptRHS, nil
}

func stack(rows [][]float64, n int) *mat.Dense {
	data := make([]float64, 0, len(rows)*n)
	for _, r := range rows {
		data = append(data, r...)
	}
	return mat.NewDense(len(rows), n, data)
}

func clampInf(x float64) float64 {
	if x > Unbounded {
		return Unbounded
	}
	if x < -Unbounded {
		return -Unbounded
	}
	return x
}
