package solver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-6

func TestModelBoundsOnly(t *testing.T) {
	m := NewModel("x", "y")
	m.SetBounds("x", 0, 3)
	m.SetBounds("y", 0, 2)
	m.Maximize(Expr{"x": 1, "y": 1})

	sol, err := m.Solve()
	require.NoError(t, err)
	assert.InDelta(t, 3, sol.Value("x"), eps)
	assert.InDelta(t, 2, sol.Value("y"), eps)
	assert.InDelta(t, 5, sol.Objective, eps)
}

func TestModelEqualityConstraint(t *testing.T) {
	m := NewModel("x", "y")
	m.SetBounds("x", 0, 3)
	m.SetBounds("y", 0, 2)
	m.Maximize(Expr{"x": 1, "y": 1})
	m.AddConstraint("ratio", Expr{"x": 1, "y": -2}, 0, 0)

	sol, err := m.Solve()
	require.NoError(t, err)
	assert.InDelta(t, 3, sol.Value("x"), eps)
	assert.InDelta(t, 1.5, sol.Value("y"), eps)
}

func TestModelRedundantEqualities(t *testing.T) {
	m := NewModel("a", "b", "c")
	for _, v := range []Variable{"a", "b", "c"} {
		m.SetBounds(v, 0, 10)
	}
	m.Maximize(Expr{"a": 1, "b": 1, "c": 1})
	m.AddConstraint("ab", Expr{"a": 1, "b": -1}, 0, 0)
	m.AddConstraint("bc", Expr{"b": 1, "c": -1}, 0, 0)
	m.AddConstraint("ac", Expr{"a": 1, "c": -1}, 0, 0)

	sol, err := m.Solve()
	require.NoError(t, err)
	assert.InDelta(t, 30, sol.Objective, eps)
	assert.InDelta(t, sol.Value("a"), sol.Value("c"), eps)
}

func TestModelNegativeRange(t *testing.T) {
	m := NewModel("x", "y")
	m.SetBounds("x", -5, 5)
	m.SetBounds("y", 0, 4)
	m.Maximize(Expr{"y": 1})
	// y = x + 1 forces x to 3 at the optimum.
	m.AddConstraint("link", Expr{"y": 1, "x": -1}, 1, 1)

	sol, err := m.Solve()
	require.NoError(t, err)
	assert.InDelta(t, 4, sol.Value("y"), eps)
	assert.InDelta(t, 3, sol.Value("x"), eps)
}

func TestModelInfeasible(t *testing.T) {
	m := NewModel("x", "y")
	m.SetBounds("x", 0, 3)
	m.SetBounds("y", 0, 3)
	m.Maximize(Expr{"x": 1})
	m.AddConstraint("sum", Expr{"x": 1, "y": 1}, 10, 10)

	_, err := m.Solve()
	require.ErrorIs(t, err, ErrInfeasible)
}

func TestModelInvertedBounds(t *testing.T) {
	m := NewModel("x")
	m.SetBounds("x", 2, 1)

	_, err := m.Solve()
	require.ErrorIs(t, err, ErrInfeasible)
}

func TestModelInconsistentDependentRows(t *testing.T) {
	m := NewModel("x", "y")
	m.SetBounds("x", 0, 10)
	m.SetBounds("y", 0, 10)
	m.AddConstraint("one", Expr{"x": 1, "y": -1}, 0, 0)
	m.AddConstraint("two", Expr{"x": 2, "y": -2}, 1, 1)

	_, err := m.Solve()
	require.ErrorIs(t, err, ErrInfeasible)
}

func TestModelRemoveConstraint(t *testing.T) {
	m := NewModel("x", "y")
	m.SetBounds("x", 0, 3)
	m.SetBounds("y", 0, 2)
	m.Maximize(Expr{"x": 1, "y": 1})
	m.AddConstraint("pin", Expr{"x": 1}, 0, 0)
	require.True(t, m.HasConstraint("pin"))

	m.RemoveConstraint("pin")
	require.False(t, m.HasConstraint("pin"))

	sol, err := m.Solve()
	require.NoError(t, err)
	assert.InDelta(t, 5, sol.Objective, eps)
}

func TestModelReplaceConstraintByKey(t *testing.T) {
	m := NewModel("x")
	m.SetBounds("x", 0, 10)
	m.Maximize(Expr{"x": 1})
	m.AddConstraint("cap", Expr{"x": 1}, math.Inf(-1), 4)
	m.AddConstraint("cap", Expr{"x": 1}, math.Inf(-1), 6)

	assert.Equal(t, []string{"cap"}, m.ConstraintKeys())
	sol, err := m.Solve()
	require.NoError(t, err)
	assert.InDelta(t, 6, sol.Value("x"), eps)
}

func TestModelZeroBoundsPinVariables(t *testing.T) {
	m := NewModel("x", "y")
	m.SetBounds("y", 0, 5)
	m.Maximize(Expr{"x": 1, "y": 1})

	sol, err := m.Solve()
	require.NoError(t, err)
	assert.InDelta(t, 0, sol.Value("x"), eps)
	assert.InDelta(t, 5, sol.Value("y"), eps)
}

func TestModelUnknownVariablePanics(t *testing.T) {
	m := NewModel("x")
	assert.Panics(t, func() { m.SetBounds("nope", 0, 1) })
	assert.Panics(t, func() { m.AddConstraint("k", Expr{"nope": 1}, 0, 0) })
}
