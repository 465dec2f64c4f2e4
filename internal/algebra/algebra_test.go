package algebra_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/liesym/internal/algebra"
	"github.com/njchilds90/liesym/symbolic"
)

func newRing(t *testing.T) *algebra.Ring {
	t.Helper()
	r := algebra.NewRing()
	decl := []struct {
		name string
		role algebra.Role
	}{
		{"t", algebra.RoleTime},
		{"x", algebra.RoleState},
		{"y", algebra.RoleState},
		{"W", algebra.RoleState},
		{"k", algebra.RoleParameter},
		{"A", algebra.RoleParameter},
		{"c1", algebra.RoleConstant},
		{"c2", algebra.RoleConstant},
		{"c3", algebra.RoleConstant},
		{"c4", algebra.RoleConstant},
	}
	for _, d := range decl {
		_, err := r.Declare(d.name, d.role)
		require.NoError(t, err)
	}
	return r
}

func frac(t *testing.T, r *algebra.Ring, s string) algebra.Frac {
	t.Helper()
	f, err := r.FromExpr(symbolic.MustParse(s))
	require.NoError(t, err, s)
	return f
}

func poly(t *testing.T, r *algebra.Ring, s string) algebra.Poly {
	t.Helper()
	f := frac(t, r, s)
	require.True(t, f.IsPoly(), "%s is not a polynomial", s)
	return f.Num()
}

func TestPolyArithmetic(t *testing.T) {
	r := newRing(t)
	p := poly(t, r, "x + 1")
	assert.True(t, p.Pow(2).Equal(poly(t, r, "x^2 + 2*x + 1")))
	assert.True(t, p.Mul(p).Sub(p.Pow(2)).IsZero())
	assert.Equal(t, 2, p.Pow(2).Degree(mustLookup(t, r, "x")))

	q, ok := algebra.DivExact(poly(t, r, "x^2 - y^2"), poly(t, r, "x - y"))
	require.True(t, ok)
	assert.True(t, q.Equal(poly(t, r, "x + y")))

	_, ok = algebra.DivExact(poly(t, r, "x^2 + 1"), poly(t, r, "x - 1"))
	assert.False(t, ok)
}

func TestPolyContent(t *testing.T) {
	r := newRing(t)
	c, prim := poly(t, r, "-2/3*x - 4/3").Primitive()
	assert.Equal(t, "-2/3", c.RatString())
	assert.True(t, prim.Equal(poly(t, r, "x + 2")))
}

func TestPolySplit(t *testing.T) {
	r := newRing(t)
	x := mustLookup(t, r, "x")
	p := poly(t, r, "c1*x^2 + k*c2*x^2 + c2*x - c1")
	parts := p.Split(func(i int) bool { return i == x })
	require.Len(t, parts, 3)
	assert.True(t, parts[0].Equal(poly(t, r, "c1 + k*c2")))
	assert.True(t, parts[1].Equal(poly(t, r, "c2")))
	assert.True(t, parts[2].Equal(poly(t, r, "-c1")))
}

func TestFracCancellation(t *testing.T) {
	r := newRing(t)
	cases := []struct {
		in   string
		want string
	}{
		{"(x^2 - 1)/(x - 1)", "x + 1"},
		{"x/(x + 1) + 1/(x + 1)", "1"},
		{"1/x + 1/x", "2*x^(-1)"},
		{"(x*y + x)/(y + 1)^2", "x*(y + 1)^(-1)"},
	}
	for _, tc := range cases {
		got := frac(t, r, tc.in)
		assert.True(t, got.Equal(frac(t, r, tc.want)), "%s: got %s", tc.in, r.Format(got))
	}
	assert.Equal(t, "x + 1", r.Format(frac(t, r, "(x^2 - 1)/(x - 1)")))
}

func TestKernelCanonicalForms(t *testing.T) {
	r := newRing(t)
	equal := [][2]string{
		{"exp(2*t)", "exp(t)^2"},
		{"exp(-k*t)", "1/exp(k*t)"},
		{"exp(t + k)", "exp(t)*exp(k)"},
		{"ln(W/A)", "ln(W) - ln(A)"},
		{"ln(W^3)", "3*ln(W)"},
		{"ln(exp(2*t)*W)", "2*t + ln(W)"},
		{"x^(3/2)", "x*sqrt(x)"},
		{"x^(-1/2)", "sqrt(x)/x"},
		{"A^(k + 1)", "A*A^k"},
		{"exp(t)^k", "exp(k*t)"},
	}
	for _, pair := range equal {
		a, b := frac(t, r, pair[0]), frac(t, r, pair[1])
		assert.True(t, a.Equal(b), "%s != %s (%s vs %s)", pair[0], pair[1], r.Format(a), r.Format(b))
	}
	assert.False(t, frac(t, r, "ln(W)").Equal(frac(t, r, "W")))
}

func TestDiffChainRule(t *testing.T) {
	r := newRing(t)
	cases := []struct {
		f, by, want string
	}{
		{"W*ln(W)", "W", "ln(W) + 1"},
		{"exp(-k*t)", "t", "-k*exp(-k*t)"},
		{"1/(x + 1)", "x", "-1/(x + 1)^2"},
		{"sqrt(x)", "x", "1/(2*sqrt(x))"},
		{"A^k", "A", "k*A^k/A"},
		{"ln(ln(W))", "W", "1/(W*ln(W))"},
		{"sin(x*y)", "x", "y*cos(x*y)"},
	}
	for _, tc := range cases {
		got, err := r.Diff(frac(t, r, tc.f), tc.by)
		require.NoError(t, err)
		want := frac(t, r, tc.want)
		assert.True(t, got.Equal(want), "d/d%s %s: got %s want %s", tc.by, tc.f, r.Format(got), r.Format(want))
	}
}

func TestUndefinedFunctions(t *testing.T) {
	r := newRing(t)
	f := frac(t, r, "f(t)*x")
	d, err := r.Diff(f, "t")
	require.NoError(t, err)
	assert.Equal(t, "f'(t)*x", r.Format(d))

	vars := r.FunctionVars("f")
	require.Len(t, vars, 2)
	for _, i := range vars {
		assert.Equal(t, algebra.RoleFunction, r.Variable(i).Role)
	}

	values, err := r.FunctionValue("f", frac(t, r, "t^2"))
	require.NoError(t, err)
	got, err := r.Substitute(d, values)
	require.NoError(t, err)
	assert.True(t, got.Equal(frac(t, r, "2*t*x")))
}

func TestSubstitute(t *testing.T) {
	r := newRing(t)
	c1 := mustLookup(t, r, "c1")
	got, err := r.Substitute(frac(t, r, "x + c1/(x + 1)"), map[int]algebra.Frac{c1: frac(t, r, "x^2 - 1")})
	require.NoError(t, err)
	assert.True(t, got.Equal(frac(t, r, "2*x - 1")), r.Format(got))

	_, err = r.Substitute(frac(t, r, "1/(c1 - 1)"), map[int]algebra.Frac{c1: algebra.FracInt(1)})
	assert.ErrorIs(t, err, algebra.ErrDivisionByZero)
}

func TestDeclareErrors(t *testing.T) {
	r := newRing(t)
	_, err := r.Declare("x", algebra.RoleParameter)
	var conflict *algebra.RoleConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, algebra.RoleState, conflict.Have)

	_, err = r.FromExpr(symbolic.MustParse("x + q"))
	assert.ErrorIs(t, err, algebra.ErrUndeclared)

	added, err := r.DeclareMissing(symbolic.MustParse("x + q"), algebra.RoleFree)
	require.NoError(t, err)
	assert.Equal(t, []string{"q"}, added)
}

func TestSplittingAtoms(t *testing.T) {
	r := newRing(t)
	for _, s := range []string{"ln(x)", "exp(k*t)", "ln(k)", "f(t)"} {
		frac(t, r, s)
	}
	atom := r.SplittingAtoms(map[string]bool{"t": true})
	want := map[string]bool{
		"t": false, "x": true, "y": true, "W": true, "k": false, "c1": false,
		"ln(x)": true, "exp(k*t)": false, "ln(k)": false, "f(t)": false,
	}
	for name, expected := range want {
		assert.Equal(t, expected, atom(mustLookup(t, r, name)), name)
	}

	atom = r.SplittingAtoms(nil)
	assert.True(t, atom(mustLookup(t, r, "exp(k*t)")))
}

func TestLinearize(t *testing.T) {
	r := newRing(t)
	c1, c2 := mustLookup(t, r, "c1"), mustLookup(t, r, "c2")
	unknown := func(i int) bool { return i == c1 || i == c2 }

	row, ok := algebra.Linearize(poly(t, r, "k*c1 + 2*c2 + k*c1*x + 3"), unknown)
	require.True(t, ok)
	assert.True(t, row.Coeffs[c1].Equal(poly(t, r, "k + k*x")))
	assert.True(t, row.Coeffs[c2].Equal(poly(t, r, "2")))
	assert.True(t, row.Const.Equal(poly(t, r, "3")))

	_, ok = algebra.Linearize(poly(t, r, "c1*c2"), unknown)
	assert.False(t, ok)
}

func TestEliminate(t *testing.T) {
	r := newRing(t)
	c1, c2 := mustLookup(t, r, "c1"), mustLookup(t, r, "c2")
	unknown := func(i int) bool { return i == c1 || i == c2 }
	rows := func(eqs ...string) []algebra.Row {
		var out []algebra.Row
		for _, e := range eqs {
			row, ok := algebra.Linearize(poly(t, r, e), unknown)
			require.True(t, ok)
			out = append(out, row)
		}
		return out
	}
	ctx := context.Background()

	t.Run("full rank", func(t *testing.T) {
		el, err := algebra.Eliminate(ctx, rows("c1 + c2", "c1 - c2"), []int{c1, c2})
		require.NoError(t, err)
		require.Equal(t, 2, el.Rank())
		for _, p := range el.Pivots {
			assert.Empty(t, p.Rest)
			assert.True(t, p.Const.IsZero())
		}
		assert.False(t, el.Inconsistent)
		assert.Empty(t, el.Assumptions)
	})

	t.Run("parametric pivot", func(t *testing.T) {
		el, err := algebra.Eliminate(ctx, rows("k*c1 + c2"), []int{c1, c2})
		require.NoError(t, err)
		require.Equal(t, 1, el.Rank())
		p := el.Pivots[0]
		assert.Equal(t, c1, p.Var)
		assert.True(t, p.Coeff.Equal(poly(t, r, "k")))
		assert.True(t, p.Rest[c2].Equal(poly(t, r, "1")))
		require.Len(t, el.Assumptions, 1)
	})

	t.Run("inconsistent", func(t *testing.T) {
		el, err := algebra.Eliminate(ctx, rows("c1", "c1 - 1"), []int{c1, c2})
		require.NoError(t, err)
		assert.True(t, el.Inconsistent)
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := algebra.Eliminate(cctx, rows("c1"), []int{c1, c2})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("cancelled between row operations", func(t *testing.T) {
		_, err := algebra.Eliminate(&expiring{Context: ctx, left: 1}, rows("c1 + c2", "c1 - c2"), []int{c1, c2})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestEliminateIndependentBlocks(t *testing.T) {
	r := newRing(t)
	var cols []int
	for _, name := range []string{"c1", "c2", "c3", "c4"} {
		cols = append(cols, mustLookup(t, r, name))
	}
	unknown := func(i int) bool {
		for _, c := range cols {
			if c == i {
				return true
			}
		}
		return false
	}
	var rows []algebra.Row
	for _, e := range []string{"c3 + c4", "k*c1 + c2", "c3 - c4 + 2"} {
		row, ok := algebra.Linearize(poly(t, r, e), unknown)
		require.True(t, ok)
		rows = append(rows, row)
	}

	el, err := algebra.Eliminate(context.Background(), rows, cols)
	require.NoError(t, err)
	require.Equal(t, 3, el.Rank())
	assert.False(t, el.Inconsistent)
	var vars []int
	for _, p := range el.Pivots {
		vars = append(vars, p.Var)
	}
	assert.Equal(t, []int{cols[0], cols[2], cols[3]}, vars)

	first := el.Pivots[0]
	assert.True(t, first.Coeff.Equal(poly(t, r, "k")))
	require.Len(t, first.Rest, 1)
	assert.True(t, first.Rest[cols[1]].Equal(poly(t, r, "1")))
	require.Len(t, el.Assumptions, 1)
	for _, p := range el.Pivots[1:] {
		assert.Empty(t, p.Rest)
		assert.False(t, p.Const.IsZero())
	}
}

// expiring is a context whose Err reports DeadlineExceeded once it has been
// consulted left times.
type expiring struct {
	context.Context
	left int
}

func (c *expiring) Err() error {
	if c.left <= 0 {
		return context.DeadlineExceeded
	}
	c.left--
	return nil
}

func TestFracConst(t *testing.T) {
	c, ok := algebra.FracConst(big.NewRat(3, 4)).Const()
	require.True(t, ok)
	assert.Equal(t, "3/4", c.RatString())
	assert.Equal(t, "x + 1", newRing(t).PolyExpr(algebra.PolyInt(1).Add(algebra.PolyVar(1))).String())
}

func TestIntegrate(t *testing.T) {
	r := newRing(t)
	ti := mustLookup(t, r, "t")

	got, ok := r.Integrate(frac(t, r, "3*t^2 + k*x"), ti)
	require.True(t, ok)
	assert.True(t, got.Equal(frac(t, r, "t^3 + k*x*t")), r.Format(got))

	got, ok = r.Integrate(frac(t, r, "t/x"), ti)
	require.True(t, ok)
	assert.True(t, got.Equal(frac(t, r, "t^2/(2*x)")), r.Format(got))

	for _, s := range []string{"1/t", "exp(t)", "1/(t + x)"} {
		_, ok := r.Integrate(frac(t, r, s), ti)
		assert.False(t, ok, s)
	}
}

func mustLookup(t *testing.T, r *algebra.Ring, name string) int {
	t.Helper()
	i, ok := r.Lookup(name)
	require.True(t, ok, name)
	return i
}
