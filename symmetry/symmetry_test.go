package symmetry_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/liesym/model"
	"github.com/njchilds90/liesym/symbolic"
	"github.com/njchilds90/liesym/symmetry"
)

func exponential(t *testing.T) *model.System {
	t.Helper()
	sys, err := model.Parse("exponential", "t", []string{"x"}, []string{"x"}, nil)
	require.NoError(t, err)
	return sys
}

func builtin(t *testing.T, name string) *model.System {
	t.Helper()
	sys, err := model.Builtin(name)
	require.NoError(t, err)
	return sys
}

// same compares an expression with the printed form of s.
func same(t *testing.T, want string, got symbolic.Expr) {
	t.Helper()
	assert.Equal(t, symbolic.MustParse(want).String(), got.String())
}

func TestMonomialsOrder(t *testing.T) {
	var got []string
	for _, m := range symmetry.Monomials([]string{"t", "x"}, 2) {
		got = append(got, m.String())
	}
	var want []string
	for _, s := range []string{"1", "t", "x", "t^2", "t*x", "x^2"} {
		want = append(want, symbolic.MustParse(s).String())
	}
	assert.Equal(t, want, got)
	assert.Len(t, symmetry.Monomials([]string{"t", "x", "y"}, 1), 4)
}

func TestBuildAnsatz(t *testing.T) {
	sys := exponential(t)

	gen, err := symmetry.Builder{}.Build(symmetry.NewWorkspace(), sys, symmetry.DefaultAnsatzOptions())
	require.NoError(t, err)
	require.Len(t, gen.Unknowns, 6)
	assert.Equal(t, "c_1_1", gen.Unknowns[0].Name)
	assert.Equal(t, "c_2_3", gen.Unknowns[5].Name)
	same(t, "c_2_1 + c_2_2*t + c_2_3*x", gen.Eta[0])

	opts := symmetry.AnsatzOptions{Degree: 1, DependsOn: map[string][]string{"x": {"x"}}}
	gen, err = symmetry.Builder{}.Build(symmetry.NewWorkspace(), sys, opts)
	require.NoError(t, err)
	assert.True(t, symbolic.IsZero(gen.Xi))
	assert.Len(t, gen.Unknowns, 2)

	gen, err = symmetry.Builder{}.Build(symmetry.NewWorkspace(), builtin(t, "gompertz-system"), symmetry.AnsatzOptions{Degree: 1, IncludeTime: true, Form: symmetry.FunctionForm})
	require.NoError(t, err)
	require.NotEmpty(t, gen.Unknowns)
	for _, u := range gen.Unknowns {
		assert.True(t, u.IsFunction(), u.String())
		assert.Equal(t, []string{"t"}, u.Args)
	}

	_, err = symmetry.Builder{}.Build(symmetry.NewWorkspace(), sys, symmetry.AnsatzOptions{Degree: -1, IncludeTime: true})
	assert.ErrorIs(t, err, symmetry.ErrInvalidOptions)

	var malformed *model.MalformedSystemError
	_, err = symmetry.Builder{}.Build(symmetry.NewWorkspace(), sys, symmetry.AnsatzOptions{Degree: 1, DependsOn: map[string][]string{"y": {"x"}}})
	assert.True(t, errors.As(err, &malformed), "%v", err)
	_, err = symmetry.Builder{}.Build(symmetry.NewWorkspace(), sys, symmetry.AnsatzOptions{Degree: 1, DependsOn: map[string][]string{"x": {"z"}}})
	assert.True(t, errors.As(err, &malformed), "%v", err)
}

func TestAnsatzOptionsKey(t *testing.T) {
	a := symmetry.AnsatzOptions{Degree: 2, DependsOn: map[string][]string{"x": {"x"}, "y": {"t", "y"}}}
	b := symmetry.AnsatzOptions{Degree: 2, DependsOn: map[string][]string{"y": {"t", "y"}, "x": {"x"}}}
	assert.Equal(t, a.Key(), b.Key())
	b.Form = symmetry.FunctionForm
	assert.NotEqual(t, a.Key(), b.Key())

	f, err := symmetry.ParseAnsatzForm("function")
	require.NoError(t, err)
	assert.Equal(t, symmetry.FunctionForm, f)
	_, err = symmetry.ParseAnsatzForm("spline")
	assert.Error(t, err)
}

func TestScalingOfExponentialGrowth(t *testing.T) {
	sys := exponential(t)
	ws := symmetry.NewWorkspace()
	opts := symmetry.AnsatzOptions{Degree: 1, DependsOn: map[string][]string{"x": {"x"}}}

	gen, err := symmetry.Builder{}.Build(ws, sys, opts)
	require.NoError(t, err)
	ds, err := symmetry.Deriver{}.Derive(ws, sys, gen)
	require.NoError(t, err)
	require.Len(t, ds.Conditions, 1)
	same(t, "-c_2_1", ds.Conditions[0])

	// x*eta1'(x) - eta1(x): the coefficient depends on x alone.
	eta := symbolic.Fn("eta1", "x")
	want := symbolic.AddOf(
		symbolic.MulOf(symbolic.S("x"), eta.Derivative([]int{1})),
		symbolic.MulOf(symbolic.N(-1), eta),
	)
	require.Len(t, ds.General, 1)
	assert.True(t, symbolic.IsZero(symbolic.AddOf(ds.General[0], symbolic.MulOf(symbolic.N(-1), want))),
		"general condition %s, want %s", ds.General[0], want)
	assert.Contains(t, ds.General[0].String(), "eta1'(x)")

	sol, err := symmetry.Solver{}.Solve(context.Background(), ws, ds)
	require.NoError(t, err)
	assert.Equal(t, symmetry.Resolved, sol.Kind)
	assert.Equal(t, []string{"c_2_2"}, sol.FreeConstants())
	assert.Empty(t, sol.Reduced)

	basis, err := symmetry.Decompose(ws, sol.Generator, sol.FreeConstants())
	require.NoError(t, err)
	require.Len(t, basis, 1)
	same(t, "x", basis[0].Eta[0])
	assert.Equal(t, "X1", basis[0].Name)

	res, err := symmetry.Validator{}.Validate(symmetry.NewWorkspace(), sys, symmetry.NewGenerator(sys, nil, symbolic.S("x")))
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Empty(t, res.Residuals)
}

func TestConstantAnsatz(t *testing.T) {
	sys := exponential(t)
	ws := symmetry.NewWorkspace()
	gen, err := symmetry.Builder{}.Build(ws, sys, symmetry.AnsatzOptions{Degree: 0, IncludeTime: true})
	require.NoError(t, err)
	require.Len(t, gen.Unknowns, 2)
	same(t, "c_1_1", gen.Xi)
	same(t, "c_2_1", gen.Eta[0])

	ds, err := symmetry.Deriver{}.Derive(ws, sys, gen)
	require.NoError(t, err)
	same(t, "-c_2_1", ds.Conditions[0])
	sol, err := symmetry.Solver{}.Solve(context.Background(), ws, ds)
	require.NoError(t, err)
	assert.Equal(t, symmetry.Resolved, sol.Kind)
	assert.Equal(t, []string{"c_1_1"}, sol.FreeConstants())
}

func TestFullAnsatzOfExponentialGrowth(t *testing.T) {
	a, err := symmetry.Analyze(context.Background(), symmetry.NewWorkspace(), exponential(t), symmetry.DefaultAnsatzOptions())
	require.NoError(t, err)
	assert.Equal(t, symmetry.StateValidated, a.State)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, []string{"c_1_1", "c_2_3"}, a.Solution.FreeConstants())
	require.Len(t, a.Basis, 2)
	same(t, "1", a.Basis[0].Xi)
	same(t, "x", a.Basis[1].Eta[0])
	for _, v := range a.Validations {
		assert.True(t, v.OK, v.Generator.String())
	}
}

func TestSaddleScalings(t *testing.T) {
	a, err := symmetry.Analyze(context.Background(), symmetry.NewWorkspace(), builtin(t, "saddle"), symmetry.DefaultAnsatzOptions())
	require.NoError(t, err)
	assert.Equal(t, symmetry.StateValidated, a.State)
	assert.GreaterOrEqual(t, len(a.Basis), 3)

	scalings := 0
	for _, g := range a.Basis {
		if symbolic.IsZero(g.Xi) {
			scalings++
		}
	}
	assert.GreaterOrEqual(t, scalings, 2)
}

func TestValidateGompertzGenerators(t *testing.T) {
	sys := builtin(t, "gompertz-system")
	cases := []struct {
		name    string
		xi      string
		eta     []string
		wantOK  bool
		residue string
	}{
		{"translation", "1", []string{"0", "0"}, true, ""},
		{"log scaling", "0", []string{"W*ln(W)", "G"}, true, ""},
		{"scaling", "0", []string{"W", "0"}, true, ""},
		{"not a symmetry", "0", []string{"1", "0"}, false, "W"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := sys.ParseCandidate(tc.name, tc.xi, tc.eta)
			require.NoError(t, err)
			res, err := symmetry.Validator{}.Validate(symmetry.NewWorkspace(), sys, symmetry.FromCandidate(sys, c))
			require.NoError(t, err)
			assert.Equal(t, tc.wantOK, res.OK)
			if tc.residue != "" {
				require.Len(t, res.Residuals, 1)
				assert.Equal(t, tc.residue, res.Residuals[0].State)
			}
		})
	}
}

func TestBuiltinCandidatesValidate(t *testing.T) {
	for _, name := range model.BuiltinNames() {
		sys := builtin(t, name)
		for _, c := range sys.Candidates {
			res, err := symmetry.Validator{}.Validate(symmetry.NewWorkspace(), sys, symmetry.FromCandidate(sys, c))
			require.NoError(t, err, "%s/%s", name, c.Name)
			assert.True(t, res.OK, "%s/%s: %v", name, c.Name, res.Residuals)
		}
	}
}

func TestSolvedBasisValidates(t *testing.T) {
	for _, name := range model.BuiltinNames() {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
			defer cancel()
			a, err := symmetry.Analyze(ctx, symmetry.NewWorkspace(), builtin(t, name), symmetry.DefaultAnsatzOptions())
			require.NoError(t, err)
			for _, v := range a.Validations {
				assert.True(t, v.OK, "%s: %v", v.Generator, v.Residuals)
			}
			require.NotNil(t, a.Solution)
			switch a.Solution.Kind {
			case symmetry.Resolved:
				assert.Equal(t, symmetry.StateValidated, a.State)
			case symmetry.PartiallyReduced:
				assert.Equal(t, symmetry.StateUnsolved, a.State)
				assert.NotEmpty(t, a.Solution.Reason)
				assert.Empty(t, a.Basis)
			}
		})
	}
}

func TestAnalyzeHonorsDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	start := time.Now()
	a, err := symmetry.Analyze(ctx, symmetry.NewWorkspace(), builtin(t, "lac-operon"), symmetry.DefaultAnsatzOptions())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 30*time.Second)
	require.NotNil(t, a.Solution)
	if a.Interrupted() {
		assert.Equal(t, symmetry.StateUnsolved, a.State)
		assert.Equal(t, symmetry.PartiallyReduced, a.Solution.Kind)
		assert.NotEmpty(t, a.Solution.Reduced)
		assert.Empty(t, a.Basis)
	}
}

func TestCancelledAnalysisIsUnsolved(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a, err := symmetry.Analyze(ctx, symmetry.NewWorkspace(), builtin(t, "gompertz-system"), symmetry.DefaultAnsatzOptions())
	require.NoError(t, err)
	assert.Equal(t, symmetry.StateUnsolved, a.State)
	assert.True(t, a.Interrupted())
	assert.Nil(t, a.Unsolvable)
	require.NotNil(t, a.Solution)
	assert.Equal(t, symmetry.PartiallyReduced, a.Solution.Kind)
	assert.Len(t, a.Solution.Reduced, a.Determining.Equations())
	assert.Empty(t, a.Basis)
	assert.Len(t, a.Candidates, len(a.System.Candidates))

	r := a.Report()
	assert.Equal(t, symmetry.StateUnsolved, r.State)
	require.NotNil(t, r.Outcome)
	assert.NotEmpty(t, r.Outcome.Reduced)
}

func TestSolveIsIdempotent(t *testing.T) {
	sys := builtin(t, "saddle")
	ws := symmetry.NewWorkspace()
	gen, err := symmetry.Builder{}.Build(ws, sys, symmetry.DefaultAnsatzOptions())
	require.NoError(t, err)
	ds, err := symmetry.Deriver{}.Derive(ws, sys, gen)
	require.NoError(t, err)
	first, err := symmetry.Solver{}.Solve(context.Background(), ws, ds)
	require.NoError(t, err)

	second, err := symmetry.Solver{}.Solve(context.Background(), ws, first.Determining())
	require.NoError(t, err)
	assert.Equal(t, first.Kind, second.Kind)
	assert.Equal(t, first.FreeConstants(), second.FreeConstants())
	assert.Equal(t, first.Generator.String(), second.Generator.String())
}

func TestUnsolvable(t *testing.T) {
	sys := exponential(t)
	opts := symmetry.AnsatzOptions{Degree: 1, DependsOn: map[string][]string{"x": {}}}

	ws := symmetry.NewWorkspace()
	gen, err := symmetry.Builder{}.Build(ws, sys, opts)
	require.NoError(t, err)
	ds, err := symmetry.Deriver{}.Derive(ws, sys, gen)
	require.NoError(t, err)
	_, err = symmetry.Solver{}.Solve(context.Background(), ws, ds)
	var unsolvable *symmetry.UnsolvableSystemError
	require.True(t, errors.As(err, &unsolvable), "%v", err)
	assert.Equal(t, "exponential", unsolvable.System)

	a, err := symmetry.Analyze(context.Background(), symmetry.NewWorkspace(), sys, opts)
	require.NoError(t, err)
	assert.Equal(t, symmetry.StateUnsolved, a.State)
	assert.NotNil(t, a.Unsolvable)
	assert.Nil(t, a.Solution)
}

func TestCancelledSolveIsPartial(t *testing.T) {
	sys := builtin(t, "gompertz-system")
	ws := symmetry.NewWorkspace()
	gen, err := symmetry.Builder{}.Build(ws, sys, symmetry.DefaultAnsatzOptions())
	require.NoError(t, err)
	ds, err := symmetry.Deriver{}.Derive(ws, sys, gen)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sol, err := symmetry.Solver{}.Solve(ctx, ws, ds)
	require.NoError(t, err)
	assert.Equal(t, symmetry.PartiallyReduced, sol.Kind)
	assert.Equal(t, context.Canceled.Error(), sol.Reason)
	assert.Len(t, sol.Reduced, ds.Equations())
}

func TestFunctionFormGompertz(t *testing.T) {
	opts := symmetry.AnsatzOptions{Degree: 1, IncludeTime: true, Form: symmetry.FunctionForm}
	a, err := symmetry.Analyze(context.Background(), symmetry.NewWorkspace(), builtin(t, "gompertz-system"), opts)
	require.NoError(t, err)
	require.NotNil(t, a.Solution)
	switch a.Solution.Kind {
	case symmetry.Resolved:
		assert.NotEmpty(t, a.Basis)
		for _, v := range a.Validations {
			assert.True(t, v.OK, v.Generator.String())
		}
	case symmetry.PartiallyReduced:
		assert.NotEmpty(t, a.Solution.Reason)
		assert.Equal(t, symmetry.StateUnsolved, a.State)
	}
}

func TestDerivationErrors(t *testing.T) {
	sys := exponential(t)
	var derr *symmetry.DerivationError

	_, err := symmetry.Validator{}.Validate(symmetry.NewWorkspace(), sys, symmetry.NewGenerator(sys, nil, symbolic.S("x"), symbolic.S("x")))
	require.True(t, errors.As(err, &derr), "%v", err)
	assert.Equal(t, "validate", derr.Stage)

	gen := symmetry.NewGenerator(sys, nil, symbolic.S("q"))
	_, err = symmetry.Deriver{}.Derive(symmetry.NewWorkspace(), sys, gen)
	assert.Error(t, err)

	other := &symmetry.Generator{Time: "s", States: []string{"x"}, Xi: symbolic.N(1), Eta: []symbolic.Expr{symbolic.N(0)}}
	_, err = symmetry.Validator{}.Validate(symmetry.NewWorkspace(), sys, other)
	assert.True(t, errors.As(err, &derr), "%v", err)
}

func TestMalformedSystem(t *testing.T) {
	_, err := model.Parse("empty", "t", nil, nil, nil)
	var malformed *model.MalformedSystemError
	require.True(t, errors.As(err, &malformed), "%v", err)
	assert.Equal(t, "no state variables", malformed.Reason)
}

func TestOperators(t *testing.T) {
	sys := exponential(t)
	ws := symmetry.NewWorkspace()

	d, err := symmetry.TotalDerivative(ws, sys, symbolic.MustParse("x^2 + t"))
	require.NoError(t, err)
	assert.True(t, symbolic.IsZero(symbolic.Expand(symbolic.AddOf(d, symbolic.MustParse("-2*x^2 - 1")))), d.String())

	scale := symmetry.NewGenerator(sys, nil, symbolic.S("x"))
	v, err := scale.Apply(ws, symbolic.MustParse("x^3"))
	require.NoError(t, err)
	same(t, "3*x^3", v)

	pro, err := scale.Prolong(ws, sys)
	require.NoError(t, err)
	require.Len(t, pro, 1)
	same(t, "x", pro[0])

	translate := symmetry.NewGenerator(sys, symbolic.N(1), symbolic.N(0))
	translate.Name = "T"
	dilate := symmetry.NewGenerator(sys, symbolic.S("t"), symbolic.N(0))
	dilate.Name = "D"
	br, err := symmetry.LieBracket(ws, translate, dilate)
	require.NoError(t, err)
	assert.Equal(t, "[T, D]", br.Name)
	same(t, "1", br.Xi)
	assert.True(t, symbolic.IsZero(br.Eta[0]))

	br, err = symmetry.LieBracket(ws, translate, scale)
	require.NoError(t, err)
	assert.True(t, br.IsZero())
	assert.Equal(t, "0", br.String())
}

func TestGeneratorJSON(t *testing.T) {
	sys := builtin(t, "gompertz-system")
	g := symmetry.NewGenerator(sys, symbolic.N(0), symbolic.MustParse("W*ln(W)"), symbolic.S("G"))
	g.Name = "X2"
	g.Unknowns = []symmetry.Unknown{{Name: "k_1"}, {Name: "f_1", Args: []string{"t"}}}

	data, err := json.Marshal(g)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"operator"`)

	var back symmetry.Generator
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, g.String(), back.String())
	assert.Equal(t, g.Unknowns, back.Unknowns)

	assert.Error(t, json.Unmarshal([]byte(`{"time":"t","states":["x"],"eta":[]}`), &back))
}

func TestAnalyzeAll(t *testing.T) {
	systems := []*model.System{builtin(t, "exponential"), builtin(t, "saddle"), exponential(t)}
	out, err := symmetry.AnalyzeAll(context.Background(), systems, symmetry.DefaultAnsatzOptions())
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, a := range out {
		assert.Equal(t, systems[i].Name, a.System.Name)
		assert.Equal(t, symmetry.StateValidated, a.State)
	}
	assert.NotEqual(t, out[0].ID, out[2].ID)
}

func TestReport(t *testing.T) {
	a, err := symmetry.Analyze(context.Background(), symmetry.NewWorkspace(), builtin(t, "exponential"), symmetry.DefaultAnsatzOptions())
	require.NoError(t, err)
	r := a.Report()
	assert.Equal(t, a.System.Hash(), r.Hash)
	require.NotNil(t, r.Outcome)
	assert.Equal(t, symmetry.Resolved, r.Outcome.Kind)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	var back symmetry.Report
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, symmetry.StateValidated, back.State)
	assert.Equal(t, r.Outcome.Free, back.Outcome.Free)
	assert.Len(t, back.Candidates, len(a.Candidates))

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))
	assert.Contains(t, buf.String(), "System exponential [validated]")
	assert.Contains(t, buf.String(), "Outcome: resolved")
	assert.Contains(t, buf.String(), "Candidates:")
}
