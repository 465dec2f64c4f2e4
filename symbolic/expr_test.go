package symbolic_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/njchilds90/liesym/symbolic"
)

// ============================================================
// Num tests
// ============================================================

func TestNum_Integer(t *testing.T) {
	n := symbolic.N(42)
	if n.String() != "42" {
		t.Errorf("want 42, got %s", n.String())
	}
}

func TestNum_Rational(t *testing.T) {
	n := symbolic.F(1, 3)
	if n.String() != "1/3" {
		t.Errorf("want 1/3, got %s", n.String())
	}
}

func TestNum_LaTeX_Rational(t *testing.T) {
	n := symbolic.F(2, 5)
	if n.LaTeX() != `\frac{2}{5}` {
		t.Errorf("want \\frac{2}{5}, got %s", n.LaTeX())
	}
}

func TestNum_Diff_IsZero(t *testing.T) {
	result := symbolic.N(5).Diff("x")
	if symbolic.String(result) != "0" {
		t.Errorf("d/dx(5) should be 0, got %s", symbolic.String(result))
	}
}

// ============================================================
// Sym tests
// ============================================================

func TestSym_Sub(t *testing.T) {
	x := symbolic.S("x")
	if got := symbolic.String(x.Sub("x", symbolic.N(3))); got != "3" {
		t.Errorf("want 3, got %s", got)
	}
	if got := symbolic.String(x.Sub("y", symbolic.N(3))); got != "x" {
		t.Errorf("want x, got %s", got)
	}
}

func TestSym_LaTeX(t *testing.T) {
	cases := map[string]string{
		"alpha_M": `\alpha_{M}`,
		"eta1":    `\eta^{1}`,
		"x2":      "x2",
		"W":       "W",
	}
	for name, want := range cases {
		if got := symbolic.S(name).LaTeX(); got != want {
			t.Errorf("LaTeX(%s): want %s, got %s", name, want, got)
		}
	}
}

// ============================================================
// Add tests
// ============================================================

func TestAdd_Simple(t *testing.T) {
	expr := symbolic.AddOf(symbolic.S("x"), symbolic.N(3))
	if symbolic.String(expr) != "x + 3" {
		t.Errorf("want 'x + 3', got %s", symbolic.String(expr))
	}
}

func TestAdd_CollapseToZero(t *testing.T) {
	expr := symbolic.AddOf(symbolic.N(1), symbolic.N(-1))
	if symbolic.String(expr) != "0" {
		t.Errorf("want 0, got %s", symbolic.String(expr))
	}
}

func TestAdd_LikeTerms(t *testing.T) {
	x, y := symbolic.S("x"), symbolic.S("y")
	expr := symbolic.AddOf(
		symbolic.MulOf(symbolic.N(2), x, y),
		symbolic.MulOf(y, x),
		symbolic.MulOf(symbolic.N(-3), x, y),
	)
	if symbolic.String(expr) != "0" {
		t.Errorf("2xy + yx - 3xy should be 0, got %s", symbolic.String(expr))
	}
}

func TestAdd_NegativeTerm(t *testing.T) {
	expr := symbolic.AddOf(symbolic.S("x"), symbolic.MulOf(symbolic.N(-1), symbolic.S("y")))
	if symbolic.String(expr) != "x - y" {
		t.Errorf("want 'x - y', got %s", symbolic.String(expr))
	}
}

func TestAdd_Diff(t *testing.T) {
	// d/dx(x^2 + 3x + 1) = 2x + 3
	x := symbolic.S("x")
	expr := symbolic.AddOf(symbolic.PowOf(x, symbolic.N(2)), symbolic.MulOf(symbolic.N(3), x), symbolic.N(1))
	d := symbolic.Diff(expr, "x")
	if symbolic.String(d) != "2*x + 3" {
		t.Errorf("want '2*x + 3', got %s", symbolic.String(d))
	}
}

// ============================================================
// Mul tests
// ============================================================

func TestMul_Simple(t *testing.T) {
	expr := symbolic.MulOf(symbolic.N(2), symbolic.S("x"), symbolic.N(3), symbolic.S("y"))
	if symbolic.String(expr) != "6*x*y" {
		t.Errorf("want '6*x*y', got %s", symbolic.String(expr))
	}
}

func TestMul_ZeroCollapse(t *testing.T) {
	expr := symbolic.MulOf(symbolic.N(0), symbolic.S("x"))
	if symbolic.String(expr) != "0" {
		t.Errorf("0*x should be 0, got %s", symbolic.String(expr))
	}
}

func TestMul_MergesBases(t *testing.T) {
	x := symbolic.S("x")
	if got := symbolic.String(symbolic.MulOf(x, x)); got != "x^2" {
		t.Errorf("x*x should be x^2, got %s", got)
	}
	if got := symbolic.String(symbolic.MulOf(x, symbolic.PowOf(x, symbolic.N(-1)))); got != "1" {
		t.Errorf("x*x^-1 should be 1, got %s", got)
	}
}

func TestMul_ProductRule(t *testing.T) {
	x := symbolic.S("x")
	d := symbolic.Diff(symbolic.MulOf(x, x), "x")
	if symbolic.String(d) != "2*x" {
		t.Errorf("d/dx(x*x) should be 2*x, got %s", symbolic.String(d))
	}
}

// ============================================================
// Pow tests
// ============================================================

func TestPow_Simplify(t *testing.T) {
	x := symbolic.S("x")
	cases := []struct {
		name string
		expr symbolic.Expr
		want string
	}{
		{"simple", symbolic.PowOf(x, symbolic.N(2)), "x^2"},
		{"zero exponent", symbolic.PowOf(x, symbolic.N(0)), "1"},
		{"unit exponent", symbolic.PowOf(x, symbolic.N(1)), "x"},
		{"numeric", symbolic.PowOf(symbolic.N(2), symbolic.N(3)), "8"},
		{"nested", symbolic.PowOf(symbolic.PowOf(x, symbolic.N(2)), symbolic.N(3)), "x^6"},
		{"product base", symbolic.PowOf(symbolic.MulOf(symbolic.N(2), x), symbolic.N(2)), "4*x^2"},
		{"negative exponent", symbolic.PowOf(x, symbolic.N(-1)), "x^(-1)"},
	}
	for _, tc := range cases {
		if got := symbolic.String(tc.expr); got != tc.want {
			t.Errorf("%s: want %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestPow_Diff_PowerRule(t *testing.T) {
	d := symbolic.Diff(symbolic.PowOf(symbolic.S("x"), symbolic.N(3)), "x")
	if symbolic.String(d) != "3*x^2" {
		t.Errorf("d/dx(x^3) should be 3*x^2, got %s", symbolic.String(d))
	}
}

func TestPow_LaTeX(t *testing.T) {
	expr := symbolic.PowOf(symbolic.S("x"), symbolic.N(2))
	if expr.LaTeX() != "x^{2}" {
		t.Errorf("want x^{2}, got %s", expr.LaTeX())
	}
}

// ============================================================
// Func tests
// ============================================================

func TestFunc_Diff(t *testing.T) {
	x := symbolic.S("x")
	cases := []struct {
		expr symbolic.Expr
		want string
	}{
		{symbolic.SinOf(x), "cos(x)"},
		{symbolic.CosOf(x), "-sin(x)"},
		{symbolic.ExpOf(x), "exp(x)"},
		{symbolic.LnOf(x), "x^(-1)"},
	}
	for _, tc := range cases {
		if got := symbolic.String(symbolic.Diff(tc.expr, "x")); got != tc.want {
			t.Errorf("d/dx(%s): want %s, got %s", tc.expr, tc.want, got)
		}
	}
}

func TestFunc_Identities(t *testing.T) {
	x := symbolic.S("x")
	if got := symbolic.String(symbolic.SinOf(symbolic.N(0))); got != "0" {
		t.Errorf("sin(0) should be 0, got %s", got)
	}
	if got := symbolic.String(symbolic.LnOf(symbolic.ExpOf(x))); got != "x" {
		t.Errorf("ln(exp(x)) should be x, got %s", got)
	}
}

func TestFunc_LaTeX_Sin(t *testing.T) {
	l := symbolic.SinOf(symbolic.S("x")).LaTeX()
	if !strings.Contains(l, `\sin`) {
		t.Errorf("LaTeX for sin should contain \\sin, got %s", l)
	}
}

func TestFuncOf_Unknown(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("FuncOf(erf) should panic")
		}
	}()
	symbolic.FuncOf("erf", symbolic.S("x"))
}

// ============================================================
// Function tests
// ============================================================

func TestFunction_Diff(t *testing.T) {
	f := symbolic.Fn("f", "t")
	if got := symbolic.String(symbolic.Diff(f, "t")); got != "f'(t)" {
		t.Errorf("want f'(t), got %s", got)
	}
	if got := symbolic.String(symbolic.DiffN(f, "t", 2)); got != "f''(t)" {
		t.Errorf("want f''(t), got %s", got)
	}
	if got := symbolic.String(symbolic.Diff(f, "x")); got != "0" {
		t.Errorf("d/dx f(t) should be 0, got %s", got)
	}
}

func TestFunction_MultiIndex(t *testing.T) {
	eta := symbolic.Fn("eta1", "t", "x")
	d := symbolic.Diff(symbolic.Diff(eta, "x"), "t")
	if got := symbolic.String(d); got != "eta1_tx(t, x)" {
		t.Errorf("want eta1_tx(t, x), got %s", got)
	}
	l := symbolic.Diff(eta, "x").LaTeX()
	if l != `\eta^{1}_{x}\left(t, x\right)` {
		t.Errorf("unexpected LaTeX %s", l)
	}
	fn, ok := d.(*symbolic.Function)
	if !ok {
		t.Fatalf("want *Function, got %T", d)
	}
	if fn.Order() != 2 || !fn.Base().Equal(eta) {
		t.Errorf("order %d base %s", fn.Order(), fn.Base())
	}
}

func TestReplaceFunction(t *testing.T) {
	// x*f'(x) - f(x) vanishes for f = c*x
	x := symbolic.S("x")
	f := symbolic.Fn("f", "x")
	cond := symbolic.AddOf(symbolic.MulOf(x, symbolic.Diff(f, "x")), symbolic.MulOf(symbolic.N(-1), f))
	if _, ok := symbolic.FreeFunctions(cond)["f"]; !ok {
		t.Fatalf("f should be a free function of %s", cond)
	}
	got := symbolic.ReplaceFunction(cond, "f", symbolic.MulOf(symbolic.S("c"), x))
	if !symbolic.IsZero(got) {
		t.Errorf("want 0, got %s", got)
	}
}

// ============================================================
// Expand tests
// ============================================================

func TestExpand_Distribution(t *testing.T) {
	x := symbolic.S("x")
	expr := symbolic.MulOf(
		symbolic.AddOf(x, symbolic.N(1)),
		symbolic.AddOf(x, symbolic.N(2)),
	)
	if got := symbolic.String(symbolic.Expand(expr)); got != "3*x + x^2 + 2" {
		t.Errorf("expanded (x+1)(x+2): got %s", got)
	}
}

func TestExpand_Square(t *testing.T) {
	x := symbolic.S("x")
	expr := symbolic.PowOf(symbolic.AddOf(x, symbolic.N(1)), symbolic.N(2))
	if got := symbolic.String(symbolic.Expand(expr)); got != "2*x + x^2 + 1" {
		t.Errorf("expanded (x+1)^2: got %s", got)
	}
}

func TestExpand_PowersOfNonSums(t *testing.T) {
	tests := []struct{ in, want string }{
		{"x^2", "x^2"},
		{"x^2*(x + 1)", "x^3 + x^2"},
		{"(x*y)^3", "(x*y)^3"},
		{"x^2*(x + 1)^2", "x^4 + 2*x^3 + x^2"},
	}
	for _, tt := range tests {
		got := symbolic.String(symbolic.Expand(symbolic.MustParse(tt.in)))
		want := symbolic.String(symbolic.MustParse(tt.want))
		if got != want {
			t.Errorf("Expand(%s): got %s, want %s", tt.in, got, want)
		}
	}
}

// ============================================================
// FreeSymbols tests
// ============================================================

func TestFreeSymbols(t *testing.T) {
	expr := symbolic.AddOf(symbolic.S("x"), symbolic.MulOf(symbolic.S("y"), symbolic.N(2)))
	syms := symbolic.FreeSymbols(expr)
	if _, ok := syms["x"]; !ok {
		t.Error("expected x in free symbols")
	}
	if _, ok := syms["y"]; !ok {
		t.Error("expected y in free symbols")
	}
	if len(syms) != 2 {
		t.Errorf("expected 2 free symbols, got %d", len(syms))
	}
}

func TestSortedSymbols_IncludesFunctionArgs(t *testing.T) {
	expr := symbolic.AddOf(symbolic.MulOf(symbolic.S("y"), symbolic.Fn("f", "t")), symbolic.S("x"))
	got := strings.Join(symbolic.SortedSymbols(expr), ",")
	if got != "t,x,y" {
		t.Errorf("want t,x,y, got %s", got)
	}
}

// ============================================================
// JSON tests
// ============================================================

func TestToJSON_Num(t *testing.T) {
	j, err := symbolic.ToJSON(symbolic.N(3))
	if err != nil {
		t.Fatalf("ToJSON error: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(j), &m); err != nil {
		t.Fatal(err)
	}
	if m["type"] != "num" {
		t.Errorf("expected type=num, got %v", m["type"])
	}
}

func TestJSON_RoundTrip(t *testing.T) {
	exprs := []symbolic.Expr{
		symbolic.AddOf(symbolic.MulOf(symbolic.N(2), symbolic.S("x")), symbolic.N(1)),
		symbolic.MustParse("a*exp(-k*t) + f(t)^2"),
		symbolic.Diff(symbolic.Fn("eta1", "t", "x"), "x"),
	}
	for _, original := range exprs {
		j, err := symbolic.ToJSON(original)
		if err != nil {
			t.Fatalf("ToJSON error: %v", err)
		}
		rebuilt, err := symbolic.ParseJSON([]byte(j))
		if err != nil {
			t.Fatalf("ParseJSON error: %v", err)
		}
		if symbolic.String(rebuilt) != symbolic.String(original) {
			t.Errorf("round-trip mismatch: %s != %s", symbolic.String(rebuilt), symbolic.String(original))
		}
	}
}

func TestFromJSON_RejectsUnknownFunc(t *testing.T) {
	_, err := symbolic.ParseJSON([]byte(`{"type":"func","name":"erf","arg":{"type":"sym","name":"x"}}`))
	if err == nil {
		t.Error("expected error for unknown elementary function")
	}
}

// ============================================================
// Equation tests
// ============================================================

func TestEquation_Residual(t *testing.T) {
	eq := symbolic.Eq(symbolic.S("x"), symbolic.N(5))
	if eq.String() != "x = 5" {
		t.Errorf("want 'x = 5', got %s", eq.String())
	}
	if got := symbolic.String(eq.Residual()); got != "x - 5" {
		t.Errorf("want 'x - 5', got %s", got)
	}
}

func TestDiffN(t *testing.T) {
	d4 := symbolic.DiffN(symbolic.PowOf(symbolic.S("x"), symbolic.N(4)), "x", 4)
	if symbolic.String(d4) != "24" {
		t.Errorf("d^4/dx^4(x^4) should be 24, got %s", symbolic.String(d4))
	}
}

func TestEqual_CrossType(t *testing.T) {
	if symbolic.N(1).Equal(symbolic.S("x")) {
		t.Error("N(1) should not equal S(x)")
	}
	if !symbolic.Fn("f", "t").Equal(symbolic.Fn("f", "t")) {
		t.Error("f(t) should equal f(t)")
	}
}

// ============================================================
// Determinism test
// ============================================================

func TestDeterminism(t *testing.T) {
	for i := 0; i < 10; i++ {
		expr := symbolic.AddOf(symbolic.S("z"), symbolic.S("a"), symbolic.S("m"), symbolic.N(1))
		if got := symbolic.String(expr); got != "a + m + z + 1" {
			t.Errorf("non-deterministic output on iteration %d: %s", i, got)
		}
	}
}
