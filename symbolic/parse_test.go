package symbolic_test

import (
	"errors"
	"testing"

	"github.com/njchilds90/liesym/symbolic"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2*x + 3", "2*x + 3"},
		{"x^2", "x^2"},
		{"2**3", "8"},
		{"-x^2", "-x^2"},
		{"2^-1", "1/2"},
		{"x/2", "(1/2)*x"},
		{"0.5*x", "(1/2)*x"},
		{"a*x - b*x*y", "a*x - b*x*y"},
		{"exp(-k*t)", "exp(-k*t)"},
		{"log(W)", "ln(W)"},
		{"sqrt(x)", "x^(1/2)"},
		{"(x + 1)*(x + 1)", "(x + 1)^2"},
		{"f(t)", "f(t)"},
		{"  +x  ", "x"},
	}
	for _, tc := range cases {
		got, err := symbolic.Parse(tc.in)
		if err != nil {
			t.Errorf("Parse(%q): %v", tc.in, err)
			continue
		}
		if got.String() != tc.want {
			t.Errorf("Parse(%q): want %s, got %s", tc.in, tc.want, got)
		}
	}
}

func TestParse_Division(t *testing.T) {
	x, y := symbolic.S("x"), symbolic.S("y")
	got := symbolic.MustParse("x/y")
	want := symbolic.MulOf(x, symbolic.PowOf(y, symbolic.N(-1)))
	if !got.Equal(want) {
		t.Errorf("want %s, got %s", want, got)
	}
}

func TestParse_Errors(t *testing.T) {
	inputs := []string{
		"",
		"x +",
		"2*(x",
		"x y",
		"x $ y",
		"1/0",
		"f(x + 1)",
		"sin(x, y)",
		"sqrt()",
	}
	for _, in := range inputs {
		_, err := symbolic.Parse(in)
		if err == nil {
			t.Errorf("Parse(%q) should fail", in)
			continue
		}
		if !errors.Is(err, symbolic.ErrSyntax) {
			t.Errorf("Parse(%q): error %v should wrap ErrSyntax", in, err)
		}
	}
}

func TestParse_ErrorPosition(t *testing.T) {
	_, err := symbolic.Parse("x $ y")
	var se *symbolic.SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("want *SyntaxError, got %T", err)
	}
	if se.Pos != 2 {
		t.Errorf("want offset 2, got %d", se.Pos)
	}
}

func TestMustParse_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParse should panic on bad input")
		}
	}()
	symbolic.MustParse("(")
}
