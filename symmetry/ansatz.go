package symmetry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/njchilds90/liesym/model"
	"github.com/njchilds90/liesym/symbolic"
)

// AnsatzForm selects the shape of the generator coefficients.
type AnsatzForm int

const (
	// PolynomialForm uses polynomials with unknown constant coefficients
	// c_i_j.
	PolynomialForm AnsatzForm = iota
	// FunctionForm uses polynomials in the states whose coefficients are
	// unknown functions f_k(t) of time.
	FunctionForm
)

func (f AnsatzForm) String() string {
	switch f {
	case PolynomialForm:
		return "polynomial"
	case FunctionForm:
		return "function"
	}
	return fmt.Sprintf("AnsatzForm(%d)", int(f))
}

func (f AnsatzForm) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *AnsatzForm) UnmarshalText(b []byte) error {
	v, err := ParseAnsatzForm(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// ParseAnsatzForm reads "polynomial" or "function".
func ParseAnsatzForm(s string) (AnsatzForm, error) {
	switch s {
	case "", "polynomial", "poly":
		return PolynomialForm, nil
	case "function", "quasi-linear":
		return FunctionForm, nil
	}
	return 0, fmt.Errorf("unknown ansatz form %q", s)
}

// AnsatzOptions configures Builder.Build. Start from DefaultAnsatzOptions;
// the zero value excludes ξ.
type AnsatzOptions struct {
	// Degree is the total degree of the coefficient polynomials; 0 gives
	// constant coefficients.
	Degree int `json:"degree"`
	// DependsOn maps a component, the time symbol for ξ or a state name for
	// its η, to the variables its coefficient may depend on. Components
	// not listed depend on time and every state.
	DependsOn map[string][]string `json:"depends_on,omitempty"`
	// IncludeTime adds ξ to the ansatz; otherwise ξ = 0.
	IncludeTime bool       `json:"include_time"`
	Form        AnsatzForm `json:"form"`
}

// DefaultAnsatzOptions is a linear polynomial ansatz including ξ.
func DefaultAnsatzOptions() AnsatzOptions {
	return AnsatzOptions{Degree: 1, IncludeTime: true}
}

// Key is a stable string of the options, used in cache keys.
func (o AnsatzOptions) Key() string {
	comps := make([]string, 0, len(o.DependsOn))
	for c := range o.DependsOn {
		comps = append(comps, c)
	}
	sort.Strings(comps)
	s := fmt.Sprintf("degree=%d;time=%t;form=%s", o.Degree, o.IncludeTime, o.Form)
	for _, c := range comps {
		s += fmt.Sprintf(";%s=%v", c, o.DependsOn[c])
	}
	return s
}

// Builder builds ansatz generators.
type Builder struct{}

// Build returns the ansatz generator for sys. Unknown constants are named
// c_i_j, where i numbers the component (1 for ξ, 1+k for the k-th state)
// and j the monomial in graded lexicographic order; unknown functions are
// named f_1, f_2, ... in component order.
func (Builder) Build(ws *Workspace, sys *model.System, opts AnsatzOptions) (*Generator, error) {
	if opts.Degree < 0 {
		return nil, fmt.Errorf("%w: degree %d is negative", ErrInvalidOptions, opts.Degree)
	}
	coords := append([]string{sys.Time}, sys.StateNames()...)
	for comp, vars := range opts.DependsOn {
		if comp != sys.Time {
			if _, ok := sys.StateIndex(comp); !ok {
				return nil, &model.MalformedSystemError{System: sys.Name, Reason: fmt.Sprintf("dependence set for unknown component %q", comp)}
			}
		}
		for _, v := range vars {
			if !contains(coords, v) {
				return nil, &model.MalformedSystemError{System: sys.Name, Reason: fmt.Sprintf("component %q cannot depend on %q", comp, v)}
			}
		}
	}
	if err := ws.Bind(sys); err != nil {
		return nil, err
	}

	gen := &Generator{Time: sys.Time, States: sys.StateNames(), Xi: symbolic.N(0)}
	functions := 0
	for i, comp := range coords {
		if i == 0 && !opts.IncludeTime {
			continue
		}
		vars := coords
		if dep, ok := opts.DependsOn[comp]; ok {
			vars = ordered(coords, dep)
			if gen.DependsOn == nil {
				gen.DependsOn = map[string][]string{}
			}
			gen.DependsOn[comp] = vars
		}
		var coeff symbolic.Expr
		var unknowns []Unknown
		switch opts.Form {
		case FunctionForm:
			coeff, unknowns = functionCoefficient(sys.Time, vars, opts.Degree, i+1, &functions)
		default:
			coeff, unknowns = polynomialCoefficient(vars, opts.Degree, i+1)
		}
		gen.Unknowns = append(gen.Unknowns, unknowns...)
		if i == 0 {
			gen.Xi = coeff
		} else {
			gen.Eta = append(gen.Eta, coeff)
		}
	}
	if err := ws.declareUnknowns(gen); err != nil {
		return nil, err
	}
	ws.Logger.Debug("ansatz built",
		slog.String("stage", "build"),
		slog.String("system", sys.Name),
		slog.String("form", opts.Form.String()),
		slog.Int("unknowns", len(gen.Unknowns)),
	)
	return gen, nil
}

func polynomialCoefficient(vars []string, degree, row int) (symbolic.Expr, []Unknown) {
	monos := Monomials(vars, degree)
	terms := make([]symbolic.Expr, len(monos))
	unknowns := make([]Unknown, len(monos))
	for j, m := range monos {
		c := Unknown{Name: fmt.Sprintf("c_%d_%d", row, j+1)}
		unknowns[j] = c
		terms[j] = symbolic.MulOf(c.Expr(), m)
	}
	return symbolic.AddOf(terms...), unknowns
}

// functionCoefficient multiplies every monomial in the non-time variables
// by its own function of time. Without time in vars it falls back to
// constants.
func functionCoefficient(time string, vars []string, degree, row int, counter *int) (symbolic.Expr, []Unknown) {
	if !contains(vars, time) {
		return polynomialCoefficient(vars, degree, row)
	}
	var rest []string
	for _, v := range vars {
		if v != time {
			rest = append(rest, v)
		}
	}
	monos := Monomials(rest, degree)
	terms := make([]symbolic.Expr, len(monos))
	unknowns := make([]Unknown, len(monos))
	for j, m := range monos {
		*counter++
		f := Unknown{Name: fmt.Sprintf("f_%d", *counter), Args: []string{time}}
		unknowns[j] = f
		terms[j] = symbolic.MulOf(f.Expr(), m)
	}
	return symbolic.AddOf(terms...), unknowns
}

// Monomials lists the monomials in vars of total degree at most degree in
// graded lexicographic order: by degree, then by the exponent of the last
// variable, then the one before it. For (t, x) and degree 2 the order is
// 1, t, x, t^2, t*x, x^2.
func Monomials(vars []string, degree int) []symbolic.Expr {
	var exps [][]int
	var rec func(prefix []int, left int)
	rec = func(prefix []int, left int) {
		if len(prefix) == len(vars) {
			exps = append(exps, append([]int(nil), prefix...))
			return
		}
		for e := 0; e <= left; e++ {
			rec(append(prefix, e), left-e)
		}
	}
	rec(nil, degree)
	sort.SliceStable(exps, func(a, b int) bool {
		da, db := sum(exps[a]), sum(exps[b])
		if da != db {
			return da < db
		}
		for k := len(vars) - 1; k >= 0; k-- {
			if exps[a][k] != exps[b][k] {
				return exps[a][k] < exps[b][k]
			}
		}
		return false
	})
	out := make([]symbolic.Expr, len(exps))
	for i, ex := range exps {
		factors := []symbolic.Expr{symbolic.N(1)}
		for k, e := range ex {
			if e > 0 {
				factors = append(factors, symbolic.PowOf(symbolic.S(vars[k]), symbolic.N(int64(e))))
			}
		}
		out[i] = symbolic.MulOf(factors...)
	}
	return out
}

func sum(xs []int) int {
	n := 0
	for _, x := range xs {
		n += x
	}
	return n
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ordered returns the members of subset in the order they have in all.
func ordered(all, subset []string) []string {
	var out []string
	for _, v := range all {
		if contains(subset, v) {
			out = append(out, v)
		}
	}
	return out
}
