package symmetry

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/njchilds90/liesym/internal/algebra"
	"github.com/njchilds90/liesym/model"
	"github.com/njchilds90/liesym/symbolic"
)

// Unknown is an arbitrary constant (c_1_2, k_1) or an arbitrary function
// (f_3(t)) occurring in a generator.
type Unknown struct {
	Name string
	// Args is empty for constants.
	Args []string
}

// IsFunction reports whether u is an unknown function.
func (u Unknown) IsFunction() bool { return len(u.Args) > 0 }

// Expr is u as an expression.
func (u Unknown) Expr() symbolic.Expr {
	if u.IsFunction() {
		return symbolic.Fn(u.Name, u.Args...)
	}
	return symbolic.S(u.Name)
}

func (u Unknown) String() string { return u.Expr().String() }

// Generator is an infinitesimal generator X = Xi ∂_t + Σ Eta[i] ∂_{States[i]}.
type Generator struct {
	Name   string
	Time   string
	States []string
	Xi     symbolic.Expr
	Eta    []symbolic.Expr
	// Unknowns lists the arbitrary constants and functions the coefficients
	// contain.
	Unknowns []Unknown
	// DependsOn restricts the coordinates a component's coefficient may
	// depend on, keyed by the time symbol or a state name. Build copies it
	// from the ansatz options; unlisted components depend on every
	// coordinate.
	DependsOn map[string][]string
}

// NewGenerator returns a concrete generator for sys.
func NewGenerator(sys *model.System, xi symbolic.Expr, eta ...symbolic.Expr) *Generator {
	if xi == nil {
		xi = symbolic.N(0)
	}
	return &Generator{Time: sys.Time, States: sys.StateNames(), Xi: xi, Eta: eta}
}

// FromCandidate wraps a candidate generator attached to sys.
func FromCandidate(sys *model.System, c model.Candidate) *Generator {
	g := NewGenerator(sys, c.Xi, c.Eta...)
	g.Name = c.Name
	return g
}

// Components returns Xi followed by the Eta coefficients.
func (g *Generator) Components() []symbolic.Expr {
	return append([]symbolic.Expr{g.Xi}, g.Eta...)
}

// IsZero reports whether every coefficient is identically zero.
func (g *Generator) IsZero() bool {
	for _, c := range g.Components() {
		if !symbolic.IsZero(c) {
			return false
		}
	}
	return true
}

// withComponents returns a copy of g with new coefficients.
func (g *Generator) withComponents(comps []symbolic.Expr, unknowns []Unknown) *Generator {
	return &Generator{
		Name:     g.Name,
		Time:     g.Time,
		States:   append([]string(nil), g.States...),
		Xi:       comps[0],
		Eta:      append([]symbolic.Expr(nil), comps[1:]...),
		Unknowns: unknowns,
	}
}

// Coordinates returns the time symbol followed by the states.
func (g *Generator) Coordinates() []string {
	return append([]string{g.Time}, g.States...)
}

// String prints X in operator notation, for example "W*ln(W) d/dW + G d/dG".
func (g *Generator) String() string {
	var parts []string
	for i, c := range g.Components() {
		if symbolic.IsZero(c) {
			continue
		}
		coeff := c.String()
		if _, ok := c.(*symbolic.Add); ok {
			coeff = "(" + coeff + ")"
		}
		parts = append(parts, coeff+" d/d"+g.Coordinates()[i])
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, " + ")
}

// LaTeX prints X as \xi \partial_t + ...
func (g *Generator) LaTeX() string {
	var parts []string
	for i, c := range g.Components() {
		if symbolic.IsZero(c) {
			continue
		}
		parts = append(parts, "\\left("+c.LaTeX()+"\\right) \\partial_{"+g.Coordinates()[i]+"}")
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, " + ")
}

// checkShape verifies that g was built for sys.
func (g *Generator) checkShape(stage string, sys *model.System) error {
	if len(g.Eta) != len(sys.States) {
		return derivationError(stage, nil, "generator has %d eta components, system %q has %d states", len(g.Eta), sys.Name, len(sys.States))
	}
	if g.Time != "" && g.Time != sys.Time {
		return derivationError(stage, nil, "generator is built on time %q, system %q uses %q", g.Time, sys.Name, sys.Time)
	}
	for i, s := range g.States {
		if i < len(sys.States) && s != sys.States[i].Name {
			return derivationError(stage, nil, "generator component %d is for state %q, system %q has %q", i+1, s, sys.Name, sys.States[i].Name)
		}
	}
	if g.Xi == nil {
		return derivationError(stage, nil, "generator has no xi component")
	}
	for i, e := range g.Eta {
		if e == nil {
			return derivationError(stage, nil, "generator has no eta component %d", i+1)
		}
	}
	return nil
}

// normalComponents converts the coefficients to normal form.
func (g *Generator) normalComponents(ws *Workspace, stage string) ([]algebra.Frac, error) {
	comps := g.Components()
	out := make([]algebra.Frac, len(comps))
	for i, c := range comps {
		f, err := ws.normal(stage, c)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// ============================================================
// Operators
// ============================================================

// applyFrac computes X(f) = ξ ∂_t f + Σ η_j ∂_{x_j} f.
func applyFrac(ws *Workspace, coords []string, comps []algebra.Frac, f algebra.Frac) (algebra.Frac, error) {
	out := algebra.Frac{}
	for k, name := range coords {
		if comps[k].IsZero() {
			continue
		}
		d, err := ws.Ring.Diff(f, name)
		if err != nil {
			return algebra.Frac{}, err
		}
		out = out.Add(comps[k].Mul(d))
	}
	return out, nil
}

// totalDerivative computes D_t f = ∂_t f + Σ ω_j ∂_{x_j} f.
func totalDerivative(ws *Workspace, time string, states []string, omega []algebra.Frac, f algebra.Frac) (algebra.Frac, error) {
	out, err := ws.Ring.Diff(f, time)
	if err != nil {
		return algebra.Frac{}, err
	}
	for j, s := range states {
		d, err := ws.Ring.Diff(f, s)
		if err != nil {
			return algebra.Frac{}, err
		}
		out = out.Add(omega[j].Mul(d))
	}
	return out, nil
}

// rhsFracs binds sys and returns its right-hand sides in normal form.
func rhsFracs(ws *Workspace, stage string, sys *model.System) ([]algebra.Frac, error) {
	if err := ws.Bind(sys); err != nil {
		return nil, err
	}
	out := make([]algebra.Frac, len(sys.States))
	for i, st := range sys.States {
		f, err := ws.normal(stage, st.RHS)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// TotalDerivative returns D_t f on the solution manifold of sys.
func TotalDerivative(ws *Workspace, sys *model.System, f symbolic.Expr) (symbolic.Expr, error) {
	omega, err := rhsFracs(ws, "total derivative", sys)
	if err != nil {
		return nil, err
	}
	if _, err := ws.Ring.DeclareMissing(f, algebra.RoleFree); err != nil {
		return nil, derivationError("total derivative", err, "declare symbols of %s", f)
	}
	nf, err := ws.normal("total derivative", f)
	if err != nil {
		return nil, err
	}
	d, err := totalDerivative(ws, sys.Time, sys.StateNames(), omega, nf)
	if err != nil {
		return nil, derivationError("total derivative", err, "differentiate %s", f)
	}
	return ws.expr(d), nil
}

// Apply returns X(f).
func (g *Generator) Apply(ws *Workspace, f symbolic.Expr) (symbolic.Expr, error) {
	if err := ws.bindNames(g.Time, g.States); err != nil {
		return nil, err
	}
	if err := g.declareFree(ws, f); err != nil {
		return nil, err
	}
	comps, err := g.normalComponents(ws, "apply")
	if err != nil {
		return nil, err
	}
	nf, err := ws.normal("apply", f)
	if err != nil {
		return nil, err
	}
	out, err := applyFrac(ws, g.Coordinates(), comps, nf)
	if err != nil {
		return nil, derivationError("apply", err, "differentiate %s", f)
	}
	return ws.expr(out), nil
}

// declareFree declares the unknowns of g and every other undeclared symbol
// of g and extra as a free constant.
func (g *Generator) declareFree(ws *Workspace, extra ...symbolic.Expr) error {
	if err := ws.declareUnknowns(g); err != nil {
		return err
	}
	for _, e := range append(g.Components(), extra...) {
		if _, err := ws.Ring.DeclareMissing(e, algebra.RoleFree); err != nil {
			return derivationError("bind", err, "declare symbols of %s", e)
		}
	}
	return nil
}

// prolongFracs returns η_i^(1) = D_t η_i − ω_i D_t ξ for every state.
func prolongFracs(ws *Workspace, sys *model.System, omega, comps []algebra.Frac) ([]algebra.Frac, error) {
	states := sys.StateNames()
	dxi, err := totalDerivative(ws, sys.Time, states, omega, comps[0])
	if err != nil {
		return nil, err
	}
	out := make([]algebra.Frac, len(states))
	for i := range states {
		deta, err := totalDerivative(ws, sys.Time, states, omega, comps[i+1])
		if err != nil {
			return nil, err
		}
		out[i] = deta.Sub(omega[i].Mul(dxi))
	}
	return out, nil
}

// Prolong returns the coefficients of the first prolongation of g, the
// components of ∂_{x_i'}, evaluated on the solution manifold of sys.
func (g *Generator) Prolong(ws *Workspace, sys *model.System) ([]symbolic.Expr, error) {
	if err := g.checkShape("prolong", sys); err != nil {
		return nil, err
	}
	omega, err := rhsFracs(ws, "prolong", sys)
	if err != nil {
		return nil, err
	}
	if err := g.declareFree(ws); err != nil {
		return nil, err
	}
	comps, err := g.normalComponents(ws, "prolong")
	if err != nil {
		return nil, err
	}
	pro, err := prolongFracs(ws, sys, omega, comps)
	if err != nil {
		return nil, derivationError("prolong", err, "differentiate generator")
	}
	out := make([]symbolic.Expr, len(pro))
	for i, p := range pro {
		out[i] = ws.expr(p)
	}
	return out, nil
}

// LieBracket returns the commutator [X, Y] with components
// X(Y^k) − Y(X^k) over the coordinates (t, x_1, ..., x_n).
func LieBracket(ws *Workspace, x, y *Generator) (*Generator, error) {
	if x.Time != y.Time || strings.Join(x.States, ",") != strings.Join(y.States, ",") {
		return nil, derivationError("bracket", nil, "generators act on different coordinates")
	}
	if err := ws.bindNames(x.Time, x.States); err != nil {
		return nil, err
	}
	if err := x.declareFree(ws); err != nil {
		return nil, err
	}
	if err := y.declareFree(ws); err != nil {
		return nil, err
	}
	xc, err := x.normalComponents(ws, "bracket")
	if err != nil {
		return nil, err
	}
	yc, err := y.normalComponents(ws, "bracket")
	if err != nil {
		return nil, err
	}
	coords := x.Coordinates()
	comps := make([]symbolic.Expr, len(coords))
	for k := range coords {
		a, err := applyFrac(ws, coords, xc, yc[k])
		if err != nil {
			return nil, derivationError("bracket", err, "apply %s", x)
		}
		b, err := applyFrac(ws, coords, yc, xc[k])
		if err != nil {
			return nil, derivationError("bracket", err, "apply %s", y)
		}
		comps[k] = ws.expr(a.Sub(b))
	}
	out := x.withComponents(comps, nil)
	out.Name = ""
	if x.Name != "" && y.Name != "" {
		out.Name = fmt.Sprintf("[%s, %s]", x.Name, y.Name)
	}
	return out, nil
}

// ============================================================
// JSON
// ============================================================

type generatorJSON struct {
	Name     string   `json:"name,omitempty"`
	Time     string   `json:"time"`
	States   []string `json:"states"`
	Xi       string   `json:"xi"`
	Eta      []string `json:"eta"`
	Unknowns []string `json:"unknowns,omitempty"`
	Operator string   `json:"operator,omitempty"`
	LaTeX    string   `json:"latex,omitempty"`
}

func (g *Generator) MarshalJSON() ([]byte, error) {
	out := generatorJSON{
		Name:     g.Name,
		Time:     g.Time,
		States:   g.States,
		Xi:       g.Xi.String(),
		Operator: g.String(),
		LaTeX:    g.LaTeX(),
	}
	for _, e := range g.Eta {
		out.Eta = append(out.Eta, e.String())
	}
	for _, u := range g.Unknowns {
		out.Unknowns = append(out.Unknowns, u.String())
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the form written by MarshalJSON; coefficients are
// parsed with symbolic.Parse.
func (g *Generator) UnmarshalJSON(data []byte) error {
	var in generatorJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if len(in.Eta) != len(in.States) {
		return fmt.Errorf("generator has %d eta components for %d states", len(in.Eta), len(in.States))
	}
	out := Generator{Name: in.Name, Time: in.Time, States: in.States}
	if out.Time == "" {
		out.Time = model.DefaultTime
	}
	parse := func(s string) (symbolic.Expr, error) {
		if strings.TrimSpace(s) == "" {
			return symbolic.N(0), nil
		}
		return symbolic.Parse(s)
	}
	var err error
	if out.Xi, err = parse(in.Xi); err != nil {
		return fmt.Errorf("generator xi: %w", err)
	}
	for i, s := range in.Eta {
		e, err := parse(s)
		if err != nil {
			return fmt.Errorf("generator eta %d: %w", i+1, err)
		}
		out.Eta = append(out.Eta, e)
	}
	for _, s := range in.Unknowns {
		e, err := symbolic.Parse(s)
		if err != nil {
			return fmt.Errorf("generator unknown: %w", err)
		}
		switch u := e.(type) {
		case *symbolic.Sym:
			out.Unknowns = append(out.Unknowns, Unknown{Name: u.Name()})
		case *symbolic.Function:
			out.Unknowns = append(out.Unknowns, Unknown{Name: u.Name(), Args: u.Args()})
		default:
			return fmt.Errorf("generator unknown %q is neither a symbol nor a function", s)
		}
	}
	*g = out
	return nil
}
