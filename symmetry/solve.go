package symmetry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/njchilds90/liesym/internal/algebra"
	"github.com/njchilds90/liesym/model"
	"github.com/njchilds90/liesym/symbolic"
)

// OutcomeKind tags a Solution.
type OutcomeKind int

const (
	// Resolved: every determining equation is solved and the generator is
	// expressed in free constants.
	Resolved OutcomeKind = iota + 1
	// PartiallyReduced: some equations could not be solved, or the budget
	// ran out. The generator is partially substituted.
	PartiallyReduced
)

func (k OutcomeKind) String() string {
	switch k {
	case Resolved:
		return "resolved"
	case PartiallyReduced:
		return "partially-reduced"
	}
	return fmt.Sprintf("OutcomeKind(%d)", int(k))
}

func (k OutcomeKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *OutcomeKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "resolved":
		*k = Resolved
	case "partially-reduced":
		*k = PartiallyReduced
	default:
		return fmt.Errorf("unknown outcome %q", b)
	}
	return nil
}

// Solution is the outcome of solving a determining system.
type Solution struct {
	Kind   OutcomeKind
	System *model.System
	// Generator is the ansatz with every solved unknown substituted. Its
	// Unknowns are Free.
	Generator *Generator
	// Free lists the arbitrary constants, and for partial outcomes the
	// unknown functions, left in Generator.
	Free []Unknown
	// Reduced holds the unresolved equations of a partial outcome.
	Reduced []symbolic.Expr
	// Assumptions lists expressions that must not vanish, the non-constant
	// pivots used during elimination.
	Assumptions []symbolic.Expr
	Iterations  int
	// Reason explains a partial outcome.
	Reason string

	reduced []algebra.Frac
}

// FreeConstants returns the names of the free constants.
func (s *Solution) FreeConstants() []string {
	var out []string
	for _, u := range s.Free {
		if !u.IsFunction() {
			out = append(out, u.Name)
		}
	}
	return out
}

// Determining returns the determining system left by s: its generator and
// its unresolved equations. Solving it again yields s.
func (s *Solution) Determining() *DeterminingSystem {
	ds := &DeterminingSystem{System: s.System, Generator: s.Generator}
	ds.equations = append(ds.equations, s.reduced...)
	ds.Conditions = append(ds.Conditions, s.Reduced...)
	return ds
}

// Solver solves determining systems.
type Solver struct{}

// solveState tracks the unknowns still to be determined.
type solveState struct {
	ws        *Workspace
	consts    []int
	constSet  map[int]bool
	functions []Unknown
	funcSet   map[string]bool
}

func (s *solveState) unknown(i int) bool {
	if s.constSet[i] {
		return true
	}
	v := s.ws.Ring.Variable(i)
	return v.Role == algebra.RoleFunction && s.funcSet[v.Function]
}

func (s *solveState) removeConst(i int) {
	delete(s.constSet, i)
	for k, c := range s.consts {
		if c == i {
			s.consts = append(s.consts[:k], s.consts[k+1:]...)
			return
		}
	}
}

func (s *solveState) removeFunction(name string) {
	delete(s.funcSet, name)
	for k, f := range s.functions {
		if f.Name == name {
			s.functions = append(s.functions[:k], s.functions[k+1:]...)
			return
		}
	}
}

func (s *solveState) addConst(i int) {
	s.consts = append(s.consts, i)
	s.constSet[i] = true
}

// bound returns the arguments of the remaining unknown functions. They are
// not split by, since the functions depend on them.
func (s *solveState) bound() map[string]bool {
	out := map[string]bool{}
	for _, f := range s.functions {
		for _, a := range f.Args {
			out[a] = true
		}
	}
	return out
}

// columns orders the unknowns for elimination: undifferentiated functions,
// then their derivatives by increasing order, then constants.
func (s *solveState) columns() []int {
	var base, derivs []int
	for _, f := range s.functions {
		for _, i := range s.ws.Ring.FunctionVars(f.Name) {
			if s.ws.Ring.Variable(i).Order == 0 {
				base = append(base, i)
			} else {
				derivs = append(derivs, i)
			}
		}
	}
	sort.SliceStable(derivs, func(a, b int) bool {
		return s.ws.Ring.Variable(derivs[a]).Order < s.ws.Ring.Variable(derivs[b]).Order
	})
	out := append(base, derivs...)
	return append(out, s.consts...)
}

// mentionsFunction reports whether f contains an occurrence of a remaining
// unknown function; with name set, only of that function.
func (s *solveState) mentionsFunction(f algebra.Frac, name string) bool {
	for _, i := range f.Vars() {
		v := s.ws.Ring.Variable(i)
		if v.Role != algebra.RoleFunction || !s.funcSet[v.Function] {
			continue
		}
		if name == "" || v.Function == name {
			return true
		}
	}
	return false
}

// Solve splits the conditions of ds by the independent coordinates and
// kernels, solves the linear equations for the unknowns and substitutes,
// repeating until nothing changes. Equations p·f^(k)(t) = q(t) with p and
// q free of unknown functions and q polynomial in t are integrated.
//
// A proven contradiction, or a zero generator, is reported as
// *UnsolvableSystemError. Context cancellation and the workspace iteration
// budget end the loop with a PartiallyReduced solution.
func (Solver) Solve(ctx context.Context, ws *Workspace, ds *DeterminingSystem) (*Solution, error) {
	gen := ds.Generator
	sys := ds.System
	if err := ws.Bind(sys); err != nil {
		return nil, err
	}
	if err := ws.declareUnknowns(gen); err != nil {
		return nil, err
	}
	comps, err := gen.normalComponents(ws, "solve")
	if err != nil {
		return nil, err
	}

	st := &solveState{ws: ws, constSet: map[int]bool{}, funcSet: map[string]bool{}}
	for _, u := range gen.Unknowns {
		if u.IsFunction() {
			if !st.funcSet[u.Name] {
				st.functions = append(st.functions, u)
				st.funcSet[u.Name] = true
			}
			continue
		}
		i, ok := ws.Ring.Lookup(u.Name)
		if !ok || st.constSet[i] {
			continue
		}
		st.addConst(i)
	}

	eqs := append([]algebra.Frac(nil), ds.equations...)
	assumptions := map[string]algebra.Poly{}
	var assumptionOrder []string
	sol := &Solution{System: sys}
	for {
		if err := ctx.Err(); err != nil {
			sol.Kind, sol.Reason = PartiallyReduced, err.Error()
			break
		}
		pieces, rows := st.split(eqs)
		eqs = pieces
		if len(pieces) == 0 {
			sol.Kind = Resolved
			break
		}
		if sol.Iterations >= ws.MaxIterations {
			sol.Kind, sol.Reason = PartiallyReduced, fmt.Sprintf("iteration budget of %d exhausted", ws.MaxIterations)
			break
		}
		sol.Iterations++
		el, err := algebra.Eliminate(ctx, rows, st.columns())
		if err != nil {
			sol.Kind, sol.Reason = PartiallyReduced, err.Error()
			break
		}
		ws.Logger.Debug("eliminated",
			slog.String("stage", "solve"),
			slog.String("system", sys.Name),
			slog.Int("iteration", sol.Iterations),
			slog.Int("equations", len(pieces)),
			slog.Int("unknowns", len(st.consts)+len(st.functions)),
			slog.Int("rank", el.Rank()),
		)
		if el.Inconsistent {
			return nil, &UnsolvableSystemError{System: sys.Name, Reason: "the determining equations are inconsistent", Equations: formatAll(ws, pieces)}
		}
		for _, a := range el.Assumptions {
			_, prim := a.Primitive()
			if _, seen := assumptions[prim.Key()]; !seen {
				assumptions[prim.Key()] = prim
				assumptionOrder = append(assumptionOrder, prim.Key())
			}
		}
		subst, err := st.resolve(el)
		if err != nil {
			return nil, err
		}
		if len(subst) == 0 {
			sol.Kind, sol.Reason = PartiallyReduced, "remaining equations are differential or nonlinear in the unknowns"
			break
		}
		if eqs, err = substituteAll(ws, eqs, subst); err != nil {
			return nil, err
		}
		if comps, err = substituteAll(ws, comps, subst); err != nil {
			return nil, err
		}
	}

	zero := true
	for _, c := range comps {
		if !c.IsZero() {
			zero = false
		}
	}
	if zero {
		return nil, &UnsolvableSystemError{System: sys.Name, Reason: "only the zero generator satisfies the determining equations", Equations: formatAll(ws, eqs)}
	}

	if sol.Kind == PartiallyReduced {
		sol.reduced = eqs
		sol.Reduced = toExprs(ws, eqs)
	}
	for _, key := range assumptionOrder {
		sol.Assumptions = append(sol.Assumptions, ws.Ring.PolyExpr(assumptions[key]))
	}
	sol.Free = st.free(comps, sol.reduced)
	sol.Generator = gen.withComponents(toExprs(ws, comps), sol.Free)

	ws.Logger.Debug("solved",
		slog.String("stage", "solve"),
		slog.String("system", sys.Name),
		slog.String("outcome", sol.Kind.String()),
		slog.Int("iterations", sol.Iterations),
		slog.Int("free", len(sol.Free)),
	)
	return sol, nil
}

// split breaks every equation into its coefficients with respect to the
// splitting atoms and linearizes them. Duplicate coefficients are dropped.
func (s *solveState) split(eqs []algebra.Frac) ([]algebra.Frac, []algebra.Row) {
	atom := s.ws.Ring.SplittingAtoms(s.bound())
	seen := map[string]bool{}
	var pieces []algebra.Frac
	var rows []algebra.Row
	for _, eq := range eqs {
		for _, p := range eq.Num().Split(atom) {
			if p.IsZero() {
				continue
			}
			_, prim := p.Primitive()
			if seen[prim.Key()] {
				continue
			}
			seen[prim.Key()] = true
			pieces = append(pieces, algebra.FracPoly(prim))
			if row, ok := algebra.Linearize(prim, s.unknown); ok {
				rows = append(rows, row)
			}
		}
	}
	return pieces, rows
}

// resolve turns the pivots of an elimination into substitutions, removing
// the solved unknowns.
func (s *solveState) resolve(el *algebra.Elimination) (map[int]algebra.Frac, error) {
	r := s.ws.Ring
	subst := map[int]algebra.Frac{}
	add := func(values map[int]algebra.Frac) error {
		for k, v := range subst {
			nv, err := r.Substitute(v, values)
			if err != nil {
				return err
			}
			subst[k] = nv
		}
		for k, v := range values {
			subst[k] = v
		}
		return nil
	}
	for _, p := range el.Pivots {
		if _, done := subst[p.Var]; done {
			continue
		}
		value, err := pivotValue(r, p)
		if err != nil {
			return nil, err
		}
		if value, err = r.Substitute(value, subst); err != nil {
			return nil, err
		}
		v := r.Variable(p.Var)
		switch {
		case v.Role != algebra.RoleFunction:
			if err := add(map[int]algebra.Frac{p.Var: value}); err != nil {
				return nil, err
			}
			s.removeConst(p.Var)
		case !s.funcSet[v.Function]:
			continue
		case v.Order == 0:
			if s.mentionsFunction(value, v.Function) {
				continue
			}
			values, err := r.FunctionValue(v.Function, value)
			if err != nil {
				return nil, err
			}
			if err := add(values); err != nil {
				return nil, err
			}
			s.removeFunction(v.Function)
		default:
			fn, ok := integrate(s, v, value)
			if !ok {
				continue
			}
			values, err := r.FunctionValue(v.Function, fn)
			if err != nil {
				return nil, err
			}
			if err := add(values); err != nil {
				return nil, err
			}
			s.removeFunction(v.Function)
		}
	}
	return subst, nil
}

// integrate solves f^(k)(a) = value for a single-argument function f when
// value is a polynomial in a free of unknown functions. The k integration
// constants are fresh free constants.
func integrate(s *solveState, v *algebra.Variable, value algebra.Frac) (algebra.Frac, bool) {
	fn, ok := v.Expr.(*symbolic.Function)
	if !ok || len(fn.Args()) != 1 || s.mentionsFunction(value, "") {
		return algebra.Frac{}, false
	}
	r := s.ws.Ring
	a, ok := r.Lookup(fn.Args()[0])
	if !ok {
		return algebra.Frac{}, false
	}
	out := value
	for k := 0; k < v.Order; k++ {
		if out, ok = r.Integrate(out, a); !ok {
			return algebra.Frac{}, false
		}
	}
	power := algebra.FracInt(1)
	for k := 0; k < v.Order; k++ {
		name, err := s.ws.freshConstant()
		if err != nil {
			return algebra.Frac{}, false
		}
		i, _ := r.Lookup(name)
		s.addConst(i)
		out = out.Add(r.Var(i).Mul(power))
		power = power.Mul(r.Var(a))
	}
	return out, true
}

// pivotValue solves Coeff·u + Σ Rest·w + Const = 0 for u.
func pivotValue(r *algebra.Ring, p algebra.Pivot) (algebra.Frac, error) {
	num := p.Const
	keys := make([]int, 0, len(p.Rest))
	for k := range p.Rest {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		num = num.Add(p.Rest[k].Mul(algebra.PolyVar(k)))
	}
	return r.Div(algebra.FracPoly(num.Neg()), algebra.FracPoly(p.Coeff))
}

func substituteAll(ws *Workspace, fs []algebra.Frac, subst map[int]algebra.Frac) ([]algebra.Frac, error) {
	out := make([]algebra.Frac, len(fs))
	for i, f := range fs {
		g, err := ws.Ring.Substitute(f, subst)
		if err != nil {
			return nil, derivationError("solve", err, "substitute into %s", ws.Ring.Format(f))
		}
		out[i] = g
	}
	return out, nil
}

// free lists the remaining unknowns that still occur in comps or eqs, in
// declaration order.
func (s *solveState) free(comps, eqs []algebra.Frac) []Unknown {
	all := append(append([]algebra.Frac(nil), comps...), eqs...)
	occurs := func(i int) bool {
		for _, f := range all {
			if f.Has(i) {
				return true
			}
		}
		return false
	}
	var out []Unknown
	for _, f := range s.functions {
		for _, i := range s.ws.Ring.FunctionVars(f.Name) {
			if occurs(i) {
				out = append(out, f)
				break
			}
		}
	}
	for _, i := range s.consts {
		if occurs(i) {
			out = append(out, Unknown{Name: s.ws.Ring.Variable(i).Name})
		}
	}
	return out
}

func formatAll(ws *Workspace, fs []algebra.Frac) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = ws.Ring.Format(f)
	}
	return out
}
