package symmetry

import (
	"fmt"
	"log/slog"

	"github.com/njchilds90/liesym/internal/algebra"
	"github.com/njchilds90/liesym/model"
	"github.com/njchilds90/liesym/symbolic"
)

// DeterminingSystem holds the linearized symmetry conditions of a generator
// for a system.
type DeterminingSystem struct {
	System    *model.System
	Generator *Generator
	// Conditions holds D_t η_i − ω_i D_t ξ − X(ω_i) for every state i, in
	// normal form.
	Conditions []symbolic.Expr
	// General holds the same conditions for abstract coefficients
	// xi(t, x...) and eta1(t, x...), ..., restricted to the generator's
	// dependence sets, for display.
	General []symbolic.Expr

	equations []algebra.Frac
}

// Equations returns the number of equations the solver starts from.
func (d *DeterminingSystem) Equations() int { return len(d.equations) }

// Deriver computes determining systems.
type Deriver struct{}

// Derive computes the symmetry conditions of gen for sys. Every symbol in
// gen must be a coordinate, a parameter or one of gen's unknowns.
func (Deriver) Derive(ws *Workspace, sys *model.System, gen *Generator) (*DeterminingSystem, error) {
	if err := gen.checkShape("derive", sys); err != nil {
		return nil, err
	}
	omega, err := rhsFracs(ws, "derive", sys)
	if err != nil {
		return nil, err
	}
	if err := ws.declareUnknowns(gen); err != nil {
		return nil, err
	}
	comps, err := gen.normalComponents(ws, "derive")
	if err != nil {
		return nil, err
	}
	conds, err := conditions(ws, sys, omega, comps)
	if err != nil {
		return nil, err
	}
	ds := &DeterminingSystem{System: sys, Generator: gen, equations: conds}
	for _, c := range conds {
		ds.Conditions = append(ds.Conditions, ws.expr(c))
	}
	if ds.General, err = general(ws, sys, omega, gen); err != nil {
		return nil, err
	}
	ws.Logger.Debug("conditions derived",
		slog.String("stage", "derive"),
		slog.String("system", sys.Name),
		slog.Int("equations", len(conds)),
		slog.Int("unknowns", len(gen.Unknowns)),
	)
	return ds, nil
}

// conditions returns η_i^(1) − X(ω_i) for every state.
func conditions(ws *Workspace, sys *model.System, omega, comps []algebra.Frac) ([]algebra.Frac, error) {
	pro, err := prolongFracs(ws, sys, omega, comps)
	if err != nil {
		return nil, derivationError("derive", err, "prolong generator")
	}
	coords := append([]string{sys.Time}, sys.StateNames()...)
	out := make([]algebra.Frac, len(pro))
	for i := range pro {
		x, err := applyFrac(ws, coords, comps, omega[i])
		if err != nil {
			return nil, derivationError("derive", err, "apply generator to %s", sys.States[i].RHS)
		}
		out[i] = pro[i].Sub(x)
	}
	return out, nil
}

// general derives the conditions for abstract coefficient functions of the
// coordinates each component of gen may depend on.
func general(ws *Workspace, sys *model.System, omega []algebra.Frac, gen *Generator) ([]symbolic.Expr, error) {
	coords := append([]string{sys.Time}, sys.StateNames()...)
	comps := make([]algebra.Frac, len(coords))
	for k, comp := range coords {
		if k == 0 && symbolic.IsZero(gen.Xi) {
			continue
		}
		name := "xi"
		if k > 0 {
			name = fmt.Sprintf("eta%d", k)
		}
		args := coords
		if dep, ok := gen.DependsOn[comp]; ok {
			args = dep
		}
		f, err := ws.normal("derive", symbolic.Fn(name, args...))
		if err != nil {
			return nil, err
		}
		comps[k] = f
	}
	conds, err := conditions(ws, sys, omega, comps)
	if err != nil {
		return nil, err
	}
	out := make([]symbolic.Expr, len(conds))
	for i, c := range conds {
		out[i] = ws.expr(c)
	}
	return out, nil
}
