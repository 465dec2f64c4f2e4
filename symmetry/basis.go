package symmetry

import (
	"fmt"

	"github.com/njchilds90/liesym/internal/algebra"
	"github.com/njchilds90/liesym/symbolic"
)

// Decompose splits a generator that is linear in the given constants into
// one generator per constant, the coefficient of that constant, plus one for
// the part free of them. Zero generators are dropped. Each component is
// brought over a common denominator before the constants are collected.
func Decompose(ws *Workspace, gen *Generator, constants []string) ([]*Generator, error) {
	if err := ws.bindNames(gen.Time, gen.States); err != nil {
		return nil, err
	}
	if err := gen.declareFree(ws); err != nil {
		return nil, err
	}
	comps, err := gen.normalComponents(ws, "decompose")
	if err != nil {
		return nil, err
	}
	idx := make([]int, len(constants))
	isConst := map[int]bool{}
	for k, name := range constants {
		i, ok := ws.Ring.Lookup(name)
		if !ok {
			return nil, derivationError("decompose", nil, "unknown constant %q", name)
		}
		idx[k] = i
		isConst[i] = true
	}

	// parts[c][k] is the coefficient of constant c (or 1 for c = len) in
	// component k.
	parts := make([][]algebra.Frac, len(idx)+1)
	for c := range parts {
		parts[c] = make([]algebra.Frac, len(comps))
	}
	for k, comp := range comps {
		row, ok := algebra.Linearize(comp.Num(), func(i int) bool { return isConst[i] })
		if !ok {
			return nil, derivationError("decompose", nil, "component %d is not linear in %v", k+1, constants)
		}
		den := algebra.FracPoly(comp.Den())
		over := func(p algebra.Poly) (algebra.Frac, error) {
			if p.IsZero() {
				return algebra.Frac{}, nil
			}
			return ws.Ring.Div(algebra.FracPoly(p), den)
		}
		for c, i := range idx {
			if parts[c][k], err = over(row.Coeffs[i]); err != nil {
				return nil, err
			}
		}
		if parts[len(idx)][k], err = over(row.Const); err != nil {
			return nil, err
		}
	}

	var out []*Generator
	for _, fs := range append([][]algebra.Frac{parts[len(idx)]}, parts[:len(idx)]...) {
		zero := true
		for _, f := range fs {
			if !f.IsZero() {
				zero = false
			}
		}
		if zero {
			continue
		}
		g := gen.withComponents(toExprs(ws, fs), nil)
		g.Name = fmt.Sprintf("X%d", len(out)+1)
		out = append(out, g)
	}
	return out, nil
}

func toExprs(ws *Workspace, fs []algebra.Frac) []symbolic.Expr {
	out := make([]symbolic.Expr, len(fs))
	for i, f := range fs {
		out[i] = ws.expr(f)
	}
	return out
}
