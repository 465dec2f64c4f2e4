package symmetry

import (
	"log/slog"

	"github.com/njchilds90/liesym/model"
	"github.com/njchilds90/liesym/symbolic"
)

// Residual is the non-zero symmetry condition of one state.
type Residual struct {
	State string        `json:"state"`
	Expr  symbolic.Expr `json:"-"`
}

// ValidationResult reports whether a generator is a symmetry.
type ValidationResult struct {
	Generator *Generator
	OK        bool
	// Residuals holds the conditions that do not vanish.
	Residuals []Residual
}

// Validator checks concrete generators.
type Validator struct{}

// Validate substitutes gen into the symmetry condition of every state of sys
// and reduces the result to normal form. Symbols of gen that are not
// coordinates or parameters of sys are treated as arbitrary constants.
func (Validator) Validate(ws *Workspace, sys *model.System, gen *Generator) (*ValidationResult, error) {
	if err := gen.checkShape("validate", sys); err != nil {
		return nil, err
	}
	omega, err := rhsFracs(ws, "validate", sys)
	if err != nil {
		return nil, err
	}
	if err := gen.declareFree(ws); err != nil {
		return nil, err
	}
	comps, err := gen.normalComponents(ws, "validate")
	if err != nil {
		return nil, err
	}
	conds, err := conditions(ws, sys, omega, comps)
	if err != nil {
		return nil, err
	}
	res := &ValidationResult{Generator: gen, OK: true}
	for i, c := range conds {
		if c.IsZero() {
			continue
		}
		res.OK = false
		res.Residuals = append(res.Residuals, Residual{State: sys.States[i].Name, Expr: ws.expr(c)})
	}
	ws.Logger.Debug("validated",
		slog.String("stage", "validate"),
		slog.String("system", sys.Name),
		slog.String("generator", gen.String()),
		slog.Bool("ok", res.OK),
	)
	return res, nil
}
