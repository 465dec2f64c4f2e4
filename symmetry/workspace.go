// Package symmetry computes and validates Lie point symmetries of systems of
// first-order ODEs x_i' = ω_i(t, x).
//
// A generator X = ξ ∂_t + Σ η_i ∂_{x_i} is a symmetry when, for every state,
//
//	D_t η_i − ω_i D_t ξ − X(ω_i) = 0,   D_t = ∂_t + Σ_j ω_j ∂_{x_j},
//
// which is the first prolongation of X applied to x_i' − ω_i and evaluated on
// the solution manifold. The pipeline builds an ansatz (Builder), derives
// these conditions (Deriver), splits and solves them for the ansatz unknowns
// (Solver), decomposes the result into basis generators (Decompose) and
// checks each generator (Validator). Analyze runs all stages.
//
// Every stage takes a *Workspace, which owns the expression context. A
// Workspace is not safe for concurrent use.
package symmetry

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/njchilds90/liesym/internal/algebra"
	"github.com/njchilds90/liesym/model"
	"github.com/njchilds90/liesym/symbolic"
)

// DefaultMaxIterations bounds the solver's substitute-and-split rounds.
const DefaultMaxIterations = 64

// Workspace is the expression context of an analysis: the ring of declared
// symbols, kernels and unknowns, a logger and the solver budget.
type Workspace struct {
	Ring          *algebra.Ring
	Logger        *slog.Logger
	MaxIterations int

	fresh int
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the logger. Stages log at Debug level.
func WithLogger(l *slog.Logger) Option {
	return func(ws *Workspace) {
		if l != nil {
			ws.Logger = l
		}
	}
}

// WithMaxIterations sets the solver's iteration budget.
func WithMaxIterations(n int) Option {
	return func(ws *Workspace) {
		if n > 0 {
			ws.MaxIterations = n
		}
	}
}

// NewWorkspace returns an empty workspace that discards log output.
func NewWorkspace(opts ...Option) *Workspace {
	ws := &Workspace{
		Ring:          algebra.NewRing(),
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		MaxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(ws)
	}
	return ws
}

// Bind declares the time, state and parameter symbols of sys.
func (ws *Workspace) Bind(sys *model.System) error {
	if err := ws.bindNames(sys.Time, sys.StateNames()); err != nil {
		return err
	}
	for _, p := range sys.Params {
		if _, err := ws.Ring.Declare(p, algebra.RoleParameter); err != nil {
			return derivationError("bind", err, "system %q", sys.Name)
		}
	}
	return nil
}

func (ws *Workspace) bindNames(time string, states []string) error {
	if _, err := ws.Ring.Declare(time, algebra.RoleTime); err != nil {
		return derivationError("bind", err, "time symbol")
	}
	for _, s := range states {
		if _, err := ws.Ring.Declare(s, algebra.RoleState); err != nil {
			return derivationError("bind", err, "state symbol")
		}
	}
	return nil
}

// declareUnknowns registers the unknowns of gen. Functions are interned on
// first use.
func (ws *Workspace) declareUnknowns(gen *Generator) error {
	for _, u := range gen.Unknowns {
		if u.IsFunction() {
			continue
		}
		if i, ok := ws.Ring.Lookup(u.Name); ok {
			switch role := ws.Ring.Variable(i).Role; role {
			case algebra.RoleConstant, algebra.RoleFree:
				continue
			default:
				return derivationError("bind", nil, "unknown %s is already a %s", u.Name, role)
			}
		}
		if _, err := ws.Ring.Declare(u.Name, algebra.RoleConstant); err != nil {
			return derivationError("bind", err, "unknown %s", u.Name)
		}
	}
	return nil
}

// freshConstant declares the next unused free constant k_n.
func (ws *Workspace) freshConstant() (string, error) {
	for {
		ws.fresh++
		name := fmt.Sprintf("k_%d", ws.fresh)
		if _, ok := ws.Ring.Lookup(name); ok {
			continue
		}
		if _, err := ws.Ring.Declare(name, algebra.RoleFree); err != nil {
			return "", err
		}
		return name, nil
	}
}

// normal brings e into normal form.
func (ws *Workspace) normal(stage string, e symbolic.Expr) (algebra.Frac, error) {
	f, err := ws.Ring.FromExpr(e)
	if err != nil {
		return algebra.Frac{}, derivationError(stage, err, "cannot bring %s to normal form", e)
	}
	return f, nil
}

// expr converts a normal form back into an expression.
func (ws *Workspace) expr(f algebra.Frac) symbolic.Expr { return ws.Ring.ToExpr(f) }
