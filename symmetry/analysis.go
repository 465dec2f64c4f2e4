package symmetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/njchilds90/liesym/model"
)

// State is the lifecycle state of an analysis.
type State int

const (
	StateProposed State = iota + 1
	StateDerived
	StateSolved
	StateUnsolved
	StateValidated
)

var stateNames = map[State]string{
	StateProposed:  "proposed",
	StateDerived:   "derived",
	StateSolved:    "solved",
	StateUnsolved:  "unsolved",
	StateValidated: "validated",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for st, name := range stateNames {
		if name == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown analysis state %q", b)
}

// transitions lists the states reachable from each state.
var transitions = map[State][]State{
	StateProposed: {StateDerived},
	StateDerived:  {StateSolved, StateUnsolved},
	StateSolved:   {StateValidated},
}

// Analysis is the record of one pipeline run.
type Analysis struct {
	ID      string
	System  *model.System
	Options AnsatzOptions
	State   State

	Ansatz      *Generator
	Determining *DeterminingSystem
	Solution    *Solution
	// Unsolvable is set when the state is StateUnsolved because the
	// determining equations admit only the zero generator. A partially
	// reduced run also ends in StateUnsolved, with Solution set instead.
	Unsolvable *UnsolvableSystemError
	Basis      []*Generator
	// Validations holds one result per basis generator.
	Validations []*ValidationResult
	// Candidates holds the results for the system's candidate generators.
	Candidates []*ValidationResult

	Started  time.Time
	Duration time.Duration
}

func (a *Analysis) advance(to State) error {
	for _, s := range transitions[a.State] {
		if s == to {
			a.State = to
			return nil
		}
	}
	return fmt.Errorf("analysis %s: invalid transition %s -> %s", a.ID, a.State, to)
}

// Analyze builds the ansatz for sys, derives and solves its determining
// equations, decomposes the solution into basis generators and validates
// each of them and every candidate generator attached to sys.
//
// A system without symmetries in the ansatz is not an error: the analysis
// ends in StateUnsolved. So does a solve that stops with equations left
// over, through cancellation or otherwise; its Solution keeps the
// residual equations. Errors are returned for malformed input.
func Analyze(ctx context.Context, ws *Workspace, sys *model.System, opts AnsatzOptions) (*Analysis, error) {
	a := &Analysis{
		ID:      uuid.NewString(),
		System:  sys,
		Options: opts,
		Started: time.Now(),
	}
	defer func() { a.Duration = time.Since(a.Started) }()
	log := ws.Logger.With(slog.String("analysis", a.ID), slog.String("system", sys.Name))

	gen, err := Builder{}.Build(ws, sys, opts)
	if err != nil {
		return nil, fmt.Errorf("build ansatz: %w", err)
	}
	a.Ansatz, a.State = gen, StateProposed

	if a.Determining, err = (Deriver{}).Derive(ws, sys, gen); err != nil {
		return nil, fmt.Errorf("derive: %w", err)
	}
	if err := a.advance(StateDerived); err != nil {
		return nil, err
	}

	sol, err := Solver{}.Solve(ctx, ws, a.Determining)
	var unsolvable *UnsolvableSystemError
	switch {
	case errors.As(err, &unsolvable):
		a.Unsolvable = unsolvable
		log.Debug("no symmetry in ansatz", slog.String("reason", unsolvable.Reason))
		if err := a.validateCandidates(ws); err != nil {
			return nil, err
		}
		return a, a.advance(StateUnsolved)
	case err != nil:
		return nil, fmt.Errorf("solve: %w", err)
	}
	a.Solution = sol
	if err := a.validateCandidates(ws); err != nil {
		return nil, err
	}
	if sol.Kind != Resolved {
		log.Debug("partially reduced", slog.String("reason", sol.Reason), slog.Int("remaining", len(sol.Reduced)))
		return a, a.advance(StateUnsolved)
	}
	if err := a.advance(StateSolved); err != nil {
		return nil, err
	}

	if a.Basis, err = Decompose(ws, sol.Generator, sol.FreeConstants()); err != nil {
		return nil, fmt.Errorf("decompose: %w", err)
	}
	ok := true
	for _, g := range a.Basis {
		res, err := Validator{}.Validate(ws, sys, g)
		if err != nil {
			return nil, fmt.Errorf("validate %s: %w", g.Name, err)
		}
		a.Validations = append(a.Validations, res)
		ok = ok && res.OK
	}
	if ok {
		if err := a.advance(StateValidated); err != nil {
			return nil, err
		}
	}
	log.Debug("analysis finished",
		slog.String("state", a.State.String()),
		slog.Int("basis", len(a.Basis)),
	)
	return a, nil
}

// Interrupted reports whether the solver stopped because its context was
// cancelled or timed out.
func (a *Analysis) Interrupted() bool {
	if a.Solution == nil || a.Solution.Kind == Resolved {
		return false
	}
	r := a.Solution.Reason
	return r == context.Canceled.Error() || r == context.DeadlineExceeded.Error()
}

func (a *Analysis) validateCandidates(ws *Workspace) error {
	for _, c := range a.System.Candidates {
		res, err := Validator{}.Validate(ws, a.System, FromCandidate(a.System, c))
		if err != nil {
			return fmt.Errorf("validate candidate %s: %w", c.Name, err)
		}
		a.Candidates = append(a.Candidates, res)
	}
	return nil
}

// AnalyzeAll analyzes several systems concurrently, each in its own
// workspace created with wsOpts. Results are in input order; the first
// error cancels the remaining analyses.
func AnalyzeAll(ctx context.Context, systems []*model.System, opts AnsatzOptions, wsOpts ...Option) ([]*Analysis, error) {
	out := make([]*Analysis, len(systems))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, sys := range systems {
		i, sys := i, sys
		g.Go(func() error {
			a, err := Analyze(gctx, NewWorkspace(wsOpts...), sys, opts)
			if err != nil {
				return fmt.Errorf("analyze %s: %w", sys.Name, err)
			}
			out[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
