package symmetry

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/njchilds90/liesym/symbolic"
)

// Report is the serializable summary of an Analysis.
type Report struct {
	ID         string         `json:"id"`
	System     string         `json:"system"`
	Hash       string         `json:"hash"`
	Equations  []string       `json:"equations"`
	Options    AnsatzOptions  `json:"options"`
	State      State          `json:"state"`
	Ansatz     *Generator     `json:"ansatz"`
	Conditions []string       `json:"conditions"`
	General    []string       `json:"general"`
	Outcome    *OutcomeReport `json:"outcome,omitempty"`
	Unsolvable string         `json:"unsolvable,omitempty"`
	Basis      []CheckReport  `json:"basis,omitempty"`
	Candidates []CheckReport  `json:"candidates,omitempty"`
	Started    time.Time      `json:"started"`
	DurationMS int64          `json:"duration_ms"`
}

// OutcomeReport summarizes a Solution.
type OutcomeReport struct {
	Kind        OutcomeKind `json:"kind"`
	Generator   *Generator  `json:"generator"`
	Free        []string    `json:"free"`
	Reduced     []string    `json:"reduced,omitempty"`
	Assumptions []string    `json:"assumptions,omitempty"`
	Iterations  int         `json:"iterations"`
	Reason      string      `json:"reason,omitempty"`
}

// CheckReport is a validated generator.
type CheckReport struct {
	Generator *Generator        `json:"generator"`
	OK        bool              `json:"ok"`
	Residuals map[string]string `json:"residuals,omitempty"`
}

func strs(es []symbolic.Expr) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.String()
	}
	return out
}

// CheckReports summarizes validation results.
func CheckReports(rs []*ValidationResult) []CheckReport {
	var out []CheckReport
	for _, r := range rs {
		c := CheckReport{Generator: r.Generator, OK: r.OK}
		for _, res := range r.Residuals {
			if c.Residuals == nil {
				c.Residuals = map[string]string{}
			}
			c.Residuals[res.State] = res.Expr.String()
		}
		out = append(out, c)
	}
	return out
}

// Report summarizes a.
func (a *Analysis) Report() *Report {
	r := &Report{
		ID:         a.ID,
		System:     a.System.Name,
		Hash:       a.System.Hash(),
		Options:    a.Options,
		State:      a.State,
		Ansatz:     a.Ansatz,
		Basis:      CheckReports(a.Validations),
		Candidates: CheckReports(a.Candidates),
		Started:    a.Started,
		DurationMS: a.Duration.Milliseconds(),
	}
	for _, st := range a.System.States {
		r.Equations = append(r.Equations, fmt.Sprintf("%s' = %s", st.Name, st.RHS))
	}
	if a.Determining != nil {
		r.Conditions = strs(a.Determining.Conditions)
		r.General = strs(a.Determining.General)
	}
	if s := a.Solution; s != nil {
		o := &OutcomeReport{
			Kind:        s.Kind,
			Generator:   s.Generator,
			Reduced:     strs(s.Reduced),
			Assumptions: strs(s.Assumptions),
			Iterations:  s.Iterations,
			Reason:      s.Reason,
		}
		for _, u := range s.Free {
			o.Free = append(o.Free, u.String())
		}
		r.Outcome = o
	}
	if a.Unsolvable != nil {
		r.Unsolvable = a.Unsolvable.Error()
	}
	return r
}

// WriteText prints r for terminals.
func (r *Report) WriteText(w io.Writer) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "System %s [%s]\n", r.System, r.State)
	for _, eq := range r.Equations {
		fmt.Fprintf(&sb, "  %s\n", eq)
	}
	if r.Ansatz != nil {
		fmt.Fprintf(&sb, "Ansatz (%s, degree %d):\n", r.Options.Form, r.Options.Degree)
		writeComponents(&sb, r.Ansatz)
	}
	if len(r.General) > 0 {
		sb.WriteString("Symmetry conditions (general form):\n")
		for _, c := range r.General {
			fmt.Fprintf(&sb, "  0 = %s\n", c)
		}
	}
	switch {
	case r.Unsolvable != "":
		fmt.Fprintf(&sb, "No symmetry found: %s\n", r.Unsolvable)
	case r.Outcome != nil:
		fmt.Fprintf(&sb, "Outcome: %s after %d iterations\n", r.Outcome.Kind, r.Outcome.Iterations)
		if r.Outcome.Reason != "" {
			fmt.Fprintf(&sb, "  reason: %s\n", r.Outcome.Reason)
		}
		writeComponents(&sb, r.Outcome.Generator)
		if len(r.Outcome.Free) > 0 {
			fmt.Fprintf(&sb, "  free: %s\n", strings.Join(r.Outcome.Free, ", "))
		}
		for _, a := range r.Outcome.Assumptions {
			fmt.Fprintf(&sb, "  assuming %s != 0\n", a)
		}
		for _, eq := range r.Outcome.Reduced {
			fmt.Fprintf(&sb, "  unresolved: 0 = %s\n", eq)
		}
	}
	writeChecks(&sb, "Basis", r.Basis)
	writeChecks(&sb, "Candidates", r.Candidates)
	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteChecks prints only the validation results of r.
func (r *Report) WriteChecks(w io.Writer) error {
	var sb strings.Builder
	writeChecks(&sb, "Basis", r.Basis)
	writeChecks(&sb, "Candidates", r.Candidates)
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeComponents(sb *strings.Builder, g *Generator) {
	fmt.Fprintf(sb, "  xi = %s\n", g.Xi)
	for i, e := range g.Eta {
		fmt.Fprintf(sb, "  eta_%s = %s\n", g.States[i], e)
	}
}

func writeChecks(sb *strings.Builder, title string, checks []CheckReport) {
	if len(checks) == 0 {
		return
	}
	fmt.Fprintf(sb, "%s:\n", title)
	for _, c := range checks {
		mark := "ok"
		if !c.OK {
			mark = "FAILED"
		}
		name := c.Generator.Name
		if name == "" {
			name = "X"
		}
		fmt.Fprintf(sb, "  %-6s %s = %s\n", mark, name, c.Generator)
		states := make([]string, 0, len(c.Residuals))
		for state := range c.Residuals {
			states = append(states, state)
		}
		sort.Strings(states)
		for _, state := range states {
			fmt.Fprintf(sb, "         residual %s: %s\n", state, c.Residuals[state])
		}
	}
}
