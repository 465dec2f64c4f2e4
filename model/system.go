// Package model defines systems of first-order ordinary differential
// equations x_i' = ω_i(t, x, p): the time symbol, the ordered state
// variables with their right-hand sides, and the parameters.
//
// Systems are built programmatically with NewSystem or Parse, decoded from
// YAML or TOML definition files with LoadFile, or taken from the built-in
// library (Builtin).
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/njchilds90/liesym/symbolic"
)

// DefaultTime is the time symbol used when none is given.
const DefaultTime = "t"

// State is one state variable and its right-hand side.
type State struct {
	Name string
	RHS  symbolic.Expr
}

// Candidate is a concrete generator X = Xi ∂_t + Σ Eta[i] ∂_{x_i} attached
// to a system for validation.
type Candidate struct {
	Name string
	Xi   symbolic.Expr
	Eta  []symbolic.Expr
}

// System is an ODE system. A System returned by NewSystem, Parse or
// LoadFile is well formed and must not be modified.
type System struct {
	Name       string
	Time       string
	States     []State
	Params     []string
	Candidates []Candidate
}

// MalformedSystemError reports a system that cannot be analyzed.
type MalformedSystemError struct {
	System string
	Reason string
	// Undeclared lists symbols referenced by a right-hand side that are
	// neither time, a state nor a parameter.
	Undeclared []string
	Err        error
}

func (e *MalformedSystemError) Error() string {
	var sb strings.Builder
	sb.WriteString("malformed system")
	if e.System != "" {
		fmt.Fprintf(&sb, " %q", e.System)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Reason)
	if len(e.Undeclared) > 0 {
		fmt.Fprintf(&sb, " [%s]", strings.Join(e.Undeclared, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

func (e *MalformedSystemError) Unwrap() error { return e.Err }

func malformed(system, format string, args ...interface{}) *MalformedSystemError {
	return &MalformedSystemError{System: system, Reason: fmt.Sprintf(format, args...)}
}

// NewSystem builds a system from state names, right-hand sides and
// parameter names. An empty time symbol means DefaultTime.
func NewSystem(name, time string, states []string, rhs []symbolic.Expr, params []string) (*System, error) {
	if time == "" {
		time = DefaultTime
	}
	if len(states) == 0 {
		return nil, malformed(name, "no state variables")
	}
	if len(rhs) != len(states) {
		return nil, malformed(name, "%d states but %d right-hand sides", len(states), len(rhs))
	}

	declared := map[string]string{time: "time"}
	claim := func(sym, kind string) error {
		if sym == "" {
			return malformed(name, "empty %s name", kind)
		}
		if prev, ok := declared[sym]; ok {
			return malformed(name, "%s %q collides with %s %q", kind, sym, prev, sym)
		}
		declared[sym] = kind
		return nil
	}
	for _, s := range states {
		if err := claim(s, "state"); err != nil {
			return nil, err
		}
	}
	for _, p := range params {
		if err := claim(p, "parameter"); err != nil {
			return nil, err
		}
	}

	sys := &System{
		Name:   name,
		Time:   time,
		Params: append([]string(nil), params...),
	}
	undeclared := map[string]bool{}
	for i, s := range states {
		if rhs[i] == nil {
			return nil, malformed(name, "missing right-hand side for %q", s)
		}
		if fns := symbolic.FreeFunctions(rhs[i]); len(fns) > 0 {
			return nil, malformed(name, "right-hand side of %q calls undefined function %s", s, firstKey(fns))
		}
		for _, sym := range symbolic.SortedSymbols(rhs[i]) {
			if _, ok := declared[sym]; !ok {
				undeclared[sym] = true
			}
		}
		sys.States = append(sys.States, State{Name: s, RHS: rhs[i]})
	}
	if len(undeclared) > 0 {
		err := malformed(name, "right-hand sides reference undeclared symbols")
		for sym := range undeclared {
			err.Undeclared = append(err.Undeclared, sym)
		}
		sort.Strings(err.Undeclared)
		return nil, err
	}
	return sys, nil
}

func firstKey(m map[string]*symbolic.Function) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys[0]
}

// Parse is NewSystem with right-hand sides given as infix strings.
func Parse(name, time string, states, rhs, params []string) (*System, error) {
	exprs := make([]symbolic.Expr, len(rhs))
	for i, s := range rhs {
		e, err := symbolic.Parse(s)
		if err != nil {
			state := fmt.Sprintf("#%d", i+1)
			if i < len(states) {
				state = states[i]
			}
			return nil, &MalformedSystemError{System: name, Reason: fmt.Sprintf("right-hand side of %s", state), Err: err}
		}
		exprs[i] = e
	}
	return NewSystem(name, time, states, exprs, params)
}

// StateNames returns the state names in order.
func (s *System) StateNames() []string {
	out := make([]string, len(s.States))
	for i, st := range s.States {
		out[i] = st.Name
	}
	return out
}

// StateIndex returns the position of the named state.
func (s *System) StateIndex(name string) (int, bool) {
	for i, st := range s.States {
		if st.Name == name {
			return i, true
		}
	}
	return 0, false
}

// RHS returns the right-hand sides in state order.
func (s *System) RHS() []symbolic.Expr {
	out := make([]symbolic.Expr, len(s.States))
	for i, st := range s.States {
		out[i] = st.RHS
	}
	return out
}

// IsParam reports whether name is a parameter of s.
func (s *System) IsParam(name string) bool {
	for _, p := range s.Params {
		if p == name {
			return true
		}
	}
	return false
}

// AddCandidate parses and attaches a candidate generator. An empty xi means
// zero.
func (s *System) AddCandidate(name, xi string, eta []string) error {
	c, err := s.ParseCandidate(name, xi, eta)
	if err != nil {
		return err
	}
	s.Candidates = append(s.Candidates, c)
	return nil
}

// ParseCandidate parses a candidate generator for s without attaching it.
// Candidate coefficients may use free symbols other than the system's; they
// are treated as arbitrary constants.
func (s *System) ParseCandidate(name, xi string, eta []string) (Candidate, error) {
	if len(eta) != len(s.States) {
		return Candidate{}, malformed(s.Name, "generator %q has %d eta components for %d states", name, len(eta), len(s.States))
	}
	c := Candidate{Name: name, Xi: symbolic.N(0)}
	if strings.TrimSpace(xi) != "" {
		e, err := symbolic.Parse(xi)
		if err != nil {
			return Candidate{}, &MalformedSystemError{System: s.Name, Reason: fmt.Sprintf("xi of generator %q", name), Err: err}
		}
		c.Xi = e
	}
	for i, src := range eta {
		e, err := symbolic.Parse(src)
		if err != nil {
			return Candidate{}, &MalformedSystemError{System: s.Name, Reason: fmt.Sprintf("eta of %q in generator %q", s.States[i].Name, name), Err: err}
		}
		c.Eta = append(c.Eta, e)
	}
	return c, nil
}

// Hash identifies the system by content: name, symbols and printed
// right-hand sides. Candidates are not part of the hash.
func (s *System) Hash() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00", s.Name, s.Time)
	for _, st := range s.States {
		fmt.Fprintf(h, "%s=%s\x00", st.Name, st.RHS)
	}
	fmt.Fprintf(h, "%s", strings.Join(s.Params, ","))
	return hex.EncodeToString(h.Sum(nil))
}

func (s *System) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:", s.Name)
	for _, st := range s.States {
		fmt.Fprintf(&sb, " %s' = %s;", st.Name, st.RHS)
	}
	if len(s.Params) > 0 {
		fmt.Fprintf(&sb, " params %s", strings.Join(s.Params, ", "))
	}
	return sb.String()
}
