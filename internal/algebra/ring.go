// Package algebra provides the canonical rational-function normal form used
// to decide whether symbolic expressions vanish, together with coefficient
// splitting and fraction-free linear elimination over polynomial rings.
//
// A Ring is a registry of variables. Plain symbols are declared with a Role;
// non-polynomial sub-expressions such as ln(W), exp(k*t) or A^n are interned
// on first use as kernels and treated as independent variables. Undefined
// functions f(t) and each of their derivatives are interned the same way.
package algebra

import (
	"errors"
	"fmt"
	"sort"

	"github.com/njchilds90/liesym/symbolic"
)

var (
	// ErrUndeclared is returned when an expression references a symbol the
	// ring does not know.
	ErrUndeclared = errors.New("undeclared symbol")
	// ErrDivisionByZero is returned when inverting the zero fraction.
	ErrDivisionByZero = errors.New("division by zero")
)

// Role classifies a ring variable.
type Role int

const (
	RoleTime Role = iota + 1
	RoleState
	RoleParameter
	// RoleConstant marks an unknown constant of an ansatz, such as c_1_2.
	RoleConstant
	// RoleFree marks an arbitrary constant introduced while solving.
	RoleFree
	// RoleFunction marks an unknown function or one of its derivatives.
	RoleFunction
	// RoleKernel marks a non-polynomial atom.
	RoleKernel
)

func (r Role) String() string {
	switch r {
	case RoleTime:
		return "time"
	case RoleState:
		return "state"
	case RoleParameter:
		return "parameter"
	case RoleConstant:
		return "constant"
	case RoleFree:
		return "free"
	case RoleFunction:
		return "function"
	case RoleKernel:
		return "kernel"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// RoleConflictError reports an attempt to declare a symbol twice with
// different roles.
type RoleConflictError struct {
	Name string
	Have Role
	Want Role
}

func (e *RoleConflictError) Error() string {
	return fmt.Sprintf("symbol %q is already a %s, cannot declare it as %s", e.Name, e.Have, e.Want)
}

// Variable is one ring variable.
type Variable struct {
	Name string
	Role Role
	Expr symbolic.Expr
	// Deps lists the symbols the variable depends on, sorted. For plain
	// symbols it is the symbol itself.
	Deps []string
	// Function and Order describe RoleFunction variables: the undefined
	// function's name and total derivative order.
	Function string
	Order    int
}

// DependsOn reports whether name is among the variable's dependencies.
func (v *Variable) DependsOn(name string) bool {
	i := sort.SearchStrings(v.Deps, name)
	return i < len(v.Deps) && v.Deps[i] == name
}

type derivKey struct {
	v  int
	by string
}

// Ring is not safe for concurrent use.
type Ring struct {
	vars    []*Variable
	index   map[string]int
	factors []factor
	derivs  map[derivKey]Frac
}

func NewRing() *Ring {
	return &Ring{
		index:  map[string]int{},
		derivs: map[derivKey]Frac{},
	}
}

// Len is the number of variables.
func (r *Ring) Len() int { return len(r.vars) }

// Variable returns variable i.
func (r *Ring) Variable(i int) *Variable { return r.vars[i] }

// Lookup finds a variable by symbol name or kernel string.
func (r *Ring) Lookup(name string) (int, bool) {
	i, ok := r.index[name]
	return i, ok
}

// Declare registers a plain symbol. Declaring an existing symbol with the same
// role returns its index.
func (r *Ring) Declare(name string, role Role) (int, error) {
	if name == "" {
		return 0, errors.New("empty symbol name")
	}
	if i, ok := r.index[name]; ok {
		if have := r.vars[i].Role; have != role {
			return 0, &RoleConflictError{Name: name, Have: have, Want: role}
		}
		return i, nil
	}
	return r.add(&Variable{Name: name, Role: role, Expr: symbolic.S(name), Deps: []string{name}}), nil
}

// DeclareMissing declares every undeclared symbol of e with role and returns
// the declared names.
func (r *Ring) DeclareMissing(e symbolic.Expr, role Role) ([]string, error) {
	var added []string
	for _, name := range symbolic.SortedSymbols(e) {
		if _, ok := r.index[name]; ok {
			continue
		}
		if _, err := r.Declare(name, role); err != nil {
			return added, err
		}
		added = append(added, name)
	}
	return added, nil
}

func (r *Ring) add(v *Variable) int {
	r.vars = append(r.vars, v)
	i := len(r.vars) - 1
	r.index[v.Name] = i
	return i
}

// intern registers a kernel or function expression under its printed form.
func (r *Ring) intern(e symbolic.Expr) int {
	key := e.String()
	if i, ok := r.index[key]; ok {
		return i
	}
	v := &Variable{Name: key, Role: RoleKernel, Expr: e, Deps: symbolic.SortedSymbols(e)}
	if fn, ok := e.(*symbolic.Function); ok {
		v.Role = RoleFunction
		v.Function = fn.Name()
		v.Order = fn.Order()
	}
	return r.add(v)
}

// Var is variable i as a fraction.
func (r *Ring) Var(i int) Frac { return FracPoly(PolyVar(i)) }

// Symbol is the declared symbol name as a fraction.
func (r *Ring) Symbol(name string) (Frac, error) {
	i, ok := r.index[name]
	if !ok {
		return Frac{}, fmt.Errorf("%w %q", ErrUndeclared, name)
	}
	return r.Var(i), nil
}

// Names returns the names of the variables with the given role, in
// declaration order.
func (r *Ring) Names(role Role) []string {
	var out []string
	for _, v := range r.vars {
		if v.Role == role {
			out = append(out, v.Name)
		}
	}
	return out
}

// FunctionVars returns the indices of the interned occurrences (the function
// and its derivatives) of the undefined function name.
func (r *Ring) FunctionVars(name string) []int {
	var out []int
	for i, v := range r.vars {
		if v.Role == RoleFunction && v.Function == name {
			out = append(out, i)
		}
	}
	return out
}

// SplittingAtoms selects the variables that determining equations are split
// by: time and state symbols outside bound, and kernels that depend on at
// least one such symbol and otherwise only on parameters.
func (r *Ring) SplittingAtoms(bound map[string]bool) func(i int) bool {
	atom := make([]bool, len(r.vars))
	free := map[string]bool{}
	params := map[string]bool{}
	for i, v := range r.vars {
		switch v.Role {
		case RoleTime, RoleState:
			if !bound[v.Name] {
				atom[i] = true
				free[v.Name] = true
			}
		case RoleParameter:
			params[v.Name] = true
		}
	}
	for i, v := range r.vars {
		if v.Role != RoleKernel {
			continue
		}
		hit, ok := false, true
		for _, d := range v.Deps {
			switch {
			case free[d]:
				hit = true
			case params[d]:
			default:
				ok = false
			}
		}
		atom[i] = hit && ok
	}
	return func(i int) bool { return i < len(atom) && atom[i] }
}
