package symbolic

import (
	"sort"
)

// ============================================================
// Top-level convenience functions
// ============================================================

func Simplify(e Expr) Expr { return e.Simplify() }
func String(e Expr) string { return e.String() }
func LaTeX(e Expr) string  { return e.LaTeX() }

func Sub(expr Expr, varName string, value Expr) Expr {
	return expr.Sub(varName, value).Simplify()
}

func Diff(expr Expr, varName string) Expr {
	return expr.Diff(varName).Simplify()
}

func DiffN(expr Expr, varName string, n int) Expr {
	result := expr
	for i := 0; i < n; i++ {
		result = Diff(result, varName)
	}
	return result
}

// IsZero reports whether e simplifies to the number 0.
func IsZero(e Expr) bool {
	n, ok := e.Simplify().(*Num)
	return ok && n.IsZero()
}

// ============================================================
// Expansion
// ============================================================

func Expand(e Expr) Expr { return expandExpr(e).Simplify() }

func expandExpr(e Expr) Expr {
	switch v := e.(type) {
	case *Mul:
		expanded := make([]Expr, len(v.factors))
		for i, f := range v.factors {
			expanded[i] = expandExpr(f)
		}
		for i, f := range expanded {
			a, ok := f.(*Add)
			if !ok {
				continue
			}
			rest := make([]Expr, 0, len(expanded)-1)
			for j, ef := range expanded {
				if j != i {
					rest = append(rest, ef)
				}
			}
			terms := make([]Expr, len(a.terms))
			for k, t := range a.terms {
				terms[k] = expandExpr(MulOf(append([]Expr{t}, rest...)...))
			}
			return expandExpr(AddOf(terms...))
		}
		return MulOf(expanded...)
	case *Add:
		newTerms := make([]Expr, len(v.terms))
		for i, t := range v.terms {
			newTerms[i] = expandExpr(t)
		}
		return AddOf(newTerms...)
	case *Pow:
		if n, ok := v.exp.(*Num); ok && n.IsInteger() {
			exp := n.val.Num().Int64()
			base := expandExpr(v.base)
			if _, sum := base.(*Add); !sum {
				return PowOf(base, v.exp)
			}
			if exp >= 0 && exp <= 10 {
				result := Expr(N(1))
				for i := int64(0); i < exp; i++ {
					result = distribute(result, base)
				}
				return result
			}
		}
		return PowOf(expandExpr(v.base), expandExpr(v.exp))
	case *Func:
		return funcOf(v.name, expandExpr(v.arg)).Simplify()
	}
	return e
}

// distribute multiplies two expanded expressions term by term. MulOf would
// merge equal sums into a power, so sums are never passed to it together.
func distribute(a, b Expr) Expr {
	as, bs := summands(a), summands(b)
	terms := make([]Expr, 0, len(as)*len(bs))
	for _, x := range as {
		for _, y := range bs {
			terms = append(terms, expandExpr(MulOf(x, y)))
		}
	}
	return AddOf(terms...)
}

func summands(e Expr) []Expr {
	if a, ok := e.(*Add); ok {
		return a.terms
	}
	return []Expr{e}
}

// ============================================================
// Free symbols and functions
// ============================================================

// FreeSymbols returns the names of all symbols in e, including the arguments
// of undefined functions.
func FreeSymbols(e Expr) map[string]struct{} {
	result := map[string]struct{}{}
	collectSymbols(e, result)
	return result
}

// SortedSymbols is FreeSymbols as a sorted slice.
func SortedSymbols(e Expr) []string {
	set := FreeSymbols(e)
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func collectSymbols(e Expr, out map[string]struct{}) {
	switch v := e.(type) {
	case *Sym:
		out[v.name] = struct{}{}
	case *Add:
		for _, t := range v.terms {
			collectSymbols(t, out)
		}
	case *Mul:
		for _, f := range v.factors {
			collectSymbols(f, out)
		}
	case *Pow:
		collectSymbols(v.base, out)
		collectSymbols(v.exp, out)
	case *Func:
		collectSymbols(v.arg, out)
	case *Function:
		for _, a := range v.args {
			out[a] = struct{}{}
		}
	}
}

// FreeFunctions returns the undefined functions in e keyed by name, with
// their undifferentiated form.
func FreeFunctions(e Expr) map[string]*Function {
	out := map[string]*Function{}
	walk(e, func(x Expr) {
		if f, ok := x.(*Function); ok {
			out[f.name] = f.Base()
		}
	})
	return out
}

func walk(e Expr, visit func(Expr)) {
	visit(e)
	switch v := e.(type) {
	case *Add:
		for _, t := range v.terms {
			walk(t, visit)
		}
	case *Mul:
		for _, f := range v.factors {
			walk(f, visit)
		}
	case *Pow:
		walk(v.base, visit)
		walk(v.exp, visit)
	case *Func:
		walk(v.arg, visit)
	}
}

// ReplaceFunction substitutes value for every occurrence of the undefined
// function name, replacing differentiated occurrences by the matching
// derivatives of value.
func ReplaceFunction(e Expr, name string, value Expr) Expr {
	switch v := e.(type) {
	case *Function:
		if v.name != name {
			return v
		}
		out := value
		for i, a := range v.args {
			for k := 0; k < v.orders[i]; k++ {
				out = Diff(out, a)
			}
		}
		return out
	case *Add:
		terms := make([]Expr, len(v.terms))
		for i, t := range v.terms {
			terms[i] = ReplaceFunction(t, name, value)
		}
		return AddOf(terms...)
	case *Mul:
		factors := make([]Expr, len(v.factors))
		for i, f := range v.factors {
			factors[i] = ReplaceFunction(f, name, value)
		}
		return MulOf(factors...)
	case *Pow:
		return PowOf(ReplaceFunction(v.base, name, value), ReplaceFunction(v.exp, name, value))
	case *Func:
		return funcOf(v.name, ReplaceFunction(v.arg, name, value)).Simplify()
	}
	return e
}
