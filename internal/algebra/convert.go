package algebra

import (
	"fmt"
	"math/big"

	"github.com/njchilds90/liesym/symbolic"
)

// ============================================================
// Expression → normal form
// ============================================================

// FromExpr brings e into normal form. Every plain symbol in e must be
// declared; kernels and undefined functions are interned as needed.
func (r *Ring) FromExpr(e symbolic.Expr) (Frac, error) {
	switch v := e.(type) {
	case *symbolic.Num:
		return FracConst(v.Rat()), nil
	case *symbolic.Sym:
		return r.Symbol(v.Name())
	case *symbolic.Add:
		out := Frac{}
		for _, t := range v.Terms() {
			f, err := r.FromExpr(t)
			if err != nil {
				return Frac{}, err
			}
			out = out.Add(f)
		}
		return out, nil
	case *symbolic.Mul:
		out := FracInt(1)
		for _, t := range v.Factors() {
			f, err := r.FromExpr(t)
			if err != nil {
				return Frac{}, err
			}
			out = out.Mul(f)
		}
		return out, nil
	case *symbolic.Pow:
		base, err := r.FromExpr(v.Base())
		if err != nil {
			return Frac{}, err
		}
		if n, ok := v.ExpExpr().(*symbolic.Num); ok {
			return r.ratPow(base, n.Rat())
		}
		exp, err := r.FromExpr(v.ExpExpr())
		if err != nil {
			return Frac{}, err
		}
		return r.powOf(base, exp)
	case *symbolic.Func:
		arg, err := r.FromExpr(v.Arg())
		if err != nil {
			return Frac{}, err
		}
		switch v.FuncName() {
		case "exp":
			return r.expOf(arg)
		case "ln":
			return r.lnOf(arg)
		}
		return r.kernel(symbolic.FuncOf(v.FuncName(), r.ToExpr(arg)))
	case *symbolic.Function:
		return r.Var(r.intern(v)), nil
	}
	return Frac{}, fmt.Errorf("unsupported expression %s", e)
}

// kernel interns e when it is still a non-polynomial atom after
// simplification and converts it otherwise.
func (r *Ring) kernel(e symbolic.Expr) (Frac, error) {
	switch k := e.(type) {
	case *symbolic.Func, *symbolic.Function:
		return r.Var(r.intern(e)), nil
	case *symbolic.Pow:
		if n, ok := k.ExpExpr().(*symbolic.Num); !ok || !n.IsInteger() {
			return r.Var(r.intern(e)), nil
		}
	}
	return r.FromExpr(e)
}

// ratPow computes base^c for rational c. The fractional part of c becomes
// the kernel base^(1/q): x^(3/2) is x * x^(1/2).
func (r *Ring) ratPow(base Frac, c *big.Rat) (Frac, error) {
	p, q := c.Num(), c.Denom()
	if !p.IsInt64() || !q.IsInt64() {
		return Frac{}, fmt.Errorf("exponent %s out of range", c.RatString())
	}
	if q.IsInt64() && q.Int64() == 1 {
		return r.PowInt(base, int(p.Int64()))
	}
	whole := new(big.Int).Div(p, q)
	rem := new(big.Int).Sub(p, new(big.Int).Mul(whole, q))
	intPart, err := r.PowInt(base, int(whole.Int64()))
	if err != nil {
		return Frac{}, err
	}
	root, err := r.kernel(symbolic.PowOf(r.ToExpr(base), symbolic.F(1, q.Int64())))
	if err != nil {
		return Frac{}, err
	}
	return intPart.Mul(root.Pow(int(rem.Int64()))), nil
}

// expOf canonicalizes exp(u): a polynomial argument is split term by term
// into powers of exp(m/q) for monomials m.
func (r *Ring) expOf(u Frac) (Frac, error) {
	if !u.IsPoly() {
		return r.kernel(symbolic.ExpOf(r.ToExpr(u)))
	}
	out := FracInt(1)
	for _, t := range u.num.Terms() {
		p, q := t.Coeff.Num(), t.Coeff.Denom()
		if !p.IsInt64() || !q.IsInt64() {
			return Frac{}, fmt.Errorf("coefficient %s out of range", t.Coeff.RatString())
		}
		arg := symbolic.MulOf(symbolic.F(1, q.Int64()), r.monoExpr(t.Mono))
		k, err := r.kernel(symbolic.ExpOf(arg))
		if err != nil {
			return Frac{}, err
		}
		part, err := r.PowInt(k, int(p.Int64()))
		if err != nil {
			return Frac{}, err
		}
		out = out.Mul(part)
	}
	return out, nil
}

// lnOf canonicalizes ln(u). For u = c * m1 / m2 with monomials m1, m2 and
// c > 0 the logarithm is expanded into ln(c) + Σ e ln(v).
func (r *Ring) lnOf(u Frac) (Frac, error) {
	if u.IsZero() {
		return Frac{}, fmt.Errorf("logarithm of zero")
	}
	t, single := u.num.single()
	if !single || len(u.facs) > 0 || t.Coeff.Sign() < 0 {
		return r.kernel(symbolic.LnOf(r.ToExpr(u)))
	}
	out := Frac{}
	if t.Coeff.Cmp(big.NewRat(1, 1)) != 0 {
		k, err := r.kernel(symbolic.LnOf(symbolic.NRat(t.Coeff)))
		if err != nil {
			return Frac{}, err
		}
		out = k
	}
	add := func(m Monomial, sign int64) error {
		for i, e := range m {
			if e == 0 {
				continue
			}
			l, err := r.lnVar(i)
			if err != nil {
				return err
			}
			out = out.Add(l.Scale(big.NewRat(sign*int64(e), 1)))
		}
		return nil
	}
	if err := add(t.Mono, 1); err != nil {
		return Frac{}, err
	}
	if err := add(u.mono, -1); err != nil {
		return Frac{}, err
	}
	return out, nil
}

func (r *Ring) lnVar(i int) (Frac, error) {
	v := r.vars[i]
	switch e := v.Expr.(type) {
	case *symbolic.Func:
		if e.FuncName() == "exp" {
			return r.FromExpr(e.Arg())
		}
	case *symbolic.Pow:
		lb, err := r.FromExpr(symbolic.LnOf(e.Base()))
		if err != nil {
			return Frac{}, err
		}
		ue, err := r.FromExpr(e.ExpExpr())
		if err != nil {
			return Frac{}, err
		}
		return lb.Mul(ue), nil
	}
	return r.kernel(symbolic.LnOf(v.Expr))
}

// powOf canonicalizes base^u for non-numeric u, splitting a polynomial
// exponent term by term like expOf.
func (r *Ring) powOf(base, u Frac) (Frac, error) {
	if c, ok := base.Const(); ok && c.Cmp(big.NewRat(1, 1)) == 0 {
		return FracInt(1), nil
	}
	if t, ok := base.num.single(); ok && base.IsPoly() && t.Coeff.Cmp(big.NewRat(1, 1)) == 0 && t.Mono.Degree() == 1 {
		for i, e := range t.Mono {
			if e == 0 {
				continue
			}
			if fn, ok := r.vars[i].Expr.(*symbolic.Func); ok && fn.FuncName() == "exp" {
				arg, err := r.FromExpr(fn.Arg())
				if err != nil {
					return Frac{}, err
				}
				return r.expOf(arg.Mul(u))
			}
		}
	}
	canon := r.ToExpr(base)
	if !u.IsPoly() {
		return r.kernel(symbolic.PowOf(canon, r.ToExpr(u)))
	}
	out := FracInt(1)
	for _, t := range u.num.Terms() {
		if t.Mono.IsOne() {
			part, err := r.ratPow(base, t.Coeff)
			if err != nil {
				return Frac{}, err
			}
			out = out.Mul(part)
			continue
		}
		p, q := t.Coeff.Num(), t.Coeff.Denom()
		if !p.IsInt64() || !q.IsInt64() {
			return Frac{}, fmt.Errorf("coefficient %s out of range", t.Coeff.RatString())
		}
		k, err := r.kernel(symbolic.PowOf(canon, symbolic.MulOf(symbolic.F(1, q.Int64()), r.monoExpr(t.Mono))))
		if err != nil {
			return Frac{}, err
		}
		part, err := r.PowInt(k, int(p.Int64()))
		if err != nil {
			return Frac{}, err
		}
		out = out.Mul(part)
	}
	return out, nil
}

// ============================================================
// Normal form → expression
// ============================================================

// ToExpr converts f back into an expression tree.
func (r *Ring) ToExpr(f Frac) symbolic.Expr {
	num := r.PolyExpr(f.num)
	if f.IsPoly() {
		return num
	}
	factors := []symbolic.Expr{num}
	for i, e := range f.mono {
		if e > 0 {
			factors = append(factors, r.varPow(i, -e))
		}
	}
	for _, fa := range f.facs {
		factors = append(factors, symbolic.PowOf(r.PolyExpr(fa.poly), symbolic.N(int64(-fa.exp))))
	}
	return symbolic.MulOf(factors...)
}

// PolyExpr converts a polynomial into an expression tree.
func (r *Ring) PolyExpr(p Poly) symbolic.Expr {
	terms := make([]symbolic.Expr, 0, p.Len())
	for _, t := range p.Terms() {
		factors := []symbolic.Expr{symbolic.NRat(t.Coeff)}
		for i, e := range t.Mono {
			if e > 0 {
				factors = append(factors, r.varPow(i, e))
			}
		}
		terms = append(terms, symbolic.MulOf(factors...))
	}
	return symbolic.AddOf(terms...)
}

func (r *Ring) monoExpr(m Monomial) symbolic.Expr {
	factors := []symbolic.Expr{symbolic.N(1)}
	for i, e := range m {
		if e > 0 {
			factors = append(factors, r.varPow(i, e))
		}
	}
	return symbolic.MulOf(factors...)
}

// varPow prints exp kernels as exp(e*u) rather than exp(u)^e.
func (r *Ring) varPow(i, e int) symbolic.Expr {
	v := r.vars[i]
	if fn, ok := v.Expr.(*symbolic.Func); ok && fn.FuncName() == "exp" {
		return symbolic.ExpOf(symbolic.MulOf(symbolic.N(int64(e)), fn.Arg()))
	}
	return symbolic.PowOf(v.Expr, symbolic.N(int64(e)))
}

// Format prints f.
func (r *Ring) Format(f Frac) string { return r.ToExpr(f).String() }

// ============================================================
// Differentiation
// ============================================================

// Diff is the partial derivative of f with respect to the symbol name,
// applying the chain rule through kernels and undefined functions.
func (r *Ring) Diff(f Frac, name string) (Frac, error) {
	if f.IsZero() {
		return Frac{}, nil
	}
	dnum, err := r.polyDiff(f.num, name)
	if err != nil {
		return Frac{}, err
	}
	out := dnum.Mul(f.invDen())
	for i, e := range f.mono {
		if e == 0 {
			continue
		}
		dv, err := r.varDiff(i, name)
		if err != nil {
			return Frac{}, err
		}
		if dv.IsZero() {
			continue
		}
		// d(v^-e) = -e v^-e dv / v
		inv := Frac{num: PolyInt(1), mono: unitMonomial(i, 1)}
		out = out.Add(f.Mul(dv).Mul(inv).Scale(big.NewRat(int64(-e), 1)))
	}
	for _, fa := range f.facs {
		dp, err := r.polyDiff(fa.poly, name)
		if err != nil {
			return Frac{}, err
		}
		if dp.IsZero() {
			continue
		}
		inv := Frac{num: PolyInt(1), facs: []factor{{poly: fa.poly, key: fa.key, exp: 1}}}
		out = out.Add(f.Mul(dp).Mul(inv).Scale(big.NewRat(int64(-fa.exp), 1)))
	}
	return out, nil
}

func (r *Ring) polyDiff(p Poly, name string) (Frac, error) {
	out := Frac{}
	for _, i := range p.Vars() {
		dv, err := r.varDiff(i, name)
		if err != nil {
			return Frac{}, err
		}
		if dv.IsZero() {
			continue
		}
		out = out.Add(FracPoly(p.Deriv(i)).Mul(dv))
	}
	return out, nil
}

func (r *Ring) varDiff(i int, name string) (Frac, error) {
	v := r.vars[i]
	if v.Role != RoleKernel && v.Role != RoleFunction {
		if v.Name == name {
			return FracInt(1), nil
		}
		return Frac{}, nil
	}
	if !v.DependsOn(name) {
		return Frac{}, nil
	}
	key := derivKey{v: i, by: name}
	if d, ok := r.derivs[key]; ok {
		return d, nil
	}
	d, err := r.FromExpr(symbolic.Diff(v.Expr, name))
	if err != nil {
		return Frac{}, fmt.Errorf("differentiate %s by %s: %w", v.Name, name, err)
	}
	r.derivs[key] = d
	return d, nil
}

// Integrate returns the antiderivative of f in the plain symbol i with zero
// constant term. It reports false unless f is a polynomial in i whose
// coefficients do not depend on i.
func (r *Ring) Integrate(f Frac, i int) (Frac, bool) {
	name := r.vars[i].Name
	if f.mono.Exp(i) > 0 {
		return Frac{}, false
	}
	for _, fa := range f.facs {
		if fa.poly.Has(i) {
			return Frac{}, false
		}
	}
	for _, j := range f.Vars() {
		if j != i && r.vars[j].DependsOn(name) {
			return Frac{}, false
		}
	}
	out := Poly{}
	for e, c := range f.num.Collect(i) {
		if c.IsZero() {
			continue
		}
		out = out.Add(c.MulMonomial(unitMonomial(i, e+1)).Scale(big.NewRat(1, int64(e+1))))
	}
	return normalize(out, f.mono, f.facs), true
}

// FunctionValue returns, for every interned occurrence of the undefined
// function name, the matching derivative of value. Substituting the result
// replaces the function consistently.
func (r *Ring) FunctionValue(name string, value Frac) (map[int]Frac, error) {
	out := map[int]Frac{}
	for _, i := range r.FunctionVars(name) {
		fn := r.vars[i].Expr.(*symbolic.Function)
		d := value
		orders := fn.Orders()
		for k, arg := range fn.Args() {
			for n := 0; n < orders[k]; n++ {
				var err error
				if d, err = r.Diff(d, arg); err != nil {
					return nil, err
				}
			}
		}
		out[i] = d
	}
	return out, nil
}
