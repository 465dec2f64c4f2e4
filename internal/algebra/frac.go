package algebra

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
)

// factor is a primitive, non-monomial denominator factor raised to exp.
type factor struct {
	poly Poly
	key  string
	exp  int
}

// Frac is a rational function num / (mono * Π facs). The denominator is kept
// factored: mono collects variables such as inverted kernels and facs holds
// primitive polynomials with positive leading coefficient, sorted by key.
// Numeric content always lives in num. A fraction is zero iff num is zero.
type Frac struct {
	num  Poly
	mono Monomial
	facs []factor
}

func FracPoly(p Poly) Frac           { return Frac{num: p} }
func FracConst(c *big.Rat) Frac      { return Frac{num: PolyConst(c)} }
func FracInt(n int64) Frac           { return Frac{num: PolyInt(n)} }
func (f Frac) Num() Poly             { return f.num }
func (f Frac) IsZero() bool          { return f.num.IsZero() }
func (f Frac) Equal(g Frac) bool     { return f.Sub(g).IsZero() }
func (f Frac) Neg() Frac             { return Frac{num: f.num.Neg(), mono: f.mono, facs: f.facs} }
func (f Frac) Sub(g Frac) Frac       { return f.Add(g.Neg()) }
func (f Frac) Scale(c *big.Rat) Frac { return normalize(f.num.Scale(c), f.mono, f.facs) }

// IsPoly reports whether the denominator is 1.
func (f Frac) IsPoly() bool { return f.mono.IsOne() && len(f.facs) == 0 }

// Const returns the value of a numeric fraction.
func (f Frac) Const() (*big.Rat, bool) {
	if !f.IsPoly() {
		return nil, false
	}
	return f.num.Const()
}

// Den is the expanded denominator.
func (f Frac) Den() Poly {
	d := PolyMonomial(f.mono, big.NewRat(1, 1))
	for _, fa := range f.facs {
		d = d.Mul(fa.poly.Pow(fa.exp))
	}
	return d
}

// Has reports whether variable i occurs anywhere in f.
func (f Frac) Has(i int) bool {
	if f.num.Has(i) || f.mono.Exp(i) > 0 {
		return true
	}
	for _, fa := range f.facs {
		if fa.poly.Has(i) {
			return true
		}
	}
	return false
}

// Vars returns every variable occurring in f, ascending.
func (f Frac) Vars() []int {
	seen := map[int]bool{}
	for _, i := range f.num.Vars() {
		seen[i] = true
	}
	for i, e := range f.mono {
		if e > 0 {
			seen[i] = true
		}
	}
	for _, fa := range f.facs {
		for _, i := range fa.poly.Vars() {
			seen[i] = true
		}
	}
	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Key is a canonical string of the normal form.
func (f Frac) Key() string {
	var sb strings.Builder
	sb.WriteString(f.num.Key())
	sb.WriteString(" / ")
	sb.WriteString(f.mono.Key())
	for _, fa := range f.facs {
		fmt.Fprintf(&sb, " (%s)^%d", fa.key, fa.exp)
	}
	return sb.String()
}

func (f Frac) factorExp(key string) int {
	for _, fa := range f.facs {
		if fa.key == key {
			return fa.exp
		}
	}
	return 0
}

// cofactor is the polynomial that lifts f's denominator to mono * Π facs.
func (f Frac) cofactor(mono Monomial, facs []factor) Poly {
	m, ok := mono.Div(f.mono)
	if !ok {
		panic("algebra: cofactor of a non-multiple denominator")
	}
	out := PolyMonomial(m, big.NewRat(1, 1))
	for _, fa := range facs {
		if e := fa.exp - f.factorExp(fa.key); e > 0 {
			out = out.Mul(fa.poly.Pow(e))
		}
	}
	return out
}

func (f Frac) Add(g Frac) Frac {
	if f.IsZero() {
		return g
	}
	if g.IsZero() {
		return f
	}
	mono := lcmMonomial(f.mono, g.mono)
	facs := mergeFactors(f.facs, g.facs, func(a, b int) int {
		if a > b {
			return a
		}
		return b
	})
	num := f.num.Mul(f.cofactor(mono, facs)).Add(g.num.Mul(g.cofactor(mono, facs)))
	return normalize(num, mono, facs)
}

func (f Frac) Mul(g Frac) Frac {
	if f.IsZero() || g.IsZero() {
		return Frac{}
	}
	facs := mergeFactors(f.facs, g.facs, func(a, b int) int { return a + b })
	return normalize(f.num.Mul(g.num), f.mono.Mul(g.mono), facs)
}

// Pow raises f to a non-negative power.
func (f Frac) Pow(n int) Frac {
	if n < 0 {
		panic("algebra: negative power of a fraction; use Ring.PowInt")
	}
	out := FracInt(1)
	base := f
	for n > 0 {
		if n&1 == 1 {
			out = out.Mul(base)
		}
		n >>= 1
		if n > 0 {
			base = base.Mul(base)
		}
	}
	return out
}

// invDen is 1 over f's denominator.
func (f Frac) invDen() Frac {
	return Frac{num: PolyInt(1), mono: f.mono, facs: f.facs}
}

// mergeFactors merges two key-sorted factor lists, combining the exponents
// of shared factors with combine.
func mergeFactors(a, b []factor, combine func(x, y int) int) []factor {
	out := make([]factor, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j == len(b) || (i < len(a) && a[i].key < b[j].key):
			out = append(out, a[i])
			i++
		case i == len(a) || b[j].key < a[i].key:
			out = append(out, b[j])
			j++
		default:
			fa := a[i]
			fa.exp = combine(a[i].exp, b[j].exp)
			out = append(out, fa)
			i++
			j++
		}
	}
	return out
}

// normalize cancels the monomial part and every denominator factor that
// divides the numerator.
func normalize(num Poly, mono Monomial, facs []factor) Frac {
	if num.IsZero() {
		return Frac{}
	}
	mono = mono.trim()
	if !mono.IsOne() {
		if g := gcdMonomial(num.MinMonomial(), mono); !g.IsOne() {
			num = num.DivMonomial(g)
			mono, _ = mono.Div(g)
		}
	}
	var kept []factor
	for _, fa := range facs {
		for fa.exp > 0 {
			q, ok := DivExact(num, fa.poly)
			if !ok {
				break
			}
			num = q
			fa.exp--
		}
		if fa.exp > 0 {
			kept = append(kept, fa)
		}
	}
	return Frac{num: num, mono: mono, facs: kept}
}

// factorize splits a non-zero polynomial into a rational unit, a monomial
// and primitive factors. Factors already known to the ring are divided out
// first; any remainder is registered as a new factor.
func (r *Ring) factorize(p Poly) (*big.Rat, Monomial, []factor) {
	mono := p.MinMonomial()
	p = p.DivMonomial(mono)
	unit, p := p.Primitive()
	if p.IsConst() {
		return unit, mono, nil
	}
	var out []factor
	for _, known := range r.factors {
		exp := 0
		for !p.IsConst() {
			q, ok := DivExact(p, known.poly)
			if !ok {
				break
			}
			p = q
			exp++
		}
		if exp > 0 {
			k := known
			k.exp = exp
			out = append(out, k)
		}
		if p.IsConst() {
			break
		}
	}
	if c, ok := p.Const(); ok {
		unit.Mul(unit, c)
	} else {
		c, prim := p.Primitive()
		unit.Mul(unit, c)
		fa := factor{poly: prim, key: prim.Key(), exp: 1}
		r.registerFactor(fa)
		out = append(out, fa)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return unit, mono, out
}

func (r *Ring) registerFactor(fa factor) {
	for _, known := range r.factors {
		if known.key == fa.key {
			return
		}
	}
	fa.exp = 1
	r.factors = append(r.factors, fa)
}

// Inv returns 1/f.
func (r *Ring) Inv(f Frac) (Frac, error) {
	if f.IsZero() {
		return Frac{}, ErrDivisionByZero
	}
	unit, mono, facs := r.factorize(f.num)
	num := PolyMonomial(f.mono, new(big.Rat).Inv(unit))
	for _, fa := range f.facs {
		num = num.Mul(fa.poly.Pow(fa.exp))
	}
	return normalize(num, mono, facs), nil
}

// Div returns a/b.
func (r *Ring) Div(a, b Frac) (Frac, error) {
	inv, err := r.Inv(b)
	if err != nil {
		return Frac{}, err
	}
	return a.Mul(inv), nil
}

// maxPower bounds integer exponents accepted from expressions.
const maxPower = 1000

// PowInt raises f to an integer power, inverting for negative n.
func (r *Ring) PowInt(f Frac, n int) (Frac, error) {
	if n > maxPower || n < -maxPower {
		return Frac{}, fmt.Errorf("exponent %d out of range", n)
	}
	if n >= 0 {
		return f.Pow(n), nil
	}
	inv, err := r.Inv(f)
	if err != nil {
		return Frac{}, err
	}
	return inv.Pow(-n), nil
}

// Substitute replaces the variables in values by the given fractions.
func (r *Ring) Substitute(f Frac, values map[int]Frac) (Frac, error) {
	touched := false
	for i := range values {
		if f.Has(i) {
			touched = true
			break
		}
	}
	if !touched {
		return f, nil
	}
	num := substPoly(f.num, values)
	if f.IsPoly() {
		return num, nil
	}
	den := substPoly(f.Den(), values)
	return r.Div(num, den)
}

func substPoly(p Poly, values map[int]Frac) Frac {
	out := Frac{}
	for _, t := range p.Terms() {
		rest := make(Monomial, len(t.Mono))
		term := FracConst(t.Coeff)
		for i, e := range t.Mono {
			if e == 0 {
				continue
			}
			if v, ok := values[i]; ok {
				term = term.Mul(v.Pow(e))
			} else {
				rest[i] = e
			}
		}
		out = out.Add(term.Mul(FracPoly(PolyMonomial(rest, big.NewRat(1, 1)))))
	}
	return out
}
