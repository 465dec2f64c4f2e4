package algebra

import (
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// ============================================================
// Monomial
// ============================================================

// Monomial is an exponent vector indexed by ring variable. Trailing zero
// exponents are trimmed so that equal monomials have equal keys.
type Monomial []int

func unitMonomial(i, e int) Monomial {
	m := make(Monomial, i+1)
	m[i] = e
	return m
}

func (m Monomial) trim() Monomial {
	n := len(m)
	for n > 0 && m[n-1] == 0 {
		n--
	}
	return m[:n]
}

// Exp returns the exponent of variable i.
func (m Monomial) Exp(i int) int {
	if i < len(m) {
		return m[i]
	}
	return 0
}

func (m Monomial) Degree() int {
	d := 0
	for _, e := range m {
		d += e
	}
	return d
}

func (m Monomial) IsOne() bool { return len(m.trim()) == 0 }

func (m Monomial) Key() string {
	var sb strings.Builder
	for i, e := range m.trim() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(e))
	}
	return sb.String()
}

func (m Monomial) Mul(o Monomial) Monomial {
	n := len(m)
	if len(o) > n {
		n = len(o)
	}
	out := make(Monomial, n)
	for i := range out {
		out[i] = m.Exp(i) + o.Exp(i)
	}
	return out.trim()
}

// Div returns m/o when every exponent of o is at most the matching one of m.
func (m Monomial) Div(o Monomial) (Monomial, bool) {
	for i, e := range o {
		if e > m.Exp(i) {
			return nil, false
		}
	}
	out := make(Monomial, len(m))
	for i := range out {
		out[i] = m[i] - o.Exp(i)
	}
	return out.trim(), true
}

func gcdMonomial(a, b Monomial) Monomial {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make(Monomial, n)
	for i := range out {
		out[i] = a[i]
		if b[i] < out[i] {
			out[i] = b[i]
		}
	}
	return out.trim()
}

func lcmMonomial(a, b Monomial) Monomial {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make(Monomial, n)
	for i := range out {
		out[i] = a.Exp(i)
		if b.Exp(i) > out[i] {
			out[i] = b.Exp(i)
		}
	}
	return out.trim()
}

// cmpMonomial orders monomials lexicographically with variable 0 most
// significant.
func cmpMonomial(a, b Monomial) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ea, eb := a.Exp(i), b.Exp(i)
		if ea != eb {
			if ea > eb {
				return 1
			}
			return -1
		}
	}
	return 0
}

// ============================================================
// Poly — sparse multivariate polynomial over Q
// ============================================================

// Term is a single coefficient-monomial pair.
type Term struct {
	Mono  Monomial
	Coeff *big.Rat
}

// Poly is a sparse polynomial keyed by monomial. The zero value is the zero
// polynomial. Polys are never mutated after construction.
type Poly struct {
	terms map[string]Term
}

func PolyConst(c *big.Rat) Poly {
	if c.Sign() == 0 {
		return Poly{}
	}
	return Poly{terms: map[string]Term{"": {Mono: nil, Coeff: new(big.Rat).Set(c)}}}
}

func PolyInt(n int64) Poly { return PolyConst(new(big.Rat).SetInt64(n)) }

// PolyVar is the polynomial consisting of variable i.
func PolyVar(i int) Poly { return PolyMonomial(unitMonomial(i, 1), big.NewRat(1, 1)) }

func PolyMonomial(m Monomial, c *big.Rat) Poly {
	if c.Sign() == 0 {
		return Poly{}
	}
	m = m.trim()
	return Poly{terms: map[string]Term{m.Key(): {Mono: m, Coeff: new(big.Rat).Set(c)}}}
}

func (p Poly) Len() int      { return len(p.terms) }
func (p Poly) IsZero() bool  { return len(p.terms) == 0 }
func (p Poly) IsConst() bool { _, ok := p.Const(); return ok }

// Const returns the value of a constant polynomial.
func (p Poly) Const() (*big.Rat, bool) {
	switch len(p.terms) {
	case 0:
		return new(big.Rat), true
	case 1:
		if t, ok := p.terms[""]; ok {
			return new(big.Rat).Set(t.Coeff), true
		}
	}
	return nil, false
}

// Terms returns the terms in descending lex order.
func (p Poly) Terms() []Term {
	out := make([]Term, 0, len(p.terms))
	for _, t := range p.terms {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return cmpMonomial(out[i].Mono, out[j].Mono) > 0 })
	return out
}

// Lead returns the lex-leading term. It panics on the zero polynomial.
func (p Poly) Lead() Term {
	var lead Term
	first := true
	for _, t := range p.terms {
		if first || cmpMonomial(t.Mono, lead.Mono) > 0 {
			lead, first = t, false
		}
	}
	if first {
		panic("algebra: leading term of zero polynomial")
	}
	return lead
}

// single returns the only term of a monomial polynomial.
func (p Poly) single() (Term, bool) {
	if len(p.terms) != 1 {
		return Term{}, false
	}
	for _, t := range p.terms {
		return t, true
	}
	return Term{}, false
}

func (p Poly) clone(extra int) map[string]Term {
	out := make(map[string]Term, len(p.terms)+extra)
	for k, t := range p.terms {
		out[k] = t
	}
	return out
}

func addInto(terms map[string]Term, m Monomial, c *big.Rat) {
	key := m.Key()
	if old, ok := terms[key]; ok {
		sum := new(big.Rat).Add(old.Coeff, c)
		if sum.Sign() == 0 {
			delete(terms, key)
			return
		}
		terms[key] = Term{Mono: old.Mono, Coeff: sum}
		return
	}
	if c.Sign() != 0 {
		terms[key] = Term{Mono: m.trim(), Coeff: new(big.Rat).Set(c)}
	}
}

func (p Poly) Add(q Poly) Poly {
	if p.IsZero() {
		return q
	}
	if q.IsZero() {
		return p
	}
	out := p.clone(len(q.terms))
	for _, t := range q.terms {
		addInto(out, t.Mono, t.Coeff)
	}
	return Poly{terms: out}
}

func (p Poly) Neg() Poly { return p.Scale(big.NewRat(-1, 1)) }

func (p Poly) Sub(q Poly) Poly { return p.Add(q.Neg()) }

func (p Poly) Scale(c *big.Rat) Poly {
	if c.Sign() == 0 || p.IsZero() {
		return Poly{}
	}
	out := make(map[string]Term, len(p.terms))
	for k, t := range p.terms {
		out[k] = Term{Mono: t.Mono, Coeff: new(big.Rat).Mul(t.Coeff, c)}
	}
	return Poly{terms: out}
}

// MulTerm multiplies p by a single term.
func (p Poly) MulTerm(t Term) Poly {
	if t.Coeff.Sign() == 0 || p.IsZero() {
		return Poly{}
	}
	out := make(map[string]Term, len(p.terms))
	for _, s := range p.terms {
		m := s.Mono.Mul(t.Mono)
		out[m.Key()] = Term{Mono: m, Coeff: new(big.Rat).Mul(s.Coeff, t.Coeff)}
	}
	return Poly{terms: out}
}

func (p Poly) MulMonomial(m Monomial) Poly {
	return p.MulTerm(Term{Mono: m, Coeff: big.NewRat(1, 1)})
}

func (p Poly) Mul(q Poly) Poly {
	if p.IsZero() || q.IsZero() {
		return Poly{}
	}
	if len(q.terms) > len(p.terms) {
		p, q = q, p
	}
	out := map[string]Term{}
	for _, t := range q.terms {
		for _, s := range p.terms {
			addInto(out, s.Mono.Mul(t.Mono), new(big.Rat).Mul(s.Coeff, t.Coeff))
		}
	}
	return Poly{terms: out}
}

func (p Poly) Pow(n int) Poly {
	out := PolyInt(1)
	base := p
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

func (p Poly) Equal(q Poly) bool {
	if len(p.terms) != len(q.terms) {
		return false
	}
	for k, t := range p.terms {
		s, ok := q.terms[k]
		if !ok || s.Coeff.Cmp(t.Coeff) != 0 {
			return false
		}
	}
	return true
}

// Vars returns the indices of the variables occurring in p, ascending.
func (p Poly) Vars() []int {
	seen := map[int]bool{}
	for _, t := range p.terms {
		for i, e := range t.Mono {
			if e > 0 {
				seen[i] = true
			}
		}
	}
	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Has reports whether variable i occurs in p.
func (p Poly) Has(i int) bool {
	for _, t := range p.terms {
		if t.Mono.Exp(i) > 0 {
			return true
		}
	}
	return false
}

// Degree is the degree of p in variable i.
func (p Poly) Degree(i int) int {
	d := 0
	for _, t := range p.terms {
		if e := t.Mono.Exp(i); e > d {
			d = e
		}
	}
	return d
}

// Deriv is the formal partial derivative in variable i.
func (p Poly) Deriv(i int) Poly {
	out := map[string]Term{}
	for _, t := range p.terms {
		e := t.Mono.Exp(i)
		if e == 0 {
			continue
		}
		m := append(Monomial(nil), t.Mono...)
		m[i]--
		addInto(out, m, new(big.Rat).Mul(t.Coeff, new(big.Rat).SetInt64(int64(e))))
	}
	return Poly{terms: out}
}

// MinMonomial is the greatest monomial dividing every term of p.
func (p Poly) MinMonomial() Monomial {
	var g Monomial
	first := true
	for _, t := range p.terms {
		if first {
			g, first = t.Mono, false
			continue
		}
		g = gcdMonomial(g, t.Mono)
	}
	return g.trim()
}

// DivMonomial divides every term by m, which must divide them all.
func (p Poly) DivMonomial(m Monomial) Poly {
	if m.IsOne() {
		return p
	}
	out := make(map[string]Term, len(p.terms))
	for _, t := range p.terms {
		q, ok := t.Mono.Div(m)
		if !ok {
			panic("algebra: monomial does not divide polynomial")
		}
		out[q.Key()] = Term{Mono: q, Coeff: t.Coeff}
	}
	return Poly{terms: out}
}

// Content is the rational c such that p/c has coprime integer coefficients
// and a positive leading coefficient. The content of zero is 1.
func (p Poly) Content() *big.Rat {
	if p.IsZero() {
		return big.NewRat(1, 1)
	}
	num := new(big.Int)
	den := big.NewInt(1)
	for _, t := range p.terms {
		num.GCD(nil, nil, num, new(big.Int).Abs(t.Coeff.Num()))
		d := t.Coeff.Denom()
		g := new(big.Int).GCD(nil, nil, den, d)
		den.Mul(den, new(big.Int).Quo(d, g))
	}
	c := new(big.Rat).SetFrac(num, den)
	if p.Lead().Coeff.Sign() < 0 {
		c.Neg(c)
	}
	return c
}

// Primitive returns the content and the primitive part of p.
func (p Poly) Primitive() (*big.Rat, Poly) {
	c := p.Content()
	return c, p.Scale(new(big.Rat).Inv(c))
}

// Key is a canonical string for p, stable across runs.
func (p Poly) Key() string {
	var sb strings.Builder
	for i, t := range p.Terms() {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(t.Coeff.RatString())
		sb.WriteByte('@')
		sb.WriteString(t.Mono.Key())
	}
	return sb.String()
}

// maxDivSteps bounds exact division; lex reduction always terminates but
// may take long on inputs that do not divide.
const maxDivSteps = 20000

// DivExact returns a/b when b divides a exactly.
func DivExact(a, b Poly) (Poly, bool) {
	if b.IsZero() {
		return Poly{}, false
	}
	if a.IsZero() {
		return Poly{}, true
	}
	if c, ok := b.Const(); ok {
		return a.Scale(new(big.Rat).Inv(c)), true
	}
	lb := b.Lead()
	quot := map[string]Term{}
	r := a
	for step := 0; !r.IsZero(); step++ {
		if step == maxDivSteps {
			return Poly{}, false
		}
		lr := r.Lead()
		m, ok := lr.Mono.Div(lb.Mono)
		if !ok {
			return Poly{}, false
		}
		t := Term{Mono: m, Coeff: new(big.Rat).Quo(lr.Coeff, lb.Coeff)}
		addInto(quot, t.Mono, t.Coeff)
		r = r.Sub(b.MulTerm(t))
	}
	return Poly{terms: quot}, true
}

// Split groups the terms of p by their monomial in the variables selected by
// atom and returns the coefficient of each group, a polynomial in the
// remaining variables. Groups are ordered by descending atom monomial.
func (p Poly) Split(atom func(i int) bool) []Poly {
	type group struct {
		mono  Monomial
		terms map[string]Term
	}
	groups := map[string]*group{}
	for _, t := range p.terms {
		in := make(Monomial, len(t.Mono))
		out := make(Monomial, len(t.Mono))
		for i, e := range t.Mono {
			if atom(i) {
				in[i] = e
			} else {
				out[i] = e
			}
		}
		key := in.Key()
		g, ok := groups[key]
		if !ok {
			g = &group{mono: in.trim(), terms: map[string]Term{}}
			groups[key] = g
		}
		addInto(g.terms, out, t.Coeff)
	}
	list := make([]*group, 0, len(groups))
	for _, g := range groups {
		list = append(list, g)
	}
	sort.Slice(list, func(i, j int) bool { return cmpMonomial(list[i].mono, list[j].mono) > 0 })
	out := make([]Poly, 0, len(list))
	for _, g := range list {
		if len(g.terms) > 0 {
			out = append(out, Poly{terms: g.terms})
		}
	}
	return out
}

// Collect returns the coefficient of each power of variable i, indexed by
// exponent.
func (p Poly) Collect(i int) []Poly {
	out := make([]Poly, p.Degree(i)+1)
	for _, t := range p.terms {
		e := t.Mono.Exp(i)
		m := append(Monomial(nil), t.Mono...)
		if e > 0 {
			m[i] = 0
		}
		out[e] = out[e].Add(PolyMonomial(m, t.Coeff))
	}
	return out
}
