package algebra

import (
	"context"
	"math/big"
	"sort"
)

// Row is one linear equation Σ Coeffs[u]·u + Const = 0 over polynomial
// coefficients.
type Row struct {
	Coeffs map[int]Poly
	Const  Poly
}

// Linearize reads p as a linear form in the variables selected by unknown.
// It reports false when some term has degree above one in the unknowns.
func Linearize(p Poly, unknown func(i int) bool) (Row, bool) {
	row := Row{Coeffs: map[int]Poly{}}
	for _, t := range p.Terms() {
		u, deg := -1, 0
		for i, e := range t.Mono {
			if e > 0 && unknown(i) {
				deg += e
				u = i
			}
		}
		switch deg {
		case 0:
			row.Const = row.Const.Add(PolyMonomial(t.Mono, t.Coeff))
		case 1:
			m := append(Monomial(nil), t.Mono...)
			m[u] = 0
			row.Coeffs[u] = row.Coeffs[u].Add(PolyMonomial(m, t.Coeff))
		default:
			return Row{}, false
		}
	}
	for u, c := range row.Coeffs {
		if c.IsZero() {
			delete(row.Coeffs, u)
		}
	}
	return row, true
}

// Pivot is a solved unknown: Coeff·Var + Σ Rest[u]·u + Const = 0 where no
// other pivot variable occurs in Rest.
type Pivot struct {
	Var   int
	Coeff Poly
	Rest  map[int]Poly
	Const Poly
}

// Elimination is the reduced row echelon form of a linear system.
type Elimination struct {
	Pivots []Pivot
	// Inconsistent is set when some row reduces to Const = 0 with a non-zero
	// constant.
	Inconsistent bool
	// Assumptions lists the non-constant pivots, which must not vanish for
	// the solution to hold.
	Assumptions []Poly
}

// Rank is the number of pivots.
func (e *Elimination) Rank() int { return len(e.Pivots) }

// Eliminate runs fraction-free Gauss–Jordan elimination on rows with the
// unknowns cols in column order. Rows that share no unknown, directly or
// through other rows, are eliminated as separate blocks. After every
// combination step a row is divided exactly by the previous pivot of its
// block when possible (Bareiss) and then by its numeric and monomial content.
//
// The context is checked between polynomial operations; its error is
// returned as is.
func Eliminate(ctx context.Context, rows []Row, cols []int) (*Elimination, error) {
	n := len(cols)
	out := &Elimination{}
	m := make([][]Poly, 0, len(rows))
	for _, r := range rows {
		line := make([]Poly, n+1)
		zero := true
		for j, u := range cols {
			line[j] = r.Coeffs[u]
			if !line[j].IsZero() {
				zero = false
			}
		}
		line[n] = r.Const
		if zero {
			if !line[n].IsZero() {
				out.Inconsistent = true
			}
			continue
		}
		line, err := reduceRow(ctx, line, Poly{})
		if err != nil {
			return nil, err
		}
		m = append(m, line)
	}

	var found []Pivot
	for _, b := range blocks(m, n) {
		ps, err := eliminateBlock(ctx, b, n, out)
		if err != nil {
			return nil, err
		}
		found = append(found, ps...)
	}
	sort.Slice(found, func(a, b int) bool { return found[a].Var < found[b].Var })
	for _, p := range found {
		p.Var = cols[p.Var]
		rest := make(map[int]Poly, len(p.Rest))
		for k, c := range p.Rest {
			rest[cols[k]] = c
		}
		p.Rest = rest
		out.Pivots = append(out.Pivots, p)
	}
	return out, nil
}

// block is a set of rows together with the columns they use, ascending.
type block struct {
	lines [][]Poly
	cols  []int
}

// blocks groups the rows of m into connected components of the relation
// "has a non-zero entry in a common column".
func blocks(m [][]Poly, n int) []block {
	parent := make([]int, n)
	for j := range parent {
		parent[j] = j
	}
	var find func(j int) int
	find = func(j int) int {
		for parent[j] != j {
			parent[j] = parent[parent[j]]
			j = parent[j]
		}
		return j
	}
	used := make([]bool, n)
	for _, line := range m {
		first := -1
		for j := 0; j < n; j++ {
			if line[j].IsZero() {
				continue
			}
			used[j] = true
			if first < 0 {
				first = j
				continue
			}
			if a, b := find(first), find(j); a != b {
				parent[b] = a
			}
		}
	}

	index := map[int]int{}
	var out []block
	for j := 0; j < n; j++ {
		if !used[j] {
			continue
		}
		r := find(j)
		k, ok := index[r]
		if !ok {
			k = len(out)
			index[r] = k
			out = append(out, block{})
		}
		out[k].cols = append(out[k].cols, j)
	}
	for _, line := range m {
		for j := 0; j < n; j++ {
			if !line[j].IsZero() {
				k := index[find(j)]
				out[k].lines = append(out[k].lines, line)
				break
			}
		}
	}
	return out
}

// eliminateBlock reduces one block in place and returns its pivots with
// column positions in Var and Rest. Assumptions and inconsistency are
// recorded on out.
func eliminateBlock(ctx context.Context, b block, n int, out *Elimination) ([]Pivot, error) {
	m := b.lines
	var pivotCols []int
	prev := PolyInt(1)
	rank := 0
	for _, j := range b.cols {
		if rank == len(m) {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		best := -1
		for i := rank; i < len(m); i++ {
			if m[i][j].IsZero() {
				continue
			}
			if best < 0 || simpler(m[i][j], m[best][j]) {
				best = i
			}
		}
		if best < 0 {
			continue
		}
		m[rank], m[best] = m[best], m[rank]
		piv := m[rank][j]
		for i := range m {
			if i == rank || m[i][j].IsZero() {
				continue
			}
			a := m[i][j]
			line := make([]Poly, n+1)
			for _, k := range b.cols {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				line[k] = piv.Mul(m[i][k]).Sub(a.Mul(m[rank][k]))
			}
			line[n] = piv.Mul(m[i][n]).Sub(a.Mul(m[rank][n]))
			reduced, err := reduceRow(ctx, line, prev)
			if err != nil {
				return nil, err
			}
			m[i] = reduced
		}
		if !piv.IsConst() {
			out.Assumptions = append(out.Assumptions, piv)
		}
		prev = piv
		pivotCols = append(pivotCols, j)
		rank++
	}

	for i := rank; i < len(m); i++ {
		if !m[i][n].IsZero() {
			out.Inconsistent = true
		}
	}
	pivots := make([]Pivot, 0, len(pivotCols))
	for i, j := range pivotCols {
		p := Pivot{Var: j, Coeff: m[i][j], Rest: map[int]Poly{}, Const: m[i][n]}
		for _, k := range b.cols {
			if k != j && !m[i][k].IsZero() {
				p.Rest[k] = m[i][k]
			}
		}
		pivots = append(pivots, p)
	}
	return pivots, nil
}

// simpler prefers constant pivots, then fewer terms.
func simpler(a, b Poly) bool {
	ac, bc := a.IsConst(), b.IsConst()
	if ac != bc {
		return ac
	}
	return a.Len() < b.Len()
}

// reduceRow divides a row by the previous pivot when that is exact for every
// entry, then removes the numeric and monomial content of the row.
func reduceRow(ctx context.Context, line []Poly, prev Poly) ([]Poly, error) {
	if !prev.IsZero() && !prev.IsConst() {
		divided := make([]Poly, len(line))
		ok := true
		for k, p := range line {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			q, exact := DivExact(p, prev)
			if !exact {
				ok = false
				break
			}
			divided[k] = q
		}
		if ok {
			line = divided
		}
	}
	var mono Monomial
	num := new(big.Int)
	den := big.NewInt(1)
	first := true
	var lead *big.Rat
	for _, p := range line {
		if p.IsZero() {
			continue
		}
		if first {
			mono, first = p.MinMonomial(), false
			lead = p.Lead().Coeff
		} else {
			mono = gcdMonomial(mono, p.MinMonomial())
		}
		for _, t := range p.Terms() {
			num.GCD(nil, nil, num, new(big.Int).Abs(t.Coeff.Num()))
			d := t.Coeff.Denom()
			g := new(big.Int).GCD(nil, nil, den, d)
			den.Mul(den, new(big.Int).Quo(d, g))
		}
	}
	if first {
		return line, nil
	}
	content := new(big.Rat).SetFrac(num, den)
	if lead.Sign() < 0 {
		content.Neg(content)
	}
	inv := new(big.Rat).Inv(content)
	out := make([]Poly, len(line))
	for k, p := range line {
		out[k] = p.DivMonomial(mono).Scale(inv)
	}
	return out, nil
}
