package symbolic

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

// ============================================================
// Infix parser
// ============================================================

// ErrSyntax is wrapped by every error returned from Parse.
var ErrSyntax = errors.New("syntax error")

// SyntaxError reports the offending position in the input.
type SyntaxError struct {
	Input string
	Pos   int
	Msg   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at offset %d in %q: %s", ErrSyntax, e.Pos, e.Input, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// Parse reads an infix expression.
//
// Grammar:
//
//	expr    = term { ("+" | "-") term }
//	term    = unary { ("*" | "/") unary }
//	unary   = ("-" | "+") unary | power
//	power   = primary [ ("^" | "**") unary ]
//	primary = number | name | name "(" args ")" | "(" expr ")"
//
// Decimal literals are read exactly (0.1 is 1/10). Calls to exp, ln, log,
// sin, cos, tan, sinh, cosh, tanh, abs and sqrt build elementary functions;
// any other call with symbol arguments, such as f(t), builds an undefined
// Function.
func Parse(input string) (Expr, error) {
	p := &parser{input: input}
	if err := p.lex(); err != nil {
		return nil, err
	}
	if len(p.toks) == 0 {
		return nil, p.errorf(0, "empty expression")
	}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t.pos, "unexpected %q", t.text)
	}
	return e.Simplify(), nil
}

// MustParse is Parse for literals in code and tests; it panics on error.
func MustParse(input string) Expr {
	e, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return e
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokNum
	tokName
	tokOp
)

type token struct {
	kind tokKind
	text string
	pos  int
}

type parser struct {
	input string
	toks  []token
	at    int
}

func (p *parser) errorf(pos int, format string, args ...interface{}) error {
	return &SyntaxError{Input: p.input, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) lex() error {
	rs := []rune(p.input)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsDigit(r) || (r == '.' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			start := i
			for i < len(rs) && (unicode.IsDigit(rs[i]) || rs[i] == '.') {
				i++
			}
			if i < len(rs) && (rs[i] == 'e' || rs[i] == 'E') {
				j := i + 1
				if j < len(rs) && (rs[j] == '+' || rs[j] == '-') {
					j++
				}
				if j < len(rs) && unicode.IsDigit(rs[j]) {
					i = j
					for i < len(rs) && unicode.IsDigit(rs[i]) {
						i++
					}
				}
			}
			p.toks = append(p.toks, token{kind: tokNum, text: string(rs[start:i]), pos: start})
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(rs) && (unicode.IsLetter(rs[i]) || unicode.IsDigit(rs[i]) || rs[i] == '_') {
				i++
			}
			p.toks = append(p.toks, token{kind: tokName, text: string(rs[start:i]), pos: start})
		case r == '*' && i+1 < len(rs) && rs[i+1] == '*':
			p.toks = append(p.toks, token{kind: tokOp, text: "^", pos: i})
			i += 2
		case strings.ContainsRune("+-*/^(),", r):
			p.toks = append(p.toks, token{kind: tokOp, text: string(r), pos: i})
			i++
		default:
			return p.errorf(i, "unexpected character %q", r)
		}
	}
	return nil
}

func (p *parser) peek() token {
	if p.at >= len(p.toks) {
		return token{kind: tokEOF, pos: len(p.input)}
	}
	return p.toks[p.at]
}

func (p *parser) next() token {
	t := p.peek()
	if p.at < len(p.toks) {
		p.at++
	}
	return t
}

func (p *parser) accept(op string) bool {
	if t := p.peek(); t.kind == tokOp && t.text == op {
		p.at++
		return true
	}
	return false
}

func (p *parser) expect(op string) error {
	if !p.accept(op) {
		t := p.peek()
		if t.kind == tokEOF {
			return p.errorf(t.pos, "expected %q before end of input", op)
		}
		return p.errorf(t.pos, "expected %q, found %q", op, t.text)
	}
	return nil
}

func (p *parser) expr() (Expr, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	terms := []Expr{left}
	for {
		switch {
		case p.accept("+"):
			t, err := p.term()
			if err != nil {
				return nil, err
			}
			terms = append(terms, t)
		case p.accept("-"):
			t, err := p.term()
			if err != nil {
				return nil, err
			}
			terms = append(terms, MulOf(N(-1), t))
		default:
			if len(terms) == 1 {
				return terms[0], nil
			}
			return AddOf(terms...), nil
		}
	}
}

func (p *parser) term() (Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	factors := []Expr{left}
	for {
		switch {
		case p.accept("*"):
			f, err := p.unary()
			if err != nil {
				return nil, err
			}
			factors = append(factors, f)
		case p.accept("/"):
			pos := p.peek().pos
			f, err := p.unary()
			if err != nil {
				return nil, err
			}
			if IsZero(f) {
				return nil, p.errorf(pos, "division by zero")
			}
			factors = append(factors, PowOf(f, N(-1)))
		default:
			if len(factors) == 1 {
				return factors[0], nil
			}
			return MulOf(factors...), nil
		}
	}
}

func (p *parser) unary() (Expr, error) {
	if p.accept("-") {
		e, err := p.unary()
		if err != nil {
			return nil, err
		}
		return MulOf(N(-1), e), nil
	}
	if p.accept("+") {
		return p.unary()
	}
	return p.power()
}

func (p *parser) power() (Expr, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if p.accept("^") {
		exp, err := p.unary()
		if err != nil {
			return nil, err
		}
		return PowOf(base, exp), nil
	}
	return base, nil
}

func (p *parser) primary() (Expr, error) {
	t := p.next()
	switch t.kind {
	case tokNum:
		r, ok := new(big.Rat).SetString(t.text)
		if !ok {
			return nil, p.errorf(t.pos, "invalid number %q", t.text)
		}
		return &Num{val: r}, nil
	case tokName:
		if !p.accept("(") {
			return S(t.text), nil
		}
		return p.call(t)
	case tokOp:
		if t.text == "(" {
			e, err := p.expr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return e, nil
		}
		return nil, p.errorf(t.pos, "unexpected %q", t.text)
	}
	return nil, p.errorf(t.pos, "unexpected end of input")
}

func (p *parser) call(name token) (Expr, error) {
	var args []Expr
	if !p.accept(")") {
		for {
			a, err := p.expr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.accept(")") {
				break
			}
			if err := p.expect(","); err != nil {
				return nil, err
			}
		}
	}
	fname := name.text
	switch fname {
	case "log":
		fname = "ln"
	case "sqrt":
		if len(args) != 1 {
			return nil, p.errorf(name.pos, "sqrt takes 1 argument, got %d", len(args))
		}
		return SqrtOf(args[0]), nil
	}
	if IsElementary(fname) {
		if len(args) != 1 {
			return nil, p.errorf(name.pos, "%s takes 1 argument, got %d", name.text, len(args))
		}
		return funcOf(fname, args[0]).Simplify(), nil
	}
	names := make([]string, len(args))
	for i, a := range args {
		s, ok := a.(*Sym)
		if !ok {
			return nil, p.errorf(name.pos, "argument %d of %s must be a symbol, got %s", i+1, name.text, a)
		}
		names[i] = s.name
	}
	return Fn(fname, names...), nil
}
