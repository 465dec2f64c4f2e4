package symbolic

import (
	"strings"
)

// ============================================================
// Function — undefined function of symbols, possibly differentiated
// ============================================================

// Function is an undefined function applied to symbol arguments, such as the
// coefficient xi(t, x) of an infinitesimal generator. Orders holds the number
// of times the function was differentiated in each argument, so eta_x(t, x)
// is Function{name: "eta", args: [t x], orders: [0 1]}.
//
// Arguments are coordinates, not expressions: Sub of an argument name leaves
// the function unchanged.
type Function struct {
	name   string
	args   []string
	orders []int
}

// Fn returns the undifferentiated function name(args...).
func Fn(name string, args ...string) *Function {
	return &Function{name: name, args: append([]string(nil), args...), orders: make([]int, len(args))}
}

func (f *Function) Name() string   { return f.name }
func (f *Function) Args() []string { return append([]string(nil), f.args...) }
func (f *Function) Orders() []int  { return append([]int(nil), f.orders...) }

// Order is the total differentiation order.
func (f *Function) Order() int {
	n := 0
	for _, o := range f.orders {
		n += o
	}
	return n
}

// Base returns the undifferentiated function.
func (f *Function) Base() *Function { return Fn(f.name, f.args...) }

// Derivative returns the function differentiated orders[i] more times in
// args[i]. It returns nil when orders has the wrong length.
func (f *Function) Derivative(orders []int) *Function {
	if len(orders) != len(f.args) {
		return nil
	}
	out := &Function{name: f.name, args: f.args, orders: make([]int, len(f.orders))}
	for i := range f.orders {
		out.orders[i] = f.orders[i] + orders[i]
	}
	return out
}

func (f *Function) Simplify() Expr    { return f }
func (f *Function) Eval() (*Num, bool) { return nil, false }

func (f *Function) Sub(varName string, value Expr) Expr {
	if f.Order() == 0 && len(f.args) == 0 && f.name == varName {
		return value
	}
	return f
}

func (f *Function) Diff(varName string) Expr {
	for i, a := range f.args {
		if a == varName {
			orders := make([]int, len(f.args))
			orders[i] = 1
			return f.Derivative(orders)
		}
	}
	return N(0)
}

func (f *Function) Equal(other Expr) bool {
	o, ok := other.(*Function)
	if !ok || o.name != f.name || len(o.args) != len(f.args) {
		return false
	}
	for i := range f.args {
		if f.args[i] != o.args[i] || f.orders[i] != o.orders[i] {
			return false
		}
	}
	return true
}

// String prints f'(t) for single-argument functions and eta1_tx(t, x)
// otherwise.
func (f *Function) String() string {
	return f.label(false) + "(" + strings.Join(f.args, ", ") + ")"
}

func (f *Function) LaTeX() string {
	args := make([]string, len(f.args))
	for i, a := range f.args {
		args[i] = latexName(a)
	}
	return f.label(true) + "\\left(" + strings.Join(args, ", ") + "\\right)"
}

func (f *Function) label(latex bool) string {
	name := f.name
	if latex {
		name = latexName(f.name)
	}
	if f.Order() == 0 {
		return name
	}
	if len(f.args) == 1 {
		return name + strings.Repeat("'", f.orders[0])
	}
	var sb strings.Builder
	for i, a := range f.args {
		for k := 0; k < f.orders[i]; k++ {
			sb.WriteString(a)
		}
	}
	if latex {
		return name + "_{" + sb.String() + "}"
	}
	return name + "_" + sb.String()
}

func (f *Function) exprType() string { return "function" }
func (f *Function) toJSON() map[string]interface{} {
	args := make([]interface{}, len(f.args))
	orders := make([]interface{}, len(f.orders))
	for i := range f.args {
		args[i] = f.args[i]
		orders[i] = f.orders[i]
	}
	return map[string]interface{}{"type": "function", "name": f.name, "args": args, "orders": orders}
}
