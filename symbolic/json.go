package symbolic

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// ============================================================
// JSON Serialization
// ============================================================

func ToJSON(e Expr) (string, error) {
	b, err := json.Marshal(e.toJSON())
	return string(b), err
}

// JSONValue returns the tree form of e, ready to embed in a larger document.
func JSONValue(e Expr) map[string]interface{} { return e.toJSON() }

// ParseJSON decodes a document produced by ToJSON.
func ParseJSON(data []byte) (Expr, error) {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode expression: %w", err)
	}
	return FromJSON(m)
}

func FromJSON(data map[string]interface{}) (Expr, error) {
	if data == nil {
		return nil, fmt.Errorf("expression must be an object")
	}
	typ, ok := data["type"].(string)
	if !ok || typ == "" {
		return nil, fmt.Errorf("field 'type' must be a non-empty string")
	}

	subObj := func(field string) (Expr, error) {
		v, ok := data[field]
		if !ok {
			return nil, fmt.Errorf("%s: missing %q", typ, field)
		}
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: %q must be an object", typ, field)
		}
		e, err := FromJSON(m)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", typ, field, err)
		}
		return e, nil
	}

	subObjArray := func(field string) ([]Expr, error) {
		raw, ok := data[field].([]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: %q must be an array", typ, field)
		}
		out := make([]Expr, len(raw))
		for i, it := range raw {
			m, ok := it.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%s: %q[%d] must be an object", typ, field, i)
			}
			e, err := FromJSON(m)
			if err != nil {
				return nil, fmt.Errorf("%s: %s[%d]: %w", typ, field, i, err)
			}
			out[i] = e
		}
		return out, nil
	}

	subString := func(field string) (string, error) {
		s, ok := data[field].(string)
		if !ok || s == "" {
			return "", fmt.Errorf("%s: %q must be a non-empty string", typ, field)
		}
		return s, nil
	}

	switch typ {
	case "num":
		val, err := subString("value")
		if err != nil {
			return nil, err
		}
		r := new(big.Rat)
		if _, ok := r.SetString(val); !ok {
			return nil, fmt.Errorf("invalid num value: %s", val)
		}
		return &Num{val: r}, nil

	case "sym":
		name, err := subString("name")
		if err != nil {
			return nil, err
		}
		return S(name), nil

	case "add":
		terms, err := subObjArray("terms")
		if err != nil {
			return nil, err
		}
		return AddOf(terms...), nil

	case "mul":
		factors, err := subObjArray("factors")
		if err != nil {
			return nil, err
		}
		return MulOf(factors...), nil

	case "pow":
		base, err := subObj("base")
		if err != nil {
			return nil, err
		}
		exp, err := subObj("exp")
		if err != nil {
			return nil, err
		}
		return PowOf(base, exp), nil

	case "func":
		name, err := subString("name")
		if err != nil {
			return nil, err
		}
		if !IsElementary(name) {
			return nil, fmt.Errorf("func: unknown function %q", name)
		}
		arg, err := subObj("arg")
		if err != nil {
			return nil, err
		}
		return funcOf(name, arg).Simplify(), nil

	case "function":
		name, err := subString("name")
		if err != nil {
			return nil, err
		}
		rawArgs, ok := data["args"].([]interface{})
		if !ok {
			return nil, fmt.Errorf("function: 'args' must be an array")
		}
		args := make([]string, len(rawArgs))
		for i, a := range rawArgs {
			s, ok := a.(string)
			if !ok || s == "" {
				return nil, fmt.Errorf("function: args[%d] must be a non-empty string", i)
			}
			args[i] = s
		}
		f := Fn(name, args...)
		if rawOrders, ok := data["orders"].([]interface{}); ok {
			if len(rawOrders) != len(args) {
				return nil, fmt.Errorf("function: %d orders for %d args", len(rawOrders), len(args))
			}
			orders := make([]int, len(rawOrders))
			for i, o := range rawOrders {
				n, ok := o.(float64)
				if !ok || n < 0 {
					return nil, fmt.Errorf("function: orders[%d] must be a non-negative number", i)
				}
				orders[i] = int(n)
			}
			f = f.Derivative(orders)
		}
		return f, nil
	}
	return nil, fmt.Errorf("unknown expression type: %s", typ)
}
