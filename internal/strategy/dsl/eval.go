package dsl

import (
	"fmt"
	"math"
)

// PrevSuffix names the previous-bar value of an indicator in the variable
// table: "fast" has its prior value bound as "fast_prev".
const PrevSuffix = "_prev"

// Evaluate parses and evaluates a condition against the variable table.
// Truth is non-zero. Any lex, parse, or evaluation failure (unknown
// variable, disallowed function, malformed syntax) is returned as an error;
// the condition must then be treated as not satisfied, never executed
// another way.
func Evaluate(condition string, vars map[string]float64) (bool, error) {
	n, err := Parse(condition)
	if err != nil {
		return false, err
	}
	v, err := n.eval(vars)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (n numberNode) eval(map[string]float64) (float64, error) { return float64(n), nil }

func (n varNode) eval(vars map[string]float64) (float64, error) {
	v, ok := vars[string(n)]
	if !ok {
		return 0, fmt.Errorf("unknown variable %q", string(n))
	}
	return v, nil
}

func (n *unaryNode) eval(vars map[string]float64) (float64, error) {
	v, err := n.x.eval(vars)
	if err != nil {
		return 0, err
	}
	if n.op == "!" {
		if v == 0 {
			return 1, nil
		}
		return 0, nil
	}
	return -v, nil
}

func (n *binaryNode) eval(vars map[string]float64) (float64, error) {
	l, err := n.l.eval(vars)
	if err != nil {
		return 0, err
	}
	r, err := n.r.eval(vars)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return l / r, nil
	case "<":
		return boolVal(l < r), nil
	case ">":
		return boolVal(l > r), nil
	case "<=":
		return boolVal(l <= r), nil
	case ">=":
		return boolVal(l >= r), nil
	case "==":
		return boolVal(l == r), nil
	case "!=":
		return boolVal(l != r), nil
	case "&&":
		return boolVal(l != 0 && r != 0), nil
	case "||":
		return boolVal(l != 0 || r != 0), nil
	default:
		return 0, fmt.Errorf("unknown operator %q", n.op)
	}
}

func (n *callNode) eval(vars map[string]float64) (float64, error) {
	// Math.abs is the only callable; nothing else may execute.
	if n.fn != "abs" && n.fn != "Math.abs" {
		return 0, fmt.Errorf("disallowed function %q", n.fn)
	}
	v, err := n.arg.eval(vars)
	if err != nil {
		return 0, err
	}
	return math.Abs(v), nil
}

func (n *crossNode) eval(vars map[string]float64) (float64, error) {
	l, lp, err := currentAndPrev(vars, n.l)
	if err != nil {
		return 0, err
	}
	r, rp, err := currentAndPrev(vars, n.r)
	if err != nil {
		return 0, err
	}
	if n.above {
		return boolVal(lp < rp && l > r), nil
	}
	return boolVal(lp > rp && l < r), nil
}

func (n *nearNode) eval(vars map[string]float64) (float64, error) {
	l, ok := vars[n.l]
	if !ok {
		return 0, fmt.Errorf("unknown variable %q", n.l)
	}
	r, ok := vars[n.r]
	if !ok {
		return 0, fmt.Errorf("unknown variable %q", n.r)
	}
	return boolVal(math.Abs(l-r) < 0.002*l), nil
}

func currentAndPrev(vars map[string]float64, name string) (cur, prev float64, err error) {
	cur, ok := vars[name]
	if !ok {
		return 0, 0, fmt.Errorf("unknown variable %q", name)
	}
	prev, ok = vars[name+PrevSuffix]
	if !ok {
		return 0, 0, fmt.Errorf("no previous value for %q", name)
	}
	return cur, prev, nil
}

func boolVal(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
