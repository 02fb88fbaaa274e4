// Package guard implements the sandboxed predicate language used by rule guard
// expressions. Expressions are parsed into a small tagged-variant AST and
// evaluated against a read-only environment built from the operation payload.
// There are no function calls, no assignment and no side effects; the only
// operators are boolean connectives, comparisons and basic arithmetic.
package guard

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind tags a runtime value.
type Kind int

const (
	KindNumber Kind = iota
	KindString
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	default:
		return "bool"
	}
}

// Value is the single runtime value type of the guard language.
type Value struct {
	Kind Kind
	Num  decimal.Decimal
	Str  string
	Bool bool
}

// Number wraps a decimal as a guard value.
func Number(d decimal.Decimal) Value { return Value{Kind: KindNumber, Num: d} }

// String wraps a string as a guard value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Bool wraps a boolean as a guard value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Env is the restricted variable set a guard may read.
type Env map[string]Value

// ErrUnknownVar is returned when an expression references a variable absent
// from the environment.
var ErrUnknownVar = errors.New("unknown variable")

// EnvFromPayload converts an operation payload into a guard environment.
// Unsupported value types are skipped; referencing them then fails with
// ErrUnknownVar rather than evaluating against a half-converted value.
func EnvFromPayload(payload map[string]any) Env {
	env := make(Env, len(payload))
	for k, v := range payload {
		switch n := v.(type) {
		case float64:
			env[k] = Number(decimal.NewFromFloat(n))
		case int:
			env[k] = Number(decimal.NewFromInt(int64(n)))
		case int64:
			env[k] = Number(decimal.NewFromInt(n))
		case decimal.Decimal:
			env[k] = Number(n)
		case string:
			env[k] = String(n)
		case bool:
			env[k] = Bool(n)
		}
	}
	return env
}

// Expr is a parsed guard expression, safe for reuse across evaluations.
type Expr struct {
	src  string
	root node
}

// Source returns the original expression text.
func (e *Expr) Source() string { return e.src }

// Parse compiles an expression. The empty string is rejected; callers treat a
// rule without a guard as unconditionally applicable instead.
func Parse(src string) (*Expr, error) {
	p := newParser(src)
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokEOF {
		return nil, fmt.Errorf("guard: unexpected %q at offset %d", p.cur.text, p.cur.pos)
	}
	return &Expr{src: src, root: root}, nil
}

// Eval evaluates the expression against env.
func (e *Expr) Eval(env Env) (Value, error) { return e.root.eval(env) }

// EvalBool evaluates the expression and requires a boolean result.
func (e *Expr) EvalBool(env Env) (bool, error) {
	v, err := e.root.eval(env)
	if err != nil {
		return false, err
	}
	if v.Kind != KindBool {
		return false, fmt.Errorf("guard: expression yields %s, want bool", v.Kind)
	}
	return v.Bool, nil
}

// --- AST ---

type node interface {
	eval(Env) (Value, error)
}

type litNode struct{ val Value }

func (n litNode) eval(Env) (Value, error) { return n.val, nil }

type identNode struct{ name string }

func (n identNode) eval(env Env) (Value, error) {
	v, ok := env[n.name]
	if !ok {
		return Value{}, fmt.Errorf("guard: %w %q", ErrUnknownVar, n.name)
	}
	return v, nil
}

type unaryNode struct {
	op      string
	operand node
}

func (n unaryNode) eval(env Env) (Value, error) {
	v, err := n.operand.eval(env)
	if err != nil {
		return Value{}, err
	}
	switch n.op {
	case "!":
		if v.Kind != KindBool {
			return Value{}, fmt.Errorf("guard: operator ! requires bool, got %s", v.Kind)
		}
		return Bool(!v.Bool), nil
	case "-":
		if v.Kind != KindNumber {
			return Value{}, fmt.Errorf("guard: unary - requires number, got %s", v.Kind)
		}
		return Number(v.Num.Neg()), nil
	}
	return Value{}, fmt.Errorf("guard: unknown unary operator %q", n.op)
}

type binaryNode struct {
	op          string
	left, right node
}

func (n binaryNode) eval(env Env) (Value, error) {
	// Short-circuit the boolean connectives.
	if n.op == "&&" || n.op == "||" {
		l, err := n.left.eval(env)
		if err != nil {
			return Value{}, err
		}
		if l.Kind != KindBool {
			return Value{}, fmt.Errorf("guard: operator %s requires bool operands", n.op)
		}
		if n.op == "&&" && !l.Bool {
			return Bool(false), nil
		}
		if n.op == "||" && l.Bool {
			return Bool(true), nil
		}
		r, err := n.right.eval(env)
		if err != nil {
			return Value{}, err
		}
		if r.Kind != KindBool {
			return Value{}, fmt.Errorf("guard: operator %s requires bool operands", n.op)
		}
		return Bool(r.Bool), nil
	}

	l, err := n.left.eval(env)
	if err != nil {
		return Value{}, err
	}
	r, err := n.right.eval(env)
	if err != nil {
		return Value{}, err
	}

	switch n.op {
	case "==", "!=":
		eq, err := equal(l, r)
		if err != nil {
			return Value{}, err
		}
		if n.op == "!=" {
			eq = !eq
		}
		return Bool(eq), nil
	case "<", "<=", ">", ">=":
		cmp, err := compare(l, r)
		if err != nil {
			return Value{}, err
		}
		switch n.op {
		case "<":
			return Bool(cmp < 0), nil
		case "<=":
			return Bool(cmp <= 0), nil
		case ">":
			return Bool(cmp > 0), nil
		default:
			return Bool(cmp >= 0), nil
		}
	case "+", "-", "*", "/":
		if l.Kind != KindNumber || r.Kind != KindNumber {
			return Value{}, fmt.Errorf("guard: operator %s requires number operands", n.op)
		}
		switch n.op {
		case "+":
			return Number(l.Num.Add(r.Num)), nil
		case "-":
			return Number(l.Num.Sub(r.Num)), nil
		case "*":
			return Number(l.Num.Mul(r.Num)), nil
		default:
			if r.Num.IsZero() {
				return Value{}, errors.New("guard: division by zero")
			}
			return Number(l.Num.Div(r.Num)), nil
		}
	}
	return Value{}, fmt.Errorf("guard: unknown operator %q", n.op)
}

func equal(l, r Value) (bool, error) {
	if l.Kind != r.Kind {
		return false, fmt.Errorf("guard: cannot compare %s with %s", l.Kind, r.Kind)
	}
	switch l.Kind {
	case KindNumber:
		return l.Num.Equal(r.Num), nil
	case KindString:
		return l.Str == r.Str, nil
	default:
		return l.Bool == r.Bool, nil
	}
}

func compare(l, r Value) (int, error) {
	if l.Kind != r.Kind {
		return 0, fmt.Errorf("guard: cannot compare %s with %s", l.Kind, r.Kind)
	}
	switch l.Kind {
	case KindNumber:
		return l.Num.Cmp(r.Num), nil
	case KindString:
		switch {
		case l.Str < r.Str:
			return -1, nil
		case l.Str > r.Str:
			return 1, nil
		default:
			return 0, nil
		}
	default:
		return 0, errors.New("guard: bool values are not ordered")
	}
}
