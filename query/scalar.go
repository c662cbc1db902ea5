package query

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Scalar function operators. They take their arguments as LHS, RHS and THS
// and return nil when any argument is null.

func nullArg(args []interface{}) bool {
	for _, a := range args {
		if isNull(a) {
			return true
		}
	}
	return false
}

func stringArg(name string, v interface{}) (string, error) {
	s, ok := valueToString(v)
	if !ok {
		return "", newError(ErrInvalidOperand, "", name, "%s: expected a scalar, got %T", name, v)
	}
	return s, nil
}

func numberArg(name string, v interface{}) (float64, error) {
	f, ok := toFloat64(v)
	if !ok {
		return 0, newError(ErrInvalidOperand, "", name, "%s: expected a number, got %T", name, v)
	}
	return f, nil
}

// StringFunc applies a string → value function to one argument.
type StringFunc struct {
	Name string
	Fn   func(string) interface{}
}

func (o *StringFunc) MinArity() int { return 1 }
func (o *StringFunc) MaxArity() int { return 1 }
func (o *StringFunc) Evaluate(args []interface{}) (interface{}, error) {
	if nullArg(args) {
		return nil, nil
	}
	s, err := stringArg(o.Name, args[0])
	if err != nil {
		return nil, err
	}
	return o.Fn(s), nil
}

// ConcatOp joins up to three values as text.
type ConcatOp struct{}

func (o *ConcatOp) MinArity() int { return 1 }
func (o *ConcatOp) MaxArity() int { return 3 }
func (o *ConcatOp) Evaluate(args []interface{}) (interface{}, error) {
	if nullArg(args) {
		return nil, nil
	}
	var b strings.Builder
	for _, arg := range args {
		s, err := stringArg("CONCAT", arg)
		if err != nil {
			return nil, err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

// SubstringOp implements SUBSTRING(s, start[, length]) with 1-based
// character positions.
type SubstringOp struct{}

func (o *SubstringOp) MinArity() int { return 2 }
func (o *SubstringOp) MaxArity() int { return 3 }
func (o *SubstringOp) Evaluate(args []interface{}) (interface{}, error) {
	if nullArg(args) {
		return nil, nil
	}
	s, err := stringArg("SUBSTRING", args[0])
	if err != nil {
		return nil, err
	}
	start, err := numberArg("SUBSTRING", args[1])
	if err != nil {
		return nil, err
	}
	runes := []rune(s)
	from := int(start) - 1
	if from < 0 {
		from = 0
	}
	if from >= len(runes) {
		return "", nil
	}
	to := len(runes)
	if len(args) == 3 {
		n, err := numberArg("SUBSTRING", args[2])
		if err != nil {
			return nil, err
		}
		if n <= 0 {
			return "", nil
		}
		to = min(from+int(n), len(runes))
	}
	return string(runes[from:to]), nil
}

// MathFunc applies a float function to one numeric argument.
type MathFunc struct {
	Name string
	Fn   func(float64) float64
}

func (o *MathFunc) MinArity() int { return 1 }
func (o *MathFunc) MaxArity() int { return 1 }
func (o *MathFunc) Evaluate(args []interface{}) (interface{}, error) {
	if nullArg(args) {
		return nil, nil
	}
	f, err := numberArg(o.Name, args[0])
	if err != nil {
		return nil, err
	}
	return o.Fn(f), nil
}

// RoundOp implements ROUND(x[, decimals]).
type RoundOp struct{}

func (o *RoundOp) MinArity() int { return 1 }
func (o *RoundOp) MaxArity() int { return 2 }
func (o *RoundOp) Evaluate(args []interface{}) (interface{}, error) {
	if nullArg(args) {
		return nil, nil
	}
	x, err := numberArg("ROUND", args[0])
	if err != nil {
		return nil, err
	}
	if len(args) == 1 {
		return math.Round(x), nil
	}
	d, err := numberArg("ROUND", args[1])
	if err != nil {
		return nil, err
	}
	scale := math.Pow(10, math.Trunc(d))
	return math.Round(x*scale) / scale, nil
}

// ModOp implements MOD(a, b). Division by zero yields nil.
type ModOp struct{}

func (o *ModOp) MinArity() int { return 2 }
func (o *ModOp) MaxArity() int { return 2 }
func (o *ModOp) Evaluate(args []interface{}) (interface{}, error) {
	if nullArg(args) {
		return nil, nil
	}
	a, err := numberArg("MOD", args[0])
	if err != nil {
		return nil, err
	}
	b, err := numberArg("MOD", args[1])
	if err != nil {
		return nil, err
	}
	if b == 0 {
		return nil, nil
	}
	return math.Mod(a, b), nil
}

func scalarOperators() map[string]OperatorFunc {
	return map[string]OperatorFunc{
		"UPPER":     &StringFunc{Name: "UPPER", Fn: func(s string) interface{} { return strings.ToUpper(s) }},
		"LOWER":     &StringFunc{Name: "LOWER", Fn: func(s string) interface{} { return strings.ToLower(s) }},
		"TRIM":      &StringFunc{Name: "TRIM", Fn: func(s string) interface{} { return strings.TrimSpace(s) }},
		"LTRIM":     &StringFunc{Name: "LTRIM", Fn: func(s string) interface{} { return strings.TrimLeft(s, " \t\n\r") }},
		"RTRIM":     &StringFunc{Name: "RTRIM", Fn: func(s string) interface{} { return strings.TrimRight(s, " \t\n\r") }},
		"LENGTH":    &StringFunc{Name: "LENGTH", Fn: func(s string) interface{} { return int64(utf8.RuneCountInString(s)) }},
		"CONCAT":    &ConcatOp{},
		"SUBSTRING": &SubstringOp{},
		"ABS":       &MathFunc{Name: "ABS", Fn: math.Abs},
		"FLOOR":     &MathFunc{Name: "FLOOR", Fn: math.Floor},
		"CEIL":      &MathFunc{Name: "CEIL", Fn: math.Ceil},
		"SQRT":      &MathFunc{Name: "SQRT", Fn: math.Sqrt},
		"ROUND":     &RoundOp{},
		"MOD":       &ModOp{},
	}
}
