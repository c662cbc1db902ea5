package query

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	arc "github.com/hashicorp/golang-lru/arc/v2"
)

// OperatorFunc evaluates one operator over already evaluated operands.
type OperatorFunc interface {
	// MinArity returns the minimum number of operands
	MinArity() int
	// MaxArity returns the maximum number of operands
	MaxArity() int
	// Evaluate applies the operator to its operands in lhs, rhs, ths order
	Evaluate(args []interface{}) (interface{}, error)
}

// OperatorRegistry maps case-sensitive operator tokens to implementations.
// It is immutable once built and safe for concurrent use.
type OperatorRegistry struct {
	operators map[string]OperatorFunc
}

// NewOperatorRegistry builds a registry from token → operator pairs.
func NewOperatorRegistry(operators map[string]OperatorFunc) *OperatorRegistry {
	r := &OperatorRegistry{operators: make(map[string]OperatorFunc, len(operators))}
	for token, op := range operators {
		r.operators[token] = op
	}
	return r
}

// Get retrieves an operator by token.
func (r *OperatorRegistry) Get(token string) (OperatorFunc, bool) {
	op, ok := r.operators[token]
	return op, ok
}

// Tokens returns the registered tokens in sorted order.
func (r *OperatorRegistry) Tokens() []string {
	tokens := make([]string, 0, len(r.operators))
	for token := range r.operators {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens
}

var (
	defaultOperatorsOnce sync.Once
	defaultOperators     *OperatorRegistry
)

// DefaultOperators returns the built-in operator registry.
func DefaultOperators() *OperatorRegistry {
	defaultOperatorsOnce.Do(func() {
		and, or, not := &AndOp{}, &OrOp{}, &NotOp{}
		ne := &EqualOp{Negate: true}
		regexpOp := &RegexpOp{}
		operators := map[string]OperatorFunc{
			"=":           &EqualOp{},
			"!=":          ne,
			"<>":          ne,
			"<":           &CompareOp{Name: "<", Accept: func(c int) bool { return c < 0 }},
			"<=":          &CompareOp{Name: "<=", Accept: func(c int) bool { return c <= 0 }},
			">":           &CompareOp{Name: ">", Accept: func(c int) bool { return c > 0 }},
			">=":          &CompareOp{Name: ">=", Accept: func(c int) bool { return c >= 0 }},
			"IS NULL":     &IsNullOp{},
			"IS NOT NULL": &IsNullOp{Negate: true},
			"BETWEEN":     &BetweenOp{},
			"IN":          &InOp{},
			"AND":         and,
			"&&":          and,
			"OR":          or,
			"||":          or,
			"NOT":         not,
			"!":           not,
			"LIKE":        &LikeOp{},
			"REGEXP":      regexpOp,
			"RLIKE":       regexpOp,
			"=~":          regexpOp,
			"~":           regexpOp,
			"STRCMP":      &StrcmpOp{},
			"COALESCE":    &CoalesceOp{},
		}
		for token, op := range scalarOperators() {
			operators[token] = op
		}
		defaultOperators = NewOperatorRegistry(operators)
	})
	return defaultOperators
}

// EqualOp implements = and, negated, != / <>.
type EqualOp struct {
	Negate bool
}

func (o *EqualOp) MinArity() int { return 2 }
func (o *EqualOp) MaxArity() int { return 2 }
func (o *EqualOp) Evaluate(args []interface{}) (interface{}, error) {
	return strictEqual(args[0], args[1]) != o.Negate, nil
}

// CompareOp implements the ordering comparisons. Operands that are not
// mutually ordered compare false.
type CompareOp struct {
	Name   string
	Accept func(cmp int) bool
}

func (o *CompareOp) MinArity() int { return 2 }
func (o *CompareOp) MaxArity() int { return 2 }
func (o *CompareOp) Evaluate(args []interface{}) (interface{}, error) {
	c, ok := orderValues(args[0], args[1])
	return ok && o.Accept(c), nil
}

// IsNullOp implements IS NULL and IS NOT NULL. Missing counts as null.
type IsNullOp struct {
	Negate bool
}

func (o *IsNullOp) MinArity() int { return 1 }
func (o *IsNullOp) MaxArity() int { return 1 }
func (o *IsNullOp) Evaluate(args []interface{}) (interface{}, error) {
	return isNull(args[0]) != o.Negate, nil
}

// BetweenOp implements a BETWEEN b AND c as a >= b && a <= c.
type BetweenOp struct{}

func (o *BetweenOp) MinArity() int { return 3 }
func (o *BetweenOp) MaxArity() int { return 3 }
func (o *BetweenOp) Evaluate(args []interface{}) (interface{}, error) {
	lo, ok := orderValues(args[0], args[1])
	if !ok || lo < 0 {
		return false, nil
	}
	hi, ok := orderValues(args[0], args[2])
	return ok && hi <= 0, nil
}

// InOp implements membership by strict equality over primitive values.
type InOp struct{}

func (o *InOp) MinArity() int { return 2 }
func (o *InOp) MaxArity() int { return 2 }
func (o *InOp) Evaluate(args []interface{}) (interface{}, error) {
	list, ok := args[1].([]interface{})
	if !ok {
		return nil, newError(ErrInvalidOperand, "", "IN", "IN requires a list, got %T", args[1])
	}
	for _, candidate := range list {
		if strictEqual(args[0], candidate) {
			return true, nil
		}
	}
	return false, nil
}

// AndOp implements AND / &&.
type AndOp struct{}

func (o *AndOp) MinArity() int { return 2 }
func (o *AndOp) MaxArity() int { return 2 }
func (o *AndOp) Evaluate(args []interface{}) (interface{}, error) {
	return Truthy(args[0]) && Truthy(args[1]), nil
}

// OrOp implements OR / ||.
type OrOp struct{}

func (o *OrOp) MinArity() int { return 2 }
func (o *OrOp) MaxArity() int { return 2 }
func (o *OrOp) Evaluate(args []interface{}) (interface{}, error) {
	return Truthy(args[0]) || Truthy(args[1]), nil
}

// NotOp implements NOT / !.
type NotOp struct{}

func (o *NotOp) MinArity() int { return 1 }
func (o *NotOp) MaxArity() int { return 1 }
func (o *NotOp) Evaluate(args []interface{}) (interface{}, error) {
	return !Truthy(args[0]), nil
}

// patternCacheSize bounds the number of compiled LIKE/REGEXP patterns kept.
const patternCacheSize = 256

var (
	patternCacheOnce sync.Once
	patternCache     *arc.ARCCache[string, *regexp.Regexp]
)

// compilePattern compiles expr, reusing earlier compilations.
func compilePattern(expr string) (*regexp.Regexp, error) {
	patternCacheOnce.Do(func() {
		patternCache, _ = arc.NewARC[string, *regexp.Regexp](patternCacheSize)
	})
	if patternCache != nil {
		if re, ok := patternCache.Get(expr); ok {
			return re, nil
		}
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	if patternCache != nil {
		patternCache.Add(expr, re)
	}
	return re, nil
}

// LikeOp implements SQL LIKE: % matches any run of characters, _ any single
// character, a backslash makes the following character literal. Matching is
// case-insensitive and, like REGEXP, may succeed anywhere in the value.
type LikeOp struct{}

func (o *LikeOp) MinArity() int { return 2 }
func (o *LikeOp) MaxArity() int { return 2 }
func (o *LikeOp) Evaluate(args []interface{}) (interface{}, error) {
	value, ok := valueToString(args[0])
	if !ok {
		return false, nil
	}
	pattern, ok := args[1].(string)
	if !ok {
		return nil, newError(ErrInvalidOperand, "", "LIKE", "LIKE pattern must be a string, got %T", args[1])
	}
	re, err := compilePattern(likeToRegexp(pattern))
	if err != nil {
		return nil, newError(ErrInvalidOperand, "", "LIKE", "invalid LIKE pattern %q: %v", pattern, err)
	}
	return re.MatchString(value), nil
}

// likeToRegexp translates a LIKE pattern into an unanchored regexp. A
// trailing lone backslash is dropped.
func likeToRegexp(pattern string) string {
	var sb strings.Builder
	sb.WriteString("(?is)")
	escaped := false
	for _, c := range pattern {
		switch {
		case escaped:
			sb.WriteString(regexp.QuoteMeta(string(c)))
			escaped = false
		case c == '\\':
			escaped = true
		case c == '%':
			sb.WriteString(".*?")
		case c == '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return sb.String()
}

// RegexpOp implements REGEXP / RLIKE / =~ / ~. The pattern is either a
// string or a precompiled *regexp.Regexp bound in the DataEnvironment; it
// matches anywhere in the value.
type RegexpOp struct{}

func (o *RegexpOp) MinArity() int { return 2 }
func (o *RegexpOp) MaxArity() int { return 2 }
func (o *RegexpOp) Evaluate(args []interface{}) (interface{}, error) {
	value, ok := valueToString(args[0])
	if !ok {
		return false, nil
	}
	var re *regexp.Regexp
	switch p := args[1].(type) {
	case *regexp.Regexp:
		re = p
	case string:
		var err error
		re, err = compilePattern(p)
		if err != nil {
			return nil, newError(ErrInvalidOperand, "", "REGEXP", "invalid REGEXP pattern %q: %v", p, err)
		}
	default:
		return nil, newError(ErrInvalidOperand, "", "REGEXP", "REGEXP pattern must be a string or regexp, got %T", args[1])
	}
	return re.MatchString(value), nil
}

// StrcmpOp implements STRCMP: 0 when equal, -1 or 1 otherwise, nil when
// either operand is null.
type StrcmpOp struct{}

func (o *StrcmpOp) MinArity() int { return 2 }
func (o *StrcmpOp) MaxArity() int { return 2 }
func (o *StrcmpOp) Evaluate(args []interface{}) (interface{}, error) {
	if isNull(args[0]) || isNull(args[1]) {
		return nil, nil
	}
	a, aok := valueToString(args[0])
	b, bok := valueToString(args[1])
	if !aok || !bok {
		return nil, newError(ErrInvalidOperand, "", "STRCMP", "STRCMP requires scalar operands, got %T and %T", args[0], args[1])
	}
	return int64(strings.Compare(a, b)), nil
}

// CoalesceOp returns the first non-null entry of its list operand, or nil.
// Without a list operand it scans its operands directly.
type CoalesceOp struct{}

func (o *CoalesceOp) MinArity() int { return 1 }
func (o *CoalesceOp) MaxArity() int { return 3 }
func (o *CoalesceOp) Evaluate(args []interface{}) (interface{}, error) {
	candidates := args
	if len(args) == 1 {
		if list, ok := args[0].([]interface{}); ok {
			candidates = list
		}
	}
	for _, v := range candidates {
		if !isNull(v) {
			return v, nil
		}
	}
	return nil, nil
}
