package query

import (
	"errors"
	"fmt"
)

// Clause identifies where an expression appears. It decides whether
// aggregate references are allowed.
type Clause string

const (
	ClauseWhere   Clause = "WHERE"
	ClauseHaving  Clause = "HAVING"
	ClauseOrderBy Clause = "ORDER BY"
)

// allowsAggregates reports whether aggregate values already exist on the
// rows the clause sees.
func (c Clause) allowsAggregates() bool {
	return c == ClauseHaving || c == ClauseOrderBy
}

// Evaluator computes an expression's value for one row.
type Evaluator func(row Row, index int) (interface{}, error)

// Compiler turns expression trees into evaluators.
type Compiler struct {
	operators *OperatorRegistry
	resolver  *Resolver
}

// NewCompiler creates a compiler resolving identifiers through resolver.
func NewCompiler(operators *OperatorRegistry, resolver *Resolver) *Compiler {
	if operators == nil {
		operators = DefaultOperators()
	}
	return &Compiler{operators: operators, resolver: resolver}
}

// Compile compiles expr for use in clause.
func (c *Compiler) Compile(expr Expression, clause Clause) (Evaluator, error) {
	switch e := expr.(type) {
	case *Literal:
		if e == nil {
			break
		}
		value := e.Value
		return func(Row, int) (interface{}, error) { return value, nil }, nil
	case *Identifier:
		if e == nil || e.Name == "" {
			break
		}
		name := e.Name
		return func(row Row, index int) (interface{}, error) {
			return c.resolver.Resolve(name, row, index), nil
		}, nil
	case *Aggregate:
		if e == nil || e.Aggregate == "" {
			break
		}
		if !clause.allowsAggregates() {
			return nil, newError(ErrInvalidAggregateContext, string(clause), e.Aggregate,
				"could not use aggregate function %s in %s. Did you mean HAVING?", e.Aggregate, clause)
		}
		key := AggregateKey(e.Aggregate, e.Source)
		return func(row Row, index int) (interface{}, error) {
			return c.resolver.Resolve(key, row, index), nil
		}, nil
	case *Operator:
		if e == nil {
			break
		}
		return c.compileOperator(e, clause)
	case *List:
		if e == nil {
			break
		}
		return c.compileList(e, clause)
	}
	return nil, newError(ErrMalformedExpression, string(clause), fmt.Sprintf("%T", expr),
		"unexpected expression in %s: %s", clause, describe(expr))
}

func (c *Compiler) compileOperator(e *Operator, clause Clause) (Evaluator, error) {
	op, ok := c.operators.Get(e.Op)
	if !ok {
		err := newError(ErrUnknownOperator, string(clause), e.Op, "unknown operator %q in %s", e.Op, clause)
		err.Suggestion = suggest(e.Op, c.operators.Tokens())
		return nil, err
	}

	operands := e.operands()
	if n := len(operands); n < op.MinArity() || (op.MaxArity() >= 0 && n > op.MaxArity()) {
		return nil, newError(ErrMalformedExpression, string(clause), e.Op,
			"operator %s expects %s operands, got %d", e.Op, arity(op), n)
	}

	children := make([]Evaluator, len(operands))
	for i, operand := range operands {
		child, err := c.Compile(operand, clause)
		if err != nil {
			return nil, err
		}
		children[i] = child
	}

	return func(row Row, index int) (interface{}, error) {
		args := make([]interface{}, len(children))
		for i, child := range children {
			v, err := child(row, index)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		result, err := op.Evaluate(args)
		if err != nil {
			var qerr *Error
			if errors.As(err, &qerr) && qerr.Clause == "" {
				qerr.Clause = string(clause)
			}
			return nil, err
		}
		return result, nil
	}, nil
}

func (c *Compiler) compileList(e *List, clause Clause) (Evaluator, error) {
	members := make([]Evaluator, len(e.Items))
	for i, item := range e.Items {
		member, err := c.Compile(item, clause)
		if err != nil {
			return nil, err
		}
		members[i] = member
	}
	return func(row Row, index int) (interface{}, error) {
		values := make([]interface{}, len(members))
		for i, member := range members {
			v, err := member(row, index)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		return values, nil
	}, nil
}

func arity(op OperatorFunc) string {
	switch {
	case op.MaxArity() < 0:
		return fmt.Sprintf("at least %d", op.MinArity())
	case op.MinArity() == op.MaxArity():
		return fmt.Sprintf("%d", op.MinArity())
	default:
		return fmt.Sprintf("%d to %d", op.MinArity(), op.MaxArity())
	}
}

func describe(expr Expression) string {
	if expr == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", expr)
}
