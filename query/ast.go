package query

import "fmt"

// ParsedQuery is the query AST produced by a parser. It is never modified by
// the executor.
type ParsedQuery struct {
	Source string       // DataEnvironment entry supplying the input rows
	Fields []FieldSpec  // SELECT list; empty means SELECT *
	Where  Expression   // Optional WHERE clause
	Group  *GroupClause // Optional GROUP BY clause
	Having Expression   // Optional HAVING clause
	Order  []OrderTerm  // Optional ORDER BY terms
	Limit  *LimitClause // Optional LIMIT clause
}

// FieldSpec is one entry of the SELECT list.
//
// Plain references set Name (and optionally As). Aggregates set Source and
// Aggregate (and optionally As); Aggregate is an upper-case token such as
// COUNT or COUNT_DISTINCT.
type FieldSpec struct {
	Name      string
	As        string
	Source    string
	Aggregate string
}

// IsAggregate reports whether the field is an aggregate over Source.
func (f FieldSpec) IsAggregate() bool {
	return f.Aggregate != ""
}

// GroupClause lists the GROUP BY identifiers in order.
type GroupClause struct {
	Fields []string
}

// OrderTerm is a single ORDER BY key.
type OrderTerm struct {
	Field Expression // Usually an Identifier
	Order *Param     // nil means ascending
}

// LimitClause holds LIMIT [offset,] count.
type LimitClause struct {
	Offset *Param // nil means 0
	Count  *Param // nil means no upper bound
}

// Param is a clause parameter that is either a literal written in the query
// or a reference to a DataEnvironment entry.
type Param struct {
	Literal   interface{}
	Reference string
}

// LiteralParam returns a Param holding v.
func LiteralParam(v interface{}) *Param {
	return &Param{Literal: v}
}

// ReferenceParam returns a Param naming a DataEnvironment entry.
func ReferenceParam(name string) *Param {
	return &Param{Reference: name}
}

// IsReference reports whether the parameter names an environment entry.
func (p *Param) IsReference() bool {
	return p != nil && p.Reference != ""
}

// Expression is a node of a WHERE/HAVING/ORDER BY expression tree.
//
// The set of node types is closed: Literal, Identifier, Aggregate, Operator
// and List.
type Expression interface {
	fmt.Stringer
	expressionNode()
}

// Literal is a constant value.
type Literal struct {
	Value interface{}
}

// Identifier names a row field, a SELECT alias, an aggregate output or a
// DataEnvironment entry.
type Identifier struct {
	Name string
}

// Aggregate is an aggregate call such as COUNT(x) appearing in HAVING.
type Aggregate struct {
	Aggregate string
	Source    string
}

// Operator applies Op to up to three operands. RHS and THS are nil for
// operators that do not use them; THS is the third operand of BETWEEN.
type Operator struct {
	Op  string
	LHS Expression
	RHS Expression
	THS Expression
}

// List is an ordered list of expressions, e.g. the right side of IN.
type List struct {
	Items []Expression
}

func (*Literal) expressionNode()    {}
func (*Identifier) expressionNode() {}
func (*Aggregate) expressionNode()  {}
func (*Operator) expressionNode()   {}
func (*List) expressionNode()       {}

func (l *Literal) String() string {
	if s, ok := l.Value.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", l.Value)
}

func (i *Identifier) String() string {
	return i.Name
}

func (a *Aggregate) String() string {
	return fmt.Sprintf("%s(%s)", a.Aggregate, a.Source)
}

func (o *Operator) String() string {
	switch {
	case o.THS != nil:
		return fmt.Sprintf("%s(%v, %v, %v)", o.Op, o.LHS, o.RHS, o.THS)
	case o.RHS != nil:
		return fmt.Sprintf("(%v %s %v)", o.LHS, o.Op, o.RHS)
	default:
		return fmt.Sprintf("%s(%v)", o.Op, o.LHS)
	}
}

func (l *List) String() string {
	s := "("
	for i, item := range l.Items {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprint(item)
	}
	return s + ")"
}

// operands returns the present operands in lhs, rhs, ths order.
func (o *Operator) operands() []Expression {
	operands := make([]Expression, 0, 3)
	for _, e := range []Expression{o.LHS, o.RHS, o.THS} {
		if e != nil {
			operands = append(operands, e)
		}
	}
	return operands
}

// Convenience constructors used by tests and by callers assembling ASTs by
// hand.

// Lit returns a Literal node.
func Lit(v interface{}) *Literal { return &Literal{Value: v} }

// Ident returns an Identifier node.
func Ident(name string) *Identifier { return &Identifier{Name: name} }

// Agg returns an Aggregate node.
func Agg(aggregate, source string) *Aggregate {
	return &Aggregate{Aggregate: aggregate, Source: source}
}

// Op returns an Operator node; operands fill lhs, rhs and ths in order.
func Op(op string, operands ...Expression) *Operator {
	o := &Operator{Op: op}
	if len(operands) > 0 {
		o.LHS = operands[0]
	}
	if len(operands) > 1 {
		o.RHS = operands[1]
	}
	if len(operands) > 2 {
		o.THS = operands[2]
	}
	return o
}

// ListOf returns a List node.
func ListOf(items ...Expression) *List { return &List{Items: items} }
