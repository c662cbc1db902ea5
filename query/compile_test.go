package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCompiler(env DataEnvironment) *Compiler {
	return NewCompiler(nil, NewResolver(nil, env))
}

func TestCompile_Expressions(t *testing.T) {
	c := newTestCompiler(DataEnvironment{
		"min_age": Value(18),
		"names":   Value([]interface{}{"alice", "bob"}),
	})
	row := Row{"name": "alice", "age": 30, "count_x": int64(4)}

	tests := []struct {
		name   string
		expr   Expression
		clause Clause
		want   interface{}
	}{
		{"literal", Lit("x"), ClauseWhere, "x"},
		{"identifier", Ident("age"), ClauseWhere, 30},
		{"environment value", Ident("min_age"), ClauseWhere, 18},
		{"comparison", Op(">", Ident("age"), Ident("min_age")), ClauseWhere, true},
		{"nested", Op("AND", Op("=", Ident("name"), Lit("alice")), Op("NOT", Op("<", Ident("age"), Lit(21)))), ClauseWhere, true},
		{"between", Op("BETWEEN", Ident("age"), Lit(18), Lit(65)), ClauseWhere, true},
		{"list", ListOf(Lit(1), Ident("age")), ClauseWhere, []interface{}{1, 30}},
		{"in list", Op("IN", Ident("age"), ListOf(Lit(1), Lit(30))), ClauseWhere, true},
		{"in environment list", Op("IN", Ident("name"), Ident("names")), ClauseWhere, true},
		{"coalesce", Op("COALESCE", ListOf(Ident("nope"), Lit(nil), Ident("name"))), ClauseWhere, "alice"},
		{"aggregate in having", Op(">", Agg("COUNT", "x"), Lit(3)), ClauseHaving, true},
		{"aggregate in order by", Agg("COUNT", "x"), ClauseOrderBy, int64(4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval, err := c.Compile(tt.expr, tt.clause)
			require.NoError(t, err)
			got, err := eval(row, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompile_RowFunctionIndex(t *testing.T) {
	c := newTestCompiler(DataEnvironment{
		"even": Func(func(_ Row, index int) interface{} { return index%2 == 0 }),
	})
	eval, err := c.Compile(Ident("even"), ClauseWhere)
	require.NoError(t, err)

	got, err := eval(Row{}, 2)
	require.NoError(t, err)
	assert.Equal(t, true, got)
	got, err = eval(Row{}, 3)
	require.NoError(t, err)
	assert.Equal(t, false, got)
}

func TestCompile_Errors(t *testing.T) {
	c := newTestCompiler(nil)

	tests := []struct {
		name     string
		expr     Expression
		clause   Clause
		wantKind error
		wantMsg  string
	}{
		{
			name:     "aggregate in where",
			expr:     Op(">", Agg("AVG", "age"), Lit(20)),
			clause:   ClauseWhere,
			wantKind: ErrInvalidAggregateContext,
			wantMsg:  "could not use aggregate function AVG in WHERE. Did you mean HAVING?",
		},
		{
			name:     "unknown operator",
			expr:     Op("LIKEE", Ident("a"), Lit("x")),
			clause:   ClauseWhere,
			wantKind: ErrUnknownOperator,
			wantMsg:  "did you mean LIKE?",
		},
		{
			name:     "too few operands",
			expr:     Op("=", Ident("a")),
			clause:   ClauseWhere,
			wantKind: ErrMalformedExpression,
			wantMsg:  "expects 2 operands, got 1",
		},
		{
			name:     "too many operands",
			expr:     Op("NOT", Ident("a"), Ident("b")),
			clause:   ClauseHaving,
			wantKind: ErrMalformedExpression,
		},
		{
			name:     "nil expression",
			expr:     nil,
			clause:   ClauseWhere,
			wantKind: ErrMalformedExpression,
		},
		{
			name:     "nil node",
			expr:     (*Operator)(nil),
			clause:   ClauseWhere,
			wantKind: ErrMalformedExpression,
		},
		{
			name:     "empty identifier",
			expr:     Ident(""),
			clause:   ClauseWhere,
			wantKind: ErrMalformedExpression,
		},
		{
			name:     "nested error",
			expr:     Op("AND", Lit(true), Op("??", Lit(1), Lit(2))),
			clause:   ClauseWhere,
			wantKind: ErrUnknownOperator,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Compile(tt.expr, tt.clause)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantKind), "got %v", err)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}

			var qerr *Error
			require.True(t, errors.As(err, &qerr))
			assert.Equal(t, string(tt.clause), qerr.Clause)
		})
	}
}

func TestCompile_RuntimeErrorsCarryClause(t *testing.T) {
	c := newTestCompiler(nil)
	eval, err := c.Compile(Op("IN", Lit(1), Lit(1)), ClauseHaving)
	require.NoError(t, err)

	_, err = eval(Row{}, 0)
	require.Error(t, err)
	var qerr *Error
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, ErrInvalidOperand, qerr.Kind)
	assert.Equal(t, "HAVING", qerr.Clause)
}

func TestCompile_CustomRegistry(t *testing.T) {
	ops := NewOperatorRegistry(map[string]OperatorFunc{"EQ": &EqualOp{}})
	c := NewCompiler(ops, NewResolver(nil, nil))

	eval, err := c.Compile(Op("EQ", Lit(1), Lit(1)), ClauseWhere)
	require.NoError(t, err)
	got, err := eval(nil, 0)
	require.NoError(t, err)
	assert.Equal(t, true, got)

	_, err = c.Compile(Op("=", Lit(1), Lit(1)), ClauseWhere)
	assert.True(t, errors.Is(err, ErrUnknownOperator))
}
