// Package query executes SQL-like queries against in-memory row collections.
//
// A query arrives already parsed as a ParsedQuery. The executor runs it
// against a DataEnvironment holding the named source rows plus any other
// values or functions the query references:
//   - Materialize the source (slices are copied, lazy sequences consumed once)
//   - WHERE filtering
//   - GROUP BY and aggregation (COUNT, COUNT_DISTINCT, SUM, AVG, MIN, MAX,
//     APPROX_COUNT_DISTINCT)
//   - HAVING filtering over aggregated rows
//   - ORDER BY with a stable multi-key sort
//   - LIMIT with offset
//   - SELECT projection with aliases
//
// # Basic Usage
//
//	q := &query.ParsedQuery{
//	    Source: "people",
//	    Fields: []query.FieldSpec{
//	        {Name: "city"},
//	        {Aggregate: "COUNT", Source: "*", As: "n"},
//	    },
//	    Where:  query.Op(">", query.Ident("age"), query.Lit(30)),
//	    Group:  &query.GroupClause{Fields: []string{"city"}},
//	    Having: query.Op(">", query.Ident("n"), query.Lit(1)),
//	}
//
//	env := query.DataEnvironment{
//	    "people": query.Rows(rows),
//	}
//
//	results, err := query.Execute(ctx, q, env)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Identifier Resolution
//
// An identifier resolves, in order, to a field of the current row, a SELECT
// alias, or a DataEnvironment entry. Row functions bound with Func are
// called for every resolution with the row and its index. Identifiers that
// resolve to nothing yield Missing, which is distinct from a stored nil.
//
// # Supported Operators
//
//   - Comparison: =, !=, <>, <, <=, >, >=
//   - Logical: AND, &&, OR, ||, NOT, !
//   - Special: IN, BETWEEN, IS NULL, IS NOT NULL, COALESCE
//   - Text: LIKE, REGEXP (RLIKE, =~, ~), STRCMP
//   - Functions: UPPER, LOWER, TRIM, LTRIM, RTRIM, LENGTH, CONCAT, SUBSTRING,
//     ABS, FLOOR, CEIL, SQRT, ROUND, MOD (null in, null out)
//
// # Truthiness
//
// WHERE and HAVING keep rows whose predicate is truthy. nil, Missing, false,
// numeric zero, NaN and "" are falsy; everything else is truthy, including
// the string "0".
//
// # Error Handling
//
// Errors are *Error values whose Kind is one of the Err* sentinels, so
// callers can test them with errors.Is:
//   - ErrInvalidAggregateContext for aggregates used in WHERE, or in ORDER BY
//     on a query that does not aggregate
//   - ErrHavingWithoutGroup for HAVING without GROUP BY
//   - ErrUnknownOperator and ErrUnknownAggregateFunction, with suggestions
//   - ErrMalformedExpression, ErrInvalidSortOrder, ErrInvalidLimit
package query
