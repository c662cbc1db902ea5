package query

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Executor runs parsed queries against a DataEnvironment. It holds no
// per-query state and is safe for concurrent use.
type Executor struct {
	logger     *zap.Logger
	operators  *OperatorRegistry
	aggregates *AggregateRegistry
	locale     language.Tag
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for per-stage debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithOperators replaces the operator registry.
func WithOperators(r *OperatorRegistry) Option {
	return func(e *Executor) {
		if r != nil {
			e.operators = r
		}
	}
}

// WithAggregates replaces the aggregate registry.
func WithAggregates(r *AggregateRegistry) Option {
	return func(e *Executor) {
		if r != nil {
			e.aggregates = r
		}
	}
}

// WithLocale sets the language whose collation orders strings in ORDER BY.
func WithLocale(tag language.Tag) Option {
	return func(e *Executor) {
		e.locale = tag
	}
}

// NewExecutor creates an executor with the built-in registries.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		logger:     zap.NewNop(),
		operators:  DefaultOperators(),
		aggregates: DefaultAggregates(),
		locale:     language.Und,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultExecutor = NewExecutor()

// Execute runs q against env with the default executor.
func Execute(ctx context.Context, q *ParsedQuery, env DataEnvironment) ([]Row, error) {
	return defaultExecutor.Execute(ctx, q, env)
}

// plan is everything compiled for a single execution.
type plan struct {
	query        *ParsedQuery
	resolver     *Resolver
	fields       []OutputField
	aggregations []*AggregationSpec
	functions    map[string]AggregateFunc
	where        Evaluator
	having       Evaluator
	order        []Evaluator
	collator     *collate.Collator
}

// Execute runs q against env: materialize, WHERE, GROUP, HAVING, ORDER BY,
// LIMIT, SELECT. ctx is checked between stages.
func (e *Executor) Execute(ctx context.Context, q *ParsedQuery, env DataEnvironment) ([]Row, error) {
	if q == nil {
		return nil, newError(ErrMalformedExpression, "", "", "query is nil")
	}
	p, err := e.prepare(q, env)
	if err != nil {
		return nil, err
	}
	log := e.logger.With(zap.String("source", q.Source))

	rows, ok := p.resolver.source(q.Source)
	if !ok {
		return nil, newError(ErrUnknownSource, "FROM", q.Source, "unknown source %q", q.Source)
	}
	log.Debug("materialized source", zap.Int("rows", len(rows)))

	stages := []struct {
		name  string
		apply func([]Row) ([]Row, error)
	}{
		{"WHERE", p.applyWhere},
		{"GROUP BY", p.applyGroup},
		{"HAVING", p.applyHaving},
		{"ORDER BY", p.applyOrder},
		{"LIMIT", p.applyLimit},
		{"SELECT", p.applySelect},
	}
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err = stage.apply(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to apply %s: %w", stage.name, err)
		}
		log.Debug("applied stage", zap.String("stage", stage.name), zap.Int("rows", len(rows)))
	}
	return rows, nil
}

// prepare compiles every clause of q so malformed queries fail before any
// data is read.
func (e *Executor) prepare(q *ParsedQuery, env DataEnvironment) (*plan, error) {
	p := &plan{
		query:    q,
		resolver: NewResolver(q.Fields, env),
		fields:   OutputFields(q.Fields),
		collator: collate.New(e.locale),
	}
	compiler := NewCompiler(e.operators, p.resolver)

	if q.Where != nil {
		where, err := compiler.Compile(q.Where, ClauseWhere)
		if err != nil {
			return nil, err
		}
		p.where = where
	}
	if q.Having != nil {
		if q.Group == nil {
			return nil, newError(ErrHavingWithoutGroup, string(ClauseHaving), "",
				"cannot use HAVING without groups. Did you mean to GROUP BY some fields?")
		}
		having, err := compiler.Compile(q.Having, ClauseHaving)
		if err != nil {
			return nil, err
		}
		p.having = having
	}

	aggregating := q.Group != nil || p.hasAggregateField()
	orderExprs := make([]Expression, len(q.Order))
	for i, term := range q.Order {
		eval, err := compiler.Compile(term.Field, ClauseOrderBy)
		if err != nil {
			return nil, err
		}
		// Rows are only aggregated when the query groups or selects an aggregate.
		if !aggregating {
			if specs := CollectAggregations(nil, nil, term.Field); len(specs) > 0 {
				return nil, newError(ErrInvalidAggregateContext, string(ClauseOrderBy), specs[0].Aggregate,
					"cannot ORDER BY aggregate %s without GROUP BY or an aggregate in SELECT", specs[0].Aggregate)
			}
		}
		p.order = append(p.order, eval)
		orderExprs[i] = term.Field
	}

	p.aggregations = CollectAggregations(p.fields, q.Having, orderExprs...)
	p.functions = make(map[string]AggregateFunc, len(p.aggregations))
	for _, spec := range p.aggregations {
		fn, ok := e.aggregates.Get(spec.Aggregate)
		if !ok {
			err := newError(ErrUnknownAggregateFunction, "", spec.Aggregate, "unknown aggregate function %q", spec.Aggregate)
			err.Suggestion = suggest(spec.Aggregate, e.aggregates.Names())
			return nil, err
		}
		p.functions[spec.Key()] = fn
	}
	return p, nil
}

func (p *plan) applyWhere(rows []Row) ([]Row, error) {
	if p.where == nil {
		return rows, nil
	}
	return filterRows(rows, p.where)
}

func (p *plan) applyHaving(rows []Row) ([]Row, error) {
	if p.having == nil {
		return rows, nil
	}
	return filterRows(rows, p.having)
}

// filterRows keeps the rows for which predicate is truthy.
func filterRows(rows []Row, predicate Evaluator) ([]Row, error) {
	result := make([]Row, 0, len(rows))
	for i, row := range rows {
		v, err := predicate(row, i)
		if err != nil {
			return nil, err
		}
		if Truthy(v) {
			result = append(result, row)
		}
	}
	return result, nil
}

// hasAggregateField reports whether the SELECT list aggregates.
func (p *plan) hasAggregateField() bool {
	for _, f := range p.fields {
		if f.IsAggregate() {
			return true
		}
	}
	return false
}

func (p *plan) applyGroup(rows []Row) ([]Row, error) {
	switch {
	case p.query.Group != nil:
		groups, err := p.partition(rows)
		if err != nil {
			return nil, err
		}
		result := make([]Row, 0, len(groups))
		for _, group := range groups {
			row, err := p.groupRow(group)
			if err != nil {
				return nil, err
			}
			result = append(result, row)
		}
		return result, nil
	case p.hasAggregateField():
		row, err := p.groupRow(rows)
		if err != nil {
			return nil, err
		}
		return []Row{row}, nil
	default:
		return rows, nil
	}
}

// partition splits rows by their GROUP BY values, keeping groups in the
// order their first row appeared.
func (p *plan) partition(rows []Row) ([][]Row, error) {
	var groups [][]Row
	index := make(map[string]int)
	values := make([]interface{}, len(p.query.Group.Fields))
	for i, row := range rows {
		for j, field := range p.query.Group.Fields {
			values[j] = p.resolver.Resolve(field, row, i)
		}
		key, err := compositeKey(values)
		if err != nil {
			return nil, newError(ErrInvalidOperand, "GROUP BY", "", "cannot group row %d: %v", i, err)
		}
		g, ok := index[key]
		if !ok {
			g = len(groups)
			index[key] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], row)
	}
	return groups, nil
}

// groupRow builds the output row of one group. Non-aggregate fields come
// from the first row; each aggregation is computed once and written under
// every name that refers to it.
func (p *plan) groupRow(rows []Row) (Row, error) {
	out := make(Row, len(p.fields))
	for _, f := range p.fields {
		if f.IsAggregate() {
			continue
		}
		if len(rows) == 0 {
			out[f.OutputName] = Missing
			continue
		}
		out[f.OutputName] = p.resolver.Resolve(f.Name, rows[0], 0)
	}

	for _, spec := range p.aggregations {
		values := make([]interface{}, len(rows))
		for i, row := range rows {
			values[i] = p.resolver.Resolve(spec.Source, row, i)
		}
		result, err := p.functions[spec.Key()].Evaluate(values)
		if err != nil {
			return nil, err
		}
		for _, name := range spec.OutputFields {
			out[name] = result
		}
	}
	return out, nil
}

// sortDirection is +1 for ascending and -1 for descending.
type sortDirection int

const (
	ascending  sortDirection = 1
	descending sortDirection = -1
)

func (p *plan) applyOrder(rows []Row) ([]Row, error) {
	if len(p.order) == 0 {
		return rows, nil
	}
	directions := make([]sortDirection, len(p.query.Order))
	for i, term := range p.query.Order {
		dir, err := p.direction(term.Order)
		if err != nil {
			return nil, err
		}
		directions[i] = dir
	}

	type keyed struct {
		index int
		row   Row
		keys  []interface{}
	}
	entries := make([]keyed, len(rows))
	for i, row := range rows {
		keys := make([]interface{}, len(p.order))
		for j, eval := range p.order {
			v, err := eval(row, i)
			if err != nil {
				return nil, err
			}
			keys[j] = v
		}
		entries[i] = keyed{index: i, row: row, keys: keys}
	}

	slices.SortFunc(entries, func(a, b keyed) int {
		for j, dir := range directions {
			if c := sortCompare(p.collator, a.keys[j], b.keys[j]); c != 0 {
				return c * int(dir)
			}
		}
		return cmp.Compare(a.index, b.index)
	})

	result := make([]Row, len(entries))
	for i, entry := range entries {
		result[i] = entry.row
	}
	return result, nil
}

// direction resolves an ORDER BY direction. A missing or empty direction
// means ascending.
func (p *plan) direction(param *Param) (sortDirection, error) {
	v := p.param(param)
	if isNull(v) {
		return ascending, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, newError(ErrInvalidSortOrder, string(ClauseOrderBy), fmt.Sprint(v), "unexpected sort order: %v", v)
	}
	switch strings.ToUpper(s) {
	case "", "ASC":
		return ascending, nil
	case "DESC":
		return descending, nil
	}
	return 0, newError(ErrInvalidSortOrder, string(ClauseOrderBy), s, "unexpected sort order: %s", s)
}

// param resolves a literal or external reference parameter. References to
// row functions are invoked without row context.
func (p *plan) param(param *Param) interface{} {
	if param == nil {
		return nil
	}
	if param.IsReference() {
		return p.resolver.ResolveExternal(param.Reference)
	}
	return param.Literal
}

func (p *plan) applyLimit(rows []Row) ([]Row, error) {
	limit := p.query.Limit
	if limit == nil {
		return rows, nil
	}
	offset, err := p.limitParam("offset", limit.Offset, 0)
	if err != nil {
		return nil, err
	}
	count, err := p.limitParam("count", limit.Count, len(rows))
	if err != nil {
		return nil, err
	}
	start := min(offset, len(rows))
	end := start + min(count, len(rows)-start)
	return rows[start:end], nil
}

// limitParam resolves a LIMIT offset or count. Negative values clamp to 0.
func (p *plan) limitParam(name string, param *Param, def int) (int, error) {
	if param == nil {
		return def, nil
	}
	v := p.param(param)
	n, ok := toFloat64(v)
	if !ok || math.IsNaN(n) {
		return 0, newError(ErrInvalidLimit, "LIMIT", fmt.Sprint(v), "LIMIT %s must be a number, got %T", name, v)
	}
	if n <= 0 {
		return 0, nil
	}
	// float64(maxInt) rounds up to 2^63, which int cannot hold.
	if n >= float64(maxInt) {
		return maxInt, nil
	}
	return int(n), nil
}

const maxInt = int(^uint(0) >> 1)

func (p *plan) applySelect(rows []Row) ([]Row, error) {
	if len(p.fields) == 0 {
		return rows, nil
	}
	result := make([]Row, len(rows))
	for i, row := range rows {
		out := make(Row, len(p.fields))
		for _, f := range p.fields {
			out[f.OutputName] = p.resolver.Resolve(f.OutputName, row, i)
		}
		result[i] = out
	}
	return result, nil
}
