package query

// Resolver turns identifiers into values for one query execution.
//
// Lookup order: a field present on the row, then a SELECT alias (which
// reads the aliased field from the row), then a DataEnvironment entry.
// Row data always shadows environment entries.
type Resolver struct {
	aliases map[string]string // alias -> field name
	env     DataEnvironment
	rows    map[string][]Row // snapshots of row-collection entries
}

// NewResolver builds a resolver for the given SELECT list and environment.
func NewResolver(fields []FieldSpec, env DataEnvironment) *Resolver {
	aliases := make(map[string]string)
	for _, f := range fields {
		if f.As == "" || f.IsAggregate() {
			continue
		}
		// the first field declaring an alias wins
		if _, ok := aliases[f.As]; !ok {
			aliases[f.As] = f.Name
		}
	}
	return &Resolver{
		aliases: aliases,
		env:     env,
		rows:    make(map[string][]Row),
	}
}

// Resolve returns the value of identifier for row, or Missing.
func (r *Resolver) Resolve(identifier string, row Row, index int) interface{} {
	if v, ok := rowValue(row, identifier); ok {
		return v
	}
	if name, ok := r.aliases[identifier]; ok {
		if v, ok := rowValue(row, name); ok {
			return v
		}
	}
	return r.resolveBinding(identifier, row, index)
}

// ResolveExternal returns the value of a DataEnvironment entry without any
// row context. Functions are invoked with a nil row and index -1.
func (r *Resolver) ResolveExternal(key string) interface{} {
	return r.resolveBinding(key, nil, -1)
}

func (r *Resolver) resolveBinding(key string, row Row, index int) interface{} {
	b, ok := r.env[key]
	if !ok || b == nil {
		return Missing
	}
	switch v := b.(type) {
	case StaticValue:
		return v.Value
	case FuncValue:
		if v.Fn == nil {
			return Missing
		}
		return v.Fn(row, index)
	case RowsValue, SeqValue:
		return r.collection(key, b)
	}
	return Missing
}

// collection snapshots a row collection entry once per execution so lazy
// sequences are only consumed a single time.
func (r *Resolver) collection(key string, b Binding) interface{} {
	rows, ok := r.rows[key]
	if !ok {
		rows, _ = snapshot(b)
		r.rows[key] = rows
	}
	return rows
}

// source returns the snapshot of the named row collection.
func (r *Resolver) source(key string) ([]Row, bool) {
	if rows, ok := r.rows[key]; ok {
		return rows, true
	}
	b, ok := r.env[key]
	if !ok || b == nil {
		return nil, false
	}
	rows, ok := snapshot(b)
	if !ok {
		return nil, false
	}
	r.rows[key] = rows
	return rows, true
}

// rowValue reads a field that is present and not Missing.
func rowValue(row Row, key string) (interface{}, bool) {
	if row == nil {
		return nil, false
	}
	v, ok := row[key]
	if !ok || IsMissing(v) {
		return nil, false
	}
	return v, true
}
