package query

import "strings"

// OutputField is a FieldSpec with its computed output column name.
type OutputField struct {
	FieldSpec
	OutputName string
}

// OutputName returns the column name under which a field appears in the
// result: its alias, else the aggregate key for aggregates, else its name.
func OutputName(f FieldSpec) string {
	if f.As != "" {
		return f.As
	}
	if f.IsAggregate() {
		return AggregateKey(f.Aggregate, f.Source)
	}
	return f.Name
}

// AggregateKey returns the default name of an aggregate, e.g. "count_x"
// for COUNT(x). The aggregate token is lower-cased.
func AggregateKey(aggregate, source string) string {
	return strings.ToLower(aggregate) + "_" + source
}

// OutputFields computes the output name of every field.
func OutputFields(fields []FieldSpec) []OutputField {
	out := make([]OutputField, len(fields))
	for i, f := range fields {
		out[i] = OutputField{FieldSpec: f, OutputName: OutputName(f)}
	}
	return out
}

// Columns returns the ordered output column names of q, or nil for SELECT *.
func Columns(q *ParsedQuery) []string {
	if q == nil || len(q.Fields) == 0 {
		return nil
	}
	columns := make([]string, 0, len(q.Fields))
	seen := make(map[string]bool, len(q.Fields))
	for _, f := range q.Fields {
		name := OutputName(f)
		if !seen[name] {
			seen[name] = true
			columns = append(columns, name)
		}
	}
	return columns
}
