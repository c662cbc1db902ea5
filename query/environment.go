package query

import (
	"iter"
	"slices"
)

// RowFunc computes a value for a row. It receives the row being evaluated
// and its index within the current stage, or a nil row and index -1 when
// it is resolved outside of any row (sort directions, LIMIT parameters).
type RowFunc func(row Row, index int) interface{}

// Binding is a DataEnvironment entry. Use Value, Func, Rows or Seq to
// construct one.
type Binding interface {
	binding()
}

// StaticValue binds a name to a constant value.
type StaticValue struct {
	Value interface{}
}

// FuncValue binds a name to a function evaluated on every resolution.
type FuncValue struct {
	Fn RowFunc
}

// RowsValue binds a name to an in-memory row collection.
type RowsValue struct {
	Rows []Row
}

// SeqValue binds a name to a lazy row sequence. The sequence is consumed
// once per query execution.
type SeqValue struct {
	Seq iter.Seq[Row]
}

func (StaticValue) binding() {}
func (FuncValue) binding()   {}
func (RowsValue) binding()   {}
func (SeqValue) binding()    {}

// Value binds a constant.
func Value(v interface{}) Binding { return StaticValue{Value: v} }

// Func binds a row function.
func Func(fn RowFunc) Binding { return FuncValue{Fn: fn} }

// Rows binds an in-memory row collection.
func Rows(rows []Row) Binding { return RowsValue{Rows: rows} }

// Seq binds a lazy row sequence.
func Seq(seq iter.Seq[Row]) Binding { return SeqValue{Seq: seq} }

// DataEnvironment maps names to the rows, values and functions a query can
// reference.
type DataEnvironment map[string]Binding

// Merge returns a new environment holding env's entries overlaid with
// other's.
func (env DataEnvironment) Merge(other DataEnvironment) DataEnvironment {
	merged := make(DataEnvironment, len(env)+len(other))
	for k, v := range env {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// snapshot materializes a row collection binding.
func snapshot(b Binding) ([]Row, bool) {
	switch v := b.(type) {
	case RowsValue:
		return slices.Clone(v.Rows), true
	case SeqValue:
		if v.Seq == nil {
			return nil, true
		}
		return slices.Collect(v.Seq), true
	case StaticValue:
		switch rows := v.Value.(type) {
		case []Row:
			return slices.Clone(rows), true
		case []interface{}:
			out := make([]Row, 0, len(rows))
			for _, r := range rows {
				row, ok := r.(Row)
				if !ok {
					return nil, false
				}
				out = append(out, row)
			}
			return out, true
		}
	}
	return nil, false
}
