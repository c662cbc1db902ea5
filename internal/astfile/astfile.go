// Package astfile decodes parsed queries stored as JSON or YAML documents.
//
// A document mirrors query.ParsedQuery:
//
//	source: people
//	fields:
//	  - name: city
//	  - {aggregate: COUNT, source: "*", as: n}
//	where: {op: ">", lhs: {identifier: age}, rhs: {literal: 30}}
//	group: [city]
//	having: {op: ">", lhs: {aggregate: COUNT, source: "*"}, rhs: {literal: 1}}
//	order:
//	  - {field: n, order: DESC}
//	limit: {offset: 0, count: {reference: pageSize}}
//
// Expressions are maps with exactly one of literal, identifier, reference,
// aggregate or op, or sequences of expressions.
package astfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/vegasq/prequel/query"
)

// Format is the encoding of a query document.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFromPath picks the format from a file extension. Anything that is
// not .json is read as YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// DecodeFile reads and decodes a query document.
func DecodeFile(path string) (*query.ParsedQuery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query file: %w", err)
	}
	q, err := Decode(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return q, nil
}

// Decode decodes a query document.
func Decode(data []byte, format Format) (*query.ParsedQuery, error) {
	var doc interface{}
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse JSON query: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML query: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown query format %d", format)
	}
	return FromValue(doc)
}

// FromValue converts a generic decoded document (maps, slices and scalars)
// into a ParsedQuery.
func FromValue(doc interface{}) (*query.ParsedQuery, error) {
	m, ok := asMap(doc)
	if !ok {
		return nil, malformed("query", "expected a mapping, got %T", doc)
	}

	q := &query.ParsedQuery{}
	var err error
	if q.Source, err = stringField(m, "source"); err != nil {
		return nil, err
	}
	if q.Source == "" {
		return nil, malformed("source", "source is required")
	}
	if q.Fields, err = decodeFields(m["fields"]); err != nil {
		return nil, err
	}
	if v, ok := m["where"]; ok && v != nil {
		if q.Where, err = DecodeExpression(v); err != nil {
			return nil, fmt.Errorf("where: %w", err)
		}
	}
	if v, ok := m["group"]; ok && v != nil {
		if q.Group, err = decodeGroup(v); err != nil {
			return nil, err
		}
	}
	if v, ok := m["having"]; ok && v != nil {
		if q.Having, err = DecodeExpression(v); err != nil {
			return nil, fmt.Errorf("having: %w", err)
		}
	}
	if v, ok := m["order"]; ok && v != nil {
		if q.Order, err = decodeOrder(v); err != nil {
			return nil, err
		}
	}
	if v, ok := m["limit"]; ok && v != nil {
		if q.Limit, err = decodeLimit(v); err != nil {
			return nil, err
		}
	}
	return q, nil
}

func decodeFields(v interface{}) ([]query.FieldSpec, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]interface{})
	if !ok {
		return nil, malformed("fields", "expected a sequence, got %T", v)
	}
	fields := make([]query.FieldSpec, 0, len(items))
	for i, item := range items {
		// "*" alone selects everything
		if s, ok := item.(string); ok {
			if s == "*" && len(items) == 1 {
				return nil, nil
			}
			fields = append(fields, query.FieldSpec{Name: s})
			continue
		}
		m, ok := asMap(item)
		if !ok {
			return nil, malformed("fields", "field %d: expected a name or mapping, got %T", i, item)
		}
		var f query.FieldSpec
		var err error
		for key, dst := range map[string]*string{"name": &f.Name, "as": &f.As, "source": &f.Source, "aggregate": &f.Aggregate} {
			if *dst, err = stringField(m, key); err != nil {
				return nil, fmt.Errorf("field %d: %w", i, err)
			}
		}
		f.Aggregate = strings.ToUpper(f.Aggregate)
		if f.Name == "" && !f.IsAggregate() {
			return nil, malformed("fields", "field %d: needs a name or an aggregate", i)
		}
		if f.IsAggregate() && f.Source == "" {
			return nil, malformed("fields", "field %d: aggregate %s needs a source", i, f.Aggregate)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func decodeGroup(v interface{}) (*query.GroupClause, error) {
	if m, ok := asMap(v); ok {
		v = m["fields"]
	}
	items, ok := v.([]interface{})
	if !ok {
		return nil, malformed("group", "expected a sequence of field names, got %T", v)
	}
	g := &query.GroupClause{}
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, malformed("group", "field names must be strings, got %T", item)
		}
		g.Fields = append(g.Fields, s)
	}
	return g, nil
}

func decodeOrder(v interface{}) ([]query.OrderTerm, error) {
	items, ok := v.([]interface{})
	if !ok {
		items = []interface{}{v}
	}
	terms := make([]query.OrderTerm, 0, len(items))
	for i, item := range items {
		if s, ok := item.(string); ok {
			terms = append(terms, query.OrderTerm{Field: query.Ident(s)})
			continue
		}
		m, ok := asMap(item)
		if !ok {
			return nil, malformed("order", "term %d: expected a name or mapping, got %T", i, item)
		}
		var term query.OrderTerm
		switch field := m["field"].(type) {
		case string:
			term.Field = query.Ident(field)
		case nil:
			return nil, malformed("order", "term %d: field is required", i)
		default:
			expr, err := DecodeExpression(field)
			if err != nil {
				return nil, fmt.Errorf("order term %d: %w", i, err)
			}
			term.Field = expr
		}
		if dir, ok := m["order"]; ok && dir != nil {
			param, err := decodeParam("order", dir)
			if err != nil {
				return nil, err
			}
			term.Order = param
		}
		terms = append(terms, term)
	}
	return terms, nil
}

func decodeLimit(v interface{}) (*query.LimitClause, error) {
	m, ok := asMap(v)
	if !ok {
		count, err := decodeParam("limit", v)
		if err != nil {
			return nil, err
		}
		return &query.LimitClause{Count: count}, nil
	}
	limit := &query.LimitClause{}
	var err error
	if o, ok := m["offset"]; ok && o != nil {
		if limit.Offset, err = decodeParam("limit", o); err != nil {
			return nil, err
		}
	}
	if c, ok := m["count"]; ok && c != nil {
		if limit.Count, err = decodeParam("limit", c); err != nil {
			return nil, err
		}
	}
	return limit, nil
}

// decodeParam reads a clause parameter: a scalar, {literal: v} or
// {reference: name}.
func decodeParam(clause string, v interface{}) (*query.Param, error) {
	m, ok := asMap(v)
	if !ok {
		return query.LiteralParam(scalar(v)), nil
	}
	if lit, ok := m["literal"]; ok {
		return query.LiteralParam(scalar(lit)), nil
	}
	if ref, ok := m["reference"].(string); ok && ref != "" {
		return query.ReferenceParam(ref), nil
	}
	return nil, malformed(clause, "unexpected %s parameter %v", clause, v)
}

// DecodeExpression converts one generic expression node.
func DecodeExpression(v interface{}) (query.Expression, error) {
	if items, ok := v.([]interface{}); ok {
		list := &query.List{Items: make([]query.Expression, len(items))}
		for i, item := range items {
			expr, err := DecodeExpression(item)
			if err != nil {
				return nil, err
			}
			list.Items[i] = expr
		}
		return list, nil
	}

	m, ok := asMap(v)
	if !ok {
		return nil, malformed("", "unexpected expression %v", v)
	}
	if lit, ok := m["literal"]; ok {
		return query.Lit(scalar(lit)), nil
	}
	if id, ok := m["identifier"].(string); ok {
		return query.Ident(id), nil
	}
	// interpolated values are resolved like identifiers
	if ref, ok := m["reference"].(string); ok {
		return query.Ident(ref), nil
	}
	if agg, ok := m["aggregate"].(string); ok {
		source, err := stringField(m, "source")
		if err != nil {
			return nil, err
		}
		return query.Agg(strings.ToUpper(agg), source), nil
	}
	if op, ok := m["op"].(string); ok {
		node := &query.Operator{Op: op}
		for key, dst := range map[string]*query.Expression{"lhs": &node.LHS, "rhs": &node.RHS, "ths": &node.THS} {
			child, ok := m[key]
			if !ok || child == nil {
				continue
			}
			expr, err := DecodeExpression(child)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", op, key, err)
			}
			*dst = expr
		}
		return node, nil
	}
	return nil, malformed("", "unexpected expression %v", v)
}

// asMap normalizes the mapping types produced by the JSON and YAML decoders.
func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

func stringField(m map[string]interface{}, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", malformed(key, "%s must be a string, got %T", key, v)
	}
	return s, nil
}

// scalar converts decoder number types to int64 or float64 and leaves other
// values alone.
func scalar(v interface{}) interface{} {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case int:
		return int64(n)
	case []interface{}:
		out := make([]interface{}, len(n))
		for i, item := range n {
			out[i] = scalar(item)
		}
		return out
	}
	return v
}

func malformed(token, format string, args ...interface{}) error {
	return &query.Error{
		Kind:  query.ErrMalformedExpression,
		Token: token,
		Msg:   fmt.Sprintf(format, args...),
	}
}
