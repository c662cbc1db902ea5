package astfile

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/vegasq/prequel/query"
)

// DecodeBindings turns decoded request data into a DataEnvironment. A list
// of objects becomes a row collection; any other value is bound as a
// constant.
func DecodeBindings(data map[string]interface{}) (query.DataEnvironment, error) {
	env := make(query.DataEnvironment, len(data))
	for name, v := range data {
		if rows, ok := asRows(v); ok {
			env[name] = query.Rows(rows)
			continue
		}
		value := plain(v)
		if _, ok := value.(map[string]interface{}); ok {
			return nil, malformed(name, "binding %q must be a list of objects or a scalar", name)
		}
		env[name] = query.Value(value)
	}
	return env, nil
}

// ParseParam parses a command-line parameter value using YAML scalar rules,
// so 5 is an integer, 2.5 a float, true a boolean and anything else a
// string.
func ParseParam(s string) (interface{}, error) {
	var v interface{}
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("invalid parameter value %q: %w", s, err)
	}
	if v == nil && s != "" && s != "null" && s != "~" {
		return s, nil
	}
	return plain(v), nil
}

func asRows(v interface{}) ([]query.Row, bool) {
	items, ok := v.([]interface{})
	if !ok || len(items) == 0 {
		return nil, false
	}
	rows := make([]query.Row, 0, len(items))
	for _, item := range items {
		m, ok := asMap(item)
		if !ok {
			return nil, false
		}
		rows = append(rows, plain(m).(map[string]interface{}))
	}
	return rows, true
}

// plain is scalar applied through nested mappings and sequences.
func plain(v interface{}) interface{} {
	if m, ok := asMap(v); ok {
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			out[k] = plain(val)
		}
		return out
	}
	if items, ok := v.([]interface{}); ok {
		out := make([]interface{}, len(items))
		for i, item := range items {
			out[i] = plain(item)
		}
		return out
	}
	return scalar(v)
}
