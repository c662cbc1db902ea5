package reader

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/goccy/go-json"
)

// maxLineSize bounds a single JSON Lines record.
const maxLineSize = 16 << 20

// jsonSource reads a JSON array of objects or, with lines set, one object
// per line. Integral numbers decode as int64 and the rest as float64.
type jsonSource struct {
	path  string
	lines bool
	err   error
}

func (s *jsonSource) Path() string { return s.path }

func (s *jsonSource) Err() error { return s.err }

func (s *jsonSource) ReadAll() ([]map[string]interface{}, error) {
	return collect(s)
}

func (s *jsonSource) Rows() iter.Seq[map[string]interface{}] {
	return func(yield func(map[string]interface{}) bool) {
		s.err = nil
		f, err := os.Open(s.path)
		if err != nil {
			s.err = fmt.Errorf("failed to open file: %w", err)
			return
		}
		defer func() { _ = f.Close() }()

		if s.lines {
			s.err = decodeLines(f, yield)
		} else {
			s.err = decodeArray(f, yield)
		}
		if s.err != nil {
			s.err = fmt.Errorf("%s: %w", s.path, s.err)
		}
	}
}

func decodeLines(r io.Reader, yield func(map[string]interface{}) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		row, err := decodeObject(bytes.NewReader(text))
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if !yield(row) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read line: %w", err)
	}
	return nil
}

func decodeArray(r io.Reader, yield func(map[string]interface{}) bool) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var items []map[string]interface{}
	if err := dec.Decode(&items); err != nil {
		return fmt.Errorf("failed to decode JSON array: %w", err)
	}
	for _, item := range items {
		if !yield(normalizeRow(item)) {
			return nil
		}
	}
	return nil
}

func decodeObject(r io.Reader) (map[string]interface{}, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var row map[string]interface{}
	if err := dec.Decode(&row); err != nil {
		return nil, fmt.Errorf("failed to decode JSON object: %w", err)
	}
	if row == nil {
		return nil, fmt.Errorf("expected a JSON object")
	}
	return normalizeRow(row), nil
}

func normalizeRow(row map[string]interface{}) map[string]interface{} {
	for k, v := range row {
		row[k] = normalize(v)
	}
	return row
}

// normalize replaces json.Number values, including nested ones, with int64
// or float64.
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]interface{}:
		return normalizeRow(val)
	case []interface{}:
		for i := range val {
			val[i] = normalize(val[i])
		}
		return val
	}
	return v
}
