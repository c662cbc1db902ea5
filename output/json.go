package output

import (
	"bytes"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// JSONFormatter outputs rows as JSON Lines. With columns set, keys are
// written in that order and only those keys are written.
type JSONFormatter struct {
	writer  io.Writer
	columns []string
}

// NewJSONFormatter creates a new JSON Lines formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// SetOutput sets the output writer
func (j *JSONFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

// SetColumns sets the key order
func (j *JSONFormatter) SetColumns(columns []string) {
	j.columns = columns
}

// Format writes rows as JSON Lines (one JSON object per line)
func (j *JSONFormatter) Format(rows []map[string]interface{}) error {
	for _, row := range rows {
		b, err := encodeRow(row, j.columns)
		if err != nil {
			return err
		}
		b = append(b, '\n')
		if _, err := j.writer.Write(b); err != nil {
			return err
		}
	}
	return nil
}

// JSONArrayFormatter outputs all rows as one indented JSON array.
type JSONArrayFormatter struct {
	writer  io.Writer
	columns []string
}

// NewJSONArrayFormatter creates a new JSON array formatter
func NewJSONArrayFormatter(w io.Writer) *JSONArrayFormatter {
	return &JSONArrayFormatter{writer: w}
}

// SetOutput sets the output writer
func (j *JSONArrayFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

// SetColumns sets the key order
func (j *JSONArrayFormatter) SetColumns(columns []string) {
	j.columns = columns
}

// Format writes rows as a JSON array
func (j *JSONArrayFormatter) Format(rows []map[string]interface{}) error {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := encodeRow(row, j.columns)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return fmt.Errorf("failed to indent JSON: %w", err)
	}
	out.WriteByte('\n')
	_, err := j.writer.Write(out.Bytes())
	return err
}

// encodeRow marshals row as an object. Without columns the keys are sorted.
func encodeRow(row map[string]interface{}, columns []string) ([]byte, error) {
	if columns == nil {
		b, err := json.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("failed to encode row: %w", err)
		}
		return b, nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, fmt.Errorf("failed to encode column %q: %w", col, err)
		}
		value, err := json.Marshal(row[col])
		if err != nil {
			return nil, fmt.Errorf("failed to encode column %q: %w", col, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
