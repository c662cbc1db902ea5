package reader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strconv"
)

// csvSource reads a CSV file whose first record names the columns.
//
// Cells are typed on read: empty cells become nil, integers int64, other
// numbers float64, true/false bool, and everything else stays a string.
type csvSource struct {
	path string
	err  error
}

func (s *csvSource) Path() string { return s.path }

func (s *csvSource) Err() error { return s.err }

func (s *csvSource) ReadAll() ([]map[string]interface{}, error) {
	return collect(s)
}

func (s *csvSource) Rows() iter.Seq[map[string]interface{}] {
	return func(yield func(map[string]interface{}) bool) {
		s.err = nil
		f, err := os.Open(s.path)
		if err != nil {
			s.err = fmt.Errorf("failed to open file: %w", err)
			return
		}
		defer func() { _ = f.Close() }()

		r := csv.NewReader(f)
		header, err := r.Read()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.err = fmt.Errorf("%s: failed to read header: %w", s.path, err)
			}
			return
		}
		header = append([]string(nil), header...)

		for {
			record, err := r.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				s.err = fmt.Errorf("%s: %w", s.path, err)
				return
			}
			row := make(map[string]interface{}, len(header))
			for i, name := range header {
				if i < len(record) {
					row[name] = parseCell(record[i])
				}
			}
			if !yield(row) {
				return
			}
		}
	}
}

func parseCell(s string) interface{} {
	if s == "" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if s == "true" || s == "false" {
		return s == "true"
	}
	return s
}
