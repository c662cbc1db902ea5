package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Formatter writes result rows in one output format.
type Formatter interface {
	// Format writes rows in the formatter's specific format
	Format(rows []map[string]interface{}) error

	// SetOutput changes the output writer
	SetOutput(w io.Writer)

	// SetColumns fixes the column order; nil derives it from the rows
	SetColumns(columns []string)
}

// Names of the supported formats.
const (
	FormatJSONL = "jsonl"
	FormatJSON  = "json"
	FormatCSV   = "csv"
	FormatTable = "table"
)

// Formats lists the accepted format names.
var Formats = []string{FormatJSONL, FormatJSON, FormatCSV, FormatTable}

// New returns the formatter registered under name.
func New(name string, w io.Writer) (Formatter, error) {
	switch strings.ToLower(name) {
	case FormatJSONL, "":
		return NewJSONFormatter(w), nil
	case FormatJSON:
		return NewJSONArrayFormatter(w), nil
	case FormatCSV:
		return NewCSVFormatter(w), nil
	case FormatTable:
		return NewTableFormatter(w), nil
	}
	return nil, fmt.Errorf("unknown output format %q (want one of %s)", name, strings.Join(Formats, ", "))
}

// columnsFor returns the configured columns, or the sorted union of the
// rows' keys when none were configured. Rows may be heterogeneous, e.g.
// sparse projections.
func columnsFor(configured []string, rows []map[string]interface{}) []string {
	if configured != nil {
		return configured
	}
	set := make(map[string]bool)
	for _, row := range rows {
		for col := range row {
			set[col] = true
		}
	}
	columns := make([]string, 0, len(set))
	for col := range set {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}
