package output

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// TableFormatter outputs rows as an aligned text table for terminals.
type TableFormatter struct {
	writer  io.Writer
	columns []string
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

// SetOutput sets the output writer
func (t *TableFormatter) SetOutput(w io.Writer) {
	t.writer = w
}

// SetColumns sets the column order
func (t *TableFormatter) SetColumns(columns []string) {
	t.columns = columns
}

// Format renders rows as a table with a header row.
func (t *TableFormatter) Format(rows []map[string]interface{}) error {
	columns := columnsFor(t.columns, rows)

	table := tablewriter.NewWriter(t.writer)
	table.SetHeader(columns)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	for _, row := range rows {
		record := make([]string, len(columns))
		for i, col := range columns {
			record[i] = formatCell(row[col])
		}
		table.Append(record)
	}
	table.Render()
	return nil
}

// formatCell is formatValue without the spreadsheet formula guard.
func formatCell(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return "NULL"
	}
	return formatValue(v)
}
