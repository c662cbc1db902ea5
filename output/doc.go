// Package output writes query results as JSON Lines, JSON, CSV or a text
// table.
//
// All formatters take rows as []map[string]interface{}. Column order comes
// from SetColumns, usually query.Columns for the executed query; without it
// the sorted union of the row keys is used.
//
// # Basic Usage
//
//	formatter, err := output.New("csv", os.Stdout)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	formatter.SetColumns(query.Columns(q))
//	if err := formatter.Format(rows); err != nil {
//	    log.Fatal(err)
//	}
//
// # Type Handling
//
//   - JSON formats keep nested objects and arrays; missing values are null
//   - CSV writes nil and missing values as empty cells, nested values as
//     JSON, and guards strings that start like spreadsheet formulas
//   - The table format shows nil as NULL
package output
