// Package reader loads rows from Parquet, JSON, JSON Lines and CSV files.
//
// Rows are returned as maps from column name to value, the shape the query
// engine consumes directly.
//
// # Basic Usage
//
// Open picks a decoder by file extension and reads lazily:
//
//	src, err := reader.Open("data.parquet")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	env := query.DataEnvironment{"data": query.Seq(src.Rows())}
//	results, err := query.Execute(ctx, q, env)
//	if err == nil {
//	    err = src.Err()
//	}
//
// # Multi-file Operations
//
// Parquet paths may be glob patterns. Each row then carries a "_file"
// column with the path it came from:
//
//	rows, err := reader.ReadMultipleFiles("data/*.parquet")
//
// # Schema Introspection
//
//	infos, err := reader.ExtractSchemaInfo("data.parquet")
//	for _, info := range infos {
//	    fmt.Printf("%s: %s\n", info.Name, info.Type)
//	}
//
// The package uses github.com/parquet-go/parquet-go for parquet files and
// github.com/goccy/go-json for JSON.
package reader
