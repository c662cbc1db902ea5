package reader

import (
	"fmt"
	"iter"
	"path/filepath"
	"strings"
)

// Source is a file of rows.
//
// Rows streams the file each time it is ranged over. Because a sequence
// cannot return an error, a failed read ends the sequence early and the
// error is reported by Err.
type Source interface {
	// Path returns the file path or glob the source reads
	Path() string
	// Rows returns a lazy sequence over the rows
	Rows() iter.Seq[map[string]interface{}]
	// Err returns the error that ended the last iteration, if any
	Err() error
	// ReadAll reads every row into memory
	ReadAll() ([]map[string]interface{}, error)
}

// Format identifies a source file encoding.
type Format string

const (
	FormatParquet Format = "parquet"
	FormatJSON    Format = "json"
	FormatJSONL   Format = "jsonl"
	FormatCSV     Format = "csv"
)

// DetectFormat picks the format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".pq":
		return FormatParquet, nil
	case ".json":
		return FormatJSON, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unsupported file type: %s", path)
}

// Open returns a Source for path, choosing the decoder by extension.
// Parquet paths may be glob patterns. Nothing is read until the rows are
// requested.
func Open(path string) (Source, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatParquet:
		return &parquetSource{pattern: path}, nil
	case FormatJSON:
		return &jsonSource{path: path}, nil
	case FormatJSONL:
		return &jsonSource{path: path, lines: true}, nil
	default:
		return &csvSource{path: path}, nil
	}
}

// ReadFile reads every row of the file at path.
func ReadFile(path string) ([]map[string]interface{}, error) {
	src, err := Open(path)
	if err != nil {
		return nil, err
	}
	return src.ReadAll()
}

func collect(src Source) ([]map[string]interface{}, error) {
	rows := make([]map[string]interface{}, 0)
	for row := range src.Rows() {
		rows = append(rows, row)
	}
	if err := src.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}
