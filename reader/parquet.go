package reader

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// maxFiles bounds how many files a glob may expand to.
const maxFiles = 1000

// FileColumn is the column that multi-file reads tag each row with.
const FileColumn = "_file"

// ParquetFile reads rows from one parquet file.
//
// It keeps both the OS file handle and the parquet file handle so Close can
// release the descriptor.
type ParquetFile struct {
	file   *os.File
	pqFile *parquet.File
}

// OpenParquet opens and validates a parquet file.
func OpenParquet(path string) (*ParquetFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pqFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	return &ParquetFile{file: file, pqFile: pqFile}, nil
}

// rows yields the rows of the file in order. A read error stops the
// sequence and is stored in *errp.
func (r *ParquetFile) rows(errp *error) iter.Seq[map[string]interface{}] {
	return func(yield func(map[string]interface{}) bool) {
		reader := parquet.NewReader(r.pqFile)
		defer func() { _ = reader.Close() }()

		for {
			row := make(map[string]interface{})
			if err := reader.Read(&row); err != nil {
				if !errors.Is(err, io.EOF) {
					*errp = fmt.Errorf("failed to read row: %w", err)
				}
				return
			}
			if !yield(row) {
				return
			}
		}
	}
}

// Schema returns the parquet schema of the file.
func (r *ParquetFile) Schema() *parquet.Schema {
	return r.pqFile.Schema()
}

// NumRows returns the row count recorded in the file metadata.
func (r *ParquetFile) NumRows() int64 {
	return r.pqFile.NumRows()
}

// Close releases the file. It is safe to call more than once.
func (r *ParquetFile) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// isGlob reports whether path contains glob wildcards.
func isGlob(path string) bool {
	return strings.ContainsAny(path, "*?[]{}")
}

// expand resolves a glob pattern to the files it matches.
func expand(pattern string) ([]string, error) {
	if !isGlob(pattern) {
		return []string{pattern}, nil
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files match pattern: %s", pattern)
	}
	if len(matches) > maxFiles {
		return nil, fmt.Errorf("glob pattern matched too many files (%d), maximum is %d", len(matches), maxFiles)
	}
	return matches, nil
}

// parquetSource streams one parquet file or every file matched by a glob.
// Rows read through a glob carry the source path in FileColumn; single-file
// reads keep the file's own shape.
type parquetSource struct {
	pattern string
	err     error
}

func (s *parquetSource) Path() string { return s.pattern }

func (s *parquetSource) Err() error { return s.err }

func (s *parquetSource) Rows() iter.Seq[map[string]interface{}] {
	return func(yield func(map[string]interface{}) bool) {
		s.err = nil
		files, err := expand(s.pattern)
		if err != nil {
			s.err = err
			return
		}
		tag := isGlob(s.pattern)

		for _, path := range files {
			if !s.yieldFile(path, tag, yield) {
				return
			}
		}
	}
}

// yieldFile streams one file and reports whether iteration should go on.
func (s *parquetSource) yieldFile(path string, tag bool, yield func(map[string]interface{}) bool) bool {
	f, err := OpenParquet(path)
	if err != nil {
		s.err = fmt.Errorf("failed to read %s: %w", path, err)
		return false
	}
	defer func() {
		if err := f.Close(); err != nil && s.err == nil {
			s.err = fmt.Errorf("failed to close %s: %w", path, err)
		}
	}()

	stopped := false
	for row := range f.rows(&s.err) {
		if tag {
			row[FileColumn] = path
		}
		if !yield(row) {
			stopped = true
			break
		}
	}
	if s.err != nil {
		s.err = fmt.Errorf("failed to read rows from %s: %w", path, s.err)
		return false
	}
	return !stopped
}

func (s *parquetSource) ReadAll() ([]map[string]interface{}, error) {
	return collect(s)
}

// ReadMultipleFiles reads every row of the parquet files matching pattern.
//
// The pattern can include wildcards:
//   - * matches any sequence of non-separator characters
//   - ? matches any single non-separator character
//   - [range] matches any character in range
//
// Rows of glob reads are tagged with a "_file" column holding their path.
func ReadMultipleFiles(pattern string) ([]map[string]interface{}, error) {
	return (&parquetSource{pattern: pattern}).ReadAll()
}
