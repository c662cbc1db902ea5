package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestRow defines a simple test data structure
type TestRow struct {
	ID     int64   `parquet:"id"`
	Name   string  `parquet:"name"`
	City   string  `parquet:"city"`
	Age    int64   `parquet:"age"`
	Salary float64 `parquet:"salary"`
}

var testRows = []TestRow{
	{ID: 1, Name: "Alice", City: "Oslo", Age: 30, Salary: 50000.0},
	{ID: 2, Name: "Bob", City: "Rome", Age: 25, Salary: 45000.0},
	{ID: 3, Name: "Charlie", City: "Oslo", Age: 35, Salary: 60000.0},
}

func createTestParquetFile(t *testing.T, dir, filename string, rows []TestRow) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	f, err := os.Create(path)
	require.NoError(t, err)

	writer := parquet.NewGenericWriter[TestRow](f)
	_, err = writer.Write(rows)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	require.NoError(t, f.Close())
	return path
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := newApp(&stdout, &stderr).Run(context.Background(), append([]string{"prequel"}, args...))
	return stdout.String(), stderr.String(), err
}

func TestQuery_Parquet(t *testing.T) {
	dir := t.TempDir()
	data := createTestParquetFile(t, dir, "people.parquet", testRows)
	q := writeFile(t, dir, "q.yaml", `
source: people
fields:
  - city
  - {aggregate: AVG, source: salary, as: avg_salary}
  - {aggregate: COUNT, source: "*", as: n}
where: {op: ">=", lhs: {identifier: age}, rhs: {reference: minAge}}
group: [city]
order: [{field: n, order: DESC}]
`)

	tests := []struct {
		name   string
		format string
		want   string
	}{
		{
			name:   "jsonl",
			format: "jsonl",
			want:   "{\"city\":\"Oslo\",\"avg_salary\":55000,\"n\":2}\n{\"city\":\"Rome\",\"avg_salary\":45000,\"n\":1}\n",
		},
		{
			name:   "csv",
			format: "csv",
			want:   "city,avg_salary,n\nOslo,55000,2\nRome,45000,1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := run(t, "query", "--query-file", q, "--data", "people="+data, "--param", "minAge=25", "--format", tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stdout)
		})
	}
}

func TestQuery_SourceIsPath(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "nums.jsonl", "{\"n\": 3}\n{\"n\": 1}\n{\"n\": 2}\n")
	q := writeFile(t, dir, "q.json", `{"source": "`+filepath.ToSlash(data)+`", "order": ["n"], "limit": 2}`)

	stdout, _, err := run(t, "query", "-q", q)
	require.NoError(t, err)
	assert.Equal(t, "{\"n\":1}\n{\"n\":2}\n", stdout)
}

func TestQuery_DebugLogging(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "nums.csv", "n\n1\n2\n")
	q := writeFile(t, dir, "q.yaml", "source: nums\n")

	stdout, stderr, err := run(t, "--log-level", "debug", "--log-format", "json", "query", "-q", q, "-d", data)
	require.NoError(t, err)
	assert.Equal(t, "{\"n\":1}\n{\"n\":2}\n", stdout)
	assert.Equal(t, 6, strings.Count(stderr, "applied stage"))
}

func TestQuery_Errors(t *testing.T) {
	dir := t.TempDir()
	data := createTestParquetFile(t, dir, "people.parquet", testRows)
	good := writeFile(t, dir, "good.yaml", "source: people\n")
	aggWhere := writeFile(t, dir, "agg.yaml", `
source: people
where: {op: ">", lhs: {aggregate: COUNT, source: "*"}, rhs: {literal: 1}}
`)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing query file flag", args: []string{"query"}, want: "query-file"},
		{name: "unreadable query file", args: []string{"query", "-q", filepath.Join(dir, "nope.yaml")}, want: "failed to read query file"},
		{name: "bad format", args: []string{"query", "-q", good, "-d", "people=" + data, "-f", "xml"}, want: "unknown output format"},
		{name: "bad binding", args: []string{"query", "-q", good, "-d", "people="}, want: "invalid data binding"},
		{name: "unsupported data file", args: []string{"query", "-q", good, "-d", "people=data.txt"}, want: "unsupported file type"},
		{name: "missing data file", args: []string{"query", "-q", good, "-d", "people=" + filepath.Join(dir, "missing.parquet")}, want: "failed to read"},
		{name: "unknown source", args: []string{"query", "-q", good}, want: "unknown source"},
		{name: "aggregate in where", args: []string{"query", "-q", aggWhere, "-d", "people=" + data}, want: "Did you mean HAVING?"},
		{name: "bad param", args: []string{"query", "-q", good, "-d", "people=" + data, "-p", "x"}, want: "invalid parameter"},
		{name: "bad locale", args: []string{"query", "-q", good, "-d", "people=" + data, "--locale", "!!"}, want: "invalid locale"},
		{name: "bad log level", args: []string{"--log-level", "loud", "query", "-q", good}, want: "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSchema(t *testing.T) {
	dir := t.TempDir()
	createTestParquetFile(t, dir, "a.parquet", testRows)
	createTestParquetFile(t, dir, "b.parquet", testRows[:1])

	stdout, stderr, err := run(t, "schema", "-f", "csv", filepath.Join(dir, "*.parquet"))
	require.NoError(t, err)
	assert.Contains(t, stderr, "2 files matched")

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "name,type,physical_type,logical_type,required,optional,repeated", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "id,INT64,INT64,"))
	assert.True(t, strings.HasPrefix(lines[2], "name,STRING,BYTE_ARRAY,"))
}

func TestSchema_Errors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := run(t, "schema")
	assert.ErrorContains(t, err, "exactly one")

	_, _, err = run(t, "schema", filepath.Join(dir, "missing.parquet"))
	assert.ErrorContains(t, err, "not found")

	_, _, err = run(t, "schema", filepath.Join(dir, "*.parquet"))
	assert.ErrorContains(t, err, "no files match")
}

func TestSplitBinding(t *testing.T) {
	tests := []struct {
		spec     string
		wantName string
		wantPath string
		wantErr  bool
	}{
		{spec: "people=data/p.parquet", wantName: "people", wantPath: "data/p.parquet"},
		{spec: "data/people.csv", wantName: "people", wantPath: "data/people.csv"},
		{spec: "logs=data/*.parquet", wantName: "logs", wantPath: "data/*.parquet"},
		{spec: "data/*.parquet", wantErr: true},
		{spec: "=x.csv", wantErr: true},
		{spec: "x=", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			name, path, err := splitBinding(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

func TestLoadDatasets(t *testing.T) {
	dir := t.TempDir()
	data := createTestParquetFile(t, dir, "people.parquet", testRows)

	a := &app{logger: zap.NewNop()}
	env, err := a.loadDatasets([]string{"people=" + data})
	require.NoError(t, err)
	require.Contains(t, env, "people")

	_, err = a.loadDatasets([]string{"people=" + filepath.Join(dir, "missing.csv")})
	assert.Error(t, err)
}
