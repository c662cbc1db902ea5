package output

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/prequel/query"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		want    interface{}
		wantErr bool
	}{
		{name: "", want: &JSONFormatter{}},
		{name: "jsonl", want: &JSONFormatter{}},
		{name: "JSON", want: &JSONArrayFormatter{}},
		{name: "csv", want: &CSVFormatter{}},
		{name: "table", want: &TableFormatter{}},
		{name: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.name, &bytes.Buffer{})
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unknown output format")
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, f)
		})
	}
}

func TestJSONFormatter_Format(t *testing.T) {
	rows := []map[string]interface{}{
		{"name": "alice", "age": int64(30)},
		{"name": "bob", "age": query.Missing},
	}

	t.Run("sorted keys", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewJSONFormatter(&buf).Format(rows))
		assert.Equal(t, "{\"age\":30,\"name\":\"alice\"}\n{\"age\":null,\"name\":\"bob\"}\n", buf.String())
	})

	t.Run("column order", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewJSONFormatter(&buf)
		f.SetColumns([]string{"name", "age"})
		require.NoError(t, f.Format(rows))
		assert.Equal(t, "{\"name\":\"alice\",\"age\":30}\n{\"name\":\"bob\",\"age\":null}\n", buf.String())
	})

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewJSONFormatter(&buf).Format(nil))
		assert.Empty(t, buf.String())
	})
}

func TestJSONArrayFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONArrayFormatter(&buf)
	f.SetColumns([]string{"n"})
	require.NoError(t, f.Format([]map[string]interface{}{{"n": int64(1)}, {"n": int64(2)}}))
	assert.Equal(t, "[\n  {\n    \"n\": 1\n  },\n  {\n    \"n\": 2\n  }\n]\n", buf.String())

	buf.Reset()
	require.NoError(t, NewJSONArrayFormatter(&buf).Format(nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestCSVFormatter_Format(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		rows    []map[string]interface{}
		want    [][]string
	}{
		{
			name: "empty rows",
			rows: []map[string]interface{}{},
		},
		{
			name:    "empty rows with columns",
			columns: []string{"a", "b"},
			want:    [][]string{{"a", "b"}},
		},
		{
			name: "heterogeneous rows",
			rows: []map[string]interface{}{
				{"id": int64(1), "name": "alice"},
				{"id": int64(2), "city": "Oslo"},
			},
			want: [][]string{
				{"city", "id", "name"},
				{"", "1", "alice"},
				{"Oslo", "2", ""},
			},
		},
		{
			name:    "configured order",
			columns: []string{"name", "id"},
			rows: []map[string]interface{}{
				{"id": int64(1), "name": "alice", "ignored": true},
			},
			want: [][]string{{"name", "id"}, {"alice", "1"}},
		},
		{
			name: "value rendering",
			rows: []map[string]interface{}{
				{"a": nil, "b": query.Missing, "c": 1.5, "d": true, "e": []interface{}{int64(1), "x"}},
			},
			want: [][]string{
				{"a", "b", "c", "d", "e"},
				{"", "", "1.5", "true", `[1,"x"]`},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			f := NewCSVFormatter(&buf)
			f.SetColumns(tt.columns)
			require.NoError(t, f.Format(tt.rows))

			if tt.want == nil {
				assert.Empty(t, buf.String())
				return
			}
			records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
			require.NoError(t, err)
			assert.Equal(t, tt.want, records)
		})
	}
}

func TestFormatValue_FormulaGuard(t *testing.T) {
	tests := map[string]string{
		"=SUM(A1)":  "'=SUM(A1)",
		"+1":        "'+1",
		"-1":        "'-1",
		"@cmd":      "'@cmd",
		"|pipe":     "'|pipe",
		"='quoted'": "'=''quoted''",
		"plain":     "plain",
		"":          "",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatValue(in), in)
	}
}

func TestTableFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	f := NewTableFormatter(&buf)
	f.SetColumns([]string{"name", "n"})
	require.NoError(t, f.Format([]map[string]interface{}{
		{"name": "=alice", "n": int64(3)},
		{"name": nil, "n": query.Missing},
	}))

	out := buf.String()
	assert.Contains(t, out, "name")
	assert.Contains(t, out, "=alice")
	assert.NotContains(t, out, "'=alice")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "3")
}

func TestSetOutput(t *testing.T) {
	var first, second bytes.Buffer
	f, err := New(FormatJSONL, &first)
	require.NoError(t, err)
	f.SetOutput(&second)
	require.NoError(t, f.Format([]map[string]interface{}{{"a": int64(1)}}))
	assert.Empty(t, first.String())
	assert.Equal(t, "{\"a\":1}\n", second.String())
}
