package reader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeParquet writes rows to a new parquet file under dir.
func writeParquet[T any](t *testing.T, dir, name string, rows []T) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)

	writer := parquet.NewGenericWriter[T](f)
	_, err = writer.Write(rows)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	require.NoError(t, f.Close())
	return path
}

func schemaByName(infos []SchemaInfo) map[string]SchemaInfo {
	m := make(map[string]SchemaInfo, len(infos))
	for _, info := range infos {
		m[info.Name] = info
	}
	return m
}

func TestExtractSchemaInfo_TypeMapping(t *testing.T) {
	type Row struct {
		IntField    int32   `parquet:"int_field"`
		LongField   int64   `parquet:"long_field"`
		FloatField  float32 `parquet:"float_field"`
		DoubleField float64 `parquet:"double_field"`
		BoolField   bool    `parquet:"bool_field"`
		StringField string  `parquet:"string_field"`
		Optional    *string `parquet:"optional,optional"`
	}
	opt := "x"
	path := writeParquet(t, t.TempDir(), "types.parquet", []Row{{IntField: 42, StringField: "test", Optional: &opt}})

	infos, err := ExtractSchemaInfo(path)
	require.NoError(t, err)
	require.Len(t, infos, 7)
	fields := schemaByName(infos)

	tests := []struct {
		column   string
		typ      string
		physical string
	}{
		{"int_field", "INT32", "INT32"},
		{"long_field", "INT64", "INT64"},
		{"float_field", "FLOAT32", "FLOAT"},
		{"double_field", "FLOAT64", "DOUBLE"},
		{"bool_field", "BOOLEAN", "BOOLEAN"},
		{"string_field", "STRING", "BYTE_ARRAY"},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			info, ok := fields[tt.column]
			require.True(t, ok)
			assert.Equal(t, tt.typ, info.Type)
			assert.Equal(t, tt.physical, info.PhysicalType)
			assert.True(t, info.Required)
		})
	}

	assert.True(t, fields["optional"].Optional)
	assert.False(t, fields["optional"].Required)
}

func TestExtractSchemaInfo_NestedAndRepeated(t *testing.T) {
	type Address struct {
		Street string `parquet:"street"`
		City   string `parquet:"city"`
	}
	type Row struct {
		ID      int64     `parquet:"id"`
		Address Address   `parquet:"address"`
		Tags    []string  `parquet:"tags"`
		Past    []Address `parquet:"past"`
	}
	path := writeParquet(t, t.TempDir(), "nested.parquet", []Row{{ID: 1, Tags: []string{"a"}}})

	infos, err := ExtractSchemaInfo(path)
	require.NoError(t, err)
	fields := schemaByName(infos)

	assert.Contains(t, fields, "address.street")
	assert.Contains(t, fields, "address.city")
	assert.NotContains(t, fields, "address", "groups only list their leaves")
	assert.False(t, fields["address.city"].Repeated)
	assert.True(t, fields["tags"].Repeated)
	assert.True(t, fields["past.city"].Repeated, "repetition is inherited from the parent")
	assert.Equal(t, "id", Columns(infos)[0])
}

func TestExtractSchemaInfo_Errors(t *testing.T) {
	_, err := ExtractSchemaInfo(filepath.Join(t.TempDir(), "nonexistent.parquet"))
	assert.Error(t, err)

	invalid := filepath.Join(t.TempDir(), "invalid.parquet")
	require.NoError(t, os.WriteFile(invalid, []byte("not a parquet file"), 0o644))
	_, err = ExtractSchemaInfo(invalid)
	assert.Error(t, err)
}
