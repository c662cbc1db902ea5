package astfile

import (
	"bytes"
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/prequel/query"
)

func TestDecodeBindings(t *testing.T) {
	body := `{"people": [{"name": "ann", "age": 41, "tags": [1, 2.5]}], "minAge": 40, "dir": "DESC", "nothing": null, "empty": []}`
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()
	var data map[string]interface{}
	require.NoError(t, dec.Decode(&data))

	env, err := DecodeBindings(data)
	require.NoError(t, err)

	assert.Equal(t, query.Rows([]query.Row{
		{"name": "ann", "age": int64(41), "tags": []interface{}{int64(1), 2.5}},
	}), env["people"])
	assert.Equal(t, query.Value(int64(40)), env["minAge"])
	assert.Equal(t, query.Value("DESC"), env["dir"])
	assert.Equal(t, query.Value(nil), env["nothing"])
	assert.Equal(t, query.Value([]interface{}{}), env["empty"])
}

func TestDecodeBindings_Object(t *testing.T) {
	_, err := DecodeBindings(map[string]interface{}{"cfg": map[string]interface{}{"a": 1}})
	require.Error(t, err)
	assert.ErrorIs(t, err, query.ErrMalformedExpression)
}

func TestDecodeBindings_Executes(t *testing.T) {
	env, err := DecodeBindings(map[string]interface{}{
		"nums":  []interface{}{map[string]interface{}{"n": 1}, map[string]interface{}{"n": 5}},
		"limit": 3,
	})
	require.NoError(t, err)

	q := &query.ParsedQuery{
		Source: "nums",
		Fields: []query.FieldSpec{{Name: "n"}},
		Where:  &query.Operator{Op: ">", LHS: &query.Identifier{Name: "n"}, RHS: &query.Identifier{Name: "limit"}},
	}
	rows, err := query.Execute(context.Background(), q, env)
	require.NoError(t, err)
	assert.Equal(t, []query.Row{{"n": int64(5)}}, rows)
}

func TestParseParam(t *testing.T) {
	tests := []struct {
		in   string
		want interface{}
	}{
		{in: "5", want: int64(5)},
		{in: "2.5", want: 2.5},
		{in: "true", want: true},
		{in: "DESC", want: "DESC"},
		{in: "hello world", want: "hello world"},
		{in: "null", want: nil},
		{in: "", want: nil},
		{in: "[1, a]", want: []interface{}{int64(1), "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseParam(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseParam("[unclosed")
	assert.Error(t, err)
}
