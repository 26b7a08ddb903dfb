package presto

import (
	"encoding/json"
	"testing"

	"github.com/ilge/presto-go/prestotype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeColumn(t *testing.T, body string) Column {
	t.Helper()
	var col Column
	require.NoError(t, json.Unmarshal([]byte(body), &col))
	return col
}

func TestClientTypeSignature_Signature(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "scalar",
			body: `{"rawType": "bigint", "arguments": []}`,
			want: "bigint",
		},
		{
			name: "varchar length",
			body: `{"rawType": "varchar", "arguments": [{"kind": "LONG", "value": 255}]}`,
			want: "varchar(255)",
		},
		{
			name: "legacy literal arguments",
			body: `{"rawType": "decimal", "typeArguments": [], "literalArguments": [10, 2]}`,
			want: "decimal(10, 2)",
		},
		{
			name: "legacy type arguments",
			body: `{"rawType": "map", "typeArguments": [{"rawType": "varchar"}, {"rawType": "double"}]}`,
			want: "map(varchar, double)",
		},
		{
			name: "nested array",
			body: `{"rawType": "array", "arguments": [
				{"kind": "TYPE", "value": {"rawType": "array", "arguments": [
					{"kind": "TYPE", "value": {"rawType": "integer", "arguments": []}}
				]}}
			]}`,
			want: "array(array(integer))",
		},
		{
			name: "trino named row fields",
			body: `{"rawType": "row", "arguments": [
				{"kind": "NAMED_TYPE", "value": {"fieldName": {"name": "x"}, "typeSignature": {"rawType": "bigint"}}},
				{"kind": "NAMED_TYPE", "value": {"typeSignature": {"rawType": "varchar"}}}
			]}`,
			want: "row(x bigint, field1 varchar)",
		},
		{
			name: "presto named row fields",
			body: `{"rawType": "row", "arguments": [
				{"kind": "NAMED_TYPE_SIGNATURE", "value": {"fieldName": {"name": "first name", "delimited": true}, "typeSignature": "varchar"}},
				{"kind": "NAMED_TYPE_SIGNATURE", "value": {"fieldName": {"name": "tags"}, "typeSignature": "array(varchar)"}}
			]}`,
			want: `row("first name" varchar, tags array(varchar))`,
		},
		{
			name: "variable",
			body: `{"rawType": "varchar", "arguments": [{"kind": "VARIABLE", "value": "x"}]}`,
			want: "varchar('x')",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cts ClientTypeSignature
			require.NoError(t, json.Unmarshal([]byte(tt.body), &cts))

			sig, err := cts.Signature()
			require.NoError(t, err)

			want, err := prestotype.Parse(tt.want)
			require.NoError(t, err)
			assert.True(t, want.Equal(sig), "got %s, want %s", sig, want)
		})
	}
}

func TestClientTypeSignature_Errors(t *testing.T) {
	bodies := map[string]string{
		"empty raw type": `{"rawType": ""}`,
		"unknown kind":   `{"rawType": "foo", "arguments": [{"kind": "WHAT", "value": 1}]}`,
		"bad long":       `{"rawType": "varchar", "arguments": [{"kind": "LONG", "value": "x"}]}`,
		"bad nested":     `{"rawType": "array", "arguments": [{"kind": "TYPE", "value": {"rawType": ""}}]}`,
		"bad text":       `{"rawType": "row", "arguments": [{"kind": "NAMED_TYPE_SIGNATURE", "value": {"typeSignature": "array("}}]}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			var cts ClientTypeSignature
			require.NoError(t, json.Unmarshal([]byte(body), &cts))
			_, err := cts.Signature()
			assert.Error(t, err)
		})
	}

	var cts ClientTypeSignature
	require.NoError(t, json.Unmarshal([]byte(`{"rawType": "x", "arguments": [{"kind": "WHAT"}]}`), &cts))
	_, err := cts.Signature()
	assert.ErrorIs(t, err, prestotype.ErrMalformedTypeSignature)
}

func TestColumn_TypeText(t *testing.T) {
	col := decodeColumn(t, `{"name": "a", "type": "bigint", "typeSignature": {"rawType": "integer"}}`)
	text, err := col.typeText()
	require.NoError(t, err)
	assert.Equal(t, "bigint", text, "type text wins over the structured form")

	col = decodeColumn(t, `{"name": "b", "typeSignature": {"rawType": "map", "arguments": [
		{"kind": "TYPE", "value": {"rawType": "varchar"}},
		{"kind": "TYPE", "value": {"rawType": "bigint"}}
	]}}`)
	text, err = col.typeText()
	require.NoError(t, err)
	assert.Equal(t, "map(varchar, bigint)", text)

	col = decodeColumn(t, `{"name": "c"}`)
	text, err = col.typeText()
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestNormalizerColumns(t *testing.T) {
	cols, err := normalizerColumns([]Column{
		{Name: "a", Type: "bigint"},
		{Name: "b", TypeSignature: &ClientTypeSignature{RawType: "double"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []prestotype.Column{{Name: "a", Type: "bigint"}, {Name: "b", Type: "double"}}, cols)

	_, err = normalizerColumns([]Column{{Name: "bad", TypeSignature: &ClientTypeSignature{}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "bad"`)
}
