package prestotype

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRaw(t *testing.T) {
	v, err := DecodeRaw([]byte(`[1, "two", true, null, {"b": [2.5], "a": {}}]`))
	require.NoError(t, err)
	assert.Equal(t, []any{
		json.Number("1"),
		"two",
		true,
		nil,
		RawObject{
			{Key: "b", Value: []any{json.Number("2.5")}},
			{Key: "a", Value: RawObject{}},
		},
	}, v)
}

func TestDecodeRaw_Errors(t *testing.T) {
	for _, input := range []string{``, `   `, `[1,`, `{"a" 1}`, `[1] [2]`, `]`} {
		t.Run(input, func(t *testing.T) {
			_, err := DecodeRaw([]byte(input))
			assert.Error(t, err)
		})
	}
}

func nestedArrays(n int) string {
	return strings.Repeat("[", n) + strings.Repeat("]", n)
}

func TestDecodeRaw_NestingLimit(t *testing.T) {
	_, err := DecodeRaw([]byte(nestedArrays(DefaultMaxDepth + 1)))
	require.NoError(t, err)

	_, err = DecodeRaw([]byte(nestedArrays(DefaultMaxDepth + 2)))
	assert.ErrorIs(t, err, ErrNestingTooDeep)

	_, err = DecodeRaw([]byte(strings.Repeat(`{"a":`, DefaultMaxDepth+2) + "1" + strings.Repeat("}", DefaultMaxDepth+2)))
	assert.ErrorIs(t, err, ErrNestingTooDeep)

	// fails fast instead of exhausting the stack
	_, err = DecodeRaw([]byte(nestedArrays(1_000_000)))
	assert.ErrorIs(t, err, ErrNestingTooDeep)
}

func TestNormalizer_DecodeRaw(t *testing.T) {
	n := NewNormalizer(WithMaxDepth(2))

	v, err := n.DecodeRaw([]byte(nestedArrays(3)))
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{[]any{}}}, v)

	_, err = n.DecodeRaw([]byte(nestedArrays(4)))
	assert.ErrorIs(t, err, ErrNestingTooDeep)

	rows, err := n.DecodeRows([]json.RawMessage{json.RawMessage("[" + nestedArrays(3) + "]")})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = n.DecodeRows([]json.RawMessage{json.RawMessage("[" + nestedArrays(4) + "]")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNestingTooDeep)
	assert.Contains(t, err.Error(), "row 0")
}

func TestDecodeRows(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		rows, err := DecodeRows(nil)
		require.NoError(t, err)
		assert.Nil(t, rows)
	})

	t.Run("empty", func(t *testing.T) {
		rows, err := DecodeRows([]json.RawMessage{})
		require.NoError(t, err)
		assert.NotNil(t, rows)
		assert.Empty(t, rows)
	})

	t.Run("rows", func(t *testing.T) {
		rows, err := DecodeRows([]json.RawMessage{
			json.RawMessage(`[1, "a"]`),
			json.RawMessage(`[null, null]`),
		})
		require.NoError(t, err)
		assert.Equal(t, [][]any{
			{json.Number("1"), "a"},
			{nil, nil},
		}, rows)
	})

	t.Run("row is not an array", func(t *testing.T) {
		_, err := DecodeRows([]json.RawMessage{json.RawMessage(`{"a": 1}`)})
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := DecodeRows([]json.RawMessage{json.RawMessage(`[1`)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "row 0")
	})
}

func TestRawObject_MarshalJSON(t *testing.T) {
	v, err := DecodeRaw([]byte(`{"z": 1, "a": [true, {"k": null}]}`))
	require.NoError(t, err)
	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":[true,{"k":null}]}`, string(b))
}
