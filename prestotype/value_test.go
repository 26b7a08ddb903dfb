package prestotype

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowValue(t *testing.T) {
	r := NewRowValue(Field{"z", int64(1)}, Field{"a", "x"}, Field{"m", nil})

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, "a", r.Field(1).Name)

	v, ok := r.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	_, ok = r.Get("missing")
	assert.False(t, ok)

	fields := r.Fields()
	fields[0].Name = "changed"
	assert.Equal(t, "z", r.Field(0).Name, "Fields returns a copy")

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":"x","m":null}`, string(b))
}

func TestMapValue(t *testing.T) {
	m := NewMapValue(
		MapEntry{int64(2), "two"},
		MapEntry{[]byte{1}, "blob"},
		MapEntry{"k", NewRowValue(Field{"x", 1.5})},
	)

	assert.Equal(t, 3, m.Len())

	v, ok := m.Get(int64(2))
	assert.True(t, ok)
	assert.Equal(t, "two", v)

	v, ok = m.Get([]byte{1})
	assert.True(t, ok)
	assert.Equal(t, "blob", v)

	_, ok = m.Get("2")
	assert.False(t, ok, "keys compare by canonical type")

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"2":"two","AQ==":"blob","k":{"x":1.5}}`, string(b))
}

func TestMapValue_NestedInArray(t *testing.T) {
	v := []any{NewMapValue(MapEntry{"b", true}, MapEntry{"a", false}), nil}
	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `[{"b":true,"a":false},null]`, string(b))
}

func TestMapKeyString(t *testing.T) {
	tests := []struct {
		key  any
		want string
	}{
		{nil, "null"},
		{"s", "s"},
		{true, "true"},
		{int64(-3), "-3"},
		{2.5, "2.5"},
		{[]byte("hi"), "aGk="},
		{[]any{int64(1), "a"}, `[1,"a"]`},
	}
	for _, tt := range tests {
		got, err := mapKeyString(tt.key)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
