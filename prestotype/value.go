package prestotype

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
)

// Row is one normalized result row, positionally aligned with the columns.
type Row []any

// Field is a named value of a row-typed value.
type Field struct {
	Name  string
	Value any
}

// RowValue is the canonical form of a row-typed value. Fields keep their
// declared order.
type RowValue struct {
	fields []Field
}

// NewRowValue builds a RowValue from fields in order.
func NewRowValue(fields ...Field) *RowValue {
	out := make([]Field, len(fields))
	copy(out, fields)
	return &RowValue{fields: out}
}

// Len returns the number of fields.
func (r *RowValue) Len() int {
	return len(r.fields)
}

// Fields returns a copy of the fields in declared order.
func (r *RowValue) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Field returns the i-th field.
func (r *RowValue) Field(i int) Field {
	return r.fields[i]
}

// Get returns the value of the first field called name.
func (r *RowValue) Get(name string) (any, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// MarshalJSON encodes the row as a JSON object in declared field order.
func (r *RowValue) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MapEntry is one key/value pair of a map-typed value.
type MapEntry struct {
	Key   any
	Value any
}

// MapValue is the canonical form of a map-typed value. Keys may be any
// canonical value, including ones Go maps cannot hold such as []byte, so
// entries are kept as an ordered list.
type MapValue struct {
	entries []MapEntry
}

// NewMapValue builds a MapValue from entries in order.
func NewMapValue(entries ...MapEntry) *MapValue {
	out := make([]MapEntry, len(entries))
	copy(out, entries)
	return &MapValue{entries: out}
}

// Len returns the number of entries.
func (m *MapValue) Len() int {
	return len(m.entries)
}

// Entries returns a copy of the entries in order.
func (m *MapValue) Entries() []MapEntry {
	out := make([]MapEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Get looks up the value stored under key.
func (m *MapValue) Get(key any) (any, bool) {
	for _, e := range m.entries {
		if keysEqual(e.Key, key) {
			return e.Value, true
		}
	}
	return nil, false
}

func keysEqual(a, b any) bool {
	switch x := a.(type) {
	case nil, bool, int64, float64, string:
		return a == b
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	default:
		return reflect.DeepEqual(a, b)
	}
}

// MarshalJSON encodes the map as a JSON object in entry order. Keys are
// rendered as strings the way the wire format sends them.
func (m *MapValue) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		ks, err := mapKeyString(e.Key)
		if err != nil {
			return nil, err
		}
		key, _ := json.Marshal(ks)
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("map entry %q: %w", ks, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func mapKeyString(key any) (string, error) {
	switch k := key.(type) {
	case nil:
		return "null", nil
	case string:
		return k, nil
	case bool:
		return strconv.FormatBool(k), nil
	case int64:
		return strconv.FormatInt(k, 10), nil
	case float64:
		return strconv.FormatFloat(k, 'g', -1, 64), nil
	default:
		// []byte encodes as base64, containers as their JSON text.
		b, err := json.Marshal(k)
		if err != nil {
			return "", err
		}
		var s string
		if json.Unmarshal(b, &s) == nil {
			return s, nil
		}
		return string(b), nil
	}
}
