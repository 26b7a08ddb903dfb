package presto

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/ilge/presto-go/prestotype"
)

// The driver hands ARRAY, MAP and ROW columns to Scan as JSON text. The
// types below decode that text into Go values and encode it back when used
// as query parameters.

// jsonSource returns the JSON bytes of a driver value, or nil for NULL.
func jsonSource(src any, into string) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("presto: cannot scan %T into %s", src, into)
	}
}

func jsonValue(valid bool, v any) (driver.Value, error) {
	if !valid {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// NullSlice scans a nullable ARRAY column.
//
//	var names NullSlice[string]
//	err := row.Scan(&names)
type NullSlice[T any] struct {
	Slice []T
	Valid bool
}

var _ sql.Scanner = (*NullSlice[any])(nil)
var _ driver.Valuer = (*NullSlice[any])(nil)

func (s *NullSlice[T]) Scan(src any) error {
	data, err := jsonSource(src, "NullSlice")
	if err != nil || data == nil {
		s.Slice, s.Valid = nil, false
		return err
	}
	if err := json.Unmarshal(data, &s.Slice); err != nil {
		return fmt.Errorf("presto: cannot unmarshal array: %w", err)
	}
	s.Valid = true
	return nil
}

func (s NullSlice[T]) Value() (driver.Value, error) {
	return jsonValue(s.Valid, s.Slice)
}

// NullMap scans a nullable MAP column into a Go map. Entry order is lost;
// use NullOrderedMap to keep it.
//
//	var props NullMap[string, int]
//	err := row.Scan(&props)
type NullMap[K comparable, V any] struct {
	Map   map[K]V
	Valid bool
}

var _ sql.Scanner = (*NullMap[string, any])(nil)
var _ driver.Valuer = (*NullMap[string, any])(nil)

func (m *NullMap[K, V]) Scan(src any) error {
	data, err := jsonSource(src, "NullMap")
	if err != nil || data == nil {
		m.Map, m.Valid = nil, false
		return err
	}
	if err := json.Unmarshal(data, &m.Map); err != nil {
		return fmt.Errorf("presto: cannot unmarshal map: %w", err)
	}
	m.Valid = true
	return nil
}

func (m NullMap[K, V]) Value() (driver.Value, error) {
	return jsonValue(m.Valid, m.Map)
}

// NullOrderedMap scans a nullable MAP column keeping the entries in the
// order the server sent them. Numbers are left as json.Number.
type NullOrderedMap struct {
	Entries prestotype.RawObject
	Valid   bool
}

var _ sql.Scanner = (*NullOrderedMap)(nil)
var _ driver.Valuer = (*NullOrderedMap)(nil)

func (m *NullOrderedMap) Scan(src any) error {
	data, err := jsonSource(src, "NullOrderedMap")
	if err != nil || data == nil {
		m.Entries, m.Valid = nil, false
		return err
	}
	v, err := prestotype.DecodeRaw(data)
	if err != nil {
		return fmt.Errorf("presto: cannot unmarshal map: %w", err)
	}
	obj, ok := v.(prestotype.RawObject)
	if !ok {
		return fmt.Errorf("presto: cannot unmarshal map: got %T", v)
	}
	m.Entries, m.Valid = obj, true
	return nil
}

func (m NullOrderedMap) Value() (driver.Value, error) {
	if m.Valid && m.Entries == nil {
		return "{}", nil
	}
	return jsonValue(m.Valid, m.Entries)
}

// NullRow scans a nullable ROW column into a struct or map. Fields are
// matched by name.
//
//	type Address struct {
//	    Street string `json:"street"`
//	    City   string `json:"city"`
//	}
//	var addr NullRow[Address]
//	err := row.Scan(&addr)
type NullRow[T any] struct {
	Row   T
	Valid bool
}

var _ sql.Scanner = (*NullRow[any])(nil)
var _ driver.Valuer = (*NullRow[any])(nil)

func (r *NullRow[T]) Scan(src any) error {
	var zero T
	data, err := jsonSource(src, "NullRow")
	if err != nil || data == nil {
		r.Row, r.Valid = zero, false
		return err
	}
	r.Row = zero
	if err := json.Unmarshal(data, &r.Row); err != nil {
		return fmt.Errorf("presto: cannot unmarshal row: %w", err)
	}
	r.Valid = true
	return nil
}

func (r NullRow[T]) Value() (driver.Value, error) {
	return jsonValue(r.Valid, r.Row)
}
