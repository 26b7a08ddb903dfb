package prestotype

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// RawMember is one key/value pair of a decoded JSON object.
type RawMember struct {
	Key   string
	Value any
}

// RawObject is a JSON object decoded with its member order intact.
// encoding/json decodes objects into map[string]any, which loses that order.
type RawObject []RawMember

// DecodeRaw decodes one JSON value into the loosely typed form Normalize
// accepts: nil, bool, json.Number, string, []any or RawObject. Containers
// nested deeper than DefaultMaxDepth fail with ErrNestingTooDeep.
func DecodeRaw(data []byte) (any, error) {
	return decodeRaw(data, DefaultMaxDepth)
}

// DecodeRows decodes a batch of JSON rows, each of which must be an array.
// A nil batch stays nil so callers can tell absent data from zero rows.
func DecodeRows(data []json.RawMessage) ([][]any, error) {
	return decodeRows(data, DefaultMaxDepth)
}

// DecodeRaw is the package DecodeRaw bounded by the normalizer's depth limit.
func (n *Normalizer) DecodeRaw(data []byte) (any, error) {
	return decodeRaw(data, n.maxDepth)
}

// DecodeRows is the package DecodeRows bounded by the normalizer's depth limit.
func (n *Normalizer) DecodeRows(data []json.RawMessage) ([][]any, error) {
	return decodeRows(data, n.maxDepth)
}

func decodeRaw(data []byte, maxDepth int) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec, 0, maxDepth)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid trailing data after JSON value")
	}
	return v, nil
}

// decodeRows allows one extra level for the row array itself.
func decodeRows(data []json.RawMessage, maxDepth int) ([][]any, error) {
	if data == nil {
		return nil, nil
	}
	rows := make([][]any, len(data))
	for i, raw := range data {
		v, err := decodeRaw(raw, maxDepth+1)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		row, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("row %d: %w: expected JSON array, got %T", i, ErrTypeMismatch, v)
		}
		rows[i] = row
	}
	return rows, nil
}

func decodeValue(dec *json.Decoder, depth, maxDepth int) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		if depth > maxDepth {
			return nil, fmt.Errorf("%w: JSON value exceeds %d levels", ErrNestingTooDeep, maxDepth)
		}
		switch t {
		case '[':
			arr := []any{}
			for dec.More() {
				v, err := decodeValue(dec, depth+1, maxDepth)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		case '{':
			obj := RawObject{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("invalid object key %v", keyTok)
				}
				v, err := decodeValue(dec, depth+1, maxDepth)
				if err != nil {
					return nil, err
				}
				obj = append(obj, RawMember{Key: key, Value: v})
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	default:
		// nil, bool, json.Number or string
		return t, nil
	}
}

// MarshalJSON encodes the object with its members in order.
func (o RawObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(m.Value)
		if err != nil {
			return nil, fmt.Errorf("member %q: %w", m.Key, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
