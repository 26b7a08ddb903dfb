package presto

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ilge/presto-go/prestotype"
)

// Argument kinds sent by Presto and Trino coordinators.
const (
	ArgumentKindType               = "TYPE"
	ArgumentKindTypeSignature      = "TYPE_SIGNATURE"
	ArgumentKindNamedType          = "NAMED_TYPE"
	ArgumentKindNamedTypeSignature = "NAMED_TYPE_SIGNATURE"
	ArgumentKindLong               = "LONG"
	ArgumentKindLongLiteral        = "LONG_LITERAL"
	ArgumentKindVariable           = "VARIABLE"
)

// ClientTypeSignature is the structured form of a column type sent next to
// the type text.
type ClientTypeSignature struct {
	// RawType is the base type name (e.g., "varchar", "bigint", "array")
	RawType string `json:"rawType"`

	// TypeArguments and LiteralArguments are the pre-0.153 encoding of the
	// parameters. Newer servers send Arguments instead.
	TypeArguments    []ClientTypeSignature `json:"typeArguments,omitempty"`
	LiteralArguments []any                 `json:"literalArguments,omitempty"`

	Arguments []ClientTypeSignatureParameter `json:"arguments,omitempty"`
}

// ClientTypeSignatureParameter is one parameter of a ClientTypeSignature.
// Value is decoded according to Kind.
type ClientTypeSignatureParameter struct {
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// NamedTypeSignature is the value of a NAMED_TYPE argument (a row field).
type NamedTypeSignature struct {
	FieldName *RowFieldName `json:"fieldName,omitempty"`

	// TypeSignature is a ClientTypeSignature object on Trino and the type
	// text on Presto.
	TypeSignature json.RawMessage `json:"typeSignature"`
}

// RowFieldName names a row field.
type RowFieldName struct {
	Name      string `json:"name"`
	Delimited bool   `json:"delimited,omitempty"`
}

// Signature converts the structured form into a prestotype.Signature
// without going through the type text.
func (c *ClientTypeSignature) Signature() (*prestotype.Signature, error) {
	if c.RawType == "" {
		return nil, fmt.Errorf("%w: empty raw type", prestotype.ErrMalformedTypeSignature)
	}
	sig := &prestotype.Signature{Base: c.RawType}

	if len(c.Arguments) == 0 {
		for i := range c.TypeArguments {
			param, err := c.TypeArguments[i].Signature()
			if err != nil {
				return nil, err
			}
			sig.Parameters = append(sig.Parameters, param)
		}
		for _, lit := range c.LiteralArguments {
			sig.LiteralParameters = append(sig.LiteralParameters, literalArgument(lit))
		}
		return fillRowFieldNames(sig), nil
	}

	for i, arg := range c.Arguments {
		switch arg.Kind {
		case ArgumentKindType, ArgumentKindTypeSignature:
			param, err := typeSignatureValue(arg.Value)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			sig.Parameters = append(sig.Parameters, param)
		case ArgumentKindNamedType, ArgumentKindNamedTypeSignature:
			var named NamedTypeSignature
			if err := json.Unmarshal(arg.Value, &named); err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			param, err := typeSignatureValue(named.TypeSignature)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			sig.Parameters = append(sig.Parameters, param)
			name := fmt.Sprintf("field%d", len(sig.Parameters)-1)
			if named.FieldName != nil && named.FieldName.Name != "" {
				name = named.FieldName.Name
			}
			sig.LiteralParameters = append(sig.LiteralParameters, name)
		case ArgumentKindLong, ArgumentKindLongLiteral:
			var n int64
			if err := json.Unmarshal(arg.Value, &n); err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			sig.LiteralParameters = append(sig.LiteralParameters, n)
		case ArgumentKindVariable:
			var s string
			if err := json.Unmarshal(arg.Value, &s); err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			sig.LiteralParameters = append(sig.LiteralParameters, s)
		default:
			return nil, fmt.Errorf("%w: unknown argument kind %q", prestotype.ErrMalformedTypeSignature, arg.Kind)
		}
	}
	return fillRowFieldNames(sig), nil
}

// typeSignatureValue decodes a nested type that is either an object or text.
func typeSignatureValue(raw json.RawMessage) (*prestotype.Signature, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, err
		}
		return prestotype.Parse(text)
	}
	var nested ClientTypeSignature
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, err
	}
	return nested.Signature()
}

func literalArgument(v any) any {
	switch lit := v.(type) {
	case float64:
		return int64(lit)
	case string:
		return lit
	default:
		return fmt.Sprint(lit)
	}
}

// fillRowFieldNames names anonymous row fields the way the parser does.
func fillRowFieldNames(sig *prestotype.Signature) *prestotype.Signature {
	if sig.Kind() != prestotype.KindRow {
		return sig
	}
	for i := len(sig.LiteralParameters); i < len(sig.Parameters); i++ {
		sig.LiteralParameters = append(sig.LiteralParameters, fmt.Sprintf("field%d", i))
	}
	return sig
}
