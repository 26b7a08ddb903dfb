package presto

import (
	"fmt"

	"github.com/ilge/presto-go/prestotype"
)

// Column represents metadata about a column in a query result.
type Column struct {
	// Name is the column name
	Name string `json:"name"`

	// Type is the Presto/Trino data type as a string
	Type string `json:"type"`

	// TypeSignature contains detailed type information
	TypeSignature *ClientTypeSignature `json:"typeSignature,omitempty"`
}

// typeText returns the type text to normalize against. Servers that omit
// the text still send the structured signature.
func (c Column) typeText() (string, error) {
	if c.Type != "" || c.TypeSignature == nil {
		return c.Type, nil
	}
	sig, err := c.TypeSignature.Signature()
	if err != nil {
		return "", err
	}
	return sig.String(), nil
}

func normalizerColumns(columns []Column) ([]prestotype.Column, error) {
	out := make([]prestotype.Column, len(columns))
	for i, col := range columns {
		text, err := col.typeText()
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name, err)
		}
		out[i] = prestotype.Column{Name: col.Name, Type: text}
	}
	return out, nil
}
