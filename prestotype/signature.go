package prestotype

import (
	"fmt"
	"strconv"
	"strings"
)

// Signature is a parsed type signature such as
// "map(varchar, array(row(a bigint, b varchar)))".
//
// LiteralParameters holds non-type parameters: int64 for sizes like the
// 255 in varchar(255), string for row field names and quoted literals. For
// row types the i-th literal parameter names the i-th type parameter.
//
// A Signature returned by Parse or a SignatureCache may be shared between
// goroutines and batches and must not be modified. Use Clone to get a copy
// that can be.
type Signature struct {
	Base              string
	Parameters        []*Signature
	LiteralParameters []any
}

// Kind returns the kind named by the base type.
func (s *Signature) Kind() Kind {
	if s == nil {
		return KindUnknown
	}
	return ParseKind(s.Base)
}

// Parameter returns the i-th type parameter, or nil if there is none.
func (s *Signature) Parameter(i int) *Signature {
	if i < 0 || i >= len(s.Parameters) {
		return nil
	}
	return s.Parameters[i]
}

// FieldNames returns the declared field names of a row type.
func (s *Signature) FieldNames() []string {
	names := make([]string, 0, len(s.LiteralParameters))
	for _, lit := range s.LiteralParameters {
		names = append(names, fmt.Sprint(lit))
	}
	return names
}

// String renders the signature in canonical parenthesized form. Parsing the
// result yields a signature Equal to s.
func (s *Signature) String() string {
	var b strings.Builder
	s.write(&b)
	return b.String()
}

func (s *Signature) write(b *strings.Builder) {
	b.WriteString(s.Base)
	if len(s.Parameters) == 0 && len(s.LiteralParameters) == 0 {
		return
	}

	b.WriteByte('(')
	if s.Kind() == KindRow && len(s.LiteralParameters) == len(s.Parameters) {
		for i, p := range s.Parameters {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(quoteFieldName(fmt.Sprint(s.LiteralParameters[i])))
			b.WriteByte(' ')
			p.write(b)
		}
		b.WriteByte(')')
		return
	}

	n := 0
	for _, p := range s.Parameters {
		if n > 0 {
			b.WriteString(", ")
		}
		p.write(b)
		n++
	}
	for _, lit := range s.LiteralParameters {
		if n > 0 {
			b.WriteString(", ")
		}
		switch v := lit.(type) {
		case int64:
			b.WriteString(strconv.FormatInt(v, 10))
		default:
			b.WriteString(quoteLiteral(fmt.Sprint(v)))
		}
		n++
	}
	b.WriteByte(')')
}

// Equal reports whether two signatures have the same structure.
func (s *Signature) Equal(other *Signature) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.Base != other.Base ||
		len(s.Parameters) != len(other.Parameters) ||
		len(s.LiteralParameters) != len(other.LiteralParameters) {
		return false
	}
	for i := range s.Parameters {
		if !s.Parameters[i].Equal(other.Parameters[i]) {
			return false
		}
	}
	for i := range s.LiteralParameters {
		if s.LiteralParameters[i] != other.LiteralParameters[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of s.
func (s *Signature) Clone() *Signature {
	if s == nil {
		return nil
	}
	c := &Signature{Base: s.Base}
	if s.Parameters != nil {
		c.Parameters = make([]*Signature, len(s.Parameters))
		for i, p := range s.Parameters {
			c.Parameters[i] = p.Clone()
		}
	}
	if s.LiteralParameters != nil {
		c.LiteralParameters = append([]any(nil), s.LiteralParameters...)
	}
	return c
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func quoteFieldName(name string) string {
	plain := name != ""
	for i := 0; i < len(name) && plain; i++ {
		if i == 0 {
			plain = isIdentStart(name[i])
		} else {
			plain = isIdentChar(name[i])
		}
	}
	if plain {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
