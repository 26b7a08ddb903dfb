package prestotype

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultMaxDepth bounds how deeply signatures and values may nest.
const DefaultMaxDepth = 100

// Parse parses a type signature. The grammar is
//
//	signature = base_name [ "(" parameter { "," parameter } ")" ]
//	parameter = signature | integer | 'quoted literal'
//
// where base names may span several words ("timestamp with time zone") and
// row parameters are "name type" pairs. The legacy form
// base<type, ...>('literal', ...) is accepted as well.
func Parse(text string) (*Signature, error) {
	return parseSignature(text, DefaultMaxDepth)
}

// MustParse is like Parse but panics on error. It is meant for signatures
// known at compile time.
func MustParse(text string) *Signature {
	sig, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return sig
}

func parseSignature(text string, maxDepth int) (*Signature, error) {
	p := &parser{src: text, maxDepth: maxDepth}
	sig, err := p.signature(0)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf("unexpected %q", p.peek())
	}
	return sig, nil
}

type parser struct {
	src      string
	pos      int
	maxDepth int
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Signature: p.src, Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

// expectClose consumes the separator after a parameter and reports whether
// the list is finished.
func (p *parser) expectClose(closer byte) (bool, error) {
	p.skipSpace()
	switch p.peek() {
	case ',':
		p.pos++
		return false, nil
	case closer:
		p.pos++
		return true, nil
	case 0:
		return false, p.errorf("unbalanced %q", openerFor(closer))
	default:
		return false, p.errorf("expected ',' or %q, got %q", closer, p.peek())
	}
}

func openerFor(closer byte) byte {
	if closer == '>' {
		return '<'
	}
	return '('
}

// words scans identifier words starting at pos without consuming them. It
// returns the words and the offset just past the last one.
func (p *parser) words(pos int) ([]string, int) {
	var out []string
	end := pos
	for {
		i := end
		for i < len(p.src) && (p.src[i] == ' ' || p.src[i] == '\t' || p.src[i] == '\n' || p.src[i] == '\r') {
			i++
		}
		if i >= len(p.src) || !isIdentStart(p.src[i]) {
			return out, end
		}
		j := i
		for j < len(p.src) && isIdentChar(p.src[j]) {
			j++
		}
		out = append(out, p.src[i:j])
		end = j
	}
}

func (p *parser) signature(depth int) (*Signature, error) {
	if depth > p.maxDepth {
		return nil, fmt.Errorf("%w: %q exceeds %d levels", ErrNestingTooDeep, p.src, p.maxDepth)
	}

	p.skipSpace()
	words, end := p.words(p.pos)
	if len(words) == 0 {
		return nil, p.errorf("expected type name")
	}
	p.pos = end
	sig := &Signature{Base: strings.Join(words, " ")}

	p.skipSpace()
	switch p.peek() {
	case '<':
		p.pos++
		if err := p.legacyParameters(sig, depth); err != nil {
			return nil, err
		}
	case '(':
		p.pos++
		var err error
		if sig.Kind() == KindRow {
			err = p.rowFields(sig, depth)
		} else {
			err = p.parameters(sig, depth)
		}
		if err != nil {
			return nil, err
		}
		// timestamp(3) with time zone
		if trailing, end := p.words(p.pos); len(trailing) > 0 && (trailing[0] == "with" || trailing[0] == "without") {
			sig.Base += " " + strings.Join(trailing, " ")
			p.pos = end
		}
	}
	return sig, nil
}

func (p *parser) parameters(sig *Signature, depth int) error {
	for {
		p.skipSpace()
		switch c := p.peek(); {
		case c >= '0' && c <= '9':
			n, err := p.integer()
			if err != nil {
				return err
			}
			sig.LiteralParameters = append(sig.LiteralParameters, n)
		case c == '\'':
			s, err := p.quoted('\'')
			if err != nil {
				return err
			}
			sig.LiteralParameters = append(sig.LiteralParameters, s)
		default:
			param, err := p.signature(depth + 1)
			if err != nil {
				return err
			}
			sig.Parameters = append(sig.Parameters, param)
		}

		done, err := p.expectClose(')')
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func (p *parser) rowFields(sig *Signature, depth int) error {
	for i := 0; ; i++ {
		p.skipSpace()
		name, err := p.fieldName(i)
		if err != nil {
			return err
		}
		param, err := p.signature(depth + 1)
		if err != nil {
			return err
		}
		sig.LiteralParameters = append(sig.LiteralParameters, name)
		sig.Parameters = append(sig.Parameters, param)

		done, err := p.expectClose(')')
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// fieldName consumes the name of the i-th row field. A field with no name
// ("row(bigint, varchar)") is called field<i>.
func (p *parser) fieldName(i int) (string, error) {
	if p.peek() == '"' {
		return p.quoted('"')
	}
	words, _ := p.words(p.pos)
	if len(words) >= 2 && ParseKind(strings.Join(words, " ")) == KindUnknown {
		// The first word is the name, the rest is the type.
		p.skipSpace()
		p.pos += len(words[0])
		return words[0], nil
	}
	return fmt.Sprintf("field%d", i), nil
}

func (p *parser) legacyParameters(sig *Signature, depth int) error {
	for {
		param, err := p.signature(depth + 1)
		if err != nil {
			return err
		}
		sig.Parameters = append(sig.Parameters, param)
		done, err := p.expectClose('>')
		if err != nil {
			return err
		}
		if done {
			break
		}
	}

	p.skipSpace()
	if p.peek() == '(' {
		p.pos++
		for {
			p.skipSpace()
			lit, err := p.literal()
			if err != nil {
				return err
			}
			sig.LiteralParameters = append(sig.LiteralParameters, lit)
			done, err := p.expectClose(')')
			if err != nil {
				return err
			}
			if done {
				break
			}
		}
	}

	if sig.Kind() != KindRow {
		return nil
	}
	if len(sig.LiteralParameters) == 0 {
		for i := range sig.Parameters {
			sig.LiteralParameters = append(sig.LiteralParameters, fmt.Sprintf("field%d", i))
		}
	}
	if len(sig.LiteralParameters) != len(sig.Parameters) {
		return p.errorf("row declares %d field names for %d field types", len(sig.LiteralParameters), len(sig.Parameters))
	}
	for i, lit := range sig.LiteralParameters {
		if _, ok := lit.(string); !ok {
			sig.LiteralParameters[i] = fmt.Sprint(lit)
		}
	}
	return nil
}

func (p *parser) literal() (any, error) {
	switch c := p.peek(); {
	case c == '\'' || c == '"':
		return p.quoted(c)
	case c >= '0' && c <= '9':
		return p.integer()
	case isIdentStart(c):
		start := p.pos
		for !p.eof() && isIdentChar(p.peek()) {
			p.pos++
		}
		return p.src[start:p.pos], nil
	default:
		return nil, p.errorf("expected literal parameter")
	}
}

func (p *parser) integer() (int64, error) {
	start := p.pos
	for !p.eof() && p.peek() >= '0' && p.peek() <= '9' {
		p.pos++
	}
	if !p.eof() && isIdentChar(p.peek()) {
		return 0, p.errorf("invalid integer parameter")
	}
	n, err := strconv.ParseInt(p.src[start:p.pos], 10, 64)
	if err != nil {
		p.pos = start
		return 0, p.errorf("integer parameter out of range")
	}
	return n, nil
}

// quoted reads a string delimited by q, where a doubled q escapes itself.
func (p *parser) quoted(q byte) (string, error) {
	start := p.pos
	p.pos++
	var b strings.Builder
	for !p.eof() {
		c := p.src[p.pos]
		p.pos++
		if c != q {
			b.WriteByte(c)
			continue
		}
		if p.peek() == q {
			b.WriteByte(q)
			p.pos++
			continue
		}
		return b.String(), nil
	}
	p.pos = start
	return "", p.errorf("unterminated quoted name")
}
