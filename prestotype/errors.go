package prestotype

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedTypeSignature is returned when a type signature does not
	// match the grammar (unbalanced parentheses, empty base name, trailing input).
	ErrMalformedTypeSignature = errors.New("malformed type signature")

	// ErrRowWidthMismatch is returned when a result row does not have one
	// value per column.
	ErrRowWidthMismatch = errors.New("row/column size mismatch")

	// ErrRowArityMismatch is returned when a row-typed value does not have
	// one element per declared field.
	ErrRowArityMismatch = errors.New("mismatched data values and row type")

	// ErrTypeMismatch is returned when a value's shape is incompatible with
	// its declared type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrNestingTooDeep is returned when a signature or value nests deeper
	// than the configured limit.
	ErrNestingTooDeep = errors.New("type nesting too deep")
)

// SyntaxError describes where a type signature failed to parse.
type SyntaxError struct {
	Signature string // the full input
	Offset    int    // byte offset of the failure
	Msg       string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s at offset %d in %q", ErrMalformedTypeSignature, e.Msg, e.Offset, e.Signature)
}

// Unwrap lets errors.Is match ErrMalformedTypeSignature.
func (e *SyntaxError) Unwrap() error {
	return ErrMalformedTypeSignature
}

// mismatch builds an ErrTypeMismatch error for a value at path.
func mismatch(path string, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", displayPath(path), ErrTypeMismatch, fmt.Sprintf(format, args...))
}

func displayPath(path string) string {
	if path == "" {
		return "value"
	}
	return path
}
