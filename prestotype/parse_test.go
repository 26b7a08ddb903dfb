package prestotype

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sig(base string, params ...*Signature) *Signature {
	return &Signature{Base: base, Parameters: params}
}

func withLiterals(s *Signature, lits ...any) *Signature {
	s.LiteralParameters = lits
	return s
}

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  *Signature
	}{
		{"bigint", sig("bigint")},
		{"varchar(255)", withLiterals(sig("varchar"), int64(255))},
		{"decimal(10, 2)", withLiterals(sig("decimal"), int64(10), int64(2))},
		{"array(bigint)", sig("array", sig("bigint"))},
		{"map(varchar, array(bigint))", sig("map", sig("varchar"), sig("array", sig("bigint")))},
		{"row(a bigint, b varchar)", withLiterals(sig("row", sig("bigint"), sig("varchar")), "a", "b")},
		{`row("first name" varchar)`, withLiterals(sig("row", sig("varchar")), "first name")},
		{`row("say ""hi""" varchar)`, withLiterals(sig("row", sig("varchar")), `say "hi"`)},
		{"row(bigint, varchar)", withLiterals(sig("row", sig("bigint"), sig("varchar")), "field0", "field1")},
		{"row(ts timestamp with time zone)", withLiterals(sig("row", sig("timestamp with time zone")), "ts")},
		{"row(timestamp with time zone)", withLiterals(sig("row", sig("timestamp with time zone")), "field0")},
		{"row(a array(bigint))", withLiterals(sig("row", sig("array", sig("bigint"))), "a")},
		{"timestamp with time zone", sig("timestamp with time zone")},
		{"interval day to second", sig("interval day to second")},
		{"timestamp(3) with time zone", withLiterals(sig("timestamp with time zone"), int64(3))},
		{"  array ( bigint )  ", sig("array", sig("bigint"))},
		{"custom_blob", sig("custom_blob")},
		{"foo('x', 7)", withLiterals(sig("foo"), "x", int64(7))},
		{"array(row(x bigint))", sig("array", withLiterals(sig("row", sig("bigint")), "x"))},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Legacy(t *testing.T) {
	tests := []struct {
		legacy string
		modern string
	}{
		{"array<bigint>", "array(bigint)"},
		{"map<varchar,array<bigint>>", "map(varchar, array(bigint))"},
		{"row<bigint,varchar>('a','b')", "row(a bigint, b varchar)"},
		{"row<bigint,varchar>", "row(bigint, varchar)"},
		{"array<row<bigint>('x')>", "array(row(x bigint))"},
	}

	for _, tt := range tests {
		t.Run(tt.legacy, func(t *testing.T) {
			legacy, err := Parse(tt.legacy)
			require.NoError(t, err)
			modern, err := Parse(tt.modern)
			require.NoError(t, err)
			assert.True(t, legacy.Equal(modern), "%s != %s", legacy, modern)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"()",
		"array(",
		"array(bigint",
		"array(bigint))",
		"map(varchar,)",
		"varchar(12x)",
		`row("a bigint)`,
		"row<bigint,varchar>('a')",
		"array<bigint",
		"bigint garbage(",
		"varchar(99999999999999999999)",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedTypeSignature), "got %v", err)

			var syntaxErr *SyntaxError
			require.True(t, errors.As(err, &syntaxErr))
			assert.Equal(t, input, syntaxErr.Signature)
		})
	}
}

func TestParse_NestingLimit(t *testing.T) {
	deep := strings.Repeat("array(", DefaultMaxDepth+1) + "bigint" + strings.Repeat(")", DefaultMaxDepth+1)
	_, err := Parse(deep)
	assert.ErrorIs(t, err, ErrNestingTooDeep)

	shallow := strings.Repeat("array(", 10) + "bigint" + strings.Repeat(")", 10)
	_, err = Parse(shallow)
	assert.NoError(t, err)
}

func TestSignature_RoundTrip(t *testing.T) {
	inputs := []string{
		"bigint",
		"varchar(255)",
		"decimal(38,10)",
		"array(map(varchar,array(row(a bigint,b double))))",
		`row("first name" varchar, "1st" bigint)`,
		"row(bigint, varchar)",
		"timestamp(6) with time zone",
		"interval year to month",
		"foo('it''s', 3)",
		"row<bigint,map<varchar,boolean>>('id','flags')",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			parsed, err := Parse(input)
			require.NoError(t, err)

			reparsed, err := Parse(parsed.String())
			require.NoError(t, err, "re-parsing %q", parsed.String())
			assert.True(t, parsed.Equal(reparsed), "%s != %s", parsed, reparsed)
		})
	}
}

func TestSignature_String(t *testing.T) {
	assert.Equal(t, "map(varchar, array(bigint))", MustParse("map( varchar ,array(bigint) )").String())
	assert.Equal(t, `row(a bigint, "b c" varchar(3))`, MustParse(`row(a bigint, "b c" varchar(3))`).String())
	assert.Equal(t, "row(field0 bigint)", MustParse("row<bigint>").String())
}

func TestSignature_Accessors(t *testing.T) {
	s := MustParse("row(a bigint, b map(varchar, double))")
	assert.Equal(t, KindRow, s.Kind())
	assert.Equal(t, []string{"a", "b"}, s.FieldNames())
	assert.Equal(t, KindMap, s.Parameter(1).Kind())
	assert.Equal(t, KindDouble, s.Parameter(1).Parameter(1).Kind())
	assert.Nil(t, s.Parameter(2))
	assert.Nil(t, s.Parameter(-1))
}

func TestSignature_Equal(t *testing.T) {
	a := MustParse("array(bigint)")
	assert.True(t, a.Equal(MustParse("array( bigint )")))
	assert.False(t, a.Equal(MustParse("array(integer)")))
	assert.False(t, a.Equal(nil))
	assert.False(t, MustParse("varchar(3)").Equal(MustParse("varchar(4)")))

	var nilSig *Signature
	assert.True(t, nilSig.Equal(nil))
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("array(") })
}
