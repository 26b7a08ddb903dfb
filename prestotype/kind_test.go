package prestotype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		name string
		want Kind
	}{
		{"bigint", KindBigint},
		{"BIGINT", KindBigint},
		{"double", KindDouble},
		{"timestamp with time zone", KindTimestampWithTimeZone},
		{"timestamp  with\ttime zone", KindTimestampWithTimeZone},
		{"interval day to second", KindIntervalDayToSecond},
		{"row", KindRow},
		{"varbinary", KindUnknown},
		{"custom_blob", KindUnknown},
		{"unknown", KindUnknown},
		{"", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseKind(tt.name))
		})
	}
}

func TestKind_NamesRoundTrip(t *testing.T) {
	for _, k := range kindNames.Keys() {
		if k == KindUnknown {
			continue
		}
		assert.Equal(t, k, ParseKind(k.String()), "kind %d", k)
	}
	assert.Equal(t, "Kind(99)", Kind(99).String())
}

func TestKind_Classes(t *testing.T) {
	for _, k := range kindNames.Keys() {
		classes := 0
		for _, in := range []bool{k.IsContainer(), k.IsInteger(), k.IsFloat(), k.IsOpaqueText()} {
			if in {
				classes++
			}
		}
		switch k {
		case KindUnknown, KindBoolean, KindDecimal, KindUUID:
			assert.Zero(t, classes, "kind %s", k)
		default:
			assert.Equal(t, 1, classes, "kind %s", k)
		}
	}
}

func TestKind_Text(t *testing.T) {
	text, err := KindTimeWithTimeZone.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "time with time zone", string(text))

	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("REAL")))
	assert.Equal(t, KindReal, k)

	require.NoError(t, k.UnmarshalText([]byte("qdigest")))
	assert.Equal(t, KindUnknown, k)
}
