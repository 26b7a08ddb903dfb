package prestotype

import (
	"strconv"
	"strings"

	"github.com/ilge/presto-go/utils"
)

// Kind identifies a base type the normalizer knows how to shape. Any base
// name outside this set maps to KindUnknown, which is never an error.
type Kind int8

const (
	// KindUnknown covers every base type not listed below, including
	// varbinary and engine-specific types. String values are base64 blobs.
	KindUnknown Kind = iota

	KindArray
	KindMap
	KindRow

	KindBigint
	KindInteger
	KindSmallint
	KindTinyint

	KindDouble
	KindReal

	KindBoolean

	KindVarchar
	KindChar
	KindJSON
	KindTime
	KindTimeWithTimeZone
	KindTimestamp
	KindTimestampWithTimeZone
	KindDate
	KindIntervalYearToMonth
	KindIntervalDayToSecond
	KindIPAddress
	KindIPPrefix

	KindDecimal
	KindUUID
)

var kindNames = utils.NewBiMap(map[Kind]string{
	KindUnknown:               "unknown",
	KindArray:                 "array",
	KindMap:                   "map",
	KindRow:                   "row",
	KindBigint:                "bigint",
	KindInteger:               "integer",
	KindSmallint:              "smallint",
	KindTinyint:               "tinyint",
	KindDouble:                "double",
	KindReal:                  "real",
	KindBoolean:               "boolean",
	KindVarchar:               "varchar",
	KindChar:                  "char",
	KindJSON:                  "json",
	KindTime:                  "time",
	KindTimeWithTimeZone:      "time with time zone",
	KindTimestamp:             "timestamp",
	KindTimestampWithTimeZone: "timestamp with time zone",
	KindDate:                  "date",
	KindIntervalYearToMonth:   "interval year to month",
	KindIntervalDayToSecond:   "interval day to second",
	KindIPAddress:             "ipaddress",
	KindIPPrefix:              "ipprefix",
	KindDecimal:               "decimal",
	KindUUID:                  "uuid",
})

// ParseKind maps a base type name to its Kind. Matching ignores case and
// collapses runs of whitespace. Unrecognized names yield KindUnknown.
func ParseKind(base string) Kind {
	name := strings.ToLower(strings.Join(strings.Fields(base), " "))
	if k, ok := kindNames.RLookup(name); ok && k != KindUnknown {
		return k
	}
	return KindUnknown
}

// String returns the canonical base type name.
func (k Kind) String() string {
	if name, ok := kindNames.Lookup(k); ok {
		return name
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// IsContainer reports whether k is array, map or row.
func (k Kind) IsContainer() bool {
	return k == KindArray || k == KindMap || k == KindRow
}

// IsInteger reports whether k normalizes to int64.
func (k Kind) IsInteger() bool {
	switch k {
	case KindBigint, KindInteger, KindSmallint, KindTinyint:
		return true
	}
	return false
}

// IsFloat reports whether k normalizes to float64.
func (k Kind) IsFloat() bool {
	return k == KindDouble || k == KindReal
}

// IsOpaqueText reports whether k arrives as a string that needs no coercion.
func (k Kind) IsOpaqueText() bool {
	switch k {
	case KindVarchar, KindChar, KindJSON,
		KindTime, KindTimeWithTimeZone,
		KindTimestamp, KindTimestampWithTimeZone,
		KindDate, KindIntervalYearToMonth, KindIntervalDayToSecond,
		KindIPAddress, KindIPPrefix:
		return true
	}
	return false
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	*k = ParseKind(string(text))
	return nil
}
