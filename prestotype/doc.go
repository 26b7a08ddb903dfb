// Package prestotype parses Presto/Trino type signatures and reshapes
// JSON-decoded result values into the canonical Go values those types imply.
//
// The coordinator sends every row as a JSON array, so a generic decoder
// yields numbers, strings, booleans and nested containers with no type
// information. Normalize walks a parsed Signature and such a value side by
// side:
//
//	sig, _ := prestotype.Parse("array(row(x bigint, tags map(varchar, double)))")
//	raw, _ := prestotype.DecodeRaw([]byte(`[[1, {"a": "1.5"}]]`))
//	v, _ := prestotype.Normalize(sig, raw)
//	// v is []any{*RowValue{x: int64(1), tags: *MapValue{"a": 1.5}}}
//
// # Canonical values
//
//   - integer types: int64
//   - double, real: float64
//   - boolean: bool
//   - varchar, char, json, date, time, timestamp, intervals, ipaddress: string
//   - decimal: validated decimal string; uuid: canonical uuid string
//   - array: []any
//   - map: *MapValue, ordered as received
//   - row: *RowValue, ordered as declared
//   - anything else: []byte when the wire value is a base64 string, otherwise
//     the decoded value unchanged
//
// Unknown type names are never an error. Errors come only from malformed
// signatures and values whose shape does not fit their type; they match
// ErrMalformedTypeSignature, ErrRowWidthMismatch, ErrRowArityMismatch,
// ErrTypeMismatch or ErrNestingTooDeep with errors.Is.
package prestotype
