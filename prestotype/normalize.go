package prestotype

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Column pairs a result column name with its type signature text.
type Column struct {
	Name string
	Type string
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithMaxDepth limits how deeply signatures and values may nest before
// ErrNestingTooDeep is returned. Non-positive values are ignored.
func WithMaxDepth(depth int) Option {
	return func(n *Normalizer) {
		if depth > 0 {
			n.maxDepth = depth
		}
	}
}

// WithSignatureCache shares a signature cache between normalizers.
func WithSignatureCache(cache *SignatureCache) Option {
	return func(n *Normalizer) {
		n.cache = cache
	}
}

// Normalizer reshapes JSON-decoded values into their canonical form as
// directed by a type signature. It holds no per-call state and is safe for
// concurrent use.
type Normalizer struct {
	maxDepth int
	cache    *SignatureCache
}

// NewNormalizer creates a Normalizer. Without options it nests at most
// DefaultMaxDepth levels and uses a private signature cache.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(n)
	}
	if n.cache == nil {
		n.cache = NewSignatureCache(n.maxDepth)
	}
	return n
}

var defaultNormalizer = NewNormalizer()

// Normalize reshapes value as directed by sig using default settings.
func Normalize(sig *Signature, value any) (any, error) {
	return defaultNormalizer.Normalize(sig, value)
}

// NormalizeRows normalizes a result batch using default settings.
func NormalizeRows(columns []Column, rows [][]any) ([]Row, error) {
	return defaultNormalizer.NormalizeRows(columns, rows)
}

// Signature parses text through the normalizer's cache. The result is
// shared and must not be modified.
func (n *Normalizer) Signature(text string) (*Signature, error) {
	return n.cache.Parse(text)
}

// Normalize reshapes value as directed by sig. A nil value is always nil.
func (n *Normalizer) Normalize(sig *Signature, value any) (any, error) {
	if sig == nil {
		return nil, fmt.Errorf("%w: nil signature", ErrMalformedTypeSignature)
	}
	return n.normalize(sig, value, 0, "")
}

// NormalizeType parses typeText and normalizes value against it.
func (n *Normalizer) NormalizeType(typeText string, value any) (any, error) {
	sig, err := n.cache.Parse(typeText)
	if err != nil {
		return nil, err
	}
	return n.normalize(sig, value, 0, "")
}

// NormalizeRows normalizes every row of a batch against the column types.
// Rows keep their order. A nil batch yields nil, an empty batch an empty
// slice. The first failure aborts the whole batch.
func (n *Normalizer) NormalizeRows(columns []Column, rows [][]any) ([]Row, error) {
	if rows == nil {
		return nil, nil
	}
	out := make([]Row, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	sigs := make([]*Signature, len(columns))
	for i, col := range columns {
		sig, err := n.cache.Parse(col.Type)
		if err != nil {
			return nil, fmt.Errorf("column %d (%s): %w", i, col.Name, err)
		}
		sigs[i] = sig
	}

	for r, raw := range rows {
		if len(raw) != len(columns) {
			return nil, fmt.Errorf("row %d: %w: %d values for %d columns", r, ErrRowWidthMismatch, len(raw), len(columns))
		}
		row := make(Row, len(raw))
		for i, v := range raw {
			val, err := n.normalize(sigs[i], v, 0, "")
			if err != nil {
				return nil, fmt.Errorf("row %d, column %q: %w", r, columns[i].Name, err)
			}
			row[i] = val
		}
		out = append(out, row)
	}
	return out, nil
}

func (n *Normalizer) normalize(sig *Signature, v any, depth int, path string) (any, error) {
	if v == nil {
		return nil, nil
	}
	if depth > n.maxDepth {
		return nil, fmt.Errorf("%s: %w: more than %d levels", displayPath(path), ErrNestingTooDeep, n.maxDepth)
	}

	switch kind := sig.Kind(); kind {
	case KindArray:
		return n.array(sig, v, depth, path)
	case KindMap:
		return n.mapValue(sig, v, depth, path)
	case KindRow:
		return n.row(sig, v, depth, path)
	case KindBigint, KindInteger, KindSmallint, KindTinyint:
		return toInt64(v, kind, path)
	case KindDouble, KindReal:
		return toFloat64(v, kind, path)
	case KindBoolean:
		return toBool(v, path)
	case KindVarchar, KindChar, KindJSON,
		KindTime, KindTimeWithTimeZone,
		KindTimestamp, KindTimestampWithTimeZone,
		KindDate, KindIntervalYearToMonth, KindIntervalDayToSecond,
		KindIPAddress, KindIPPrefix:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch(path, "%s expects a string, got %T", kind, v)
		}
		return s, nil
	case KindDecimal:
		return toDecimalString(v, path)
	case KindUUID:
		return toUUIDString(v, path)
	default:
		return opaque(sig, v, path)
	}
}

func (n *Normalizer) array(sig *Signature, v any, depth int, path string) (any, error) {
	elem := sig.Parameter(0)
	if elem == nil {
		return nil, fmt.Errorf("%w: %q has no element type", ErrMalformedTypeSignature, sig.String())
	}
	items, ok := v.([]any)
	if !ok {
		return nil, mismatch(path, "%s expects an array, got %T", sig, v)
	}
	out := make([]any, len(items))
	for i, item := range items {
		val, err := n.normalize(elem, item, depth+1, path+"["+strconv.Itoa(i)+"]")
		if err != nil {
			return nil, err
		}
		out[i] = val
	}
	return out, nil
}

func (n *Normalizer) mapValue(sig *Signature, v any, depth int, path string) (any, error) {
	keyType, valueType := sig.Parameter(0), sig.Parameter(1)
	if keyType == nil || valueType == nil {
		return nil, fmt.Errorf("%w: %q needs key and value types", ErrMalformedTypeSignature, sig.String())
	}
	raw, ok := rawEntries(v)
	if !ok {
		return nil, mismatch(path, "%s expects an object, got %T", sig, v)
	}
	entries := make([]MapEntry, len(raw))
	for i, e := range raw {
		entryPath := path + "[" + strconv.Quote(fmt.Sprint(e.Key)) + "]"
		key, err := n.normalize(keyType, e.Key, depth+1, entryPath)
		if err != nil {
			return nil, err
		}
		val, err := n.normalize(valueType, e.Value, depth+1, entryPath)
		if err != nil {
			return nil, err
		}
		entries[i] = MapEntry{Key: key, Value: val}
	}
	return &MapValue{entries: entries}, nil
}

func (n *Normalizer) row(sig *Signature, v any, depth int, path string) (any, error) {
	if len(sig.Parameters) != len(sig.LiteralParameters) {
		return nil, fmt.Errorf("%w: %q names %d of %d fields", ErrMalformedTypeSignature,
			sig.String(), len(sig.LiteralParameters), len(sig.Parameters))
	}
	items, ok := v.([]any)
	if !ok {
		return nil, mismatch(path, "%s expects an array, got %T", sig, v)
	}
	if len(items) != len(sig.LiteralParameters) {
		return nil, fmt.Errorf("%s: %w: %d values for %d fields", displayPath(path), ErrRowArityMismatch,
			len(items), len(sig.LiteralParameters))
	}
	fields := make([]Field, len(items))
	for i, item := range items {
		name := fmt.Sprint(sig.LiteralParameters[i])
		val, err := n.normalize(sig.Parameters[i], item, depth+1, path+"."+name)
		if err != nil {
			return nil, err
		}
		fields[i] = Field{Name: name, Value: val}
	}
	return &RowValue{fields: fields}, nil
}

// rawEntries lists the members of a decoded object. Go maps have no order,
// so their keys are sorted to keep results deterministic.
func rawEntries(v any) ([]MapEntry, bool) {
	switch m := v.(type) {
	case RawObject:
		out := make([]MapEntry, len(m))
		for i, member := range m {
			out[i] = MapEntry{Key: member.Key, Value: member.Value}
		}
		return out, true
	case map[string]any:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]MapEntry, len(keys))
		for i, k := range keys {
			out[i] = MapEntry{Key: k, Value: m[k]}
		}
		return out, true
	case map[any]any:
		out := make([]MapEntry, 0, len(m))
		for k, val := range m {
			out = append(out, MapEntry{Key: k, Value: val})
		}
		sort.Slice(out, func(i, j int) bool {
			return fmt.Sprint(out[i].Key) < fmt.Sprint(out[j].Key)
		})
		return out, true
	case *MapValue:
		return m.Entries(), true
	}
	return nil, false
}

func toInt64(v any, kind Kind, path string) (any, error) {
	switch x := v.(type) {
	case string:
		i, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return nil, mismatch(path, "invalid %s %q", kind, x)
		}
		return i, nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, mismatch(path, "invalid %s %q", kind, x.String())
		}
		return floatToInt64(f, kind, path)
	case float64:
		return floatToInt64(x, kind, path)
	case float32:
		return floatToInt64(float64(x), kind, path)
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return uintToInt64(uint64(x), kind, path)
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return uintToInt64(x, kind, path)
	default:
		return nil, mismatch(path, "%s expects a number or string, got %T", kind, v)
	}
}

// floatToInt64 truncates toward zero. NaN, infinities and values outside
// the int64 range are rejected.
func floatToInt64(f float64, kind Kind, path string) (any, error) {
	if math.IsNaN(f) || f >= 0x1p63 || f < -0x1p63 {
		return nil, mismatch(path, "%v overflows %s", f, kind)
	}
	return int64(f), nil
}

func uintToInt64(u uint64, kind Kind, path string) (any, error) {
	if u > math.MaxInt64 {
		return nil, mismatch(path, "%d overflows %s", u, kind)
	}
	return int64(u), nil
}

func toFloat64(v any, kind Kind, path string) (any, error) {
	switch x := v.(type) {
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return nil, mismatch(path, "invalid %s %q", kind, x)
		}
		return f, nil
	case json.Number:
		f, err := strconv.ParseFloat(x.String(), 64)
		if err != nil {
			return nil, mismatch(path, "invalid %s %q", kind, x.String())
		}
		return f, nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	default:
		return nil, mismatch(path, "%s expects a number or string, got %T", kind, v)
	}
}

func toBool(v any, path string) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return strings.EqualFold(x, "true"), nil
	default:
		return nil, mismatch(path, "boolean expects a bool or string, got %T", v)
	}
}

// toDecimalString validates a decimal and returns its text. String input is
// kept verbatim so the declared scale survives.
func toDecimalString(v any, path string) (any, error) {
	switch x := v.(type) {
	case string:
		if _, err := decimal.NewFromString(x); err != nil {
			return nil, mismatch(path, "invalid decimal %q", x)
		}
		return x, nil
	case json.Number:
		if _, err := decimal.NewFromString(x.String()); err != nil {
			return nil, mismatch(path, "invalid decimal %q", x.String())
		}
		return x.String(), nil
	case float64:
		return decimal.NewFromFloat(x).String(), nil
	case float32:
		return decimal.NewFromFloat32(x).String(), nil
	case int64:
		return decimal.NewFromInt(x).String(), nil
	case int:
		return decimal.NewFromInt(int64(x)).String(), nil
	default:
		return nil, mismatch(path, "decimal expects a number or string, got %T", v)
	}
}

func toUUIDString(v any, path string) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, mismatch(path, "uuid expects a string, got %T", v)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return nil, mismatch(path, "invalid uuid %q", s)
	}
	return u.String(), nil
}

// opaque handles every base type the normalizer does not know. Strings are
// base64 encoded binary; any other value passes through unchanged.
func opaque(sig *Signature, v any, path string) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, mismatch(path, "%s value is not base64: %v", sig.Base, err)
	}
	return b, nil
}
