package cachekey

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// Delimiter separates parts in a key. It never occurs inside an encoded part.
const Delimiter = '|'

// ErrUnkeyable is returned for values that have no deterministic encoding.
var ErrUnkeyable = errors.New("cachekey: value cannot be fingerprinted")

// Keyer is implemented by values that supply their own stable fingerprint.
type Keyer interface {
	CacheKey() string
}

// Builder accumulates typed parts and joins them into a key.
//
// The first error encountered is retained and reported by Err and Key;
// subsequent appends are ignored. The zero value is ready to use.
type Builder struct {
	parts []string
	err   error
}

// NewBuilder returns a Builder with room for n parts.
func NewBuilder(n int) *Builder {
	return &Builder{parts: make([]string, 0, n)}
}

// Tag appends a raw namespace tag. Tags must be plain identifiers starting
// with a letter; they are not escaped and cannot collide with encoded parts
// because no sigil is a letter.
func (b *Builder) Tag(tag string) *Builder {
	if b.err == nil {
		b.parts = append(b.parts, tag)
	}
	return b
}

// String appends a string part.
func (b *Builder) String(s string) *Builder {
	if b.err == nil {
		var sb strings.Builder
		writeString(&sb, s)
		b.parts = append(b.parts, sb.String())
	}
	return b
}

// Int appends an integer part.
func (b *Builder) Int(n int64) *Builder {
	if b.err == nil {
		b.parts = append(b.parts, "#"+strconv.FormatInt(n, 10))
	}
	return b
}

// Float appends a floating point part.
func (b *Builder) Float(f float64) *Builder {
	if b.err == nil {
		b.parts = append(b.parts, "#"+formatFloat(f))
	}
	return b
}

// Bool appends a single-character boolean flag.
func (b *Builder) Bool(v bool) *Builder {
	if b.err == nil {
		b.parts = append(b.parts, boolFlag(v))
	}
	return b
}

// Nil appends the nil marker.
func (b *Builder) Nil() *Builder {
	if b.err == nil {
		b.parts = append(b.parts, "~")
	}
	return b
}

// Record appends a structurally sorted record part.
func (b *Builder) Record(m map[string]any) *Builder {
	return b.Value(m)
}

// List appends an ordered list part.
func (b *Builder) List(items ...any) *Builder {
	return b.Value(items)
}

// Value appends any supported value: nil, strings, booleans, all numeric
// kinds, json.Number, time.Time, Keyer, and maps with string keys or
// slices of those, nested arbitrarily.
func (b *Builder) Value(v any) *Builder {
	if b.err != nil {
		return b
	}
	var sb strings.Builder
	if err := writeValue(&sb, v); err != nil {
		b.err = err
		return b
	}
	b.parts = append(b.parts, sb.String())
	return b
}

// Len returns the number of accumulated parts.
func (b *Builder) Len() int { return len(b.parts) }

// Err returns the first error encountered while appending.
func (b *Builder) Err() error { return b.err }

// Reset clears all parts and any retained error.
func (b *Builder) Reset() {
	b.parts = b.parts[:0]
	b.err = nil
}

// Key joins the parts. Returns the first append error, if any.
func (b *Builder) Key() (string, error) {
	if b.err != nil {
		return "", b.err
	}
	return strings.Join(b.parts, string(Delimiter)), nil
}

func boolFlag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// writeValue encodes v with its type sigil.
func writeValue(sb *strings.Builder, v any) error {
	switch val := v.(type) {
	case nil:
		sb.WriteByte('~')
	case string:
		writeString(sb, val)
	case bool:
		sb.WriteString(boolFlag(val))
	case int:
		writeInt(sb, int64(val))
	case int8:
		writeInt(sb, int64(val))
	case int16:
		writeInt(sb, int64(val))
	case int32:
		writeInt(sb, int64(val))
	case int64:
		writeInt(sb, val)
	case uint:
		writeUint(sb, uint64(val))
	case uint8:
		writeUint(sb, uint64(val))
	case uint16:
		writeUint(sb, uint64(val))
	case uint32:
		writeUint(sb, uint64(val))
	case uint64:
		writeUint(sb, val)
	case float32:
		sb.WriteByte('#')
		sb.WriteString(formatFloat(float64(val)))
	case float64:
		sb.WriteByte('#')
		sb.WriteString(formatFloat(val))
	case json.Number:
		if n, err := val.Int64(); err == nil {
			writeInt(sb, n)
			return nil
		}
		f, err := val.Float64()
		if err != nil {
			return fmt.Errorf("%w: malformed number %q", ErrUnkeyable, string(val))
		}
		sb.WriteByte('#')
		sb.WriteString(formatFloat(f))
	case time.Time:
		sb.WriteByte('^')
		sb.WriteString(strconv.FormatInt(val.Unix(), 10))
		sb.WriteByte('.')
		sb.WriteString(fmt.Sprintf("%09d", val.Nanosecond()))
		sb.WriteByte('@')
		writeEscaped(sb, val.Location().String())
		// Unnamed fixed zones share a location name; the offset tells them apart.
		abbr, offset := val.Zone()
		sb.WriteByte(',')
		writeEscaped(sb, abbr)
		sb.WriteByte(',')
		sb.WriteString(strconv.Itoa(offset))
	case Keyer:
		sb.WriteByte('@')
		writeEscaped(sb, val.CacheKey())
	case map[string]any:
		return writeRecord(sb, val)
	case []any:
		return writeList(sb, len(val), func(i int) any { return val[i] })
	default:
		return writeReflect(sb, v)
	}
	return nil
}

// writeReflect handles typed maps, slices and pointers not covered by the
// fast type switch.
func writeReflect(sb *strings.Builder, v any) error {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			sb.WriteByte('~')
			return nil
		}
		return writeValue(sb, rv.Elem().Interface())
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("%w: map key type %s", ErrUnkeyable, rv.Type().Key())
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return writeRecord(sb, m)
	case reflect.Slice, reflect.Array:
		return writeList(sb, rv.Len(), func(i int) any { return rv.Index(i).Interface() })
	default:
		return fmt.Errorf("%w: %T", ErrUnkeyable, v)
	}
}

func writeRecord(sb *strings.Builder, m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)

	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeEscaped(sb, norm.NFC.String(k))
		sb.WriteByte(':')
		if err := writeValue(sb, m[k]); err != nil {
			return fmt.Errorf("record[%q]: %w", k, err)
		}
	}
	sb.WriteByte('}')
	return nil
}

func writeList(sb *strings.Builder, n int, at func(int) any) error {
	sb.WriteByte('[')
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		if err := writeValue(sb, at(i)); err != nil {
			return fmt.Errorf("list[%d]: %w", i, err)
		}
	}
	sb.WriteByte(']')
	return nil
}

func writeString(sb *strings.Builder, s string) {
	sb.WriteByte('\'')
	writeEscaped(sb, norm.NFC.String(s))
}

func writeInt(sb *strings.Builder, n int64) {
	sb.WriteByte('#')
	sb.WriteString(strconv.FormatInt(n, 10))
}

func writeUint(sb *strings.Builder, n uint64) {
	sb.WriteByte('#')
	sb.WriteString(strconv.FormatUint(n, 10))
}

// formatFloat renders integral floats in integer form so 3.0 and 3 share a key.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	case f == math.Trunc(f) && math.Abs(f) < 1e15:
		return strconv.FormatInt(int64(f), 10)
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

// writeEscaped escapes the delimiter, structural characters and control
// characters so encoded parts stay unambiguous and free of line breaks.
func writeEscaped(sb *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\', '|', ',', ':', '{', '}', '[', ']':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(sb, "\\x%02x", c)
				continue
			}
			sb.WriteByte(c)
		}
	}
}

// compareUTF16 orders strings by UTF-16 code units, matching RFC 8785 key
// ordering. Go's native string comparison orders by UTF-8 bytes, which
// differs for characters outside the BMP.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}
