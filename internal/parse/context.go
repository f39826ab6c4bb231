package parse

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/roach88/atemporal/internal/canon"
)

// Kind is a cheap classification of raw input used as a dispatch hint.
type Kind string

const (
	KindNil       Kind = "nil"
	KindText      Kind = "text"
	KindNumber    Kind = "number"
	KindNative    Kind = "native"
	KindCanonical Kind = "canonical"
	KindList      Kind = "list"
	KindRecord    Kind = "record"
	KindStruct    Kind = "struct"
	KindUnknown   Kind = "unknown"
)

// InferKind classifies input by its Go shape. It never inspects contents
// beyond the top-level type.
func InferKind(input any) Kind {
	switch input.(type) {
	case nil:
		return KindNil
	case string:
		return KindText
	case json.Number:
		return KindNumber
	case time.Time, *time.Time:
		return KindNative
	case canon.Timestamp, *canon.Timestamp, canon.DateTime, Wrapper:
		return KindCanonical
	}
	rv := reflect.ValueOf(input)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return KindNumber
	case reflect.Slice, reflect.Array:
		return KindList
	case reflect.Map:
		return KindRecord
	case reflect.Struct:
		return KindStruct
	case reflect.Pointer:
		if rv.IsNil() {
			return KindNil
		}
		return KindStruct
	}
	return KindUnknown
}

// Metadata keys written by the core.
const (
	MetaCoarseClock = "clock.coarse"
	MetaExtraItems  = "list.extra_items"
	MetaLayout      = "text.layout"
)

// Context is the environment of one parse attempt. It is created per call
// and never shared between goroutines.
type Context struct {
	Input      any
	Options    Options
	Kind       Kind
	Confidence float64
	Metadata   map[string]any
	Start      time.Time
	AttemptID  string

	clock Clock
}

// NewContext starts a parse attempt for input. A nil clock selects
// SystemClock.
func NewContext(input any, opts Options, clock Clock, attemptID string) *Context {
	if clock == nil {
		clock = SystemClock{}
	}
	c := &Context{
		Input:     input,
		Options:   opts,
		Kind:      InferKind(input),
		Metadata:  make(map[string]any),
		AttemptID: attemptID,
		clock:     clock,
	}
	c.Start = c.now()
	return c
}

// Background returns a context for input with default options, for callers
// driving a strategy directly.
func Background(input any, opts ...Option) *Context {
	return NewContext(input, Resolve(Options{}, opts...), nil, "")
}

func (c *Context) now() time.Time {
	t, coarse := SafeNow(c.clock)
	if coarse {
		c.Metadata[MetaCoarseClock] = true
	}
	return t
}

// Elapsed returns the time since Start. It never fails; a misbehaving clock
// degrades to the coarse clock and a negative span reads as zero.
func (c *Context) Elapsed() time.Duration {
	d := c.now().Sub(c.Start)
	if d < 0 {
		return 0
	}
	return d
}

// Note records an inter-stage annotation.
func (c *Context) Note(key string, v any) {
	c.Metadata[key] = v
}

// CoarseClock reports whether any clock read in this attempt fell back to
// the coarse clock.
func (c *Context) CoarseClock() bool {
	v, _ := c.Metadata[MetaCoarseClock].(bool)
	return v
}
