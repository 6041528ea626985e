package attributes

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

type Scope int

const (
	PositionScope Scope = iota
	DeviceScope
)

type Key struct {
	Scope Scope
	Name  string
}

func Pos(name string) Key { return Key{Scope: PositionScope, Name: name} }
func Dev(name string) Key { return Key{Scope: DeviceScope, Name: name} }

// Bag holds the attribute maps of a position and its device. Either may be nil.
type Bag struct {
	Position map[string]any
	Device   map[string]any
}

func (b Bag) lookup(k Key) (any, bool) {
	m := b.Position
	if k.Scope == DeviceScope {
		m = b.Device
	}
	if m == nil {
		return nil, false
	}
	v, ok := m[k.Name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

type Parser[T any] func(v any) (T, bool)

// Field describes how one logical value is read from a Bag: the keys are tried
// in order and the first one present is parsed. A present value that fails to
// parse yields the default, it does not fall through to the next key.
type Field[T any] struct {
	Name       string
	Keys       []Key
	Parse      Parser[T]
	Default    T
	HasDefault bool
}

// Resolve returns the value of the field and whether one was found. Fields
// with a default always resolve.
func (f Field[T]) Resolve(b Bag) (T, bool) {
	for _, k := range f.Keys {
		raw, ok := b.lookup(k)
		if !ok {
			continue
		}
		if v, ok := f.Parse(raw); ok {
			return v, true
		}
		break
	}
	return f.Default, f.HasDefault
}

func (f Field[T]) Value(b Bag) T {
	v, _ := f.Resolve(b)
	return v
}

var Temperature = Field[float64]{
	Name:  "temperature",
	Keys:  []Key{Pos("temp1"), Pos("bleTemp1"), Dev("temp1"), Dev("temperature")},
	Parse: Float,
}

// HistoryTemperature reads the temperature of a historical position, which
// also accepts the generic temperature key.
var HistoryTemperature = Field[float64]{
	Name:  "temperature",
	Keys:  []Key{Pos("temp1"), Pos("bleTemp1"), Pos("temperature")},
	Parse: Float,
}

var Door = Field[int]{
	Name:       "door",
	Keys:       []Key{Pos("door"), Pos("io2"), Dev("door"), Dev("io2")},
	Parse:      Flag,
	Default:    0,
	HasDefault: true,
}

var Setpoint = Field[float64]{
	Name:       "setpoint",
	Keys:       []Key{Pos("setpoint"), Pos("targetTemp"), Dev("setpoint"), Dev("targetTemp")},
	Parse:      Float,
	Default:    -15,
	HasDefault: true,
}

var Fan = Field[int]{
	Name:       "fan",
	Keys:       []Key{Pos("fan")},
	Parse:      Flag,
	Default:    0,
	HasDefault: true,
}

// Float accepts JSON numbers and numeric strings. NaN and ±Inf are rejected.
func Float(v any) (float64, bool) {
	var f float64

	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return f, true
}

// Flag normalises booleans, numbers and their string forms to 0 or 1.
func Flag(v any) (int, bool) {
	switch b := v.(type) {
	case bool:
		if b {
			return 1, true
		}
		return 0, true
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
			return Flag(parsed)
		}
	}

	f, ok := Float(v)
	if !ok {
		return 0, false
	}
	if f != 0 {
		return 1, true
	}
	return 0, true
}
