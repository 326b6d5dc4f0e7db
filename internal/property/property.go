// Package property implements the typed, named values a device exposes to the
// host, together with the rules that read them from bridge state and write
// them back as state patches.
package property

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/dokzlo13/hueadapter/internal/hue"
)

var (
	// ErrReadOnly is returned when a write targets a read-only property.
	ErrReadOnly = errors.New("property is read-only")

	// ErrInvalidValue is returned when a written value has the wrong type.
	ErrInvalidValue = errors.New("invalid property value")
)

// Kind classifies a property.
type Kind string

const (
	KindOnOff            Kind = "on-off"
	KindLevel            Kind = "level"
	KindColor            Kind = "color"
	KindColorTemperature Kind = "color-temperature"
	KindColorMode        Kind = "color-mode"
	KindSensorReading    Kind = "sensor-reading"
	KindButton           Kind = "button"
	KindMeta             Kind = "meta"
)

// ValueType is the JSON type of a property value.
type ValueType string

const (
	TypeBoolean ValueType = "boolean"
	TypeInteger ValueType = "integer"
	TypeNumber  ValueType = "number"
	TypeString  ValueType = "string"
)

// Bounds is an inclusive numeric range.
type Bounds struct {
	Min float64 `json:"minimum"`
	Max float64 `json:"maximum"`
}

// Description is the metadata the host registers a property with.
type Description struct {
	Name     string    `json:"name"`
	Title    string    `json:"title,omitempty"`
	AtType   string    `json:"@type,omitempty"`
	Kind     Kind      `json:"kind"`
	Type     ValueType `json:"type"`
	Unit     string    `json:"unit,omitempty"`
	ReadOnly bool      `json:"readOnly"`
	Bounds   *Bounds   `json:"bounds,omitempty"`
	Enum     []string  `json:"enum,omitempty"`
}

// ReadFunc extracts a value from a bridge resource. ok is false when the
// relevant field is missing or malformed.
type ReadFunc func(r *hue.Resource) (value any, ok bool)

// PatchFunc translates an accepted value into a light state patch.
type PatchFunc func(value any) hue.StatePatch

// Property holds one cached value. It is not safe for concurrent use; the
// owning device serializes access.
type Property struct {
	desc  Description
	value any
	read  ReadFunc
	patch PatchFunc

	// normalize runs after type coercion, e.g. to canonicalize hex colors.
	normalize func(any) (any, error)
}

func newProperty(desc Description, initial any, read ReadFunc, patch PatchFunc) *Property {
	p := &Property{
		desc:  desc,
		read:  read,
		patch: patch,
	}
	p.value, _ = p.coerce(initial)
	return p
}

// Name returns the property name.
func (p *Property) Name() string {
	return p.desc.Name
}

// Description returns the property metadata.
func (p *Property) Description() Description {
	return p.desc
}

// Kind returns the property kind.
func (p *Property) Kind() Kind {
	return p.desc.Kind
}

// Value returns the cached value.
func (p *Property) Value() any {
	return p.value
}

// ReadOnly reports whether the property rejects writes.
func (p *Property) ReadOnly() bool {
	return p.desc.ReadOnly || p.patch == nil
}

// Update reads the property from a bridge resource and reports whether the
// cached value changed. Missing or malformed fields leave the value untouched.
func (p *Property) Update(r *hue.Resource) bool {
	if r == nil || p.read == nil {
		return false
	}
	v, ok := p.read(r)
	if !ok {
		return false
	}
	return p.Set(v)
}

// Set stores a value after coercing it to the declared type and bounds and
// reports whether the cached value changed. Values that cannot be coerced
// are dropped.
func (p *Property) Set(v any) bool {
	v, err := p.coerce(v)
	if err != nil {
		return false
	}
	if v == p.value {
		return false
	}
	p.value = v
	return true
}

// Accept validates a write request and returns the value that would be
// stored: rounded to the declared type and clamped to bounds.
func (p *Property) Accept(v any) (any, error) {
	if p.ReadOnly() {
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, p.desc.Name)
	}
	return p.coerce(v)
}

// Patch translates an accepted value into a light state patch.
func (p *Property) Patch(v any) hue.StatePatch {
	if p.patch == nil {
		return hue.StatePatch{}
	}
	return p.patch(v)
}

func (p *Property) coerce(v any) (any, error) {
	var out any
	switch p.desc.Type {
	case TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, p.invalid(v)
		}
		out = b
	case TypeInteger:
		f, ok := number(v)
		if !ok {
			return nil, p.invalid(v)
		}
		out = int(math.Round(p.clamp(f)))
	case TypeNumber:
		f, ok := number(v)
		if !ok {
			return nil, p.invalid(v)
		}
		out = p.clamp(f)
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, p.invalid(v)
		}
		if len(p.desc.Enum) > 0 && !slices.Contains(p.desc.Enum, s) {
			return nil, p.invalid(v)
		}
		out = s
	default:
		return nil, p.invalid(v)
	}

	if p.normalize != nil {
		normalized, err := p.normalize(out)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidValue, p.desc.Name, err)
		}
		out = normalized
	}
	return out, nil
}

func (p *Property) clamp(f float64) float64 {
	if p.desc.Bounds == nil {
		return f
	}
	return math.Min(math.Max(f, p.desc.Bounds.Min), p.desc.Bounds.Max)
}

func (p *Property) invalid(v any) error {
	return fmt.Errorf("%w: %s expects %s, got %T", ErrInvalidValue, p.desc.Name, p.desc.Type, v)
}

func number(v any) (float64, bool) {
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
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
