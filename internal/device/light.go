package device

import (
	"fmt"

	"github.com/dokzlo13/hueadapter/internal/hue"
	"github.com/dokzlo13/hueadapter/internal/property"
)

// LightKind is the shape of a light, chosen once from its reported state.
// Each kind has the properties of the kinds before it.
type LightKind int

const (
	LightOnOff LightKind = iota
	LightDimmable
	LightColorTemp
	LightColor
)

func (k LightKind) String() string {
	switch k {
	case LightOnOff:
		return "on-off"
	case LightDimmable:
		return "dimmable"
	case LightColorTemp:
		return "color-temperature"
	case LightColor:
		return "color"
	}
	return fmt.Sprintf("LightKind(%d)", int(k))
}

// Light type strings the bridge is known to report.
var knownLightTypes = map[string]bool{
	"On/off light":            true,
	"On/Off plug-in unit":     true,
	"Dimmable light":          true,
	"Dimmable plug-in unit":   true,
	"Color temperature light": true,
	"Color light":             true,
	"Extended color light":    true,
}

// KnownLightType reports whether the type string is one the classification
// rules were written for.
func KnownLightType(t string) bool {
	return knownLightTypes[t]
}

// ClassifyLight picks the light kind from the capabilities its state
// exposes. Unknown type strings get the plain dimmable (or on/off) shape.
func ClassifyLight(r hue.Resource) LightKind {
	if !r.State.Has("bri") {
		return LightOnOff
	}
	if !KnownLightType(r.Type) {
		return LightDimmable
	}
	if r.State.Has("xy") {
		return LightColor
	}
	if r.State.Has("ct") {
		return LightColorTemp
	}
	return LightDimmable
}

// ColorEncoding values accepted by ResolveEncoding.
const (
	EncodingAuto = "auto"
	EncodingHS   = "hs"
	EncodingXY   = "xy"
)

// ResolveEncoding decides how color writes are sent. "auto" prefers hue/sat
// when the light reports them and falls back to xy.
func ResolveEncoding(policy string, r hue.Resource) property.Encoding {
	switch policy {
	case EncodingHS:
		return property.EncodingHS
	case EncodingXY:
		return property.EncodingXY
	}
	if r.State.Has("hue") && r.State.Has("sat") {
		return property.EncodingHS
	}
	return property.EncodingXY
}

// NewLight creates a light of the given kind and loads its initial values
// from r without notifying the host.
func NewLight(bridgeID, nativeID string, r hue.Resource, kind LightKind, enc property.Encoding, host Host, w Writer) *Device {
	d := newDevice(LightID(bridgeID, nativeID), bridgeID, nativeID, ClassLight, kind.String(), &r, host, w)

	d.addType("OnOffSwitch")
	d.addType("Light")
	d.add(property.OnOff())

	if kind >= LightDimmable {
		d.add(property.Brightness())
	}
	if kind >= LightColorTemp {
		d.addType("ColorControl")
	}
	// Some color lights have no white point; ct writes to them are rejected.
	if kind == LightColorTemp || (kind > LightColorTemp && r.State.Has("ct")) {
		d.add(property.ColorTemperature())
	}
	if kind >= LightColor {
		d.add(property.Color(enc))
		d.add(property.ColorMode())
	}

	d.update(&r, nil)
	return d
}
