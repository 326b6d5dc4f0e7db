package property

import (
	"fmt"

	"github.com/dokzlo13/hueadapter/internal/color"
	"github.com/dokzlo13/hueadapter/internal/hue"
)

// Light property names.
const (
	NameOn               = "on"
	NameLevel            = "level"
	NameColor            = "color"
	NameColorTemperature = "colorTemperature"
	NameColorMode        = "colorMode"
)

// Color temperature range accepted by the bridge, in Kelvin.
const (
	MinKelvin = 2203
	MaxKelvin = 6536
)

// Color mode values.
const (
	ModeColor       = "color"
	ModeTemperature = "temperature"
)

// Encoding selects how a color write is sent to the bridge.
type Encoding int

const (
	// EncodingHS sends hue/sat/bri.
	EncodingHS Encoding = iota
	// EncodingXY sends xy/bri.
	EncodingXY
)

func (e Encoding) String() string {
	if e == EncodingXY {
		return "xy"
	}
	return "hs"
}

// OnOff is the power state of a light.
func OnOff() *Property {
	return newProperty(
		Description{
			Name:   NameOn,
			Title:  "On/Off",
			AtType: "OnOffProperty",
			Kind:   KindOnOff,
			Type:   TypeBoolean,
		},
		false,
		func(r *hue.Resource) (any, bool) {
			return r.State.Bool("on")
		},
		func(v any) hue.StatePatch {
			on, _ := v.(bool)
			return hue.StatePatch{On: hue.Bool(on)}
		},
	)
}

// Brightness is the light level in percent.
func Brightness() *Property {
	return newProperty(
		Description{
			Name:   NameLevel,
			Title:  "Brightness",
			AtType: "BrightnessProperty",
			Kind:   KindLevel,
			Type:   TypeInteger,
			Unit:   "percent",
			Bounds: &Bounds{Min: 0, Max: 100},
		},
		0,
		func(r *hue.Resource) (any, bool) {
			bri, ok := r.State.Int("bri")
			if !ok {
				return nil, false
			}
			return color.BriToPercent(bri), true
		},
		func(v any) hue.StatePatch {
			level, _ := v.(int)
			return hue.StatePatch{On: hue.Bool(true), Bri: hue.Int(color.PercentToBri(level))}
		},
	)
}

// ColorTemperature is the white point in Kelvin.
func ColorTemperature() *Property {
	return newProperty(
		Description{
			Name:   NameColorTemperature,
			Title:  "Color Temperature",
			AtType: "ColorTemperatureProperty",
			Kind:   KindColorTemperature,
			Type:   TypeInteger,
			Unit:   "kelvin",
			Bounds: &Bounds{Min: MinKelvin, Max: MaxKelvin},
		},
		MinKelvin,
		func(r *hue.Resource) (any, bool) {
			ct, ok := r.State.Int("ct")
			if !ok || ct <= 0 {
				return nil, false
			}
			return color.MiredToKelvin(ct), true
		},
		func(v any) hue.StatePatch {
			kelvin, _ := v.(int)
			return hue.StatePatch{On: hue.Bool(true), CT: hue.Int(color.KelvinToMired(kelvin))}
		},
	)
}

// Color is the light color as a "#rrggbb" string. Reads understand both
// native encodings; writes use enc.
func Color(enc Encoding) *Property {
	p := newProperty(
		Description{
			Name:   NameColor,
			Title:  "Color",
			AtType: "ColorProperty",
			Kind:   KindColor,
			Type:   TypeString,
		},
		"#ffffff",
		readColor,
		func(v any) hue.StatePatch {
			hex, _ := v.(string)
			return colorPatch(enc, hex)
		},
	)
	p.normalize = func(v any) (any, error) {
		c, err := color.ParseHex(v.(string))
		if err != nil {
			return nil, err
		}
		return c.Clamped().Hex(), nil
	}
	return p
}

func readColor(r *hue.Resource) (any, bool) {
	s := r.State
	bri, ok := s.Int("bri")
	if !ok {
		return nil, false
	}

	h, okHue := s.Int("hue")
	sat, okSat := s.Int("sat")
	mode, _ := s.String("colormode")

	if mode == "hs" && okHue && okSat {
		return color.HSVToHex(h, sat, bri), true
	}
	if x, y, ok := s.XY(); ok {
		return color.XYBriToHex(x, y, bri), true
	}
	if okHue && okSat {
		return color.HSVToHex(h, sat, bri), true
	}
	return nil, false
}

func colorPatch(enc Encoding, hex string) hue.StatePatch {
	switch enc {
	case EncodingXY:
		x, y, bri, err := color.HexToXYBri(hex)
		if err != nil {
			return hue.StatePatch{}
		}
		return hue.StatePatch{On: hue.Bool(true), XY: []float64{x, y}, Bri: hue.Int(bri)}
	default:
		h, sat, bri, err := color.HexToHSV(hex)
		if err != nil {
			return hue.StatePatch{}
		}
		return hue.StatePatch{On: hue.Bool(true), Hue: hue.Int(h), Sat: hue.Int(sat), Bri: hue.Int(bri)}
	}
}

// ColorMode reports whether the light is showing a color or a white
// temperature.
func ColorMode() *Property {
	return newProperty(
		Description{
			Name:     NameColorMode,
			Title:    "Color Mode",
			AtType:   "ColorModeProperty",
			Kind:     KindColorMode,
			Type:     TypeString,
			ReadOnly: true,
			Enum:     []string{ModeColor, ModeTemperature},
		},
		ModeColor,
		func(r *hue.Resource) (any, bool) {
			mode, ok := r.State.String("colormode")
			if !ok {
				return nil, false
			}
			if mode == "ct" {
				return ModeTemperature, true
			}
			return ModeColor, true
		},
		nil,
	)
}

// ParseEncoding parses "hs" or "xy".
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "hs":
		return EncodingHS, nil
	case "xy":
		return EncodingXY, nil
	}
	return EncodingHS, fmt.Errorf("unknown color encoding %q", s)
}
