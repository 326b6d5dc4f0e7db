// Package color converts between the bridge's native color encodings and
// hex RGB strings.
package color

import (
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Native value ranges.
const (
	MaxHue = 65535
	MaxSat = 254
	MaxBri = 254
)

// Black is returned for inputs that have no defined color.
const Black = "#000000"

// D65 white point, reported for black where chromaticity is undefined.
const (
	whiteX = 0.3127
	whiteY = 0.3290
)

// Wide gamut RGB D65 conversion matrices.
var (
	rgbToXYZ = [3][3]float64{
		{0.664511, 0.154324, 0.162028},
		{0.283881, 0.668433, 0.047685},
		{0.000088, 0.072310, 0.986039},
	}
	xyzToRGB = [3][3]float64{
		{1.656492, -0.354851, -0.255038},
		{-0.707196, 1.655397, 0.036152},
		{0.051713, -0.121364, 1.011530},
	}
)

// ParseHex parses "#rrggbb" (or "#rgb"); the leading '#' is optional.
func ParseHex(hex string) (colorful.Color, error) {
	s := strings.TrimSpace(hex)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(strings.ToLower(s))
	if err != nil {
		return colorful.Color{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	return c, nil
}

// HSVToHex converts native hue (0..65535), sat (0..254) and bri (0..254) to hex.
func HSVToHex(hue, sat, bri int) string {
	h := float64(clampInt(hue, 0, MaxHue)) / MaxHue * 360
	s := float64(clampInt(sat, 0, MaxSat)) / MaxSat
	v := float64(clampInt(bri, 0, MaxBri)) / MaxBri

	return colorful.Hsv(math.Mod(h, 360), s, v).Clamped().Hex()
}

// HexToHSV converts a hex color to native hue, sat and bri.
func HexToHSV(hex string) (hue, sat, bri int, err error) {
	c, err := ParseHex(hex)
	if err != nil {
		return 0, 0, 0, err
	}

	h, s, v := c.Hsv()
	hue = int(math.Round(h / 360 * MaxHue))
	if hue > MaxHue {
		hue = 0
	}
	return hue, int(math.Round(s * MaxSat)), int(math.Round(v * MaxBri)), nil
}

// XYBriToHex converts CIE xy chromaticity plus native bri to hex. The result
// is normalized so the strongest channel is fully on, which means bri only
// influences the outcome by turning it black at zero.
func XYBriToHex(x, y float64, bri int) string {
	if y == 0 {
		return Black
	}

	Y := float64(clampInt(bri, 0, MaxBri)) / MaxBri
	X := Y / y * x
	Z := Y / y * (1 - x - y)

	lin := mul(xyzToRGB, [3]float64{X, Y, Z})
	c := colorful.LinearRgb(lin[0], lin[1], lin[2])

	m := math.Max(c.R, math.Max(c.G, c.B))
	if m <= 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		return Black
	}

	return colorful.Color{R: c.R / m, G: c.G / m, B: c.B / m}.Clamped().Hex()
}

// HexToXYBri converts a hex color to CIE xy chromaticity and native bri.
// Black has no chromaticity and is reported as the D65 white point at bri 0.
func HexToXYBri(hex string) (x, y float64, bri int, err error) {
	c, err := ParseHex(hex)
	if err != nil {
		return 0, 0, 0, err
	}

	r, g, b := c.LinearRgb()
	xyz := mul(rgbToXYZ, [3]float64{r, g, b})

	sum := xyz[0] + xyz[1] + xyz[2]
	if sum == 0 {
		return whiteX, whiteY, 0, nil
	}

	x = round4(xyz[0] / sum)
	y = round4(xyz[1] / sum)
	bri = int(math.Round(math.Min(xyz[1], 1) * MaxBri))
	return x, y, bri, nil
}

// BriToPercent converts native brightness (0..254) to a percentage.
func BriToPercent(bri int) int {
	return int(math.Round(float64(clampInt(bri, 0, MaxBri)) * 100 / MaxBri))
}

// PercentToBri converts a percentage to native brightness.
func PercentToBri(percent int) int {
	return int(math.Round(float64(clampInt(percent, 0, 100)) * MaxBri / 100))
}

// MiredToKelvin converts a native color temperature to Kelvin. Zero or
// negative input yields zero.
func MiredToKelvin(mired int) int {
	if mired <= 0 {
		return 0
	}
	return int(math.Round(1e6 / float64(mired)))
}

// KelvinToMired converts Kelvin to a native color temperature.
func KelvinToMired(kelvin int) int {
	if kelvin <= 0 {
		return 0
	}
	return int(math.Round(1e6 / float64(kelvin)))
}

func mul(m [3][3]float64, v [3]float64) [3]float64 {
	var out [3]float64
	for i := range m {
		out[i] = m[i][0]*v[0] + m[i][1]*v[1] + m[i][2]*v[2]
	}
	return out
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
