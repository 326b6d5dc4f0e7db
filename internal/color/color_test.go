package color

import (
	"math"
	"strconv"
	"testing"
)

func TestHSVToHex(t *testing.T) {
	tests := []struct {
		name          string
		hue, sat, bri int
		want          string
	}{
		{"red", 0, 254, 254, "#ff0000"},
		{"hue_wraps_at_max", 65535, 254, 254, "#ff0000"},
		{"green", 21845, 254, 254, "#00ff00"},
		{"blue", 43690, 254, 254, "#0000ff"},
		{"white", 0, 0, 254, "#ffffff"},
		{"off", 12000, 254, 0, "#000000"},
		{"clamped_input", -5, 999, 999, "#ff0000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HSVToHex(tt.hue, tt.sat, tt.bri); got != tt.want {
				t.Errorf("HSVToHex(%d, %d, %d) = %s, want %s", tt.hue, tt.sat, tt.bri, got, tt.want)
			}
		})
	}
}

func TestHexToHSV(t *testing.T) {
	tests := []struct {
		hex           string
		hue, sat, bri int
	}{
		{"#FF0000", 0, 254, 254},
		{"#ff0000", 0, 254, 254},
		{"ff0000", 0, 254, 254},
		{"#ffffff", 0, 0, 254},
		{"#000000", 0, 0, 0},
		{"#f00", 0, 254, 254},
	}

	for _, tt := range tests {
		t.Run(tt.hex, func(t *testing.T) {
			hue, sat, bri, err := HexToHSV(tt.hex)
			if err != nil {
				t.Fatalf("HexToHSV(%s) error = %v", tt.hex, err)
			}
			if hue != tt.hue || sat != tt.sat || bri != tt.bri {
				t.Errorf("HexToHSV(%s) = (%d, %d, %d), want (%d, %d, %d)", tt.hex, hue, sat, bri, tt.hue, tt.sat, tt.bri)
			}
		})
	}
}

func TestHexInvalid(t *testing.T) {
	for _, in := range []string{"", "#12", "#gggggg", "red"} {
		if _, _, _, err := HexToHSV(in); err == nil {
			t.Errorf("HexToHSV(%q) expected error", in)
		}
		if _, _, _, err := HexToXYBri(in); err == nil {
			t.Errorf("HexToXYBri(%q) expected error", in)
		}
	}
}

// Hex only carries 8 bits per channel, so hue loses precision on the way
// through. Brightness survives exactly and saturation does for vivid colors.
func TestHSVRoundTrip(t *testing.T) {
	const hueTolerance = 182 // one degree

	for hue := 0; hue <= MaxHue; hue += 997 {
		for _, sat := range []int{200, 230, 254} {
			for _, bri := range []int{200, 230, 254} {
				h, s, b, err := HexToHSV(HSVToHex(hue, sat, bri))
				if err != nil {
					t.Fatalf("HexToHSV error: %v", err)
				}
				dh := absInt(h - hue)
				if wrap := MaxHue + 1 - dh; wrap < dh {
					dh = wrap
				}
				if dh > hueTolerance || absInt(s-sat) > 1 || b != bri {
					t.Errorf("round trip (%d, %d, %d) -> (%d, %d, %d)", hue, sat, bri, h, s, b)
				}
			}
		}
	}
}

func TestHSVBrightnessExact(t *testing.T) {
	for bri := 0; bri <= MaxBri; bri++ {
		_, _, b, err := HexToHSV(HSVToHex(12000, 180, bri))
		if err != nil {
			t.Fatal(err)
		}
		if b != bri {
			t.Errorf("bri %d came back as %d", bri, b)
		}
	}
}

func TestHexHSVHexStable(t *testing.T) {
	for _, hex := range []string{"#ff8000", "#123456", "#80ff40", "#40c0ff", "#ffc896", "#010203", "#7f7f7f"} {
		hue, sat, bri, err := HexToHSV(hex)
		if err != nil {
			t.Fatal(err)
		}
		assertHexClose(t, hex, HSVToHex(hue, sat, bri))
	}
}

func TestXYBriKnownColors(t *testing.T) {
	tests := []struct {
		hex  string
		x, y float64
		bri  int
	}{
		{"#ff0000", 0.7006, 0.2993, 72},
		{"#00ff00", 0.1724, 0.7468, 170},
		{"#0000ff", 0.1355, 0.0399, 12},
		{"#ffffff", 0.3227, 0.3290, 254},
		{"#ff8000", 0.6112, 0.3750, 109},
	}

	for _, tt := range tests {
		t.Run(tt.hex, func(t *testing.T) {
			x, y, bri, err := HexToXYBri(tt.hex)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(x-tt.x) > 1e-4 || math.Abs(y-tt.y) > 1e-4 || bri != tt.bri {
				t.Errorf("HexToXYBri(%s) = (%v, %v, %d), want (%v, %v, %d)", tt.hex, x, y, bri, tt.x, tt.y, tt.bri)
			}
			if got := XYBriToHex(x, y, bri); got != tt.hex {
				t.Errorf("XYBriToHex(%v, %v, %d) = %s, want %s", x, y, bri, got, tt.hex)
			}
		})
	}
}

func TestXYBriRoundTrip(t *testing.T) {
	for _, x := range []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6} {
		for _, y := range []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6} {
			if x+y > 1 {
				continue
			}
			name := strconv.FormatFloat(x, 'f', 1, 64) + "_" + strconv.FormatFloat(y, 'f', 1, 64)
			t.Run(name, func(t *testing.T) {
				first := XYBriToHex(x, y, 200)
				x2, y2, bri2, err := HexToXYBri(first)
				if err != nil {
					t.Fatal(err)
				}
				assertHexClose(t, first, XYBriToHex(x2, y2, bri2))
			})
		}
	}
}

func TestXYBriEdgeCases(t *testing.T) {
	if got := XYBriToHex(0.3, 0, 100); got != Black {
		t.Errorf("y=0 gave %s, want black", got)
	}
	if got := XYBriToHex(0.5, 0.4, 0); got != Black {
		t.Errorf("bri=0 gave %s, want black", got)
	}

	x, y, bri, err := HexToXYBri("#000000")
	if err != nil {
		t.Fatal(err)
	}
	if bri != 0 || x <= 0 || y <= 0 {
		t.Errorf("black = (%v, %v, %d), want white point at bri 0", x, y, bri)
	}
}

func TestBrightnessPercentRoundTrip(t *testing.T) {
	for p := 0; p <= 100; p++ {
		if got := BriToPercent(PercentToBri(p)); absInt(got-p) > 1 {
			t.Errorf("percent %d came back as %d", p, got)
		}
	}
	if got := BriToPercent(127); got != 50 {
		t.Errorf("BriToPercent(127) = %d, want 50", got)
	}
	if got := PercentToBri(100); got != MaxBri {
		t.Errorf("PercentToBri(100) = %d, want %d", got, MaxBri)
	}
}

// A mired step near 6500K spans about 42K, so the best a round trip can do
// is land within half a step.
func TestKelvinRoundTrip(t *testing.T) {
	for k := 2203; k <= 6536; k++ {
		got := MiredToKelvin(KelvinToMired(k))
		tolerance := k*k/2000000 + 1
		if absInt(got-k) > tolerance {
			t.Errorf("kelvin %d came back as %d (tolerance %d)", k, got, tolerance)
		}
	}
	if MiredToKelvin(0) != 0 || KelvinToMired(0) != 0 {
		t.Error("zero input should yield zero")
	}
	if got := MiredToKelvin(153); got != 6536 {
		t.Errorf("MiredToKelvin(153) = %d, want 6536", got)
	}
}

func assertHexClose(t *testing.T, want, got string) {
	t.Helper()
	a, err := ParseHex(want)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ParseHex(got)
	if err != nil {
		t.Fatal(err)
	}
	ar, ag, ab := a.RGB255()
	br, bg, bb := b.RGB255()
	if absInt(int(ar)-int(br)) > 1 || absInt(int(ag)-int(bg)) > 1 || absInt(int(ab)-int(bb)) > 1 {
		t.Errorf("color %s drifted to %s", want, got)
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
