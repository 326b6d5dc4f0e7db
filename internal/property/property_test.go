package property

import (
	"errors"
	"testing"

	"github.com/dokzlo13/hueadapter/internal/hue"
)

func light(state hue.State) *hue.Resource {
	return &hue.Resource{Name: "Lamp", Type: "Extended color light", State: state}
}

func TestBrightnessUpdate(t *testing.T) {
	p := Brightness()

	if !p.Update(light(hue.State{"bri": 127.0})) {
		t.Fatal("expected change")
	}
	if got := p.Value(); got != 50 {
		t.Errorf("level = %v, want 50", got)
	}

	if p.Update(light(hue.State{"bri": 127.0})) {
		t.Error("same value must not report a change")
	}
	if p.Update(light(hue.State{"bri": "bright"})) {
		t.Error("malformed bri must be ignored")
	}
	if p.Update(light(hue.State{})) {
		t.Error("missing bri must be ignored")
	}
	if got := p.Value(); got != 50 {
		t.Errorf("level = %v after ignored updates, want 50", got)
	}
}

func TestAccept(t *testing.T) {
	tests := []struct {
		name    string
		prop    *Property
		in      any
		want    any
		wantErr error
	}{
		{"level_rounds", Brightness(), 49.6, 50, nil},
		{"level_clamps_high", Brightness(), 150, 100, nil},
		{"level_clamps_low", Brightness(), -3, 0, nil},
		{"level_rejects_string", Brightness(), "50", nil, ErrInvalidValue},
		{"on_accepts_bool", OnOff(), true, true, nil},
		{"on_rejects_number", OnOff(), 1, nil, ErrInvalidValue},
		{"ct_clamps", ColorTemperature(), 10000.0, MaxKelvin, nil},
		{"color_normalizes", Color(EncodingHS), "#FF0000", "#ff0000", nil},
		{"color_rejects_garbage", Color(EncodingHS), "not-a-color", nil, ErrInvalidValue},
		{"color_mode_read_only", ColorMode(), ModeColor, nil, ErrReadOnly},
		{"presence_read_only", Presence(), true, nil, ErrReadOnly},
		{"battery_read_only", Battery(), 10, nil, ErrReadOnly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.prop.Accept(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Accept(%v) error = %v, want %v", tt.in, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Accept(%v) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Accept(%v) = %v (%T), want %v (%T)", tt.in, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestPatches(t *testing.T) {
	t.Run("on", func(t *testing.T) {
		patch := OnOff().Patch(false)
		if patch.On == nil || *patch.On {
			t.Errorf("patch = %+v, want on=false", patch)
		}
	})

	t.Run("level", func(t *testing.T) {
		patch := Brightness().Patch(50)
		if !*patch.On || *patch.Bri != 127 {
			t.Errorf("patch = %+v, want on=true bri=127", patch)
		}
	})

	t.Run("color_temperature", func(t *testing.T) {
		patch := ColorTemperature().Patch(2203)
		if !*patch.On || *patch.CT != 454 {
			t.Errorf("patch = %+v, want on=true ct=454", patch)
		}
	})

	t.Run("color_hs", func(t *testing.T) {
		patch := Color(EncodingHS).Patch("#ff0000")
		if !*patch.On || *patch.Hue != 0 || *patch.Sat != 254 || *patch.Bri != 254 || patch.XY != nil {
			t.Errorf("patch = %+v, want hue=0 sat=254 bri=254", patch)
		}
	})

	t.Run("color_xy", func(t *testing.T) {
		patch := Color(EncodingXY).Patch("#ff0000")
		if !*patch.On || patch.Hue != nil || len(patch.XY) != 2 || patch.Bri == nil {
			t.Fatalf("patch = %+v, want xy and bri", patch)
		}
		if patch.XY[0] != 0.7006 || patch.XY[1] != 0.2993 || *patch.Bri != 72 {
			t.Errorf("patch = %v/%d", patch.XY, *patch.Bri)
		}
	})
}

func TestColorRead(t *testing.T) {
	tests := []struct {
		name  string
		state hue.State
		want  any
	}{
		{"hs_mode", hue.State{"colormode": "hs", "hue": 0.0, "sat": 254.0, "bri": 254.0, "xy": []any{0.3, 0.3}}, "#ff0000"},
		{"xy_mode", hue.State{"colormode": "xy", "xy": []any{0.7006, 0.2993}, "bri": 72.0, "hue": 30000.0, "sat": 10.0}, "#ff0000"},
		{"hs_fallback", hue.State{"hue": 0.0, "sat": 254.0, "bri": 254.0}, "#ff0000"},
		{"no_bri", hue.State{"hue": 0.0, "sat": 254.0}, "#ffffff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Color(EncodingHS)
			p.Update(light(tt.state))
			if got := p.Value(); got != tt.want {
				t.Errorf("color = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestColorTemperatureRead(t *testing.T) {
	p := ColorTemperature()

	p.Update(light(hue.State{"ct": 0.0}))
	if got := p.Value(); got != MinKelvin {
		t.Errorf("ct=0 must be ignored, got %v", got)
	}

	p.Update(light(hue.State{"ct": 153.0}))
	if got := p.Value(); got != 6536 {
		t.Errorf("colorTemperature = %v, want 6536", got)
	}

	// Out of range mireds clamp to the declared bounds.
	p.Update(light(hue.State{"ct": 100.0}))
	if got := p.Value(); got != MaxKelvin {
		t.Errorf("colorTemperature = %v, want %d", got, MaxKelvin)
	}
}

func TestColorModeRead(t *testing.T) {
	p := ColorMode()
	p.Update(light(hue.State{"colormode": "ct"}))
	if p.Value() != ModeTemperature {
		t.Errorf("colorMode = %v", p.Value())
	}
	p.Update(light(hue.State{"colormode": "xy"}))
	if p.Value() != ModeColor {
		t.Errorf("colorMode = %v", p.Value())
	}
}

func TestSensorReads(t *testing.T) {
	r := &hue.Resource{
		State: hue.State{
			"presence":    true,
			"temperature": 2150.0,
			"lightlevel":  12000.0,
			"dark":        false,
			"daylight":    true,
			"lastupdated": "2024-01-01T10:00:00",
		},
		Config: hue.State{"battery": 87.0},
	}

	checks := []struct {
		prop *Property
		want any
	}{
		{Presence(), true},
		{Temperature(), 21.5},
		{LightLevel(), 12000},
		{Dark(), false},
		{Daylight(), true},
		{Battery(), 87},
		{LastUpdated(), "2024-01-01T10:00:00"},
	}

	for _, c := range checks {
		t.Run(c.prop.Name(), func(t *testing.T) {
			c.prop.Update(r)
			if got := c.prop.Value(); got != c.want {
				t.Errorf("%s = %v (%T), want %v", c.prop.Name(), got, got, c.want)
			}
		})
	}
}

func TestLastUpdatedDefault(t *testing.T) {
	p := LastUpdated()
	p.Update(&hue.Resource{State: hue.State{"lastupdated": "none"}})
	if p.Value() != LastUpdatedUnknown {
		t.Errorf("lastUpdated = %v, want %q", p.Value(), LastUpdatedUnknown)
	}
}

func TestButtonPressSemantics(t *testing.T) {
	snapshot := func(code int, ts string) *hue.Resource {
		return &hue.Resource{State: hue.State{"buttonevent": float64(code), "lastupdated": ts}}
	}

	on := Button("buttonOn", "On", CodeSet{1000, 1001, 1002, 1003})
	off := Button("buttonOff", "Off", CodeSet{4000, 4001, 4002, 4003})

	steps := []struct {
		name    string
		r       *hue.Resource
		wantOn  bool
		wantOff bool
	}{
		{"startup_does_not_replay", snapshot(1002, "t0"), false, false},
		{"new_press", snapshot(1002, "t1"), true, false},
		{"same_timestamp_not_again", snapshot(1002, "t1"), false, false},
		{"other_button", snapshot(4002, "t2"), false, true},
		{"same_button_new_timestamp", snapshot(4000, "t3"), false, true},
		{"unknown_code", snapshot(5002, "t4"), false, false},
	}

	for _, s := range steps {
		on.Update(s.r)
		off.Update(s.r)
		if on.Value() != s.wantOn || off.Value() != s.wantOff {
			t.Errorf("%s: on=%v off=%v, want on=%v off=%v", s.name, on.Value(), off.Value(), s.wantOn, s.wantOff)
		}
	}
}

func TestCodeRange(t *testing.T) {
	r := CodeRange{Start: 1000, Off: 1002}
	for code, want := range map[int]bool{999: false, 1000: true, 1001: true, 1002: false} {
		if got := r.Match(code); got != want {
			t.Errorf("Match(%d) = %v, want %v", code, got, want)
		}
	}
}
