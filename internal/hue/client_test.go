package hue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(strings.TrimPrefix(srv.URL, "http://"), time.Second)
}

func TestPair(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantUser string
		wantErr  error
	}{
		{
			name:     "success",
			body:     `[{"success":{"username":"abc123"}}]`,
			wantUser: "abc123",
		},
		{
			name:    "link_button_not_pressed",
			body:    `[{"error":{"type":101,"address":"/","description":"link button not pressed"}}]`,
			wantErr: ErrLinkButtonNotPressed,
		},
		{
			name:    "empty_array",
			body:    `[]`,
			wantErr: ErrEmptyResponse,
		},
		{
			name:    "success_without_username",
			body:    `[{"success":{}}]`,
			wantErr: ErrNoUsername,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBody map[string]string
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/api" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				json.NewDecoder(r.Body).Decode(&gotBody)
				w.Write([]byte(tt.body))
			})

			user, err := c.Pair(context.Background(), "hueadapter#test")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Pair() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Pair() unexpected error: %v", err)
			}
			if user != tt.wantUser {
				t.Errorf("Pair() = %q, want %q", user, tt.wantUser)
			}
			if gotBody["devicetype"] != "hueadapter#test" {
				t.Errorf("devicetype = %q", gotBody["devicetype"])
			}
		})
	}
}

func TestLightsNotFoundIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	lights, err := c.Lights(context.Background(), "user")
	if err != nil {
		t.Fatalf("Lights() error = %v", err)
	}
	if len(lights) != 0 {
		t.Errorf("Lights() = %v, want empty", lights)
	}

	sensors, err := c.Sensors(context.Background(), "user")
	if err != nil {
		t.Fatalf("Sensors() error = %v", err)
	}
	if len(sensors) != 0 {
		t.Errorf("Sensors() = %v, want empty", sensors)
	}
}

func TestLightsDecoding(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/user/lights" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"1": {"name":"Lamp","type":"Dimmable light","state":{"on":true,"bri":127}},
			"2": {"name":"Strip","type":"Extended color light","state":{"on":false,"bri":"bad","xy":[0.3,0.4]}},
			"3": "garbage"
		}`))
	})

	lights, err := c.Lights(context.Background(), "user")
	if err != nil {
		t.Fatalf("Lights() error = %v", err)
	}
	if len(lights) != 2 {
		t.Fatalf("Lights() returned %d entries, want 2", len(lights))
	}

	lamp := lights["1"]
	if lamp.Name != "Lamp" {
		t.Errorf("name = %q", lamp.Name)
	}
	if on, ok := lamp.State.Bool("on"); !ok || !on {
		t.Errorf("on = %v, %v", on, ok)
	}
	if bri, ok := lamp.State.Int("bri"); !ok || bri != 127 {
		t.Errorf("bri = %v, %v", bri, ok)
	}

	strip := lights["2"]
	if _, ok := strip.State.Int("bri"); ok {
		t.Error("malformed bri should be reported as absent")
	}
	if x, y, ok := strip.State.XY(); !ok || x != 0.3 || y != 0.4 {
		t.Errorf("xy = %v, %v, %v", x, y, ok)
	}
}

func TestLightsUnauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"error":{"type":1,"address":"/lights","description":"unauthorized user"}}]`))
	})

	_, err := c.Lights(context.Background(), "nope")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Lights() error = %v, want ErrUnauthorized", err)
	}
}

func TestLightsServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Lights(context.Background(), "user")
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("Lights() error = %v, want ErrUnexpectedStatus", err)
	}
}

func TestSetLightState(t *testing.T) {
	var gotPath, gotBody string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		w.Write([]byte(`[{"success":{"/lights/1/state/on":true}},{"error":{"type":201,"address":"/lights/1/state/bri","description":"device is off"}}]`))
	})

	patch := StatePatch{On: Bool(true), Hue: Int(0), Sat: Int(254), Bri: Int(254)}
	results, err := c.SetLightState(context.Background(), "user", "1", patch)
	if err != nil {
		t.Fatalf("SetLightState() error = %v", err)
	}

	if gotPath != "/api/user/lights/1/state" {
		t.Errorf("path = %q", gotPath)
	}
	if want := `{"on":true,"hue":0,"sat":254,"bri":254}`; gotBody != want {
		t.Errorf("body = %s, want %s", gotBody, want)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[1].Error == nil || results[1].Error.Type != ErrorTypeDeviceIsOff {
		t.Errorf("second result = %+v, want device-is-off error", results[1])
	}
}

func TestStatePatchMerge(t *testing.T) {
	base := StatePatch{On: Bool(true), Bri: Int(100)}
	merged := base.Merge(StatePatch{Bri: Int(200), CT: Int(300)})

	if *merged.Bri != 200 || *merged.CT != 300 || !*merged.On {
		t.Errorf("Merge() = %+v", merged)
	}
	if *base.Bri != 100 {
		t.Error("Merge() must not modify the receiver's fields")
	}
	if !(StatePatch{}).IsEmpty() || merged.IsEmpty() {
		t.Error("IsEmpty() mismatch")
	}
}

func TestResourcesIDs(t *testing.T) {
	r := Resources{"10": {}, "2": {}, "1": {}, "abc": {}}
	got := strings.Join(r.IDs(), ",")
	if got != "1,2,10,abc" {
		t.Errorf("IDs() = %s", got)
	}
}
