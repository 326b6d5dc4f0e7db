package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dokzlo13/hueadapter/internal/bridge"
	"github.com/dokzlo13/hueadapter/internal/credentials"
)

func newFactory(cfg bridge.Config, store credentials.Store) Factory {
	return func(id, ip string) *bridge.Session {
		return bridge.New(id, ip, cfg, store, nil, nil)
	}
}

func TestAddFirstReporterWins(t *testing.T) {
	var mu sync.Mutex
	var added []string
	r := New(newFactory(bridge.Config{}, nil), func(s *bridge.Session) {
		mu.Lock()
		defer mu.Unlock()
		added = append(added, s.ID()+"@"+s.IP())
	})

	if !r.Add("001788FFFE0A1B2C", "192.168.1.10") {
		t.Fatal("first Add() = false, want true")
	}
	if r.Add("001788fffe0a1b2c", "192.168.1.99") {
		t.Error("duplicate Add() with new ip = true, want false")
	}
	if r.Add("001788fffe0a1b2c", "192.168.1.10") {
		t.Error("duplicate Add() = true, want false")
	}

	s, ok := r.Session("001788FFFE0A1B2C")
	if !ok {
		t.Fatal("Session() not found")
	}
	if s.IP() != "192.168.1.10" {
		t.Errorf("IP() = %q, want the first reported address", s.IP())
	}
	if len(added) != 1 || added[0] != "001788fffe0a1b2c@192.168.1.10" {
		t.Errorf("onAdd calls = %v", added)
	}
}

func TestAddRejectsEmpty(t *testing.T) {
	r := New(newFactory(bridge.Config{}, nil), nil)
	if r.Add("", "10.0.0.1") || r.Add("abc", "") {
		t.Error("Add() accepted an empty id or ip")
	}
	if len(r.Sessions()) != 0 {
		t.Errorf("Sessions() = %d, want 0", len(r.Sessions()))
	}
}

func TestConcurrentAdd(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	r := New(newFactory(bridge.Config{}, nil), func(*bridge.Session) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Add("bridge-a", "10.0.0.1")
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Errorf("onAdd called %d times, want 1", calls)
	}
}

func TestSetPropertyRouting(t *testing.T) {
	var puts []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			if strings.HasSuffix(req.URL.Path, "/lights") {
				w.Write([]byte(`{"1":{"name":"Lamp","type":"Dimmable light","state":{"on":false,"bri":10}}}`))
				return
			}
			http.NotFound(w, req)
		case http.MethodPut:
			mu.Lock()
			puts = append(puts, req.URL.Path)
			mu.Unlock()
			w.Write([]byte(`[{"success":{}}]`))
		}
	}))
	defer srv.Close()

	store := credentials.NewMemoryStore()
	store.Save(context.Background(), "bridge-a", "user")

	r := New(newFactory(bridge.Config{Timeout: time.Second}, store), nil)
	r.Add("bridge-a", strings.TrimPrefix(srv.URL, "http://"))

	s, _ := r.Session("bridge-a")
	s.Init(context.Background())
	if err := s.Poll(context.Background()); err != nil {
		t.Fatal(err)
	}

	got, err := r.SetProperty(context.Background(), "philips-hue-bridge-a-1", "on", true)
	if err != nil {
		t.Fatalf("SetProperty() error = %v", err)
	}
	if got != true {
		t.Errorf("SetProperty() = %v, want true", got)
	}
	if len(puts) != 1 || puts[0] != "/api/user/lights/1/state" {
		t.Errorf("PUTs = %v", puts)
	}

	if _, err := r.SetProperty(context.Background(), "philips-hue-bridge-a-9", "on", true); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("SetProperty() on missing device error = %v, want ErrUnknownDevice", err)
	}
}

func TestPairingFanOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`[{"error":{"type":101,"address":"/","description":"link button not pressed"}}]`))
	}))
	defer srv.Close()
	ip := strings.TrimPrefix(srv.URL, "http://")

	store := credentials.NewMemoryStore()
	store.Save(context.Background(), "paired", "user")

	r := New(newFactory(bridge.Config{Timeout: time.Second, PairingBackoff: 10 * time.Millisecond}, store), func(s *bridge.Session) {
		s.Init(context.Background())
	})
	r.Add("paired", ip)
	r.Add("fresh", ip)

	r.StartPairing(context.Background(), time.Minute)
	states := map[string]bridge.State{}
	for _, s := range r.Sessions() {
		states[s.ID()] = s.State()
	}
	if states["paired"] != bridge.StatePaired || states["fresh"] != bridge.StatePairing {
		t.Errorf("states after StartPairing = %v", states)
	}

	r.CancelPairing()
	if s, _ := r.Session("fresh"); s.State() != bridge.StateUnpaired {
		t.Errorf("fresh state after CancelPairing = %v, want unpaired", s.State())
	}
}
