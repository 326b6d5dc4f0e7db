// Package bridge owns the connection to one physical bridge: its credential,
// the pairing state machine and the polling loop that keeps devices in sync.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/hueadapter/internal/credentials"
	"github.com/dokzlo13/hueadapter/internal/device"
	"github.com/dokzlo13/hueadapter/internal/hue"
	"github.com/dokzlo13/hueadapter/internal/ledger"
)

// ErrNotPaired is returned by operations that need a username.
var ErrNotPaired = errors.New("bridge not paired")

// State is the pairing state of a session.
type State int

const (
	StateUnpaired State = iota
	StatePairing
	StatePaired
)

func (s State) String() string {
	switch s {
	case StateUnpaired:
		return "unpaired"
	case StatePairing:
		return "pairing"
	case StatePaired:
		return "paired"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Config holds per-session settings.
type Config struct {
	DeviceType     string
	Timeout        time.Duration
	PollInterval   time.Duration
	PairingBackoff time.Duration
	WriteRateLimit float64 // PUTs per second
	ColorEncoding  string  // auto, hs or xy
	ButtonPolicy   string  // codes or range
}

func (c Config) withDefaults() Config {
	if c.DeviceType == "" {
		c.DeviceType = "hueadapter#gateway"
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.PairingBackoff <= 0 {
		c.PairingBackoff = time.Second
	}
	if c.WriteRateLimit <= 0 {
		c.WriteRateLimit = 10
	}
	if c.ColorEncoding == "" {
		c.ColorEncoding = device.EncodingAuto
	}
	if c.ButtonPolicy == "" {
		c.ButtonPolicy = device.ButtonPolicyCodes
	}
	return c
}

// Recorder receives audit events. *ledger.Ledger implements it.
type Recorder interface {
	Append(eventType ledger.EventType, source string, payload map[string]any) error
}

// Session is the adapter's view of one bridge.
type Session struct {
	id  string
	ip  string
	cfg Config

	client  *hue.Client
	store   credentials.Store
	host    device.Host
	events  Recorder
	limiter *rate.Limiter

	mu              sync.Mutex
	username        string
	pairing         bool
	pairingDeadline time.Time
	pairingGen      int
	devices         map[string]*device.Device // "lights/1", "sensors/5"
	byID            map[string]*device.Device
	unknownTypes    map[string]bool

	wake chan struct{}
}

// New creates a session for the bridge at ip. events may be nil.
func New(id, ip string, cfg Config, store credentials.Store, host device.Host, events Recorder) *Session {
	cfg = cfg.withDefaults()

	if store == nil {
		store = credentials.NewMemoryStore()
	}

	return &Session{
		id:           id,
		ip:           ip,
		cfg:          cfg,
		client:       hue.NewClient(ip, cfg.Timeout),
		store:        store,
		host:         host,
		events:       events,
		limiter:      rate.NewLimiter(rate.Limit(cfg.WriteRateLimit), max(1, int(cfg.WriteRateLimit))),
		devices:      make(map[string]*device.Device),
		byID:         make(map[string]*device.Device),
		unknownTypes: make(map[string]bool),
		wake:         make(chan struct{}, 1),
	}
}

// ID returns the bridge id.
func (s *Session) ID() string { return s.id }

// IP returns the bridge address.
func (s *Session) IP() string { return s.ip }

// Init loads a stored credential. A failing store counts as no credential.
func (s *Session) Init(ctx context.Context) {
	username, err := s.store.Load(ctx, s.id)
	if err != nil {
		log.Warn().Err(err).Str("bridge", s.id).Msg("Failed to load credential")
		username = ""
	}

	s.mu.Lock()
	if s.username == "" {
		s.username = username
	}
	paired := s.username != ""
	s.mu.Unlock()

	if paired {
		log.Info().Str("bridge", s.id).Str("ip", s.ip).Msg("Loaded bridge credential")
	} else {
		log.Warn().Str("bridge", s.id).Str("ip", s.ip).Msg("No username for bridge, press the link button to pair")
	}
}

// Username returns the credential, or "" when unpaired.
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// State returns the current pairing state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked(time.Now())
}

func (s *Session) stateLocked(now time.Time) State {
	switch {
	case s.username != "":
		return StatePaired
	case s.pairing && now.Before(s.pairingDeadline):
		return StatePairing
	}
	return StateUnpaired
}

// Device returns a device by its global id.
func (s *Session) Device(id string) (*device.Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.byID[id]
	return d, ok
}

// Devices returns all devices ordered by id.
func (s *Session) Devices() []*device.Device {
	s.mu.Lock()
	out := make([]*device.Device, 0, len(s.byID))
	for _, d := range s.byID {
		out = append(out, d)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// DeviceCount returns the number of devices created so far.
func (s *Session) DeviceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// Close releases the HTTP client.
func (s *Session) Close() error {
	return s.client.Close()
}

func (s *Session) record(eventType ledger.EventType, payload map[string]any) {
	if s.events == nil {
		return
	}
	if err := s.events.Append(eventType, s.id, payload); err != nil {
		log.Warn().Err(err).Str("bridge", s.id).Str("event_type", string(eventType)).Msg("Failed to record ledger event")
	}
}

// trigger asks the poll loop to run now.
func (s *Session) trigger() {
	select {
	case s.wake <- struct{}{}:
	default:
		// Already triggered
	}
}
