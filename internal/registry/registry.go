// Package registry maps bridge ids to their sessions. Discovery mechanisms
// report bridges independently; the registry keeps the first report of each
// id and ignores the rest.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/hueadapter/internal/bridge"
	"github.com/dokzlo13/hueadapter/internal/device"
)

// ErrUnknownDevice is returned when no session owns the requested device.
var ErrUnknownDevice = errors.New("unknown device")

// Factory builds the session for a newly reported bridge.
type Factory func(id, ip string) *bridge.Session

// Registry owns all bridge sessions for the lifetime of the process.
type Registry struct {
	factory Factory
	onAdd   func(*bridge.Session)

	mu       sync.RWMutex
	sessions map[string]*bridge.Session
}

// New creates a registry. onAdd runs once per new session, outside the
// registry lock, and is typically used to start the session's loops.
func New(factory Factory, onAdd func(*bridge.Session)) *Registry {
	return &Registry{
		factory:  factory,
		onAdd:    onAdd,
		sessions: make(map[string]*bridge.Session),
	}
}

// Add registers a bridge reported by discovery. The id is lowercased. If the
// id is already known the report is ignored, even when the address differs,
// and false is returned.
func (r *Registry) Add(id, ip string) bool {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" || ip == "" {
		return false
	}

	r.mu.Lock()
	if existing, ok := r.sessions[id]; ok {
		r.mu.Unlock()
		if existing.IP() != ip {
			log.Debug().Str("bridge", id).Str("ip", ip).Str("known_ip", existing.IP()).Msg("Ignoring new address for known bridge")
		}
		return false
	}
	s := r.factory(id, ip)
	r.sessions[id] = s
	r.mu.Unlock()

	log.Info().Str("bridge", id).Str("ip", ip).Msg("Bridge registered")

	if r.onAdd != nil {
		r.onAdd(s)
	}
	return true
}

// Session returns the session for a bridge id.
func (r *Registry) Session(id string) (*bridge.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[strings.ToLower(id)]
	return s, ok
}

// Sessions returns all sessions ordered by bridge id.
func (r *Registry) Sessions() []*bridge.Session {
	r.mu.RLock()
	out := make([]*bridge.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Device finds a device by its global id across all bridges.
func (r *Registry) Device(deviceID string) (*device.Device, bool) {
	for _, s := range r.Sessions() {
		if d, ok := s.Device(deviceID); ok {
			return d, true
		}
	}
	return nil, false
}

// SetProperty routes a host write to the owning device.
func (r *Registry) SetProperty(ctx context.Context, deviceID, name string, value any) (any, error) {
	d, ok := r.Device(deviceID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID)
	}
	return d.SetProperty(ctx, name, value)
}

// StartPairing starts pairing on every unpaired bridge.
func (r *Registry) StartPairing(ctx context.Context, timeout time.Duration) {
	for _, s := range r.Sessions() {
		s.StartPairing(ctx, timeout)
	}
}

// CancelPairing stops pairing on every bridge.
func (r *Registry) CancelPairing() {
	for _, s := range r.Sessions() {
		s.CancelPairing()
	}
}

// Close releases every session.
func (r *Registry) Close() {
	for _, s := range r.Sessions() {
		if err := s.Close(); err != nil {
			log.Warn().Err(err).Str("bridge", s.ID()).Msg("Failed to close bridge session")
		}
	}
}
