package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/hueadapter/internal/config"
	"github.com/dokzlo13/hueadapter/internal/discovery"
	"github.com/dokzlo13/hueadapter/internal/registry"
)

// DiscoveryService runs the enabled discovery mechanisms and feeds the registry.
type DiscoveryService struct {
	cfg      *config.Config
	registry *registry.Registry
}

// NewDiscoveryService creates a new DiscoveryService.
func NewDiscoveryService(cfg *config.Config, r *registry.Registry) *DiscoveryService {
	return &DiscoveryService{cfg: cfg, registry: r}
}

type mechanism struct {
	d        discovery.Discoverer
	interval time.Duration
}

func (s *DiscoveryService) mechanisms() []mechanism {
	dc := s.cfg.Discovery

	var out []mechanism
	if len(dc.Static) > 0 {
		static := make(discovery.Static, 0, len(dc.Static))
		for _, b := range dc.Static {
			static = append(static, discovery.Bridge{ID: b.ID, IP: b.IP})
		}
		out = append(out, mechanism{d: static})
	}
	if dc.SSDP.IsEnabled() {
		out = append(out, mechanism{
			d:        &discovery.SSDP{Timeout: dc.SSDP.Timeout.Duration()},
			interval: dc.SSDP.Interval.Duration(),
		})
	}
	if dc.NUPnP.IsEnabled() {
		out = append(out, mechanism{d: discovery.NUPnP{}, interval: dc.NUPnP.Interval.Duration()})
	}
	if dc.MDNS.Enabled {
		out = append(out, mechanism{
			d:        &discovery.MDNS{Timeout: dc.MDNS.Timeout.Duration()},
			interval: dc.MDNS.Interval.Duration(),
		})
	}
	return out
}

// Mechanisms returns the names of the enabled discovery mechanisms.
func (s *DiscoveryService) Mechanisms() []string {
	var names []string
	for _, m := range s.mechanisms() {
		names = append(names, m.d.Name())
	}
	return names
}

// Start launches one goroutine per enabled mechanism.
func (s *DiscoveryService) Start(ctx context.Context) {
	ms := s.mechanisms()
	if len(ms) == 0 {
		log.Warn().Msg("No discovery mechanism enabled, no bridges will be found")
		return
	}

	sink := func(id, ip string) { s.registry.Add(id, ip) }
	for _, m := range ms {
		log.Info().Str("mechanism", m.d.Name()).Dur("interval", m.interval).Msg("Starting bridge discovery")
		go discovery.Run(ctx, m.d, m.interval, sink)
	}
}
