package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/hueadapter/internal/config"
	"github.com/dokzlo13/hueadapter/internal/eventbus"
	"github.com/dokzlo13/hueadapter/internal/gateway"
	"github.com/dokzlo13/hueadapter/internal/mqtt"
	"github.com/dokzlo13/hueadapter/internal/registry"
)

// GatewayService connects the event bus to the MQTT broker.
type GatewayService struct {
	cfg      *config.Config
	bus      *eventbus.Bus
	registry *registry.Registry
	client   *mqtt.Client
}

// NewGatewayService creates a new GatewayService.
func NewGatewayService(cfg *config.Config, bus *eventbus.Bus, r *registry.Registry) *GatewayService {
	return &GatewayService{cfg: cfg, bus: bus, registry: r}
}

// Start connects to the broker. A broker that cannot be reached disables
// the gateway; bridges keep running.
func (s *GatewayService) Start(ctx context.Context) {
	mc := s.cfg.MQTT
	if !mc.Enabled {
		log.Info().Msg("MQTT gateway is disabled")
		return
	}

	client, err := mqtt.Connect(mqtt.Options{
		Broker:      mc.Broker,
		ClientID:    mc.ClientID,
		Username:    mc.Username,
		Password:    mc.Password,
		QoS:         mc.GetQoS(),
		StatusTopic: mc.TopicPrefix + "/$status",
	})
	if err != nil {
		log.Error().Err(err).Str("broker", mc.Broker).Msg("MQTT gateway unavailable")
		return
	}
	s.client = client

	gw := gateway.NewMQTTGateway(client, s.registry, mc.TopicPrefix)
	gw.RegisterHandlers(s.bus)
	if err := gw.Start(ctx); err != nil {
		log.Error().Err(err).Msg("MQTT gateway cannot accept writes")
	}
}

// Close disconnects from the broker.
func (s *GatewayService) Close() {
	if s.client != nil {
		s.client.Close()
	}
}
