package app

import (
	"context"

	"github.com/dokzlo13/hueadapter/internal/config"
	"github.com/dokzlo13/hueadapter/internal/credentials"
	"github.com/dokzlo13/hueadapter/internal/db"
	"github.com/dokzlo13/hueadapter/internal/eventbus"
	"github.com/dokzlo13/hueadapter/internal/gateway"
	"github.com/dokzlo13/hueadapter/internal/ledger"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB          *db.DB
	Ledger      *ledger.Ledger
	Credentials *credentials.SQLiteStore
	Bus         *eventbus.Bus

	// High-level services
	Bridges   *BridgeService
	Discovery *DiscoveryService
	Gateway   *GatewayService
	Health    *HealthService
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database

	s.Ledger = ledger.New(database.DB)
	s.Credentials = credentials.NewSQLiteStore(database.DB)
	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())

	host := gateway.NewBusHost(s.Bus)
	s.Bridges = NewBridgeService(cfg, s.Credentials, host, s.Ledger)
	s.Discovery = NewDiscoveryService(cfg, s.Bridges.Registry)
	s.Gateway = NewGatewayService(cfg, s.Bus, s.Bridges.Registry)
	s.Health = NewHealthService(cfg, s.Bridges.Registry)

	return s, nil
}

// Start starts all services in dependency order: the gateway subscribes
// before any bridge can announce a device, and discovery runs last.
func (s *Services) Start(ctx context.Context) error {
	s.Gateway.Start(ctx)
	s.Bridges.Start(ctx)
	s.Discovery.Start(ctx)
	s.Health.Start(ctx)
	return nil
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.Bridges != nil {
		s.Bridges.Close()
	}
	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
		defer cancel()
		s.Bus.Close(ctx)
	}
	if s.Gateway != nil {
		s.Gateway.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
