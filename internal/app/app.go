package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/hueadapter/internal/config"
)

// App is the main application container that manages all services and their lifecycle.
// It wires bridge sessions to the host gateway and owns the shutdown order.
type App struct {
	cfg      *config.Config
	services *Services
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a new App instance with all services initialized but not started.
func New(cfg *config.Config) (*App, error) {
	services, err := NewServices(cfg)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		services: services,
	}, nil
}

// Start starts all services. The provided context is used for cancellation.
func (a *App) Start(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)

	if err := a.services.Start(a.ctx); err != nil {
		return err
	}

	a.logSummary()
	return nil
}

func (a *App) logSummary() {
	event := log.Info().
		Strs("discovery", a.services.Discovery.Mechanisms()).
		Int("static_bridges", len(a.cfg.Discovery.Static)).
		Dur("poll_interval", a.cfg.Hue.PollInterval.Duration()).
		Bool("pair_on_start", a.cfg.Hue.ShouldPairOnStart()).
		Str("database", a.cfg.Database.Path)

	if a.cfg.MQTT.Enabled {
		event = event.Str("mqtt_broker", a.cfg.MQTT.Broker).Str("topic_prefix", a.cfg.MQTT.TopicPrefix)
	}
	if a.cfg.Healthcheck.Enabled {
		event = event.Int("health_port", a.cfg.Healthcheck.Port)
	}
	event.Msg("hueadapter started")
}

// Bridges returns the number of bridges registered so far.
func (a *App) Bridges() int {
	return len(a.services.Bridges.Registry.Sessions())
}

// Stop gracefully shuts down all services.
func (a *App) Stop() error {
	log.Info().Msg("Shutting down...")

	if a.cancel != nil {
		a.cancel()
	}

	if a.services != nil {
		return a.services.Stop()
	}

	return nil
}

// Wait blocks until the application context is cancelled.
func (a *App) Wait() {
	if a.ctx != nil {
		<-a.ctx.Done()
	}
}

// SignalContext creates a context that is cancelled when SIGINT or SIGTERM is received.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}
