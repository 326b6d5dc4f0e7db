package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/hueadapter/internal/bridge"
	"github.com/dokzlo13/hueadapter/internal/config"
	"github.com/dokzlo13/hueadapter/internal/registry"
)

// HealthService provides HTTP health check endpoints.
type HealthService struct {
	cfg      *config.Config
	registry *registry.Registry
	server   *http.Server
}

// NewHealthService creates a new HealthService.
func NewHealthService(cfg *config.Config, r *registry.Registry) *HealthService {
	return &HealthService{
		cfg:      cfg,
		registry: r,
	}
}

// BridgeStatus is one entry of the /ready response.
type BridgeStatus struct {
	ID      string `json:"id"`
	IP      string `json:"ip"`
	State   string `json:"state"`
	Paired  bool   `json:"paired"`
	Devices int    `json:"devices"`
}

// Start begins the health check server if enabled.
func (s *HealthService) Start(ctx context.Context) {
	if !s.cfg.Healthcheck.Enabled {
		return
	}

	go s.run(ctx)
}

func (s *HealthService) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		bridges := []BridgeStatus{}
		for _, sess := range s.registry.Sessions() {
			state := sess.State()
			bridges = append(bridges, BridgeStatus{
				ID:      sess.ID(),
				IP:      sess.IP(),
				State:   state.String(),
				Paired:  state == bridge.StatePaired,
				Devices: sess.DeviceCount(),
			})
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":  "ready",
			"bridges": bridges,
		})
	})

	return mux
}

func (s *HealthService) run(ctx context.Context) {
	addr := fmt.Sprintf("%s:%d", s.cfg.Healthcheck.Host, s.cfg.Healthcheck.Port)

	s.server = &http.Server{
		Addr:    addr,
		Handler: s.handler(),
	}

	log.Info().Str("addr", addr).Msg("Starting health check server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Health check server shutdown error")
		}
	}()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("Health check server error")
	}
}
