package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/hueadapter/internal/bridge"
	"github.com/dokzlo13/hueadapter/internal/config"
	"github.com/dokzlo13/hueadapter/internal/credentials"
	"github.com/dokzlo13/hueadapter/internal/device"
	"github.com/dokzlo13/hueadapter/internal/ledger"
	"github.com/dokzlo13/hueadapter/internal/registry"
)

// BridgeService owns the registry and runs one poll loop per bridge.
type BridgeService struct {
	cfg      *config.Config
	Registry *registry.Registry
	ledger   *ledger.Ledger

	mu      sync.Mutex
	ctx     context.Context
	pending []*bridge.Session
	wg      sync.WaitGroup
}

// NewBridgeService creates the registry. Sessions reported before Start
// are held back until Start is called.
func NewBridgeService(cfg *config.Config, store credentials.Store, host device.Host, l *ledger.Ledger) *BridgeService {
	s := &BridgeService{cfg: cfg, ledger: l}

	sessionCfg := bridge.Config{
		DeviceType:     cfg.Hue.DeviceType,
		Timeout:        cfg.Hue.Timeout.Duration(),
		PollInterval:   cfg.Hue.PollInterval.Duration(),
		PairingBackoff: cfg.Hue.PairingBackoff.Duration(),
		WriteRateLimit: cfg.Hue.WriteRateLimit,
		ColorEncoding:  cfg.Hue.ColorEncoding,
		ButtonPolicy:   cfg.Hue.ButtonPolicy,
	}

	var recorder bridge.Recorder
	if l != nil {
		recorder = l
	}

	factory := func(id, ip string) *bridge.Session {
		return bridge.New(id, ip, sessionCfg, store, host, recorder)
	}
	s.Registry = registry.New(factory, s.launch)
	return s
}

// Start runs held-back sessions and the ledger cleanup.
func (s *BridgeService) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, sess := range pending {
		s.run(ctx, sess)
	}

	if s.ledger != nil {
		go s.runLedgerCleanup(ctx)
	}
}

func (s *BridgeService) launch(sess *bridge.Session) {
	s.mu.Lock()
	ctx := s.ctx
	if ctx == nil {
		s.pending = append(s.pending, sess)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.run(ctx, sess)
}

func (s *BridgeService) run(ctx context.Context, sess *bridge.Session) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		sess.Init(ctx)
		if sess.State() == bridge.StateUnpaired && s.cfg.Hue.ShouldPairOnStart() {
			sess.StartPairing(ctx, s.cfg.Hue.PairingTimeout.Duration())
		}

		if err := sess.Run(ctx); err != nil {
			log.Error().Err(err).Str("bridge", sess.ID()).Msg("Bridge poll loop error")
		}
	}()
}

// runLedgerCleanup periodically removes old ledger entries.
func (s *BridgeService) runLedgerCleanup(ctx context.Context) {
	retention := time.Duration(s.cfg.Ledger.RetentionDays) * 24 * time.Hour
	interval := s.cfg.Ledger.CleanupInterval.Duration()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.ledger.DeleteOlderThan(retention)
			if err != nil {
				log.Error().Err(err).Msg("Failed to cleanup old ledger entries")
			} else if deleted > 0 {
				log.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("Cleaned up old ledger entries")
			}
		}
	}
}

// Close waits for the poll loops to exit, then releases the sessions.
func (s *BridgeService) Close() {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.cfg.GetShutdownTimeout()):
		log.Warn().Msg("Bridge loops did not stop in time")
	}
	s.Registry.Close()
}
