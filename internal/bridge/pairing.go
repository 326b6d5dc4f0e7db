package bridge

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/hueadapter/internal/hue"
	"github.com/dokzlo13/hueadapter/internal/ledger"
)

// StartPairing moves an unpaired session into the pairing state and retries
// the link-button handshake in the background until it succeeds, the
// timeout passes, CancelPairing is called or ctx is cancelled. There is no
// failed state; callers see the session drop back to unpaired.
func (s *Session) StartPairing(ctx context.Context, timeout time.Duration) {
	s.mu.Lock()
	if s.username != "" {
		s.mu.Unlock()
		return
	}
	s.pairing = true
	s.pairingDeadline = time.Now().Add(timeout)
	s.pairingGen++
	gen := s.pairingGen
	s.mu.Unlock()

	log.Info().Str("bridge", s.id).Dur("timeout", timeout).Msg("Pairing started, press the bridge link button")

	go s.pairLoop(ctx, gen)
}

// CancelPairing stops the retry loop. A request already in flight is not
// aborted; its result is discarded.
func (s *Session) CancelPairing() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pairing {
		log.Info().Str("bridge", s.id).Msg("Pairing cancelled")
	}
	s.pairing = false
	s.pairingGen++
}

// shouldPair reports whether attempt gen is still wanted.
func (s *Session) shouldPair(gen int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.pairingGen || s.username != "" {
		return false
	}
	if s.stateLocked(time.Now()) != StatePairing {
		s.pairing = false
		return false
	}
	return true
}

func (s *Session) pairLoop(ctx context.Context, gen int) {
	attempts := 0
	for s.shouldPair(gen) {
		attempts++
		username, err := s.client.Pair(ctx, s.cfg.DeviceType)
		if err == nil {
			s.completePairing(ctx, gen, username)
			return
		}

		event := log.Debug()
		if !errors.Is(err, hue.ErrLinkButtonNotPressed) {
			event = log.Warn()
		}
		event.Err(err).Str("bridge", s.id).Int("attempt", attempts).Msg("Pairing attempt failed")

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.PairingBackoff):
		}
	}

	if s.State() != StatePaired {
		log.Info().Str("bridge", s.id).Int("attempts", attempts).Msg("Pairing stopped without a username")
	}
}

func (s *Session) completePairing(ctx context.Context, gen int, username string) {
	s.mu.Lock()
	if gen != s.pairingGen || !s.pairing {
		s.mu.Unlock()
		log.Info().Str("bridge", s.id).Msg("Discarding pairing result after cancellation")
		return
	}
	s.username = username
	s.pairing = false
	s.mu.Unlock()

	if err := s.store.Save(ctx, s.id, username); err != nil {
		log.Warn().Err(err).Str("bridge", s.id).Msg("Failed to persist credential")
	}
	s.record(ledger.EventPairingSucceeded, nil)

	log.Info().Str("bridge", s.id).Msg("Paired with bridge")
	s.trigger()
}
