// Package discovery finds bridges on the network. Each mechanism reports
// what it sees; de-duplication is left to the caller.
package discovery

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Bridge is one discovery result.
type Bridge struct {
	ID string
	IP string
}

// Sink receives discovered bridges. It may be called concurrently by
// different mechanisms.
type Sink func(id, ip string)

// Discoverer runs one discovery round.
type Discoverer interface {
	Name() string
	Discover(ctx context.Context) ([]Bridge, error)
}

// Run calls d every interval until ctx is cancelled and hands every result
// to sink. A non-positive interval runs a single round. Errors are logged
// and the next round is scheduled as usual.
func Run(ctx context.Context, d Discoverer, interval time.Duration, sink Sink) {
	for {
		bridges, err := d.Discover(ctx)
		if err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Str("mechanism", d.Name()).Msg("Bridge discovery failed")
		}
		for _, b := range bridges {
			if b.ID == "" || b.IP == "" {
				continue
			}
			log.Debug().Str("mechanism", d.Name()).Str("bridge", b.ID).Str("ip", b.IP).Msg("Bridge discovered")
			sink(b.ID, b.IP)
		}

		if interval <= 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// Static reports a fixed list of bridges.
type Static []Bridge

func (Static) Name() string { return "static" }

func (s Static) Discover(context.Context) ([]Bridge, error) {
	return append([]Bridge(nil), s...), nil
}
