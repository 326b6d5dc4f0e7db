package discovery

import (
	"context"

	"github.com/amimof/huego"
)

// NUPnP asks the vendor cloud endpoint which bridges share this network's
// public address.
type NUPnP struct{}

func (NUPnP) Name() string { return "nupnp" }

func (NUPnP) Discover(ctx context.Context) ([]Bridge, error) {
	found, err := huego.DiscoverAllContext(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Bridge, 0, len(found))
	for _, b := range found {
		out = append(out, Bridge{ID: b.ID, IP: b.Host})
	}
	return out, nil
}
