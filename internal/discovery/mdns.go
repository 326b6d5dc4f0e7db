package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

// MDNS browses for _hue._tcp services for Timeout and reports every entry
// with a bridgeid TXT record.
type MDNS struct {
	Timeout time.Duration
}

func (m *MDNS) Name() string { return "mdns" }

func (m *MDNS) Discover(ctx context.Context) ([]Bridge, error) {
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("creating mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
		out  []Bridge
		wg   sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-entries:
				if !ok {
					return
				}
				b, valid := parseServiceEntry(entry)
				mu.Lock()
				if valid && !seen[b.ID] {
					seen[b.ID] = true
					out = append(out, b)
				}
				mu.Unlock()
			}
		}
	}()

	if err := resolver.Browse(ctx, "_hue._tcp", "local.", entries); err != nil {
		return nil, fmt.Errorf("browsing for bridges: %w", err)
	}

	<-ctx.Done()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	return out, nil
}

func parseServiceEntry(entry *zeroconf.ServiceEntry) (Bridge, bool) {
	var b Bridge
	if len(entry.AddrIPv4) > 0 {
		b.IP = entry.AddrIPv4[0].String()
	}
	for _, txt := range entry.Text {
		if key, value, ok := strings.Cut(txt, "="); ok && key == "bridgeid" {
			b.ID = value
		}
	}
	return b, b.ID != "" && b.IP != ""
}
