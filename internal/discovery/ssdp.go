package discovery

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/ipv4"
)

const (
	ssdpAddr = "239.255.255.250:1900"
	ssdpTTL  = 2

	searchRequest = "M-SEARCH * HTTP/1.1\r\n" +
		"HOST: " + ssdpAddr + "\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		"MX: 3\r\n" +
		"ST: ssdp:all\r\n\r\n"
)

// SSDP searches the local network with a multicast M-SEARCH and collects
// responses that carry a hue-bridgeid header.
type SSDP struct {
	Timeout time.Duration
}

func (s *SSDP) Name() string { return "ssdp" }

func (s *SSDP) Discover(ctx context.Context) ([]Bridge, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	dst, err := net.ResolveUDPAddr("udp4", ssdpAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := ipv4.NewPacketConn(conn).SetMulticastTTL(ssdpTTL); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetReadDeadline(deadline)

	stop := context.AfterFunc(ctx, func() { conn.SetReadDeadline(time.Now()) })
	defer stop()

	if _, err := conn.WriteTo([]byte(searchRequest), dst); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []Bridge
	buf := make([]byte, 2048)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return out, nil
			}
			return out, err
		}

		b, ok := parseSSDPResponse(buf[:n])
		if !ok || seen[b.ID] {
			continue
		}
		seen[b.ID] = true
		out = append(out, b)
	}
}

// parseSSDPResponse reads the bridge id and the host of the LOCATION url
// from a search response.
func parseSSDPResponse(data []byte) (Bridge, bool) {
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(data)), nil)
	if err != nil {
		return Bridge{}, false
	}
	resp.Body.Close()

	id := resp.Header.Get("Hue-Bridgeid")
	location := resp.Header.Get("Location")
	if id == "" || location == "" {
		return Bridge{}, false
	}

	u, err := url.Parse(location)
	if err != nil || u.Hostname() == "" {
		return Bridge{}, false
	}
	return Bridge{ID: id, IP: u.Hostname()}, true
}
