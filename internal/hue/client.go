package hue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Client talks to the v1 REST API of a single bridge.
type Client struct {
	address    string
	httpClient *http.Client
}

// NewClient creates a new Hue client for the bridge at address (host or host:port).
func NewClient(address string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		address: address,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Address returns the bridge address
func (c *Client) Address() string {
	return c.address
}

// Close closes idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) url(path string) string {
	return fmt.Sprintf("http://%s/api%s", c.address, path)
}

func (c *Client) request(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

// Pair performs a single pairing attempt. The bridge only issues a username
// while its link button is pressed; otherwise the returned error matches
// ErrLinkButtonNotPressed.
func (c *Client) Pair(ctx context.Context, deviceType string) (string, error) {
	resp, err := c.request(ctx, http.MethodPost, "", map[string]string{"devicetype": deviceType})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var results []Result
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return "", fmt.Errorf("failed to decode pairing response: %w", err)
	}

	if len(results) == 0 {
		return "", ErrEmptyResponse
	}

	first := results[0]
	if first.Error != nil {
		return "", first.Error
	}

	username, _ := first.Success["username"].(string)
	if username == "" {
		return "", ErrNoUsername
	}

	return username, nil
}

// Lights returns all lights known to the bridge.
func (c *Client) Lights(ctx context.Context, username string) (Resources, error) {
	return c.collection(ctx, username, "lights")
}

// Sensors returns all sensors known to the bridge.
func (c *Client) Sensors(ctx context.Context, username string) (Resources, error) {
	return c.collection(ctx, username, "sensors")
}

// collection treats a missing collection as empty. Older firmware lacks some
// of them.
func (c *Client) collection(ctx context.Context, username, name string) (Resources, error) {
	res, err := c.resources(ctx, username, name)
	if errors.Is(err, ErrNotFound) {
		log.Debug().Str("bridge", c.address).Str("collection", name).Msg("Collection not available, treating as empty")
		return Resources{}, nil
	}
	return res, err
}

// resources fetches an id -> description collection. Entries that fail to
// decode are skipped.
func (c *Client) resources(ctx context.Context, username, collection string) (Resources, error) {
	resp, err := c.request(ctx, http.MethodGet, "/"+username+"/"+collection, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// Errors such as an unknown username come back as a result array.
		var results []Result
		if json.Unmarshal(data, &results) == nil && len(results) > 0 && results[0].Error != nil {
			return nil, results[0].Error
		}
		return nil, fmt.Errorf("failed to decode %s: %w", collection, err)
	}

	out := make(Resources, len(raw))
	for id, entry := range raw {
		var r Resource
		if err := json.Unmarshal(entry, &r); err != nil {
			log.Warn().
				Err(err).
				Str("bridge", c.address).
				Str("collection", collection).
				Str("native_id", id).
				Msg("Skipping malformed entry")
			continue
		}
		if r.State == nil {
			r.State = State{}
		}
		out[id] = r
	}

	return out, nil
}

// SetLightState sends a partial state to a light and returns the per-field results.
func (c *Client) SetLightState(ctx context.Context, username, lightID string, patch StatePatch) ([]Result, error) {
	resp, err := c.request(ctx, http.MethodPut, fmt.Sprintf("/%s/lights/%s/state", username, lightID), patch)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, string(body))
	}

	var results []Result
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode light state response: %w", err)
	}

	return results, nil
}
