package sync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// PeerClient talks to another running instance over its data API. At startup
// a fresh instance prefers the peer's live state over its own local snapshot.
type PeerClient struct {
	baseURL string
	client  *http.Client
}

// NewPeerClient builds a client for the peer at baseURL.
func NewPeerClient(baseURL string, timeout time.Duration) *PeerClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PeerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Fetch downloads the peer's full state. Returns ErrNotFound when the peer
// has no data yet.
func (c *PeerClient) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/data", nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch peer state: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch peer state: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read peer state: %w", err)
	}
	return data, nil
}

// Push replaces the peer's full state.
func (c *PeerClient) Push(ctx context.Context, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/data", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("push peer state: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push peer state: unexpected status %d", resp.StatusCode)
	}
	return nil
}
