package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when the remote snapshot does not exist yet.
	ErrNotFound = errors.New("remote snapshot not found")

	// ErrInsecureEndpoint is returned when a plain-HTTP endpoint is rejected.
	ErrInsecureEndpoint = errors.New("refusing to send credentials over plain HTTP")
)

// WebDAVClient uploads and downloads the state snapshot on a WebDAV share
// using HTTP Basic auth.
type WebDAVClient struct {
	baseURL  string
	username string
	password string
	filename string
	client   *http.Client
}

// WebDAVOptions configures a WebDAV client.
type WebDAVOptions struct {
	BaseURL    string
	Username   string
	Password   string
	Filename   string
	RequireTLS bool
	Timeout    time.Duration
}

// NewWebDAVClient validates the endpoint and builds a client. Plain-HTTP
// endpoints are rejected unless RequireTLS is disabled.
func NewWebDAVClient(opts WebDAVOptions) (*WebDAVClient, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse WebDAV URL: %w", err)
	}
	switch u.Scheme {
	case "https":
	case "http":
		if opts.RequireTLS {
			return nil, fmt.Errorf("%w: %s", ErrInsecureEndpoint, opts.BaseURL)
		}
	default:
		return nil, fmt.Errorf("unsupported WebDAV scheme %q", u.Scheme)
	}
	if opts.Filename == "" {
		return nil, errors.New("WebDAV filename is required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &WebDAVClient{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		username: opts.Username,
		password: opts.Password,
		filename: opts.Filename,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func (c *WebDAVClient) fileURL() string {
	return c.baseURL + "/" + url.PathEscape(c.filename)
}

// Upload writes the snapshot to the share via PUT.
func (c *WebDAVClient) Upload(ctx context.Context, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.fileURL(), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upload snapshot: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Download reads the snapshot from the share. A cache-busting query parameter
// defeats intermediary caches that ignore request headers. Returns ErrNotFound
// when the file does not exist.
func (c *WebDAVClient) Download(ctx context.Context) ([]byte, error) {
	target := fmt.Sprintf("%s?t=%d", c.fileURL(), time.Now().UnixMilli())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download snapshot: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("download snapshot: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read snapshot body: %w", err)
	}
	return data, nil
}
