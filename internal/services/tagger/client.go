// Package tagger wraps the remote tag extraction service. It is a fallback:
// the pipeline only calls it when the offline parser found nothing and the
// identification response carried no inline tags.
package tagger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"subflow/internal/catalog"
	"subflow/internal/services"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	component          = "tagger"
)

// Client calls the tag extraction API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient constructs a tag extraction client.
func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type wireTags struct {
	Group      string `json:"group"`
	Source     string `json:"source"`
	Quality    string `json:"quality"`
	Resolution string `json:"resolution"`
	Season     int    `json:"season"`
	Episode    int    `json:"episode"`
}

// Extract returns the structured tags the service parsed from filename.
func (c *Client) Extract(ctx context.Context, filename string) (catalog.ReleaseTags, error) {
	var empty catalog.ReleaseTags
	if filename = strings.TrimSpace(filename); filename == "" {
		return empty, services.Wrap(services.ErrValidation, component, "extract", "empty filename", nil)
	}

	endpoint := fmt.Sprintf("%s/tags?%s", c.baseURL, url.Values{"filename": {filename}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return empty, services.Wrap(services.ErrNetwork, component, "extract", "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, services.Wrap(services.TransportMarker(err), component, "extract", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, services.Wrap(services.ErrNetwork, component, "extract", "read response", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return empty, services.Wrap(services.ErrNetwork, component, "extract",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var wire wireTags
	if err := json.Unmarshal(body, &wire); err != nil {
		return empty, services.Wrap(services.ErrNetwork, component, "extract", "decode response", err)
	}
	return catalog.ReleaseTags{
		Group:      wire.Group,
		Source:     wire.Source,
		Quality:    wire.Quality,
		Resolution: wire.Resolution,
		Season:     wire.Season,
		Episode:    wire.Episode,
	}, nil
}
