// Package namer wraps the remote movie identification service: given a
// candidate filename it returns ranked movie or episode identities,
// optionally with release tags embedded in the response.
package namer

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
	component          = "namer"
)

// Client calls the identification API.
type Client struct {
	apiKey     string
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

// WithBaseURL overrides the default API base (useful for tests).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
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

// NewClient constructs an identification client.
func NewClient(apiKey, baseURL string, opts ...Option) *Client {
	client := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Candidate is one ranked identification result. Tags is non-nil when the
// service embedded release tags in its answer, which lets the pipeline skip
// a separate tag extraction call.
type Candidate struct {
	Identity catalog.MovieIdentity
	Score    float64
	Tags     *catalog.ReleaseTags
}

type wireCandidate struct {
	IMDBID       string   `json:"imdb_id"`
	Title        string   `json:"title"`
	Year         int      `json:"year"`
	Kind         string   `json:"kind"`
	Season       int      `json:"season"`
	Episode      int      `json:"episode"`
	ParentIMDBID string   `json:"parent_imdb_id"`
	Score        float64  `json:"score"`
	Tags         *wireTag `json:"tags"`
}

type wireTag struct {
	Group      string `json:"group"`
	Source     string `json:"source"`
	Quality    string `json:"quality"`
	Resolution string `json:"resolution"`
	Season     int    `json:"season"`
	Episode    int    `json:"episode"`
}

type wireResponse struct {
	Data []wireCandidate `json:"data"`
}

// Identify resolves a filename (with optional directory context) to ranked
// identities. No match at all is ErrNotFound, a blocking failure the
// pipeline surfaces with a manual override path.
func (c *Client) Identify(ctx context.Context, query, dirContext string) ([]Candidate, error) {
	params := url.Values{"filename": {query}}
	if dirContext = strings.TrimSpace(dirContext); dirContext != "" && dirContext != "." {
		params.Set("context", dirContext)
	}
	return c.lookup(ctx, "identify", query, params)
}

// Search performs a free-text title search, used by the manual override
// flow when automatic identification failed.
func (c *Client) Search(ctx context.Context, title string) ([]Candidate, error) {
	return c.lookup(ctx, "search", title, url.Values{"query": {title}})
}

func (c *Client) lookup(ctx context.Context, op, query string, params url.Values) ([]Candidate, error) {
	if c.apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, component, op, "api key is not configured", nil)
	}
	if query = strings.TrimSpace(query); query == "" {
		return nil, services.Wrap(services.ErrValidation, component, op, "empty query", nil)
	}

	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, op, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrNetwork, component, op, "build request", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.TransportMarker(err), component, op, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrNetwork, component, op, "read response", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, services.Wrap(services.ErrNotFound, component, op, "no match for "+query, nil)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, services.Wrap(services.ErrConfiguration, component, op, "api key rejected", nil)
	case resp.StatusCode >= http.StatusMultipleChoices:
		return nil, services.Wrap(services.ErrNetwork, component, op,
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, services.Wrap(services.ErrNetwork, component, op, "decode response", err)
	}
	if len(wire.Data) == 0 {
		return nil, services.Wrap(services.ErrNotFound, component, op, "no match for "+query, nil)
	}

	candidates := make([]Candidate, 0, len(wire.Data))
	for _, w := range wire.Data {
		candidates = append(candidates, fromWire(w))
	}
	return candidates, nil
}

func fromWire(w wireCandidate) Candidate {
	kind := catalog.IdentityMovie
	if strings.EqualFold(w.Kind, string(catalog.IdentityEpisode)) {
		kind = catalog.IdentityEpisode
	}
	cand := Candidate{
		Identity: catalog.MovieIdentity{
			IMDBID:       w.IMDBID,
			Title:        w.Title,
			Year:         w.Year,
			Kind:         kind,
			Season:       w.Season,
			Episode:      w.Episode,
			ParentIMDBID: w.ParentIMDBID,
		},
		Score: w.Score,
	}
	if w.Tags != nil {
		cand.Tags = &catalog.ReleaseTags{
			Group:      w.Tags.Group,
			Source:     w.Tags.Source,
			Quality:    w.Tags.Quality,
			Resolution: w.Tags.Resolution,
			Season:     w.Tags.Season,
			Episode:    w.Tags.Episode,
		}
	}
	return cand
}
