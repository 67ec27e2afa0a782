// Package langdetect wraps the remote language classification service,
// which ranks the probable languages of raw subtitle content.
package langdetect

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"subflow/internal/language"
	"subflow/internal/services"
)

const (
	defaultTimeout = 10 * time.Second
	component      = "langdetect"

	// maxSampleBytes caps how much subtitle content is shipped per call.
	// Language classification converges long before this.
	maxSampleBytes = 32 * 1024
)

// Scored is one ranked detection result.
type Scored struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

type wireResponse struct {
	Data []Scored `json:"data"`
}

// Client calls the language detection API.
type Client struct {
	baseURL string
	http    *resty.Client
}

// NewClient constructs a detection client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    resty.New().SetTimeout(timeout),
	}
}

// Detect classifies subtitle content and returns languages ranked by
// confidence, normalized to ISO 639-1 codes. An empty ranking is
// ErrNotFound.
func (c *Client) Detect(ctx context.Context, content []byte) ([]Scored, error) {
	if len(content) == 0 {
		return nil, services.Wrap(services.ErrValidation, component, "detect", "empty content", nil)
	}
	if len(content) > maxSampleBytes {
		content = content[:maxSampleBytes]
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(content).
		Post(c.baseURL + "/detect")
	if err != nil {
		return nil, services.Wrap(services.TransportMarker(err), component, "detect", "request failed", err)
	}
	if resp.IsError() {
		return nil, services.Wrap(services.ErrNetwork, component, "detect",
			"http "+resp.Status()+": "+strings.TrimSpace(string(resp.Body())), nil)
	}

	var wire wireResponse
	if err := json.Unmarshal(resp.Body(), &wire); err != nil {
		return nil, services.Wrap(services.ErrNetwork, component, "detect", "decode response", err)
	}

	ranked := make([]Scored, 0, len(wire.Data))
	for _, s := range wire.Data {
		code := language.ToISO2(s.Language)
		if code == "" {
			continue
		}
		ranked = append(ranked, Scored{Language: code, Confidence: s.Confidence})
	}
	if len(ranked) == 0 {
		return nil, services.Wrap(services.ErrNotFound, component, "detect", "no language detected", nil)
	}
	return ranked, nil
}
