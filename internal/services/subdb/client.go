// Package subdb wraps the subtitle database API: hash-based duplicate
// lookups and grouped upload submission.
package subdb

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"subflow/internal/catalog"
	"subflow/internal/services"
)

const (
	defaultTimeout = 10 * time.Second
	component      = "subdb"
)

// Client calls the subtitle database.
type Client struct {
	apiKey  string
	baseURL string
	http    *resty.Client
}

// NewClient constructs a subtitle database client. userAgent identifies
// this application to the service, which requires it on every call.
func NewClient(apiKey, userAgent, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", strings.TrimSpace(userAgent)),
	}
}

// Existing references a subtitle record already present server-side.
type Existing struct {
	RemoteID string `json:"id"`
	URL      string `json:"url"`
}

// CheckDuplicate looks up a subtitle content hash. A nil result with nil
// error means the hash is unknown to the database; absence is an answer,
// not a failure.
func (c *Client) CheckDuplicate(ctx context.Context, hash string) (*Existing, error) {
	if err := c.ready("check_duplicate"); err != nil {
		return nil, err
	}
	if hash = strings.TrimSpace(hash); hash == "" {
		return nil, services.Wrap(services.ErrValidation, component, "check_duplicate", "empty hash", nil)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Api-Key", c.apiKey).
		SetQueryParam("hash", hash).
		Get(c.baseURL + "/subtitles/exists")
	if err != nil {
		return nil, services.Wrap(services.TransportMarker(err), component, "check_duplicate", "request failed", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if err := c.statusError("check_duplicate", resp); err != nil {
		return nil, err
	}

	var existing Existing
	if err := json.Unmarshal(resp.Body(), &existing); err != nil {
		return nil, services.Wrap(services.ErrNetwork, component, "check_duplicate", "decode response", err)
	}
	if existing.RemoteID == "" {
		return nil, nil
	}
	return &existing, nil
}

// Status classifies one submission outcome.
type Status string

const (
	StatusUploaded Status = "uploaded"
	StatusExists   Status = "already_exists"
	StatusRejected Status = "rejected"
)

// Submission is one subtitle file within an upload call.
type Submission struct {
	FileName string
	Content  []byte
	Hash     string
	Language string
	Options  catalog.UploadOptions
}

// Outcome is the per-subtitle result of an upload call.
type Outcome struct {
	FileName string
	Status   Status
	RemoteID string
	Reason   string
}

type wireSubmission struct {
	FileName          string `json:"file_name"`
	Language          string `json:"language"`
	Hash              string `json:"hash"`
	Content           string `json:"content"`
	Comment           string `json:"comment,omitempty"`
	Translator        string `json:"translator,omitempty"`
	HearingImpaired   bool   `json:"hearing_impaired,omitempty"`
	ForeignPartsOnly  bool   `json:"foreign_parts_only,omitempty"`
	MachineTranslated bool   `json:"machine_translated,omitempty"`
}

type wireUploadRequest struct {
	IMDBID       string           `json:"imdb_id"`
	ParentIMDBID string           `json:"parent_imdb_id,omitempty"`
	Title        string           `json:"title"`
	Year         int              `json:"year,omitempty"`
	Kind         string           `json:"kind"`
	Season       int              `json:"season,omitempty"`
	Episode      int              `json:"episode,omitempty"`
	Subtitles    []wireSubmission `json:"subtitles"`
}

type wireOutcome struct {
	FileName string `json:"file_name"`
	Status   string `json:"status"`
	ID       string `json:"id"`
	Reason   string `json:"reason"`
}

type wireUploadResponse struct {
	Results []wireOutcome `json:"results"`
}

// Upload submits one or more subtitles that share a movie identity. The
// identity context is sent once for the whole group. Outcomes are
// per-subtitle; a rejection of one entry does not fail the call.
func (c *Client) Upload(ctx context.Context, identity catalog.MovieIdentity, subs []Submission) ([]Outcome, error) {
	if err := c.ready("upload"); err != nil {
		return nil, err
	}
	if identity.IMDBID == "" {
		return nil, services.Wrap(services.ErrValidation, component, "upload", "identity without imdb id", nil)
	}
	if len(subs) == 0 {
		return nil, services.Wrap(services.ErrValidation, component, "upload", "no subtitles to upload", nil)
	}

	request := wireUploadRequest{
		IMDBID:       identity.IMDBID,
		ParentIMDBID: identity.ParentIMDBID,
		Title:        identity.Title,
		Year:         identity.Year,
		Kind:         string(identity.Kind),
		Season:       identity.Season,
		Episode:      identity.Episode,
	}
	for _, sub := range subs {
		request.Subtitles = append(request.Subtitles, wireSubmission{
			FileName:          sub.FileName,
			Language:          sub.Language,
			Hash:              sub.Hash,
			Content:           base64.StdEncoding.EncodeToString(sub.Content),
			Comment:           sub.Options.Comment,
			Translator:        sub.Options.Translator,
			HearingImpaired:   sub.Options.HearingImpaired,
			ForeignPartsOnly:  sub.Options.ForeignPartsOnly,
			MachineTranslated: sub.Options.MachineTranslated,
		})
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Api-Key", c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(request).
		Post(c.baseURL + "/subtitles/upload")
	if err != nil {
		return nil, services.Wrap(services.TransportMarker(err), component, "upload", "request failed", err)
	}
	if err := c.statusError("upload", resp); err != nil {
		return nil, err
	}

	var wire wireUploadResponse
	if err := json.Unmarshal(resp.Body(), &wire); err != nil {
		return nil, services.Wrap(services.ErrNetwork, component, "upload", "decode response", err)
	}

	outcomes := make([]Outcome, 0, len(wire.Results))
	for _, r := range wire.Results {
		outcomes = append(outcomes, Outcome{
			FileName: r.FileName,
			Status:   parseStatus(r.Status),
			RemoteID: r.ID,
			Reason:   r.Reason,
		})
	}
	return outcomes, nil
}

func parseStatus(value string) Status {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "uploaded", "created", "new":
		return StatusUploaded
	case "already_exists", "exists", "duplicate":
		return StatusExists
	default:
		return StatusRejected
	}
}

func (c *Client) ready(op string) error {
	if c.apiKey == "" {
		return services.Wrap(services.ErrConfiguration, component, op, "api key is not configured", nil)
	}
	return nil
}

func (c *Client) statusError(op string, resp *resty.Response) error {
	switch {
	case resp.StatusCode() == http.StatusUnauthorized, resp.StatusCode() == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, component, op, "api key rejected", nil)
	case resp.StatusCode() == http.StatusUnprocessableEntity:
		return services.Wrap(services.ErrRejected, component, op,
			strings.TrimSpace(string(resp.Body())), nil)
	case resp.IsError():
		return services.Wrap(services.ErrNetwork, component, op,
			"http "+resp.Status()+": "+strings.TrimSpace(string(resp.Body())), nil)
	}
	return nil
}
