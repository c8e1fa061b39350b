package ome

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"colourstream/internal/config"
)

// ErrDisabled is returned when the engine integration is not configured.
var ErrDisabled = errors.New("ovenmediaengine integration disabled")

// HTTPDoer describes the HTTP client used by the engine client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the OvenMediaEngine REST API.
type Client struct {
	baseURL   string
	accessKey string
	client    HTTPDoer
}

// NewConfiguredClient returns an engine client when credentials are
// available, or nil when the integration is disabled.
func NewConfiguredClient(cfg *config.Config) *Client {
	if cfg == nil || !cfg.OME.Enabled {
		return nil
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.OME.APIURL), "/")
	accessKey := strings.TrimSpace(cfg.OME.AccessKey)
	if baseURL == "" || accessKey == "" {
		return nil
	}
	return NewClient(baseURL, accessKey, http.DefaultClient)
}

// NewClient constructs an engine client against baseURL.
func NewClient(baseURL, accessKey string, client HTTPDoer) *Client {
	return &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		accessKey: strings.TrimSpace(accessKey),
		client:    client,
	}
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Response   json.RawMessage `json:"response"`
}

// StreamStats reports connection and throughput figures for one stream.
type StreamStats struct {
	TotalConnections int64 `json:"totalConnections"`
	MaxConnections   int64 `json:"maxTotalConnections"`
	BytesIn          int64 `json:"totalBytesIn"`
	BytesOut         int64 `json:"totalBytesOut"`
}

// ListApplications returns the application names under a virtual host.
func (c *Client) ListApplications(ctx context.Context, vhost string) ([]string, error) {
	var apps []string
	path := fmt.Sprintf("/v1/vhosts/%s/apps", vhost)
	if err := c.get(ctx, path, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// ListStreams returns the active stream names in an application.
func (c *Client) ListStreams(ctx context.Context, vhost, app string) ([]string, error) {
	var streams []string
	path := fmt.Sprintf("/v1/vhosts/%s/apps/%s/streams", vhost, app)
	if err := c.get(ctx, path, &streams); err != nil {
		return nil, err
	}
	return streams, nil
}

// GetStreamStats fetches connection stats for one stream.
func (c *Client) GetStreamStats(ctx context.Context, vhost, app, stream string) (*StreamStats, error) {
	var stats StreamStats
	path := fmt.Sprintf("/v1/stats/current/vhosts/%s/apps/%s/streams/%s", vhost, app, stream)
	if err := c.get(ctx, path, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Healthy probes the API root and reports whether the engine responds.
func (c *Client) Healthy(ctx context.Context) error {
	var vhosts []string
	return c.get(ctx, "/v1/vhosts", &vhosts)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	if c == nil || c.client == nil || c.baseURL == "" {
		return ErrDisabled
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build engine request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.accessKey)))

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("query engine %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("engine %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode engine response: %w", err)
	}
	if env.StatusCode != http.StatusOK {
		return fmt.Errorf("engine %s rejected: %s", path, env.Message)
	}
	if out != nil && len(env.Response) > 0 {
		if err := json.Unmarshal(env.Response, out); err != nil {
			return fmt.Errorf("decode engine payload: %w", err)
		}
	}
	return nil
}
