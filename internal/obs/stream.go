package obs

import (
	"context"
	"strings"

	"colourstream/internal/logging"
)

// StreamSettings describes where OBS should publish.
type StreamSettings struct {
	Server string
	Key    string
}

// StreamStatus reports the output state of OBS.
type StreamStatus struct {
	Active    bool    `json:"outputActive"`
	Duration  int64   `json:"outputDuration"`
	Congested float64 `json:"outputCongestion"`
	Bytes     int64   `json:"outputBytes"`
}

// SetStreamSettings points OBS at a publish endpoint. SRT URLs carry the
// stream key inline, so the key field stays empty for them.
func (c *Client) SetStreamSettings(ctx context.Context, settings StreamSettings) error {
	streamKey := settings.Key
	if strings.HasPrefix(settings.Server, "srt://") {
		streamKey = ""
	}
	payload := map[string]any{
		"streamServiceType": "rtmp_custom",
		"streamServiceSettings": map[string]any{
			"server": settings.Server,
			"key":    streamKey,
		},
	}
	if err := c.request(ctx, "SetStreamServiceSettings", payload, nil); err != nil {
		return err
	}
	c.logger.Info("stream settings updated", logging.String("server", settings.Server))
	return nil
}

// StartStream begins streaming with the configured service settings.
func (c *Client) StartStream(ctx context.Context) error {
	if err := c.request(ctx, "StartStream", nil, nil); err != nil {
		return err
	}
	c.logger.Info("stream started")
	return nil
}

// StopStream stops the active stream output.
func (c *Client) StopStream(ctx context.Context) error {
	if err := c.request(ctx, "StopStream", nil, nil); err != nil {
		return err
	}
	c.logger.Info("stream stopped")
	return nil
}

// GetStreamStatus returns the current output state.
func (c *Client) GetStreamStatus(ctx context.Context) (*StreamStatus, error) {
	var status StreamStatus
	if err := c.request(ctx, "GetStreamStatus", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
