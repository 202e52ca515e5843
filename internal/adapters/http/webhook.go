// Package http delivers decoded frames to an HTTP endpoint.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"

	"github.com/bft-labs/dcf77rx/internal/domain"
	"github.com/bft-labs/dcf77rx/internal/ports"
)

// WebhookConfig describes the endpoint.
type WebhookConfig struct {
	URL string

	// AuthToken is sent as a bearer token when set.
	AuthToken string
}

// WebhookSink implements ports.FrameSink by POSTing each frame as JSON.
type WebhookSink struct {
	cfg      WebhookConfig
	client   ports.HTTPClient
	logger   ports.Logger
	hostname string
}

var _ ports.FrameSink = (*WebhookSink)(nil)

// NewWebhookSink creates a webhook sink.
func NewWebhookSink(cfg WebhookConfig, client ports.HTTPClient, logger ports.Logger) *WebhookSink {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &WebhookSink{
		cfg:      cfg,
		client:   client,
		logger:   logger,
		hostname: host,
	}
}

// Publish posts one frame. Any non-2xx response is an error.
func (s *WebhookSink) Publish(ctx context.Context, frame domain.DecodedFrame) error {
	body, err := json.Marshal(frame.ToMeta())
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if s.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.AuthToken)
	}
	req.Header.Set("X-Receiver-Hostname", s.hostname)
	req.Header.Set("X-Receiver-OSArch", runtime.GOOS+"/"+runtime.GOARCH)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Close does nothing; the client is owned by the caller.
func (s *WebhookSink) Close() error { return nil }
