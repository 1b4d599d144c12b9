package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/namastexlabs/automagik-omni/internal/channel"
)

const (
	defaultTimeout = 15 * time.Second
	// Outbound pacing toward the bridge; the bridge multiplexes many
	// instances and throttles bursts hard.
	defaultRequestsPerSecond = 10
)

// Client is the HTTP client for the WhatsApp bridge API. It is safe for
// concurrent use across instances; per-instance settings travel in Config.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a bridge client with the given request timeout and
// outbound rate. Zero values fall back to the package defaults.
func NewClient(log *slog.Logger, timeout time.Duration, requestsPerSecond int) *Client {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = defaultRequestsPerSecond
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		logger:  log.With(slog.String("component", "whatsapp-client")),
	}
}

// FetchContacts returns the bridge's full native contact set for the instance.
func (c *Client) FetchContacts(ctx context.Context, cfg Config, instance string) ([]map[string]any, error) {
	return c.fetchRecords(ctx, cfg, instance, "/chat/findContacts/", map[string]any{})
}

// FetchContact returns the bridge records matching the given raw identifier.
func (c *Client) FetchContact(ctx context.Context, cfg Config, instance, id string) ([]map[string]any, error) {
	return c.fetchRecords(ctx, cfg, instance, "/chat/findContacts/", map[string]any{
		"where": map[string]any{"id": id},
	})
}

// FetchChats returns the bridge's full native chat set for the instance.
func (c *Client) FetchChats(ctx context.Context, cfg Config, instance string) ([]map[string]any, error) {
	return c.fetchRecords(ctx, cfg, instance, "/chat/findChats/", map[string]any{})
}

// ConnectionState returns the bridge's connection state string for the
// instance (e.g. "open", "connecting", "close").
func (c *Client) ConnectionState(ctx context.Context, cfg Config, instance string) (string, error) {
	body, err := c.do(ctx, cfg, http.MethodGet, "/instance/connectionState/"+instance, nil)
	if err != nil {
		return "", err
	}
	var payload struct {
		Instance struct {
			State string `json:"state"`
		} `json:"instance"`
		State string `json:"state"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode connection state: %w", err)
	}
	if payload.Instance.State != "" {
		return payload.Instance.State, nil
	}
	return payload.State, nil
}

func (c *Client) fetchRecords(ctx context.Context, cfg Config, instance, path string, filter map[string]any) ([]map[string]any, error) {
	payload, err := json.Marshal(filter)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, cfg, http.MethodPost, path+instance, payload)
	if err != nil {
		return nil, err
	}
	return decodeRecords(body)
}

func (c *Client) do(ctx context.Context, cfg Config, method, path string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("bridge rate wait: %w", err)
	}
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, cfg.ServerURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", cfg.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bridge request %s %s: %v: %w", method, path, err, channel.ErrBackendUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("bridge response read: %v: %w", err, channel.ErrBackendUnavailable)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("bridge %s: %w", path, channel.ErrNotFound)
	case resp.StatusCode >= 400:
		c.logger.Warn("bridge request failed",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("bridge %s returned %d: %w", path, resp.StatusCode, channel.ErrBackendUnavailable)
	}
	return body, nil
}

// decodeRecords accepts the bridge's two list shapes: a bare JSON array, or
// an object wrapping the array under a well-known key.
func decodeRecords(body []byte) ([]map[string]any, error) {
	var direct []map[string]any
	if err := json.Unmarshal(body, &direct); err == nil {
		return direct, nil
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decode bridge records: %w", err)
	}
	for _, key := range []string{"contacts", "chats", "records", "data"} {
		raw, ok := wrapped[key]
		if !ok {
			continue
		}
		var items []map[string]any
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode bridge records %q: %w", key, err)
		}
		return items, nil
	}
	return []map[string]any{}, nil
}
