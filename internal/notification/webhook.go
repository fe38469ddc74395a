// File: internal/notification/webhook.go
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

// WebhookSinkConfig configures the webhook sink
type WebhookSinkConfig struct {
	URL           string            `json:"url"`
	Headers       map[string]string `json:"headers"`
	Timeout       time.Duration     `json:"timeout"`
	RetryAttempts int               `json:"retry_attempts"`
	RetryDelay    time.Duration     `json:"retry_delay"`
	MaxDelay      time.Duration     `json:"max_delay"`
}

// WebhookSink posts every notification as JSON to a fixed URL
type WebhookSink struct {
	config     WebhookSinkConfig
	retry      retryPolicy
	httpClient *http.Client
	logger     *logrus.Entry
}

// WebhookPayload defines the webhook payload structure
type WebhookPayload struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Source    string      `json:"source"`
	Type      string      `json:"type"`
	Version   string      `json:"version"`
	Text      string      `json:"text"`
	Event     interface{} `json:"event"`
}

// NewWebhookSink creates a webhook sink
func NewWebhookSink(config WebhookSinkConfig) (*WebhookSink, error) {
	if config.URL == "" {
		return nil, utils.NewAppError(utils.ErrCodeValidation, "Webhook URL is required", "")
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}

	return &WebhookSink{
		config: config,
		retry: retryPolicy{
			MaxAttempts: config.RetryAttempts,
			BaseDelay:   config.RetryDelay,
			MaxDelay:    config.MaxDelay,
		},
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		logger: utils.ComponentLogger("webhook_sink"),
	}, nil
}

func (ws *WebhookSink) Name() string { return "webhook" }

// Send posts the notification, retrying with exponential backoff
func (ws *WebhookSink) Send(ctx context.Context, n *Notification) error {
	body, err := json.Marshal(&WebhookPayload{
		ID:        n.Event.ID,
		Timestamp: time.Now().UTC(),
		Source:    "multichain-watcher",
		Type:      "address_match",
		Version:   "1.0",
		Text:      n.Text,
		Event:     n.Event,
	})
	if err != nil {
		return utils.WrapError(utils.ErrCodeInternal, "Failed to marshal webhook payload", err)
	}

	attempt := 0
	return ws.retry.do(ctx, func() error {
		attempt++
		err := ws.post(ctx, n.Event.ID, body)
		if err != nil && attempt < ws.retry.attempts() {
			ws.logger.WithError(err).WithFields(logrus.Fields{
				"url":     ws.config.URL,
				"attempt": attempt,
			}).Warn("Webhook attempt failed, retrying")
		}
		return err
	})
}

func (ws *WebhookSink) post(ctx context.Context, eventID string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ws.config.URL, bytes.NewReader(body))
	if err != nil {
		return utils.WrapError(utils.ErrCodeInternal, "Failed to create webhook request", err)
	}
	ws.setRequestHeaders(req, eventID)

	resp, err := ws.httpClient.Do(req)
	if err != nil {
		return utils.WrapError(utils.ErrCodeExternal, "Failed to send webhook", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return utils.NewAppError(utils.ErrCodeExternal,
			"Webhook returned non-success status",
			fmt.Sprintf("status: %d, body: %s", resp.StatusCode, snippet))
	}
	return nil
}

func (ws *WebhookSink) setRequestHeaders(req *http.Request, eventID string) {
	for key, value := range ws.config.Headers {
		req.Header.Set(key, value)
	}

	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", "Multichain-Watcher/1.0")
	}

	req.Header.Set("X-Timestamp", fmt.Sprintf("%d", time.Now().Unix()))
	req.Header.Set("X-Request-ID", uuid.NewString())
	// receivers dedupe on this; delivery is at-least-once
	req.Header.Set("X-Event-ID", eventID)
}

func (ws *WebhookSink) Close() error {
	ws.httpClient.CloseIdleConnections()
	return nil
}
