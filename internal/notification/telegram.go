package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

// TelegramSinkConfig configures the Telegram bot sink
type TelegramSinkConfig struct {
	APIURL        string
	Token         string
	ChatID        string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// TelegramSink pushes notifications to a chat through the Bot API sendMessage method
type TelegramSink struct {
	endpoint   string
	chatID     string
	retry      retryPolicy
	httpClient *http.Client
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type botResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// NewTelegramSink creates a Telegram sink
func NewTelegramSink(config TelegramSinkConfig) (*TelegramSink, error) {
	if config.Token == "" || config.ChatID == "" {
		return nil, utils.NewAppError(utils.ErrCodeValidation, "Telegram token and chat id are required", "")
	}
	if config.APIURL == "" {
		config.APIURL = "https://api.telegram.org"
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	return &TelegramSink{
		endpoint: fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(config.APIURL, "/"), config.Token),
		chatID:   config.ChatID,
		retry: retryPolicy{
			MaxAttempts: config.RetryAttempts,
			BaseDelay:   config.RetryDelay,
			MaxDelay:    30 * time.Second,
		},
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

func (ts *TelegramSink) Name() string { return "telegram" }

func (ts *TelegramSink) Send(ctx context.Context, n *Notification) error {
	return ts.SendText(ctx, n.Text)
}

// SendText posts a plain text message to the configured chat
func (ts *TelegramSink) SendText(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                ts.chatID,
		Text:                  text,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return utils.WrapError(utils.ErrCodeInternal, "Failed to marshal telegram message", err)
	}
	return ts.retry.do(ctx, func() error { return ts.post(ctx, body) })
}

func (ts *TelegramSink) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.endpoint, bytes.NewReader(body))
	if err != nil {
		return utils.WrapError(utils.ErrCodeInternal, "Failed to create telegram request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		// the URL carries the bot token; keep it out of logs
		return utils.NewAppError(utils.ErrCodeExternal, "Failed to reach telegram", redact(err.Error(), ts.endpoint))
	}
	defer resp.Body.Close()

	var out botResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &out); err != nil || !out.OK {
		return utils.NewAppError(utils.ErrCodeExternal, "Telegram rejected message",
			fmt.Sprintf("status: %d, description: %s", resp.StatusCode, out.Description))
	}
	return nil
}

func (ts *TelegramSink) Close() error {
	ts.httpClient.CloseIdleConnections()
	return nil
}

func redact(msg, secret string) string {
	return strings.ReplaceAll(msg, secret, "[telegram-endpoint]")
}
