package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

// TelegramPollerConfig configures the bot command poller
type TelegramPollerConfig struct {
	APIURL      string
	Token       string
	AllowedChat string // empty answers every chat
	PollTimeout time.Duration
	RetryDelay  time.Duration
}

// TelegramPoller long-polls getUpdates and answers command messages
type TelegramPoller struct {
	baseURL     string
	allowedChat string
	pollTimeout time.Duration
	retryDelay  time.Duration
	handler     *Handler
	client      *http.Client
	logger      *logrus.Entry
	offset      int64
}

type tgUpdate struct {
	UpdateID int64      `json:"update_id"`
	Message  *tgMessage `json:"message"`
}

type tgMessage struct {
	Chat struct {
		ID int64 `json:"id"`
	} `json:"chat"`
	Text string `json:"text"`
}

type tgUpdatesResponse struct {
	OK          bool       `json:"ok"`
	Result      []tgUpdate `json:"result"`
	Description string     `json:"description"`
}

// NewTelegramPoller creates a poller feeding handler
func NewTelegramPoller(config TelegramPollerConfig, handler *Handler) (*TelegramPoller, error) {
	if config.Token == "" {
		return nil, utils.NewAppError(utils.ErrCodeValidation, "Telegram token is required", "")
	}
	if config.APIURL == "" {
		config.APIURL = "https://api.telegram.org"
	}
	if config.PollTimeout <= 0 {
		config.PollTimeout = 30 * time.Second
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 5 * time.Second
	}

	return &TelegramPoller{
		baseURL:     fmt.Sprintf("%s/bot%s", strings.TrimRight(config.APIURL, "/"), config.Token),
		allowedChat: config.AllowedChat,
		pollTimeout: config.PollTimeout,
		retryDelay:  config.RetryDelay,
		handler:     handler,
		// long poll plus slack for the round trip
		client: &http.Client{Timeout: config.PollTimeout + 10*time.Second},
		logger: utils.ComponentLogger("telegram_commands"),
	}, nil
}

// Run polls until ctx is cancelled
func (p *TelegramPoller) Run(ctx context.Context) {
	p.logger.Info("Telegram command poller started")
	defer p.logger.Info("Telegram command poller stopped")

	for ctx.Err() == nil {
		updates, err := p.fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.WithError(err).Warn("getUpdates failed")
			select {
			case <-time.After(p.retryDelay):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= p.offset {
				p.offset = u.UpdateID + 1
			}
			p.handleUpdate(ctx, u)
		}
	}
}

func (p *TelegramPoller) handleUpdate(ctx context.Context, u tgUpdate) {
	if u.Message == nil || !strings.HasPrefix(u.Message.Text, "/") {
		return
	}
	chatID := strconv.FormatInt(u.Message.Chat.ID, 10)
	if p.allowedChat != "" && chatID != p.allowedChat {
		p.logger.WithField("chat_id", chatID).Warn("Ignoring command from unknown chat")
		return
	}

	reply := p.handler.Handle(ctx, u.Message.Text)
	if err := p.send(ctx, chatID, reply); err != nil {
		p.logger.WithError(err).WithField("chat_id", chatID).Error("Failed to send reply")
	}
}

func (p *TelegramPoller) fetch(ctx context.Context) ([]tgUpdate, error) {
	q := url.Values{}
	q.Set("offset", strconv.FormatInt(p.offset, 10))
	q.Set("timeout", strconv.Itoa(int(p.pollTimeout/time.Second)))
	q.Set("allowed_updates", `["message"]`)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/getUpdates?"+q.Encode(), nil)
	if err != nil {
		return nil, utils.WrapError(utils.ErrCodeInternal, "Failed to create getUpdates request", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeExternal, "Failed to reach telegram", p.redact(err.Error()))
	}
	defer resp.Body.Close()

	var out tgUpdatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, utils.WrapError(utils.ErrCodeExternal, "Malformed getUpdates response", err)
	}
	if !out.OK {
		return nil, utils.NewAppError(utils.ErrCodeExternal, "getUpdates rejected", out.Description)
	}
	return out.Result, nil
}

func (p *TelegramPoller) send(ctx context.Context, chatID, text string) error {
	body, err := json.Marshal(map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeExternal, "Failed to reach telegram", p.redact(err.Error()))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return utils.NewAppError(utils.ErrCodeExternal, "sendMessage failed",
			fmt.Sprintf("status: %d, body: %s", resp.StatusCode, snippet))
	}
	return nil
}

func (p *TelegramPoller) redact(msg string) string {
	return strings.ReplaceAll(msg, p.baseURL, "[telegram-bot]")
}
