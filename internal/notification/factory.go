package notification

import (
	"github.com/smartdevs17/multichain-watcher/internal/config"
)

// NewSinks builds every enabled sink. The log sink is always present when
// nothing else is configured, so matches are never silently dropped.
func NewSinks(cfg config.NotificationConfig) ([]Sink, error) {
	var sinks []Sink

	closeAll := func() {
		for _, s := range sinks {
			s.Close()
		}
	}

	if cfg.Telegram.Enabled {
		s, err := NewTelegramSink(TelegramSinkConfig{
			APIURL:        cfg.Telegram.APIURL,
			Token:         cfg.Telegram.Token,
			ChatID:        cfg.Telegram.ChatID,
			Timeout:       cfg.Timeout,
			RetryAttempts: cfg.RetryAttempts,
			RetryDelay:    cfg.RetryDelay,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}

	if cfg.Webhook.Enabled {
		s, err := NewWebhookSink(WebhookSinkConfig{
			URL:           cfg.Webhook.URL,
			Headers:       cfg.Webhook.Headers,
			Timeout:       cfg.Timeout,
			RetryAttempts: cfg.RetryAttempts,
			RetryDelay:    cfg.RetryDelay,
		})
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, s)
	}

	if cfg.AMQP.Enabled {
		s, err := NewAMQPSink(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, s)
	}

	if cfg.Log.Enabled || len(sinks) == 0 {
		sinks = append(sinks, NewLogSink())
	}
	return sinks, nil
}
