package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/multichain-watcher/internal/config"
	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

func TestWebhookRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	var got WebhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "ev-1", r.Header.Get("X-Event-ID"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink, err := NewWebhookSink(WebhookSinkConfig{
		URL:           srv.URL,
		Headers:       map[string]string{"X-Api-Key": "secret"},
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	})
	require.NoError(t, err)

	ev := testEvent(1)
	require.NoError(t, sink.Send(context.Background(), &Notification{Event: ev, Text: FormatMatch(ev)}))
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "ev-1", got.ID)
	assert.Equal(t, "address_match", got.Type)
}

func TestWebhookGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink, err := NewWebhookSink(WebhookSinkConfig{URL: srv.URL, RetryAttempts: 2, RetryDelay: time.Millisecond})
	require.NoError(t, err)

	err = sink.Send(context.Background(), &Notification{Event: testEvent(1)})
	assert.True(t, utils.HasCode(err, utils.ErrCodeExternal))
	assert.Equal(t, int32(2), calls.Load())
}

func TestWebhookRequiresURL(t *testing.T) {
	_, err := NewWebhookSink(WebhookSinkConfig{})
	assert.True(t, utils.HasCode(err, utils.ErrCodeValidation))
}

func TestTelegramSendMessage(t *testing.T) {
	var req sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	sink, err := NewTelegramSink(TelegramSinkConfig{APIURL: srv.URL, Token: "TOKEN", ChatID: "42"})
	require.NoError(t, err)

	require.NoError(t, sink.Send(context.Background(), &Notification{Event: testEvent(1), Text: "hello"}))
	assert.Equal(t, "42", req.ChatID)
	assert.Equal(t, "hello", req.Text)
}

func TestTelegramRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	sink, err := NewTelegramSink(TelegramSinkConfig{APIURL: srv.URL, Token: "TOKEN", ChatID: "42"})
	require.NoError(t, err)

	err = sink.SendText(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
	assert.NotContains(t, err.Error(), "TOKEN")
}

type fakePublisher struct {
	exchange string
	key      string
	msg      amqp.Publishing
	closed   bool
}

func (f *fakePublisher) Publish(exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func TestAMQPRoutingKey(t *testing.T) {
	pub := &fakePublisher{}
	sink := newAMQPSinkWithPublisher("watcher.events", pub)

	ev := testEvent(1)
	require.NoError(t, sink.Send(context.Background(), &Notification{Event: ev}))
	assert.Equal(t, "watcher.events", pub.exchange)
	assert.Equal(t, "eth.inbound.0xabc0000000000000000000000000000000000001", pub.key)
	assert.Equal(t, "ev-1", pub.msg.MessageId)
	assert.Equal(t, "application/json", pub.msg.ContentType)

	require.NoError(t, sink.Close())
	assert.True(t, pub.closed)
	assert.Error(t, sink.Send(context.Background(), &Notification{Event: ev}))
}

func TestNewSinksFallsBackToLog(t *testing.T) {
	sinks, err := NewSinks(config.NotificationConfig{})
	require.NoError(t, err)
	require.Len(t, sinks, 1)
	assert.Equal(t, "log", sinks[0].Name())
}

func TestNewSinksRejectsIncompleteTelegram(t *testing.T) {
	_, err := NewSinks(config.NotificationConfig{Telegram: config.TelegramConfig{Enabled: true}})
	assert.True(t, utils.HasCode(err, utils.ErrCodeValidation))
}
