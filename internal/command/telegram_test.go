package command

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/multichain-watcher/internal/models"
	"github.com/smartdevs17/multichain-watcher/internal/storage"
)

type fakeBot struct {
	mu      sync.Mutex
	served  bool
	offsets []string
	replies []map[string]interface{}
	replied chan struct{}
}

func (b *fakeBot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/botTOKEN/getUpdates":
		b.mu.Lock()
		b.offsets = append(b.offsets, r.URL.Query().Get("offset"))
		first := !b.served
		b.served = true
		b.mu.Unlock()

		if first {
			w.Write([]byte(`{"ok":true,"result":[
				{"update_id":10,"message":{"chat":{"id":42},"text":"/addaddress eth ` + evmAddr + `"}},
				{"update_id":11,"message":{"chat":{"id":99},"text":"/help"}},
				{"update_id":12,"message":{"chat":{"id":42},"text":"hello"}}
			]}`))
			return
		}
		select {
		case <-r.Context().Done():
		case <-time.After(50 * time.Millisecond):
		}
		w.Write([]byte(`{"ok":true,"result":[]}`))
	case "/botTOKEN/sendMessage":
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		b.mu.Lock()
		b.replies = append(b.replies, body)
		b.mu.Unlock()
		w.Write([]byte(`{"ok":true}`))
		b.replied <- struct{}{}
	default:
		http.NotFound(w, r)
	}
}

func TestTelegramPollerAnswersAllowedChat(t *testing.T) {
	bot := &fakeBot{replied: make(chan struct{}, 4)}
	srv := httptest.NewServer(bot)
	defer srv.Close()

	h, reg := newTestHandler(storage.NewMemoryStorage(), &stubBalances{})
	poller, err := NewTelegramPoller(TelegramPollerConfig{
		APIURL:      srv.URL,
		Token:       "TOKEN",
		AllowedChat: "42",
		PollTimeout: time.Second,
		RetryDelay:  10 * time.Millisecond,
	}, h)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	select {
	case <-bot.replied:
	case <-time.After(5 * time.Second):
		t.Fatal("no reply sent")
	}
	// let the poller come back for the next batch
	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	bot.mu.Lock()
	defer bot.mu.Unlock()
	require.Len(t, bot.replies, 1)
	assert.Equal(t, "42", bot.replies[0]["chat_id"])
	assert.Contains(t, bot.replies[0]["text"], "✅ Address")
	assert.True(t, reg.Contains(models.ScopeEVM, evmAddr))
	require.GreaterOrEqual(t, len(bot.offsets), 2)
	assert.Equal(t, "0", bot.offsets[0])
	assert.Equal(t, "13", bot.offsets[1])
}

func TestTelegramPollerRequiresToken(t *testing.T) {
	_, err := NewTelegramPoller(TelegramPollerConfig{}, nil)
	assert.Error(t, err)
}
