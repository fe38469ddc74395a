package notification

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/multichain-watcher/internal/models"
	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

type recordingSink struct {
	name string
	mu   sync.Mutex
	ids  []string
	err  error
	slow time.Duration
}

func (r *recordingSink) Name() string { return r.name }

func (r *recordingSink) Send(_ context.Context, n *Notification) error {
	if r.slow > 0 {
		time.Sleep(r.slow)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, n.Event.ID)
	return r.err
}

func (r *recordingSink) Close() error { return nil }

func (r *recordingSink) received() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func testEvent(i int) models.MatchEvent {
	return models.MatchEvent{
		ID:             fmt.Sprintf("ev-%d", i),
		ChainID:        "eth",
		Direction:      models.DirectionInbound,
		MatchedAddress: "0xabc0000000000000000000000000000000000001",
		Counterparty:   "0xdef0000000000000000000000000000000000002",
		Amount:         big.NewInt(1_500_000_000_000_000_000),
		Decimals:       18,
		Symbol:         "ETH",
		Height:         uint64(100 + i),
		TxHash:         fmt.Sprintf("0xhash%d", i),
	}
}

func TestDispatcherDeliversInOrder(t *testing.T) {
	sink := &recordingSink{name: "rec"}
	d := NewDispatcher(DispatcherConfig{QueueSize: 4}, []Sink{sink}, nil)
	require.NoError(t, d.Start())

	ctx := context.Background()
	var want []string
	for i := 0; i < 20; i++ {
		require.NoError(t, d.Enqueue(ctx, testEvent(i)))
		want = append(want, fmt.Sprintf("ev-%d", i))
	}
	require.NoError(t, d.Stop())

	assert.Equal(t, want, sink.received())
	stats := d.GetStats()
	assert.Equal(t, uint64(20), stats.Enqueued)
	assert.Equal(t, uint64(20), stats.Delivered)
	assert.False(t, stats.IsRunning)
}

func TestStopDrainsQueuedEvents(t *testing.T) {
	sink := &recordingSink{name: "rec", slow: 5 * time.Millisecond}
	d := NewDispatcher(DispatcherConfig{QueueSize: 16}, []Sink{sink}, nil)
	require.NoError(t, d.Start())

	for i := 0; i < 10; i++ {
		require.NoError(t, d.Enqueue(context.Background(), testEvent(i)))
	}
	require.NoError(t, d.Stop())

	assert.Len(t, sink.received(), 10)
}

func TestEnqueueAfterStopFails(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{}, []Sink{&recordingSink{name: "rec"}}, nil)
	require.NoError(t, d.Start())
	require.NoError(t, d.Stop())

	err := d.Enqueue(context.Background(), testEvent(1))
	assert.True(t, utils.HasCode(err, utils.ErrCodeInternal))
	assert.NoError(t, d.Stop())
}

func TestEnqueueRespectsContextWhenFull(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{QueueSize: 1}, nil, nil)
	require.NoError(t, d.Enqueue(context.Background(), testEvent(1)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Enqueue(ctx, testEvent(2))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFailingSinkDoesNotBlockOthers(t *testing.T) {
	bad := &recordingSink{name: "bad", err: errors.New("boom")}
	good := &recordingSink{name: "good"}
	d := NewDispatcher(DispatcherConfig{}, []Sink{bad, good}, nil)
	require.NoError(t, d.Start())

	require.NoError(t, d.Enqueue(context.Background(), testEvent(1)))
	require.NoError(t, d.Stop())

	assert.Equal(t, []string{"ev-1"}, good.received())
	stats := d.GetStats()
	assert.Equal(t, uint64(1), stats.Failed)
	assert.Equal(t, uint64(1), stats.Delivered)
}

func TestFormatMatch(t *testing.T) {
	text := FormatMatch(testEvent(1))
	assert.Contains(t, text, "📥 INBOUND 1.5 ETH on ETH")
	assert.Contains(t, text, "From: 0xdef0000000000000000000000000000000000002")
	assert.Contains(t, text, "Block: 101")

	out := testEvent(2)
	out.Direction = models.DirectionOutbound
	out.Counterparty = ""
	text = FormatMatch(out)
	assert.Contains(t, text, "📤 OUTBOUND")
	assert.NotContains(t, text, "To:")
}

func TestRetryDelayIsCapped(t *testing.T) {
	p := retryPolicy{MaxAttempts: 6, BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	assert.Equal(t, time.Duration(0), p.delay(1))
	assert.Equal(t, time.Second, p.delay(2))
	assert.Equal(t, 2*time.Second, p.delay(3))
	assert.Equal(t, 4*time.Second, p.delay(4))
	assert.Equal(t, 5*time.Second, p.delay(5))
	assert.Equal(t, 5*time.Second, p.delay(6))
}
