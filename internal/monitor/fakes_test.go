package monitor

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/smartdevs17/multichain-watcher/internal/models"
	"github.com/smartdevs17/multichain-watcher/internal/registry"
	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

const (
	trackedAddr = "0x00000000000000000000000000000000000000aa"
	otherAddr   = "0x00000000000000000000000000000000000000bb"
)

// fakeAdapter serves blocks where every height carries one transfer to trackedAddr
type fakeAdapter struct {
	id     string
	family models.Family

	mu         sync.Mutex
	head       uint64
	headErr    error
	failBlocks map[uint64]int // height -> remaining failures
	fetched    []uint64
}

func newFakeAdapter(id string, head uint64) *fakeAdapter {
	return &fakeAdapter{id: id, family: models.FamilyEVM, head: head, failBlocks: map[uint64]int{}}
}

func (f *fakeAdapter) ChainID() string       { return f.id }
func (f *fakeAdapter) Family() models.Family { return f.family }

func (f *fakeAdapter) GetHeight(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.headErr != nil {
		return 0, utils.NewChainUnavailable(f.id, f.headErr)
	}
	return f.head, nil
}

func (f *fakeAdapter) GetBlock(ctx context.Context, height uint64) (*models.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, height)
	if n := f.failBlocks[height]; n > 0 {
		f.failBlocks[height] = n - 1
		return nil, utils.NewChainUnavailable(f.id, errors.New("timeout"))
	}
	to := trackedAddr
	return &models.Block{
		Height: height,
		Transactions: []models.Transaction{
			{Hash: fmt.Sprintf("0x%x", height), From: otherAddr, To: &to, Value: big.NewInt(int64(height))},
		},
	}, nil
}

func (f *fakeAdapter) GetBalance(ctx context.Context, address string) (*models.Balance, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAdapter) setHead(h uint64) {
	f.mu.Lock()
	f.head = h
	f.mu.Unlock()
}

func (f *fakeAdapter) fetchedHeights() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint64(nil), f.fetched...)
}

// staticSource always returns the same tracked set
type staticSource struct {
	set registry.AddressSet
}

func (s staticSource) Snapshot(models.ScopeKey) registry.AddressSet { return s.set }

func trackedSource(addresses ...string) staticSource {
	set := registry.AddressSet{}
	for _, a := range addresses {
		set[utils.NormalizeAddress(a)] = struct{}{}
	}
	return staticSource{set: set}
}

// captureSink records enqueued events
type captureSink struct {
	mu     sync.Mutex
	events []models.MatchEvent
}

func (c *captureSink) Enqueue(ctx context.Context, event models.MatchEvent) error {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
	return nil
}

func (c *captureSink) heights() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uint64, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Height)
	}
	return out
}

// hookSink records events and runs onEnqueue first; a non-nil error rejects the event
type hookSink struct {
	captureSink
	onEnqueue func(event models.MatchEvent) error
}

func (h *hookSink) Enqueue(ctx context.Context, event models.MatchEvent) error {
	if h.onEnqueue != nil {
		if err := h.onEnqueue(event); err != nil {
			return err
		}
	}
	return h.captureSink.Enqueue(ctx, event)
}
