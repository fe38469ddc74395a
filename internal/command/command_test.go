package command

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/multichain-watcher/internal/models"
	"github.com/smartdevs17/multichain-watcher/internal/registry"
	"github.com/smartdevs17/multichain-watcher/internal/storage"
	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

const evmAddr = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"

type stubBalances struct {
	result *models.BalanceResult
	err    error
	got    models.NetworkSelector
}

func (s *stubBalances) QueryBalance(_ context.Context, sel models.NetworkSelector, _ string) (*models.BalanceResult, error) {
	s.got = sel
	return s.result, s.err
}

func testChains() []models.ChainConfig {
	return []models.ChainConfig{
		{ID: "eth", Family: models.FamilyEVM, Endpoint: "http://eth"},
		{ID: "bsc", Family: models.FamilyEVM, Endpoint: "http://bsc"},
		{ID: "solana", Family: models.FamilySolana, Endpoint: "http://sol"},
	}
}

func newTestHandler(store *storage.MemoryStorage, balances *stubBalances) (*Handler, *registry.Registry) {
	reg := registry.New(store, nil)
	return NewHandler(testChains(), reg, balances), reg
}

func TestAddAddressReplies(t *testing.T) {
	h, reg := newTestHandler(storage.NewMemoryStorage(), &stubBalances{})
	ctx := context.Background()

	reply := h.Handle(ctx, "/addaddress bsc "+evmAddr)
	assert.Equal(t, "✅ Address "+evmAddr+" added to evm", reply)
	assert.True(t, reg.Contains(models.ScopeEVM, evmAddr))

	// any EVM chain name lands in the shared scope
	reply = h.Handle(ctx, "/addaddress eth "+evmAddr)
	assert.Equal(t, "⚠️ Address "+evmAddr+" is already tracked!", reply)
}

func TestAddAddressValidation(t *testing.T) {
	h, reg := newTestHandler(storage.NewMemoryStorage(), &stubBalances{})
	ctx := context.Background()

	assert.Equal(t, "Usage: /addaddress <network> <wallet_address>", h.Handle(ctx, "/addaddress eth"))
	assert.Contains(t, h.Handle(ctx, "/addaddress dogecoin "+evmAddr), "❌ Invalid network! Use: bsc/eth/solana/evm")
	assert.Contains(t, h.Handle(ctx, "/addaddress eth 0x1234"), "❌ Invalid ETH address")
	assert.Contains(t, h.Handle(ctx, "/addaddress solana "+evmAddr), "❌ Invalid SOLANA address")
	assert.Equal(t, 0, reg.Size(models.ScopeEVM))
}

func TestAddAddressPersistFailure(t *testing.T) {
	store := storage.NewMemoryStorage()
	store.FailPersist = errors.New("disk full")
	h, reg := newTestHandler(store, &stubBalances{})

	assert.Equal(t, "❌ Failed to save address!", h.Handle(context.Background(), "/addaddress eth "+evmAddr))
	assert.False(t, reg.Contains(models.ScopeEVM, evmAddr))
}

func TestBalanceGroupReply(t *testing.T) {
	balances := &stubBalances{result: &models.BalanceResult{
		Address: evmAddr,
		Entries: []models.BalanceEntry{
			{ChainID: "bsc", Error: "CHAIN_UNAVAILABLE[bsc]: Chain unavailable"},
			{ChainID: "eth", Balance: &models.Balance{ChainID: "eth", Raw: big.NewInt(2_500_000_000_000_000_000), Decimals: 18, Symbol: "ETH"}},
		},
		Partial: true,
	}}
	h, _ := newTestHandler(storage.NewMemoryStorage(), balances)

	reply := h.Handle(context.Background(), "/balance evm "+evmAddr)
	assert.Equal(t, models.SelectEVMGroup, balances.got.Kind)
	assert.Equal(t,
		"⚠️ Failed to fetch BSC balance: CHAIN_UNAVAILABLE[bsc]: Chain unavailable\n💰 Balance ETH: 2.5 ETH",
		reply)
}

func TestBalanceSingleChainError(t *testing.T) {
	balances := &stubBalances{err: utils.NewChainUnavailable("eth", errors.New("timeout"))}
	h, _ := newTestHandler(storage.NewMemoryStorage(), balances)

	reply := h.Handle(context.Background(), "/balance ETH "+evmAddr)
	assert.Equal(t, models.NetworkSelector{Kind: models.SelectChain, ChainID: "eth"}, balances.got)
	assert.Contains(t, reply, "⚠️ Failed to fetch ETH balance")
	assert.Contains(t, reply, "timeout")
}

func TestHelpAndUnknown(t *testing.T) {
	h, _ := newTestHandler(storage.NewMemoryStorage(), &stubBalances{})
	ctx := context.Background()

	assert.Contains(t, h.Handle(ctx, "/start"), "/addaddress <network> <wallet_address>")
	assert.Contains(t, h.Handle(ctx, "/help@WatcherBot"), "/balance <network> <wallet_address>")
	assert.Contains(t, h.Handle(ctx, "/foo"), "Unknown command")
	assert.Contains(t, h.Handle(ctx, "   "), "Commands:")
}

func TestAddAddressAPI(t *testing.T) {
	h, _ := newTestHandler(storage.NewMemoryStorage(), &stubBalances{})

	res, sel, err := h.AddAddress(context.Background(), "eth", evmAddr)
	require.NoError(t, err)
	assert.Equal(t, registry.Added, res)
	assert.Equal(t, models.ScopeEVM, sel.Scope())
}
