package monitor

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/multichain-watcher/internal/models"
)

var ethChain = models.ChainConfig{ID: "eth", Family: models.FamilyEVM}

func strPtr(s string) *string { return &s }

func TestMatchInbound(t *testing.T) {
	block := &models.Block{Height: 7, Transactions: []models.Transaction{
		{Hash: "0x1", From: otherAddr, To: strPtr("0x00000000000000000000000000000000000000AA"), Value: big.NewInt(5)},
	}}

	events := Match(ethChain, block, trackedSource(trackedAddr).set)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, models.DirectionInbound, ev.Direction)
	assert.Equal(t, trackedAddr, ev.MatchedAddress)
	assert.Equal(t, otherAddr, ev.Counterparty)
	assert.Equal(t, "5", ev.Amount.String())
	assert.Equal(t, uint64(7), ev.Height)
	assert.Equal(t, "ETH", ev.Symbol)
	assert.Equal(t, 18, ev.Decimals)
}

func TestMatchOutbound(t *testing.T) {
	block := &models.Block{Height: 8, Transactions: []models.Transaction{
		{Hash: "0x2", From: trackedAddr, To: strPtr(otherAddr), Value: big.NewInt(1)},
	}}

	events := Match(ethChain, block, trackedSource(trackedAddr).set)
	require.Len(t, events, 1)
	assert.Equal(t, models.DirectionOutbound, events[0].Direction)
	assert.Equal(t, trackedAddr, events[0].MatchedAddress)
	assert.Equal(t, otherAddr, events[0].Counterparty)
}

func TestMatchSelfTransferEmitsBoth(t *testing.T) {
	block := &models.Block{Height: 9, Transactions: []models.Transaction{
		{Hash: "0x3", From: trackedAddr, To: strPtr(otherAddr), Value: big.NewInt(1)},
	}}

	events := Match(ethChain, block, trackedSource(trackedAddr, otherAddr).set)
	require.Len(t, events, 2)
	assert.Equal(t, models.DirectionInbound, events[0].Direction)
	assert.Equal(t, otherAddr, events[0].MatchedAddress)
	assert.Equal(t, models.DirectionOutbound, events[1].Direction)
	assert.Equal(t, trackedAddr, events[1].MatchedAddress)
	assert.NotEqual(t, events[0].ID, events[1].ID)
}

func TestMatchContractCreation(t *testing.T) {
	block := &models.Block{Height: 10, Transactions: []models.Transaction{
		{Hash: "0x4", From: trackedAddr, To: nil, Value: big.NewInt(0)},
	}}

	events := Match(ethChain, block, trackedSource(trackedAddr).set)
	require.Len(t, events, 1)
	assert.Equal(t, models.DirectionOutbound, events[0].Direction)
	assert.Empty(t, events[0].Counterparty)
}

func TestMatchIgnoresUntracked(t *testing.T) {
	block := &models.Block{Height: 11, Transactions: []models.Transaction{
		{Hash: "0x5", From: otherAddr, To: strPtr(otherAddr), Value: big.NewInt(1)},
	}}
	assert.Empty(t, Match(ethChain, block, trackedSource(trackedAddr).set))
	assert.Empty(t, Match(ethChain, block, nil))
}

func TestMatchIsDeterministic(t *testing.T) {
	block := &models.Block{Height: 12, Transactions: []models.Transaction{
		{Hash: "0x6", From: otherAddr, To: strPtr(trackedAddr), Value: big.NewInt(1)},
	}}
	first := Match(ethChain, block, trackedSource(trackedAddr).set)
	second := Match(ethChain, block, trackedSource(trackedAddr).set)
	assert.Equal(t, first, second)
}

func TestMatchSolanaIsCaseSensitive(t *testing.T) {
	sol := models.ChainConfig{ID: "solana", Family: models.FamilySolana}
	block := &models.Block{Height: 13, Transactions: []models.Transaction{
		{Hash: "sig", From: "Payer111", To: strPtr("abcDEF"), Value: big.NewInt(1)},
	}}

	assert.Empty(t, Match(sol, block, trackedSource("ABCdef").set))

	events := Match(sol, block, trackedSource("abcDEF").set)
	require.Len(t, events, 1)
	assert.Equal(t, "SOL", events[0].Symbol)
	assert.Equal(t, 9, events[0].Decimals)
}
