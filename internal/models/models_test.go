package models

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAmount(t *testing.T) {
	oneEth, _ := new(big.Int).SetString("1000000000000000000", 10)
	tests := []struct {
		name     string
		amount   *big.Int
		decimals int
		want     string
	}{
		{"nil", nil, 18, "0"},
		{"zero", big.NewInt(0), 18, "0.0"},
		{"one eth", oneEth, 18, "1.0"},
		{"one wei", big.NewInt(1), 18, "0.000000000000000001"},
		{"lamports", big.NewInt(1_500_000_000), 9, "1.5"},
		{"negative", big.NewInt(-2_500_000_000), 9, "-2.5"},
		{"no decimals", big.NewInt(42), 0, "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAmount(tt.amount, tt.decimals))
		})
	}
}

func TestChainConfigsFromEndpoints(t *testing.T) {
	chains := ChainConfigsFromEndpoints(map[string]string{
		"ETH":    " https://eth.example ",
		"solana": "https://sol.example",
		"ton":    "https://tonapi.io",
		"bsc":    "https://bsc.example",
	})

	require.Len(t, chains, 4)
	assert.Equal(t, "bsc", chains[0].ID)
	assert.Equal(t, ChainConfig{ID: "eth", Family: FamilyEVM, Endpoint: "https://eth.example"}, chains[1])
	assert.Equal(t, FamilySolana, chains[2].Family)
	assert.Equal(t, FamilyTON, chains[3].Family)
	assert.Equal(t, "BNB", chains[0].Symbol())
}

func TestResolveSelector(t *testing.T) {
	chains := ChainConfigsFromEndpoints(map[string]string{
		"eth": "a", "bsc": "b", "solana": "c", "ton": "d",
	})

	sel, err := ResolveSelector("ETH", chains)
	require.NoError(t, err)
	assert.Equal(t, NetworkSelector{Kind: SelectChain, ChainID: "eth"}, sel)
	assert.Equal(t, ScopeEVM, sel.Scope())

	sel, err = ResolveSelector("evm", chains)
	require.NoError(t, err)
	assert.Equal(t, SelectEVMGroup, sel.Kind)

	sel, err = ResolveSelector("solana", chains)
	require.NoError(t, err)
	assert.Equal(t, ScopeSolana, sel.Scope())

	sel, err = ResolveSelector("ton", chains)
	require.NoError(t, err)
	assert.Equal(t, FamilyTON, sel.Family())

	_, err = ResolveSelector("dogecoin", chains)
	assert.Error(t, err)
}

func TestResolveSelectorUnconfiguredFamily(t *testing.T) {
	chains := ChainConfigsFromEndpoints(map[string]string{"eth": "a"})

	_, err := ResolveSelector("solana", chains)
	assert.Error(t, err)
}
