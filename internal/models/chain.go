package models

import (
	"fmt"
	"sort"
	"strings"
)

// Family is the class of networks sharing an RPC/data shape
type Family string

const (
	FamilyEVM    Family = "evm"
	FamilySolana Family = "solana"
	FamilyTON    Family = "ton"
)

// ScopeKey groups tracked addresses for alerting. There is one key per family.
type ScopeKey string

const (
	ScopeEVM    ScopeKey = "evm"
	ScopeSolana ScopeKey = "solana"
	ScopeTON    ScopeKey = "ton"
)

// AllScopes lists every scope key in a stable order
func AllScopes() []ScopeKey {
	return []ScopeKey{ScopeEVM, ScopeSolana, ScopeTON}
}

// Scope returns the scope key addresses of this family are tracked under
func (f Family) Scope() ScopeKey {
	switch f {
	case FamilySolana:
		return ScopeSolana
	case FamilyTON:
		return ScopeTON
	default:
		return ScopeEVM
	}
}

// Decimals returns the base-unit exponent of the family's native coin
func (f Family) Decimals() int {
	if f == FamilyEVM {
		return 18
	}
	return 9
}

// ParseScopeKey resolves a scope name
func ParseScopeKey(s string) (ScopeKey, error) {
	switch ScopeKey(strings.ToLower(strings.TrimSpace(s))) {
	case ScopeEVM:
		return ScopeEVM, nil
	case ScopeSolana:
		return ScopeSolana, nil
	case ScopeTON:
		return ScopeTON, nil
	}
	return "", fmt.Errorf("unknown scope %q", s)
}

// FamilyForChain infers the family from a configured chain identifier
func FamilyForChain(chainID string) Family {
	switch strings.ToLower(chainID) {
	case "solana", "sol":
		return FamilySolana
	case "ton":
		return FamilyTON
	default:
		return FamilyEVM
	}
}

// ChainConfig describes one configured network. Immutable after load.
type ChainConfig struct {
	ID       string `json:"id"`
	Family   Family `json:"family"`
	Endpoint string `json:"endpoint"`
}

// Symbol returns the ticker used when printing native amounts
func (c ChainConfig) Symbol() string {
	switch c.Family {
	case FamilySolana:
		return "SOL"
	case FamilyTON:
		return "TON"
	}
	return nativeSymbols.lookup(c.ID)
}

type symbolTable map[string]string

var nativeSymbols = symbolTable{
	"eth":      "ETH",
	"ethereum": "ETH",
	"bsc":      "BNB",
	"polygon":  "POL",
	"base":     "ETH",
	"op":       "ETH",
	"optimism": "ETH",
	"arbitrum": "ETH",
	"morph":    "ETH",
	"avax":     "AVAX",
}

func (t symbolTable) lookup(chainID string) string {
	if s, ok := t[strings.ToLower(chainID)]; ok {
		return s
	}
	return strings.ToUpper(chainID)
}

// ChainConfigsFromEndpoints builds chain configs from a chain id -> endpoint mapping,
// sorted by chain id.
func ChainConfigsFromEndpoints(endpoints map[string]string) []ChainConfig {
	chains := make([]ChainConfig, 0, len(endpoints))
	for id, url := range endpoints {
		id = strings.ToLower(strings.TrimSpace(id))
		chains = append(chains, ChainConfig{
			ID:       id,
			Family:   FamilyForChain(id),
			Endpoint: strings.TrimSpace(url),
		})
	}
	sort.Slice(chains, func(i, j int) bool { return chains[i].ID < chains[j].ID })
	return chains
}
