package models

import (
	"fmt"
	"strings"
)

// SelectorKind is the closed set of network selections a caller can make
type SelectorKind int

const (
	SelectChain SelectorKind = iota
	SelectEVMGroup
	SelectSolana
	SelectTON
)

// NetworkSelector is resolved once from user input at the front end; the core
// never re-parses network names.
type NetworkSelector struct {
	Kind    SelectorKind `json:"kind"`
	ChainID string       `json:"chain_id,omitempty"`
}

// Family returns the family the selector targets
func (s NetworkSelector) Family() Family {
	switch s.Kind {
	case SelectSolana:
		return FamilySolana
	case SelectTON:
		return FamilyTON
	default:
		return FamilyEVM
	}
}

// Scope returns the scope key used when tracking addresses for this selector
func (s NetworkSelector) Scope() ScopeKey {
	return s.Family().Scope()
}

func (s NetworkSelector) String() string {
	switch s.Kind {
	case SelectEVMGroup:
		return "evm"
	case SelectSolana:
		return "solana"
	case SelectTON:
		return "ton"
	default:
		return s.ChainID
	}
}

// EVMGroupName is the network name that selects every configured EVM chain
const EVMGroupName = "evm"

// ResolveSelector maps a user supplied network name onto a selector, given the
// configured chains.
func ResolveSelector(name string, chains []ChainConfig) (NetworkSelector, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case EVMGroupName, "all":
		return NetworkSelector{Kind: SelectEVMGroup}, nil
	case "solana", "sol":
		if hasFamily(chains, FamilySolana) {
			return NetworkSelector{Kind: SelectSolana, ChainID: "solana"}, nil
		}
	case "ton":
		if hasFamily(chains, FamilyTON) {
			return NetworkSelector{Kind: SelectTON, ChainID: "ton"}, nil
		}
	default:
		for _, c := range chains {
			if c.ID == n && c.Family == FamilyEVM {
				return NetworkSelector{Kind: SelectChain, ChainID: c.ID}, nil
			}
		}
	}
	return NetworkSelector{}, fmt.Errorf("unknown network %q", name)
}

func hasFamily(chains []ChainConfig, f Family) bool {
	for _, c := range chains {
		if c.Family == f {
			return true
		}
	}
	return false
}
