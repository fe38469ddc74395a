package models

import (
	"math/big"
	"strings"
)

// Balance is a native coin balance in base units together with its scale
type Balance struct {
	ChainID  string   `json:"chain_id"`
	Address  string   `json:"address"`
	Raw      *big.Int `json:"raw"`
	Decimals int      `json:"decimals"`
	Symbol   string   `json:"symbol"`
}

// Display returns the balance converted to the display unit
func (b *Balance) Display() string {
	return FormatAmount(b.Raw, b.Decimals)
}

// BalanceEntry is one chain's outcome inside a balance query result
type BalanceEntry struct {
	ChainID string   `json:"chain_id"`
	Balance *Balance `json:"balance,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// BalanceResult aggregates per-chain outcomes. Partial is set when at least one
// entry failed while others succeeded.
type BalanceResult struct {
	Selector NetworkSelector `json:"selector"`
	Address  string          `json:"address"`
	Entries  []BalanceEntry  `json:"entries"`
	Partial  bool            `json:"partial"`
}

// Failed counts entries carrying an error
func (r *BalanceResult) Failed() int {
	n := 0
	for _, e := range r.Entries {
		if e.Error != "" {
			n++
		}
	}
	return n
}

// FormatAmount renders a base-unit amount with the given decimals, trimming
// trailing zeros but keeping at least one fractional digit.
func FormatAmount(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	neg := amount.Sign() < 0
	str := new(big.Int).Abs(amount).String()

	for len(str) <= decimals {
		str = "0" + str
	}

	pos := len(str) - decimals
	result := str[:pos]
	if decimals > 0 {
		frac := strings.TrimRight(str[pos:], "0")
		if frac == "" {
			frac = "0"
		}
		result += "." + frac
	}
	if neg {
		return "-" + result
	}
	return result
}
