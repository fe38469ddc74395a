package models

import (
	"math/big"
	"time"
)

// Direction of a match relative to the tracked address
type Direction string

const (
	DirectionInbound  Direction = "INBOUND"
	DirectionOutbound Direction = "OUTBOUND"
)

// MatchEvent is a detected movement touching a tracked address. It is produced,
// dispatched and discarded; never persisted.
type MatchEvent struct {
	ID             string    `json:"id"`
	ChainID        string    `json:"chain_id"`
	Direction      Direction `json:"direction"`
	MatchedAddress string    `json:"matched_address"`
	Counterparty   string    `json:"counterparty,omitempty"`
	Amount         *big.Int  `json:"amount"`
	Decimals       int       `json:"decimals"`
	Symbol         string    `json:"symbol"`
	Height         uint64    `json:"height"`
	TxHash         string    `json:"tx_hash"`
	DetectedAt     time.Time `json:"detected_at"`
}
