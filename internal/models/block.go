package models

import "math/big"

// Block is a chain block (or Solana slot) reduced to what matching needs
type Block struct {
	Height       uint64        `json:"height"`
	Hash         string        `json:"hash,omitempty"`
	Transactions []Transaction `json:"transactions"`
}

// Transaction is a single value movement. To is nil for contract-creation-like
// transactions. Value is in the chain's base unit (wei, lamports).
type Transaction struct {
	Hash  string   `json:"hash"`
	From  string   `json:"from"`
	To    *string  `json:"to,omitempty"`
	Value *big.Int `json:"value"`
}
