package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/smartdevs17/multichain-watcher/internal/models"
)

// JSON-RPC codes for slots that will never hold a block
const (
	solanaSlotSkipped            = -32007
	solanaLongTermStorageSkipped = -32009
)

// SolanaAdapter reads slots and balances from a Solana RPC node
type SolanaAdapter struct {
	config models.ChainConfig
	client *rpc.Client
	guard  *guard
}

// NewSolanaAdapter creates an adapter for the Solana endpoint in cfg
func NewSolanaAdapter(cfg models.ChainConfig, opts Options) *SolanaAdapter {
	return &SolanaAdapter{
		config: cfg,
		client: rpc.New(cfg.Endpoint),
		guard:  newGuard(cfg.ID, opts),
	}
}

func (a *SolanaAdapter) ChainID() string       { return a.config.ID }
func (a *SolanaAdapter) Family() models.Family { return models.FamilySolana }

// GetHeight returns the latest finalized slot
func (a *SolanaAdapter) GetHeight(ctx context.Context) (uint64, error) {
	var slot uint64
	err := a.guard.do(ctx, "getSlot", func(ctx context.Context) error {
		s, err := a.client.GetSlot(ctx, rpc.CommitmentFinalized)
		if err != nil {
			return err
		}
		slot = s
		return nil
	})
	if err != nil {
		return 0, err
	}
	return slot, nil
}

// GetBlock fetches the block produced in slot. Skipped slots yield an empty
// block so the cursor can move past them.
func (a *SolanaAdapter) GetBlock(ctx context.Context, slot uint64) (*models.Block, error) {
	var block *models.Block
	err := a.guard.do(ctx, "getBlock", func(ctx context.Context) error {
		rewards := false
		maxVersion := uint64(0)
		result, err := a.client.GetBlockWithOpts(ctx, slot, &rpc.GetBlockOpts{
			Encoding:                       solana.EncodingBase64,
			TransactionDetails:             rpc.TransactionDetailsFull,
			Rewards:                        &rewards,
			Commitment:                     rpc.CommitmentFinalized,
			MaxSupportedTransactionVersion: &maxVersion,
		})
		if err != nil {
			if isSkippedSlot(err) {
				block = &models.Block{Height: slot}
				return nil
			}
			return err
		}
		if result == nil {
			block = &models.Block{Height: slot}
			return nil
		}

		block = &models.Block{
			Height:       slot,
			Hash:         result.Blockhash.String(),
			Transactions: make([]models.Transaction, 0, len(result.Transactions)),
		}
		for i, txm := range result.Transactions {
			stx, err := decodeSolanaTx(txm)
			if err != nil {
				return fmt.Errorf("slot %d transaction %d: %w", slot, i, err)
			}
			block.Transactions = append(block.Transactions, flattenSolanaTx(stx)...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return block, nil
}

// GetBalance returns the lamport balance of addr
func (a *SolanaAdapter) GetBalance(ctx context.Context, addr string) (*models.Balance, error) {
	if err := ValidateAddress(models.FamilySolana, addr); err != nil {
		return nil, err
	}
	account := solana.MustPublicKeyFromBase58(addr)

	var lamports uint64
	err := a.guard.do(ctx, "getBalance", func(ctx context.Context) error {
		out, err := a.client.GetBalance(ctx, account, rpc.CommitmentFinalized)
		if err != nil {
			return err
		}
		lamports = out.Value
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &models.Balance{
		ChainID:  a.config.ID,
		Address:  addr,
		Raw:      new(big.Int).SetUint64(lamports),
		Decimals: models.FamilySolana.Decimals(),
		Symbol:   a.config.Symbol(),
	}, nil
}

func isSkippedSlot(err error) bool {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	return rpcErr.Code == solanaSlotSkipped || rpcErr.Code == solanaLongTermStorageSkipped
}

// solanaTx is a decoded transaction reduced to what flattening needs
type solanaTx struct {
	Signature string
	Accounts  []string
	Pre       []uint64
	Post      []uint64
	Failed    bool
}

// decodeSolanaTx reduces txm to accounts and balances. Missing meta or an
// unreadable payload is an error; a failed transaction is not.
func decodeSolanaTx(txm rpc.TransactionWithMeta) (solanaTx, error) {
	if txm.Meta == nil {
		return solanaTx{}, errors.New("transaction has no status meta")
	}
	tx, err := txm.GetTransaction()
	if err != nil {
		return solanaTx{}, fmt.Errorf("decode transaction: %w", err)
	}
	if tx == nil || len(tx.Signatures) == 0 {
		return solanaTx{}, errors.New("transaction has no signature")
	}

	accounts := make([]string, len(tx.Message.AccountKeys))
	for i, key := range tx.Message.AccountKeys {
		accounts[i] = key.String()
	}
	return solanaTx{
		Signature: tx.Signatures[0].String(),
		Accounts:  accounts,
		Pre:       txm.Meta.PreBalances,
		Post:      txm.Meta.PostBalances,
		Failed:    txm.Meta.Err != nil,
	}, nil
}

// flattenSolanaTx turns one transaction into from/to/value movements. The fee
// payer is the sender; each other static account whose lamports grew is a
// recipient of the increase. Failed transactions move nothing.
func flattenSolanaTx(tx solanaTx) []models.Transaction {
	if tx.Failed || len(tx.Accounts) == 0 {
		return nil
	}

	n := len(tx.Accounts)
	if len(tx.Pre) < n {
		n = len(tx.Pre)
	}
	if len(tx.Post) < n {
		n = len(tx.Post)
	}

	from := tx.Accounts[0]
	var out []models.Transaction
	for i := 1; i < n; i++ {
		if tx.Post[i] <= tx.Pre[i] {
			continue
		}
		to := tx.Accounts[i]
		out = append(out, models.Transaction{
			Hash:  tx.Signature,
			From:  from,
			To:    &to,
			Value: new(big.Int).SetUint64(tx.Post[i] - tx.Pre[i]),
		})
	}
	return out
}
