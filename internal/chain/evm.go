package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/smartdevs17/multichain-watcher/internal/connection"
	"github.com/smartdevs17/multichain-watcher/internal/models"
	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

// EVMAdapter reads blocks and balances from an Ethereum-compatible node
type EVMAdapter struct {
	config models.ChainConfig
	conn   connection.Manager
	guard  *guard
}

// NewEVMAdapter creates an adapter over conn for chain cfg
func NewEVMAdapter(cfg models.ChainConfig, conn connection.Manager, opts Options) *EVMAdapter {
	return &EVMAdapter{
		config: cfg,
		conn:   conn,
		guard:  newGuard(cfg.ID, opts),
	}
}

func (a *EVMAdapter) ChainID() string       { return a.config.ID }
func (a *EVMAdapter) Family() models.Family { return models.FamilyEVM }

// Connection exposes the underlying connection manager for health checks
func (a *EVMAdapter) Connection() connection.Manager { return a.conn }

// GetHeight returns the latest block number
func (a *EVMAdapter) GetHeight(ctx context.Context) (uint64, error) {
	var height uint64
	err := a.guard.do(ctx, "eth_blockNumber", func(ctx context.Context) error {
		var raw hexutil.Uint64
		if err := a.conn.Call(ctx, &raw, "eth_blockNumber"); err != nil {
			return err
		}
		height = uint64(raw)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return height, nil
}

// rpcBlock is the subset of eth_getBlockByNumber we read. Decoding only these
// fields keeps non-standard transaction types (L2 deposits) from failing the block.
type rpcBlock struct {
	Number       hexutil.Uint64 `json:"number"`
	Hash         common.Hash    `json:"hash"`
	Transactions []rpcTx        `json:"transactions"`
}

type rpcTx struct {
	Hash  common.Hash     `json:"hash"`
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to"`
	Value *hexutil.Big    `json:"value"`
}

// GetBlock fetches block height with full transaction objects
func (a *EVMAdapter) GetBlock(ctx context.Context, height uint64) (*models.Block, error) {
	var block *models.Block
	err := a.guard.do(ctx, "eth_getBlockByNumber", func(ctx context.Context) error {
		var raw json.RawMessage
		if err := a.conn.Call(ctx, &raw, "eth_getBlockByNumber", hexutil.EncodeUint64(height), true); err != nil {
			return err
		}
		if len(raw) == 0 || string(raw) == "null" {
			return fmt.Errorf("block %d not available", height)
		}

		var rb rpcBlock
		if err := json.Unmarshal(raw, &rb); err != nil {
			return fmt.Errorf("decode block %d: %w", height, err)
		}
		block = convertEVMBlock(height, &rb)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return block, nil
}

func convertEVMBlock(height uint64, rb *rpcBlock) *models.Block {
	block := &models.Block{
		Height:       height,
		Hash:         rb.Hash.Hex(),
		Transactions: make([]models.Transaction, 0, len(rb.Transactions)),
	}
	for _, tx := range rb.Transactions {
		t := models.Transaction{
			Hash:  tx.Hash.Hex(),
			From:  strings.ToLower(tx.From.Hex()),
			Value: new(big.Int),
		}
		if tx.To != nil {
			to := strings.ToLower(tx.To.Hex())
			t.To = &to
		}
		if tx.Value != nil {
			t.Value = tx.Value.ToInt()
		}
		block.Transactions = append(block.Transactions, t)
	}
	return block
}

// GetBalance returns the native balance of addr at the latest block
func (a *EVMAdapter) GetBalance(ctx context.Context, addr string) (*models.Balance, error) {
	if err := ValidateAddress(models.FamilyEVM, addr); err != nil {
		return nil, err
	}
	account := common.HexToAddress(addr)

	var raw *big.Int
	err := a.guard.do(ctx, "eth_getBalance", func(ctx context.Context) error {
		var balance hexutil.Big
		if err := a.conn.Call(ctx, &balance, "eth_getBalance", account, "latest"); err != nil {
			return err
		}
		raw = balance.ToInt()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &models.Balance{
		ChainID:  a.config.ID,
		Address:  utils.NormalizeAddress(addr),
		Raw:      raw,
		Decimals: models.FamilyEVM.Decimals(),
		Symbol:   a.config.Symbol(),
	}, nil
}
