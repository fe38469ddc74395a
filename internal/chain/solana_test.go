package chain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/multichain-watcher/internal/models"
	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

func TestFlattenSolanaTx(t *testing.T) {
	tx := solanaTx{
		Signature: "sig1",
		Accounts:  []string{"payer", "alice", "bob", "program"},
		Pre:       []uint64{10_000, 0, 500, 1},
		Post:      []uint64{4_000, 3_000, 2_500, 1},
	}

	out := flattenSolanaTx(tx)
	require.Len(t, out, 2)

	assert.Equal(t, "payer", out[0].From)
	assert.Equal(t, "alice", *out[0].To)
	assert.Equal(t, "3000", out[0].Value.String())

	assert.Equal(t, "bob", *out[1].To)
	assert.Equal(t, "2000", out[1].Value.String())
	assert.Equal(t, "sig1", out[1].Hash)
}

func TestFlattenSolanaTxDropsFailed(t *testing.T) {
	tx := solanaTx{
		Signature: "sig2",
		Accounts:  []string{"payer", "alice"},
		Pre:       []uint64{10, 0},
		Post:      []uint64{5, 5},
		Failed:    true,
	}
	assert.Empty(t, flattenSolanaTx(tx))
}

func TestFlattenSolanaTxShortBalances(t *testing.T) {
	tx := solanaTx{
		Signature: "sig3",
		Accounts:  []string{"payer", "alice", "bob"},
		Pre:       []uint64{10, 0},
		Post:      []uint64{5, 5},
	}
	out := flattenSolanaTx(tx)
	require.Len(t, out, 1)
	assert.Equal(t, "alice", *out[0].To)
}

func TestIsSkippedSlot(t *testing.T) {
	assert.True(t, isSkippedSlot(&jsonrpc.RPCError{Code: -32007}))
	assert.True(t, isSkippedSlot(fmt.Errorf("wrapped: %w", &jsonrpc.RPCError{Code: -32009})))
	assert.False(t, isSkippedSlot(&jsonrpc.RPCError{Code: -32004}))
	assert.False(t, isSkippedSlot(fmt.Errorf("timeout")))
}

func newSolanaServer(t *testing.T, handle func(method string) string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,` + handle(req.Method) + `}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSolanaSkippedSlotIsEmptyBlock(t *testing.T) {
	srv := newSolanaServer(t, func(method string) string {
		return `"error":{"code":-32007,"message":"Slot 55 was skipped"}`
	})
	a := NewSolanaAdapter(models.ChainConfig{ID: "solana", Family: models.FamilySolana, Endpoint: srv.URL},
		Options{RequestTimeout: time.Second})

	block, err := a.GetBlock(context.Background(), 55)
	require.NoError(t, err)
	assert.Equal(t, uint64(55), block.Height)
	assert.Empty(t, block.Transactions)
}

func TestSolanaGetHeightAndBalance(t *testing.T) {
	srv := newSolanaServer(t, func(method string) string {
		switch method {
		case "getSlot":
			return `"result":250000000`
		case "getBalance":
			return `"result":{"context":{"slot":250000000},"value":1500000000}`
		}
		return `"error":{"code":-32601,"message":"method not found"}`
	})
	a := NewSolanaAdapter(models.ChainConfig{ID: "solana", Family: models.FamilySolana, Endpoint: srv.URL},
		Options{RequestTimeout: time.Second})

	height, err := a.GetHeight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(250000000), height)

	bal, err := a.GetBalance(context.Background(), "So11111111111111111111111111111111111111112")
	require.NoError(t, err)
	assert.Equal(t, "1.5", bal.Display())
	assert.Equal(t, "SOL", bal.Symbol)
}

func TestSolanaRPCFailureIsUnavailable(t *testing.T) {
	srv := newSolanaServer(t, func(method string) string {
		return `"error":{"code":-32004,"message":"Block not available for slot 9"}`
	})
	a := NewSolanaAdapter(models.ChainConfig{ID: "solana", Family: models.FamilySolana, Endpoint: srv.URL},
		Options{RequestTimeout: time.Second})

	_, err := a.GetBlock(context.Background(), 9)
	require.Error(t, err)
	assert.True(t, utils.HasCode(err, utils.ErrCodeChainUnavailable))
}

// encodeTransferTx builds a legacy transaction with payer and recipient as its
// first accounts and returns it base64 encoded
func encodeTransferTx(t *testing.T, payer, recipient solana.PublicKey) string {
	t.Helper()
	tx := &solana.Transaction{
		Signatures: []solana.Signature{{1, 2, 3}},
		Message: solana.Message{
			Header: solana.MessageHeader{
				NumRequiredSignatures:       1,
				NumReadonlyUnsignedAccounts: 1,
			},
			AccountKeys: solana.PublicKeySlice{payer, recipient, solana.SystemProgramID},
			Instructions: []solana.CompiledInstruction{
				{ProgramIDIndex: 2, Accounts: []uint16{0, 1}, Data: []byte{2, 0, 0, 0, 5, 0, 0, 0, 0, 0, 0, 0}},
			},
		},
	}
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func solanaBlockResult(txs ...string) string {
	out := `"result":{"blockhash":"11111111111111111111111111111111","previousBlockhash":"11111111111111111111111111111111","parentSlot":9,"blockTime":null,"transactions":[`
	for i, tx := range txs {
		if i > 0 {
			out += ","
		}
		out += tx
	}
	return out + `]}`
}

func transferEntry(meta, payload string) string {
	return `{"meta":` + meta + `,"transaction":["` + payload + `","base64"]}`
}

const okTransferMeta = `{"err":null,"fee":5000,"preBalances":[10,0,1],"postBalances":[5,5,1]}`

func TestSolanaGetBlockFlattensTransfers(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	recipient := solana.NewWallet().PublicKey()
	payload := encodeTransferTx(t, payer, recipient)

	srv := newSolanaServer(t, func(method string) string {
		return solanaBlockResult(
			transferEntry(okTransferMeta, payload),
			transferEntry(`{"err":{"InstructionError":[0,"Custom"]},"fee":5000,"preBalances":[10,0,1],"postBalances":[5,5,1]}`, payload),
		)
	})
	a := NewSolanaAdapter(models.ChainConfig{ID: "solana", Family: models.FamilySolana, Endpoint: srv.URL},
		Options{RequestTimeout: time.Second})

	block, err := a.GetBlock(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), block.Height)
	require.Len(t, block.Transactions, 1)
	assert.Equal(t, payer.String(), block.Transactions[0].From)
	assert.Equal(t, recipient.String(), *block.Transactions[0].To)
	assert.Equal(t, "5", block.Transactions[0].Value.String())
}

func TestSolanaGetBlockFailsOnUnreadableTransaction(t *testing.T) {
	payload := encodeTransferTx(t, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())

	tests := []struct {
		name      string
		malformed string
	}{
		{"missing meta", transferEntry("null", payload)},
		{"undecodable payload", transferEntry(okTransferMeta, "AQID")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newSolanaServer(t, func(method string) string {
				return solanaBlockResult(transferEntry(okTransferMeta, payload), tt.malformed)
			})
			a := NewSolanaAdapter(models.ChainConfig{ID: "solana", Family: models.FamilySolana, Endpoint: srv.URL},
				Options{RequestTimeout: time.Second})

			block, err := a.GetBlock(context.Background(), 10)
			require.Error(t, err)
			assert.Nil(t, block)
			assert.True(t, utils.HasCode(err, utils.ErrCodeChainUnavailable))
		})
	}
}
