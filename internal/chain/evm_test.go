package chain

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/multichain-watcher/internal/connection"
	"github.com/smartdevs17/multichain-watcher/internal/models"
	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

const testBlock = `{
	"number": "0x66",
	"hash": "0x1111111111111111111111111111111111111111111111111111111111111111",
	"transactions": [
		{
			"hash": "0x2222222222222222222222222222222222222222222222222222222222222222",
			"from": "0xAbCdEf0000000000000000000000000000000001",
			"to": "0x00000000000000000000000000000000000000Ff",
			"value": "0xde0b6b3a7640000",
			"type": "0x7e"
		},
		{
			"hash": "0x3333333333333333333333333333333333333333333333333333333333333333",
			"from": "0x0000000000000000000000000000000000000002",
			"to": null,
			"value": "0x0"
		}
	]
}`

type fakeEVMNode struct {
	results map[string]string
	calls   atomic.Int32
}

func (f *fakeEVMNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	var req struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	result, ok := f.results[req.Method]
	if !ok {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"error":{"code":-32000,"message":"boom"}}`))
		return
	}
	_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"result":` + result + `}`))
}

func newTestEVMAdapter(t *testing.T, results map[string]string) *EVMAdapter {
	t.Helper()
	srv := httptest.NewServer(&fakeEVMNode{results: results})
	t.Cleanup(srv.Close)

	cfg := models.ChainConfig{ID: "eth", Family: models.FamilyEVM, Endpoint: srv.URL}
	conn := connection.NewConnectionManager(connection.Config{ChainID: "eth", URL: srv.URL})
	t.Cleanup(func() { _ = conn.Close() })
	return NewEVMAdapter(cfg, conn, Options{RequestTimeout: time.Second})
}

func TestEVMGetHeight(t *testing.T) {
	a := newTestEVMAdapter(t, map[string]string{"eth_blockNumber": `"0x67"`})

	height, err := a.GetHeight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(103), height)
}

func TestEVMGetBlock(t *testing.T) {
	a := newTestEVMAdapter(t, map[string]string{"eth_getBlockByNumber": testBlock})

	block, err := a.GetBlock(context.Background(), 102)
	require.NoError(t, err)
	require.Len(t, block.Transactions, 2)

	first := block.Transactions[0]
	assert.Equal(t, "0xabcdef0000000000000000000000000000000001", first.From)
	require.NotNil(t, first.To)
	assert.Equal(t, "0x00000000000000000000000000000000000000ff", *first.To)
	assert.Equal(t, "1000000000000000000", first.Value.String())

	assert.Nil(t, block.Transactions[1].To)
	assert.Equal(t, uint64(102), block.Height)
}

func TestEVMGetBlockNullIsUnavailable(t *testing.T) {
	a := newTestEVMAdapter(t, map[string]string{"eth_getBlockByNumber": `null`})

	_, err := a.GetBlock(context.Background(), 104)
	require.Error(t, err)
	assert.True(t, utils.HasCode(err, utils.ErrCodeChainUnavailable))
}

func TestEVMRPCErrorIsUnavailable(t *testing.T) {
	a := newTestEVMAdapter(t, map[string]string{})

	_, err := a.GetHeight(context.Background())
	require.Error(t, err)
	assert.True(t, utils.HasCode(err, utils.ErrCodeChainUnavailable))
}

func TestEVMGetBalance(t *testing.T) {
	a := newTestEVMAdapter(t, map[string]string{"eth_getBalance": `"0x1bc16d674ec80000"`})

	bal, err := a.GetBalance(context.Background(), "0xAbCdEf0000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, 0, bal.Raw.Cmp(big.NewInt(2_000_000_000_000_000_000)))
	assert.Equal(t, "2.0", bal.Display())
	assert.Equal(t, "ETH", bal.Symbol)
	assert.Equal(t, "0xabcdef0000000000000000000000000000000001", bal.Address)
}

func TestEVMGetBalanceRejectsMalformedAddress(t *testing.T) {
	node := &fakeEVMNode{results: map[string]string{}}
	srv := httptest.NewServer(node)
	defer srv.Close()

	cfg := models.ChainConfig{ID: "eth", Family: models.FamilyEVM, Endpoint: srv.URL}
	a := NewEVMAdapter(cfg, connection.NewConnectionManager(connection.Config{ChainID: "eth", URL: srv.URL}), Options{})

	_, err := a.GetBalance(context.Background(), "0x123")
	require.Error(t, err)
	assert.True(t, utils.HasCode(err, utils.ErrCodeInvalidAddress))
	assert.Equal(t, int32(0), node.calls.Load())
}

func TestEVMGetBalanceTransportFailureDropsClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		_ = conn.Close()
	}))
	defer srv.Close()

	cfg := models.ChainConfig{ID: "eth", Family: models.FamilyEVM, Endpoint: srv.URL}
	conn := connection.NewConnectionManager(connection.Config{ChainID: "eth", URL: srv.URL})
	defer conn.Close()
	a := NewEVMAdapter(cfg, conn, Options{RequestTimeout: time.Second})

	_, err := a.GetBalance(context.Background(), "0xAbCdEf0000000000000000000000000000000001")
	require.Error(t, err)
	assert.True(t, utils.HasCode(err, utils.ErrCodeChainUnavailable))

	stats := conn.Stats()
	assert.Equal(t, uint64(1), stats.FailedRequests)
	assert.Equal(t, uint64(1), stats.Reconnects)
	assert.False(t, conn.IsConnected())
}
