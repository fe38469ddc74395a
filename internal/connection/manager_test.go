package connection

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRPCServer(t *testing.T, results map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		result, ok := results[req.Method]
		if !ok {
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"error":{"code":-32601,"message":"method not found"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"result":` + result + `}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthCheckRecordsStats(t *testing.T) {
	srv := newRPCServer(t, map[string]string{
		"eth_chainId":     `"0x1"`,
		"eth_blockNumber": `"0x64"`,
	})

	cm := NewConnectionManager(Config{ChainID: "eth", URL: srv.URL, RequestTimeout: time.Second})
	defer cm.Close()

	require.NoError(t, cm.HealthCheckWithContext(context.Background()))
	assert.True(t, cm.IsConnected())

	stats := cm.Stats()
	assert.Equal(t, uint64(1), stats.NetworkID)
	assert.Equal(t, uint64(100), stats.LatestBlock)
	assert.True(t, stats.IsHealthy)
}

func TestCallKeepsClientOnRPCError(t *testing.T) {
	srv := newRPCServer(t, map[string]string{})

	cm := NewConnectionManager(Config{ChainID: "eth", URL: srv.URL})
	defer cm.Close()

	var out string
	err := cm.Call(context.Background(), &out, "eth_unknown")
	require.Error(t, err)

	stats := cm.Stats()
	assert.Equal(t, uint64(1), stats.TotalRequests)
	assert.Equal(t, uint64(1), stats.FailedRequests)
	assert.Equal(t, uint64(0), stats.Reconnects)
}

func TestIsTransportError(t *testing.T) {
	assert.False(t, isTransportError(nil))
	assert.True(t, isTransportError(errors.New("connection refused")))
	assert.False(t, isTransportError(rpc.HTTPError{StatusCode: 503, Status: "503 Service Unavailable"}))
}
