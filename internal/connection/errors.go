package connection

import (
	"errors"

	"github.com/ethereum/go-ethereum/rpc"
)

// isTransportError reports whether err came from the transport rather than from
// a node that answered. A node answering with a JSON-RPC or HTTP error keeps its client.
func isTransportError(err error) bool {
	if err == nil {
		return false
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return false
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return false
	}
	return true
}
