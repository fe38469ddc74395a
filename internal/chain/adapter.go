// Package chain talks to chain nodes. One Adapter per configured network.
package chain

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/xssnick/tonutils-go/address"
	"golang.org/x/time/rate"

	"github.com/smartdevs17/multichain-watcher/internal/metrics"
	"github.com/smartdevs17/multichain-watcher/internal/models"
	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

// Adapter is the uniform view of one network. Every failure is returned as a
// CHAIN_UNAVAILABLE AppError; adapters never return zero values in place of errors.
type Adapter interface {
	ChainID() string
	Family() models.Family
	GetHeight(ctx context.Context) (uint64, error)
	GetBlock(ctx context.Context, height uint64) (*models.Block, error)
	GetBalance(ctx context.Context, address string) (*models.Balance, error)
}

// ErrScanUnsupported is the cause returned by adapters that cannot enumerate blocks
var ErrScanUnsupported = errors.New("block scanning not supported for this network")

// Options shared by every adapter
type Options struct {
	RequestTimeout time.Duration
	RateLimit      float64 // requests per second, 0 disables limiting
	RateBurst      int
	Metrics        *metrics.PrometheusMetrics
}

// guard applies the per-chain rate limit and request timeout to adapter calls,
// and maps every failure onto CHAIN_UNAVAILABLE.
type guard struct {
	chainID string
	timeout time.Duration
	limiter *rate.Limiter
	metrics *metrics.PrometheusMetrics
	logger  *logrus.Entry
}

func newGuard(chainID string, opts Options) *guard {
	g := &guard{
		chainID: chainID,
		timeout: opts.RequestTimeout,
		metrics: opts.Metrics,
		logger:  utils.ComponentLogger("chain").WithField("chain", chainID),
	}
	if g.timeout <= 0 {
		g.timeout = 10 * time.Second
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return g
}

func (g *guard) do(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	start := time.Now()

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			g.metrics.RecordRPCRequest(g.chainID, method, "rate_limited", time.Since(start))
			return utils.NewChainUnavailable(g.chainID, err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	err := fn(callCtx)
	if err != nil {
		g.metrics.RecordRPCRequest(g.chainID, method, "error", time.Since(start))
		g.logger.WithFields(logrus.Fields{
			"method": method,
			"error":  err.Error(),
		}).Debug("Chain call failed")
		if utils.HasCode(err, utils.ErrCodeChainUnavailable) {
			return err
		}
		return utils.NewChainUnavailable(g.chainID, err)
	}
	g.metrics.RecordRPCRequest(g.chainID, method, "success", time.Since(start))
	return nil
}

// ValidateAddress checks that address is well formed for family. It runs before
// any adapter call so malformed input never reaches a node.
func ValidateAddress(family models.Family, addr string) error {
	addr = utils.NormalizeAddress(addr)
	if addr == "" {
		return utils.NewAppError(utils.ErrCodeInvalidAddress, "Address is empty")
	}

	switch family {
	case models.FamilyEVM:
		if !common.IsHexAddress(addr) || !utils.IsHexStyle(addr) {
			return utils.NewAppError(utils.ErrCodeInvalidAddress, "Invalid EVM address", addr)
		}
	case models.FamilySolana:
		if _, err := solana.PublicKeyFromBase58(addr); err != nil {
			return utils.NewAppError(utils.ErrCodeInvalidAddress, "Invalid Solana address", addr)
		}
	case models.FamilyTON:
		if _, err := address.ParseAddr(addr); err != nil {
			if _, rawErr := address.ParseRawAddr(addr); rawErr != nil {
				return utils.NewAppError(utils.ErrCodeInvalidAddress, "Invalid TON address", addr)
			}
		}
	default:
		return utils.NewAppError(utils.ErrCodeInvalidAddress, "Unknown network family", string(family))
	}
	return nil
}
