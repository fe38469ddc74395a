package connection

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

// Manager defines the EVM connection manager interface
type Manager interface {
	GetClientWithContext(ctx context.Context) (*ethclient.Client, error)
	Call(ctx context.Context, result interface{}, method string, args ...interface{}) error
	HealthCheckWithContext(ctx context.Context) error
	IsConnected() bool
	Close() error
	Stats() ConnectionStats
}

// Config controls how a chain endpoint is dialed
type Config struct {
	ChainID        string
	URL            string
	RetryAttempts  int
	RetryDelay     time.Duration
	RequestTimeout time.Duration
}

// ConnectionManager owns the ethclient of one EVM chain and redials it after failures
type ConnectionManager struct {
	config          Config
	client          *ethclient.Client
	mu              sync.RWMutex
	logger          *logrus.Entry
	stats           ConnectionStats
	lastHealthCheck time.Time
	isHealthy       bool
}

// ConnectionStats holds connection statistics
type ConnectionStats struct {
	ChainID         string    `json:"chain_id"`
	TotalRequests   uint64    `json:"total_requests"`
	FailedRequests  uint64    `json:"failed_requests"`
	Reconnects      uint64    `json:"reconnects"`
	CurrentURL      string    `json:"current_url"`
	LastConnectedAt time.Time `json:"last_connected_at"`
	LastHealthCheck time.Time `json:"last_health_check"`
	IsHealthy       bool      `json:"is_healthy"`
	NetworkID       uint64    `json:"network_id"`
	LatestBlock     uint64    `json:"latest_block"`
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager(cfg Config) *ConnectionManager {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &ConnectionManager{
		config: cfg,
		logger: utils.ComponentLogger("connection").WithField("chain", cfg.ChainID),
		stats: ConnectionStats{
			ChainID:    cfg.ChainID,
			CurrentURL: cfg.URL,
		},
	}
}

// GetClientWithContext returns the current client, dialing on first use
func (cm *ConnectionManager) GetClientWithContext(ctx context.Context) (*ethclient.Client, error) {
	cm.mu.RLock()
	client := cm.client
	cm.mu.RUnlock()

	if client == nil {
		return cm.connect(ctx)
	}
	return client, nil
}

// connect establishes a new connection
func (cm *ConnectionManager) connect(ctx context.Context) (*ethclient.Client, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.client != nil {
		return cm.client, nil
	}

	var lastErr error
	for attempt := 0; attempt < cm.config.RetryAttempts; attempt++ {
		cm.logger.WithField("attempt", attempt+1).Debug("Dialing chain endpoint")

		client, err := cm.dialWithTimeout(ctx, cm.config.URL)
		if err == nil {
			cm.client = client
			cm.stats.LastConnectedAt = time.Now()
			cm.logger.Info("Connected to chain endpoint")
			return client, nil
		}

		lastErr = err
		cm.stats.FailedRequests++
		cm.logger.WithError(err).Warn("Connection failed")

		if attempt < cm.config.RetryAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(cm.config.RetryDelay):
			}
		}
	}

	return nil, utils.WrapError(utils.ErrCodeChainUnavailable, "Failed to connect to chain endpoint", lastErr)
}

// reconnect drops the current client so the next call dials again
func (cm *ConnectionManager) reconnect() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.client != nil {
		cm.client.Close()
		cm.client = nil
	}
	cm.isHealthy = false
	cm.stats.Reconnects++
}

// dialWithTimeout creates a connection with timeout
func (cm *ConnectionManager) dialWithTimeout(ctx context.Context, url string) (*ethclient.Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, cm.config.RequestTimeout)
	defer cancel()

	return ethclient.DialContext(dialCtx, url)
}

// HealthCheckWithContext queries chain id and head and records them in stats
func (cm *ConnectionManager) HealthCheckWithContext(ctx context.Context) error {
	client, err := cm.GetClientWithContext(ctx)
	if err != nil {
		cm.setHealthy(false)
		return err
	}

	networkID, err := client.ChainID(ctx)
	if err != nil {
		cm.setHealthy(false)
		return utils.WrapError(utils.ErrCodeChainUnavailable, "Failed to get chain id", err)
	}

	blockNumber, err := client.BlockNumber(ctx)
	if err != nil {
		cm.setHealthy(false)
		return utils.WrapError(utils.ErrCodeChainUnavailable, "Failed to get latest block", err)
	}

	cm.mu.Lock()
	cm.stats.NetworkID = networkID.Uint64()
	cm.stats.LatestBlock = blockNumber
	cm.stats.LastHealthCheck = time.Now()
	cm.stats.IsHealthy = true
	cm.lastHealthCheck = time.Now()
	cm.isHealthy = true
	cm.mu.Unlock()

	cm.logger.WithFields(logrus.Fields{
		"network_id":   networkID.Uint64(),
		"latest_block": blockNumber,
	}).Debug("Health check passed")

	return nil
}

func (cm *ConnectionManager) setHealthy(healthy bool) {
	cm.mu.Lock()
	cm.isHealthy = healthy
	cm.stats.IsHealthy = healthy
	cm.stats.LastHealthCheck = time.Now()
	cm.lastHealthCheck = cm.stats.LastHealthCheck
	cm.mu.Unlock()
}

// IsConnected returns whether the manager is connected
func (cm *ConnectionManager) IsConnected() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.client != nil && cm.isHealthy
}

// Close closes the connection
func (cm *ConnectionManager) Close() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.client != nil {
		cm.client.Close()
		cm.client = nil
	}

	cm.isHealthy = false
	cm.logger.Debug("Connection manager closed")
	return nil
}

// Stats returns connection statistics
func (cm *ConnectionManager) Stats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.stats
}

// Call invokes a raw JSON-RPC method on the chain endpoint
func (cm *ConnectionManager) Call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	client, err := cm.GetClientWithContext(ctx)
	if err != nil {
		return err
	}

	callErr := client.Client().CallContext(ctx, result, method, args...)

	cm.mu.Lock()
	cm.stats.TotalRequests++
	if callErr != nil {
		cm.stats.FailedRequests++
	}
	cm.mu.Unlock()

	if callErr != nil && ctx.Err() == nil && isTransportError(callErr) {
		cm.logger.WithError(callErr).Warn("Transport failure, dropping client")
		cm.reconnect()
	}
	return callErr
}
