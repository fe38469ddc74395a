// File: internal/monitor/monitor.go
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/multichain-watcher/internal/chain"
	"github.com/smartdevs17/multichain-watcher/internal/metrics"
	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

// ChainMonitor owns one scan loop per scannable chain
type ChainMonitor struct {
	scanners []*ChainScanner
	cursors  *CursorStore
	logger   *logrus.Entry

	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startTime time.Time
}

// MonitorStats provides monitoring statistics
type MonitorStats struct {
	StartTime time.Time     `json:"start_time"`
	Uptime    time.Duration `json:"uptime"`
	IsRunning bool          `json:"is_running"`
	Chains    []ChainStatus `json:"chains"`
}

// HealthStatus provides health information
type HealthStatus struct {
	Healthy bool     `json:"healthy"`
	Issues  []string `json:"issues,omitempty"`
}

// NewChainMonitor creates scanners for every adapter that supports block scanning
func NewChainMonitor(adapters []chain.Adapter, source AddressSource, sink EventSink,
	config ScannerConfig, pm *metrics.PrometheusMetrics) *ChainMonitor {

	ids := make([]string, 0, len(adapters))
	for _, a := range adapters {
		ids = append(ids, a.ChainID())
	}
	cursors := NewCursorStore(ids...)

	m := &ChainMonitor{
		cursors: cursors,
		logger:  utils.ComponentLogger("monitor"),
	}
	for _, a := range adapters {
		cursor, _ := cursors.Cursor(a.ChainID())
		m.scanners = append(m.scanners, NewChainScanner(a, cursor, source, sink, config, pm))
	}
	return m
}

// Start launches every scan loop
func (m *ChainMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return utils.NewAppError(utils.ErrCodeInternal, "Monitor already running", "")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.startTime = time.Now()

	for _, s := range m.scanners {
		m.wg.Add(1)
		go func(s *ChainScanner) {
			defer m.wg.Done()
			s.Run(loopCtx)
		}(s)
	}

	m.logger.WithField("chains", m.cursors.ChainIDs()).Info("Chain monitor started")
	return nil
}

// Stop cancels every loop and waits for in-flight blocks to finish
func (m *ChainMonitor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	m.logger.Info("Stopping chain monitor")
	cancel()
	m.wg.Wait()
	m.logger.WithField("cursors", m.cursors.Heights()).Info("Chain monitor stopped")
	return nil
}

// IsRunning returns whether the monitor is running
func (m *ChainMonitor) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Cursors exposes the cursor store for status reads
func (m *ChainMonitor) Cursors() *CursorStore {
	return m.cursors
}

// GetStats returns per-chain loop statistics
func (m *ChainMonitor) GetStats() *MonitorStats {
	m.mu.RLock()
	stats := &MonitorStats{
		StartTime: m.startTime,
		IsRunning: m.running,
	}
	m.mu.RUnlock()

	if stats.IsRunning {
		stats.Uptime = time.Since(stats.StartTime)
	}
	for _, s := range m.scanners {
		stats.Chains = append(stats.Chains, s.Status())
	}
	return stats
}

// GetHealth reports chains whose loops are failing
func (m *ChainMonitor) GetHealth() *HealthStatus {
	health := &HealthStatus{Healthy: true}
	if !m.IsRunning() {
		health.Healthy = false
		health.Issues = append(health.Issues, "monitor is not running")
		return health
	}
	for _, s := range m.scanners {
		st := s.Status()
		if st.ConsecutiveFailures >= 3 {
			health.Healthy = false
			msg := st.ChainID + ": scan failing"
			if st.LastError != nil {
				msg += " (" + *st.LastError + ")"
			}
			health.Issues = append(health.Issues, msg)
		}
	}
	return health
}
