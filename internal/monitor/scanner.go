package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/multichain-watcher/internal/chain"
	"github.com/smartdevs17/multichain-watcher/internal/metrics"
	"github.com/smartdevs17/multichain-watcher/internal/models"
	"github.com/smartdevs17/multichain-watcher/internal/registry"
	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

// EventSink receives match events in emission order
type EventSink interface {
	Enqueue(ctx context.Context, event models.MatchEvent) error
}

// AddressSource provides the tracked set a block is matched against
type AddressSource interface {
	Snapshot(scope models.ScopeKey) registry.AddressSet
}

// ScannerConfig holds per-chain scan loop settings
type ScannerConfig struct {
	PollInterval       time.Duration `json:"poll_interval"`
	BatchSize          int           `json:"batch_size"`
	RetryDelay         time.Duration `json:"retry_delay"`
	MaxBackoff         time.Duration `json:"max_backoff"`
	ConfirmationBlocks int           `json:"confirmation_blocks"`
}

// ChainStatus is a point-in-time view of one scan loop
type ChainStatus struct {
	ChainID             string        `json:"chain_id"`
	Family              models.Family `json:"family"`
	Cursor              int64         `json:"cursor"`
	Head                uint64        `json:"head"`
	BlocksScanned       uint64        `json:"blocks_scanned"`
	MatchesEmitted      uint64        `json:"matches_emitted"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	LastScanAt          *time.Time    `json:"last_scan_at,omitempty"`
	LastError           *string       `json:"last_error,omitempty"`
	LastErrorAt         *time.Time    `json:"last_error_at,omitempty"`
}

// ChainScanner is the scan loop of a single chain. It owns the chain's cursor.
type ChainScanner struct {
	adapter  chain.Adapter
	chain    models.ChainConfig
	cursor   *Cursor
	registry AddressSource
	sink     EventSink
	config   ScannerConfig
	metrics  *metrics.PrometheusMetrics
	logger   *logrus.Entry
	now      func() time.Time

	failures int

	mu    sync.RWMutex
	stats ChainStatus
}

// NewChainScanner creates the scan loop for adapter
func NewChainScanner(adapter chain.Adapter, cursor *Cursor, source AddressSource, sink EventSink,
	config ScannerConfig, pm *metrics.PrometheusMetrics) *ChainScanner {

	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = config.PollInterval
	}
	if config.MaxBackoff < config.RetryDelay {
		config.MaxBackoff = config.RetryDelay
	}

	cfg := models.ChainConfig{ID: adapter.ChainID(), Family: adapter.Family()}
	return &ChainScanner{
		adapter:  adapter,
		chain:    cfg,
		cursor:   cursor,
		registry: source,
		sink:     sink,
		config:   config,
		metrics:  pm,
		logger:   utils.ComponentLogger("scanner").WithField("chain", cfg.ID),
		now:      time.Now,
		stats: ChainStatus{
			ChainID: cfg.ID,
			Family:  cfg.Family,
		},
	}
}

// Run scans until ctx is cancelled. A block being processed when ctx is
// cancelled is finished (bounded by the adapter timeout) before Run returns.
func (s *ChainScanner) Run(ctx context.Context) {
	s.logger.WithFields(logrus.Fields{
		"poll_interval": s.config.PollInterval,
		"batch_size":    s.config.BatchSize,
	}).Info("Starting scan loop")

	for {
		wait := s.config.PollInterval
		if err := s.Tick(ctx); err != nil && ctx.Err() == nil {
			wait = s.backoff()
			s.logger.WithFields(logrus.Fields{
				"error":    err.Error(),
				"failures": s.failures,
				"retry_in": wait,
			}).Warn("Scan tick failed")
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.WithField("cursor", s.cursor.Get()).Info("Scan loop stopped")
			return
		case <-timer.C:
		}
	}
}

// backoff returns retry_delay doubled per consecutive failure, capped at max_backoff
func (s *ChainScanner) backoff() time.Duration {
	d := s.config.RetryDelay
	for i := 1; i < s.failures && d < s.config.MaxBackoff; i++ {
		d *= 2
	}
	if d > s.config.MaxBackoff {
		d = s.config.MaxBackoff
	}
	return d
}

// Tick reads the head and walks cursor+1..head in ascending order, at most
// BatchSize blocks. It stops at the first failed block; the cursor then sits
// on the last block whose events were all enqueued.
func (s *ChainScanner) Tick(ctx context.Context) error {
	head, err := s.adapter.GetHeight(ctx)
	if err != nil {
		s.recordFailure("height", err)
		return err
	}
	if c := uint64(s.config.ConfirmationBlocks); c > 0 {
		if head <= c {
			head = 0
		} else {
			head -= c
		}
	}
	s.setHead(head)

	// Nothing past genesis is confirmed yet. Genesis itself is never scanned.
	if head == 0 {
		s.recordSuccess(head)
		return nil
	}

	cur := s.cursor.Get()
	if cur == NotScanned {
		start := int64(head) - 1
		s.cursor.Advance(start)
		cur = s.cursor.Get()
		s.logger.WithField("cursor", cur).Info("Scan cursor initialized")
	}

	if int64(head) <= cur {
		s.recordSuccess(head)
		return nil
	}

	from := uint64(cur + 1)
	to := head
	if to-from+1 > uint64(s.config.BatchSize) {
		to = from + uint64(s.config.BatchSize) - 1
	}

	s.logger.WithFields(logrus.Fields{
		"from": from,
		"to":   to,
		"head": head,
	}).Debug("Scanning block range")

	for height := from; height <= to; height++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.processBlock(ctx, height); err != nil {
			s.recordFailure("block", err)
			return err
		}
	}

	s.recordSuccess(head)
	return nil
}

// processBlock fetches, matches and enqueues one block, then advances the cursor.
// Shutdown does not interrupt it; the adapter timeout bounds the fetch.
func (s *ChainScanner) processBlock(ctx context.Context, height uint64) error {
	start := time.Now()
	blockCtx := context.WithoutCancel(ctx)

	block, err := s.adapter.GetBlock(blockCtx, height)
	if err != nil {
		return err
	}

	events := Match(s.chain, block, s.registry.Snapshot(s.chain.Family.Scope()))
	detectedAt := s.now().UTC()
	for _, event := range events {
		event.DetectedAt = detectedAt
		if err := s.sink.Enqueue(blockCtx, event); err != nil {
			return utils.WrapError(utils.ErrCodeInternal, "Failed to enqueue match event", err)
		}
		s.metrics.RecordMatch(s.chain.ID, string(event.Direction))
		s.logger.WithFields(logrus.Fields{
			"height":    height,
			"direction": event.Direction,
			"address":   event.MatchedAddress,
			"tx_hash":   event.TxHash,
		}).Info("Tracked address matched")
	}

	s.cursor.Advance(int64(height))
	s.metrics.RecordBlockScanned(s.chain.ID, time.Since(start))

	s.mu.Lock()
	s.stats.BlocksScanned++
	s.stats.MatchesEmitted += uint64(len(events))
	s.mu.Unlock()
	return nil
}

func (s *ChainScanner) setHead(head uint64) {
	s.mu.Lock()
	s.stats.Head = head
	s.mu.Unlock()
}

func (s *ChainScanner) recordSuccess(head uint64) {
	s.failures = 0
	now := s.now()

	s.mu.Lock()
	s.stats.ConsecutiveFailures = 0
	s.stats.LastScanAt = &now
	s.mu.Unlock()

	s.metrics.UpdateScanProgress(s.chain.ID, s.cursor.Get(), head)
}

func (s *ChainScanner) recordFailure(stage string, err error) {
	s.failures++
	now := s.now()
	msg := err.Error()

	s.mu.Lock()
	s.stats.ConsecutiveFailures = s.failures
	s.stats.LastError = &msg
	s.stats.LastErrorAt = &now
	head := s.stats.Head
	s.mu.Unlock()

	s.metrics.RecordScanError(s.chain.ID, stage)
	s.metrics.UpdateScanProgress(s.chain.ID, s.cursor.Get(), head)
}

// Status returns a copy of the loop's statistics
func (s *ChainScanner) Status() ChainStatus {
	s.mu.RLock()
	st := s.stats
	s.mu.RUnlock()
	st.Cursor = s.cursor.Get()
	return st
}
