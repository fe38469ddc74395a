package storage

import (
	"context"
	"time"

	"github.com/smartdevs17/multichain-watcher/internal/metrics"
	"github.com/smartdevs17/multichain-watcher/internal/models"
)

// StorageWithMetrics wraps an address store with metrics and a per-operation timeout
type StorageWithMetrics struct {
	AddressStore
	metrics *metrics.PrometheusMetrics
	timeout time.Duration
}

// NewStorageWithMetrics creates a storage wrapper with metrics
func NewStorageWithMetrics(store AddressStore, pm *metrics.PrometheusMetrics, timeout time.Duration) *StorageWithMetrics {
	return &StorageWithMetrics{
		AddressStore: store,
		metrics:      pm,
		timeout:      timeout,
	}
}

func (s *StorageWithMetrics) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Load loads a scope and records metrics
func (s *StorageWithMetrics) Load(ctx context.Context, scope models.ScopeKey) ([]string, error) {
	start := time.Now()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	addresses, err := s.AddressStore.Load(ctx, scope)
	s.metrics.RecordDatabaseOperation("load", string(scope), status(err), time.Since(start))
	return addresses, err
}

// Persist persists a scope and records metrics
func (s *StorageWithMetrics) Persist(ctx context.Context, scope models.ScopeKey, addresses []string) error {
	start := time.Now()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.AddressStore.Persist(ctx, scope, addresses)
	s.metrics.RecordDatabaseOperation("persist", string(scope), status(err), time.Since(start))
	return err
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
