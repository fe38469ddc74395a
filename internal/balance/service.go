// Package balance answers on-demand native balance queries.
package balance

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/smartdevs17/multichain-watcher/internal/chain"
	"github.com/smartdevs17/multichain-watcher/internal/metrics"
	"github.com/smartdevs17/multichain-watcher/internal/models"
	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

// AdapterSource looks adapters up by chain id or family
type AdapterSource interface {
	Get(chainID string) (chain.Adapter, bool)
	ByFamily(family models.Family) []chain.Adapter
}

// Service resolves a network selector into adapter calls
type Service struct {
	adapters AdapterSource
	metrics  *metrics.PrometheusMetrics
	logger   *logrus.Entry
}

// NewService creates a balance query service
func NewService(adapters AdapterSource, pm *metrics.PrometheusMetrics) *Service {
	return &Service{
		adapters: adapters,
		metrics:  pm,
		logger:   utils.ComponentLogger("balance"),
	}
}

// QueryBalance returns the balance of address on the selected network(s).
// A single-chain selector surfaces the chain error directly. The EVM group
// selector always returns a result: one entry per chain, sorted by chain id,
// each with a balance or an error string.
func (s *Service) QueryBalance(ctx context.Context, selector models.NetworkSelector, address string) (*models.BalanceResult, error) {
	if err := chain.ValidateAddress(selector.Family(), address); err != nil {
		return nil, err
	}
	address = utils.NormalizeAddress(address)

	if selector.Kind == models.SelectEVMGroup {
		return s.queryGroup(ctx, selector, address)
	}

	adapter, err := s.resolve(selector)
	if err != nil {
		return nil, err
	}
	bal, err := adapter.GetBalance(ctx, address)
	s.record(adapter.ChainID(), err)
	if err != nil {
		return nil, err
	}
	return &models.BalanceResult{
		Selector: selector,
		Address:  address,
		Entries:  []models.BalanceEntry{{ChainID: adapter.ChainID(), Balance: bal}},
	}, nil
}

func (s *Service) resolve(selector models.NetworkSelector) (chain.Adapter, error) {
	switch selector.Kind {
	case models.SelectChain:
		if a, ok := s.adapters.Get(selector.ChainID); ok && a.Family() == models.FamilyEVM {
			return a, nil
		}
	case models.SelectSolana, models.SelectTON:
		if list := s.adapters.ByFamily(selector.Family()); len(list) > 0 {
			return list[0], nil
		}
	}
	return nil, utils.NewAppError(utils.ErrCodeValidation, "Network not configured", selector.String())
}

// queryGroup fans out to every EVM adapter. Per-chain failures land in their
// entry and never fail the group.
func (s *Service) queryGroup(ctx context.Context, selector models.NetworkSelector, address string) (*models.BalanceResult, error) {
	adapters := s.adapters.ByFamily(models.FamilyEVM)
	if len(adapters) == 0 {
		return nil, utils.NewAppError(utils.ErrCodeValidation, "No EVM networks configured", "")
	}

	entries := make([]models.BalanceEntry, len(adapters))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range adapters {
		i, a := i, a
		g.Go(func() error {
			entries[i].ChainID = a.ChainID()
			bal, err := a.GetBalance(gctx, address)
			s.record(a.ChainID(), err)
			if err != nil {
				entries[i].Error = err.Error()
				s.logger.WithFields(logrus.Fields{
					"chain": a.ChainID(),
					"error": err.Error(),
				}).Warn("Balance lookup failed")
				return nil
			}
			entries[i].Balance = bal
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(entries, func(i, j int) bool { return entries[i].ChainID < entries[j].ChainID })

	result := &models.BalanceResult{
		Selector: selector,
		Address:  address,
		Entries:  entries,
	}
	failed := result.Failed()
	result.Partial = failed > 0 && failed < len(entries)
	return result, nil
}

func (s *Service) record(chainID string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordBalanceQuery(chainID, status)
}
