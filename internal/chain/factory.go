package chain

import (
	"fmt"
	"time"

	"github.com/smartdevs17/multichain-watcher/internal/connection"
	"github.com/smartdevs17/multichain-watcher/internal/models"
)

// NewAdapter builds the adapter variant matching cfg.Family
func NewAdapter(cfg models.ChainConfig, opts Options) (Adapter, error) {
	switch cfg.Family {
	case models.FamilyEVM:
		conn := connection.NewConnectionManager(connection.Config{
			ChainID:        cfg.ID,
			URL:            cfg.Endpoint,
			RetryAttempts:  3,
			RetryDelay:     time.Second,
			RequestTimeout: opts.RequestTimeout,
		})
		return NewEVMAdapter(cfg, conn, opts), nil
	case models.FamilySolana:
		return NewSolanaAdapter(cfg, opts), nil
	case models.FamilyTON:
		return NewTONAdapter(cfg, opts), nil
	default:
		return nil, fmt.Errorf("unsupported family %q for chain %s", cfg.Family, cfg.ID)
	}
}

// Set is the immutable collection of adapters built at startup
type Set struct {
	byID  map[string]Adapter
	order []string
}

// NewSet builds one adapter per chain config
func NewSet(chains []models.ChainConfig, opts Options) (*Set, error) {
	s := &Set{byID: make(map[string]Adapter, len(chains))}
	for _, cfg := range chains {
		adapter, err := NewAdapter(cfg, opts)
		if err != nil {
			return nil, err
		}
		s.Add(adapter)
	}
	return s, nil
}

// NewSetFromAdapters wraps already constructed adapters
func NewSetFromAdapters(adapters ...Adapter) *Set {
	s := &Set{byID: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		s.Add(a)
	}
	return s
}

// Add registers an adapter; only used while the set is being built
func (s *Set) Add(a Adapter) {
	if _, exists := s.byID[a.ChainID()]; !exists {
		s.order = append(s.order, a.ChainID())
	}
	s.byID[a.ChainID()] = a
}

// Get returns the adapter for chainID
func (s *Set) Get(chainID string) (Adapter, bool) {
	a, ok := s.byID[chainID]
	return a, ok
}

// ByFamily returns adapters of family in insertion order
func (s *Set) ByFamily(family models.Family) []Adapter {
	var out []Adapter
	for _, id := range s.order {
		if a := s.byID[id]; a.Family() == family {
			out = append(out, a)
		}
	}
	return out
}

// All returns every adapter in insertion order
func (s *Set) All() []Adapter {
	out := make([]Adapter, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Scannable returns adapters that get a scan loop (every family but TON)
func (s *Set) Scannable() []Adapter {
	var out []Adapter
	for _, a := range s.All() {
		if a.Family() != models.FamilyTON {
			out = append(out, a)
		}
	}
	return out
}

// Close releases EVM connections
func (s *Set) Close() {
	for _, a := range s.All() {
		if evm, ok := a.(*EVMAdapter); ok {
			_ = evm.Connection().Close()
		}
	}
}
