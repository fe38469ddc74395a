// Package registry holds the tracked-address sets the scanners match against.
package registry

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/multichain-watcher/internal/metrics"
	"github.com/smartdevs17/multichain-watcher/internal/models"
	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

// Store is the persistence the registry writes through to
type Store interface {
	Load(ctx context.Context, scope models.ScopeKey) ([]string, error)
	Persist(ctx context.Context, scope models.ScopeKey, addresses []string) error
}

// AddResult is the outcome of a successful Add call
type AddResult string

const (
	Added          AddResult = "added"
	AlreadyTracked AddResult = "already_tracked"
)

// AddressSet is an immutable set of normalized addresses. Never mutate one
// after it has been published.
type AddressSet map[string]struct{}

// Contains reports whether the normalized form of address is in the set
func (s AddressSet) Contains(address string) bool {
	_, ok := s[utils.NormalizeAddress(address)]
	return ok
}

// Sorted returns the members in lexical order
func (s AddressSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

type scopeState struct {
	mu  sync.Mutex // serializes Add within the scope
	set atomic.Pointer[AddressSet]
}

// Registry keeps one published set per scope. Reads are lock-free; an Add is
// visible to readers only after the store accepted it.
type Registry struct {
	store   Store
	scopes  map[models.ScopeKey]*scopeState
	metrics *metrics.PrometheusMetrics
	logger  *logrus.Entry
}

// New creates a registry with an empty set for every scope
func New(store Store, pm *metrics.PrometheusMetrics) *Registry {
	r := &Registry{
		store:   store,
		scopes:  make(map[models.ScopeKey]*scopeState),
		metrics: pm,
		logger:  utils.ComponentLogger("registry"),
	}
	for _, scope := range models.AllScopes() {
		st := &scopeState{}
		empty := AddressSet{}
		st.set.Store(&empty)
		r.scopes[scope] = st
	}
	return r
}

func (r *Registry) state(scope models.ScopeKey) (*scopeState, error) {
	st, ok := r.scopes[scope]
	if !ok {
		return nil, utils.NewAppError(utils.ErrCodeValidation, "Unknown scope", string(scope))
	}
	return st, nil
}

// Load replaces the in-memory sets of scopes (all scopes when none given) with
// the store's contents.
func (r *Registry) Load(ctx context.Context, scopes ...models.ScopeKey) error {
	if len(scopes) == 0 {
		scopes = models.AllScopes()
	}
	for _, scope := range scopes {
		st, err := r.state(scope)
		if err != nil {
			return err
		}
		addresses, err := r.store.Load(ctx, scope)
		if err != nil {
			return utils.WrapError(utils.ErrCodePersistFailure, "Failed to load tracked addresses", err)
		}

		set := make(AddressSet, len(addresses))
		for _, a := range addresses {
			if n := utils.NormalizeAddress(a); n != "" {
				set[n] = struct{}{}
			}
		}

		st.mu.Lock()
		st.set.Store(&set)
		st.mu.Unlock()

		r.metrics.UpdateTrackedAddresses(string(scope), len(set))
		r.logger.WithFields(logrus.Fields{
			"scope": scope,
			"count": len(set),
		}).Info("Tracked addresses loaded")
	}
	return nil
}

// Add tracks address under scope. The store is written before the new set is
// published; on a store failure memory is left untouched and a PERSIST_FAILURE
// error is returned.
func (r *Registry) Add(ctx context.Context, scope models.ScopeKey, address string) (AddResult, error) {
	st, err := r.state(scope)
	if err != nil {
		return "", err
	}
	normalized := utils.NormalizeAddress(address)
	if normalized == "" {
		return "", utils.NewAppError(utils.ErrCodeInvalidAddress, "Address is empty")
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	current := *st.set.Load()
	if _, ok := current[normalized]; ok {
		r.metrics.RecordAddressAdd(string(scope), string(AlreadyTracked))
		return AlreadyTracked, nil
	}

	next := make(AddressSet, len(current)+1)
	for a := range current {
		next[a] = struct{}{}
	}
	next[normalized] = struct{}{}

	if err := r.store.Persist(ctx, scope, next.Sorted()); err != nil {
		r.metrics.RecordAddressAdd(string(scope), "persist_failure")
		r.logger.WithFields(logrus.Fields{
			"scope":   scope,
			"address": normalized,
			"error":   err.Error(),
		}).Error("Failed to persist tracked address")
		return "", utils.WrapError(utils.ErrCodePersistFailure, "Failed to persist tracked address", err)
	}

	st.set.Store(&next)
	r.metrics.RecordAddressAdd(string(scope), string(Added))
	r.metrics.UpdateTrackedAddresses(string(scope), len(next))
	r.logger.WithFields(logrus.Fields{
		"scope":   scope,
		"address": normalized,
	}).Info("Address tracked")
	return Added, nil
}

// Snapshot returns the last published set of scope. Unknown scopes yield an empty set.
func (r *Registry) Snapshot(scope models.ScopeKey) AddressSet {
	st, ok := r.scopes[scope]
	if !ok {
		return AddressSet{}
	}
	return *st.set.Load()
}

// Contains reports whether address is tracked under scope
func (r *Registry) Contains(scope models.ScopeKey, address string) bool {
	return r.Snapshot(scope).Contains(address)
}

// Size returns the number of addresses tracked under scope
func (r *Registry) Size(scope models.ScopeKey) int {
	return len(r.Snapshot(scope))
}
