package monitor

import (
	"sort"
	"sync/atomic"
)

// NotScanned is the cursor value of a chain whose head has never been read
const NotScanned int64 = -1

// Cursor is the last fully processed height of one chain. Only the chain's
// scanner writes it; anyone may read it.
type Cursor struct {
	height atomic.Int64
}

// NewCursor returns a cursor in the never-scanned state
func NewCursor() *Cursor {
	c := &Cursor{}
	c.height.Store(NotScanned)
	return c
}

// Get returns the current height, or NotScanned
func (c *Cursor) Get() int64 {
	return c.height.Load()
}

// Advance moves the cursor to height. It never moves backwards and reports
// whether the value changed.
func (c *Cursor) Advance(height int64) bool {
	for {
		cur := c.height.Load()
		if height <= cur {
			return false
		}
		if c.height.CompareAndSwap(cur, height) {
			return true
		}
	}
}

// CursorStore holds one cursor per scanned chain. The set of chains is fixed
// at construction, so lookups need no lock.
type CursorStore struct {
	cursors map[string]*Cursor
}

// NewCursorStore creates never-scanned cursors for chainIDs
func NewCursorStore(chainIDs ...string) *CursorStore {
	s := &CursorStore{cursors: make(map[string]*Cursor, len(chainIDs))}
	for _, id := range chainIDs {
		s.cursors[id] = NewCursor()
	}
	return s
}

// Cursor returns the cursor of chainID
func (s *CursorStore) Cursor(chainID string) (*Cursor, bool) {
	c, ok := s.cursors[chainID]
	return c, ok
}

// Heights returns every cursor value keyed by chain id
func (s *CursorStore) Heights() map[string]int64 {
	out := make(map[string]int64, len(s.cursors))
	for id, c := range s.cursors {
		out[id] = c.Get()
	}
	return out
}

// ChainIDs returns the chains with a cursor, sorted
func (s *CursorStore) ChainIDs() []string {
	ids := make([]string, 0, len(s.cursors))
	for id := range s.cursors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
