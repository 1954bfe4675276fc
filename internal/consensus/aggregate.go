package consensus

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/inodb/promoscan/internal/promoter"
)

// AllKey is the combined model every prediction is also folded into.
const AllKey = "all"

// ErrUnknownKey is returned when merging into a key the aggregate was not
// created with.
var ErrUnknownKey = errors.New("unknown consensus key")

type entry struct {
	mu sync.Mutex
	c  Consensus
}

// Aggregate maps reference gene names, plus AllKey, to a Consensus.
//
// The key set is fixed at construction. Each key has its own lock, so merges
// into different keys never contend. Aggregate is safe for concurrent use.
type Aggregate struct {
	keys    []string
	entries map[string]*entry
}

// NewAggregate creates an empty aggregate with one key per reference name and
// AllKey. Duplicate names and a reference named AllKey are rejected.
func NewAggregate(names []string) (*Aggregate, error) {
	a := &Aggregate{entries: make(map[string]*entry, len(names)+1)}
	for _, name := range names {
		if name == AllKey {
			return nil, fmt.Errorf("reference name %q is reserved", AllKey)
		}
		if _, dup := a.entries[name]; dup {
			return nil, fmt.Errorf("duplicate reference name %q", name)
		}
		a.entries[name] = &entry{}
	}
	a.entries[AllKey] = &entry{}
	a.keys = make([]string, 0, len(a.entries))
	for k := range a.entries {
		a.keys = append(a.keys, k)
	}
	sort.Strings(a.keys)
	return a, nil
}

// Empty returns a new aggregate with the same keys and no counts.
func (a *Aggregate) Empty() *Aggregate {
	b := &Aggregate{keys: a.keys, entries: make(map[string]*entry, len(a.entries))}
	for k := range a.entries {
		b.entries[k] = &entry{}
	}
	return b
}

// Merge folds m into key and then into AllKey. The two folds are each atomic;
// a concurrent reader may observe one without the other.
func (a *Aggregate) Merge(key string, m promoter.Match) error {
	if key == AllKey {
		return fmt.Errorf("merge into %q: %w", key, ErrUnknownKey)
	}
	e, ok := a.entries[key]
	if !ok {
		return fmt.Errorf("merge into %q: %w", key, ErrUnknownKey)
	}
	e.mu.Lock()
	e.c.Add(m)
	e.mu.Unlock()

	all := a.entries[AllKey]
	all.mu.Lock()
	all.c.Add(m)
	all.mu.Unlock()
	return nil
}

// Combine folds every key of other into a. Other must not carry keys a lacks.
func (a *Aggregate) Combine(other *Aggregate) error {
	for _, k := range other.keys {
		e, ok := a.entries[k]
		if !ok {
			return fmt.Errorf("combine %q: %w", k, ErrUnknownKey)
		}
		c, _ := other.Get(k)
		e.mu.Lock()
		e.c.Combine(c)
		e.mu.Unlock()
	}
	return nil
}

// Get returns a copy of the model stored under key.
func (a *Aggregate) Get(key string) (Consensus, bool) {
	e, ok := a.entries[key]
	if !ok {
		return Consensus{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.c, true
}

// Keys returns the sorted key set, AllKey included.
func (a *Aggregate) Keys() []string {
	return append([]string(nil), a.keys...)
}

// Snapshot copies every model.
func (a *Aggregate) Snapshot() map[string]Consensus {
	out := make(map[string]Consensus, len(a.keys))
	for _, k := range a.keys {
		out[k], _ = a.Get(k)
	}
	return out
}
