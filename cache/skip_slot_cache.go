// Package cache holds the transition-speed caches core/transition and
// sync consult before paying for expensive recomputation: the
// skip-slot cache (a state already advanced through a run of empty
// slots) and the proposer-indices cache (a committee's worth of
// shuffling work, keyed by block root). Both are explicit handles
// threaded through callers rather than package-global state.
package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/strata-network/beacon/consensus-types/primitives"
	"github.com/strata-network/beacon/consensus-types/types"
)

const skipSlotCacheSize = 4

// skipSlotKey identifies one empty-slot replay: the block root whose
// post-state the replay started from, and the slot it advanced to.
// Keying on the root keeps states from different forks apart even when
// they share a slot.
type skipSlotKey struct {
	root [32]byte
	slot primitives.Slot
}

// SkipSlotCache caches the state that results from running
// ProcessSlots up to a given slot with no block applied, so
// re-processing the same empty-slot run (a common sync/RPC pattern:
// "give me the state as of slot X" when no block was ever proposed at
// X) is a cache hit instead of a shuffle-and-hash replay.
type SkipSlotCache struct {
	cache      *lru.Cache
	inProgress sync.Map
}

// NewSkipSlotCache constructs an empty SkipSlotCache.
func NewSkipSlotCache() (*SkipSlotCache, error) {
	c, err := lru.New(skipSlotCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "cache: allocate skip-slot cache")
	}
	return &SkipSlotCache{cache: c}, nil
}

// Get returns the cached state advanced from root's post-state to
// slot, or nil if it was never cached or has since been evicted.
func (c *SkipSlotCache) Get(root [32]byte, slot primitives.Slot) *types.BeaconState {
	v, ok := c.cache.Get(skipSlotKey{root: root, slot: slot})
	if !ok {
		return nil
	}
	return v.(*types.BeaconState)
}

// Put caches state under (root, slot). Callers must not mutate state
// after handing it over.
func (c *SkipSlotCache) Put(root [32]byte, slot primitives.Slot, state *types.BeaconState) {
	c.cache.Add(skipSlotKey{root: root, slot: slot}, state)
}

// MarkInProgress records that (root, slot) is currently being computed
// by some caller, so a concurrent caller can choose to wait rather
// than duplicate the work. Returns an error if already marked.
func (c *SkipSlotCache) MarkInProgress(root [32]byte, slot primitives.Slot) error {
	if _, loaded := c.inProgress.LoadOrStore(skipSlotKey{root: root, slot: slot}, struct{}{}); loaded {
		return errors.Errorf("cache: slot %d already being processed", slot)
	}
	return nil
}

// MarkNotInProgress clears the in-progress marker for (root, slot).
func (c *SkipSlotCache) MarkNotInProgress(root [32]byte, slot primitives.Slot) {
	c.inProgress.Delete(skipSlotKey{root: root, slot: slot})
}
