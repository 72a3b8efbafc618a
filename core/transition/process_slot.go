// Package transition implements the top-level state-transition
// driver: advancing slots one at a time, running the epoch transition
// whenever a boundary is crossed, and applying a block's operations in
// the protocol's fixed order.
package transition

import (
	"github.com/pkg/errors"
	"github.com/strata-network/beacon/cache"
	"github.com/strata-network/beacon/config/params"
	"github.com/strata-network/beacon/consensus-types/primitives"
	"github.com/strata-network/beacon/consensus-types/types"
	"github.com/strata-network/beacon/core/epoch"
)

// ProcessSlots advances state from its current slot to targetSlot,
// caching state/block roots for every slot passed and
// running the full epoch transition whenever a step crosses an epoch
// boundary.
func ProcessSlots(state *types.BeaconState, targetSlot primitives.Slot) (*types.BeaconState, error) {
	if targetSlot < state.Slot {
		return nil, errors.Errorf("transition: target slot %d is behind current slot %d", targetSlot, state.Slot)
	}
	next := state.Copy()
	for next.Slot < targetSlot {
		var err error
		next, err = processSlot(next)
		if err != nil {
			return nil, err
		}
		// The epoch transition runs at the last slot of the closing
		// epoch, before the slot advances into the next one.
		cfg := params.BeaconConfig()
		if cfg.SlotsPerEpoch != 0 && (uint64(next.Slot)+1)%cfg.SlotsPerEpoch == 0 {
			next, err = epoch.ProcessEpoch(next)
			if err != nil {
				return nil, errors.Wrap(err, "transition: epoch transition")
			}
		}
		next.Slot++
	}
	return next, nil
}

// ProcessSlotsCached is ProcessSlots behind a skip-slot cache: the
// state advanced from preRoot's post-state to targetSlot is served
// from c when an earlier caller already paid for the replay. preRoot
// is the root of the block whose post-state `state` is. Both the
// cached entry and the returned state are independent copies, so a
// caller mutating its result can never poison the cache.
func ProcessSlotsCached(c *cache.SkipSlotCache, preRoot [32]byte, state *types.BeaconState, targetSlot primitives.Slot) (*types.BeaconState, error) {
	if c == nil {
		return ProcessSlots(state, targetSlot)
	}
	if cached := c.Get(preRoot, targetSlot); cached != nil {
		return cached.Copy(), nil
	}
	if err := c.MarkInProgress(preRoot, targetSlot); err == nil {
		defer c.MarkNotInProgress(preRoot, targetSlot)
	}
	next, err := ProcessSlots(state, targetSlot)
	if err != nil {
		return nil, err
	}
	c.Put(preRoot, targetSlot, next.Copy())
	return next, nil
}

// processSlot caches the pre-advance state and block roots into their
// ring buffers, called once per slot before state.Slot is
// incremented.
func processSlot(state *types.BeaconState) (*types.BeaconState, error) {
	cfg := params.BeaconConfig()
	if cfg.SlotsPerHistoricalRoot == 0 {
		return nil, errors.New("transition: SlotsPerHistoricalRoot is zero")
	}
	next := state
	idx := uint64(next.Slot) % cfg.SlotsPerHistoricalRoot
	if idx >= uint64(len(next.StateRoots)) || idx >= uint64(len(next.BlockRoots)) {
		return nil, errors.Errorf("transition: slot root index %d out of range", idx)
	}

	stateRoot, err := next.HashTreeRoot()
	if err != nil {
		return nil, errors.Wrap(err, "transition: hash pre-slot state")
	}
	next.StateRoots[idx] = stateRoot

	var zero [32]byte
	if next.LatestBlockHeader.StateRoot == zero {
		next.LatestBlockHeader.StateRoot = stateRoot
	}
	blockRoot, err := next.LatestBlockHeader.HashTreeRoot()
	if err != nil {
		return nil, errors.Wrap(err, "transition: hash latest block header")
	}
	next.BlockRoots[idx] = blockRoot

	return next, nil
}
