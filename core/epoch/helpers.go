// Package epoch implements the five end-of-epoch transition stages:
// justification/finalization, reward and penalty application, registry
// updates, slashings settlement and the final housekeeping pass.
package epoch

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/strata-network/beacon/config/params"
	"github.com/strata-network/beacon/consensus-types/primitives"
	"github.com/strata-network/beacon/consensus-types/types"
	"github.com/strata-network/beacon/core/helpers"
)

var log = logrus.WithField("prefix", "core/epoch")

// blockRoot returns the root stored for the first slot of epoch,
// reading through the BlockRoots ring buffer.
func blockRoot(state *types.BeaconState, epoch primitives.Epoch) ([32]byte, error) {
	slot, err := epoch.StartSlot()
	if err != nil {
		return [32]byte{}, err
	}
	return blockRootAtSlot(state, slot)
}

func blockRootAtSlot(state *types.BeaconState, slot primitives.Slot) ([32]byte, error) {
	cfg := params.BeaconConfig()
	if uint64(slot) >= uint64(state.Slot) || uint64(state.Slot) > uint64(slot)+cfg.SlotsPerHistoricalRoot {
		return [32]byte{}, errors.Errorf("epoch: slot %d outside block root history window", slot)
	}
	idx := uint64(slot) % cfg.SlotsPerHistoricalRoot
	if idx >= uint64(len(state.BlockRoots)) {
		return [32]byte{}, errors.Errorf("epoch: block root index %d out of range", idx)
	}
	return state.BlockRoots[idx], nil
}

// totalBalance sums effective balances of indices, floored at
// EFFECTIVE_BALANCE_INCREMENT the way get_total_balance does to avoid
// div-by-zero downstream.
func totalBalance(state *types.BeaconState, indices []uint64) uint64 {
	cfg := params.BeaconConfig()
	var sum uint64
	for _, idx := range indices {
		sum += state.Validators[idx].EffectiveBalance
	}
	if sum < cfg.EffectiveBalanceInc {
		return cfg.EffectiveBalanceInc
	}
	return sum
}

// totalActiveBalance sums the effective balance of every validator
// active at epoch.
func totalActiveBalance(state *types.BeaconState, epoch primitives.Epoch) uint64 {
	return totalBalance(state, state.ActiveValidatorIndices(epoch))
}

// unslashedAttestingIndices returns the sorted, deduplicated set of
// validator indices that attested in atts and are not slashed.
func unslashedAttestingIndices(state *types.BeaconState, atts []*types.PendingAttestation) ([]uint64, error) {
	set := make(map[uint64]bool)
	for _, att := range atts {
		committee, err := helpers.BeaconCommittee(state, att.Data.Slot, att.Data.CommitteeIndex)
		if err != nil {
			return nil, err
		}
		for i, validatorIndex := range committee {
			if att.AggregationBits.BitAt(uint64(i)) && !state.Validators[validatorIndex].Slashed {
				set[validatorIndex] = true
			}
		}
	}
	out := make([]uint64, 0, len(set))
	for idx := range set {
		out = append(out, idx)
	}
	sortUint64(out)
	return out, nil
}

// attestingBalance sums the effective balance backing atts.
func attestingBalance(state *types.BeaconState, atts []*types.PendingAttestation) (uint64, error) {
	indices, err := unslashedAttestingIndices(state, atts)
	if err != nil {
		return 0, err
	}
	return totalBalance(state, indices), nil
}

// matchingTargetAttestations filters atts down to those whose target
// checkpoint matches the canonical root for its epoch.
func matchingTargetAttestations(state *types.BeaconState, atts []*types.PendingAttestation, epoch primitives.Epoch) ([]*types.PendingAttestation, error) {
	want, err := blockRoot(state, epoch)
	if err != nil {
		return nil, err
	}
	var out []*types.PendingAttestation
	for _, att := range atts {
		if att.Data.Target.Root == want {
			out = append(out, att)
		}
	}
	return out, nil
}

// matchingHeadAttestations filters atts down to those whose
// beacon_block_root matches the canonical root at their own slot.
func matchingHeadAttestations(state *types.BeaconState, atts []*types.PendingAttestation) ([]*types.PendingAttestation, error) {
	var out []*types.PendingAttestation
	for _, att := range atts {
		want, err := blockRootAtSlot(state, att.Data.Slot)
		if err != nil {
			continue
		}
		if att.Data.BeaconBlockRoot == want {
			out = append(out, att)
		}
	}
	return out, nil
}

func sortUint64(s []uint64) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// activeIndexRoot hashes the sorted active validator index set for
// epoch into the value stored in state.ActiveIndexRoots, mirroring
// get_active_index_root's "hash of a validator-index list" shape.
func activeIndexRoot(state *types.BeaconState, epoch primitives.Epoch) [32]byte {
	indices := state.ActiveValidatorIndices(epoch)
	buf := make([]byte, 8*len(indices))
	for i, idx := range indices {
		binary.LittleEndian.PutUint64(buf[i*8:i*8+8], idx)
	}
	return sha256.Sum256(buf)
}
