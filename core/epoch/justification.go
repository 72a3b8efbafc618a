package epoch

import (
	"github.com/strata-network/beacon/consensus-types/types"
)

// ProcessJustificationAndFinalization shifts the justification bitfield,
// justifies the previous/current epoch when two-thirds of active
// balance backs their matching-target attestations, and finalizes
// whichever of the four Casper-FFG finality rules fires. A no-op
// before epoch 2, since there is no previous epoch to finalize
// against yet.
func ProcessJustificationAndFinalization(state *types.BeaconState) (*types.BeaconState, error) {
	currentEpoch := state.Slot.ToEpoch()
	if currentEpoch <= 1 {
		return state, nil
	}
	next := state.Copy()

	previousEpoch := currentEpoch - 1
	twoEpochsAgo := currentEpoch - 2

	oldPrevJustified := next.PreviousJustifiedCheckpoint
	oldCurrJustified := next.CurrentJustifiedCheckpoint
	next.PreviousJustifiedCheckpoint = oldCurrJustified

	bits := next.JustificationBits << 1
	bits &= 0b1111

	totalActive := totalActiveBalance(next, currentEpoch)

	prevTargetAtts, err := matchingTargetAttestations(next, next.PreviousEpochAttestations, previousEpoch)
	if err != nil {
		return nil, err
	}
	prevBalance, err := attestingBalance(next, prevTargetAtts)
	if err != nil {
		return nil, err
	}
	if prevBalance*3 >= totalActive*2 {
		root, err := blockRoot(next, previousEpoch)
		if err != nil {
			return nil, err
		}
		next.CurrentJustifiedCheckpoint = types.Checkpoint{Epoch: previousEpoch, Root: root}
		bits |= 0b10
	}

	currTargetAtts, err := matchingTargetAttestations(next, next.CurrentEpochAttestations, currentEpoch)
	if err != nil {
		return nil, err
	}
	currBalance, err := attestingBalance(next, currTargetAtts)
	if err != nil {
		return nil, err
	}
	if currBalance*3 >= totalActive*2 {
		root, err := blockRoot(next, currentEpoch)
		if err != nil {
			return nil, err
		}
		next.CurrentJustifiedCheckpoint = types.Checkpoint{Epoch: currentEpoch, Root: root}
		bits |= 0b1
	}
	next.JustificationBits = bits

	// Rule 1: epochs [n-3, n-2, n-1] all justified, n-3 becomes final.
	if bits&0b1110 == 0b1110 && oldPrevJustified.Epoch == twoEpochsAgo-1 {
		next.FinalizedCheckpoint = oldPrevJustified
	}
	// Rule 2: epochs [n-2, n-1] justified (via bit shift offsets), n-2 final.
	if bits&0b0110 == 0b0110 && oldPrevJustified.Epoch == twoEpochsAgo {
		next.FinalizedCheckpoint = oldPrevJustified
	}
	// Rule 3: epochs [n-2, n-1, n] justified, n-2 becomes final.
	if bits&0b0111 == 0b0111 && oldCurrJustified.Epoch == twoEpochsAgo {
		next.FinalizedCheckpoint = oldCurrJustified
	}
	// Rule 4: epochs [n-1, n] path — n-1 becomes final via current bit.
	if bits&0b0011 == 0b0011 && oldCurrJustified.Epoch == previousEpoch {
		next.FinalizedCheckpoint = oldCurrJustified
	}

	return next, nil
}
