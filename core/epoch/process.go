package epoch

import (
	"github.com/pkg/errors"
	"github.com/strata-network/beacon/consensus-types/types"
)

// ProcessEpoch runs every epoch-transition stage in its fixed order
// against a state whose slot is the last slot of the
// epoch being closed out. core/transition calls this once per epoch
// boundary crossed, before advancing state.Slot.
func ProcessEpoch(state *types.BeaconState) (*types.BeaconState, error) {
	next, err := ProcessJustificationAndFinalization(state)
	if err != nil {
		return nil, errors.Wrap(err, "epoch: justification and finalization")
	}
	next, err = ProcessRewardsAndPenalties(next)
	if err != nil {
		return nil, errors.Wrap(err, "epoch: rewards and penalties")
	}
	next, err = ProcessRegistryUpdates(next)
	if err != nil {
		return nil, errors.Wrap(err, "epoch: registry updates")
	}
	next, err = ProcessSlashings(next)
	if err != nil {
		return nil, errors.Wrap(err, "epoch: slashings")
	}
	next, err = ProcessFinalUpdates(next)
	if err != nil {
		return nil, errors.Wrap(err, "epoch: final updates")
	}
	log.WithField("epoch", uint64(next.Slot.ToEpoch())).Debug("processed epoch transition")
	return next, nil
}
