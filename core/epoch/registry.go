package epoch

import (
	"github.com/strata-network/beacon/consensus-types/types"
	"github.com/strata-network/beacon/core/validators"
)

// ProcessRegistryUpdates wraps the registry ejection/activation pass
// behind the epoch-stage signature every other ProcessX function in
// this package uses. The actual lifecycle rules live in
// core/validators, shared with the per-block processors in
// core/blocks.
func ProcessRegistryUpdates(state *types.BeaconState) (*types.BeaconState, error) {
	next := state.Copy()
	if err := validators.ProcessRegistryUpdates(next, next.Slot.ToEpoch()); err != nil {
		return nil, err
	}
	return next, nil
}
