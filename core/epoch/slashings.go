package epoch

import (
	"github.com/strata-network/beacon/config/params"
	"github.com/strata-network/beacon/consensus-types/types"
	"github.com/strata-network/beacon/core/validators"
)

// ProcessSlashings applies the collective slashing penalty to each
// slashed validator whose withdrawable epoch lies exactly half the
// slashings window after the current epoch (so once per validator),
// proportional to the sum of slashed effective balance over the
// slashings window.
func ProcessSlashings(state *types.BeaconState) (*types.BeaconState, error) {
	cfg := params.BeaconConfig()
	next := state.Copy()
	currentEpoch := next.Slot.ToEpoch()

	var totalSlashed uint64
	for _, s := range next.Slashings {
		totalSlashed += s
	}
	totalActive := totalActiveBalance(next, currentEpoch)
	halfway := cfg.EpochsPerSlashingsVector / 2

	for i, v := range next.Validators {
		if !v.Slashed {
			continue
		}
		if uint64(v.WithdrawableEpoch) != uint64(currentEpoch)+halfway {
			continue
		}
		penaltyNumerator := v.EffectiveBalance / cfg.EffectiveBalanceInc * minUint64(totalSlashed*3, totalActive)
		penalty := penaltyNumerator / totalActive * cfg.EffectiveBalanceInc
		if err := validators.DecreaseBalance(next.Balances, uint64(i), penalty); err != nil {
			return nil, err
		}
	}
	return next, nil
}

func minUint64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
