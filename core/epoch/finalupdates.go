package epoch

import (
	"github.com/strata-network/beacon/config/params"
	"github.com/strata-network/beacon/consensus-types/primitives"
	"github.com/strata-network/beacon/consensus-types/types"
)

// ProcessFinalUpdates runs the epoch's housekeeping pass: effective
// balance rehydration, eth1 vote pruning, the RANDAO/active-index-root
// ring buffer rotation, slashings bucket reset, and rotating
// current-epoch attestations down into previous-epoch — the last
// stage of every epoch transition.
func ProcessFinalUpdates(state *types.BeaconState) (*types.BeaconState, error) {
	cfg := params.BeaconConfig()
	next := state.Copy()
	currentEpoch := next.Slot.ToEpoch()
	nextEpoch := currentEpoch + 1

	rehydrateEffectiveBalances(next, cfg)

	if cfg.EpochsPerEth1VotingPeriod != 0 && uint64(nextEpoch)%cfg.EpochsPerEth1VotingPeriod == 0 {
		next.Eth1DataVotes = nil
	}

	lookahead := nextEpoch + primitives.Epoch(cfg.MaxSeedLookahead)
	activeIdx := uint64(lookahead) % cfg.EpochsPerHistoricalVector
	if activeIdx < uint64(len(next.ActiveIndexRoots)) {
		next.ActiveIndexRoots[activeIdx] = activeIndexRoot(next, lookahead)
	}

	slashIdx := uint64(nextEpoch) % cfg.EpochsPerSlashingsVector
	if slashIdx < uint64(len(next.Slashings)) {
		next.Slashings[slashIdx] = 0
	}

	randaoIdx := uint64(nextEpoch) % cfg.EpochsPerHistoricalVector
	mixEpoch := uint64(currentEpoch) % cfg.EpochsPerHistoricalVector
	if randaoIdx < uint64(len(next.RandaoMixes)) && mixEpoch < uint64(len(next.RandaoMixes)) {
		next.RandaoMixes[randaoIdx] = next.RandaoMixes[mixEpoch]
	}

	next.PreviousEpochAttestations = next.CurrentEpochAttestations
	next.CurrentEpochAttestations = nil

	return next, nil
}

// rehydrateEffectiveBalances applies the hysteresis-bounded effective
// balance update: a validator's effective balance
// tracks its actual balance rounded down to the nearest increment, but
// only moves when the actual balance has drifted by more than 1.5
// increments, to avoid effective-balance churn from small reward/
// penalty noise every epoch.
func rehydrateEffectiveBalances(state *types.BeaconState, cfg *params.BeaconChainConfig) {
	halfInc := cfg.EffectiveBalanceInc / 2
	for i, v := range state.Validators {
		balance := state.Balances[i]
		if balance+3*halfInc < v.EffectiveBalance || v.EffectiveBalance+3*halfInc < balance {
			rounded := balance - balance%cfg.EffectiveBalanceInc
			if rounded > cfg.MaxEffectiveBalance {
				rounded = cfg.MaxEffectiveBalance
			}
			v.EffectiveBalance = rounded
		}
	}
}
