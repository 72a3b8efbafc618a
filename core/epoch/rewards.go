package epoch

import (
	"math"

	"github.com/strata-network/beacon/config/params"
	"github.com/strata-network/beacon/consensus-types/types"
	"github.com/strata-network/beacon/core/helpers"
	"github.com/strata-network/beacon/core/validators"
)

// baseReward returns the per-epoch base reward for a validator with
// the given effective balance.
func baseReward(effectiveBalance, totalActiveBalance uint64) uint64 {
	cfg := params.BeaconConfig()
	perEpoch := uint64(math.Sqrt(float64(totalActiveBalance)))
	if perEpoch == 0 {
		return 0
	}
	return effectiveBalance * cfg.BaseRewardFactor / perEpoch / cfg.BaseRewardsPerEpoch
}

// ProcessRewardsAndPenalties applies attester and proposer rewards,
// inclusion-delay rewards and an inactivity-leak penalty for the
// epoch just completed, against its previous-epoch attestations. A
// no-op at genesis, since there is no previous epoch to reward
// against.
func ProcessRewardsAndPenalties(state *types.BeaconState) (*types.BeaconState, error) {
	currentEpoch := state.Slot.ToEpoch()
	if currentEpoch == 0 {
		return state, nil
	}
	next := state.Copy()
	previousEpoch := currentEpoch - 1
	totalActive := totalActiveBalance(next, previousEpoch)

	sourceAtts := next.PreviousEpochAttestations
	targetAtts, err := matchingTargetAttestations(next, sourceAtts, previousEpoch)
	if err != nil {
		return nil, err
	}
	headAtts, err := matchingHeadAttestations(next, sourceAtts)
	if err != nil {
		return nil, err
	}

	sourceIndices, err := unslashedAttestingIndices(next, sourceAtts)
	if err != nil {
		return nil, err
	}
	targetIndices, err := unslashedAttestingIndices(next, targetAtts)
	if err != nil {
		return nil, err
	}
	headIndices, err := unslashedAttestingIndices(next, headAtts)
	if err != nil {
		return nil, err
	}
	sourceSet := toSet(sourceIndices)
	targetSet := toSet(targetIndices)
	headSet := toSet(headIndices)

	sourceBalance := totalBalance(next, sourceIndices)
	targetBalance := totalBalance(next, targetIndices)
	headBalance := totalBalance(next, headIndices)

	cfg := params.BeaconConfig()
	finalizedEpoch := next.FinalizedCheckpoint.Epoch
	finalizedDistance := uint64(currentEpoch) - uint64(finalizedEpoch)
	inactivityLeak := finalizedDistance > cfg.MinEpochsToInactivityPenalty

	proposerIndexByAttester := make(map[uint64]uint64, len(sourceAtts))
	inclusionDelayByAttester := make(map[uint64]uint64, len(sourceAtts))
	for _, att := range sourceAtts {
		committee, err := helpers.BeaconCommittee(next, att.Data.Slot, att.Data.CommitteeIndex)
		if err != nil {
			return nil, err
		}
		for i, idx := range committee {
			if att.AggregationBits.BitAt(uint64(i)) {
				if d, ok := inclusionDelayByAttester[idx]; !ok || uint64(att.InclusionDelay) < d {
					inclusionDelayByAttester[idx] = uint64(att.InclusionDelay)
					proposerIndexByAttester[idx] = att.ProposerIndex
				}
			}
		}
	}

	active := next.ActiveValidatorIndices(previousEpoch)
	for _, idx := range active {
		v := next.Validators[idx]
		reward := baseReward(v.EffectiveBalance, totalActive)

		// During an inactivity leak each matched component pays the
		// full base reward instead of the participation-scaled one, so
		// a perfectly-attesting validator's gains cancel the flat
		// BASE_REWARDS_PER_EPOCH dock applied below.
		if sourceSet[idx] {
			if inactivityLeak {
				_ = validators.IncreaseBalance(next.Balances, idx, reward)
			} else {
				_ = validators.IncreaseBalance(next.Balances, idx, reward*sourceBalance/totalActive)
			}
			if delay, ok := inclusionDelayByAttester[idx]; ok {
				proposerReward := reward / cfg.ProposerRewardQuotient
				_ = validators.IncreaseBalance(next.Balances, proposerIndexByAttester[idx], proposerReward)
				if delay <= cfg.SlotsPerEpoch {
					_ = validators.IncreaseBalance(next.Balances, idx, reward*(cfg.SlotsPerEpoch-delay)/cfg.SlotsPerEpoch)
				}
			}
		} else {
			_ = validators.DecreaseBalance(next.Balances, idx, reward)
		}

		if targetSet[idx] {
			if inactivityLeak {
				_ = validators.IncreaseBalance(next.Balances, idx, reward)
			} else {
				_ = validators.IncreaseBalance(next.Balances, idx, reward*targetBalance/totalActive)
			}
		} else {
			_ = validators.DecreaseBalance(next.Balances, idx, reward)
		}

		if headSet[idx] {
			if inactivityLeak {
				_ = validators.IncreaseBalance(next.Balances, idx, reward)
			} else {
				_ = validators.IncreaseBalance(next.Balances, idx, reward*headBalance/totalActive)
			}
		} else {
			_ = validators.DecreaseBalance(next.Balances, idx, reward)
		}

		if inactivityLeak {
			_ = validators.DecreaseBalance(next.Balances, idx, reward*cfg.BaseRewardsPerEpoch)
			// The quadratic penalty hits only validators that missed
			// the target vote.
			if !targetSet[idx] {
				_ = validators.DecreaseBalance(next.Balances, idx, finalizedDistance*v.EffectiveBalance/cfg.InactivityPenaltyQuotient)
			}
		}
	}

	return next, nil
}

func toSet(indices []uint64) map[uint64]bool {
	set := make(map[uint64]bool, len(indices))
	for _, idx := range indices {
		set[idx] = true
	}
	return set
}

