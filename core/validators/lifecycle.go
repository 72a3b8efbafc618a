// Package validators implements the registry lifecycle state machine:
// activation queueing, exit queueing, ejection and slashing
// accounting.
package validators

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/strata-network/beacon/config/params"
	"github.com/strata-network/beacon/consensus-types/primitives"
	"github.com/strata-network/beacon/consensus-types/types"
)

// ComputeActivationExitEpoch returns the first epoch at which a
// validator queued for activation or exit during epoch may take
// effect.
func ComputeActivationExitEpoch(epoch primitives.Epoch) primitives.Epoch {
	return epoch + 1 + primitives.Epoch(params.BeaconConfig().MaxSeedLookahead)
}

// ChurnLimit returns the per-epoch activation/exit churn limit for a
// registry with activeCount active validators.
func ChurnLimit(activeCount uint64) uint64 {
	cfg := params.BeaconConfig()
	limit := activeCount / cfg.ChurnLimitQuotient
	if limit < cfg.MinPerEpochChurnLimit {
		return cfg.MinPerEpochChurnLimit
	}
	return limit
}

// IncreaseBalance adds delta to balances[index], saturating is not
// needed on the increase side but kept symmetric with DecreaseBalance
// for callers that add negative-looking deltas via two's complement
// mistakes; we simply require index be in range.
func IncreaseBalance(balances []uint64, index uint64, delta uint64) error {
	if index >= uint64(len(balances)) {
		return errors.Errorf("validators: balance index %d out of range", index)
	}
	balances[index] += delta
	return nil
}

// DecreaseBalance subtracts delta from balances[index], saturating at
// zero rather than underflowing.
func DecreaseBalance(balances []uint64, index uint64, delta uint64) error {
	if index >= uint64(len(balances)) {
		return errors.Errorf("validators: balance index %d out of range", index)
	}
	if delta > balances[index] {
		balances[index] = 0
		return nil
	}
	balances[index] -= delta
	return nil
}

// InitiateValidatorExit queues validators[index] for exit, assigning
// the next available exit epoch under the current churn limit. It is
// a no-op if the validator already has an exit epoch set.
func InitiateValidatorExit(state *types.BeaconState, index uint64, currentEpoch primitives.Epoch) error {
	if index >= uint64(len(state.Validators)) {
		return errors.Errorf("validators: index %d out of range", index)
	}
	v := state.Validators[index]
	if v.ExitEpoch != primitives.FarFutureEpoch() {
		return nil
	}

	exitEpochs := make([]primitives.Epoch, 0, len(state.Validators))
	for _, other := range state.Validators {
		if other.ExitEpoch != primitives.FarFutureEpoch() {
			exitEpochs = append(exitEpochs, other.ExitEpoch)
		}
	}
	exitQueueEpoch := ComputeActivationExitEpoch(currentEpoch)
	for _, e := range exitEpochs {
		if e > exitQueueEpoch {
			exitQueueEpoch = e
		}
	}

	count := uint64(0)
	for _, e := range exitEpochs {
		if e == exitQueueEpoch {
			count++
		}
	}
	activeCount := uint64(len(state.ActiveValidatorIndices(currentEpoch)))
	if count >= ChurnLimit(activeCount) {
		exitQueueEpoch++
	}

	v.ExitEpoch = exitQueueEpoch
	withdrawable := exitQueueEpoch + primitives.Epoch(params.BeaconConfig().MinValidatorWithdrawabilityDelay)
	v.WithdrawableEpoch = withdrawable
	return nil
}

// SlashValidator applies the immediate slashing penalty to
// validators[slashedIndex] and rewards the whistleblower.
// whistleblowerIndex defaults to the block proposer when no distinct
// whistleblower is designated.
func SlashValidator(state *types.BeaconState, slashedIndex uint64, currentEpoch primitives.Epoch, whistleblowerIndex, proposerIndex uint64) error {
	if err := InitiateValidatorExit(state, slashedIndex, currentEpoch); err != nil {
		return err
	}
	v := state.Validators[slashedIndex]
	v.Slashed = true
	cfg := params.BeaconConfig()
	withdrawableCandidate := currentEpoch + primitives.Epoch(cfg.EpochsPerSlashingsVector)
	if withdrawableCandidate > v.WithdrawableEpoch {
		v.WithdrawableEpoch = withdrawableCandidate
	}

	slashingsIndex := uint64(currentEpoch) % cfg.EpochsPerSlashingsVector
	if slashingsIndex >= uint64(len(state.Slashings)) {
		return errors.Errorf("validators: slashings index %d out of range", slashingsIndex)
	}
	state.Slashings[slashingsIndex] += v.EffectiveBalance

	if err := DecreaseBalance(state.Balances, slashedIndex, v.EffectiveBalance/cfg.MinSlashingPenaltyQuotient); err != nil {
		return err
	}

	whistleblowerReward := v.EffectiveBalance / cfg.WhistleblowerRewardQuotient
	proposerReward := whistleblowerReward / cfg.ProposerRewardQuotient
	if err := IncreaseBalance(state.Balances, proposerIndex, proposerReward); err != nil {
		return err
	}
	if whistleblowerIndex != proposerIndex {
		if err := IncreaseBalance(state.Balances, whistleblowerIndex, whistleblowerReward-proposerReward); err != nil {
			return err
		}
	} else {
		if err := IncreaseBalance(state.Balances, proposerIndex, whistleblowerReward-proposerReward); err != nil {
			return err
		}
	}
	return nil
}

// ProcessRegistryUpdates runs ejection followed by activation-queue
// admission, mutating state in place (callers are expected to already
// hold a Copy()'d state per the state-transition driver's contract).
func ProcessRegistryUpdates(state *types.BeaconState, currentEpoch primitives.Epoch) error {
	cfg := params.BeaconConfig()

	// Mark full-balance deposits as eligible for the activation queue;
	// deposits themselves leave eligibility at FAR_FUTURE_EPOCH.
	for _, v := range state.Validators {
		if v.ActivationEligibilityEpoch == primitives.FarFutureEpoch() && v.EffectiveBalance == cfg.MaxEffectiveBalance {
			v.ActivationEligibilityEpoch = currentEpoch
		}
	}

	for i, v := range state.Validators {
		if v.IsActive(currentEpoch) && v.EffectiveBalance <= cfg.EjectionBalance {
			if err := InitiateValidatorExit(state, uint64(i), currentEpoch); err != nil {
				return err
			}
		}
	}

	type queued struct {
		index          uint64
		eligibleEpoch  primitives.Epoch
	}
	var queue []queued
	finalizedEpoch := state.FinalizedCheckpoint.Epoch
	for i, v := range state.Validators {
		if v.ActivationEligibilityEpoch <= finalizedEpoch && v.ActivationEpoch == primitives.FarFutureEpoch() {
			queue = append(queue, queued{uint64(i), v.ActivationEligibilityEpoch})
		}
	}
	sort.SliceStable(queue, func(a, b int) bool {
		if queue[a].eligibleEpoch != queue[b].eligibleEpoch {
			return queue[a].eligibleEpoch < queue[b].eligibleEpoch
		}
		return queue[a].index < queue[b].index
	})

	activeCount := uint64(len(state.ActiveValidatorIndices(currentEpoch)))
	limit := ChurnLimit(activeCount)
	if uint64(len(queue)) < limit {
		limit = uint64(len(queue))
	}
	activationEpoch := ComputeActivationExitEpoch(currentEpoch)
	for _, q := range queue[:limit] {
		state.Validators[q.index].ActivationEpoch = activationEpoch
	}
	return nil
}
