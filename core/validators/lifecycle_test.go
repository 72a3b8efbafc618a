package validators

import (
	"testing"

	"github.com/strata-network/beacon/config/params"
	"github.com/strata-network/beacon/consensus-types/primitives"
	"github.com/strata-network/beacon/consensus-types/types"
	"github.com/stretchr/testify/require"
)

func activeValidator(effectiveBalance uint64) *types.Validator {
	return &types.Validator{
		EffectiveBalance:           effectiveBalance,
		ActivationEligibilityEpoch: 0,
		ActivationEpoch:            0,
		ExitEpoch:                  primitives.FarFutureEpoch(),
		WithdrawableEpoch:          primitives.FarFutureEpoch(),
	}
}

func registryState(n int) *types.BeaconState {
	cfg := params.BeaconConfig()
	state := &types.BeaconState{
		Validators: make([]*types.Validator, n),
		Balances:   make([]uint64, n),
		Slashings:  make([]uint64, cfg.EpochsPerSlashingsVector),
	}
	for i := range state.Validators {
		state.Validators[i] = activeValidator(cfg.MaxEffectiveBalance)
		state.Balances[i] = cfg.MaxEffectiveBalance
	}
	return state
}

func TestInitiateValidatorExit_SetsExitAndWithdrawableEpochs(t *testing.T) {
	cfg := params.BeaconConfig()
	state := registryState(8)
	currentEpoch := primitives.Epoch(10)

	require.NoError(t, InitiateValidatorExit(state, 3, currentEpoch))

	v := state.Validators[3]
	wantExit := ComputeActivationExitEpoch(currentEpoch)
	require.Equal(t, wantExit, v.ExitEpoch)
	require.Equal(t, wantExit+primitives.Epoch(cfg.MinValidatorWithdrawabilityDelay), v.WithdrawableEpoch)
}

func TestInitiateValidatorExit_SecondCallIsNoOp(t *testing.T) {
	state := registryState(4)
	require.NoError(t, InitiateValidatorExit(state, 0, 5))
	exitEpoch := state.Validators[0].ExitEpoch

	require.NoError(t, InitiateValidatorExit(state, 0, 50))
	require.Equal(t, exitEpoch, state.Validators[0].ExitEpoch)
}

// Once the churn limit's worth of validators share an exit epoch, the
// next exit spills into the following epoch.
func TestInitiateValidatorExit_ChurnPushesQueueBack(t *testing.T) {
	cfg := params.BeaconConfig()
	churn := cfg.MinPerEpochChurnLimit
	state := registryState(int(churn) + 1)
	currentEpoch := primitives.Epoch(1)

	for i := uint64(0); i < churn; i++ {
		require.NoError(t, InitiateValidatorExit(state, i, currentEpoch))
	}
	first := state.Validators[0].ExitEpoch

	require.NoError(t, InitiateValidatorExit(state, churn, currentEpoch))
	require.Equal(t, first+1, state.Validators[churn].ExitEpoch)
}

func TestSlashValidator_DistinctWhistleblowerSplitsReward(t *testing.T) {
	cfg := params.BeaconConfig()
	state := registryState(4)
	currentEpoch := primitives.Epoch(2)

	const slashed, whistleblower, proposer = uint64(0), uint64(1), uint64(2)
	require.NoError(t, SlashValidator(state, slashed, currentEpoch, whistleblower, proposer))

	v := state.Validators[slashed]
	require.True(t, v.Slashed)
	require.Equal(t, currentEpoch+primitives.Epoch(cfg.EpochsPerSlashingsVector), v.WithdrawableEpoch)
	require.Equal(t, cfg.MaxEffectiveBalance, state.Slashings[uint64(currentEpoch)%cfg.EpochsPerSlashingsVector])

	penalty := cfg.MaxEffectiveBalance / cfg.MinSlashingPenaltyQuotient
	require.Equal(t, cfg.MaxEffectiveBalance-penalty, state.Balances[slashed])

	whistleblowerReward := cfg.MaxEffectiveBalance / cfg.WhistleblowerRewardQuotient
	proposerReward := whistleblowerReward / cfg.ProposerRewardQuotient
	require.Equal(t, cfg.MaxEffectiveBalance+proposerReward, state.Balances[proposer])
	require.Equal(t, cfg.MaxEffectiveBalance+whistleblowerReward-proposerReward, state.Balances[whistleblower])
}

func TestDecreaseBalance_SaturatesAtZero(t *testing.T) {
	balances := []uint64{100}
	require.NoError(t, DecreaseBalance(balances, 0, 1000))
	require.Equal(t, uint64(0), balances[0])
}

func TestIncreaseBalance_IndexOutOfRange(t *testing.T) {
	require.Error(t, IncreaseBalance([]uint64{1}, 5, 10))
}

func TestChurnLimit_Floor(t *testing.T) {
	cfg := params.BeaconConfig()
	require.Equal(t, cfg.MinPerEpochChurnLimit, ChurnLimit(0))
	require.Equal(t, cfg.MinPerEpochChurnLimit, ChurnLimit(cfg.ChurnLimitQuotient))
	big := cfg.ChurnLimitQuotient * (cfg.MinPerEpochChurnLimit + 3)
	require.Equal(t, cfg.MinPerEpochChurnLimit+3, ChurnLimit(big))
}

// A full-balance deposit becomes eligible at the registry pass, then is
// admitted to the activation queue once its eligibility epoch has been
// finalized.
func TestProcessRegistryUpdates_ActivatesFinalizedDeposits(t *testing.T) {
	cfg := params.BeaconConfig()
	state := registryState(4)

	pending := &types.Validator{
		EffectiveBalance:           cfg.MaxEffectiveBalance,
		ActivationEligibilityEpoch: primitives.FarFutureEpoch(),
		ActivationEpoch:            primitives.FarFutureEpoch(),
		ExitEpoch:                  primitives.FarFutureEpoch(),
		WithdrawableEpoch:          primitives.FarFutureEpoch(),
	}
	state.Validators = append(state.Validators, pending)
	state.Balances = append(state.Balances, cfg.MaxEffectiveBalance)

	require.NoError(t, ProcessRegistryUpdates(state, 1))
	require.Equal(t, primitives.Epoch(1), pending.ActivationEligibilityEpoch)
	require.Equal(t, primitives.FarFutureEpoch(), pending.ActivationEpoch)

	state.FinalizedCheckpoint.Epoch = 1
	require.NoError(t, ProcessRegistryUpdates(state, 2))
	require.Equal(t, ComputeActivationExitEpoch(2), pending.ActivationEpoch)
}

func TestProcessRegistryUpdates_EjectsLowBalanceValidators(t *testing.T) {
	cfg := params.BeaconConfig()
	state := registryState(4)
	state.Validators[2].EffectiveBalance = cfg.EjectionBalance

	require.NoError(t, ProcessRegistryUpdates(state, 3))
	require.NotEqual(t, primitives.FarFutureEpoch(), state.Validators[2].ExitEpoch)
	require.Equal(t, primitives.FarFutureEpoch(), state.Validators[0].ExitEpoch)
}
