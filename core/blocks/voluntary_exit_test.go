package blocks

import (
	"testing"

	"github.com/strata-network/beacon/config/params"
	"github.com/strata-network/beacon/consensus-types/primitives"
	"github.com/strata-network/beacon/consensus-types/types"
	"github.com/strata-network/beacon/core/signing"
	"github.com/strata-network/beacon/crypto/bls"
	"github.com/stretchr/testify/require"
)

func signedExit(t *testing.T, sk bls.SecretKey, exit types.VoluntaryExit) *types.SignedVoluntaryExit {
	t.Helper()
	root, err := exit.HashTreeRoot()
	require.NoError(t, err)
	domain := signing.ComputeDomain(params.BeaconConfig().DomainVoluntaryExit, [4]byte{})
	sig := sk.Sign(signing.SigningRoot(root, domain))
	return &types.SignedVoluntaryExit{Exit: exit, Signature: sig.Marshal()}
}

func exitTestState(t *testing.T, sk bls.SecretKey, currentEpoch primitives.Epoch) *types.BeaconState {
	t.Helper()
	cfg := params.BeaconConfig()
	slot, err := currentEpoch.StartSlot()
	require.NoError(t, err)
	return &types.BeaconState{
		Slot: slot,
		Validators: []*types.Validator{{
			PublicKey:         sk.PublicKey().Marshal(),
			EffectiveBalance:  cfg.MaxEffectiveBalance,
			ActivationEpoch:   0,
			ExitEpoch:         primitives.FarFutureEpoch(),
			WithdrawableEpoch: primitives.FarFutureEpoch(),
		}},
		Balances: []uint64{cfg.MaxEffectiveBalance},
	}
}

func TestProcessVoluntaryExits_QueuesExit(t *testing.T) {
	cfg := params.BeaconConfig()
	ikm := make([]byte, 32)
	ikm[0] = 0x31
	sk, err := bls.SecretKeyFromIKM(ikm)
	require.NoError(t, err)

	currentEpoch := primitives.Epoch(cfg.PersistentCommitteePeriod)
	state := exitTestState(t, sk, currentEpoch)
	exit := signedExit(t, sk, types.VoluntaryExit{Epoch: currentEpoch, ValidatorIndex: 0})

	verifier, err := signing.NewVerifier()
	require.NoError(t, err)

	next, err := ProcessVoluntaryExits(state, []*types.SignedVoluntaryExit{exit}, verifier, [4]byte{})
	require.NoError(t, err)
	require.NotEqual(t, primitives.FarFutureEpoch(), next.Validators[0].ExitEpoch)
	require.Equal(t,
		next.Validators[0].ExitEpoch+primitives.Epoch(cfg.MinValidatorWithdrawabilityDelay),
		next.Validators[0].WithdrawableEpoch)

	// Input untouched.
	require.Equal(t, primitives.FarFutureEpoch(), state.Validators[0].ExitEpoch)
}

func TestProcessVoluntaryExits_TooEarlyInLifetime(t *testing.T) {
	cfg := params.BeaconConfig()
	ikm := make([]byte, 32)
	ikm[0] = 0x32
	sk, err := bls.SecretKeyFromIKM(ikm)
	require.NoError(t, err)

	// One epoch short of the minimum active duration.
	currentEpoch := primitives.Epoch(cfg.PersistentCommitteePeriod - 1)
	state := exitTestState(t, sk, currentEpoch)
	exit := signedExit(t, sk, types.VoluntaryExit{Epoch: currentEpoch, ValidatorIndex: 0})

	verifier, err := signing.NewVerifier()
	require.NoError(t, err)

	_, err = ProcessVoluntaryExits(state, []*types.SignedVoluntaryExit{exit}, verifier, [4]byte{})
	require.Error(t, err)
}

func TestProcessVoluntaryExits_BadSignature(t *testing.T) {
	cfg := params.BeaconConfig()
	ikm := make([]byte, 32)
	ikm[0] = 0x33
	sk, err := bls.SecretKeyFromIKM(ikm)
	require.NoError(t, err)

	currentEpoch := primitives.Epoch(cfg.PersistentCommitteePeriod)
	state := exitTestState(t, sk, currentEpoch)

	// Signed over the wrong validator index.
	exit := signedExit(t, sk, types.VoluntaryExit{Epoch: currentEpoch, ValidatorIndex: 1})
	exit.Exit.ValidatorIndex = 0

	verifier, err := signing.NewVerifier()
	require.NoError(t, err)

	_, err = ProcessVoluntaryExits(state, []*types.SignedVoluntaryExit{exit}, verifier, [4]byte{})
	require.Error(t, err)
}
