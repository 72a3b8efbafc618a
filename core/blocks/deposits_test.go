package blocks

import (
	"encoding/binary"
	"testing"

	"github.com/strata-network/beacon/config/params"
	"github.com/strata-network/beacon/consensus-types/primitives"
	"github.com/strata-network/beacon/consensus-types/types"
	"github.com/strata-network/beacon/core/signing"
	"github.com/strata-network/beacon/crypto/bls"
	"github.com/stretchr/testify/require"
)

func withSmallDepositTree(t *testing.T) {
	t.Helper()
	mainnet := params.BeaconConfig()
	cfg := params.MinimalSpecConfig()
	cfg.DepositContractTreeDepth = 4
	params.OverrideBeaconConfig(cfg)
	t.Cleanup(func() { params.OverrideBeaconConfig(mainnet) })
}

// singleLeafBranch builds the branch for the only deposit in a tree of
// the configured depth: every sibling is a zero subtree, and the final
// element mixes in a deposit count of one. Returns (proof, root).
func singleLeafBranch(t *testing.T, leaf [32]byte) ([][32]byte, [32]byte) {
	t.Helper()
	depth := params.BeaconConfig().DepositContractTreeDepth

	zero := make([][32]byte, depth)
	for i := uint64(1); i < depth; i++ {
		zero[i] = hashPair(zero[i-1], zero[i-1])
	}

	proof := make([][32]byte, depth+1)
	node := leaf
	for i := uint64(0); i < depth; i++ {
		proof[i] = zero[i]
		node = hashPair(node, zero[i])
	}
	var countBuf [32]byte
	binary.LittleEndian.PutUint64(countBuf[:8], 1)
	proof[depth] = countBuf
	return proof, hashPair(node, countBuf)
}

func signedDepositData(t *testing.T, sk bls.SecretKey, amount uint64) types.DepositData {
	t.Helper()
	d := types.DepositData{PublicKey: sk.PublicKey().Marshal(), Amount: amount}
	root, err := d.SigningRoot()
	require.NoError(t, err)
	domain := signing.ComputeDomain(params.BeaconConfig().DomainDeposit, [4]byte{})
	d.Signature = sk.Sign(signing.SigningRoot(root, domain)).Marshal()
	return d
}

func TestProcessDeposits_AppendsNewValidator(t *testing.T) {
	withSmallDepositTree(t)
	cfg := params.BeaconConfig()

	ikm := make([]byte, 32)
	ikm[0] = 0x21
	sk, err := bls.SecretKeyFromIKM(ikm)
	require.NoError(t, err)

	data := signedDepositData(t, sk, cfg.MaxEffectiveBalance)
	leaf, err := data.HashTreeRoot()
	require.NoError(t, err)
	proof, root := singleLeafBranch(t, leaf)

	state := &types.BeaconState{Eth1Data: types.Eth1Data{DepositRoot: root, DepositCount: 1}}
	verifier, err := signing.NewVerifier()
	require.NoError(t, err)

	next, err := ProcessDeposits(state, []*types.Deposit{{Proof: proof, Data: data}}, verifier)
	require.NoError(t, err)

	require.Len(t, next.Validators, 1)
	require.Equal(t, uint64(1), next.Eth1DepositIndex)
	v := next.Validators[0]
	require.Equal(t, cfg.MaxEffectiveBalance, v.EffectiveBalance)
	require.Equal(t, primitives.FarFutureEpoch(), v.ActivationEligibilityEpoch)
	require.Equal(t, cfg.MaxEffectiveBalance, next.Balances[0])

	// Input untouched.
	require.Empty(t, state.Validators)
	require.Equal(t, uint64(0), state.Eth1DepositIndex)
}

func TestProcessDeposits_InvalidProofFailsBlock(t *testing.T) {
	withSmallDepositTree(t)

	ikm := make([]byte, 32)
	ikm[0] = 0x22
	sk, err := bls.SecretKeyFromIKM(ikm)
	require.NoError(t, err)

	data := signedDepositData(t, sk, params.BeaconConfig().MaxEffectiveBalance)
	leaf, err := data.HashTreeRoot()
	require.NoError(t, err)
	proof, root := singleLeafBranch(t, leaf)
	proof[0][0] ^= 0xff

	state := &types.BeaconState{Eth1Data: types.Eth1Data{DepositRoot: root, DepositCount: 1}}
	verifier, err := signing.NewVerifier()
	require.NoError(t, err)

	_, err = ProcessDeposits(state, []*types.Deposit{{Proof: proof, Data: data}}, verifier)
	require.ErrorIs(t, err, ErrInvalidDepositProof)
}

// A new-validator deposit with a bad proof-of-possession is skipped —
// no registry entry — but eth1_deposit_index still advances and the
// block does not fail.
func TestProcessDeposits_BadProofOfPossessionSkipped(t *testing.T) {
	withSmallDepositTree(t)

	data := types.DepositData{Amount: params.BeaconConfig().MaxEffectiveBalance}
	data.PublicKey[0] = 0x99
	leaf, err := data.HashTreeRoot()
	require.NoError(t, err)
	proof, root := singleLeafBranch(t, leaf)

	state := &types.BeaconState{Eth1Data: types.Eth1Data{DepositRoot: root, DepositCount: 1}}
	verifier, err := signing.NewVerifier()
	require.NoError(t, err)

	next, err := ProcessDeposits(state, []*types.Deposit{{Proof: proof, Data: data}}, verifier)
	require.NoError(t, err)
	require.Empty(t, next.Validators)
	require.Equal(t, uint64(1), next.Eth1DepositIndex)
}

// A deposit whose pubkey is already registered is a top-up: the balance
// grows and no proof-of-possession is checked.
func TestProcessDeposits_TopUp(t *testing.T) {
	withSmallDepositTree(t)
	cfg := params.BeaconConfig()

	data := types.DepositData{Amount: 1_000_000_000}
	data.PublicKey[0] = 0x77
	leaf, err := data.HashTreeRoot()
	require.NoError(t, err)
	proof, root := singleLeafBranch(t, leaf)

	state := &types.BeaconState{
		Eth1Data: types.Eth1Data{DepositRoot: root, DepositCount: 1},
		Validators: []*types.Validator{{
			PublicKey:         data.PublicKey,
			EffectiveBalance:  cfg.MaxEffectiveBalance,
			ExitEpoch:         primitives.FarFutureEpoch(),
			WithdrawableEpoch: primitives.FarFutureEpoch(),
		}},
		Balances: []uint64{cfg.MaxEffectiveBalance},
	}
	verifier, err := signing.NewVerifier()
	require.NoError(t, err)

	next, err := ProcessDeposits(state, []*types.Deposit{{Proof: proof, Data: data}}, verifier)
	require.NoError(t, err)
	require.Len(t, next.Validators, 1)
	require.Equal(t, cfg.MaxEffectiveBalance+1_000_000_000, next.Balances[0])
}
