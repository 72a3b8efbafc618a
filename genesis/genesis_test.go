package genesis

import (
	"testing"

	"github.com/strata-network/beacon/config/params"
	"github.com/strata-network/beacon/consensus-types/primitives"
	"github.com/strata-network/beacon/consensus-types/types"
	"github.com/strata-network/beacon/core/signing"
	"github.com/strata-network/beacon/crypto/bls"
	"github.com/stretchr/testify/require"
)

// signedDeposit builds a 32-ETH DepositData carrying a valid
// proof-of-possession from sk.
func signedDeposit(t *testing.T, sk bls.SecretKey) *types.DepositData {
	t.Helper()
	cfg := params.BeaconConfig()
	d := &types.DepositData{
		PublicKey: sk.PublicKey().Marshal(),
		Amount:    cfg.MaxEffectiveBalance,
	}
	root, err := d.SigningRoot()
	require.NoError(t, err)
	domain := signing.ComputeDomain(cfg.DomainDeposit, [4]byte{})
	d.Signature = sk.Sign(signing.SigningRoot(root, domain)).Marshal()
	return d
}

// Sixteen 32-ETH deposits at genesis_time 0 produce a registry of sixteen
// validators, all active at the genesis epoch, each with a 32-ETH
// balance, under a zero fork version.
func TestBeaconState_SixteenFullDeposits(t *testing.T) {
	cfg := params.BeaconConfig()
	verifier, err := signing.NewVerifier()
	require.NoError(t, err)

	deposits := make([]*types.DepositData, 16)
	for i := range deposits {
		ikm := make([]byte, 32)
		ikm[0] = byte(i + 1)
		sk, err := bls.SecretKeyFromIKM(ikm)
		require.NoError(t, err)
		deposits[i] = signedDeposit(t, sk)
	}

	state, err := BeaconState(deposits, [32]byte{}, 0, verifier)
	require.NoError(t, err)

	require.Equal(t, primitives.Slot(cfg.GenesisSlot), state.Slot)
	require.Len(t, state.Validators, 16)
	require.Len(t, state.Balances, 16)
	require.Equal(t, [4]byte{}, state.Fork.PreviousVersion)
	require.Equal(t, [4]byte{}, state.Fork.CurrentVersion)
	for i, v := range state.Validators {
		require.True(t, v.IsActive(primitives.Epoch(cfg.GenesisEpoch)), "validator %d inactive", i)
		require.Equal(t, cfg.MaxEffectiveBalance, state.Balances[i])
	}
}

// An unsigned (invalid proof-of-possession) deposit is skipped without
// failing genesis, but still advances the deposit index.
func TestBeaconState_SkipsInvalidProofOfPossession(t *testing.T) {
	verifier, err := signing.NewVerifier()
	require.NoError(t, err)

	ikm := make([]byte, 32)
	ikm[0] = 0x11
	sk, err := bls.SecretKeyFromIKM(ikm)
	require.NoError(t, err)

	bad := &types.DepositData{Amount: params.BeaconConfig().MaxEffectiveBalance}
	bad.PublicKey[0] = 0xff

	state, err := BeaconState([]*types.DepositData{bad, signedDeposit(t, sk)}, [32]byte{}, 0, verifier)
	require.NoError(t, err)
	require.Len(t, state.Validators, 1)
	require.Equal(t, uint64(2), state.Eth1DepositIndex)
}

func TestBeaconState_BuildsFromDeposits(t *testing.T) {
	verifier, err := signing.NewVerifier()
	require.NoError(t, err)

	deposits := make([]*types.DepositData, 4)
	for i := range deposits {
		deposits[i] = &types.DepositData{Amount: 32_000_000_000}
		deposits[i].PublicKey[0] = byte(i + 1)
	}

	state, err := BeaconState(deposits, [32]byte{7}, 1_600_000_000, verifier)
	require.NoError(t, err)
	require.Equal(t, uint64(len(deposits)), state.Eth1DepositIndex)
	require.Equal(t, uint64(1_600_000_000), state.GenesisTime)
}

func TestDepositTrie_RootChangesWithEachInsert(t *testing.T) {
	trie := newDepositTrie(4)
	roots := make(map[[32]byte]bool)
	for i := 0; i < 5; i++ {
		var leaf [32]byte
		leaf[0] = byte(i + 1)
		trie.insert(leaf)
		roots[trie.root()] = true
	}
	require.Len(t, roots, 5)
}

func TestDepositTrie_ProofLengthIsDepthPlusOne(t *testing.T) {
	trie := newDepositTrie(8)
	var leaf [32]byte
	idx := trie.insert(leaf)
	require.Len(t, trie.proof(idx), 9)
}
