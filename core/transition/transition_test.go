package transition

import (
	"crypto/sha256"
	"testing"

	"github.com/strata-network/beacon/cache"
	"github.com/strata-network/beacon/config/params"
	"github.com/strata-network/beacon/consensus-types/primitives"
	"github.com/strata-network/beacon/consensus-types/types"
	"github.com/strata-network/beacon/core/signing"
	"github.com/strata-network/beacon/crypto/bls"
	"github.com/stretchr/testify/require"
)

func withMinimalConfig(t *testing.T) {
	t.Helper()
	mainnet := params.BeaconConfig()
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	t.Cleanup(func() { params.OverrideBeaconConfig(mainnet) })
}

// testState returns a state at slot 0 with a single active validator
// whose secret key is returned alongside, rings sized per the active
// config, and LatestBlockHeader pointing at an empty body.
func testState(t *testing.T) (*types.BeaconState, bls.SecretKey) {
	t.Helper()
	cfg := params.BeaconConfig()

	ikm := make([]byte, 32)
	ikm[0] = 0x42
	sk, err := bls.SecretKeyFromIKM(ikm)
	require.NoError(t, err)

	bodyRoot, err := (&types.BeaconBlockBody{}).HashTreeRoot()
	require.NoError(t, err)

	state := &types.BeaconState{
		LatestBlockHeader: types.BeaconBlockHeader{BodyRoot: bodyRoot},
		Validators: []*types.Validator{{
			PublicKey:         sk.PublicKey().Marshal(),
			EffectiveBalance:  cfg.MaxEffectiveBalance,
			ActivationEpoch:   0,
			ExitEpoch:         primitives.FarFutureEpoch(),
			WithdrawableEpoch: primitives.FarFutureEpoch(),
		}},
		Balances:         []uint64{cfg.MaxEffectiveBalance},
		BlockRoots:       make([][32]byte, cfg.SlotsPerHistoricalRoot),
		StateRoots:       make([][32]byte, cfg.SlotsPerHistoricalRoot),
		RandaoMixes:      make([][32]byte, cfg.EpochsPerHistoricalVector),
		ActiveIndexRoots: make([][32]byte, cfg.EpochsPerHistoricalVector),
		Slashings:        make([]uint64, cfg.EpochsPerSlashingsVector),
	}
	return state, sk
}

// signRandaoReveal signs the epoch number under DOMAIN_RANDAO the way
// processRandao expects to verify it.
func signRandaoReveal(epoch primitives.Epoch, sk bls.SecretKey) [96]byte {
	buf := make([]byte, 32)
	v := uint64(epoch)
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	root := sha256.Sum256(buf)
	domain := signing.ComputeDomain(params.BeaconConfig().DomainRandao, [4]byte{})
	sig := sk.Sign(signing.SigningRoot(root, domain))
	return sig.Marshal()
}

// buildBlockAt assembles a valid empty-body block for slot 1 against
// state: parent root from the advanced latest header, a real randao
// reveal, and the state root the transition will actually compute.
func buildBlockAt(t *testing.T, state *types.BeaconState, sk bls.SecretKey, verifier *signing.Verifier) types.BeaconBlock {
	t.Helper()

	// The block's parent root is the latest header's root after
	// process_slot has filled in its state root.
	advanced, err := ProcessSlots(state, 1)
	require.NoError(t, err)
	parentRoot, err := advanced.LatestBlockHeader.HashTreeRoot()
	require.NoError(t, err)

	block := types.BeaconBlock{
		Slot:       1,
		ParentRoot: parentRoot,
		Body: types.BeaconBlockBody{
			RandaoReveal: signRandaoReveal(0, sk),
		},
	}

	// The header stores a zeroed state root regardless of
	// block.StateRoot, so filling the field afterwards does not change
	// the computed root.
	stateRoot, err := CalculateStateRoot(state, &types.SignedBeaconBlock{Block: block}, verifier)
	require.NoError(t, err)
	block.StateRoot = stateRoot
	return block
}

// TestExecuteStateTransition_SingleEmptyBlock: applying a block at
// slot 1 with an empty body advances the state one slot, adopts the
// block as the latest header, and caches the genesis header's root at
// slot 0 of the block-roots ring.
func TestExecuteStateTransition_SingleEmptyBlock(t *testing.T) {
	withMinimalConfig(t)
	state, sk := testState(t)

	verifier, err := signing.NewVerifier()
	require.NoError(t, err)

	block := buildBlockAt(t, state, sk, verifier)
	signed := &types.SignedBeaconBlock{Block: block}

	next, err := ExecuteStateTransition(state, signed, verifier, false)
	require.NoError(t, err)

	require.Equal(t, primitives.Slot(1), next.Slot)
	require.Equal(t, uint64(1), next.LatestBlockHeader.Slot)
	require.Equal(t, block.ParentRoot, next.BlockRoots[0])

	gotRoot, err := next.HashTreeRoot()
	require.NoError(t, err)
	require.Equal(t, block.StateRoot, gotRoot)

	// The caller's state is untouched.
	require.Equal(t, primitives.Slot(0), state.Slot)
	require.Equal(t, uint64(0), state.LatestBlockHeader.Slot)
}

// A block claiming the wrong state root must be rejected, including
// the zero root: the check has no zero-value carve-out a peer could
// exploit.
func TestExecuteStateTransition_WrongStateRoot(t *testing.T) {
	withMinimalConfig(t)
	state, sk := testState(t)

	verifier, err := signing.NewVerifier()
	require.NoError(t, err)

	block := buildBlockAt(t, state, sk, verifier)
	block.StateRoot = [32]byte{}
	_, err = ExecuteStateTransition(state, &types.SignedBeaconBlock{Block: block}, verifier, false)
	require.Error(t, err)

	block = buildBlockAt(t, state, sk, verifier)
	block.StateRoot[0] ^= 0xff
	_, err = ExecuteStateTransition(state, &types.SignedBeaconBlock{Block: block}, verifier, false)
	require.Error(t, err)
}

func TestExecuteStateTransition_WrongParentRoot(t *testing.T) {
	withMinimalConfig(t)
	state, sk := testState(t)

	verifier, err := signing.NewVerifier()
	require.NoError(t, err)

	block := types.BeaconBlock{
		Slot:       1,
		ParentRoot: [32]byte{0xde, 0xad},
		Body: types.BeaconBlockBody{
			RandaoReveal: signRandaoReveal(0, sk),
		},
	}
	_, err = ExecuteStateTransition(state, &types.SignedBeaconBlock{Block: block}, verifier, false)
	require.Error(t, err)
	require.Equal(t, primitives.Slot(0), state.Slot)
}

func TestProcessSlots_CrossesEpochBoundary(t *testing.T) {
	withMinimalConfig(t)
	state, _ := testState(t)
	spe := params.BeaconConfig().SlotsPerEpoch

	next, err := ProcessSlots(state, primitives.Slot(spe))
	require.NoError(t, err)
	require.Equal(t, primitives.Slot(spe), next.Slot)
	require.Equal(t, primitives.Epoch(1), next.Slot.ToEpoch())
	require.Equal(t, primitives.Slot(0), state.Slot)
}

func TestProcessSlots_TargetBehindCurrent(t *testing.T) {
	withMinimalConfig(t)
	state, _ := testState(t)
	state.Slot = 5

	_, err := ProcessSlots(state, 3)
	require.Error(t, err)
}

// A second request for the same (pre-state root, slot) replay is
// served from the cache, and the served state is an independent copy.
func TestProcessSlotsCached_ServesCopies(t *testing.T) {
	withMinimalConfig(t)
	state, _ := testState(t)

	c, err := cache.NewSkipSlotCache()
	require.NoError(t, err)
	preRoot := [32]byte{0x11}

	first, err := ProcessSlotsCached(c, preRoot, state, 3)
	require.NoError(t, err)
	second, err := ProcessSlotsCached(c, preRoot, state, 3)
	require.NoError(t, err)

	firstRoot, err := first.HashTreeRoot()
	require.NoError(t, err)
	secondRoot, err := second.HashTreeRoot()
	require.NoError(t, err)
	require.Equal(t, firstRoot, secondRoot)

	// Mutating one result must not leak into the other or the cache.
	second.Slot = 99
	third, err := ProcessSlotsCached(c, preRoot, state, 3)
	require.NoError(t, err)
	require.Equal(t, primitives.Slot(3), third.Slot)
	require.Equal(t, primitives.Slot(3), first.Slot)

	// A nil cache degrades to the plain path.
	plain, err := ProcessSlotsCached(nil, preRoot, state, 3)
	require.NoError(t, err)
	require.Equal(t, primitives.Slot(3), plain.Slot)
}

func TestProcessSlots_FillsStateRoots(t *testing.T) {
	withMinimalConfig(t)
	state, _ := testState(t)

	preRoot, err := state.HashTreeRoot()
	require.NoError(t, err)

	next, err := ProcessSlots(state, 1)
	require.NoError(t, err)
	require.Equal(t, preRoot, next.StateRoots[0])
	require.Equal(t, preRoot, next.LatestBlockHeader.StateRoot)
}
