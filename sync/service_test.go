package sync

import (
	"context"
	"crypto/sha256"
	"testing"

	"github.com/strata-network/beacon/config/params"
	"github.com/strata-network/beacon/consensus-types/primitives"
	"github.com/strata-network/beacon/consensus-types/types"
	"github.com/strata-network/beacon/core/signing"
	"github.com/strata-network/beacon/core/transition"
	"github.com/strata-network/beacon/crypto/bls"
	"github.com/stretchr/testify/require"
)

type stubPeer struct {
	id     string
	status StatusMessage
}

func (p *stubPeer) ID() string           { return p.id }
func (p *stubPeer) Status() StatusMessage { return p.status }

type stubPeerProvider struct {
	peers []Peer
}

func (p *stubPeerProvider) Peers() []Peer { return p.peers }

type stubFetcher struct {
	blocks map[primitives.Slot]*types.SignedBeaconBlock
}

func (f *stubFetcher) BlocksByRange(ctx context.Context, p Peer, req *BeaconBlocksByRangeRequest) (*BeaconBlocksByRangeResponse, error) {
	resp := &BeaconBlocksByRangeResponse{}
	for i := uint64(0); i < req.Count; i++ {
		slot := req.StartSlot + primitives.Slot(i*req.Step)
		if b, ok := f.blocks[slot]; ok {
			resp.Blocks = append(resp.Blocks, b)
		}
	}
	return resp, nil
}

type stubDB struct {
	headRoot  [32]byte
	headState *types.BeaconState
	blocks    map[[32]byte]*types.SignedBeaconBlock
	states    map[[32]byte]*types.BeaconState
}

func newStubDB(headRoot [32]byte, headState *types.BeaconState) *stubDB {
	return &stubDB{
		headRoot:  headRoot,
		headState: headState,
		blocks:    make(map[[32]byte]*types.SignedBeaconBlock),
		states:    make(map[[32]byte]*types.BeaconState),
	}
}

func (db *stubDB) HeadBlockRoot(ctx context.Context) ([32]byte, error) { return db.headRoot, nil }
func (db *stubDB) HeadState(ctx context.Context) (*types.BeaconState, error) {
	return db.headState, nil
}
func (db *stubDB) SaveBlock(ctx context.Context, root [32]byte, b *types.SignedBeaconBlock) error {
	db.blocks[root] = b
	return nil
}
func (db *stubDB) SaveState(ctx context.Context, root [32]byte, s *types.BeaconState) error {
	db.states[root] = s
	return nil
}
func (db *stubDB) SaveParentChildRelation(ctx context.Context, parentRoot, childRoot [32]byte) error {
	return nil
}
func (db *stubDB) SaveHeadBlockRoot(ctx context.Context, root [32]byte) error {
	db.headRoot = root
	db.headState = db.states[root]
	return nil
}

func TestBestPeer(t *testing.T) {
	peers := []Peer{
		&stubPeer{id: "a", status: StatusMessage{HeadSlot: 10}},
		&stubPeer{id: "b", status: StatusMessage{HeadSlot: 50}},
		&stubPeer{id: "c", status: StatusMessage{HeadSlot: 20}},
	}
	require.Equal(t, "b", bestPeer(peers).ID())
	require.Nil(t, bestPeer(nil))
}

func TestService_IsSyncedWithNoPeers(t *testing.T) {
	db := newStubDB([32]byte{1}, &types.BeaconState{Slot: 5})
	verifier, err := signing.NewVerifier()
	require.NoError(t, err)
	svc, err := NewService(db, &stubPeerProvider{}, &stubFetcher{}, verifier)
	require.NoError(t, err)

	synced, err := svc.IsSynced(context.Background())
	require.NoError(t, err)
	require.True(t, synced)
}

func TestService_IsSyncedBehindPeer(t *testing.T) {
	db := newStubDB([32]byte{1}, &types.BeaconState{Slot: 5})
	verifier, err := signing.NewVerifier()
	require.NoError(t, err)
	peers := &stubPeerProvider{peers: []Peer{&stubPeer{id: "a", status: StatusMessage{HeadSlot: 100}}}}
	svc, err := NewService(db, peers, &stubFetcher{}, verifier)
	require.NoError(t, err)

	synced, err := svc.IsSynced(context.Background())
	require.NoError(t, err)
	require.False(t, synced)
}

// syncFixture builds a one-validator head state at slot 0 plus a fully
// valid signed block at slot 1: correct parent root, real randao
// reveal, the state root the transition computes, the derived
// proposer index and a real envelope signature.
func syncFixture(t *testing.T, verifier *signing.Verifier) (*stubDB, *types.SignedBeaconBlock) {
	t.Helper()
	mainnet := params.BeaconConfig()
	params.OverrideBeaconConfig(params.MinimalSpecConfig())
	t.Cleanup(func() { params.OverrideBeaconConfig(mainnet) })
	cfg := params.BeaconConfig()

	ikm := make([]byte, 32)
	ikm[0] = 0x51
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

	advanced, err := transition.ProcessSlots(state, 1)
	require.NoError(t, err)
	parentRoot, err := advanced.LatestBlockHeader.HashTreeRoot()
	require.NoError(t, err)

	// The randao reveal signs the epoch number under DOMAIN_RANDAO.
	epochBuf := make([]byte, 32)
	revealRoot := sha256.Sum256(epochBuf)
	revealDomain := signing.ComputeDomain(cfg.DomainRandao, [4]byte{})
	reveal := sk.Sign(signing.SigningRoot(revealRoot, revealDomain)).Marshal()

	block := types.BeaconBlock{
		Slot:       1,
		ParentRoot: parentRoot,
		Body:       types.BeaconBlockBody{RandaoReveal: reveal},
	}
	stateRoot, err := transition.CalculateStateRoot(state, &types.SignedBeaconBlock{Block: block}, verifier)
	require.NoError(t, err)
	block.StateRoot = stateRoot

	blockRoot, err := block.HashTreeRoot()
	require.NoError(t, err)
	envelopeDomain := signing.ComputeDomain(cfg.DomainBeaconProposer, [4]byte{})
	signature := sk.Sign(signing.SigningRoot(blockRoot, envelopeDomain)).Marshal()

	db := newStubDB(parentRoot, state)
	return db, &types.SignedBeaconBlock{Block: block, Signature: signature}
}

// TestService_ProcessBatchAppliesChain drives a fully valid block
// through the batch path: slot advancement goes through the skip-slot
// cache, the claimed proposer index is checked against the derived
// one, and the post-state lands in the database under the block root.
func TestService_ProcessBatchAppliesChain(t *testing.T) {
	verifier, err := signing.NewVerifier()
	require.NoError(t, err)
	db, signed := syncFixture(t, verifier)

	svc, err := NewService(db, &stubPeerProvider{}, &stubFetcher{}, verifier)
	require.NoError(t, err)

	require.NoError(t, svc.processBatch(context.Background(), []*types.SignedBeaconBlock{signed}))

	blockRoot, err := signed.Block.HashTreeRoot()
	require.NoError(t, err)
	require.Equal(t, blockRoot, db.headRoot)
	require.Equal(t, primitives.Slot(1), db.states[blockRoot].Slot)

	// The empty-slot replay for (parent, slot 1) is now cached.
	require.NotNil(t, svc.slotCache.Get(signed.Block.ParentRoot, 1))
}

func TestService_ProcessBatchRejectsWrongProposer(t *testing.T) {
	verifier, err := signing.NewVerifier()
	require.NoError(t, err)
	db, signed := syncFixture(t, verifier)
	signed.Block.ProposerIndex = 5

	svc, err := NewService(db, &stubPeerProvider{}, &stubFetcher{}, verifier)
	require.NoError(t, err)

	err = svc.processBatch(context.Background(), []*types.SignedBeaconBlock{signed})
	require.Error(t, err)
}
