package sync

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/strata-network/beacon/cache"
	"github.com/strata-network/beacon/consensus-types/types"
	"github.com/strata-network/beacon/core/helpers"
	"github.com/strata-network/beacon/core/signing"
	"github.com/strata-network/beacon/core/transition"
)

var log = logrus.WithField("prefix", "sync")

const blocksPerRequest = 64

// ChainDB is the slice of db/kv.Store the sync service needs: persist
// a verified block/state pair and advance the canonical head.
type ChainDB interface {
	HeadBlockRoot(ctx context.Context) ([32]byte, error)
	HeadState(ctx context.Context) (*types.BeaconState, error)
	SaveBlock(ctx context.Context, root [32]byte, b *types.SignedBeaconBlock) error
	SaveState(ctx context.Context, root [32]byte, state *types.BeaconState) error
	SaveParentChildRelation(ctx context.Context, parentRoot, childRoot [32]byte) error
	SaveHeadBlockRoot(ctx context.Context, root [32]byte) error
}

// Service drives a single round of initial/range sync: find the peer
// furthest ahead, pull blocks in batches from the local head, verify
// and persist each one, and repeat until caught up. Empty-slot
// replays and proposer shuffles are cached across batches.
type Service struct {
	db            ChainDB
	peers         PeerProvider
	fetcher       Fetcher
	verifier      *signing.Verifier
	slotCache     *cache.SkipSlotCache
	proposerCache *cache.ProposerIndicesCache
}

// NewService constructs a sync Service with its own cache handles.
func NewService(db ChainDB, peers PeerProvider, fetcher Fetcher, verifier *signing.Verifier) (*Service, error) {
	slotCache, err := cache.NewSkipSlotCache()
	if err != nil {
		return nil, err
	}
	return &Service{
		db:            db,
		peers:         peers,
		fetcher:       fetcher,
		verifier:      verifier,
		slotCache:     slotCache,
		proposerCache: cache.NewProposerIndicesCache(),
	}, nil
}

// IsSynced reports whether the local head slot is at or past every
// connected peer's advertised head slot.
func (s *Service) IsSynced(ctx context.Context) (bool, error) {
	head, err := s.db.HeadState(ctx)
	if err != nil {
		return false, err
	}
	best := bestPeer(s.peers.Peers())
	if best == nil {
		return true, nil
	}
	return head.Slot >= best.Status().HeadSlot, nil
}

// Run repeatedly requests batches of blocks from the best peer,
// verifying and persisting each one, until the local head reaches
// that peer's advertised head slot or no peer is connected.
func (s *Service) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		best := bestPeer(s.peers.Peers())
		if best == nil {
			return nil
		}

		head, err := s.db.HeadState(ctx)
		if err != nil {
			return errors.Wrap(err, "sync: read head state")
		}
		if head.Slot >= best.Status().HeadSlot {
			return nil
		}

		resp, err := s.fetcher.BlocksByRange(ctx, best, &BeaconBlocksByRangeRequest{
			StartSlot: head.Slot + 1,
			Count:     blocksPerRequest,
			Step:      1,
		})
		if err != nil {
			return errors.Wrapf(err, "sync: request blocks from peer %s", best.ID())
		}
		if len(resp.Blocks) == 0 {
			return errors.Errorf("sync: peer %s returned no blocks for a non-empty range", best.ID())
		}

		if err := s.processBatch(ctx, resp.Blocks); err != nil {
			return err
		}
	}
}

// processBatch verifies and persists each block in slot order,
// advancing the canonical head after every successfully applied
// block. A verification failure aborts the batch without losing
// already-applied progress. Empty-slot runs between blocks go through
// the skip-slot cache, so a retried batch or a second child of the
// same parent does not re-pay the per-slot hashing.
func (s *Service) processBatch(ctx context.Context, blocks []*types.SignedBeaconBlock) error {
	head, err := s.db.HeadState(ctx)
	if err != nil {
		return errors.Wrap(err, "sync: read head state")
	}
	headRoot, err := s.db.HeadBlockRoot(ctx)
	if err != nil {
		return errors.Wrap(err, "sync: read head root")
	}

	preState := head
	parentRoot := headRoot
	for _, b := range blocks {
		if b.Block.ParentRoot != parentRoot {
			return errors.Errorf("sync: block at slot %d does not chain from expected parent", b.Block.Slot)
		}

		advanced, err := transition.ProcessSlotsCached(s.slotCache, parentRoot, preState, b.Block.Slot)
		if err != nil {
			return errors.Wrapf(err, "sync: advance slots to %d", b.Block.Slot)
		}

		expected, err := s.expectedProposer(parentRoot, advanced)
		if err != nil {
			return errors.Wrapf(err, "sync: derive proposer at slot %d", b.Block.Slot)
		}
		if b.Block.ProposerIndex != expected {
			return errors.Errorf("sync: block at slot %d names proposer %d, chain derives %d", b.Block.Slot, b.Block.ProposerIndex, expected)
		}

		postState, err := transition.ExecuteStateTransition(advanced, b, s.verifier, true)
		if err != nil {
			return errors.Wrapf(err, "sync: state transition at slot %d", b.Block.Slot)
		}

		root, err := b.Block.HashTreeRoot()
		if err != nil {
			return errors.Wrap(err, "sync: hash block")
		}

		if err := s.db.SaveBlock(ctx, root, b); err != nil {
			return err
		}
		if err := s.db.SaveState(ctx, root, postState); err != nil {
			return err
		}
		if err := s.db.SaveParentChildRelation(ctx, parentRoot, root); err != nil {
			return err
		}
		if err := s.db.SaveHeadBlockRoot(ctx, root); err != nil {
			return err
		}

		log.WithFields(logrus.Fields{
			"slot": b.Block.Slot,
			"root": root,
		}).Debug("synced block")

		preState = postState
		parentRoot = root
	}
	return nil
}

// expectedProposer returns the proposer index the chain derives for
// state's current epoch, consulting the proposer cache under the
// parent block root before recomputing the shuffle. state must
// already be advanced to the slot being validated.
func (s *Service) expectedProposer(parentRoot [32]byte, state *types.BeaconState) (uint64, error) {
	if cached, err := s.proposerCache.ProposerIndices(parentRoot); err == nil && len(cached) == 1 {
		return cached[0], nil
	}
	idx, err := helpers.ComputeProposerIndex(state, state.Slot.ToEpoch(), func(iterations int) {
		log.WithField("iterations", iterations).Warn("proposer sampling is running long")
	})
	if err != nil {
		return 0, err
	}
	_ = s.proposerCache.AddProposerIndices(&cache.ProposerIndices{
		BlockRoot:       parentRoot,
		ProposerIndices: []uint64{idx},
	})
	return idx, nil
}
