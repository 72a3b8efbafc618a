package protoarray

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/strata-network/beacon/consensus-types/primitives"
)

// ForkChoice is the public LMD-GHOST handle: a Store plus the
// per-validator vote cache and balance snapshot fork choice scores
// against. Callers hold one instance per chain.
type ForkChoice struct {
	store     *Store
	votes     []Vote
	balances  []uint64
	votesLock sync.Mutex
}

// New constructs a ForkChoice rooted at nothing yet; the first call to
// ProcessBlock establishes the tree root.
func New(justifiedEpoch, finalizedEpoch primitives.Epoch) *ForkChoice {
	return &ForkChoice{
		store: &Store{
			nodeByRoot:     make(map[[32]byte]*Node),
			justifiedEpoch: justifiedEpoch,
			finalizedEpoch: finalizedEpoch,
			pruneThreshold: defaultPruneThreshold,
		},
		balances: make([]uint64, 0),
		votes:    make([]Vote, 0),
	}
}

// ProcessBlock inserts a newly-seen block into the store.
func (f *ForkChoice) ProcessBlock(slot primitives.Slot, blockRoot, parentRoot [32]byte, justifiedEpoch, finalizedEpoch primitives.Epoch) error {
	return f.store.insert(slot, blockRoot, parentRoot, justifiedEpoch, finalizedEpoch)
}

// ProcessAttestation records that every validator in validatorIndices
// attested for blockRoot at targetEpoch. An existing vote is replaced
// only by one with a strictly later target epoch, so a stale
// attestation can never move a validator's weight backwards.
func (f *ForkChoice) ProcessAttestation(validatorIndices []uint64, blockRoot [32]byte, targetEpoch primitives.Epoch) {
	f.votesLock.Lock()
	defer f.votesLock.Unlock()

	for _, index := range validatorIndices {
		for index >= uint64(len(f.votes)) {
			f.votes = append(f.votes, Vote{})
		}
		v := &f.votes[index]
		isNew := v.nextRoot == ([32]byte{}) && v.currentRoot == ([32]byte{})
		if isNew || targetEpoch > v.nextEpoch {
			v.nextEpoch = targetEpoch
			v.nextRoot = blockRoot
		}
	}
}

// Head recomputes node weights from the current vote set and returns
// the resulting canonical head root.
func (f *ForkChoice) Head(justifiedEpoch, finalizedEpoch primitives.Epoch, justifiedStateBalances []uint64) ([32]byte, error) {
	f.votesLock.Lock()
	defer f.votesLock.Unlock()

	deltas, newVotes := computeDeltas(f.votes, f.balances, justifiedStateBalances)
	f.votes = newVotes
	f.balances = justifiedStateBalances

	f.store.justifiedEpoch = justifiedEpoch
	f.store.finalizedEpoch = finalizedEpoch
	if err := f.store.applyWeightChanges(deltas); err != nil {
		return [32]byte{}, errors.Wrap(err, "protoarray: apply weight changes")
	}
	return f.store.head()
}

// Prune discards nodes outside the subtree rooted at finalizedRoot.
func (f *ForkChoice) Prune(finalizedRoot [32]byte) error {
	return f.store.prune(finalizedRoot)
}

// HasNode reports whether root is known to the store.
func (f *ForkChoice) HasNode(root [32]byte) bool {
	f.store.nodesLock.RLock()
	defer f.store.nodesLock.RUnlock()
	_, ok := f.store.nodeByRoot[root]
	return ok
}

// Node returns the node stored for root, or nil if unknown.
func (f *ForkChoice) Node(root [32]byte) *Node {
	f.store.nodesLock.RLock()
	defer f.store.nodesLock.RUnlock()
	return f.store.nodeByRoot[root]
}

// AncestorRoot returns the root of root's ancestor at slot.
func (f *ForkChoice) AncestorRoot(root [32]byte, slot primitives.Slot) ([32]byte, error) {
	f.store.nodesLock.RLock()
	defer f.store.nodesLock.RUnlock()

	n, ok := f.store.nodeByRoot[root]
	if !ok {
		return [32]byte{}, errors.New("protoarray: node does not exist")
	}
	for n.slot > slot {
		if n.parent == nil {
			return [32]byte{}, errors.New("protoarray: ancestor at slot not found")
		}
		n = n.parent
	}
	return n.root, nil
}
