package protoarray

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/strata-network/beacon/consensus-types/primitives"
)

// Store holds the proto-array tree plus the justified/finalized
// checkpoints fork choice is currently filtering against.
type Store struct {
	nodesLock      sync.RWMutex
	nodeByRoot     map[[32]byte]*Node
	treeRootNode   *Node
	justifiedEpoch primitives.Epoch
	finalizedEpoch primitives.Epoch
	pruneThreshold uint64
}

const defaultPruneThreshold = 256

// insert adds a new block to the store as a child of parentRoot (the
// tree root itself if parentRoot is unknown and no tree root is set
// yet), initializing its weight to zero.
func (s *Store) insert(slot primitives.Slot, root, parentRoot [32]byte, justifiedEpoch, finalizedEpoch primitives.Epoch) error {
	s.nodesLock.Lock()
	defer s.nodesLock.Unlock()

	if _, ok := s.nodeByRoot[root]; ok {
		return nil
	}

	n := &Node{
		slot:           slot,
		root:           root,
		justifiedEpoch: justifiedEpoch,
		finalizedEpoch: finalizedEpoch,
	}

	if parent, ok := s.nodeByRoot[parentRoot]; ok {
		n.parent = parent
		parent.children = append(parent.children, n)
	} else if s.treeRootNode == nil {
		s.treeRootNode = n
	} else {
		return errors.New("protoarray: unknown parent root")
	}

	s.nodeByRoot[root] = n
	return nil
}

// applyWeightChanges adds deltas (indexed the same way as nodeByRoot's
// insertion order is irrelevant here — deltas are keyed by root) to
// each node's weight, then propagates every node's weight up to its
// ancestors and recomputes bestChild/bestDescendant pointers
// root-to-leaf.
func (s *Store) applyWeightChanges(deltas map[[32]byte]int64) error {
	s.nodesLock.Lock()
	defer s.nodesLock.Unlock()

	for root, delta := range deltas {
		n, ok := s.nodeByRoot[root]
		if !ok {
			continue
		}
		n.weight = addDelta(n.weight, delta)
	}

	// Propagate from every leaf-most node upward is unnecessary if we
	// instead walk parents after children have already been
	// weight-adjusted: accumulate each node's own weight into its
	// parent's subtree weight by a single pass over every node sorted
	// deepest-first. Since node count is small relative to block
	// production rate, a simple fixed-point relaxation is used instead
	// of a topological sort.
	changed := true
	totals := make(map[[32]byte]uint64, len(s.nodeByRoot))
	for root, n := range s.nodeByRoot {
		totals[root] = n.weight
	}
	for changed {
		changed = false
		for root, n := range s.nodeByRoot {
			if n.parent == nil {
				continue
			}
			sum := n.weight
			for _, c := range n.children {
				sum += totals[c.root]
			}
			if totals[root] != sum {
				totals[root] = sum
				changed = true
			}
		}
	}
	if s.treeRootNode != nil {
		updateBestDescendant(s.treeRootNode, totals, s.justifiedEpoch, s.finalizedEpoch)
	}
	return nil
}

func addDelta(weight uint64, delta int64) uint64 {
	if delta < 0 {
		d := uint64(-delta)
		if d > weight {
			return 0
		}
		return weight - d
	}
	return weight + uint64(delta)
}

// updateBestDescendant recomputes bestChild/bestDescendant for every
// node in the subtree rooted at n, given each node's subtree weight
// total. Ties between equally-weighted children are broken by root
// bytes, lexicographically greatest wins, matching protoarray's
// deterministic tiebreak.
func updateBestDescendant(n *Node, totals map[[32]byte]uint64, justifiedEpoch, finalizedEpoch primitives.Epoch) {
	for _, c := range n.children {
		updateBestDescendant(c, totals, justifiedEpoch, finalizedEpoch)
	}

	var best *Node
	var bestTotal uint64
	for _, c := range n.children {
		if !c.votingAllowed(justifiedEpoch, finalizedEpoch) {
			continue
		}
		total := totals[c.root]
		if best == nil || total > bestTotal || (total == bestTotal && greaterRoot(c.root, best.root)) {
			best = c
			bestTotal = total
		}
	}
	n.bestChild = best
	if best == nil {
		n.bestDescendant = n
	} else if best.bestDescendant != nil {
		n.bestDescendant = best.bestDescendant
	} else {
		n.bestDescendant = best
	}
}

func greaterRoot(a, b [32]byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}

// head walks from the tree root via bestChild pointers to return the
// current head block root.
func (s *Store) head() ([32]byte, error) {
	s.nodesLock.RLock()
	defer s.nodesLock.RUnlock()

	if s.treeRootNode == nil {
		return [32]byte{}, errors.New("protoarray: store has no blocks")
	}
	if s.treeRootNode.bestDescendant != nil {
		return s.treeRootNode.bestDescendant.root, nil
	}
	return s.treeRootNode.root, nil
}

// prune discards every node outside the subtree rooted at
// finalizedRoot, once the store has grown past its prune threshold,
// bounding memory as finalization advances.
func (s *Store) prune(finalizedRoot [32]byte) error {
	s.nodesLock.Lock()
	defer s.nodesLock.Unlock()

	if uint64(len(s.nodeByRoot)) < s.pruneThreshold {
		return nil
	}
	newRoot, ok := s.nodeByRoot[finalizedRoot]
	if !ok {
		return errors.New("protoarray: finalized root not in store")
	}
	keep := make(map[[32]byte]*Node)
	var collect func(*Node)
	collect = func(n *Node) {
		keep[n.root] = n
		for _, c := range n.children {
			collect(c)
		}
	}
	collect(newRoot)
	newRoot.parent = nil
	s.treeRootNode = newRoot
	s.nodeByRoot = keep
	return nil
}
