package genesis

import (
	"crypto/sha256"
	"encoding/binary"
)

// depositTrie is the append-only incremental Merkle tree the Eth1
// deposit contract maintains, rebuilt here so the genesis bootstrap
// path can hand each deposit the same (proof, root) pair the contract
// would have produced on-chain (verified by
// core/blocks.verifyDepositMerkleBranch). Empty siblings resolve to
// precomputed zero-subtree hashes; a bare all-zero value is only
// correct at the leaf level.
type depositTrie struct {
	depth        uint64
	depositCount uint64
	zeroHashes   [][32]byte
	nodes        []map[uint64][32]byte
}

func newDepositTrie(depth uint64) *depositTrie {
	zeroHashes := make([][32]byte, depth+1)
	for i := uint64(1); i <= depth; i++ {
		zeroHashes[i] = hashPair(zeroHashes[i-1], zeroHashes[i-1])
	}
	nodes := make([]map[uint64][32]byte, depth+1)
	for i := range nodes {
		nodes[i] = make(map[uint64][32]byte)
	}
	return &depositTrie{depth: depth, zeroHashes: zeroHashes, nodes: nodes}
}

func (d *depositTrie) get(level, idx uint64) [32]byte {
	if v, ok := d.nodes[level][idx]; ok {
		return v
	}
	return d.zeroHashes[level]
}

// insert appends leaf as the next deposit and returns its index.
func (d *depositTrie) insert(leaf [32]byte) uint64 {
	index := d.depositCount
	d.nodes[0][index] = leaf
	idx := index
	for level := uint64(0); level < d.depth; level++ {
		parentIdx := idx / 2
		left := d.get(level, parentIdx*2)
		right := d.get(level, parentIdx*2+1)
		d.nodes[level+1][parentIdx] = hashPair(left, right)
		idx = parentIdx
	}
	d.depositCount++
	return index
}

// root returns the deposit contract's get_deposit_root() value: the
// tree root with the deposit count mixed in as the final hash input.
func (d *depositTrie) root() [32]byte {
	top := d.get(d.depth, 0)
	var countBuf [32]byte
	binary.LittleEndian.PutUint64(countBuf[:8], d.depositCount)
	return hashPair(top, countBuf)
}

// proof returns the depth+1-element branch for the leaf at index: the
// sibling hash at every level up to (but not including) the root, plus
// the little-endian deposit count as the final element — the mixin
// core/blocks.verifyDepositMerkleBranch hashes in as its last step.
func (d *depositTrie) proof(index uint64) [][32]byte {
	proof := make([][32]byte, d.depth+1)
	idx := index
	for level := uint64(0); level < d.depth; level++ {
		proof[level] = d.get(level, idx^1)
		idx /= 2
	}
	var countBuf [32]byte
	binary.LittleEndian.PutUint64(countBuf[:8], d.depositCount)
	proof[d.depth] = countBuf
	return proof
}

func hashPair(a, b [32]byte) [32]byte {
	h := sha256.New()
	h.Write(a[:])
	h.Write(b[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
