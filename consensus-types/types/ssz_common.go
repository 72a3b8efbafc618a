package types

import (
	"encoding/binary"
	"fmt"

	ssz "github.com/ferranbt/fastssz"
)

// hashTreeRootWithable is implemented by every container type in this
// package; it lets list-of-container fields share one merkleization
// helper instead of repeating the Index/Merkleize dance per field.
type hashTreeRootWithable interface {
	HashTreeRootWith(hh *ssz.Hasher) error
}

// merkleizeContainerList writes each element's sub-root as one chunk,
// pads to the next power of two, and mixes in the list length. limit
// is the SSZ list capacity (used for the zero-padding target, not a
// runtime bound — callers enforce MAX_* caps separately).
func merkleizeContainerList(hh *ssz.Hasher, elems []hashTreeRootWithable, limit uint64) error {
	indx := hh.Index()
	for _, e := range elems {
		if err := e.HashTreeRootWith(hh); err != nil {
			return err
		}
	}
	hh.MerkleizeWithMixin(indx, uint64(len(elems)), limit)
	return nil
}

// merkleizeBytesVector writes a fixed-length vector of 32-byte roots
// (e.g. block_roots, state_roots) with no length mix-in, since a
// Vector's length is part of the type, not the value.
func merkleizeBytesVector(hh *ssz.Hasher, roots [][32]byte) {
	indx := hh.Index()
	for _, r := range roots {
		hh.PutBytes(r[:])
	}
	hh.Merkleize(indx)
}

func putUint64(dst []byte, v uint64) {
	binary.LittleEndian.PutUint64(dst, v)
}

func getUint64(src []byte) uint64 {
	return binary.LittleEndian.Uint64(src)
}

func errInvalidLength(typeName string, want, got int) error {
	return fmt.Errorf("%s: invalid SSZ length, want %d got %d", typeName, want, got)
}
