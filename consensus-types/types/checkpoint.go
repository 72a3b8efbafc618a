package types

import (
	ssz "github.com/ferranbt/fastssz"
	"github.com/strata-network/beacon/consensus-types/primitives"
)

// Checkpoint is an (epoch, block_root) pair, the unit of Casper FFG
// votes.
type Checkpoint struct {
	Epoch primitives.Epoch
	Root  [32]byte
}

// Equal reports whether c and other denote the same checkpoint.
func (c *Checkpoint) Equal(other *Checkpoint) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.Epoch == other.Epoch && c.Root == other.Root
}

// Copy returns a value copy; callers must never mutate a Checkpoint
// reachable from a stored BeaconState in place.
func (c *Checkpoint) Copy() *Checkpoint {
	if c == nil {
		return nil
	}
	cpy := *c
	return &cpy
}

// MarshalSSZTo appends the SSZ encoding of c to dst.
func (c *Checkpoint) MarshalSSZTo(dst []byte) ([]byte, error) {
	buf := make([]byte, 8)
	putUint64(buf, uint64(c.Epoch))
	dst = append(dst, buf...)
	dst = append(dst, c.Root[:]...)
	return dst, nil
}

// MarshalSSZ returns the SSZ encoding of c.
func (c *Checkpoint) MarshalSSZ() ([]byte, error) {
	return c.MarshalSSZTo(nil)
}

// SizeSSZ returns the fixed SSZ size of Checkpoint (40 bytes).
func (c *Checkpoint) SizeSSZ() int { return 40 }

// UnmarshalSSZ decodes buf into c.
func (c *Checkpoint) UnmarshalSSZ(buf []byte) error {
	if len(buf) != 40 {
		return errInvalidLength("Checkpoint", 40, len(buf))
	}
	c.Epoch = primitives.Epoch(getUint64(buf[0:8]))
	copy(c.Root[:], buf[8:40])
	return nil
}

// HashTreeRoot computes the Merkle root of c.
func (c *Checkpoint) HashTreeRoot() ([32]byte, error) {
	return ssz.HashWithDefaultHasher(c)
}

// HashTreeRootWith fills hh with c's two leaves (epoch, root).
func (c *Checkpoint) HashTreeRootWith(hh *ssz.Hasher) error {
	indx := hh.Index()
	hh.PutUint64(uint64(c.Epoch))
	hh.PutBytes(c.Root[:])
	hh.Merkleize(indx)
	return nil
}
