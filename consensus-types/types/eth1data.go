package types

import ssz "github.com/ferranbt/fastssz"

// Eth1Data is the Eth1 voting input (deposit root/count, block hash)
// fed into the state per block; the deposit contract itself is an
// external collaborator.
type Eth1Data struct {
	DepositRoot  [32]byte
	DepositCount uint64
	BlockHash    [32]byte
}

// Copy returns a value copy of e.
func (e *Eth1Data) Copy() *Eth1Data {
	if e == nil {
		return nil
	}
	cpy := *e
	return &cpy
}

// Equal reports whether two Eth1Data votes are identical.
func (e *Eth1Data) Equal(o *Eth1Data) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.DepositRoot == o.DepositRoot && e.DepositCount == o.DepositCount && e.BlockHash == o.BlockHash
}

// HashTreeRoot computes the Merkle root of e.
func (e *Eth1Data) HashTreeRoot() ([32]byte, error) {
	return ssz.HashWithDefaultHasher(e)
}

// HashTreeRootWith fills hh with e's three fields.
func (e *Eth1Data) HashTreeRootWith(hh *ssz.Hasher) error {
	indx := hh.Index()
	hh.PutBytes(e.DepositRoot[:])
	hh.PutUint64(e.DepositCount)
	hh.PutBytes(e.BlockHash[:])
	hh.Merkleize(indx)
	return nil
}

// BeaconBlockHeader is the compact block envelope stored in
// state.latest_block_header.
type BeaconBlockHeader struct {
	Slot          uint64
	ProposerIndex uint64
	ParentRoot    [32]byte
	StateRoot     [32]byte
	BodyRoot      [32]byte
}

// Copy returns a value copy of h.
func (h *BeaconBlockHeader) Copy() *BeaconBlockHeader {
	if h == nil {
		return nil
	}
	cpy := *h
	return &cpy
}

// HashTreeRoot computes the Merkle root of h.
func (h *BeaconBlockHeader) HashTreeRoot() ([32]byte, error) {
	return ssz.HashWithDefaultHasher(h)
}

// HashTreeRootWith fills hh with h's five fields.
func (h *BeaconBlockHeader) HashTreeRootWith(hh *ssz.Hasher) error {
	indx := hh.Index()
	hh.PutUint64(h.Slot)
	hh.PutUint64(h.ProposerIndex)
	hh.PutBytes(h.ParentRoot[:])
	hh.PutBytes(h.StateRoot[:])
	hh.PutBytes(h.BodyRoot[:])
	hh.Merkleize(indx)
	return nil
}
