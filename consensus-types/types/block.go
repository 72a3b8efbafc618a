package types

import (
	ssz "github.com/ferranbt/fastssz"
	"github.com/strata-network/beacon/consensus-types/primitives"
)

// BeaconBlockBody carries the five operation lists plus randao/eth1
// input.
type BeaconBlockBody struct {
	RandaoReveal      [96]byte
	Eth1Data          Eth1Data
	ProposerSlashings []*ProposerSlashing
	AttesterSlashings []*AttesterSlashing
	Attestations      []*Attestation
	Deposits          []*Deposit
	VoluntaryExits    []*SignedVoluntaryExit
	Transfers         []*Transfer
}

// HashTreeRoot computes the Merkle root of b. Every operation list is
// rooted by a field-by-field hasher walk over its elements followed by
// a mix-in of the list length; this keeps the container's sub-root
// count fixed at eight regardless of each list's contents, which is
// what the outer Merkleize(indx) call needs.
func (b *BeaconBlockBody) HashTreeRoot() ([32]byte, error) {
	return ssz.HashWithDefaultHasher(b)
}

// HashTreeRootWith fills hh with b's eight fields.
func (b *BeaconBlockBody) HashTreeRootWith(hh *ssz.Hasher) error {
	indx := hh.Index()

	hh.PutBytes(b.RandaoReveal[:])
	if err := b.Eth1Data.HashTreeRootWith(hh); err != nil {
		return err
	}

	slashingsIndx := hh.Index()
	for _, ps := range b.ProposerSlashings {
		sub := hh.Index()
		if err := ps.Header1.Header.HashTreeRootWith(hh); err != nil {
			return err
		}
		hh.PutBytes(ps.Header1.Signature[:])
		if err := ps.Header2.Header.HashTreeRootWith(hh); err != nil {
			return err
		}
		hh.PutBytes(ps.Header2.Signature[:])
		hh.Merkleize(sub)
	}
	hh.MerkleizeWithMixin(slashingsIndx, uint64(len(b.ProposerSlashings)), 16)

	attSlashIndx := hh.Index()
	for _, as := range b.AttesterSlashings {
		sub := hh.Index()
		if err := as.Attestation1.HashTreeRootWith(hh); err != nil {
			return err
		}
		if err := as.Attestation2.HashTreeRootWith(hh); err != nil {
			return err
		}
		hh.Merkleize(sub)
	}
	hh.MerkleizeWithMixin(attSlashIndx, uint64(len(b.AttesterSlashings)), 2)

	attIndx := hh.Index()
	for _, a := range b.Attestations {
		sub := hh.Index()
		hh.PutBitlist(a.AggregationBits, 2048)
		if err := a.Data.HashTreeRootWith(hh); err != nil {
			return err
		}
		hh.PutBytes(a.Signature[:])
		hh.Merkleize(sub)
	}
	hh.MerkleizeWithMixin(attIndx, uint64(len(b.Attestations)), 128)

	depIndx := hh.Index()
	for _, d := range b.Deposits {
		sub := hh.Index()
		proofIndx := hh.Index()
		for _, p := range d.Proof {
			hh.PutBytes(p[:])
		}
		hh.Merkleize(proofIndx)
		if err := d.Data.HashTreeRootWith(hh); err != nil {
			return err
		}
		hh.Merkleize(sub)
	}
	hh.MerkleizeWithMixin(depIndx, uint64(len(b.Deposits)), 16)

	exitIndx := hh.Index()
	for _, ve := range b.VoluntaryExits {
		sub := hh.Index()
		if err := ve.Exit.HashTreeRootWith(hh); err != nil {
			return err
		}
		hh.PutBytes(ve.Signature[:])
		hh.Merkleize(sub)
	}
	hh.MerkleizeWithMixin(exitIndx, uint64(len(b.VoluntaryExits)), 16)

	transferIndx := hh.Index()
	for _, tr := range b.Transfers {
		sub := hh.Index()
		hh.PutUint64(tr.Sender)
		hh.PutUint64(tr.Recipient)
		hh.PutUint64(tr.Amount)
		hh.PutUint64(tr.Fee)
		hh.PutUint64(uint64(tr.Slot))
		hh.PutBytes(tr.PublicKey[:])
		hh.PutBytes(tr.Signature[:])
		hh.Merkleize(sub)
	}
	hh.MerkleizeWithMixin(transferIndx, uint64(len(b.Transfers)), 16)

	hh.Merkleize(indx)
	return nil
}

// BeaconBlock is (slot, proposer_index, parent_root, state_root, body);
// the proposer's signature is carried by SignedBeaconBlock.
type BeaconBlock struct {
	Slot          primitives.Slot
	ProposerIndex uint64
	ParentRoot    [32]byte
	StateRoot     [32]byte
	Body          BeaconBlockBody
}

// SignedBeaconBlock pairs a BeaconBlock with its DOMAIN_BEACON_PROPOSER signature.
type SignedBeaconBlock struct {
	Block     BeaconBlock
	Signature [96]byte
}

// HashTreeRoot computes the Merkle root of b.
func (b *BeaconBlock) HashTreeRoot() ([32]byte, error) {
	return ssz.HashWithDefaultHasher(b)
}

// HashTreeRootWith fills hh with b's five fields.
func (b *BeaconBlock) HashTreeRootWith(hh *ssz.Hasher) error {
	indx := hh.Index()
	hh.PutUint64(uint64(b.Slot))
	hh.PutUint64(b.ProposerIndex)
	hh.PutBytes(b.ParentRoot[:])
	hh.PutBytes(b.StateRoot[:])
	if err := b.Body.HashTreeRootWith(hh); err != nil {
		return err
	}
	hh.Merkleize(indx)
	return nil
}

// Header returns the compact BeaconBlockHeader form of b, with
// BodyRoot filled from b.Body's hash-tree-root. StateRoot in the
// returned header is copied verbatim from b; no zero-filling is done
// here.
func (b *BeaconBlock) Header() (*BeaconBlockHeader, error) {
	bodyRoot, err := b.Body.HashTreeRoot()
	if err != nil {
		return nil, err
	}
	return &BeaconBlockHeader{
		Slot:          uint64(b.Slot),
		ProposerIndex: b.ProposerIndex,
		ParentRoot:    b.ParentRoot,
		StateRoot:     b.StateRoot,
		BodyRoot:      bodyRoot,
	}, nil
}
