package types

import (
	ssz "github.com/ferranbt/fastssz"
	"github.com/prysmaticlabs/go-bitfield"
	"github.com/strata-network/beacon/consensus-types/primitives"
)

// AttestationData binds (slot, committee_index, beacon_block_root,
// source, target).
type AttestationData struct {
	Slot            primitives.Slot
	CommitteeIndex  uint64
	BeaconBlockRoot [32]byte
	Source          Checkpoint
	Target          Checkpoint
}

// Equal reports whether two AttestationData values are byte-identical.
func (a *AttestationData) Equal(b *AttestationData) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Slot == b.Slot && a.CommitteeIndex == b.CommitteeIndex &&
		a.BeaconBlockRoot == b.BeaconBlockRoot &&
		a.Source.Equal(&b.Source) && a.Target.Equal(&b.Target)
}

// Copy returns a value copy of a.
func (a *AttestationData) Copy() *AttestationData {
	if a == nil {
		return nil
	}
	cpy := *a
	return &cpy
}

// HashTreeRoot computes the Merkle root of a.
func (a *AttestationData) HashTreeRoot() ([32]byte, error) {
	return ssz.HashWithDefaultHasher(a)
}

// HashTreeRootWith fills hh with a's five fields.
func (a *AttestationData) HashTreeRootWith(hh *ssz.Hasher) error {
	indx := hh.Index()
	hh.PutUint64(uint64(a.Slot))
	hh.PutUint64(a.CommitteeIndex)
	hh.PutBytes(a.BeaconBlockRoot[:])
	if err := a.Source.HashTreeRootWith(hh); err != nil {
		return err
	}
	if err := a.Target.HashTreeRootWith(hh); err != nil {
		return err
	}
	hh.Merkleize(indx)
	return nil
}

// Attestation is the wire/block-body form: AttestationData plus the
// committee-relative aggregation bitlist and the aggregate signature.
type Attestation struct {
	AggregationBits bitfield.Bitlist
	Data            AttestationData
	Signature       [96]byte
}

// PendingAttestation is the form stored inside BeaconState once an
// Attestation has passed core/blocks processing.
type PendingAttestation struct {
	AggregationBits bitfield.Bitlist
	Data            AttestationData
	InclusionDelay  primitives.Slot
	ProposerIndex   uint64
}

// Copy returns a value copy of p, including an independent copy of the
// aggregation bitlist (callers must never alias a stored
// PendingAttestation's bitlist).
func (p *PendingAttestation) Copy() *PendingAttestation {
	if p == nil {
		return nil
	}
	cpy := *p
	cpy.Data = *p.Data.Copy()
	cpy.AggregationBits = append(bitfield.Bitlist{}, p.AggregationBits...)
	return &cpy
}

// IndexedAttestation expands an Attestation's aggregation bits into a
// sorted, deduplicated list of attesting validator indices plus one
// aggregate signature.
type IndexedAttestation struct {
	AttestingIndices []uint64
	Data             AttestationData
	Signature        [96]byte
}

// HashTreeRoot computes the Merkle root of i.
func (i *IndexedAttestation) HashTreeRoot() ([32]byte, error) {
	return ssz.HashWithDefaultHasher(i)
}

// HashTreeRootWith fills hh with i's three fields. AttestingIndices is
// merkleized as a list with mix-in length, per SSZ's variable-size-list
// rule.
func (i *IndexedAttestation) HashTreeRootWith(hh *ssz.Hasher) error {
	indx := hh.Index()

	listIndx := hh.Index()
	for _, idx := range i.AttestingIndices {
		hh.AppendUint64(idx)
	}
	hh.FillUpTo32()
	hh.MerkleizeWithMixin(listIndx, uint64(len(i.AttestingIndices)), 2048)

	if err := i.Data.HashTreeRootWith(hh); err != nil {
		return err
	}
	hh.PutBytes(i.Signature[:])
	hh.Merkleize(indx)
	return nil
}
