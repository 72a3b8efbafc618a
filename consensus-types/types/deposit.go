package types

import (
	ssz "github.com/ferranbt/fastssz"
	"github.com/strata-network/beacon/consensus-types/primitives"
)

// DepositData is the leaf value committed to by the deposit contract's
// Merkle log, treated here as an external append-only log.
type DepositData struct {
	PublicKey             [48]byte
	WithdrawalCredentials [32]byte
	Amount                uint64
	Signature             [96]byte
}

// HashTreeRoot computes the Merkle root of d.
func (d *DepositData) HashTreeRoot() ([32]byte, error) {
	return ssz.HashWithDefaultHasher(d)
}

// HashTreeRootWith fills hh with d's four fields.
func (d *DepositData) HashTreeRootWith(hh *ssz.Hasher) error {
	indx := hh.Index()
	hh.PutBytes(d.PublicKey[:])
	hh.PutBytes(d.WithdrawalCredentials[:])
	hh.PutUint64(d.Amount)
	hh.PutBytes(d.Signature[:])
	hh.Merkleize(indx)
	return nil
}

// SigningRoot returns the root of DepositData with Signature zeroed,
// the message signed by the deposit's own proof-of-possession.
func (d *DepositData) SigningRoot() ([32]byte, error) {
	msg := &DepositData{PublicKey: d.PublicKey, WithdrawalCredentials: d.WithdrawalCredentials, Amount: d.Amount}
	return msg.HashTreeRoot()
}

// Deposit carries a DepositData plus the Merkle branch proving its
// inclusion at a specific index in the deposit contract's tree (spec
// section 4.3, depth DEPOSIT_CONTRACT_TREE_DEPTH+1 including the
// mixed-in deposit count).
type Deposit struct {
	Proof [][32]byte
	Data  DepositData
}

// VoluntaryExit signals a validator's intent to leave the active set.
type VoluntaryExit struct {
	Epoch          primitives.Epoch
	ValidatorIndex uint64
}

// HashTreeRoot computes the Merkle root of v.
func (v *VoluntaryExit) HashTreeRoot() ([32]byte, error) {
	return ssz.HashWithDefaultHasher(v)
}

// HashTreeRootWith fills hh with v's two fields.
func (v *VoluntaryExit) HashTreeRootWith(hh *ssz.Hasher) error {
	indx := hh.Index()
	hh.PutUint64(uint64(v.Epoch))
	hh.PutUint64(v.ValidatorIndex)
	hh.Merkleize(indx)
	return nil
}

// SignedVoluntaryExit pairs a VoluntaryExit with its DOMAIN_VOLUNTARY_EXIT signature.
type SignedVoluntaryExit struct {
	Exit      VoluntaryExit
	Signature [96]byte
}

// SignedBeaconBlockHeader pairs a BeaconBlockHeader with its
// DOMAIN_BEACON_PROPOSER signature; two of these with the same slot
// and proposer but different roots constitute a proposer slashing.
type SignedBeaconBlockHeader struct {
	Header    BeaconBlockHeader
	Signature [96]byte
}

// ProposerSlashing proves double-proposal by a single proposer.
type ProposerSlashing struct {
	Header1 SignedBeaconBlockHeader
	Header2 SignedBeaconBlockHeader
}

// AttesterSlashing proves a double-vote or surround-vote via two
// IndexedAttestations.
type AttesterSlashing struct {
	Attestation1 IndexedAttestation
	Attestation2 IndexedAttestation
}

// Transfer moves a balance between two validators' withdrawal
// credentials outside the deposit/exit lifecycle; gated behind
// MAX_TRANSFERS > 0, which mainnet sets to zero.
type Transfer struct {
	Sender    uint64
	Recipient uint64
	Amount    uint64
	Fee       uint64
	Slot      primitives.Slot
	PublicKey [48]byte
	Signature [96]byte
}

// HashTreeRoot computes the Merkle root of t, used as the signed
// message for its own signature.
func (t *Transfer) HashTreeRoot() ([32]byte, error) {
	return ssz.HashWithDefaultHasher(t)
}

// HashTreeRootWith fills hh with t's six non-signature fields.
func (t *Transfer) HashTreeRootWith(hh *ssz.Hasher) error {
	indx := hh.Index()
	hh.PutUint64(t.Sender)
	hh.PutUint64(t.Recipient)
	hh.PutUint64(t.Amount)
	hh.PutUint64(t.Fee)
	hh.PutUint64(uint64(t.Slot))
	hh.PutBytes(t.PublicKey[:])
	hh.Merkleize(indx)
	return nil
}
