package types

import (
	ssz "github.com/ferranbt/fastssz"
	"github.com/strata-network/beacon/consensus-types/primitives"
)

// Fork carries the previous/current fork versions and the epoch the
// current one activated at.
type Fork struct {
	PreviousVersion [4]byte
	CurrentVersion  [4]byte
	Epoch           primitives.Epoch
}

// Copy returns a value copy of f.
func (f *Fork) Copy() *Fork {
	if f == nil {
		return nil
	}
	cpy := *f
	return &cpy
}

// HashTreeRootWith fills hh with f's three fields.
func (f *Fork) HashTreeRootWith(hh *ssz.Hasher) error {
	indx := hh.Index()
	hh.PutBytes(f.PreviousVersion[:])
	hh.PutBytes(f.CurrentVersion[:])
	hh.PutUint64(uint64(f.Epoch))
	hh.Merkleize(indx)
	return nil
}

// BeaconState is the consensus-replicated object. It is a value type:
// every processor in core/blocks, core/epoch and core/transition takes
// a *BeaconState and returns a new one via Copy()+mutate, never
// mutating the caller's input.
type BeaconState struct {
	GenesisTime uint64
	Slot        primitives.Slot
	Fork        Fork

	LatestBlockHeader BeaconBlockHeader

	BlockRoots       [][32]byte
	StateRoots       [][32]byte
	HistoricalRoots  [][32]byte

	Eth1Data         Eth1Data
	Eth1DataVotes    []*Eth1Data
	Eth1DepositIndex uint64

	Validators []*Validator
	Balances   []uint64

	RandaoMixes      [][32]byte
	ActiveIndexRoots [][32]byte
	Slashings        []uint64

	PreviousEpochAttestations []*PendingAttestation
	CurrentEpochAttestations  []*PendingAttestation

	JustificationBits         uint8 // 4-bit ring, bit 0 = most recent
	PreviousJustifiedCheckpoint Checkpoint
	CurrentJustifiedCheckpoint  Checkpoint
	FinalizedCheckpoint         Checkpoint
}

// Copy returns a deep copy of s: every slice is reallocated and every
// pointed-to element is copied, so mutating the result can never be
// observed through s. This is the one primitive every operation
// processor in core/blocks and core/epoch is built on.
func (s *BeaconState) Copy() *BeaconState {
	if s == nil {
		return nil
	}
	cpy := &BeaconState{
		GenesisTime:       s.GenesisTime,
		Slot:              s.Slot,
		Fork:              s.Fork,
		LatestBlockHeader: s.LatestBlockHeader,
		Eth1Data:          s.Eth1Data,
		Eth1DepositIndex:  s.Eth1DepositIndex,
		JustificationBits: s.JustificationBits,
		PreviousJustifiedCheckpoint: s.PreviousJustifiedCheckpoint,
		CurrentJustifiedCheckpoint:  s.CurrentJustifiedCheckpoint,
		FinalizedCheckpoint:         s.FinalizedCheckpoint,
	}

	cpy.BlockRoots = copyRoots(s.BlockRoots)
	cpy.StateRoots = copyRoots(s.StateRoots)
	cpy.HistoricalRoots = copyRoots(s.HistoricalRoots)
	cpy.RandaoMixes = copyRoots(s.RandaoMixes)
	cpy.ActiveIndexRoots = copyRoots(s.ActiveIndexRoots)

	cpy.Slashings = make([]uint64, len(s.Slashings))
	copy(cpy.Slashings, s.Slashings)

	cpy.Balances = make([]uint64, len(s.Balances))
	copy(cpy.Balances, s.Balances)

	cpy.Validators = make([]*Validator, len(s.Validators))
	for i, v := range s.Validators {
		cpy.Validators[i] = v.Copy()
	}

	cpy.Eth1DataVotes = make([]*Eth1Data, len(s.Eth1DataVotes))
	for i, e := range s.Eth1DataVotes {
		cpy.Eth1DataVotes[i] = e.Copy()
	}

	cpy.PreviousEpochAttestations = copyPendingAttestations(s.PreviousEpochAttestations)
	cpy.CurrentEpochAttestations = copyPendingAttestations(s.CurrentEpochAttestations)

	return cpy
}

func copyRoots(in [][32]byte) [][32]byte {
	out := make([][32]byte, len(in))
	copy(out, in)
	return out
}

func copyPendingAttestations(in []*PendingAttestation) []*PendingAttestation {
	out := make([]*PendingAttestation, len(in))
	for i, a := range in {
		out[i] = a.Copy()
	}
	return out
}

// ActiveValidatorIndices returns, in ascending order, the index of
// every validator active at epoch.
func (s *BeaconState) ActiveValidatorIndices(epoch primitives.Epoch) []uint64 {
	indices := make([]uint64, 0, len(s.Validators))
	for i, v := range s.Validators {
		if v.IsActive(epoch) {
			indices = append(indices, uint64(i))
		}
	}
	return indices
}

// HashTreeRoot computes the Merkle root of s.
func (s *BeaconState) HashTreeRoot() ([32]byte, error) {
	return ssz.HashWithDefaultHasher(s)
}

// HashTreeRootWith fills hh with every field of s, in declaration
// order. List-typed fields mix in their length; vector-typed fields
// (block_roots, state_roots, randao_mixes, active_index_roots and
// slashings) do not, per SSZ's Vector-vs-List rule.
func (s *BeaconState) HashTreeRootWith(hh *ssz.Hasher) error {
	indx := hh.Index()

	hh.PutUint64(s.GenesisTime)
	hh.PutUint64(uint64(s.Slot))
	if err := s.Fork.HashTreeRootWith(hh); err != nil {
		return err
	}
	if err := s.LatestBlockHeader.HashTreeRootWith(hh); err != nil {
		return err
	}

	merkleizeBytesVector(hh, s.BlockRoots)
	merkleizeBytesVector(hh, s.StateRoots)

	histIndx := hh.Index()
	for _, r := range s.HistoricalRoots {
		hh.PutBytes(r[:])
	}
	hh.MerkleizeWithMixin(histIndx, uint64(len(s.HistoricalRoots)), 16777216)

	if err := s.Eth1Data.HashTreeRootWith(hh); err != nil {
		return err
	}
	votesIndx := hh.Index()
	for _, v := range s.Eth1DataVotes {
		if err := v.HashTreeRootWith(hh); err != nil {
			return err
		}
	}
	hh.MerkleizeWithMixin(votesIndx, uint64(len(s.Eth1DataVotes)), 1024)
	hh.PutUint64(s.Eth1DepositIndex)

	valIndx := hh.Index()
	for _, v := range s.Validators {
		if err := v.HashTreeRootWith(hh); err != nil {
			return err
		}
	}
	hh.MerkleizeWithMixin(valIndx, uint64(len(s.Validators)), 1099511627776)

	balIndx := hh.Index()
	for _, b := range s.Balances {
		hh.AppendUint64(b)
	}
	hh.FillUpTo32()
	hh.MerkleizeWithMixin(balIndx, uint64(len(s.Balances)), 1099511627776)

	merkleizeBytesVector(hh, s.RandaoMixes)
	merkleizeBytesVector(hh, s.ActiveIndexRoots)

	slashIndx := hh.Index()
	for _, sl := range s.Slashings {
		hh.AppendUint64(sl)
	}
	hh.FillUpTo32()
	hh.Merkleize(slashIndx)

	prevAttIndx := hh.Index()
	for _, a := range s.PreviousEpochAttestations {
		if err := hashPendingAttestation(hh, a); err != nil {
			return err
		}
	}
	hh.MerkleizeWithMixin(prevAttIndx, uint64(len(s.PreviousEpochAttestations)), 4096)

	currAttIndx := hh.Index()
	for _, a := range s.CurrentEpochAttestations {
		if err := hashPendingAttestation(hh, a); err != nil {
			return err
		}
	}
	hh.MerkleizeWithMixin(currAttIndx, uint64(len(s.CurrentEpochAttestations)), 4096)

	hh.PutUint64(uint64(s.JustificationBits))
	if err := s.PreviousJustifiedCheckpoint.HashTreeRootWith(hh); err != nil {
		return err
	}
	if err := s.CurrentJustifiedCheckpoint.HashTreeRootWith(hh); err != nil {
		return err
	}
	if err := s.FinalizedCheckpoint.HashTreeRootWith(hh); err != nil {
		return err
	}

	hh.Merkleize(indx)
	return nil
}

func hashPendingAttestation(hh *ssz.Hasher, a *PendingAttestation) error {
	sub := hh.Index()
	hh.PutBitlist(a.AggregationBits, 2048)
	if err := a.Data.HashTreeRootWith(hh); err != nil {
		return err
	}
	hh.PutUint64(uint64(a.InclusionDelay))
	hh.PutUint64(a.ProposerIndex)
	hh.Merkleize(sub)
	return nil
}
