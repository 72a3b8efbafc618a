package types

import (
	"testing"

	"github.com/strata-network/beacon/consensus-types/primitives"
	"github.com/stretchr/testify/require"
)

func sampleState() *BeaconState {
	return &BeaconState{
		GenesisTime: 100,
		Slot:        7,
		Validators: []*Validator{{
			EffectiveBalance:  32_000_000_000,
			ExitEpoch:         primitives.Epoch(1<<64 - 1),
			WithdrawableEpoch: primitives.Epoch(1<<64 - 1),
		}},
		Balances:         []uint64{32_000_000_000},
		BlockRoots:       make([][32]byte, 8),
		StateRoots:       make([][32]byte, 8),
		RandaoMixes:      make([][32]byte, 8),
		ActiveIndexRoots: make([][32]byte, 8),
		Slashings:        make([]uint64, 8),
		Eth1DataVotes:    []*Eth1Data{{DepositCount: 3}},
		CurrentEpochAttestations: []*PendingAttestation{{
			AggregationBits: []byte{0b101, 0b1},
			InclusionDelay:  1,
		}},
	}
}

// Copy must be deep: no mutation of the copy may be observable through
// the original (the copy-on-write contract every processor relies on).
func TestBeaconStateCopy_IsDeep(t *testing.T) {
	s := sampleState()
	c := s.Copy()

	c.Slot = 99
	c.Validators[0].Slashed = true
	c.Balances[0] = 1
	c.BlockRoots[0][0] = 0xff
	c.Slashings[2] = 42
	c.Eth1DataVotes[0].DepositCount = 9
	c.CurrentEpochAttestations[0].InclusionDelay = 55

	require.Equal(t, primitives.Slot(7), s.Slot)
	require.False(t, s.Validators[0].Slashed)
	require.Equal(t, uint64(32_000_000_000), s.Balances[0])
	require.Equal(t, byte(0), s.BlockRoots[0][0])
	require.Equal(t, uint64(0), s.Slashings[2])
	require.Equal(t, uint64(3), s.Eth1DataVotes[0].DepositCount)
	require.Equal(t, primitives.Slot(1), s.CurrentEpochAttestations[0].InclusionDelay)
}

// hash_tree_root is a function: identical values root identically, and
// any field change moves the root.
func TestBeaconStateHashTreeRoot_Deterministic(t *testing.T) {
	a := sampleState()
	b := sampleState()

	ra, err := a.HashTreeRoot()
	require.NoError(t, err)
	rb, err := b.HashTreeRoot()
	require.NoError(t, err)
	require.Equal(t, ra, rb)

	b.Balances[0]++
	rb2, err := b.HashTreeRoot()
	require.NoError(t, err)
	require.NotEqual(t, ra, rb2)
}

func TestBeaconStateCopy_RootMatchesOriginal(t *testing.T) {
	s := sampleState()
	c := s.Copy()

	rs, err := s.HashTreeRoot()
	require.NoError(t, err)
	rc, err := c.HashTreeRoot()
	require.NoError(t, err)
	require.Equal(t, rs, rc)
}

func TestActiveValidatorIndices(t *testing.T) {
	far := primitives.Epoch(1<<64 - 1)
	s := &BeaconState{Validators: []*Validator{
		{ActivationEpoch: 0, ExitEpoch: far},
		{ActivationEpoch: 5, ExitEpoch: far},
		{ActivationEpoch: 0, ExitEpoch: 3},
	}}

	require.Equal(t, []uint64{0}, s.ActiveValidatorIndices(3))
	require.Equal(t, []uint64{0, 1}, s.ActiveValidatorIndices(5))
}

func TestValidatorSSZRoundTrip(t *testing.T) {
	v := &Validator{
		EffectiveBalance:           31_000_000_000,
		Slashed:                    true,
		ActivationEligibilityEpoch: 1,
		ActivationEpoch:            2,
		ExitEpoch:                  3,
		WithdrawableEpoch:          4,
	}
	v.PublicKey[0] = 0xab
	v.WithdrawalCredentials[31] = 0xcd

	enc, err := v.MarshalSSZ()
	require.NoError(t, err)
	require.Len(t, enc, v.SizeSSZ())

	var out Validator
	require.NoError(t, out.UnmarshalSSZ(enc))
	require.Equal(t, *v, out)
}
