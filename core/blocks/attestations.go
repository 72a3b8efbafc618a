package blocks

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/strata-network/beacon/config/params"
	"github.com/strata-network/beacon/consensus-types/primitives"
	"github.com/strata-network/beacon/consensus-types/types"
	"github.com/strata-network/beacon/core/helpers"
	"github.com/strata-network/beacon/core/signing"
)

// ProcessAttestations validates and applies every attestation in atts
// against state, returning a new state. Each attestation is validated
// against the state independently of the others and appended to a
// PendingAttestation list in the order given.
func ProcessAttestations(state *types.BeaconState, atts []*types.Attestation, proposerIndex uint64, verifier *signing.Verifier, forkVersion [4]byte) (*types.BeaconState, error) {
	if uint64(len(atts)) > params.BeaconConfig().MaxAttestations {
		return nil, ErrTooManyOperations
	}
	next := state.Copy()
	for _, att := range atts {
		if err := processAttestation(next, att, proposerIndex, verifier, forkVersion); err != nil {
			return nil, err
		}
	}
	return next, nil
}

func processAttestation(state *types.BeaconState, att *types.Attestation, proposerIndex uint64, verifier *signing.Verifier, forkVersion [4]byte) error {
	data := att.Data
	cfg := params.BeaconConfig()

	committee, err := helpers.BeaconCommittee(state, data.Slot, data.CommitteeIndex)
	if err != nil {
		if errors.Is(err, helpers.ErrNoActiveValidators) {
			return err
		}
		return ErrInvalidCommitteeIndex
	}

	currentEpoch := state.Slot.ToEpoch()
	previousEpoch := previousEpoch(currentEpoch)
	if data.Target.Epoch != currentEpoch && data.Target.Epoch != previousEpoch {
		return ErrWrongTargetEpoch
	}

	minInclusion := data.Slot + primitives.Slot(cfg.MinAttestationInclusionDelay)
	maxInclusion := data.Slot + primitives.Slot(cfg.SlotsPerEpoch)
	if state.Slot < minInclusion || state.Slot > maxInclusion {
		return ErrInclusionWindow
	}

	if data.Target.Epoch == currentEpoch {
		if !data.Source.Equal(&state.CurrentJustifiedCheckpoint) {
			return ErrWrongSource
		}
	} else {
		if !data.Source.Equal(&state.PreviousJustifiedCheckpoint) {
			return ErrWrongSource
		}
	}

	if uint64(att.AggregationBits.Len()) != uint64(len(committee)) {
		return ErrBitlistLength
	}

	indexed, pubkeys, err := IndexedAttestationFromCommittee(state, att, committee)
	if err != nil {
		return err
	}
	if err := verifier.VerifyIndexedAttestationSignature(indexed, pubkeys, cfg.DomainBeaconAttester, forkVersion); err != nil {
		return err
	}

	pending := &types.PendingAttestation{
		AggregationBits: att.AggregationBits,
		Data:            data,
		InclusionDelay:  state.Slot - data.Slot,
		ProposerIndex:   proposerIndex,
	}
	if data.Target.Epoch == currentEpoch {
		state.CurrentEpochAttestations = append(state.CurrentEpochAttestations, pending)
	} else {
		state.PreviousEpochAttestations = append(state.PreviousEpochAttestations, pending)
	}
	return nil
}

func previousEpoch(current primitives.Epoch) primitives.Epoch {
	if current == 0 {
		return 0
	}
	return current - 1
}

// IndexedAttestationFromCommittee expands att's aggregation bits
// against committee into a sorted, deduplicated attesting-index list
// plus a pubkey lookup for signature verification.
func IndexedAttestationFromCommittee(state *types.BeaconState, att *types.Attestation, committee []uint64) (*types.IndexedAttestation, map[uint64][48]byte, error) {
	var indices []uint64
	for i, validatorIndex := range committee {
		if att.AggregationBits.BitAt(uint64(i)) {
			indices = append(indices, validatorIndex)
		}
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	pubkeys := make(map[uint64][48]byte, len(indices))
	for _, idx := range indices {
		if idx >= uint64(len(state.Validators)) {
			return nil, nil, errors.Errorf("blocks: attesting index %d out of range", idx)
		}
		pubkeys[idx] = state.Validators[idx].PublicKey
	}

	return &types.IndexedAttestation{
		AttestingIndices: indices,
		Data:             att.Data,
		Signature:        att.Signature,
	}, pubkeys, nil
}
