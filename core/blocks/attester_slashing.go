package blocks

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/strata-network/beacon/config/params"
	"github.com/strata-network/beacon/consensus-types/types"
	"github.com/strata-network/beacon/core/signing"
	"github.com/strata-network/beacon/core/validators"
)

// ProcessAttesterSlashings slashes every validator proven doubly- or
// surround-voting by slashings.
func ProcessAttesterSlashings(state *types.BeaconState, slashings []*types.AttesterSlashing, proposerIndex uint64, verifier *signing.Verifier, forkVersion [4]byte) (*types.BeaconState, error) {
	if uint64(len(slashings)) > params.BeaconConfig().MaxAttesterSlashings {
		return nil, ErrTooManyOperations
	}
	next := state.Copy()
	for _, as := range slashings {
		if err := processAttesterSlashing(next, as, proposerIndex, verifier, forkVersion); err != nil {
			return nil, err
		}
	}
	return next, nil
}

func processAttesterSlashing(state *types.BeaconState, as *types.AttesterSlashing, proposerIndex uint64, verifier *signing.Verifier, forkVersion [4]byte) error {
	a1, a2 := &as.Attestation1, &as.Attestation2
	if !isSlashableAttestationPair(&a1.Data, &a2.Data) {
		return errors.New("blocks: attestation pair is not slashable")
	}
	if !validAttestingIndices(a1.AttestingIndices) || !validAttestingIndices(a2.AttestingIndices) {
		return errors.New("blocks: attesting indices are not sorted, unique and bounded")
	}

	cfg := params.BeaconConfig()
	pubkeys1, err := attestingPubkeys(state, a1)
	if err != nil {
		return err
	}
	pubkeys2, err := attestingPubkeys(state, a2)
	if err != nil {
		return err
	}
	if err := verifier.VerifyIndexedAttestationSignature(a1, pubkeys1, cfg.DomainBeaconAttester, forkVersion); err != nil {
		return errors.Wrap(err, "blocks: attester slashing attestation 1 signature")
	}
	if err := verifier.VerifyIndexedAttestationSignature(a2, pubkeys2, cfg.DomainBeaconAttester, forkVersion); err != nil {
		return errors.Wrap(err, "blocks: attester slashing attestation 2 signature")
	}

	currentEpoch := state.Slot.ToEpoch()
	slashed := false
	for _, index := range intersectSorted(a1.AttestingIndices, a2.AttestingIndices) {
		if index >= uint64(len(state.Validators)) {
			return errors.Errorf("blocks: attesting index %d out of range", index)
		}
		if !state.Validators[index].IsSlashable(currentEpoch) {
			continue
		}
		if err := validators.SlashValidator(state, index, currentEpoch, proposerIndex, proposerIndex); err != nil {
			return err
		}
		slashed = true
	}
	if !slashed {
		return ErrSlashingHadNoEffect
	}
	return nil
}

// isSlashableAttestationPair reports whether a and b form a double vote
// (same target epoch, different data) or a surround vote (one's source
// and target strictly surround the other's).
func isSlashableAttestationPair(a, b *types.AttestationData) bool {
	doubleVote := a.Target.Epoch == b.Target.Epoch && !a.Equal(b)
	surroundVote := (a.Source.Epoch < b.Source.Epoch && b.Target.Epoch < a.Target.Epoch) ||
		(b.Source.Epoch < a.Source.Epoch && a.Target.Epoch < b.Target.Epoch)
	return doubleVote || surroundVote
}

// validAttestingIndices reports whether an IndexedAttestation's index
// list is well formed: non-empty, strictly ascending (sorted with no
// duplicates) and within MAX_VALIDATORS_PER_COMMITTEE. Indices that
// fail this cannot be trusted for signature aggregation or slashing.
func validAttestingIndices(indices []uint64) bool {
	if len(indices) == 0 || uint64(len(indices)) > params.BeaconConfig().MaxValidatorsPerCommittee {
		return false
	}
	for i := 1; i < len(indices); i++ {
		if indices[i-1] >= indices[i] {
			return false
		}
	}
	return true
}

func attestingPubkeys(state *types.BeaconState, att *types.IndexedAttestation) (map[uint64][48]byte, error) {
	pubkeys := make(map[uint64][48]byte, len(att.AttestingIndices))
	for _, idx := range att.AttestingIndices {
		if idx >= uint64(len(state.Validators)) {
			return nil, errors.Errorf("blocks: attesting index %d out of range", idx)
		}
		pubkeys[idx] = state.Validators[idx].PublicKey
	}
	return pubkeys, nil
}

// intersectSorted returns the sorted intersection of two sorted,
// deduplicated index lists.
func intersectSorted(a, b []uint64) []uint64 {
	set := make(map[uint64]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	var out []uint64
	for _, v := range b {
		if set[v] {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
