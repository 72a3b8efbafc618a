package blocks

import (
	"github.com/pkg/errors"
	"github.com/strata-network/beacon/config/params"
	"github.com/strata-network/beacon/consensus-types/types"
	"github.com/strata-network/beacon/core/signing"
	"github.com/strata-network/beacon/core/validators"
)

// ProcessProposerSlashings slashes every proposer double-signed against
// in slashings.
func ProcessProposerSlashings(state *types.BeaconState, slashings []*types.ProposerSlashing, proposerIndex uint64, verifier *signing.Verifier, forkVersion [4]byte) (*types.BeaconState, error) {
	if uint64(len(slashings)) > params.BeaconConfig().MaxProposerSlashings {
		return nil, ErrTooManyOperations
	}
	next := state.Copy()
	for _, ps := range slashings {
		if err := processProposerSlashing(next, ps, proposerIndex, verifier, forkVersion); err != nil {
			return nil, err
		}
	}
	return next, nil
}

func processProposerSlashing(state *types.BeaconState, ps *types.ProposerSlashing, proposerIndex uint64, verifier *signing.Verifier, forkVersion [4]byte) error {
	h1, h2 := ps.Header1.Header, ps.Header2.Header
	if h1.Slot != h2.Slot {
		return errors.New("blocks: proposer slashing headers have different slots")
	}
	if h1.ProposerIndex != h2.ProposerIndex {
		return errors.New("blocks: proposer slashing headers have different proposers")
	}
	if h1.BodyRoot == h2.BodyRoot {
		return errors.New("blocks: proposer slashing headers are identical")
	}

	index := h1.ProposerIndex
	if index >= uint64(len(state.Validators)) {
		return errors.Errorf("blocks: proposer index %d out of range", index)
	}
	currentEpoch := state.Slot.ToEpoch()
	if !state.Validators[index].IsSlashable(currentEpoch) {
		return ErrSlashingHadNoEffect
	}

	cfg := params.BeaconConfig()
	pubkey := state.Validators[index].PublicKey
	if err := verifier.VerifyObjectSignature(&h1, pubkey, ps.Header1.Signature, cfg.DomainBeaconProposer, forkVersion); err != nil {
		return errors.Wrap(err, "blocks: proposer slashing header 1 signature")
	}
	if err := verifier.VerifyObjectSignature(&h2, pubkey, ps.Header2.Signature, cfg.DomainBeaconProposer, forkVersion); err != nil {
		return errors.Wrap(err, "blocks: proposer slashing header 2 signature")
	}

	// The whistleblower is the reporting proposer in the phase-0
	// design: there is no separate whistleblower index for a
	// ProposerSlashing.
	return validators.SlashValidator(state, index, currentEpoch, proposerIndex, proposerIndex)
}
