package transition

import (
	"github.com/pkg/errors"
	"github.com/strata-network/beacon/config/params"
	"github.com/strata-network/beacon/consensus-types/types"
	"github.com/strata-network/beacon/core/signing"
)

// ExecuteStateTransition runs the full per-block state transition:
// advance slots up to the block's, process the block's
// header/randao/eth1-data/operations, verify the proposer's envelope
// signature (skipped when verifySignatures is false, for blocks this
// node produced itself), and always verify the resulting state root
// against what the block claims. Returns the post-state. Never
// mutates preState; every intermediate step operates on a Copy().
func ExecuteStateTransition(preState *types.BeaconState, signedBlock *types.SignedBeaconBlock, verifier *signing.Verifier, verifySignatures bool) (*types.BeaconState, error) {
	block := &signedBlock.Block

	state, err := ProcessSlots(preState, block.Slot)
	if err != nil {
		return nil, errors.Wrap(err, "transition: process slots")
	}

	if verifySignatures {
		if block.ProposerIndex >= uint64(len(state.Validators)) {
			return nil, errors.Errorf("transition: proposer index %d out of range", block.ProposerIndex)
		}
		pubkey := state.Validators[block.ProposerIndex].PublicKey
		domain := params.BeaconConfig().DomainBeaconProposer
		if err := verifier.VerifyObjectSignature(block, pubkey, signedBlock.Signature, domain, state.Fork.CurrentVersion); err != nil {
			return nil, errors.Wrap(err, "transition: block signature")
		}
	}

	if err := processBlockHeader(state, block); err != nil {
		return nil, err
	}
	if err := processRandao(state, block, verifier); err != nil {
		return nil, err
	}
	if err := processEth1Data(state, block); err != nil {
		return nil, err
	}
	state, err = processOperations(state, block, verifier)
	if err != nil {
		return nil, err
	}

	postRoot, err := state.HashTreeRoot()
	if err != nil {
		return nil, errors.Wrap(err, "transition: hash post-state")
	}
	if postRoot != block.StateRoot {
		return nil, errors.New("transition: computed state root does not match block's claimed state root")
	}

	return state, nil
}

// CalculateStateRoot returns the post-state root signedBlock would
// commit to if applied on preState, without verifying the proposer's
// envelope signature. A proposer uses this to fill in its own block's
// state-root field before signing.
func CalculateStateRoot(preState *types.BeaconState, signedBlock *types.SignedBeaconBlock, verifier *signing.Verifier) ([32]byte, error) {
	block := &signedBlock.Block

	state, err := ProcessSlots(preState, block.Slot)
	if err != nil {
		return [32]byte{}, errors.Wrap(err, "transition: process slots")
	}
	if err := processBlockHeader(state, block); err != nil {
		return [32]byte{}, err
	}
	if err := processRandao(state, block, verifier); err != nil {
		return [32]byte{}, err
	}
	if err := processEth1Data(state, block); err != nil {
		return [32]byte{}, err
	}
	state, err = processOperations(state, block, verifier)
	if err != nil {
		return [32]byte{}, err
	}
	return state.HashTreeRoot()
}
