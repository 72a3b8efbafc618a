package blocks

import (
	"github.com/pkg/errors"
	"github.com/strata-network/beacon/config/params"
	"github.com/strata-network/beacon/consensus-types/primitives"
	"github.com/strata-network/beacon/consensus-types/types"
	"github.com/strata-network/beacon/core/signing"
	"github.com/strata-network/beacon/core/validators"
)

// ProcessVoluntaryExits queues every validator named in exits for
// exit.
func ProcessVoluntaryExits(state *types.BeaconState, exits []*types.SignedVoluntaryExit, verifier *signing.Verifier, forkVersion [4]byte) (*types.BeaconState, error) {
	if uint64(len(exits)) > params.BeaconConfig().MaxVoluntaryExits {
		return nil, ErrTooManyOperations
	}
	next := state.Copy()
	for _, e := range exits {
		if err := processVoluntaryExit(next, e, verifier, forkVersion); err != nil {
			return nil, err
		}
	}
	return next, nil
}

func processVoluntaryExit(state *types.BeaconState, e *types.SignedVoluntaryExit, verifier *signing.Verifier, forkVersion [4]byte) error {
	cfg := params.BeaconConfig()
	index := e.Exit.ValidatorIndex
	if index >= uint64(len(state.Validators)) {
		return errors.Errorf("blocks: validator index %d out of range", index)
	}
	v := state.Validators[index]
	currentEpoch := state.Slot.ToEpoch()

	if !v.IsActive(currentEpoch) {
		return errors.New("blocks: voluntary exit from an inactive validator")
	}
	if v.ExitEpoch != primitives.FarFutureEpoch() {
		return errors.New("blocks: validator already exiting")
	}
	if currentEpoch < e.Exit.Epoch {
		return errors.New("blocks: voluntary exit not yet valid")
	}
	minActiveEpoch := v.ActivationEpoch + primitives.Epoch(cfg.PersistentCommitteePeriod)
	if currentEpoch < minActiveEpoch {
		return errors.New("blocks: validator has not served minimum active duration")
	}

	if err := verifier.VerifyObjectSignature(&e.Exit, v.PublicKey, e.Signature, cfg.DomainVoluntaryExit, forkVersion); err != nil {
		return errors.Wrap(err, "blocks: voluntary exit signature")
	}

	return validators.InitiateValidatorExit(state, index, currentEpoch)
}
