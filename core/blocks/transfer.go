package blocks

import (
	"github.com/pkg/errors"
	"github.com/strata-network/beacon/config/params"
	"github.com/strata-network/beacon/consensus-types/types"
	"github.com/strata-network/beacon/core/signing"
	"github.com/strata-network/beacon/core/validators"
)

// withdrawalCredentialsPrefix marks a BLS-derived withdrawal
// credential; a Transfer sender must have already
// changed its credentials to the BLS_WITHDRAWAL_PREFIX-derived form.
const withdrawalCredentialsPrefix = 0x00

// ProcessTransfers applies every balance transfer in transfers.
// An empty list is a no-op; a non-empty list returns
// ErrTransfersDisabled if MAX_TRANSFERS is zero, the mainnet default;
// this processor exists for configurations that enable the feature.
func ProcessTransfers(state *types.BeaconState, transfers []*types.Transfer, proposerIndex uint64, verifier *signing.Verifier, forkVersion [4]byte) (*types.BeaconState, error) {
	cfg := params.BeaconConfig()
	if len(transfers) == 0 {
		return state, nil
	}
	if cfg.MaxTransfers == 0 {
		return nil, ErrTransfersDisabled
	}
	if uint64(len(transfers)) > cfg.MaxTransfers {
		return nil, ErrTooManyOperations
	}

	seenSenders := make(map[uint64]bool, len(transfers))
	next := state.Copy()
	for _, t := range transfers {
		if seenSenders[t.Sender] {
			return nil, ErrDuplicateTransfer
		}
		seenSenders[t.Sender] = true
		if err := processTransfer(next, t, proposerIndex, verifier, forkVersion); err != nil {
			return nil, err
		}
	}
	return next, nil
}

func processTransfer(state *types.BeaconState, t *types.Transfer, proposerIndex uint64, verifier *signing.Verifier, forkVersion [4]byte) error {
	cfg := params.BeaconConfig()
	if t.Sender >= uint64(len(state.Validators)) {
		return errors.Errorf("blocks: transfer sender %d out of range", t.Sender)
	}
	if t.Recipient >= uint64(len(state.Validators)) {
		return errors.Errorf("blocks: transfer recipient %d out of range", t.Recipient)
	}

	total := t.Amount + t.Fee
	senderBalance := state.Balances[t.Sender]
	if senderBalance < total {
		return errors.New("blocks: transfer sender has insufficient balance")
	}

	sender := state.Validators[t.Sender]
	currentEpoch := state.Slot.ToEpoch()
	spendable := senderBalance-total == 0 || senderBalance >= total+cfg.MaxEffectiveBalance || !sender.IsActive(currentEpoch)
	if !spendable {
		return errors.New("blocks: transfer would leave sender under-collateralized while active")
	}
	if state.Slot != t.Slot {
		return errors.New("blocks: transfer slot does not match current slot")
	}
	if sender.WithdrawableEpoch > currentEpoch && sender.WithdrawalCredentials[0] != withdrawalCredentialsPrefix {
		return errors.New("blocks: transfer sender is not yet withdrawable")
	}
	if sender.WithdrawalCredentials[0] != withdrawalCredentialsPrefix {
		return errors.New("blocks: transfer sender withdrawal credentials are not BLS-derived")
	}

	if err := verifier.VerifyObjectSignature(t, t.PublicKey, t.Signature, cfg.DomainTransfer, forkVersion); err != nil {
		return errors.Wrap(err, "blocks: transfer signature")
	}

	if err := validators.DecreaseBalance(state.Balances, t.Sender, total); err != nil {
		return err
	}
	if err := validators.IncreaseBalance(state.Balances, t.Recipient, t.Amount); err != nil {
		return err
	}
	return validators.IncreaseBalance(state.Balances, proposerIndex, t.Fee)
}
