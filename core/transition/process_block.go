package transition

import (
	"crypto/sha256"

	"github.com/pkg/errors"
	"github.com/strata-network/beacon/config/params"
	"github.com/strata-network/beacon/consensus-types/types"
	"github.com/strata-network/beacon/core/blocks"
	"github.com/strata-network/beacon/core/signing"
)

// processBlockHeader verifies block's envelope against state and
// advances state.LatestBlockHeader to a zero-state-root stand-in for
// it: the real state root is filled in by the per-slot processing of
// the next slot.
func processBlockHeader(state *types.BeaconState, block *types.BeaconBlock) error {
	if block.Slot != state.Slot {
		return errors.New("transition: block slot does not match state slot")
	}
	if uint64(block.Slot) <= uint64(state.LatestBlockHeader.Slot) && state.LatestBlockHeader.Slot != 0 {
		return errors.New("transition: block slot does not exceed latest block header slot")
	}
	if block.ProposerIndex >= uint64(len(state.Validators)) {
		return errors.Errorf("transition: proposer index %d out of range", block.ProposerIndex)
	}
	if state.Validators[block.ProposerIndex].Slashed {
		return errors.New("transition: proposer is slashed")
	}

	expectedParent, err := state.LatestBlockHeader.HashTreeRoot()
	if err != nil {
		return errors.Wrap(err, "transition: hash latest block header")
	}
	if block.ParentRoot != expectedParent {
		return errors.New("transition: block parent root does not match latest block header")
	}

	bodyRoot, err := block.Body.HashTreeRoot()
	if err != nil {
		return errors.Wrap(err, "transition: hash block body")
	}
	state.LatestBlockHeader = types.BeaconBlockHeader{
		Slot:          uint64(block.Slot),
		ProposerIndex: block.ProposerIndex,
		ParentRoot:    block.ParentRoot,
		StateRoot:     [32]byte{},
		BodyRoot:      bodyRoot,
	}
	return nil
}

// randaoMessage adapts an epoch value to the HashTreeRoot-able
// interface VerifyObjectSignature expects, since RANDAO reveals sign
// over the epoch number, not a full object.
type randaoMessage uint64

func (m randaoMessage) HashTreeRoot() ([32]byte, error) {
	buf := make([]byte, 32)
	v := uint64(m)
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	return sha256.Sum256(buf), nil
}

// processRandao verifies the proposer's RANDAO reveal and mixes it
// into the current epoch's randao_mixes entry.
func processRandao(state *types.BeaconState, block *types.BeaconBlock, verifier *signing.Verifier) error {
	cfg := params.BeaconConfig()
	epoch := state.Slot.ToEpoch()
	proposer := state.Validators[block.ProposerIndex]

	var sig [96]byte
	copy(sig[:], block.Body.RandaoReveal[:])
	if err := verifier.VerifyObjectSignature(randaoMessage(epoch), proposer.PublicKey, sig, cfg.DomainRandao, state.Fork.CurrentVersion); err != nil {
		return errors.Wrap(err, "transition: randao reveal signature")
	}

	idx := uint64(epoch) % cfg.EpochsPerHistoricalVector
	if idx >= uint64(len(state.RandaoMixes)) {
		return errors.Errorf("transition: randao mix index %d out of range", idx)
	}
	// XOR the reveal's hash into the existing mix rather than
	// overwrite, so the mix accumulates entropy from every proposer.
	revealHash := sha256.Sum256(block.Body.RandaoReveal[:])
	var mixed [32]byte
	for i := range mixed {
		mixed[i] = state.RandaoMixes[idx][i] ^ revealHash[i]
	}
	state.RandaoMixes[idx] = mixed
	return nil
}

// processEth1Data appends block's eth1 vote and adopts it as
// state.Eth1Data once a majority of the voting period agrees.
func processEth1Data(state *types.BeaconState, block *types.BeaconBlock) error {
	cfg := params.BeaconConfig()
	state.Eth1DataVotes = append(state.Eth1DataVotes, block.Body.Eth1Data.Copy())

	count := 0
	for _, v := range state.Eth1DataVotes {
		if v.Equal(&block.Body.Eth1Data) {
			count++
		}
	}
	period := cfg.EpochsPerEth1VotingPeriod * cfg.SlotsPerEpoch
	if uint64(count)*2 > period {
		state.Eth1Data = *block.Body.Eth1Data.Copy()
	}
	return nil
}

// processOperations runs every per-block operation processor in the
// protocol's fixed order: proposer slashings, attester slashings,
// attestations, deposits, voluntary exits, transfers.
func processOperations(state *types.BeaconState, block *types.BeaconBlock, verifier *signing.Verifier) (*types.BeaconState, error) {
	forkVersion := state.Fork.CurrentVersion
	proposerIndex := block.ProposerIndex
	body := block.Body

	next, err := blocks.ProcessProposerSlashings(state, body.ProposerSlashings, proposerIndex, verifier, forkVersion)
	if err != nil {
		return nil, errors.Wrap(err, "transition: proposer slashings")
	}
	next, err = blocks.ProcessAttesterSlashings(next, body.AttesterSlashings, proposerIndex, verifier, forkVersion)
	if err != nil {
		return nil, errors.Wrap(err, "transition: attester slashings")
	}
	next, err = blocks.ProcessAttestations(next, body.Attestations, proposerIndex, verifier, forkVersion)
	if err != nil {
		return nil, errors.Wrap(err, "transition: attestations")
	}
	next, err = blocks.ProcessDeposits(next, body.Deposits, verifier)
	if err != nil {
		return nil, errors.Wrap(err, "transition: deposits")
	}
	next, err = blocks.ProcessVoluntaryExits(next, body.VoluntaryExits, verifier, forkVersion)
	if err != nil {
		return nil, errors.Wrap(err, "transition: voluntary exits")
	}
	next, err = blocks.ProcessTransfers(next, body.Transfers, proposerIndex, verifier, forkVersion)
	if err != nil {
		return nil, errors.Wrap(err, "transition: transfers")
	}
	return next, nil
}
