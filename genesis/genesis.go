// Package genesis bootstraps a BeaconState and its genesis block from
// a list of Eth1 deposits, the way a node does the first time it
// observes MIN_GENESIS_ACTIVE_VALIDATOR_COUNT full deposits on the
// deposit contract.
package genesis

import (
	"github.com/pkg/errors"
	"github.com/strata-network/beacon/config/params"
	"github.com/strata-network/beacon/consensus-types/primitives"
	"github.com/strata-network/beacon/consensus-types/types"
	"github.com/strata-network/beacon/core/blocks"
	"github.com/strata-network/beacon/core/signing"
)

// BeaconState builds the genesis state from eth1BlockHash/genesisTime
// and the full set of deposits observed by that point, processing
// deposits one at a time and recomputing the deposit contract's
// incremental Merkle root after each one.
func BeaconState(deposits []*types.DepositData, eth1BlockHash [32]byte, genesisTime uint64, verifier *signing.Verifier) (*types.BeaconState, error) {
	cfg := params.BeaconConfig()

	bodyRoot, err := (&types.BeaconBlockBody{}).HashTreeRoot()
	if err != nil {
		return nil, errors.Wrap(err, "genesis: hash empty block body")
	}

	state := &types.BeaconState{
		GenesisTime: genesisTime,
		Fork: types.Fork{
			PreviousVersion: cfg.GenesisForkVersion,
			CurrentVersion:  cfg.GenesisForkVersion,
			Epoch:           0,
		},
		LatestBlockHeader: types.BeaconBlockHeader{BodyRoot: bodyRoot},
		Eth1Data:          types.Eth1Data{BlockHash: eth1BlockHash},
	}

	state.BlockRoots = make([][32]byte, cfg.SlotsPerHistoricalRoot)
	state.StateRoots = make([][32]byte, cfg.SlotsPerHistoricalRoot)
	state.Slashings = make([]uint64, cfg.EpochsPerSlashingsVector)

	state.RandaoMixes = make([][32]byte, cfg.EpochsPerHistoricalVector)
	for i := range state.RandaoMixes {
		state.RandaoMixes[i] = eth1BlockHash
	}
	state.ActiveIndexRoots = make([][32]byte, cfg.EpochsPerHistoricalVector)

	trie := newDepositTrie(cfg.DepositContractTreeDepth)
	for i, data := range deposits {
		leaf, err := data.HashTreeRoot()
		if err != nil {
			return nil, errors.Wrapf(err, "genesis: hash deposit data %d", i)
		}
		index := trie.insert(leaf)

		d := &types.Deposit{Data: *data, Proof: trie.proof(index)}
		state.Eth1Data.DepositRoot = trie.root()
		state.Eth1Data.DepositCount = trie.depositCount

		next, err := blocks.ProcessDeposits(state, []*types.Deposit{d}, verifier)
		if err != nil {
			return nil, errors.Wrapf(err, "genesis: process deposit %d", i)
		}
		state = next
	}

	// Activate every validator whose effective balance reached the
	// maximum outright; genesis validators skip the normal
	// registry-update activation queue.
	for _, v := range state.Validators {
		if v.EffectiveBalance == cfg.MaxEffectiveBalance {
			v.ActivationEligibilityEpoch = 0
			v.ActivationEpoch = 0
		}
	}

	return state, nil
}

// NewBlock returns the genesis BeaconBlock: slot 0, zero parent root,
// an empty body, and stateRoot set to the hash of the genesis state.
func NewBlock(stateRoot [32]byte) *types.BeaconBlock {
	return &types.BeaconBlock{
		Slot:      primitives.Slot(0),
		StateRoot: stateRoot,
	}
}
