package blocks

import (
	"crypto/sha256"

	"github.com/strata-network/beacon/config/params"
	"github.com/strata-network/beacon/consensus-types/primitives"
	"github.com/strata-network/beacon/consensus-types/types"
	"github.com/strata-network/beacon/core/signing"
)

// ProcessDeposits applies every deposit in deposits to state in the
// order given. Unlike every other operation processor, a deposit with
// a bad proof-of-possession does not fail the block; it is skipped,
// but eth1_deposit_index still advances.
func ProcessDeposits(state *types.BeaconState, deposits []*types.Deposit, verifier *signing.Verifier) (*types.BeaconState, error) {
	if uint64(len(deposits)) > params.BeaconConfig().MaxDeposits {
		return nil, ErrTooManyOperations
	}
	next := state.Copy()
	for _, d := range deposits {
		if err := processDeposit(next, d, verifier); err != nil {
			return nil, err
		}
	}
	return next, nil
}

func processDeposit(state *types.BeaconState, d *types.Deposit, verifier *signing.Verifier) error {
	cfg := params.BeaconConfig()
	if !verifyDepositMerkleBranch(d, state.Eth1Data.DepositRoot, state.Eth1DepositIndex, cfg.DepositContractTreeDepth) {
		return ErrInvalidDepositProof
	}
	state.Eth1DepositIndex++

	pubkey := d.Data.PublicKey
	existingIndex := -1
	for i, v := range state.Validators {
		if v.PublicKey == pubkey {
			existingIndex = i
			break
		}
	}

	if existingIndex >= 0 {
		// Top-up: no proof-of-possession check, only the Merkle proof
		// above gates a top-up.
		state.Balances[existingIndex] += d.Data.Amount
		return nil
	}

	// New validator: a bad proof-of-possession is silently skipped,
	// not a block-invalidating error.
	if err := verifyDepositProofOfPossession(d, verifier); err != nil {
		return nil
	}

	effective := d.Data.Amount - d.Data.Amount%cfg.EffectiveBalanceInc
	if effective > cfg.MaxEffectiveBalance {
		effective = cfg.MaxEffectiveBalance
	}
	state.Validators = append(state.Validators, &types.Validator{
		PublicKey:                  pubkey,
		WithdrawalCredentials:      d.Data.WithdrawalCredentials,
		EffectiveBalance:           effective,
		ActivationEligibilityEpoch: primitives.FarFutureEpoch(),
		ActivationEpoch:            primitives.FarFutureEpoch(),
		ExitEpoch:                  primitives.FarFutureEpoch(),
		WithdrawableEpoch:          primitives.FarFutureEpoch(),
	})
	state.Balances = append(state.Balances, d.Data.Amount)
	return nil
}

// verifyDepositProofOfPossession checks the deposit's own signature
// over its (pubkey, withdrawal_credentials, amount) under
// DOMAIN_DEPOSIT with a zero fork version, since deposits are signed
// before genesis fixes a fork.
func verifyDepositProofOfPossession(d *types.Deposit, verifier *signing.Verifier) error {
	return verifier.VerifyObjectSignature(&depositMessage{&d.Data}, d.Data.PublicKey, d.Data.Signature, params.BeaconConfig().DomainDeposit, [4]byte{0, 0, 0, 0})
}

// depositMessage adapts DepositData's signing root (excluding the
// signature field) to the HashTreeRoot-able interface VerifyObjectSignature expects.
type depositMessage struct {
	data *types.DepositData
}

func (m *depositMessage) HashTreeRoot() ([32]byte, error) {
	return m.data.SigningRoot()
}

// verifyDepositMerkleBranch checks d.Proof against depositRoot using
// leafIndex as the position. The branch has depth
// DEPOSIT_CONTRACT_TREE_DEPTH+1, the +1 covering the mixed-in deposit
// count, carried as the branch's final element.
func verifyDepositMerkleBranch(d *types.Deposit, depositRoot [32]byte, leafIndex uint64, depth uint64) bool {
	leaf, err := d.Data.HashTreeRoot()
	if err != nil {
		return false
	}
	if uint64(len(d.Proof)) != depth+1 {
		return false
	}
	node := leaf
	for i := uint64(0); i < depth; i++ {
		if (leafIndex>>i)&1 == 1 {
			node = hashPair(d.Proof[i], node)
		} else {
			node = hashPair(node, d.Proof[i])
		}
	}
	node = hashPair(node, d.Proof[depth])
	return node == depositRoot
}

func hashPair(a, b [32]byte) [32]byte {
	h := sha256.New()
	h.Write(a[:])
	h.Write(b[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
