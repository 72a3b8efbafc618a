// Package blocks implements the per-operation state processors: pure
// functions (state, operation) -> state that either return a new
// state or fail with one of the tagged errors below. A failed
// processor must never mutate the caller's state value.
package blocks

import "github.com/pkg/errors"

var (
	// ErrInvalidCommitteeIndex is returned when an attestation's
	// committee index has no committee at its slot.
	ErrInvalidCommitteeIndex = errors.New("blocks: invalid committee index")
	// ErrWrongTargetEpoch is returned when an attestation's target
	// epoch is neither the previous nor the current epoch.
	ErrWrongTargetEpoch = errors.New("blocks: attestation target epoch is neither previous nor current")
	// ErrInclusionWindow is returned when an attestation arrives
	// outside its inclusion-delay window.
	ErrInclusionWindow = errors.New("blocks: attestation outside inclusion window")
	// ErrWrongSource is returned when an attestation's source
	// checkpoint does not match the expected justified checkpoint.
	ErrWrongSource = errors.New("blocks: attestation source checkpoint mismatch")
	// ErrBitlistLength is returned when aggregation_bits' length does
	// not match its committee's size.
	ErrBitlistLength = errors.New("blocks: aggregation bitlist length mismatch")
	// ErrTooManyOperations is returned when an operation list exceeds
	// its per-block cap.
	ErrTooManyOperations = errors.New("blocks: operation list exceeds per-block cap")
	// ErrInvalidDepositProof is returned when a deposit's Merkle
	// branch fails to verify against eth1_data.deposit_root.
	ErrInvalidDepositProof = errors.New("blocks: invalid deposit Merkle proof")
	// ErrSlashingHadNoEffect is returned when neither attester in an
	// AttesterSlashing nor the proposer in a ProposerSlashing was
	// actually slashable.
	ErrSlashingHadNoEffect = errors.New("blocks: slashing had no effect")
	// ErrDuplicateTransfer is returned when a block includes two
	// transfers from the same sender.
	ErrDuplicateTransfer = errors.New("blocks: duplicate transfer sender in block")
	// ErrTransfersDisabled is returned when a Transfer operation is
	// submitted but MAX_TRANSFERS == 0 (the mainnet default).
	ErrTransfersDisabled = errors.New("blocks: transfers are disabled (MAX_TRANSFERS == 0)")
)
