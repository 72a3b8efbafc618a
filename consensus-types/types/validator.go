package types

import (
	ssz "github.com/ferranbt/fastssz"
	"github.com/strata-network/beacon/consensus-types/primitives"
)

// Validator is a fixed-layout registry entry. Entries
// are never deleted; "exit" and "slash" are transitions on this struct
// produced by a state update, never in-place mutation of a value a
// BeaconState has already published.
type Validator struct {
	PublicKey                  [48]byte
	WithdrawalCredentials      [32]byte
	EffectiveBalance           uint64
	Slashed                    bool
	ActivationEligibilityEpoch primitives.Epoch
	ActivationEpoch            primitives.Epoch
	ExitEpoch                  primitives.Epoch
	WithdrawableEpoch          primitives.Epoch
}

// Copy returns a value copy of v.
func (v *Validator) Copy() *Validator {
	if v == nil {
		return nil
	}
	cpy := *v
	return &cpy
}

// IsActive reports whether v is active at the given epoch.
func (v *Validator) IsActive(epoch primitives.Epoch) bool {
	return v.ActivationEpoch <= epoch && epoch < v.ExitEpoch
}

// IsSlashable reports whether v can still be slashed at the given
// epoch: not already slashed, and not yet past its withdrawable epoch.
func (v *Validator) IsSlashable(epoch primitives.Epoch) bool {
	return !v.Slashed && epoch < v.WithdrawableEpoch
}

const validatorSSZSize = 48 + 32 + 8 + 1 + 8 + 8 + 8 + 8

// MarshalSSZTo appends the SSZ encoding of v to dst.
func (v *Validator) MarshalSSZTo(dst []byte) ([]byte, error) {
	dst = append(dst, v.PublicKey[:]...)
	dst = append(dst, v.WithdrawalCredentials[:]...)
	buf := make([]byte, 8)
	putUint64(buf, v.EffectiveBalance)
	dst = append(dst, buf...)
	if v.Slashed {
		dst = append(dst, 1)
	} else {
		dst = append(dst, 0)
	}
	for _, e := range []primitives.Epoch{v.ActivationEligibilityEpoch, v.ActivationEpoch, v.ExitEpoch, v.WithdrawableEpoch} {
		putUint64(buf, uint64(e))
		dst = append(dst, buf...)
	}
	return dst, nil
}

// MarshalSSZ returns the SSZ encoding of v.
func (v *Validator) MarshalSSZ() ([]byte, error) { return v.MarshalSSZTo(nil) }

// SizeSSZ returns the fixed SSZ size of Validator.
func (v *Validator) SizeSSZ() int { return validatorSSZSize }

// UnmarshalSSZ decodes buf into v.
func (v *Validator) UnmarshalSSZ(buf []byte) error {
	if len(buf) != validatorSSZSize {
		return errInvalidLength("Validator", validatorSSZSize, len(buf))
	}
	off := 0
	copy(v.PublicKey[:], buf[off:off+48])
	off += 48
	copy(v.WithdrawalCredentials[:], buf[off:off+32])
	off += 32
	v.EffectiveBalance = getUint64(buf[off : off+8])
	off += 8
	v.Slashed = buf[off] == 1
	off++
	v.ActivationEligibilityEpoch = primitives.Epoch(getUint64(buf[off : off+8]))
	off += 8
	v.ActivationEpoch = primitives.Epoch(getUint64(buf[off : off+8]))
	off += 8
	v.ExitEpoch = primitives.Epoch(getUint64(buf[off : off+8]))
	off += 8
	v.WithdrawableEpoch = primitives.Epoch(getUint64(buf[off : off+8]))
	return nil
}

// HashTreeRoot computes the Merkle root of v.
func (v *Validator) HashTreeRoot() ([32]byte, error) {
	return ssz.HashWithDefaultHasher(v)
}

// HashTreeRootWith fills hh with v's eight leaves.
func (v *Validator) HashTreeRootWith(hh *ssz.Hasher) error {
	indx := hh.Index()
	hh.PutBytes(v.PublicKey[:])
	hh.PutBytes(v.WithdrawalCredentials[:])
	hh.PutUint64(v.EffectiveBalance)
	hh.PutBool(v.Slashed)
	hh.PutUint64(uint64(v.ActivationEligibilityEpoch))
	hh.PutUint64(uint64(v.ActivationEpoch))
	hh.PutUint64(uint64(v.ExitEpoch))
	hh.PutUint64(uint64(v.WithdrawableEpoch))
	hh.Merkleize(indx)
	return nil
}
