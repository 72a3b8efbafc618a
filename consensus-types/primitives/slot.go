// Package primitives defines the Slot/Epoch time units shared by every
// consensus package, plus saturating arithmetic for the
// FAR_FUTURE_EPOCH boundary.
package primitives

import (
	"math"

	"github.com/pkg/errors"
	"github.com/strata-network/beacon/config/params"
)

// Slot is the smallest unit of protocol time.
type Slot uint64

// Epoch is SLOTS_PER_EPOCH contiguous slots.
type Epoch uint64

// ErrOverflow is returned by saturating arithmetic helpers when an
// addition would wrap a uint64.
var ErrOverflow = errors.New("primitives: arithmetic overflow")

// ToEpoch converts a slot to its containing epoch.
func (s Slot) ToEpoch() Epoch {
	spe := params.BeaconConfig().SlotsPerEpoch
	if spe == 0 {
		return 0
	}
	return Epoch(uint64(s) / spe)
}

// StartSlot returns the first slot of epoch e, failing with ErrOverflow
// rather than wrapping when e*SLOTS_PER_EPOCH would exceed uint64.
func (e Epoch) StartSlot() (Slot, error) {
	spe := params.BeaconConfig().SlotsPerEpoch
	if spe != 0 && uint64(e) > math.MaxUint64/spe {
		return 0, ErrOverflow
	}
	return Slot(uint64(e) * spe), nil
}

// IsFarFuture reports whether e equals the FAR_FUTURE_EPOCH sentinel.
func (e Epoch) IsFarFuture() bool {
	return uint64(e) == params.BeaconConfig().FarFutureEpoch
}

// FarFutureEpoch returns the protocol sentinel for "never".
func FarFutureEpoch() Epoch {
	return Epoch(params.BeaconConfig().FarFutureEpoch)
}

// SafeAddSlot adds two slots, failing instead of wrapping on overflow.
func SafeAddSlot(a, b Slot) (Slot, error) {
	if uint64(a) > math.MaxUint64-uint64(b) {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// SafeSubSlot subtracts b from a, failing instead of underflowing.
func SafeSubSlot(a, b Slot) (Slot, error) {
	if b > a {
		return 0, ErrOverflow
	}
	return a - b, nil
}

// SafeAddEpoch adds two epochs, failing instead of wrapping on overflow.
// FAR_FUTURE_EPOCH is treated as absorbing: adding to it returns itself
// unchanged rather than erroring, since the value already denotes "never".
func SafeAddEpoch(a, b Epoch) (Epoch, error) {
	if a.IsFarFuture() || b.IsFarFuture() {
		return FarFutureEpoch(), nil
	}
	if uint64(a) > math.MaxUint64-uint64(b) {
		return 0, ErrOverflow
	}
	return a + b, nil
}
