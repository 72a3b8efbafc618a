package helpers

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/strata-network/beacon/config/params"
	"github.com/strata-network/beacon/consensus-types/primitives"
	"github.com/strata-network/beacon/consensus-types/types"
)

// ErrNoActiveValidators is returned when a committee or proposer
// computation has no active validator indices to work with.
var ErrNoActiveValidators = errors.New("helpers: active validator set is empty")

func clamp(lo, hi, v uint64) uint64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CommitteesPerSlot returns the number of committees active at every
// slot of epoch, given activeCount active validators.
func CommitteesPerSlot(activeCount uint64) uint64 {
	cfg := params.BeaconConfig()
	return clamp(1, cfg.MaxCommitteesPerSlot, activeCount/cfg.SlotsPerEpoch/cfg.TargetCommitteeSize)
}

// Seed mixes the RANDAO history and the cached active-index root for
// epoch into a domain-tagged shuffling seed.
func Seed(state *types.BeaconState, epoch primitives.Epoch, domainType uint64) ([32]byte, error) {
	cfg := params.BeaconConfig()
	n := cfg.EpochsPerHistoricalVector
	if n == 0 {
		return [32]byte{}, errors.New("helpers: EpochsPerHistoricalVector is zero")
	}
	mixEpoch := (uint64(epoch) + n - cfg.MinSeedLookahead - 1) % n
	if mixEpoch >= uint64(len(state.RandaoMixes)) {
		return [32]byte{}, errors.Errorf("helpers: randao mix index %d out of range", mixEpoch)
	}
	activeIndexEpoch := uint64(epoch) % n
	if activeIndexEpoch >= uint64(len(state.ActiveIndexRoots)) {
		return [32]byte{}, errors.Errorf("helpers: active index root %d out of range", activeIndexEpoch)
	}

	buf := make([]byte, 8+8+32+32)
	binary.LittleEndian.PutUint64(buf[0:8], domainType)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(epoch))
	copy(buf[16:48], state.RandaoMixes[mixEpoch][:])
	copy(buf[48:80], state.ActiveIndexRoots[activeIndexEpoch][:])
	return sha256.Sum256(buf), nil
}

// BeaconCommittee returns the ordered validator indices assigned to
// (slot, committeeIndex).
func BeaconCommittee(state *types.BeaconState, slot primitives.Slot, committeeIndex uint64) ([]uint64, error) {
	cfg := params.BeaconConfig()
	epoch := slot.ToEpoch()
	active := state.ActiveValidatorIndices(epoch)
	if len(active) == 0 {
		return nil, ErrNoActiveValidators
	}

	cps := CommitteesPerSlot(uint64(len(active)))
	if committeeIndex >= cps {
		return nil, errors.Errorf("helpers: committee index %d out of range [0,%d)", committeeIndex, cps)
	}

	count := cps * cfg.SlotsPerEpoch
	k := (uint64(slot)%cfg.SlotsPerEpoch)*cps + committeeIndex

	length := uint64(len(active))
	start := length * k / count
	end := length * (k + 1) / count

	seed, err := Seed(state, epoch, cfg.DomainBeaconAttester)
	if err != nil {
		return nil, err
	}

	committee := make([]uint64, 0, end-start)
	for i := start; i < end; i++ {
		j, err := ShuffledIndex(i, length, seed, cfg.ShuffleRoundCount)
		if err != nil {
			return nil, err
		}
		committee = append(committee, active[j])
	}
	return committee, nil
}

// ComputeProposerIndex selects a proposer for epoch by repeated
// weighted rejection sampling. The loop terminates with
// probability 1 as long as some active validator has nonzero effective
// balance, a precondition the caller must uphold; a buggy precondition
// would spin here rather than return a wrong answer, so the warn
// callback fires every len(active) unsuccessful iterations.
func ComputeProposerIndex(state *types.BeaconState, epoch primitives.Epoch, warn func(iterations int)) (uint64, error) {
	active := state.ActiveValidatorIndices(epoch)
	if len(active) == 0 {
		return 0, ErrNoActiveValidators
	}
	seed, err := Seed(state, epoch, params.BeaconConfig().DomainBeaconProposer)
	if err != nil {
		return 0, err
	}

	length := uint64(len(active))
	maxEffective := params.BeaconConfig().MaxEffectiveBalance
	cfg := params.BeaconConfig()

	for i := uint64(0); ; i++ {
		shuffled, err := ShuffledIndex(i%length, length, seed, cfg.ShuffleRoundCount)
		if err != nil {
			return 0, err
		}
		candidate := active[shuffled]

		h := sha256.New()
		h.Write(seed[:])
		var ibuf [8]byte
		binary.LittleEndian.PutUint64(ibuf[:], i/32)
		h.Write(ibuf[:])
		randByte := h.Sum(nil)[i%32]

		effective := state.Validators[candidate].EffectiveBalance
		if effective*255 >= maxEffective*uint64(randByte) {
			return candidate, nil
		}
		if warn != nil && i > 0 && i%length == 0 {
			warn(int(i))
		}
	}
}
