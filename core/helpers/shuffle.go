// Package helpers implements the swap-or-not shuffling engine and the
// committee/proposer calculator built on top of it.
package helpers

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/strata-network/beacon/config/params"
)

// ErrShufflingOverflow is returned when indexCount exceeds MaxIndexCount.
var ErrShufflingOverflow = errors.New("helpers: shuffling index count exceeds MAX_INDEX_COUNT")

// ShuffledIndex computes the swap-or-not permutation of index i within
// [0, indexCount) under seed, applying rounds rounds of mixing. It
// runs in O(rounds) time and O(1) space.
func ShuffledIndex(i, indexCount uint64, seed [32]byte, rounds uint64) (uint64, error) {
	if indexCount == 0 {
		return 0, errors.New("helpers: indexCount must be positive")
	}
	if indexCount > params.BeaconConfig().MaxIndexCount {
		return 0, ErrShufflingOverflow
	}
	if i >= indexCount {
		return 0, errors.Errorf("helpers: index %d out of range [0,%d)", i, indexCount)
	}

	for r := uint64(0); r < rounds; r++ {
		pivot := pivotForRound(seed, r, indexCount)
		flip := (pivot + indexCount - i) % indexCount
		position := i
		if flip > position {
			position = flip
		}
		if bitAt(seed, r, position) == 1 {
			i = flip
		}
	}
	return i, nil
}

func pivotForRound(seed [32]byte, round, indexCount uint64) uint64 {
	h := sha256.New()
	h.Write(seed[:])
	h.Write([]byte{byte(round)})
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8]) % indexCount
}

func bitAt(seed [32]byte, round, position uint64) byte {
	h := sha256.New()
	h.Write(seed[:])
	h.Write([]byte{byte(round)})
	var posBuf [4]byte
	binary.LittleEndian.PutUint32(posBuf[:], uint32(position/256))
	h.Write(posBuf[:])
	source := h.Sum(nil)
	b := source[(position%256)/8]
	return (b >> (position % 8)) & 1
}

// maxShuffleListSize bounds ShuffleList inputs; tests override it to
// exercise the ErrShufflingOverflow path without allocating 2^40
// entries.
var maxShuffleListSize = params.BeaconConfig().MaxIndexCount

// ShuffleList returns a new slice holding input permuted by the
// swap-or-not shuffle under seed, using the configured round count.
// input is left untouched.
func ShuffleList(input []uint64, seed [32]byte) ([]uint64, error) {
	if uint64(len(input)) > maxShuffleListSize {
		return nil, ErrShufflingOverflow
	}
	n := uint64(len(input))
	out := make([]uint64, n)
	rounds := params.BeaconConfig().ShuffleRoundCount
	for i := uint64(0); i < n; i++ {
		j, err := ShuffledIndex(i, n, seed, rounds)
		if err != nil {
			return nil, err
		}
		out[i] = input[j]
	}
	return out, nil
}

// SplitIndices partitions list into n roughly-equal contiguous chunks,
// matching the committee-boundary formula: chunk k covers
// [len*k/n, len*(k+1)/n).
func SplitIndices(list []uint64, n uint64) [][]uint64 {
	if n == 0 {
		return nil
	}
	out := make([][]uint64, n)
	length := uint64(len(list))
	for k := uint64(0); k < n; k++ {
		start := length * k / n
		end := length * (k + 1) / n
		out[k] = list[start:end]
	}
	return out
}
