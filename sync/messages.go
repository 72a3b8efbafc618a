// Package sync drives block-range sync against peers and defines the
// wire message shapes the request/response protocol carries. The
// transport itself (libp2p streams on mainnet) lives elsewhere;
// Peer/Fetcher below are the seam a real transport sits behind.
package sync

import (
	"github.com/strata-network/beacon/consensus-types/primitives"
	"github.com/strata-network/beacon/consensus-types/types"
)

// BeaconBlocksByRangeRequest asks a peer for up to Count blocks
// starting at StartSlot, every Step'th slot (Step 1 for a contiguous
// range).
type BeaconBlocksByRangeRequest struct {
	StartSlot primitives.Slot
	Count     uint64
	Step      uint64
}

// BeaconBlocksByRangeResponse is a peer's reply to a
// BeaconBlocksByRangeRequest: zero or more signed blocks in ascending
// slot order.
type BeaconBlocksByRangeResponse struct {
	Blocks []*types.SignedBeaconBlock
}

// BeaconBlocksByRootRequest asks a peer for the blocks with exactly
// these roots (used to fetch a head block's unknown ancestors).
type BeaconBlocksByRootRequest struct {
	Roots [][32]byte
}

// AttestationsMessage carries a batch of gossiped attestations a peer
// has not yet seen included in a block.
type AttestationsMessage struct {
	Attestations []*types.Attestation
}

// StatusMessage is the handshake peers exchange before syncing: it
// lets each side decide whether the other is ahead, behind, or on an
// incompatible fork.
type StatusMessage struct {
	ForkDigest     [4]byte
	FinalizedRoot  [32]byte
	FinalizedEpoch primitives.Epoch
	HeadRoot       [32]byte
	HeadSlot       primitives.Slot
}
