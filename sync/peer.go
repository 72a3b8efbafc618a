package sync

import "context"

// Peer is the minimal identity and liveness view sync needs from a
// connected network peer. A real libp2p-backed implementation wraps a
// peer.ID and a stream-opening method behind this interface; tests use
// an in-memory stand-in.
type Peer interface {
	ID() string
	Status() StatusMessage
}

// Fetcher sends request/response messages to a single peer. Splitting
// it out from Peer lets a mock substitute canned responses without
// modeling a real stream.
type Fetcher interface {
	BlocksByRange(ctx context.Context, p Peer, req *BeaconBlocksByRangeRequest) (*BeaconBlocksByRangeResponse, error)
}

// PeerProvider reports the currently connected peer set, each with
// its last-known status.
type PeerProvider interface {
	Peers() []Peer
}

// bestPeer returns the connected peer with the greatest advertised
// head slot — always sync against the peer that claims the furthest
// chain. Returns nil if no peer is connected.
func bestPeer(peers []Peer) Peer {
	var best Peer
	var bestSlot uint64
	for _, p := range peers {
		slot := uint64(p.Status().HeadSlot)
		if best == nil || slot > bestSlot {
			best = p
			bestSlot = slot
		}
	}
	return best
}
