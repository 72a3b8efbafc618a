package kv

import (
	"context"

	"github.com/strata-network/beacon/consensus-types/types"
	bolt "go.etcd.io/bbolt"
)

// SaveState persists the state resulting from processing the block
// with the given root, keyed by that block root: one beacon state
// checkpoint per block, not per slot.
func (s *Store) SaveState(ctx context.Context, root [32]byte, state *types.BeaconState) error {
	enc, err := encodeState(state)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(statesBucket).Put(root[:], enc)
	})
}

// State returns the state saved under root.
func (s *Store) State(ctx context.Context, root [32]byte) (*types.BeaconState, error) {
	var state *types.BeaconState
	err := s.db.View(func(tx *bolt.Tx) error {
		enc := tx.Bucket(statesBucket).Get(root[:])
		if enc == nil {
			return nil
		}
		var decodeErr error
		state, decodeErr = decodeState(enc)
		return decodeErr
	})
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, ErrStateNotFound
	}
	return state, nil
}

// HeadState is a convenience wrapper returning the state saved under
// the current canonical head block root.
func (s *Store) HeadState(ctx context.Context) (*types.BeaconState, error) {
	root, err := s.HeadBlockRoot(ctx)
	if err != nil {
		return nil, err
	}
	return s.State(ctx, root)
}

// HasState reports whether root has a stored state.
func (s *Store) HasState(ctx context.Context, root [32]byte) bool {
	exists := false
	_ = s.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(statesBucket).Get(root[:]) != nil
		return nil
	})
	return exists
}
