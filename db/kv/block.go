package kv

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
	"github.com/strata-network/beacon/consensus-types/types"
	bolt "go.etcd.io/bbolt"
)

func encodeSlot(slot uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, slot)
	return buf
}

// SaveBlock persists a signed block keyed by its block root. It does
// not by itself make the block canonical; callers add it to the
// canonical chain with SaveHeadBlockRoot.
func (s *Store) SaveBlock(ctx context.Context, root [32]byte, b *types.SignedBeaconBlock) error {
	enc, err := encodeBlock(b)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(blocksBucket).Put(root[:], enc)
	})
}

// Block returns the signed block stored under root.
func (s *Store) Block(ctx context.Context, root [32]byte) (*types.SignedBeaconBlock, error) {
	var b *types.SignedBeaconBlock
	err := s.db.View(func(tx *bolt.Tx) error {
		enc := tx.Bucket(blocksBucket).Get(root[:])
		if enc == nil {
			return nil
		}
		var decodeErr error
		b, decodeErr = decodeBlock(enc)
		return decodeErr
	})
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrBlockNotFound
	}
	return b, nil
}

// HasBlock reports whether root has a stored block.
func (s *Store) HasBlock(ctx context.Context, root [32]byte) bool {
	exists := false
	_ = s.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(blocksBucket).Get(root[:]) != nil
		return nil
	})
	return exists
}

// SaveCanonicalSlotBlockRoot records that root is the canonical block
// for slot, overwriting any earlier root recorded for that slot. This
// is the write a re-org issues for every slot along the chain it is
// adopting; sync and fork choice need O(1) "block at this canonical
// slot" lookups.
func (s *Store) SaveCanonicalSlotBlockRoot(ctx context.Context, slot uint64, root [32]byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(blockSlotIndexBucket).Put(encodeSlot(slot), root[:])
	})
}

// CanonicalBlockRootBySlot returns the root recorded as canonical for
// slot.
func (s *Store) CanonicalBlockRootBySlot(ctx context.Context, slot uint64) ([32]byte, error) {
	var root [32]byte
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(blockSlotIndexBucket).Get(encodeSlot(slot))
		if v == nil {
			return nil
		}
		copy(root[:], v)
		found = true
		return nil
	})
	if err != nil {
		return [32]byte{}, err
	}
	if !found {
		return [32]byte{}, ErrBlockNotFound
	}
	return root, nil
}

// CanonicalBlockBySlot returns the canonical block at slot.
func (s *Store) CanonicalBlockBySlot(ctx context.Context, slot uint64) (*types.SignedBeaconBlock, error) {
	root, err := s.CanonicalBlockRootBySlot(ctx, slot)
	if err != nil {
		return nil, err
	}
	return s.Block(ctx, root)
}

// SaveParentChildRelation records that childRoot's parent is
// parentRoot, building the fork index ProcessBlock's caller consults
// to feed every known child into fork choice.
func (s *Store) SaveParentChildRelation(ctx context.Context, parentRoot, childRoot [32]byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(blockParentIndexBucket)
		existing := b.Get(parentRoot[:])
		children := make([][32]byte, 0, len(existing)/32+1)
		for i := 0; i+32 <= len(existing); i += 32 {
			var c [32]byte
			copy(c[:], existing[i:i+32])
			if c == childRoot {
				return nil
			}
			children = append(children, c)
		}
		children = append(children, childRoot)
		flat := make([]byte, 0, 32*len(children))
		for _, c := range children {
			flat = append(flat, c[:]...)
		}
		return b.Put(parentRoot[:], flat)
	})
}

// ChildrenOf returns every block root previously saved with parentRoot
// as its parent.
func (s *Store) ChildrenOf(ctx context.Context, parentRoot [32]byte) ([][32]byte, error) {
	var children [][32]byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(blockParentIndexBucket).Get(parentRoot[:])
		for i := 0; i+32 <= len(v); i += 32 {
			var c [32]byte
			copy(c[:], v[i:i+32])
			children = append(children, c)
		}
		return nil
	})
	return children, err
}

// SaveHeadBlockRoot atomically sets root as the canonical chain head.
// It walks the new head's ancestry, writing the slot-index entry for
// every block along the way until it reaches a slot whose index
// already agrees (the fork point), then walks the previous head's
// ancestry down to that same fork point and deletes every slot-index
// entry that belongs only to the abandoned branch — old-branch slots
// the new branch doesn't cover are deleted, not merely left stale.
// Both walks and the head pointer update happen in one bolt
// transaction, so a crash mid-reorg can never leave the slot index
// pointing at a mix of old- and new-chain roots.
func (s *Store) SaveHeadBlockRoot(ctx context.Context, root [32]byte) error {
	var event *ReorgEvent

	err := s.db.Update(func(tx *bolt.Tx) error {
		blocks := tx.Bucket(blocksBucket)
		slotIndex := tx.Bucket(blockSlotIndexBucket)
		meta := tx.Bucket(chainMetadataBucket)

		oldHeadBytes := meta.Get(headRootKey)
		var oldHead [32]byte
		haveOldHead := oldHeadBytes != nil
		if haveOldHead {
			copy(oldHead[:], oldHeadBytes)
		}

		newSlots := make(map[uint64][32]byte)
		forkSlot := uint64(0)

		cur := root
		for {
			enc := blocks.Get(cur[:])
			if enc == nil {
				return errors.Wrap(ErrBlockNotFound, "db: reorg ancestor missing")
			}
			b, err := decodeBlock(enc)
			if err != nil {
				return err
			}
			slot := uint64(b.Block.Slot)
			key := encodeSlot(slot)
			if existing := slotIndex.Get(key); existing != nil && string(existing) == string(cur[:]) {
				forkSlot = slot
				break
			}
			if err := slotIndex.Put(key, append([]byte(nil), cur[:]...)); err != nil {
				return err
			}
			newSlots[slot] = cur
			if slot == 0 {
				forkSlot = 0
				break
			}
			cur = b.Block.ParentRoot
		}

		if err := meta.Put(headRootKey, root[:]); err != nil {
			return err
		}

		if !haveOldHead || oldHead == root {
			return nil
		}

		var orphaned []uint64
		oldCur := oldHead
		for {
			enc := blocks.Get(oldCur[:])
			if enc == nil {
				break
			}
			b, err := decodeBlock(enc)
			if err != nil {
				return err
			}
			slot := uint64(b.Block.Slot)
			if slot <= forkSlot {
				break
			}
			if _, onNewChain := newSlots[slot]; !onNewChain {
				key := encodeSlot(slot)
				if existing := slotIndex.Get(key); existing != nil && string(existing) == string(oldCur[:]) {
					if err := slotIndex.Delete(key); err != nil {
						return err
					}
					orphaned = append(orphaned, slot)
				}
			}
			if slot == 0 {
				break
			}
			oldCur = b.Block.ParentRoot
		}

		if len(newSlots) > 0 || len(orphaned) > 0 {
			canonical := make([]uint64, 0, len(newSlots))
			for slot := range newSlots {
				canonical = append(canonical, slot)
			}
			event = &ReorgEvent{
				OldHeadRoot:    oldHead,
				NewHeadRoot:    root,
				ForkSlot:       forkSlot,
				OrphanedSlots:  orphaned,
				CanonicalSlots: canonical,
				At:             time.Now(),
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if event != nil {
		s.recordReorg(*event)
	}
	return nil
}

// HeadBlockRoot returns the current canonical head root.
func (s *Store) HeadBlockRoot(ctx context.Context) ([32]byte, error) {
	var root [32]byte
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(chainMetadataBucket).Get(headRootKey)
		if v == nil {
			return nil
		}
		copy(root[:], v)
		found = true
		return nil
	})
	if err != nil {
		return [32]byte{}, err
	}
	if !found {
		return [32]byte{}, ErrCanonicalHeadNotFound
	}
	return root, nil
}

// HeadBlock returns the block at the current canonical head.
func (s *Store) HeadBlock(ctx context.Context) (*types.SignedBeaconBlock, error) {
	root, err := s.HeadBlockRoot(ctx)
	if err != nil {
		return nil, err
	}
	return s.Block(ctx, root)
}

// SaveGenesisBlockRoot records the root of the genesis block.
func (s *Store) SaveGenesisBlockRoot(ctx context.Context, root [32]byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(chainMetadataBucket).Put(genesisRootKey, root[:])
	})
}

// GenesisBlockRoot returns the previously saved genesis block root.
func (s *Store) GenesisBlockRoot(ctx context.Context) ([32]byte, error) {
	var root [32]byte
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(chainMetadataBucket).Get(genesisRootKey)
		if v == nil {
			return nil
		}
		copy(root[:], v)
		found = true
		return nil
	})
	if err != nil {
		return [32]byte{}, err
	}
	if !found {
		return [32]byte{}, ErrBlockNotFound
	}
	return root, nil
}

// SaveBlockScore persists a fork-choice weight snapshot for root, so a
// restarted node can rebuild its proto-array without replaying every
// attestation from genesis.
func (s *Store) SaveBlockScore(ctx context.Context, root [32]byte, weight uint64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, weight)
		return tx.Bucket(scoresBucket).Put(root[:], buf)
	})
}

// BlockScore returns the weight previously saved for root, or 0 if
// none was ever recorded.
func (s *Store) BlockScore(ctx context.Context, root [32]byte) uint64 {
	var weight uint64
	_ = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(scoresBucket).Get(root[:])
		if len(v) == 8 {
			weight = binary.BigEndian.Uint64(v)
		}
		return nil
	})
	return weight
}
