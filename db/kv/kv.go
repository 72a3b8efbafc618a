// Package kv is a bolt-backed implementation of the chain database:
// content-addressed blocks and states, a slot-to-root index for
// canonical lookups, and the head/genesis pointers fork choice and
// sync need across restarts.
package kv

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

var log = logrus.WithField("prefix", "db/kv")

const databaseFileName = "beaconchain.db"

// maxReorgEvents bounds the in-memory re-org ring buffer so a
// long-running node pinned by repeated short re-orgs never grows this
// unbounded.
const maxReorgEvents = 256

// ReorgEvent records one SaveHeadBlockRoot call that changed the
// canonical head away from its previous value: the old and new head
// roots, the fork slot, and which slots were orphaned or became
// canonical. A queryable log
// the sync loop and tests can assert against.
type ReorgEvent struct {
	OldHeadRoot    [32]byte
	NewHeadRoot    [32]byte
	ForkSlot       uint64
	OrphanedSlots  []uint64
	CanonicalSlots []uint64
	At             time.Time
}

// Store is a bolt-backed key-value chain database. All access goes
// through db.View/db.Update so every read and write is a transaction.
type Store struct {
	db           *bolt.DB
	databasePath string

	reorgMu     sync.Mutex
	reorgEvents []ReorgEvent
}

// NewKVStore opens (creating if necessary) a bolt database rooted at
// dirPath and ensures every bucket this package writes to exists.
func NewKVStore(ctx context.Context, dirPath string) (*Store, error) {
	if err := os.MkdirAll(dirPath, 0700); err != nil {
		return nil, errors.Wrap(err, "db: create data directory")
	}
	datafile := filepath.Join(dirPath, databaseFileName)
	boltDB, err := bolt.Open(datafile, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, errors.New("db: cannot obtain database lock, may be in use by another process")
		}
		return nil, errors.Wrap(err, "db: open bolt database")
	}

	s := &Store{db: boltDB, databasePath: dirPath}
	if err := s.db.Update(func(tx *bolt.Tx) error {
		return createBuckets(tx,
			blocksBucket,
			blockSlotIndexBucket,
			blockParentIndexBucket,
			statesBucket,
			scoresBucket,
			chainMetadataBucket,
		)
	}); err != nil {
		boltDB.Close()
		return nil, errors.Wrap(err, "db: create buckets")
	}

	log.WithField("path", datafile).Debug("opened chain database")
	return s, nil
}

func createBuckets(tx *bolt.Tx, buckets ...[]byte) error {
	for _, b := range buckets {
		if _, err := tx.CreateBucketIfNotExists(b); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying bolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DatabasePath returns the directory this store writes files under.
func (s *Store) DatabasePath() string {
	return s.databasePath
}

// ClearDB removes the database file from disk. Used by the
// beacon-chain CLI's --clear-db flag.
func (s *Store) ClearDB() error {
	if err := s.db.Close(); err != nil {
		return err
	}
	return os.Remove(filepath.Join(s.databasePath, databaseFileName))
}

// ReorgEvents returns a copy of the bounded re-org history recorded by
// SaveHeadBlockRoot, oldest first.
func (s *Store) ReorgEvents() []ReorgEvent {
	s.reorgMu.Lock()
	defer s.reorgMu.Unlock()
	out := make([]ReorgEvent, len(s.reorgEvents))
	copy(out, s.reorgEvents)
	return out
}

func (s *Store) recordReorg(ev ReorgEvent) {
	s.reorgMu.Lock()
	defer s.reorgMu.Unlock()
	s.reorgEvents = append(s.reorgEvents, ev)
	if len(s.reorgEvents) > maxReorgEvents {
		s.reorgEvents = s.reorgEvents[len(s.reorgEvents)-maxReorgEvents:]
	}
}
