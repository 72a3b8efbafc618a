package cache

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

const maxProposerIndicesCacheSize = 4

// ProposerIndices is the cached shuffling result for one epoch's
// worth of proposer assignments, keyed by the block root that seeded
// it.
type ProposerIndices struct {
	BlockRoot       [32]byte
	ProposerIndices []uint64
}

// ErrNotProposerIndices is returned when the cache is asked to key an
// object that is not a *ProposerIndices.
var ErrNotProposerIndices = errors.New("cache: object is not *ProposerIndices")

// ProposerIndicesCache caches the proposer-index shuffle per block
// root, evicting the oldest entry once it grows past
// maxProposerIndicesCacheSize.
type ProposerIndicesCache struct {
	cache *lru.Cache
}

// NewProposerIndicesCache constructs an empty ProposerIndicesCache.
func NewProposerIndicesCache() *ProposerIndicesCache {
	c, err := lru.New(maxProposerIndicesCacheSize)
	if err != nil {
		// lru.New only errors for a non-positive size, which
		// maxProposerIndicesCacheSize never is.
		panic(err)
	}
	return &ProposerIndicesCache{cache: c}
}

// AddProposerIndices inserts item into the cache, keyed by its block
// root.
func (c *ProposerIndicesCache) AddProposerIndices(item *ProposerIndices) error {
	if item == nil {
		return ErrNotProposerIndices
	}
	c.cache.Add(item.BlockRoot, item.ProposerIndices)
	return nil
}

// ProposerIndices returns the cached proposer index list for
// blockRoot, or nil if none is cached.
func (c *ProposerIndicesCache) ProposerIndices(blockRoot [32]byte) ([]uint64, error) {
	v, ok := c.cache.Get(blockRoot)
	if !ok {
		return nil, nil
	}
	return v.([]uint64), nil
}

// HasProposerIndices reports whether blockRoot has a cached entry.
func (c *ProposerIndicesCache) HasProposerIndices(blockRoot [32]byte) (bool, error) {
	return c.cache.Contains(blockRoot), nil
}

// Len returns the number of entries currently cached.
func (c *ProposerIndicesCache) Len() int {
	return c.cache.Len()
}
