package kv

// One bolt bucket per keyspace rather than a prefixed flat namespace,
// so re-org rewrites of the slot/canonical indices never collide with
// the content-addressed block/state buckets.
var (
	blocksBucket          = []byte("blocks")
	blockSlotIndexBucket  = []byte("slot_to_hash")
	blockParentIndexBucket = []byte("parent_to_children")
	statesBucket          = []byte("state")
	scoresBucket          = []byte("score")
	chainMetadataBucket   = []byte("chain_metadata")
)

var headRootKey = []byte("head_root")
var genesisRootKey = []byte("genesis_root")
