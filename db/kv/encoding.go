package kv

import (
	"bytes"
	"encoding/gob"

	"github.com/pkg/errors"
	"github.com/strata-network/beacon/consensus-types/types"
)

// encode/decode use encoding/gob rather than fastssz for the on-disk
// container format. The protocol's SSZ codec (consensus-types/types)
// already covers every wire- and hash-relevant encoding; bolt's value
// blobs are never transmitted or hashed, they are this process's own
// private storage format, so there is nothing for a protocol codec to
// buy here beyond what gob already gives for free (schema evolution
// across the pointer-heavy BeaconState graph without hand-maintained
// offset tables).
func encodeBlock(b *types.SignedBeaconBlock) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(b); err != nil {
		return nil, errors.Wrap(err, "db: encode block")
	}
	return buf.Bytes(), nil
}

func decodeBlock(enc []byte) (*types.SignedBeaconBlock, error) {
	b := &types.SignedBeaconBlock{}
	if err := gob.NewDecoder(bytes.NewReader(enc)).Decode(b); err != nil {
		return nil, errors.Wrap(err, "db: decode block")
	}
	return b, nil
}

func encodeState(s *types.BeaconState) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, errors.Wrap(err, "db: encode state")
	}
	return buf.Bytes(), nil
}

func decodeState(enc []byte) (*types.BeaconState, error) {
	s := &types.BeaconState{}
	if err := gob.NewDecoder(bytes.NewReader(enc)).Decode(s); err != nil {
		return nil, errors.Wrap(err, "db: decode state")
	}
	return s, nil
}
