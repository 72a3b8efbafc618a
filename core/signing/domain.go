// Package signing computes domain-separated signing roots and caches
// BLS public keys, backing every signature check in core/blocks and
// core/transition.
package signing

import (
	"encoding/binary"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/strata-network/beacon/consensus-types/types"
	"github.com/strata-network/beacon/crypto/bls"
)

const pubkeyCacheSize = 100000

// Verifier wraps a BLS public-key cache (Design Note:
// module-level caches are made explicit and threaded through callers
// rather than living behind package-global state).
type Verifier struct {
	pubkeys *lru.Cache
}

// NewVerifier constructs a Verifier with its own cache handle.
func NewVerifier() (*Verifier, error) {
	c, err := lru.New(pubkeyCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "signing: allocate pubkey cache")
	}
	return &Verifier{pubkeys: c}, nil
}

// PublicKey returns the decoded, group-checked PublicKey for raw,
// decoding (and validating) only on a cache miss.
func (v *Verifier) PublicKey(raw [48]byte) (bls.PublicKey, error) {
	if cached, ok := v.pubkeys.Get(raw); ok {
		return cached.(bls.PublicKey), nil
	}
	pub, err := bls.PublicKeyFromBytes(raw[:])
	if err != nil {
		return bls.PublicKey{}, err
	}
	v.pubkeys.Add(raw, pub)
	return pub, nil
}

// ComputeDomain builds the domain value mixed into every signing
// root: domain_type (4 bytes LE) concatenated with the fork version
// (4 bytes LE), packed into the low and high 32 bits of a
// little-endian uint64 — fork_version*2**32 + domain_type. An
// all-zero fork version is used for deposits, which precede genesis
// and therefore sign under a bare domain type.
func ComputeDomain(domainType uint64, forkVersion [4]byte) uint64 {
	fv := binary.LittleEndian.Uint32(forkVersion[:])
	return domainType | (uint64(fv) << 32)
}

// SigningRoot mixes domain into root the way hash-to-G2 consumes it:
// the 32-byte object root followed by the 8-byte big-endian domain.
func SigningRoot(objectRoot [32]byte, domain uint64) []byte {
	out := make([]byte, 40)
	copy(out[:32], objectRoot[:])
	binary.BigEndian.PutUint64(out[32:], domain)
	return out
}

// VerifyObjectSignature is the common path used by every C6 processor:
// decode pubkey (via cache), compute the signing root for a
// HashTreeRoot-able message under domainType and forkVersion, and verify sig.
func (v *Verifier) VerifyObjectSignature(
	msg interface{ HashTreeRoot() ([32]byte, error) },
	pubkeyRaw [48]byte,
	sig [96]byte,
	domainType uint64,
	forkVersion [4]byte,
) error {
	root, err := msg.HashTreeRoot()
	if err != nil {
		return errors.Wrap(err, "signing: hash tree root")
	}
	pub, err := v.PublicKey(pubkeyRaw)
	if err != nil {
		return errors.Wrap(err, "signing: decode public key")
	}
	signature, err := bls.SignatureFromBytes(sig[:])
	if err != nil {
		return errors.Wrap(err, "signing: decode signature")
	}
	domain := ComputeDomain(domainType, forkVersion)
	signingRoot := SigningRoot(root, domain)
	if !bls.Verify(signature, pub, signingRoot) {
		return bls.ErrInvalidSignature
	}
	return nil
}

// VerifyIndexedAttestationSignature verifies an aggregate signature
// against the hash-tree-root of att.Data itself for every attesting
// index's public key; no custody bit is hashed into the signed root.
func (v *Verifier) VerifyIndexedAttestationSignature(
	att *types.IndexedAttestation,
	pubkeysByIndex map[uint64][48]byte,
	domainType uint64,
	forkVersion [4]byte,
) error {
	root, err := att.Data.HashTreeRoot()
	if err != nil {
		return errors.Wrap(err, "signing: hash attestation data")
	}
	pubs := make([]bls.PublicKey, 0, len(att.AttestingIndices))
	for _, idx := range att.AttestingIndices {
		raw, ok := pubkeysByIndex[idx]
		if !ok {
			return errors.Errorf("signing: missing public key for validator %d", idx)
		}
		pub, err := v.PublicKey(raw)
		if err != nil {
			return err
		}
		pubs = append(pubs, pub)
	}
	signature, err := bls.SignatureFromBytes(att.Signature[:])
	if err != nil {
		return errors.Wrap(err, "signing: decode signature")
	}
	domain := ComputeDomain(domainType, forkVersion)
	signingRoot := SigningRoot(root, domain)
	if !bls.VerifyAggregate(signature, pubs, signingRoot) {
		return bls.ErrInvalidSignature
	}
	return nil
}
