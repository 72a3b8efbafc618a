// Package bls implements the BLS verification surface: aggregate
// public keys, aggregate signatures, and domain-separated verification
// under BLS12-381.
package bls

import (
	blst "github.com/supranational/blst/bindings/go"

	"github.com/pkg/errors"
)

// dst is the hash-to-curve domain separation tag used for every
// signature in this package, matching the min-pk ciphersuite eth2
// consensus clients settled on.
const dst = "BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_POP_"

// ErrInvalidSignature is returned when a single or aggregate signature
// fails verification.
var ErrInvalidSignature = errors.New("bls: invalid signature")

// PublicKey wraps a G1 affine point.
type PublicKey struct {
	p *blst.P1Affine
}

// Signature wraps a G2 affine point.
type Signature struct {
	s *blst.P2Affine
}

// SecretKey wraps a scalar secret key, used only by test fixtures and
// the (external) validator client's key-management contract — never
// by the consensus engine itself.
type SecretKey struct {
	sk *blst.SecretKey
}

// SecretKeyFromIKM derives a secret key from at least 32 bytes of
// input key material, the way the (external) validator client's
// key-management contract is expected to. Exposed here only so test
// fixtures can produce real signatures rather than stubbing BLS out.
func SecretKeyFromIKM(ikm []byte) (SecretKey, error) {
	if len(ikm) < 32 {
		return SecretKey{}, errors.New("bls: IKM must be at least 32 bytes")
	}
	sk := blst.KeyGen(ikm)
	if sk == nil {
		return SecretKey{}, errors.New("bls: key generation failed")
	}
	return SecretKey{sk: sk}, nil
}

// PublicKey derives the G1 public key corresponding to sk.
func (sk SecretKey) PublicKey() PublicKey {
	return PublicKey{p: new(blst.P1Affine).From(sk.sk)}
}

// Sign signs msg (expected to already be a domain-separated signing
// root produced by core/signing) under sk.
func (sk SecretKey) Sign(msg []byte) Signature {
	return Signature{s: new(blst.P2Affine).Sign(sk.sk, msg, []byte(dst))}
}

// Marshal returns the 48-byte compressed encoding of pub.
func (pub PublicKey) Marshal() [48]byte {
	var out [48]byte
	copy(out[:], pub.p.Compress())
	return out
}

// Marshal returns the 96-byte compressed encoding of sig.
func (sig Signature) Marshal() [96]byte {
	var out [96]byte
	copy(out[:], sig.s.Compress())
	return out
}

// PublicKeyFromBytes decodes a 48-byte compressed G1 point.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	p := new(blst.P1Affine).Uncompress(b)
	if p == nil {
		return PublicKey{}, errors.New("bls: invalid public key bytes")
	}
	if !p.KeyValidate() {
		return PublicKey{}, errors.New("bls: public key fails group/infinity check")
	}
	return PublicKey{p: p}, nil
}

// SignatureFromBytes decodes a 96-byte compressed G2 point.
func SignatureFromBytes(b []byte) (Signature, error) {
	s := new(blst.P2Affine).Uncompress(b)
	if s == nil {
		return Signature{}, errors.New("bls: invalid signature bytes")
	}
	return Signature{s: s}, nil
}

// AggregatePublicKeys sums pubkeys as G1 points.
func AggregatePublicKeys(pubs []PublicKey) (PublicKey, error) {
	if len(pubs) == 0 {
		return PublicKey{}, errors.New("bls: cannot aggregate zero public keys")
	}
	affines := make([]*blst.P1Affine, len(pubs))
	for i, p := range pubs {
		affines[i] = p.p
	}
	agg := new(blst.P1Aggregate)
	if !agg.Aggregate(affines, false) {
		return PublicKey{}, errors.New("bls: public key aggregation failed")
	}
	return PublicKey{p: agg.ToAffine()}, nil
}

// AggregateSignatures sums signatures as G2 points.
func AggregateSignatures(sigs []Signature) (Signature, error) {
	if len(sigs) == 0 {
		return Signature{}, errors.New("bls: cannot aggregate zero signatures")
	}
	affines := make([]*blst.P2Affine, len(sigs))
	for i, s := range sigs {
		affines[i] = s.s
	}
	agg := new(blst.P2Aggregate)
	if !agg.Aggregate(affines, false) {
		return Signature{}, errors.New("bls: signature aggregation failed")
	}
	return Signature{s: agg.ToAffine()}, nil
}

// Verify checks sig over msg under pub. msg is expected to already be
// the domain-separated signing root produced by core/signing.
func Verify(sig Signature, pub PublicKey, msg []byte) bool {
	return sig.s.Verify(true, pub.p, true, msg, []byte(dst))
}

// VerifyAggregate checks a single aggregate signature over one message
// shared by all public keys (used for IndexedAttestation and slashing checks,
// where every attester signs the identical AttestationData root).
func VerifyAggregate(sig Signature, pubs []PublicKey, msg []byte) bool {
	agg, err := AggregatePublicKeys(pubs)
	if err != nil {
		return false
	}
	return Verify(sig, agg, msg)
}
