package agcrypto

import (
	"bytes"
	"encoding/binary"
	"maps"
	"sort"

	"github.com/bits-and-blooms/bitset"
)

// SimpleProofScheme satisfies [AggregateProofScheme]
// using a plain, non-aggregating signature type such as ed25519.
// Each sparse signature represents exactly one validator key,
// identified by its big-endian uint16 index into the candidate set.
type SimpleProofScheme struct{}

func (SimpleProofScheme) New(
	msg []byte, candidateKeys []PubKey, pubKeyHash string,
) (AggregateSignatureProof, error) {
	return NewSimpleAggregateProof(msg, candidateKeys, pubKeyHash)
}

func (SimpleProofScheme) KeyIDChecker(keys []PubKey) KeyIDChecker {
	return uint16RangeKeyIDChecker{nKeys: len(keys)}
}

// SimpleAggregateProof is the simplest signature proof,
// tracking independent signature-key pairs without aggregation.
type SimpleAggregateProof struct {
	msg []byte

	// string(signature bytes) -> signing key.
	sigs map[string]PubKey

	// Candidate keys in canonical order.
	keys []PubKey

	// string(pub key bytes) -> index in keys.
	keyIdxs map[string]int

	// Identifies the candidate key set,
	// so independent proofs can agree they reference the same validators.
	keyHash string

	bits *bitset.BitSet
}

func NewSimpleAggregateProof(msg []byte, candidateKeys []PubKey, pubKeyHash string) (SimpleAggregateProof, error) {
	keyIdxs := make(map[string]int, len(candidateKeys))
	for i, k := range candidateKeys {
		keyIdxs[string(k.PubKeyBytes())] = i
	}

	return SimpleAggregateProof{
		msg:     msg,
		sigs:    make(map[string]PubKey),
		keys:    candidateKeys,
		keyIdxs: keyIdxs,
		keyHash: pubKeyHash,
		bits:    bitset.New(uint(len(candidateKeys))),
	}, nil
}

func (p SimpleAggregateProof) Message() []byte {
	return p.msg
}

func (p SimpleAggregateProof) PubKeyHash() []byte {
	return []byte(p.keyHash)
}

func (p SimpleAggregateProof) AddSignature(sig []byte, key PubKey) error {
	keyIdx, ok := p.keyIdxs[string(key.PubKeyBytes())]
	if !ok {
		return ErrUnknownKey
	}
	if !key.Verify(p.msg, sig) {
		return ErrInvalidSignature
	}

	p.sigs[string(sig)] = key
	p.bits.Set(uint(keyIdx))
	return nil
}

func (p SimpleAggregateProof) Matches(other AggregateSignatureProof) bool {
	o := other.(SimpleAggregateProof)

	if !bytes.Equal(p.msg, o.msg) {
		return false
	}

	if p.keyHash != o.keyHash {
		return false
	}

	if len(p.keys) != len(o.keys) {
		return false
	}
	for i := range p.keys {
		if !p.keys[i].Equal(o.keys[i]) {
			return false
		}
	}

	return true
}

func (p SimpleAggregateProof) Merge(other AggregateSignatureProof) SignatureProofMergeResult {
	o := other.(SimpleAggregateProof)

	if !p.Matches(o) {
		// Zero value has all false fields.
		return SignatureProofMergeResult{}
	}

	res := SignatureProofMergeResult{
		// Assume valid until an invalid signature is found.
		AllValidSignatures: true,
	}

	// Record whether other was a strict superset before p.bits changes.
	// Two empty proofs also count.
	looksLikeStrictSuperset := (o.bits.None() && p.bits.None()) || o.bits.IsStrictSuperSet(p.bits)

	// Existing signatures are trusted; each of other's is checked.
	for otherSig, otherKey := range o.sigs {
		curKey, ok := p.sigs[otherSig]
		if !ok {
			// A signature we didn't have.
			// AddSignature re-verifies it before accepting.
			if err := p.AddSignature([]byte(otherSig), otherKey); err == nil {
				res.IncreasedSignatures = true
			} else {
				res.AllValidSignatures = false
			}

			continue
		}

		// Already present; it must map to the same key.
		if !curKey.Equal(otherKey) {
			res.AllValidSignatures = false
		}
	}

	res.WasStrictSuperset = looksLikeStrictSuperset && res.AllValidSignatures
	return res
}

func (p SimpleAggregateProof) MergeSparse(s SparseSignatureProof) SignatureProofMergeResult {
	if p.keyHash != s.PubKeyHash {
		return SignatureProofMergeResult{}
	}

	res := SignatureProofMergeResult{
		AllValidSignatures: true,
	}

	addedBits := bitset.New(uint(len(p.keys)))
	bitsBefore := p.bits.Clone()

	for _, sparseSig := range s.Signatures {
		idx, ok := sparseKeyIndex(sparseSig.KeyID, len(p.keys))
		if !ok {
			res.AllValidSignatures = false
			continue
		}
		key := p.keys[idx]

		if err := p.AddSignature(sparseSig.Sig, key); err != nil {
			res.AllValidSignatures = false
			continue
		}

		addedBits.Set(uint(idx))
	}
	if p.bits.Count() > bitsBefore.Count() {
		res.IncreasedSignatures = true
	}

	res.WasStrictSuperset = addedBits.IsStrictSuperSet(bitsBefore)

	return res
}

func (p SimpleAggregateProof) HasSparseKeyID(keyID []byte) (has, valid bool) {
	idx, ok := sparseKeyIndex(keyID, len(p.keys))
	if !ok {
		return false, false
	}

	return p.bits.Test(uint(idx)), true
}

func (p SimpleAggregateProof) SignatureBitSet(dst *bitset.BitSet) {
	p.bits.CopyFull(dst)
}

func (p SimpleAggregateProof) Clone() AggregateSignatureProof {
	return SimpleAggregateProof{
		msg: bytes.Clone(p.msg),

		sigs: maps.Clone(p.sigs), // New references to the same key values are fine.

		keys:    p.keys,
		keyIdxs: maps.Clone(p.keyIdxs),
		keyHash: p.keyHash,

		bits: p.bits.Clone(),
	}
}

func (p SimpleAggregateProof) Derive() AggregateSignatureProof {
	return SimpleAggregateProof{
		msg:     bytes.Clone(p.msg),
		sigs:    make(map[string]PubKey),
		keys:    p.keys,
		keyIdxs: maps.Clone(p.keyIdxs),
		keyHash: p.keyHash,

		bits: bitset.New(uint(len(p.keys))),
	}
}

func (p SimpleAggregateProof) AsSparse() SparseSignatureProof {
	sparseSigs := make([]SparseSignature, 0, len(p.sigs))
	for sigBytes, pubKey := range p.sigs {
		keyIdx := p.keyIdxs[string(pubKey.PubKeyBytes())]

		b := [2]byte{}
		binary.BigEndian.PutUint16(b[:], uint16(keyIdx))

		sparseSigs = append(sparseSigs, SparseSignature{
			KeyID: b[:],
			Sig:   []byte(sigBytes),
		})
	}

	// Outgoing signatures always in key order.
	// Key IDs are unique, so a stable sort is unnecessary.
	sort.Slice(sparseSigs, func(i, j int) bool {
		return bytes.Compare(sparseSigs[i].KeyID, sparseSigs[j].KeyID) < 0
	})

	return SparseSignatureProof{
		PubKeyHash: p.keyHash,
		Signatures: sparseSigs,
	}
}

// sparseKeyIndex decodes a big-endian uint16 key ID,
// reporting false when the ID is malformed or out of range.
func sparseKeyIndex(keyID []byte, nKeys int) (int, bool) {
	if len(keyID) != 2 {
		return 0, false
	}

	idx := int(binary.BigEndian.Uint16(keyID))
	if idx >= nKeys {
		return 0, false
	}

	return idx, true
}

// uint16RangeKeyIDChecker validates that a key ID formatted
// as a big-endian uint16 is within range of the key count.
type uint16RangeKeyIDChecker struct {
	nKeys int
}

func (c uint16RangeKeyIDChecker) IsValid(keyID []byte) bool {
	_, ok := sparseKeyIndex(keyID, c.nKeys)
	return ok
}
