package agcrypto

import (
	"github.com/bits-and-blooms/bitset"
)

// AggregateSignatureProof tracks validator signatures over a single common message,
// standing in for a true aggregating scheme such as BLS.
// Constructors accept a "candidate public keys" slice,
// and the SignatureBitSet method reports which of those candidates
// have contributed a verified signature.
//
// A proof never holds an unverified signature:
// every path that accepts external data re-verifies it.
type AggregateSignatureProof interface {
	// Message is the signing content common to every signature in this proof.
	Message() []byte

	// PubKeyHash is a hash across all the candidate keys,
	// used as a quick check that two independent proofs
	// reference the same validator set.
	PubKeyHash() []byte

	// AddSignature verifies and adds a signature for a single candidate key.
	//
	// This is intended for the local validator's own signature;
	// signatures arriving from the network should go through MergeSparse.
	AddSignature(sig []byte, key PubKey) error

	// Matches reports whether the other proof references
	// the same message and candidate keys.
	// It does not inspect signatures.
	Matches(other AggregateSignatureProof) bool

	// Merge adds the signature information in other to the current proof,
	// without modifying other.
	// Other is untrusted: every signature it carries is re-verified.
	//
	// Merge panics if other is a different underlying type.
	Merge(other AggregateSignatureProof) SignatureProofMergeResult

	// MergeSparse merges a sparse proof received from the network.
	MergeSparse(SparseSignatureProof) SignatureProofMergeResult

	// HasSparseKeyID reports whether the proof already contains
	// a signature matching the given sparse key ID.
	// If the key ID does not map into the candidate key set,
	// the valid return parameter is false.
	HasSparseKeyID(keyID []byte) (has, valid bool)

	// SignatureBitSet writes the indices of candidate keys
	// with verified signatures into dst.
	// The caller provides dst to control allocations.
	SignatureBitSet(dst *bitset.BitSet)

	// Clone returns a deep copy of the proof,
	// for handing a read-only view to another goroutine.
	Clone() AggregateSignatureProof

	// Derive returns a copy of the proof with all signature data cleared.
	Derive() AggregateSignatureProof

	// AsSparse returns the minimal network representation of the proof.
	AsSparse() SparseSignatureProof
}

// SparseSignatureProof is the network representation of a signature proof.
// It omits the candidate key material;
// the receiving end merges it into a full proof built from trusted keys.
type SparseSignatureProof struct {
	// The PubKeyHash of the originating full proof.
	PubKeyHash string

	Signatures []SparseSignature
}

// SparseSignature pairs an implementation-specific key ID
// with the signature bytes for that key (or keys, when aggregating).
type SparseSignature struct {
	KeyID []byte

	Sig []byte
}

// SignatureProofMergeResult describes the outcome of merging
// signature data into an existing proof.
type SignatureProofMergeResult struct {
	// Whether every inspected signature was valid.
	// The zero value indicates a mismatched or entirely invalid merge.
	AllValidSignatures bool

	// Whether the merge added at least one new signature.
	IncreasedSignatures bool

	// Whether the incoming data was a strict superset of the existing proof.
	WasStrictSuperset bool
}

// AggregateProofScheme constructs [AggregateSignatureProof] instances
// and hosts methods independent of any particular proof.
type AggregateProofScheme interface {
	// New creates an empty proof for the given message and candidate keys.
	New(msg []byte, candidateKeys []PubKey, pubKeyHash string) (AggregateSignatureProof, error)

	// KeyIDChecker validates sparse key IDs against the given key set,
	// without requiring a full proof.
	KeyIDChecker(keys []PubKey) KeyIDChecker
}

// KeyIDChecker reports whether a sparse signature's key ID
// appears valid for a known set of public keys.
// A correct key ID does not imply a correct signature.
type KeyIDChecker interface {
	IsValid(keyID []byte) bool
}
