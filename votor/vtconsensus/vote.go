package vtconsensus

import (
	"fmt"

	"github.com/alpenglow-engine/alpenglow/agcrypto"
)

// VoteType distinguishes commit votes, which endorse a specific block,
// from skip votes, which agree to advance past a view without finalizing.
type VoteType uint8

const (
	VoteCommit VoteType = iota
	VoteSkip
)

func (t VoteType) String() string {
	switch t {
	case VoteCommit:
		return "commit"
	case VoteSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// VoteTarget identifies what is being voted on.
// Skip votes carry [ZeroHash] as the block hash.
type VoteTarget struct {
	Slot uint64
	View uint64

	BlockHash string
}

// Vote is the wire form of a single validator's vote.
// An honest validator casts at most one commit vote per view;
// conflicting commit votes in one view are equivocation.
type Vote struct {
	Voter ValidatorID

	Target VoteTarget

	Type VoteType

	Signature []byte

	Timestamp Tick
}

// SignBytes returns the signing content for the vote
// according to its type.
func (v Vote) SignBytes(s SignatureScheme) ([]byte, error) {
	switch v.Type {
	case VoteCommit:
		return CommitSignBytes(v.Target, s)
	case VoteSkip:
		return SkipSignBytes(v.Target, s)
	default:
		return nil, fmt.Errorf("%w: unknown vote type %d", ErrInvalidVote, v.Type)
	}
}

// VoteProof collects commit-vote signature proofs for one view,
// keyed by candidate block hash.
type VoteProof struct {
	Slot uint64
	View uint64

	Proofs map[string]agcrypto.AggregateSignatureProof
}

// AsSparse converts the full proof into its network representation.
func (p VoteProof) AsSparse() (SparseVoteProof, error) {
	out := SparseVoteProof{
		Slot: p.Slot,
		View: p.View,

		Proofs: make(map[string][]agcrypto.SparseSignature, len(p.Proofs)),
	}

	// Any entry determines the pub key hash.
	for _, proof := range p.Proofs {
		out.PubKeyHash = string(proof.PubKeyHash())
		break
	}

	for blockHash, proof := range p.Proofs {
		if pubKeyHash := string(proof.PubKeyHash()); pubKeyHash != out.PubKeyHash {
			return out, fmt.Errorf(
				"public key hash mismatch when converting vote proof to sparse: expected %x, got %x",
				out.PubKeyHash, pubKeyHash,
			)
		}
		out.Proofs[blockHash] = proof.AsSparse().Signatures
	}

	return out, nil
}

// SparseVoteProof is the network representation of a view's vote proofs.
type SparseVoteProof struct {
	Slot uint64
	View uint64

	PubKeyHash string

	Proofs map[string][]agcrypto.SparseSignature
}
