package vtconsensus

import (
	"bytes"
	"fmt"
	"io"
)

// SignatureScheme determines the content validators sign
// for proposals, commit votes, and skip votes.
// The three signing domains must never collide:
// a skip signature replayed as a commit must fail verification.
type SignatureScheme interface {
	WriteProposalSigningContent(w io.Writer, b Block) (int, error)
	WriteCommitSigningContent(w io.Writer, vt VoteTarget) (int, error)
	WriteSkipSigningContent(w io.Writer, vt VoteTarget) (int, error)
}

// ProposalSignBytes returns the sign bytes for a block proposal.
func ProposalSignBytes(b Block, s SignatureScheme) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.WriteProposalSigningContent(&buf, b); err != nil {
		return nil, fmt.Errorf("failed to write proposal signing content: %w", err)
	}
	return buf.Bytes(), nil
}

// CommitSignBytes returns the sign bytes for a commit vote.
func CommitSignBytes(vt VoteTarget, s SignatureScheme) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.WriteCommitSigningContent(&buf, vt); err != nil {
		return nil, fmt.Errorf("failed to write commit signing content: %w", err)
	}
	return buf.Bytes(), nil
}

// SkipSignBytes returns the sign bytes for a skip vote.
func SkipSignBytes(vt VoteTarget, s SignatureScheme) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.WriteSkipSigningContent(&buf, vt); err != nil {
		return nil, fmt.Errorf("failed to write skip signing content: %w", err)
	}
	return buf.Bytes(), nil
}

// StandardSignatureScheme is the default signing-content layout:
// a domain prefix followed by the printf-rendered identifying fields.
type StandardSignatureScheme struct{}

func (StandardSignatureScheme) WriteProposalSigningContent(w io.Writer, b Block) (int, error) {
	return fmt.Fprintf(
		w, "alpenglow/proposal\nslot:%d\nview:%d\nparent:%x\nhash:%x\nproposer:%d\nts:%d",
		b.Slot, b.View, b.ParentHash, b.Hash, b.Proposer, b.Timestamp,
	)
}

func (StandardSignatureScheme) WriteCommitSigningContent(w io.Writer, vt VoteTarget) (int, error) {
	return fmt.Fprintf(
		w, "alpenglow/vote/commit\nslot:%d\nview:%d\nhash:%x",
		vt.Slot, vt.View, vt.BlockHash,
	)
}

func (StandardSignatureScheme) WriteSkipSigningContent(w io.Writer, vt VoteTarget) (int, error) {
	return fmt.Fprintf(
		w, "alpenglow/vote/skip\nslot:%d\nview:%d",
		vt.Slot, vt.View,
	)
}
