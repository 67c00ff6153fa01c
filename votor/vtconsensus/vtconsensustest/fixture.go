package vtconsensustest

import (
	"context"
	"fmt"

	"github.com/alpenglow-engine/alpenglow/agcrypto"
	"github.com/alpenglow-engine/alpenglow/votor/vtconsensus"
)

// Fixture bundles a deterministic validator set with the schemes
// the consensus core needs, plus helpers for producing
// correctly signed artifacts in tests.
type Fixture struct {
	PrivVals PrivVals

	ValSet vtconsensus.ValidatorSet
	Ledger vtconsensus.StakeLedger

	Schedule vtconsensus.LeaderSchedule

	HashScheme  vtconsensus.HashScheme
	SigScheme   vtconsensus.SignatureScheme
	ProofScheme agcrypto.AggregateProofScheme
}

// NewFixture builds a fixture with one validator per stake entry.
func NewFixture(stakes []uint64) *Fixture {
	privVals := DeterministicValidators(stakes)
	return NewFixtureFromPrivVals(privVals)
}

// NewFixtureFromPrivVals builds a fixture from already-adjusted privvals,
// for tests that mark some validators Byzantine or offline first.
func NewFixtureFromPrivVals(privVals PrivVals) *Fixture {
	valSet := vtconsensus.NewValidatorSet(privVals.Vals())

	return &Fixture{
		PrivVals: privVals,

		ValSet: valSet,
		Ledger: vtconsensus.NewStakeLedger(valSet),

		Schedule: vtconsensus.LeaderSchedule{
			Seed:       [32]byte{'a', 'l', 'p', 'e', 'n', 'g', 'l', 'o', 'w'},
			WindowSize: 4,
		},

		HashScheme:  vtconsensus.Blake3HashScheme{},
		SigScheme:   vtconsensus.StandardSignatureScheme{},
		ProofScheme: agcrypto.SimpleProofScheme{},
	}
}

// SignedProposal returns a block for (slot, view) with a valid hash
// and proposer signature. The proposer need not be the scheduled leader;
// tests exercising rejection paths rely on that.
func (f *Fixture) SignedProposal(
	proposer vtconsensus.ValidatorID,
	slot, view uint64,
	parentHash string,
	now vtconsensus.Tick,
) vtconsensus.Block {
	b := vtconsensus.Block{
		Slot:       slot,
		View:       view,
		ParentHash: parentHash,
		Proposer:   proposer,
		Timestamp:  now,
	}

	hash, err := f.HashScheme.BlockHash(b)
	if err != nil {
		panic(fmt.Errorf("failed to hash fixture block: %w", err))
	}
	b.Hash = hash

	signContent, err := vtconsensus.ProposalSignBytes(b, f.SigScheme)
	if err != nil {
		panic(fmt.Errorf("failed to build fixture proposal sign bytes: %w", err))
	}

	sig, err := f.PrivVals[proposer].Signer.Sign(context.Background(), signContent)
	if err != nil {
		panic(fmt.Errorf("failed to sign fixture proposal: %w", err))
	}
	b.Signature = sig

	return b
}

// SignedCommitVote returns a commit vote from the given voter.
func (f *Fixture) SignedCommitVote(
	voter vtconsensus.ValidatorID,
	vt vtconsensus.VoteTarget,
	now vtconsensus.Tick,
) vtconsensus.Vote {
	return f.signedVote(voter, vt, vtconsensus.VoteCommit, now)
}

// SignedSkipVote returns a skip vote from the given voter.
// The target's block hash is forced to the zero hash.
func (f *Fixture) SignedSkipVote(
	voter vtconsensus.ValidatorID,
	vt vtconsensus.VoteTarget,
	now vtconsensus.Tick,
) vtconsensus.Vote {
	vt.BlockHash = vtconsensus.ZeroHash
	return f.signedVote(voter, vt, vtconsensus.VoteSkip, now)
}

func (f *Fixture) signedVote(
	voter vtconsensus.ValidatorID,
	vt vtconsensus.VoteTarget,
	t vtconsensus.VoteType,
	now vtconsensus.Tick,
) vtconsensus.Vote {
	v := vtconsensus.Vote{
		Voter:     voter,
		Target:    vt,
		Type:      t,
		Timestamp: now,
	}

	signContent, err := v.SignBytes(f.SigScheme)
	if err != nil {
		panic(fmt.Errorf("failed to build fixture vote sign bytes: %w", err))
	}

	sig, err := f.PrivVals[voter].Signer.Sign(context.Background(), signContent)
	if err != nil {
		panic(fmt.Errorf("failed to sign fixture vote: %w", err))
	}
	v.Signature = sig

	return v
}

// CommitProof builds a full signature proof for the target
// containing verified signatures from the given voters.
func (f *Fixture) CommitProof(
	vt vtconsensus.VoteTarget,
	voters ...vtconsensus.ValidatorID,
) agcrypto.AggregateSignatureProof {
	signContent, err := vtconsensus.CommitSignBytes(vt, f.SigScheme)
	if err != nil {
		panic(fmt.Errorf("failed to build fixture commit sign bytes: %w", err))
	}
	return f.proofFor(signContent, vt, vtconsensus.VoteCommit, voters)
}

// SkipProof builds a full skip-vote signature proof for the target's view.
func (f *Fixture) SkipProof(
	vt vtconsensus.VoteTarget,
	voters ...vtconsensus.ValidatorID,
) agcrypto.AggregateSignatureProof {
	vt.BlockHash = vtconsensus.ZeroHash
	signContent, err := vtconsensus.SkipSignBytes(vt, f.SigScheme)
	if err != nil {
		panic(fmt.Errorf("failed to build fixture skip sign bytes: %w", err))
	}
	return f.proofFor(signContent, vt, vtconsensus.VoteSkip, voters)
}

func (f *Fixture) proofFor(
	signContent []byte,
	vt vtconsensus.VoteTarget,
	t vtconsensus.VoteType,
	voters []vtconsensus.ValidatorID,
) agcrypto.AggregateSignatureProof {
	proof, err := f.ProofScheme.New(signContent, f.PrivVals.PubKeys(), f.ValSet.PubKeyHash)
	if err != nil {
		panic(fmt.Errorf("failed to build fixture proof: %w", err))
	}

	for _, voter := range voters {
		v := f.signedVote(voter, vt, t, 0)
		if err := proof.AddSignature(v.Signature, f.PrivVals[voter].Signer.PubKey()); err != nil {
			panic(fmt.Errorf("failed to add fixture signature for %d: %w", voter, err))
		}
	}

	return proof
}

// Certificate builds a valid certificate of the given type,
// signed by the given voters. It panics if the voters' stake
// does not meet the type's threshold.
func (f *Fixture) Certificate(
	ct vtconsensus.CertType,
	vt vtconsensus.VoteTarget,
	voters ...vtconsensus.ValidatorID,
) vtconsensus.Certificate {
	var proof agcrypto.AggregateSignatureProof
	if ct == vtconsensus.CertSkip {
		vt.BlockHash = vtconsensus.ZeroHash
		proof = f.SkipProof(vt, voters...)
	} else {
		proof = f.CommitProof(vt, voters...)
	}

	cert, err := vtconsensus.BuildCertificate(vt.Slot, vt.View, vt.BlockHash, ct, proof, f.Ledger)
	if err != nil {
		panic(fmt.Errorf("failed to build fixture certificate: %w", err))
	}
	return cert
}
