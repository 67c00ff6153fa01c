package vtconsensus

import (
	"fmt"

	"github.com/alpenglow-engine/alpenglow/agcrypto"
	"github.com/bits-and-blooms/bitset"
)

// CertType is the certificate classification:
// fast (single round, 4/5 stake), slow (fallback, 3/5 stake),
// or skip (view advance, 2/3 stake).
type CertType uint8

const (
	CertFast CertType = iota
	CertSlow
	CertSkip
)

func (t CertType) String() string {
	switch t {
	case CertFast:
		return "fast"
	case CertSlow:
		return "slow"
	case CertSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// Certificate is aggregated, stake-weighted proof that a quorum voted
// for a specific block (or for skipping) in a specific view.
// A certificate is created once and never mutated.
type Certificate struct {
	Slot uint64
	View uint64

	// ZeroHash for skip certificates.
	BlockHash string

	Type CertType

	// The aggregated signatures backing the certificate.
	Proof agcrypto.SparseSignatureProof

	// Sum of the signers' stake at creation time.
	// Revalidation recomputes this from the signer set;
	// a mismatch invalidates the certificate.
	Stake uint64
}

// BuildCertificate assembles a certificate from a full signature proof,
// verifying the proof's stake meets the threshold for the requested type.
func BuildCertificate(
	slot, view uint64,
	blockHash string,
	ct CertType,
	proof agcrypto.AggregateSignatureProof,
	ledger StakeLedger,
) (Certificate, error) {
	if ct == CertSkip && blockHash != ZeroHash {
		return Certificate{}, fmt.Errorf(
			"%w: skip certificate must carry the zero hash", ErrInvalidCertificate,
		)
	}
	if ct != CertSkip && blockHash == ZeroHash {
		return Certificate{}, fmt.Errorf(
			"%w: %s certificate must reference a block", ErrInvalidCertificate, ct,
		)
	}

	var bits bitset.BitSet
	proof.SignatureBitSet(&bits)
	stake := ledger.StakeOfBits(&bits)

	if !ledger.MeetsQuorum(ct, stake) {
		return Certificate{}, fmt.Errorf(
			"%w: stake %d of %d does not meet %s threshold",
			ErrInvalidCertificate, stake, ledger.TotalStake(), ct,
		)
	}

	return Certificate{
		Slot:      slot,
		View:      view,
		BlockHash: blockHash,
		Type:      ct,
		Proof:     proof.AsSparse(),
		Stake:     stake,
	}, nil
}

// ValidateCertificate fully re-verifies an untrusted certificate:
// every signature is checked against the trusted validator set,
// the signer stake is recomputed from the verified signer bits,
// and the declared stake and threshold must both hold.
func ValidateCertificate(
	c Certificate,
	ledger StakeLedger,
	sigScheme SignatureScheme,
	proofScheme agcrypto.AggregateProofScheme,
) error {
	set := ledger.Set()

	if c.Proof.PubKeyHash != set.PubKeyHash {
		return fmt.Errorf(
			"%w: certificate references unknown validator set", ErrInvalidCertificate,
		)
	}

	vt := VoteTarget{Slot: c.Slot, View: c.View, BlockHash: c.BlockHash}

	var signContent []byte
	var err error
	switch c.Type {
	case CertFast, CertSlow:
		if c.BlockHash == ZeroHash {
			return fmt.Errorf(
				"%w: %s certificate must reference a block", ErrInvalidCertificate, c.Type,
			)
		}
		signContent, err = CommitSignBytes(vt, sigScheme)
	case CertSkip:
		if c.BlockHash != ZeroHash {
			return fmt.Errorf(
				"%w: skip certificate must carry the zero hash", ErrInvalidCertificate,
			)
		}
		signContent, err = SkipSignBytes(vt, sigScheme)
	default:
		return fmt.Errorf("%w: unknown certificate type %d", ErrInvalidCertificate, c.Type)
	}
	if err != nil {
		return fmt.Errorf("failed to build certificate sign bytes: %w", err)
	}

	proof, err := proofScheme.New(signContent, set.PubKeys(), set.PubKeyHash)
	if err != nil {
		return fmt.Errorf("failed to build signature proof for certificate: %w", err)
	}

	res := proof.MergeSparse(c.Proof)
	if !res.AllValidSignatures {
		return fmt.Errorf("%w: bad aggregate signature", ErrInvalidCertificate)
	}
	if !res.IncreasedSignatures {
		return fmt.Errorf("%w: certificate carries no signatures", ErrInvalidCertificate)
	}

	var bits bitset.BitSet
	proof.SignatureBitSet(&bits)
	stake := ledger.StakeOfBits(&bits)

	if stake != c.Stake {
		return fmt.Errorf(
			"%w: declared stake %d does not match signer stake %d",
			ErrInvalidCertificate, c.Stake, stake,
		)
	}
	if !ledger.MeetsQuorum(c.Type, stake) {
		return fmt.Errorf(
			"%w: stake %d of %d below %s threshold",
			ErrInvalidCertificate, stake, ledger.TotalStake(), c.Type,
		)
	}

	return nil
}
