package vtconsensus

import "errors"

// Per-message errors are local and non-fatal:
// a validator rejects the offending input and keeps running.
var (
	// ErrInvalidBlock indicates a block with a bad parent, slot,
	// hash, or proposer signature. The block receives no vote.
	ErrInvalidBlock = errors.New("invalid block")

	// ErrInvalidVote indicates a vote with a malformed target
	// or a signature that fails verification. The vote is dropped.
	ErrInvalidVote = errors.New("invalid vote")

	// ErrInvalidCertificate indicates a certificate whose stake is
	// below its declared threshold, whose signer set does not match
	// its stake claim, or whose signatures fail verification.
	// Such a certificate never finalizes anything.
	ErrInvalidCertificate = errors.New("invalid certificate")

	// ErrStaleMessage indicates a message for a view or slot
	// below the validator's current position; it is ignored.
	ErrStaleMessage = errors.New("stale message")

	// ErrEquivocation indicates conflicting votes from one voter
	// in a single view. The conflict is recorded as evidence;
	// the voter's stake is never double-counted.
	ErrEquivocation = errors.New("equivocating vote")

	// ErrUnsafeConfiguration is flagged at startup when the declared
	// fault assumptions exceed the protocol's resilience bound
	// (Byzantine stake must stay below 1/5, Byzantine plus offline
	// at most 2/5 of total).
	ErrUnsafeConfiguration = errors.New("unsafe configuration")
)
