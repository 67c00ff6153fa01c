package vtconsensus

import (
	"encoding/binary"
	"math"

	"github.com/alpenglow-engine/alpenglow/agcrypto"
	"lukechampine.com/blake3"
)

// ValidatorID is a validator's index into the canonical ordering
// of the validator set.
type ValidatorID uint16

// NoValidator is the sentinel returned by leader election
// over an empty or zero-stake validator set.
const NoValidator ValidatorID = math.MaxUint16

// ValidatorStatus is the fault-model classification of a validator.
// It never influences honest-path logic;
// it only feeds the startup resilience check and test adversaries.
type ValidatorStatus uint8

const (
	StatusHonest ValidatorStatus = iota
	StatusByzantine
	StatusOffline
)

func (s ValidatorStatus) String() string {
	switch s {
	case StatusHonest:
		return "honest"
	case StatusByzantine:
		return "byzantine"
	case StatusOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// Validator is a single stake-weighted participant.
// Stake is immutable for the lifetime of the consensus core;
// any external economic layer that adjusts stake does so
// by producing a new validator set.
type Validator struct {
	PubKey agcrypto.PubKey

	Stake uint64

	Status ValidatorStatus
}

// ValidatorSet is an ordered collection of validators
// with a precomputed hash identifying the key-and-stake assignment.
type ValidatorSet struct {
	Validators []Validator

	// Hash over the ordered public keys and stakes,
	// used to confirm two proofs reference the same set.
	PubKeyHash string
}

// NewValidatorSet computes the set hash for the given ordered validators.
func NewValidatorSet(vals []Validator) ValidatorSet {
	h := blake3.New(32, nil)
	for _, v := range vals {
		_, _ = h.Write(v.PubKey.PubKeyBytes())
		_ = binary.Write(h, binary.BigEndian, v.Stake)
	}

	return ValidatorSet{
		Validators: vals,
		PubKeyHash: string(h.Sum(nil)),
	}
}

func (vs ValidatorSet) PubKeys() []agcrypto.PubKey {
	out := make([]agcrypto.PubKey, len(vs.Validators))
	for i, v := range vs.Validators {
		out[i] = v.PubKey
	}
	return out
}

// Index returns the ID of the validator holding the given key.
func (vs ValidatorSet) Index(key agcrypto.PubKey) (ValidatorID, bool) {
	for i, v := range vs.Validators {
		if v.PubKey.Equal(key) {
			return ValidatorID(i), true
		}
	}
	return NoValidator, false
}

// InRange reports whether id addresses a member of the set.
func (vs ValidatorSet) InRange(id ValidatorID) bool {
	return int(id) < len(vs.Validators)
}
