package vtconsensustest

import (
	"github.com/alpenglow-engine/alpenglow/agcrypto"
	"github.com/alpenglow-engine/alpenglow/votor/vtconsensus"
)

// PrivVal is the "private" view of a validator,
// giving tests access to the signer backing the public validator.
type PrivVal struct {
	// The plain consensus validator.
	Val vtconsensus.Validator

	Signer agcrypto.Signer
}

type PrivVals []PrivVal

func (vs PrivVals) Vals() []vtconsensus.Validator {
	out := make([]vtconsensus.Validator, len(vs))
	for i, v := range vs {
		out[i] = v.Val
	}
	return out
}

func (vs PrivVals) PubKeys() []agcrypto.PubKey {
	out := make([]agcrypto.PubKey, len(vs))
	for i, v := range vs {
		out[i] = v.Signer.PubKey()
	}
	return out
}
