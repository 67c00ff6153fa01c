package vtconsensustest

import (
	"github.com/alpenglow-engine/alpenglow/agcrypto"
	"github.com/alpenglow-engine/alpenglow/agcrypto/agcryptotest"
	"github.com/alpenglow-engine/alpenglow/votor/vtconsensus"
)

// DeterministicValidators returns one validator per entry in stakes,
// with deterministic ed25519 keys so repeated runs of the same test
// produce identical IDs and log output.
//
// All validators start honest; tests adjust Status directly
// before building a fixture when modeling faults.
func DeterministicValidators(stakes []uint64) PrivVals {
	res := make(PrivVals, len(stakes))
	signers := agcryptotest.DeterministicEd25519Signers(len(stakes))

	for i := range res {
		res[i] = PrivVal{
			Val: vtconsensus.Validator{
				PubKey: signers[i].PubKey().(agcrypto.Ed25519PubKey),
				Stake:  stakes[i],
				Status: vtconsensus.StatusHonest,
			},
			Signer: signers[i],
		}
	}

	return res
}
