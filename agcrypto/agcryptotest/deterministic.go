package agcryptotest

import (
	"crypto/ed25519"
	"encoding/binary"
	"sync"

	"github.com/alpenglow-engine/alpenglow/agcrypto"
	"lukechampine.com/blake3"
)

var (
	detMu      sync.Mutex
	detSigners []agcrypto.Ed25519Signer
)

// DeterministicEd25519Signers returns n deterministically generated signers.
//
// Deterministic keys keep logs and IDs stable across test runs,
// and generated keys are cached so repeated calls cost nothing
// beyond the first.
func DeterministicEd25519Signers(n int) []agcrypto.Ed25519Signer {
	detMu.Lock()
	defer detMu.Unlock()

	for i := len(detSigners); i < n; i++ {
		detSigners = append(detSigners, deterministicSigner(i))
	}

	out := make([]agcrypto.Ed25519Signer, n)
	copy(out, detSigners)
	return out
}

func deterministicSigner(idx int) agcrypto.Ed25519Signer {
	input := make([]byte, 0, 32)
	input = append(input, "alpenglow_deterministic_signer|"...)
	input = binary.BigEndian.AppendUint64(input, uint64(idx))

	seed := blake3.Sum256(input)
	priv := ed25519.NewKeyFromSeed(seed[:])

	return agcrypto.NewEd25519Signer(priv)
}
