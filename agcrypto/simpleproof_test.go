package agcrypto_test

import (
	"context"
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/require"

	"github.com/alpenglow-engine/alpenglow/agcrypto"
	"github.com/alpenglow-engine/alpenglow/agcrypto/agcryptotest"
)

const proofMsg = "proof test message"

func proofFixture(t *testing.T, n int) ([]agcrypto.Ed25519Signer, []agcrypto.PubKey, agcrypto.AggregateSignatureProof) {
	t.Helper()

	signers := agcryptotest.DeterministicEd25519Signers(n)
	keys := make([]agcrypto.PubKey, n)
	for i, s := range signers {
		keys[i] = s.PubKey()
	}

	proof, err := agcrypto.SimpleProofScheme{}.New([]byte(proofMsg), keys, "fixture-hash")
	require.NoError(t, err)

	return signers, keys, proof
}

func mustSign(t *testing.T, s agcrypto.Ed25519Signer, msg string) []byte {
	t.Helper()

	sig, err := s.Sign(context.Background(), []byte(msg))
	require.NoError(t, err)
	return sig
}

func TestSimpleAggregateProof_AddSignature(t *testing.T) {
	t.Parallel()

	signers, _, proof := proofFixture(t, 4)

	require.NoError(t, proof.AddSignature(mustSign(t, signers[1], proofMsg), signers[1].PubKey()))

	var bits bitset.BitSet
	proof.SignatureBitSet(&bits)
	require.Equal(t, uint(1), bits.Count())
	require.True(t, bits.Test(1))

	t.Run("unknown key", func(t *testing.T) {
		outsider := agcryptotest.DeterministicEd25519Signers(10)[9]
		err := proof.AddSignature(mustSign(t, outsider, proofMsg), outsider.PubKey())
		require.ErrorIs(t, err, agcrypto.ErrUnknownKey)
	})

	t.Run("wrong message", func(t *testing.T) {
		err := proof.AddSignature(mustSign(t, signers[2], "some other message"), signers[2].PubKey())
		require.ErrorIs(t, err, agcrypto.ErrInvalidSignature)
	})

	t.Run("corrupted signature", func(t *testing.T) {
		sig := mustSign(t, signers[3], proofMsg)
		sig[0] ^= 0xff
		err := proof.AddSignature(sig, signers[3].PubKey())
		require.ErrorIs(t, err, agcrypto.ErrInvalidSignature)
	})

	// Failed adds must not have touched the bitset.
	proof.SignatureBitSet(&bits)
	require.Equal(t, uint(1), bits.Count())
}

func TestSimpleAggregateProof_Merge(t *testing.T) {
	t.Parallel()

	t.Run("disjoint proofs combine", func(t *testing.T) {
		t.Parallel()

		signers, _, a := proofFixture(t, 4)
		b := a.Derive()

		require.NoError(t, a.AddSignature(mustSign(t, signers[0], proofMsg), signers[0].PubKey()))
		require.NoError(t, b.AddSignature(mustSign(t, signers[1], proofMsg), signers[1].PubKey()))
		require.NoError(t, b.AddSignature(mustSign(t, signers[2], proofMsg), signers[2].PubKey()))

		res := a.Merge(b)
		require.True(t, res.AllValidSignatures)
		require.True(t, res.IncreasedSignatures)
		// a already had a signature b lacked.
		require.False(t, res.WasStrictSuperset)

		var bits bitset.BitSet
		a.SignatureBitSet(&bits)
		require.Equal(t, uint(3), bits.Count())
	})

	t.Run("superset detection", func(t *testing.T) {
		t.Parallel()

		signers, _, a := proofFixture(t, 4)
		b := a.Derive()

		require.NoError(t, b.AddSignature(mustSign(t, signers[0], proofMsg), signers[0].PubKey()))
		require.NoError(t, b.AddSignature(mustSign(t, signers[1], proofMsg), signers[1].PubKey()))

		res := a.Merge(b)
		require.True(t, res.AllValidSignatures)
		require.True(t, res.IncreasedSignatures)
		require.True(t, res.WasStrictSuperset)
	})

	t.Run("mismatched message", func(t *testing.T) {
		t.Parallel()

		_, keys, a := proofFixture(t, 4)

		other, err := agcrypto.SimpleProofScheme{}.New([]byte("different"), keys, "fixture-hash")
		require.NoError(t, err)

		require.Zero(t, a.Merge(other))
	})
}

func TestSimpleAggregateProof_MergeSparse(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		signers, _, full := proofFixture(t, 4)
		for _, i := range []int{0, 2, 3} {
			require.NoError(t, full.AddSignature(mustSign(t, signers[i], proofMsg), signers[i].PubKey()))
		}

		sparse := full.AsSparse()
		require.Equal(t, "fixture-hash", sparse.PubKeyHash)
		require.Len(t, sparse.Signatures, 3)

		// Sparse signatures come out in candidate key order.
		require.Equal(t, []byte{0, 0}, sparse.Signatures[0].KeyID)
		require.Equal(t, []byte{0, 2}, sparse.Signatures[1].KeyID)
		require.Equal(t, []byte{0, 3}, sparse.Signatures[2].KeyID)

		fresh := full.Derive()
		res := fresh.MergeSparse(sparse)
		require.True(t, res.AllValidSignatures)
		require.True(t, res.IncreasedSignatures)
		require.True(t, res.WasStrictSuperset)

		var want, got bitset.BitSet
		full.SignatureBitSet(&want)
		fresh.SignatureBitSet(&got)
		require.True(t, want.Equal(&got))
	})

	t.Run("wrong key hash", func(t *testing.T) {
		t.Parallel()

		signers, _, full := proofFixture(t, 4)
		require.NoError(t, full.AddSignature(mustSign(t, signers[0], proofMsg), signers[0].PubKey()))

		sparse := full.AsSparse()
		sparse.PubKeyHash = "some-other-set"

		require.Zero(t, full.Derive().MergeSparse(sparse))
	})

	t.Run("corrupted signature rejected", func(t *testing.T) {
		t.Parallel()

		signers, _, full := proofFixture(t, 4)
		require.NoError(t, full.AddSignature(mustSign(t, signers[0], proofMsg), signers[0].PubKey()))
		require.NoError(t, full.AddSignature(mustSign(t, signers[1], proofMsg), signers[1].PubKey()))

		sparse := full.AsSparse()
		sparse.Signatures[1].Sig[0] ^= 0xff

		fresh := full.Derive()
		res := fresh.MergeSparse(sparse)
		require.False(t, res.AllValidSignatures)
		require.True(t, res.IncreasedSignatures)

		var bits bitset.BitSet
		fresh.SignatureBitSet(&bits)
		require.Equal(t, uint(1), bits.Count())
		require.True(t, bits.Test(0))
	})

	t.Run("out of range key id", func(t *testing.T) {
		t.Parallel()

		signers, _, full := proofFixture(t, 4)
		require.NoError(t, full.AddSignature(mustSign(t, signers[0], proofMsg), signers[0].PubKey()))

		sparse := full.AsSparse()
		sparse.Signatures[0].KeyID = []byte{0xff, 0xff}

		res := full.Derive().MergeSparse(sparse)
		require.False(t, res.AllValidSignatures)
		require.False(t, res.IncreasedSignatures)
	})
}

func TestSimpleAggregateProof_HasSparseKeyID(t *testing.T) {
	t.Parallel()

	signers, _, proof := proofFixture(t, 4)
	require.NoError(t, proof.AddSignature(mustSign(t, signers[2], proofMsg), signers[2].PubKey()))

	has, valid := proof.HasSparseKeyID([]byte{0, 2})
	require.True(t, valid)
	require.True(t, has)

	has, valid = proof.HasSparseKeyID([]byte{0, 1})
	require.True(t, valid)
	require.False(t, has)

	_, valid = proof.HasSparseKeyID([]byte{0, 9})
	require.False(t, valid)

	_, valid = proof.HasSparseKeyID([]byte{1})
	require.False(t, valid)
}

func TestSimpleAggregateProof_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	signers, _, proof := proofFixture(t, 4)
	require.NoError(t, proof.AddSignature(mustSign(t, signers[0], proofMsg), signers[0].PubKey()))

	clone := proof.Clone()
	require.NoError(t, proof.AddSignature(mustSign(t, signers[1], proofMsg), signers[1].PubKey()))

	var bits bitset.BitSet
	clone.SignatureBitSet(&bits)
	require.Equal(t, uint(1), bits.Count())

	proof.SignatureBitSet(&bits)
	require.Equal(t, uint(2), bits.Count())
}

func TestSimpleProofScheme_KeyIDChecker(t *testing.T) {
	t.Parallel()

	_, keys, _ := proofFixture(t, 4)
	checker := agcrypto.SimpleProofScheme{}.KeyIDChecker(keys)

	require.True(t, checker.IsValid([]byte{0, 0}))
	require.True(t, checker.IsValid([]byte{0, 3}))
	require.False(t, checker.IsValid([]byte{0, 4}))
	require.False(t, checker.IsValid([]byte{0}))
	require.False(t, checker.IsValid([]byte{0, 0, 0}))
}
