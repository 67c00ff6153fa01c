package agcrypto

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"fmt"

	"lukechampine.com/blake3"
)

// Ed25519PubKey wraps a standard library ed25519 public key
// to satisfy the [PubKey] interface.
type Ed25519PubKey ed25519.PublicKey

func NewEd25519PubKey(b []byte) (PubKey, error) {
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf(
			"ed25519 public key must be %d bytes, got %d",
			ed25519.PublicKeySize, len(b),
		)
	}
	return Ed25519PubKey(b), nil
}

func (e Ed25519PubKey) Address() []byte {
	sum := blake3.Sum256(e)
	return sum[:]
}

func (e Ed25519PubKey) PubKeyBytes() []byte {
	return []byte(e)
}

func (e Ed25519PubKey) Equal(other PubKey) bool {
	o, ok := other.(Ed25519PubKey)
	if !ok {
		return false
	}

	return bytes.Equal(e, o)
}

func (e Ed25519PubKey) Verify(msg, sig []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(e), msg, sig)
}

// Ed25519Signer is an in-process [Signer] holding an ed25519 private key.
type Ed25519Signer struct {
	priv ed25519.PrivateKey
	pub  Ed25519PubKey
}

func NewEd25519Signer(priv ed25519.PrivateKey) Ed25519Signer {
	return Ed25519Signer{
		priv: priv,
		pub:  Ed25519PubKey(priv.Public().(ed25519.PublicKey)),
	}
}

func (s Ed25519Signer) PubKey() PubKey {
	return s.pub
}

func (s Ed25519Signer) Sign(_ context.Context, input []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, input), nil
}
