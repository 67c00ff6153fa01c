package agcrypto

import "context"

// Signer is the minimal interface for producing a signature
// over arbitrary input bytes.
//
// The context parameter allows implementations backed by
// an external process or hardware device;
// in-process implementations may ignore it.
type Signer interface {
	// PubKey returns the public key associated with this signer.
	PubKey() PubKey

	// Sign produces a signature over the given input.
	Sign(ctx context.Context, input []byte) ([]byte, error)
}
