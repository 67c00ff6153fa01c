package agcrypto

import "errors"

var (
	// ErrUnknownKey is returned when adding a signature
	// for a key outside the candidate key set.
	ErrUnknownKey = errors.New("key not present in candidate key set")

	// ErrInvalidSignature is returned when a signature
	// fails verification against its claimed key.
	ErrInvalidSignature = errors.New("signature failed verification")
)
