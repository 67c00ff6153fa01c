package vtconsensus

import (
	"encoding/binary"
	"strings"

	"lukechampine.com/blake3"
)

// ZeroHash is the 32-byte zero value used both as the genesis parent
// and as the block hash carried by skip votes and skip certificates.
var ZeroHash = strings.Repeat("\x00", 32)

// Block is created once by the view's leader and immutable thereafter.
type Block struct {
	Slot uint64
	View uint64

	Hash       string
	ParentHash string

	Proposer ValidatorID

	Timestamp Tick

	// Proposer's signature over the proposal signing content.
	Signature []byte
}

// HashScheme determines a block's hash from its contents.
// Block hashing must be a pure function of the identifying fields
// so that independent validators derive identical hashes.
type HashScheme interface {
	BlockHash(b Block) (string, error)
}

// Blake3HashScheme hashes the identifying block fields with blake3.
// The Hash and Signature fields are excluded from the input.
type Blake3HashScheme struct{}

func (Blake3HashScheme) BlockHash(b Block) (string, error) {
	h := blake3.New(32, nil)

	_ = binary.Write(h, binary.BigEndian, b.Slot)
	_ = binary.Write(h, binary.BigEndian, b.View)
	_, _ = h.Write([]byte(b.ParentHash))
	_ = binary.Write(h, binary.BigEndian, uint16(b.Proposer))
	_ = binary.Write(h, binary.BigEndian, uint64(b.Timestamp))

	return string(h.Sum(nil)), nil
}
