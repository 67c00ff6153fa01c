// Package vtcodec marshals consensus messages for network transmission.
//
// The wire format is a single type byte followed by a msgpack body,
// so the transport layer can stay entirely content-agnostic.
package vtcodec

import (
	"errors"
	"fmt"

	"github.com/alpenglow-engine/alpenglow/votor/vtconsensus"
	"github.com/hashicorp/go-msgpack/v2/codec"
)

// MessageType is the wire discriminator for consensus payloads.
type MessageType uint8

const (
	_ MessageType = iota // Zero value reserved so empty payloads fail decoding.

	MsgBlock
	MsgVote
	MsgCertificate
)

func (t MessageType) String() string {
	switch t {
	case MsgBlock:
		return "block"
	case MsgVote:
		return "vote"
	case MsgCertificate:
		return "certificate"
	default:
		return "unknown"
	}
}

// ConsensusMessage is the sum of payloads a validator sends or receives.
// Exactly one field is non-nil.
type ConsensusMessage struct {
	Block *vtconsensus.Block

	Vote *vtconsensus.Vote

	Certificate *vtconsensus.Certificate
}

// Type returns the wire discriminator for the populated field,
// or zero if the message is empty or ambiguous.
func (m ConsensusMessage) Type() MessageType {
	switch {
	case m.Block != nil && m.Vote == nil && m.Certificate == nil:
		return MsgBlock
	case m.Vote != nil && m.Block == nil && m.Certificate == nil:
		return MsgVote
	case m.Certificate != nil && m.Block == nil && m.Vote == nil:
		return MsgCertificate
	default:
		return 0
	}
}

var mh codec.MsgpackHandle

// Marshal encodes the message as a type byte plus msgpack body.
func Marshal(m ConsensusMessage) ([]byte, error) {
	t := m.Type()

	var body any
	switch t {
	case MsgBlock:
		body = m.Block
	case MsgVote:
		body = m.Vote
	case MsgCertificate:
		body = m.Certificate
	default:
		return nil, errors.New("consensus message must contain exactly one payload")
	}

	var encoded []byte
	enc := codec.NewEncoderBytes(&encoded, &mh)
	if err := enc.Encode(body); err != nil {
		return nil, fmt.Errorf("failed to encode %s message: %w", t, err)
	}

	out := make([]byte, 0, 1+len(encoded))
	out = append(out, byte(t))
	out = append(out, encoded...)
	return out, nil
}

// Unmarshal decodes a wire payload produced by [Marshal].
// Unknown type bytes are rejected rather than skipped,
// since the transport never filters content.
func Unmarshal(data []byte) (ConsensusMessage, error) {
	if len(data) < 2 {
		return ConsensusMessage{}, errors.New("payload too short for consensus message")
	}

	t := MessageType(data[0])
	dec := codec.NewDecoderBytes(data[1:], &mh)

	var m ConsensusMessage
	var err error
	switch t {
	case MsgBlock:
		var b vtconsensus.Block
		err = dec.Decode(&b)
		m.Block = &b
	case MsgVote:
		var v vtconsensus.Vote
		err = dec.Decode(&v)
		m.Vote = &v
	case MsgCertificate:
		var c vtconsensus.Certificate
		err = dec.Decode(&c)
		m.Certificate = &c
	default:
		return ConsensusMessage{}, fmt.Errorf("unknown consensus message type %d", t)
	}
	if err != nil {
		return ConsensusMessage{}, fmt.Errorf("failed to decode %s message: %w", t, err)
	}

	return m, nil
}
