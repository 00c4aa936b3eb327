// Package segment implements the wire format shared by the Go-Back-N sender
// and receiver.
//
// Format: [kind (1 byte)][window (1 byte)][sequence (2 bytes)][length (2 bytes)][payload (length bytes)]
//
// Multi-byte fields are big-endian. A record is self-describing, so a receiver
// decodes it straight out of a fixed-size receive buffer without framing.
//
// Example:
//
//	data := segment.NewData(4, 0, chunk).Encode()
//	seg, err := segment.Decode(buf[:n])
//	if err != nil {
//	    // *segment.DecodeError
//	}
package segment

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/peiranqiu/File-Transfer/limits"
)

// Kind identifies the type of a segment.
type Kind byte

const (
	// KindData carries a chunk of the file.
	KindData Kind = 0x1
	// KindAck carries the receiver's cumulative "next expected" sequence.
	KindAck Kind = 0x2
)

const (
	// HeaderSize is the fixed size of the segment header in bytes.
	HeaderSize = 6

	// MaxSize is the largest encoded segment, used to size receive buffers.
	MaxSize = HeaderSize + limits.PayloadSize
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindData:
		return "DATA"
	case KindAck:
		return "ACK"
	default:
		return fmt.Sprintf("Kind(0x%x)", byte(k))
	}
}

// Segment is the only entity exchanged on the wire.
type Segment struct {
	Kind Kind
	// Window is the sender's configured window size. Informational only.
	Window uint8
	// Sequence is the data unit index, or the next expected index for ACKs.
	Sequence uint16
	// Length always equals len(Payload).
	Length  uint16
	Payload []byte
}

// NewData creates a data segment. The payload is referenced, not copied.
func NewData(window uint8, sequence uint16, payload []byte) Segment {
	return Segment{
		Kind:     KindData,
		Window:   window,
		Sequence: sequence,
		Length:   uint16(len(payload)),
		Payload:  payload,
	}
}

// NewAck creates an acknowledgement carrying the next expected sequence.
func NewAck(window uint8, next uint16) Segment {
	return Segment{
		Kind:     KindAck,
		Window:   window,
		Sequence: next,
		Payload:  []byte{},
	}
}

// IsFinal reports whether the segment is a short data segment, which ends a transfer.
func (s Segment) IsFinal() bool {
	return s.Kind == KindData && int(s.Length) < limits.PayloadSize
}

// Equal reports whether two segments have identical fields and payload.
func (s Segment) Equal(other Segment) bool {
	return s.Kind == other.Kind &&
		s.Window == other.Window &&
		s.Sequence == other.Sequence &&
		s.Length == other.Length &&
		bytes.Equal(s.Payload, other.Payload)
}

func (s Segment) String() string {
	return fmt.Sprintf("%s{win=%d seq=%d len=%d}", s.Kind, s.Window, s.Sequence, s.Length)
}

// Encode serializes the segment. The length field is taken from len(Payload).
func (s Segment) Encode() []byte {
	data := make([]byte, HeaderSize+len(s.Payload))
	data[0] = byte(s.Kind)
	data[1] = s.Window
	binary.BigEndian.PutUint16(data[2:4], s.Sequence)
	binary.BigEndian.PutUint16(data[4:6], uint16(len(s.Payload)))
	copy(data[HeaderSize:], s.Payload)
	return data
}

// Encode serializes s. It is shorthand for s.Encode().
func Encode(s Segment) []byte {
	return s.Encode()
}

// Decode parses a segment from data. Bytes after the declared payload are
// ignored. The returned payload is a copy and does not alias data.
func Decode(data []byte) (Segment, error) {
	if len(data) < HeaderSize {
		return Segment{}, &DecodeError{Size: len(data), Err: ErrTruncated}
	}

	kind := Kind(data[0])
	if kind != KindData && kind != KindAck {
		return Segment{}, &DecodeError{Size: len(data), Err: ErrUnknownKind}
	}

	length := binary.BigEndian.Uint16(data[4:6])
	if int(length) > limits.PayloadSize {
		return Segment{}, &DecodeError{Size: len(data), Err: ErrPayloadTooLarge}
	}
	if len(data)-HeaderSize < int(length) {
		return Segment{}, &DecodeError{Size: len(data), Err: ErrTruncated}
	}

	payload := make([]byte, length)
	copy(payload, data[HeaderSize:HeaderSize+int(length)])

	return Segment{
		Kind:     kind,
		Window:   data[1],
		Sequence: binary.BigEndian.Uint16(data[2:4]),
		Length:   length,
		Payload:  payload,
	}, nil
}
