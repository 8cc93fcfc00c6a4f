package link

import (
	"encoding/binary"
	"fmt"

	"github.com/doeshing/gadget-go/internal/domain"
)

// Framer turns a payload into the bytes put on the wire.
type Framer func(payload []byte) []byte

// FrameNone writes the raw payload with no delimiter.
func FrameNone(payload []byte) []byte {
	return payload
}

// FrameNewline terminates each payload with '\n'.
func FrameNewline(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+1)
	out = append(out, payload...)
	return append(out, '\n')
}

// FrameLength prefixes each payload with its length as a 4-byte big-endian integer.
func FrameLength(payload []byte) []byte {
	out := make([]byte, 4, len(payload)+4)
	binary.BigEndian.PutUint32(out, uint32(len(payload)))
	return append(out, payload...)
}

// ParseFraming maps a config value to a Framer.
func ParseFraming(name string) (Framer, error) {
	switch name {
	case "", domain.FramingNone:
		return FrameNone, nil
	case domain.FramingNewline:
		return FrameNewline, nil
	case domain.FramingLength:
		return FrameLength, nil
	default:
		return nil, fmt.Errorf("unknown link framing %q", name)
	}
}
