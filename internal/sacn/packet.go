package sacn

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// E1.31 wire layout. Offsets per the root/framing/DMP layering: the root
// layer carries the preamble and the ACN packet identifier, the framing
// layer the sequence number and universe, the DMP layer the start code and
// up to 512 property values.
const (
	// Port is the registered sACN port.
	Port = 5568
	// MaxChannels is the DMX payload limit of one universe.
	MaxChannels = 512
	// HeaderSize is the offset of the first channel byte; everything
	// before it is header (start code included).
	HeaderSize = 126

	preambleSize  = 0x0010
	rootVector    = 0x00000004
	framingVector = 0x00000002
	dmpVector     = 0x02

	offIdentifier = 4
	offRootVector = 18
	offFrameVec   = 40
	offSequence   = 111
	offUniverse   = 113
	offDMPVector  = 117
	offValueCount = 123
	offStartCode  = 125
)

// acnIdentifier is the fixed vendor/protocol marker at offsets 4..15.
var acnIdentifier = []byte("ASC-E1.17\x00\x00\x00")

// Decode failure taxonomy. None of these are fatal: the caller drops the
// packet and moves on.
var (
	ErrMalformedHeader = errors.New("sacn: malformed header")
	ErrUnknownProtocol = errors.New("sacn: not an E1.31 packet")
	ErrBadStartCode    = errors.New("sacn: unexpected start code")
)

// Frame is one decoded data packet. Payload aliases the input buffer; it
// is valid until the next read overwrites it, which is fine because every
// frame is applied before the next receive.
type Frame struct {
	Universe uint16
	// Sequence is carried for future loss detection but not used for
	// ordering: UDP reordering resolves as freshest-write-wins.
	Sequence uint8
	Payload  []byte
}

// Decode validates the three header layers and extracts the DMX payload.
// It never partially applies anything; on error the packet is simply not
// this receiver's business.
func Decode(pkt []byte) (Frame, error) {
	if len(pkt) < HeaderSize {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrMalformedHeader, len(pkt))
	}
	if binary.BigEndian.Uint16(pkt[0:2]) != preambleSize {
		return Frame{}, fmt.Errorf("%w: bad preamble", ErrUnknownProtocol)
	}
	if !bytes.Equal(pkt[offIdentifier:offIdentifier+12], acnIdentifier) {
		return Frame{}, fmt.Errorf("%w: bad packet identifier", ErrUnknownProtocol)
	}
	if binary.BigEndian.Uint32(pkt[offRootVector:offRootVector+4]) != rootVector {
		return Frame{}, fmt.Errorf("%w: bad root vector", ErrUnknownProtocol)
	}
	if binary.BigEndian.Uint32(pkt[offFrameVec:offFrameVec+4]) != framingVector {
		return Frame{}, fmt.Errorf("%w: bad framing vector", ErrUnknownProtocol)
	}
	if pkt[offDMPVector] != dmpVector {
		return Frame{}, fmt.Errorf("%w: bad DMP vector", ErrUnknownProtocol)
	}
	if pkt[offStartCode] != 0 {
		return Frame{}, fmt.Errorf("%w: 0x%02x", ErrBadStartCode, pkt[offStartCode])
	}

	// The property value count includes the start code byte.
	count := int(binary.BigEndian.Uint16(pkt[offValueCount : offValueCount+2]))
	if count < 1 {
		return Frame{}, fmt.Errorf("%w: zero property values", ErrMalformedHeader)
	}
	if len(pkt) < offStartCode+count {
		return Frame{}, fmt.Errorf("%w: %d property values in %d bytes",
			ErrMalformedHeader, count, len(pkt))
	}
	payload := pkt[HeaderSize : offStartCode+count]
	if len(payload) > MaxChannels {
		payload = payload[:MaxChannels]
	}

	return Frame{
		Universe: binary.BigEndian.Uint16(pkt[offUniverse : offUniverse+2]),
		Sequence: pkt[offSequence],
		Payload:  payload,
	}, nil
}
