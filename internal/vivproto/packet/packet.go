// Package packet encodes and decodes the 20-byte framed packets exchanged
// with a Viiiiva heart-rate monitor over its GATT characteristic.
//
// Ownership boundary:
// - wire packet layout (seqno+crc, length, peers, command id, payload)
// - packet construction and validation
//
// Packed wire structs: this package never relies on a struct's in-memory
// layout matching the wire format. Every field is read or written through
// explicit byte offsets, and the CRC is always computed over bytes [1:],
// regardless of how Packet happens to be laid out in memory.
package packet

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/p00ya/vivian/internal/vivproto/crc"
)

const (
	// MinLength is the smallest legal wire packet (zero-byte payload).
	MinLength = 6
	// MaxLength is the largest legal wire packet (14-byte payload).
	MaxLength = 20
	// MaxPayloadLen is the largest payload a single packet can carry.
	MaxPayloadLen = MaxLength - MinLength

	// PeerHost identifies the host (this library) as sender or receiver.
	PeerHost uint8 = 3
	// PeerDevice identifies the Viiiiva device as sender or receiver.
	PeerDevice uint8 = 1

	// SeqnoUninitialized is the burst state before any packet is read.
	SeqnoUninitialized uint8 = 0
	// SeqnoModulus is the wrap point for the ordinary 1..6 sequence ring.
	SeqnoModulus uint8 = 6
	// SeqnoEnd marks the terminal packet of a burst.
	SeqnoEnd uint8 = 7
	// SeqnoInvalid is an internal sentinel; it never appears on the wire.
	SeqnoInvalid uint8 = 8

	// AckBit marks a command id as an acknowledgement of that command.
	AckBit uint16 = 0x8000
)

var (
	ErrSeqnoOutOfRange  = errors.New("packet: seqno exceeds 7")
	ErrPayloadTooLarge  = errors.New("packet: payload exceeds 14 bytes")
	ErrShortPacket      = errors.New("packet: fewer than 6 bytes")
	ErrLongPacket       = errors.New("packet: more than 20 bytes")
	ErrLengthMismatch   = errors.New("packet: length field does not match buffer size")
	ErrChecksumMismatch = errors.New("packet: crc check failed")
)

// Packet is a decoded wire packet.
type Packet struct {
	Seqno     uint8
	Sender    uint8
	Receiver  uint8
	CommandID uint16
	Payload   []byte
}

// AckCommandID returns the acknowledgement command id for cmd.
func AckCommandID(cmd uint16) uint16 {
	return cmd | AckBit
}

// Make builds a host->device packet for commandID carrying payload.
func Make(seqno uint8, commandID uint16, payload []byte) (Packet, error) {
	if seqno > SeqnoEnd {
		return Packet{}, fmt.Errorf("%w: %d", ErrSeqnoOutOfRange, seqno)
	}
	if len(payload) > MaxPayloadLen {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}
	return Packet{
		Seqno:     seqno,
		Sender:    PeerHost,
		Receiver:  PeerDevice,
		CommandID: commandID,
		Payload:   append([]byte(nil), payload...),
	}, nil
}

// MakeAck builds the host->device acknowledgement packet for commandID.
func MakeAck(commandID uint16) Packet {
	p, err := Make(SeqnoEnd, AckCommandID(commandID), nil)
	if err != nil {
		// SeqnoEnd and a nil payload are always valid; this cannot fail.
		panic(err)
	}
	return p
}

// Bytes serialises p to its wire representation: 6+len(Payload) bytes.
func (p Packet) Bytes() []byte {
	body := make([]byte, 5+len(p.Payload))
	body[0] = byte(len(p.Payload))
	body[1] = p.Sender
	body[2] = p.Receiver
	binary.LittleEndian.PutUint16(body[3:5], p.CommandID)
	copy(body[5:], p.Payload)

	out := make([]byte, 1+len(body))
	out[0] = p.Seqno<<5 | crc.Checksum(body)&0x1f
	copy(out[1:], body)
	return out
}

// Read decodes and validates a wire packet.
func Read(data []byte) (Packet, error) {
	if len(data) < MinLength {
		return Packet{}, ErrShortPacket
	}
	if len(data) > MaxLength {
		return Packet{}, ErrLongPacket
	}
	payloadLen := int(data[1])
	if len(data) != MinLength+payloadLen {
		return Packet{}, ErrLengthMismatch
	}

	body := data[1:]
	want := data[0] & 0x1f
	got := crc.Checksum(body) & 0x1f
	if want != got {
		return Packet{}, ErrChecksumMismatch
	}

	return Packet{
		Seqno:     data[0] >> 5,
		Sender:    data[2],
		Receiver:  data[3],
		CommandID: binary.LittleEndian.Uint16(data[4:6]),
		Payload:   append([]byte(nil), data[6:6+payloadLen]...),
	}, nil
}

// ValidateFromDevice reports whether p is addressed host<-device.
func ValidateFromDevice(p Packet) bool {
	return p.Sender == PeerDevice && p.Receiver == PeerHost
}
