package command

import (
	"encoding/binary"

	"github.com/p00ya/vivian/internal/vivproto/packet"
)

// EraseOnFinish is called once an erase completes, reporting whether the
// device accepted the request.
type EraseOnFinish func(ok bool)

// Erase erases a file by index.
type Erase struct {
	index    uint16
	onFinish EraseOnFinish

	hasAck   bool
	ok       bool
	replied  bool
	finished bool
}

// NewErase returns an erase command for index.
func NewErase(index uint16, onFinish EraseOnFinish) *Erase {
	return &Erase{index: index, onFinish: onFinish}
}

func (e *Erase) Name() string { return "erase command" }

func (e *Erase) MakeCommandPacket() packet.Packet {
	payload := make([]byte, 2)
	binary.LittleEndian.PutUint16(payload, e.index)
	p, err := packet.Make(packet.SeqnoEnd, CmdErase, payload)
	if err != nil {
		panic(err)
	}
	return p
}

func (e *Erase) ReadPacket(p packet.Packet) error {
	if !e.hasAck {
		return e.readAck(p)
	}
	return e.readReply(p)
}

func (e *Erase) readAck(p packet.Packet) error {
	if err := validateAck(p, CmdErase); err != nil {
		return err
	}
	e.hasAck = true
	return nil
}

func (e *Erase) readReply(p packet.Packet) error {
	if e.replied {
		return ErrAlreadyFinished
	}
	if err := validateReplyCommand(p, ReplyErase); err != nil {
		return err
	}
	if len(p.Payload) != 1 {
		return ErrMalformedPayload
	}
	// byte 0 is a status: 0 means success, any other value is a reported
	// failure rather than a malformed packet.
	e.ok = p.Payload[0] == 0
	e.replied = true
	return nil
}

func (e *Erase) IsFinished() bool {
	return e.hasAck && e.replied
}

func (e *Erase) Finish() {
	if e.finished {
		return
	}
	e.finished = true
	e.onFinish(e.ok)
}

// ShouldAckReply reports true: the device expects the reply to be
// acknowledged.
func (e *Erase) ShouldAckReply() bool { return true }

func (e *Erase) ReplyAckPacket() packet.Packet {
	return packet.MakeAck(ReplyErase)
}
