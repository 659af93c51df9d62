package command

import (
	"encoding/binary"

	"github.com/p00ya/vivian/internal/vivproto/packet"
)

// SetTimeOnFinish is called once the set-time command completes, reporting
// whether the device acknowledged it.
type SetTimeOnFinish func(ok bool)

// SetTime sets the device's clock. It is a single-phase command: it
// finishes as soon as the device acknowledges it, there is no reply.
type SetTime struct {
	deviceTime uint32
	onFinish   SetTimeOnFinish

	hasAck   bool
	finished bool
}

// NewSetTime returns a set-time command for deviceTime, already converted
// from POSIX time by the caller.
func NewSetTime(deviceTime uint32, onFinish SetTimeOnFinish) *SetTime {
	return &SetTime{deviceTime: deviceTime, onFinish: onFinish}
}

func (s *SetTime) Name() string { return "set time command" }

func (s *SetTime) MakeCommandPacket() packet.Packet {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, s.deviceTime)
	p, err := packet.Make(packet.SeqnoEnd, CmdSetTime, payload)
	if err != nil {
		panic(err)
	}
	return p
}

func (s *SetTime) ReadPacket(p packet.Packet) error {
	if err := validateAck(p, CmdSetTime); err != nil {
		return err
	}
	s.hasAck = true
	return nil
}

func (s *SetTime) IsFinished() bool {
	return s.hasAck
}

func (s *SetTime) Finish() {
	if s.finished {
		return
	}
	s.finished = true
	s.onFinish(s.hasAck)
}
