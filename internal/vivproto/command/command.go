// Package command implements the per-command state machines that drive a
// single outstanding exchange with a Viiiiva: download, erase, and set-time.
//
// Ownership boundary:
// - command-id registry
// - ack/reply validation shared by the two-phase commands
// - the three concrete commands (Download, Erase, SetTime)
package command

import (
	"errors"

	"github.com/p00ya/vivian/internal/vivproto/packet"
)

// Command ids, as sent from host to device.
const (
	CmdDownload uint16 = 0x010b
	CmdErase    uint16 = 0x040b
	CmdSetTime  uint16 = 0x0108
)

// Reply command ids, as sent from device to host after the ack.
const (
	ReplyDownload uint16 = 0x030b
	ReplyErase    uint16 = 0x050b
)

var (
	// ErrWrongDirection means a packet claiming to be from the device did
	// not carry the device->host sender/receiver pair.
	ErrWrongDirection = errors.New("command: packet not from device")
	// ErrUnexpectedCommand means a packet's command id did not match what
	// the active command phase expected.
	ErrUnexpectedCommand = errors.New("command: unexpected command id")
	// ErrMalformedPayload means a packet's payload failed a command's own
	// content validation (length, echoed fields, status byte).
	ErrMalformedPayload = errors.New("command: malformed payload")
	// ErrOutOfSequence means a reply packet's burst seqno was rejected.
	ErrOutOfSequence = errors.New("command: reply out of sequence")
	// ErrAlreadyFinished means a packet arrived for a command phase that had
	// already completed.
	ErrAlreadyFinished = errors.New("command: already finished")
)

// Command is the behaviour shared by every outbound command.
type Command interface {
	// MakeCommandPacket returns the packet to write to start the command.
	MakeCommandPacket() packet.Packet
	// Name identifies the command for error messages.
	Name() string
	// ReadPacket processes a single device->host value notification.
	ReadPacket(p packet.Packet) error
	// IsFinished reports whether the command has reached a final state,
	// successfully or not. It has no side effects; the manager queries it to
	// decide whether to emit its "finished waiting" event before running the
	// command's own completion callback via Finish.
	IsFinished() bool
	// Finish runs the command's completion callback. The manager calls this
	// exactly once, after IsFinished first reports true and after it has
	// told its delegate that waiting is over.
	Finish()
}

// Replied is implemented by two-phase commands (ack, then reply) that may
// need the manager to acknowledge the reply itself.
type Replied interface {
	Command
	// ShouldAckReply reports whether the manager must write an acknowledgement
	// packet for the reply command once this command finishes.
	ShouldAckReply() bool
	// ReplyAckPacket returns that acknowledgement packet.
	ReplyAckPacket() packet.Packet
}

// validateAck checks that p is a device->host acknowledgement of cmd.
func validateAck(p packet.Packet, cmd uint16) error {
	if !packet.ValidateFromDevice(p) {
		return ErrWrongDirection
	}
	if p.CommandID != packet.AckCommandID(cmd) {
		return ErrUnexpectedCommand
	}
	return nil
}

// validateReplyCommand checks that p carries replyCmd from the device with a
// non-empty payload, the shape common to every reply packet.
func validateReplyCommand(p packet.Packet, replyCmd uint16) error {
	if !packet.ValidateFromDevice(p) {
		return ErrWrongDirection
	}
	if p.CommandID != replyCmd {
		return ErrUnexpectedCommand
	}
	if len(p.Payload) == 0 {
		return ErrMalformedPayload
	}
	return nil
}
