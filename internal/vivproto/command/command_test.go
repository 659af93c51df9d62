package command

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/p00ya/vivian/internal/vivproto/packet"
)

func devicePacket(cmd uint16, payload []byte) packet.Packet {
	return packet.Packet{
		Seqno:     packet.SeqnoEnd,
		Sender:    packet.PeerDevice,
		Receiver:  packet.PeerHost,
		CommandID: cmd,
		Payload:   payload,
	}
}

func downloadAckPayload(index uint16, offset, length uint32) []byte {
	buf := make([]byte, 10)
	binary.LittleEndian.PutUint16(buf[0:2], index)
	binary.LittleEndian.PutUint32(buf[2:6], offset)
	binary.LittleEndian.PutUint32(buf[6:10], length)
	return buf
}

func TestDownloadHappyPath(t *testing.T) {
	var gotIndex uint16
	var gotData []byte
	d := NewDownload(5, func(index uint16, data []byte) {
		gotIndex, gotData = index, data
	})

	cmdPacket := d.MakeCommandPacket()
	if cmdPacket.CommandID != CmdDownload || cmdPacket.Seqno != packet.SeqnoEnd {
		t.Fatalf("MakeCommandPacket = %+v", cmdPacket)
	}

	ack := devicePacket(packet.AckCommandID(CmdDownload), downloadAckPayload(5, 0, 2))
	if err := d.ReadPacket(ack); err != nil {
		t.Fatalf("ack ReadPacket: %v", err)
	}
	if d.IsFinished() {
		t.Fatalf("IsFinished true before reply")
	}

	reply1 := devicePacket(ReplyDownload, []byte{0xAA, 0xBB})
	reply1.Seqno = 1
	if err := d.ReadPacket(reply1); err != nil {
		t.Fatalf("reply1: %v", err)
	}
	if d.IsFinished() {
		t.Fatalf("IsFinished true before terminal packet")
	}

	reply2 := devicePacket(ReplyDownload, []byte{0xCC})
	reply2.Seqno = packet.SeqnoEnd
	if err := d.ReadPacket(reply2); err != nil {
		t.Fatalf("reply2: %v", err)
	}
	if !d.IsFinished() {
		t.Fatalf("IsFinished false after terminal packet")
	}
	d.Finish()
	if gotIndex != 5 {
		t.Fatalf("onFinish index = %d, want 5", gotIndex)
	}
	if string(gotData) != "\xaa\xbb\xcc" {
		t.Fatalf("onFinish data = %x, want aabbcc", gotData)
	}
}

func TestDownloadRejectsAckMismatch(t *testing.T) {
	d := NewDownload(5, func(uint16, []byte) {})
	ack := devicePacket(packet.AckCommandID(CmdDownload), downloadAckPayload(6, 0, 2))
	if err := d.ReadPacket(ack); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("mismatched echo_index err = %v, want ErrMalformedPayload", err)
	}
}

func TestDownloadRejectsOutOfSequenceReply(t *testing.T) {
	d := NewDownload(5, func(uint16, []byte) {})
	ack := devicePacket(packet.AckCommandID(CmdDownload), downloadAckPayload(5, 0, 2))
	if err := d.ReadPacket(ack); err != nil {
		t.Fatalf("ack: %v", err)
	}
	reply1 := devicePacket(ReplyDownload, []byte{1})
	reply1.Seqno = 1
	if err := d.ReadPacket(reply1); err != nil {
		t.Fatalf("reply1: %v", err)
	}
	reply2 := devicePacket(ReplyDownload, []byte{1})
	reply2.Seqno = 3 // should have been 2
	if err := d.ReadPacket(reply2); !errors.Is(err, ErrOutOfSequence) {
		t.Fatalf("out of sequence reply err = %v, want ErrOutOfSequence", err)
	}
}

func TestEraseSuccessReportsTrue(t *testing.T) {
	var gotOK bool
	e := NewErase(5, func(ok bool) { gotOK = ok })

	cmdPacket := e.MakeCommandPacket()
	if cmdPacket.CommandID != CmdErase {
		t.Fatalf("MakeCommandPacket cmd = %#04x", cmdPacket.CommandID)
	}

	ack := devicePacket(packet.AckCommandID(CmdErase), nil)
	if err := e.ReadPacket(ack); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if e.IsFinished() {
		t.Fatalf("IsFinished true before reply")
	}

	reply := devicePacket(ReplyErase, []byte{0x00})
	if err := e.ReadPacket(reply); err != nil {
		t.Fatalf("reply: %v", err)
	}
	if !e.IsFinished() {
		t.Fatalf("IsFinished false after clean reply")
	}
	e.Finish()
	if !gotOK {
		t.Fatalf("onFinish(ok) = false, want true on clean reply")
	}
	if !e.ShouldAckReply() {
		t.Fatalf("ShouldAckReply() = false, want true")
	}
}

func TestEraseFailureReportsFalse(t *testing.T) {
	var gotOK bool
	e := NewErase(5, func(ok bool) { gotOK = ok })
	ack := devicePacket(packet.AckCommandID(CmdErase), nil)
	if err := e.ReadPacket(ack); err != nil {
		t.Fatalf("ack: %v", err)
	}
	reply := devicePacket(ReplyErase, []byte{0x01})
	if err := e.ReadPacket(reply); err != nil {
		t.Fatalf("reply: %v", err)
	}
	e.Finish()
	if gotOK {
		t.Fatalf("onFinish(ok) = true, want false on non-zero status")
	}
}

func TestSetTimeFinishesOnAck(t *testing.T) {
	var gotOK bool
	s := NewSetTime(42, func(ok bool) { gotOK = ok })

	cmdPacket := s.MakeCommandPacket()
	if cmdPacket.CommandID != CmdSetTime {
		t.Fatalf("MakeCommandPacket cmd = %#04x", cmdPacket.CommandID)
	}
	if binary.LittleEndian.Uint32(cmdPacket.Payload) != 42 {
		t.Fatalf("MakeCommandPacket payload time = %v", cmdPacket.Payload)
	}

	ack := devicePacket(packet.AckCommandID(CmdSetTime), nil)
	if err := s.ReadPacket(ack); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if !s.IsFinished() {
		t.Fatalf("IsFinished false after ack")
	}
	s.Finish()
	if !gotOK {
		t.Fatalf("onFinish(ok) = false, want true")
	}
}
