package command

import (
	"encoding/binary"

	"github.com/p00ya/vivian/internal/vivproto/burst"
	"github.com/p00ya/vivian/internal/vivproto/packet"
)

// directoryIndex is the file index that means "the directory itself".
const directoryIndex uint16 = 0

// directoryRecordLength is the size of one directory entry; the ack's
// reply_length field counts records rather than bytes for this index.
const directoryRecordLength = 16

// DownloadOnFinish is called once a download completes successfully, with
// the downloaded file's index and accumulated bytes.
type DownloadOnFinish func(index uint16, data []byte)

// Download downloads a file, or the directory itself when constructed with
// index 0.
type Download struct {
	index  uint16
	offset uint32
	length uint32

	onFinish DownloadOnFinish

	hasAck   bool
	burst    burst.State
	buf      []byte
	finished bool
}

// NewDownload returns a download of the whole of index, with no offset or
// length limit.
func NewDownload(index uint16, onFinish DownloadOnFinish) *Download {
	return NewDownloadRange(index, 0, 0xFFFFFFFF, onFinish)
}

// NewDownloadRange returns a download of index starting at offset, reading
// at most length bytes.
func NewDownloadRange(index uint16, offset, length uint32, onFinish DownloadOnFinish) *Download {
	return &Download{
		index:    index,
		offset:   offset,
		length:   length,
		onFinish: onFinish,
		burst:    burst.New(),
	}
}

func (d *Download) Name() string { return "download command" }

func (d *Download) MakeCommandPacket() packet.Packet {
	payload := make([]byte, 10)
	binary.LittleEndian.PutUint16(payload[0:2], d.index)
	binary.LittleEndian.PutUint32(payload[2:6], d.offset)
	binary.LittleEndian.PutUint32(payload[6:10], d.length)
	p, err := packet.Make(packet.SeqnoEnd, CmdDownload, payload)
	if err != nil {
		panic(err)
	}
	return p
}

func (d *Download) ReadPacket(p packet.Packet) error {
	if !d.hasAck {
		return d.readAck(p)
	}
	return d.readReply(p)
}

func (d *Download) readAck(p packet.Packet) error {
	if err := validateAck(p, CmdDownload); err != nil {
		return err
	}
	if len(p.Payload) < 10 {
		return ErrMalformedPayload
	}
	echoIndex := binary.LittleEndian.Uint16(p.Payload[0:2])
	echoOffset := binary.LittleEndian.Uint32(p.Payload[2:6])
	replyLength := binary.LittleEndian.Uint32(p.Payload[6:10])
	if echoIndex != d.index || echoOffset != d.offset || replyLength > d.length {
		return ErrMalformedPayload
	}

	capacity := int(replyLength)
	if d.index == directoryIndex {
		capacity *= directoryRecordLength
	}
	d.buf = make([]byte, 0, capacity)
	d.hasAck = true
	return nil
}

func (d *Download) readReply(p packet.Packet) error {
	if err := validateReplyCommand(p, ReplyDownload); err != nil {
		return err
	}
	next := d.burst.ReadPacket(p)
	if !next.IsValid() {
		return ErrOutOfSequence
	}
	d.burst = next
	d.buf = append(d.buf, p.Payload...)
	return nil
}

func (d *Download) IsFinished() bool {
	return d.hasAck && d.burst.HasEnded()
}

func (d *Download) Finish() {
	if d.finished {
		return
	}
	d.finished = true
	d.onFinish(d.index, d.buf)
}

// ShouldAckReply reports false: a download's burst ends itself.
func (d *Download) ShouldAckReply() bool { return false }

func (d *Download) ReplyAckPacket() packet.Packet {
	return packet.MakeAck(ReplyDownload)
}
