// Package simulator implements an in-memory fake Viiiiva heart-rate
// monitor: it answers the wire packets internal/vivproto/manager writes
// with protocol-correct acks, burst replies, and directory/file contents,
// the way a real device's GATT characteristic would.
//
// Ownership boundary:
// - fake file/directory storage and clock
// - turning an outbound command packet into the device's reply packets
package simulator

import (
	"encoding/binary"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/p00ya/vivian/internal/vivproto/directory"
	"github.com/p00ya/vivian/internal/vivproto/packet"
	"github.com/p00ya/vivian/internal/vivproto/vivtime"
)

// ErrTimeout is returned by Rx when no reply arrives before the deadline.
var ErrTimeout = errors.New("simulator: timeout waiting for device notification")

const directoryIndex uint16 = 0

// Device is a fake Viiiiva device. Its zero value is not usable; construct
// one with New.
type Device struct {
	mu sync.Mutex

	files map[uint16][]byte
	clock time.Time
	skew  time.Duration

	rx ringBuffer
}

// New returns a device seeded deterministically from seed, with its clock
// offset from real time by skew (to exercise set-time against a device
// whose clock has drifted).
func New(seed int64, skew time.Duration) *Device {
	d := &Device{
		files: make(map[uint16][]byte),
		clock: time.Now().Add(skew),
		skew:  skew,
	}
	d.seedFiles(seed)
	return d
}

func (d *Device) seedFiles(seed int64) {
	rng := rand.New(rand.NewSource(seed))
	fileIndices := []uint16{1, 2, 3}
	for _, idx := range fileIndices {
		size := 16 + rng.Intn(64)
		data := make([]byte, size)
		rng.Read(data)
		d.files[idx] = data
	}
	d.rebuildDirectory()
}

func (d *Device) rebuildDirectory() {
	indices := make([]uint16, 0, len(d.files))
	for idx := range d.files {
		if idx != directoryIndex {
			indices = append(indices, idx)
		}
	}
	hdr := directory.WriteHeader(directory.Header{ClockTime: vivtime.FromPosix(d.clock)})
	blob := append([]byte(nil), hdr...)
	for _, idx := range indices {
		entry := directory.WriteEntry(directory.Entry{
			Index:     idx,
			FileType:  1,
			FileID:    idx,
			Length:    uint32(len(d.files[idx])),
			ClockTime: vivtime.FromPosix(d.clock),
			Flags:     directory.FlagErasable | directory.FlagReadable,
		})
		blob = append(blob, entry...)
	}
	d.files[directoryIndex] = blob
}

// Tx delivers an outbound write to the device and queues its reply packets
// for later collection by Rx, mirroring a real device's asynchronous GATT
// notifications.
func (d *Device) Tx(value []byte) error {
	p, err := packet.Read(value)
	if err != nil {
		return nil // a malformed write gets no reply, same as a real device ignoring garbage
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch p.CommandID {
	case 0x010b: // download
		d.handleDownload(p)
	case 0x040b: // erase
		d.handleErase(p)
	case 0x0108: // set time
		d.handleSetTime(p)
	}
	return nil
}

func (d *Device) handleDownload(p packet.Packet) {
	if len(p.Payload) < 10 {
		return
	}
	index := binary.LittleEndian.Uint16(p.Payload[0:2])
	offset := binary.LittleEndian.Uint32(p.Payload[2:6])
	length := binary.LittleEndian.Uint32(p.Payload[6:10])

	// An index with no file is answered like an empty file: an ack with a
	// zero reply length, then an empty terminal reply.
	data := d.files[index]
	if offset > uint32(len(data)) {
		offset = uint32(len(data))
	}
	end := uint64(offset) + uint64(length)
	if end > uint64(len(data)) {
		end = uint64(len(data))
	}
	chunk := data[offset:end]

	replyLength := uint32(len(chunk))
	if index == directoryIndex {
		replyLength /= 16
	}

	ack := make([]byte, 10)
	binary.LittleEndian.PutUint16(ack[0:2], index)
	binary.LittleEndian.PutUint32(ack[2:6], offset)
	binary.LittleEndian.PutUint32(ack[6:10], replyLength)
	d.enqueue(packet.SeqnoEnd, packet.AckCommandID(0x010b), ack)

	d.enqueueBurst(0x030b, chunk)
}

func (d *Device) handleErase(p packet.Packet) {
	if len(p.Payload) < 2 {
		return
	}
	index := binary.LittleEndian.Uint16(p.Payload[0:2])
	d.enqueue(packet.SeqnoEnd, packet.AckCommandID(0x040b), nil)

	status := byte(0)
	if index == directoryIndex {
		status = 1 // the directory itself cannot be erased
	} else if _, ok := d.files[index]; !ok {
		status = 1
	} else {
		delete(d.files, index)
		d.rebuildDirectory()
	}
	d.enqueue(packet.SeqnoEnd, 0x050b, []byte{status})
}

func (d *Device) handleSetTime(p packet.Packet) {
	if len(p.Payload) < 4 {
		return
	}
	deviceTime := binary.LittleEndian.Uint32(p.Payload)
	d.clock = vivtime.ToPosix(deviceTime).Add(d.skew)
	d.rebuildDirectory()
	d.enqueue(packet.SeqnoEnd, packet.AckCommandID(0x0108), nil)
}

// enqueueBurst splits payload across packet.MaxPayloadLen-sized reply
// packets, numbered starting at seqno 1 and terminated by packet.SeqnoEnd.
func (d *Device) enqueueBurst(cmd uint16, payload []byte) {
	if len(payload) == 0 {
		d.enqueue(packet.SeqnoEnd, cmd, nil)
		return
	}
	seqno := uint8(1)
	for offset := 0; offset < len(payload); offset += packet.MaxPayloadLen {
		end := offset + packet.MaxPayloadLen
		if end >= len(payload) {
			end = len(payload)
			d.enqueue(packet.SeqnoEnd, cmd, payload[offset:end])
			return
		}
		d.enqueue(seqno, cmd, payload[offset:end])
		seqno = seqno%packet.SeqnoModulus + 1
	}
}

func (d *Device) enqueue(seqno uint8, cmd uint16, payload []byte) {
	p, err := packet.Make(seqno, cmd, payload)
	if err != nil {
		return
	}
	p.Sender, p.Receiver = packet.PeerDevice, packet.PeerHost
	d.rx.push(p.Bytes())
}

// Rx pops the next queued reply packet, blocking until one arrives or
// timeout elapses.
func (d *Device) Rx(timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	for {
		d.mu.Lock()
		frame, ok := d.rx.pop()
		d.mu.Unlock()
		if ok {
			return frame, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}
		time.Sleep(time.Millisecond)
	}
}
