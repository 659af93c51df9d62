// Package manager implements the protocol engine that drives a Viiiiva
// heart-rate monitor through its delegate callbacks: it turns caller
// requests (download, erase, set clock) into outbound packets, and feeds
// inbound GATT value notifications to whichever command is in flight.
//
// Ownership boundary:
// - single in-flight command slot and re-entrancy guard
// - translation between command-level errors and the delegate's error kinds
// - directory/file/erase/set-time entry points
package manager

import (
	"fmt"
	"time"

	"github.com/p00ya/vivian/internal/vivproto/command"
	"github.com/p00ya/vivian/internal/vivproto/directory"
	"github.com/p00ya/vivian/internal/vivproto/packet"
	"github.com/p00ya/vivian/internal/vivproto/vivtime"
)

// ErrorKind classifies an error reported to the delegate.
type ErrorKind int

const (
	// BadHeader means packet framing failed: wrong length, CRC mismatch, or
	// (for a directory download) a header version/format mismatch.
	BadHeader ErrorKind = 1
	// BadPayload means framing succeeded but a command rejected the packet's
	// command id, peer fields, payload shape, or burst ordering.
	BadPayload ErrorKind = 2
	// Unexpected means a state violation: a notification with no command in
	// flight, a write failure, or a timeout.
	Unexpected ErrorKind = 3
)

func (k ErrorKind) String() string {
	switch k {
	case BadHeader:
		return "BadHeader"
	case BadPayload:
		return "BadPayload"
	case Unexpected:
		return "Unexpected"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Delegate receives every side effect the manager produces. No method may
// call back into the Manager that invoked it; doing so is a programmer
// error and the Manager will panic.
type Delegate interface {
	// WriteValue serialises a packet to the transport. An error fails the
	// write and is reported as Unexpected.
	WriteValue(value []byte) error

	DidStartWaiting()
	DidFinishWaiting()
	DidError(kind ErrorKind, message string)

	DidParseDirectoryEntry(entry directory.Entry)
	DidFinishParsingDirectory()
	DidDownloadFile(index uint16, data []byte)
	DidEraseFile(index uint16, ok bool)
	DidSetTime(ok bool)
}

// ClockObserver is an optional extension to Delegate: implement it to be
// told the device's clock time as soon as a directory header is decoded.
type ClockObserver interface {
	DidParseClock(t time.Time)
}

// Manager is the protocol engine. Its methods are synchronous and must be
// driven from a single thread; it never blocks and never spawns goroutines.
type Manager struct {
	delegate Delegate

	// simple holds a single-phase in-flight command (SetTime). replied holds
	// a two-phase in-flight command (Download, Erase). At most one of the
	// two is non-nil at a time.
	simple  command.Command
	replied command.Replied

	busy bool
}

// New returns a manager that reports to delegate.
func New(delegate Delegate) *Manager {
	return &Manager{delegate: delegate}
}

func (m *Manager) enter() func() {
	if m.busy {
		panic("manager: re-entered from a delegate callback")
	}
	m.busy = true
	return func() { m.busy = false }
}

func (m *Manager) active() command.Command {
	if m.replied != nil {
		return m.replied
	}
	if m.simple != nil {
		return m.simple
	}
	return nil
}

func (m *Manager) clearActive() {
	m.simple = nil
	m.replied = nil
}

// NotifyValue feeds a single inbound GATT value notification to the
// in-flight command, if any.
func (m *Manager) NotifyValue(value []byte) {
	defer m.enter()()

	active := m.active()
	if active == nil {
		m.delegate.DidError(Unexpected, "Unexpected value notification")
		return
	}

	p, err := packet.Read(value)
	if err != nil {
		m.delegate.DidError(BadHeader, fmt.Sprintf("%s: invalid value notification: %v", active.Name(), err))
		return
	}

	if err := active.ReadPacket(p); err != nil {
		m.delegate.DidError(BadPayload, fmt.Sprintf("%s: invalid value notification: %v", active.Name(), err))
		return
	}

	if !active.IsFinished() {
		return
	}

	m.delegate.DidFinishWaiting()
	if replied, ok := active.(command.Replied); ok && replied.ShouldAckReply() {
		ack := replied.ReplyAckPacket()
		if err := m.delegate.WriteValue(ack.Bytes()); err != nil {
			m.delegate.DidError(Unexpected, "WriteValue")
		}
	}
	active.Finish()
	m.clearActive()
}

// NotifyTimeout tells the manager that the caller gave up waiting for a
// response to the in-flight command.
func (m *Manager) NotifyTimeout() {
	defer m.enter()()

	active := m.active()
	if active == nil {
		return
	}
	m.delegate.DidError(Unexpected, fmt.Sprintf("%s: timeout waiting for command", active.Name()))
	m.clearActive()
	m.delegate.DidFinishWaiting()
}

func (m *Manager) writePacket(p packet.Packet, waitForAck bool) {
	if err := m.delegate.WriteValue(p.Bytes()); err != nil {
		m.delegate.DidError(Unexpected, "WriteValue")
		return
	}
	if waitForAck {
		m.delegate.DidStartWaiting()
	}
}

// DownloadDirectory issues a download of file index 0 (the directory) and,
// on completion, decodes it and emits one DidParseDirectoryEntry call per
// entry in ascending index order, followed by DidFinishParsingDirectory.
func (m *Manager) DownloadDirectory() {
	defer m.enter()()

	m.simple = nil
	dl := command.NewDownload(0, func(_ uint16, data []byte) {
		dir, err := directory.Read(data)
		if err != nil {
			m.delegate.DidError(BadHeader, "Error parsing directory")
			return
		}
		if observer, ok := m.delegate.(ClockObserver); ok {
			observer.DidParseClock(dir.Header.Time())
		}
		for _, entry := range dir.Entries {
			m.delegate.DidParseDirectoryEntry(entry)
		}
		m.delegate.DidFinishParsingDirectory()
	})
	m.replied = dl
	m.writePacket(dl.MakeCommandPacket(), true)
}

// DownloadFile issues a download of index and, on completion, emits
// DidDownloadFile.
func (m *Manager) DownloadFile(index uint16) {
	defer m.enter()()

	m.simple = nil
	dl := command.NewDownload(index, func(index uint16, data []byte) {
		m.delegate.DidDownloadFile(index, data)
	})
	m.replied = dl
	m.writePacket(dl.MakeCommandPacket(), true)
}

// EraseFile issues an erase of index and, on completion, emits
// DidEraseFile.
func (m *Manager) EraseFile(index uint16) {
	defer m.enter()()

	m.simple = nil
	er := command.NewErase(index, func(ok bool) {
		m.delegate.DidEraseFile(index, ok)
	})
	m.replied = er
	m.writePacket(er.MakeCommandPacket(), true)
}

// SetTime issues a set-clock command for posixTime and, on completion,
// emits DidSetTime.
func (m *Manager) SetTime(posixTime time.Time) {
	defer m.enter()()

	m.replied = nil
	st := command.NewSetTime(vivtime.FromPosix(posixTime), func(ok bool) {
		m.delegate.DidSetTime(ok)
	})
	m.simple = st
	m.writePacket(st.MakeCommandPacket(), true)
}
