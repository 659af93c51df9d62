// Package burst tracks the 3-bit sequence number ring used by the
// device->host reply burst of a download.
//
// Ownership boundary:
// - next-expected-seqno state and its transitions
package burst

import "github.com/p00ya/vivian/internal/vivproto/packet"

// State is the burst tracker's sole piece of state: the next expected
// sequence number, or one of the two sentinel values (SeqnoEnd, SeqnoInvalid).
type State struct {
	next uint8
}

// New returns a burst with no packets read.
func New() State {
	return State{next: packet.SeqnoUninitialized}
}

// IsEmpty reports whether no packets have been read yet.
func (s State) IsEmpty() bool {
	return s.next == packet.SeqnoUninitialized
}

// HasEnded reports whether the terminal packet has already been received.
func (s State) HasEnded() bool {
	return s.next == packet.SeqnoEnd
}

// IsValid reports whether the burst is not in the invalid sentinel state.
func (s State) IsValid() bool {
	return s.next != packet.SeqnoInvalid
}

func nextSeqno(seqno uint8) uint8 {
	return seqno%packet.SeqnoModulus + 1
}

// Read advances the burst with an observed sequence number, returning the
// updated state. The returned state is invalid if seqno was out of
// sequence, or if the burst had already ended.
//
// A burst with no packets read yet only accepts seqno 1 to start the ring
// (or 7, accepted below as an early terminal); once started, it only
// accepts the seqno it is currently expecting.
func (s State) Read(seqno uint8) State {
	if s.HasEnded() {
		return State{next: packet.SeqnoInvalid}
	}
	if seqno == packet.SeqnoEnd {
		return State{next: packet.SeqnoEnd}
	}
	if s.IsEmpty() {
		if seqno != 1 {
			return State{next: packet.SeqnoInvalid}
		}
		return State{next: nextSeqno(seqno)}
	}
	if seqno != s.next {
		return State{next: packet.SeqnoInvalid}
	}
	return State{next: nextSeqno(seqno)}
}

// ReadPacket advances the burst with the sequence number carried by p.
func (s State) ReadPacket(p packet.Packet) State {
	return s.Read(p.Seqno)
}
