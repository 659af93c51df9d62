package burst

import "testing"

func TestEmptyAcceptsFirstSeqno(t *testing.T) {
	s := New()
	if !s.IsEmpty() {
		t.Fatalf("New() is not empty")
	}
	s = s.Read(1)
	if !s.IsValid() || s.IsEmpty() || s.HasEnded() {
		t.Fatalf("Read(1) on empty burst = %+v, want valid, non-empty, not ended", s)
	}
}

func TestFullBurstSequence(t *testing.T) {
	s := New()
	for _, seqno := range []uint8{1, 2, 3, 4, 5, 6, 1, 2, 3, 4, 5, 6, 7} {
		s = s.Read(seqno)
		if !s.IsValid() {
			t.Fatalf("Read(%d) invalidated the burst", seqno)
		}
	}
	if !s.HasEnded() {
		t.Fatalf("after seqno 7, HasEnded() = false")
	}
}

func TestMismatchInvalidates(t *testing.T) {
	seq := []uint8{1, 2, 3, 4, 5, 6, 1, 2, 3, 4, 5, 6, 7}
	// the terminal element is not replaced: after 1..6,1..6 the ring
	// expects 1 again, so 1 there is a valid continuation, not a mismatch.
	for i := range seq[:len(seq)-1] {
		for _, wrong := range []uint8{0, 1, 2, 3, 4, 5, 6, 7} {
			if wrong == seq[i] {
				continue
			}
			// seqno 7 always matches as an early terminal, not a mismatch.
			if wrong == 7 {
				continue
			}
			s := New()
			for j := 0; j < i; j++ {
				s = s.Read(seq[j])
			}
			s = s.Read(wrong)
			if s.IsValid() {
				t.Fatalf("replacing element %d (%d) with %d did not invalidate the burst", i, seq[i], wrong)
			}
		}
	}
}

func TestEndedBurstRejectsFurtherPackets(t *testing.T) {
	s := New()
	for _, seqno := range []uint8{1, 2, 3, 4, 5, 6, 7} {
		s = s.Read(seqno)
	}
	if !s.HasEnded() {
		t.Fatalf("burst did not end at seqno 7")
	}
	s2 := s.Read(1)
	if s2.IsValid() {
		t.Fatalf("Read after HasEnded() did not invalidate the burst")
	}
}

func TestEarlyTerminalAccepted(t *testing.T) {
	// the device may end a burst early; seqno 7 is always acceptable.
	s := New().Read(1).Read(2).Read(7)
	if !s.HasEnded() {
		t.Fatalf("early terminal packet was not accepted as HasEnded()")
	}
}

func TestWrapsAtModulus(t *testing.T) {
	s := New()
	for _, seqno := range []uint8{1, 2, 3, 4, 5, 6} {
		s = s.Read(seqno)
		if !s.IsValid() {
			t.Fatalf("Read(%d) invalidated the burst", seqno)
		}
	}
	// after 6, the ring wraps back to 1.
	s = s.Read(1)
	if !s.IsValid() {
		t.Fatalf("wrap from 6 to 1 invalidated the burst")
	}
}
