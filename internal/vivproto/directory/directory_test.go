package directory

import (
	"errors"
	"testing"
)

func TestReadHeaderRejectsBadFields(t *testing.T) {
	good := WriteHeader(Header{ClockTime: 0x10000000})

	bad := append([]byte(nil), good...)
	bad[0] = 2 // wrong version
	if _, err := ReadHeader(bad); !errors.Is(err, ErrUnexpectedHeader) {
		t.Fatalf("bad version err = %v, want ErrUnexpectedHeader", err)
	}

	bad = append([]byte(nil), good...)
	bad[1] = 8 // wrong record length
	if _, err := ReadHeader(bad); !errors.Is(err, ErrUnexpectedHeader) {
		t.Fatalf("bad record_length err = %v, want ErrUnexpectedHeader", err)
	}

	bad = append([]byte(nil), good...)
	bad[2] = 1 // wrong time format
	if _, err := ReadHeader(bad); !errors.Is(err, ErrUnexpectedHeader) {
		t.Fatalf("bad time_format err = %v, want ErrUnexpectedHeader", err)
	}
}

func TestReadHeaderShort(t *testing.T) {
	if _, err := ReadHeader(make([]byte, 10)); !errors.Is(err, ErrShortHeader) {
		t.Fatalf("short header err = %v, want ErrShortHeader", err)
	}
}

func TestDirectoryRoundTrip(t *testing.T) {
	want := Directory{
		Header: Header{ClockTime: 0x10000000},
		Entries: []Entry{
			{Index: 2, FileType: 0x0180, FileID: 2, Length: 1024, ClockTime: 10, Flags: FlagReadable | FlagErasable},
			{Index: 1, FileType: 0x0480, FileID: 1, Length: 2048, ClockTime: 20, Flags: FlagReadable},
		},
	}
	got, err := Read(want.Bytes())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Header != want.Header {
		t.Fatalf("header = %+v, want %+v", got.Header, want.Header)
	}
	if len(got.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(got.Entries))
	}
	// entries must come back in ascending index order, not wire order.
	if got.Entries[0].Index != 1 || got.Entries[1].Index != 2 {
		t.Fatalf("entries not sorted by index: %+v", got.Entries)
	}
	if got.Entries[0] != want.Entries[1] || got.Entries[1] != want.Entries[0] {
		t.Fatalf("round trip mismatch: got %+v", got.Entries)
	}
}

func TestEntryFlagAccessors(t *testing.T) {
	e := Entry{Flags: FlagReadable | FlagUnknown}
	if !e.Readable() {
		t.Fatalf("Readable() = false, want true")
	}
	if e.Erasable() {
		t.Fatalf("Erasable() = true, want false")
	}
	if !e.HasUnknownFlag() {
		t.Fatalf("HasUnknownFlag() = false, want true")
	}
}

func TestFileTypeComposition(t *testing.T) {
	e, err := ReadEntry(WriteEntry(Entry{FileType: 0x0480}))
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if e.FileType != 0x0480 {
		t.Fatalf("FileType = %#04x, want 0x0480", e.FileType)
	}
}
