// Package directory decodes the ANT-FS-style directory listing returned by
// a download of file index 0.
//
// Ownership boundary:
// - directory header and entry wire layout
// - file type flags and their accessors
package directory

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/p00ya/vivian/internal/vivproto/vivtime"
)

const (
	headerLength = 16
	entryLength  = 16

	expectedVersion      = 1
	expectedRecordLength = 16
	expectedTimeFormat   = 0
)

var (
	ErrShortHeader      = errors.New("directory: buffer shorter than a header")
	ErrShortEntry       = errors.New("directory: buffer shorter than an entry")
	ErrUnexpectedHeader = errors.New("directory: unexpected header field")
)

// FileFlags are bit-flags carried by a directory entry's flags byte.
type FileFlags uint8

const (
	// FlagUnknown is observed on real devices with unknown semantics.
	FlagUnknown FileFlags = 0x10
	// FlagErasable marks a file that may be erased.
	FlagErasable FileFlags = 0x20
	// FlagReadable marks a file that can be downloaded.
	FlagReadable FileFlags = 0x40
)

// Header is the directory's own metadata, decoded from the first 16 bytes
// of a directory download.
type Header struct {
	ClockTime uint32 // device clock, seconds since the ANT+ epoch
}

// Time returns the device's clock as a POSIX time.
func (h Header) Time() time.Time {
	return vivtime.ToPosix(h.ClockTime)
}

// Entry is a single decoded directory entry.
type Entry struct {
	Index     uint16
	FileType  uint16
	FileID    uint16
	Length    uint32
	ClockTime uint32
	Flags     FileFlags
}

// Time returns the entry's timestamp as a POSIX time.
func (e Entry) Time() time.Time {
	return vivtime.ToPosix(e.ClockTime)
}

// Erasable reports whether the device advertises this file as erasable.
func (e Entry) Erasable() bool {
	return e.Flags&FlagErasable != 0
}

// Readable reports whether the device advertises this file as downloadable.
func (e Entry) Readable() bool {
	return e.Flags&FlagReadable != 0
}

// HasUnknownFlag reports whether the device set the flag of unknown
// semantics observed on real hardware.
func (e Entry) HasUnknownFlag() bool {
	return e.Flags&FlagUnknown != 0
}

// ReadHeader decodes a directory header from the front of src.
func ReadHeader(src []byte) (Header, error) {
	if len(src) < headerLength {
		return Header{}, ErrShortHeader
	}
	version := src[0]
	recordLength := src[1]
	timeFormat := src[2]
	if version != expectedVersion {
		return Header{}, fmt.Errorf("%w: version %d", ErrUnexpectedHeader, version)
	}
	if recordLength != expectedRecordLength {
		return Header{}, fmt.Errorf("%w: record_length %d", ErrUnexpectedHeader, recordLength)
	}
	if timeFormat != expectedTimeFormat {
		return Header{}, fmt.Errorf("%w: time_format %d", ErrUnexpectedHeader, timeFormat)
	}
	return Header{ClockTime: binary.LittleEndian.Uint32(src[8:12])}, nil
}

// ReadEntry decodes a single directory entry from the front of src.
func ReadEntry(src []byte) (Entry, error) {
	if len(src) < entryLength {
		return Entry{}, ErrShortEntry
	}
	rawType := src[2]
	rawSubtype := src[3]
	return Entry{
		Index:     binary.LittleEndian.Uint16(src[0:2]),
		FileType:  uint16(rawType) | uint16(rawSubtype)<<8,
		FileID:    binary.LittleEndian.Uint16(src[4:6]),
		Flags:     FileFlags(src[7]),
		Length:    binary.LittleEndian.Uint32(src[8:12]),
		ClockTime: binary.LittleEndian.Uint32(src[12:16]),
	}, nil
}

// WriteHeader encodes h as a 16-byte directory header.
func WriteHeader(h Header) []byte {
	buf := make([]byte, headerLength)
	buf[0] = expectedVersion
	buf[1] = expectedRecordLength
	buf[2] = expectedTimeFormat
	binary.LittleEndian.PutUint32(buf[8:12], h.ClockTime)
	return buf
}

// WriteEntry encodes e as a 16-byte directory entry.
func WriteEntry(e Entry) []byte {
	buf := make([]byte, entryLength)
	binary.LittleEndian.PutUint16(buf[0:2], e.Index)
	buf[2] = byte(e.FileType)
	buf[3] = byte(e.FileType >> 8)
	binary.LittleEndian.PutUint16(buf[4:6], e.FileID)
	buf[7] = byte(e.Flags)
	binary.LittleEndian.PutUint32(buf[8:12], e.Length)
	binary.LittleEndian.PutUint32(buf[12:16], e.ClockTime)
	return buf
}

// Directory is a fully decoded directory listing.
type Directory struct {
	Header  Header
	Entries []Entry
}

// Read decodes a complete directory download: a header followed by zero or
// more fixed-length entries. Entries are returned in ascending index order,
// regardless of the order they appeared on the wire.
func Read(src []byte) (Directory, error) {
	hdr, err := ReadHeader(src)
	if err != nil {
		return Directory{}, err
	}
	var entries []Entry
	for p := src[headerLength:]; len(p) > 0; p = p[entryLength:] {
		e, err := ReadEntry(p)
		if err != nil {
			return Directory{}, err
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Index < entries[j].Index })
	return Directory{Header: hdr, Entries: entries}, nil
}

// Bytes encodes d back to its wire representation.
func (d Directory) Bytes() []byte {
	out := WriteHeader(d.Header)
	for _, e := range d.Entries {
		out = append(out, WriteEntry(e)...)
	}
	return out
}
